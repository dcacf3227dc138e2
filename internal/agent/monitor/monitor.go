// Package monitor implements the activity monitor: a single polling loop
// that detects foreground-application changes and appends one durable event
// per change.
package monitor

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tracelight/agent/internal/agent/metrics"
	"github.com/tracelight/agent/internal/agent/models"
	"github.com/tracelight/agent/internal/agent/probe"
	"github.com/tracelight/agent/internal/logging"
)

// settingIdleThreshold is the local_settings key holding the idle threshold
// in seconds; the store seeds it at 300.
const settingIdleThreshold = "idle_threshold_seconds"

// EventStore is the slice of the durable store the monitor needs.
type EventStore interface {
	InsertEvent(ctx context.Context, e *models.StoredEvent) error
	GetSetting(ctx context.Context, key string) (string, error)
	LastSyncTime(ctx context.Context) (*time.Time, error)
}

// Config tunes the polling loop. Zero values fall back to the defaults the
// agent ships with.
type Config struct {
	// PollInterval is the fixed sleep between ticks. Default 1s.
	PollInterval time.Duration
	// IdleThreshold is the idle duration at which probing is suppressed.
	// Default 300s, overridable via the idle_threshold_seconds setting.
	IdleThreshold time.Duration
	// IdleWait is the sleep before re-checking while idle. Default 5s.
	IdleWait time.Duration
}

func (c *Config) applyDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.IdleThreshold <= 0 {
		c.IdleThreshold = 300 * time.Second
	}
	if c.IdleWait <= 0 {
		c.IdleWait = 5 * time.Second
	}
}

// Monitor owns the polling loop. Start and Stop are safe for concurrent use;
// at most one loop runs at a time.
type Monitor struct {
	store EventStore
	probe probe.Probe
	log   logging.Logger
	cfg   Config

	mu              sync.Mutex
	running         bool
	eventsCollected int64
	activeWindow    string
}

// New builds a monitor around the given store and probe.
func New(store EventStore, pr probe.Probe, log logging.Logger, cfg Config) *Monitor {
	cfg.applyDefaults()
	return &Monitor{
		store: store,
		probe: pr,
		log:   log.With("component", "monitor"),
		cfg:   cfg,
	}
}

// Start launches the polling loop. Calling Start while already running is a
// no-op. The loop stops when Stop is called or ctx is cancelled; either may
// take up to one poll interval to be observed.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.mu.Unlock()

	threshold := m.idleThreshold(ctx)
	m.log.Info(ctx, "monitor started", "poll_interval", m.cfg.PollInterval, "idle_threshold", threshold)

	go m.run(ctx, threshold)
}

// Stop requests the loop to exit at the top of its next iteration and clears
// the active-window display string. Idempotent.
func (m *Monitor) Stop() {
	m.mu.Lock()
	m.running = false
	m.activeWindow = ""
	m.mu.Unlock()
	m.log.Info(context.Background(), "monitor stop requested")
}

// Status reports the operator-visible capture state.
func (m *Monitor) Status(ctx context.Context) (models.CaptureStatus, error) {
	m.mu.Lock()
	st := models.CaptureStatus{
		IsRunning:       m.running,
		EventsCollected: m.eventsCollected,
		ActiveWindow:    m.activeWindow,
	}
	m.mu.Unlock()

	last, err := m.store.LastSyncTime(ctx)
	if err != nil {
		return models.CaptureStatus{}, err
	}
	st.LastSyncAt = last
	return st, nil
}

func (m *Monitor) isRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// idleThreshold reads the configured threshold from settings, falling back
// to the in-process default when absent or unparsable.
func (m *Monitor) idleThreshold(ctx context.Context) time.Duration {
	raw, err := m.store.GetSetting(ctx, settingIdleThreshold)
	if err != nil || raw == "" {
		return m.cfg.IdleThreshold
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs <= 0 {
		return m.cfg.IdleThreshold
	}
	return time.Duration(secs) * time.Second
}

func (m *Monitor) run(ctx context.Context, idleThreshold time.Duration) {
	var (
		lastProcess string
		observed    bool
	)

	for {
		if !m.isRunning() || ctx.Err() != nil {
			break
		}

		// Idle suppression: while the user is away, re-check without
		// probing the window at all.
		if idle, err := m.probe.IdleDuration(ctx); err != nil {
			m.log.Debug(ctx, "idle probe failed, assuming active", "err", err)
		} else if idle >= idleThreshold {
			m.log.Debug(ctx, "user idle, suppressing capture", "idle", idle)
			if !sleepCtx(ctx, m.cfg.IdleWait) {
				break
			}
			continue
		}

		snap, err := m.probe.Foreground(ctx)
		if err != nil {
			m.log.Debug(ctx, "foreground probe failed", "err", err)
		} else if !observed || snap.ProcessName != lastProcess {
			// Title changes within the same process do not count as a
			// new event; only the process identity is compared.
			m.recordChange(ctx, snap)
			lastProcess = snap.ProcessName
			observed = true
		}

		if !sleepCtx(ctx, m.cfg.PollInterval) {
			break
		}
	}

	m.log.Info(context.Background(), "monitor loop ended")
}

// recordChange updates in-process state and persists the event. A failed
// write is logged and dropped; there is deliberately no retry or requeue on
// this path.
func (m *Monitor) recordChange(ctx context.Context, snap models.ActivitySnapshot) {
	title := SanitizeTitle(snap.WindowTitle)

	m.mu.Lock()
	m.eventsCollected++
	count := m.eventsCollected
	m.activeWindow = snap.ProcessName + " - " + title
	m.mu.Unlock()

	m.log.Info(ctx, "foreground changed", "process", snap.ProcessName, "events_collected", count)

	event := &models.StoredEvent{
		ID:          uuid.NewString(),
		EventType:   models.EventTypeAppUsage,
		Timestamp:   snap.Timestamp,
		AppName:     snap.ProcessName,
		WindowTitle: &title,
	}
	if err := m.store.InsertEvent(ctx, event); err != nil {
		m.log.Error(ctx, "failed to store event", "err", err)
		return
	}
	metrics.EventsCaptured.Inc()
}

// sleepCtx sleeps for d, returning false when ctx was cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

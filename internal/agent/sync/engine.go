// Package sync implements the batch-upload engine: it reads unsynced events
// from the local store, encrypts their titles, ships them to the configured
// server and records the outcome. At most one sync runs at a time.
package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/tracelight/agent/internal/agent/metrics"
	"github.com/tracelight/agent/internal/agent/models"
	"github.com/tracelight/agent/internal/cryptox"
	"github.com/tracelight/agent/internal/logging"
)

const (
	settingServerConfig  = "server_config"
	settingLastSyncError = "last_sync_error"
	stateLastSyncAt      = "last_sync_at"
)

const (
	syncPath    = "/api/v1/sync/events"
	maxAttempts = 3

	httpTimeout = 30 * time.Second
	dialTimeout = 10 * time.Second
)

// Store is the slice of the durable store the engine needs.
type Store interface {
	UnsyncedEvents(ctx context.Context) ([]models.StoredEvent, error)
	UnsyncedCount(ctx context.Context) (int64, error)
	MarkSynced(ctx context.Context, ids []string) error
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	UpdateSyncState(ctx context.Context, key, value string) error
	LastSyncTime(ctx context.Context) (*time.Time, error)
}

// Engine coordinates sync runs. Each piece of mutable state sits under its
// own mutex; no mutex is ever held across store or network I/O.
type Engine struct {
	store  Store
	log    logging.Logger
	client *http.Client

	cryptorMu sync.Mutex
	cryptor   *cryptox.Cryptor

	configMu sync.Mutex
	config   *models.ServerConfig

	flightMu sync.Mutex
	syncing  bool

	autoMu     sync.Mutex
	autoCancel context.CancelFunc

	// retryBase is the first retry delay; subsequent delays double.
	retryBase time.Duration
}

func New(store Store, log logging.Logger) *Engine {
	return &Engine{
		store: store,
		log:   log.With("component", "sync"),
		client: &http.Client{
			Timeout: httpTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: dialTimeout}).DialContext,
			},
		},
		retryBase: time.Second,
	}
}

// SetKey installs the encryption key. The key must be exactly 32 bytes.
func (e *Engine) SetKey(key []byte) error {
	c, err := cryptox.New(key)
	if err != nil {
		return err
	}
	e.cryptorMu.Lock()
	e.cryptor = c
	e.cryptorMu.Unlock()
	return nil
}

func (e *Engine) currentCryptor() *cryptox.Cryptor {
	e.cryptorMu.Lock()
	defer e.cryptorMu.Unlock()
	return e.cryptor
}

// SetConfig persists the server configuration and then updates the in-memory
// cache, so a crash between the two leaves the durable copy authoritative.
func (e *Engine) SetConfig(ctx context.Context, cfg models.ServerConfig) error {
	if cfg.ServerURL == "" {
		return fmt.Errorf("%w: server URL is empty", ErrNotConfigured)
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding server config: %w", err)
	}
	if err := e.store.SetSetting(ctx, settingServerConfig, string(raw)); err != nil {
		return err
	}
	e.configMu.Lock()
	e.config = &cfg
	e.configMu.Unlock()
	return nil
}

// Config returns the server configuration, preferring the durable copy and
// falling back to the cache when the store has none.
func (e *Engine) Config(ctx context.Context) (*models.ServerConfig, error) {
	raw, err := e.store.GetSetting(ctx, settingServerConfig)
	if err != nil {
		return nil, err
	}
	if raw != "" {
		var cfg models.ServerConfig
		if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
			return nil, fmt.Errorf("decoding server config: %w", err)
		}
		e.configMu.Lock()
		e.config = &cfg
		e.configMu.Unlock()
		return &cfg, nil
	}

	e.configMu.Lock()
	defer e.configMu.Unlock()
	if e.config == nil {
		return nil, ErrNotConfigured
	}
	cfg := *e.config
	return &cfg, nil
}

// SyncNow runs one sync cycle. A second concurrent call fails fast with
// ErrSyncInProgress without touching the store. Any failure is persisted as
// last_sync_error before being returned.
func (e *Engine) SyncNow(ctx context.Context) error {
	if !e.beginSync() {
		return ErrSyncInProgress
	}
	defer e.endSync()

	metrics.SyncAttempts.Inc()
	if err := e.syncOnce(ctx); err != nil {
		metrics.SyncFailures.Inc()
		if serr := e.store.SetSetting(ctx, settingLastSyncError, err.Error()); serr != nil {
			e.log.Error(ctx, "failed to record sync error", "err", serr)
		}
		return err
	}
	return nil
}

func (e *Engine) syncOnce(ctx context.Context) error {
	cfg, err := e.Config(ctx)
	if err != nil {
		return err
	}

	events, err := e.store.UnsyncedEvents(ctx)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		e.log.Debug(ctx, "nothing to sync")
		return nil
	}
	if len(events) > maxBatchSize {
		events = events[:maxBatchSize]
	}

	cryptor := e.currentCryptor()
	if cryptor == nil {
		return ErrKeyNotSet
	}

	wire, err := buildWireEvents(cryptor, events, time.Now().UTC())
	if err != nil {
		return err
	}

	resp, err := e.sendWithRetry(ctx, cfg, syncRequest{DeviceID: cfg.DeviceID, Events: wire})
	if err != nil {
		return err
	}

	// A 2xx marks the whole transmitted batch as synced; the per-event
	// failed count in the response is reported but not acted on.
	ids := make([]string, len(events))
	for i, ev := range events {
		ids[i] = ev.ID
	}
	if err := e.store.MarkSynced(ctx, ids); err != nil {
		return err
	}
	if err := e.store.UpdateSyncState(ctx, stateLastSyncAt, strconv.FormatInt(time.Now().UnixMilli(), 10)); err != nil {
		return err
	}
	if err := e.store.SetSetting(ctx, settingLastSyncError, ""); err != nil {
		return err
	}

	metrics.EventsSynced.Add(float64(len(ids)))
	e.log.Info(ctx, "sync completed",
		"events", len(ids), "synced", resp.Synced, "failed", resp.Failed)
	return nil
}

// sendWithRetry retries network and server failures with exponential backoff
// starting at retryBase, up to maxAttempts total attempts. Auth, encryption
// and unclassified failures abort immediately.
func (e *Engine) sendWithRetry(ctx context.Context, cfg *models.ServerConfig, payload syncRequest) (*syncResponse, error) {
	var resp *syncResponse
	backoff := retry.WithMaxRetries(maxAttempts-1, retry.NewExponential(e.retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		r, err := e.send(ctx, cfg, payload)
		if err != nil {
			if errors.Is(err, ErrNetwork) || errors.Is(err, ErrServer) {
				e.log.Warn(ctx, "sync attempt failed", "err", err)
				return retry.RetryableError(err)
			}
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (e *Engine) send(ctx context.Context, cfg *models.ServerConfig, payload syncRequest) (*syncResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding request: %v", ErrUnknown, err)
	}

	url := strings.TrimRight(cfg.ServerURL, "/") + syncPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", ErrUnknown, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.Token)

	res, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrNetwork, err)
	}

	switch {
	case res.StatusCode >= 200 && res.StatusCode < 300:
		var sr syncResponse
		if err := json.Unmarshal(data, &sr); err != nil {
			return nil, fmt.Errorf("%w: invalid response body: %v", ErrUnknown, err)
		}
		return &sr, nil
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s", ErrAuth, strings.TrimSpace(string(data)))
	case res.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d: %s", ErrServer, res.StatusCode, strings.TrimSpace(string(data)))
	default:
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnknown, res.StatusCode, strings.TrimSpace(string(data)))
	}
}

// Status reports the engine's view of sync health.
func (e *Engine) Status(ctx context.Context) (models.SyncStatus, error) {
	pending, err := e.store.UnsyncedCount(ctx)
	if err != nil {
		return models.SyncStatus{}, err
	}
	last, err := e.store.LastSyncTime(ctx)
	if err != nil {
		return models.SyncStatus{}, err
	}
	lastErr, err := e.store.GetSetting(ctx, settingLastSyncError)
	if err != nil {
		return models.SyncStatus{}, err
	}
	return models.SyncStatus{
		IsSyncing:     e.isSyncing(),
		LastSyncAt:    last,
		PendingEvents: pending,
		LastError:     lastErr,
	}, nil
}

func (e *Engine) beginSync() bool {
	e.flightMu.Lock()
	defer e.flightMu.Unlock()
	if e.syncing {
		return false
	}
	e.syncing = true
	return true
}

func (e *Engine) endSync() {
	e.flightMu.Lock()
	e.syncing = false
	e.flightMu.Unlock()
}

func (e *Engine) isSyncing() bool {
	e.flightMu.Lock()
	defer e.flightMu.Unlock()
	return e.syncing
}

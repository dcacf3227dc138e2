package sync

import (
	"context"
	"errors"
	"time"
)

// Defaults for the background scheduler.
const (
	DefaultAutoSyncInterval  = 5 * time.Minute
	DefaultAutoSyncThreshold = 100
)

// StartAutoSync launches a background loop that triggers a sync whenever the
// number of pending events reaches threshold. Starting an already-running
// scheduler is a no-op.
func (e *Engine) StartAutoSync(ctx context.Context, interval time.Duration, threshold int64) {
	if interval <= 0 {
		interval = DefaultAutoSyncInterval
	}
	if threshold <= 0 {
		threshold = DefaultAutoSyncThreshold
	}

	e.autoMu.Lock()
	if e.autoCancel != nil {
		e.autoMu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	e.autoCancel = cancel
	e.autoMu.Unlock()

	e.log.Info(ctx, "auto-sync started", "interval", interval, "threshold", threshold)
	go e.autoSyncLoop(ctx, interval, threshold)
}

// StopAutoSync stops the background loop. Safe to call when not running.
func (e *Engine) StopAutoSync() {
	e.autoMu.Lock()
	if e.autoCancel != nil {
		e.autoCancel()
		e.autoCancel = nil
	}
	e.autoMu.Unlock()
}

func (e *Engine) autoSyncLoop(ctx context.Context, interval time.Duration, threshold int64) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if e.isSyncing() {
				continue
			}
			pending, err := e.store.UnsyncedCount(ctx)
			if err != nil {
				e.log.Error(ctx, "auto-sync pending check failed", "err", err)
				continue
			}
			if pending < threshold {
				continue
			}
			if err := e.SyncNow(ctx); err != nil && !errors.Is(err, ErrSyncInProgress) {
				e.log.Error(ctx, "auto-sync failed", "err", err)
			}
		}
	}
}

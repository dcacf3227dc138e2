// Package cli wires the agent's components together and exposes them as
// cobra commands.
package cli

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/tracelight/agent/internal/agent/config"
	"github.com/tracelight/agent/internal/agent/models"
	"github.com/tracelight/agent/internal/agent/monitor"
	"github.com/tracelight/agent/internal/agent/probe"
	"github.com/tracelight/agent/internal/agent/store"
	"github.com/tracelight/agent/internal/agent/sync"
	"github.com/tracelight/agent/internal/cryptox"
	"github.com/tracelight/agent/internal/logging"
)

const (
	settingKeySalt     = "key_salt"
	settingKeyVerifier = "key_verifier"
)

// ErrPassphraseMismatch is returned when a passphrase derives a key that does
// not match the stored verifier.
var ErrPassphraseMismatch = errors.New("passphrase does not match the existing key")

// App owns the long-lived components: the store, the sync engine and the
// monitor. One App is built per command invocation.
type App struct {
	cfg     *config.Config
	log     logging.Logger
	store   *store.Store
	engine  *sync.Engine
	monitor *monitor.Monitor
}

// NewApp opens the database and wires the engine and monitor around it.
func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	if dir := filepath.Dir(cfg.DBPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	st, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:    cfg,
		log:    log,
		store:  st,
		engine: sync.New(st, log),
		monitor: monitor.New(st, probe.System(), log, monitor.Config{
			PollInterval:  cfg.PollInterval,
			IdleThreshold: cfg.IdleThreshold,
		}),
	}, nil
}

func (a *App) Close() error {
	a.engine.StopAutoSync()
	a.monitor.Stop()
	return a.store.Close()
}

// StartCapture begins foreground-window monitoring.
func (a *App) StartCapture(ctx context.Context) {
	a.monitor.Start(ctx)
}

// StopCapture halts monitoring.
func (a *App) StopCapture() {
	a.monitor.Stop()
}

func (a *App) CaptureStatus(ctx context.Context) (models.CaptureStatus, error) {
	return a.monitor.Status(ctx)
}

// SyncNow triggers a sync cycle.
func (a *App) SyncNow(ctx context.Context) error {
	return a.engine.SyncNow(ctx)
}

func (a *App) SyncStatus(ctx context.Context) (models.SyncStatus, error) {
	return a.engine.Status(ctx)
}

// StartAutoSync launches the background sync scheduler with the configured
// interval and threshold.
func (a *App) StartAutoSync(ctx context.Context) {
	a.engine.StartAutoSync(ctx, a.cfg.SyncInterval, a.cfg.SyncThreshold)
}

// ServerConfig returns the stored server configuration.
func (a *App) ServerConfig(ctx context.Context) (*models.ServerConfig, error) {
	return a.engine.Config(ctx)
}

// SetServerConfig stores the server configuration, generating a device id
// when none was supplied and none exists yet.
func (a *App) SetServerConfig(ctx context.Context, cfg models.ServerConfig) (models.ServerConfig, error) {
	if cfg.DeviceID == "" {
		if existing, err := a.engine.Config(ctx); err == nil && existing.DeviceID != "" {
			cfg.DeviceID = existing.DeviceID
		} else {
			cfg.DeviceID = uuid.NewString()
		}
	}
	if err := a.engine.SetConfig(ctx, cfg); err != nil {
		return models.ServerConfig{}, err
	}
	return cfg, nil
}

// Events lists recent events, newest first.
func (a *App) Events(ctx context.Context, limit, offset int) ([]models.StoredEvent, error) {
	return a.store.Events(ctx, limit, offset)
}

// SetKeyFromPassphrase derives the encryption key from the passphrase with
// the stored salt (creating one on first use), checks it against the stored
// verifier and installs it into the sync engine. The passphrase itself is
// never persisted.
func (a *App) SetKeyFromPassphrase(ctx context.Context, passphrase string) error {
	if passphrase == "" {
		return errors.New("passphrase is empty")
	}

	salt, err := a.loadOrCreateSalt(ctx)
	if err != nil {
		return err
	}

	key := cryptox.DeriveKey([]byte(passphrase), salt)
	verifier := hex.EncodeToString(cryptox.MakeVerifier(key))

	stored, err := a.store.GetSetting(ctx, settingKeyVerifier)
	if err != nil {
		return err
	}
	switch {
	case stored == "":
		if err := a.store.SetSetting(ctx, settingKeyVerifier, verifier); err != nil {
			return err
		}
	case stored != verifier:
		return ErrPassphraseMismatch
	}

	return a.engine.SetKey(key)
}

func (a *App) loadOrCreateSalt(ctx context.Context) ([]byte, error) {
	raw, err := a.store.GetSetting(ctx, settingKeySalt)
	if err != nil {
		return nil, err
	}
	if raw != "" {
		salt, err := hex.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("decoding stored key salt: %w", err)
		}
		return salt, nil
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generating key salt: %w", err)
	}
	if err := a.store.SetSetting(ctx, settingKeySalt, hex.EncodeToString(salt)); err != nil {
		return nil, err
	}
	return salt, nil
}

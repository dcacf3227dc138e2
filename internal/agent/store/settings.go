package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// GetSetting returns the value stored under key in local_settings, or the
// empty string when the key is absent.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM local_settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: reading setting %q: %v", ErrStorage, key, err)
	}
	return value, nil
}

// SetSetting upserts a local_settings entry.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO local_settings (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("%w: writing setting %q: %v", ErrStorage, key, err)
	}
	return nil
}

// UpdateSyncState upserts a sync_state entry.
func (s *Store) UpdateSyncState(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_state (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("%w: writing sync state %q: %v", ErrStorage, key, err)
	}
	return nil
}

// LastSyncTime returns the recorded time of the last successful sync, or nil
// when no sync has completed yet. The value is stored as unix milliseconds
// under the last_sync_at key.
func (s *Store) LastSyncTime(ctx context.Context) (*time.Time, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM sync_state WHERE key = 'last_sync_at'`).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading last sync time: %v", ErrStorage, err)
	}
	millis, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil, nil
	}
	t := time.UnixMilli(millis).UTC()
	return &t, nil
}

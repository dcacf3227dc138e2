package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tracelight/agent/internal/agent/models"
	"github.com/tracelight/agent/internal/dbx"
)

// InsertEvent appends one event row. The event's identifier must already be
// assigned; the synced flag always starts at zero.
func (s *Store) InsertEvent(ctx context.Context, e *models.StoredEvent) error {
	var title any
	if e.WindowTitle != nil {
		title = *e.WindowTitle
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO local_events (id, event_type, timestamp, duration, app_name, window_title)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, e.EventType, e.Timestamp.UnixMilli(), e.Duration, e.AppName, title)
	if err != nil {
		return fmt.Errorf("%w: inserting event: %v", ErrStorage, err)
	}
	return nil
}

// Events lists stored events newest-first.
func (s *Store) Events(ctx context.Context, limit, offset int) ([]models.StoredEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_type, timestamp, duration, app_name, window_title, synced, created_at
		FROM local_events
		ORDER BY timestamp DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: selecting events: %v", ErrStorage, err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// UnsyncedEvents lists events not yet uploaded, oldest-first, so batches are
// processed roughly FIFO.
func (s *Store) UnsyncedEvents(ctx context.Context) ([]models.StoredEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_type, timestamp, duration, app_name, window_title, synced, created_at
		FROM local_events
		WHERE synced = 0
		ORDER BY timestamp ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: selecting unsynced events: %v", ErrStorage, err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// UnsyncedCount reports the number of events awaiting upload.
func (s *Store) UnsyncedCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM local_events WHERE synced = 0`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: counting unsynced events: %v", ErrStorage, err)
	}
	return count, nil
}

// EventCount reports the total number of stored events.
func (s *Store) EventCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM local_events`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: counting events: %v", ErrStorage, err)
	}
	return count, nil
}

// MarkSynced flips the synced flag for the given identifiers inside one
// transaction. Empty input is a no-op; unknown identifiers are ignored.
func (s *Store) MarkSynced(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx, `UPDATE local_events SET synced = 1 WHERE id = ?`, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: marking events synced: %v", ErrStorage, err)
	}
	return nil
}

func scanEvents(rows *sql.Rows) ([]models.StoredEvent, error) {
	var result []models.StoredEvent
	for rows.Next() {
		var (
			e         models.StoredEvent
			ts        int64
			createdAt int64
			title     sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.EventType, &ts, &e.Duration, &e.AppName, &title, &e.Synced, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: scanning event row: %v", ErrStorage, err)
		}
		e.Timestamp = time.UnixMilli(ts).UTC()
		e.CreatedAt = time.UnixMilli(createdAt).UTC()
		if title.Valid {
			e.WindowTitle = &title.String
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating event rows: %v", ErrStorage, err)
	}
	return result, nil
}

// Package store implements the durable activity store: an append-only event
// log plus small settings and sync-state key/value tables, backed by SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/tracelight/agent/internal/agent/store/migrations"
)

// ErrStorage wraps every failure surfaced by the store so callers can
// classify storage problems without inspecting driver errors.
var ErrStorage = errors.New("storage error")

// Store owns the SQLite handle. The connection pool is capped at one
// connection, so statements execute one at a time; callers must keep
// operations short.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at dsn and applies pending
// migrations. Use ":memory:" for an ephemeral store in tests.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", ErrStorage, err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%w: applying pragmas: %v", ErrStorage, err)
		}
	}

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: running migrations: %v", ErrStorage, err)
	}

	return &Store{db: db}, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Package store persists runs and extracted records. Two backends implement
// the same interface: SQLite for local single-file runs and Postgres for
// shared deployments, selected by configuration.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dealer-scout/internal/model"
)

// Run identifies one coordinator invocation.
type Run struct {
	ID        string
	StartedAt time.Time
}

// RunStats are the per-run counters persisted when a run finishes.
type RunStats struct {
	Codes      int
	Failed     int
	Units      int
	Saved      int
	Duplicates int
}

// Store is the persistence interface. PushBatch is append-only with
// at-least-once semantics; uniqueness within a run is the deduplicator's
// job, not the store's.
type Store interface {
	Migrate(ctx context.Context) error
	CreateRun(ctx context.Context) (*Run, error)
	FinishRun(ctx context.Context, runID string, stats RunStats) error
	PushBatch(ctx context.Context, runID string, records []*model.Record) error
	ListRecords(ctx context.Context, runID string) ([]*model.Record, error)
	Close() error
}

// Open creates a store for the configured driver.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "sqlite", "":
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, dsn)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}

func toNull(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

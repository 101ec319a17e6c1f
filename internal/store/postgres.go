package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/dealer-scout/internal/db"
	"github.com/sells-group/dealer-scout/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// recordColumns is the COPY column list for batch inserts.
var recordColumns = []string{
	"id", "run_id", "name", "street", "postal_code", "city",
	"phone", "email", "website", "opening_hours", "category",
	"source_postal_code", "source_url", "created_at",
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 4
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	s := &PostgresStore{pool: pool}
	if err := s.pool.Ping(ctx); err != nil {
		s.pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return s, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL DEFAULT 'running',
	codes       INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	units       INTEGER NOT NULL DEFAULT 0,
	saved       INTEGER NOT NULL DEFAULT 0,
	duplicates  INTEGER NOT NULL DEFAULT 0,
	started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS records (
	id                 TEXT PRIMARY KEY,
	run_id             TEXT NOT NULL REFERENCES runs(id),
	name               TEXT,
	street             TEXT,
	postal_code        TEXT,
	city               TEXT,
	phone              TEXT,
	email              TEXT,
	website            TEXT,
	opening_hours      TEXT,
	category           TEXT,
	source_postal_code TEXT NOT NULL,
	source_url         TEXT,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_records_run_id ON records(run_id);
CREATE INDEX IF NOT EXISTS idx_records_postal_code ON records(postal_code);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context) (*Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, status, started_at) VALUES ($1, $2, $3)`,
		id, "running", now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &Run{ID: id, StartedAt: now}, nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, runID string, stats RunStats) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, codes = $2, failed = $3, units = $4, saved = $5, duplicates = $6, finished_at = $7 WHERE id = $8`,
		"complete", stats.Codes, stats.Failed, stats.Units, stats.Saved, stats.Duplicates, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) PushBatch(ctx context.Context, runID string, records []*model.Record) error {
	if len(records) == 0 {
		return nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []any{
			uuid.New().String(), runID,
			rec.Name, rec.Street, rec.PostalCode, rec.City,
			rec.Phone, rec.Email, rec.Website, rec.OpeningHours,
			rec.Category, rec.SourcePostalCode, rec.SourceURL, now,
		})
	}

	_, err := db.CopyFrom(ctx, s.pool, "records", recordColumns, rows)
	return eris.Wrapf(err, "postgres: push batch for run %s", runID)
}

func (s *PostgresStore) ListRecords(ctx context.Context, runID string) ([]*model.Record, error) {
	query := `SELECT name, street, postal_code, city, phone, email, website, opening_hours, category, source_postal_code, source_url
	          FROM records`
	var args []any
	if runID != "" {
		query += ` WHERE run_id = $1`
		args = append(args, runID)
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list records")
	}
	defer rows.Close()

	var out []*model.Record
	for rows.Next() {
		var rec model.Record
		var name, street, postal, city, phone, email, website, hours, category, sourceURL sql.NullString
		if err := rows.Scan(&name, &street, &postal, &city, &phone, &email, &website, &hours, &category, &rec.SourcePostalCode, &sourceURL); err != nil {
			return nil, eris.Wrap(err, "postgres: scan record")
		}
		rec.Name = fromNull(name)
		rec.Street = fromNull(street)
		rec.PostalCode = fromNull(postal)
		rec.City = fromNull(city)
		rec.Phone = fromNull(phone)
		rec.Email = fromNull(email)
		rec.Website = fromNull(website)
		rec.OpeningHours = fromNull(hours)
		rec.Category = fromNull(category)
		rec.SourceURL = fromNull(sourceURL)
		out = append(out, &rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list records iterate")
}

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/dealer-scout/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL DEFAULT 'running',
	codes       INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	units       INTEGER NOT NULL DEFAULT 0,
	saved       INTEGER NOT NULL DEFAULT 0,
	duplicates  INTEGER NOT NULL DEFAULT 0,
	started_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at DATETIME
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
	created_at         DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_records_run_id ON records(run_id);
CREATE INDEX IF NOT EXISTS idx_records_postal_code ON records(postal_code);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context) (*Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, status, started_at) VALUES (?, ?, ?)`,
		id, "running", now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &Run{ID: id, StartedAt: now}, nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, stats RunStats) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, codes = ?, failed = ?, units = ?, saved = ?, duplicates = ?, finished_at = ? WHERE id = ?`,
		"complete", stats.Codes, stats.Failed, stats.Units, stats.Saved, stats.Duplicates, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) PushBatch(ctx context.Context, runID string, records []*model.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin batch")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records
		 (id, run_id, name, street, postal_code, city, phone, email, website, opening_hours, category, source_postal_code, source_url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare batch insert")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, rec := range records {
		_, err := stmt.ExecContext(ctx,
			uuid.New().String(), runID,
			toNull(rec.Name), toNull(rec.Street), toNull(rec.PostalCode), toNull(rec.City),
			toNull(rec.Phone), toNull(rec.Email), toNull(rec.Website), toNull(rec.OpeningHours),
			toNull(rec.Category), rec.SourcePostalCode, toNull(rec.SourceURL), now,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert record for run %s", runID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit batch")
}

func (s *SQLiteStore) ListRecords(ctx context.Context, runID string) ([]*model.Record, error) {
	query := `SELECT name, street, postal_code, city, phone, email, website, opening_hours, category, source_postal_code, source_url
	          FROM records`
	var args []any
	if runID != "" {
		query += ` WHERE run_id = ?`
		args = append(args, runID)
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list records")
	}
	defer rows.Close()

	var out []*model.Record
	for rows.Next() {
		var rec model.Record
		var name, street, postal, city, phone, email, website, hours, category, sourceURL sql.NullString
		if err := rows.Scan(&name, &street, &postal, &city, &phone, &email, &website, &hours, &category, &rec.SourcePostalCode, &sourceURL); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan record")
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
	return out, eris.Wrap(rows.Err(), "sqlite: list records iterate")
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

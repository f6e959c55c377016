// Package journal provides an optional WAL-mode SQLite store of every
// directory-change observation the daemon emits. It exists for operators who
// want a queryable history beyond the flat log file; the base daemon runs
// without it.
//
// # WAL mode
//
// The database is opened with PRAGMA journal_mode = WAL so the healthz
// server's reads never block the main loop's writes. SQLite allows a single
// writer; the pool is limited to one connection so concurrent access
// serialises instead of failing with "database is locked".
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/syswatch/agent/internal/watch"
	_ "modernc.org/sqlite" // register "sqlite" driver with database/sql
)

// recordTimeout bounds a single insert so a wedged disk cannot stall the
// main loop indefinitely.
const recordTimeout = 5 * time.Second

// ddl is the schema, idempotent so reopening an existing journal is safe.
const ddl = `
CREATE TABLE IF NOT EXISTS observations (
    id     INTEGER PRIMARY KEY AUTOINCREMENT,
    dir    TEXT NOT NULL,
    kind   TEXT NOT NULL,
    entry  TEXT NOT NULL DEFAULT '',
    source TEXT NOT NULL,
    ts     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_observations_ts ON observations (ts);
`

// Journal is the SQLite-backed observation store. It implements
// watch.Recorder. Insert failures are logged and swallowed: the journal is a
// secondary sink and must never take the daemon down.
type Journal struct {
	db     *sql.DB
	logger *slog.Logger
	count  atomic.Int64
}

// Open opens (or creates) the journal database at path, enables WAL mode,
// applies the schema, and seeds the row counter. ":memory:" is accepted for
// tests.
func Open(path string, logger *slog.Logger) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open %q: %w", path, err)
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: set WAL mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA synchronous = NORMAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: set synchronous: %w", err)
	}
	if _, err := db.Exec(ddl); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: apply schema: %w", err)
	}

	j := &Journal{db: db, logger: logger}

	var count int64
	if err := db.QueryRow(`SELECT COUNT(*) FROM observations`).Scan(&count); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: count rows: %w", err)
	}
	j.count.Store(count)

	return j, nil
}

// Record persists one observation. It implements watch.Recorder: errors are
// logged at warning level and not propagated.
func (j *Journal) Record(o watch.Observation) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO observations (dir, kind, entry, source, ts)
		 VALUES (?, ?, ?, ?, ?)`,
		o.Dir,
		o.Kind.String(),
		o.Entry,
		o.Source,
		o.At.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		j.logger.Warn("journal: insert failed", slog.Any("error", err))
		return
	}
	j.count.Add(1)
}

// Row is one stored observation as returned by Recent.
type Row struct {
	ID     int64     `json:"id"`
	Dir    string    `json:"dir"`
	Kind   string    `json:"kind"`
	Entry  string    `json:"entry,omitempty"`
	Source string    `json:"source"`
	At     time.Time `json:"at"`
}

// Recent returns up to limit observations, newest first. limit values
// outside [1, 1000] are clamped.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Row, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > 1000 {
		limit = 1000
	}

	rows, err := j.db.QueryContext(ctx,
		`SELECT id, dir, kind, entry, source, ts
		 FROM   observations
		 ORDER  BY id DESC
		 LIMIT  ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: query recent: %w", err)
	}
	defer rows.Close()

	var result []Row
	for rows.Next() {
		var (
			r     Row
			tsStr string
		)
		if err := rows.Scan(&r.ID, &r.Dir, &r.Kind, &r.Entry, &r.Source, &tsStr); err != nil {
			return nil, fmt.Errorf("journal: scan row: %w", err)
		}
		r.At, err = time.Parse(time.RFC3339Nano, tsStr)
		if err != nil {
			r.At, _ = time.Parse(time.RFC3339, tsStr)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: rows: %w", err)
	}
	return result, nil
}

// Count returns the total number of stored observations. It reads an atomic
// counter seeded at Open, so it never touches the database.
func (j *Journal) Count() int {
	return int(j.count.Load())
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

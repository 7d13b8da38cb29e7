// Package journal provides a SQLite-backed record of processing runs.
//
// Every processing attempt gets one row in runs, keyed by a UUIDv7 run
// id, plus one row per rewritten line in run_changes. The journal is an
// audit trail only: processing never reads it and works fine without one.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Run outcomes.
const (
	OutcomeModified  = "modified"
	OutcomeDryRun    = "dry_run"
	OutcomeNoMatches = "no_matches"
	OutcomeFailed    = "failed"
)

// Journal is a handle to the run journal database.
type Journal struct {
	db *sql.DB
}

// Run is one processing attempt.
type Run struct {
	ID          string    `json:"id"`
	ArchivePath string    `json:"archive_path"`
	Resource    string    `json:"resource"`
	Profile     string    `json:"profile"`
	Outcome     string    `json:"outcome"`
	Detail      string    `json:"detail,omitempty"`
	Matches     int       `json:"matches"`
	CreatedAt   time.Time `json:"created_at"`
}

// Change is one rewritten line belonging to a run.
type Change struct {
	Line int    `json:"line"`
	Text string `json:"text"`
}

// NewRunID returns a time-ordered unique run identifier.
func NewRunID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Open creates or opens the journal database at path and applies the
// schema. Configured with WAL mode, a single-writer connection pool, and
// a 5-second busy timeout. Safe to call repeatedly on the same path.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect journal: %w", err)
	}

	// SQLite allows one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent use.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply journal schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Record writes one run and its line changes in a single transaction.
// Re-recording an existing run id is a silent no-op.
func (j *Journal) Record(ctx context.Context, run Run, changes []Change) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, archive_path, resource, profile, outcome, detail, matches)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, run.ID, run.ArchivePath, run.Resource, run.Profile, run.Outcome, run.Detail, run.Matches)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}

	for _, c := range changes {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_changes (run_id, line, text)
			VALUES (?, ?, ?)
			ON CONFLICT DO NOTHING
		`, run.ID, c.Line, c.Text)
		if err != nil {
			return fmt.Errorf("record change: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first. Ties on timestamp are
// broken by id so the order is stable.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Run, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, archive_path, resource, profile, outcome, detail, matches, created_at
		FROM runs
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var createdAt string
		if err := rows.Scan(&r.ID, &r.ArchivePath, &r.Resource, &r.Profile,
			&r.Outcome, &r.Detail, &r.Matches, &createdAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.CreatedAt, err = time.Parse("2006-01-02T15:04:05.999Z", createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse run timestamp %q: %w", createdAt, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Changes returns the line changes of one run, in line order.
func (j *Journal) Changes(ctx context.Context, runID string) ([]Change, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT line, text FROM run_changes
		WHERE run_id = ?
		ORDER BY line ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list changes: %w", err)
	}
	defer rows.Close()

	var changes []Change
	for rows.Next() {
		var c Change
		if err := rows.Scan(&c.Line, &c.Text); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

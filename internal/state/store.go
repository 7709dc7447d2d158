// Package state records analysis runs in SQLite so later runs can be
// compared against a baseline.
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/layerlint/pkg/core"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

var errNotOpen = errors.New("database not opened")

// ErrNoRuns is returned when the store has no recorded run.
var ErrNoRuns = errors.New("no recorded runs")

// Run is one recorded analysis.
type Run struct {
	ID         string        `json:"id"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Depfile    string        `json:"depfile"`
	Entities   int           `json:"entities"`
	Edges      int           `json:"edges"`
	Violations int           `json:"violations"`
	Skipped    int           `json:"skipped"`
	Untracked  int           `json:"untracked"`
}

// SQLiteStore persists runs and their violations.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore creates a new SQLite state store instance.
func NewSQLiteStore() *SQLiteStore {
	return &SQLiteStore{}
}

// NewWithDB wraps an existing connection. Used with sqlmock in tests.
func NewWithDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Open opens the database at path, creating its directory if needed.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := ":memory:?_pragma=foreign_keys(1)"
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("failed to create state directory: %w", err)
			}
		}
		dsn = "file:" + path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// A second connection to ":memory:" would see a different database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the path passed to Open.
func (s *SQLiteStore) Path() string {
	return s.path
}

// RecordRun stores a run and its violations in one transaction. The run ID
// and, when zero, the start time are filled in.
func (s *SQLiteStore) RecordRun(ctx context.Context, run *Run, violations []core.Violation) error {
	if s.db == nil {
		return errNotOpen
	}
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	run.Violations = len(violations)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, duration_ms, depfile, entities, edges, violations, skipped, untracked)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UnixNano(), run.Duration.Milliseconds(), run.Depfile,
		run.Entities, run.Edges, run.Violations, run.Skipped, run.Untracked,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if len(violations) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO violations (run_id, seq, source, target, kind, source_layer, target_layer, reason)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare violation insert: %w", err)
		}
		defer stmt.Close()

		for i, v := range violations {
			if _, err := stmt.ExecContext(ctx, run.ID, i, v.Edge.Source, v.Edge.Target, v.Edge.Kind,
				v.SourceLayer, v.TargetLayer, v.Reason.String()); err != nil {
				return fmt.Errorf("failed to insert violation: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

const runColumns = `id, started_at, duration_ms, depfile, entities, edges, violations, skipped, untracked`

func scanRun(row interface{ Scan(...any) error }) (*Run, error) {
	var r Run
	var startedAt, durationMs int64
	if err := row.Scan(&r.ID, &startedAt, &durationMs, &r.Depfile,
		&r.Entities, &r.Edges, &r.Violations, &r.Skipped, &r.Untracked); err != nil {
		return nil, err
	}
	r.StartedAt = time.Unix(0, startedAt).UTC()
	r.Duration = time.Duration(durationMs) * time.Millisecond
	return &r, nil
}

// LatestRun returns the most recent run, or ErrNoRuns.
func (s *SQLiteStore) LatestRun(ctx context.Context) (*Run, error) {
	if s.db == nil {
		return nil, errNotOpen
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRuns
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	return run, nil
}

// ListRuns returns up to limit runs, newest first. limit <= 0 means all.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if s.db == nil {
		return nil, errNotOpen
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RunViolations returns the violations recorded for a run, in recorded order.
func (s *SQLiteStore) RunViolations(ctx context.Context, runID string) ([]core.Violation, error) {
	if s.db == nil {
		return nil, errNotOpen
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT source, target, kind, source_layer, target_layer, reason
		 FROM violations WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query violations: %w", err)
	}
	defer rows.Close()

	var out []core.Violation
	for rows.Next() {
		var v core.Violation
		var reason string
		if err := rows.Scan(&v.Edge.Source, &v.Edge.Target, &v.Edge.Kind,
			&v.SourceLayer, &v.TargetLayer, &reason); err != nil {
			return nil, fmt.Errorf("failed to scan violation: %w", err)
		}
		if err := v.Reason.UnmarshalText([]byte(reason)); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// PruneRuns deletes all but the newest keep runs and returns how many were
// removed.
func (s *SQLiteStore) PruneRuns(ctx context.Context, keep int) (int64, error) {
	if s.db == nil {
		return 0, errNotOpen
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM runs WHERE id NOT IN (
		   SELECT id FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?
		 )`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	return res.RowsAffected()
}

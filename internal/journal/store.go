package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Run statuses.
const (
	StatusSucceeded = "succeeded"
	// StatusDegraded marks a run that completed without upstream results.
	StatusDegraded = "degraded"
	StatusFailed   = "failed"
)

// StageCounts summarizes one stage of a run.
type StageCounts struct {
	Stage           string `json:"stage"`
	Accepted        int    `json:"accepted"`
	Rejected        int    `json:"rejected"`
	Skipped         int    `json:"skipped"`
	Known           int    `json:"known"`
	PersistFailures int    `json:"persist_failures"`
}

// Entry is one recorded run.
type Entry struct {
	RunID         string        `json:"run_id"`
	StartedAt     time.Time     `json:"started_at"`
	FinishedAt    time.Time     `json:"finished_at"`
	Query         string        `json:"query"`
	Status        string        `json:"status"`
	Fetched       int           `json:"fetched"`
	NewCandidates int           `json:"new_candidates"`
	Reconciled    int           `json:"reconciled"`
	Accepted      int           `json:"accepted"`
	GreenTotal    int           `json:"green_total"`
	Error         string        `json:"error,omitempty"`
	Stages        []StageCounts `json:"stages"`
}

// Store manages run history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the journal database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database location.
func (s *Store) Path() string { return s.path }

// Record inserts a run and its stage counts.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	if strings.TrimSpace(entry.RunID) == "" {
		return errors.New("journal: run id is required")
	}
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin record tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO runs (
                run_id, started_at, finished_at, query, status, fetched,
                new_candidates, reconciled, accepted, green_total, error_message
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			entry.RunID,
			formatTime(entry.StartedAt),
			formatTime(entry.FinishedAt),
			nullableString(entry.Query),
			entry.Status,
			entry.Fetched,
			entry.NewCandidates,
			entry.Reconciled,
			entry.Accepted,
			entry.GreenTotal,
			nullableString(entry.Error),
		); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		for i, stage := range entry.Stages {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO stage_results (
                    run_id, position, stage, accepted, rejected, skipped, known, persist_failures
                ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				entry.RunID, i, stage.Stage, stage.Accepted, stage.Rejected,
				stage.Skipped, stage.Known, stage.PersistFailures,
			); err != nil {
				return fmt.Errorf("insert stage result: %w", err)
			}
		}
		return tx.Commit()
	})
}

// List returns the most recent runs first. A non-positive limit returns all runs.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT run_id, started_at, finished_at, query, status, fetched,
        new_candidates, reconciled, accepted, green_total, error_message
        FROM runs ORDER BY started_at DESC, run_id`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	rows.Close()

	for i := range entries {
		stages, err := s.stages(ctx, entries[i].RunID)
		if err != nil {
			return nil, err
		}
		entries[i].Stages = stages
	}
	return entries, nil
}

func (s *Store) stages(ctx context.Context, runID string) ([]StageCounts, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT stage, accepted, rejected, skipped, known, persist_failures
         FROM stage_results WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("list stage results: %w", err)
	}
	defer rows.Close()

	var stages []StageCounts
	for rows.Next() {
		var sc StageCounts
		if err := rows.Scan(&sc.Stage, &sc.Accepted, &sc.Rejected, &sc.Skipped, &sc.Known, &sc.PersistFailures); err != nil {
			return nil, fmt.Errorf("scan stage result: %w", err)
		}
		stages = append(stages, sc)
	}
	return stages, rows.Err()
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (Entry, error) {
	var (
		entry       Entry
		startedRaw  string
		finishedRaw string
		query       sql.NullString
		errorMsg    sql.NullString
	)
	if err := scanner.Scan(
		&entry.RunID,
		&startedRaw,
		&finishedRaw,
		&query,
		&entry.Status,
		&entry.Fetched,
		&entry.NewCandidates,
		&entry.Reconciled,
		&entry.Accepted,
		&entry.GreenTotal,
		&errorMsg,
	); err != nil {
		return Entry{}, err
	}
	entry.Query = query.String
	entry.Error = errorMsg.String
	if t, err := time.Parse(time.RFC3339Nano, startedRaw); err == nil {
		entry.StartedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, finishedRaw); err == nil {
		entry.FinishedAt = t
	}
	return entry, nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// Package storage persists run history and generated weekly summaries
// in a local SQLite database.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"timesheet-automation/model"
	"timesheet-automation/progress"
)

// ErrNotFound is returned when a record is not found.
var ErrNotFound = errors.New("not found")

// Run is one pipeline execution, scheduled or manual.
type Run struct {
	ID         string
	WeekStart  string
	Status     string
	StartedAt  time.Time
	FinishedAt *time.Time
	Error      string
}

// SavedSummary is a generated weekly summary kept for preview and reuse.
type SavedSummary struct {
	Summary     model.WeeklySummary
	GeneratedAt time.Time
	Edited      bool
}

// DB wraps the SQLite database connection and provides storage operations.
type DB struct {
	conn *sql.DB
}

// NewDB creates a new database connection and initializes the schema.
func NewDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		week_start TEXT NOT NULL,
		status TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		error TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_runs_week_start ON runs(week_start);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

	CREATE TABLE IF NOT EXISTS run_logs (
		run_id TEXT NOT NULL REFERENCES runs(id),
		ts DATETIME NOT NULL,
		level TEXT NOT NULL,
		message TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_run_logs_run_id ON run_logs(run_id);

	CREATE TABLE IF NOT EXISTS summaries (
		week_start TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		generated_at DATETIME NOT NULL,
		edited INTEGER NOT NULL DEFAULT 0
	);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// CreateRun records the start of a new run and returns its ID.
func (db *DB) CreateRun(ctx context.Context, weekStart string) (string, error) {
	id := uuid.NewString()
	query := `INSERT INTO runs (id, week_start, status, started_at) VALUES (?, ?, ?, ?)`
	_, err := db.conn.ExecContext(ctx, query, id, weekStart, string(progress.StatusCollecting), time.Now())
	if err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}
	return id, nil
}

// UpdateRunStatus records the run's current pipeline stage.
func (db *DB) UpdateRunStatus(ctx context.Context, runID string, status progress.Status) error {
	query := `UPDATE runs SET status = ? WHERE id = ?`
	_, err := db.conn.ExecContext(ctx, query, string(status), runID)
	return err
}

// FinishRun records the run's final status and, when it failed, the error.
func (db *DB) FinishRun(ctx context.Context, runID string, status progress.Status, runErr error) error {
	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
	}
	query := `UPDATE runs SET status = ?, finished_at = ?, error = ? WHERE id = ?`
	_, err := db.conn.ExecContext(ctx, query, string(status), time.Now(), errMsg, runID)
	return err
}

// AppendLog stores one progress log line for a run.
func (db *DB) AppendLog(ctx context.Context, runID string, entry progress.LogEntry) error {
	query := `INSERT INTO run_logs (run_id, ts, level, message) VALUES (?, ?, ?, ?)`
	_, err := db.conn.ExecContext(ctx, query, runID, entry.Timestamp, string(entry.Level), entry.Message)
	return err
}

// GetRun retrieves a run by ID.
func (db *DB) GetRun(ctx context.Context, runID string) (*Run, error) {
	query := `SELECT id, week_start, status, started_at, finished_at, error FROM runs WHERE id = ?`

	run := &Run{}
	var finishedAt sql.NullTime

	err := db.conn.QueryRowContext(ctx, query, runID).Scan(
		&run.ID,
		&run.WeekStart,
		&run.Status,
		&run.StartedAt,
		&finishedAt,
		&run.Error,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
	SELECT id, week_start, status, started_at, finished_at, error
	FROM runs ORDER BY started_at DESC LIMIT ?
	`

	rows, err := db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var finishedAt sql.NullTime
		if err := rows.Scan(&run.ID, &run.WeekStart, &run.Status, &run.StartedAt, &finishedAt, &run.Error); err != nil {
			return nil, err
		}
		if finishedAt.Valid {
			run.FinishedAt = &finishedAt.Time
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRunLogs returns a run's log lines in insertion order.
func (db *DB) GetRunLogs(ctx context.Context, runID string) ([]progress.LogEntry, error) {
	query := `SELECT ts, level, message FROM run_logs WHERE run_id = ? ORDER BY rowid`

	rows, err := db.conn.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []progress.LogEntry
	for rows.Next() {
		var entry progress.LogEntry
		var level string
		if err := rows.Scan(&entry.Timestamp, &level, &entry.Message); err != nil {
			return nil, err
		}
		entry.Level = progress.Level(level)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// SaveSummary inserts or replaces the summary for its week.
func (db *DB) SaveSummary(ctx context.Context, summary model.WeeklySummary, edited bool) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	query := `
	INSERT INTO summaries (week_start, payload, generated_at, edited)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(week_start) DO UPDATE SET
		payload = excluded.payload,
		generated_at = excluded.generated_at,
		edited = excluded.edited
	`
	_, err = db.conn.ExecContext(ctx, query, summary.WeekStart, string(payload), time.Now(), edited)
	return err
}

// GetSummary retrieves the saved summary for a week.
func (db *DB) GetSummary(ctx context.Context, weekStart string) (*SavedSummary, error) {
	query := `SELECT payload, generated_at, edited FROM summaries WHERE week_start = ?`

	saved := &SavedSummary{}
	var payload string

	err := db.conn.QueryRowContext(ctx, query, weekStart).Scan(&payload, &saved.GeneratedAt, &saved.Edited)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(payload), &saved.Summary); err != nil {
		return nil, fmt.Errorf("unmarshal summary: %w", err)
	}
	return saved, nil
}

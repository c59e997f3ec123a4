package seeder

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dbsmedya/goseed/internal/logger"
)

// RunStatus is the lifecycle state of a logged run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

const createRunTableSQL = `
CREATE TABLE IF NOT EXISTS seed_run (
	run_id CHAR(36) PRIMARY KEY,
	kind VARCHAR(32) NOT NULL,
	run_status VARCHAR(20) NOT NULL DEFAULT 'running',
	reset_requested TINYINT(1) NOT NULL DEFAULT 0,
	created_count INT NOT NULL DEFAULT 0,
	updated_count INT NOT NULL DEFAULT 0,
	warning_count INT NOT NULL DEFAULT 0,
	failure_count INT NOT NULL DEFAULT 0,
	summary JSON NULL,
	error_message TEXT,
	started_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	finished_at TIMESTAMP NULL,
	INDEX idx_kind_started (kind, started_at),
	INDEX idx_status (run_status)
) ENGINE=InnoDB;
`

// RunRecord is one row of the run log.
type RunRecord struct {
	RunID        string
	Kind         string
	Status       RunStatus
	Reset        bool
	Created      int
	Updated      int
	Warnings     int
	Failures     int
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   *time.Time
}

// RunLog persists run history in the seed_run table.
type RunLog struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewRunLog creates a run log on db.
func NewRunLog(db *sql.DB, log *logger.Logger) (*RunLog, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &RunLog{db: db, logger: log}, nil
}

// InitializeTables creates the seed_run table if it does not exist.
func (r *RunLog) InitializeTables(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createRunTableSQL); err != nil {
		return fmt.Errorf("failed to create seed_run table: %w", err)
	}
	r.logger.Debug("Run log table initialized")
	return nil
}

// Start records a new running run and returns its id.
func (r *RunLog) Start(ctx context.Context, kind string, reset bool) (string, error) {
	runID := uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO seed_run (run_id, kind, run_status, reset_requested) VALUES (?, ?, ?, ?)",
		runID, kind, RunStatusRunning, reset,
	)
	if err != nil {
		return "", fmt.Errorf("failed to record run start: %w", err)
	}
	r.logger.Debugf("Run %s (%s) started", runID, kind)
	return runID, nil
}

// Complete marks a run completed and stores its summary.
func (r *RunLog) Complete(ctx context.Context, runID string, summary *RunSummary) error {
	return r.finish(ctx, runID, RunStatusCompleted, summary, "")
}

// Fail marks a run failed. summary may be nil or partial.
func (r *RunLog) Fail(ctx context.Context, runID string, summary *RunSummary, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return r.finish(ctx, runID, RunStatusFailed, summary, msg)
}

func (r *RunLog) finish(ctx context.Context, runID string, status RunStatus, summary *RunSummary, errMsg string) error {
	var (
		created, updated, warnings, failures int
		body                                 any
	)
	if summary != nil {
		created, updated = summary.Totals()
		warnings, failures = len(summary.Warnings), len(summary.Failures)
		raw, err := json.Marshal(summary)
		if err != nil {
			return fmt.Errorf("failed to encode run summary: %w", err)
		}
		body = string(raw)
	}

	_, err := r.db.ExecContext(ctx,
		"UPDATE seed_run SET run_status = ?, created_count = ?, updated_count = ?, warning_count = ?, failure_count = ?, summary = ?, error_message = ?, finished_at = CURRENT_TIMESTAMP WHERE run_id = ?",
		status, created, updated, warnings, failures, body, sql.NullString{String: errMsg, Valid: errMsg != ""}, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to record run %s as %s: %w", runID, status, err)
	}
	if status == RunStatusFailed {
		r.logger.Warnf("Run %s marked failed: %s", runID, errMsg)
	}
	return nil
}

// Recent returns the latest runs, newest first. An empty kind matches all.
func (r *RunLog) Recent(ctx context.Context, kind string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	query := "SELECT run_id, kind, run_status, reset_requested, created_count, updated_count, warning_count, failure_count, error_message, started_at, finished_at FROM seed_run"
	args := []any{}
	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, kind)
	}
	query += " ORDER BY started_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.Warnf("Failed to close rows: %v", err)
		}
	}()

	var out []RunRecord
	for rows.Next() {
		var (
			rec      RunRecord
			errMsg   sql.NullString
			finished sql.NullTime
		)
		if err := rows.Scan(&rec.RunID, &rec.Kind, &rec.Status, &rec.Reset,
			&rec.Created, &rec.Updated, &rec.Warnings, &rec.Failures,
			&errMsg, &rec.StartedAt, &finished); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		rec.ErrorMessage = errMsg.String
		if finished.Valid {
			t := finished.Time
			rec.FinishedAt = &t
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return out, nil
}

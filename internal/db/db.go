// Package db provides PostgreSQL persistence for run history: runs, stage attempts and reports.
package db

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/career-agent/internal/types"
)

//go:embed schema.sql
var schemaSQL string

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// EnsureSchema creates the archive tables if they do not exist
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// CreateRun records the start of a run
func (db *DB) CreateRun(ctx context.Context, runID uuid.UUID, targetRole string, profile *types.ResumeProfile) error {
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO career_runs (id, target_role, profile, status)
		 VALUES ($1, $2, $3, $4)`,
		runID, targetRole, profileJSON, RunStatusRunning,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// SaveAttempt stores one worker invocation and its verdict
func (db *DB) SaveAttempt(ctx context.Context, runID uuid.UUID, attempt types.StageAttempt) error {
	row, err := encodeAttempt(attempt)
	if err != nil {
		return err
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO stage_attempts (run_id, stage, attempt, steps_used, passed, reasons, artifact, error)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (run_id, stage, attempt) DO UPDATE
		 SET steps_used = $4, passed = $5, reasons = $6, artifact = $7, error = $8, created_at = NOW()`,
		runID, string(attempt.Stage), attempt.Attempt, attempt.StepsUsed, attempt.Verdict.Pass,
		row.reasons, row.artifact, row.errorText,
	)
	if err != nil {
		return fmt.Errorf("failed to save %s attempt %d: %w", attempt.Stage, attempt.Attempt, err)
	}
	return nil
}

// CompleteRun stores the final report and status of a run
func (db *DB) CompleteRun(ctx context.Context, runID uuid.UUID, rep *types.Report) error {
	if rep == nil {
		return errors.New("no report to archive")
	}
	reportJSON, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`UPDATE career_runs
		 SET status = $1, abort_reason = $2, total_steps = $3, report = $4, completed_at = NOW()
		 WHERE id = $5`,
		string(rep.Metadata.Status), nullable(rep.Metadata.AbortReason), rep.Metadata.TotalSteps, reportJSON, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	var run Run
	var abortReason *string
	err := db.pool.QueryRow(ctx,
		`SELECT id, target_role, status, abort_reason, total_steps, created_at, completed_at
		 FROM career_runs WHERE id = $1`,
		runID,
	).Scan(&run.ID, &run.TargetRole, &run.Status, &abortReason, &run.TotalSteps, &run.CreatedAt, &run.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	if abortReason != nil {
		run.AbortReason = *abortReason
	}
	return &run, nil
}

// ListRuns retrieves recent runs with optional filters
func (db *DB) ListRuns(ctx context.Context, filters RunFilters) ([]Run, error) {
	if filters.Limit <= 0 {
		filters.Limit = 50
	}

	query := `SELECT id, target_role, status, abort_reason, total_steps, created_at, completed_at
		 FROM career_runs`
	args := []any{}
	if filters.Status != "" {
		query += ` WHERE status = $1`
		args = append(args, filters.Status)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, filters.Limit)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var abortReason *string
		if err := rows.Scan(&run.ID, &run.TargetRole, &run.Status, &abortReason, &run.TotalSteps, &run.CreatedAt, &run.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if abortReason != nil {
			run.AbortReason = *abortReason
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListAttempts retrieves the attempts of a run in execution order
func (db *DB) ListAttempts(ctx context.Context, runID uuid.UUID) ([]Attempt, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT run_id, stage, attempt, steps_used, passed, reasons, error, created_at
		 FROM stage_attempts WHERE run_id = $1 ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var a Attempt
		var stage string
		var reasons []byte
		var errText *string
		if err := rows.Scan(&a.RunID, &stage, &a.Attempt, &a.StepsUsed, &a.Passed, &reasons, &errText, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		a.Stage = types.StageID(stage)
		if len(reasons) > 0 {
			if err := json.Unmarshal(reasons, &a.Reasons); err != nil {
				return nil, fmt.Errorf("failed to decode reasons of %s attempt %d: %w", stage, a.Attempt, err)
			}
		}
		if errText != nil {
			a.Error = *errText
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// GetReport retrieves the archived report of a finished run
func (db *DB) GetReport(ctx context.Context, runID uuid.UUID) (*types.Report, error) {
	var content []byte
	err := db.pool.QueryRow(ctx,
		`SELECT report FROM career_runs WHERE id = $1`,
		runID,
	).Scan(&content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	if len(content) == 0 {
		return nil, nil
	}

	var rep types.Report
	if err := json.Unmarshal(content, &rep); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &rep, nil
}

// attemptRow holds the encoded columns of a stage attempt
type attemptRow struct {
	reasons   []byte
	artifact  []byte
	errorText *string
}

func encodeAttempt(a types.StageAttempt) (attemptRow, error) {
	var row attemptRow

	reasons := a.Verdict.Reasons
	if reasons == nil {
		reasons = []types.Rejection{}
	}
	b, err := json.Marshal(reasons)
	if err != nil {
		return row, fmt.Errorf("failed to marshal reasons: %w", err)
	}
	row.reasons = b

	if a.Artifact != nil {
		if row.artifact, err = json.Marshal(a.Artifact); err != nil {
			return row, fmt.Errorf("failed to marshal %s artifact: %w", a.Stage, err)
		}
	}
	row.errorText = nullable(a.Error)
	return row, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

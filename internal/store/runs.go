package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/huntworks/hunt/internal/errs"
	"github.com/huntworks/hunt/internal/model"
)

type RunRepo struct {
	pool *pgxpool.Pool
}

// Create opens a new running pipeline run row and returns its id.
func (r *RunRepo) Create(ctx context.Context, stage, currentStep string, cascade bool) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO pipeline_runs (id, stage, status, current_step, cascade)
		VALUES ($1, $2, 'running', $3, $4)`,
		id, stage, currentStep, cascade)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create pipeline run: %w", err)
	}
	return id, nil
}

// AppendLog appends one entry to the run's log array and optionally updates
// step and counters in the same statement.
func (r *RunRepo) AppendLog(ctx context.Context, id uuid.UUID, entry model.RunLogEntry, currentStep string, processed, failed *int) error {
	payload, err := json.Marshal([]model.RunLogEntry{entry})
	if err != nil {
		return fmt.Errorf("marshal log entry: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		UPDATE pipeline_runs SET
			logs = logs || $2::jsonb,
			current_step = COALESCE(NULLIF($3, ''), current_step),
			processed = COALESCE($4, processed),
			failed = COALESCE($5, failed)
		WHERE id = $1`,
		id, payload, currentStep, processed, failed)
	if err != nil {
		return fmt.Errorf("append run log: %w", err)
	}
	return nil
}

// UpdateProgress writes step and counters without a log entry.
func (r *RunRepo) UpdateProgress(ctx context.Context, id uuid.UUID, currentStep string, processed, failed int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE pipeline_runs SET current_step = $2, processed = $3, failed = $4 WHERE id = $1`,
		id, currentStep, processed, failed)
	return err
}

// Finish closes a run with a terminal status.
func (r *RunRepo) Finish(ctx context.Context, id uuid.UUID, status, errMsg string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE pipeline_runs SET status = $2, error = NULLIF($3, ''), completed_at = NOW()
		WHERE id = $1 AND status = 'running'`,
		id, status, errMsg)
	if err != nil {
		return fmt.Errorf("finish pipeline run: %w", err)
	}
	return nil
}

// IsCancelled reports whether the run row was flipped to cancelled.
func (r *RunRepo) IsCancelled(ctx context.Context, id uuid.UUID) bool {
	var status string
	if err := r.pool.QueryRow(ctx, `SELECT status FROM pipeline_runs WHERE id = $1`, id).Scan(&status); err != nil {
		return false
	}
	return status == model.RunStatusCancelled
}

// RequestCancel flips a running row to cancelled so workers stop at their
// next checkpoint.
func (r *RunRepo) RequestCancel(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE pipeline_runs SET status = 'cancelled', completed_at = NOW()
		WHERE id = $1 AND status = 'running'`, id)
	if err != nil {
		return false, fmt.Errorf("cancel pipeline run: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ReconcileOrphans fails any running rows left behind by a dead process.
func (r *RunRepo) ReconcileOrphans(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE pipeline_runs SET status = 'failed', error = 'orphaned', completed_at = NOW()
		WHERE status = 'running'`)
	if err != nil {
		return 0, fmt.Errorf("reconcile orphaned runs: %w", err)
	}
	return tag.RowsAffected(), nil
}

const runColumns = `id, stage, status, processed, failed, COALESCE(current_step, ''),
	COALESCE(error, ''), cascade, logs, started_at, completed_at`

func scanRun(row pgx.Row) (*model.PipelineRun, error) {
	var run model.PipelineRun
	var logs []byte
	err := row.Scan(
		&run.ID, &run.Stage, &run.Status, &run.Processed, &run.Failed, &run.CurrentStep,
		&run.Error, &run.Cascade, &logs, &run.StartedAt, &run.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.New(errs.KindNotFound, "pipeline run not found")
		}
		return nil, fmt.Errorf("scan pipeline run: %w", err)
	}
	if len(logs) > 0 {
		if err := json.Unmarshal(logs, &run.Logs); err != nil {
			return nil, fmt.Errorf("decode run logs: %w", err)
		}
	}
	return &run, nil
}

func (r *RunRepo) Get(ctx context.Context, id uuid.UUID) (*model.PipelineRun, error) {
	return scanRun(r.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM pipeline_runs WHERE id = $1`, id))
}

// List returns recent runs, newest first.
func (r *RunRepo) List(ctx context.Context, limit int) ([]*model.PipelineRun, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+runColumns+` FROM pipeline_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pipeline runs: %w", err)
	}
	defer rows.Close()

	var runs []*model.PipelineRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// LatestRunning returns the newest running run, or nil.
func (r *RunRepo) LatestRunning(ctx context.Context) (*model.PipelineRun, error) {
	run, err := scanRun(r.pool.QueryRow(ctx, `
		SELECT `+runColumns+` FROM pipeline_runs WHERE status = 'running' ORDER BY started_at DESC LIMIT 1`))
	if err != nil {
		if errs.Is(err, errs.KindNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return run, nil
}

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/huntworks/hunt/internal/model"
)

type QueueRepo struct {
	pool *pgxpool.Pool
}

const queueColumns = `id, name, COALESCE(domain, ''), COALESCE(careers_url, ''), COALESCE(website_url, ''),
	source, COALESCE(source_url, ''), COALESCE(location, ''), COALESCE(country, ''),
	COALESCE(industry, ''), employee_count, COALESCE(funding_stage, ''),
	COALESCE(ats_type, ''), COALESCE(ats_identifier, ''), status, COALESCE(error_message, ''),
	retry_count, company_id, created_at, processed_at`

func scanQueueItem(row pgx.Row) (*model.QueueItem, error) {
	var it model.QueueItem
	err := row.Scan(
		&it.ID, &it.Name, &it.Domain, &it.CareersURL, &it.WebsiteURL,
		&it.Source, &it.SourceURL, &it.Location, &it.Country,
		&it.Industry, &it.EmployeeCount, &it.FundingStage,
		&it.ATSType, &it.ATSIdentifier, &it.Status, &it.ErrorMessage,
		&it.RetryCount, &it.CompanyID, &it.CreatedAt, &it.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// Enqueue inserts a proposal keyed by the dedupe key. Duplicates merge: newer
// non-empty metadata enriches the existing row. Reports whether a new row was
// created.
func (r *QueueRepo) Enqueue(ctx context.Context, it *model.QueueItem, dedupeKey string) (bool, error) {
	if it.ID == uuid.Nil {
		it.ID = uuid.New()
	}
	var inserted bool
	err := r.pool.QueryRow(ctx, `
		INSERT INTO discovery_queue (id, name, domain, careers_url, website_url, source, source_url,
			location, country, industry, employee_count, funding_stage, ats_type, ats_identifier, dedupe_key)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, NULLIF($7, ''),
			NULLIF($8, ''), NULLIF($9, ''), NULLIF($10, ''), $11, NULLIF($12, ''), NULLIF($13, ''), NULLIF($14, ''), $15)
		ON CONFLICT (dedupe_key) DO UPDATE SET
			careers_url = COALESCE(EXCLUDED.careers_url, discovery_queue.careers_url),
			website_url = COALESCE(EXCLUDED.website_url, discovery_queue.website_url),
			location = COALESCE(EXCLUDED.location, discovery_queue.location),
			country = COALESCE(EXCLUDED.country, discovery_queue.country),
			industry = COALESCE(EXCLUDED.industry, discovery_queue.industry),
			employee_count = COALESCE(EXCLUDED.employee_count, discovery_queue.employee_count),
			funding_stage = COALESCE(EXCLUDED.funding_stage, discovery_queue.funding_stage),
			ats_type = COALESCE(EXCLUDED.ats_type, discovery_queue.ats_type),
			ats_identifier = COALESCE(EXCLUDED.ats_identifier, discovery_queue.ats_identifier)
		RETURNING (xmax = 0)`,
		it.ID, it.Name, it.Domain, it.CareersURL, it.WebsiteURL, it.Source, it.SourceURL,
		it.Location, it.Country, it.Industry, it.EmployeeCount, it.FundingStage,
		it.ATSType, it.ATSIdentifier, dedupeKey,
	).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("enqueue discovery item: %w", err)
	}
	return inserted, nil
}

// ClaimPending atomically moves up to limit pending items to processing and
// returns them. Uses a locked select so concurrent drains never double-claim.
func (r *QueueRepo) ClaimPending(ctx context.Context, limit int) ([]*model.QueueItem, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin claim: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT `+queueColumns+`
		FROM discovery_queue
		WHERE status = 'pending'
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED`, limit)
	if err != nil {
		return nil, fmt.Errorf("select pending: %w", err)
	}

	var items []*model.QueueItem
	for rows.Next() {
		it, err := scanQueueItem(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan queue item: %w", err)
		}
		items = append(items, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
		it.Status = model.QueueStatusProcessing
	}
	if len(ids) > 0 {
		if _, err := tx.Exec(ctx, `
			UPDATE discovery_queue SET status = 'processing' WHERE id = ANY($1)`, ids); err != nil {
			return nil, fmt.Errorf("mark processing: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}
	return items, nil
}

// Finish closes an item with a terminal status.
func (r *QueueRepo) Finish(ctx context.Context, id uuid.UUID, status, errorMessage string, companyID *uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE discovery_queue
		SET status = $2, error_message = NULLIF($3, ''), company_id = $4, processed_at = NOW()
		WHERE id = $1`,
		id, status, errorMessage, companyID)
	return err
}

// Requeue puts a failed item back to pending and bumps the retry counter.
// When the counter reaches the cap the item fails terminally instead.
func (r *QueueRepo) Requeue(ctx context.Context, id uuid.UUID, errorMessage string, retryCap int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE discovery_queue
		SET retry_count = retry_count + 1,
			error_message = $2,
			status = CASE WHEN retry_count + 1 >= $3 THEN 'failed' ELSE 'pending' END,
			processed_at = CASE WHEN retry_count + 1 >= $3 THEN NOW() ELSE processed_at END
		WHERE id = $1`,
		id, errorMessage, retryCap)
	return err
}

// List returns queue items filtered by status.
func (r *QueueRepo) List(ctx context.Context, status string, limit int) ([]*model.QueueItem, error) {
	query := `SELECT ` + queueColumns + ` FROM discovery_queue`
	args := []any{limit}
	if status != "" {
		query += ` WHERE status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}
	defer rows.Close()

	var items []*model.QueueItem
	for rows.Next() {
		it, err := scanQueueItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan queue item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Get fetches one queue item.
func (r *QueueRepo) Get(ctx context.Context, id uuid.UUID) (*model.QueueItem, error) {
	it, err := scanQueueItem(r.pool.QueryRow(ctx, `
		SELECT `+queueColumns+` FROM discovery_queue WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("queue item %s not found", id)
	}
	return it, err
}

// SetStatus moves an item to the given status (review approval/rejection).
func (r *QueueRepo) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx, `UPDATE discovery_queue SET status = $2 WHERE id = $1`, id, status)
	return err
}

// KnownDomains returns domains already queued or attached to companies, used
// by sources to skip known companies before probing.
func (r *QueueRepo) KnownDomains(ctx context.Context) (map[string]bool, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT domain FROM companies WHERE domain IS NOT NULL
		UNION
		SELECT domain FROM discovery_queue WHERE domain IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("query known domains: %w", err)
	}
	defer rows.Close()

	known := make(map[string]bool)
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		known[d] = true
	}
	return known, rows.Err()
}

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

type SnapshotRepo struct {
	pool *pgxpool.Pool
}

// Insert writes an immutable snapshot row.
func (r *SnapshotRepo) Insert(ctx context.Context, s *model.CrawlSnapshot) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO crawl_snapshots (id, company_id, url, html_hash, html_content, status_code, rendered)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.CompanyID, s.URL, s.HTMLHash, s.HTMLContent, s.StatusCode, s.Rendered,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// LatestHash returns the digest of the most recent snapshot for the URL, or
// empty when none exists.
func (r *SnapshotRepo) LatestHash(ctx context.Context, companyID uuid.UUID, url string) (string, error) {
	var hash string
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(html_hash, '')
		FROM crawl_snapshots
		WHERE company_id = $1 AND url = $2
		ORDER BY crawled_at DESC
		LIMIT 1`, companyID, url).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query latest snapshot hash: %w", err)
	}
	return hash, nil
}

// Prune removes snapshots older than the retention window, always keeping the
// most recent snapshot per URL.
func (r *SnapshotRepo) Prune(ctx context.Context, retentionDays int) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM crawl_snapshots s
		WHERE s.crawled_at < NOW() - ($1 || ' days')::interval
		AND s.id NOT IN (
			SELECT DISTINCT ON (company_id, url) id
			FROM crawl_snapshots
			ORDER BY company_id, url, crawled_at DESC
		)`, retentionDays)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountForURL reports how many snapshots exist for a URL.
func (r *SnapshotRepo) CountForURL(ctx context.Context, companyID uuid.UUID, url string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM crawl_snapshots WHERE company_id = $1 AND url = $2`,
		companyID, url).Scan(&n)
	return n, err
}

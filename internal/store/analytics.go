package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type AnalyticsRepo struct {
	pool *pgxpool.Pool
}

// DayCounts is one day of activity counts.
type DayCounts struct {
	Day               time.Time `json:"day"`
	JobsIngested      int       `json:"jobs_ingested"`
	CompaniesAdded    int       `json:"companies_added"`
	MatchesCreated    int       `json:"matches_created"`
	CandidatesUpdated int       `json:"candidates_updated"`
}

// Stats is the aggregate snapshot shown on the admin dashboard.
type Stats struct {
	Companies        int `json:"companies"`
	ActiveCompanies  int `json:"active_companies"`
	Jobs             int `json:"jobs"`
	ActiveJobs       int `json:"active_jobs"`
	EmbeddedJobs     int `json:"embedded_jobs"`
	Candidates       int `json:"candidates"`
	Matches          int `json:"matches"`
	QueuePending     int `json:"queue_pending"`
	QueueReview      int `json:"queue_review"`
	SnapshotsStored  int `json:"snapshots_stored"`
	JobsMissingDescr int `json:"jobs_missing_description"`
}

// Overview collects the aggregate counts in one round trip.
func (r *AnalyticsRepo) Overview(ctx context.Context) (*Stats, error) {
	var s Stats
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM companies),
			(SELECT COUNT(*) FROM companies WHERE is_active),
			(SELECT COUNT(*) FROM jobs),
			(SELECT COUNT(*) FROM jobs WHERE is_active),
			(SELECT COUNT(*) FROM jobs WHERE is_active AND embedding IS NOT NULL),
			(SELECT COUNT(*) FROM candidate_profiles WHERE is_active),
			(SELECT COUNT(*) FROM matches),
			(SELECT COUNT(*) FROM discovery_queue WHERE status = 'pending'),
			(SELECT COUNT(*) FROM discovery_queue WHERE status = 'review'),
			(SELECT COUNT(*) FROM crawl_snapshots),
			(SELECT COUNT(*) FROM jobs WHERE is_active AND (description IS NULL OR description = ''))`,
	).Scan(
		&s.Companies, &s.ActiveCompanies, &s.Jobs, &s.ActiveJobs, &s.EmbeddedJobs,
		&s.Candidates, &s.Matches, &s.QueuePending, &s.QueueReview, &s.SnapshotsStored,
		&s.JobsMissingDescr,
	)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	return &s, nil
}

// TimeSeries returns per-day counts over the trailing window.
func (r *AnalyticsRepo) TimeSeries(ctx context.Context, days int) ([]DayCounts, error) {
	rows, err := r.pool.Query(ctx, `
		WITH series AS (
			SELECT generate_series(
				date_trunc('day', NOW()) - ($1 - 1) * interval '1 day',
				date_trunc('day', NOW()),
				interval '1 day'
			) AS day
		)
		SELECT s.day,
			(SELECT COUNT(*) FROM jobs j WHERE date_trunc('day', j.created_at) = s.day),
			(SELECT COUNT(*) FROM companies c WHERE date_trunc('day', c.created_at) = s.day),
			(SELECT COUNT(*) FROM matches m WHERE date_trunc('day', m.created_at) = s.day),
			(SELECT COUNT(*) FROM candidate_profiles p WHERE date_trunc('day', p.updated_at) = s.day)
		FROM series s
		ORDER BY s.day`, days)
	if err != nil {
		return nil, fmt.Errorf("query time series: %w", err)
	}
	defer rows.Close()

	var out []DayCounts
	for rows.Next() {
		var d DayCounts
		if err := rows.Scan(&d.Day, &d.JobsIngested, &d.CompaniesAdded, &d.MatchesCreated, &d.CandidatesUpdated); err != nil {
			return nil, fmt.Errorf("scan day counts: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

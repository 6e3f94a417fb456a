package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/huntworks/hunt/internal/model"
)

type MatchRepo struct {
	pool *pgxpool.Pool
}

// Upsert writes a match keyed by (candidate_id, job_id). Re-matching
// overwrites score, hard_match, and reasons; engagement timestamps survive.
func (r *MatchRepo) Upsert(ctx context.Context, m *model.Match) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO matches (id, candidate_id, job_id, score, hard_match, match_reasons)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (candidate_id, job_id) DO UPDATE SET
			score = EXCLUDED.score,
			hard_match = EXCLUDED.hard_match,
			match_reasons = EXCLUDED.match_reasons
		RETURNING id`,
		m.ID, m.CandidateID, m.JobID, m.Score, m.HardMatch, m.MatchReasons,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("upsert match: %w", err)
	}
	return nil
}

// ForCandidate returns matches joined with their jobs, highest score first.
func (r *MatchRepo) ForCandidate(ctx context.Context, candidateID uuid.UUID, minScore float64, page, pageSize int) ([]*model.Match, int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM matches m JOIN jobs j ON j.id = m.job_id
		WHERE m.candidate_id = $1 AND m.score >= $2 AND j.is_active AND m.dismissed_at IS NULL`,
		candidateID, minScore).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count matches: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT m.id, m.candidate_id, m.job_id, m.score, m.hard_match, m.match_reasons,
			m.shown_at, m.clicked_at, m.applied_at, m.dismissed_at, m.created_at,
			`+jobColumns+`
		FROM matches m
		JOIN jobs j ON j.id = m.job_id
		JOIN companies c ON c.id = j.company_id
		WHERE m.candidate_id = $1 AND m.score >= $2 AND j.is_active AND m.dismissed_at IS NULL
		ORDER BY m.score DESC
		LIMIT $3 OFFSET $4`,
		candidateID, minScore, pageSize, (page-1)*pageSize,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	var matches []*model.Match
	for rows.Next() {
		var m model.Match
		var j model.Job
		if err := rows.Scan(
			&m.ID, &m.CandidateID, &m.JobID, &m.Score, &m.HardMatch, &m.MatchReasons,
			&m.ShownAt, &m.ClickedAt, &m.AppliedAt, &m.DismissedAt, &m.CreatedAt,
			&j.ID, &j.CompanyID, &j.RawJobID, &j.Title, &j.Description, &j.SourceURL,
			&j.RoleFamily, &j.RoleSpecialization, &j.Seniority,
			&j.LocationType, &j.Locations, &j.Skills, &j.MinSalary, &j.MaxSalary,
			&j.EmploymentType, &j.PostedAt, &j.FreshnessScore, &j.Embedding,
			&j.IsActive, &j.LastVerifiedAt, &j.DelistedAt, &j.DelistReason, &j.EnrichFailedAt,
			&j.CreatedAt, &j.UpdatedAt, &j.CompanyName,
		); err != nil {
			return nil, 0, fmt.Errorf("scan match: %w", err)
		}
		m.Job = &j
		matches = append(matches, &m)
	}
	return matches, total, rows.Err()
}

// RecordClick stamps clicked_at on the (candidate, job) match.
func (r *MatchRepo) RecordClick(ctx context.Context, candidateID, jobID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE matches SET clicked_at = NOW() WHERE candidate_id = $1 AND job_id = $2`,
		candidateID, jobID)
	if err != nil {
		return false, fmt.Errorf("record click: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// FreshForDigest returns the matches among the candidate's top limit matches
// at or above minScore (highest score first) that no digest has marked shown.
// Unshown matches ranked below those top limit matches are not returned.
func (r *MatchRepo) FreshForDigest(ctx context.Context, candidateID uuid.UUID, minScore float64, limit int) ([]*model.Match, error) {
	matches, _, err := r.ForCandidate(ctx, candidateID, minScore, 1, limit)
	if err != nil {
		return nil, err
	}
	fresh := matches[:0]
	for _, m := range matches {
		if m.ShownAt == nil {
			fresh = append(fresh, m)
		}
	}
	return fresh, nil
}

// MarkShown stamps shown_at on the given matches.
func (r *MatchRepo) MarkShown(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, `UPDATE matches SET shown_at = NOW() WHERE id = ANY($1) AND shown_at IS NULL`, ids)
	return err
}

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/huntworks/hunt/internal/errs"
	"github.com/huntworks/hunt/internal/model"
)

type CandidateRepo struct {
	pool *pgxpool.Pool
}

const candidateColumns = `id, email, COALESCE(name, ''), role_families, COALESCE(seniority, ''),
	min_salary, locations, location_types, role_types, skills, exclusions,
	COALESCE(profile_text, ''), embedding, last_matched_at, last_notified_at, is_active,
	created_at, updated_at`

func scanCandidate(row pgx.Row) (*model.CandidateProfile, error) {
	var c model.CandidateProfile
	var embedding *pgvector.Vector
	err := row.Scan(
		&c.ID, &c.Email, &c.Name, &c.RoleFamilies, &c.Seniority,
		&c.MinSalary, &c.Locations, &c.LocationTypes, &c.RoleTypes, &c.Skills, &c.Exclusions,
		&c.ProfileText, &embedding, &c.LastMatchedAt, &c.LastNotifiedAt, &c.IsActive,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.New(errs.KindNotFound, "candidate not found")
		}
		return nil, fmt.Errorf("scan candidate: %w", err)
	}
	c.Embedding = embedding
	return &c, nil
}

func (r *CandidateRepo) Get(ctx context.Context, id uuid.UUID) (*model.CandidateProfile, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+candidateColumns+` FROM candidate_profiles WHERE id = $1`, id)
	return scanCandidate(row)
}

// UpsertFromWaitlist creates or refreshes a profile keyed by email.
func (r *CandidateRepo) UpsertFromWaitlist(ctx context.Context, c *model.CandidateProfile) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO candidate_profiles (id, email, name, role_families, seniority, min_salary,
			locations, location_types, role_types, skills, exclusions, profile_text, is_active)
		VALUES ($1, $2, NULLIF($3, ''), $4, NULLIF($5, ''), $6, $7, $8, $9, $10, $11, NULLIF($12, ''), TRUE)
		ON CONFLICT (email) DO UPDATE SET
			name = COALESCE(EXCLUDED.name, candidate_profiles.name),
			role_families = EXCLUDED.role_families,
			seniority = EXCLUDED.seniority,
			min_salary = EXCLUDED.min_salary,
			locations = EXCLUDED.locations,
			location_types = EXCLUDED.location_types,
			role_types = EXCLUDED.role_types,
			skills = EXCLUDED.skills,
			exclusions = EXCLUDED.exclusions,
			profile_text = COALESCE(EXCLUDED.profile_text, candidate_profiles.profile_text),
			is_active = TRUE,
			updated_at = NOW()
		RETURNING id`,
		c.ID, c.Email, c.Name, c.RoleFamilies, c.Seniority, c.MinSalary,
		c.Locations, c.LocationTypes, c.RoleTypes, c.Skills, c.Exclusions, c.ProfileText,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("upsert candidate: %w", err)
	}
	return nil
}

// Update writes every profile field from c; callers merge partial changes
// into the loaded profile first. The embedding is cleared so the embedder
// regenerates it from the changed text.
func (r *CandidateRepo) Update(ctx context.Context, c *model.CandidateProfile) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE candidate_profiles SET
			name = NULLIF($2, ''),
			role_families = $3,
			seniority = NULLIF($4, ''),
			min_salary = $5,
			locations = $6,
			location_types = $7,
			role_types = $8,
			skills = $9,
			exclusions = $10,
			profile_text = NULLIF($11, ''),
			embedding = NULL,
			updated_at = NOW()
		WHERE id = $1`,
		c.ID, c.Name, c.RoleFamilies, c.Seniority, c.MinSalary,
		c.Locations, c.LocationTypes, c.RoleTypes, c.Skills, c.Exclusions, c.ProfileText,
	)
	if err != nil {
		return fmt.Errorf("update candidate: %w", err)
	}
	return nil
}

// WithoutEmbedding returns active candidates missing a vector.
func (r *CandidateRepo) WithoutEmbedding(ctx context.Context, limit int) ([]*model.CandidateProfile, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+candidateColumns+` FROM candidate_profiles
		WHERE is_active AND embedding IS NULL
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query unembedded candidates: %w", err)
	}
	defer rows.Close()

	var candidates []*model.CandidateProfile
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// Active returns all active candidates.
func (r *CandidateRepo) Active(ctx context.Context) ([]*model.CandidateProfile, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+candidateColumns+` FROM candidate_profiles WHERE is_active`)
	if err != nil {
		return nil, fmt.Errorf("query active candidates: %w", err)
	}
	defer rows.Close()

	var candidates []*model.CandidateProfile
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// SetEmbedding persists a candidate vector.
func (r *CandidateRepo) SetEmbedding(ctx context.Context, id uuid.UUID, embedding pgvector.Vector) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE candidate_profiles SET embedding = $2, updated_at = NOW() WHERE id = $1`, id, embedding)
	return err
}

// TouchMatched stamps last_matched_at.
func (r *CandidateRepo) TouchMatched(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE candidate_profiles SET last_matched_at = NOW() WHERE id = $1`, id)
	return err
}

// TouchNotified stamps last_notified_at.
func (r *CandidateRepo) TouchNotified(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE candidate_profiles SET last_notified_at = NOW() WHERE id = $1`, id)
	return err
}

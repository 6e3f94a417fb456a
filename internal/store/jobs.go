package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/huntworks/hunt/internal/errs"
	"github.com/huntworks/hunt/internal/model"
)

type JobRepo struct {
	pool *pgxpool.Pool
}

// UpsertRaw writes a raw job keyed by (company_id, source_url), overwriting
// observed fields while preserving the raw id.
func (r *JobRepo) UpsertRaw(ctx context.Context, raw *model.RawJob) error {
	if raw.ID == uuid.Nil {
		raw.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO jobs_raw (id, company_id, source_url, title_raw, description_raw, location_raw,
			department_raw, employment_type_raw, posted_at_raw, salary_raw, extracted_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''),
			NULLIF($8, ''), NULLIF($9, ''), NULLIF($10, ''), NOW())
		ON CONFLICT (company_id, source_url) DO UPDATE SET
			title_raw = EXCLUDED.title_raw,
			description_raw = EXCLUDED.description_raw,
			location_raw = EXCLUDED.location_raw,
			department_raw = EXCLUDED.department_raw,
			employment_type_raw = EXCLUDED.employment_type_raw,
			posted_at_raw = EXCLUDED.posted_at_raw,
			salary_raw = EXCLUDED.salary_raw,
			extracted_at = NOW()
		RETURNING id`,
		raw.ID, raw.CompanyID, raw.SourceURL, raw.TitleRaw, raw.DescriptionRaw, raw.LocationRaw,
		raw.DepartmentRaw, raw.EmploymentTypeRaw, raw.PostedAtRaw, raw.SalaryRaw,
	).Scan(&raw.ID)
	if err != nil {
		return fmt.Errorf("upsert raw job: %w", err)
	}
	return nil
}

// RawForCompany returns all raw jobs for the company.
func (r *JobRepo) RawForCompany(ctx context.Context, companyID uuid.UUID) ([]*model.RawJob, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, company_id, source_url, COALESCE(title_raw, ''), COALESCE(description_raw, ''),
			COALESCE(location_raw, ''), COALESCE(department_raw, ''), COALESCE(employment_type_raw, ''),
			COALESCE(posted_at_raw, ''), COALESCE(salary_raw, ''), extracted_at
		FROM jobs_raw WHERE company_id = $1`, companyID)
	if err != nil {
		return nil, fmt.Errorf("query raw jobs: %w", err)
	}
	defer rows.Close()

	var raws []*model.RawJob
	for rows.Next() {
		var raw model.RawJob
		if err := rows.Scan(
			&raw.ID, &raw.CompanyID, &raw.SourceURL, &raw.TitleRaw, &raw.DescriptionRaw,
			&raw.LocationRaw, &raw.DepartmentRaw, &raw.EmploymentTypeRaw,
			&raw.PostedAtRaw, &raw.SalaryRaw, &raw.ExtractedAt,
		); err != nil {
			return nil, fmt.Errorf("scan raw job: %w", err)
		}
		raws = append(raws, &raw)
	}
	return raws, rows.Err()
}

const jobColumns = `j.id, j.company_id, j.raw_job_id, j.title, COALESCE(j.description, ''), j.source_url,
	j.role_family, COALESCE(j.role_specialization, ''), COALESCE(j.seniority, ''),
	COALESCE(j.location_type, ''), j.locations, j.skills, j.min_salary, j.max_salary,
	COALESCE(j.employment_type, ''), j.posted_at, COALESCE(j.freshness_score, 0.5), j.embedding,
	j.is_active, j.last_verified_at, j.delisted_at, COALESCE(j.delist_reason, ''), j.enrich_failed_at,
	j.created_at, j.updated_at, c.name`

func scanJob(row pgx.Row) (*model.Job, error) {
	var j model.Job
	var embedding *pgvector.Vector
	err := row.Scan(
		&j.ID, &j.CompanyID, &j.RawJobID, &j.Title, &j.Description, &j.SourceURL,
		&j.RoleFamily, &j.RoleSpecialization, &j.Seniority,
		&j.LocationType, &j.Locations, &j.Skills, &j.MinSalary, &j.MaxSalary,
		&j.EmploymentType, &j.PostedAt, &j.FreshnessScore, &embedding,
		&j.IsActive, &j.LastVerifiedAt, &j.DelistedAt, &j.DelistReason, &j.EnrichFailedAt,
		&j.CreatedAt, &j.UpdatedAt, &j.CompanyName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.New(errs.KindNotFound, "job not found")
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}
	j.Embedding = embedding
	return &j, nil
}

func (r *JobRepo) Get(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+jobColumns+` FROM jobs j JOIN companies c ON c.id = j.company_id WHERE j.id = $1`, id)
	return scanJob(row)
}

// Upsert writes a canonical job keyed by (company_id, source_url).
// The embedding is left untouched on update; the embedder owns it.
func (r *JobRepo) Upsert(ctx context.Context, j *model.Job) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO jobs (id, company_id, raw_job_id, title, description, source_url, role_family,
			role_specialization, seniority, location_type, locations, skills, min_salary, max_salary,
			employment_type, posted_at, freshness_score, is_active)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, NULLIF($8, ''), NULLIF($9, ''), NULLIF($10, ''),
			$11, $12, $13, $14, NULLIF($15, ''), $16, $17, TRUE)
		ON CONFLICT (company_id, source_url) DO UPDATE SET
			raw_job_id = EXCLUDED.raw_job_id,
			title = EXCLUDED.title,
			description = COALESCE(EXCLUDED.description, jobs.description),
			role_family = EXCLUDED.role_family,
			role_specialization = EXCLUDED.role_specialization,
			seniority = EXCLUDED.seniority,
			location_type = EXCLUDED.location_type,
			locations = EXCLUDED.locations,
			skills = EXCLUDED.skills,
			min_salary = EXCLUDED.min_salary,
			max_salary = EXCLUDED.max_salary,
			employment_type = EXCLUDED.employment_type,
			posted_at = EXCLUDED.posted_at,
			freshness_score = EXCLUDED.freshness_score,
			is_active = TRUE,
			delisted_at = NULL,
			delist_reason = NULL,
			updated_at = NOW()
		RETURNING id`,
		j.ID, j.CompanyID, j.RawJobID, j.Title, j.Description, j.SourceURL, j.RoleFamily,
		j.RoleSpecialization, j.Seniority, j.LocationType, j.Locations, j.Skills,
		j.MinSalary, j.MaxSalary, j.EmploymentType, j.PostedAt, j.FreshnessScore,
	).Scan(&j.ID)
	if err != nil {
		return fmt.Errorf("upsert job: %w", err)
	}
	return nil
}

// List returns canonical jobs for the public surface with optional filters.
func (r *JobRepo) List(ctx context.Context, roleFamily, seniority, locationType string, page, pageSize int) ([]*model.Job, int, error) {
	where := `WHERE j.is_active`
	args := []any{}
	n := 0
	add := func(clause string, val any) {
		n++
		where += fmt.Sprintf(" AND %s = $%d", clause, n)
		args = append(args, val)
	}
	if roleFamily != "" {
		add("j.role_family", roleFamily)
	}
	if seniority != "" {
		add("j.seniority", seniority)
	}
	if locationType != "" {
		add("j.location_type", locationType)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM jobs j `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM jobs j JOIN companies c ON c.id = j.company_id %s
		ORDER BY j.freshness_score DESC NULLS LAST, j.created_at DESC
		LIMIT %d OFFSET %d`, jobColumns, where, pageSize, (page-1)*pageSize)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs, err := collectJobs(rows)
	return jobs, total, err
}

// SimilarActive returns active embedded jobs ranked by cosine similarity to
// the candidate vector, keeping those at or above minSimilarity.
func (r *JobRepo) SimilarActive(ctx context.Context, embedding pgvector.Vector, minSimilarity float64, limit int) ([]*model.Job, []float64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+jobColumns+`, 1 - (j.embedding <=> $1) AS similarity
		FROM jobs j
		JOIN companies c ON c.id = j.company_id
		WHERE j.is_active AND j.embedding IS NOT NULL
		AND 1 - (j.embedding <=> $1) >= $2
		ORDER BY j.embedding <=> $1
		LIMIT $3`,
		embedding, minSimilarity, limit,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("similarity query: %w", err)
	}
	defer rows.Close()

	var jobs []*model.Job
	var sims []float64
	for rows.Next() {
		var j model.Job
		var emb *pgvector.Vector
		var sim float64
		if err := rows.Scan(
			&j.ID, &j.CompanyID, &j.RawJobID, &j.Title, &j.Description, &j.SourceURL,
			&j.RoleFamily, &j.RoleSpecialization, &j.Seniority,
			&j.LocationType, &j.Locations, &j.Skills, &j.MinSalary, &j.MaxSalary,
			&j.EmploymentType, &j.PostedAt, &j.FreshnessScore, &emb,
			&j.IsActive, &j.LastVerifiedAt, &j.DelistedAt, &j.DelistReason, &j.EnrichFailedAt,
			&j.CreatedAt, &j.UpdatedAt, &j.CompanyName, &sim,
		); err != nil {
			return nil, nil, fmt.Errorf("scan similar job: %w", err)
		}
		j.Embedding = emb
		jobs = append(jobs, &j)
		sims = append(sims, sim)
	}
	return jobs, sims, rows.Err()
}

// CountActive counts the active catalog.
func (r *JobRepo) CountActive(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM jobs WHERE is_active`).Scan(&n)
	return n, err
}

// WithoutEmbedding returns active jobs missing a vector.
func (r *JobRepo) WithoutEmbedding(ctx context.Context, limit int) ([]*model.Job, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+jobColumns+` FROM jobs j JOIN companies c ON c.id = j.company_id
		WHERE j.is_active AND j.embedding IS NULL
		ORDER BY j.created_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query unembedded jobs: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// SetEmbedding persists a job vector.
func (r *JobRepo) SetEmbedding(ctx context.Context, id uuid.UUID, embedding pgvector.Vector) error {
	_, err := r.pool.Exec(ctx, `UPDATE jobs SET embedding = $2, updated_at = NOW() WHERE id = $1`, id, embedding)
	return err
}

// NeedingEnrichment returns active jobs without a description whose last
// enrichment failure, if any, predates runStart.
func (r *JobRepo) NeedingEnrichment(ctx context.Context, atsType string, runStart time.Time, limit int) ([]*model.Job, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+jobColumns+`
		FROM jobs j
		JOIN companies c ON c.id = j.company_id
		WHERE j.is_active AND (j.description IS NULL OR j.description = '')
		AND c.ats_type = $1
		AND (j.enrich_failed_at IS NULL OR j.enrich_failed_at < $2)
		ORDER BY j.created_at
		LIMIT $3`, atsType, runStart, limit)
	if err != nil {
		return nil, fmt.Errorf("query jobs needing enrichment: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// SetDescription backfills the enriched description and posted date.
func (r *JobRepo) SetDescription(ctx context.Context, id uuid.UUID, description string, postedAt *time.Time, freshness float64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE jobs SET description = $2, posted_at = COALESCE($3, posted_at),
			freshness_score = $4, enrich_failed_at = NULL, updated_at = NOW()
		WHERE id = $1`, id, description, postedAt, freshness)
	return err
}

// MarkEnrichFailed stamps the enrichment failure time.
func (r *JobRepo) MarkEnrichFailed(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE jobs SET enrich_failed_at = NOW() WHERE id = $1`, id)
	return err
}

// ActiveForCompany returns the active canonical jobs of one company.
func (r *JobRepo) ActiveForCompany(ctx context.Context, companyID uuid.UUID) ([]*model.Job, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+jobColumns+` FROM jobs j JOIN companies c ON c.id = j.company_id
		WHERE j.company_id = $1 AND j.is_active`, companyID)
	if err != nil {
		return nil, fmt.Errorf("query company jobs: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// Verify stamps last_verified_at on the listed jobs.
func (r *JobRepo) Verify(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, `UPDATE jobs SET last_verified_at = NOW() WHERE id = ANY($1)`, ids)
	return err
}

// Delist deactivates the listed jobs with a reason.
func (r *JobRepo) Delist(ctx context.Context, ids []uuid.UUID, reason string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE jobs SET is_active = FALSE, delisted_at = NOW(), delist_reason = $2, updated_at = NOW()
		WHERE id = ANY($1)`, ids, reason)
	return err
}

// DelistCompany deactivates every active job of a company.
func (r *JobRepo) DelistCompany(ctx context.Context, companyID uuid.UUID, reason string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE jobs SET is_active = FALSE, delisted_at = NOW(), delist_reason = $2, updated_at = NOW()
		WHERE company_id = $1 AND is_active`, companyID, reason)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func collectJobs(rows pgx.Rows) ([]*model.Job, error) {
	var jobs []*model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

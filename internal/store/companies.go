package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/huntworks/hunt/internal/errs"
	"github.com/huntworks/hunt/internal/model"
)

type CompanyRepo struct {
	pool *pgxpool.Pool
}

const companyColumns = `id, name, COALESCE(domain, ''), COALESCE(careers_url, ''), COALESCE(website_url, ''),
	COALESCE(ats_type, ''), COALESCE(ats_identifier, ''), crawl_priority, is_active,
	last_crawled_at, last_maintenance_at, crawl_attempts, not_found_streak,
	COALESCE(discovery_source, ''), discovered_at, COALESCE(country, ''), COALESCE(location, ''),
	COALESCE(industry, ''), employee_count, COALESCE(funding_stage, ''), created_at`

func scanCompany(row pgx.Row) (*model.Company, error) {
	var c model.Company
	err := row.Scan(
		&c.ID, &c.Name, &c.Domain, &c.CareersURL, &c.WebsiteURL,
		&c.ATSType, &c.ATSIdentifier, &c.CrawlPriority, &c.IsActive,
		&c.LastCrawledAt, &c.LastMaintenanceAt, &c.CrawlAttempts, &c.NotFoundStreak,
		&c.DiscoverySource, &c.DiscoveredAt, &c.Country, &c.Location,
		&c.Industry, &c.EmployeeCount, &c.FundingStage, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.New(errs.KindNotFound, "company not found")
		}
		return nil, fmt.Errorf("scan company: %w", err)
	}
	return &c, nil
}

func (r *CompanyRepo) Get(ctx context.Context, id uuid.UUID) (*model.Company, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = $1`, id)
	return scanCompany(row)
}

func (r *CompanyRepo) GetByDomain(ctx context.Context, domain string) (*model.Company, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE domain = $1`, domain)
	return scanCompany(row)
}

// Create inserts a company; a domain collision returns a duplicate error.
func (r *CompanyRepo) Create(ctx context.Context, c *model.Company) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO companies (id, name, domain, careers_url, website_url, ats_type, ats_identifier,
			crawl_priority, is_active, discovery_source, discovered_at, country, location, industry,
			employee_count, funding_stage)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''),
			$8, $9, NULLIF($10, ''), $11, NULLIF($12, ''), NULLIF($13, ''), NULLIF($14, ''), $15, NULLIF($16, ''))
		ON CONFLICT (domain) DO NOTHING`,
		c.ID, c.Name, c.Domain, c.CareersURL, c.WebsiteURL, c.ATSType, c.ATSIdentifier,
		c.CrawlPriority, c.IsActive, c.DiscoverySource, c.DiscoveredAt, c.Country, c.Location,
		c.Industry, c.EmployeeCount, c.FundingStage,
	)
	if err != nil {
		return fmt.Errorf("insert company: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.New(errs.KindConflict, "company with domain "+c.Domain+" already exists")
	}
	return nil
}

// SetATS writes the ATS type and identifier and, when careersURL is not
// empty, the careers URL. Callers pass a detector verdict.
func (r *CompanyRepo) SetATS(ctx context.Context, id uuid.UUID, atsType, atsIdentifier, careersURL string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE companies
		SET ats_type = NULLIF($2, ''), ats_identifier = NULLIF($3, ''), careers_url = COALESCE(NULLIF($4, ''), careers_url)
		WHERE id = $1`,
		id, atsType, atsIdentifier, careersURL,
	)
	if err != nil {
		return fmt.Errorf("update company ats: %w", err)
	}
	return nil
}

// TouchCrawled advances last_crawled_at and the attempt counter.
func (r *CompanyRepo) TouchCrawled(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE companies SET last_crawled_at = NOW(), crawl_attempts = crawl_attempts + 1 WHERE id = $1`, id)
	return err
}

// RecordNotFound tracks consecutive not_found crawls; two in a row deactivate
// the company. Reports whether the company was deactivated.
func (r *CompanyRepo) RecordNotFound(ctx context.Context, id uuid.UUID) (bool, error) {
	var streak int
	err := r.pool.QueryRow(ctx, `
		UPDATE companies SET not_found_streak = not_found_streak + 1 WHERE id = $1
		RETURNING not_found_streak`, id).Scan(&streak)
	if err != nil {
		return false, fmt.Errorf("record not_found: %w", err)
	}
	if streak < 2 {
		return false, nil
	}
	_, err = r.pool.Exec(ctx, `UPDATE companies SET is_active = FALSE WHERE id = $1`, id)
	return true, err
}

// ResetNotFound clears the streak after a successful crawl.
func (r *CompanyRepo) ResetNotFound(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE companies SET not_found_streak = 0 WHERE id = $1`, id)
	return err
}

// TouchMaintained advances last_maintenance_at.
func (r *CompanyRepo) TouchMaintained(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE companies SET last_maintenance_at = NOW() WHERE id = $1`, id)
	return err
}

// DueForCrawl returns active companies not crawled within the interval,
// oldest first, optionally filtered by ATS type.
func (r *CompanyRepo) DueForCrawl(ctx context.Context, atsType string, interval time.Duration, limit int) ([]*model.Company, error) {
	query := `SELECT ` + companyColumns + `
		FROM companies
		WHERE is_active AND ats_type IS NOT NULL
		AND (last_crawled_at IS NULL OR last_crawled_at < NOW() - $1::interval)`
	args := []any{fmt.Sprintf("%d seconds", int(interval.Seconds()))}
	if atsType != "" {
		query += ` AND ats_type = $2`
		args = append(args, atsType)
	}
	query += fmt.Sprintf(` ORDER BY last_crawled_at NULLS FIRST, crawl_priority DESC LIMIT %d`, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query due companies: %w", err)
	}
	defer rows.Close()

	return collectCompanies(rows)
}

// DueForMaintenance returns active companies not verified within the window.
func (r *CompanyRepo) DueForMaintenance(ctx context.Context, window time.Duration, limit int) ([]*model.Company, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+companyColumns+`
		FROM companies
		WHERE is_active AND careers_url IS NOT NULL
		AND (last_maintenance_at IS NULL OR last_maintenance_at < NOW() - $1::interval)
		ORDER BY last_maintenance_at NULLS FIRST
		LIMIT $2`,
		fmt.Sprintf("%d seconds", int(window.Seconds())), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query maintenance companies: %w", err)
	}
	defer rows.Close()

	return collectCompanies(rows)
}

// List returns companies for the admin surface.
func (r *CompanyRepo) List(ctx context.Context, limit, offset int) ([]*model.Company, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM companies`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+companyColumns+` FROM companies ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	companies, err := collectCompanies(rows)
	return companies, total, err
}

// UndetectedATS returns companies whose ATS is still unknown.
func (r *CompanyRepo) UndetectedATS(ctx context.Context, limit int) ([]*model.Company, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+companyColumns+`
		FROM companies
		WHERE is_active AND (ats_type IS NULL OR ats_type = 'unknown')
		ORDER BY created_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query undetected companies: %w", err)
	}
	defer rows.Close()

	return collectCompanies(rows)
}

func collectCompanies(rows pgx.Rows) ([]*model.Company, error) {
	var companies []*model.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

// Package maintain re-verifies active listings and delists jobs that vanished
// from their source.
package maintain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/huntworks/hunt/internal/errs"
	"github.com/huntworks/hunt/internal/extract"
	"github.com/huntworks/hunt/internal/model"
	"github.com/huntworks/hunt/internal/store"
)

const snapshotRetentionDays = 90

// Stats summarizes one maintenance run.
type Stats struct {
	CompaniesChecked     int `json:"companies_checked"`
	JobsVerified         int `json:"jobs_verified"`
	JobsDelisted         int `json:"jobs_delisted"`
	CompaniesDeactivated int `json:"companies_deactivated"`
	Errors               int `json:"errors"`
}

// Service runs periodic catalog verification.
type Service struct {
	st         *store.Store
	extractors *extract.Registry
	window     time.Duration
	logger     *zap.Logger
}

func New(st *store.Store, extractors *extract.Registry, verifyRefreshDays int, logger *zap.Logger) *Service {
	return &Service{
		st:         st,
		extractors: extractors,
		window:     time.Duration(verifyRefreshDays) * 24 * time.Hour,
		logger:     logger,
	}
}

// Run verifies every company due within the refresh window, up to limit.
func (s *Service) Run(ctx context.Context, limit int) (*Stats, error) {
	companies, err := s.st.Companies.DueForMaintenance(ctx, s.window, limit)
	if err != nil {
		return nil, err
	}

	stats := &Stats{}
	for _, company := range companies {
		if err := ctx.Err(); err != nil {
			return stats, errs.Wrap(errs.KindCancelled, "maintenance", err)
		}

		if err := s.verifyCompany(ctx, company, stats); err != nil {
			stats.Errors++
			s.logger.Warn("maintenance failed for company",
				zap.String("company", company.Name),
				zap.Error(err),
			)
		}
		stats.CompaniesChecked++
	}

	// Old snapshots go with the same cadence; the newest per URL survives.
	if pruned, err := s.st.Snapshots.Prune(ctx, snapshotRetentionDays); err != nil {
		s.logger.Warn("snapshot prune failed", zap.Error(err))
	} else if pruned > 0 {
		s.logger.Info("pruned old snapshots", zap.Int64("pruned", pruned))
	}

	s.logger.Info("maintenance run complete",
		zap.Int("companies_checked", stats.CompaniesChecked),
		zap.Int("jobs_verified", stats.JobsVerified),
		zap.Int("jobs_delisted", stats.JobsDelisted),
		zap.Int("companies_deactivated", stats.CompaniesDeactivated),
	)

	return stats, nil
}

func (s *Service) verifyCompany(ctx context.Context, company *model.Company, stats *Stats) error {
	extractor, ok := s.extractors.For(company.ATSType)
	if !ok {
		return nil
	}

	raws, err := extractor.List(ctx, company)
	if err != nil {
		if errs.Is(err, errs.KindNotFound) {
			return s.handleNotFound(ctx, company, stats)
		}
		return err
	}
	if err := s.st.Companies.ResetNotFound(ctx, company.ID); err != nil {
		return err
	}

	listed := make(map[string]bool, len(raws))
	for _, raw := range raws {
		listed[raw.SourceURL] = true
	}

	active, err := s.st.Jobs.ActiveForCompany(ctx, company.ID)
	if err != nil {
		return err
	}

	var verified, removed []uuid.UUID
	for _, job := range active {
		if listed[job.SourceURL] {
			verified = append(verified, job.ID)
		} else {
			removed = append(removed, job.ID)
		}
	}

	if err := s.st.Jobs.Verify(ctx, verified); err != nil {
		return err
	}
	if err := s.st.Jobs.Delist(ctx, removed, model.DelistRemovedFromATS); err != nil {
		return err
	}
	if err := s.st.Companies.TouchMaintained(ctx, company.ID); err != nil {
		return err
	}

	stats.JobsVerified += len(verified)
	stats.JobsDelisted += len(removed)

	if len(removed) > 0 {
		s.logger.Info("delisted removed jobs",
			zap.String("company", company.Name),
			zap.Int("delisted", len(removed)),
		)
	}

	return nil
}

// handleNotFound tracks consecutive 404s: the first delists the company's
// jobs as page_not_found, the second deactivates the company.
func (s *Service) handleNotFound(ctx context.Context, company *model.Company, stats *Stats) error {
	deactivated, err := s.st.Companies.RecordNotFound(ctx, company.ID)
	if err != nil {
		return err
	}

	reason := model.DelistPageNotFound
	if deactivated {
		reason = model.DelistCompanyInactive
		stats.CompaniesDeactivated++
		s.logger.Warn("deactivating company after repeated not_found",
			zap.String("company", company.Name),
		)
	}

	delisted, err := s.st.Jobs.DelistCompany(ctx, company.ID, reason)
	if err != nil {
		return err
	}
	stats.JobsDelisted += int(delisted)

	return s.st.Companies.TouchMaintained(ctx, company.ID)
}

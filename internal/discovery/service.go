package discovery

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/huntworks/hunt/internal/ats"
	"github.com/huntworks/hunt/internal/config"
	"github.com/huntworks/hunt/internal/model"
	"github.com/huntworks/hunt/internal/store"
)

// IntakeStats summarizes one discovery run.
type IntakeStats struct {
	SourcesRun int `json:"sources_run"`
	Discovered int `json:"discovered"`
	Enqueued   int `json:"enqueued"`
	Merged     int `json:"merged"`
}

// ProcessStats summarizes one queue drain.
type ProcessStats struct {
	Processed int `json:"processed"`
	Completed int `json:"completed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	Review    int `json:"review"`
}

// Service runs discovery sources and drains the queue into companies.
type Service struct {
	st       *store.Store
	registry *Registry
	detector *ats.Detector
	cfg      *config.DiscoveryConfig
	logger   *zap.Logger
}

func NewService(st *store.Store, registry *Registry, detector *ats.Detector, cfg *config.DiscoveryConfig, logger *zap.Logger) *Service {
	return &Service{st: st, registry: registry, detector: detector, cfg: cfg, logger: logger}
}

// Sources exposes the registry for the admin surface.
func (s *Service) Sources() *Registry { return s.registry }

// Run pulls from the enabled sources (optionally filtered by name) and stages
// candidates into the queue, merging duplicates.
func (s *Service) Run(ctx context.Context, sourceNames []string) (*IntakeStats, error) {
	known, err := s.st.Queue.KnownDomains(ctx)
	if err != nil {
		return nil, err
	}

	stats := &IntakeStats{}
	for _, source := range s.registry.Enabled(sourceNames) {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		candidates, err := source.Produce(ctx, s.cfg.Limit, known)
		if err != nil {
			s.logger.Warn("discovery source failed",
				zap.String("source", source.Name()),
				zap.Error(err),
			)
			continue
		}
		stats.SourcesRun++
		stats.Discovered += len(candidates)

		for _, candidate := range candidates {
			if strings.TrimSpace(candidate.Name) == "" {
				continue
			}
			item := candidate.queueItem()
			inserted, err := s.st.Queue.Enqueue(ctx, item, DedupeKey(candidate))
			if err != nil {
				s.logger.Warn("enqueue failed", zap.String("name", candidate.Name), zap.Error(err))
				continue
			}
			if inserted {
				stats.Enqueued++
				if item.Domain != "" {
					known[item.Domain] = true
				}
			} else {
				stats.Merged++
			}
		}
	}

	s.logger.Info("discovery run complete",
		zap.Int("sources_run", stats.SourcesRun),
		zap.Int("discovered", stats.Discovered),
		zap.Int("enqueued", stats.Enqueued),
		zap.Int("merged", stats.Merged),
	)

	return stats, nil
}

// ProcessQueue claims pending items, runs ATS detection, and creates or
// updates companies. Items that fail keep a capped retry budget.
func (s *Service) ProcessQueue(ctx context.Context, limit int) (*ProcessStats, error) {
	items, err := s.st.Queue.ClaimPending(ctx, limit)
	if err != nil {
		return nil, err
	}

	stats := &ProcessStats{}
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Processed++

		switch s.processItem(ctx, item) {
		case model.QueueStatusCompleted:
			stats.Completed++
		case model.QueueStatusSkipped:
			stats.Skipped++
		case model.QueueStatusReview:
			stats.Review++
		default:
			stats.Failed++
		}
	}

	s.logger.Info("discovery queue drained",
		zap.Int("processed", stats.Processed),
		zap.Int("completed", stats.Completed),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed),
	)

	return stats, nil
}

func (s *Service) processItem(ctx context.Context, item *model.QueueItem) string {
	if reason := s.skipReason(item); reason != "" {
		_ = s.st.Queue.Finish(ctx, item.ID, model.QueueStatusSkipped, reason, nil)
		return model.QueueStatusSkipped
	}

	company := &model.Company{
		Name:            item.Name,
		Domain:          item.Domain,
		CareersURL:      item.CareersURL,
		WebsiteURL:      item.WebsiteURL,
		CrawlPriority:   50,
		IsActive:        true,
		DiscoverySource: item.Source,
		Country:         item.Country,
		Location:        item.Location,
		Industry:        item.Industry,
		EmployeeCount:   item.EmployeeCount,
		FundingStage:    item.FundingStage,
	}
	now := time.Now().UTC()
	company.DiscoveredAt = &now

	detection := &ats.Detection{
		ATSType:       item.ATSType,
		ATSIdentifier: item.ATSIdentifier,
		CareersURL:    item.CareersURL,
	}
	if detection.ATSType == "" {
		var err error
		detection, err = s.detector.Detect(ctx, company)
		if err != nil {
			if rerr := s.st.Queue.Requeue(ctx, item.ID, err.Error(), s.cfg.RetryCap); rerr != nil {
				s.logger.Warn("requeue failed", zap.String("item", item.Name), zap.Error(rerr))
			}
			return model.QueueStatusFailed
		}
	}

	company.ATSType = detection.ATSType
	company.ATSIdentifier = detection.ATSIdentifier
	if detection.CareersURL != "" {
		company.CareersURL = detection.CareersURL
	}

	// Reuse the existing row when the domain is already known.
	if company.Domain != "" {
		if existing, err := s.st.Companies.GetByDomain(ctx, company.Domain); err == nil {
			if err := s.st.Companies.SetATS(ctx, existing.ID, company.ATSType, company.ATSIdentifier, company.CareersURL); err != nil {
				_ = s.st.Queue.Requeue(ctx, item.ID, err.Error(), s.cfg.RetryCap)
				return model.QueueStatusFailed
			}
			_ = s.st.Queue.Finish(ctx, item.ID, model.QueueStatusCompleted, "", &existing.ID)
			return model.QueueStatusCompleted
		}
	}

	if err := s.st.Companies.Create(ctx, company); err != nil {
		_ = s.st.Queue.Requeue(ctx, item.ID, err.Error(), s.cfg.RetryCap)
		return model.QueueStatusFailed
	}

	_ = s.st.Queue.Finish(ctx, item.ID, model.QueueStatusCompleted, "", &company.ID)
	return model.QueueStatusCompleted
}

// skipReason applies the geography and industry intake rules.
func (s *Service) skipReason(item *model.QueueItem) string {
	if len(s.cfg.Geography) > 0 && item.Country != "" {
		allowed := false
		for _, g := range s.cfg.Geography {
			if strings.EqualFold(g, item.Country) {
				allowed = true
				break
			}
		}
		if !allowed {
			return "non-target geography: " + item.Country
		}
	}

	for _, excluded := range s.cfg.Industries.Exclude {
		if strings.EqualFold(excluded, item.Industry) {
			return "disallowed industry: " + item.Industry
		}
	}

	return ""
}

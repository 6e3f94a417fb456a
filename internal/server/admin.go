package server

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/huntworks/hunt/internal/model"
	"github.com/huntworks/hunt/internal/pipeline"
)

func (s *Server) analytics(c *fiber.Ctx) error {
	days := c.QueryInt("days", 30)
	if days < 1 || days > 365 {
		return detailError(fiber.StatusBadRequest, "days must be between 1 and 365")
	}

	series, err := s.st.Analytics.TimeSeries(c.Context(), days)
	if err != nil {
		return err
	}
	stats, err := s.st.Analytics.Overview(c.Context())
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"days": days, "series": series, "stats": stats})
}

func (s *Server) listCompanies(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)
	companies, total, err := s.st.Companies.List(c.Context(), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"companies": companies, "total": total})
}

type companyPayload struct {
	Name       string `json:"name"`
	Domain     string `json:"domain"`
	CareersURL string `json:"careers_url"`
	WebsiteURL string `json:"website_url"`
}

func (s *Server) createCompany(c *fiber.Ctx) error {
	var payload companyPayload
	if err := c.BodyParser(&payload); err != nil {
		return detailError(fiber.StatusBadRequest, "invalid json body")
	}
	if strings.TrimSpace(payload.Name) == "" {
		return detailError(fiber.StatusBadRequest, "name is required")
	}

	company := &model.Company{
		Name:            payload.Name,
		Domain:          payload.Domain,
		CareersURL:      payload.CareersURL,
		WebsiteURL:      payload.WebsiteURL,
		CrawlPriority:   50,
		IsActive:        true,
		DiscoverySource: "manual",
	}
	if err := s.st.Companies.Create(c.Context(), company); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(company)
}

func (s *Server) bulkCreateCompanies(c *fiber.Ctx) error {
	var payload []companyPayload
	if err := c.BodyParser(&payload); err != nil {
		return detailError(fiber.StatusBadRequest, "invalid json body")
	}

	created := 0
	for _, p := range payload {
		if strings.TrimSpace(p.Name) == "" {
			continue
		}
		company := &model.Company{
			Name:            p.Name,
			Domain:          p.Domain,
			CareersURL:      p.CareersURL,
			WebsiteURL:      p.WebsiteURL,
			CrawlPriority:   50,
			IsActive:        true,
			DiscoverySource: "manual",
		}
		if err := s.st.Companies.Create(c.Context(), company); err != nil {
			continue
		}
		created++
	}
	return c.JSON(fiber.Map{"created": created, "submitted": len(payload)})
}

func (s *Server) pipelineStatus(c *fiber.Ctx) error {
	stats, err := s.st.Analytics.Overview(c.Context())
	if err != nil {
		return err
	}

	running, err := s.st.Runs.LatestRunning(c.Context())
	if err != nil {
		return err
	}

	response := fiber.Map{
		"pipeline": fiber.Map{
			"running": s.orchestrator.Registry().AnyRunning(),
		},
		"scheduler":          s.scheduler.Status(),
		"stats":              stats,
		"running_operations": s.orchestrator.Registry().Running(),
	}
	if running != nil {
		response["running_run"] = running
	}

	return c.JSON(response)
}

type pipelineRunPayload struct {
	SkipDiscovery  bool `json:"skip_discovery"`
	SkipCrawl      bool `json:"skip_crawl"`
	SkipEnrichment bool `json:"skip_enrichment"`
	SkipEmbeddings bool `json:"skip_embeddings"`
}

func (s *Server) runFullPipeline(c *fiber.Ctx) error {
	var payload pipelineRunPayload
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return detailError(fiber.StatusBadRequest, "invalid json body")
		}
	}

	skip := pipeline.SkipFlags{
		Discovery:  payload.SkipDiscovery,
		Crawl:      payload.SkipCrawl,
		Enrichment: payload.SkipEnrichment,
		Embeddings: payload.SkipEmbeddings,
	}

	runID, err := s.orchestrator.StartOperation(c.Context(), pipeline.OpFullPipeline, "full_pipeline", true,
		s.orchestrator.FullPipeline(skip))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"run_id": runID, "stage": "full_pipeline"})
}

func (s *Server) runCrawl(c *fiber.Ctx) error {
	atsType := c.Query("ats_type")
	limit := c.QueryInt("limit", 0)

	if atsType != "" {
		supported := false
		for _, t := range model.SupportedATS {
			if t == atsType {
				supported = true
				break
			}
		}
		if !supported {
			return detailError(fiber.StatusBadRequest, "unsupported ats_type "+atsType)
		}

		runID, err := s.orchestrator.StartOperation(c.Context(), pipeline.OpCrawl(atsType), "crawl_"+atsType, false,
			s.orchestrator.CrawlStage(atsType, limit))
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"run_id": runID, "stage": "crawl_" + atsType})
	}

	runID, err := s.orchestrator.StartOperation(c.Context(), pipeline.OpCrawlAll, "crawl", false,
		s.orchestrator.CrawlStage("", limit))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"run_id": runID, "stage": "crawl"})
}

func (s *Server) runEnrich(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 0)
	runID, err := s.orchestrator.StartOperation(c.Context(), pipeline.OpEnrich, "enrich", false,
		s.orchestrator.EnrichStage(limit))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"run_id": runID, "stage": "enrich"})
}

func (s *Server) runEmbeddings(c *fiber.Ctx) error {
	batchSize := c.QueryInt("batch_size", 0)
	runID, err := s.orchestrator.StartOperation(c.Context(), pipeline.OpEmbeddings, "embeddings", false,
		s.orchestrator.EmbeddingsStage(batchSize))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"run_id": runID, "stage": "embeddings"})
}

func (s *Server) runMaintenance(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 0)
	runID, err := s.orchestrator.StartOperation(c.Context(), pipeline.OpMaintenance, "maintenance", false,
		s.orchestrator.MaintenanceStage(limit))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"run_id": runID, "stage": "maintenance"})
}

func (s *Server) listRuns(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	runs, err := s.st.Runs.List(c.Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"runs": runs})
}

func (s *Server) cancelRun(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return detailError(fiber.StatusBadRequest, "invalid run id")
	}

	cancelled, err := s.orchestrator.CancelRun(c.Context(), id)
	if err != nil {
		return err
	}
	if !cancelled {
		return detailError(fiber.StatusConflict, "run is not running")
	}
	return c.JSON(fiber.Map{"status": "cancelled"})
}

type discoveryRunPayload struct {
	SourceNames []string `json:"source_names"`
}

func (s *Server) runDiscovery(c *fiber.Ctx) error {
	var payload discoveryRunPayload
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return detailError(fiber.StatusBadRequest, "invalid json body")
		}
	}

	runID, err := s.orchestrator.StartOperation(c.Context(), pipeline.OpDiscovery, "discovery", false,
		s.orchestrator.DiscoveryStage(payload.SourceNames))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"run_id": runID, "stage": "discovery"})
}

func (s *Server) processQueue(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 100)
	stats, err := s.disco.ProcessQueue(c.Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

func (s *Server) listQueue(c *fiber.Ctx) error {
	items, err := s.st.Queue.List(c.Context(), c.Query("status"), c.QueryInt("limit", 100))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"items": items})
}

func (s *Server) approveReviewItem(c *fiber.Ctx) error {
	return s.resolveReviewItem(c, model.QueueStatusPending)
}

func (s *Server) rejectReviewItem(c *fiber.Ctx) error {
	return s.resolveReviewItem(c, model.QueueStatusSkipped)
}

func (s *Server) resolveReviewItem(c *fiber.Ctx, status string) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return detailError(fiber.StatusBadRequest, "invalid queue item id")
	}

	item, err := s.st.Queue.Get(c.Context(), id)
	if err != nil {
		return detailError(fiber.StatusNotFound, "queue item not found")
	}
	if item.Status != model.QueueStatusReview {
		return detailError(fiber.StatusConflict, "item is not awaiting review")
	}

	if err := s.st.Queue.SetStatus(c.Context(), id, status); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": status})
}

func (s *Server) startScheduler(c *fiber.Ctx) error {
	interval := c.QueryInt("interval_hours", s.cfg.Pipeline.IntervalHours)
	if interval < 1 || interval > 168 {
		return detailError(fiber.StatusBadRequest, "interval_hours must be between 1 and 168")
	}
	if err := s.scheduler.Start(interval); err != nil {
		return err
	}
	return c.JSON(s.scheduler.Status())
}

func (s *Server) stopScheduler(c *fiber.Ctx) error {
	s.scheduler.Stop()
	return c.JSON(s.scheduler.Status())
}

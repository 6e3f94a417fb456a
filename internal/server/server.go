// Package server exposes the HTTP surface: the public jobs and candidates
// API plus the admin pipeline controls.
package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/huntworks/hunt/internal/config"
	"github.com/huntworks/hunt/internal/discovery"
	"github.com/huntworks/hunt/internal/errs"
	"github.com/huntworks/hunt/internal/match"
	"github.com/huntworks/hunt/internal/pipeline"
	"github.com/huntworks/hunt/internal/store"
)

// Server wires the handlers onto a fiber app.
type Server struct {
	app          *fiber.App
	st           *store.Store
	orchestrator *pipeline.Orchestrator
	scheduler    *pipeline.Scheduler
	matcher      *match.Matcher
	disco        *discovery.Service
	cfg          *config.Config
	logger       *zap.Logger
}

func New(
	st *store.Store,
	orchestrator *pipeline.Orchestrator,
	scheduler *pipeline.Scheduler,
	matcher *match.Matcher,
	disco *discovery.Service,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	s := &Server{
		st:           st,
		orchestrator: orchestrator,
		scheduler:    scheduler,
		matcher:      matcher,
		disco:        disco,
		cfg:          cfg,
		logger:       logger,
	}

	s.app = fiber.New(fiber.Config{
		ErrorHandler: s.errorHandler,
	})
	s.routes()
	return s
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App { return s.app }

// Listen blocks serving the API.
func (s *Server) Listen(addr string) error {
	s.logger.Info("http api listening", zap.String("addr", addr))
	return s.app.Listen(addr)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown() error { return s.app.Shutdown() }

func (s *Server) routes() {
	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": "hunt"})
	})

	api := s.app.Group("/api")

	api.Get("/jobs", s.listJobs)
	api.Get("/jobs/:id", s.getJob)
	api.Post("/jobs/:id/click", s.recordClick)

	api.Get("/candidates/:id", s.getCandidate)
	api.Patch("/candidates/:id", s.updateCandidate)
	api.Post("/candidates/sync-from-waitlist", s.syncFromWaitlist)
	api.Get("/candidates/:id/matches", s.candidateMatches)

	admin := api.Group("/admin")
	admin.Get("/analytics", s.analytics)
	admin.Get("/companies", s.listCompanies)
	admin.Post("/companies", s.createCompany)
	admin.Post("/companies/bulk", s.bulkCreateCompanies)

	admin.Get("/pipeline/status", s.pipelineStatus)
	admin.Post("/pipeline/run", s.runFullPipeline)
	admin.Post("/pipeline/crawl", s.runCrawl)
	admin.Post("/pipeline/enrich", s.runEnrich)
	admin.Post("/pipeline/embeddings", s.runEmbeddings)
	admin.Get("/pipeline/runs", s.listRuns)
	admin.Post("/pipeline/runs/:id/cancel", s.cancelRun)

	admin.Post("/discovery/run", s.runDiscovery)
	admin.Post("/discovery/process-queue", s.processQueue)
	admin.Get("/discovery/queue", s.listQueue)
	admin.Post("/discovery/review/:id/approve", s.approveReviewItem)
	admin.Post("/discovery/review/:id/reject", s.rejectReviewItem)

	admin.Post("/maintenance/run", s.runMaintenance)

	admin.Post("/scheduler/start", s.startScheduler)
	admin.Post("/scheduler/stop", s.stopScheduler)
}

// errorHandler maps kinded errors onto {detail} payloads.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError

	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	} else {
		switch errs.KindOf(err) {
		case errs.KindNotFound:
			status = fiber.StatusNotFound
		case errs.KindInvalidArgument, errs.KindSchemaViolation:
			status = fiber.StatusBadRequest
		case errs.KindConflict:
			status = fiber.StatusConflict
		case errs.KindRateLimited:
			status = fiber.StatusTooManyRequests
		}
	}

	if status >= 500 {
		s.logger.Error("request failed",
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}

	return c.Status(status).JSON(fiber.Map{"detail": err.Error()})
}

func detailError(status int, detail string) error {
	return fiber.NewError(status, detail)
}

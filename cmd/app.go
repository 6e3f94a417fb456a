package cmd

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/huntworks/hunt/internal/ats"
	"github.com/huntworks/hunt/internal/config"
	"github.com/huntworks/hunt/internal/discovery"
	"github.com/huntworks/hunt/internal/embed"
	"github.com/huntworks/hunt/internal/extract"
	"github.com/huntworks/hunt/internal/fetch"
	"github.com/huntworks/hunt/internal/maintain"
	"github.com/huntworks/hunt/internal/match"
	"github.com/huntworks/hunt/internal/notify"
	"github.com/huntworks/hunt/internal/pipeline"
	"github.com/huntworks/hunt/internal/store"
)

// application bundles the wired core for the commands.
type application struct {
	cfg          *config.Config
	st           *store.Store
	rdb          *redis.Client
	fetcher      *fetch.Fetcher
	extractors   *extract.Registry
	orchestrator *pipeline.Orchestrator
	scheduler    *pipeline.Scheduler
	matcher      *match.Matcher
	disco        *discovery.Service
	notifier     *notify.Notifier
	logger       *zap.Logger
}

// buildApp wires the full dependency graph. The Gemini pieces degrade to nil
// when no API key is configured; the affected stages log and skip.
func buildApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*application, error) {
	st, err := store.Connect(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}

	rdb, err := store.ConnectRedis(ctx, cfg.RedisURL, logger)
	if err != nil {
		st.Close()
		return nil, err
	}

	fetcher := fetch.New(cfg.Crawl, rdb, logger)

	var generator extract.ContentGenerator
	var embedder *embed.Embedder
	if key, err := cfg.GeminiKey(); err == nil {
		gen, err := extract.NewGenerator(ctx, key, cfg.LLM.Model)
		if err != nil {
			logger.Warn("llm generator unavailable", zap.Error(err))
		} else {
			generator = gen
		}

		client, err := embed.NewGeminiClient(ctx, key, cfg.Embedding.Model, cfg.Embedding.Dim)
		if err != nil {
			logger.Warn("embedding client unavailable", zap.Error(err))
		} else {
			embedder = embed.New(client, cfg.Embedding, logger)
		}
	} else {
		logger.Warn("gemini api key not configured, llm extraction and embeddings disabled")
	}

	extractors := extract.Default(fetcher, generator, cfg.LLM.MaxInputLen, logger)
	enricher := extract.NewEnricher(fetcher, logger)
	detector := ats.NewDetector(fetcher, cfg.Crawl.UserAgent, logger)

	sources := discovery.NewSourceRegistry(
		discovery.NewSeedList(cfg.Discovery.Seeds),
		discovery.NewYCDirectory(fetcher, logger),
		discovery.NewATSDirectory(fetcher, cfg.Discovery.ProbeIdentifiers, logger),
	)
	disco := discovery.NewService(st, sources, detector, cfg.Discovery, logger)

	maintenance := maintain.New(st, extractors, cfg.Crawl.VerifyRefreshDays, logger)
	orchestrator := pipeline.NewOrchestrator(st, fetcher, extractors, enricher, embedder, disco, maintenance, cfg, logger)
	scheduler := pipeline.NewScheduler(orchestrator, logger)
	matcher := match.New(st, cfg.Match, logger)
	notifier := notify.New(st, cfg.Email, logger)

	return &application{
		cfg:          cfg,
		st:           st,
		rdb:          rdb,
		fetcher:      fetcher,
		extractors:   extractors,
		orchestrator: orchestrator,
		scheduler:    scheduler,
		matcher:      matcher,
		disco:        disco,
		notifier:     notifier,
		logger:       logger,
	}, nil
}

func (a *application) close() {
	if a.rdb != nil {
		a.rdb.Close()
	}
	a.st.Close()
}

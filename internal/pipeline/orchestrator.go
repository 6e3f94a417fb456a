package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/huntworks/hunt/internal/ats"
	"github.com/huntworks/hunt/internal/config"
	"github.com/huntworks/hunt/internal/discovery"
	"github.com/huntworks/hunt/internal/embed"
	"github.com/huntworks/hunt/internal/errs"
	"github.com/huntworks/hunt/internal/extract"
	"github.com/huntworks/hunt/internal/fetch"
	"github.com/huntworks/hunt/internal/maintain"
	"github.com/huntworks/hunt/internal/model"
	"github.com/huntworks/hunt/internal/normalize"
	"github.com/huntworks/hunt/internal/store"
)

const (
	companyCrawlTimeout = 120 * time.Second
	crawlInterval       = 24 * time.Hour
)

// SkipFlags disable individual stages of a full run.
type SkipFlags struct {
	Discovery  bool `json:"skip_discovery"`
	Crawl      bool `json:"skip_crawl"`
	Enrichment bool `json:"skip_enrichment"`
	Embeddings bool `json:"skip_embeddings"`
}

// Orchestrator composes the stages and owns the run registry.
type Orchestrator struct {
	st          *store.Store
	fetcher     *fetch.Fetcher
	extractors  *extract.Registry
	enricher    *extract.Enricher
	embedder    *embed.Embedder
	disco       *discovery.Service
	maintenance *maintain.Service
	registry    *Registry
	cfg         *config.Config
	logger      *zap.Logger

	mu               sync.Mutex
	lastFullRunStart time.Time
}

func NewOrchestrator(
	st *store.Store,
	fetcher *fetch.Fetcher,
	extractors *extract.Registry,
	enricher *extract.Enricher,
	embedder *embed.Embedder,
	disco *discovery.Service,
	maintenance *maintain.Service,
	cfg *config.Config,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		st:          st,
		fetcher:     fetcher,
		extractors:  extractors,
		enricher:    enricher,
		embedder:    embedder,
		disco:       disco,
		maintenance: maintenance,
		registry:    NewRegistry(),
		cfg:         cfg,
		logger:      logger,
	}
}

// Registry exposes the live operation table.
func (o *Orchestrator) Registry() *Registry { return o.registry }

// Reconcile marks orphaned running rows from a previous process as failed.
func (o *Orchestrator) Reconcile(ctx context.Context) error {
	n, err := o.st.Runs.ReconcileOrphans(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		o.logger.Warn("reconciled orphaned pipeline runs", zap.Int64("count", n))
	}
	return nil
}

// stageFn is one stage body, reporting through the run logger.
type stageFn func(ctx context.Context, rl *runLogger) error

// StartOperation launches a stage in the background and returns its run id.
// The database row is written before the registry entry; on completion the
// registry entry clears before the row finalizes.
func (o *Orchestrator) StartOperation(ctx context.Context, opType, stage string, cascade bool, fn stageFn) (uuid.UUID, error) {
	// Cheap pre-check; the registry Start below is the authoritative gate.
	if o.registry.IsRunning(opType) {
		return uuid.Nil, errs.New(errs.KindConflict, opType+" is already running")
	}
	// A full pipeline claims every stage, so anything in flight blocks it.
	if opType == OpFullPipeline && o.registry.AnyRunning() {
		return uuid.Nil, errs.New(errs.KindConflict, "operations are running, full_pipeline cannot start")
	}

	runID, err := o.st.Runs.Create(ctx, stage, "Starting "+stage, cascade)
	if err != nil {
		return uuid.Nil, err
	}

	opCtx, cancel := context.WithCancel(context.Background())
	if _, err := o.registry.Start(opType, runID, cancel); err != nil {
		cancel()
		_ = o.st.Runs.Finish(ctx, runID, model.RunStatusFailed, "operation already running")
		return uuid.Nil, err
	}

	go o.executeOperation(opCtx, cancel, opType, runID, fn)
	return runID, nil
}

// RunOperation executes a stage synchronously under the registry.
func (o *Orchestrator) RunOperation(ctx context.Context, opType, stage string, cascade bool, fn stageFn) (uuid.UUID, error) {
	runID, err := o.st.Runs.Create(ctx, stage, "Starting "+stage, cascade)
	if err != nil {
		return uuid.Nil, err
	}

	opCtx, cancel := context.WithCancel(ctx)
	if _, err := o.registry.Start(opType, runID, cancel); err != nil {
		cancel()
		_ = o.st.Runs.Finish(ctx, runID, model.RunStatusFailed, "operation already running")
		return uuid.Nil, err
	}

	o.executeOperation(opCtx, cancel, opType, runID, fn)
	return runID, nil
}

func (o *Orchestrator) executeOperation(ctx context.Context, cancel func(), opType string, runID uuid.UUID, fn stageFn) {
	defer cancel()

	rl := newRunLogger(o.st.Runs, o.registry, opType, runID, o.logger)
	err := fn(ctx, rl)

	// Registry cleared first, then the durable row finalized.
	o.registry.End(opType)

	finishCtx, finishCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer finishCancel()
	rl.Flush(finishCtx)

	switch {
	case err == nil:
		_ = o.st.Runs.Finish(finishCtx, runID, model.RunStatusCompleted, "")
	case errs.Is(err, errs.KindCancelled) || ctx.Err() != nil:
		_ = o.st.Runs.Finish(finishCtx, runID, model.RunStatusFailed, "cancelled")
	default:
		_ = o.st.Runs.Finish(finishCtx, runID, model.RunStatusFailed, err.Error())
	}
}

// CancelRun cancels the live operation owning the run and flips the row.
func (o *Orchestrator) CancelRun(ctx context.Context, runID uuid.UUID) (bool, error) {
	flipped, err := o.st.Runs.RequestCancel(ctx, runID)
	if err != nil {
		return false, err
	}
	o.registry.CancelRun(runID)
	return flipped, nil
}

// ---------------------------------------------------------------------------
// Stage bodies
// ---------------------------------------------------------------------------

// DiscoveryStage runs intake from the sources and drains the queue.
func (o *Orchestrator) DiscoveryStage(sourceNames []string) stageFn {
	return func(ctx context.Context, rl *runLogger) error {
		rl.Log(ctx, "info", "starting discovery", nil)

		intake, err := o.disco.Run(ctx, sourceNames)
		if err != nil {
			return err
		}
		rl.Log(ctx, "info", fmt.Sprintf("discovery intake: %d discovered, %d enqueued, %d merged",
			intake.Discovered, intake.Enqueued, intake.Merged),
			map[string]any{"sources_run": intake.SourcesRun})

		processed, err := o.disco.ProcessQueue(ctx, o.cfg.Discovery.Limit)
		if err != nil {
			return err
		}
		rl.Progress(ctx, "Queue drained", processed.Completed, processed.Failed)
		rl.Log(ctx, "info", fmt.Sprintf("queue processed: %d completed, %d skipped, %d failed",
			processed.Completed, processed.Skipped, processed.Failed), nil)
		return nil
	}
}

// CrawlStage crawls every due company of one ATS type with a worker pool.
func (o *Orchestrator) CrawlStage(atsType string, limit int) stageFn {
	return func(ctx context.Context, rl *runLogger) error {
		if limit <= 0 {
			limit = o.cfg.Pipeline.CrawlBatch
		}
		companies, err := o.st.Companies.DueForCrawl(ctx, atsType, crawlInterval, limit)
		if err != nil {
			return err
		}
		if len(companies) == 0 {
			rl.Log(ctx, "info", "no companies due for crawl", nil)
			return nil
		}

		rl.Log(ctx, "info", fmt.Sprintf("crawling %d companies", len(companies)),
			map[string]any{"ats_type": atsType})

		var (
			mu        sync.Mutex
			processed int
			failed    int
			jobsFound int
		)

		work := make(chan *model.Company)
		var wg sync.WaitGroup
		for w := 0; w < o.cfg.Pipeline.Workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for company := range work {
					found, err := o.crawlCompany(ctx, company)

					mu.Lock()
					if err != nil {
						failed++
						o.logger.Warn("crawl failed",
							zap.String("company", company.Name),
							zap.Error(err),
						)
					} else {
						processed++
						jobsFound += found
					}
					p, f := processed, failed
					mu.Unlock()

					rl.Progress(ctx, fmt.Sprintf("Crawled %d/%d", p+f, len(companies)), p, f)
				}
			}()
		}

	feed:
		for _, company := range companies {
			select {
			case <-ctx.Done():
				break feed
			case work <- company:
			}
			if rl.Cancelled(ctx) {
				break feed
			}
		}
		close(work)
		wg.Wait()

		if ctx.Err() != nil {
			return errs.Wrap(errs.KindCancelled, "crawl", ctx.Err())
		}

		rl.Log(ctx, "info", fmt.Sprintf("crawl complete: %d companies, %d jobs, %d failed",
			processed, jobsFound, failed),
			map[string]any{"jobs_found": jobsFound})
		return nil
	}
}

// crawlCompany runs one crawl+extract sequence under the per-company timeout.
func (o *Orchestrator) crawlCompany(ctx context.Context, company *model.Company) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, companyCrawlTimeout)
	defer cancel()

	extractor, ok := o.extractors.For(company.ATSType)
	if !ok {
		return 0, fmt.Errorf("no extractor for ats type %q", company.ATSType)
	}

	listingURL, opts := listingRequest(company)

	knownHash, err := o.st.Snapshots.LatestHash(ctx, company.ID, listingURL)
	if err != nil {
		return 0, err
	}
	opts.KnownHash = knownHash

	res, err := o.fetcher.Fetch(ctx, listingURL, opts)
	if err != nil {
		if errs.Is(err, errs.KindNotFound) {
			// A vanished board may mean the identifier rotated; retry after
			// re-detection once.
			if redetected := o.redetect(ctx, company); redetected {
				return o.crawlCompany(ctx, company)
			}
		}
		return 0, err
	}

	if err := o.st.Companies.TouchCrawled(ctx, company.ID); err != nil {
		return 0, err
	}

	if res.Unchanged {
		o.logger.Debug("no changes detected", zap.String("company", company.Name))
		return 0, nil
	}

	snapshot := &model.CrawlSnapshot{
		CompanyID:   company.ID,
		URL:         listingURL,
		HTMLHash:    res.Hash,
		HTMLContent: res.Body,
		StatusCode:  res.StatusCode,
		Rendered:    res.Rendered,
	}
	if err := o.st.Snapshots.Insert(ctx, snapshot); err != nil {
		return 0, err
	}

	raws, err := extractor.List(ctx, company)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	for _, raw := range raws {
		if err := o.st.Jobs.UpsertRaw(ctx, raw); err != nil {
			return 0, err
		}
		job := normalize.Job(raw, now)
		if err := o.st.Jobs.Upsert(ctx, job); err != nil {
			return 0, err
		}
	}

	return len(raws), nil
}

// redetect refreshes the ATS fields after a 404, reporting whether anything
// changed.
func (o *Orchestrator) redetect(ctx context.Context, company *model.Company) bool {
	detector := ats.NewDetector(o.fetcher, o.cfg.Crawl.UserAgent, o.logger)
	detection, err := detector.Detect(ctx, company)
	if err != nil || detection.ATSType == model.ATSCustom {
		return false
	}
	if detection.ATSType == company.ATSType && detection.ATSIdentifier == company.ATSIdentifier {
		return false
	}
	if err := o.st.Companies.SetATS(ctx, company.ID, detection.ATSType, detection.ATSIdentifier, detection.CareersURL); err != nil {
		return false
	}
	company.ATSType = detection.ATSType
	company.ATSIdentifier = detection.ATSIdentifier
	if detection.CareersURL != "" {
		company.CareersURL = detection.CareersURL
	}
	o.logger.Info("rediscovered ats identifier",
		zap.String("company", company.Name),
		zap.String("ats_type", detection.ATSType),
		zap.String("identifier", detection.ATSIdentifier),
	)
	return true
}

// listingRequest picks the listing endpoint used for snapshots and change
// detection.
func listingRequest(company *model.Company) (string, fetch.Options) {
	switch company.ATSType {
	case model.ATSGreenhouse:
		return "https://boards-api.greenhouse.io/v1/boards/" + company.ATSIdentifier + "/jobs",
			fetch.Options{ATSType: company.ATSType, APIEndpoint: true}
	case model.ATSLever:
		return "https://api.lever.co/v0/postings/" + company.ATSIdentifier + "?mode=json",
			fetch.Options{ATSType: company.ATSType, APIEndpoint: true}
	case model.ATSAshby:
		return "https://api.ashbyhq.com/posting-api/job-board/" + company.ATSIdentifier,
			fetch.Options{ATSType: company.ATSType, APIEndpoint: true}
	default:
		return company.CareersURL, fetch.Options{ATSType: company.ATSType}
	}
}

// EnrichStage backfills descriptions for jobs from list-only endpoints.
// Jobs whose enrichment already failed within the current full-run window are
// skipped; the window resets when a new full pipeline run starts.
func (o *Orchestrator) EnrichStage(limit int) stageFn {
	return func(ctx context.Context, rl *runLogger) error {
		if limit <= 0 {
			limit = o.cfg.Pipeline.CrawlBatch
		}

		runStart := o.fullRunStart()
		success, failed := 0, 0

		for _, atsType := range model.SupportedATS {
			if rl.Cancelled(ctx) || ctx.Err() != nil {
				return errs.Wrap(errs.KindCancelled, "enrich", ctx.Err())
			}

			jobs, err := o.st.Jobs.NeedingEnrichment(ctx, atsType, runStart, limit)
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				continue
			}
			rl.Log(ctx, "info", fmt.Sprintf("enriching %d %s jobs", len(jobs), atsType), nil)

			company := map[uuid.UUID]*model.Company{}
			for _, job := range jobs {
				if ctx.Err() != nil {
					return errs.Wrap(errs.KindCancelled, "enrich", ctx.Err())
				}

				c, ok := company[job.CompanyID]
				if !ok {
					var err error
					c, err = o.st.Companies.Get(ctx, job.CompanyID)
					if err != nil {
						failed++
						continue
					}
					company[job.CompanyID] = c
				}

				detail, err := o.enricher.Enrich(ctx, c, job)
				if err != nil || detail.Description == "" {
					// Soft failure: stamped and skipped for the rest of the run.
					failed++
					_ = o.st.Jobs.MarkEnrichFailed(ctx, job.ID)
					continue
				}

				postedAt := normalize.ParseDate(detail.PostedAtRaw)
				if postedAt == nil {
					postedAt = job.PostedAt
				}
				freshness := normalize.Freshness(postedAt, time.Now().UTC())
				if err := o.st.Jobs.SetDescription(ctx, job.ID, detail.Description, postedAt, freshness); err != nil {
					failed++
					continue
				}
				success++
				rl.Progress(ctx, fmt.Sprintf("Enriching %s", atsType), success, failed)
			}
		}

		rl.Log(ctx, "info", fmt.Sprintf("enrichment complete: %d success, %d failed", success, failed), nil)
		return nil
	}
}

// EmbeddingsStage generates vectors for jobs and candidates that lack them.
func (o *Orchestrator) EmbeddingsStage(batchSize int) stageFn {
	return func(ctx context.Context, rl *runLogger) error {
		if o.embedder == nil {
			rl.Log(ctx, "warn", "embedder not configured, skipping", nil)
			return nil
		}
		if batchSize <= 0 {
			batchSize = o.cfg.Embedding.BatchSize
		}

		processed := 0
		for {
			if rl.Cancelled(ctx) || ctx.Err() != nil {
				return errs.Wrap(errs.KindCancelled, "embeddings", ctx.Err())
			}

			jobs, err := o.st.Jobs.WithoutEmbedding(ctx, batchSize)
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				break
			}

			texts := make([]string, len(jobs))
			for i, job := range jobs {
				texts[i] = embed.JobText(job)
			}
			vectors, err := o.embedder.EmbedTexts(ctx, texts)
			if err != nil {
				return err
			}
			for i, job := range jobs {
				if err := o.st.Jobs.SetEmbedding(ctx, job.ID, vectors[i]); err != nil {
					return err
				}
			}

			processed += len(jobs)
			rl.Progress(ctx, fmt.Sprintf("Embedded %d jobs", processed), processed, 0)
		}

		candidates, err := o.st.Candidates.WithoutEmbedding(ctx, batchSize)
		if err != nil {
			return err
		}
		for _, c := range candidates {
			vector, err := o.embedder.EmbedText(ctx, embed.CandidateText(c))
			if err != nil {
				return err
			}
			if err := o.st.Candidates.SetEmbedding(ctx, c.ID, vector); err != nil {
				return err
			}
			processed++
		}

		rl.Log(ctx, "info", fmt.Sprintf("embeddings complete: %d processed", processed), nil)
		return nil
	}
}

// MaintenanceStage re-verifies the catalog.
func (o *Orchestrator) MaintenanceStage(limit int) stageFn {
	return func(ctx context.Context, rl *runLogger) error {
		if limit <= 0 {
			limit = o.cfg.Pipeline.CrawlBatch
		}
		stats, err := o.maintenance.Run(ctx, limit)
		if err != nil {
			return err
		}
		rl.Progress(ctx, "Maintenance complete", stats.JobsVerified, stats.Errors)
		rl.Log(ctx, "info", fmt.Sprintf("maintenance: %d checked, %d verified, %d delisted",
			stats.CompaniesChecked, stats.JobsVerified, stats.JobsDelisted),
			map[string]any{"companies_deactivated": stats.CompaniesDeactivated})
		return nil
	}
}

// FullPipeline runs discovery, per-ATS crawls, enrichment, and embeddings
// sequentially as cascading sub-operations. Only one full pipeline may run.
func (o *Orchestrator) FullPipeline(skip SkipFlags) stageFn {
	return func(ctx context.Context, rl *runLogger) error {
		o.mu.Lock()
		o.lastFullRunStart = time.Now().UTC()
		o.mu.Unlock()

		type stage struct {
			skip   bool
			opType string
			stage  string
			fn     stageFn
		}

		stages := []stage{
			{skip.Discovery, OpDiscovery, "discovery", o.DiscoveryStage(nil)},
		}
		for _, atsType := range model.SupportedATS {
			stages = append(stages, stage{
				skip.Crawl, OpCrawl(atsType), "crawl_" + atsType, o.CrawlStage(atsType, 0),
			})
		}
		stages = append(stages,
			stage{skip.Enrichment, OpEnrich, "enrich", o.EnrichStage(0)},
			stage{skip.Embeddings, OpEmbeddings, "embeddings", o.EmbeddingsStage(0)},
		)

		for _, st := range stages {
			if st.skip {
				rl.Log(ctx, "info", "skipping "+st.stage, nil)
				continue
			}
			if rl.Cancelled(ctx) || ctx.Err() != nil {
				return errs.Wrap(errs.KindCancelled, "full pipeline", ctx.Err())
			}

			rl.Progress(ctx, "Stage: "+st.stage, 0, 0)
			if _, err := o.RunOperation(ctx, st.opType, st.stage, true, st.fn); err != nil {
				if errs.Is(err, errs.KindConflict) {
					rl.Log(ctx, "warn", st.stage+" already running, skipping", nil)
					continue
				}
				return fmt.Errorf("stage %s: %w", st.stage, err)
			}
		}

		rl.Log(ctx, "info", "full pipeline complete", nil)
		return nil
	}
}

// fullRunStart is the enrichment skip-window anchor.
func (o *Orchestrator) fullRunStart() time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.lastFullRunStart.IsZero() {
		return time.Now().UTC().Add(-time.Hour)
	}
	return o.lastFullRunStart
}

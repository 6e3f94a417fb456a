// Package pipeline coordinates the ingestion stages: the live run registry,
// the durable pipeline_runs rows, the stage orchestrator, and the scheduler.
package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/huntworks/hunt/internal/errs"
)

// Operation types tracked by the registry.
const (
	OpFullPipeline = "full_pipeline"
	OpDiscovery    = "discovery"
	OpEnrich       = "enrich"
	OpEmbeddings   = "embeddings"
	OpMaintenance  = "maintenance"
	OpMatch        = "match"
	OpCrawlAll     = "crawl_all"
)

// OpCrawl names the per-ATS crawl sub-operation.
func OpCrawl(atsType string) string { return "crawl_" + atsType }

// Operation is the live view of one in-flight operation.
type Operation struct {
	OperationType string         `json:"operation_type"`
	StartedAt     time.Time      `json:"started_at"`
	CurrentStep   string         `json:"current_step"`
	Progress      map[string]any `json:"progress"`
	RunID         uuid.UUID      `json:"run_id"`
	cancel        func()
}

// Registry tracks in-flight operations keyed by operation type. The same type
// never runs twice concurrently; distinct types may.
type Registry struct {
	mu      sync.Mutex
	running map[string]*Operation
}

func NewRegistry() *Registry {
	return &Registry{running: make(map[string]*Operation)}
}

// Start claims the operation type. It returns a conflict error when the type
// is already held.
func (r *Registry) Start(operationType string, runID uuid.UUID, cancel func()) (*Operation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, held := r.running[operationType]; held {
		return nil, errs.New(errs.KindConflict, operationType+" is already running")
	}

	op := &Operation{
		OperationType: operationType,
		StartedAt:     time.Now().UTC(),
		Progress:      make(map[string]any),
		RunID:         runID,
		cancel:        cancel,
	}
	r.running[operationType] = op
	return op, nil
}

// End releases the operation type.
func (r *Registry) End(operationType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.running, operationType)
}

// IsRunning reports whether the type is held.
func (r *Registry) IsRunning(operationType string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, held := r.running[operationType]
	return held
}

// Cancel fires the operation's cancel function. It reports whether the
// operation was found.
func (r *Registry) Cancel(operationType string) bool {
	r.mu.Lock()
	op, held := r.running[operationType]
	r.mu.Unlock()
	if !held || op.cancel == nil {
		return held
	}
	op.cancel()
	return true
}

// CancelRun cancels whichever operation owns the run id.
func (r *Registry) CancelRun(runID uuid.UUID) bool {
	r.mu.Lock()
	var target *Operation
	for _, op := range r.running {
		if op.RunID == runID {
			target = op
			break
		}
	}
	r.mu.Unlock()
	if target == nil || target.cancel == nil {
		return false
	}
	target.cancel()
	return true
}

// UpdateProgress merges progress fields into the live entry.
func (r *Registry) UpdateProgress(operationType, currentStep string, progress map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	op, held := r.running[operationType]
	if !held {
		return
	}
	if currentStep != "" {
		op.CurrentStep = currentStep
	}
	for k, v := range progress {
		op.Progress[k] = v
	}
}

// Running snapshots the in-flight operations.
func (r *Registry) Running() map[string]Operation {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]Operation, len(r.running))
	for k, v := range r.running {
		out[k] = *v
	}
	return out
}

// AnyRunning reports whether anything is in flight.
func (r *Registry) AnyRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.running) > 0
}

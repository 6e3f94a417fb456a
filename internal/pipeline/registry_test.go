package pipeline

import (
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/huntworks/hunt/internal/errs"
)

func TestRegistryConflictOnSameType(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	if _, err := r.Start(OpFullPipeline, uuid.New(), nil); err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	if _, err := r.Start(OpFullPipeline, uuid.New(), nil); !errs.Is(err, errs.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	r.End(OpFullPipeline)
	if _, err := r.Start(OpFullPipeline, uuid.New(), nil); err != nil {
		t.Fatalf("restart after end failed: %v", err)
	}
}

func TestRegistryDistinctTypesRunConcurrently(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	if _, err := r.Start(OpCrawl("greenhouse"), uuid.New(), nil); err != nil {
		t.Fatalf("crawl start failed: %v", err)
	}
	if _, err := r.Start(OpEmbeddings, uuid.New(), nil); err != nil {
		t.Fatalf("embeddings start failed: %v", err)
	}

	running := r.Running()
	if len(running) != 2 {
		t.Fatalf("expected 2 running operations, got %d", len(running))
	}
	if _, ok := running["crawl_greenhouse"]; !ok {
		t.Fatalf("crawl_greenhouse missing from %v", running)
	}
}

func TestRegistryProgressUpdates(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if _, err := r.Start(OpEnrich, uuid.New(), nil); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	r.UpdateProgress(OpEnrich, "Enriching greenhouse", map[string]any{"processed": 10})
	r.UpdateProgress("not_running", "ignored", nil)

	op := r.Running()[OpEnrich]
	if op.CurrentStep != "Enriching greenhouse" {
		t.Fatalf("unexpected step %q", op.CurrentStep)
	}
	if op.Progress["processed"] != 10 {
		t.Fatalf("unexpected progress %v", op.Progress)
	}
}

func TestRegistryCancelRun(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	runID := uuid.New()
	cancelled := false

	if _, err := r.Start(OpDiscovery, runID, func() { cancelled = true }); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if !r.CancelRun(runID) {
		t.Fatal("CancelRun should find the operation")
	}
	if !cancelled {
		t.Fatal("cancel function not invoked")
	}
	if r.CancelRun(uuid.New()) {
		t.Fatal("unknown run id should not cancel anything")
	}
}

func TestRegistryConcurrentStarts(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	var wg sync.WaitGroup
	var mu sync.Mutex
	started := 0

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Start(OpMaintenance, uuid.New(), nil); err == nil {
				mu.Lock()
				started++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if started != 1 {
		t.Fatalf("exactly one concurrent start may win, got %d", started)
	}
}

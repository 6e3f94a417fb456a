package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/huntworks/hunt/internal/model"
	"github.com/huntworks/hunt/internal/store"
)

// progressWriteFloor bounds write amplification: step/counter updates land in
// the database no more than once per 200ms. Log entries always land.
const progressWriteFloor = 200 * time.Millisecond

// runLogger mirrors one operation into its pipeline_runs row and the live
// registry entry.
type runLogger struct {
	runs     *store.RunRepo
	registry *Registry
	opType   string
	runID    uuid.UUID
	logger   *zap.Logger

	mu           sync.Mutex
	lastWrite    time.Time
	processed    int
	failed       int
	pendingStep  string
	pendingDirty bool
}

func newRunLogger(runs *store.RunRepo, registry *Registry, opType string, runID uuid.UUID, logger *zap.Logger) *runLogger {
	return &runLogger{
		runs:     runs,
		registry: registry,
		opType:   opType,
		runID:    runID,
		logger:   logger,
	}
}

// Log appends an entry to the run row and echoes it to the process log.
func (rl *runLogger) Log(ctx context.Context, level, msg string, data map[string]any) {
	entry := model.RunLogEntry{
		TS:    time.Now().UTC(),
		Level: level,
		Msg:   msg,
		Data:  data,
	}

	rl.mu.Lock()
	processed, failed := rl.processed, rl.failed
	step := rl.pendingStep
	rl.lastWrite = time.Now()
	rl.pendingDirty = false
	rl.mu.Unlock()

	if err := rl.runs.AppendLog(ctx, rl.runID, entry, step, &processed, &failed); err != nil {
		rl.logger.Warn("appending run log failed", zap.Error(err))
	}

	fields := []zap.Field{zap.String("stage", rl.opType), zap.String("run_id", rl.runID.String())}
	switch level {
	case "error":
		rl.logger.Error(msg, fields...)
	case "warn":
		rl.logger.Warn(msg, fields...)
	default:
		rl.logger.Info(msg, fields...)
	}
}

// Progress updates step and counters, throttled to the write floor. The live
// registry entry always updates.
func (rl *runLogger) Progress(ctx context.Context, currentStep string, processed, failed int) {
	rl.registry.UpdateProgress(rl.opType, currentStep, map[string]any{
		"processed": processed,
		"failed":    failed,
	})

	rl.mu.Lock()
	rl.processed = processed
	rl.failed = failed
	rl.pendingStep = currentStep
	due := time.Since(rl.lastWrite) >= progressWriteFloor
	if due {
		rl.lastWrite = time.Now()
		rl.pendingDirty = false
	} else {
		rl.pendingDirty = true
	}
	rl.mu.Unlock()

	if !due {
		return
	}
	if err := rl.runs.UpdateProgress(ctx, rl.runID, currentStep, processed, failed); err != nil {
		rl.logger.Warn("updating run progress failed", zap.Error(err))
	}
}

// Flush writes any throttled progress before the run closes.
func (rl *runLogger) Flush(ctx context.Context) {
	rl.mu.Lock()
	dirty := rl.pendingDirty
	step := rl.pendingStep
	processed, failed := rl.processed, rl.failed
	rl.pendingDirty = false
	rl.mu.Unlock()

	if !dirty {
		return
	}
	if err := rl.runs.UpdateProgress(ctx, rl.runID, step, processed, failed); err != nil {
		rl.logger.Warn("flushing run progress failed", zap.Error(err))
	}
}

// Cancelled polls the durable cancel flag.
func (rl *runLogger) Cancelled(ctx context.Context) bool {
	return rl.runs.IsCancelled(ctx, rl.runID)
}

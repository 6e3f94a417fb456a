package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler drives periodic full pipeline runs through robfig/cron.
// Start while running and Stop while stopped are no-ops.
type Scheduler struct {
	orchestrator *Orchestrator
	logger       *zap.Logger

	mu            sync.Mutex
	cron          *cron.Cron
	entryID       cron.EntryID
	running       bool
	intervalHours int
	lastRun       *time.Time
}

// SchedulerStatus is the exposed scheduler state.
type SchedulerStatus struct {
	Running       bool       `json:"running"`
	IntervalHours int        `json:"interval_hours"`
	LastRun       *time.Time `json:"last_run,omitempty"`
	NextRun       *time.Time `json:"next_run,omitempty"`
}

func NewScheduler(orchestrator *Orchestrator, logger *zap.Logger) *Scheduler {
	return &Scheduler{orchestrator: orchestrator, logger: logger}
}

// Start begins ticking every intervalHours hours.
func (s *Scheduler) Start(intervalHours int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Debug("scheduler already running")
		return nil
	}
	if intervalHours <= 0 {
		intervalHours = 6
	}

	s.cron = cron.New()
	id, err := s.cron.AddFunc(fmt.Sprintf("@every %dh", intervalHours), s.tick)
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.entryID = id
	s.intervalHours = intervalHours
	s.running = true
	s.cron.Start()

	s.logger.Info("scheduler started", zap.Int("interval_hours", intervalHours))
	return nil
}

// Stop halts ticking.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		s.logger.Debug("scheduler already stopped")
		return
	}

	s.cron.Stop()
	s.cron = nil
	s.running = false

	s.logger.Info("scheduler stopped")
}

// Status reports the current scheduler state.
func (s *Scheduler) Status() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := SchedulerStatus{
		Running:       s.running,
		IntervalHours: s.intervalHours,
		LastRun:       s.lastRun,
	}
	if s.running && s.cron != nil {
		next := s.cron.Entry(s.entryID).Next
		if !next.IsZero() {
			status.NextRun = &next
		}
	}
	return status
}

// tick triggers a full pipeline run unless one is already in flight, in which
// case the tick is skipped and logged.
func (s *Scheduler) tick() {
	if s.orchestrator.Registry().IsRunning(OpFullPipeline) {
		s.logger.Warn("skipping scheduled run, full pipeline already in flight")
		return
	}

	now := time.Now().UTC()
	s.mu.Lock()
	s.lastRun = &now
	s.mu.Unlock()

	s.logger.Info("scheduler tick: starting full pipeline")
	_, err := s.orchestrator.StartOperation(context.Background(), OpFullPipeline, "full_pipeline", true,
		s.orchestrator.FullPipeline(SkipFlags{}))
	if err != nil {
		s.logger.Error("scheduled full pipeline failed to start", zap.Error(err))
	}
}

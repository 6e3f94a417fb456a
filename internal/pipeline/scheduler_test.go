package pipeline

import (
	"testing"

	"go.uber.org/zap"
)

func TestSchedulerStartStopIdempotent(t *testing.T) {
	t.Parallel()

	s := NewScheduler(nil, zap.NewNop())

	if s.Status().Running {
		t.Fatal("new scheduler must be stopped")
	}

	// Stopping while stopped is a no-op.
	s.Stop()

	if err := s.Start(6); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	status := s.Status()
	if !status.Running {
		t.Fatal("scheduler should be running")
	}
	if status.IntervalHours != 6 {
		t.Fatalf("unexpected interval %d", status.IntervalHours)
	}
	if status.NextRun == nil {
		t.Fatal("running scheduler should expose next_run")
	}

	// Starting while running is a no-op and keeps the interval.
	if err := s.Start(12); err != nil {
		t.Fatalf("second start errored: %v", err)
	}
	if got := s.Status().IntervalHours; got != 6 {
		t.Fatalf("second start must not change the interval, got %d", got)
	}

	s.Stop()
	if s.Status().Running {
		t.Fatal("scheduler should be stopped")
	}
	if s.Status().NextRun != nil {
		t.Fatal("stopped scheduler must not expose next_run")
	}
}

func TestSchedulerDefaultInterval(t *testing.T) {
	t.Parallel()

	s := NewScheduler(nil, zap.NewNop())
	if err := s.Start(0); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer s.Stop()

	if got := s.Status().IntervalHours; got != 6 {
		t.Fatalf("zero interval should default to 6, got %d", got)
	}
}

package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

type countingReloader struct {
	calls atomic.Int32
	err   error
}

func (r *countingReloader) Reload(ctx context.Context) error {
	r.calls.Add(1)
	return r.err
}

func TestStartRejectsBadSpec(t *testing.T) {
	s := NewScheduler(&countingReloader{}, "not a cron line", nil)
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected an error for a malformed schedule")
	}
}

func TestStartWithoutSpec(t *testing.T) {
	s := NewScheduler(&countingReloader{}, "", nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	s.Stop()
	if n := len(s.cron.Entries()); n != 0 {
		t.Fatalf("expected no jobs, got %d", n)
	}
}

func TestReloadJob(t *testing.T) {
	r := &countingReloader{err: errors.New("db down")}
	s := NewScheduler(r, "*/15 * * * *", nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	entries := s.cron.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected one job, got %d", len(entries))
	}
	// a failing reload is logged, never panics
	entries[0].Job.Run()
	if r.calls.Load() != 1 {
		t.Fatalf("expected one reload, got %d", r.calls.Load())
	}
}

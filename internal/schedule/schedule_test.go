package schedule

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s := New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.Stop(ctx)
	})
	return s
}

func TestDelayedInterval(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("first activation after delay", func(t *testing.T) {
		t.Parallel()
		d := newDelayedInterval(base.Add(5*time.Minute), time.Hour)
		if got := d.Next(base); !got.Equal(base.Add(5 * time.Minute)) {
			t.Errorf("expected first run at +5m, got %v", got)
		}
		if got := d.Next(base.Add(5 * time.Minute)); !got.Equal(base.Add(65 * time.Minute)) {
			t.Errorf("expected second run one hour later, got %v", got)
		}
	})

	t.Run("zero delay fires immediately", func(t *testing.T) {
		t.Parallel()
		d := newDelayedInterval(base, time.Hour)
		if got := d.Next(base.Add(time.Millisecond)); !got.Equal(base.Add(time.Millisecond)) {
			t.Errorf("expected immediate run, got %v", got)
		}
	})

	t.Run("interval has a floor", func(t *testing.T) {
		t.Parallel()
		d := newDelayedInterval(base, 0)
		d.Next(base)
		if got := d.Next(base); !got.Equal(base.Add(time.Second)) {
			t.Errorf("expected one second floor, got %v", got)
		}
	})
}

func TestSchedulerRunsAndRemoves(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(t)
	var runs atomic.Int32
	ran := make(chan struct{}, 1)

	id := s.Every(0, time.Hour, func() {
		runs.Add(1)
		select {
		case ran <- struct{}{}:
		default:
		}
	})

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}

	// The scheduler re-arms the entry right after starting the job.
	deadline := time.Now().Add(time.Second)
	for time.Until(s.Next(id)) < 50*time.Minute && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if next := s.Next(id); time.Until(next) < 50*time.Minute {
		t.Errorf("expected next run about an hour away, got %v", next)
	}

	s.Remove(id)
	if next := s.Next(id); !next.IsZero() {
		t.Errorf("expected removed job to have no next run, got %v", next)
	}
	if runs.Load() != 1 {
		t.Errorf("expected exactly one run, got %d", runs.Load())
	}
}

func TestSchedulerDelay(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(t)
	var runs atomic.Int32
	id := s.Every(time.Hour, time.Hour, func() { runs.Add(1) })
	defer s.Remove(id)

	time.Sleep(100 * time.Millisecond)
	if runs.Load() != 0 {
		t.Error("delayed job must not run yet")
	}
}

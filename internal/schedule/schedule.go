// Package schedule runs cancellable recurring jobs on a shared cron
// scheduler. Every job first fires after its own delay and then at a fixed
// interval; a job that is still running when it is due again is skipped.
package schedule

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ID identifies a scheduled job.
type ID = cron.EntryID

// Scheduler wraps a cron scheduler.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// New creates a stopped Scheduler.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: logger,
	}
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for running jobs until ctx ends.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stopped before running jobs finished")
	}
}

// Every schedules job to run first after delay and then every interval.
func (s *Scheduler) Every(delay, interval time.Duration, job func()) ID {
	return s.cron.Schedule(newDelayedInterval(time.Now().Add(delay), interval), cron.FuncJob(job))
}

// Remove cancels the job. Removing an unknown id is a no-op.
// A run already in progress is not interrupted.
func (s *Scheduler) Remove(id ID) {
	s.cron.Remove(id)
}

// Next returns the next activation of the job, or the zero time when the
// job is unknown or the scheduler is not running.
func (s *Scheduler) Next(id ID) time.Time {
	return s.cron.Entry(id).Next
}

// delayedInterval fires once at first and then every interval after each run.
type delayedInterval struct {
	mu       sync.Mutex
	first    time.Time
	interval time.Duration
	armed    bool
}

func newDelayedInterval(first time.Time, interval time.Duration) *delayedInterval {
	if interval < time.Second {
		interval = time.Second
	}
	return &delayedInterval{first: first, interval: interval}
}

// Next implements cron.Schedule.
func (d *delayedInterval) Next(t time.Time) time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.armed {
		d.armed = true
		if d.first.After(t) {
			return d.first
		}
		return t
	}
	return t.Add(d.interval)
}

// cronLogger forwards cron's logging to slog. Routine scheduler chatter
// goes to debug level.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}

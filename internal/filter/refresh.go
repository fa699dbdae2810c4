package filter

import (
	"context"
	"time"

	"github.com/nao1215/boardaid/internal/database"
	"github.com/nao1215/boardaid/internal/model"
	"github.com/nao1215/boardaid/internal/schedule"
)

// DefaultRefreshInterval is the period of the background refresh job.
const DefaultRefreshInterval = time.Minute

// RefreshOldest re-requests the pending thread with the oldest timestamp.
// A thread answering 404 is deleted together with its thumbnails; any
// other outcome refreshes its timestamp so the next call moves on.
func (f *Filter) RefreshOldest(ctx context.Context) error {
	if f.checker == nil {
		return ErrNoStatusChecker
	}

	var (
		item  model.FilterItem
		found bool
	)
	err := f.db.With(ctx, func(c *database.Conn) error {
		var err error
		item, found, err = c.OldestPending(ctx)
		return err
	})
	if err != nil || !found {
		return err
	}

	// No connection is held while the thread is requested.
	status, err := f.checker.Status(ctx, item.URL)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.logger.Warn("failed to refresh filter item", "url", item.URL, "error", err)
	}

	if err == nil && isGone(status) {
		if err := f.remove(ctx, item.URL); err != nil {
			return err
		}
		f.addPending(-1)
		f.logger.Info("removed filter item for deleted thread", "url", item.URL)
		return nil
	}

	return f.db.With(ctx, func(c *database.Conn) error {
		return c.TouchFilter(ctx, item.URL, f.now())
	})
}

// RefreshList re-requests every pending thread, drops those answering
// 404 and rebuilds the pending count from the survivors.
func (f *Filter) RefreshList(ctx context.Context) error {
	if f.checker == nil {
		return ErrNoStatusChecker
	}

	items, err := f.PendingItems(ctx)
	if err != nil {
		return err
	}

	survivors := 0
	for _, item := range items {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		status, err := f.checker.Status(ctx, item.URL)
		if err != nil {
			f.logger.Warn("failed to recheck filter item", "url", item.URL, "error", err)
			survivors++
			continue
		}
		if isGone(status) {
			if err := f.remove(ctx, item.URL); err != nil {
				return err
			}
			f.logger.Info("removed filter item for deleted thread", "url", item.URL)
			continue
		}
		survivors++
	}

	f.setPending(int64(survivors))
	return nil
}

// RecheckAll runs RefreshList on its own goroutine. It returns false when
// a recheck is already running.
func (f *Filter) RecheckAll(ctx context.Context) bool {
	if !f.rechecking.CompareAndSwap(false, true) {
		return false
	}
	go func() {
		defer f.rechecking.Store(false)
		if err := f.RefreshList(ctx); err != nil {
			f.logger.Error("recheck of filter items failed", "error", err)
		}
	}()
	return true
}

// Rechecking reports whether RecheckAll is in progress.
func (f *Filter) Rechecking() bool {
	return f.rechecking.Load()
}

// StartUpdater schedules RefreshOldest every interval and a cache prune
// every hour. The jobs run with ctx.
func (f *Filter) StartUpdater(ctx context.Context, s *schedule.Scheduler, interval time.Duration) []schedule.ID {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	refresh := s.Every(interval, interval, func() {
		if err := f.RefreshOldest(ctx); err != nil {
			f.logger.Warn("filter refresh failed", "error", err)
		}
	})
	prune := s.Every(time.Hour, time.Hour, func() {
		if _, err := f.PruneCache(ctx); err != nil {
			f.logger.Warn("cache prune failed", "error", err)
		}
	})
	return []schedule.ID{refresh, prune}
}

func (f *Filter) remove(ctx context.Context, url string) error {
	return f.db.With(ctx, func(c *database.Conn) error {
		if err := c.DeleteFilter(ctx, url); err != nil {
			return err
		}
		return c.DeleteThumbs(ctx, url)
	})
}

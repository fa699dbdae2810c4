package filter

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/nao1215/boardaid/internal/database"
	"github.com/nao1215/boardaid/internal/model"
	"github.com/nao1215/boardaid/internal/stats"
)

// DefaultCacheMaxAge is how long a cache entry survives PruneCache.
const DefaultCacheMaxAge = 3 * time.Hour

// StatusChecker requests a URL and reports the HTTP status.
type StatusChecker interface {
	Status(ctx context.Context, url string) (int, error)
}

// Filter is the filter and cache store. It is safe for concurrent use.
type Filter struct {
	db          *database.BoardDB
	checker     StatusChecker
	sink        stats.Sink
	logger      *slog.Logger
	now         func() time.Time
	cacheMaxAge time.Duration

	fileNames   *BlockList
	postContent *BlockList

	pending    atomic.Int64
	rechecking atomic.Bool
}

// Option configures a Filter.
type Option func(*Filter)

// WithStatusChecker sets the client used by the refresh routines.
func WithStatusChecker(c StatusChecker) Option {
	return func(f *Filter) {
		f.checker = c
	}
}

// WithStats sets the sink receiving pending and cache counts.
func WithStats(s stats.Sink) Option {
	return func(f *Filter) {
		if s != nil {
			f.sink = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Filter) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(f *Filter) {
		f.now = now
	}
}

// WithCacheMaxAge sets the age after which PruneCache drops entries.
func WithCacheMaxAge(d time.Duration) Option {
	return func(f *Filter) {
		if d > 0 {
			f.cacheMaxAge = d
		}
	}
}

// New creates a Filter backed by db with empty block lists. db may be nil
// when only the block lists and their persistence are used.
func New(db *database.BoardDB, opts ...Option) *Filter {
	f := &Filter{
		db:          db,
		sink:        stats.Discard,
		logger:      slog.Default(),
		now:         time.Now,
		cacheMaxAge: DefaultCacheMaxAge,
		fileNames:   NewBlockList(),
		postContent: NewBlockList(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FileNames returns the file name block list.
func (f *Filter) FileNames() *BlockList {
	return f.fileNames
}

// PostContent returns the post content block list.
func (f *Filter) PostContent() *BlockList {
	return f.postContent
}

// Pending returns the number of threads waiting for review.
func (f *Filter) Pending() int {
	return int(f.pending.Load())
}

func (f *Filter) setPending(n int64) {
	if n < 0 {
		n = 0
	}
	f.pending.Store(n)
	f.sink.SetPendingFilters(int(n))
}

func (f *Filter) addPending(delta int64) {
	for {
		cur := f.pending.Load()
		next := max(cur+delta, 0)
		if f.pending.CompareAndSwap(cur, next) {
			f.sink.SetPendingFilters(int(next))
			return
		}
	}
}

// SyncPending loads the pending count from the database.
func (f *Filter) SyncPending(ctx context.Context) error {
	return f.db.With(ctx, func(c *database.Conn) error {
		n, err := c.CountFilters(ctx, model.FilterStatePending)
		if err != nil {
			return err
		}
		f.setPending(int64(n))
		return nil
	})
}

// FilterState returns the review state of a thread, FilterStateUnknown
// when it has none.
func (f *Filter) FilterState(ctx context.Context, url string) (model.FilterState, error) {
	var state model.FilterState
	err := f.db.With(ctx, func(c *database.Conn) error {
		var err error
		state, err = c.FilterState(ctx, url)
		return err
	})
	return state, err
}

// ReviewThread records item. A thread entering the pending state
// increments the pending count.
func (f *Filter) ReviewThread(ctx context.Context, item model.FilterItem) error {
	if item.State == model.FilterStateUnknown {
		return database.ErrUnknownState
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = f.now()
	}

	var wasPending bool
	err := f.db.With(ctx, func(c *database.Conn) error {
		prev, err := c.FilterState(ctx, item.URL)
		if err != nil {
			return err
		}
		wasPending = prev == model.FilterStatePending
		return c.UpsertFilter(ctx, item)
	})
	if err != nil {
		return err
	}

	switch {
	case item.State == model.FilterStatePending && !wasPending:
		f.addPending(1)
	case item.State != model.FilterStatePending && wasPending:
		f.addPending(-1)
	}
	f.logger.Info(reviewMessage(item.State), "url", item.URL, "board", item.Board, "reason", item.Reason, "state", item.State.String())
	return nil
}

func reviewMessage(state model.FilterState) string {
	switch state {
	case model.FilterStatePending:
		return "thread suspended for review"
	case model.FilterStateAllow:
		return "thread allowed"
	default:
		return "thread denied"
	}
}

// SetAllow marks a thread as allowed.
func (f *Filter) SetAllow(ctx context.Context, url string) error {
	return f.decide(ctx, url, model.FilterStateAllow)
}

// SetDeny marks a thread as denied.
func (f *Filter) SetDeny(ctx context.Context, url string) error {
	return f.decide(ctx, url, model.FilterStateDeny)
}

func (f *Filter) decide(ctx context.Context, url string, state model.FilterState) error {
	var wasPending bool
	err := f.db.With(ctx, func(c *database.Conn) error {
		prev, err := c.FilterState(ctx, url)
		if err != nil {
			return err
		}
		wasPending = prev == model.FilterStatePending
		if prev == model.FilterStateUnknown {
			return c.UpsertFilter(ctx, model.FilterItem{URL: url, State: state, UpdatedAt: f.now()})
		}
		_, err = c.UpdateFilterState(ctx, url, state)
		return err
	})
	if err != nil {
		return err
	}
	if wasPending {
		f.addPending(-1)
	}
	return nil
}

// PendingItems lists the threads waiting for review, oldest first.
func (f *Filter) PendingItems(ctx context.Context) ([]model.FilterItem, error) {
	var items []model.FilterItem
	err := f.db.With(ctx, func(c *database.Conn) error {
		var err error
		items, err = c.FiltersByState(ctx, model.FilterStatePending)
		return err
	})
	return items, err
}

// CheckPost returns the reason the post trips the content filter, or ""
// when it does not. The declared file name is checked before the post
// text; the first matching term wins.
func (f *Filter) CheckPost(p model.Post) string {
	if p.HasImage() {
		if term, ok := f.fileNames.Match(p.ImageName); ok {
			return "file name, " + term
		}
	}
	if p.HasComment() {
		if term, ok := f.postContent.Match(p.Comment); ok {
			return "post content, " + term
		}
	}
	return ""
}

// IsCached reports whether the image URL is in the cache.
func (f *Filter) IsCached(ctx context.Context, url string) (bool, error) {
	var cached bool
	err := f.db.With(ctx, func(c *database.Conn) error {
		var err error
		cached, err = c.IsCached(ctx, url)
		return err
	})
	return cached, err
}

// Cache inserts url into the cache or refreshes its timestamp.
func (f *Filter) Cache(ctx context.Context, url string) error {
	return f.db.With(ctx, func(c *database.Conn) error {
		if err := c.UpsertCache(ctx, url, f.now()); err != nil {
			return err
		}
		n, err := c.TableSize(ctx, database.TableCache)
		if err != nil {
			return err
		}
		f.sink.SetCacheSize(n)
		return nil
	})
}

// PruneCache drops cache entries older than the cache max age and returns
// how many were removed.
func (f *Filter) PruneCache(ctx context.Context) (int64, error) {
	var removed int64
	err := f.db.With(ctx, func(c *database.Conn) error {
		var err error
		removed, err = c.PruneCache(ctx, f.now().Add(-f.cacheMaxAge))
		if err != nil {
			return err
		}
		n, err := c.TableSize(ctx, database.TableCache)
		if err != nil {
			return err
		}
		f.sink.SetCacheSize(n)
		return nil
	})
	if err == nil && removed > 0 {
		f.logger.Debug("pruned image cache", "removed", removed)
	}
	return removed, err
}

// Exists reports whether hash is recorded as archived, do-not-want or
// already downloaded.
func (f *Filter) Exists(ctx context.Context, hash string) (bool, error) {
	var found bool
	err := f.db.With(ctx, func(c *database.Conn) error {
		for _, table := range []database.Table{database.TableArchive, database.TableDnw, database.TableHash} {
			ok, err := c.HasHash(ctx, table, hash)
			if err != nil {
				return err
			}
			if ok {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}

// AddHash records a downloaded file. Storage failures are returned to
// the caller.
func (f *Filter) AddHash(ctx context.Context, rec model.HashRecord) error {
	return f.db.With(ctx, func(c *database.Conn) error {
		return c.InsertHash(ctx, database.TableHash, rec)
	})
}

// IsBlacklisted reports whether hash is blacklisted. A blacklisted hash
// is purged from the hash, archive and dnw tables.
func (f *Filter) IsBlacklisted(ctx context.Context, hash string) (bool, error) {
	var listed bool
	err := f.db.With(ctx, func(c *database.Conn) error {
		var err error
		listed, err = c.HasHash(ctx, database.TableBlacklist, hash)
		if err != nil || !listed {
			return err
		}
		for _, table := range []database.Table{database.TableHash, database.TableArchive, database.TableDnw} {
			if err := c.DeleteHash(ctx, table, hash); err != nil {
				return err
			}
		}
		return nil
	})
	return listed, err
}

// AddThumb stores a thumbnail of a suspended thread.
func (f *Filter) AddThumb(ctx context.Context, thread, filename string, data []byte) error {
	return f.db.With(ctx, func(c *database.Conn) error {
		return c.UpsertThumb(ctx, model.Thumbnail{Thread: thread, Filename: filename, Data: data})
	})
}

// Thumbs returns the thumbnails stored for a thread.
func (f *Filter) Thumbs(ctx context.Context, thread string) ([]model.Thumbnail, error) {
	var thumbs []model.Thumbnail
	err := f.db.With(ctx, func(c *database.Conn) error {
		var err error
		thumbs, err = c.Thumbs(ctx, thread)
		return err
	})
	return thumbs, err
}

// isGone reports whether status means the thread no longer exists.
func isGone(status int) bool {
	return status == http.StatusNotFound
}

package download

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/boardaid/internal/model"
	"github.com/nao1215/boardaid/internal/stats"
)

// Loader defaults.
const (
	// DefaultWorkers is the number of concurrent downloads.
	DefaultWorkers = 2

	// DefaultDownloadSleep is the pause before every download.
	DefaultDownloadSleep = time.Second

	// DefaultMaxImageSize caps a single image download.
	DefaultMaxImageSize = 20 * 1024 * 1024
)

const waitPoll = 20 * time.Millisecond

// Fetcher downloads a binary payload.
type Fetcher interface {
	FetchBinary(ctx context.Context, url string, maxSize int64) ([]byte, error)
}

// Hooks customize a Loader. Nil hooks are skipped.
type Hooks struct {
	// BeforeAdd runs before an item is queued. Returning true drops the item.
	BeforeAdd func(ctx context.Context, item model.DownloadItem) bool

	// AfterAdd runs after an item was queued.
	AfterAdd func(item model.DownloadItem)

	// AfterDownload receives the payload, or the fetch error when data is nil.
	AfterDownload func(ctx context.Context, item model.DownloadItem, data []byte, err error)

	// AfterProcess runs after AfterDownload for every finished item.
	AfterProcess func(item model.DownloadItem)

	// AfterClear runs after the queue was emptied by Clear.
	AfterClear func()
}

// Loader is a fixed-size pool of download workers fed by a queue.
type Loader struct {
	fetcher Fetcher
	hooks   Hooks
	sink    stats.Sink
	logger  *slog.Logger
	workers int
	maxSize int64
	sleep   atomic.Int64

	// pending counts queued and in-flight items.
	pending atomic.Int64

	queue  *queue
	cancel context.CancelFunc
	group  errgroup.Group
	once   sync.Once
}

// Option configures a Loader.
type Option func(*Loader)

// WithWorkers sets the number of workers.
func WithWorkers(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.workers = n
		}
	}
}

// WithHooks sets the lifecycle hooks.
func WithHooks(h Hooks) Option {
	return func(l *Loader) {
		l.hooks = h
	}
}

// WithDownloadSleep sets the initial throttle.
func WithDownloadSleep(d time.Duration) Option {
	return func(l *Loader) {
		l.sleep.Store(int64(max(d, 0)))
	}
}

// WithMaxSize caps a single download.
func WithMaxSize(n int64) Option {
	return func(l *Loader) {
		if n > 0 {
			l.maxSize = n
		}
	}
}

// WithStats reports the queue depth to s.
func WithStats(s stats.Sink) Option {
	return func(l *Loader) {
		if s != nil {
			l.sink = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader creates a Loader and starts its workers. The workers stop
// when ctx ends or Shutdown is called.
func NewLoader(ctx context.Context, fetcher Fetcher, opts ...Option) *Loader {
	l := &Loader{
		fetcher: fetcher,
		sink:    stats.Discard,
		logger:  slog.Default(),
		workers: DefaultWorkers,
		maxSize: DefaultMaxImageSize,
		queue:   newQueue(),
	}
	l.sleep.Store(int64(DefaultDownloadSleep))
	for _, opt := range opts {
		opt(l)
	}

	ctx, l.cancel = context.WithCancel(ctx)
	for i := range l.workers {
		l.group.Go(func() error {
			l.work(ctx, i)
			return nil
		})
	}
	return l
}

// Add queues an image. It is a no-op when BeforeAdd drops the item or
// the URL is already queued.
func (l *Loader) Add(ctx context.Context, url, path string) {
	item := model.DownloadItem{URL: url, Path: path}
	if l.hooks.BeforeAdd != nil && l.hooks.BeforeAdd(ctx, item) {
		return
	}
	l.pending.Add(1)
	if !l.queue.push(item) {
		l.pending.Add(-1)
		return
	}
	l.sink.SetQueueDepth(l.queue.len())
	if l.hooks.AfterAdd != nil {
		l.hooks.AfterAdd(item)
	}
}

// Contains reports whether url is waiting in the queue.
func (l *Loader) Contains(url string) bool {
	return l.queue.contains(url)
}

// QueueLen returns the number of waiting items.
func (l *Loader) QueueLen() int {
	return l.queue.len()
}

// Clear drops every waiting item. Downloads in progress continue.
func (l *Loader) Clear() int {
	n := l.queue.clear()
	l.pending.Add(-int64(n))
	l.sink.SetQueueDepth(0)
	if l.hooks.AfterClear != nil {
		l.hooks.AfterClear()
	}
	return n
}

// Pending returns the number of queued and in-flight items.
func (l *Loader) Pending() int {
	return int(l.pending.Load())
}

// Wait blocks until every queued item was processed or ctx ends.
func (l *Loader) Wait(ctx context.Context) error {
	ticker := time.NewTicker(waitPoll)
	defer ticker.Stop()
	for l.Pending() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// SetDownloadSleep changes the throttle applied before each download.
func (l *Loader) SetDownloadSleep(d time.Duration) {
	l.sleep.Store(int64(max(d, 0)))
}

// DownloadSleep returns the current throttle.
func (l *Loader) DownloadSleep() time.Duration {
	return time.Duration(l.sleep.Load())
}

// Shutdown clears the queue, interrupts the workers and waits for them.
// Calling it more than once is safe.
func (l *Loader) Shutdown() {
	l.once.Do(func() {
		l.Clear()
		l.cancel()
		_ = l.group.Wait()
	})
}

func (l *Loader) work(ctx context.Context, id int) {
	for {
		item, err := l.queue.take(ctx)
		if err != nil {
			return
		}

		if !l.throttle(ctx) {
			l.logger.Debug("download interrupted", "worker", id, "url", item.URL)
			return
		}

		data, err := l.fetcher.FetchBinary(ctx, item.URL, l.maxSize)
		if ctx.Err() != nil {
			l.logger.Debug("download interrupted", "worker", id, "url", item.URL)
			return
		}

		if l.hooks.AfterDownload != nil {
			l.hooks.AfterDownload(ctx, item, data, err)
		}
		l.sink.SetQueueDepth(l.queue.len())
		if l.hooks.AfterProcess != nil {
			l.hooks.AfterProcess(item)
		}
		l.pending.Add(-1)
	}
}

// throttle sleeps for the download sleep. It returns false when ctx ends first.
func (l *Loader) throttle(ctx context.Context) bool {
	d := l.DownloadSleep()
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

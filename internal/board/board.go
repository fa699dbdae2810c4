package board

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/nao1215/boardaid/internal/model"
	"github.com/nao1215/boardaid/internal/schedule"
	"github.com/nao1215/boardaid/internal/site"
)

// DefaultInterval is the time between two crawls of a board.
const DefaultInterval = time.Hour

// labelLayout formats the run label shown by Status.
const labelLayout = "15:04:05"

// DocumentFetcher loads and parses HTML pages.
type DocumentFetcher interface {
	FetchDocument(ctx context.Context, url string) (*goquery.Document, error)
}

// FilterStore is the part of the filter a crawl consults.
type FilterStore interface {
	FilterState(ctx context.Context, url string) (model.FilterState, error)
	CheckPost(p model.Post) string
	ReviewThread(ctx context.Context, item model.FilterItem) error
	IsCached(ctx context.Context, url string) (bool, error)
}

// ThumbnailFetcher stores thumbnails of a suspended thread.
type ThumbnailFetcher interface {
	DownloadThumbs(ctx context.Context, threadURL string, posts []model.Post) int
}

// ImageQueue accepts images for download.
type ImageQueue interface {
	Add(ctx context.Context, url, path string)
}

// Deps are the collaborators of a Board.
type Deps struct {
	Pages  DocumentFetcher
	Filter FilterStore
	Thumbs ThumbnailFetcher
	Images ImageQueue
}

// Board crawls one board of an imageboard.
type Board struct {
	code     string
	url      string
	strategy site.Strategy
	deps     Deps
	sched    *schedule.Scheduler
	logger   *slog.Logger
	interval time.Duration
	delay    time.Duration
	now      func() time.Time

	mu    sync.Mutex
	state model.BoardState
	label string
	entry schedule.ID

	// gen changes on every Start and Stop. A crawl stops as soon as the
	// generation it was started with is no longer current.
	gen atomic.Uint64
}

// Option configures a Board.
type Option func(*Board)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Board) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithInterval sets the time between crawls.
func WithInterval(d time.Duration) Option {
	return func(b *Board) {
		if d > 0 {
			b.interval = d
		}
	}
}

// WithDelay sets the default start delay used by StartDefault.
func WithDelay(d time.Duration) Option {
	return func(b *Board) {
		if d >= 0 {
			b.delay = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *Board) {
		if now != nil {
			b.now = now
		}
	}
}

// New creates an idle board. code is the board short code, e.g. "wg".
func New(code, boardURL string, strategy site.Strategy, sched *schedule.Scheduler, deps Deps, opts ...Option) *Board {
	b := &Board{
		code:     code,
		url:      boardURL,
		strategy: strategy,
		deps:     deps,
		sched:    sched,
		logger:   slog.Default(),
		interval: DefaultInterval,
		now:      time.Now,
		state:    model.BoardIdle,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("board", code)
	return b
}

// Code returns the board short code.
func (b *Board) Code() string { return b.code }

// URL returns the board URL.
func (b *Board) URL() string { return b.url }

// Delay returns the configured start delay.
func (b *Board) Delay() time.Duration { return b.delay }

// State returns whether the board is running.
func (b *Board) State() model.BoardState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// String implements fmt.Stringer.
func (b *Board) String() string {
	return "/" + b.code + "/"
}

// Status returns "/<code>/ <label> idle|running". It never waits for a
// crawl in progress.
func (b *Board) Status() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return fmt.Sprintf("/%s/ %s %s", b.code, b.label, b.state)
}

// Start schedules the crawl to run after delay and then every interval.
// A board that is already running is rescheduled. Scheduled crawls run
// with ctx.
func (b *Board) Start(ctx context.Context, delay time.Duration) {
	delay = max(delay, 0)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.entry != 0 {
		b.sched.Remove(b.entry)
	}
	gen := b.gen.Add(1)
	b.state = model.BoardRunning
	b.label = b.now().Add(delay).Format(labelLayout)
	b.entry = b.sched.Every(delay, b.interval, func() {
		b.setLabel(gen)
		b.crawl(ctx, gen)
	})
	b.logger.Info("board started", "delay", delay, "interval", b.interval)
}

// StartDefault starts the board with its configured delay.
func (b *Board) StartDefault(ctx context.Context) {
	b.Start(ctx, b.delay)
}

// Stop cancels the schedule. A crawl in progress ends at the next page or
// thread boundary.
func (b *Board) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.entry != 0 {
		b.sched.Remove(b.entry)
		b.entry = 0
	}
	b.gen.Add(1)
	b.state = model.BoardIdle
	b.label = ""
	b.logger.Info("board is stopping")
}

// RunOnce crawls the board once and returns when the crawl is done.
// It does not change the board state.
func (b *Board) RunOnce(ctx context.Context) {
	b.crawl(ctx, b.gen.Load())
}

func (b *Board) setLabel(gen uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.gen.Load() == gen {
		b.label = b.now().Format(labelLayout)
	}
}

// crawl runs one cycle. It returns early when ctx ends or the board
// generation changes.
func (b *Board) crawl(ctx context.Context, gen uint64) {
	logger := b.logger.With("run", uuid.NewString())
	stopped := func() bool {
		return ctx.Err() != nil || b.gen.Load() != gen
	}

	index := b.load(ctx, logger, b.url)
	pageURLs := site.PageURLs(b.url, b.strategy.BoardPageCount(index))
	logger.Info("found board pages", "pages", len(pageURLs))

	var threads []model.ThreadLink
	for i, pageURL := range pageURLs {
		if stopped() {
			logger.Info("crawl stopped while parsing pages")
			return
		}
		doc := index
		if i > 0 {
			doc = b.load(ctx, logger, pageURL)
		}
		threads = append(threads, b.strategy.ParsePage(doc)...)
	}
	logger.Info("parsed board pages", "threads", len(threads))

	threads = b.dropBlocked(ctx, logger, threads)
	logger.Info("threads left after filtering", "threads", len(threads))

	for _, thread := range threads {
		if stopped() {
			logger.Info("crawl stopped while processing threads")
			return
		}
		b.processThread(ctx, logger, thread)
	}
	logger.Info("crawl finished")
}

// dropBlocked removes threads that are denied or waiting for review.
func (b *Board) dropBlocked(ctx context.Context, logger *slog.Logger, threads []model.ThreadLink) []model.ThreadLink {
	kept := threads[:0]
	for _, t := range threads {
		state, err := b.deps.Filter.FilterState(ctx, t.URL)
		if err != nil {
			logger.Warn("failed to read filter state", "thread", t.URL, "error", err)
			continue
		}
		if state.Skips() {
			logger.Debug("thread is blocked by the filter", "thread", t.URL, "state", state.String())
			continue
		}
		kept = append(kept, t)
	}
	return kept
}

func (b *Board) processThread(ctx context.Context, logger *slog.Logger, thread model.ThreadLink) {
	posts := b.strategy.ParseThread(b.load(ctx, logger, thread.URL))

	for _, p := range posts {
		if reason := b.deps.Filter.CheckPost(p); reason != "" {
			b.suspend(ctx, logger, thread.URL, reason, posts)
			return
		}
	}

	threadNum := b.strategy.ThreadNumber(thread.URL)
	queued := 0
	for _, p := range posts {
		if !p.HasImage() {
			continue
		}
		cached, err := b.deps.Filter.IsCached(ctx, p.ImageURL)
		if err != nil {
			logger.Warn("failed to check cache", "url", p.ImageURL, "error", err)
			continue
		}
		if cached {
			continue
		}

		rel, err := ImagePath(b.code, threadNum, p.ImageName)
		if err != nil {
			logger.Warn("failed to add image for download", "url", p.ImageURL, "name", p.ImageName, "thread", thread.URL, "error", err)
			continue
		}
		b.deps.Images.Add(ctx, p.ImageURL, rel)
		queued++
	}
	logger.Info("queued images", "thread", thread.URL, "images", queued)
}

func (b *Board) suspend(ctx context.Context, logger *slog.Logger, threadURL, reason string, posts []model.Post) {
	logger.Info("suspending thread", "thread", threadURL, "reason", reason)
	err := b.deps.Filter.ReviewThread(ctx, model.FilterItem{
		URL:    threadURL,
		Board:  b.code,
		Reason: reason,
		State:  model.FilterStatePending,
	})
	if err != nil {
		logger.Error("failed to suspend thread", "thread", threadURL, "error", err)
	}
	if b.deps.Thumbs != nil {
		b.deps.Thumbs.DownloadThumbs(ctx, threadURL, posts)
	}
}

// load fetches a page, returning an empty document on failure.
func (b *Board) load(ctx context.Context, logger *slog.Logger, pageURL string) *goquery.Document {
	doc, err := b.deps.Pages.FetchDocument(ctx, pageURL)
	if err != nil {
		logger.Warn("failed to load page", "url", pageURL, "error", err)
		return site.EmptyDocument()
	}
	return doc
}

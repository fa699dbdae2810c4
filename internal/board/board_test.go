package board

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/boardaid/internal/model"
	"github.com/nao1215/boardaid/internal/schedule"
	"github.com/nao1215/boardaid/internal/site"
)

const boardURL = "http://boards.example/p/"

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func indexPage(pages int, threads ...int) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="pages">`)
	for i := range pages {
		fmt.Fprintf(&b, `[<a href="%d">%d</a>] `, i, i)
	}
	b.WriteString(`</div>`)
	for _, n := range threads {
		fmt.Fprintf(&b, `<a class="replylink" href="/p/res/%d">Reply</a>`, n)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

type testPost struct {
	comment string
	image   string
	name    string
}

func threadPage(posts ...testPost) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="thread">`)
	for _, p := range posts {
		b.WriteString(`<div class="postContainer"><div class="post">`)
		if p.image != "" {
			fmt.Fprintf(&b, `<div class="fileText">File: <a href="%s">%s</a></div>`, p.image, p.name)
		}
		fmt.Fprintf(&b, `<blockquote class="postMessage">%s</blockquote>`, p.comment)
		b.WriteString(`</div></div>`)
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

// fakePages serves HTML from memory. Unknown URLs fail.
type fakePages struct {
	mu      sync.Mutex
	pages   map[string]string
	fetched []string
	onFetch func(url string)
}

func (p *fakePages) FetchDocument(_ context.Context, url string) (*goquery.Document, error) {
	p.mu.Lock()
	p.fetched = append(p.fetched, url)
	body, ok := p.pages[url]
	hook := p.onFetch
	p.mu.Unlock()

	if hook != nil {
		hook(url)
	}
	if !ok {
		return nil, errors.New("not found")
	}
	return site.ParseDocument(strings.NewReader(body), url)
}

func (p *fakePages) Fetched() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.fetched...)
}

type fakeFilter struct {
	mu       sync.Mutex
	states   map[string]model.FilterState
	cached   map[string]bool
	blocked  string
	reviewed []model.FilterItem
}

func newFakeFilter() *fakeFilter {
	return &fakeFilter{states: map[string]model.FilterState{}, cached: map[string]bool{}}
}

func (f *fakeFilter) FilterState(_ context.Context, url string) (model.FilterState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.states[url], nil
}

func (f *fakeFilter) CheckPost(p model.Post) string {
	if f.blocked != "" && strings.Contains(p.Comment, f.blocked) {
		return "post content, " + f.blocked
	}
	return ""
}

func (f *fakeFilter) ReviewThread(_ context.Context, item model.FilterItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reviewed = append(f.reviewed, item)
	f.states[item.URL] = item.State
	return nil
}

func (f *fakeFilter) IsCached(_ context.Context, url string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cached[url], nil
}

type fakeThumbs struct {
	mu      sync.Mutex
	threads []string
}

func (f *fakeThumbs) DownloadThumbs(_ context.Context, threadURL string, posts []model.Post) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threads = append(f.threads, threadURL)
	return len(posts)
}

type fakeQueue struct {
	mu    sync.Mutex
	items []model.DownloadItem
}

func (q *fakeQueue) Add(_ context.Context, url, path string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, model.DownloadItem{URL: url, Path: path})
}

func (q *fakeQueue) Items() []model.DownloadItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]model.DownloadItem(nil), q.items...)
}

type fixture struct {
	pages  *fakePages
	filter *fakeFilter
	thumbs *fakeThumbs
	queue  *fakeQueue
	board  *Board
}

func newFixture(t *testing.T, pages map[string]string, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		pages:  &fakePages{pages: pages},
		filter: newFakeFilter(),
		thumbs: &fakeThumbs{},
		queue:  &fakeQueue{},
	}
	sched := schedule.New(quietLogger())
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	f.board = New("p", boardURL, site.NewFourChan(), sched, Deps{
		Pages:  f.pages,
		Filter: f.filter,
		Thumbs: f.thumbs,
		Images: f.queue,
	}, opts...)
	return f
}

func TestRunOnce(t *testing.T) {
	t.Parallel()

	pages := map[string]string{
		boardURL:       indexPage(2, 100, 200),
		boardURL + "1": indexPage(2, 300, 400),
		"http://boards.example/p/res/100": threadPage(
			testPost{comment: "first", image: "http://i.example/p/src/1.jpg", name: "lake.jpg"},
			testPost{comment: "text only"},
			testPost{image: "http://i.example/p/src/2.jpg", name: "cached.jpg"},
			testPost{image: "http://i.example/p/src/3.jpg", name: `what?.jpg`},
		),
		"http://boards.example/p/res/200": threadPage(
			testPost{image: "http://i.example/p/src/4.jpg", name: "denied.jpg"},
		),
		"http://boards.example/p/res/300": threadPage(
			testPost{comment: "harmless", image: "http://i.example/p/src/5.jpg", name: "a.jpg"},
			testPost{comment: "contains spoiler here"},
		),
	}
	f := newFixture(t, pages)
	f.filter.blocked = "spoiler"
	f.filter.cached["http://i.example/p/src/2.jpg"] = true
	f.filter.states["http://boards.example/p/res/200"] = model.FilterStateDeny

	f.board.RunOnce(context.Background())

	want := []model.DownloadItem{
		{URL: "http://i.example/p/src/1.jpg", Path: "p/100/lake.jpg"},
		{URL: "http://i.example/p/src/3.jpg", Path: "p/100/what_.jpg"},
	}
	got := f.queue.Items()
	if len(got) != len(want) {
		t.Fatalf("queued %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("item %d: got %+v, want %+v", i, got[i], want[i])
		}
	}

	if len(f.filter.reviewed) != 1 {
		t.Fatalf("expected one suspended thread, got %v", f.filter.reviewed)
	}
	item := f.filter.reviewed[0]
	if item.URL != "http://boards.example/p/res/300" || item.Board != "p" ||
		item.Reason != "post content, spoiler" || item.State != model.FilterStatePending {
		t.Errorf("unexpected review item %+v", item)
	}
	if len(f.thumbs.threads) != 1 || f.thumbs.threads[0] != item.URL {
		t.Errorf("expected thumbnails of the suspended thread, got %v", f.thumbs.threads)
	}

	for _, u := range f.pages.Fetched() {
		if u == "http://boards.example/p/res/200" {
			t.Error("denied thread must not be fetched")
		}
	}
}

func TestRunOnceSkipsPendingThreadsOnNextCycle(t *testing.T) {
	t.Parallel()

	pages := map[string]string{
		boardURL: indexPage(1, 100),
		"http://boards.example/p/res/100": threadPage(
			testPost{comment: "spoiler", image: "http://i.example/p/src/1.jpg", name: "a.jpg"},
		),
	}
	f := newFixture(t, pages)
	f.filter.blocked = "spoiler"

	f.board.RunOnce(context.Background())
	f.board.RunOnce(context.Background())

	threadFetches := 0
	for _, u := range f.pages.Fetched() {
		if u == "http://boards.example/p/res/100" {
			threadFetches++
		}
	}
	if threadFetches != 1 {
		t.Errorf("pending thread fetched %d times, want 1", threadFetches)
	}
	if len(f.queue.Items()) != 0 {
		t.Errorf("suspended thread must not queue images, got %v", f.queue.Items())
	}
}

func TestRunOnceToleratesFetchFailures(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string]string{})
	f.board.RunOnce(context.Background())

	if got := f.pages.Fetched(); len(got) != 1 || got[0] != boardURL {
		t.Errorf("expected only the index to be requested, got %v", got)
	}
	if len(f.queue.Items()) != 0 {
		t.Error("nothing may be queued")
	}
}

func TestStopEndsCrawlBetweenThreads(t *testing.T) {
	t.Parallel()

	pages := map[string]string{
		boardURL:                          indexPage(1, 100, 200),
		"http://boards.example/p/res/100": threadPage(testPost{image: "http://i.example/1.jpg", name: "1.jpg"}),
		"http://boards.example/p/res/200": threadPage(testPost{image: "http://i.example/2.jpg", name: "2.jpg"}),
	}
	f := newFixture(t, pages)
	f.pages.onFetch = func(url string) {
		if url == "http://boards.example/p/res/100" {
			f.board.Stop()
		}
	}

	f.board.RunOnce(context.Background())

	for _, u := range f.pages.Fetched() {
		if u == "http://boards.example/p/res/200" {
			t.Error("crawl continued after stop")
		}
	}
	// The thread in flight when Stop was called still completes.
	if items := f.queue.Items(); len(items) != 1 || items[0].Path != "p/100/1.jpg" {
		t.Errorf("unexpected queue %v", items)
	}
}

func TestRunOnceHonoursContext(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string]string{
		boardURL:                          indexPage(1, 100),
		"http://boards.example/p/res/100": threadPage(testPost{image: "http://i.example/1.jpg", name: "1.jpg"}),
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f.board.RunOnce(ctx)
	if len(f.queue.Items()) != 0 {
		t.Error("cancelled crawl must not queue images")
	}
}

func TestStartStopStatus(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, map[string]string{}, WithClock(func() time.Time { return now }), WithDelay(30*time.Minute))

	if got := f.board.Status(); got != "/p/  idle" {
		t.Errorf("idle status = %q", got)
	}

	f.board.Start(context.Background(), time.Hour)
	if got := f.board.Status(); got != "/p/ 13:00:00 running" {
		t.Errorf("running status = %q", got)
	}
	if f.board.State() != model.BoardRunning {
		t.Error("expected running state")
	}

	f.board.StartDefault(context.Background())
	if got := f.board.Status(); got != "/p/ 12:30:00 running" {
		t.Errorf("restarted status = %q", got)
	}

	f.board.Stop()
	if got := f.board.Status(); got != "/p/  idle" {
		t.Errorf("stopped status = %q", got)
	}
	if f.board.String() != "/p/" {
		t.Errorf("String() = %q", f.board.String())
	}
}

func TestScheduledCrawlRuns(t *testing.T) {
	t.Parallel()

	pages := map[string]string{
		boardURL:                          indexPage(1, 100),
		"http://boards.example/p/res/100": threadPage(testPost{image: "http://i.example/1.jpg", name: "1.jpg"}),
	}
	f := newFixture(t, pages)
	f.board.sched.Start()
	defer f.board.sched.Stop(context.Background())

	f.board.Start(context.Background(), 0)
	defer f.board.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for len(f.queue.Items()) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if len(f.queue.Items()) != 1 {
		t.Fatalf("expected the scheduled crawl to queue one image, got %v", f.queue.Items())
	}
}

package download

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/boardaid/internal/fetch"
	"github.com/nao1215/boardaid/internal/model"
	"github.com/nao1215/boardaid/internal/stats"
)

type memCache struct {
	mu     sync.Mutex
	cached map[string]int
}

func newMemCache(urls ...string) *memCache {
	c := &memCache{cached: make(map[string]int)}
	for _, u := range urls {
		c.cached[u] = 1
	}
	return c
}

func (c *memCache) IsCached(_ context.Context, url string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cached[url] > 0, nil
}

func (c *memCache) Cache(_ context.Context, url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cached[url]++
	return nil
}

func (c *memCache) count(url string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cached[url]
}

type memWriter struct {
	mu    sync.Mutex
	files map[string][]byte
	err   error
}

func (w *memWriter) Write(_ context.Context, path string, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	if w.files == nil {
		w.files = make(map[string][]byte)
	}
	w.files[path] = data
	return nil
}

func (w *memWriter) file(path string) ([]byte, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	data, ok := w.files[path]
	return data, ok
}

func TestImageHandlerBeforeAdd(t *testing.T) {
	t.Parallel()

	cache := newMemCache("http://i/seen.jpg")
	h := NewImageHandler(cache, &memWriter{}, WithHandlerLogger(quietLogger()))
	hooks := h.Hooks()
	ctx := context.Background()

	if !hooks.BeforeAdd(ctx, model.DownloadItem{URL: "http://i/seen.jpg"}) {
		t.Error("cached url must be dropped")
	}
	if cache.count("http://i/seen.jpg") != 2 {
		t.Error("dropping a cached url must refresh its timestamp")
	}
	if hooks.BeforeAdd(ctx, model.DownloadItem{URL: "http://i/new.jpg"}) {
		t.Error("new url must be queued")
	}
}

func TestImageHandlerAfterDownload(t *testing.T) {
	t.Parallel()

	t.Run("payload is written and cached", func(t *testing.T) {
		t.Parallel()
		cache := newMemCache()
		writer := &memWriter{}
		rec := stats.NewRecorder(0)
		h := NewImageHandler(cache, writer, WithHandlerStats(rec), WithHandlerLogger(quietLogger()))

		item := model.DownloadItem{URL: "http://i/a.jpg", Path: "g/1/a.jpg"}
		h.Hooks().AfterDownload(context.Background(), item, []byte("jpeg"), nil)

		if data, ok := writer.file("g/1/a.jpg"); !ok || string(data) != "jpeg" {
			t.Errorf("expected file to be written, got %q", data)
		}
		if cache.count(item.URL) != 1 {
			t.Error("expected url to be cached")
		}
		if snap := rec.Snapshot(); snap.Downloads != 1 || snap.Bytes != 4 {
			t.Errorf("unexpected stats: %+v", snap)
		}
	})

	t.Run("write failure still caches", func(t *testing.T) {
		t.Parallel()
		cache := newMemCache()
		h := NewImageHandler(cache, &memWriter{err: errors.New("disk full")}, WithHandlerLogger(quietLogger()))
		h.Hooks().AfterDownload(context.Background(), model.DownloadItem{URL: "http://i/a.jpg"}, []byte("x"), nil)
		if cache.count("http://i/a.jpg") != 1 {
			t.Error("expected url to be cached")
		}
	})

	for _, code := range []int{http.StatusNotFound, http.StatusInternalServerError} {
		t.Run(http.StatusText(code)+" is cached", func(t *testing.T) {
			t.Parallel()
			cache := newMemCache()
			h := NewImageHandler(cache, &memWriter{}, WithHandlerLogger(quietLogger()))
			err := &fetch.StatusError{URL: "http://i/gone.jpg", Code: code}
			h.Hooks().AfterDownload(context.Background(), model.DownloadItem{URL: "http://i/gone.jpg"}, nil, err)
			if cache.count("http://i/gone.jpg") != 1 {
				t.Error("dead link must be cached")
			}
		})
	}

	t.Run("transport errors are not cached", func(t *testing.T) {
		t.Parallel()
		cache := newMemCache()
		h := NewImageHandler(cache, &memWriter{}, WithHandlerLogger(quietLogger()))
		h.Hooks().AfterDownload(context.Background(), model.DownloadItem{URL: "http://i/a.jpg"}, nil, errors.New("reset"))
		if cache.count("http://i/a.jpg") != 0 {
			t.Error("transient failure must not be cached")
		}
	})
}

func TestImageHandlerExitsOnServiceUnavailable(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client, err := fetch.NewClient()
	if err != nil {
		t.Fatal(err)
	}

	exited := make(chan int, 1)
	var loader *Loader
	h := NewImageHandler(newMemCache(), &memWriter{},
		WithHandlerLogger(quietLogger()),
		WithExit(func(code int) {
			exited <- code
			go loader.Shutdown()
		}),
	)
	loader = NewLoader(context.Background(), client,
		WithWorkers(1),
		WithDownloadSleep(0),
		WithHooks(h.Hooks()),
		WithLogger(quietLogger()),
	)
	defer loader.Shutdown()

	ctx := context.Background()
	loader.Add(ctx, srv.URL+"/a.jpg", "g/1/a.jpg")

	select {
	case code := <-exited:
		if code != ExitRateLimited {
			t.Errorf("expected exit code %d, got %d", ExitRateLimited, code)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("handler did not exit")
	}

	// Once halted nothing new is accepted.
	loader.Add(ctx, srv.URL+"/b.jpg", "g/1/b.jpg")
	if loader.Contains(srv.URL + "/b.jpg") {
		t.Error("halted handler must drop new items")
	}
	time.Sleep(50 * time.Millisecond)
	if hits.Load() != 1 {
		t.Errorf("expected a single request, got %d", hits.Load())
	}
}

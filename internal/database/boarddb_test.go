package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/boardaid/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T, opts Options) *BoardDB {
	t.Helper()

	db, err := Open(t.TempDir(), opts)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// withConn runs fn on a pooled connection and fails the test on error.
func withConn(t *testing.T, db *BoardDB, fn func(*Conn) error) {
	t.Helper()
	if err := db.With(context.Background(), fn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, DBFileName)); err != nil {
			t.Errorf("database file was not created: %v", err)
		}
		if db.Path() != filepath.Join(dbDir, DBFileName) {
			t.Errorf("unexpected path: %s", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false fails for missing database", func(t *testing.T) {
		t.Parallel()

		opts := DefaultOptions()
		opts.CreateIfNotExists = false
		if _, err := Open(t.TempDir(), opts); err == nil {
			t.Error("expected error for missing database")
		}
	})

	t.Run("reopening keeps data", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		withConn(t, db, func(c *Conn) error {
			return c.UpsertCache(context.Background(), "http://a/1.jpg", time.Now())
		})
		_ = db.Close()

		db, err = Open(dir, DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		defer db.Close()
		withConn(t, db, func(c *Conn) error {
			ok, err := c.IsCached(context.Background(), "http://a/1.jpg")
			if err == nil && !ok {
				t.Error("expected cached url to survive reopening")
			}
			return err
		})
	})
}

func TestPool(t *testing.T) {
	t.Parallel()

	t.Run("acquire times out when exhausted", func(t *testing.T) {
		t.Parallel()

		opts := DefaultOptions()
		opts.PoolSize = 1
		opts.AcquireTimeout = 50 * time.Millisecond
		db := setupTestDB(t, opts)

		first, err := db.Acquire(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		start := time.Now()
		if _, err := db.Acquire(context.Background()); !errors.Is(err, ErrPoolExhausted) {
			t.Fatalf("expected ErrPoolExhausted, got %v", err)
		}
		if time.Since(start) < 40*time.Millisecond {
			t.Error("acquire gave up before the timeout")
		}

		db.Release(first)
		db.Release(first) // double release is a no-op

		second, err := db.Acquire(context.Background())
		if err != nil {
			t.Fatalf("expected connection after release, got %v", err)
		}
		db.Release(second)
	})

	t.Run("cancelled context is reported as such", func(t *testing.T) {
		t.Parallel()

		opts := DefaultOptions()
		opts.PoolSize = 1
		db := setupTestDB(t, opts)

		held, err := db.Acquire(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		defer db.Release(held)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := db.Acquire(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("With releases on error", func(t *testing.T) {
		t.Parallel()

		opts := DefaultOptions()
		opts.PoolSize = 1
		opts.AcquireTimeout = 100 * time.Millisecond
		db := setupTestDB(t, opts)

		boom := errors.New("boom")
		if err := db.With(context.Background(), func(*Conn) error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
		if err := db.With(context.Background(), func(*Conn) error { return nil }); err != nil {
			t.Errorf("connection was not released: %v", err)
		}
	})

	t.Run("concurrent writers", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t, DefaultOptions())
		var wg sync.WaitGroup
		errs := make(chan error, 20)
		for i := range 20 {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs <- db.With(context.Background(), func(c *Conn) error {
					return c.UpsertCache(context.Background(), "http://a/"+string(rune('a'+i)), time.Now())
				})
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}
		withConn(t, db, func(c *Conn) error {
			n, err := c.TableSize(context.Background(), TableCache)
			if err == nil && n != 20 {
				t.Errorf("expected 20 cache entries, got %d", n)
			}
			return err
		})
	})
}

func TestFilters(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := setupTestDB(t, DefaultOptions())
	const url = "http://boards.4chan.org/p/res/1"

	withConn(t, db, func(c *Conn) error {
		state, err := c.FilterState(ctx, url)
		if err != nil {
			return err
		}
		if state != model.FilterStateUnknown {
			t.Errorf("expected unknown for missing record, got %v", state)
		}

		if err := c.UpsertFilter(ctx, model.FilterItem{URL: url, Board: "p", Reason: "x"}); !errors.Is(err, ErrUnknownState) {
			t.Errorf("expected ErrUnknownState, got %v", err)
		}

		old := time.Now().Add(-time.Hour)
		if err := c.UpsertFilter(ctx, model.FilterItem{URL: url, Board: "p", Reason: "file name, foo", State: model.FilterStatePending, UpdatedAt: old}); err != nil {
			return err
		}
		if err := c.UpsertFilter(ctx, model.FilterItem{URL: url + "2", Board: "p", Reason: "post content, bar", State: model.FilterStatePending}); err != nil {
			return err
		}

		oldest, ok, err := c.OldestPending(ctx)
		if err != nil {
			return err
		}
		if !ok || oldest.URL != url || oldest.Reason != "file name, foo" {
			t.Errorf("unexpected oldest pending: %+v (found=%v)", oldest, ok)
		}

		n, err := c.CountFilters(ctx, model.FilterStatePending)
		if err != nil {
			return err
		}
		if n != 2 {
			t.Errorf("expected 2 pending, got %d", n)
		}

		found, err := c.UpdateFilterState(ctx, url, model.FilterStateDeny)
		if err != nil {
			return err
		}
		if !found {
			t.Error("expected record to be found")
		}
		if found, _ := c.UpdateFilterState(ctx, "http://missing", model.FilterStateAllow); found {
			t.Error("expected missing record to be reported")
		}

		state, err = c.FilterState(ctx, url)
		if err != nil {
			return err
		}
		if state != model.FilterStateDeny {
			t.Errorf("expected deny, got %v", state)
		}

		pending, err := c.FiltersByState(ctx, model.FilterStatePending)
		if err != nil {
			return err
		}
		if len(pending) != 1 || pending[0].URL != url+"2" {
			t.Errorf("unexpected pending list: %+v", pending)
		}

		if err := c.DeleteFilter(ctx, url+"2"); err != nil {
			return err
		}
		_, ok, err = c.OldestPending(ctx)
		if err != nil {
			return err
		}
		if ok {
			t.Error("expected no pending records")
		}
		return nil
	})
}

func TestTouchFilterReordersOldest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := setupTestDB(t, DefaultOptions())
	now := time.Now()

	withConn(t, db, func(c *Conn) error {
		for i, u := range []string{"http://a/res/1", "http://a/res/2"} {
			item := model.FilterItem{URL: u, State: model.FilterStatePending, UpdatedAt: now.Add(time.Duration(i) * time.Minute)}
			if err := c.UpsertFilter(ctx, item); err != nil {
				return err
			}
		}
		if err := c.TouchFilter(ctx, "http://a/res/1", now.Add(time.Hour)); err != nil {
			return err
		}
		oldest, _, err := c.OldestPending(ctx)
		if err != nil {
			return err
		}
		if oldest.URL != "http://a/res/2" {
			t.Errorf("expected touched record to move back, got %s", oldest.URL)
		}
		return nil
	})
}

func TestCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := setupTestDB(t, DefaultOptions())
	now := time.Now()

	withConn(t, db, func(c *Conn) error {
		if err := c.UpsertCache(ctx, "http://i/old.jpg", now.Add(-4*time.Hour)); err != nil {
			return err
		}
		if err := c.UpsertCache(ctx, "http://i/new.jpg", now); err != nil {
			return err
		}
		// Re-caching refreshes instead of duplicating.
		if err := c.UpsertCache(ctx, "http://i/new.jpg", now); err != nil {
			return err
		}

		n, err := c.TableSize(ctx, TableCache)
		if err != nil {
			return err
		}
		if n != 2 {
			t.Errorf("expected 2 entries, got %d", n)
		}

		removed, err := c.PruneCache(ctx, now.Add(-3*time.Hour))
		if err != nil {
			return err
		}
		if removed != 1 {
			t.Errorf("expected 1 pruned entry, got %d", removed)
		}

		if ok, _ := c.IsCached(ctx, "http://i/old.jpg"); ok {
			t.Error("old entry should be pruned")
		}
		if ok, _ := c.IsCached(ctx, "http://i/new.jpg"); !ok {
			t.Error("new entry should survive")
		}
		return nil
	})
}

func TestHashes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := setupTestDB(t, DefaultOptions())
	rec := model.HashRecord{Hash: "abc", Path: "p/1/a.jpg", Size: 10}

	withConn(t, db, func(c *Conn) error {
		if err := c.InsertHash(ctx, TableHash, rec); err != nil {
			return err
		}
		if err := c.InsertHash(ctx, TableHash, rec); err == nil {
			t.Error("expected duplicate insert to fail")
		}

		ok, err := c.HasHash(ctx, TableHash, "abc")
		if err != nil {
			return err
		}
		if !ok {
			t.Error("expected hash to be present")
		}
		if ok, _ := c.HasHash(ctx, TableArchive, "abc"); ok {
			t.Error("hash must not leak into other tables")
		}

		if err := c.DeleteHash(ctx, TableHash, "abc"); err != nil {
			return err
		}
		if ok, _ := c.HasHash(ctx, TableHash, "abc"); ok {
			t.Error("expected hash to be deleted")
		}

		if _, err := c.HasHash(ctx, TableCache, "abc"); !errors.Is(err, ErrUnknownTable) {
			t.Errorf("expected ErrUnknownTable, got %v", err)
		}
		if _, err := c.TableSize(ctx, Table("users; DROP TABLE cache")); !errors.Is(err, ErrUnknownTable) {
			t.Errorf("expected ErrUnknownTable, got %v", err)
		}
		return nil
	})
}

func TestThumbs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := setupTestDB(t, DefaultOptions())
	const thread = "http://boards.4chan.org/p/res/1"

	withConn(t, db, func(c *Conn) error {
		for _, name := range []string{"1s.jpg", "2s.jpg", "1s.jpg"} {
			if err := c.UpsertThumb(ctx, model.Thumbnail{Thread: thread, Filename: name, Data: []byte(name)}); err != nil {
				return err
			}
		}

		thumbs, err := c.Thumbs(ctx, thread)
		if err != nil {
			return err
		}
		if len(thumbs) != 2 {
			t.Fatalf("expected 2 thumbnails, got %d", len(thumbs))
		}
		if thumbs[0].Filename != "1s.jpg" || string(thumbs[1].Data) != "2s.jpg" {
			t.Errorf("unexpected thumbnails: %+v", thumbs)
		}

		if err := c.DeleteThumbs(ctx, thread); err != nil {
			return err
		}
		thumbs, err = c.Thumbs(ctx, thread)
		if err != nil {
			return err
		}
		if len(thumbs) != 0 {
			t.Errorf("expected no thumbnails, got %d", len(thumbs))
		}
		return nil
	})
}

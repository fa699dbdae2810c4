package stats

import (
	"sync"
	"testing"
)

func TestRecorderGauges(t *testing.T) {
	t.Parallel()

	r := NewRecorder(0)
	r.SetPendingFilters(3)
	r.SetCacheSize(10)
	r.SetQueueDepth(2)

	s := r.Snapshot()
	if s.PendingFilters != 3 || s.CacheSize != 10 || s.QueueDepth != 2 {
		t.Errorf("unexpected snapshot: %+v", s)
	}
	if len(s.Series) != 0 {
		t.Errorf("expected empty series, got %d samples", len(s.Series))
	}
}

func TestRecorderSeriesIsBounded(t *testing.T) {
	t.Parallel()

	r := NewRecorder(3)
	for _, n := range []int{1024, 2048, 3072, 4096} {
		r.AddDownload(n)
	}

	s := r.Snapshot()
	if s.Downloads != 4 {
		t.Errorf("expected 4 downloads, got %d", s.Downloads)
	}
	if s.Bytes != 10240 {
		t.Errorf("expected 10240 bytes, got %d", s.Bytes)
	}
	if len(s.Series) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(s.Series))
	}
	want := []float64{2, 3, 4}
	for i, kb := range want {
		if s.Series[i].KB != kb {
			t.Errorf("sample %d: expected %v kB, got %v", i, kb, s.Series[i].KB)
		}
	}
}

func TestRecorderConcurrent(t *testing.T) {
	t.Parallel()

	r := NewRecorder(10)
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.AddDownload(1)
			_ = r.Snapshot()
		}()
	}
	wg.Wait()

	if got := r.Snapshot().Downloads; got != 50 {
		t.Errorf("expected 50 downloads, got %d", got)
	}
}

func TestDiscard(t *testing.T) {
	t.Parallel()

	// Discard must accept every call without side effects.
	Discard.SetPendingFilters(1)
	Discard.SetCacheSize(1)
	Discard.SetQueueDepth(1)
	Discard.AddDownload(1)
}

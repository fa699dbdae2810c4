// Package stats collects runtime counters of the crawl pipeline: pending
// filter items, cache size, download queue depth and a bounded series of
// download sizes.
package stats

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultSeriesLength is the number of download samples kept.
const DefaultSeriesLength = 300

// Sink receives pipeline measurements. Implementations must be safe for
// concurrent use.
type Sink interface {
	SetPendingFilters(n int)
	SetCacheSize(n int)
	SetQueueDepth(n int)
	AddDownload(bytes int)
}

// Discard is a Sink that drops every measurement.
var Discard Sink = discard{}

type discard struct{}

func (discard) SetPendingFilters(int) {}
func (discard) SetCacheSize(int)      {}
func (discard) SetQueueDepth(int)     {}
func (discard) AddDownload(int)       {}

// Sample is one completed download.
type Sample struct {
	At time.Time `json:"at"`
	KB float64   `json:"kb"`
}

// Snapshot is a point-in-time copy of a Recorder.
type Snapshot struct {
	PendingFilters int      `json:"pending_filters"`
	CacheSize      int      `json:"cache_size"`
	QueueDepth     int      `json:"queue_depth"`
	Downloads      int64    `json:"downloads"`
	Bytes          int64    `json:"bytes"`
	Series         []Sample `json:"series"`
}

// Recorder is the in-memory Sink.
type Recorder struct {
	pending   atomic.Int64
	cacheSize atomic.Int64
	queue     atomic.Int64
	downloads atomic.Int64
	bytes     atomic.Int64

	mu     sync.Mutex
	series []Sample
	next   int
	full   bool
	now    func() time.Time
}

// NewRecorder creates a Recorder keeping the last length download samples.
func NewRecorder(length int) *Recorder {
	if length <= 0 {
		length = DefaultSeriesLength
	}
	return &Recorder{
		series: make([]Sample, length),
		now:    time.Now,
	}
}

// SetPendingFilters implements Sink.
func (r *Recorder) SetPendingFilters(n int) { r.pending.Store(int64(n)) }

// SetCacheSize implements Sink.
func (r *Recorder) SetCacheSize(n int) { r.cacheSize.Store(int64(n)) }

// SetQueueDepth implements Sink.
func (r *Recorder) SetQueueDepth(n int) { r.queue.Store(int64(n)) }

// AddDownload implements Sink.
func (r *Recorder) AddDownload(bytes int) {
	r.downloads.Add(1)
	r.bytes.Add(int64(bytes))

	r.mu.Lock()
	defer r.mu.Unlock()
	r.series[r.next] = Sample{At: r.now(), KB: float64(bytes) / 1024}
	r.next = (r.next + 1) % len(r.series)
	if r.next == 0 {
		r.full = true
	}
}

// Snapshot returns the current values. Series is ordered oldest first.
func (r *Recorder) Snapshot() Snapshot {
	s := Snapshot{
		PendingFilters: int(r.pending.Load()),
		CacheSize:      int(r.cacheSize.Load()),
		QueueDepth:     int(r.queue.Load()),
		Downloads:      r.downloads.Load(),
		Bytes:          r.bytes.Load(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		s.Series = append(s.Series, r.series[r.next:]...)
	}
	s.Series = append(s.Series, r.series[:r.next]...)
	return s
}

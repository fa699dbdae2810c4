package download

import (
	"context"
	"sync"

	"github.com/nao1215/boardaid/internal/model"
)

// queue is a FIFO of download items with URL membership. Only take blocks.
type queue struct {
	mu     sync.Mutex
	items  []model.DownloadItem
	queued map[string]struct{}
	wake   chan struct{}
}

func newQueue() *queue {
	return &queue{
		queued: make(map[string]struct{}),
		wake:   make(chan struct{}, 1),
	}
}

// push appends item unless its URL is already queued.
func (q *queue) push(item model.DownloadItem) bool {
	q.mu.Lock()
	if _, ok := q.queued[item.URL]; ok {
		q.mu.Unlock()
		return false
	}
	q.queued[item.URL] = struct{}{}
	q.items = append(q.items, item)
	q.mu.Unlock()

	q.signal()
	return true
}

func (q *queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// take removes the head item, waiting until one is available or ctx ends.
func (q *queue) take(ctx context.Context) (model.DownloadItem, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			q.items[0] = model.DownloadItem{}
			q.items = q.items[1:]
			delete(q.queued, item.URL)
			more := len(q.items) > 0
			q.mu.Unlock()

			// Pass the wake-up on so other idle workers see the rest.
			if more {
				q.signal()
			}
			return item, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return model.DownloadItem{}, ctx.Err()
		case <-q.wake:
		}
	}
}

// contains reports whether url is queued.
func (q *queue) contains(url string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.queued[url]
	return ok
}

// clear drops every queued item and returns how many were dropped.
func (q *queue) clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	q.items = nil
	q.queued = make(map[string]struct{})
	return n
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Package queue provides a bounded in-memory queue that feeds worker pools.
package queue

import (
	"context"
	"sync"

	"github.com/okian/nutrimon/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 1024
	defaultQueueName     = "default"
)

// InMemoryQueue is a bounded FIFO backed by a buffered channel.
// Enqueue never blocks; Dequeue channels drain until Close.
type InMemoryQueue[T any] struct {
	items    chan T
	capacity int
	name     string
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue[T any](opts ...Option) *InMemoryQueue[T] {
	cfg := config{capacity: defaultQueueCapacity, name: defaultQueueName}
	for _, opt := range opts {
		opt(&cfg)
	}
	q := &InMemoryQueue[T]{
		items:    make(chan T, cfg.capacity),
		capacity: cfg.capacity,
		name:     cfg.name,
	}
	metrics.UpdateQueueDepth(q.name, 0)
	return q
}

// Enqueue adds an item. Returns false if the queue is closed, full, or ctx is done.
func (q *InMemoryQueue[T]) Enqueue(ctx context.Context, item T) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed || ctx.Err() != nil {
		return false
	}
	select {
	case q.items <- item:
		metrics.UpdateQueueDepth(q.name, len(q.items))
		return true
	default:
		return false
	}
}

// Dequeue returns a channel that receives items until the queue is closed
// and drained, or ctx is done.
func (q *InMemoryQueue[T]) Dequeue(ctx context.Context) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for {
			// Prefer cancellation over handing out more work.
			if ctx.Err() != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			case item, ok := <-q.items:
				if !ok {
					return
				}
				metrics.UpdateQueueDepth(q.name, len(q.items))
				select {
				case out <- item:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Len returns the current number of queued items.
func (q *InMemoryQueue[T]) Len() int {
	return len(q.items)
}

// Cap returns the queue capacity.
func (q *InMemoryQueue[T]) Cap() int {
	return q.capacity
}

// Close stops accepting items. Queued items are still delivered.
func (q *InMemoryQueue[T]) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.items)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue[T]) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

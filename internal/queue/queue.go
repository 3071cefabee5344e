// Package queue implements the per-category FIFO handing tasks from
// producers to exactly one consumer.
package queue

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Push once Close has been called.
var ErrClosed = errors.New("queue closed")

// Queue is a bounded FIFO with an explicit close-and-drain operation:
// after Close, Pop keeps returning buffered items and reports false only
// when the queue is empty.
type Queue[T any] struct {
	mu     sync.RWMutex
	ch     chan T
	closed bool
}

func New[T any](size int) *Queue[T] {
	if size <= 0 {
		size = 1
	}
	return &Queue[T]{ch: make(chan T, size)}
}

// Push blocks while the queue is full.
func (q *Queue[T]) Push(ctx context.Context, v T) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case q.ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pop blocks until an item is available. ok is false once the queue is
// closed and drained.
func (q *Queue[T]) Pop() (v T, ok bool) {
	v, ok = <-q.ch
	return v, ok
}

// Close stops accepting new items. It is safe to call more than once.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}

func (q *Queue[T]) Len() int { return len(q.ch) }

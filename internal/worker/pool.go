// Package worker runs one dedicated consumer per enabled task category.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jehaby/smarthomebot/internal/chat"
	"github.com/jehaby/smarthomebot/internal/media"
	"github.com/jehaby/smarthomebot/internal/queue"
)

// ErrDisabled is returned when a task is enqueued for a category that has no worker.
var ErrDisabled = errors.New("category disabled")

type PoolOptions struct {
	QueueSize int // per-category buffer
}

type lane struct {
	q *queue.Queue[*media.Task]
	w *Worker
}

// Pool owns the queue and worker of every enabled category.
type Pool struct {
	opt    PoolOptions
	sender chat.Sender
	lanes  map[media.Category]*lane

	wg      sync.WaitGroup
	started bool
}

func NewPool(sender chat.Sender, opt PoolOptions) *Pool {
	if opt.QueueSize <= 0 {
		opt.QueueSize = 64
	}
	return &Pool{opt: opt, sender: sender, lanes: make(map[media.Category]*lane)}
}

// Register enables category c with handler h. Must be called before Start.
func (p *Pool) Register(c media.Category, h Handler) {
	if p.started {
		panic("worker: Register after Start")
	}
	q := queue.New[*media.Task](p.opt.QueueSize)
	p.lanes[c] = &lane{q: q, w: NewWorker(c, q, h, p.sender)}
}

func (p *Pool) Enabled(c media.Category) bool {
	_, ok := p.lanes[c]
	return ok
}

// Enqueue hands t to its category's worker.
func (p *Pool) Enqueue(ctx context.Context, t *media.Task) error {
	l, ok := p.lanes[t.Category]
	if !ok {
		return fmt.Errorf("%s: %w", t.Category, ErrDisabled)
	}
	return l.q.Push(ctx, t)
}

// Pending returns the number of queued tasks of category c.
func (p *Pool) Pending(c media.Category) int {
	l, ok := p.lanes[c]
	if !ok {
		return 0
	}
	return l.q.Len()
}

// Start launches one goroutine per registered category. ctx should outlive
// producers: it is handed to the handlers while queues drain.
func (p *Pool) Start(ctx context.Context) {
	p.started = true
	for c, l := range p.lanes {
		slog.Info("starting worker", "category", c)
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			l.w.Run(ctx)
		}()
	}
}

// Shutdown closes every queue and waits until the workers drained them.
// Producers must be stopped first.
func (p *Pool) Shutdown() {
	for _, l := range p.lanes {
		l.q.Close()
	}
	p.wg.Wait()
	slog.Info("workers drained")
}

package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jehaby/smarthomebot/internal/chat"
	"github.com/jehaby/smarthomebot/internal/media"
	"github.com/jehaby/smarthomebot/internal/queue"
)

// Handler runs the pipeline of one category. It owns the task's source file
// and must remove it whatever the outcome.
type Handler interface {
	Handle(ctx context.Context, t *media.Task) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, t *media.Task) error

func (f HandlerFunc) Handle(ctx context.Context, t *media.Task) error { return f(ctx, t) }

// Worker is the single consumer of one category's queue.
type Worker struct {
	category media.Category
	q        *queue.Queue[*media.Task]
	h        Handler
	sender   chat.Sender
}

func NewWorker(c media.Category, q *queue.Queue[*media.Task], h Handler, sender chat.Sender) *Worker {
	return &Worker{category: c, q: q, h: h, sender: sender}
}

// Run consumes tasks until the queue is closed and drained.
func (w *Worker) Run(ctx context.Context) {
	slog.Debug("worker started", "category", w.category)
	for {
		t, ok := w.q.Pop()
		if !ok {
			slog.Debug("worker stopped", "category", w.category)
			return
		}
		w.process(ctx, t)
	}
}

// process never lets a task failure escape the loop.
func (w *Worker) process(ctx context.Context, t *media.Task) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("worker task panicked", "category", w.category, "task", t.ID, "panic", r)
		}
	}()

	err := w.safeHandle(ctx, t)
	if err != nil {
		w.report(ctx, t, err)
	} else {
		slog.Debug("task done", "category", w.category, "task", t.ID, "took", time.Since(start))
	}
	if t.Done != nil {
		t.Done(ctx)
	}
}

func (w *Worker) safeHandle(ctx context.Context, t *media.Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.h.Handle(ctx, t)
}

// report sends the error to the requesting chat, or logs it for unattended
// ingestion.
func (w *Worker) report(ctx context.Context, t *media.Task, err error) {
	slog.Error("task failed", "category", w.category, "task", t.ID, "path", t.Path, "chat_id", t.ChatID, "err", err)
	if t.ChatID == 0 || w.sender == nil {
		return
	}
	msg := fmt.Sprintf("⚠️ %s failed: %v", w.category, err)
	if serr := w.sender.SendText(ctx, t.ChatID, msg); serr != nil {
		slog.Error("report failure to chat failed", "chat_id", t.ChatID, "err", serr)
	}
}

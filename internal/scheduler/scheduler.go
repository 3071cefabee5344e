// Package scheduler owns the periodic jobs. Jobs only enqueue tasks; the
// workers do the actual work.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jehaby/smarthomebot/internal/media"
)

type Enqueuer interface {
	Enqueue(ctx context.Context, t *media.Task) error
}

type job struct {
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// Scheduler keeps at most one snapshot job per chat.
type Scheduler struct {
	q Enqueuer

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	jobs   map[int64]*job
	wg     sync.WaitGroup
}

// New returns a scheduler whose jobs live until ctx is done or Stop is called.
func New(ctx context.Context, q Enqueuer) *Scheduler {
	ctx, cancel := context.WithCancel(ctx)
	return &Scheduler{q: q, ctx: ctx, cancel: cancel, jobs: make(map[int64]*job)}
}

// MaxInterval is the longest snapshot period a chat may ask for.
const MaxInterval = 7 * 24 * time.Hour

// Set applies a chat's snapshot interval. Any existing job is stopped and
// waited for before a new one is installed, so two jobs never overlap.
// secs <= 0 only cancels, and so does a period above MaxInterval.
func (s *Scheduler) Set(chatID int64, secs int, cameras []media.Camera) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(chatID)
	if secs <= 0 {
		return
	}
	if secs > int(MaxInterval/time.Second) {
		slog.Warn("snapshot interval out of range", "chat_id", chatID, "secs", secs, "max", MaxInterval)
		return
	}
	interval := time.Duration(secs) * time.Second
	ctx, cancel := context.WithCancel(s.ctx)
	j := &job{interval: interval, cancel: cancel, done: make(chan struct{})}
	s.jobs[chatID] = j

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(j.done)
		s.runSnapshotJob(ctx, chatID, interval, cameras)
	}()
	slog.Info("snapshot job installed", "chat_id", chatID, "interval", interval, "cameras", len(cameras))
}

// Cancel stops the chat's job, if any.
func (s *Scheduler) Cancel(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(chatID)
}

func (s *Scheduler) removeLocked(chatID int64) {
	j, ok := s.jobs[chatID]
	if !ok {
		return
	}
	delete(s.jobs, chatID)
	j.cancel()
	<-j.done
	slog.Info("snapshot job removed", "chat_id", chatID, "interval", j.interval)
}

// Interval returns the chat's active job period, or zero.
func (s *Scheduler) Interval(chatID int64) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[chatID]; ok {
		return j.interval
	}
	return 0
}

// Count returns the number of active snapshot jobs.
func (s *Scheduler) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

func (s *Scheduler) runSnapshotJob(ctx context.Context, chatID int64, interval time.Duration, cameras []media.Camera) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t := media.NewTask(media.CategorySnapshot)
			t.ChatID = chatID
			t.Cameras = cameras
			if err := s.q.Enqueue(ctx, t); err != nil {
				slog.Warn("enqueue scheduled snapshot failed", "chat_id", chatID, "err", err)
			}
		}
	}
}

// StartRetention installs the daily retention job firing at the given
// clock time (local).
func (s *Scheduler) StartRetention(at Clock) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			next := at.Next(time.Now())
			slog.Debug("retention scheduled", "at", next)
			timer := time.NewTimer(time.Until(next))
			select {
			case <-s.ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			if err := s.q.Enqueue(s.ctx, media.NewTask(media.CategoryRetention)); err != nil {
				slog.Warn("enqueue retention failed", "err", err)
			}
		}
	}()
}

// Stop cancels every job, including retention, and waits for their goroutines.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	for id := range s.jobs {
		s.removeLocked(id)
	}
	s.mu.Unlock()
	s.cancel()
	s.wg.Wait()
}

// Clock is a time of day.
type Clock struct {
	Hour, Minute int
}

// ParseClock parses "HH:MM".
func ParseClock(v string) (Clock, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return Clock{}, fmt.Errorf("invalid time of day %q: %w", v, err)
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// Next returns the first occurrence of c strictly after now.
func (c Clock) Next(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), c.Hour, c.Minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

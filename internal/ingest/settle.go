package ingest

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"
)

// ErrNotSettled is returned when a file kept changing (or stayed empty) for
// the whole settle window. The file has been removed by then.
var ErrNotSettled = errors.New("file did not settle")

// SettleGuard waits for a newly created file to stop growing. Agents often
// create the file before the upload completes.
type SettleGuard struct {
	Interval time.Duration // poll period
	Cycles   int           // max polls before giving up
}

func NewSettleGuard(interval time.Duration, cycles int) *SettleGuard {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	if cycles <= 0 {
		cycles = 50
	}
	return &SettleGuard{Interval: interval, Cycles: cycles}
}

// Wait returns nil once path has a non-zero size that did not change between
// two consecutive polls. Otherwise the file is deleted and ErrNotSettled
// returned.
func (g *SettleGuard) Wait(ctx context.Context, path string) error {
	last := int64(-1)
	ticker := time.NewTicker(g.Interval)
	defer ticker.Stop()

	for i := 0; i < g.Cycles; i++ {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return ErrNotSettled
			}
			slog.Debug("settle stat failed", "path", path, "err", err)
		} else {
			size := info.Size()
			if size > 0 && size == last {
				return nil
			}
			last = size
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("remove unsettled file failed", "path", path, "err", err)
	}
	return ErrNotSettled
}

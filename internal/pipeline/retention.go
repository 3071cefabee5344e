package pipeline

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/jehaby/smarthomebot/internal/media"
	"github.com/shirou/gopsutil/v3/disk"
)

// Retention removes files older than maxAge below root.
type Retention struct {
	root   string
	maxAge time.Duration
	now    func() time.Time
}

func NewRetention(root string, maxAge time.Duration) *Retention {
	return &Retention{root: root, maxAge: maxAge, now: time.Now}
}

func (h *Retention) Handle(ctx context.Context, _ *media.Task) error {
	cutoff := h.now().Add(-h.maxAge)
	var removed int
	err := filepath.WalkDir(h.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// a file vanishing mid-walk is not fatal
			slog.Debug("retention walk", "path", path, "err", err)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil {
				slog.Warn("retention remove failed", "path", path, "err", err)
				return nil
			}
			removed++
		}
		return nil
	})

	attrs := []any{"root", h.root, "removed", removed, "max_age", h.maxAge}
	if u, derr := disk.Usage(h.root); derr == nil {
		attrs = append(attrs, "free", datasize.ByteSize(u.Free).HumanReadable())
	}
	slog.Info("retention done", attrs...)
	return err
}

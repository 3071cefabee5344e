package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/jehaby/smarthomebot/internal/media"
)

type VideoTranscoder interface {
	TranscodeVideo(ctx context.Context, src, dst string) error
}

type Video struct {
	d       *Delivery
	tc      VideoTranscoder
	workDir string
}

// NewVideo returns the video handler. Transcoded files are written to
// workDir, which must be outside the watched upload tree.
func NewVideo(d *Delivery, tc VideoTranscoder, workDir string) *Video {
	return &Video{d: d, tc: tc, workDir: workDir}
}

func (h *Video) Handle(ctx context.Context, t *media.Task) error {
	defer remove(t.Path)
	if !h.d.alerting() {
		slog.Info("alerting off, video dropped", "path", t.Path, "task", t.ID)
		return nil
	}
	capt := caption("🎬", t.Path, "")
	dst := filepath.Join(h.workDir, t.ID+".mp4")
	defer remove(dst)

	if err := h.tc.TranscodeVideo(ctx, t.Path, dst); err != nil {
		return fmt.Errorf("transcode %s: %w", t.Path, err)
	}
	return h.d.broadcastFile(ctx, fileVideo, dst, capt)
}

package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/jehaby/smarthomebot/internal/media"
)

type Document struct {
	d *Delivery
}

func NewDocument(d *Delivery) *Document {
	return &Document{d: d}
}

func (h *Document) Handle(ctx context.Context, t *media.Task) error {
	defer remove(t.Path)
	if !h.d.alerting() {
		slog.Info("alerting off, document dropped", "path", t.Path, "task", t.ID)
		return nil
	}
	return h.d.broadcastFile(ctx, fileDocument, t.Path, caption("📄", t.Path, filepath.Base(t.Path)))
}

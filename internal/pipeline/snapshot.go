package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jehaby/smarthomebot/internal/chat"
	"github.com/jehaby/smarthomebot/internal/media"
	"go.uber.org/multierr"
)

type Fetcher interface {
	Fetch(ctx context.Context, cam media.Camera) ([]byte, error)
}

// Snapshot fetches the current image of each camera in a task and sends it
// to the requesting chat. Explicit requests are not gated by alerting.
type Snapshot struct {
	sender  chat.Sender
	fetcher Fetcher
}

func NewSnapshot(sender chat.Sender, f Fetcher) *Snapshot {
	return &Snapshot{sender: sender, fetcher: f}
}

func (h *Snapshot) Handle(ctx context.Context, t *media.Task) error {
	if len(t.Cameras) == 0 {
		return errors.New("no cameras configured")
	}
	_ = h.sender.SendAction(ctx, t.ChatID, chat.ActionUploadPhoto)

	var errs error
	for _, cam := range t.Cameras {
		b, err := h.fetcher.Fetch(ctx, cam)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", cam.Name, err))
			continue
		}
		capt := fmt.Sprintf("📸 %s · %s", cam.Name, time.Now().Format(timeLayout))
		if err := h.sender.SendPhoto(ctx, t.ChatID, cam.Name+".jpg", bytes.NewReader(b), capt); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: send: %w", cam.Name, err))
		}
	}
	return errs
}

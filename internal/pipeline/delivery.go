// Package pipeline implements the per-category task handlers run by the
// workers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jehaby/smarthomebot/internal/chat"
	"github.com/jehaby/smarthomebot/internal/state"
	"go.uber.org/multierr"
)

type fileKind int

const (
	filePhoto fileKind = iota
	fileVideo
	fileDocument
)

// Delivery sends ingested artifacts to every authorized recipient.
type Delivery struct {
	Sender     chat.Sender
	Recipients []int64
	State      *state.Shared
}

// alerting reports whether ingested artifacts may be delivered right now.
func (d *Delivery) alerting() bool {
	return d.State == nil || d.State.Alerting()
}

// broadcastFile sends path to every recipient, opening it once per send.
// Failures for one recipient do not prevent delivery to the others.
func (d *Delivery) broadcastFile(ctx context.Context, kind fileKind, path, caption string) error {
	name := filepath.Base(path)
	var errs error
	for _, id := range d.Recipients {
		if err := d.sendFile(ctx, id, kind, path, name, caption); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("chat %d: %w", id, err))
		}
	}
	return errs
}

func (d *Delivery) sendFile(ctx context.Context, chatID int64, kind fileKind, path, name, caption string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	switch kind {
	case filePhoto:
		_ = d.Sender.SendAction(ctx, chatID, chat.ActionUploadPhoto)
		return d.Sender.SendPhoto(ctx, chatID, name, f, caption)
	case fileVideo:
		_ = d.Sender.SendAction(ctx, chatID, chat.ActionUploadVideo)
		return d.Sender.SendVideo(ctx, chatID, name, f, caption)
	default:
		_ = d.Sender.SendAction(ctx, chatID, chat.ActionUploadDocument)
		return d.Sender.SendDocument(ctx, chatID, name, f, caption)
	}
}

// announce shows a chat action to every recipient. Failures are ignored.
func (d *Delivery) announce(ctx context.Context, action chat.Action) {
	for _, id := range d.Recipients {
		if err := d.Sender.SendAction(ctx, id, action); err != nil {
			slog.Debug("send chat action failed", "chat_id", id, "err", err)
		}
	}
}

func (d *Delivery) broadcastText(ctx context.Context, text string) error {
	var errs error
	for _, id := range d.Recipients {
		if err := d.Sender.SendText(ctx, id, text); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("chat %d: %w", id, err))
		}
	}
	return errs
}

// remove deletes a consumed file; a missing file is fine.
func remove(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Error("remove file failed", "path", path, "err", err)
	}
}

// Package chattest provides an in-memory chat.Sender for tests.
package chattest

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/jehaby/smarthomebot/internal/chat"
)

// Sent is one recorded outbound call.
type Sent struct {
	ChatID int64
	Kind   string // text, menu, photo, video, document, action
	Name   string
	Text   string
	Data   []byte
	Menu   chat.Menu
	Action chat.Action
}

// Recorder records every outbound call. Files maps file ids to content
// returned by Download.
type Recorder struct {
	mu    sync.Mutex
	sent  []Sent
	Files map[string][]byte
	// Err, when set, is returned by every send.
	Err error
}

func (r *Recorder) record(s Sent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.sent = append(r.sent, s)
	return nil
}

func (r *Recorder) SendText(_ context.Context, chatID int64, text string) error {
	return r.record(Sent{ChatID: chatID, Kind: "text", Text: text})
}

func (r *Recorder) SendMenu(_ context.Context, chatID int64, text string, menu chat.Menu) error {
	return r.record(Sent{ChatID: chatID, Kind: "menu", Text: text, Menu: menu})
}

func (r *Recorder) file(chatID int64, kind, name string, rd io.Reader, caption string) error {
	b, err := io.ReadAll(rd)
	if err != nil {
		return err
	}
	return r.record(Sent{ChatID: chatID, Kind: kind, Name: name, Text: caption, Data: b})
}

func (r *Recorder) SendPhoto(_ context.Context, chatID int64, name string, rd io.Reader, caption string) error {
	return r.file(chatID, "photo", name, rd, caption)
}

func (r *Recorder) SendVideo(_ context.Context, chatID int64, name string, rd io.Reader, caption string) error {
	return r.file(chatID, "video", name, rd, caption)
}

func (r *Recorder) SendDocument(_ context.Context, chatID int64, name string, rd io.Reader, caption string) error {
	return r.file(chatID, "document", name, rd, caption)
}

func (r *Recorder) SendAction(_ context.Context, chatID int64, action chat.Action) error {
	return r.record(Sent{ChatID: chatID, Kind: "action", Action: action})
}

func (r *Recorder) Download(_ context.Context, fileID string, w io.Writer) error {
	r.mu.Lock()
	b, ok := r.Files[fileID]
	r.mu.Unlock()
	if !ok {
		return errors.New("file not found")
	}
	_, err := w.Write(b)
	return err
}

// All returns every recorded call in order.
func (r *Recorder) All() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}

// OfKind returns the recorded calls of one kind.
func (r *Recorder) OfKind(kind string) []Sent {
	var out []Sent
	for _, s := range r.All() {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

// Reset forgets recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}

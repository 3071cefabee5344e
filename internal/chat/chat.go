// Package chat holds the transport-neutral message types exchanged between
// the bot transport, the chat sessions and the workers.
package chat

import (
	"context"
	"io"
)

// Kind tags the content of an inbound message.
type Kind int

const (
	KindOther Kind = iota
	KindText
	KindPhoto
	KindSticker
	KindDocument
	KindVoice
	KindCallback
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindPhoto:
		return "photo"
	case KindSticker:
		return "sticker"
	case KindDocument:
		return "document"
	case KindVoice:
		return "voice"
	case KindCallback:
		return "callback"
	default:
		return "other"
	}
}

// Inbound is one message or callback query from a chat.
type Inbound struct {
	ChatID int64
	Kind   Kind
	Text   string
	From   string
	// FileID is set for voice messages.
	FileID string
	// Data carries the callback payload of an inline button.
	Data string
	// OtherType names the content when Kind is KindOther (e.g. "video_note").
	OtherType string
}

// Button is one inline keyboard button.
type Button struct {
	Text string
	Data string
}

// Menu is an inline keyboard, one slice per row.
type Menu [][]Button

// Action is a chat action shown while a file is being prepared.
type Action string

const (
	ActionTyping         Action = "typing"
	ActionUploadPhoto    Action = "upload_photo"
	ActionUploadVideo    Action = "upload_video"
	ActionUploadDocument Action = "upload_document"
)

// Sender is the outbound half of the transport.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendMenu(ctx context.Context, chatID int64, text string, menu Menu) error
	SendPhoto(ctx context.Context, chatID int64, name string, r io.Reader, caption string) error
	SendVideo(ctx context.Context, chatID int64, name string, r io.Reader, caption string) error
	SendDocument(ctx context.Context, chatID int64, name string, r io.Reader, caption string) error
	SendAction(ctx context.Context, chatID int64, action Action) error
	// Download writes a remote file identified by fileID to w.
	Download(ctx context.Context, fileID string, w io.Writer) error
}

package telegram

import (
	"github.com/go-telegram/bot/models"
	"github.com/jehaby/smarthomebot/internal/chat"
)

// BuildKeyboard converts a transport-neutral menu into an inline keyboard.
func BuildKeyboard(menu chat.Menu) *models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, len(menu))
	for _, row := range menu {
		buttons := make([]models.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, models.InlineKeyboardButton{Text: b.Text, CallbackData: b.Data})
		}
		rows = append(rows, buttons)
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// toInbound classifies an update. ok is false for updates that carry
// neither a message nor a callback query.
func toInbound(u *models.Update) (chat.Inbound, bool) {
	if q := u.CallbackQuery; q != nil {
		in := chat.Inbound{Kind: chat.KindCallback, Data: q.Data, ChatID: q.From.ID, From: displayName(&q.From)}
		switch {
		case q.Message.Message != nil:
			in.ChatID = q.Message.Message.Chat.ID
		case q.Message.InaccessibleMessage != nil:
			in.ChatID = q.Message.InaccessibleMessage.Chat.ID
		}
		return in, true
	}

	msg := u.Message
	if msg == nil {
		return chat.Inbound{}, false
	}
	in := chat.Inbound{ChatID: msg.Chat.ID, From: displayName(msg.From)}
	switch {
	case msg.Text != "":
		in.Kind = chat.KindText
		in.Text = msg.Text
	case msg.Voice != nil:
		in.Kind = chat.KindVoice
		in.FileID = msg.Voice.FileID
	case len(msg.Photo) > 0:
		in.Kind = chat.KindPhoto
	case msg.Sticker != nil:
		in.Kind = chat.KindSticker
	case msg.Document != nil:
		in.Kind = chat.KindDocument
	default:
		in.Kind = chat.KindOther
		in.OtherType = otherType(msg)
	}
	return in, true
}

func otherType(msg *models.Message) string {
	switch {
	case msg.Video != nil:
		return "video"
	case msg.VideoNote != nil:
		return "video_note"
	case msg.Audio != nil:
		return "audio"
	case msg.Animation != nil:
		return "animation"
	case msg.Location != nil:
		return "location"
	case msg.Contact != nil:
		return "contact"
	default:
		return "other"
	}
}

func displayName(u *models.User) string {
	if u == nil {
		return ""
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Username
}

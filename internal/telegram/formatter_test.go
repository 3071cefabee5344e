package telegram

import (
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/jehaby/smarthomebot/internal/chat"
	"github.com/stretchr/testify/require"
)

func TestToInbound(t *testing.T) {
	from := &models.User{ID: 5, FirstName: "Ada"}
	cases := []struct {
		name   string
		update *models.Update
		want   chat.Inbound
		ok     bool
	}{
		{
			name:   "text",
			update: &models.Update{Message: &models.Message{Chat: models.Chat{ID: 1}, From: from, Text: "/start"}},
			want:   chat.Inbound{ChatID: 1, Kind: chat.KindText, Text: "/start", From: "Ada"},
			ok:     true,
		},
		{
			name:   "voice",
			update: &models.Update{Message: &models.Message{Chat: models.Chat{ID: 1}, Voice: &models.Voice{FileID: "v1"}}},
			want:   chat.Inbound{ChatID: 1, Kind: chat.KindVoice, FileID: "v1"},
			ok:     true,
		},
		{
			name:   "photo",
			update: &models.Update{Message: &models.Message{Chat: models.Chat{ID: 1}, Photo: []models.PhotoSize{{FileID: "p"}}}},
			want:   chat.Inbound{ChatID: 1, Kind: chat.KindPhoto},
			ok:     true,
		},
		{
			name:   "sticker",
			update: &models.Update{Message: &models.Message{Chat: models.Chat{ID: 1}, Sticker: &models.Sticker{}}},
			want:   chat.Inbound{ChatID: 1, Kind: chat.KindSticker},
			ok:     true,
		},
		{
			name:   "document",
			update: &models.Update{Message: &models.Message{Chat: models.Chat{ID: 1}, Document: &models.Document{}}},
			want:   chat.Inbound{ChatID: 1, Kind: chat.KindDocument},
			ok:     true,
		},
		{
			name:   "location",
			update: &models.Update{Message: &models.Message{Chat: models.Chat{ID: 1}, Location: &models.Location{}}},
			want:   chat.Inbound{ChatID: 1, Kind: chat.KindOther, OtherType: "location"},
			ok:     true,
		},
		{
			name: "callback",
			update: &models.Update{CallbackQuery: &models.CallbackQuery{
				ID:      "q",
				From:    *from,
				Data:    "cam:0",
				Message: models.MaybeInaccessibleMessage{Message: &models.Message{Chat: models.Chat{ID: 9}}},
			}},
			want: chat.Inbound{ChatID: 9, Kind: chat.KindCallback, Data: "cam:0", From: "Ada"},
			ok:   true,
		},
		{
			name:   "callback without message",
			update: &models.Update{CallbackQuery: &models.CallbackQuery{ID: "q", From: *from, Data: "menu:main"}},
			want:   chat.Inbound{ChatID: 5, Kind: chat.KindCallback, Data: "menu:main", From: "Ada"},
			ok:     true,
		},
		{
			name:   "edited message ignored",
			update: &models.Update{EditedMessage: &models.Message{Text: "x"}},
			ok:     false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := toInbound(tc.update)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestBuildKeyboard(t *testing.T) {
	kb := BuildKeyboard(chat.Menu{
		{{Text: "On", Data: "alert:on"}},
		{{Text: "A", Data: "cam:0"}, {Text: "B", Data: "cam:1"}},
	})
	require.Len(t, kb.InlineKeyboard, 2)
	require.Equal(t, "alert:on", kb.InlineKeyboard[0][0].CallbackData)
	require.Equal(t, "B", kb.InlineKeyboard[1][1].Text)
}

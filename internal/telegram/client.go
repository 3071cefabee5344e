package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/jehaby/smarthomebot/internal/chat"
)

// DispatchFunc receives every inbound message and callback query.
type DispatchFunc func(ctx context.Context, in chat.Inbound)

type Options struct {
	PollTimeout time.Duration
	HTTPTimeout time.Duration
	Debug       bool
}

// Client is the Telegram transport. It implements chat.Sender.
type Client struct {
	Bot      *bot.Bot
	http     *http.Client
	dispatch DispatchFunc
}

func NewClient(token string, opt Options) (*Client, error) {
	if opt.PollTimeout <= 0 {
		opt.PollTimeout = 10 * time.Second
	}
	if opt.HTTPTimeout <= 0 {
		opt.HTTPTimeout = 30 * time.Second
	}
	c := &Client{http: &http.Client{Timeout: opt.HTTPTimeout}}
	opts := []bot.Option{
		// the long poll itself must fit into the client timeout
		bot.WithHTTPClient(opt.PollTimeout, &http.Client{Timeout: opt.PollTimeout + opt.HTTPTimeout}),
		bot.WithDefaultHandler(c.handleUpdate),
	}
	if opt.Debug {
		opts = append(opts, bot.WithDebug())
	}
	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, err
	}
	c.Bot = b
	return c, nil
}

// OnInbound sets the receiver of inbound traffic. Must be called before Start.
func (c *Client) OnInbound(f DispatchFunc) {
	c.dispatch = f
}

// Start long-polls until ctx is cancelled.
func (c *Client) Start(ctx context.Context) {
	slog.Info("telegram polling started")
	c.Bot.Start(ctx)
	slog.Info("telegram polling stopped")
}

func (c *Client) handleUpdate(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery != nil {
		if _, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: update.CallbackQuery.ID}); err != nil {
			slog.Warn("answer callback query failed", "err", err)
		}
	}
	in, ok := toInbound(update)
	if !ok {
		slog.Debug("ignoring update", "update_id", update.ID)
		return
	}
	if c.dispatch == nil {
		slog.Warn("no dispatcher, dropping update", "chat_id", in.ChatID)
		return
	}
	c.dispatch(ctx, in)
}

func (c *Client) SendText(ctx context.Context, chatID int64, text string) error {
	_, err := c.Bot.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text})
	return err
}

func (c *Client) SendMenu(ctx context.Context, chatID int64, text string, menu chat.Menu) error {
	_, err := c.Bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: BuildKeyboard(menu),
	})
	return err
}

func (c *Client) SendPhoto(ctx context.Context, chatID int64, name string, r io.Reader, caption string) error {
	_, err := c.Bot.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID:  chatID,
		Photo:   &models.InputFileUpload{Filename: name, Data: r},
		Caption: caption,
	})
	return err
}

func (c *Client) SendVideo(ctx context.Context, chatID int64, name string, r io.Reader, caption string) error {
	_, err := c.Bot.SendVideo(ctx, &bot.SendVideoParams{
		ChatID:            chatID,
		Video:             &models.InputFileUpload{Filename: name, Data: r},
		Caption:           caption,
		SupportsStreaming: true,
	})
	return err
}

func (c *Client) SendDocument(ctx context.Context, chatID int64, name string, r io.Reader, caption string) error {
	_, err := c.Bot.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID:   chatID,
		Document: &models.InputFileUpload{Filename: name, Data: r},
		Caption:  caption,
	})
	return err
}

func (c *Client) SendAction(ctx context.Context, chatID int64, action chat.Action) error {
	_, err := c.Bot.SendChatAction(ctx, &bot.SendChatActionParams{ChatID: chatID, Action: models.ChatAction(action)})
	return err
}

// Download fetches an uploaded file by id.
func (c *Client) Download(ctx context.Context, fileID string, w io.Writer) error {
	f, err := c.Bot.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return fmt.Errorf("get file: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Bot.FileDownloadLink(f), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download file: status %s", resp.Status)
	}
	_, err = io.Copy(w, resp.Body)
	return err
}

// Package telegram adapts the Bot API SDK to delivery.Channel and decodes
// webhook updates. Retries belong to the delivery executor, so every call
// here is made once and its error classified.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"example.com/dayof/internal/delivery"
	"example.com/dayof/internal/domain"
)

const DefaultAPIURL = "https://api.telegram.org"

type Client struct {
	api *bot.Bot
}

// NewClient builds a client without calling getMe; a bad token surfaces on
// the first send.
func NewClient(apiURL, token string, hc *http.Client) (*Client, error) {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if hc == nil {
		hc = &http.Client{Timeout: 20 * time.Second}
	}
	api, err := bot.New(token,
		bot.WithServerURL(strings.TrimRight(apiURL, "/")),
		bot.WithHTTPClient(hc.Timeout, hc),
		bot.WithSkipGetMe(),
	)
	if err != nil {
		return nil, fmt.Errorf("telegram client: %w", err)
	}
	return &Client{api: api}, nil
}

var _ delivery.Channel = (*Client)(nil)

// permanent lists the API answers a retry cannot fix.
var permanent = []error{
	bot.ErrorBadRequest,
	bot.ErrorForbidden,
	bot.ErrorUnauthorized,
	bot.ErrorNotFound,
	bot.ErrorConflict,
	context.Canceled,
}

// classify wraps an SDK error as a DeliveryError. Rate limits, 5xx answers
// and transport failures are temporary. An edit that changes nothing is a
// success.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, bot.ErrorBadRequest) && strings.Contains(err.Error(), "message is not modified") {
		return nil
	}
	temporary := true
	for _, p := range permanent {
		if errors.Is(err, p) {
			temporary = false
			break
		}
	}
	return &domain.DeliveryError{Op: op, Temporary: temporary, Err: err}
}

func keyboard(kb delivery.Keyboard) models.ReplyMarkup {
	if len(kb) == 0 {
		return nil
	}
	rows := make([][]models.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		r := make([]models.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			r = append(r, models.InlineKeyboardButton{Text: b.Text, CallbackData: b.Data, URL: b.URL})
		}
		rows = append(rows, r)
	}
	return models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func noPreview() *models.LinkPreviewOptions {
	disabled := true
	return &models.LinkPreviewOptions{IsDisabled: &disabled}
}

func (c *Client) Send(ctx context.Context, chat domain.ChatID, text string, kb delivery.Keyboard, replyTo domain.MessageID) (domain.MessageID, error) {
	params := &bot.SendMessageParams{
		ChatID:             int64(chat),
		Text:               text,
		ParseMode:          models.ParseModeHTML,
		LinkPreviewOptions: noPreview(),
		ReplyMarkup:        keyboard(kb),
	}
	if replyTo != 0 {
		params.ReplyParameters = &models.ReplyParameters{MessageID: int(replyTo)}
	}
	msg, err := c.api.SendMessage(ctx, params)
	if err != nil {
		return 0, classify(delivery.OpSend, err)
	}
	return domain.MessageID(msg.ID), nil
}

func (c *Client) Edit(ctx context.Context, chat domain.ChatID, msg domain.MessageID, text string, kb delivery.Keyboard) error {
	_, err := c.api.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:             int64(chat),
		MessageID:          int(msg),
		Text:               text,
		ParseMode:          models.ParseModeHTML,
		LinkPreviewOptions: noPreview(),
		ReplyMarkup:        keyboard(kb),
	})
	return classify(delivery.OpEdit, err)
}

func (c *Client) EditButtons(ctx context.Context, chat domain.ChatID, msg domain.MessageID, kb delivery.Keyboard) error {
	_, err := c.api.EditMessageReplyMarkup(ctx, &bot.EditMessageReplyMarkupParams{
		ChatID:      int64(chat),
		MessageID:   int(msg),
		ReplyMarkup: keyboard(kb),
	})
	return classify(delivery.OpEditButtons, err)
}

func (c *Client) Answer(ctx context.Context, queryID, text string, alert bool, url string) error {
	_, err := c.api.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: queryID,
		Text:            text,
		ShowAlert:       alert,
		URL:             url,
	})
	return classify(delivery.OpAnswer, err)
}

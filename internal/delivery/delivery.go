// Package delivery executes outbound chat operations. Event handlers return
// intents; the Executor runs them in order with bounded retries and keeps
// going when one fails.
package delivery

import (
	"context"

	"example.com/dayof/internal/domain"
)

const (
	OpSend        = "send"
	OpEdit        = "edit"
	OpEditButtons = "edit_buttons"
	OpAnswer      = "answer"
)

// Button is an inline button. Exactly one of Data or URL is set.
type Button struct {
	Text string
	Data string
	URL  string
}

// Keyboard is rows of buttons.
type Keyboard [][]Button

// Channel is the chat platform.
type Channel interface {
	Send(ctx context.Context, chat domain.ChatID, text string, kb Keyboard, replyTo domain.MessageID) (domain.MessageID, error)
	Edit(ctx context.Context, chat domain.ChatID, msg domain.MessageID, text string, kb Keyboard) error
	EditButtons(ctx context.Context, chat domain.ChatID, msg domain.MessageID, kb Keyboard) error
	Answer(ctx context.Context, queryID, text string, alert bool, url string) error
}

// Intent is one of SendMessage, EditMessage, EditButtons or AnswerCallback.
type Intent interface {
	Op() string
}

type SendMessage struct {
	Chat    domain.ChatID
	Text    string
	Buttons Keyboard
	ReplyTo domain.MessageID
}

type EditMessage struct {
	Chat    domain.ChatID
	Message domain.MessageID
	Text    string
	Buttons Keyboard
}

type EditButtons struct {
	Chat    domain.ChatID
	Message domain.MessageID
	Buttons Keyboard
}

type AnswerCallback struct {
	QueryID string
	Text    string
	Alert   bool
	URL     string
}

func (SendMessage) Op() string    { return OpSend }
func (EditMessage) Op() string    { return OpEdit }
func (EditButtons) Op() string    { return OpEditButtons }
func (AnswerCallback) Op() string { return OpAnswer }

// Answer is shorthand for a plain toast.
func Answer(queryID, text string) AnswerCallback {
	return AnswerCallback{QueryID: queryID, Text: text}
}

// Alert is shorthand for a modal answer.
func Alert(queryID, text string) AnswerCallback {
	return AnswerCallback{QueryID: queryID, Text: text, Alert: true}
}

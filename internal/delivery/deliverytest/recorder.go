// Package deliverytest provides an in-memory delivery.Channel.
package deliverytest

import (
	"context"
	"sync"

	"example.com/dayof/internal/delivery"
	"example.com/dayof/internal/domain"
)

// Call is one recorded channel operation.
type Call struct {
	Op      string
	Chat    domain.ChatID
	Message domain.MessageID
	Text    string
	Buttons delivery.Keyboard
	ReplyTo domain.MessageID
	QueryID string
	Alert   bool
	URL     string
}

// Recorder records every call and hands out increasing message ids starting
// at 1000. Failures queued with Fail are returned before any call succeeds.
type Recorder struct {
	mu       sync.Mutex
	calls    []Call
	nextID   domain.MessageID
	failures map[string][]error
}

func New() *Recorder {
	return &Recorder{nextID: 1000, failures: map[string][]error{}}
}

// Fail makes the next len(errs) calls of op return errs in order.
func (r *Recorder) Fail(op string, errs ...error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[op] = append(r.failures[op], errs...)
}

func (r *Recorder) record(c Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if q := r.failures[c.Op]; len(q) > 0 {
		r.failures[c.Op] = q[1:]
		return q[0]
	}
	if c.Op == delivery.OpSend {
		r.nextID++
		c.Message = r.nextID
	}
	r.calls = append(r.calls, c)
	return nil
}

func (r *Recorder) Send(_ context.Context, chat domain.ChatID, text string, kb delivery.Keyboard, replyTo domain.MessageID) (domain.MessageID, error) {
	c := Call{Op: delivery.OpSend, Chat: chat, Text: text, Buttons: kb, ReplyTo: replyTo}
	if err := r.record(c); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[len(r.calls)-1].Message, nil
}

func (r *Recorder) Edit(_ context.Context, chat domain.ChatID, msg domain.MessageID, text string, kb delivery.Keyboard) error {
	return r.record(Call{Op: delivery.OpEdit, Chat: chat, Message: msg, Text: text, Buttons: kb})
}

func (r *Recorder) EditButtons(_ context.Context, chat domain.ChatID, msg domain.MessageID, kb delivery.Keyboard) error {
	return r.record(Call{Op: delivery.OpEditButtons, Chat: chat, Message: msg, Buttons: kb})
}

func (r *Recorder) Answer(_ context.Context, queryID, text string, alert bool, url string) error {
	return r.record(Call{Op: delivery.OpAnswer, QueryID: queryID, Text: text, Alert: alert, URL: url})
}

// Calls returns a copy of everything recorded.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Only filters recorded calls by op.
func (r *Recorder) Only(op string) []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// SentTo filters sends by chat.
func (r *Recorder) SentTo(chat domain.ChatID) []Call {
	var out []Call
	for _, c := range r.Only(delivery.OpSend) {
		if c.Chat == chat {
			out = append(out, c)
		}
	}
	return out
}

// LastAnswer returns the most recent callback answer.
func (r *Recorder) LastAnswer() (Call, bool) {
	a := r.Only(delivery.OpAnswer)
	if len(a) == 0 {
		return Call{}, false
	}
	return a[len(a)-1], true
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

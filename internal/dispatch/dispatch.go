// Package dispatch routes inbound updates to events and runs the resulting
// delivery intents.
package dispatch

import (
	"context"
	"strings"
	"time"

	"example.com/dayof/internal/callback"
	"example.com/dayof/internal/delivery"
	"example.com/dayof/internal/domain"
	"example.com/dayof/internal/engine"
	"example.com/dayof/internal/logging"
	"example.com/dayof/internal/metrics"
)

// Handler is one time-boxed event.
type Handler interface {
	Name() string
	Window() domain.Window
	// Help answers /help and /start in a private chat.
	Help(ctx context.Context, to domain.User) ([]delivery.Intent, error)
	// HandleText takes a private-chat submission.
	HandleText(ctx context.Context, m *domain.Message) ([]delivery.Intent, error)
	HandleCallback(ctx context.Context, q *domain.Query, p callback.Payload) ([]delivery.Intent, error)
	// Announce builds the scheduled chat posts for slot, if any are due.
	Announce(ctx context.Context, slot string, now time.Time) ([]delivery.Intent, error)
	Summary(ctx context.Context) (engine.Summary, error)
}

// Breaker is implemented by events that pause during part of the day.
type Breaker interface {
	OnBreak(now time.Time) bool
	BreakReply(ctx context.Context, to domain.User, queryID string) ([]delivery.Intent, error)
}

// Observer learns chat membership from messages.
type Observer interface {
	Observe(ctx context.Context, m *domain.Message) error
	IsMember(ctx context.Context, chat domain.ChatID, uid domain.UserID) (bool, error)
}

const (
	textFinished = "Все уже закончилось"
	textUnknown  = "Эта кнопка больше не работает"
	textFailed   = "Произошла ошибка. Попробуйте еще раз"
)

type Dispatcher struct {
	handlers map[string]Handler
	order    []Handler
	dir      Observer
	exec     *delivery.Executor
	chat     domain.ChatID
	log      logging.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// New builds a dispatcher for the scope chat. Handlers are consulted in the
// given order when deciding which event owns a private message.
func New(chat domain.ChatID, dir Observer, exec *delivery.Executor, log logging.Logger, m *metrics.Metrics, handlers ...Handler) *Dispatcher {
	d := &Dispatcher{
		handlers: make(map[string]Handler, len(handlers)),
		order:    handlers,
		dir:      dir,
		exec:     exec,
		chat:     chat,
		log:      log,
		metrics:  m,
		now:      time.Now,
	}
	for _, h := range handlers {
		d.handlers[h.Name()] = h
	}
	return d
}

// Handler returns the event registered under name.
func (d *Dispatcher) Handler(name string) (Handler, bool) {
	h, ok := d.handlers[name]
	return h, ok
}

// Handle processes one update to completion. Intents are executed even when
// some of them fail; the returned error is for logging only.
func (d *Dispatcher) Handle(ctx context.Context, u domain.Update) error {
	switch {
	case u.Message != nil:
		return d.handleMessage(ctx, u.Message)
	case u.Query != nil:
		return d.handleQuery(ctx, u.Query)
	}
	return nil
}

// active is the first event whose window is open.
func (d *Dispatcher) active() (Handler, bool) {
	now := d.now()
	for _, h := range d.order {
		if h.Window().Active(now) {
			return h, true
		}
	}
	return nil, false
}

func (d *Dispatcher) member(ctx context.Context, uid domain.UserID) bool {
	ok, err := d.dir.IsMember(ctx, d.chat, uid)
	if err != nil {
		d.log.WithError(err).WithField("user", uid).Warn("membership check failed")
		return false
	}
	return ok
}

func (d *Dispatcher) onBreak(h Handler) (Breaker, bool) {
	b, ok := h.(Breaker)
	if !ok || !b.OnBreak(d.now()) {
		return nil, false
	}
	return b, true
}

func (d *Dispatcher) count(event, kind, outcome string) {
	d.metrics.Updates.WithLabelValues(event, kind, outcome).Inc()
}

func isCommand(text, cmd string) bool {
	f := strings.Fields(text)
	if len(f) == 0 {
		return false
	}
	name, _, _ := strings.Cut(f[0], "@")
	return name == cmd
}

func (d *Dispatcher) handleMessage(ctx context.Context, m *domain.Message) error {
	if err := d.dir.Observe(ctx, m); err != nil {
		d.log.WithError(err).Warn("observe message")
	}
	if !m.Private || strings.TrimSpace(m.Text) == "" {
		return nil
	}

	h, ok := d.active()
	if !ok {
		d.count("none", "text", "inactive")
		return nil
	}
	if !d.member(ctx, m.From.ID) {
		d.count(h.Name(), "text", "not_member")
		return nil
	}
	if b, ok := d.onBreak(h); ok {
		d.count(h.Name(), "text", "break")
		intents, err := b.BreakReply(ctx, m.From, "")
		return d.run(ctx, h.Name(), intents, err)
	}

	if isCommand(m.Text, "/help") || isCommand(m.Text, "/start") {
		d.count(h.Name(), "help", "ok")
		intents, err := h.Help(ctx, m.From)
		return d.run(ctx, h.Name(), intents, err)
	}
	intents, err := h.HandleText(ctx, m)
	if err != nil {
		d.count(h.Name(), "text", "error")
		d.exec.Run(ctx, delivery.SendMessage{Chat: domain.ChatID(m.From.ID), Text: textFailed})
		return err
	}
	d.count(h.Name(), "text", "ok")
	return d.run(ctx, h.Name(), intents, nil)
}

func (d *Dispatcher) handleQuery(ctx context.Context, q *domain.Query) error {
	env, err := callback.Decode(q.Data)
	if err != nil {
		d.count("none", "callback", "malformed")
		d.exec.Run(ctx, delivery.Answer(q.ID, textUnknown))
		return nil
	}
	h, ok := d.handlers[env.Event]
	if !ok {
		d.count("none", "callback", "unknown_event")
		d.exec.Run(ctx, delivery.Answer(q.ID, textUnknown))
		return nil
	}

	// polls run after the event day is over
	_, isPoll := env.Payload.(callback.Poll)
	if !isPoll {
		if !h.Window().Active(d.now()) {
			d.count(h.Name(), "callback", "finished")
			d.exec.Run(ctx, delivery.Alert(q.ID, textFinished))
			return nil
		}
		if b, ok := d.onBreak(h); ok {
			d.count(h.Name(), "callback", "break")
			intents, err := b.BreakReply(ctx, q.From, q.ID)
			return d.run(ctx, h.Name(), intents, err)
		}
	}

	intents, err := h.HandleCallback(ctx, q, env.Payload)
	if err != nil {
		d.count(h.Name(), "callback", "error")
		d.exec.Run(ctx, delivery.Alert(q.ID, textFailed))
		return err
	}
	d.count(h.Name(), "callback", "ok")
	return d.run(ctx, h.Name(), intents, nil)
}

func (d *Dispatcher) run(ctx context.Context, event string, intents []delivery.Intent, err error) error {
	if err != nil {
		return err
	}
	if failed := d.exec.Run(ctx, intents...); failed > 0 {
		d.log.WithField("event", event).WithField("failed", failed).Warn("some deliveries failed")
	}
	return nil
}

// Summary returns the named event's statistics.
func (d *Dispatcher) Summary(ctx context.Context, event string) (engine.Summary, error) {
	h, ok := d.handlers[event]
	if !ok {
		return engine.Summary{}, &domain.NotFoundError{What: "event", ID: event}
	}
	return h.Summary(ctx)
}

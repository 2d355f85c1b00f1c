package delivery

import (
	"context"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"example.com/dayof/internal/domain"
	"example.com/dayof/internal/logging"
	"example.com/dayof/internal/metrics"
)

type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 3, BaseDelay: 200 * time.Millisecond, MaxDelay: 2 * time.Second}
}

// Executor runs intents against a Channel. Only temporary DeliveryErrors are
// retried.
type Executor struct {
	ch      Channel
	log     logging.Logger
	metrics *metrics.Metrics
	exec    failsafe.Executor[domain.MessageID]
}

func NewExecutor(ch Channel, log logging.Logger, m *metrics.Metrics, cfg RetryConfig) *Executor {
	b := retrypolicy.NewBuilder[domain.MessageID]().
		WithMaxRetries(cfg.MaxRetries).
		HandleIf(func(_ domain.MessageID, err error) bool {
			return domain.IsTemporary(err)
		}).
		ReturnLastFailure().
		OnRetry(func(e failsafe.ExecutionEvent[domain.MessageID]) {
			log.WithError(e.LastError()).WithField("attempt", e.Attempts()).Debug("retrying delivery")
		})
	if cfg.BaseDelay > 0 {
		maxDelay := cfg.MaxDelay
		if maxDelay <= cfg.BaseDelay {
			maxDelay = cfg.BaseDelay * 8
		}
		b = b.WithBackoff(cfg.BaseDelay, maxDelay).WithJitterFactor(0.1)
	} else {
		b = b.WithDelay(0)
	}
	return &Executor{ch: ch, log: log, metrics: m, exec: failsafe.With[domain.MessageID](b.Build())}
}

func (e *Executor) do(ctx context.Context, op string, fn func() (domain.MessageID, error)) (domain.MessageID, error) {
	id, err := e.exec.WithContext(ctx).Get(fn)
	result := "ok"
	if err != nil {
		result = "failed"
	}
	e.metrics.Deliveries.WithLabelValues(op, result).Inc()
	return id, err
}

// Send posts a message and returns its id. Callers that need the id (a
// preview, a published item) use this directly and handle the error.
func (e *Executor) Send(ctx context.Context, m SendMessage) (domain.MessageID, error) {
	return e.do(ctx, OpSend, func() (domain.MessageID, error) {
		return e.ch.Send(ctx, m.Chat, m.Text, m.Buttons, m.ReplyTo)
	})
}

func (e *Executor) run(ctx context.Context, in Intent) error {
	switch m := in.(type) {
	case SendMessage:
		_, err := e.Send(ctx, m)
		if err != nil && len(m.Buttons) > 0 {
			// retry without buttons
			plain := m
			plain.Buttons = nil
			e.log.WithError(err).WithField("chat", m.Chat).Warn("send failed, falling back to plain text")
			_, err = e.Send(ctx, plain)
		}
		return err
	case EditMessage:
		_, err := e.do(ctx, OpEdit, func() (domain.MessageID, error) {
			return m.Message, e.ch.Edit(ctx, m.Chat, m.Message, m.Text, m.Buttons)
		})
		return err
	case EditButtons:
		_, err := e.do(ctx, OpEditButtons, func() (domain.MessageID, error) {
			return m.Message, e.ch.EditButtons(ctx, m.Chat, m.Message, m.Buttons)
		})
		return err
	case AnswerCallback:
		_, err := e.do(ctx, OpAnswer, func() (domain.MessageID, error) {
			return 0, e.ch.Answer(ctx, m.QueryID, m.Text, m.Alert, m.URL)
		})
		return err
	}
	return nil
}

// Run executes intents in order. A failed intent is logged and the rest
// still run. It returns how many failed.
func (e *Executor) Run(ctx context.Context, intents ...Intent) int {
	failed := 0
	for _, in := range intents {
		if err := e.run(ctx, in); err != nil {
			failed++
			e.log.WithError(err).WithField("op", in.Op()).Warn("delivery failed")
		}
	}
	return failed
}

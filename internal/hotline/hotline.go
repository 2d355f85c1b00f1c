// Package hotline is the anonymous line: categorized submissions become
// numbered cases in the chat, and members report or support them.
package hotline

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"example.com/dayof/internal/callback"
	"example.com/dayof/internal/delivery"
	"example.com/dayof/internal/domain"
	"example.com/dayof/internal/engine"
	"example.com/dayof/internal/idempotency"
	"example.com/dayof/internal/logging"
	"example.com/dayof/internal/metrics"
	"example.com/dayof/internal/storage"
)

const Name = "hotline"

const (
	kindReport  = "report"
	kindSupport = "support"
	kindLike    = "like"
	kindDislike = "dislike"

	pollTarget = "poll:end"

	statSelfReports = "self_reports"
	statSelfGifts   = "self_gifts"
	statCollected   = "collected"
	statBreaks      = "breaks"

	// revealMargin is how far reports must outnumber support before the
	// author's name is shown.
	revealMargin = 7
	// alertThreshold reports inside alertWindow trigger the slow-down alert.
	alertThreshold = 3
	alertWindow    = 30 * time.Minute
	// maskedShare is the percent of cases signed with a random member's
	// masked name instead of the author's.
	maskedShare = 70
)

type Config struct {
	Chat        domain.ChatID
	Window      domain.Window
	TTL         time.Duration
	BotUsername string
	// BreakHour is the local hour the line is closed; negative disables it.
	BreakHour int
}

// Hotline implements dispatch.Handler and dispatch.Breaker.
type Hotline struct {
	cfg       Config
	scope     domain.Scope
	store     storage.Store
	dir       engine.Directory
	exec      *delivery.Executor
	log       logging.Logger
	metrics   *metrics.Metrics
	validator *engine.Validator
	publisher *engine.Publisher
	items     *engine.Items
	ledger    *engine.Ledger
	stats     *engine.Stats
	now       func() time.Time
	// IntN is swappable for tests.
	IntN func(n int) int
}

func New(cfg Config, store storage.Store, dir engine.Directory, exec *delivery.Executor, log logging.Logger, m *metrics.Metrics) *Hotline {
	guard := idempotency.NewGuard(store, cfg.TTL)
	stats := engine.NewStats(store, cfg.TTL)
	items := engine.NewItems(store, cfg.TTL)
	return &Hotline{
		cfg:     cfg,
		scope:   domain.Scope{Event: Name, Chat: cfg.Chat},
		store:   store,
		dir:     dir,
		exec:    exec,
		log:     log.WithField("event", Name),
		metrics: m,
		validator: &engine.Validator{
			Classifier: engine.NewClassifier(
				engine.PrefixRule(domain.CategoryReport, reportPhrases),
				engine.PrefixRule(domain.CategoryConfession, confessionPhrases),
			),
			Guard:       guard,
			RejectLinks: true,
		},
		publisher: engine.NewPublisher(engine.NewCuratedAllocator(store, cfg.TTL, caseTitles), guard, items, stats),
		items:     items,
		ledger: engine.NewLedger(store, cfg.TTL, stats,
			engine.ReactionKind{Name: kindReport, Exclusive: kindSupport},
			engine.ReactionKind{Name: kindSupport, Exclusive: kindReport},
			engine.ReactionKind{Name: kindLike, Set: "poll"},
			engine.ReactionKind{Name: kindDislike, Set: "poll"},
		),
		stats: stats,
		now:   time.Now,
		IntN:  rand.IntN,
	}
}

func (h *Hotline) Name() string          { return Name }
func (h *Hotline) Window() domain.Window { return h.cfg.Window }

func (h *Hotline) data(p callback.Payload) string {
	return callback.MustEncode(callback.Envelope{Event: Name, Payload: p})
}

func (h *Hotline) OnBreak(now time.Time) bool {
	if h.cfg.BreakHour < 0 {
		return false
	}
	if loc := h.cfg.Window.Location; loc != nil {
		now = now.In(loc)
	}
	return now.Hour() == h.cfg.BreakHour
}

func (h *Hotline) BreakReply(ctx context.Context, to domain.User, queryID string) ([]delivery.Intent, error) {
	if _, err := h.stats.Incr(ctx, h.scope, statBreaks, 1); err != nil {
		return nil, err
	}
	text := fmt.Sprintf(textBreak, to.Mention(), h.cfg.BreakHour+1)
	if queryID != "" {
		return []delivery.Intent{delivery.Alert(queryID, text)}, nil
	}
	return []delivery.Intent{delivery.SendMessage{Chat: domain.ChatID(to.ID), Text: text}}, nil
}

func (h *Hotline) Help(_ context.Context, to domain.User) ([]delivery.Intent, error) {
	name := to.FullName()
	if name == "" {
		name = to.Mention()
	}
	return []delivery.Intent{delivery.SendMessage{
		Chat: domain.ChatID(to.ID),
		Text: fmt.Sprintf(textHelp, name),
	}}, nil
}

func (h *Hotline) Summary(ctx context.Context) (engine.Summary, error) {
	return h.stats.Summary(ctx, h.scope,
		[]string{
			engine.StatSubmissions,
			engine.StatSubmissions + ":" + domain.CategoryReport.String(),
			engine.StatSubmissions + ":" + domain.CategoryConfession.String(),
			"reactions:" + kindReport,
			"reactions:" + kindSupport,
			statCollected,
			statSelfReports,
			statBreaks,
		},
		[]string{engine.SetSubmitters, "reactors:" + kindReport, "reactors:" + kindSupport},
	)
}

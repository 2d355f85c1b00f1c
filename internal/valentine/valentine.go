// Package valentine is the card exchange: members write cards addressed to
// another member, tune them in a private preview and post them anonymously.
package valentine

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
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

const Name = "valentine"

const (
	kindJealous = "jealous"
	kindWink    = "wink"
	kindLike    = "like"
	kindDislike = "dislike"

	pollTarget = "poll:end"

	idDigits = 8
)

// ErrInactive is returned to web submissions outside the event day.
var ErrInactive = errors.New("valentine: event is not active")

// Directory is the member lookup the event needs. directory.Directory
// satisfies it.
type Directory interface {
	engine.Directory
	Members(ctx context.Context, chat domain.ChatID) ([]domain.User, error)
}

type Config struct {
	Chat        domain.ChatID
	Window      domain.Window
	TTL         time.Duration
	Cooldown    time.Duration
	BotUsername string
}

// Valentine implements dispatch.Handler.
type Valentine struct {
	cfg       Config
	scope     domain.Scope
	store     storage.Store
	dir       Directory
	exec      *delivery.Executor
	log       logging.Logger
	metrics   *metrics.Metrics
	validator *engine.Validator
	drafts    *engine.Drafts
	publisher *engine.Publisher
	items     *engine.Items
	ledger    *engine.Ledger
	stats     *engine.Stats
	now       func() time.Time
}

func New(cfg Config, store storage.Store, dir Directory, exec *delivery.Executor, log logging.Logger, m *metrics.Metrics) *Valentine {
	guard := idempotency.NewGuard(store, cfg.TTL)
	stats := engine.NewStats(store, cfg.TTL)
	items := engine.NewItems(store, cfg.TTL)
	return &Valentine{
		cfg:       cfg,
		scope:     domain.Scope{Event: Name, Chat: cfg.Chat},
		store:     store,
		dir:       dir,
		exec:      exec,
		log:       log.WithField("event", Name),
		metrics:   m,
		validator: &engine.Validator{Directory: dir, Guard: guard},
		drafts:    engine.NewDrafts(store, cfg.TTL, cfg.Cooldown, len(hearts), 0),
		publisher: engine.NewPublisher(engine.NewRandomAllocator(store, cfg.TTL, idDigits), guard, items, stats),
		items:     items,
		ledger: engine.NewLedger(store, cfg.TTL, stats,
			engine.ReactionKind{Name: kindJealous},
			engine.ReactionKind{Name: kindWink},
			engine.ReactionKind{Name: kindLike, Set: "poll"},
			engine.ReactionKind{Name: kindDislike, Set: "poll"},
		),
		stats: stats,
		now:   time.Now,
	}
}

func (v *Valentine) Name() string          { return Name }
func (v *Valentine) Window() domain.Window { return v.cfg.Window }

func (v *Valentine) data(p callback.Payload) string {
	return callback.MustEncode(callback.Envelope{Event: Name, Payload: p})
}

func (v *Valentine) Help(_ context.Context, to domain.User) ([]delivery.Intent, error) {
	return []delivery.Intent{delivery.SendMessage{Chat: domain.ChatID(to.ID), Text: textHelp}}, nil
}

func heartStat(style int) string { return "hearts:" + strconv.Itoa(style) }

func (v *Valentine) Summary(ctx context.Context) (engine.Summary, error) {
	counters := []string{
		engine.StatSubmissions,
		"reactions:" + kindJealous,
		"reactions:" + kindWink,
	}
	for i := range hearts {
		counters = append(counters, heartStat(i))
	}
	return v.stats.Summary(ctx, v.scope, counters,
		[]string{engine.SetSubmitters, "reactors:" + kindJealous, "reactors:" + kindWink})
}

func heart(style int) string {
	if style < 0 || style >= len(hearts) {
		return hearts[0]
	}
	return hearts[style]
}

// cardBody is the card as posted, without the tag. Content is escaped.
func cardBody(content string, style int) string {
	h := heart(style)
	return h + "  " + html.EscapeString(content) + "  " + h
}

// cardPlain is the card for alerts, which are not HTML.
func cardPlain(it *engine.Item) string {
	h := heart(it.Style)
	return h + "  " + it.Content + "  " + h
}

func cardText(it *engine.Item) string {
	return cardBody(it.Content, it.Style) + "\n\n" + cardTag
}

// previewText renders a draft for its author. Superseded and sent previews
// drop the header and change the title.
func previewText(d *engine.Draft, title string, withHeader bool) string {
	body := cardBody(d.Content, d.Style)
	if withHeader {
		return previewHeader + "\n\n" + title + "\n\n" + body
	}
	return title + "\n\n" + body
}

func (v *Valentine) previewButtons() delivery.Keyboard {
	row := make([]delivery.Button, 0, len(hearts))
	for i, h := range hearts {
		row = append(row, delivery.Button{Text: h, Data: v.data(callback.Style{Style: i})})
	}
	return delivery.Keyboard{row, {{Text: labelPublish, Data: v.data(callback.Publish{})}}}
}

func (v *Valentine) cardButtons(id int64, counts map[string]int64) delivery.Keyboard {
	return delivery.Keyboard{
		{
			{Text: engine.ReactionLabel(labelJealous, counts[kindJealous]), Data: v.data(callback.React{Item: id, Kind: kindJealous})},
			{Text: labelWink, Data: v.data(callback.React{Item: id, Kind: kindWink})},
		},
		{{Text: labelAbout, Data: v.data(callback.About{})}},
	}
}

// notify sends a private note about a card with a button that shows it.
func (v *Valentine) notify(to domain.UserID, text string, it *engine.Item) delivery.SendMessage {
	at := it.CreatedAt
	if loc := v.cfg.Window.Location; loc != nil {
		at = at.In(loc)
	}
	return delivery.SendMessage{
		Chat: domain.ChatID(to),
		Text: text,
		Buttons: delivery.Keyboard{{{
			Text: fmt.Sprintf(labelShow, at.Format("15:04")),
			Data: v.data(callback.ShowItem{Item: it.ID}),
		}}},
	}
}

func (v *Valentine) mention(ctx context.Context, uid domain.UserID) (string, error) {
	u, found, err := v.dir.User(ctx, uid)
	if err != nil {
		return "", err
	}
	if !found {
		return uid.String(), nil
	}
	return u.Mention(), nil
}

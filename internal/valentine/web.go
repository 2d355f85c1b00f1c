package valentine

import (
	"context"
	"time"

	"example.com/dayof/internal/domain"
	"example.com/dayof/internal/engine"
)

// Card is the web view of a published card. Reactions list who reacted and
// whether the sender has already seen them.
type Card struct {
	ID      int64     `json:"id"`
	Chat    int64     `json:"chat_id"`
	To      string    `json:"to_user"`
	Text    string    `json:"text"`
	Style   int       `json:"heart_index"`
	Winks   []Reactor `json:"winks"`
	Jealous []Reactor `json:"jealous"`
	Time    time.Time `json:"time"`
}

type Reactor struct {
	User   string `json:"user"`
	Viewed bool   `json:"viewed"`
}

// Create publishes a card from the anonymous web form. There is no submitter
// and no preview; style falls back to the first heart when out of range.
func (v *Valentine) Create(ctx context.Context, text string, style int) (*engine.Item, error) {
	if !v.cfg.Window.Active(v.now()) {
		return nil, ErrInactive
	}
	sub, err := v.validator.Validate(ctx, v.scope, 0, text)
	if err != nil {
		return nil, err
	}
	if style < 0 || style >= len(hearts) {
		style = 0
	}
	draft := &engine.Draft{Recipient: sub.Recipient, Content: sub.Text, Style: style}
	item, err := v.post(ctx, draft)
	if err != nil {
		return nil, err
	}
	v.log.WithField("item", item.ID).Info("web card sent")
	return item, nil
}

// Cards looks up cards by id, skipping unknown ones. Every call marks the
// reactions it returns as viewed for the next call.
func (v *Valentine) Cards(ctx context.Context, ids []int64) ([]Card, error) {
	out := make([]Card, 0, len(ids))
	for _, id := range ids {
		it, err := v.items.Get(ctx, v.scope, id)
		if domain.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		c := Card{
			ID:    it.ID,
			Chat:  int64(it.Chat),
			Text:  it.Content,
			Style: it.Style,
			Time:  it.CreatedAt,
		}
		if it.Recipient != nil {
			c.To = it.Recipient.Mention()
		}
		if c.Winks, err = v.reactors(ctx, it, kindWink); err != nil {
			return nil, err
		}
		if c.Jealous, err = v.reactors(ctx, it, kindJealous); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (v *Valentine) reactors(ctx context.Context, it *engine.Item, kind string) ([]Reactor, error) {
	uids, err := v.ledger.Members(ctx, v.scope, it.Target(), kind)
	if err != nil {
		return nil, err
	}
	viewedKey := v.scope.Key(it.Target(), "viewed", kind)
	out := make([]Reactor, 0, len(uids))
	for _, uid := range uids {
		name, err := v.mention(ctx, uid)
		if err != nil {
			return nil, err
		}
		// SAdd reports whether uid was new, i.e. not viewed before
		fresh, err := v.store.SAdd(ctx, viewedKey, uid.String(), v.cfg.TTL)
		if err != nil {
			return nil, err
		}
		out = append(out, Reactor{User: name, Viewed: !fresh})
	}
	return out, nil
}

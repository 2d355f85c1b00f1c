package valentine

import (
	"context"
	"fmt"

	"example.com/dayof/internal/callback"
	"example.com/dayof/internal/delivery"
	"example.com/dayof/internal/domain"
	"example.com/dayof/internal/engine"
	"example.com/dayof/internal/textutil"
)

// shownRunes bounds the card text in a "show card" alert.
const shownRunes = 190

func (v *Valentine) HandleCallback(ctx context.Context, q *domain.Query, p callback.Payload) ([]delivery.Intent, error) {
	switch p := p.(type) {
	case callback.Begin:
		help, err := v.Help(ctx, q.From)
		if err != nil {
			return nil, err
		}
		link := delivery.AnswerCallback{QueryID: q.ID, URL: "t.me/" + v.cfg.BotUsername + "?start=" + Name}
		return append([]delivery.Intent{link}, help...), nil
	case callback.About:
		return []delivery.Intent{delivery.Alert(q.ID, textAbout)}, nil
	case callback.Style:
		return v.restyle(ctx, q, p)
	case callback.Publish:
		return v.publish(ctx, q)
	case callback.React:
		switch p.Kind {
		case kindJealous:
			return v.jealous(ctx, q, p.Item)
		case kindWink:
			return v.wink(ctx, q, p.Item)
		}
	case callback.ShowItem:
		return v.show(ctx, q, p.Item)
	case callback.Poll:
		return v.vote(ctx, q, p)
	}
	return []delivery.Intent{delivery.Answer(q.ID, "")}, nil
}

func (v *Valentine) card(ctx context.Context, q *domain.Query, id int64) (*engine.Item, []delivery.Intent, error) {
	it, err := v.items.Get(ctx, v.scope, id)
	if domain.IsNotFound(err) {
		return nil, []delivery.Intent{delivery.Alert(q.ID, fmt.Sprintf(textNotFound, id))}, nil
	}
	return it, nil, err
}

// jealous is open to anyone, the recipient included. Both sides of the card
// hear about it.
func (v *Valentine) jealous(ctx context.Context, q *domain.Query, id int64) ([]delivery.Intent, error) {
	it, miss, err := v.card(ctx, q, id)
	if it == nil {
		return miss, err
	}
	actor := q.From
	res, err := v.ledger.React(ctx, v.scope, it.Target(), kindJealous, actor.ID)
	if err != nil {
		return nil, err
	}
	if res.AlreadyReacted {
		v.metrics.Reactions.WithLabelValues(Name, kindJealous, "repeat").Inc()
		return []delivery.Intent{delivery.Answer(q.ID, textJealousAgain)}, nil
	}
	v.metrics.Reactions.WithLabelValues(Name, kindJealous, "added").Inc()

	answer := textJealous
	if it.Recipient != nil && actor.ID == it.Recipient.ID {
		answer = textJealousSelf
	}
	out := []delivery.Intent{
		delivery.Answer(q.ID, answer),
		delivery.EditButtons{Chat: it.Chat, Message: it.Message, Buttons: v.cardButtons(it.ID, res.Counts)},
	}
	if it.Recipient != nil {
		out = append(out, v.notify(it.Recipient.ID, fmt.Sprintf(textNotifyJealousR, actor.Mention()), it))
	}
	if it.Submitter != 0 {
		to := ""
		if it.Recipient != nil {
			to = it.Recipient.Mention()
		}
		out = append(out, v.notify(it.Submitter, fmt.Sprintf(textNotifyJealousS, actor.Mention(), to), it))
	}
	return out, nil
}

// wink is for the recipient only and counts once. The sender is told and
// their sent preview is marked.
func (v *Valentine) wink(ctx context.Context, q *domain.Query, id int64) ([]delivery.Intent, error) {
	it, miss, err := v.card(ctx, q, id)
	if it == nil {
		return miss, err
	}
	actor := q.From
	if it.Recipient == nil || actor.ID != it.Recipient.ID {
		v.metrics.Reactions.WithLabelValues(Name, kindWink, "rejected").Inc()
		return []delivery.Intent{delivery.Answer(q.ID, textWinkNotYours)}, nil
	}
	res, err := v.ledger.React(ctx, v.scope, it.Target(), kindWink, actor.ID)
	if err != nil {
		return nil, err
	}
	if res.AlreadyReacted {
		v.metrics.Reactions.WithLabelValues(Name, kindWink, "repeat").Inc()
		return []delivery.Intent{delivery.Answer(q.ID, textWinkAgain)}, nil
	}
	v.metrics.Reactions.WithLabelValues(Name, kindWink, "added").Inc()

	out := []delivery.Intent{delivery.Answer(q.ID, textWinked)}
	if it.Submitter != 0 {
		out = append(out, v.notify(it.Submitter, fmt.Sprintf(textNotifyWink, actor.Mention()), it))
		if it.Preview != 0 {
			out = append(out, delivery.EditMessage{
				Chat:    domain.ChatID(it.Submitter),
				Message: it.Preview,
				Text:    textWinkedTitle + "\n\n" + cardBody(it.Content, it.Style),
			})
		}
	}
	return out, nil
}

func (v *Valentine) show(ctx context.Context, q *domain.Query, id int64) ([]delivery.Intent, error) {
	it, miss, err := v.card(ctx, q, id)
	if it == nil {
		return miss, err
	}
	return []delivery.Intent{delivery.Alert(q.ID, textutil.Shorten(cardPlain(it), shownRunes))}, nil
}

func (v *Valentine) vote(ctx context.Context, q *domain.Query, p callback.Poll) ([]delivery.Intent, error) {
	if p.Kind != kindLike && p.Kind != kindDislike {
		return []delivery.Intent{delivery.Answer(q.ID, "")}, nil
	}
	res, err := v.ledger.React(ctx, v.scope, pollTarget, p.Kind, q.From.ID)
	if err != nil {
		return nil, err
	}
	if res.AlreadyReacted {
		v.metrics.Reactions.WithLabelValues(Name, p.Kind, "repeat").Inc()
		return []delivery.Intent{delivery.Answer(q.ID, textOnce)}, nil
	}
	v.metrics.Reactions.WithLabelValues(Name, p.Kind, "added").Inc()
	answer := textLike
	if p.Kind == kindDislike {
		answer = textDislike
	}
	return []delivery.Intent{
		delivery.Answer(q.ID, answer),
		delivery.EditButtons{Chat: q.Chat, Message: q.Message, Buttons: v.pollButtons(res.Counts)},
	}, nil
}

func (v *Valentine) pollButtons(counts map[string]int64) delivery.Keyboard {
	return delivery.Keyboard{{
		{Text: engine.ReactionLabel(labelLike, counts[kindLike]), Data: v.data(callback.Poll{Kind: kindLike})},
		{Text: engine.ReactionLabel(labelDislike, counts[kindDislike]), Data: v.data(callback.Poll{Kind: kindDislike})},
	}}
}

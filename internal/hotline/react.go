package hotline

import (
	"context"
	"fmt"

	"example.com/dayof/internal/callback"
	"example.com/dayof/internal/delivery"
	"example.com/dayof/internal/domain"
	"example.com/dayof/internal/engine"
)

func (h *Hotline) HandleCallback(ctx context.Context, q *domain.Query, p callback.Payload) ([]delivery.Intent, error) {
	switch p := p.(type) {
	case callback.Begin:
		help, err := h.Help(ctx, q.From)
		if err != nil {
			return nil, err
		}
		return append([]delivery.Intent{h.botLink(q.ID)}, help...), nil
	case callback.About:
		return []delivery.Intent{delivery.Alert(q.ID, textAbout)}, nil
	case callback.React:
		return h.react(ctx, q, p)
	case callback.Poll:
		return h.vote(ctx, q, p)
	}
	return []delivery.Intent{delivery.Answer(q.ID, "")}, nil
}

func (h *Hotline) botLink(queryID string) delivery.AnswerCallback {
	return delivery.AnswerCallback{QueryID: queryID, URL: "t.me/" + h.cfg.BotUsername + "?start=" + Name}
}

func (h *Hotline) react(ctx context.Context, q *domain.Query, p callback.React) ([]delivery.Intent, error) {
	if p.Kind != kindReport && p.Kind != kindSupport {
		return []delivery.Intent{delivery.Answer(q.ID, "")}, nil
	}
	item, err := h.items.Get(ctx, h.scope, p.Item)
	if domain.IsNotFound(err) {
		return []delivery.Intent{delivery.Alert(q.ID, fmt.Sprintf(textNotFound, p.Item))}, nil
	}
	if err != nil {
		return nil, err
	}
	actor := q.From

	// the author's own clicks are counted but never enter the ledger
	if actor.ID == item.Submitter {
		out := []delivery.Intent{delivery.Answer(q.ID, textSelfGive)}
		stat := statSelfGifts
		if p.Kind == kindReport {
			out[0] = delivery.Answer(q.ID, textSelfReport)
			stat = statSelfReports
		}
		if _, err := h.stats.Incr(ctx, h.scope, stat, 1); err != nil {
			return nil, err
		}
		if err := h.stats.Engage(ctx, h.scope, actor.ID); err != nil {
			return nil, err
		}
		h.metrics.Reactions.WithLabelValues(Name, p.Kind, "self").Inc()
		reveal, err := h.reveal(ctx, item)
		return append(out, reveal...), err
	}

	res, err := h.ledger.React(ctx, h.scope, item.Target(), p.Kind, actor.ID)
	if err != nil {
		return nil, err
	}
	if res.AlreadyReacted {
		h.metrics.Reactions.WithLabelValues(Name, p.Kind, "repeat").Inc()
		reveal, err := h.reveal(ctx, item)
		return append([]delivery.Intent{delivery.Answer(q.ID, textOnce)}, reveal...), err
	}
	h.metrics.Reactions.WithLabelValues(Name, p.Kind, "added").Inc()

	thanks := textSupported
	if p.Kind == kindReport {
		thanks = textReported
	}
	out := []delivery.Intent{
		delivery.Answer(q.ID, thanks),
		delivery.EditButtons{Chat: item.Chat, Message: item.Message, Buttons: h.caseButtons(item.ID, res.Counts)},
	}

	if p.Kind == kindSupport {
		// a random amount from 50 to 950 in steps of 50
		amount := int64(50 * (1 + h.IntN(19)))
		if _, err := h.stats.Incr(ctx, h.scope, statCollected, amount); err != nil {
			return nil, err
		}
	}

	reveal, err := h.reveal(ctx, item)
	if err != nil {
		return nil, err
	}
	out = append(out, reveal...)

	if c := res.Crossing; c != nil {
		format := textSupportThenReport
		if c.First == kindReport {
			format = textReportThenSupport
		}
		out = append(out, delivery.SendMessage{Chat: item.Chat, Text: fmt.Sprintf(format, actor.Mention()), ReplyTo: item.Message})
	}

	if p.Kind == kindReport {
		alert, err := h.reportAlert(ctx, actor)
		if err != nil {
			return nil, err
		}
		out = append(out, alert...)
	}
	return out, nil
}

// reveal signs the case with the author's real name once reports outnumber
// support by revealMargin. It happens at most once per case.
func (h *Hotline) reveal(ctx context.Context, item *engine.Item) ([]delivery.Intent, error) {
	counts, err := h.ledger.Counts(ctx, h.scope, item.Target())
	if err != nil {
		return nil, err
	}
	if counts[kindReport]-counts[kindSupport] < revealMargin {
		return nil, nil
	}
	first, err := h.store.SetNX(ctx, h.scope.Key(item.Target(), "revealed"), []byte("1"), h.cfg.TTL)
	if err != nil || !first {
		return nil, err
	}

	author, found, err := h.dir.User(ctx, item.Submitter)
	if err != nil {
		return nil, err
	}
	if !found {
		author = domain.User{ID: item.Submitter}
	}
	name := author.FullName()
	if name == "" {
		name = author.Mention()
	}
	item.Text = render(item, name)
	if err := h.items.Save(ctx, h.scope, item); err != nil {
		return nil, err
	}
	h.log.WithField("item", item.ID).Info("case author revealed")
	return []delivery.Intent{
		delivery.SendMessage{Chat: item.Chat, Text: fmt.Sprintf(textRevealed, author.Mention()), ReplyTo: item.Message},
		delivery.EditMessage{Chat: item.Chat, Message: item.Message, Text: item.Text, Buttons: h.caseButtons(item.ID, counts)},
	}, nil
}

// reportAlert calls out a member filing reports too fast. One alert per
// alertWindow for the whole chat.
func (h *Hotline) reportAlert(ctx context.Context, actor domain.User) ([]delivery.Intent, error) {
	recent, err := h.store.IncrBy(ctx, h.scope.Key("recent_reports", actor.ID.String()), 1, alertWindow)
	if err != nil {
		return nil, err
	}
	if recent < alertThreshold {
		return nil, nil
	}
	first, err := h.store.SetNX(ctx, h.scope.Key("report_alert"), []byte(actor.ID.String()), alertWindow)
	if err != nil || !first {
		return nil, err
	}
	return []delivery.Intent{delivery.SendMessage{Chat: h.cfg.Chat, Text: fmt.Sprintf(textAlert, actor.Mention())}}, nil
}

func (h *Hotline) vote(ctx context.Context, q *domain.Query, p callback.Poll) ([]delivery.Intent, error) {
	if p.Kind != kindLike && p.Kind != kindDislike {
		return []delivery.Intent{delivery.Answer(q.ID, "")}, nil
	}
	res, err := h.ledger.React(ctx, h.scope, pollTarget, p.Kind, q.From.ID)
	if err != nil {
		return nil, err
	}
	if res.AlreadyReacted {
		h.metrics.Reactions.WithLabelValues(Name, p.Kind, "repeat").Inc()
		return []delivery.Intent{delivery.Answer(q.ID, textOnce)}, nil
	}
	h.metrics.Reactions.WithLabelValues(Name, p.Kind, "added").Inc()
	answer := textLike
	if p.Kind == kindDislike {
		answer = textDislike
	}
	return []delivery.Intent{
		delivery.Answer(q.ID, answer),
		delivery.EditButtons{Chat: q.Chat, Message: q.Message, Buttons: h.pollButtons(res.Counts)},
	}, nil
}

func (h *Hotline) pollButtons(counts map[string]int64) delivery.Keyboard {
	return delivery.Keyboard{{
		{Text: engine.ReactionLabel(labelLike, counts[kindLike]), Data: h.data(callback.Poll{Kind: kindLike})},
		{Text: engine.ReactionLabel(labelDislike, counts[kindDislike]), Data: h.data(callback.Poll{Kind: kindDislike})},
	}}
}

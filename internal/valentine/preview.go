package valentine

import (
	"context"
	"errors"
	"fmt"

	"example.com/dayof/internal/callback"
	"example.com/dayof/internal/delivery"
	"example.com/dayof/internal/domain"
	"example.com/dayof/internal/engine"
)

func rejection(ve *domain.ValidationError) string {
	switch ve.Reason {
	case domain.ReasonMissingRecipient:
		return textMissingRecipient
	case domain.ReasonUnknownRecipient:
		return fmt.Sprintf(textUnknownRecipient, ve.Detail)
	case domain.ReasonSelfTarget:
		return textSelf
	case domain.ReasonDuplicate:
		return textDuplicate
	}
	return ""
}

// HandleText turns a private message into a fresh preview. An older preview
// that was never sent is retitled as a draft and loses its buttons.
func (v *Valentine) HandleText(ctx context.Context, m *domain.Message) ([]delivery.Intent, error) {
	to := domain.ChatID(m.From.ID)
	sub, err := v.validator.Validate(ctx, v.scope, m.From.ID, m.Text)
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		v.metrics.Publishes.WithLabelValues(Name, string(ve.Reason)).Inc()
		if text := rejection(ve); text != "" {
			return []delivery.Intent{delivery.SendMessage{Chat: to, Text: text}}, nil
		}
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	prev, next, err := v.drafts.Next(ctx, v.scope, sub)
	if err != nil {
		return nil, err
	}
	var out []delivery.Intent
	if prev != nil && !prev.Finalized && prev.Preview != 0 {
		out = append(out, delivery.EditMessage{Chat: to, Message: prev.Preview, Text: previewText(prev, titleDraft, false)})
	}

	id, err := v.exec.Send(ctx, delivery.SendMessage{
		Chat:    to,
		Text:    previewText(next, titlePreview, true),
		Buttons: v.previewButtons(),
	})
	if err != nil {
		v.log.WithError(err).WithField("user", m.From.ID).Warn("send preview failed")
		return append(out, delivery.SendMessage{Chat: to, Text: textPreviewFailed}), nil
	}
	next.Preview = id
	if err := v.drafts.Save(ctx, v.scope, next); err != nil {
		return nil, err
	}
	return out, nil
}

func (v *Valentine) restyle(ctx context.Context, q *domain.Query, p callback.Style) ([]delivery.Intent, error) {
	draft, changed, err := v.drafts.Restyle(ctx, v.scope, q.From.ID, q.Message, p.Style)
	if domain.IsNotFound(err) {
		return []delivery.Intent{delivery.Alert(q.ID, textNoDraft)}, nil
	}
	if err != nil {
		return nil, err
	}
	out := []delivery.Intent{delivery.Answer(q.ID, "")}
	if changed {
		out = append(out, delivery.EditMessage{
			Chat:    domain.ChatID(q.From.ID),
			Message: draft.Preview,
			Text:    previewText(draft, titlePreview, true),
			Buttons: v.previewButtons(),
		})
	}
	return out, nil
}

// publish posts the clicker's current draft. The debounce flag turns away
// clicks while one is in flight and is cleared on every exit path.
func (v *Valentine) publish(ctx context.Context, q *domain.Query) (_ []delivery.Intent, err error) {
	uid := q.From.ID
	ok, err := v.drafts.BeginPublish(ctx, v.scope, uid)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []delivery.Intent{delivery.Answer(q.ID, textWait)}, nil
	}
	defer func() {
		if eerr := v.drafts.EndPublish(ctx, v.scope, uid); eerr != nil && err == nil {
			err = eerr
		}
	}()

	draft, err := v.drafts.Get(ctx, v.scope, uid)
	if domain.IsNotFound(err) {
		return []delivery.Intent{delivery.Alert(q.ID, textNoDraft)}, nil
	}
	if err != nil {
		return nil, err
	}
	// a sent draft or an older preview whose buttons were not stripped
	if draft.Finalized || draft.Preview != q.Message {
		return []delivery.Intent{delivery.Answer(q.ID, "")}, nil
	}

	item, err := v.post(ctx, draft)
	switch {
	case domain.IsReason(err, domain.ReasonDuplicate):
		return []delivery.Intent{delivery.Alert(q.ID, textDuplicate)}, nil
	case item == nil && err != nil:
		v.log.WithError(err).WithField("user", uid).Warn("publish card failed")
		return []delivery.Intent{delivery.Alert(q.ID, textPublishFailed)}, nil
	}
	if err := v.drafts.MarkPublished(ctx, v.scope, draft); err != nil {
		return nil, err
	}
	v.log.WithField("item", item.ID).WithField("user", uid).Info("card sent")
	return []delivery.Intent{
		delivery.Answer(q.ID, textPublished),
		delivery.EditMessage{Chat: domain.ChatID(uid), Message: draft.Preview, Text: previewText(draft, titleSent, false)},
	}, nil
}

// post publishes a draft to the chat and counts its heart. Bookkeeping
// failures after the card is out are logged, not returned.
func (v *Valentine) post(ctx context.Context, draft *engine.Draft) (*engine.Item, error) {
	item, err := v.publisher.Publish(ctx, v.scope, draft, func(ctx context.Context, it *engine.Item) (domain.MessageID, error) {
		it.Text = cardText(it)
		return v.exec.Send(ctx, delivery.SendMessage{Chat: v.cfg.Chat, Text: it.Text, Buttons: v.cardButtons(it.ID, nil)})
	})
	if item == nil {
		result := "failed"
		if domain.IsReason(err, domain.ReasonDuplicate) {
			result = string(domain.ReasonDuplicate)
		}
		v.metrics.Publishes.WithLabelValues(Name, result).Inc()
		return nil, err
	}
	if err == nil {
		_, err = v.stats.Incr(ctx, v.scope, heartStat(item.Style), 1)
	}
	if err != nil {
		v.log.WithError(err).WithField("item", item.ID).Warn("card sent, not fully recorded")
	}
	v.metrics.Publishes.WithLabelValues(Name, "ok").Inc()
	return item, nil
}

package hotline

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"example.com/dayof/internal/callback"
	"example.com/dayof/internal/delivery"
	"example.com/dayof/internal/domain"
	"example.com/dayof/internal/engine"
	"example.com/dayof/internal/textutil"
)

// HandleText opens a case. The line has no preview step: a valid text is
// published at once.
func (h *Hotline) HandleText(ctx context.Context, m *domain.Message) ([]delivery.Intent, error) {
	to := domain.ChatID(m.From.ID)
	reply := func(text string) []delivery.Intent {
		return []delivery.Intent{delivery.SendMessage{Chat: to, Text: text}}
	}

	sub, err := h.validator.Validate(ctx, h.scope, m.From.ID, m.Text)
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		h.metrics.Publishes.WithLabelValues(Name, string(ve.Reason)).Inc()
		switch ve.Reason {
		case domain.ReasonLink:
			return reply(textLink), nil
		case domain.ReasonDuplicate:
			return reply(textDuplicate), nil
		case domain.ReasonEmpty:
			return nil, nil
		default:
			return reply(textUnknown), nil
		}
	}
	if err != nil {
		return nil, err
	}

	signature, err := h.signature(ctx, m.From)
	if err != nil {
		return nil, err
	}
	draft := &engine.Draft{Submitter: sub.Submitter, Content: sub.Text, Category: sub.Category}
	item, err := h.publisher.Publish(ctx, h.scope, draft, func(ctx context.Context, it *engine.Item) (domain.MessageID, error) {
		it.Text = render(it, signature)
		return h.exec.Send(ctx, delivery.SendMessage{Chat: h.cfg.Chat, Text: it.Text, Buttons: h.caseButtons(it.ID, nil)})
	})
	switch {
	case domain.IsReason(err, domain.ReasonDuplicate):
		h.metrics.Publishes.WithLabelValues(Name, string(domain.ReasonDuplicate)).Inc()
		return reply(textDuplicate), nil
	case item == nil && (errors.Is(err, domain.ErrAllocationExhausted) || errors.As(err, new(*domain.DeliveryError))):
		h.metrics.Publishes.WithLabelValues(Name, "failed").Inc()
		h.log.WithError(err).WithField("user", m.From.ID).Warn("publish case failed")
		return reply(textRetry), nil
	case item == nil:
		return nil, err
	case err != nil:
		h.log.WithError(err).WithField("item", item.ID).Warn("case published, not fully recorded")
	}
	h.metrics.Publishes.WithLabelValues(Name, "ok").Inc()
	h.log.WithField("item", item.ID).WithField("category", item.Category.String()).Info("case opened")
	return reply(fmt.Sprintf(textCaseOpened, item.ID)), nil
}

// signature masks a random member's name most of the time and the author's
// otherwise, so the mask says nothing. No members known means no signature.
func (h *Hotline) signature(ctx context.Context, author domain.User) (string, error) {
	random, found, err := h.dir.RandomMember(ctx, h.cfg.Chat)
	if err != nil || !found {
		return "", err
	}
	who := random
	if h.IntN(100) >= maskedShare {
		who = author
	}
	name := who.FullName()
	if name == "" {
		name = who.Mention()
	}
	return textutil.Mask(name), nil
}

func render(it *engine.Item, signature string) string {
	var b strings.Builder
	if it.Label != "" {
		fmt.Fprintf(&b, "<b>Дело № %d.</b> <i>\"%s\"</i>", it.ID, html.EscapeString(it.Label))
	} else {
		fmt.Fprintf(&b, "<b>Дело № %d</b>", it.ID)
	}
	b.WriteString("\n\n")
	b.WriteString(html.EscapeString(it.Content))
	if signature != "" {
		b.WriteString("\n\nПодписано  ")
		b.WriteString(html.EscapeString(signature))
	}
	return b.String()
}

func (h *Hotline) caseButtons(id int64, counts map[string]int64) delivery.Keyboard {
	return delivery.Keyboard{
		{
			{Text: engine.ReactionLabel(labelReport, counts[kindReport]), Data: h.data(callback.React{Item: id, Kind: kindReport})},
			{Text: engine.ReactionLabel(labelSupport, counts[kindSupport]), Data: h.data(callback.React{Item: id, Kind: kindSupport})},
		},
		{{Text: labelAbout, Data: h.data(callback.About{})}},
	}
}

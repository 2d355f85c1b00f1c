package hotline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"example.com/dayof/internal/callback"
	"example.com/dayof/internal/delivery"
	"example.com/dayof/internal/domain"
	"example.com/dayof/internal/engine"
	"example.com/dayof/internal/textutil"
)

// SlotMidnight is the only scheduled slot: it opens the line on the event
// day and posts the results on the closing day.
const SlotMidnight = "midnight"

func (h *Hotline) Announce(ctx context.Context, slot string, now time.Time) ([]delivery.Intent, error) {
	if slot != SlotMidnight {
		return nil, nil
	}
	w := h.cfg.Window
	switch {
	case w.Active(now):
		text := fmt.Sprintf(textBegin, h.cfg.BreakHour, h.cfg.BreakHour+1)
		return []delivery.Intent{delivery.SendMessage{
			Chat:    h.cfg.Chat,
			Text:    text,
			Buttons: delivery.Keyboard{{{Text: labelBegin, Data: h.data(callback.Begin{})}}},
		}}, nil
	case w.Closing(now):
		report, err := h.Report(ctx)
		if err != nil {
			return nil, err
		}
		return []delivery.Intent{delivery.SendMessage{
			Chat:    h.cfg.Chat,
			Text:    fmt.Sprintf(textEnd, report),
			Buttons: h.pollButtons(nil),
		}}, nil
	}
	return nil, nil
}

// Report formats the end-of-day statistics.
func (h *Hotline) Report(ctx context.Context) (string, error) {
	s, err := h.Summary(ctx)
	if err != nil {
		return "", err
	}
	lines := []string{
		textutil.Plural(s.Set(engine.SetEngaged), "человек принял участие", "человека приняло участие", "человек приняло участие"),
		textutil.Plural(s.Counter(engine.StatSubmissions+":"+domain.CategoryReport.String()), "донос был написан", "доноса было написано", "доносов было написано"),
		textutil.Plural(s.Counter(engine.StatSubmissions+":"+domain.CategoryConfession.String()), "раскаяние было написано", "раскаяния было написано", "раскаяний было написано"),
		textutil.Plural(s.Set("reactors:"+kindReport), "ответственный гражданин настучал", "ответственных гражданина настучали", "ответственных граждан настучали") +
			" " + textutil.Plural(s.Counter("reactions:"+kindReport), "раз", "раза", "раз"),
		textutil.Plural(s.Set("reactors:"+kindSupport), "либерал сделал", "либерала сделали", "либералов сделали") +
			" " + textutil.Plural(s.Counter("reactions:"+kindSupport), "пожертвование", "пожертвования", "пожертвований") +
			fmt.Sprintf(" (собрано %s ₽)", textutil.Thousands(s.Counter(statCollected))),
		textutil.Plural(s.Counter(statSelfReports), "попытка самодоноса", "попытки самодоноса", "попыток самодоноса"),
	}
	var b strings.Builder
	for _, l := range lines {
		b.WriteString("• ")
		b.WriteString(l)
		b.WriteByte('\n')
	}

	top, found, err := h.stats.TopByCategory(ctx, h.scope, domain.CategoryReport)
	if err != nil {
		return "", err
	}
	if found {
		u, ok, err := h.dir.User(ctx, top)
		if err != nil {
			return "", err
		}
		if !ok {
			u = domain.User{ID: top}
		}
		fmt.Fprintf(&b, "\nБольше всего доносов написал(а) %s", u.Mention())
	}
	return strings.TrimSpace(b.String()), nil
}

package valentine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"example.com/dayof/internal/callback"
	"example.com/dayof/internal/delivery"
	"example.com/dayof/internal/engine"
	"example.com/dayof/internal/textutil"
)

const (
	SlotMidnight  = "midnight"
	SlotAfternoon = "afternoon"
)

// Announce posts the invitation at midnight and again in the afternoon of
// the event day, and the results at midnight of the closing day.
func (v *Valentine) Announce(ctx context.Context, slot string, now time.Time) ([]delivery.Intent, error) {
	w := v.cfg.Window
	switch {
	case (slot == SlotMidnight || slot == SlotAfternoon) && w.Active(now):
		begin, err := v.begin(ctx)
		if err != nil {
			return nil, err
		}
		return []delivery.Intent{begin}, nil
	case slot == SlotMidnight && w.Closing(now):
		report, err := v.Report(ctx)
		if err != nil {
			return nil, err
		}
		return []delivery.Intent{delivery.SendMessage{
			Chat:    v.cfg.Chat,
			Text:    fmt.Sprintf(textEnd, report),
			Buttons: v.pollButtons(nil),
		}}, nil
	}
	return nil, nil
}

func (v *Valentine) begin(ctx context.Context) (delivery.SendMessage, error) {
	members, err := v.dir.Members(ctx, v.cfg.Chat)
	if err != nil {
		return delivery.SendMessage{}, err
	}
	team := textutil.Plural(int64(len(members)), "участник", "участника", "участников")
	return delivery.SendMessage{
		Chat:    v.cfg.Chat,
		Text:    fmt.Sprintf(textBegin, team),
		Buttons: delivery.Keyboard{{{Text: labelBegin, Data: v.data(callback.Begin{})}}},
	}, nil
}

// Report formats the end-of-day statistics.
func (v *Valentine) Report(ctx context.Context) (string, error) {
	s, err := v.Summary(ctx)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, l := range []string{
		textutil.Plural(s.Counter(engine.StatSubmissions), "валентинка отправлена", "валентинки отправлено", "валентинок отправлено"),
		textutil.Plural(s.Counter("reactions:"+kindWink), "подмигивание произведено", "подмигивания произведено", "подмигиваний произведено"),
		textutil.Plural(s.Counter("reactions:"+kindJealous), "ревность источена", "ревности источено", "ревностей источено"),
	} {
		b.WriteString("• ")
		b.WriteString(l)
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "\nВалентинки отправляли: %s.\n",
		textutil.Plural(s.Set(engine.SetSubmitters), "человек", "человека", "человек"))

	byHeart := make([]string, len(hearts))
	for i, h := range hearts {
		byHeart[i] = fmt.Sprintf("%d %s", s.Counter(heartStat(i)), h)
	}
	fmt.Fprintf(&b, "\nВалентинки по виду сердечка: %s.", strings.Join(byHeart, ", "))
	return b.String(), nil
}

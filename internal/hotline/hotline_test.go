package hotline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/dayof/internal/callback"
	"example.com/dayof/internal/delivery"
	"example.com/dayof/internal/delivery/deliverytest"
	"example.com/dayof/internal/directory"
	"example.com/dayof/internal/domain"
	"example.com/dayof/internal/logging"
	"example.com/dayof/internal/metrics"
	"example.com/dayof/internal/storage/storagetest"
)

const chat = domain.ChatID(-100)

var (
	alice = domain.User{ID: 1, Username: "alice", FirstName: "Alice"}
	bob   = domain.User{ID: 2, Username: "bob", FirstName: "Bob"}
	carol = domain.User{ID: 3, Username: "carol", FirstName: "Carol"}
)

type fixture struct {
	h   *Hotline
	rec *deliverytest.Recorder
	dir *directory.Directory
}

func newFixture(t *testing.T, cfg Config) fixture {
	t.Helper()
	store, _ := storagetest.New(t)
	dir := directory.New(store, time.Hour)
	rec := deliverytest.New()
	exec := delivery.NewExecutor(rec, logging.Discard(), metrics.Nop(), delivery.RetryConfig{})
	cfg.Chat = chat
	cfg.TTL = time.Hour
	cfg.BotUsername = "dayofbot"
	h := New(cfg, store, dir, exec, logging.Discard(), metrics.Nop())
	h.IntN = func(int) int { return 0 }
	for _, u := range []domain.User{alice, bob, carol} {
		require.NoError(t, dir.Join(context.Background(), chat, u))
	}
	return fixture{h: h, rec: rec, dir: dir}
}

func (f fixture) submit(t *testing.T, from domain.User, text string) []delivery.Intent {
	t.Helper()
	out, err := f.h.HandleText(context.Background(), &domain.Message{Chat: domain.ChatID(from.ID), From: from, Text: text, Private: true})
	require.NoError(t, err)
	return out
}

func (f fixture) click(t *testing.T, from domain.User, p callback.Payload) []delivery.Intent {
	t.Helper()
	q := &domain.Query{ID: "q-" + from.ID.String(), From: from, Chat: chat, Message: 1001}
	out, err := f.h.HandleCallback(context.Background(), q, p)
	require.NoError(t, err)
	return out
}

func onlyText(t *testing.T, out []delivery.Intent) string {
	t.Helper()
	require.Len(t, out, 1)
	switch in := out[0].(type) {
	case delivery.SendMessage:
		return in.Text
	case delivery.AnswerCallback:
		return in.Text
	}
	t.Fatalf("unexpected intent %T", out[0])
	return ""
}

func sends(out []delivery.Intent) []delivery.SendMessage {
	var s []delivery.SendMessage
	for _, in := range out {
		if m, ok := in.(delivery.SendMessage); ok {
			s = append(s, m)
		}
	}
	return s
}

func TestOpenCase(t *testing.T) {
	f := newFixture(t, Config{BreakHour: -1})

	reply := f.submit(t, alice, "Настоящим сообщаю, что кот съел колбасу")
	assert.Equal(t, fmt.Sprintf(textCaseOpened, 1), onlyText(t, reply))

	posted := f.rec.SentTo(chat)
	require.Len(t, posted, 1)
	assert.Contains(t, posted[0].Text, `<b>Дело № 1.</b> <i>"Петр I"</i>`)
	assert.Contains(t, posted[0].Text, "кот съел колбасу")
	assert.Contains(t, posted[0].Text, "Подписано  █")
	require.Len(t, posted[0].Buttons, 2)
	assert.Equal(t, labelReport, posted[0].Buttons[0][0].Text)

	reply = f.submit(t, alice, "Признаю себя виновной в краже колбасы")
	assert.Equal(t, fmt.Sprintf(textCaseOpened, 2), onlyText(t, reply))
}

func TestRejectedSubmissions(t *testing.T) {
	f := newFixture(t, Config{BreakHour: -1})

	assert.Equal(t, textUnknown, onlyText(t, f.submit(t, alice, "просто привет")))
	assert.Equal(t, textLink, onlyText(t, f.submit(t, alice, "Спешу сообщить, что www.example.org")))
	assert.Empty(t, f.submit(t, alice, "   "))

	f.submit(t, alice, "Обращаюсь по поводу шума")
	assert.Equal(t, textDuplicate, onlyText(t, f.submit(t, bob, "обращаюсь по поводу шума")))
	assert.Len(t, f.rec.SentTo(chat), 1)
}

func TestPostFailureAsksToRetry(t *testing.T) {
	f := newFixture(t, Config{BreakHour: -1})
	f.rec.Fail(delivery.OpSend, &domain.DeliveryError{Op: "send", Err: assert.AnError})

	assert.Equal(t, textRetry, onlyText(t, f.submit(t, alice, "Обращаюсь по поводу шума")))
	// the failed text is not a duplicate of itself
	assert.Equal(t, fmt.Sprintf(textCaseOpened, 2), onlyText(t, f.submit(t, alice, "Обращаюсь по поводу шума")))
}

func TestReportThenSupportCrossing(t *testing.T) {
	f := newFixture(t, Config{BreakHour: -1})
	f.submit(t, alice, "Довожу до вашего сведения, что чайник сломан")

	out := f.click(t, bob, callback.React{Item: 1, Kind: kindReport})
	require.NotEmpty(t, out)
	assert.Equal(t, delivery.Answer("q-2", textReported), out[0])
	edit, ok := out[1].(delivery.EditButtons)
	require.True(t, ok)
	assert.Equal(t, labelReport+" — 1", edit.Buttons[0][0].Text)

	assert.Equal(t, textOnce, onlyText(t, f.click(t, bob, callback.React{Item: 1, Kind: kindReport})))

	out = f.click(t, bob, callback.React{Item: 1, Kind: kindSupport})
	s := sends(out)
	require.Len(t, s, 1)
	assert.Equal(t, fmt.Sprintf(textReportThenSupport, "@bob"), s[0].Text)
	assert.Equal(t, domain.MessageID(1001), s[0].ReplyTo)

	collected, err := f.h.stats.Count(context.Background(), f.h.scope, statCollected)
	require.NoError(t, err)
	assert.Equal(t, int64(50), collected)
}

func TestSelfReport(t *testing.T) {
	f := newFixture(t, Config{BreakHour: -1})
	f.submit(t, alice, "Довожу до вашего сведения, что чайник сломан")

	assert.Equal(t, textSelfReport, onlyText(t, f.click(t, alice, callback.React{Item: 1, Kind: kindReport})))
	assert.Equal(t, textSelfGive, onlyText(t, f.click(t, alice, callback.React{Item: 1, Kind: kindSupport})))

	sum, err := f.h.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), sum.Counter(statSelfReports))
	assert.Zero(t, sum.Counter("reactions:"+kindReport))
}

func TestMissingCase(t *testing.T) {
	f := newFixture(t, Config{BreakHour: -1})
	out := f.click(t, bob, callback.React{Item: 42, Kind: kindReport})
	assert.Equal(t, []delivery.Intent{delivery.Alert("q-2", fmt.Sprintf(textNotFound, 42))}, out)
}

func TestRevealAfterMargin(t *testing.T) {
	f := newFixture(t, Config{BreakHour: -1})
	f.submit(t, alice, "Довожу до вашего сведения, что чайник сломан")

	var revealed []delivery.Intent
	for i := 0; i < revealMargin; i++ {
		u := domain.User{ID: domain.UserID(100 + i), FirstName: fmt.Sprintf("U%d", i)}
		out := f.click(t, u, callback.React{Item: 1, Kind: kindReport})
		if i < revealMargin-1 {
			assert.Empty(t, sends(out), "no reveal before the margin")
			continue
		}
		revealed = out
	}

	s := sends(revealed)
	require.Len(t, s, 1)
	assert.Equal(t, fmt.Sprintf(textRevealed, "@alice"), s[0].Text)
	var edit *delivery.EditMessage
	for _, in := range revealed {
		if e, ok := in.(delivery.EditMessage); ok {
			edit = &e
		}
	}
	require.NotNil(t, edit)
	assert.Contains(t, edit.Text, "Подписано  Alice")

	stored, err := f.h.items.Get(context.Background(), f.h.scope, 1)
	require.NoError(t, err)
	assert.Equal(t, edit.Text, stored.Text)

	// once only
	out := f.click(t, domain.User{ID: 200, FirstName: "Late"}, callback.React{Item: 1, Kind: kindReport})
	assert.Empty(t, sends(out))
}

func TestReportAlert(t *testing.T) {
	f := newFixture(t, Config{BreakHour: -1})
	f.submit(t, alice, "Обращаюсь по поводу шума")
	f.submit(t, alice, "Обращаюсь по поводу мусора")
	f.submit(t, alice, "Обращаюсь по поводу парковки")

	var alerts []delivery.SendMessage
	for id := int64(1); id <= 3; id++ {
		alerts = append(alerts, sends(f.click(t, bob, callback.React{Item: id, Kind: kindReport}))...)
	}
	require.Len(t, alerts, 1)
	assert.Equal(t, fmt.Sprintf(textAlert, "@bob"), alerts[0].Text)
	assert.Equal(t, chat, alerts[0].Chat)

	// one alert per window for the whole chat
	for id := int64(1); id <= 3; id++ {
		assert.Empty(t, sends(f.click(t, carol, callback.React{Item: id, Kind: kindReport})))
	}
}

func TestPollVotesOnce(t *testing.T) {
	f := newFixture(t, Config{BreakHour: -1})

	out := f.click(t, bob, callback.Poll{Kind: kindLike})
	require.Len(t, out, 2)
	assert.Equal(t, delivery.Answer("q-2", textLike), out[0])
	edit := out[1].(delivery.EditButtons)
	assert.Equal(t, labelLike+" — 1", edit.Buttons[0][0].Text)
	assert.Equal(t, labelDislike, edit.Buttons[0][1].Text)

	assert.Equal(t, textOnce, onlyText(t, f.click(t, bob, callback.Poll{Kind: kindDislike})))
}

func TestBeginAndAbout(t *testing.T) {
	f := newFixture(t, Config{BreakHour: -1})

	out := f.click(t, bob, callback.Begin{})
	require.Len(t, out, 2)
	assert.Equal(t, "t.me/dayofbot?start=hotline", out[0].(delivery.AnswerCallback).URL)
	assert.Equal(t, domain.ChatID(bob.ID), out[1].(delivery.SendMessage).Chat)

	out = f.click(t, bob, callback.About{})
	assert.Equal(t, []delivery.Intent{delivery.Alert("q-2", textAbout)}, out)
}

func TestBreak(t *testing.T) {
	f := newFixture(t, Config{BreakHour: 13, Window: domain.Window{Location: time.UTC}})
	ctx := context.Background()

	assert.True(t, f.h.OnBreak(time.Date(2026, 12, 20, 13, 30, 0, 0, time.UTC)))
	assert.False(t, f.h.OnBreak(time.Date(2026, 12, 20, 14, 0, 0, 0, time.UTC)))

	out, err := f.h.BreakReply(ctx, bob, "q")
	require.NoError(t, err)
	assert.Equal(t, []delivery.Intent{delivery.Alert("q", fmt.Sprintf(textBreak, "@bob", 14))}, out)

	out, err = f.h.BreakReply(ctx, bob, "")
	require.NoError(t, err)
	assert.Equal(t, domain.ChatID(bob.ID), out[0].(delivery.SendMessage).Chat)

	sum, err := f.h.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), sum.Counter(statBreaks))

	off := newFixture(t, Config{BreakHour: -1})
	assert.False(t, off.h.OnBreak(time.Date(2026, 12, 20, 13, 30, 0, 0, time.UTC)))
}

func TestAnnounce(t *testing.T) {
	window := domain.Window{Day: "12-20", CloseDay: "12-21", Location: time.UTC}
	f := newFixture(t, Config{BreakHour: 13, Window: window})
	ctx := context.Background()

	out, err := f.h.Announce(ctx, SlotMidnight, time.Date(2026, 12, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, out, 1)
	begin := out[0].(delivery.SendMessage)
	assert.Contains(t, begin.Text, "с 13 до 14 часов")
	assert.Equal(t, labelBegin, begin.Buttons[0][0].Text)

	f.submit(t, alice, "Обращаюсь по поводу шума")
	f.click(t, bob, callback.React{Item: 1, Kind: kindReport})

	out, err = f.h.Announce(ctx, SlotMidnight, time.Date(2026, 12, 21, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, out, 1)
	end := out[0].(delivery.SendMessage)
	assert.Contains(t, end.Text, "2 человека приняло участие")
	assert.Contains(t, end.Text, "1 донос был написан")
	assert.Contains(t, end.Text, "Больше всего доносов написал(а) @alice")
	assert.Equal(t, labelLike, end.Buttons[0][0].Text)

	out, err = f.h.Announce(ctx, SlotMidnight, time.Date(2026, 12, 22, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = f.h.Announce(ctx, "afternoon", time.Date(2026, 12, 20, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, out)
}

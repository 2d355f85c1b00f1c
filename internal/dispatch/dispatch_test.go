package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/dayof/internal/callback"
	"example.com/dayof/internal/delivery"
	"example.com/dayof/internal/delivery/deliverytest"
	"example.com/dayof/internal/directory"
	"example.com/dayof/internal/domain"
	"example.com/dayof/internal/engine"
	"example.com/dayof/internal/logging"
	"example.com/dayof/internal/metrics"
	"example.com/dayof/internal/storage/storagetest"
)

const chat = domain.ChatID(-100)

var (
	member   = domain.User{ID: 1, Username: "member"}
	stranger = domain.User{ID: 9, Username: "stranger"}
)

type fakeEvent struct {
	name     string
	window   domain.Window
	texts    []string
	payloads []callback.Payload
	err      error
	onBreak  bool
	breaks   int
}

func (e *fakeEvent) Name() string          { return e.name }
func (e *fakeEvent) Window() domain.Window { return e.window }

func (e *fakeEvent) Help(_ context.Context, to domain.User) ([]delivery.Intent, error) {
	return []delivery.Intent{delivery.SendMessage{Chat: domain.ChatID(to.ID), Text: "help"}}, nil
}

func (e *fakeEvent) HandleText(_ context.Context, m *domain.Message) ([]delivery.Intent, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.texts = append(e.texts, m.Text)
	return []delivery.Intent{delivery.SendMessage{Chat: domain.ChatID(m.From.ID), Text: "got " + m.Text}}, nil
}

func (e *fakeEvent) HandleCallback(_ context.Context, q *domain.Query, p callback.Payload) ([]delivery.Intent, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.payloads = append(e.payloads, p)
	return []delivery.Intent{delivery.Answer(q.ID, "ok")}, nil
}

func (e *fakeEvent) Announce(context.Context, string, time.Time) ([]delivery.Intent, error) {
	return nil, nil
}

func (e *fakeEvent) Summary(context.Context) (engine.Summary, error) {
	return engine.Summary{Counters: map[string]int64{"n": int64(len(e.texts))}}, nil
}

func (e *fakeEvent) OnBreak(time.Time) bool { return e.onBreak }

func (e *fakeEvent) BreakReply(_ context.Context, _ domain.User, queryID string) ([]delivery.Intent, error) {
	e.breaks++
	if queryID != "" {
		return []delivery.Intent{delivery.Alert(queryID, "break")}, nil
	}
	return nil, nil
}

type fixture struct {
	d   *Dispatcher
	rec *deliverytest.Recorder
	dir *directory.Directory
}

func newFixture(t *testing.T, events ...Handler) fixture {
	t.Helper()
	store, _ := storagetest.New(t)
	dir := directory.New(store, time.Hour)
	require.NoError(t, dir.Join(context.Background(), chat, member))
	rec := deliverytest.New()
	exec := delivery.NewExecutor(rec, logging.Discard(), metrics.Nop(), delivery.RetryConfig{})
	return fixture{d: New(chat, dir, exec, logging.Discard(), metrics.Nop(), events...), rec: rec, dir: dir}
}

func private(from domain.User, text string) domain.Update {
	return domain.Update{Message: &domain.Message{Chat: domain.ChatID(from.ID), From: from, Text: text, Private: true}}
}

func query(from domain.User, p callback.Payload, event string) domain.Update {
	return domain.Update{Query: &domain.Query{
		ID:   "q",
		From: from,
		Chat: chat,
		Data: callback.MustEncode(callback.Envelope{Event: event, Payload: p}),
	}}
}

func TestPrivateTextGoesToActiveEvent(t *testing.T) {
	idle := &fakeEvent{name: "idle"}
	live := &fakeEvent{name: "live", window: domain.Window{Force: true}}
	f := newFixture(t, idle, live)
	ctx := context.Background()

	require.NoError(t, f.d.Handle(ctx, private(member, "hello")))
	assert.Empty(t, idle.texts)
	assert.Equal(t, []string{"hello"}, live.texts)
	sent := f.rec.SentTo(domain.ChatID(member.ID))
	require.Len(t, sent, 1)
	assert.Equal(t, "got hello", sent[0].Text)

	require.NoError(t, f.d.Handle(ctx, private(member, "/help@dayofbot")))
	require.NoError(t, f.d.Handle(ctx, private(member, "/start valentine")))
	assert.Len(t, live.texts, 1, "commands are not submissions")
	assert.Len(t, f.rec.SentTo(domain.ChatID(member.ID)), 3)
}

func TestStrangersAndGroupsAreIgnored(t *testing.T) {
	live := &fakeEvent{name: "live", window: domain.Window{Force: true}}
	f := newFixture(t, live)
	ctx := context.Background()

	require.NoError(t, f.d.Handle(ctx, private(stranger, "hello")))
	assert.Empty(t, live.texts)

	// a group message makes the author a member but is not a submission
	require.NoError(t, f.d.Handle(ctx, domain.Update{Message: &domain.Message{Chat: chat, From: stranger, Text: "hi all"}}))
	assert.Empty(t, live.texts)

	require.NoError(t, f.d.Handle(ctx, private(stranger, "hello")))
	assert.Equal(t, []string{"hello"}, live.texts)
}

func TestNoActiveEvent(t *testing.T) {
	idle := &fakeEvent{name: "idle"}
	f := newFixture(t, idle)
	require.NoError(t, f.d.Handle(context.Background(), private(member, "hello")))
	assert.Empty(t, idle.texts)
	assert.Empty(t, f.rec.Calls())
}

func TestBreak(t *testing.T) {
	live := &fakeEvent{name: "live", window: domain.Window{Force: true}, onBreak: true}
	f := newFixture(t, live)
	ctx := context.Background()

	require.NoError(t, f.d.Handle(ctx, private(member, "hello")))
	require.NoError(t, f.d.Handle(ctx, query(member, callback.About{}, "live")))
	assert.Empty(t, live.texts)
	assert.Empty(t, live.payloads)
	assert.Equal(t, 2, live.breaks)
	a, ok := f.rec.LastAnswer()
	require.True(t, ok)
	assert.Equal(t, "break", a.Text)

	// polls are not paused
	require.NoError(t, f.d.Handle(ctx, query(member, callback.Poll{Kind: "like"}, "live")))
	assert.Len(t, live.payloads, 1)
}

func TestCallbackRouting(t *testing.T) {
	live := &fakeEvent{name: "live", window: domain.Window{Force: true}}
	over := &fakeEvent{name: "over"}
	f := newFixture(t, live, over)
	ctx := context.Background()

	require.NoError(t, f.d.Handle(ctx, query(stranger, callback.React{Item: 5, Kind: "x"}, "live")))
	assert.Equal(t, []callback.Payload{callback.React{Item: 5, Kind: "x"}}, live.payloads)

	require.NoError(t, f.d.Handle(ctx, query(member, callback.About{}, "over")))
	a, _ := f.rec.LastAnswer()
	assert.Equal(t, textFinished, a.Text)
	assert.True(t, a.Alert)

	require.NoError(t, f.d.Handle(ctx, query(member, callback.Poll{Kind: "like"}, "over")))
	assert.Len(t, over.payloads, 1, "polls outlive the event")

	require.NoError(t, f.d.Handle(ctx, query(member, callback.About{}, "gone")))
	a, _ = f.rec.LastAnswer()
	assert.Equal(t, textUnknown, a.Text)

	require.NoError(t, f.d.Handle(ctx, domain.Update{Query: &domain.Query{ID: "q", From: member, Data: "not json"}}))
	a, _ = f.rec.LastAnswer()
	assert.Equal(t, textUnknown, a.Text)
}

func TestHandlerError(t *testing.T) {
	boom := errors.New("store down")
	live := &fakeEvent{name: "live", window: domain.Window{Force: true}, err: boom}
	f := newFixture(t, live)
	ctx := context.Background()

	assert.ErrorIs(t, f.d.Handle(ctx, private(member, "hello")), boom)
	sent := f.rec.SentTo(domain.ChatID(member.ID))
	require.Len(t, sent, 1)
	assert.Equal(t, textFailed, sent[0].Text)

	assert.ErrorIs(t, f.d.Handle(ctx, query(member, callback.About{}, "live")), boom)
	a, _ := f.rec.LastAnswer()
	assert.Equal(t, textFailed, a.Text)
}

func TestSummary(t *testing.T) {
	live := &fakeEvent{name: "live", window: domain.Window{Force: true}}
	f := newFixture(t, live)
	ctx := context.Background()
	require.NoError(t, f.d.Handle(ctx, private(member, "hello")))

	sum, err := f.d.Summary(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, int64(1), sum.Counter("n"))

	_, err = f.d.Summary(ctx, "nope")
	assert.True(t, domain.IsNotFound(err))
}

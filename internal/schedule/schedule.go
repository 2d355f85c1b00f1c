// Package schedule fires event announcements at fixed local times, once per
// day per slot even with several replicas running.
package schedule

import (
	"context"
	"fmt"
	"time"

	"example.com/dayof/internal/delivery"
	"example.com/dayof/internal/logging"
	"example.com/dayof/internal/storage"
)

// Announcer builds the posts for a slot. Nothing due means no intents.
type Announcer interface {
	Announce(ctx context.Context, slot string, now time.Time) ([]delivery.Intent, error)
}

// Enqueuer hands intents to the background delivery queue.
type Enqueuer interface {
	Enqueue(intents ...delivery.Intent) bool
}

type entry struct {
	event     string
	slot      string
	hour, min int
	announcer Announcer
}

type Trigger struct {
	store   storage.Store
	queue   Enqueuer
	loc     *time.Location
	log     logging.Logger
	entries []entry
	// Every is the tick period; Grace is how late a slot may still fire,
	// covering restarts around the slot time.
	Every time.Duration
	Grace time.Duration
	now   func() time.Time
}

func New(store storage.Store, queue Enqueuer, loc *time.Location, log logging.Logger) *Trigger {
	if loc == nil {
		loc = time.UTC
	}
	return &Trigger{
		store: store,
		queue: queue,
		loc:   loc,
		log:   log,
		Every: time.Minute,
		Grace: 10 * time.Minute,
		now:   time.Now,
	}
}

// Register adds a slot firing daily at hh:mm local time.
func (t *Trigger) Register(event, slot, at string, a Announcer) error {
	ts, err := time.Parse("15:04", at)
	if err != nil {
		return fmt.Errorf("slot %s/%s: bad time %q: %w", event, slot, at, err)
	}
	t.entries = append(t.entries, entry{event: event, slot: slot, hour: ts.Hour(), min: ts.Minute(), announcer: a})
	return nil
}

// Run ticks until ctx is done.
func (t *Trigger) Run(ctx context.Context) error {
	tick := time.NewTicker(t.Every)
	defer tick.Stop()
	t.Tick(ctx, t.now())
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-tick.C:
			t.Tick(ctx, now)
		}
	}
}

// Tick fires every slot that is due at now and not yet fired today. It
// returns how many fired.
func (t *Trigger) Tick(ctx context.Context, now time.Time) int {
	local := now.In(t.loc)
	fired := 0
	for _, e := range t.entries {
		at := time.Date(local.Year(), local.Month(), local.Day(), e.hour, e.min, 0, 0, t.loc)
		if local.Before(at) || local.Sub(at) > t.Grace {
			continue
		}
		ok, err := t.fire(ctx, e, local)
		if err != nil {
			t.log.WithError(err).WithField("event", e.event).WithField("slot", e.slot).Warn("announcement failed")
			continue
		}
		if ok {
			fired++
		}
	}
	return fired
}

func (t *Trigger) fire(ctx context.Context, e entry, local time.Time) (bool, error) {
	key := "dayof:schedule:" + e.event + ":" + e.slot + ":" + local.Format("2006-01-02")
	won, err := t.store.SetNX(ctx, key, []byte(local.Format(time.RFC3339)), 48*time.Hour)
	if err != nil || !won {
		return false, err
	}
	intents, err := e.announcer.Announce(ctx, e.slot, local)
	if err != nil {
		// let the next tick retry
		if derr := t.store.Del(ctx, key); derr != nil {
			t.log.WithError(derr).Warn("release schedule claim")
		}
		return false, err
	}
	if len(intents) > 0 && !t.queue.Enqueue(intents...) {
		return false, fmt.Errorf("queue full, %d intents dropped", len(intents))
	}
	t.log.WithField("event", e.event).WithField("slot", e.slot).WithField("intents", len(intents)).Info("slot fired")
	return true, nil
}

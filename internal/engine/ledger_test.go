package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/dayof/internal/domain"
	"example.com/dayof/internal/storage/storagetest"
)

func newTestLedger(t *testing.T) (*Ledger, *Stats) {
	t.Helper()
	store, _ := storagetest.New(t)
	stats := NewStats(store, time.Hour)
	l := NewLedger(store, time.Hour, stats,
		ReactionKind{Name: "support", Exclusive: "report"},
		ReactionKind{Name: "report", Exclusive: "support"},
		ReactionKind{Name: "like", Set: "poll"},
		ReactionKind{Name: "dislike", Set: "poll"},
	)
	return l, stats
}

func TestLedgerScenario(t *testing.T) {
	l, stats := newTestLedger(t)
	ctx := context.Background()
	target := ItemTarget(7)
	u := domain.UserID(42)

	out, err := l.React(ctx, testScope, target, "support", u)
	require.NoError(t, err)
	assert.False(t, out.AlreadyReacted)
	assert.Nil(t, out.Crossing)
	assert.Equal(t, int64(1), out.Counts["support"])

	out, err = l.React(ctx, testScope, target, "support", u)
	require.NoError(t, err)
	assert.True(t, out.AlreadyReacted)
	assert.Equal(t, int64(1), out.Counts["support"])

	out, err = l.React(ctx, testScope, target, "report", u)
	require.NoError(t, err)
	assert.False(t, out.AlreadyReacted)
	assert.Equal(t, int64(1), out.Counts["report"])
	require.NotNil(t, out.Crossing)
	assert.Equal(t, Crossing{Actor: u, First: "support", Second: "report"}, *out.Crossing)

	// the crossing is reported once; a repeat is an ordinary no-op
	out, err = l.React(ctx, testScope, target, "report", u)
	require.NoError(t, err)
	assert.True(t, out.AlreadyReacted)
	assert.Nil(t, out.Crossing)

	n, err := stats.Count(ctx, testScope, "reactions:support")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = stats.UserCount(ctx, testScope, u, "reactions:report")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	engaged, err := stats.Users(ctx, testScope, SetEngaged)
	require.NoError(t, err)
	assert.Equal(t, int64(1), engaged)
}

func TestLedgerCrossingOnceUnderConcurrency(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	target := ItemTarget(9)

	for actor := domain.UserID(1); actor <= 20; actor++ {
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			crossings int
		)
		for _, kind := range []string{"report", "support"} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				out, err := l.React(ctx, testScope, target, kind, actor)
				assert.NoError(t, err)
				if out.Crossing != nil {
					mu.Lock()
					crossings++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, crossings, "actor %d", actor)
	}
}

func TestLedgerRepeatStillEngages(t *testing.T) {
	l, stats := newTestLedger(t)
	ctx := context.Background()

	_, err := l.React(ctx, testScope, "poll:end", "like", 1)
	require.NoError(t, err)
	out, err := l.React(ctx, testScope, "poll:end", "dislike", 1)
	require.NoError(t, err)
	assert.True(t, out.AlreadyReacted, "one vote per poll")
	assert.Equal(t, map[string]int64{"support": 0, "report": 0, "like": 1, "dislike": 0}, out.Counts)

	_, err = l.React(ctx, testScope, "poll:end", "dislike", 2)
	require.NoError(t, err)
	engaged, err := stats.Users(ctx, testScope, SetEngaged)
	require.NoError(t, err)
	assert.Equal(t, int64(2), engaged)
}

func TestLedgerConcurrentSameActor(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	target := ItemTarget(1)

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.React(ctx, testScope, target, "support", 9)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	counts, err := l.Counts(ctx, testScope, target)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts["support"])
	members, err := l.Members(ctx, testScope, target, "support")
	require.NoError(t, err)
	assert.Equal(t, []domain.UserID{9}, members)
}

func TestLedgerCounterMatchesMembers(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	target := ItemTarget(2)

	var wg sync.WaitGroup
	for uid := 1; uid <= 10; uid++ {
		for rep := 0; rep < 3; rep++ {
			wg.Add(1)
			go func(uid domain.UserID) {
				defer wg.Done()
				_, err := l.React(ctx, testScope, target, "report", uid)
				assert.NoError(t, err)
			}(domain.UserID(uid))
		}
	}
	wg.Wait()

	counts, err := l.Counts(ctx, testScope, target)
	require.NoError(t, err)
	members, err := l.Members(ctx, testScope, target, "report")
	require.NoError(t, err)
	assert.Equal(t, int64(len(members)), counts["report"])
	assert.Equal(t, int64(10), counts["report"])

	has, err := l.Has(ctx, testScope, target, "report", 3)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestLedgerUnknownKind(t *testing.T) {
	l, _ := newTestLedger(t)
	_, err := l.React(context.Background(), testScope, "x", "nope", 1)
	assert.Error(t, err)
}

func TestReactionLabel(t *testing.T) {
	assert.Equal(t, "Jealous", ReactionLabel("Jealous", 0))
	assert.Equal(t, "Jealous — 3", ReactionLabel("Jealous", 3))
}

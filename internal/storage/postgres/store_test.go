package postgres_test

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/dayof/internal/storage"
	spg "example.com/dayof/internal/storage/postgres"
)

// newStore connects to POSTGRES_DSN and applies the schema. Tests are skipped
// without a database. Keys are prefixed per test so runs do not collide.
func newStore(t *testing.T) (*spg.Store, *spg.DB, string) {
	t.Helper()
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set")
	}
	ctx := context.Background()
	db, err := spg.Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.Migrate(ctx), "migrations are re-runnable")
	return spg.NewStore(db), db, "test:" + uuid.NewString() + ":"
}

// expire backdates key in every table, as if its TTL had run out.
func expire(t *testing.T, db *spg.DB, key string) {
	t.Helper()
	for _, table := range []string{"kv_values", "kv_counters", "kv_members"} {
		_, err := db.Pool.Exec(context.Background(),
			"UPDATE "+table+" SET expires_at = now() - interval '1 second' WHERE key=$1", key)
		require.NoError(t, err)
	}
}

func TestGetSetAndExpiry(t *testing.T) {
	store, db, p := newStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, p+"k")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.Set(ctx, p+"k", []byte("v1"), time.Minute))
	require.NoError(t, store.Set(ctx, p+"k", []byte("v2"), time.Minute))
	got, err := store.Get(ctx, p+"k")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got))

	expire(t, db, p+"k")
	_, err = store.Get(ctx, p+"k")
	require.ErrorIs(t, err, storage.ErrNotFound)

	// no TTL means no expiry
	require.NoError(t, store.Set(ctx, p+"forever", []byte("x"), 0))
	got, err = store.Get(ctx, p+"forever")
	require.NoError(t, err)
	assert.Equal(t, "x", string(got))
}

func TestSetNX(t *testing.T) {
	store, db, p := newStore(t)
	ctx := context.Background()

	ok, err := store.SetNX(ctx, p+"flag", []byte("1"), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.SetNX(ctx, p+"flag", []byte("2"), time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// an expired row is taken over
	expire(t, db, p+"flag")
	ok, err = store.SetNX(ctx, p+"flag", []byte("3"), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	got, err := store.Get(ctx, p+"flag")
	require.NoError(t, err)
	assert.Equal(t, "3", string(got))

	require.NoError(t, store.Del(ctx, p+"flag"))
	ok, err = store.SetNX(ctx, p+"flag", []byte("4"), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSetNXConcurrent(t *testing.T) {
	store, _, p := newStore(t)
	ctx := context.Background()

	var (
		wg  sync.WaitGroup
		won atomic.Int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.SetNX(ctx, p+"lease", []byte("x"), time.Minute)
			assert.NoError(t, err)
			if ok {
				won.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), won.Load())
}

func TestCounterResetsAfterExpiry(t *testing.T) {
	store, db, p := newStore(t)
	ctx := context.Background()

	n, err := store.Counter(ctx, p+"c")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = store.IncrBy(ctx, p+"c", 2, time.Minute)
	require.NoError(t, err)
	n, err = store.IncrBy(ctx, p+"c", 3, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	expire(t, db, p+"c")
	n, err = store.Counter(ctx, p+"c")
	require.NoError(t, err)
	assert.Zero(t, n, "expired counters read as zero")

	n, err = store.IncrBy(ctx, p+"c", 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "and restart from zero")
}

func TestSAddIsAtomicAddIfAbsent(t *testing.T) {
	store, db, p := newStore(t)
	ctx := context.Background()
	key := p + "set"

	var (
		wg    sync.WaitGroup
		added atomic.Int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.SAdd(ctx, key, "42", time.Minute)
			assert.NoError(t, err)
			if ok {
				added.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), added.Load())

	ok, err := store.SAdd(ctx, key, "7", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := store.SCard(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	members, err := store.SMembers(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []string{"42", "7"}, members)
	in, err := store.SIsMember(ctx, key, "7")
	require.NoError(t, err)
	assert.True(t, in)

	require.NoError(t, store.SRem(ctx, key, "7"))
	in, err = store.SIsMember(ctx, key, "7")
	require.NoError(t, err)
	assert.False(t, in)

	expire(t, db, key)
	n, err = store.SCard(ctx, key)
	require.NoError(t, err)
	assert.Zero(t, n)
	ok, err = store.SAdd(ctx, key, "42", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "an expired member can be added again")
}

func TestDelCoversEveryTable(t *testing.T) {
	store, _, p := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, p+"v", []byte("x"), time.Minute))
	_, err := store.IncrBy(ctx, p+"n", 1, time.Minute)
	require.NoError(t, err)
	_, err = store.SAdd(ctx, p+"s", "m", time.Minute)
	require.NoError(t, err)

	require.NoError(t, store.Del(ctx, p+"v", p+"n", p+"s"))
	_, err = store.Get(ctx, p+"v")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	n, err := store.Counter(ctx, p+"n")
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = store.SCard(ctx, p+"s")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPurge(t *testing.T) {
	store, db, p := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, p+"v", []byte("x"), time.Minute))
	_, err := store.IncrBy(ctx, p+"n", 1, time.Minute)
	require.NoError(t, err)
	_, err = store.SAdd(ctx, p+"s", "m", time.Minute)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, p+"live", []byte("x"), time.Minute))
	for _, k := range []string{p + "v", p + "n", p + "s"} {
		expire(t, db, k)
	}

	res, err := store.Purge(ctx)
	require.NoError(t, err)
	// other tests may leave expired rows behind, so only a lower bound holds
	assert.GreaterOrEqual(t, res.Values, int64(1))
	assert.GreaterOrEqual(t, res.Counters, int64(1))
	assert.GreaterOrEqual(t, res.Members, int64(1))

	var rows int64
	require.NoError(t, db.Pool.QueryRow(ctx,
		"SELECT (SELECT count(*) FROM kv_values WHERE key LIKE $1) + (SELECT count(*) FROM kv_counters WHERE key LIKE $1) + (SELECT count(*) FROM kv_members WHERE key LIKE $1)",
		p+"%").Scan(&rows))
	assert.Equal(t, int64(1), rows, "only the live row survives")
}

func TestPing(t *testing.T) {
	store, _, _ := newStore(t)
	assert.NoError(t, store.Ping(context.Background()))
}

package engine

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"strconv"
	"time"

	"example.com/dayof/internal/domain"
	"example.com/dayof/internal/storage"
)

// Identifier is an allocated item id, optionally with a curated label.
type Identifier struct {
	Num   int64
	Label string
}

// Allocator hands out item identifiers that are never reused within a scope.
type Allocator interface {
	Allocate(ctx context.Context, scope domain.Scope) (Identifier, error)
}

const maxClaimAttempts = 1000

// CuratedAllocator returns labelled ids in ascending order, then plain ids
// past the largest one used. Ids are claimed with an atomic set insert, so
// concurrent publishers never get the same id.
type CuratedAllocator struct {
	store  storage.Store
	ttl    time.Duration
	ids    []int64
	labels map[int64]string
}

func NewCuratedAllocator(store storage.Store, ttl time.Duration, labels map[int64]string) *CuratedAllocator {
	ids := make([]int64, 0, len(labels))
	for id := range labels {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return &CuratedAllocator{store: store, ttl: ttl, ids: ids, labels: labels}
}

func (a *CuratedAllocator) Allocate(ctx context.Context, scope domain.Scope) (Identifier, error) {
	key := scope.Key("used_ids")
	members, err := a.store.SMembers(ctx, key)
	if err != nil {
		return Identifier{}, fmt.Errorf("read used ids: %w", err)
	}
	used := make(map[int64]struct{}, len(members))
	var maxUsed int64
	for _, m := range members {
		n, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		used[n] = struct{}{}
		if n > maxUsed {
			maxUsed = n
		}
	}

	for _, id := range a.ids {
		if _, ok := used[id]; ok {
			continue
		}
		ok, err := a.claim(ctx, key, id)
		if err != nil {
			return Identifier{}, err
		}
		if ok {
			return Identifier{Num: id, Label: a.labels[id]}, nil
		}
		// taken concurrently, count it as used
		if id > maxUsed {
			maxUsed = id
		}
	}

	next := maxUsed + 1
	for i := 0; i < maxClaimAttempts; i++ {
		ok, err := a.claim(ctx, key, next)
		if err != nil {
			return Identifier{}, err
		}
		if ok {
			return Identifier{Num: next}, nil
		}
		next++
	}
	return Identifier{}, domain.ErrAllocationExhausted
}

func (a *CuratedAllocator) claim(ctx context.Context, key string, id int64) (bool, error) {
	ok, err := a.store.SAdd(ctx, key, strconv.FormatInt(id, 10), a.ttl)
	if err != nil {
		return false, fmt.Errorf("claim id %d: %w", id, err)
	}
	return ok, nil
}

// RandomAllocator draws fixed-width random ids, rejecting ones already taken.
type RandomAllocator struct {
	store    storage.Store
	ttl      time.Duration
	digits   int
	attempts int
	// Int64N is swappable for tests.
	Int64N func(n int64) int64
}

func NewRandomAllocator(store storage.Store, ttl time.Duration, digits int) *RandomAllocator {
	return &RandomAllocator{
		store:    store,
		ttl:      ttl,
		digits:   digits,
		attempts: maxClaimAttempts,
		Int64N:   rand.Int64N,
	}
}

func (a *RandomAllocator) Allocate(ctx context.Context, scope domain.Scope) (Identifier, error) {
	lo := int64(1)
	for i := 1; i < a.digits; i++ {
		lo *= 10
	}
	hi := lo*10 - 1

	for i := 0; i < a.attempts; i++ {
		n := lo + a.Int64N(hi-lo+1)
		ok, err := a.store.SetNX(ctx, scope.Key("ids", strconv.FormatInt(n, 10)), []byte("1"), a.ttl)
		if err != nil {
			return Identifier{}, fmt.Errorf("claim id %d: %w", n, err)
		}
		if ok {
			return Identifier{Num: n}, nil
		}
	}
	return Identifier{}, domain.ErrAllocationExhausted
}

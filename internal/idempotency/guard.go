package idempotency

import (
	"context"
	"fmt"
	"time"

	"example.com/dayof/internal/domain"
	"example.com/dayof/internal/storage"
)

// Guard rejects content already submitted within an (event, chat) scope,
// regardless of who submitted it.
type Guard struct {
	store storage.Store
	ttl   time.Duration
}

func NewGuard(store storage.Store, ttl time.Duration) *Guard {
	return &Guard{store: store, ttl: ttl}
}

func key(scope domain.Scope) string { return scope.Key("texts") }

func (g *Guard) IsDuplicate(ctx context.Context, scope domain.Scope, text string) (bool, error) {
	ok, err := g.store.SIsMember(ctx, key(scope), ContentKey(text))
	if err != nil {
		return false, fmt.Errorf("plagiarism check: %w", err)
	}
	return ok, nil
}

// Record inserts the content hash. It reports false when the hash was already
// present, which lets a publisher use it as an atomic claim.
func (g *Guard) Record(ctx context.Context, scope domain.Scope, text string) (bool, error) {
	added, err := g.store.SAdd(ctx, key(scope), ContentKey(text), g.ttl)
	if err != nil {
		return false, fmt.Errorf("plagiarism record: %w", err)
	}
	return added, nil
}

// Release undoes a Record whose publish did not go through.
func (g *Guard) Release(ctx context.Context, scope domain.Scope, text string) error {
	return g.store.SRem(ctx, key(scope), ContentKey(text))
}

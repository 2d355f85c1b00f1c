// Package storage defines the ephemeral key-value store every event keeps its
// state in. Values live only for their TTL; nothing here is durable.
package storage

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("storage: key not found")

// Store is the shared mutable resource of the engine. Each method is atomic on
// its own; callers must not assume atomicity across calls. SAdd and SetNX are
// the primitives compound operations are built on.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetNX stores value only when key is absent and reports whether it did.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error

	// IncrBy atomically adds n to the counter at key and refreshes its TTL.
	IncrBy(ctx context.Context, key string, n int64, ttl time.Duration) (int64, error)
	// Counter reads a counter; absent counters read as zero.
	Counter(ctx context.Context, key string) (int64, error)

	// SAdd atomically adds member to the set and reports whether it was absent.
	SAdd(ctx context.Context, key, member string, ttl time.Duration) (bool, error)
	SRem(ctx context.Context, key, member string) error
	SIsMember(ctx context.Context, key, member string) (bool, error)
	SMembers(ctx context.Context, key string) ([]string, error)
	SCard(ctx context.Context, key string) (int64, error)

	Ping(ctx context.Context) error
}

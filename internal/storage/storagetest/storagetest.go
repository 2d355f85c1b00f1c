// Package storagetest provides a miniredis-backed store for tests.
package storagetest

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	redisstore "example.com/dayof/internal/storage/redis"
)

// New starts an in-process Redis and returns a store bound to it. Both are
// torn down with the test.
func New(t *testing.T) (*redisstore.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redisstore.NewStore(client), mr
}

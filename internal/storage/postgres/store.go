package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"example.com/dayof/internal/storage"
)

// Store implements storage.Store on three tables. Expired rows are invisible
// to reads and are overwritten by writes; Purge deletes them for good.
// Atomicity of SetNX, IncrBy and SAdd comes from INSERT ... ON CONFLICT.
type Store struct {
	db *DB
}

var _ storage.Store = (*Store)(nil)

func NewStore(db *DB) *Store { return &Store{db: db} }

const live = "(expires_at IS NULL OR expires_at > now())"

// expiry maps a TTL to the expires_at column (NULL means no expiry).
func expiry(ttl time.Duration) any {
	if ttl <= 0 {
		return nil
	}
	return time.Now().Add(ttl).UTC()
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := s.db.Pool.QueryRow(ctx,
		"SELECT value FROM kv_values WHERE key=$1 AND "+live, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return v, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := s.db.Pool.Exec(ctx, `
INSERT INTO kv_values (key, value, expires_at) VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`,
		key, value, expiry(ttl))
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *Store) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	ct, err := s.db.Pool.Exec(ctx, `
INSERT INTO kv_values (key, value, expires_at) VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at
WHERE kv_values.expires_at IS NOT NULL AND kv_values.expires_at <= now()`,
		key, value, expiry(ttl))
	if err != nil {
		return false, fmt.Errorf("setnx %s: %w", key, err)
	}
	return ct.RowsAffected() == 1, nil
}

func (s *Store) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	for _, table := range []string{"kv_values", "kv_counters", "kv_members"} {
		if _, err := s.db.Pool.Exec(ctx, "DELETE FROM "+table+" WHERE key = ANY($1)", keys); err != nil {
			return fmt.Errorf("del from %s: %w", table, err)
		}
	}
	return nil
}

func (s *Store) IncrBy(ctx context.Context, key string, n int64, ttl time.Duration) (int64, error) {
	var out int64
	err := s.db.Pool.QueryRow(ctx, `
INSERT INTO kv_counters (key, n, expires_at) VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE SET
  n = CASE
        WHEN kv_counters.expires_at IS NOT NULL AND kv_counters.expires_at <= now() THEN EXCLUDED.n
        ELSE kv_counters.n + EXCLUDED.n
      END,
  expires_at = EXCLUDED.expires_at
RETURNING n`, key, n, expiry(ttl)).Scan(&out)
	if err != nil {
		return 0, fmt.Errorf("incr %s: %w", key, err)
	}
	return out, nil
}

func (s *Store) Counter(ctx context.Context, key string) (int64, error) {
	var n int64
	err := s.db.Pool.QueryRow(ctx,
		"SELECT n FROM kv_counters WHERE key=$1 AND "+live, key).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("counter %s: %w", key, err)
	}
	return n, nil
}

func (s *Store) SAdd(ctx context.Context, key, member string, ttl time.Duration) (bool, error) {
	exp := expiry(ttl)
	ct, err := s.db.Pool.Exec(ctx, `
INSERT INTO kv_members (key, member, expires_at) VALUES ($1, $2, $3)
ON CONFLICT (key, member) DO UPDATE SET expires_at = EXCLUDED.expires_at
WHERE kv_members.expires_at IS NOT NULL AND kv_members.expires_at <= now()`,
		key, member, exp)
	if err != nil {
		return false, fmt.Errorf("sadd %s: %w", key, err)
	}
	// the whole set shares one expiry, as in Redis
	if _, err := s.db.Pool.Exec(ctx,
		"UPDATE kv_members SET expires_at=$2 WHERE key=$1 AND "+live, key, exp); err != nil {
		return false, fmt.Errorf("sadd ttl %s: %w", key, err)
	}
	return ct.RowsAffected() == 1, nil
}

func (s *Store) SRem(ctx context.Context, key, member string) error {
	_, err := s.db.Pool.Exec(ctx, "DELETE FROM kv_members WHERE key=$1 AND member=$2", key, member)
	if err != nil {
		return fmt.Errorf("srem %s: %w", key, err)
	}
	return nil
}

func (s *Store) SIsMember(ctx context.Context, key, member string) (bool, error) {
	var ok bool
	err := s.db.Pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM kv_members WHERE key=$1 AND member=$2 AND "+live+")",
		key, member).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("sismember %s: %w", key, err)
	}
	return ok, nil
}

func (s *Store) SMembers(ctx context.Context, key string) ([]string, error) {
	rows, err := s.db.Pool.Query(ctx,
		"SELECT member FROM kv_members WHERE key=$1 AND "+live+" ORDER BY member", key)
	if err != nil {
		return nil, fmt.Errorf("smembers %s: %w", key, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) SCard(ctx context.Context, key string) (int64, error) {
	var n int64
	err := s.db.Pool.QueryRow(ctx,
		"SELECT COUNT(*)::bigint FROM kv_members WHERE key=$1 AND "+live, key).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("scard %s: %w", key, err)
	}
	return n, nil
}

func (s *Store) Ping(ctx context.Context) error { return s.db.Pool.Ping(ctx) }

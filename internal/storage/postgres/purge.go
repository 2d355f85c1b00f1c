package postgres

import (
	"context"
	"fmt"
)

// PurgeTotals reports how many expired rows each table lost.
type PurgeTotals struct {
	Values   int64 `json:"values"`
	Counters int64 `json:"counters"`
	Members  int64 `json:"members"`
}

func (p PurgeTotals) Sum() int64 { return p.Values + p.Counters + p.Members }

// Purge deletes rows whose TTL elapsed. Reads already ignore them, so this
// only bounds table growth; it is safe to run concurrently with traffic.
func (s *Store) Purge(ctx context.Context) (PurgeTotals, error) {
	var res PurgeTotals
	targets := []struct {
		table string
		n     *int64
	}{
		{"kv_values", &res.Values},
		{"kv_counters", &res.Counters},
		{"kv_members", &res.Members},
	}
	for _, t := range targets {
		ct, err := s.db.Pool.Exec(ctx,
			"DELETE FROM "+t.table+" WHERE expires_at IS NOT NULL AND expires_at <= now()")
		if err != nil {
			return res, fmt.Errorf("purge %s: %w", t.table, err)
		}
		*t.n = ct.RowsAffected()
	}
	return res, nil
}

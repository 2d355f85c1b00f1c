package engine

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"example.com/dayof/internal/domain"
	"example.com/dayof/internal/storage"
)

// Stats keeps advance-only counters, user sets and per-user breakdowns for
// the end-of-event report. Every counter goes through the store's atomic
// increment.
type Stats struct {
	store storage.Store
	ttl   time.Duration
}

func NewStats(store storage.Store, ttl time.Duration) *Stats {
	return &Stats{store: store, ttl: ttl}
}

const (
	StatSubmissions = "submissions"
	SetEngaged      = "engaged"
	SetSubmitters   = "submitters"
)

func (s *Stats) Incr(ctx context.Context, scope domain.Scope, name string, n int64) (int64, error) {
	v, err := s.store.IncrBy(ctx, scope.Key("stats", name), n, s.ttl)
	if err != nil {
		return 0, fmt.Errorf("stats incr %s: %w", name, err)
	}
	return v, nil
}

func (s *Stats) Count(ctx context.Context, scope domain.Scope, name string) (int64, error) {
	return s.store.Counter(ctx, scope.Key("stats", name))
}

// AddUser puts uid in a named user set and reports whether it was new.
func (s *Stats) AddUser(ctx context.Context, scope domain.Scope, set string, uid domain.UserID) (bool, error) {
	ok, err := s.store.SAdd(ctx, scope.Key("stats", "users", set), uid.String(), s.ttl)
	if err != nil {
		return false, fmt.Errorf("stats add %s: %w", set, err)
	}
	return ok, nil
}

func (s *Stats) Users(ctx context.Context, scope domain.Scope, set string) (int64, error) {
	return s.store.SCard(ctx, scope.Key("stats", "users", set))
}

// Engage records any tracked action by uid.
func (s *Stats) Engage(ctx context.Context, scope domain.Scope, uid domain.UserID) error {
	_, err := s.AddUser(ctx, scope, SetEngaged, uid)
	return err
}

// IncrUser bumps uid's personal counter called name.
func (s *Stats) IncrUser(ctx context.Context, scope domain.Scope, uid domain.UserID, name string) error {
	if _, err := s.store.SAdd(ctx, scope.Key("stats", "people"), uid.String(), s.ttl); err != nil {
		return fmt.Errorf("stats people: %w", err)
	}
	if _, err := s.store.IncrBy(ctx, s.userKey(scope, uid, name), 1, s.ttl); err != nil {
		return fmt.Errorf("stats user %s: %w", name, err)
	}
	return nil
}

func (s *Stats) UserCount(ctx context.Context, scope domain.Scope, uid domain.UserID, name string) (int64, error) {
	return s.store.Counter(ctx, s.userKey(scope, uid, name))
}

func (s *Stats) userKey(scope domain.Scope, uid domain.UserID, name string) string {
	return scope.Key("stats", "user", uid.String(), name)
}

func categoryStat(c domain.Category) string { return "category:" + c.String() }

// RecordSubmission counts one published item. Web submissions (uid 0) count
// toward totals but not toward any user.
func (s *Stats) RecordSubmission(ctx context.Context, scope domain.Scope, uid domain.UserID, category domain.Category) error {
	if _, err := s.Incr(ctx, scope, StatSubmissions, 1); err != nil {
		return err
	}
	if category != domain.CategoryUnknown {
		if _, err := s.Incr(ctx, scope, StatSubmissions+":"+category.String(), 1); err != nil {
			return err
		}
	}
	if uid == 0 {
		return nil
	}
	if err := s.Engage(ctx, scope, uid); err != nil {
		return err
	}
	if _, err := s.AddUser(ctx, scope, SetSubmitters, uid); err != nil {
		return err
	}
	if err := s.IncrUser(ctx, scope, uid, StatSubmissions); err != nil {
		return err
	}
	if category != domain.CategoryUnknown {
		return s.IncrUser(ctx, scope, uid, categoryStat(category))
	}
	return nil
}

// TopByCategory returns the user with the most submissions in category.
// Ties go to the lower user id; found is false when nobody has any.
func (s *Stats) TopByCategory(ctx context.Context, scope domain.Scope, category domain.Category) (domain.UserID, bool, error) {
	people, err := s.store.SMembers(ctx, scope.Key("stats", "people"))
	if err != nil {
		return 0, false, fmt.Errorf("stats people: %w", err)
	}
	ids := make([]domain.UserID, 0, len(people))
	for _, p := range people {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, domain.UserID(n))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var (
		best  domain.UserID
		bestN int64
	)
	for _, uid := range ids {
		n, err := s.UserCount(ctx, scope, uid, categoryStat(category))
		if err != nil {
			return 0, false, err
		}
		if n > bestN {
			best, bestN = uid, n
		}
	}
	return best, bestN > 0, nil
}

// Summary is a snapshot of the requested counters and user sets.
type Summary struct {
	Counters map[string]int64 `json:"counters"`
	Sets     map[string]int64 `json:"sets"`
}

// Counter returns a counter from the snapshot; absent reads as zero.
func (s Summary) Counter(name string) int64 { return s.Counters[name] }

// Set returns a user-set size from the snapshot; absent reads as zero.
func (s Summary) Set(name string) int64 { return s.Sets[name] }

// Summary reads counters and sets by name. It never writes.
func (s *Stats) Summary(ctx context.Context, scope domain.Scope, counters, sets []string) (Summary, error) {
	out := Summary{
		Counters: make(map[string]int64, len(counters)),
		Sets:     make(map[string]int64, len(sets)+1),
	}
	for _, name := range counters {
		n, err := s.Count(ctx, scope, name)
		if err != nil {
			return out, fmt.Errorf("summary %s: %w", name, err)
		}
		out.Counters[name] = n
	}
	for _, name := range append([]string{SetEngaged}, sets...) {
		n, err := s.Users(ctx, scope, name)
		if err != nil {
			return out, fmt.Errorf("summary set %s: %w", name, err)
		}
		out.Sets[name] = n
	}
	return out, nil
}

package engine

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"example.com/dayof/internal/domain"
	"example.com/dayof/internal/storage"
)

// ReactionKind describes one button-driven reaction.
type ReactionKind struct {
	Name string
	// Set names the membership set. Kinds sharing a set (a like/dislike poll)
	// allow one reaction per user across all of them. Defaults to Name.
	Set string
	// Exclusive names the partner kind. Holding both on one target produces
	// a Crossing in the outcome.
	Exclusive string
}

func (k ReactionKind) set() string {
	if k.Set != "" {
		return k.Set
	}
	return k.Name
}

// Crossing records the order in which an actor performed both kinds of an
// exclusive pair on the same target. It is returned once and never stored.
type Crossing struct {
	Actor  domain.UserID
	First  string
	Second string
}

type Outcome struct {
	AlreadyReacted bool
	// Counts per kind on the target, for redrawing buttons.
	Counts   map[string]int64
	Crossing *Crossing
}

// Ledger tracks reactions per target. Membership uses the store's atomic
// add-if-absent, and the per-kind counter only moves after a successful add,
// so it always equals the number of members that reacted with that kind.
type Ledger struct {
	store storage.Store
	ttl   time.Duration
	stats *Stats
	kinds map[string]ReactionKind
	order []string
}

func NewLedger(store storage.Store, ttl time.Duration, stats *Stats, kinds ...ReactionKind) *Ledger {
	l := &Ledger{store: store, ttl: ttl, stats: stats, kinds: make(map[string]ReactionKind, len(kinds))}
	for _, k := range kinds {
		l.kinds[k.Name] = k
		l.order = append(l.order, k.Name)
	}
	return l
}

func (l *Ledger) setKey(scope domain.Scope, target, set string) string {
	return scope.Key(target, "set", set)
}

func (l *Ledger) countKey(scope domain.Scope, target, kind string) string {
	return scope.Key(target, "count", kind)
}

func (l *Ledger) kind(name string) (ReactionKind, error) {
	k, ok := l.kinds[name]
	if !ok {
		return ReactionKind{}, fmt.Errorf("unknown reaction kind %q", name)
	}
	return k, nil
}

// React records actor's reaction of the given kind on target.
func (l *Ledger) React(ctx context.Context, scope domain.Scope, target, kindName string, actor domain.UserID) (Outcome, error) {
	kind, err := l.kind(kindName)
	if err != nil {
		return Outcome{}, err
	}

	// participation counts even when the reaction itself is a repeat
	if err := l.stats.Engage(ctx, scope, actor); err != nil {
		return Outcome{}, err
	}

	added, err := l.store.SAdd(ctx, l.setKey(scope, target, kind.set()), actor.String(), l.ttl)
	if err != nil {
		return Outcome{}, fmt.Errorf("react %s: %w", kindName, err)
	}
	if !added {
		counts, err := l.Counts(ctx, scope, target)
		return Outcome{AlreadyReacted: true, Counts: counts}, err
	}

	if _, err := l.store.IncrBy(ctx, l.countKey(scope, target, kind.Name), 1, l.ttl); err != nil {
		return Outcome{}, fmt.Errorf("react count %s: %w", kindName, err)
	}
	if _, err := l.stats.Incr(ctx, scope, "reactions:"+kind.Name, 1); err != nil {
		return Outcome{}, err
	}
	if _, err := l.stats.AddUser(ctx, scope, "reactors:"+kind.Name, actor); err != nil {
		return Outcome{}, err
	}
	if err := l.stats.IncrUser(ctx, scope, actor, "reactions:"+kind.Name); err != nil {
		return Outcome{}, err
	}

	out := Outcome{}
	if kind.Exclusive != "" {
		partner, err := l.kind(kind.Exclusive)
		if err != nil {
			return Outcome{}, err
		}
		held, err := l.store.SIsMember(ctx, l.setKey(scope, target, partner.set()), actor.String())
		if err != nil {
			return Outcome{}, fmt.Errorf("react partner %s: %w", partner.Name, err)
		}
		if held {
			// both clicks of a concurrent pair can see the partner held
			first, err := l.store.SetNX(ctx, scope.Key(target, "crossed", actor.String()), []byte(kind.Name), l.ttl)
			if err != nil {
				return Outcome{}, fmt.Errorf("react crossing: %w", err)
			}
			if first {
				out.Crossing = &Crossing{Actor: actor, First: partner.Name, Second: kind.Name}
			}
		}
	}

	out.Counts, err = l.Counts(ctx, scope, target)
	return out, err
}

// Counts reads every kind's counter on target.
func (l *Ledger) Counts(ctx context.Context, scope domain.Scope, target string) (map[string]int64, error) {
	counts := make(map[string]int64, len(l.order))
	for _, name := range l.order {
		n, err := l.store.Counter(ctx, l.countKey(scope, target, name))
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", name, err)
		}
		counts[name] = n
	}
	return counts, nil
}

// Has reports whether actor already holds kind on target.
func (l *Ledger) Has(ctx context.Context, scope domain.Scope, target, kindName string, actor domain.UserID) (bool, error) {
	kind, err := l.kind(kindName)
	if err != nil {
		return false, err
	}
	return l.store.SIsMember(ctx, l.setKey(scope, target, kind.set()), actor.String())
}

// Members lists the users in kind's membership set on target, by id.
func (l *Ledger) Members(ctx context.Context, scope domain.Scope, target, kindName string) ([]domain.UserID, error) {
	kind, err := l.kind(kindName)
	if err != nil {
		return nil, err
	}
	raw, err := l.store.SMembers(ctx, l.setKey(scope, target, kind.set()))
	if err != nil {
		return nil, err
	}
	out := make([]domain.UserID, 0, len(raw))
	for _, r := range raw {
		n, err := strconv.ParseInt(r, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, domain.UserID(n))
	}
	slices.Sort(out)
	return out, nil
}

// ReactionLabel renders a reaction button: the bare label at zero, otherwise
// the label followed by the count.
func ReactionLabel(label string, count int64) string {
	if count == 0 {
		return label
	}
	return fmt.Sprintf("%s — %d", label, count)
}

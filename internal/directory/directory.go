// Package directory remembers chat participants seen in inbound updates so
// submissions can be addressed by @username.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"example.com/dayof/internal/domain"
	"example.com/dayof/internal/storage"
)

type Directory struct {
	store storage.Store
	ttl   time.Duration
	// IntN is swappable for tests.
	IntN func(n int) int
}

func New(store storage.Store, ttl time.Duration) *Directory {
	return &Directory{store: store, ttl: ttl, IntN: rand.IntN}
}

func userKey(uid domain.UserID) string    { return "dayof:users:" + uid.String() }
func usernameKey(name string) string      { return "dayof:usernames:" + strings.ToLower(name) }
func membersKey(chat domain.ChatID) string { return "dayof:members:" + chat.String() }

// Remember stores u's profile and username mapping.
func (d *Directory) Remember(ctx context.Context, u domain.User) error {
	if u.ID == 0 {
		return nil
	}
	raw, err := json.Marshal(u)
	if err != nil {
		return err
	}
	if err := d.store.Set(ctx, userKey(u.ID), raw, d.ttl); err != nil {
		return fmt.Errorf("remember user %d: %w", u.ID, err)
	}
	if u.Username != "" {
		if err := d.store.Set(ctx, usernameKey(u.Username), []byte(u.ID.String()), d.ttl); err != nil {
			return fmt.Errorf("remember @%s: %w", u.Username, err)
		}
	}
	return nil
}

// Join records u as a member of chat.
func (d *Directory) Join(ctx context.Context, chat domain.ChatID, u domain.User) error {
	if err := d.Remember(ctx, u); err != nil {
		return err
	}
	if _, err := d.store.SAdd(ctx, membersKey(chat), u.ID.String(), d.ttl); err != nil {
		return fmt.Errorf("join %d: %w", chat, err)
	}
	return nil
}

func (d *Directory) Leave(ctx context.Context, chat domain.ChatID, uid domain.UserID) error {
	return d.store.SRem(ctx, membersKey(chat), uid.String())
}

// Observe applies what a group message says about membership: the author is
// present, joiners join, a leaver leaves.
func (d *Directory) Observe(ctx context.Context, m *domain.Message) error {
	if m.Private {
		return d.Remember(ctx, m.From)
	}
	if m.From.ID != 0 && (m.Left == nil || m.Left.ID != m.From.ID) {
		if err := d.Join(ctx, m.Chat, m.From); err != nil {
			return err
		}
	}
	for _, u := range m.Joined {
		if err := d.Join(ctx, m.Chat, u); err != nil {
			return err
		}
	}
	if m.Left != nil {
		return d.Leave(ctx, m.Chat, m.Left.ID)
	}
	return nil
}

func (d *Directory) User(ctx context.Context, uid domain.UserID) (domain.User, bool, error) {
	raw, err := d.store.Get(ctx, userKey(uid))
	if errors.Is(err, storage.ErrNotFound) {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, err
	}
	var u domain.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return domain.User{}, false, fmt.Errorf("decode user %d: %w", uid, err)
	}
	return u, true, nil
}

func (d *Directory) LookupUsername(ctx context.Context, username string) (domain.User, bool, error) {
	raw, err := d.store.Get(ctx, usernameKey(strings.TrimPrefix(username, "@")))
	if errors.Is(err, storage.ErrNotFound) {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, err
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return domain.User{}, false, nil
	}
	u, found, err := d.User(ctx, domain.UserID(n))
	if err != nil || !found {
		return u, found, err
	}
	// the name may have moved to someone else since
	if !strings.EqualFold(u.Username, strings.TrimPrefix(username, "@")) {
		return domain.User{}, false, nil
	}
	return u, true, nil
}

func (d *Directory) IsMember(ctx context.Context, chat domain.ChatID, uid domain.UserID) (bool, error) {
	return d.store.SIsMember(ctx, membersKey(chat), uid.String())
}

// Members lists known members of chat.
func (d *Directory) Members(ctx context.Context, chat domain.ChatID) ([]domain.User, error) {
	ids, err := d.store.SMembers(ctx, membersKey(chat))
	if err != nil {
		return nil, err
	}
	out := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			continue
		}
		u, found, err := d.User(ctx, domain.UserID(n))
		if err != nil {
			return nil, err
		}
		if found {
			out = append(out, u)
		}
	}
	return out, nil
}

func (d *Directory) RandomMember(ctx context.Context, chat domain.ChatID) (domain.User, bool, error) {
	members, err := d.Members(ctx, chat)
	if err != nil || len(members) == 0 {
		return domain.User{}, false, err
	}
	return members[d.IntN(len(members))], true, nil
}

package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"example.com/dayof/internal/domain"
	"example.com/dayof/internal/storage"
)

// Item is a published artifact. Content never changes after creation; Text
// is the rendered chat message and may be re-rendered (a reveal, for one).
// Submitter stays server-side.
type Item struct {
	ID        int64            `json:"id"`
	Label     string           `json:"label,omitempty"`
	Submitter domain.UserID    `json:"submitter"`
	Recipient *domain.User     `json:"recipient,omitempty"`
	Content   string           `json:"content"`
	Category  domain.Category  `json:"category,omitempty"`
	Style     int              `json:"style"`
	Chat      domain.ChatID    `json:"chat"`
	Message   domain.MessageID `json:"message"`
	Preview   domain.MessageID `json:"preview,omitempty"`
	Text      string           `json:"text"`
	CreatedAt time.Time        `json:"created_at"`
}

// Target names the item's reaction ledger.
func (i *Item) Target() string { return ItemTarget(i.ID) }

func ItemTarget(id int64) string { return "item:" + strconv.FormatInt(id, 10) }

type Items struct {
	store storage.Store
	ttl   time.Duration
}

func NewItems(store storage.Store, ttl time.Duration) *Items {
	return &Items{store: store, ttl: ttl}
}

func (s *Items) key(scope domain.Scope, id int64) string {
	return scope.Key("items", strconv.FormatInt(id, 10))
}

func (s *Items) Get(ctx context.Context, scope domain.Scope, id int64) (*Item, error) {
	raw, err := s.store.Get(ctx, s.key(scope, id))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, &domain.NotFoundError{What: "item", ID: strconv.FormatInt(id, 10)}
	}
	if err != nil {
		return nil, fmt.Errorf("get item %d: %w", id, err)
	}
	var it Item
	if err := json.Unmarshal(raw, &it); err != nil {
		return nil, fmt.Errorf("decode item %d: %w", id, err)
	}
	return &it, nil
}

func (s *Items) Save(ctx context.Context, scope domain.Scope, it *Item) error {
	raw, err := json.Marshal(it)
	if err != nil {
		return fmt.Errorf("encode item %d: %w", it.ID, err)
	}
	if err := s.store.Set(ctx, s.key(scope, it.ID), raw, s.ttl); err != nil {
		return fmt.Errorf("save item %d: %w", it.ID, err)
	}
	return nil
}

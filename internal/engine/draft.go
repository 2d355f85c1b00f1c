package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"example.com/dayof/internal/domain"
	"example.com/dayof/internal/storage"
)

type DraftState int

const (
	DraftAbsent DraftState = iota
	DraftDrafting
	DraftPublishing
	DraftPublished
)

func (s DraftState) String() string {
	switch s {
	case DraftDrafting:
		return "drafting"
	case DraftPublishing:
		return "publishing"
	case DraftPublished:
		return "published"
	default:
		return "absent"
	}
}

// Draft is a submitter's editable preview. One live draft per submitter per
// scope; it expires with the event.
type Draft struct {
	Submitter domain.UserID    `json:"submitter"`
	Recipient *domain.User     `json:"recipient,omitempty"`
	Content   string           `json:"content"`
	Category  domain.Category  `json:"category,omitempty"`
	Style     int              `json:"style"`
	Preview   domain.MessageID `json:"preview"`
	Finalized bool             `json:"finalized"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Drafts stores draft sessions and the publish debounce flag.
type Drafts struct {
	store        storage.Store
	ttl          time.Duration
	cooldown     time.Duration
	defaultStyle int
	styles       int
	now          func() time.Time
}

// NewDrafts builds a draft store for a palette of styles entries. cooldown is
// how long a publish click blocks the next one when EndPublish never runs.
func NewDrafts(store storage.Store, ttl, cooldown time.Duration, styles, defaultStyle int) *Drafts {
	return &Drafts{
		store:        store,
		ttl:          ttl,
		cooldown:     cooldown,
		defaultStyle: defaultStyle,
		styles:       styles,
		now:          time.Now,
	}
}

func (d *Drafts) key(scope domain.Scope, uid domain.UserID) string {
	return scope.Key("drafts", uid.String())
}

func (d *Drafts) flagKey(scope domain.Scope, uid domain.UserID) string {
	return scope.Key("drafts", uid.String(), "publishing")
}

func (d *Drafts) Get(ctx context.Context, scope domain.Scope, uid domain.UserID) (*Draft, error) {
	raw, err := d.store.Get(ctx, d.key(scope, uid))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, &domain.NotFoundError{What: "draft", ID: uid.String()}
	}
	if err != nil {
		return nil, fmt.Errorf("get draft: %w", err)
	}
	var draft Draft
	if err := json.Unmarshal(raw, &draft); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}
	return &draft, nil
}

func (d *Drafts) Save(ctx context.Context, scope domain.Scope, draft *Draft) error {
	draft.UpdatedAt = d.now()
	raw, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	if err := d.store.Set(ctx, d.key(scope, draft.Submitter), raw, d.ttl); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// Next builds the draft that replaces the submitter's current one. The style
// carries over from a live draft and resets after a published one. prev is
// nil when there was no draft. Nothing is written; the caller saves next once
// its preview exists.
func (d *Drafts) Next(ctx context.Context, scope domain.Scope, sub Submission) (prev, next *Draft, err error) {
	prev, err = d.Get(ctx, scope, sub.Submitter)
	if err != nil && !domain.IsNotFound(err) {
		return nil, nil, err
	}
	style := d.defaultStyle
	if prev != nil && !prev.Finalized {
		style = prev.Style
	}
	next = &Draft{
		Submitter: sub.Submitter,
		Recipient: sub.Recipient,
		Content:   sub.Text,
		Category:  sub.Category,
		Style:     style,
	}
	return prev, next, nil
}

// Restyle switches the style of the draft shown in preview. Clicks on an
// older preview, on a published draft, or repeating the current style change
// nothing and report changed=false.
func (d *Drafts) Restyle(ctx context.Context, scope domain.Scope, uid domain.UserID, preview domain.MessageID, style int) (*Draft, bool, error) {
	draft, err := d.Get(ctx, scope, uid)
	if err != nil {
		return nil, false, err
	}
	if draft.Finalized || draft.Preview != preview || draft.Style == style {
		return draft, false, nil
	}
	if style < 0 || style >= d.styles {
		return draft, false, nil
	}
	draft.Style = style
	if err := d.Save(ctx, scope, draft); err != nil {
		return nil, false, err
	}
	return draft, true, nil
}

// BeginPublish sets the per-submitter debounce flag. It reports false when a
// publish is already in flight. The flag is advisory: Publish itself keeps
// items unique.
func (d *Drafts) BeginPublish(ctx context.Context, scope domain.Scope, uid domain.UserID) (bool, error) {
	ok, err := d.store.SetNX(ctx, d.flagKey(scope, uid), []byte("1"), d.cooldown)
	if err != nil {
		return false, fmt.Errorf("publish flag: %w", err)
	}
	return ok, nil
}

func (d *Drafts) EndPublish(ctx context.Context, scope domain.Scope, uid domain.UserID) error {
	return d.store.Del(ctx, d.flagKey(scope, uid))
}

// MarkPublished finalizes the draft. Later texts start a fresh one.
func (d *Drafts) MarkPublished(ctx context.Context, scope domain.Scope, draft *Draft) error {
	draft.Finalized = true
	return d.Save(ctx, scope, draft)
}

func (d *Drafts) State(ctx context.Context, scope domain.Scope, uid domain.UserID) (DraftState, error) {
	draft, err := d.Get(ctx, scope, uid)
	if domain.IsNotFound(err) {
		return DraftAbsent, nil
	}
	if err != nil {
		return DraftAbsent, err
	}
	if draft.Finalized {
		return DraftPublished, nil
	}
	_, err = d.store.Get(ctx, d.flagKey(scope, uid))
	switch {
	case err == nil:
		return DraftPublishing, nil
	case errors.Is(err, storage.ErrNotFound):
		return DraftDrafting, nil
	default:
		return DraftAbsent, fmt.Errorf("publish flag: %w", err)
	}
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"example.com/dayof/internal/domain"
	"example.com/dayof/internal/idempotency"
)

// PostFunc puts a freshly allocated item in front of the chat and returns the
// message id. Render item.Text before posting; Publish stores it as is.
type PostFunc func(ctx context.Context, item *Item) (domain.MessageID, error)

// Publisher turns a draft into exactly one item.
type Publisher struct {
	alloc Allocator
	guard *idempotency.Guard
	items *Items
	stats *Stats
	now   func() time.Time
}

func NewPublisher(alloc Allocator, guard *idempotency.Guard, items *Items, stats *Stats) *Publisher {
	return &Publisher{alloc: alloc, guard: guard, items: items, stats: stats, now: time.Now}
}

// Publish claims the content, allocates an id, posts, then persists the item
// and bumps statistics. A concurrent publish of the same content loses the
// claim and gets ValidationError(duplicate). If allocation or posting fails
// the content claim is released so the submitter can retry; a consumed id is
// never handed out again. Once the post is out the claim is kept: a failure
// to store the item or its stats returns both the item and the error.
func (p *Publisher) Publish(ctx context.Context, scope domain.Scope, draft *Draft, post PostFunc) (*Item, error) {
	claimed, err := p.guard.Record(ctx, scope, draft.Content)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, domain.Invalid(domain.ReasonDuplicate, "")
	}

	item, err := p.publish(ctx, scope, draft, post)
	if err != nil && item == nil {
		if rerr := p.guard.Release(ctx, scope, draft.Content); rerr != nil {
			return nil, fmt.Errorf("%w (release claim: %v)", err, rerr)
		}
		return nil, err
	}
	return item, err
}

func (p *Publisher) publish(ctx context.Context, scope domain.Scope, draft *Draft, post PostFunc) (*Item, error) {
	id, err := p.alloc.Allocate(ctx, scope)
	if err != nil {
		return nil, err
	}
	item := &Item{
		ID:        id.Num,
		Label:     id.Label,
		Submitter: draft.Submitter,
		Recipient: draft.Recipient,
		Content:   draft.Content,
		Category:  draft.Category,
		Style:     draft.Style,
		Chat:      scope.Chat,
		Preview:   draft.Preview,
		CreatedAt: p.now(),
	}
	msg, err := post(ctx, item)
	if err != nil {
		return nil, err
	}
	item.Message = msg
	serr := p.items.Save(ctx, scope, item)
	return item, errors.Join(serr, p.stats.RecordSubmission(ctx, scope, draft.Submitter, draft.Category))
}

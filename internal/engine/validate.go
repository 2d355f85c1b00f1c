package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"example.com/dayof/internal/domain"
	"example.com/dayof/internal/idempotency"
)

// Directory resolves chat participants. It is owned by the chat platform side.
type Directory interface {
	LookupUsername(ctx context.Context, username string) (domain.User, bool, error)
	IsMember(ctx context.Context, chat domain.ChatID, uid domain.UserID) (bool, error)
	User(ctx context.Context, uid domain.UserID) (domain.User, bool, error)
	RandomMember(ctx context.Context, chat domain.ChatID) (domain.User, bool, error)
}

var recipientRe = regexp.MustCompile(`@(\w+)`)

// ExtractMention returns the first @username in text, without the @.
func ExtractMention(text string) (string, bool) {
	m := recipientRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Submission is a validated inbound text. It is not stored.
type Submission struct {
	Text      string
	Submitter domain.UserID
	Category  domain.Category
	Recipient *domain.User
}

// Validator runs the submission checks in order: text shape, category or
// recipient, then duplicates. Exactly one of Classifier or Directory is set,
// depending on whether the event takes categorized or addressed submissions.
type Validator struct {
	Classifier  *Classifier
	Directory   Directory
	Guard       *idempotency.Guard
	RejectLinks bool
}

// Validate has no side effects besides the duplicate-check read.
func (v *Validator) Validate(ctx context.Context, scope domain.Scope, submitter domain.UserID, text string) (Submission, error) {
	text = strings.TrimSpace(text)
	sub := Submission{Text: text, Submitter: submitter}
	if text == "" {
		return sub, domain.Invalid(domain.ReasonEmpty, "")
	}
	if v.RejectLinks && ContainsLink(text) {
		return sub, domain.Invalid(domain.ReasonLink, "")
	}

	if v.Classifier != nil {
		sub.Category = v.Classifier.Classify(text)
		if sub.Category == domain.CategoryUnknown {
			return sub, domain.Invalid(domain.ReasonUnknownCategory, "")
		}
	}

	if v.Directory != nil {
		to, err := v.resolveRecipient(ctx, scope, submitter, text)
		if err != nil {
			return sub, err
		}
		sub.Recipient = &to
	}

	dup, err := v.Guard.IsDuplicate(ctx, scope, text)
	if err != nil {
		return sub, err
	}
	if dup {
		return sub, domain.Invalid(domain.ReasonDuplicate, "")
	}
	return sub, nil
}

func (v *Validator) resolveRecipient(ctx context.Context, scope domain.Scope, submitter domain.UserID, text string) (domain.User, error) {
	name, ok := ExtractMention(text)
	if !ok {
		return domain.User{}, domain.Invalid(domain.ReasonMissingRecipient, "")
	}
	user, found, err := v.Directory.LookupUsername(ctx, name)
	if err != nil {
		return domain.User{}, fmt.Errorf("lookup @%s: %w", name, err)
	}
	if !found {
		return domain.User{}, domain.Invalid(domain.ReasonUnknownRecipient, "@"+name)
	}
	member, err := v.Directory.IsMember(ctx, scope.Chat, user.ID)
	if err != nil {
		return domain.User{}, fmt.Errorf("membership @%s: %w", name, err)
	}
	if !member {
		return domain.User{}, domain.Invalid(domain.ReasonUnknownRecipient, "@"+name)
	}
	// anonymous web submissions have no submitter to compare against
	if submitter != 0 && user.ID == submitter {
		return domain.User{}, domain.Invalid(domain.ReasonSelfTarget, "")
	}
	return user, nil
}

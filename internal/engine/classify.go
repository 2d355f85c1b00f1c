// Package engine holds the parts shared by every time-boxed anonymous event:
// submission checks, drafts, identifier allocation, published items,
// reaction ledgers and aggregate statistics. Everything is addressed through
// a domain.Scope and lives in a storage.Store for the event's TTL.
package engine

import (
	"regexp"

	"example.com/dayof/internal/domain"
)

// Rule maps a line-start phrase pattern to a category.
type Rule struct {
	Category domain.Category
	Pattern  *regexp.Regexp
}

// PrefixRule anchors alternation at the start of any line, ignoring leading
// whitespace, case-insensitively.
func PrefixRule(category domain.Category, alternation string) Rule {
	return Rule{
		Category: category,
		Pattern:  regexp.MustCompile(`(?im)^[ \t]*(?:` + alternation + `)`),
	}
}

// Classifier tries rules in order; the first match wins.
type Classifier struct {
	rules []Rule
}

func NewClassifier(rules ...Rule) *Classifier {
	return &Classifier{rules: rules}
}

func (c *Classifier) Classify(text string) domain.Category {
	for _, r := range c.rules {
		if r.Pattern.MatchString(text) {
			return r.Category
		}
	}
	return domain.CategoryUnknown
}

var linkRe = regexp.MustCompile(`(?i)www|http|\.(jpe?g|gif|png|webp|mp4|webm)`)

// ContainsLink reports links and media file names.
func ContainsLink(text string) bool {
	return linkRe.MatchString(text)
}

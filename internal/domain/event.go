package domain

import (
	"strconv"
	"strings"
)

type (
	UserID    int64
	ChatID    int64
	MessageID int64
)

func (u UserID) String() string { return strconv.FormatInt(int64(u), 10) }
func (c ChatID) String() string { return strconv.FormatInt(int64(c), 10) }

// User is what the engine knows about a chat participant.
type User struct {
	ID        UserID `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Mention returns "@username" when known, else the full name, else the numeric id.
func (u User) Mention() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	if n := u.FullName(); n != "" {
		return n
	}
	return u.ID.String()
}

// Scope identifies one event running in one chat. Every stored entity is
// addressed through a scope so nothing leaks between events.
type Scope struct {
	Event string
	Chat  ChatID
}

// Key builds the composite store key {event, chat, parts...}.
func (s Scope) Key(parts ...string) string {
	var b strings.Builder
	b.WriteString("dayof:")
	b.WriteString(s.Event)
	b.WriteByte(':')
	b.WriteString(s.Chat.String())
	for _, p := range parts {
		b.WriteByte(':')
		b.WriteString(p)
	}
	return b.String()
}

// Category is the detected kind of a free-text submission.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryReport
	CategoryConfession
)

func (c Category) String() string {
	switch c {
	case CategoryReport:
		return "report"
	case CategoryConfession:
		return "confession"
	default:
		return "unknown"
	}
}

// Categories lists the known categories in display order.
var Categories = []Category{CategoryReport, CategoryConfession}

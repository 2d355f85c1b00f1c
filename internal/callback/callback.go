// Package callback is the button payload carried through the chat platform.
// Payloads are decoded once at the boundary into a closed set of actions and
// matched with a type switch.
package callback

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MaxSize is the platform's limit on button data.
const MaxSize = 64

type Action string

const (
	ActBegin   Action = "b"
	ActAbout   Action = "a"
	ActReact   Action = "r"
	ActStyle   Action = "s"
	ActPublish Action = "p"
	ActShow    Action = "v"
	ActPoll    Action = "l"
)

// Payload is one of the action structs below.
type Payload interface {
	Action() Action
}

// Begin asks how to take part.
type Begin struct{}

// About asks what the event is.
type About struct{}

// React applies a reaction kind to a published item.
type React struct {
	Item int64
	Kind string
}

// Style picks a palette entry for the sender's current preview.
type Style struct {
	Style int
}

// Publish sends the sender's current draft to the chat.
type Publish struct{}

// ShowItem displays a published item's text to the clicker.
type ShowItem struct {
	Item int64
}

// Poll votes in the end-of-event poll.
type Poll struct {
	Kind string
}

func (Begin) Action() Action    { return ActBegin }
func (About) Action() Action    { return ActAbout }
func (React) Action() Action    { return ActReact }
func (Style) Action() Action    { return ActStyle }
func (Publish) Action() Action  { return ActPublish }
func (ShowItem) Action() Action { return ActShow }
func (Poll) Action() Action     { return ActPoll }

// Envelope routes a payload to an event.
type Envelope struct {
	Event   string
	Payload Payload
}

type wire struct {
	Event  string `json:"e"`
	Action Action `json:"a"`
	Item   int64  `json:"i,omitempty"`
	Kind   string `json:"k,omitempty"`
	Style  *int   `json:"s,omitempty"`
}

var (
	ErrTooLarge  = errors.New("callback: payload exceeds 64 bytes")
	ErrMalformed = errors.New("callback: malformed payload")
)

func Encode(env Envelope) (string, error) {
	if env.Payload == nil {
		return "", fmt.Errorf("%w: no payload", ErrMalformed)
	}
	w := wire{Event: env.Event, Action: env.Payload.Action()}
	switch p := env.Payload.(type) {
	case React:
		w.Item, w.Kind = p.Item, p.Kind
	case Style:
		s := p.Style
		w.Style = &s
	case ShowItem:
		w.Item = p.Item
	case Poll:
		w.Kind = p.Kind
	}
	raw, err := json.Marshal(w)
	if err != nil {
		return "", err
	}
	if len(raw) > MaxSize {
		return "", ErrTooLarge
	}
	return string(raw), nil
}

// MustEncode is for payloads built from constants.
func MustEncode(env Envelope) string {
	s, err := Encode(env)
	if err != nil {
		panic(err)
	}
	return s
}

func Decode(data string) (Envelope, error) {
	if len(data) > MaxSize {
		return Envelope{}, ErrTooLarge
	}
	var w wire
	if err := json.Unmarshal([]byte(data), &w); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if w.Event == "" {
		return Envelope{}, fmt.Errorf("%w: no event", ErrMalformed)
	}
	env := Envelope{Event: w.Event}
	switch w.Action {
	case ActBegin:
		env.Payload = Begin{}
	case ActAbout:
		env.Payload = About{}
	case ActReact:
		if w.Item == 0 || w.Kind == "" {
			return Envelope{}, fmt.Errorf("%w: react needs item and kind", ErrMalformed)
		}
		env.Payload = React{Item: w.Item, Kind: w.Kind}
	case ActStyle:
		if w.Style == nil {
			return Envelope{}, fmt.Errorf("%w: style needs an index", ErrMalformed)
		}
		env.Payload = Style{Style: *w.Style}
	case ActPublish:
		env.Payload = Publish{}
	case ActShow:
		if w.Item == 0 {
			return Envelope{}, fmt.Errorf("%w: show needs item", ErrMalformed)
		}
		env.Payload = ShowItem{Item: w.Item}
	case ActPoll:
		if w.Kind == "" {
			return Envelope{}, fmt.Errorf("%w: poll needs kind", ErrMalformed)
		}
		env.Payload = Poll{Kind: w.Kind}
	default:
		return Envelope{}, fmt.Errorf("%w: unknown action %q", ErrMalformed, w.Action)
	}
	return env, nil
}

package domain

import "time"

// Message is an inbound text message (new or edited).
type Message struct {
	ID      MessageID
	Chat    ChatID
	From    User
	Text    string
	Private bool
	Edited  bool
	Date    time.Time
	// Joined and Left carry membership changes reported in the chat.
	Joined []User
	Left   *User
}

// Query is an inbound button click.
type Query struct {
	ID      string
	From    User
	Chat    ChatID
	Message MessageID
	Data    string
}

// Update is one unit of inbound work; exactly one of Message or Query is set.
type Update struct {
	ID      int64
	Message *Message
	Query   *Query
}

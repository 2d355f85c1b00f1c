package telegram

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-telegram/bot/models"

	"example.com/dayof/internal/domain"
)

var ErrUnsupportedUpdate = errors.New("telegram: unsupported update")

// DecodeUpdate turns a webhook body into a domain update. Edited messages are
// treated as messages with Edited set. Updates carrying neither a message nor
// a button click return ErrUnsupportedUpdate.
func DecodeUpdate(raw []byte) (domain.Update, error) {
	var u models.Update
	if err := json.Unmarshal(raw, &u); err != nil {
		return domain.Update{}, fmt.Errorf("decode update: %w", err)
	}
	out := domain.Update{ID: u.ID}
	switch {
	case u.Message != nil:
		out.Message = message(u.Message, false)
	case u.EditedMessage != nil:
		out.Message = message(u.EditedMessage, true)
	case u.CallbackQuery != nil:
		out.Query = query(u.CallbackQuery)
	default:
		return out, ErrUnsupportedUpdate
	}
	return out, nil
}

func user(u models.User) domain.User {
	return domain.User{ID: domain.UserID(u.ID), Username: u.Username, FirstName: u.FirstName, LastName: u.LastName}
}

func message(m *models.Message, edited bool) *domain.Message {
	out := &domain.Message{
		ID:      domain.MessageID(m.ID),
		Chat:    domain.ChatID(m.Chat.ID),
		Text:    m.Text,
		Private: m.Chat.Type == models.ChatTypePrivate,
		Edited:  edited,
		Date:    time.Unix(int64(m.Date), 0),
	}
	if m.From != nil {
		out.From = user(*m.From)
	}
	for _, u := range m.NewChatMembers {
		out.Joined = append(out.Joined, user(u))
	}
	if m.LeftChatMember != nil {
		left := user(*m.LeftChatMember)
		out.Left = &left
	}
	return out
}

// query keeps the chat and message of the clicked button. Old messages come
// back as inaccessible but still carry both.
func query(q *models.CallbackQuery) *domain.Query {
	out := &domain.Query{ID: q.ID, From: user(q.From), Data: q.Data}
	switch m := q.Message; {
	case m.Message != nil:
		out.Chat = domain.ChatID(m.Message.Chat.ID)
		out.Message = domain.MessageID(m.Message.ID)
	case m.InaccessibleMessage != nil:
		out.Chat = domain.ChatID(m.InaccessibleMessage.Chat.ID)
		out.Message = domain.MessageID(m.InaccessibleMessage.MessageID)
	}
	return out
}

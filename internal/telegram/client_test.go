package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/dayof/internal/delivery"
	"example.com/dayof/internal/domain"
)

type captured struct {
	path string
	form map[string]string
}

// fakeAPI answers every Bot API call with status and reply. The SDK posts
// multipart forms with nested values JSON encoded.
func fakeAPI(t *testing.T, status int, reply string) (*Client, *[]captured) {
	t.Helper()
	var calls []captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		form := map[string]string{}
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			for k, v := range r.MultipartForm.Value {
				form[k] = v[0]
			}
		}
		calls = append(calls, captured{path: r.URL.Path, form: form})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL, "TOKEN", srv.Client())
	require.NoError(t, err)
	return c, &calls
}

func TestSendMessage(t *testing.T) {
	c, calls := fakeAPI(t, http.StatusOK, `{"ok":true,"result":{"message_id":77,"date":1700000000,"chat":{"id":-100,"type":"supergroup"}}}`)

	kb := delivery.Keyboard{{{Text: "Go", Data: `{"e":"x","a":"p"}`}}}
	id, err := c.Send(context.Background(), -100, "<b>hi</b>", kb, 5)
	require.NoError(t, err)
	assert.Equal(t, domain.MessageID(77), id)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, "/botTOKEN/sendMessage", call.path)
	assert.Equal(t, "-100", call.form["chat_id"])
	assert.Equal(t, "HTML", call.form["parse_mode"])

	var reply struct {
		MessageID int `json:"message_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(call.form["reply_parameters"]), &reply))
	assert.Equal(t, 5, reply.MessageID)

	var markup struct {
		InlineKeyboard [][]struct {
			Text         string `json:"text"`
			CallbackData string `json:"callback_data"`
		} `json:"inline_keyboard"`
	}
	require.NoError(t, json.Unmarshal([]byte(call.form["reply_markup"]), &markup))
	require.Len(t, markup.InlineKeyboard, 1)
	assert.Equal(t, "Go", markup.InlineKeyboard[0][0].Text)
	assert.Equal(t, `{"e":"x","a":"p"}`, markup.InlineKeyboard[0][0].CallbackData)
}

func TestSendWithoutKeyboardOrReply(t *testing.T) {
	c, calls := fakeAPI(t, http.StatusOK, `{"ok":true,"result":{"message_id":1,"date":1700000000,"chat":{"id":1,"type":"private"}}}`)
	_, err := c.Send(context.Background(), 1, "x", nil, 0)
	require.NoError(t, err)
	form := (*calls)[0].form
	assert.NotContains(t, form, "reply_parameters")
	assert.NotContains(t, form, "reply_markup")
}

func TestErrorsClassified(t *testing.T) {
	cases := []struct {
		name      string
		status    int
		reply     string
		temporary bool
	}{
		{"rate limited", http.StatusTooManyRequests, `{"ok":false,"error_code":429,"description":"Too Many Requests: retry after 3","parameters":{"retry_after":3}}`, true},
		{"server error", http.StatusInternalServerError, `{"ok":false,"error_code":500,"description":"Internal Server Error"}`, true},
		{"bad request", http.StatusBadRequest, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`, false},
		{"blocked", http.StatusForbidden, `{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, calls := fakeAPI(t, tc.status, tc.reply)
			err := c.Answer(context.Background(), "q", "hi", true, "")
			require.Error(t, err)
			var de *domain.DeliveryError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, delivery.OpAnswer, de.Op)
			assert.Equal(t, tc.temporary, domain.IsTemporary(err))
			assert.Len(t, *calls, 1, "no retries below the executor")
		})
	}
}

func TestCanceledIsPermanent(t *testing.T) {
	c, _ := fakeAPI(t, http.StatusOK, `{"ok":true,"result":true}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Answer(ctx, "q", "", false, "")
	require.Error(t, err)
	assert.False(t, domain.IsTemporary(err))
}

func TestNotModifiedIsSuccess(t *testing.T) {
	c, _ := fakeAPI(t, http.StatusBadRequest, `{"ok":false,"error_code":400,"description":"Bad Request: message is not modified"}`)
	assert.NoError(t, c.EditButtons(context.Background(), 1, 2, nil))
	assert.NoError(t, c.Edit(context.Background(), 1, 2, "same", nil))
}

func TestDecodeUpdate(t *testing.T) {
	u, err := DecodeUpdate([]byte(`{"update_id":9,"edited_message":{"message_id":3,"from":{"id":5,"first_name":"Ann","username":"ann"},"chat":{"id":5,"type":"private"},"date":1700000000,"text":"@bob hi"}}`))
	require.NoError(t, err)
	require.NotNil(t, u.Message)
	assert.True(t, u.Message.Edited)
	assert.True(t, u.Message.Private)
	assert.Equal(t, "ann", u.Message.From.Username)

	u, err = DecodeUpdate([]byte(`{"update_id":10,"callback_query":{"id":"q1","from":{"id":6,"first_name":"Bo"},"message":{"message_id":8,"chat":{"id":-100,"type":"supergroup"},"date":0},"data":"{}"}}`))
	require.NoError(t, err)
	require.NotNil(t, u.Query)
	assert.Equal(t, domain.ChatID(-100), u.Query.Chat)
	assert.Equal(t, domain.MessageID(8), u.Query.Message)

	u, err = DecodeUpdate([]byte(`{"update_id":11,"message":{"message_id":1,"chat":{"id":-100,"type":"group"},"date":0,"new_chat_members":[{"id":7,"first_name":"New"}],"left_chat_member":{"id":8,"first_name":"Gone"}}}`))
	require.NoError(t, err)
	require.Len(t, u.Message.Joined, 1)
	assert.Equal(t, domain.UserID(8), u.Message.Left.ID)

	_, err = DecodeUpdate([]byte(`{"update_id":12,"poll":{}}`))
	assert.ErrorIs(t, err, ErrUnsupportedUpdate)
}

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragchat/chatstream/wire"
)

func TestClient_GetHistory(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/bots/bot-1/chats/chat-9/history", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"history":[
			{"id":"m0","type":"message","role":"human","data":"hi","timestamp":1724800000},
			{"id":"m1","type":"start","role":"ai"},
			{"id":"m1","type":"message","role":"ai","data":"hello"},
			{"id":"m1","type":"stop","role":"ai","data":[]}
		]}`))
	}))
	defer ts.Close()

	client, err := NewClient(ts.URL, "tok-123")
	require.NoError(t, err)

	history, err := client.GetHistory(context.Background(), "bot-1", "chat-9")
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, wire.RoleHuman, history[0].Role)
	assert.Equal(t, "hi", history[0].Text())
	assert.Equal(t, wire.TypeStop, history[3].Type)
}

func TestClient_CreateAndDeleteChat(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/bots/bot-1/chats":
			json.NewEncoder(w).Encode(Chat{ID: "chat-9", BotID: "bot-1"})
		case r.Method == http.MethodDelete && r.URL.Path == "/api/v1/bots/bot-1/chats/chat-9":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	client, err := NewClient(ts.URL, "")
	require.NoError(t, err)

	chat, err := client.CreateChat(context.Background(), "bot-1")
	require.NoError(t, err)
	assert.Equal(t, "chat-9", chat.ID)

	assert.NoError(t, client.DeleteChat(context.Background(), "bot-1", "chat-9"))
}

func TestClient_SubmitFeedback(t *testing.T) {
	var got wire.Feedback
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/bots/bot-1/chats/chat-9/messages/m1/feedback", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client, err := NewClient(ts.URL, "")
	require.NoError(t, err)

	fb := wire.Feedback{Type: wire.FeedbackBad, Tag: "wrong", Message: "not what the doc says"}
	require.NoError(t, client.SubmitFeedback(context.Background(), "bot-1", "chat-9", "m1", fb))
	assert.Equal(t, fb, got)
}

func TestClient_ErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("no access to bot"))
	}))
	defer ts.Close()

	client, err := NewClient(ts.URL, "")
	require.NoError(t, err)

	err = client.ClearHistory(context.Background(), "bot-1", "chat-9")
	require.Error(t, err)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "no access to bot", apiErr.Body)
}

package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goliatone/go-assistant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientReplyDecodesResponse(t *testing.T) {
	var got Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"message": "Here you go",
			"component": {"type": "Badge", "props": {"children": "new"}},
			"suggestedActions": [{"id": "next", "text": "Next"}],
			"requiresConfirmation": true,
			"confirmAction": {"label": "Launch", "variant": "primary", "action": "launch-database"}
		}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, WithHeader("X-Api-Key", "secret"), WithTimeout(time.Second))
	resp, err := client.Reply(context.Background(), Request{
		Messages: []Turn{{Role: assistant.RoleUser, Content: "hi"}},
		Context:  Context{View: assistant.ViewChat, Option: "create"},
	})
	require.NoError(t, err)

	assert.Equal(t, "hi", got.Messages[0].Content)
	assert.Equal(t, assistant.ViewChat, got.Context.View)

	assert.Equal(t, "Here you go", resp.Message)
	require.NotNil(t, resp.Component)
	assert.Equal(t, "Badge", resp.Component.Type)
	assert.Equal(t, []assistant.Suggestion{{ID: "next", Text: "Next"}}, resp.SuggestedActions)

	msg := resp.Build()
	assert.Equal(t, assistant.RoleAgent, msg.Role)
	assert.True(t, msg.RequiresConfirmation)
	assert.Equal(t, "launch-database", msg.Confirmation.Action)
}

func TestClientReplyFailures(t *testing.T) {
	cases := []struct {
		name      string
		status    int
		body      string
		retryable bool
	}{
		{name: "server error", status: http.StatusBadGateway, body: "upstream down", retryable: true},
		{name: "rate limited", status: http.StatusTooManyRequests, body: "slow down", retryable: true},
		{name: "bad request", status: http.StatusBadRequest, body: "nope", retryable: false},
		{name: "empty reply", status: http.StatusOK, body: `{"message": "  "}`, retryable: false},
		{name: "not json", status: http.StatusOK, body: `<html>`, retryable: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL).Reply(context.Background(), Request{
				Messages: []Turn{{Role: assistant.RoleUser, Content: "hi"}},
			})
			require.Error(t, err)
			assert.True(t, assistant.HasCode(err, assistant.ErrCodeCollaboratorUnavailable), "got %v", err)
			assert.Equal(t, tc.retryable, Retryable(err))
		})
	}
}

func TestClientWithoutEndpoint(t *testing.T) {
	_, err := NewClient("").Reply(context.Background(), Request{})
	assert.True(t, assistant.HasCode(err, assistant.ErrCodeCollaboratorUnavailable))
}

func TestTurnsFromSkipsStatusMessages(t *testing.T) {
	history := []assistant.Message{
		assistant.NewMessage(assistant.RoleUser, "hi"),
		assistant.NewMessage(assistant.RoleStatus, "typing"),
		assistant.NewMessage(assistant.RoleAgent, "hello"),
		assistant.NewMessage(assistant.RoleError, "oops"),
	}
	turns := TurnsFrom(history)
	assert.Equal(t, []Turn{
		{Role: assistant.RoleUser, Content: "hi"},
		{Role: assistant.RoleAgent, Content: "hello"},
	}, turns)
}

func TestOfflineCollaborator(t *testing.T) {
	offline := NewOffline()

	resp, err := offline.Reply(context.Background(), Request{Messages: []Turn{
		{Role: assistant.RoleUser, Content: "What will this cost me?"},
	}})
	require.NoError(t, err)
	require.NotNil(t, resp.Component)
	assert.Equal(t, "Table", resp.Component.Type)

	_, err = offline.Reply(context.Background(), Request{Messages: []Turn{
		{Role: assistant.RoleUser, Content: "tell me a joke"},
	}})
	assert.True(t, assistant.HasCode(err, assistant.ErrCodeCollaboratorUnavailable))
	assert.False(t, Retryable(err))

	_, err = offline.Reply(context.Background(), Request{})
	assert.Error(t, err)
}

func TestUnavailable(t *testing.T) {
	_, err := Unavailable.Reply(context.Background(), Request{})
	assert.True(t, assistant.HasCode(err, assistant.ErrCodeCollaboratorUnavailable))
}

package chat

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-assistant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProxyApp(c Collaborator) *fiber.App {
	app := fiber.New()
	app.Post("/api/chat", Handler(c, assistant.NopLogger{}))
	return app
}

func postChat(t *testing.T, app *fiber.App, body string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func TestHandlerReturnsReply(t *testing.T) {
	app := newProxyApp(CollaboratorFunc(func(_ context.Context, req Request) (Response, error) {
		return Response{Message: "echo: " + req.Messages[len(req.Messages)-1].Content}, nil
	}))

	status, data := postChat(t, app, `{"messages":[{"role":"user","content":"hello"}],"context":{"view":"chat"}}`)
	require.Equal(t, fiber.StatusOK, status)

	var resp Response
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.Equal(t, "echo: hello", resp.Message)
}

func TestHandlerRejectsBadInput(t *testing.T) {
	app := newProxyApp(Unavailable)

	status, _ := postChat(t, app, `{`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, data := postChat(t, app, `{"messages":[]}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	var body ErrorBody
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, ErrCodeInvalidRequest, body.Code)
}

func TestHandlerMapsCollaboratorFailure(t *testing.T) {
	app := newProxyApp(Unavailable)

	status, data := postChat(t, app, `{"messages":[{"role":"user","content":"hello"}]}`)
	assert.Equal(t, fiber.StatusServiceUnavailable, status)

	var body ErrorBody
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, assistant.ErrCodeCollaboratorUnavailable, body.Code)
}

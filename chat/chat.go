// Package chat defines the conversational collaborator contract and its
// HTTP client, proxy handler and offline implementation.
package chat

import (
	"context"
	"strings"

	"github.com/goliatone/go-assistant"
	"github.com/goliatone/go-errors"
)

// ErrCodeInvalidRequest marks malformed proxy requests.
const ErrCodeInvalidRequest = "INVALID_CHAT_REQUEST"

// Turn is one role/content pair of the history sent to the collaborator.
type Turn struct {
	Role    assistant.Role `json:"role"`
	Content string         `json:"content"`
}

// Context tells the collaborator where the user is.
type Context struct {
	View   assistant.View `json:"view"`
	Option string         `json:"option,omitempty"`
}

// Request is the collaborator input.
type Request struct {
	Messages []Turn  `json:"messages"`
	Context  Context `json:"context"`
}

// Response is the collaborator reply.
type Response struct {
	Message              string                  `json:"message"`
	Component            *assistant.Component    `json:"component,omitempty"`
	SuggestedActions     []assistant.Suggestion  `json:"suggestedActions,omitempty"`
	RequiresConfirmation bool                    `json:"requiresConfirmation,omitempty"`
	ConfirmAction        *assistant.Confirmation `json:"confirmAction,omitempty"`
}

// Collaborator produces a reply for a conversation.
type Collaborator interface {
	Reply(ctx context.Context, req Request) (Response, error)
}

// CollaboratorFunc adapts a function to Collaborator.
type CollaboratorFunc func(ctx context.Context, req Request) (Response, error)

func (f CollaboratorFunc) Reply(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// Unavailable is a collaborator that always fails, which sends every prompt
// down the canned fallback chain.
var Unavailable Collaborator = CollaboratorFunc(func(context.Context, Request) (Response, error) {
	return Response{}, assistant.NewError(assistant.ErrCollaboratorUnavailable, "no chat collaborator configured", nil, nil)
})

// Validate checks the request shape accepted by the proxy.
func (r Request) Validate() error {
	if len(r.Messages) == 0 {
		return errors.New("messages are required", errors.CategoryBadInput).
			WithTextCode(ErrCodeInvalidRequest)
	}
	for i, t := range r.Messages {
		if strings.TrimSpace(t.Content) == "" {
			return errors.New("message content is required", errors.CategoryBadInput).
				WithTextCode(ErrCodeInvalidRequest).
				WithMetadata(map[string]any{"index": i})
		}
	}
	return nil
}

// LastUserTurn returns the newest user turn.
func (r Request) LastUserTurn() (Turn, bool) {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == assistant.RoleUser {
			return r.Messages[i], true
		}
	}
	return Turn{}, false
}

// Build materializes the reply as an agent message.
func (r Response) Build() assistant.Message {
	opts := []assistant.MessageOption{}
	if r.Component != nil {
		opts = append(opts, assistant.WithComponent(r.Component))
	}
	if len(r.SuggestedActions) > 0 {
		opts = append(opts, assistant.WithMessageSuggestions(r.SuggestedActions...))
	}
	if r.RequiresConfirmation && r.ConfirmAction != nil {
		opts = append(opts, assistant.WithConfirmation(r.ConfirmAction))
	}
	return assistant.NewMessage(assistant.RoleAgent, r.Message, opts...)
}

// TurnsFrom converts history into collaborator turns. Status and error
// entries are not part of the conversation.
func TurnsFrom(history []assistant.Message) []Turn {
	out := make([]Turn, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case assistant.RoleUser, assistant.RoleAgent:
			out = append(out, Turn{Role: m.Role, Content: m.Content})
		}
	}
	return out
}

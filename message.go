package assistant

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role identifies who produced a message in the conversation history.
type Role string

const (
	RoleUser   Role = "user"
	RoleAgent  Role = "agent"
	RoleStatus Role = "status"
	RoleError  Role = "error"
)

// Action is a button attached to a message.
type Action struct {
	ID      string         `json:"id" yaml:"id"`
	Label   string         `json:"label" yaml:"label"`
	Variant string         `json:"variant,omitempty" yaml:"variant,omitempty"`
	Params  map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// Suggestion is a follow-up prompt offered to the user.
type Suggestion struct {
	ID   string `json:"id" yaml:"id"`
	Text string `json:"text" yaml:"text"`
}

// Confirmation describes the effect applied once the user confirms a message.
type Confirmation struct {
	Label   string         `json:"label" yaml:"label"`
	Variant string         `json:"variant,omitempty" yaml:"variant,omitempty"`
	Action  string         `json:"action" yaml:"action"`
	Params  map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// Message is one entry of the append-only conversation history.
type Message struct {
	ID                   string        `json:"id"`
	Role                 Role          `json:"role"`
	Content              string        `json:"content"`
	CreatedAt            time.Time     `json:"created_at"`
	Actions              []Action      `json:"actions,omitempty"`
	Component            *Component    `json:"component,omitempty"`
	Suggestions          []Suggestion  `json:"suggestions,omitempty"`
	RequiresConfirmation bool          `json:"requires_confirmation,omitempty"`
	Confirmation         *Confirmation `json:"confirmation,omitempty"`
}

// MessageOption customizes a message at construction time.
type MessageOption func(*Message)

// WithComponent embeds a descriptor in the message.
func WithComponent(c *Component) MessageOption {
	return func(m *Message) {
		m.Component = c.Clone()
	}
}

// WithActions attaches action buttons.
func WithActions(actions ...Action) MessageOption {
	return func(m *Message) {
		m.Actions = append([]Action(nil), actions...)
	}
}

// WithMessageSuggestions attaches follow-up suggestions to the message itself.
func WithMessageSuggestions(suggestions ...Suggestion) MessageOption {
	return func(m *Message) {
		m.Suggestions = CloneSuggestions(suggestions)
	}
}

// WithConfirmation flags the message as requiring user confirmation.
func WithConfirmation(c *Confirmation) MessageOption {
	return func(m *Message) {
		if c == nil {
			return
		}
		cp := *c
		cp.Params = cloneMap(c.Params)
		m.RequiresConfirmation = true
		m.Confirmation = &cp
	}
}

// NewMessage builds a message with a fresh id and creation time.
func NewMessage(role Role, content string, opts ...MessageOption) Message {
	msg := Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&msg)
		}
	}
	return msg
}

// Clone returns a deep copy, used when handing history out of the store.
func (m Message) Clone() Message {
	out := m
	if m.Actions != nil {
		out.Actions = make([]Action, len(m.Actions))
		for i, a := range m.Actions {
			a.Params = cloneMap(a.Params)
			out.Actions[i] = a
		}
	}
	out.Component = m.Component.Clone()
	out.Suggestions = CloneSuggestions(m.Suggestions)
	if m.Confirmation != nil {
		c := *m.Confirmation
		c.Params = cloneMap(m.Confirmation.Params)
		out.Confirmation = &c
	}
	return out
}

// CloneSuggestions copies a suggestion list, preserving nil.
func CloneSuggestions(in []Suggestion) []Suggestion {
	if in == nil {
		return nil
	}
	out := make([]Suggestion, len(in))
	copy(out, in)
	return out
}

// FindSuggestionByText matches display text case-insensitively.
func FindSuggestionByText(suggestions []Suggestion, text string) (Suggestion, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Suggestion{}, false
	}
	for _, s := range suggestions {
		if strings.EqualFold(strings.TrimSpace(s.Text), text) {
			return s, true
		}
	}
	return Suggestion{}, false
}

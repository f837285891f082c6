// Package events carries workflow and app state change notifications over an
// in-process watermill bus.
package events

import (
	"encoding/json"
	"time"

	"github.com/goliatone/go-assistant"
	"github.com/goliatone/go-errors"
)

const (
	TopicWorkflow = "workflow.changed"
	TopicAppState = "appstate.changed"
)

// Envelope types.
const (
	TypeWorkflowChanged = "workflow.changed"
	TypeSessionClosed   = "workflow.session.closed"
	TypeDatabaseUpdated = "appstate.database.updated"
	TypeActivityAdded   = "appstate.activity.added"
	TypeNotification    = "appstate.notification.pushed"
)

// Envelope is the wire form of every bus message.
type Envelope struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id,omitempty"`
	Version   uint64          `json:"version,omitempty"`
	At        time.Time       `json:"at"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope encodes payload into a typed envelope.
func NewEnvelope(typ string, payload any) (Envelope, error) {
	if typ == "" {
		return Envelope{}, errors.New("empty envelope type", errors.CategoryBadInput)
	}
	env := Envelope{Type: typ, At: time.Now().UTC()}
	if payload == nil {
		return env, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, errors.Wrap(err, errors.CategoryInternal, "marshal envelope payload")
	}
	env.Payload = b
	return env, nil
}

// Decode unmarshals the payload into v.
func (e Envelope) Decode(v any) error {
	if len(e.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "unmarshal envelope payload").
			WithMetadata(map[string]any{"type": e.Type})
	}
	return nil
}

// WorkflowChange is the payload of TypeWorkflowChanged.
type WorkflowChange struct {
	Kinds  []string       `json:"kinds"`
	View   assistant.View `json:"view,omitempty"`
	Active bool           `json:"active"`
}

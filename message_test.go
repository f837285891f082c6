package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage(t *testing.T) {
	comp := NewComponent("Alert", Props{"children": "ready"})
	msg := NewMessage(RoleAgent, "Everything is ready.",
		WithComponent(comp),
		WithActions(Action{ID: "launch-database", Label: "Launch"}),
		WithMessageSuggestions(Suggestion{ID: "s1", Text: "Show pricing"}),
		WithConfirmation(&Confirmation{Label: "Launch", Action: "launch-database", Params: map[string]any{"name": "prod-orders"}}),
		nil,
	)

	assert.NotEmpty(t, msg.ID)
	assert.False(t, msg.CreatedAt.IsZero())
	assert.Equal(t, RoleAgent, msg.Role)
	assert.True(t, msg.RequiresConfirmation)
	require.NotNil(t, msg.Confirmation)
	assert.Equal(t, "launch-database", msg.Confirmation.Action)

	comp.Props["children"] = "changed"
	assert.Equal(t, "ready", msg.Component.Props["children"], "the message owns its descriptor")

	other := NewMessage(RoleUser, "hi")
	assert.NotEqual(t, msg.ID, other.ID)
	assert.False(t, other.RequiresConfirmation)
	assert.Nil(t, other.Suggestions)
}

func TestMessageCloneIsDeep(t *testing.T) {
	msg := NewMessage(RoleAgent, "x",
		WithActions(Action{ID: "a", Params: map[string]any{"k": "v"}}),
		WithConfirmation(&Confirmation{Action: "c", Params: map[string]any{"k": "v"}}),
	)
	cp := msg.Clone()
	cp.Actions[0].Params["k"] = "changed"
	cp.Confirmation.Params["k"] = "changed"

	assert.Equal(t, "v", msg.Actions[0].Params["k"])
	assert.Equal(t, "v", msg.Confirmation.Params["k"])
}

func TestFindSuggestionByText(t *testing.T) {
	suggestions := []Suggestion{{ID: "start-create", Text: "Create a new database"}}

	s, ok := FindSuggestionByText(suggestions, "  create a NEW database ")
	require.True(t, ok)
	assert.Equal(t, "start-create", s.ID)

	_, ok = FindSuggestionByText(suggestions, "")
	assert.False(t, ok)
	_, ok = FindSuggestionByText(suggestions, "migrate")
	assert.False(t, ok)
	assert.Nil(t, CloneSuggestions(nil))
}

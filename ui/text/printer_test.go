package text

import (
	"testing"

	"github.com/goliatone/go-assistant"
	"github.com/goliatone/go-assistant/ui"
	"github.com/stretchr/testify/assert"
)

func TestPrinter_Nil(t *testing.T) {
	assert.Equal(t, "", NewPrinter(0).Print(nil))
}

func TestPrinter_TableAndKeyValues(t *testing.T) {
	r := ui.NewRenderer()
	p := NewPrinter(0)

	table := r.Render(assistant.NewComponent(ui.TypeTable, assistant.Props{
		"columns": []any{"name", "engine"},
		"items": []any{
			map[string]any{"name": "orders-db", "engine": "aurora-postgresql"},
		},
	}), nil)
	out := p.Print(table)
	assert.Contains(t, out, "Name")
	assert.Contains(t, out, "orders-db")
	assert.Contains(t, out, "aurora-postgresql")

	kv := r.Render(assistant.NewComponent(ui.TypeKeyValuePairs, assistant.Props{
		"items": map[string]any{"Region": "us-east-1"},
	}), nil)
	out = p.Print(kv)
	assert.Contains(t, out, "Region")
	assert.Contains(t, out, "us-east-1")
}

func TestPrinter_FieldsAndButtons(t *testing.T) {
	r := ui.NewRenderer()
	node := r.Render(assistant.NewComponent(ui.TypeForm, assistant.Props{
		"children": []any{
			map[string]any{"type": "Checkbox", "props": map[string]any{"id": "multiAz", "label": "Multi-AZ", "checked": true}},
			map[string]any{"type": "Button", "props": map[string]any{"action": "launch-database", "children": "Launch"}},
		},
	}), nil)

	out := NewPrinter(0).Print(node)
	assert.Contains(t, out, "[x] Multi-AZ")
	assert.Contains(t, out, "Launch")
	assert.Contains(t, out, "launch-database")
}

func TestPrinter_Progress(t *testing.T) {
	node := ui.NewRenderer().Render(assistant.NewComponent(ui.TypeProgressBar, assistant.Props{
		"label": "Provisioning",
		"value": 50,
	}), nil)
	assert.Contains(t, NewPrinter(0).Print(node), "50%")
}

func TestPrinter_Message(t *testing.T) {
	msg := assistant.NewMessage(assistant.RoleAgent, "Ready to launch", assistant.WithActions(
		assistant.Action{ID: "launch-database", Label: "Launch"},
	))
	out := NewPrinter(0).PrintMessage(msg, nil)
	assert.Contains(t, out, "Ready to launch")
	assert.Contains(t, out, "action launch-database")
}

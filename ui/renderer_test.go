package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/goliatone/go-assistant"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func comp(typ string, props assistant.Props) *assistant.Component {
	return assistant.NewComponent(typ, props)
}

func TestRender_NilAndEmpty(t *testing.T) {
	r := NewRenderer()
	assert.Nil(t, r.Render(nil, nil))
	assert.Nil(t, r.Render(&assistant.Component{}, nil))
}

func TestRender_UnknownTypeRendersNothing(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(WithLogger(assistant.NewFmtLogger(&buf)))

	assert.NotPanics(t, func() {
		assert.Nil(t, r.Render(comp("UnknownThing", nil), nil))
	})
	assert.Contains(t, buf.String(), "unknown component type=UnknownThing")
}

func TestRender_UnknownChildIsSkipped(t *testing.T) {
	r := NewRenderer()
	node := r.Render(comp(TypeBox, assistant.Props{
		"children": []any{
			"before",
			map[string]any{"type": "Nope"},
			map[string]any{"type": "Badge", "props": map[string]any{"children": "new"}},
		},
	}), nil)

	require.NotNil(t, node)
	require.Len(t, node.Children, 2)
	assert.Equal(t, "before", node.Children[0])
	badge, ok := node.Children[1].(*Node)
	require.True(t, ok)
	assert.Equal(t, TypeBadge, badge.Type)
	assert.Equal(t, "new", badge.Text())
}

func TestRender_AliasResolves(t *testing.T) {
	r := NewRenderer()
	node := r.Render(comp("text-input", assistant.Props{"name": "dbName"}), nil)
	require.NotNil(t, node)
	assert.Equal(t, TypeInput, node.Type)
	assert.Equal(t, "dbName", node.Props[PropFieldID])
}

func TestRender_SlotsKeepOrder(t *testing.T) {
	r := NewRenderer()
	node := r.Render(comp(TypeContainer, assistant.Props{
		"header": map[string]any{"type": "Header", "props": map[string]any{"children": "Cluster"}},
		"footer": []any{
			"Last updated",
			map[string]any{"type": "Badge", "props": map[string]any{"children": "beta"}},
			"now",
		},
		"children": "body",
	}), nil)
	require.NotNil(t, node)

	header, ok := node.Props["header"].(*Node)
	require.True(t, ok)
	assert.Equal(t, "Cluster", header.Text())

	footer, ok := node.Props["footer"].([]any)
	require.True(t, ok)
	require.Len(t, footer, 3)
	assert.Equal(t, "Last updated", footer[0])
	assert.Equal(t, TypeBadge, footer[1].(*Node).Type)
	assert.Equal(t, "now", footer[2])

	assert.Equal(t, []any{"body"}, node.Children)
	assert.NotContains(t, node.Props, "children")
}

func TestRender_TableColumnsAreNotDescriptors(t *testing.T) {
	r := NewRenderer()
	node := r.Render(comp(TypeTable, assistant.Props{
		"columns": []any{map[string]any{"id": "type", "header": "Type"}},
		"items":   []any{map[string]any{"type": "db.r6g.large"}},
	}), nil)
	require.NotNil(t, node)

	cols := node.Props["columnDefinitions"].([]Column)
	require.Len(t, cols, 1)
	assert.Equal(t, "db.r6g.large", cols[0].Cell(map[string]any{"type": "db.r6g.large"}))
}

func TestRender_DepthCap(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(WithMaxDepth(3), WithLogger(assistant.NewFmtLogger(&buf)))

	nested := func(depth int) *assistant.Component {
		c := comp(TypeBadge, assistant.Props{"children": "leaf"})
		for i := 0; i < depth; i++ {
			c = comp(TypeBox, assistant.Props{"children": []any{c}})
		}
		return c
	}

	node := r.Render(nested(2), nil)
	require.NotNil(t, node)
	assert.NotNil(t, node.Find(func(n *Node) bool { return n.Type == TypeBadge }))

	node = r.Render(nested(3), nil)
	require.NotNil(t, node)
	assert.Nil(t, node.Find(func(n *Node) bool { return n.Type == TypeBadge }))
	assert.Contains(t, buf.String(), "render depth exceeded")
}

func TestRender_StrictPropsDropsInvalidNode(t *testing.T) {
	bad := comp(TypeProgressBar, assistant.Props{"value": "half"})

	assert.NotNil(t, NewRenderer().Render(bad, nil))
	assert.Nil(t, NewRenderer(WithStrictProps(true)).Render(bad, nil))
}

func TestRender_PanickingPrimitiveIsContained(t *testing.T) {
	reg := DefaultRegistry()
	reg.MustRegister("Exploding", PrimitiveFunc(func(assistant.Props, []any) *Node {
		panic("boom")
	}))
	var buf bytes.Buffer
	r := NewRenderer(WithRegistry(reg), WithLogger(assistant.NewFmtLogger(&buf)))

	node := r.Render(comp(TypeBox, assistant.Props{"children": []any{
		map[string]any{"type": "Exploding"},
		"still here",
	}}), nil)
	require.NotNil(t, node)
	assert.Equal(t, []any{"still here"}, node.Children)
	assert.Contains(t, buf.String(), "boom")
}

func TestRender_ControlledFormIsNeverMutated(t *testing.T) {
	r := NewRenderer()
	external := FormState{"name": "x"}
	var changes [][2]any

	node := r.Render(comp(TypeForm, assistant.Props{
		"children": []any{map[string]any{"type": "Input", "props": map[string]any{"name": "name"}}},
	}), nil, WithFormState(external), WithFormChange(func(field string, value any) {
		changes = append(changes, [2]any{field, value})
	}))
	require.NotNil(t, node)

	field := node.FindField("name")
	require.NotNil(t, field)
	assert.Equal(t, "x", field.Props["value"])

	require.True(t, field.Change("y"))
	assert.Equal(t, [][2]any{{"name", "y"}}, changes)
	assert.Equal(t, FormState{"name": "x"}, external)
}

func TestTree_UncontrolledKeepsLocalState(t *testing.T) {
	r := NewRenderer()
	var forwarded []string
	tree := r.Mount(comp(TypeInput, assistant.Props{"name": "dbName", "defaultValue": "orders"}), nil,
		WithFormChange(func(field string, value any) {
			forwarded = append(forwarded, field+"="+value.(string))
		}))

	assert.Equal(t, "orders", tree.Node().Props["value"])

	tree.Node().Change("inventory")
	assert.Equal(t, "inventory", tree.Node().Props["value"])
	assert.Equal(t, FormState{"dbName": "inventory"}, tree.Values())
	assert.Equal(t, []string{"dbName=inventory"}, forwarded)

	tree.SetFormState(FormState{"dbName": "billing"})
	assert.Equal(t, "billing", tree.Node().Props["value"])
}

func TestRender_ButtonFiresAction(t *testing.T) {
	sink := &recordingSink{}
	node := NewRenderer().Render(comp(TypeButton, assistant.Props{
		"children": "Deploy",
		"action":   "deploy-cluster",
	}), sink)

	require.NoError(t, node.Click(context.Background()))
	require.Len(t, sink.calls, 1)
	assert.Equal(t, "deploy-cluster", sink.calls[0].id)
}

func TestNode_MarshalJSONListsHandlers(t *testing.T) {
	node := NewRenderer().Render(comp(TypeInput, assistant.Props{"name": "engine"}), nil)
	data, err := json.Marshal(node)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, []any{PropOnChange}, decoded["handlers"])
	props := decoded["props"].(map[string]any)
	assert.NotContains(t, props, PropOnChange)
	assert.Equal(t, "engine", props[PropFieldID])
}

func TestRender_Deterministic(t *testing.T) {
	r := NewRenderer()
	state := FormState{"engine": "postgres"}
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)
	properties.Property("same descriptor and form state render the same tree", prop.ForAll(
		func(labels []string) bool {
			children := make([]any, 0, len(labels))
			for _, l := range labels {
				children = append(children,
					map[string]any{"type": "Input", "props": map[string]any{"label": l}},
					l,
				)
			}
			c := comp(TypeForm, assistant.Props{
				"header":   map[string]any{"type": "Header", "props": map[string]any{"children": strings.Join(labels, ",")}},
				"children": children,
			})
			a, errA := json.Marshal(r.Render(c, nil, WithFormState(state)))
			b, errB := json.Marshal(r.Render(c, nil, WithFormState(state)))
			return errA == nil && errB == nil && bytes.Equal(a, b)
		},
		gen.SliceOf(gen.AlphaString()),
	))
	properties.TestingRun(t)
}

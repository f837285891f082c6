package ui

import (
	"context"
	"encoding/json"
	"reflect"
	"sort"

	"github.com/goliatone/go-assistant"
)

// Handler prop keys synthesized by the transformer.
const (
	PropOnClick  = "onClick"
	PropOnChange = "onChange"
	PropFieldID  = "fieldId"
)

// ClickHandler runs when a clickable primitive is activated.
type ClickHandler func(ctx context.Context) error

// ChangeHandler runs when a form field changes value.
type ChangeHandler func(value any)

// CellAccessor extracts a table cell from a row.
type CellAccessor func(row map[string]any) any

// Column is the normalized column definition of collection primitives.
type Column struct {
	ID     string       `json:"id"`
	Header string       `json:"header"`
	Cell   CellAccessor `json:"-"`
}

// Node is a rendered primitive. Children holds *Node values and scalars in
// descriptor order.
type Node struct {
	Type     string          `json:"type"`
	Props    assistant.Props `json:"props,omitempty"`
	Children []any           `json:"children,omitempty"`
}

// MarshalJSON drops func-valued props and lists them under "handlers".
func (n *Node) MarshalJSON() ([]byte, error) {
	if n == nil {
		return []byte("null"), nil
	}
	props := make(map[string]any, len(n.Props))
	var handlers []string
	for k, v := range n.Props {
		if isFunc(v) {
			handlers = append(handlers, k)
			continue
		}
		props[k] = v
	}
	sort.Strings(handlers)
	type wire struct {
		Type     string         `json:"type"`
		Props    map[string]any `json:"props,omitempty"`
		Handlers []string       `json:"handlers,omitempty"`
		Children []any          `json:"children,omitempty"`
	}
	return json.Marshal(wire{Type: n.Type, Props: props, Handlers: handlers, Children: n.Children})
}

// Walk visits n and its descendants depth first, including nodes substituted
// into props. It stops early when fn returns false.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if n == nil {
		return true
	}
	if !fn(n) {
		return false
	}
	keys := make([]string, 0, len(n.Props))
	for k := range n.Props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !walkValue(n.Props[k], fn) {
			return false
		}
	}
	for _, child := range n.Children {
		if !walkValue(child, fn) {
			return false
		}
	}
	return true
}

func walkValue(v any, fn func(*Node) bool) bool {
	switch t := v.(type) {
	case *Node:
		return t.Walk(fn)
	case []any:
		for _, item := range t {
			if !walkValue(item, fn) {
				return false
			}
		}
	}
	return true
}

// Find returns the first node matching pred.
func (n *Node) Find(pred func(*Node) bool) *Node {
	var found *Node
	n.Walk(func(c *Node) bool {
		if pred(c) {
			found = c
			return false
		}
		return true
	})
	return found
}

// FindField returns the bound form field with the given id.
func (n *Node) FindField(id string) *Node {
	return n.Find(func(c *Node) bool {
		return c.Props.String(PropFieldID) == id
	})
}

// Click invokes the node's click handler, if any.
func (n *Node) Click(ctx context.Context) error {
	if n == nil {
		return nil
	}
	if h, ok := n.Props[PropOnClick].(ClickHandler); ok && h != nil {
		return h(ctx)
	}
	return nil
}

// Change invokes the node's change handler and reports whether one was bound.
func (n *Node) Change(value any) bool {
	if n == nil {
		return false
	}
	if h, ok := n.Props[PropOnChange].(ChangeHandler); ok && h != nil {
		h(value)
		return true
	}
	return false
}

// Text concatenates scalar children, used for labels of buttons and headers.
func (n *Node) Text() string {
	if n == nil {
		return ""
	}
	out := ""
	for _, child := range n.Children {
		switch t := child.(type) {
		case *Node:
			out += t.Text()
		case string:
			out += t
		default:
			out += scalarString(t)
		}
	}
	return out
}

func isFunc(v any) bool {
	if v == nil {
		return false
	}
	return reflect.TypeOf(v).Kind() == reflect.Func
}

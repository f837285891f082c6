package assistant

import (
	"encoding/json"
	"strings"

	"github.com/goliatone/go-errors"
)

// Conventional prop slots that may hold nested descriptors.
const (
	SlotChildren = "children"
	SlotHeader   = "header"
	SlotFooter   = "footer"
	SlotAction   = "action"
)

// Props is the generic prop bag of a descriptor.
type Props map[string]any

// Component is a declarative UI descriptor: a type name plus props, where props
// may nest further descriptors under the conventional slots.
type Component struct {
	Type  string `json:"type" yaml:"type"`
	Props Props  `json:"props,omitempty" yaml:"props,omitempty"`
}

// NewComponent builds a descriptor.
func NewComponent(typ string, props Props) *Component {
	return &Component{Type: typ, Props: props}
}

// ParseComponent decodes a JSON descriptor.
func ParseComponent(data []byte) (*Component, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "descriptor is not valid JSON").
			WithTextCode(ErrCodeInvalidComponent)
	}
	c, ok := AsComponent(raw)
	if !ok {
		return nil, ErrInvalidComponent.Clone()
	}
	return c, nil
}

// AsComponent reports whether v is a descriptor. Decoded JSON/YAML maps count
// when they carry a string "type" and nothing besides an optional "props" map,
// so plain records such as table columns are not mistaken for descriptors.
func AsComponent(v any) (*Component, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case *Component:
		if t == nil || strings.TrimSpace(t.Type) == "" {
			return nil, false
		}
		return t, true
	case Component:
		if strings.TrimSpace(t.Type) == "" {
			return nil, false
		}
		return &t, true
	case map[string]any:
		typ, ok := t["type"].(string)
		if !ok || strings.TrimSpace(typ) == "" {
			return nil, false
		}
		for key := range t {
			if key != "type" && key != "props" {
				return nil, false
			}
		}
		c := &Component{Type: typ}
		switch p := t["props"].(type) {
		case nil:
		case map[string]any:
			c.Props = Props(p)
		case Props:
			c.Props = p
		default:
			return nil, false
		}
		return c, true
	}
	return nil, false
}

// Clone deep-copies the descriptor tree.
func (c *Component) Clone() *Component {
	if c == nil {
		return nil
	}
	return &Component{Type: c.Type, Props: c.Props.Clone()}
}

// Get returns a prop value.
func (p Props) Get(key string) (any, bool) {
	if p == nil {
		return nil, false
	}
	v, ok := p[key]
	return v, ok
}

// String returns a string prop or "".
func (p Props) String(key string) string {
	if v, ok := p.Get(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Bool returns a bool prop and whether it was set as a bool.
func (p Props) Bool(key string) (bool, bool) {
	if v, ok := p.Get(key); ok {
		b, ok := v.(bool)
		return b, ok
	}
	return false, false
}

// Clone deep-copies the prop bag.
func (p Props) Clone() Props {
	if p == nil {
		return nil
	}
	out := make(Props, len(p))
	for k, v := range p {
		out[k] = CloneValue(v)
	}
	return out
}

// CloneValue deep-copies JSON-like values and descriptors. Other values,
// including funcs, are returned as is.
func CloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case Props:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = CloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, s := range t {
			out[k] = s
		}
		return out
	case *Component:
		return t.Clone()
	case Component:
		return *t.Clone()
	default:
		return v
	}
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = CloneValue(v)
	}
	return out
}

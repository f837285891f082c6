package ui

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-assistant"
	"github.com/goliatone/go-errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Capability describes what a primitive can do; transform rules match on it.
type Capability uint8

const (
	CapContainer Capability = 1 << iota
	CapField
	CapClickable
	CapCollection
)

// Primitive builds the rendered node for a resolved descriptor.
type Primitive interface {
	Build(props assistant.Props, children []any) *Node
}

// PrimitiveFunc is an adapter that lets you use a function as a Primitive
type PrimitiveFunc func(props assistant.Props, children []any) *Node

// Build calls the underlying function
func (f PrimitiveFunc) Build(props assistant.Props, children []any) *Node {
	return f(props, children)
}

// Widget is the default primitive: it emits a node of the given type.
func Widget(name string) Primitive {
	return PrimitiveFunc(func(props assistant.Props, children []any) *Node {
		return &Node{Type: name, Props: props, Children: children}
	})
}

// Entry is a registered primitive.
type Entry struct {
	Name         string
	Primitive    Primitive
	Capabilities Capability
	Aliases      []string
	schema       *jsonschema.Schema
}

// Unresolved is returned by Resolve for unknown names.
var Unresolved = Entry{}

// Resolved reports whether the entry points at a primitive.
func (e Entry) Resolved() bool {
	return e.Name != "" && e.Primitive != nil
}

// Has reports whether the entry carries every capability in c.
func (e Entry) Has(c Capability) bool {
	return e.Capabilities&c == c
}

// ValidateProps checks props against the entry schema, when one was registered.
func (e Entry) ValidateProps(props assistant.Props) error {
	if e.schema == nil {
		return nil
	}
	data, err := json.Marshal(props)
	if err != nil {
		// props built in code may hold values JSON cannot carry; nothing to check against
		return nil
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil
	}
	if doc == nil {
		doc = map[string]any{}
	}
	if err := e.schema.Validate(doc); err != nil {
		return assistant.NewError(assistant.ErrInvalidProps, "props for "+e.Name+" failed validation", err, map[string]any{
			"type": e.Name,
		})
	}
	return nil
}

// EntryOption customizes a registration.
type EntryOption func(*Entry) error

// WithAliases adds lookup aliases for the entry.
func WithAliases(aliases ...string) EntryOption {
	return func(e *Entry) error {
		e.Aliases = append(e.Aliases, aliases...)
		return nil
	}
}

// WithCapabilities sets the capability flags of the entry.
func WithCapabilities(c Capability) EntryOption {
	return func(e *Entry) error {
		e.Capabilities |= c
		return nil
	}
}

// WithPropsSchema compiles a JSON Schema (draft 2020-12) for the entry props.
func WithPropsSchema(schema string) EntryOption {
	return func(e *Entry) error {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		url := fmt.Sprintf("https://go-assistant.local/ui/%s.schema.json", strings.ToLower(e.Name))
		if err := c.AddResource(url, strings.NewReader(schema)); err != nil {
			return errors.Wrap(err, errors.CategoryValidation, "failed to load props schema").
				WithTextCode(assistant.ErrCodeInvalidProps).
				WithMetadata(map[string]any{"type": e.Name})
		}
		compiled, err := c.Compile(url)
		if err != nil {
			return errors.Wrap(err, errors.CategoryValidation, "failed to compile props schema").
				WithTextCode(assistant.ErrCodeInvalidProps).
				WithMetadata(map[string]any{"type": e.Name})
		}
		e.schema = compiled
		return nil
	}
}

// Registry maps type names to primitives. Lookups try the canonical name
// first and then the normalized alias table.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
	aliases map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]Entry),
		aliases: make(map[string]string),
	}
}

// Register adds a primitive under its canonical name.
func (r *Registry) Register(name string, p Primitive, opts ...EntryOption) error {
	name = strings.TrimSpace(name)
	if name == "" || p == nil {
		return errors.New("component name and primitive are required", errors.CategoryBadInput).
			WithTextCode("INVALID_REGISTRATION")
	}
	entry := Entry{Name: name, Primitive: p}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&entry); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; exists {
		return errors.New("component already registered", errors.CategoryConflict).
			WithTextCode("COMPONENT_ALREADY_REGISTERED").
			WithMetadata(map[string]any{"type": name})
	}
	r.entries[name] = entry
	r.aliases[NormalizeName(name)] = name
	for _, alias := range entry.Aliases {
		if key := NormalizeName(alias); key != "" {
			r.aliases[key] = name
		}
	}
	return nil
}

// MustRegister is Register for static catalogs; it panics on error.
func (r *Registry) MustRegister(name string, p Primitive, opts ...EntryOption) {
	if err := r.Register(name, p, opts...); err != nil {
		panic(err)
	}
}

// Lookup returns the entry for name.
func (r *Registry) Lookup(name string) (Entry, bool) {
	if r == nil {
		return Unresolved, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.entries[name]; ok {
		return e, true
	}
	if canonical, ok := r.aliases[NormalizeName(name)]; ok {
		e, ok := r.entries[canonical]
		return e, ok
	}
	return Unresolved, false
}

// Resolve returns the entry for name or Unresolved; it never fails.
func (r *Registry) Resolve(name string) Entry {
	e, _ := r.Lookup(name)
	return e
}

// Names returns the sorted canonical names.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NormalizeName folds case and drops separators so "key-value-pairs",
// "key_value_pairs" and "KeyValuePairs" share a key.
func NormalizeName(name string) string {
	var sb strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch r {
		case '-', '_', ' ', '.':
			continue
		}
		sb.WriteRune(r)
	}
	return strings.ToLower(sb.String())
}

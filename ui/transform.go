package ui

import (
	"context"

	"github.com/goliatone/go-assistant"
)

// FormState maps field ids to values. Renderers treat it as read only.
type FormState map[string]any

// Clone copies the state.
func (f FormState) Clone() FormState {
	out := make(FormState, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Lookup returns the value of a field when present.
func (f FormState) Lookup(id string) (any, bool) {
	if f == nil {
		return nil, false
	}
	v, ok := f[id]
	return v, ok
}

// FormChangeFunc receives (fieldID, value) events emitted by bound fields.
type FormChangeFunc func(field string, value any)

// Download is a payload materialized when a download button is clicked.
type Download struct {
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
	Content  []byte `json:"-"`
}

// Downloader materializes downloads.
type Downloader interface {
	Download(ctx context.Context, d Download) error
}

// DownloaderFunc is an adapter that lets you use a function as a Downloader
type DownloaderFunc func(ctx context.Context, d Download) error

// Download calls the underlying function
func (f DownloaderFunc) Download(ctx context.Context, d Download) error {
	return f(ctx, d)
}

// Env is everything a transform rule may capture in synthesized handlers.
type Env struct {
	Actions   assistant.ActionSink
	Form      FormState
	OnChange  FormChangeFunc
	Downloads Downloader
	Logger    assistant.Logger
}

// Rule adapts the prop bag of matching primitives. Apply receives a private
// copy of the props and may edit it in place.
type Rule struct {
	Name  string
	Match func(Entry) bool
	Apply func(env Env, entry Entry, props assistant.Props)
}

// ForTypes matches entries by canonical name.
func ForTypes(names ...string) func(Entry) bool {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return func(e Entry) bool {
		_, ok := set[e.Name]
		return ok
	}
}

// ForCapability matches entries carrying c.
func ForCapability(c Capability) func(Entry) bool {
	return func(e Entry) bool {
		return e.Has(c)
	}
}

// Transformer applies its rules in registration order.
type Transformer struct {
	rules []Rule
}

// NewTransformer builds a transformer with the given rules.
func NewTransformer(rules ...Rule) *Transformer {
	return &Transformer{rules: append([]Rule(nil), rules...)}
}

// DefaultTransformer returns a transformer with the built-in rules.
func DefaultTransformer() *Transformer {
	return NewTransformer(DefaultRules()...)
}

// Add appends a rule.
func (t *Transformer) Add(rule Rule) *Transformer {
	if rule.Match != nil && rule.Apply != nil {
		t.rules = append(t.rules, rule)
	}
	return t
}

// Transform returns a new prop bag for entry; props is never modified.
func (t *Transformer) Transform(entry Entry, props assistant.Props, env Env) assistant.Props {
	out := props.Clone()
	if out == nil {
		out = assistant.Props{}
	}
	if t == nil {
		return out
	}
	env = normalizeEnv(env)
	for _, rule := range t.rules {
		if rule.Match(entry) {
			rule.Apply(env, entry, out)
		}
	}
	return out
}

func normalizeEnv(env Env) Env {
	if env.Actions == nil {
		env.Actions = assistant.NopActionSink
	}
	if env.OnChange == nil {
		env.OnChange = func(string, any) {}
	}
	if env.Logger == nil {
		env.Logger = assistant.NopLogger{}
	}
	return env
}

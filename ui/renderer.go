package ui

import (
	"sync"

	"github.com/goliatone/go-assistant"
)

// DefaultMaxDepth caps descriptor nesting.
const DefaultMaxDepth = 32

// Renderer interprets descriptors into Node trees.
type Renderer struct {
	registry    *Registry
	transformer *Transformer
	logger      assistant.Logger
	panics      assistant.PanicLogger
	downloads   Downloader
	maxDepth    int
	strictProps bool
	slots       []string
}

// Option customizes a renderer.
type Option func(*Renderer)

// WithRegistry sets the primitive registry.
func WithRegistry(r *Registry) Option {
	return func(rd *Renderer) {
		if r != nil {
			rd.registry = r
		}
	}
}

// WithTransformer sets the prop transformer.
func WithTransformer(t *Transformer) Option {
	return func(rd *Renderer) {
		if t != nil {
			rd.transformer = t
		}
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(l assistant.Logger) Option {
	return func(rd *Renderer) {
		rd.logger = assistant.NormalizeLogger(l)
	}
}

// WithDownloader sets the sink used by download buttons.
func WithDownloader(d Downloader) Option {
	return func(rd *Renderer) {
		rd.downloads = d
	}
}

// WithMaxDepth caps nesting; values <= 0 keep the default.
func WithMaxDepth(depth int) Option {
	return func(rd *Renderer) {
		if depth > 0 {
			rd.maxDepth = depth
		}
	}
}

// WithStrictProps drops nodes whose props fail their registered schema.
func WithStrictProps(strict bool) Option {
	return func(rd *Renderer) {
		rd.strictProps = strict
	}
}

// NewRenderer builds a renderer over the default catalog and rules.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		registry:    DefaultRegistry(),
		transformer: DefaultTransformer(),
		logger:      assistant.NopLogger{},
		maxDepth:    DefaultMaxDepth,
		slots:       []string{assistant.SlotHeader, assistant.SlotFooter, assistant.SlotAction},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.panics == nil {
		r.panics = assistant.LogPanics(r.logger)
	}
	return r
}

// Registry exposes the primitive registry.
func (r *Renderer) Registry() *Registry {
	return r.registry
}

// RenderOption configures one render.
type RenderOption func(*Tree)

// WithFormState hands form ownership to the caller: the tree reads values
// from state and never keeps its own copy.
func WithFormState(state FormState) RenderOption {
	return func(t *Tree) {
		t.external = state
		t.controlled = true
	}
}

// WithFormChange forwards every field change upward.
func WithFormChange(fn FormChangeFunc) RenderOption {
	return func(t *Tree) {
		t.onChange = fn
	}
}

// Render renders c once. Without WithFormState the tree owns a local form
// state that lives as long as the returned node's handlers.
func (r *Renderer) Render(c *assistant.Component, sink assistant.ActionSink, opts ...RenderOption) *Node {
	return r.Mount(c, sink, opts...).Node()
}

// Mount renders c and keeps the tree around so local form changes re-render it.
func (r *Renderer) Mount(c *assistant.Component, sink assistant.ActionSink, opts ...RenderOption) *Tree {
	t := &Tree{
		renderer: r,
		root:     c,
		sink:     sink,
		local:    FormState{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	t.rerender()
	return t
}

// Tree is a mounted descriptor together with its form state.
type Tree struct {
	mu         sync.Mutex
	renderer   *Renderer
	root       *assistant.Component
	sink       assistant.ActionSink
	external   FormState
	controlled bool
	local      FormState
	onChange   FormChangeFunc
	node       *Node
}

// Node returns the current rendered output; nil means nothing rendered.
func (t *Tree) Node() *Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.node
}

// Values returns a copy of the effective form state.
func (t *Tree) Values() FormState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.effective().Clone()
}

// SetFormState replaces the externally owned state and re-renders.
func (t *Tree) SetFormState(state FormState) {
	t.mu.Lock()
	t.external = state
	t.controlled = true
	t.mu.Unlock()
	t.rerender()
}

func (t *Tree) effective() FormState {
	if t.controlled {
		return t.external
	}
	return t.local
}

func (t *Tree) change(field string, value any) {
	t.mu.Lock()
	controlled := t.controlled
	if !controlled {
		t.local[field] = value
	}
	forward := t.onChange
	t.mu.Unlock()

	if !controlled {
		t.rerender()
	}
	if forward != nil {
		forward(field, value)
	}
}

func (t *Tree) rerender() {
	t.mu.Lock()
	defer t.mu.Unlock()
	env := Env{
		Actions:   t.sink,
		Form:      t.effective(),
		OnChange:  t.change,
		Downloads: t.renderer.downloads,
		Logger:    t.renderer.logger,
	}
	t.node = t.renderer.render(t.root, env, 0)
}

func (r *Renderer) render(c *assistant.Component, env Env, depth int) (out *Node) {
	if c == nil || c.Type == "" {
		return nil
	}
	if depth >= r.maxDepth {
		r.logger.Warn("render depth exceeded type=%s depth=%d", c.Type, depth)
		return nil
	}

	entry := r.registry.Resolve(c.Type)
	if !entry.Resolved() {
		r.logger.Warn("unknown component type=%s", c.Type)
		return nil
	}

	defer r.recoverNode(&out, entry.Name)

	if err := entry.ValidateProps(c.Props); err != nil {
		if r.strictProps {
			r.logger.Warn("dropping component type=%s: %v", entry.Name, err)
			return nil
		}
		r.logger.Debug("component props mismatch type=%s: %v", entry.Name, err)
	}

	props := r.transformer.Transform(entry, c.Props, env)

	for _, slot := range r.slots {
		v, ok := props[slot]
		if !ok {
			continue
		}
		props[slot] = r.renderSlot(v, env, depth+1)
	}

	children := r.renderChildren(props[assistant.SlotChildren], env, depth+1)
	delete(props, assistant.SlotChildren)

	return entry.Primitive.Build(props, children)
}

func (r *Renderer) renderSlot(v any, env Env, depth int) any {
	if c, ok := assistant.AsComponent(v); ok {
		if node := r.render(c, env, depth); node != nil {
			return node
		}
		return nil
	}
	if items, ok := v.([]any); ok {
		out := make([]any, 0, len(items))
		for _, item := range items {
			if c, ok := assistant.AsComponent(item); ok {
				if node := r.render(c, env, depth); node != nil {
					out = append(out, node)
				}
				continue
			}
			out = append(out, item)
		}
		return out
	}
	return v
}

func (r *Renderer) renderChildren(v any, env Env, depth int) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case string, float64, float32, int, int64, bool:
		return []any{t}
	case []any:
		out := make([]any, 0, len(t))
		for _, item := range t {
			if c, ok := assistant.AsComponent(item); ok {
				if node := r.render(c, env, depth); node != nil {
					out = append(out, node)
				}
				continue
			}
			if item == nil {
				continue
			}
			out = append(out, item)
		}
		return out
	case []*assistant.Component:
		out := make([]any, 0, len(t))
		for _, c := range t {
			if node := r.render(c, env, depth); node != nil {
				out = append(out, node)
			}
		}
		return out
	default:
		if c, ok := assistant.AsComponent(v); ok {
			if node := r.render(c, env, depth); node != nil {
				return []any{node}
			}
			return nil
		}
		return []any{v}
	}
}

func (r *Renderer) recoverNode(out **Node, typ string) {
	if rec := recover(); rec != nil {
		*out = nil
		r.panics(assistant.CapturePanic("ui.render", rec, map[string]any{"type": typ}))
	}
}

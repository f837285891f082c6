// Package router matches action ids to handlers. Exact ids win over
// wildcard patterns, and patterns win over predicate routes.
package router

import (
	"sort"
	"sync"
)

// Subscription removes a route.
type Subscription interface {
	Unsubscribe()
}

// Mux holds pattern and predicate routes for handlers of type H.
type Mux[H any] struct {
	mu         sync.RWMutex
	nextID     uint64
	sorted     []string
	handlers   map[string][]Entry[H]
	predicates []Entry[H]
	routeMatch func(pattern, id string) bool
}

// Entry is one registered route.
type Entry[H any] struct {
	mux     *Mux[H]
	id      uint64
	pattern string
	match   func(string) bool
	Name    string
	Handler H
}

// Pattern returns the registered pattern, empty for predicate routes.
func (e *Entry[H]) Pattern() string { return e.pattern }

// Unsubscribe removes the route from its mux.
func (e *Entry[H]) Unsubscribe() {
	m := e.mux
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if e.match != nil {
		m.predicates = without(m.predicates, e.id)
		return
	}
	kept := without(m.handlers[e.pattern], e.id)
	if len(kept) == 0 {
		delete(m.handlers, e.pattern)
		m.resort()
		return
	}
	m.handlers[e.pattern] = kept
}

// NewMux creates a mux. The default matcher is the dash separated wildcard
// matcher used for action ids.
func NewMux[H any](opts ...Option) *Mux[H] {
	cfg := config{routeMatch: MakeRouteMatcher()}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Mux[H]{
		handlers:   make(map[string][]Entry[H]),
		routeMatch: cfg.routeMatch,
	}
}

// Add registers handler under pattern.
func (m *Mux[H]) Add(pattern string, handler H) *Entry[H] {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	e := Entry[H]{mux: m, id: m.nextID, pattern: pattern, Name: pattern, Handler: handler}
	if _, exists := m.handlers[pattern]; !exists {
		defer m.resort()
	}
	m.handlers[pattern] = append(m.handlers[pattern], e)
	return &e
}

// AddFunc registers handler for every id match accepts that no pattern claims.
func (m *Mux[H]) AddFunc(name string, match func(id string) bool, handler H) *Entry[H] {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	e := Entry[H]{mux: m, id: m.nextID, match: match, Name: name, Handler: handler}
	m.predicates = append(m.predicates, e)
	return &e
}

// Get returns the entries routed for id.
func (m *Mux[H]) Get(id string) []Entry[H] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lookup(id)
}

// Patterns returns the registered patterns in match order.
func (m *Mux[H]) Patterns() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.sorted...)
}

func (m *Mux[H]) lookup(id string) []Entry[H] {
	if entries, ok := m.handlers[id]; ok {
		return append([]Entry[H](nil), entries...)
	}
	for _, p := range m.sorted {
		if m.routeMatch(p, id) {
			return append([]Entry[H](nil), m.handlers[p]...)
		}
	}
	var out []Entry[H]
	for _, e := range m.predicates {
		if e.match(id) {
			out = append(out, e)
		}
	}
	return out
}

// resort orders patterns most specific first: lower wildcard weight, then
// longer patterns, then lexically.
func (m *Mux[H]) resort() {
	keys := make([]string, 0, len(m.handlers))
	for k := range m.handlers {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		wi, wj := wildcards(keys[i]), wildcards(keys[j])
		if wi != wj {
			return wi < wj
		}
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	m.sorted = keys
}

func without[H any](entries []Entry[H], id uint64) []Entry[H] {
	out := make([]Entry[H], 0, len(entries))
	for _, e := range entries {
		if e.id != id {
			out = append(out, e)
		}
	}
	return out
}

package workflow

import (
	"sync"

	"github.com/goliatone/go-assistant"
)

// Listener observes committed batches. It runs after the store lock is released.
type Listener func(Change)

// Store holds one workflow instance and is the only place its state is mutated.
// A closed store drops every update.
type Store struct {
	mu        sync.RWMutex
	state     State
	closed    bool
	logger    assistant.Logger
	nextID    int
	listeners map[int]Listener
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreLogger sets the diagnostics logger.
func WithStoreLogger(logger assistant.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithListener subscribes l at construction time.
func WithListener(l Listener) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.listeners[s.nextID] = l
			s.nextID++
		}
	}
}

// NewStore creates a store at the entry view.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		state:     defaultState(),
		logger:    assistant.NewFmtLogger(nil),
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Subscribe registers l and returns a function removing it.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Version returns the number of committed batches.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Version
}

// Active reports whether a script run is bound.
func (s *Store) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Active
}

// Path returns the bound script path.
func (s *Store) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Path
}

// View returns the current view.
func (s *Store) View() assistant.View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.View
}

// Suggestions returns a copy of the offered suggestions.
func (s *Store) Suggestions() []assistant.Suggestion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return assistant.CloneSuggestions(s.state.Suggestions)
}

// Resource returns a copy of the in-flight resource.
func (s *Store) Resource() *assistant.Resource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Resource.Clone()
}

// FormValues returns a copy of the form values.
func (s *Store) FormValues() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.state.Form))
	for k, v := range s.state.Form {
		out[k] = assistant.CloneValue(v)
	}
	return out
}

// Close makes the store defunct. Later updates are dropped.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.listeners = map[int]Listener{}
}

// Closed reports whether the store is defunct.
func (s *Store) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Batch applies fn atomically. Listeners see a single change for the whole
// batch. It reports false when the store is closed and nothing was applied.
func (s *Store) Batch(fn func(tx *Tx)) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logger.Debug("dropping update on closed store")
		return false
	}
	tx := &Tx{state: &s.state, logger: s.logger}
	fn(tx)
	if len(tx.kinds) == 0 {
		s.mu.Unlock()
		return true
	}
	s.state.Version++
	change := Change{Version: s.state.Version, Kinds: tx.kinds}
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(change)
	}
	return true
}

// Begin resets the state and binds a script run.
func (s *Store) Begin(path, option string, sections []assistant.ConfigSection, steps []assistant.WorkflowStep) bool {
	return s.Batch(func(tx *Tx) {
		tx.Reset()
		tx.Bind(path, option, sections, steps)
		tx.SetView(assistant.ViewChat)
	})
}

// Reset returns the workflow to its defaults.
func (s *Store) Reset() bool { return s.Batch(func(tx *Tx) { tx.Reset() }) }

// SetView transitions the view.
func (s *Store) SetView(v assistant.View) bool { return s.Batch(func(tx *Tx) { tx.SetView(v) }) }

// SetTyping sets the agent responding flag.
func (s *Store) SetTyping(on bool) bool { return s.Batch(func(tx *Tx) { tx.SetTyping(on) }) }

// AppendMessage appends to the history.
func (s *Store) AppendMessage(m assistant.Message) bool {
	return s.Batch(func(tx *Tx) { tx.AppendMessage(m) })
}

// SetSuggestions replaces the offered suggestions.
func (s *Store) SetSuggestions(list []assistant.Suggestion) bool {
	return s.Batch(func(tx *Tx) { tx.SetSuggestions(list) })
}

// UpdateSection merges into a config section.
func (s *Store) UpdateSection(id string, status assistant.Status, values map[string]string) bool {
	return s.Batch(func(tx *Tx) { tx.UpdateSection(id, status, values) })
}

// UpdateStep sets a progress step status.
func (s *Store) UpdateStep(id string, status assistant.Status) bool {
	return s.Batch(func(tx *Tx) { tx.UpdateStep(id, status) })
}

// InstallResource replaces the in-flight resource.
func (s *Store) InstallResource(r assistant.Resource) bool {
	return s.Batch(func(tx *Tx) { tx.InstallResource(r) })
}

// SetFormValue records a form field value.
func (s *Store) SetFormValue(field string, value any) bool {
	return s.Batch(func(tx *Tx) { tx.SetFormValue(field, value) })
}

// Tx mutates the state inside a Batch.
type Tx struct {
	state  *State
	logger assistant.Logger
	kinds  []ChangeKind
}

func (tx *Tx) touch(kind ChangeKind) {
	for _, k := range tx.kinds {
		if k == kind {
			return
		}
	}
	tx.kinds = append(tx.kinds, kind)
}

// State exposes the state being mutated for reads.
func (tx *Tx) State() State { return *tx.state }

// Reset restores defaults, clearing history and suggestions.
func (tx *Tx) Reset() {
	version := tx.state.Version
	*tx.state = defaultState()
	tx.state.Version = version
	tx.touch(ChangeReset)
}

// Bind activates the workflow on a script path with fresh sections and steps.
func (tx *Tx) Bind(path, option string, sections []assistant.ConfigSection, steps []assistant.WorkflowStep) {
	tx.state.Active = true
	tx.state.Path = path
	tx.state.Option = option
	tx.state.Sections = make([]assistant.ConfigSection, len(sections))
	for i, sec := range sections {
		tx.state.Sections[i] = sec.Clone()
	}
	tx.state.Steps = append([]assistant.WorkflowStep(nil), steps...)
	tx.state.Progress = 0
	tx.touch(ChangeActive)
}

// SetView transitions the view; design and review open the side panel.
func (tx *Tx) SetView(v assistant.View) {
	if !v.Valid() {
		tx.logger.Warn("ignoring unknown view view=%s", v)
		return
	}
	tx.state.View = v
	tx.touch(ChangeView)
	if v.HasSidePanel() && !tx.state.SidePanelOpen {
		tx.state.SidePanelOpen = true
		tx.touch(ChangePanel)
	}
}

// SetSidePanel opens or closes the side panel.
func (tx *Tx) SetSidePanel(open bool) {
	tx.state.SidePanelOpen = open
	tx.touch(ChangePanel)
}

// SetBranch records the path tag of the conversation branch.
func (tx *Tx) SetBranch(branch string) {
	tx.state.Branch = branch
	tx.touch(ChangeBranch)
}

// UpdateSection sets a section status and shallow-merges values. Unknown ids
// and status regressions are logged and ignored; values are never cleared.
func (tx *Tx) UpdateSection(id string, status assistant.Status, values map[string]string) {
	idx := -1
	for i := range tx.state.Sections {
		if tx.state.Sections[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		tx.logger.Warn("ignoring update of unknown section section=%s path=%s", id, tx.state.Path)
		return
	}

	sec := &tx.state.Sections[idx]
	if status != "" && status != sec.Status {
		if sec.Status.CanAdvance(status) {
			sec.Status = status
			tx.touch(ChangeSection)
		} else {
			tx.logger.Warn("ignoring section status regression section=%s from=%s to=%s", id, sec.Status, status)
		}
	}
	if len(values) > 0 {
		if sec.Values == nil {
			sec.Values = make(map[string]string, len(values))
		}
		for k, v := range values {
			sec.Values[k] = v
		}
		tx.touch(ChangeSection)
	}
}

// UpdateStep sets a progress step status. Success moves the progress cursor
// to the position after the step.
func (tx *Tx) UpdateStep(id string, status assistant.Status) {
	for i := range tx.state.Steps {
		if tx.state.Steps[i].ID != id {
			continue
		}
		tx.state.Steps[i].Status = status
		if status == assistant.StatusSuccess {
			tx.state.Progress = i + 1
		}
		tx.touch(ChangeStep)
		return
	}
	tx.logger.Warn("ignoring update of unknown workflow step step=%s path=%s", id, tx.state.Path)
}

// InstallResource replaces the resource. Details accumulate across installs.
func (tx *Tx) InstallResource(r assistant.Resource) {
	next := r.Clone()
	if prev := tx.state.Resource; prev != nil && len(prev.Details) > 0 {
		merged := make(map[string]string, len(prev.Details)+len(next.Details))
		for k, v := range prev.Details {
			merged[k] = v
		}
		for k, v := range next.Details {
			merged[k] = v
		}
		next.Details = merged
	}
	tx.state.Resource = next
	tx.touch(ChangeResource)
}

// SetResourceStatus changes the status of the in-flight resource, if any.
func (tx *Tx) SetResourceStatus(status assistant.ResourceStatus) {
	if tx.state.Resource == nil {
		return
	}
	tx.state.Resource.Status = status
	tx.touch(ChangeResource)
}

// AppendMessage appends a copy of m.
func (tx *Tx) AppendMessage(m assistant.Message) {
	tx.state.Messages = append(tx.state.Messages, m.Clone())
	tx.touch(ChangeMessage)
}

// SetSuggestions replaces the suggestions wholesale; nil clears them.
func (tx *Tx) SetSuggestions(list []assistant.Suggestion) {
	tx.state.Suggestions = assistant.CloneSuggestions(list)
	tx.touch(ChangeSuggestions)
}

// SetTyping sets the agent responding flag.
func (tx *Tx) SetTyping(on bool) {
	if tx.state.Typing == on {
		return
	}
	tx.state.Typing = on
	tx.touch(ChangeTyping)
}

// SetFormValue records a form field value.
func (tx *Tx) SetFormValue(field string, value any) {
	if field == "" {
		return
	}
	if tx.state.Form == nil {
		tx.state.Form = make(map[string]any)
	}
	tx.state.Form[field] = assistant.CloneValue(value)
	tx.touch(ChangeForm)
}

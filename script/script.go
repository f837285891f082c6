// Package script holds the scripted conversations the workflow engine runs
// and the canned responses the prompt resolver falls back to.
package script

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-assistant"
)

// Conversation options and the script paths they select.
const (
	OptionCreate  = "create"
	OptionImport  = "import"
	OptionMigrate = "migrate"

	PathCreateDatabase = "create-database"
	PathImportDatabase = "import-database"
	PathMigrateEC2     = "migrate-ec2"
)

// SectionDef declares a config section a script accumulates values into.
type SectionDef struct {
	ID    string `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title"`
}

// Script is an ordered, named list of steps. Scripts are read-only once registered.
type Script struct {
	ID       string
	Title    string
	Option   string
	Sections []SectionDef
	Workflow []assistant.WorkflowStep
	Steps    []Step
}

// Len returns the number of steps.
func (s *Script) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Steps)
}

// Step returns the step at cursor.
func (s *Script) Step(cursor int) (Step, bool) {
	if s == nil || cursor < 0 || cursor >= len(s.Steps) {
		return Step{}, false
	}
	return s.Steps[cursor], true
}

// InitialSections returns fresh pending sections in declaration order.
func (s *Script) InitialSections() []assistant.ConfigSection {
	out := make([]assistant.ConfigSection, 0, len(s.Sections))
	for _, def := range s.Sections {
		out = append(out, assistant.ConfigSection{
			ID:     def.ID,
			Title:  def.Title,
			Status: assistant.StatusPending,
			Values: map[string]string{},
		})
	}
	return out
}

// InitialWorkflow returns the progress steps reset to pending.
func (s *Script) InitialWorkflow() []assistant.WorkflowStep {
	out := make([]assistant.WorkflowStep, len(s.Workflow))
	for i, w := range s.Workflow {
		w.Status = assistant.StatusPending
		out[i] = w
	}
	return out
}

// Validate reports structural problems that make the script unusable.
func (s *Script) Validate() error {
	if s == nil {
		return assistant.NewError(assistant.ErrInvalidScript, "script is nil", nil, nil)
	}
	var problems []string
	if strings.TrimSpace(s.ID) == "" {
		problems = append(problems, "id is required")
	}
	if len(s.Steps) == 0 {
		problems = append(problems, "at least one step is required")
	}
	seen := map[string]bool{}
	for _, def := range s.Sections {
		if def.ID == "" {
			problems = append(problems, "section id is required")
			continue
		}
		if seen[def.ID] {
			problems = append(problems, fmt.Sprintf("duplicate section %q", def.ID))
		}
		seen[def.ID] = true
	}
	if len(problems) > 0 {
		return assistant.NewError(assistant.ErrInvalidScript, "invalid script "+s.ID+": "+strings.Join(problems, "; "), nil, map[string]any{
			"script":   s.ID,
			"problems": problems,
		})
	}
	return nil
}

// Lint lists references the engine will ignore at run time, such as updates
// to sections or progress steps the script never declared.
func (s *Script) Lint() []string {
	if s == nil {
		return nil
	}
	sections := map[string]bool{}
	for _, def := range s.Sections {
		sections[def.ID] = true
	}
	steps := map[string]bool{}
	for _, w := range s.Workflow {
		steps[w.ID] = true
	}

	var warnings []string
	checkSection := func(i int, id string) {
		if !sections[id] {
			warnings = append(warnings, fmt.Sprintf("step %d: unknown section %q", i, id))
		}
	}
	for i, step := range s.Steps {
		for _, e := range step.Effects() {
			switch t := e.(type) {
			case SectionUpdate:
				checkSection(i, t.ID)
			case SectionBatch:
				for _, u := range t.Updates {
					checkSection(i, u.ID)
				}
			case StepStatusUpdate:
				if !steps[t.StepID] {
					warnings = append(warnings, fmt.Sprintf("step %d: unknown workflow step %q", i, t.StepID))
				}
			case ViewTransition:
				if !t.View.Valid() {
					warnings = append(warnings, fmt.Sprintf("step %d: unknown view %q", i, t.View))
				}
			}
		}
	}
	return warnings
}

// CannedResponse is a reply keyed by suggestion id. It carries a subset of
// the step effects: sections, a progress step status and suggestions.
type CannedResponse struct {
	ID          string
	Message     MessageSpec
	Sections    []SectionUpdate
	StepStatus  *StepStatusUpdate
	Suggestions []assistant.Suggestion
}

// Repository indexes scripts by path and canned responses by suggestion id.
type Repository struct {
	mu      sync.RWMutex
	scripts map[string]*Script
	options map[string]string
	canned  map[string]CannedResponse
	opening *CannedResponse
}

// NewRepository creates an empty repository.
func NewRepository() *Repository {
	return &Repository{
		scripts: make(map[string]*Script),
		options: make(map[string]string),
		canned:  make(map[string]CannedResponse),
	}
}

// Register adds a script under its id.
func (r *Repository) Register(s *Script) error {
	if err := s.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.scripts[s.ID]; exists {
		return assistant.NewError(assistant.ErrInvalidScript, "script already registered", nil, map[string]any{
			"script": s.ID,
		})
	}
	r.scripts[s.ID] = s
	if s.Option != "" {
		r.options[s.Option] = s.ID
	}
	return nil
}

// Lookup returns the script registered under path.
func (r *Repository) Lookup(path string) (*Script, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.scripts[path]; ok {
		return s, nil
	}
	return nil, assistant.NewError(assistant.ErrScriptNotFound, "", nil, map[string]any{"path": path})
}

// PathFor maps a conversation option ("create", "import", "migrate") to a
// script path. A registered script id is accepted as its own option.
func (r *Repository) PathFor(option string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	option = strings.ToLower(strings.TrimSpace(option))
	if path, ok := r.options[option]; ok {
		return path, true
	}
	if _, ok := r.scripts[option]; ok {
		return option, true
	}
	return "", false
}

// Names returns the sorted script paths.
func (r *Repository) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.scripts))
	for name := range r.scripts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterCanned adds or replaces a canned response.
func (r *Repository) RegisterCanned(c CannedResponse) error {
	if strings.TrimSpace(c.ID) == "" {
		return assistant.NewError(assistant.ErrInvalidScript, "canned response id is required", nil, nil)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.canned[c.ID] = c
	return nil
}

// Canned returns the response registered under a suggestion id.
func (r *Repository) Canned(id string) (CannedResponse, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.canned[id]
	return c, ok
}

// CannedIDs returns the sorted canned response ids.
func (r *Repository) CannedIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.canned))
	for id := range r.canned {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SetOpening sets the generic response used at the entry view.
func (r *Repository) SetOpening(c CannedResponse) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opening = &c
}

// Opening returns the generic opening response.
func (r *Repository) Opening() (CannedResponse, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.opening == nil {
		return CannedResponse{}, false
	}
	return *r.opening, true
}

package workflow

import (
	"github.com/goliatone/go-assistant"
)

// ChangeKind names the part of the state a commit touched.
type ChangeKind string

const (
	ChangeReset       ChangeKind = "reset"
	ChangeActive      ChangeKind = "active"
	ChangeView        ChangeKind = "view"
	ChangePanel       ChangeKind = "panel"
	ChangeBranch      ChangeKind = "branch"
	ChangeSection     ChangeKind = "section"
	ChangeStep        ChangeKind = "step"
	ChangeResource    ChangeKind = "resource"
	ChangeMessage     ChangeKind = "message"
	ChangeSuggestions ChangeKind = "suggestions"
	ChangeTyping      ChangeKind = "typing"
	ChangeForm        ChangeKind = "form"
)

// Change describes one committed batch.
type Change struct {
	Version uint64
	Kinds   []ChangeKind
}

// Has reports whether the batch touched kind.
func (c Change) Has(kind ChangeKind) bool {
	for _, k := range c.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// State is a snapshot of one workflow instance.
type State struct {
	Active        bool                      `json:"active"`
	Path          string                    `json:"path,omitempty"`
	Option        string                    `json:"option,omitempty"`
	Branch        string                    `json:"branch,omitempty"`
	View          assistant.View            `json:"view"`
	SidePanelOpen bool                      `json:"side_panel_open"`
	Sections      []assistant.ConfigSection `json:"sections"`
	Steps         []assistant.WorkflowStep  `json:"steps"`
	Progress      int                       `json:"progress"`
	Resource      *assistant.Resource       `json:"resource,omitempty"`
	Messages      []assistant.Message       `json:"messages"`
	Suggestions   []assistant.Suggestion    `json:"suggestions"`
	Typing        bool                      `json:"typing"`
	Form          map[string]any            `json:"form,omitempty"`
	Version       uint64                    `json:"version"`
}

// Section returns the section with id.
func (s State) Section(id string) (assistant.ConfigSection, bool) {
	for _, sec := range s.Sections {
		if sec.ID == id {
			return sec, true
		}
	}
	return assistant.ConfigSection{}, false
}

// Step returns the progress step with id.
func (s State) Step(id string) (assistant.WorkflowStep, bool) {
	for _, st := range s.Steps {
		if st.ID == id {
			return st, true
		}
	}
	return assistant.WorkflowStep{}, false
}

// Message returns the history entry with id.
func (s State) Message(id string) (assistant.Message, bool) {
	for _, m := range s.Messages {
		if m.ID == id {
			return m, true
		}
	}
	return assistant.Message{}, false
}

// LastMessage returns the newest history entry.
func (s State) LastMessage() (assistant.Message, bool) {
	if len(s.Messages) == 0 {
		return assistant.Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// Contents lists message contents in history order.
func (s State) Contents() []string {
	out := make([]string, len(s.Messages))
	for i, m := range s.Messages {
		out[i] = m.Content
	}
	return out
}

// Clone deep-copies the snapshot.
func (s State) Clone() State {
	out := s
	out.Sections = make([]assistant.ConfigSection, len(s.Sections))
	for i, sec := range s.Sections {
		out.Sections[i] = sec.Clone()
	}
	out.Steps = append([]assistant.WorkflowStep(nil), s.Steps...)
	out.Resource = s.Resource.Clone()
	out.Messages = make([]assistant.Message, len(s.Messages))
	for i, m := range s.Messages {
		out.Messages[i] = m.Clone()
	}
	out.Suggestions = assistant.CloneSuggestions(s.Suggestions)
	if s.Form != nil {
		out.Form = make(map[string]any, len(s.Form))
		for k, v := range s.Form {
			out.Form[k] = assistant.CloneValue(v)
		}
	}
	return out
}

func defaultState() State {
	return State{
		View:     assistant.ViewEntry,
		Sections: []assistant.ConfigSection{},
		Steps:    []assistant.WorkflowStep{},
		Messages: []assistant.Message{},
	}
}

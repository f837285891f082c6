package assistant

import "strings"

// View is the screen a workflow is currently showing.
type View string

const (
	ViewEntry  View = "entry"
	ViewChat   View = "chat"
	ViewDesign View = "design"
	ViewReview View = "review"
)

// Valid reports whether v is one of the known views.
func (v View) Valid() bool {
	switch v {
	case ViewEntry, ViewChat, ViewDesign, ViewReview:
		return true
	}
	return false
}

// HasSidePanel reports whether the view conventionally opens the side panel.
func (v View) HasSidePanel() bool {
	return v == ViewDesign || v == ViewReview
}

// Status is the progress status shared by config sections and workflow steps.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
)

// NormalizeStatus maps loose spellings onto a known status, or "" when unknown.
func NormalizeStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return StatusPending
	case "in-progress", "in_progress", "inprogress", "running":
		return StatusInProgress
	case "success", "done", "complete", "completed":
		return StatusSuccess
	case "error", "failed":
		return StatusError
	}
	return ""
}

func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusInProgress:
		return 1
	case StatusSuccess:
		return 2
	}
	return -1
}

// CanAdvance reports whether moving from s to next keeps the forward-only order
// pending, in-progress, success. Error is reachable from anywhere and is final.
func (s Status) CanAdvance(next Status) bool {
	if next == StatusError {
		return true
	}
	if s == StatusError {
		return false
	}
	if next.rank() < 0 {
		return false
	}
	if s.rank() < 0 {
		return true
	}
	return next.rank() >= s.rank()
}

// ConfigSection is one grouped configuration panel accumulated during a workflow.
type ConfigSection struct {
	ID     string            `json:"id" yaml:"id"`
	Title  string            `json:"title" yaml:"title"`
	Status Status            `json:"status" yaml:"status"`
	Values map[string]string `json:"values" yaml:"values"`
}

// Clone deep-copies the section.
func (c ConfigSection) Clone() ConfigSection {
	out := c
	out.Values = make(map[string]string, len(c.Values))
	for k, v := range c.Values {
		out.Values[k] = v
	}
	return out
}

// WorkflowStep is one entry of the progress list shown alongside the chat.
type WorkflowStep struct {
	ID     string `json:"id" yaml:"id"`
	Title  string `json:"title" yaml:"title"`
	Status Status `json:"status" yaml:"status"`
}

// ResourceStatus is the lifecycle of the in-flight resource.
type ResourceStatus string

const (
	ResourceCreating ResourceStatus = "creating"
	ResourceActive   ResourceStatus = "active"
	ResourceError    ResourceStatus = "error"
)

// Resource is the single object a workflow is building.
type Resource struct {
	ID       string            `json:"id" yaml:"id"`
	Name     string            `json:"name" yaml:"name"`
	Type     string            `json:"type" yaml:"type"`
	Region   string            `json:"region" yaml:"region"`
	Status   ResourceStatus    `json:"status" yaml:"status"`
	Endpoint string            `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Details  map[string]string `json:"details,omitempty" yaml:"details,omitempty"`
}

// Clone deep-copies the resource.
func (r *Resource) Clone() *Resource {
	if r == nil {
		return nil
	}
	out := *r
	if r.Details != nil {
		out.Details = make(map[string]string, len(r.Details))
		for k, v := range r.Details {
			out.Details[k] = v
		}
	}
	return &out
}

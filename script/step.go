package script

import (
	"time"

	"github.com/goliatone/go-assistant"
)

// EffectKind tags a step effect. The numeric order is the order in which the
// executor applies effects.
type EffectKind int

const (
	EffectView EffectKind = iota
	EffectPath
	EffectSection
	EffectSectionBatch
	EffectStepStatus
	EffectResource
	effectKinds
)

var effectNames = [...]string{"view", "path", "section", "sections", "step", "resource"}

func (k EffectKind) String() string {
	if k < 0 || k >= effectKinds {
		return "unknown"
	}
	return effectNames[k]
}

// Effect is a state mutation declared by a step or canned response.
type Effect interface {
	Kind() EffectKind
}

// ViewTransition moves the workflow to another view.
type ViewTransition struct {
	View assistant.View
}

func (ViewTransition) Kind() EffectKind { return EffectView }

// PathTag records which branch the conversation is on.
type PathTag struct {
	Path string
}

func (PathTag) Kind() EffectKind { return EffectPath }

// SectionUpdate sets a config section status and shallow-merges values.
type SectionUpdate struct {
	ID     string
	Status assistant.Status
	Values map[string]string
}

func (SectionUpdate) Kind() EffectKind { return EffectSection }

// SectionBatch applies several section updates in list order.
type SectionBatch struct {
	Updates []SectionUpdate
}

func (SectionBatch) Kind() EffectKind { return EffectSectionBatch }

// StepStatusUpdate changes the status of a workflow progress step.
type StepStatusUpdate struct {
	StepID string
	Status assistant.Status
}

func (StepStatusUpdate) Kind() EffectKind { return EffectStepStatus }

// ResourceInstall replaces the in-flight resource.
type ResourceInstall struct {
	Resource assistant.Resource
}

func (ResourceInstall) Kind() EffectKind { return EffectResource }

// Variant is the coarse shape of a step, used for listings.
type Variant string

const (
	VariantMessage    Variant = "message"
	VariantMutation   Variant = "message+mutation"
	VariantTransition Variant = "message+transition"
	VariantResource   Variant = "message+resource"
)

// MessageSpec is the message a step or canned response emits.
type MessageSpec struct {
	Content      string
	Component    *assistant.Component
	Actions      []assistant.Action
	Confirmation *assistant.Confirmation
}

// Build materializes m as a new message from role.
func (m MessageSpec) Build(role assistant.Role) assistant.Message {
	opts := []assistant.MessageOption{}
	if m.Component != nil {
		opts = append(opts, assistant.WithComponent(m.Component))
	}
	if len(m.Actions) > 0 {
		opts = append(opts, assistant.WithActions(m.Actions...))
	}
	if m.Confirmation != nil {
		opts = append(opts, assistant.WithConfirmation(m.Confirmation))
	}
	return assistant.NewMessage(role, m.Content, opts...)
}

// Step is one read-only element of a script. It holds at most one effect of
// each kind; the executor applies them in EffectKind order.
type Step struct {
	delay       time.Duration
	message     MessageSpec
	suggestions []assistant.Suggestion
	effects     [effectKinds]Effect
}

// StepOption declares part of a step.
type StepOption func(*Step)

// NewStep builds a step emitting msg.
func NewStep(msg MessageSpec, opts ...StepOption) Step {
	s := Step{message: msg}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return s
}

// Say is NewStep for a plain text message.
func Say(content string, opts ...StepOption) Step {
	return NewStep(MessageSpec{Content: content}, opts...)
}

// After delays the step emission.
func After(d time.Duration) StepOption {
	return func(s *Step) {
		if d > 0 {
			s.delay = d
		}
	}
}

// Offer sets the suggestions installed after the step.
func Offer(suggestions ...assistant.Suggestion) StepOption {
	return func(s *Step) {
		s.suggestions = assistant.CloneSuggestions(suggestions)
	}
}

// GoTo transitions the view.
func GoTo(view assistant.View) StepOption {
	return with(ViewTransition{View: view})
}

// OnPath tags the conversation branch.
func OnPath(path string) StepOption {
	return with(PathTag{Path: path})
}

// UpdateSection mutates one config section.
func UpdateSection(id string, status assistant.Status, values map[string]string) StepOption {
	return with(SectionUpdate{ID: id, Status: status, Values: copyValues(values)})
}

// UpdateSections mutates several sections in order.
func UpdateSections(updates ...SectionUpdate) StepOption {
	cp := make([]SectionUpdate, len(updates))
	for i, u := range updates {
		u.Values = copyValues(u.Values)
		cp[i] = u
	}
	return with(SectionBatch{Updates: cp})
}

// MarkStep sets a workflow progress step status.
func MarkStep(id string, status assistant.Status) StepOption {
	return with(StepStatusUpdate{StepID: id, Status: status})
}

// Install replaces the in-flight resource.
func Install(r assistant.Resource) StepOption {
	return with(ResourceInstall{Resource: *r.Clone()})
}

func with(e Effect) StepOption {
	return func(s *Step) {
		s.effects[e.Kind()] = e
	}
}

// Delay returns the wait before the step is applied.
func (s Step) Delay() time.Duration { return s.delay }

// Message returns the message spec.
func (s Step) Message() MessageSpec { return s.message }

// Suggestions returns a copy of the next suggestions; nil clears them.
func (s Step) Suggestions() []assistant.Suggestion {
	return assistant.CloneSuggestions(s.suggestions)
}

// Effects returns the declared effects in application order.
func (s Step) Effects() []Effect {
	out := make([]Effect, 0, effectKinds)
	for _, e := range s.effects {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

// Effect returns the effect of kind k, if declared.
func (s Step) Effect(k EffectKind) (Effect, bool) {
	if k < 0 || k >= effectKinds || s.effects[k] == nil {
		return nil, false
	}
	return s.effects[k], true
}

// Variant classifies the step.
func (s Step) Variant() Variant {
	switch {
	case s.effects[EffectResource] != nil:
		return VariantResource
	case s.effects[EffectView] != nil:
		return VariantTransition
	case s.effects[EffectSection] != nil, s.effects[EffectSectionBatch] != nil, s.effects[EffectStepStatus] != nil:
		return VariantMutation
	default:
		return VariantMessage
	}
}

func copyValues(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

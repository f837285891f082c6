package script

import (
	"fmt"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/goliatone/go-assistant"
	"github.com/goliatone/go-errors"
	"gopkg.in/yaml.v3"
)

// Document kinds accepted by Load.
const (
	KindScript = "script"
	KindCanned = "canned"
)

type documentHeader struct {
	Kind string `yaml:"kind"`
}

type scriptDoc struct {
	Kind     string       `yaml:"kind"`
	ID       string       `yaml:"id"`
	Title    string       `yaml:"title"`
	Option   string       `yaml:"option"`
	Sections []SectionDef `yaml:"sections"`
	Workflow []SectionDef `yaml:"workflow"`
	Steps    []stepDoc    `yaml:"steps"`
}

type messageDoc struct {
	Message      string                  `yaml:"message"`
	Component    map[string]any          `yaml:"component,omitempty"`
	Actions      []assistant.Action      `yaml:"actions,omitempty"`
	Confirmation *assistant.Confirmation `yaml:"confirmation,omitempty"`
}

type stepDoc struct {
	messageDoc  `yaml:",inline"`
	Delay       int                    `yaml:"delay,omitempty"`
	Suggestions []assistant.Suggestion `yaml:"suggestions,omitempty"`
	View        string                 `yaml:"view,omitempty"`
	Path        string                 `yaml:"path,omitempty"`
	Section     *sectionDoc            `yaml:"section,omitempty"`
	Sections    []sectionDoc           `yaml:"sections,omitempty"`
	Step        *statusDoc             `yaml:"step,omitempty"`
	Resource    *assistant.Resource    `yaml:"resource,omitempty"`
}

type sectionDoc struct {
	ID     string            `yaml:"id"`
	Status string            `yaml:"status,omitempty"`
	Values map[string]string `yaml:"values,omitempty"`
}

type statusDoc struct {
	ID     string `yaml:"id"`
	Status string `yaml:"status"`
}

type cannedFileDoc struct {
	Kind      string      `yaml:"kind"`
	Opening   *cannedDoc  `yaml:"opening,omitempty"`
	Responses []cannedDoc `yaml:"responses"`
}

type cannedDoc struct {
	messageDoc  `yaml:",inline"`
	ID          string                 `yaml:"id"`
	Sections    []sectionDoc           `yaml:"sections,omitempty"`
	Step        *statusDoc             `yaml:"step,omitempty"`
	Suggestions []assistant.Suggestion `yaml:"suggestions,omitempty"`
}

// ParseScript decodes a YAML script document.
func ParseScript(data []byte) (*Script, error) {
	var doc scriptDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, invalid(err, "failed to decode script", nil)
	}
	return doc.build()
}

// ParseCanned decodes a YAML canned table into its opening response (if any)
// and the responses keyed by suggestion id.
func ParseCanned(data []byte) (*CannedResponse, []CannedResponse, error) {
	var doc cannedFileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, invalid(err, "failed to decode canned responses", nil)
	}
	var opening *CannedResponse
	if doc.Opening != nil {
		c, err := doc.Opening.build()
		if err != nil {
			return nil, nil, err
		}
		opening = &c
	}
	out := make([]CannedResponse, 0, len(doc.Responses))
	for _, r := range doc.Responses {
		c, err := r.build()
		if err != nil {
			return nil, nil, err
		}
		out = append(out, c)
	}
	return opening, out, nil
}

// Load reads every .yaml/.yml file in fsys into a new repository.
func Load(fsys fs.FS) (*Repository, error) {
	repo := NewRepository()
	if err := repo.LoadFS(fsys); err != nil {
		return nil, err
	}
	return repo, nil
}

// LoadFS adds the scripts and canned tables found in fsys.
func (r *Repository) LoadFS(fsys fs.FS) error {
	return fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(path.Ext(p)) {
		case ".yaml", ".yml":
		default:
			return nil
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		if err := r.loadDocument(data); err != nil {
			return errors.Wrap(err, errors.CategoryValidation, "failed to load "+p).
				WithMetadata(map[string]any{"file": p})
		}
		return nil
	})
}

func (r *Repository) loadDocument(data []byte) error {
	var header documentHeader
	if err := yaml.Unmarshal(data, &header); err != nil {
		return invalid(err, "failed to decode document", nil)
	}
	switch header.Kind {
	case KindScript, "":
		s, err := ParseScript(data)
		if err != nil {
			return err
		}
		return r.Register(s)
	case KindCanned:
		opening, responses, err := ParseCanned(data)
		if err != nil {
			return err
		}
		if opening != nil {
			r.SetOpening(*opening)
		}
		for _, c := range responses {
			if err := r.RegisterCanned(c); err != nil {
				return err
			}
		}
		return nil
	default:
		return assistant.NewError(assistant.ErrInvalidScript, "unknown document kind "+header.Kind, nil, map[string]any{
			"kind": header.Kind,
		})
	}
}

func (d scriptDoc) build() (*Script, error) {
	s := &Script{
		ID:       strings.TrimSpace(d.ID),
		Title:    d.Title,
		Option:   strings.ToLower(strings.TrimSpace(d.Option)),
		Sections: append([]SectionDef(nil), d.Sections...),
	}
	for _, w := range d.Workflow {
		s.Workflow = append(s.Workflow, assistant.WorkflowStep{ID: w.ID, Title: w.Title, Status: assistant.StatusPending})
	}
	for i, sd := range d.Steps {
		step, err := sd.build()
		if err != nil {
			return nil, invalid(err, fmt.Sprintf("step %d of %s", i, s.ID), map[string]any{"script": s.ID, "step": i})
		}
		s.Steps = append(s.Steps, step)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (d messageDoc) build() (MessageSpec, error) {
	spec := MessageSpec{
		Content:      d.Message,
		Actions:      d.Actions,
		Confirmation: d.Confirmation,
	}
	if d.Component != nil {
		c, ok := assistant.AsComponent(d.Component)
		if !ok {
			return spec, assistant.NewError(assistant.ErrInvalidComponent, "component must be {type, props}", nil, nil)
		}
		spec.Component = c
	}
	return spec, nil
}

func (d stepDoc) build() (Step, error) {
	msg, err := d.messageDoc.build()
	if err != nil {
		return Step{}, err
	}
	if d.Delay < 0 {
		return Step{}, assistant.NewError(assistant.ErrInvalidScript, "delay must not be negative", nil, nil)
	}

	opts := []StepOption{After(time.Duration(d.Delay) * time.Millisecond)}
	if d.Suggestions != nil {
		opts = append(opts, Offer(d.Suggestions...))
	}
	if d.View != "" {
		view := assistant.View(strings.ToLower(d.View))
		if !view.Valid() {
			return Step{}, assistant.NewError(assistant.ErrInvalidScript, "unknown view "+d.View, nil, nil)
		}
		opts = append(opts, GoTo(view))
	}
	if d.Path != "" {
		opts = append(opts, OnPath(d.Path))
	}
	if d.Section != nil {
		u, err := d.Section.build()
		if err != nil {
			return Step{}, err
		}
		opts = append(opts, UpdateSection(u.ID, u.Status, u.Values))
	}
	if len(d.Sections) > 0 {
		updates := make([]SectionUpdate, 0, len(d.Sections))
		for _, sd := range d.Sections {
			u, err := sd.build()
			if err != nil {
				return Step{}, err
			}
			updates = append(updates, u)
		}
		opts = append(opts, UpdateSections(updates...))
	}
	if d.Step != nil {
		u, err := d.Step.build()
		if err != nil {
			return Step{}, err
		}
		opts = append(opts, MarkStep(u.StepID, u.Status))
	}
	if d.Resource != nil {
		res := *d.Resource
		if res.Status == "" {
			res.Status = assistant.ResourceCreating
		}
		opts = append(opts, Install(res))
	}
	return NewStep(msg, opts...), nil
}

func (d sectionDoc) build() (SectionUpdate, error) {
	u := SectionUpdate{ID: strings.TrimSpace(d.ID), Values: d.Values}
	if u.ID == "" {
		return u, assistant.NewError(assistant.ErrInvalidScript, "section id is required", nil, nil)
	}
	if d.Status != "" {
		u.Status = assistant.NormalizeStatus(d.Status)
		if u.Status == "" {
			return u, assistant.NewError(assistant.ErrInvalidScript, "unknown status "+d.Status, nil, map[string]any{"section": u.ID})
		}
	}
	return u, nil
}

func (d statusDoc) build() (StepStatusUpdate, error) {
	status := assistant.NormalizeStatus(d.Status)
	if d.ID == "" || status == "" {
		return StepStatusUpdate{}, assistant.NewError(assistant.ErrInvalidScript, "step update needs id and a known status", nil, map[string]any{
			"step":   d.ID,
			"status": d.Status,
		})
	}
	return StepStatusUpdate{StepID: d.ID, Status: status}, nil
}

func (d cannedDoc) build() (CannedResponse, error) {
	msg, err := d.messageDoc.build()
	if err != nil {
		return CannedResponse{}, err
	}
	c := CannedResponse{
		ID:          d.ID,
		Message:     msg,
		Suggestions: assistant.CloneSuggestions(d.Suggestions),
	}
	for _, sd := range d.Sections {
		u, err := sd.build()
		if err != nil {
			return CannedResponse{}, err
		}
		c.Sections = append(c.Sections, u)
	}
	if d.Step != nil {
		u, err := d.Step.build()
		if err != nil {
			return CannedResponse{}, err
		}
		c.StepStatus = &u
	}
	return c, nil
}

func invalid(err error, message string, meta map[string]any) error {
	wrapped := errors.Wrap(err, errors.CategoryValidation, message)
	if assistant.ErrorCode(err) == "" {
		wrapped = wrapped.WithTextCode(assistant.ErrCodeInvalidScript)
	}
	if len(meta) > 0 {
		wrapped = wrapped.WithMetadata(meta)
	}
	return wrapped
}

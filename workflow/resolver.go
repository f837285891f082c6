package workflow

import (
	"context"
	"strings"

	"github.com/goliatone/go-assistant"
	"github.com/goliatone/go-assistant/chat"
	"github.com/goliatone/go-assistant/runner"
	"github.com/goliatone/go-assistant/script"
	"github.com/goliatone/go-errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrCodeEmptyPrompt marks a prompt with neither text nor a suggestion id.
const ErrCodeEmptyPrompt = "EMPTY_PROMPT"

// DemoModeNotice is the reply used when nothing else can answer a prompt.
const DemoModeNotice = "I'm running in demo mode and can only follow the guided scenarios right now. " +
	"Pick one of the suggestions to keep going."

// CannedSource supplies the canned response table.
type CannedSource interface {
	Canned(id string) (script.CannedResponse, bool)
	Opening() (script.CannedResponse, bool)
}

// Prompt is one user input: free text, a selected suggestion, or both.
type Prompt struct {
	Text         string `json:"text"`
	SuggestionID string `json:"suggestion_id,omitempty"`
}

// Source names the rule that answered a prompt.
type Source string

const (
	SourceCanned       Source = "canned"
	SourceScript       Source = "script"
	SourceCollaborator Source = "collaborator"
	SourceOpening      Source = "opening"
	SourceDemoMode     Source = "demo-mode"
	SourceDropped      Source = "dropped"
)

// Resolution describes how a prompt was answered.
type Resolution struct {
	Source       Source `json:"source"`
	SuggestionID string `json:"suggestion_id,omitempty"`
	// Err is the collaborator failure that sent the prompt down the fallback chain.
	Err     error   `json:"-"`
	Advance *Result `json:"-"`
}

// Resolver answers user prompts from canned responses, the running script,
// the chat collaborator or the demo-mode fallback, in that order.
type Resolver struct {
	store        *Store
	exec         *Executor
	canned       CannedSource
	collaborator chat.Collaborator
	policy       *runner.Handler
	logger       assistant.Logger
	tracer       trace.Tracer
	preferChat   bool
	notice       string
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithCollaborator sets the chat collaborator. Without one every prompt that
// misses the canned table and the script falls back.
func WithCollaborator(c chat.Collaborator) ResolverOption {
	return func(r *Resolver) {
		r.collaborator = c
	}
}

// WithCallPolicy runs collaborator calls through h (timeout, retries).
func WithCallPolicy(h *runner.Handler) ResolverOption {
	return func(r *Resolver) {
		if h != nil {
			r.policy = h
		}
	}
}

// WithPreferCollaborator asks the collaborator before the canned table.
// Canned matches are then only used as the fallback.
func WithPreferCollaborator(prefer bool) ResolverOption {
	return func(r *Resolver) {
		r.preferChat = prefer
	}
}

// WithDemoNotice replaces DemoModeNotice.
func WithDemoNotice(notice string) ResolverOption {
	return func(r *Resolver) {
		if strings.TrimSpace(notice) != "" {
			r.notice = notice
		}
	}
}

// WithResolverLogger sets the logger.
func WithResolverLogger(logger assistant.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithResolverTracer sets the tracer.
func WithResolverTracer(t trace.Tracer) ResolverOption {
	return func(r *Resolver) {
		if t != nil {
			r.tracer = t
		}
	}
}

// NewResolver creates a resolver writing into store.
func NewResolver(store *Store, exec *Executor, canned CannedSource, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		store:  store,
		exec:   exec,
		canned: canned,
		policy: runner.NewHandler(
			runner.WithRetryStrategy(runner.ClassifyingStrategy{Retryable: chat.Retryable}),
		),
		logger: assistant.NewFmtLogger(nil),
		tracer: otel.Tracer(instrumentationName),
		notice: DemoModeNotice,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Match returns the id of the suggestion the prompt selects: the explicit id,
// or the offered suggestion whose text equals the prompt text ignoring case.
func Match(p Prompt, offered []assistant.Suggestion) string {
	if id := strings.TrimSpace(p.SuggestionID); id != "" {
		return id
	}
	text := strings.TrimSpace(p.Text)
	if text == "" {
		return ""
	}
	for _, s := range offered {
		if strings.EqualFold(strings.TrimSpace(s.Text), text) {
			return s.ID
		}
	}
	return ""
}

// Resolve records the prompt as a user message and answers it.
func (r *Resolver) Resolve(ctx context.Context, p Prompt) (Resolution, error) {
	offered := r.store.Suggestions()
	text := userText(p, offered)
	if text == "" {
		return Resolution{}, errors.New("prompt needs text or a suggestion id", errors.CategoryBadInput).
			WithTextCode(ErrCodeEmptyPrompt)
	}

	ctx, span := r.tracer.Start(ctx, "workflow.resolve", trace.WithAttributes(
		attribute.String("prompt.suggestion_id", p.SuggestionID),
		attribute.String("script.path", r.store.Path()),
	))
	defer span.End()

	if !r.store.Batch(func(tx *Tx) {
		tx.AppendMessage(assistant.NewMessage(assistant.RoleUser, text))
		tx.SetTyping(true)
	}) {
		return Resolution{Source: SourceDropped}, nil
	}

	res, err := r.resolve(ctx, p, text, offered)
	span.SetAttributes(attribute.String("workflow.source", string(res.Source)))
	if res.Err != nil {
		span.RecordError(res.Err)
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return res, err
}

func (r *Resolver) resolve(ctx context.Context, p Prompt, text string, offered []assistant.Suggestion) (Resolution, error) {
	id := Match(p, offered)

	var (
		canned  script.CannedResponse
		matched bool
	)
	if id != "" && r.canned != nil {
		canned, matched = r.canned.Canned(id)
	}
	// an explicit id without a canned entry still lets the text pick one
	if !matched && p.SuggestionID != "" && r.canned != nil {
		if byText := Match(Prompt{Text: p.Text}, offered); byText != "" && byText != id {
			if c, ok := r.canned.Canned(byText); ok {
				id, canned, matched = byText, c, true
			}
		}
	}

	if matched && !r.preferChat {
		return r.applyCanned(canned, SourceCanned), nil
	}

	if !matched && id != "" {
		if res, ok := r.continueScript(ctx, id); ok {
			return res, nil
		}
	}

	var chatErr error
	if r.collaborator != nil {
		res, err := r.ask(ctx, text)
		if err == nil {
			return res, nil
		}
		chatErr = err
		r.logger.Warn("chat collaborator failed, using fallback path=%s error=%v", r.store.Path(), err)
	}

	var res Resolution
	switch {
	case matched:
		res = r.applyCanned(canned, SourceCanned)
	case r.store.View() == assistant.ViewEntry && r.hasOpening():
		opening, _ := r.canned.Opening()
		res = r.applyCanned(opening, SourceOpening)
	default:
		res = r.demoMode(offered)
	}
	res.Err = chatErr
	return res, nil
}

// continueScript advances the bound script when the selected suggestion has
// no canned response of its own.
func (r *Resolver) continueScript(ctx context.Context, id string) (Resolution, bool) {
	if r.exec == nil || !r.store.Active() || r.exec.Remaining() == 0 {
		return Resolution{}, false
	}
	result, err := r.exec.Advance(ctx)
	if err != nil {
		r.logger.Warn("script continuation failed suggestion=%s error=%v", id, err)
		return Resolution{}, false
	}
	switch result.Outcome {
	case OutcomeApplied, OutcomeLocked:
		return Resolution{Source: SourceScript, SuggestionID: id, Advance: &result}, true
	case OutcomeDropped:
		return Resolution{Source: SourceDropped, SuggestionID: id, Advance: &result}, true
	}
	return Resolution{}, false
}

func (r *Resolver) ask(ctx context.Context, text string) (Resolution, error) {
	snap := r.store.Snapshot()
	req := chat.Request{
		Messages: chat.TurnsFrom(snap.Messages),
		Context:  chat.Context{View: snap.View, Option: snap.Option},
	}
	gen := r.generation()

	ctx, span := r.tracer.Start(ctx, "workflow.collaborator")
	defer span.End()

	reply, err := runner.Call(ctx, r.policy, func(ctx context.Context) (chat.Response, error) {
		return r.collaborator.Reply(ctx, req)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "collaborator failed")
		return Resolution{}, err
	}
	if gen != r.generation() {
		r.logger.Debug("dropping collaborator reply after reset text=%q", text)
		return Resolution{Source: SourceDropped}, nil
	}

	r.store.Batch(func(tx *Tx) {
		tx.SetTyping(false)
		tx.AppendMessage(reply.Build())
		if len(reply.SuggestedActions) > 0 {
			tx.SetSuggestions(reply.SuggestedActions)
		}
	})
	return Resolution{Source: SourceCollaborator}, nil
}

func (r *Resolver) applyCanned(c script.CannedResponse, source Source) Resolution {
	r.store.Batch(func(tx *Tx) {
		ApplyCanned(tx, c)
	})
	return Resolution{Source: source, SuggestionID: c.ID}
}

func (r *Resolver) demoMode(offered []assistant.Suggestion) Resolution {
	r.store.Batch(func(tx *Tx) {
		tx.SetTyping(false)
		tx.AppendMessage(assistant.NewMessage(assistant.RoleAgent, r.notice))
		if len(offered) > 0 {
			tx.SetSuggestions(offered)
		}
	})
	return Resolution{Source: SourceDemoMode}
}

func (r *Resolver) hasOpening() bool {
	if r.canned == nil {
		return false
	}
	_, ok := r.canned.Opening()
	return ok
}

func (r *Resolver) generation() uint64 {
	if r.exec == nil {
		return 0
	}
	return r.exec.Generation()
}

// ApplyCanned commits a canned response: section updates, the progress step,
// the message and a wholesale replacement of the suggestions.
func ApplyCanned(tx *Tx, c script.CannedResponse) {
	for _, u := range c.Sections {
		tx.UpdateSection(u.ID, u.Status, u.Values)
	}
	if c.StepStatus != nil {
		tx.UpdateStep(c.StepStatus.StepID, c.StepStatus.Status)
	}
	tx.SetTyping(false)
	tx.AppendMessage(c.Message.Build(assistant.RoleAgent))
	tx.SetSuggestions(c.Suggestions)
}

func userText(p Prompt, offered []assistant.Suggestion) string {
	if text := strings.TrimSpace(p.Text); text != "" {
		return text
	}
	id := strings.TrimSpace(p.SuggestionID)
	if id == "" {
		return ""
	}
	for _, s := range offered {
		if s.ID == id {
			return s.Text
		}
	}
	return id
}

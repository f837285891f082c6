package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-assistant"
	"github.com/goliatone/go-assistant/script"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/goliatone/go-assistant/workflow"

// ScriptSource resolves a bound script path.
type ScriptSource interface {
	Lookup(path string) (*script.Script, error)
}

// Sleeper waits for a step delay. Implementations must return early with the
// context error when ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error { return f(ctx, d) }

// TimerSleeper waits on a real timer.
var TimerSleeper Sleeper = SleeperFunc(func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
})

// Outcome reports what an Advance call did.
type Outcome string

const (
	// OutcomeApplied means one step was committed.
	OutcomeApplied Outcome = "applied"
	// OutcomeLocked means another step was in flight; nothing happened.
	OutcomeLocked Outcome = "locked"
	// OutcomeExhausted means the cursor is past the last step.
	OutcomeExhausted Outcome = "exhausted"
	// OutcomeDropped means the workflow was reset or torn down while the step waited.
	OutcomeDropped Outcome = "dropped"
)

// Result describes an Advance call.
type Result struct {
	Outcome Outcome
	// Cursor is the index of the step that was attempted.
	Cursor int
	Step   script.Step
}

// Applied reports whether a step was committed.
func (r Result) Applied() bool { return r.Outcome == OutcomeApplied }

// Executor walks the bound script one step per Advance. It is the only owner
// of step timers and serializes steps with a single-flight lock.
type Executor struct {
	store   *Store
	scripts ScriptSource
	sleeper Sleeper
	scale   float64
	logger  assistant.Logger
	tracer  trace.Tracer

	mu         sync.Mutex
	cursor     int
	locked     bool
	generation uint64
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithSleeper replaces the timer used for step delays.
func WithSleeper(s Sleeper) ExecutorOption {
	return func(e *Executor) {
		if s != nil {
			e.sleeper = s
		}
	}
}

// WithTimingScale multiplies every step delay; 0 disables delays.
func WithTimingScale(scale float64) ExecutorOption {
	return func(e *Executor) {
		if scale >= 0 {
			e.scale = scale
		}
	}
}

// WithExecutorLogger sets the logger.
func WithExecutorLogger(logger assistant.Logger) ExecutorOption {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTracer sets the tracer used for step spans.
func WithTracer(t trace.Tracer) ExecutorOption {
	return func(e *Executor) {
		if t != nil {
			e.tracer = t
		}
	}
}

// NewExecutor creates an executor over store.
func NewExecutor(store *Store, scripts ScriptSource, opts ...ExecutorOption) *Executor {
	e := &Executor{
		store:   store,
		scripts: scripts,
		sleeper: TimerSleeper,
		scale:   1,
		logger:  assistant.NewFmtLogger(nil),
		tracer:  otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Cursor returns the index of the next step.
func (e *Executor) Cursor() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor
}

// Locked reports whether a step is in flight.
func (e *Executor) Locked() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.locked
}

// Reset rewinds the cursor and releases the lock. A step in flight when Reset
// is called is dropped instead of committed.
func (e *Executor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cursor = 0
	e.locked = false
	e.generation++
}

// Generation changes on every Reset. Async chains compare it to detect that
// the run they started on is gone.
func (e *Executor) Generation() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation
}

// Remaining returns the number of steps left in the bound script.
func (e *Executor) Remaining() int {
	s, err := e.scripts.Lookup(e.store.Path())
	if err != nil {
		return 0
	}
	n := s.Len() - e.Cursor()
	if n < 0 {
		return 0
	}
	return n
}

// Advance applies the step at the cursor. While another step is in flight it
// is a no-op returning OutcomeLocked.
func (e *Executor) Advance(ctx context.Context) (Result, error) {
	e.mu.Lock()
	if e.locked {
		cursor := e.cursor
		e.mu.Unlock()
		return Result{Outcome: OutcomeLocked, Cursor: cursor}, nil
	}
	e.locked = true
	cursor := e.cursor
	gen := e.generation
	e.mu.Unlock()

	path := e.store.Path()
	ctx, span := e.tracer.Start(ctx, "workflow.advance", trace.WithAttributes(
		attribute.String("script.path", path),
		attribute.Int("script.cursor", cursor),
	))
	defer span.End()

	if path == "" {
		e.release(gen, false)
		err := assistant.NewError(assistant.ErrWorkflowNotActive, "no script bound to workflow", nil, nil)
		span.SetStatus(codes.Error, err.Error())
		return Result{Cursor: cursor}, err
	}

	s, err := e.scripts.Lookup(path)
	if err != nil {
		e.release(gen, false)
		span.RecordError(err)
		span.SetStatus(codes.Error, "script lookup failed")
		return Result{Cursor: cursor}, err
	}

	e.store.SetTyping(true)

	step, ok := s.Step(cursor)
	if !ok {
		e.store.SetTyping(false)
		e.release(gen, false)
		span.SetAttributes(attribute.String("workflow.outcome", string(OutcomeExhausted)))
		return Result{Outcome: OutcomeExhausted, Cursor: cursor}, nil
	}

	if delay := e.delay(step.Delay()); delay > 0 {
		if err := e.sleeper.Sleep(ctx, delay); err != nil {
			e.store.SetTyping(false)
			e.release(gen, false)
			span.SetAttributes(attribute.String("workflow.outcome", string(OutcomeDropped)))
			return Result{Outcome: OutcomeDropped, Cursor: cursor, Step: step}, nil
		}
	}

	if !e.current(gen) {
		e.logger.Debug("dropping step after reset path=%s cursor=%d", path, cursor)
		span.SetAttributes(attribute.String("workflow.outcome", string(OutcomeDropped)))
		return Result{Outcome: OutcomeDropped, Cursor: cursor, Step: step}, nil
	}

	applied := e.store.Batch(func(tx *Tx) {
		ApplyStep(tx, step)
	})
	e.release(gen, true)

	outcome := OutcomeApplied
	if !applied {
		outcome = OutcomeDropped
	}
	span.SetAttributes(
		attribute.String("workflow.outcome", string(outcome)),
		attribute.String("script.variant", string(step.Variant())),
	)
	return Result{Outcome: outcome, Cursor: cursor, Step: step}, nil
}

func (e *Executor) delay(d time.Duration) time.Duration {
	if e.scale == 1 {
		return d
	}
	return time.Duration(float64(d) * e.scale)
}

func (e *Executor) current(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation == gen
}

func (e *Executor) release(gen uint64, advance bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.generation != gen {
		return
	}
	if advance {
		e.cursor++
	}
	e.locked = false
}

// ApplyStep commits the effects of step in their fixed order, then clears the
// typing flag, emits the message and installs the next suggestions.
func ApplyStep(tx *Tx, step script.Step) {
	for _, effect := range step.Effects() {
		applyEffect(tx, effect)
	}
	tx.SetTyping(false)
	tx.AppendMessage(step.Message().Build(assistant.RoleAgent))
	tx.SetSuggestions(step.Suggestions())
}

func applyEffect(tx *Tx, effect script.Effect) {
	switch e := effect.(type) {
	case script.ViewTransition:
		tx.SetView(e.View)
	case script.PathTag:
		tx.SetBranch(e.Path)
	case script.SectionUpdate:
		tx.UpdateSection(e.ID, e.Status, e.Values)
	case script.SectionBatch:
		for _, u := range e.Updates {
			tx.UpdateSection(u.ID, u.Status, u.Values)
		}
	case script.StepStatusUpdate:
		tx.UpdateStep(e.StepID, e.Status)
	case script.ResourceInstall:
		tx.InstallResource(e.Resource)
	}
}

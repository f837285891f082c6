package workflow

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-assistant"
	"github.com/goliatone/go-assistant/appstate"
	"github.com/goliatone/go-assistant/script"
	"github.com/goliatone/go-assistant/ui"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const (
	ErrCodeInvalidAction    = "INVALID_ACTION"
	ErrCodeMessageNotFound  = "MESSAGE_NOT_FOUND"
	ErrCodeNotConfirmable   = "NOT_CONFIRMABLE"
	ErrCodeAlreadyConfirmed = "ALREADY_CONFIRMED"
)

// StartSuggestionPrefix marks suggestions that start a scripted run; the
// rest of the id is the conversation option ("start-create").
const StartSuggestionPrefix = "start-"

// Scripts is what a session needs from the script repository.
type Scripts interface {
	ScriptSource
	CannedSource
	PathFor(option string) (string, bool)
}

// Session binds one workflow instance: its store, executor, resolver and
// action routing. Sessions are safe for concurrent use.
type Session struct {
	id       string
	scripts  Scripts
	store    *Store
	exec     *Executor
	resolver *Resolver
	actions  *ActionRouter
	apps     appstate.Store
	renderer *ui.Renderer
	logger   assistant.Logger
	now      func() time.Time
	auto     bool

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	lastActive time.Time
	confirmed  map[string]bool
	dbID       string
	dbStatus   assistant.ResourceStatus

	storeOpts    []StoreOption
	execOpts     []ExecutorOption
	resolverOpts []ResolverOption
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSessionID sets the id; a uuid is generated otherwise.
func WithSessionID(id string) SessionOption {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// WithAppState sets where materialized resources are written.
func WithAppState(apps appstate.Store) SessionOption {
	return func(s *Session) {
		if apps != nil {
			s.apps = apps
		}
	}
}

// WithActionRouter replaces the default action routing.
func WithActionRouter(a *ActionRouter) SessionOption {
	return func(s *Session) {
		if a != nil {
			s.actions = a
		}
	}
}

// WithRenderer sets the renderer used by Render.
func WithRenderer(r *ui.Renderer) SessionOption {
	return func(s *Session) {
		if r != nil {
			s.renderer = r
		}
	}
}

// WithAutoAdvance keeps advancing after a step until one offers suggestions,
// asks for confirmation or action buttons, or the script ends.
func WithAutoAdvance(auto bool) SessionOption {
	return func(s *Session) {
		s.auto = auto
	}
}

// WithSessionLogger sets the logger handed to every part of the session.
func WithSessionLogger(logger assistant.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSessionClock overrides time.Now for idle tracking.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithChangeListener subscribes l to the session store.
func WithChangeListener(l Listener) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.storeOpts = append(s.storeOpts, WithListener(l))
		}
	}
}

// WithExecutorOptions passes options to the session executor.
func WithExecutorOptions(opts ...ExecutorOption) SessionOption {
	return func(s *Session) {
		s.execOpts = append(s.execOpts, opts...)
	}
}

// WithResolverOptions passes options to the session resolver.
func WithResolverOptions(opts ...ResolverOption) SessionOption {
	return func(s *Session) {
		s.resolverOpts = append(s.resolverOpts, opts...)
	}
}

// NewSession creates a session at the entry view.
func NewSession(scripts Scripts, opts ...SessionOption) *Session {
	s := &Session{
		id:        uuid.NewString(),
		scripts:   scripts,
		apps:      appstate.NewMemory(),
		renderer:  ui.NewRenderer(),
		logger:    assistant.NewFmtLogger(nil),
		now:       time.Now,
		confirmed: make(map[string]bool),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.actions == nil {
		s.actions = NewActionRouter()
	}
	s.logger = assistant.WithLoggerFields(s.logger, map[string]any{"session_id": s.id})
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.lastActive = s.now()

	s.store = NewStore(append([]StoreOption{WithStoreLogger(s.logger)}, s.storeOpts...)...)
	s.exec = NewExecutor(s.store, scripts, append([]ExecutorOption{WithExecutorLogger(s.logger)}, s.execOpts...)...)
	s.resolver = NewResolver(s.store, s.exec, scripts, append([]ResolverOption{WithResolverLogger(s.logger)}, s.resolverOpts...)...)
	s.store.Subscribe(func(ch Change) {
		if ch.Has(ChangeResource) {
			s.syncResource()
		}
	})
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Store exposes the session state store.
func (s *Session) Store() *Store { return s.store }

// Executor exposes the session executor.
func (s *Session) Executor() *Executor { return s.exec }

// Snapshot returns a copy of the workflow state.
func (s *Session) Snapshot() State { return s.store.Snapshot() }

// LastActive returns the time of the last user interaction.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Open greets the user with the opening canned response, if one exists and
// the conversation is empty.
func (s *Session) Open() bool {
	opening, ok := s.scripts.Opening()
	if !ok {
		return false
	}
	applied := false
	s.store.Batch(func(tx *Tx) {
		if len(tx.State().Messages) > 0 {
			return
		}
		ApplyCanned(tx, opening)
		applied = true
	})
	return applied
}

// Start resets the workflow, binds the script selected by option and runs
// its first step.
func (s *Session) Start(ctx context.Context, option string) (*Result, error) {
	return s.start(ctx, option, "")
}

func (s *Session) start(ctx context.Context, option, echo string) (*Result, error) {
	s.touch()
	path, ok := s.scripts.PathFor(option)
	if !ok {
		return nil, assistant.NewError(assistant.ErrScriptNotFound, "no script for option "+option, nil, map[string]any{
			"option": option,
		})
	}
	sc, err := s.scripts.Lookup(path)
	if err != nil {
		return nil, err
	}

	s.exec.Reset()
	s.forget()
	if !s.store.Batch(func(tx *Tx) {
		tx.Reset()
		tx.Bind(path, sc.Option, sc.InitialSections(), sc.InitialWorkflow())
		tx.SetView(assistant.ViewChat)
		if echo != "" {
			tx.AppendMessage(assistant.NewMessage(assistant.RoleUser, echo))
		}
	}) {
		return nil, assistant.NewError(assistant.ErrStoreClosed, "", nil, map[string]any{"session_id": s.id})
	}
	s.logger.Info("workflow started path=%s option=%s", path, option)
	return s.drive(ctx)
}

// Continue is the explicit continue event: it advances the script.
func (s *Session) Continue(ctx context.Context) (*Result, error) {
	s.touch()
	return s.drive(ctx)
}

// Submit answers a user prompt. Selecting a start suggestion starts the
// matching script instead.
func (s *Session) Submit(ctx context.Context, p Prompt) (Resolution, error) {
	s.touch()
	offered := s.store.Suggestions()
	id := Match(p, offered)
	if option, ok := strings.CutPrefix(id, StartSuggestionPrefix); ok {
		if _, known := s.scripts.PathFor(option); known {
			result, err := s.start(ctx, option, userText(p, offered))
			return Resolution{Source: SourceScript, SuggestionID: id, Advance: result}, err
		}
	}

	ctx, cancel := s.bind(ctx)
	defer cancel()
	res, err := s.resolver.Resolve(ctx, p)
	if err != nil {
		return res, err
	}
	if res.Source == SourceScript && res.Advance != nil {
		next, err := s.follow(ctx, *res.Advance)
		if next != nil {
			res.Advance = next
		}
		return res, err
	}
	return res, nil
}

// TriggerAction implements assistant.ActionSink for rendered buttons.
func (s *Session) TriggerAction(ctx context.Context, actionID string, params map[string]any) error {
	_, err := s.Action(ctx, ActionRequest{ID: actionID, Params: params})
	return err
}

// Action routes an action fired by a button or a confirmation.
func (s *Session) Action(ctx context.Context, req ActionRequest) (ActionOutcome, error) {
	s.touch()
	return s.actions.Dispatch(ctx, s, req)
}

// Confirm fires the confirmation action of a message. The message itself is
// never changed; the session remembers it was confirmed.
func (s *Session) Confirm(ctx context.Context, messageID string) (ActionOutcome, error) {
	msg, ok := s.store.Snapshot().Message(messageID)
	if !ok {
		return ActionOutcome{}, errors.New("message not found", errors.CategoryNotFound).
			WithTextCode(ErrCodeMessageNotFound).
			WithMetadata(map[string]any{"message_id": messageID})
	}
	if !msg.RequiresConfirmation || msg.Confirmation == nil {
		return ActionOutcome{}, errors.New("message does not require confirmation", errors.CategoryBadInput).
			WithTextCode(ErrCodeNotConfirmable).
			WithMetadata(map[string]any{"message_id": messageID})
	}

	s.mu.Lock()
	if s.confirmed[messageID] {
		s.mu.Unlock()
		return ActionOutcome{}, errors.New("message already confirmed", errors.CategoryConflict).
			WithTextCode(ErrCodeAlreadyConfirmed).
			WithMetadata(map[string]any{"message_id": messageID})
	}
	s.confirmed[messageID] = true
	s.mu.Unlock()

	return s.Action(ctx, ActionRequest{ID: msg.Confirmation.Action, Params: msg.Confirmation.Params})
}

// Confirmed reports whether a message was confirmed.
func (s *Session) Confirmed(messageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.confirmed[messageID]
}

// SetFormValue records a (field, value) event from an embedded form.
func (s *Session) SetFormValue(field string, value any) bool {
	s.touch()
	return s.store.SetFormValue(field, value)
}

// Render renders the component of msg against the session form state.
// Messages without a component render nothing.
func (s *Session) Render(msg assistant.Message) *ui.Node {
	if msg.Component == nil {
		return nil
	}
	return s.renderer.Render(msg.Component, s,
		ui.WithFormState(ui.FormState(s.store.FormValues())),
		ui.WithFormChange(func(field string, value any) {
			s.store.SetFormValue(field, value)
		}),
	)
}

// RenderAll renders every message component keyed by message id.
func (s *Session) RenderAll() map[string]*ui.Node {
	snap := s.store.Snapshot()
	out := make(map[string]*ui.Node)
	for _, m := range snap.Messages {
		if node := s.Render(m); node != nil {
			out[m.ID] = node
		}
	}
	return out
}

// End returns the workflow to its defaults.
func (s *Session) End() {
	s.touch()
	s.exec.Reset()
	s.forget()
	s.store.Reset()
}

// Close tears the session down. Steps and replies still in flight are dropped.
func (s *Session) Close() {
	s.cancel()
	s.exec.Reset()
	s.store.Close()
}

func (s *Session) drive(ctx context.Context) (*Result, error) {
	ctx, cancel := s.bind(ctx)
	defer cancel()

	result, err := s.exec.Advance(ctx)
	if err != nil {
		return &result, err
	}
	return s.follow(ctx, result)
}

// follow keeps advancing after result while auto advance is on and the
// applied step did not stop for the user.
func (s *Session) follow(ctx context.Context, result Result) (*Result, error) {
	for s.auto && result.Applied() && !waitsForUser(result.Step) {
		next, err := s.exec.Advance(ctx)
		if err != nil {
			return &result, err
		}
		if next.Outcome == OutcomeExhausted {
			break
		}
		result = next
	}
	return &result, nil
}

func waitsForUser(step script.Step) bool {
	msg := step.Message()
	return len(step.Suggestions()) > 0 || msg.Confirmation != nil || len(msg.Actions) > 0
}

// bind ties ctx to the session lifetime so Close interrupts step delays.
func (s *Session) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (s *Session) touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = s.now()
}

func (s *Session) forget() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmed = make(map[string]bool)
	s.dbID = ""
	s.dbStatus = ""
}

// persist upserts the resource as the record this session materialized.
func (s *Session) persist(ctx context.Context, res assistant.Resource) (appstate.Database, error) {
	db := appstate.DatabaseFromResource(res)
	s.mu.Lock()
	if s.dbID != "" {
		db.ID = s.dbID
	}
	s.mu.Unlock()

	saved, err := s.apps.UpsertDatabase(ctx, db)
	if err != nil {
		return appstate.Database{}, err
	}

	s.mu.Lock()
	s.dbID = saved.ID
	s.dbStatus = saved.Status
	s.mu.Unlock()
	return saved, nil
}

// syncResource mirrors resource changes into the materialized record.
func (s *Session) syncResource() {
	s.mu.Lock()
	tracked, prev := s.dbID, s.dbStatus
	s.mu.Unlock()
	if tracked == "" {
		return
	}
	res := s.store.Resource()
	if res == nil {
		return
	}

	db, err := s.persist(s.ctx, *res)
	if err != nil {
		s.logger.Warn("failed to sync database database=%s error=%v", tracked, err)
		return
	}
	if db.Status == prev {
		return
	}
	if err := s.apps.PushNotification(s.ctx, notificationFor(db)); err != nil {
		s.logger.Warn("failed to push notification database=%s error=%v", db.ID, err)
	}
	if err := s.apps.AppendActivity(s.ctx, appstate.Activity{
		Action:  "status-" + string(db.Status),
		Target:  db.ID,
		Message: db.Name + " is " + string(db.Status),
	}); err != nil {
		s.logger.Warn("failed to record activity database=%s error=%v", db.ID, err)
	}
}

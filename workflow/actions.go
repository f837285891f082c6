package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-assistant"
	"github.com/goliatone/go-assistant/appstate"
	"github.com/goliatone/go-assistant/router"
	"github.com/goliatone/go-errors"
)

// ActionKind classifies a triggered action.
type ActionKind string

const (
	// ActionMaterialize persists the in-flight resource into app state.
	ActionMaterialize ActionKind = "materialize"
	// ActionPassThrough hands the action to the prompt resolver as a user turn.
	ActionPassThrough ActionKind = "pass-through"
)

// MaterializeActionIDs are the action ids that always materialize the resource.
var MaterializeActionIDs = []string{
	"create-database",
	"deploy-cluster",
	"provision-database",
	"confirm-create",
	"launch-database",
}

// Keyword groups of the materialize heuristic: an id needs one verb and one noun.
var (
	MaterializeVerbs = []string{"create", "deploy", "provision", "launch"}
	MaterializeNouns = []string{"database", "cluster", "db", "instance"}
)

// ActionRequest is one action fired by an embedded button or a confirmation.
type ActionRequest struct {
	ID     string         `json:"action_id"`
	Params map[string]any `json:"params,omitempty"`
}

// ActionOutcome reports what handling an action did.
type ActionOutcome struct {
	Kind       ActionKind         `json:"kind"`
	Database   *appstate.Database `json:"database,omitempty"`
	Resolution *Resolution        `json:"resolution,omitempty"`
	Advance    *Result            `json:"-"`
}

// ActionHandler handles an action on behalf of a session.
type ActionHandler func(ctx context.Context, s *Session, req ActionRequest) (ActionOutcome, error)

// Route is a handler with the kind it reports to Classify.
type Route struct {
	Kind   ActionKind
	Handle ActionHandler
}

// ActionRouter decides what an action id means. Exact ids win over patterns,
// and both win over the keyword heuristic. Unrouted ids pass through.
type ActionRouter struct {
	mux *router.Mux[Route]
}

// NewActionRouter creates a router with the default materialize routes.
func NewActionRouter() *ActionRouter {
	a := &ActionRouter{mux: router.NewMux[Route]()}
	materialize := Route{Kind: ActionMaterialize, Handle: Materialize}
	for _, id := range MaterializeActionIDs {
		a.mux.Add(id, materialize)
	}
	a.mux.AddFunc("materialize-keywords", router.MakeKeywordMatcher(MaterializeVerbs, MaterializeNouns), materialize)
	return a
}

// Handle registers a route for an id or wildcard pattern.
func (a *ActionRouter) Handle(pattern string, kind ActionKind, h ActionHandler) router.Subscription {
	return a.mux.Add(pattern, Route{Kind: kind, Handle: h})
}

// Classify reports how id would be handled.
func (a *ActionRouter) Classify(id string) ActionKind {
	if route, ok := a.route(id); ok {
		return route.Kind
	}
	return ActionPassThrough
}

// Dispatch runs the route for req.ID on s.
func (a *ActionRouter) Dispatch(ctx context.Context, s *Session, req ActionRequest) (ActionOutcome, error) {
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		return ActionOutcome{}, errors.New("action id is required", errors.CategoryBadInput).
			WithTextCode(ErrCodeInvalidAction)
	}
	if route, ok := a.route(req.ID); ok && route.Handle != nil {
		return route.Handle(ctx, s, req)
	}
	return PassThrough(ctx, s, req)
}

func (a *ActionRouter) route(id string) (Route, bool) {
	entries := a.mux.Get(id)
	if len(entries) == 0 {
		return Route{}, false
	}
	return entries[0].Handler, true
}

// PassThrough resolves the action as the user turn "[action] <id>".
func PassThrough(ctx context.Context, s *Session, req ActionRequest) (ActionOutcome, error) {
	res, err := s.resolver.Resolve(ctx, Prompt{Text: "[action] " + req.ID})
	if err != nil {
		return ActionOutcome{Kind: ActionPassThrough}, err
	}
	return ActionOutcome{Kind: ActionPassThrough, Resolution: &res}, nil
}

// Materialize writes the in-flight resource to app state with its current
// status, records an activity and a notification, moves to the review view
// and continues the script. Later resource changes keep the record in sync.
// Without a resource the script is continued, or the action passes through
// when the script has nothing left.
func Materialize(ctx context.Context, s *Session, req ActionRequest) (ActionOutcome, error) {
	res := s.store.Resource()
	if res == nil {
		if s.exec.Remaining() == 0 {
			return PassThrough(ctx, s, req)
		}
		result, err := s.drive(ctx)
		return ActionOutcome{Kind: ActionMaterialize, Advance: result}, err
	}

	db, err := s.persist(ctx, *res)
	if err != nil {
		return ActionOutcome{Kind: ActionMaterialize}, err
	}

	if err := s.apps.AppendActivity(ctx, appstate.Activity{
		Action:  req.ID,
		Target:  db.ID,
		Message: fmt.Sprintf("Started %s for %s", strings.ReplaceAll(req.ID, "-", " "), db.Name),
	}); err != nil {
		s.logger.Warn("failed to record activity action=%s error=%v", req.ID, err)
	}
	if err := s.apps.PushNotification(ctx, notificationFor(db)); err != nil {
		s.logger.Warn("failed to push notification action=%s error=%v", req.ID, err)
	}

	s.store.SetView(assistant.ViewReview)

	out := ActionOutcome{Kind: ActionMaterialize, Database: &db}
	if s.exec.Remaining() > 0 {
		result, err := s.drive(ctx)
		out.Advance = result
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

func notificationFor(db appstate.Database) appstate.Notification {
	if db.Status == assistant.ResourceActive {
		return appstate.Notification{
			Type:    appstate.NotificationSuccess,
			Title:   db.Name + " is available",
			Message: db.Endpoint,
		}
	}
	return appstate.Notification{
		Type:    appstate.NotificationInfo,
		Title:   "Creating " + db.Name,
		Message: fmt.Sprintf("%s in %s", db.Engine, db.Region),
	}
}

package assistant

import "context"

// ActionSink receives actions fired by embedded buttons and confirmations.
type ActionSink interface {
	TriggerAction(ctx context.Context, actionID string, params map[string]any) error
}

// ActionFunc is an adapter that lets you use a function as an ActionSink
type ActionFunc func(ctx context.Context, actionID string, params map[string]any) error

// TriggerAction calls the underlying function
func (f ActionFunc) TriggerAction(ctx context.Context, actionID string, params map[string]any) error {
	return f(ctx, actionID, params)
}

// NopActionSink drops every action.
var NopActionSink ActionSink = ActionFunc(func(context.Context, string, map[string]any) error { return nil })

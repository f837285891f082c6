package chat

import (
	"context"
	"strings"

	"github.com/goliatone/go-assistant"
)

// Rule answers prompts containing any of its keywords.
type Rule struct {
	Keywords []string
	Reply    func(req Request) Response
}

// Offline is a keyword driven collaborator used when no remote endpoint is
// configured. Prompts no rule matches fail as unavailable.
type Offline struct {
	rules []Rule
}

// NewOffline returns an offline collaborator with rules, or the default set
// when none are given.
func NewOffline(rules ...Rule) *Offline {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Offline{rules: rules}
}

// Reply implements Collaborator.
func (o *Offline) Reply(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	turn, ok := req.LastUserTurn()
	if !ok {
		return Response{}, unavailable("no user turn to answer", nil, nil)
	}
	text := strings.ToLower(turn.Content)
	for _, rule := range o.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(text, kw) {
				return rule.Reply(req), nil
			}
		}
	}
	return Response{}, unavailable("offline collaborator has no answer", nil, map[string]any{"retryable": false})
}

// DefaultRules covers pricing, backups and engine comparison questions.
func DefaultRules() []Rule {
	return []Rule{
		{
			Keywords: []string{"price", "pricing", "cost"},
			Reply: func(Request) Response {
				return Response{
					Message: "Estimated monthly cost for the recommended configuration:",
					Component: assistant.NewComponent("Table", assistant.Props{
						"columns": []any{"item", "monthly"},
						"items": []any{
							map[string]any{"item": "2 x db.r6g.large", "monthly": "$350.40"},
							map[string]any{"item": "Storage (100 GiB)", "monthly": "$10.00"},
							map[string]any{"item": "Backups (7 days)", "monthly": "$0.00"},
						},
					}),
				}
			},
		},
		{
			Keywords: []string{"backup", "snapshot", "restore"},
			Reply: func(Request) Response {
				return Response{
					Message: "Automated backups are continuous with point-in-time restore.",
					Component: assistant.NewComponent("KeyValuePairs", assistant.Props{
						"items": []any{
							map[string]any{"label": "Retention", "value": "7 days"},
							map[string]any{"label": "Window", "value": "03:00-04:00 UTC"},
						},
					}),
				}
			},
		},
		{
			Keywords: []string{"mysql or postgres", "postgres or mysql", "which engine", "compare"},
			Reply: func(Request) Response {
				return Response{
					Message: "Both engines are available on Aurora. Pick PostgreSQL for extensions and rich types, MySQL for existing MySQL tooling.",
					SuggestedActions: []assistant.Suggestion{
						{ID: "create-workload-oltp", Text: "Use Aurora PostgreSQL"},
					},
				}
			},
		},
	}
}

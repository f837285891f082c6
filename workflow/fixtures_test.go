package workflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-assistant"
	"github.com/goliatone/go-assistant/script"
)

// recordingSleeper returns immediately and remembers every requested delay.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *recordingSleeper) Delays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

// gateSleeper blocks every sleep until release is closed.
type gateSleeper struct {
	entered chan struct{}
	release chan struct{}
}

func newGateSleeper() *gateSleeper {
	return &gateSleeper{entered: make(chan struct{}, 16), release: make(chan struct{})}
}

func (g *gateSleeper) Sleep(ctx context.Context, _ time.Duration) error {
	g.entered <- struct{}{}
	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Add(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var testSections = []script.SectionDef{
	{ID: "cluster", Title: "Cluster"},
	{ID: "instance", Title: "Instance"},
	{ID: "storage", Title: "Storage"},
	{ID: "security", Title: "Security"},
}

// twoStepScript is the A/B scenario: cluster goes in-progress then success.
func twoStepScript() *script.Script {
	return &script.Script{
		ID:       "two-step",
		Option:   "two",
		Sections: testSections,
		Workflow: []assistant.WorkflowStep{{ID: "design", Title: "Design"}},
		Steps: []script.Step{
			script.Say("A",
				script.After(100*time.Millisecond),
				script.UpdateSection("cluster", assistant.StatusInProgress, nil),
			),
			script.Say("B",
				script.UpdateSection("cluster", assistant.StatusSuccess, map[string]string{"Region": "us-east-1"}),
				script.MarkStep("design", assistant.StatusSuccess),
			),
		},
	}
}

// demoScript walks to a review step with a resource and a confirmation,
// then finishes the resource without user input.
func demoScript() *script.Script {
	return &script.Script{
		ID:       "demo-database",
		Option:   "demo",
		Sections: testSections,
		Workflow: []assistant.WorkflowStep{
			{ID: "requirements", Title: "Requirements"},
			{ID: "deploy", Title: "Deploy"},
		},
		Steps: []script.Step{
			script.Say("What are you building?",
				script.OnPath("demo-database"),
				script.MarkStep("requirements", assistant.StatusInProgress),
				script.Offer(
					assistant.Suggestion{ID: "demo-web", Text: "A web app"},
					assistant.Suggestion{ID: "demo-reports", Text: "Reports"},
				),
			),
			script.Say("Recommended cluster ready.",
				script.GoTo(assistant.ViewDesign),
				script.UpdateSection("cluster", assistant.StatusSuccess, map[string]string{"Engine": "Aurora PostgreSQL"}),
				script.MarkStep("requirements", assistant.StatusSuccess),
			),
			script.Say("Storage configured.",
				script.UpdateSections(
					script.SectionUpdate{ID: "storage", Status: assistant.StatusSuccess, Values: map[string]string{"Type": "I/O-Optimized"}},
					script.SectionUpdate{ID: "security", Status: assistant.StatusInProgress},
				),
				script.Offer(assistant.Suggestion{ID: "demo-review", Text: "Review"}),
			),
			script.NewStep(script.MessageSpec{
				Content:      "Ready to launch.",
				Confirmation: &assistant.Confirmation{Label: "Launch", Action: "launch-database"},
			},
				script.GoTo(assistant.ViewReview),
				script.Install(assistant.Resource{
					ID:      "orders",
					Name:    "orders",
					Type:    "Aurora PostgreSQL",
					Region:  "us-east-1",
					Status:  assistant.ResourceCreating,
					Details: map[string]string{"Readers": "1"},
				}),
			),
			script.Say("Creating the cluster."),
			script.Say("orders is available.",
				script.MarkStep("deploy", assistant.StatusSuccess),
				script.Install(assistant.Resource{
					ID:       "orders",
					Name:     "orders",
					Type:     "Aurora PostgreSQL",
					Region:   "us-east-1",
					Status:   assistant.ResourceActive,
					Endpoint: "orders.cluster.example",
				}),
				script.Offer(assistant.Suggestion{ID: "demo-monitoring", Text: "Set up monitoring"}),
			),
		},
	}
}

func newTestRepository(t *testing.T) *script.Repository {
	t.Helper()
	repo := script.NewRepository()
	for _, s := range []*script.Script{twoStepScript(), demoScript()} {
		if err := repo.Register(s); err != nil {
			t.Fatalf("register %s: %v", s.ID, err)
		}
	}
	repo.SetOpening(script.CannedResponse{
		ID:      "opening",
		Message: script.MessageSpec{Content: "Hi! What would you like to do?"},
		Suggestions: []assistant.Suggestion{
			{ID: "start-demo", Text: "Create a database"},
			{ID: "start-two", Text: "Run the short demo"},
		},
	})
	mustCanned(t, repo, script.CannedResponse{
		ID:       "demo-reports",
		Message:  script.MessageSpec{Content: "Reporting needs a bigger reader."},
		Sections: []script.SectionUpdate{{ID: "cluster", Status: assistant.StatusInProgress, Values: map[string]string{"Workload": "Analytics"}}},
		Suggestions: []assistant.Suggestion{
			{ID: "demo-web", Text: "Actually, a web app"},
		},
	})
	return repo
}

func mustCanned(t *testing.T, repo *script.Repository, c script.CannedResponse) {
	t.Helper()
	if err := repo.RegisterCanned(c); err != nil {
		t.Fatalf("register canned %s: %v", c.ID, err)
	}
}

// bind starts path on a fresh store and executor without running a step.
func bind(t *testing.T, repo *script.Repository, path string, opts ...ExecutorOption) (*Store, *Executor) {
	t.Helper()
	s, err := repo.Lookup(path)
	if err != nil {
		t.Fatalf("lookup %s: %v", path, err)
	}
	store := NewStore(WithStoreLogger(assistant.NopLogger{}))
	store.Begin(path, s.Option, s.InitialSections(), s.InitialWorkflow())
	opts = append([]ExecutorOption{WithExecutorLogger(assistant.NopLogger{})}, opts...)
	return store, NewExecutor(store, repo, opts...)
}

package main

import (
	"context"
	"os"
	"time"

	"github.com/goliatone/go-assistant"
	"github.com/goliatone/go-assistant/appstate"
	"github.com/goliatone/go-assistant/chat"
	"github.com/goliatone/go-assistant/config"
	"github.com/goliatone/go-assistant/cron"
	"github.com/goliatone/go-assistant/events"
	"github.com/goliatone/go-assistant/runner"
	"github.com/goliatone/go-assistant/script"
	"github.com/goliatone/go-assistant/ui"
	"github.com/goliatone/go-assistant/workflow"
)

// app is the runtime shared by the serve and repl commands.
type app struct {
	cfg       config.Config
	logger    assistant.Logger
	scripts   *script.Repository
	renderer  *ui.Renderer
	collab    chat.Collaborator
	policy    *runner.Handler
	apps      *appstate.Memory
	bus       *events.Bus
	feed      *events.Feed
	manager   *workflow.Manager
	scheduler *cron.Scheduler
}

type appOptions struct {
	bus       bool
	downloads ui.Downloader
	collab    chat.Collaborator
	sleeper   workflow.Sleeper
}

type appOption func(*appOptions)

// withBus publishes changes on an in-memory bus and keeps a feed of them.
func withBus() appOption {
	return func(o *appOptions) { o.bus = true }
}

func withDownloads(d ui.Downloader) appOption {
	return func(o *appOptions) { o.downloads = d }
}

// withCollaborator replaces the collaborator chosen from the chat config.
func withCollaborator(c chat.Collaborator) appOption {
	return func(o *appOptions) { o.collab = c }
}

func withSleeper(s workflow.Sleeper) appOption {
	return func(o *appOptions) { o.sleeper = s }
}

func newApp(cfg config.Config, logger assistant.Logger, opts ...appOption) (*app, error) {
	var o appOptions
	for _, opt := range opts {
		opt(&o)
	}
	logger = assistant.NormalizeLogger(logger)

	scripts, err := loadScripts(cfg.Script.Dir)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		scripts: scripts,
		collab:  o.collab,
	}
	if a.collab == nil {
		a.collab = newCollaborator(cfg.Chat, logger)
	}

	a.renderer = ui.NewRenderer(
		ui.WithLogger(assistant.WithLoggerFields(logger, map[string]any{"component": "renderer"})),
		ui.WithMaxDepth(cfg.Render.MaxDepth),
		ui.WithStrictProps(cfg.Render.Strict),
		ui.WithDownloader(o.downloads),
	)

	var pub events.Publisher = events.NopPublisher
	if o.bus {
		bus, err := events.NewInMemoryBus(events.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		a.bus = bus
		a.feed = events.NewFeed()
		a.feed.Attach(bus)
		pub = bus
	}

	a.apps = appstate.NewMemory(
		appstate.WithPublisher(pub),
		appstate.WithLogger(logger),
	)

	resolverOpts := []workflow.ResolverOption{
		workflow.WithResolverLogger(logger),
		workflow.WithPreferCollaborator(cfg.Chat.Prefer),
	}
	if a.collab != nil {
		a.policy = callPolicy(cfg.Chat, logger)
		resolverOpts = append(resolverOpts,
			workflow.WithCollaborator(a.collab),
			workflow.WithCallPolicy(a.policy),
		)
	}
	execOpts := []workflow.ExecutorOption{
		workflow.WithTimingScale(cfg.Timing.Scale),
		workflow.WithExecutorLogger(logger),
	}
	if o.sleeper != nil {
		execOpts = append(execOpts, workflow.WithSleeper(o.sleeper))
	}

	a.manager = workflow.NewManager(scripts,
		workflow.WithPublisher(pub),
		workflow.WithIdleTTL(cfg.Session.IdleTTL),
		workflow.WithManagerLogger(logger),
		workflow.WithSessionOptions(
			workflow.WithAppState(a.apps),
			workflow.WithRenderer(a.renderer),
			workflow.WithAutoAdvance(cfg.Session.AutoAdvance),
			workflow.WithExecutorOptions(execOpts...),
			workflow.WithResolverOptions(resolverOpts...),
		),
	)
	return a, nil
}

// Close ends every session and stops the bus.
func (a *app) Close() error {
	a.manager.Close(context.Background())
	if a.bus != nil {
		return a.bus.Close()
	}
	return nil
}

// loadScripts reads dir when set, the embedded demo scripts otherwise.
func loadScripts(dir string) (*script.Repository, error) {
	if dir != "" {
		return script.Load(os.DirFS(dir))
	}
	return script.Builtin()
}

// newCollaborator returns the remote client, the offline rules, or nil when
// chat is disabled.
func newCollaborator(cfg config.Chat, logger assistant.Logger) chat.Collaborator {
	switch {
	case !cfg.Enabled:
		return nil
	case cfg.Remote():
		return chat.NewClient(cfg.URL,
			chat.WithTimeout(cfg.Timeout),
			chat.WithClientLogger(logger),
		)
	default:
		return chat.NewOffline()
	}
}

func callPolicy(cfg config.Chat, logger assistant.Logger) *runner.Handler {
	return runner.NewHandler(
		runner.WithName("collaborator"),
		runner.WithTimeout(cfg.Timeout),
		runner.WithMaxRetries(cfg.MaxRetries),
		runner.WithLogger(logger),
		runner.WithRetryStrategy(runner.ClassifyingStrategy{
			Backoff: runner.JitterBackoff{
				Base:          200 * time.Millisecond,
				Factor:        2,
				Max:           2 * time.Second,
				Randomization: 0.2,
			},
			Retryable: chat.Retryable,
		}),
	)
}

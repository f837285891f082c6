// Package cron runs named housekeeping jobs, such as the idle session
// sweep, on cron expressions.
package cron

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-assistant"
	"github.com/goliatone/go-assistant/runner"
	"github.com/goliatone/go-errors"
	rcron "github.com/robfig/cron/v3"
)

// Job is a unit of scheduled work.
type Job func(ctx context.Context) error

// JobConfig names a job and says when and how hard to run it.
type JobConfig struct {
	Name       string
	Expression string
	MaxRetries int
	Timeout    time.Duration
}

// JobInfo is a point-in-time view of a registered job.
type JobInfo struct {
	Name       string    `json:"name"`
	Expression string    `json:"expression"`
	Runs       int       `json:"runs"`
	Failures   int       `json:"failures"`
	LastRun    time.Time `json:"last_run,omitempty"`
	LastError  string    `json:"last_error,omitempty"`
	Next       time.Time `json:"next,omitempty"`
}

// Handle controls one registered job.
type Handle interface {
	Name() string
	Info() JobInfo
	Cancel()
}

// Scheduler owns a robfig/cron loop and the jobs registered on it. Job names
// are unique.
type Scheduler struct {
	cron     *rcron.Cron
	logger   assistant.Logger
	location *time.Location
	seconds  bool
	verbose  bool
	onError  func(name string, err error)

	mu     sync.Mutex
	jobs   map[string]*job
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		logger:   assistant.NopLogger{},
		location: time.Local,
		jobs:     make(map[string]*job),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	fields := rcron.Minute | rcron.Hour | rcron.Dom | rcron.Month | rcron.Dow | rcron.Descriptor
	if s.seconds {
		fields |= rcron.Second
	}
	s.cron = rcron.New(
		rcron.WithLocation(s.location),
		rcron.WithParser(rcron.NewParser(fields)),
		rcron.WithLogger(cronLogger{logger: s.logger, verbose: s.verbose}),
	)
	return s
}

// ScheduleCron registers job under cfg.Name on cfg.Expression. An empty name
// is derived from the expression.
func (s *Scheduler) ScheduleCron(cfg JobConfig, fn Job) (Handle, error) {
	cfg.Expression = strings.TrimSpace(cfg.Expression)
	if cfg.Expression == "" {
		return nil, invalidSchedule("cron expression cannot be empty", cfg)
	}
	if fn == nil {
		return nil, invalidSchedule("job cannot be nil", cfg)
	}
	if cfg.Name = strings.TrimSpace(cfg.Name); cfg.Name == "" {
		cfg.Name = "job " + cfg.Expression
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[cfg.Name]; ok {
		return nil, errors.New("job already scheduled", errors.CategoryConflict).
			WithTextCode("DUPLICATE_JOB").
			WithMetadata(map[string]any{"job": cfg.Name})
	}

	j := &job{
		scheduler: s,
		cfg:       cfg,
		fn:        fn,
		policy: runner.NewHandler(
			runner.WithName(cfg.Name),
			runner.WithMaxRetries(cfg.MaxRetries),
			runner.WithTimeout(cfg.Timeout),
			runner.WithLogger(s.logger),
		),
	}
	id, err := s.cron.AddJob(cfg.Expression, j)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "invalid cron expression").
			WithTextCode("INVALID_SCHEDULE").
			WithMetadata(map[string]any{"job": cfg.Name, "expression": cfg.Expression})
	}
	j.entry = id
	s.jobs[cfg.Name] = j
	s.logger.Debug("scheduled job name=%s expression=%q", cfg.Name, cfg.Expression)
	return j, nil
}

// RunNow runs the named job once, outside its schedule, and returns its
// error.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return errors.New("job not found", errors.CategoryNotFound).
			WithTextCode("JOB_NOT_FOUND").
			WithMetadata(map[string]any{"job": name})
	}
	return j.execute(ctx)
}

// Jobs lists the registered jobs by name.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	jobs := make([]*job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	s.mu.Unlock()

	out := make([]JobInfo, len(jobs))
	for i, j := range jobs {
		out[i] = j.Info()
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}

// Len reports the number of registered jobs.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Start begins the cron loop. Scheduled runs use a context that Stop
// cancels.
func (s *Scheduler) Start(_ context.Context) error {
	s.cron.Start()
	s.logger.Info("scheduler started jobs=%d", s.Len())
	return nil
}

// Stop cancels running jobs, then waits for them until ctx ends.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), errors.CategoryInternal, "scheduler stop timed out").
			WithTextCode("STOP_TIMEOUT")
	}
}

func (s *Scheduler) remove(j *job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.jobs[j.cfg.Name] == j {
		delete(s.jobs, j.cfg.Name)
		s.cron.Remove(j.entry)
	}
}

func (s *Scheduler) report(name string, err error) {
	if s.onError != nil {
		s.onError(name, err)
		return
	}
	s.logger.Error("job %s failed: %v", name, err)
}

func invalidSchedule(msg string, cfg JobConfig) error {
	return errors.New(msg, errors.CategoryBadInput).
		WithTextCode("INVALID_SCHEDULE").
		WithMetadata(map[string]any{"job": cfg.Name})
}

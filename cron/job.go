package cron

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-assistant"
	"github.com/goliatone/go-assistant/runner"
	rcron "github.com/robfig/cron/v3"
)

type job struct {
	scheduler *Scheduler
	cfg       JobConfig
	fn        Job
	entry     rcron.EntryID
	policy    *runner.Handler

	mu       sync.Mutex
	runs     int
	failures int
	lastRun  time.Time
	lastErr  error
}

func (j *job) Name() string {
	return j.cfg.Name
}

// Run satisfies rcron.Job.
func (j *job) Run() {
	j.execute(j.scheduler.ctx)
}

func (j *job) Cancel() {
	j.scheduler.remove(j)
}

func (j *job) Info() JobInfo {
	j.mu.Lock()
	info := JobInfo{
		Name:       j.cfg.Name,
		Expression: j.cfg.Expression,
		Runs:       j.runs,
		Failures:   j.failures,
		LastRun:    j.lastRun,
	}
	if j.lastErr != nil {
		info.LastError = j.lastErr.Error()
	}
	j.mu.Unlock()

	if entry := j.scheduler.cron.Entry(j.entry); entry.Valid() {
		info.Next = entry.Next
	}
	return info
}

func (j *job) execute(ctx context.Context) error {
	started := time.Now()
	err := j.policy.Run(ctx, j.guarded)

	j.mu.Lock()
	j.runs++
	j.lastRun = started
	j.lastErr = err
	if err != nil {
		j.failures++
	}
	j.mu.Unlock()

	if err != nil {
		j.scheduler.report(j.cfg.Name, err)
	}
	return err
}

// guarded turns a panic in the job into an error so the cron loop keeps
// running.
func (j *job) guarded(ctx context.Context) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			caught := assistant.CapturePanic("cron.job", rec, map[string]any{"job": j.cfg.Name})
			j.scheduler.logger.Debug("%s", caught.String())
			err = caught.Err().WithTextCode("JOB_PANIC")
		}
	}()
	return j.fn(ctx)
}

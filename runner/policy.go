package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goliatone/go-assistant"
	"github.com/goliatone/go-errors"
)

// ErrCodeRunFailed tags the error returned once a call gave up.
const ErrCodeRunFailed = "RUN_FAILED"

// Attempt describes one try of a call.
type Attempt struct {
	Policy  string
	N       int
	Err     error
	Elapsed time.Duration
	Retry   bool
	Delay   time.Duration
}

// Stats is a snapshot of the counters kept by a Handler.
type Stats struct {
	Calls     int    `json:"calls"`
	Failures  int    `json:"failures"`
	Attempts  int    `json:"attempts"`
	LastError string `json:"last_error,omitempty"`
}

// Handler is a call policy: every attempt gets its own timeout and failed
// attempts are retried while the strategy allows it and budget remains.
type Handler struct {
	name     string
	timeout  time.Duration
	retries  int
	strategy RetryStrategy
	sleep    func(context.Context, time.Duration) error
	observe  func(Attempt)
	logger   assistant.Logger

	mu    sync.Mutex
	stats Stats
}

// NewHandler builds a policy. Without options a call is tried once with no
// timeout of its own.
func NewHandler(opts ...Option) *Handler {
	h := &Handler{
		name:     "call",
		strategy: ClassifyingStrategy{},
		sleep:    wait,
		observe:  func(Attempt) {},
		logger:   assistant.NopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Name returns the policy name used in logs and error metadata.
func (h *Handler) Name() string {
	return h.name
}

// Run calls fn under the policy. The parent context bounds the whole call,
// including the waits between attempts.
func (h *Handler) Run(ctx context.Context, fn func(context.Context) error) error {
	var (
		err  error
		n    int
		last Attempt
	)
	for n = 1; ; n++ {
		started := time.Now()
		err = h.attempt(ctx, fn)
		last = Attempt{Policy: h.name, N: n, Err: err, Elapsed: time.Since(started)}
		if err == nil || n > h.retries || ctx.Err() != nil {
			h.observe(last)
			break
		}

		decision := h.strategy.Decide(n-1, err)
		last.Retry, last.Delay = decision.Retry, decision.Delay
		h.observe(last)
		if !decision.Retry {
			h.logger.Debug("%s: giving up after attempt %d: %v", h.name, n, err)
			break
		}
		h.logger.Warn("%s: attempt %d failed, retrying in %s: %v", h.name, n, decision.Delay, err)
		if decision.Delay > 0 {
			if h.sleep(ctx, decision.Delay) != nil {
				break
			}
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.stats.Calls++
	h.stats.Attempts += n
	if err == nil {
		return nil
	}
	h.stats.Failures++
	h.stats.LastError = err.Error()

	// nest the last error so its text code stays reachable through Unwrap
	failed := errors.New(fmt.Sprintf("%s failed after %d attempt(s)", h.name, n), errors.CategoryExternal).
		WithTextCode(ErrCodeRunFailed).
		WithMetadata(map[string]any{"policy": h.name, "attempts": n})
	failed.Source = err
	return failed
}

func (h *Handler) attempt(ctx context.Context, fn func(context.Context) error) error {
	if h.timeout <= 0 {
		return fn(ctx)
	}
	actx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	return fn(actx)
}

// Stats returns the counters collected so far.
func (h *Handler) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stats
}

// Call runs fn through h and returns its value on success.
func Call[R any](ctx context.Context, h *Handler, fn func(context.Context) (R, error)) (R, error) {
	var out R
	err := h.Run(ctx, func(ctx context.Context) error {
		r, err := fn(ctx)
		if err == nil {
			out = r
		}
		return err
	})
	return out, err
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

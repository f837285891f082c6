package runner

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-assistant"
)

// Option configures a Handler.
type Option func(*Handler)

// WithName labels the policy in logs, stats and errors.
func WithName(name string) Option {
	return func(h *Handler) {
		if name = strings.TrimSpace(name); name != "" {
			h.name = name
		}
	}
}

// WithTimeout bounds each attempt. Zero leaves attempts bounded only by the
// caller's context.
func WithTimeout(d time.Duration) Option {
	return func(h *Handler) {
		h.timeout = d
	}
}

// WithMaxRetries sets how many times a failed call is tried again.
func WithMaxRetries(n int) Option {
	return func(h *Handler) {
		h.retries = max(n, 0)
	}
}

func WithRetryStrategy(s RetryStrategy) Option {
	return func(h *Handler) {
		if s != nil {
			h.strategy = s
		}
	}
}

func WithLogger(l assistant.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithObserver is called after every attempt.
func WithObserver(fn func(Attempt)) Option {
	return func(h *Handler) {
		if fn != nil {
			h.observe = fn
		}
	}
}

// WithSleeper replaces the wait between attempts.
func WithSleeper(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(h *Handler) {
		if fn != nil {
			h.sleep = fn
		}
	}
}

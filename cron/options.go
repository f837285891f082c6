package cron

import (
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-assistant"
)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLocation sets the time zone expressions are evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithLogger routes scheduler and job diagnostics to logger.
func WithLogger(logger assistant.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithVerbose also logs the cron loop's wake ups and job starts.
func WithVerbose(verbose bool) Option {
	return func(s *Scheduler) {
		s.verbose = verbose
	}
}

// WithSeconds accepts a leading seconds field in expressions.
func WithSeconds() Option {
	return func(s *Scheduler) {
		s.seconds = true
	}
}

// WithErrorHandler receives failed runs instead of the logger.
func WithErrorHandler(fn func(name string, err error)) Option {
	return func(s *Scheduler) {
		s.onError = fn
	}
}

// cronLogger adapts assistant.Logger to the robfig/cron logger.
type cronLogger struct {
	logger  assistant.Logger
	verbose bool
}

func (l cronLogger) Info(msg string, kv ...any) {
	if l.verbose {
		l.logger.Debug("cron: %s %s", msg, pairs(kv))
	}
}

func (l cronLogger) Error(err error, msg string, kv ...any) {
	l.logger.Error("cron: %s: %v %s", msg, err, pairs(kv))
}

func pairs(kv []any) string {
	var b strings.Builder
	for i := 0; i+1 < len(kv); i += 2 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%v=%v", kv[i], kv[i+1])
	}
	return b.String()
}

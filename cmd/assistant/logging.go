package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/goliatone/go-assistant"
	"github.com/goliatone/go-assistant/config"
	"github.com/goliatone/go-logger/glog"
)

// glogLogger adapts a go-logger logger to assistant.Logger. Messages use
// printf verbs across the module, so they are formatted before handing
// them over.
type glogLogger struct {
	logger glog.Logger
}

func (l glogLogger) Trace(msg string, args ...any) { l.logger.Trace(format(msg, args)) }
func (l glogLogger) Debug(msg string, args ...any) { l.logger.Debug(format(msg, args)) }
func (l glogLogger) Info(msg string, args ...any)  { l.logger.Info(format(msg, args)) }
func (l glogLogger) Warn(msg string, args ...any)  { l.logger.Warn(format(msg, args)) }
func (l glogLogger) Error(msg string, args ...any) { l.logger.Error(format(msg, args)) }
func (l glogLogger) Fatal(msg string, args ...any) { l.logger.Fatal(format(msg, args)) }

func (l glogLogger) WithContext(ctx context.Context) assistant.Logger {
	return glogLogger{logger: l.logger.WithContext(ctx)}
}

func (l glogLogger) WithFields(fields map[string]any) assistant.Logger {
	if fl, ok := l.logger.(glog.FieldsLogger); ok {
		return glogLogger{logger: fl.WithFields(fields)}
	}
	return l
}

func format(msg string, args []any) string {
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}

// newLogger builds the binary logger from the log section.
func newLogger(cfg config.Log, w io.Writer) assistant.Logger {
	level := strings.ToLower(strings.TrimSpace(cfg.Level))
	if level == "" {
		level = "info"
	}
	var base glog.Logger
	if strings.EqualFold(cfg.Format, "json") {
		base = glog.NewLogger(
			glog.WithWriter(w),
			glog.WithLoggerTypeJSON(),
			glog.WithLevel(level),
		)
	} else {
		base = glog.NewLogger(
			glog.WithWriter(w),
			glog.WithLevel(level),
		)
	}
	return glogLogger{logger: base}
}

package assistant

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"
	"time"
)

// Logger is the runtime logging contract. Messages are printf formats.
type Logger interface {
	Trace(msg string, args ...any)
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Fatal(msg string, args ...any)
	WithContext(ctx context.Context) Logger
}

// FieldsLogger is implemented by loggers that carry structured fields.
type FieldsLogger interface {
	WithFields(map[string]any) Logger
}

// Level orders log severities.
type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var levelNames = [...]string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

func (l Level) String() string {
	if l < LevelTrace || l > LevelFatal {
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
	return levelNames[l]
}

// lineSink serializes writes from a logger and everything derived from it.
type lineSink struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *lineSink) writeLine(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	io.WriteString(s.w, line+"\n")
}

// FmtLogger writes plain text lines: timestamp, level, message, then sorted
// key=value fields. It is the fallback until a glog logger is wired in.
type FmtLogger struct {
	sink   *lineSink
	min    Level
	ctx    context.Context
	fields map[string]any
}

// NewFmtLogger logs everything to out, or to stdout when out is nil.
func NewFmtLogger(out io.Writer) *FmtLogger {
	if out == nil {
		out = os.Stdout
	}
	return &FmtLogger{sink: &lineSink{w: out}, ctx: context.Background()}
}

// AtLevel returns a logger that drops entries below min.
func (l *FmtLogger) AtLevel(min Level) *FmtLogger {
	cp := l.derive()
	cp.min = min
	return cp
}

func (l *FmtLogger) Trace(msg string, args ...any) { l.emit(LevelTrace, msg, args) }
func (l *FmtLogger) Debug(msg string, args ...any) { l.emit(LevelDebug, msg, args) }
func (l *FmtLogger) Info(msg string, args ...any)  { l.emit(LevelInfo, msg, args) }
func (l *FmtLogger) Warn(msg string, args ...any)  { l.emit(LevelWarn, msg, args) }
func (l *FmtLogger) Error(msg string, args ...any) { l.emit(LevelError, msg, args) }
func (l *FmtLogger) Fatal(msg string, args ...any) { l.emit(LevelFatal, msg, args) }

func (l *FmtLogger) WithContext(ctx context.Context) Logger {
	cp := l.derive()
	if ctx != nil {
		cp.ctx = ctx
	}
	return cp
}

func (l *FmtLogger) WithFields(fields map[string]any) Logger {
	cp := l.derive()
	if len(fields) > 0 {
		merged := maps.Clone(cp.fields)
		if merged == nil {
			merged = make(map[string]any, len(fields))
		}
		maps.Copy(merged, fields)
		cp.fields = merged
	}
	return cp
}

func (l *FmtLogger) derive() *FmtLogger {
	if l == nil || l.sink == nil {
		return NewFmtLogger(nil)
	}
	cp := *l
	return &cp
}

func (l *FmtLogger) emit(level Level, msg string, args []any) {
	if l == nil || l.sink == nil {
		l = NewFmtLogger(nil)
	}
	if level < l.min {
		return
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %-5s %s", time.Now().UTC().Format(time.RFC3339Nano), level, strings.TrimSpace(msg))
	for _, k := range slices.Sorted(maps.Keys(l.fields)) {
		fmt.Fprintf(&b, " %s=%v", k, l.fields[k])
	}
	l.sink.writeLine(b.String())
}

// NormalizeLogger returns logger, or a stdout FmtLogger when it is nil.
func NormalizeLogger(logger Logger) Logger {
	if logger == nil {
		return NewFmtLogger(nil)
	}
	return logger
}

// WithLoggerFields attaches fields when the logger supports them and returns
// it unchanged otherwise.
func WithLoggerFields(logger Logger, fields map[string]any) Logger {
	fl, ok := NormalizeLogger(logger).(FieldsLogger)
	if !ok {
		return logger
	}
	return fl.WithFields(fields)
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Trace(string, ...any)                 {}
func (NopLogger) Debug(string, ...any)                 {}
func (NopLogger) Info(string, ...any)                  {}
func (NopLogger) Warn(string, ...any)                  {}
func (NopLogger) Error(string, ...any)                 {}
func (NopLogger) Fatal(string, ...any)                 {}
func (n NopLogger) WithContext(context.Context) Logger { return n }

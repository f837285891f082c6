package events

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/goliatone/go-assistant"
)

// LoggerAdapter exposes an assistant.Logger as a watermill logger.
type LoggerAdapter struct {
	logger assistant.Logger
	fields watermill.LogFields
}

// NewLoggerAdapter wraps logger.
func NewLoggerAdapter(logger assistant.Logger) *LoggerAdapter {
	return &LoggerAdapter{logger: assistant.NormalizeLogger(logger)}
}

func (l *LoggerAdapter) Error(msg string, err error, fields watermill.LogFields) {
	l.logger.Error("%s err=%v%s", msg, err, l.format(fields))
}

func (l *LoggerAdapter) Info(msg string, fields watermill.LogFields) {
	l.logger.Info("%s%s", msg, l.format(fields))
}

func (l *LoggerAdapter) Debug(msg string, fields watermill.LogFields) {
	l.logger.Debug("%s%s", msg, l.format(fields))
}

func (l *LoggerAdapter) Trace(msg string, fields watermill.LogFields) {
	l.logger.Trace("%s%s", msg, l.format(fields))
}

func (l *LoggerAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &LoggerAdapter{logger: l.logger, fields: l.fields.Add(fields)}
}

func (l *LoggerAdapter) format(fields watermill.LogFields) string {
	all := l.fields.Add(fields)
	if len(all) == 0 {
		return ""
	}
	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%v", k, all[k])
	}
	return sb.String()
}

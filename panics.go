package assistant

import (
	"fmt"
	"maps"
	"runtime"
	"slices"
	"strings"

	"github.com/goliatone/go-errors"
)

// ErrCodePanic tags errors built from a recovered panic.
const ErrCodePanic = "PANIC"

// Recovered is a panic caught at a containment boundary, e.g. one primitive
// during a render or one scheduled job run.
type Recovered struct {
	Where  string
	Value  any
	Fields map[string]any
	Stack  []byte
}

// CapturePanic records value with the stack of the goroutine that panicked.
// Call it from the deferred function that called recover.
func CapturePanic(where string, value any, fields map[string]any) Recovered {
	buf := make([]byte, 8<<10)
	buf = buf[:runtime.Stack(buf, false)]
	return Recovered{Where: where, Value: value, Fields: fields, Stack: trimPanicFrames(buf)}
}

// String renders the panic on one line followed by its stack.
func (r Recovered) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "recovered from panic in %s: %v (%T)", r.Where, r.Value, r.Value)
	for _, k := range slices.Sorted(maps.Keys(r.Fields)) {
		fmt.Fprintf(&sb, " %s=%v", k, r.Fields[k])
	}
	if len(r.Stack) > 0 {
		sb.WriteByte('\n')
		sb.Write(r.Stack)
	}
	return sb.String()
}

// Err converts the panic into an internal error carrying ErrCodePanic. The
// stack is left out.
func (r Recovered) Err() *errors.Error {
	meta := map[string]any{"where": r.Where}
	maps.Copy(meta, r.Fields)
	return errors.New(fmt.Sprintf("panic in %s: %v", r.Where, r.Value), errors.CategoryInternal).
		WithTextCode(ErrCodePanic).
		WithMetadata(meta)
}

// PanicLogger receives recovered panics.
type PanicLogger func(Recovered)

// LogPanics writes recovered panics to logger at error level.
func LogPanics(logger Logger) PanicLogger {
	logger = NormalizeLogger(logger)
	return func(r Recovered) {
		logger.Error("%s", r.String())
	}
}

// trimPanicFrames drops the frames above the panic call so the stack starts at
// the code that panicked.
func trimPanicFrames(stack []byte) []byte {
	lines := strings.Split(string(stack), "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "panic(") && i+2 < len(lines) {
			return []byte(strings.Join(lines[i+2:], "\n"))
		}
	}
	return stack
}

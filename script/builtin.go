package script

import (
	"sync"

	"github.com/goliatone/go-assistant/data"
)

var (
	builtinOnce sync.Once
	builtinRepo *Repository
	builtinErr  error
)

// Builtin returns the repository holding the embedded demo scripts and
// canned responses. It is loaded once and shared.
func Builtin() (*Repository, error) {
	builtinOnce.Do(func() {
		builtinRepo, builtinErr = Load(data.ScriptsFS())
	})
	return builtinRepo, builtinErr
}

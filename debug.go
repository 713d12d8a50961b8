package reverie

import (
	"fmt"
	"os"
	"sync/atomic"
)

var debugMode atomic.Bool

// SetDebugMode turns on runtime self-checks and stderr diagnostics.
func SetDebugMode(on bool) { debugMode.Store(on) }

// DebugMode reports whether debug mode is on.
func DebugMode() bool { return debugMode.Load() }

func debugf(format string, args ...any) {
	if !debugMode.Load() {
		return
	}
	_, _ = fmt.Fprintf(os.Stderr, "[reverie] "+format+"\n", args...)
}

// debugCheckAction panics on an action outside the vocabulary. Only called
// in debug mode; release builds log and skip.
func debugCheckAction(a Action) {
	if !a.Kind().Valid() {
		panic(fmt.Sprintf("reverie debug: unknown action %q from scene %q (node %s)",
			a.Kind(), a.Callee().Name, a.ID()))
	}
}

// debugCheckQueueLength warns on stderr if the pending queue grows past the
// threshold, which usually means a scene jumps to itself through a cycle of
// builders.
const debugMaxQueueLength = 10000

func debugCheckQueueLength(n int) {
	if n > debugMaxQueueLength {
		debugf("warning: %d queued actions exceed %d", n, debugMaxQueueLength)
	}
}

// Package telemetry provides the package-wide structured logger used by
// executor and task to report conditions a caller cannot observe through a
// Result alone (inline-after-shutdown execution, a periodic task's
// execution time overflowing).
//
// A single global logger is appropriate here for the same reason the
// original event loop module used one: these are infrastructure-level
// conditions shared across every Executor/Task instance in a process,
// not per-instance configuration.
package telemetry

import (
	"sync"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

var global struct {
	sync.RWMutex
	logger *logiface.Logger[*stumpy.Event]
}

func init() {
	global.logger = stumpy.L.New(stumpy.L.WithStumpy())
}

// SetLogger replaces the package-wide logger. Intended to be called once,
// during process startup, e.g. to redirect output or change the level.
func SetLogger(l *logiface.Logger[*stumpy.Event]) {
	global.Lock()
	global.logger = l
	global.Unlock()
}

// L returns the current package-wide logger.
func L() *logiface.Logger[*stumpy.Event] {
	global.RLock()
	defer global.RUnlock()
	return global.logger
}

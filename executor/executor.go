// Package executor defines the Executor abstraction tasks run on, and
// provides ThreadPool, a fixed-size worker pool grounded directly on the
// original design's thread pool algorithm.
package executor

import (
	"github.com/qorix-group/baselibs-sub000/stoptoken"
	"github.com/qorix-group/baselibs-sub000/task"
)

// Executor runs Tasks, possibly concurrently, possibly later.
type Executor interface {
	// Post schedules t to run. Once ShutdownRequested is true, an
	// implementation may run t inline, synchronously, instead of queuing it.
	Post(t task.Task)
	// MaxConcurrencyLevel reports the largest number of Tasks this Executor
	// can run at the same instant.
	MaxConcurrencyLevel() int
	// ShutdownRequested reports whether Shutdown has been called.
	ShutdownRequested() bool
	// Shutdown requests every in-flight Task to stop and stops accepting new
	// work for deferred execution. ThreadPool.Shutdown also blocks until
	// every worker has returned; LongRunning.Shutdown does not (see
	// LongRunning.Wait). It is safe to call more than once.
	Shutdown()
}

// PostFunc wraps fn in a fire-and-forget task.SimpleTask and posts it to e.
// Use Submit instead when the result is needed.
func PostFunc(e Executor, fn func(stoptoken.Token)) {
	t, _ := task.NewSimple(func(token stoptoken.Token) struct{} {
		fn(token)
		return struct{}{}
	})
	e.Post(t)
}

// Submit wraps fn in a task.SimpleTask, posts it to e, and returns its
// Result.
func Submit[T any](e Executor, fn func(stoptoken.Token) T) task.Result[T] {
	t, result := task.NewSimple(fn)
	e.Post(t)
	return result
}

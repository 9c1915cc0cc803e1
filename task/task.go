// Package task defines the unit of work accepted by an Executor: a Task
// that can be run exactly once and cooperatively cancelled, plus a Result
// facade over the Future/Promise pair it publishes into.
package task

import (
	"time"

	"github.com/qorix-group/baselibs-sub000/clock"
	"github.com/qorix-group/baselibs-sub000/future"
	"github.com/qorix-group/baselibs-sub000/stoptoken"
)

// Task is a unit of work an Executor can run. Executors call Run with the
// token of the task's own StopSource, not the executor's shutdown token,
// and propagate their own shutdown by requesting stop on the task's
// StopSource. The one exception is executor.LongRunning's
// inline-after-shutdown path, which passes its own stop-requested token.
type Task interface {
	Run(token stoptoken.Token)
	StopSource() stoptoken.Source
}

// TimedTask is a Task scheduled to run at a specific point in time, and
// potentially again afterwards. NextExecutionPoint reports the deadline of
// the next run, or false once the task has nothing left to do (either it
// completed, or its stop source was requested).
type TimedTask interface {
	Task
	NextExecutionPoint() (time.Time, bool)
}

// Result is a facade over the Future a Task publishes into and the
// StopSource used to cooperatively cancel it. Waits on a Result take no
// cancellation token (they use stoptoken.None): Get and Wait block until
// the task publishes a result or its promise is broken, and only WaitFor
// and WaitUntil are bounded in time.
type Result[T any] struct {
	future future.Future[T]
	src    stoptoken.Source
}

func newResult[T any](f future.Future[T], src stoptoken.Source) Result[T] {
	return Result[T]{future: f, src: src}
}

// Abort cooperatively requests that the underlying task stop. There is no
// guarantee the task actually stops promptly, or at all - it must still
// observe its token.
func (r Result[T]) Abort() {
	r.src.RequestStop()
}

// Aborted reports whether Abort was called.
func (r Result[T]) Aborted() bool {
	return r.src.StopRequested()
}

// Valid reports whether r has an unconsumed result still to retrieve.
func (r Result[T]) Valid() bool {
	return r.future.Valid()
}

// Get blocks until the task completes and returns its result.
func (r Result[T]) Get() (T, error) {
	return r.future.Get(stoptoken.None)
}

// Wait blocks until the task completes.
func (r Result[T]) Wait() error {
	return r.future.Wait(stoptoken.None)
}

// WaitFor blocks until the task completes or d elapses.
func (r Result[T]) WaitFor(clk clock.Clock, d time.Duration) error {
	return r.future.WaitFor(clk, d, stoptoken.None)
}

// WaitUntil blocks until the task completes or the clock reaches deadline.
func (r Result[T]) WaitUntil(clk clock.Clock, deadline time.Time) error {
	return r.future.WaitUntil(clk, deadline, stoptoken.None)
}

// Then registers a continuation for the task's eventual result.
func (r Result[T]) Then(cb func(future.Result[T])) {
	r.future.Then(cb)
}

// Share converts r into a SharedResult that may be read by multiple
// waiters. It consumes r.
func (r Result[T]) Share() (SharedResult[T], error) {
	sf, err := r.future.Share()
	if err != nil {
		return SharedResult[T]{}, err
	}
	return SharedResult[T]{future: sf, src: r.src}, nil
}

// SharedResult is the Share()-d form of Result: any number of goroutines
// may Get or Wait on it, any number of times.
type SharedResult[T any] struct {
	future future.SharedFuture[T]
	src    stoptoken.Source
}

func (r SharedResult[T]) Abort() {
	r.src.RequestStop()
}

func (r SharedResult[T]) Aborted() bool {
	return r.src.StopRequested()
}

func (r SharedResult[T]) Valid() bool {
	return r.future.Valid()
}

func (r SharedResult[T]) Get() (T, error) {
	return r.future.Get(stoptoken.None)
}

func (r SharedResult[T]) Wait() error {
	return r.future.Wait(stoptoken.None)
}

func (r SharedResult[T]) WaitFor(clk clock.Clock, d time.Duration) error {
	return r.future.WaitFor(clk, d, stoptoken.None)
}

func (r SharedResult[T]) WaitUntil(clk clock.Clock, deadline time.Time) error {
	return r.future.WaitUntil(clk, deadline, stoptoken.None)
}

func (r SharedResult[T]) Then(cb func(future.Result[T])) {
	r.future.Then(cb)
}

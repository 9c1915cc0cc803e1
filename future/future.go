package future

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/qorix-group/baselibs-sub000/clock"
	"github.com/qorix-group/baselibs-sub000/futerr"
	"github.com/qorix-group/baselibs-sub000/stoptoken"
)

// futureHandle is the single reference-counted, GC-tracked anchor shared by
// every copy of a Future value. Go structs copy by value, but every copy
// of a Future still points at the same handle, so the move-only semantics
// of the original degrade gracefully into "first Get/Share wins" rather
// than a compile error.
type futureHandle[T any] struct {
	state    *sharedState[T]
	consumed atomic.Bool
}

func newFuture[T any](state *sharedState[T]) Future[T] {
	state.registerFuture()
	h := &futureHandle[T]{state: state}
	runtime.SetFinalizer(h, (*futureHandle[T]).finalize)
	return Future[T]{h: h}
}

func (h *futureHandle[T]) finalize() {
	h.state.unregisterFuture()
}

// steal marks the handle consumed and detaches it from its finalizer,
// transferring the single logical reference to the caller. Returns nil if
// the handle was already consumed (by an earlier Get or Share).
func (h *futureHandle[T]) steal() *sharedState[T] {
	if h.consumed.Swap(true) {
		return nil
	}
	runtime.SetFinalizer(h, nil)
	return h.state
}

// Future is the read end of a one-shot cancellable rendezvous, obtained
// from Promise.GetFuture. Its zero value has no associated state, and
// every operation on it reports futerr.NoState.
type Future[T any] struct {
	h *futureHandle[T]
}

func (f Future[T]) state() *sharedState[T] {
	if f.h == nil {
		return nil
	}
	return f.h.state
}

// Valid reports whether f has an associated shared state that has not yet
// been consumed by Get or Share.
func (f Future[T]) Valid() bool {
	return f.h != nil && !f.h.consumed.Load()
}

// Wait blocks until the promise publishes a result or token fires.
func (f Future[T]) Wait(token stoptoken.Token) error {
	state := f.state()
	if state == nil || f.h.consumed.Load() {
		return futerr.NoState
	}
	ready := state.wait(token)
	return waitOutcome(ready, token)
}

// WaitFor blocks until the promise publishes a result, d elapses, or token
// fires.
func (f Future[T]) WaitFor(clk clock.Clock, d time.Duration, token stoptoken.Token) error {
	state := f.state()
	if state == nil || f.h.consumed.Load() {
		return futerr.NoState
	}
	ready := state.waitFor(clk, d, token)
	return waitOutcome(ready, token)
}

// WaitUntil blocks until the promise publishes a result, the clock reaches
// deadline, or token fires.
func (f Future[T]) WaitUntil(clk clock.Clock, deadline time.Time, token stoptoken.Token) error {
	state := f.state()
	if state == nil || f.h.consumed.Load() {
		return futerr.NoState
	}
	ready := state.waitUntil(clk, deadline, token)
	return waitOutcome(ready, token)
}

// Get waits for the result and consumes the future: a second call, or a
// call after Share, returns futerr.NoState. On success it returns the
// published value; on a published error it returns the zero value and that
// error.
func (f Future[T]) Get(token stoptoken.Token) (T, error) {
	var zero T
	state := f.state()
	if state == nil || f.h.consumed.Load() {
		return zero, futerr.NoState
	}
	ready := state.wait(token)
	if err := waitOutcome(ready, token); err != nil {
		return zero, err
	}
	if f.h.steal() == nil {
		return zero, futerr.NoState
	}
	state.unregisterFuture()
	result := state.result()
	if result.IsError {
		return zero, result.Err
	}
	return result.Value, nil
}

// Then registers a continuation to run with the eventual Result, exactly
// once, either synchronously (if already resolved, or if f has no state)
// or on whichever goroutine publishes the result. Then does not consume f.
func (f Future[T]) Then(cb func(Result[T])) {
	if cb == nil {
		return
	}
	state := f.state()
	if state == nil {
		cb(Result[T]{Err: futerr.NoState, IsError: true})
		return
	}
	state.then(cb)
}

// Share converts f into a SharedFuture, which may be copied and read by
// multiple waiters. It consumes f: a later Get or Share on f returns
// futerr.NoState.
func (f Future[T]) Share() (SharedFuture[T], error) {
	state := f.state()
	if state == nil {
		return SharedFuture[T]{}, futerr.NoState
	}
	stolen := f.h.steal()
	if stolen == nil {
		return SharedFuture[T]{}, futerr.NoState
	}
	return newSharedFuture(stolen), nil
}

package future

import (
	"runtime"
	"time"

	"github.com/qorix-group/baselibs-sub000/clock"
	"github.com/qorix-group/baselibs-sub000/futerr"
	"github.com/qorix-group/baselibs-sub000/stoptoken"
)

// sharedFutureHandle anchors every copy of a SharedFuture derived from the
// same Future.Share call. Go copies SharedFuture by value, so every copy
// shares this one handle; its finalizer - and so the abort accounting it
// backs - only fires once the last copy becomes unreachable, which is
// exactly the "last reference dropped" moment a C++ shared_future's
// per-copy reference counting is built to detect.
type sharedFutureHandle[T any] struct {
	state *sharedState[T]
}

func newSharedFuture[T any](state *sharedState[T]) SharedFuture[T] {
	h := &sharedFutureHandle[T]{state: state}
	runtime.SetFinalizer(h, (*sharedFutureHandle[T]).finalize)
	return SharedFuture[T]{h: h}
}

func (h *sharedFutureHandle[T]) finalize() {
	h.state.unregisterFuture()
}

// SharedFuture is a Future that may be read by more than one waiter,
// obtained by calling Future.Share. Unlike Future, Get does not consume the
// result: any number of goroutines may read it any number of times.
type SharedFuture[T any] struct {
	h *sharedFutureHandle[T]
}

func (f SharedFuture[T]) state() *sharedState[T] {
	if f.h == nil {
		return nil
	}
	return f.h.state
}

// Valid reports whether f has an associated shared state.
func (f SharedFuture[T]) Valid() bool {
	return f.h != nil
}

// Wait blocks until the promise publishes a result or token fires.
func (f SharedFuture[T]) Wait(token stoptoken.Token) error {
	state := f.state()
	if state == nil {
		return futerr.NoState
	}
	return waitOutcome(state.wait(token), token)
}

// WaitFor blocks until the promise publishes a result, d elapses, or token
// fires.
func (f SharedFuture[T]) WaitFor(clk clock.Clock, d time.Duration, token stoptoken.Token) error {
	state := f.state()
	if state == nil {
		return futerr.NoState
	}
	return waitOutcome(state.waitFor(clk, d, token), token)
}

// WaitUntil blocks until the promise publishes a result, the clock reaches
// deadline, or token fires.
func (f SharedFuture[T]) WaitUntil(clk clock.Clock, deadline time.Time, token stoptoken.Token) error {
	state := f.state()
	if state == nil {
		return futerr.NoState
	}
	return waitOutcome(state.waitUntil(clk, deadline, token), token)
}

// Get waits for the result and returns it without consuming the future: it
// may be called again, from this or any other copy of f, any number of
// times.
func (f SharedFuture[T]) Get(token stoptoken.Token) (T, error) {
	var zero T
	state := f.state()
	if state == nil {
		return zero, futerr.NoState
	}
	ready := state.wait(token)
	if err := waitOutcome(ready, token); err != nil {
		return zero, err
	}
	result := state.result()
	if result.IsError {
		return zero, result.Err
	}
	return result.Value, nil
}

// Then registers a continuation to run with the eventual Result, exactly
// once, either synchronously (if already resolved, or if f has no state)
// or on whichever goroutine publishes the result.
func (f SharedFuture[T]) Then(cb func(Result[T])) {
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

// Package future implements cancellable, reference-counted futures and
// promises: a close cousin of std::future/std::promise that additionally
// lets a blocked Get/Wait be interrupted by a stoptoken.Token, and that
// notifies an interested promise when every outstanding future was dropped
// before a value was ever published.
package future

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/qorix-group/baselibs-sub000/clock"
	"github.com/qorix-group/baselibs-sub000/futerr"
	"github.com/qorix-group/baselibs-sub000/intsync"
	"github.com/qorix-group/baselibs-sub000/stoptoken"
)

// Result is the outcome observed by a future: exactly one of Value or Err
// is meaningful, discriminated by IsError.
type Result[T any] struct {
	Value   T
	Err     futerr.Error
	IsError bool
}

// sharedState is the rendezvous point between a Promise and every Future or
// SharedFuture derived from it. It outlives both ends individually; it is
// kept alive by Go's garbage collector for as long as any handle, including
// continuations, references it, so it carries no C++-style shared_ptr.
type sharedState[T any] struct {
	mu    sync.Mutex
	ready bool
	cond  *intsync.Cond

	valueSet atomic.Bool
	value    T
	err      futerr.Error
	isError  bool

	refCount atomic.Int32

	callbackMu sync.Mutex
	onAbort    func()
	abortFired bool

	continuationMu sync.Mutex
	triggered      bool
	continuations  []func(Result[T])
}

func newSharedState[T any]() *sharedState[T] {
	return &sharedState[T]{cond: intsync.NewCond()}
}

// registerFuture records a new outstanding reference to the state. It must
// be balanced by a later unregisterFuture, or the abort callback can never
// fire once the promise side gives up on the value.
func (s *sharedState[T]) registerFuture() {
	if n := s.refCount.Add(1); n < 0 {
		panic("future: reference count overflow")
	}
}

// unregisterFuture drops one outstanding reference. Once the last one is
// gone without the state ever becoming ready, the registered abort callback
// (if any) fires exactly once.
//
// If setting the value races with the last future being dropped, it is
// unspecified whether the callback fires: the promise side has already
// committed to a result by the time that race is possible, so there is
// nothing left for it to abort.
func (s *sharedState[T]) unregisterFuture() {
	before := s.refCount.Add(-1) + 1
	if before <= 0 {
		panic("future: reference count underflow")
	}
	if before == 1 {
		s.fireAbort()
	}
}

func (s *sharedState[T]) fireAbort() {
	s.mu.Lock()
	ready := s.ready
	s.mu.Unlock()
	if ready {
		return
	}

	s.callbackMu.Lock()
	if s.abortFired {
		s.callbackMu.Unlock()
		return
	}
	s.abortFired = true
	cb := s.onAbort
	s.onAbort = nil
	s.callbackMu.Unlock()

	if cb != nil {
		cb()
	}
}

// setOnAbort installs cb as the promise's abort callback. If every future
// has already been dropped and the state never became ready, cb runs
// immediately, synchronously, on the calling goroutine.
func (s *sharedState[T]) setOnAbort(cb func()) {
	s.callbackMu.Lock()
	if s.abortFired {
		s.callbackMu.Unlock()
		if cb != nil {
			cb()
		}
		return
	}
	s.onAbort = cb
	s.callbackMu.Unlock()
}

// commit publishes v (or err, when isError) as the one and only result.
// Returns futerr.PromiseAlreadySatisfied if a result was already published.
func (s *sharedState[T]) commit(v T, err futerr.Error, isError bool) error {
	if s.valueSet.Swap(true) {
		return futerr.PromiseAlreadySatisfied
	}

	s.mu.Lock()
	s.value = v
	s.err = err
	s.isError = isError
	s.ready = true
	s.mu.Unlock()
	s.cond.NotifyAll()

	s.fireContinuations()
	return nil
}

func (s *sharedState[T]) fireContinuations() {
	s.continuationMu.Lock()
	s.triggered = true
	cbs := s.continuations
	s.continuations = nil
	result := s.resultLocked()
	s.continuationMu.Unlock()

	for _, cb := range cbs {
		cb(result)
	}
}

func (s *sharedState[T]) resultLocked() Result[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Result[T]{Value: s.value, Err: s.err, IsError: s.isError}
}

// then registers cb to run exactly once, with the eventual result. If the
// state is already resolved, cb runs synchronously, right away.
func (s *sharedState[T]) then(cb func(Result[T])) {
	s.continuationMu.Lock()
	if s.triggered {
		result := s.resultLocked()
		s.continuationMu.Unlock()
		cb(result)
		return
	}
	s.continuations = append(s.continuations, cb)
	s.continuationMu.Unlock()
}

func (s *sharedState[T]) isReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

func (s *sharedState[T]) result() Result[T] {
	return s.resultLocked()
}

// wait blocks until ready or token fires, reporting which happened.
func (s *sharedState[T]) wait(token stoptoken.Token) (ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cond.Wait(&s.mu, token, func() bool { return s.ready })
}

func (s *sharedState[T]) waitUntil(clk clock.Clock, deadline time.Time, token stoptoken.Token) (ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cond.WaitUntil(&s.mu, token, clk, deadline, func() bool { return s.ready })
}

func (s *sharedState[T]) waitFor(clk clock.Clock, d time.Duration, token stoptoken.Token) (ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cond.WaitFor(&s.mu, token, clk, d, func() bool { return s.ready })
}

// waitOutcome mirrors the original implementation's strategy: a stop
// request observed after the wait returns always wins over a late success,
// and only after that does a plain timeout get reported.
func waitOutcome(ready bool, token stoptoken.Token) error {
	if token.StopRequested() {
		return futerr.StopRequested
	}
	if !ready {
		return futerr.Timeout
	}
	return nil
}

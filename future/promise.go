package future

import (
	"runtime"
	"sync"

	"github.com/qorix-group/baselibs-sub000/futerr"
)

// Promise is the write end of a one-shot, cancellable rendezvous. Exactly
// one of SetValue or SetError may ever succeed; every later attempt
// observes futerr.PromiseAlreadySatisfied. The zero Promise is not usable;
// construct one with New.
type Promise[T any] struct {
	mu        sync.Mutex
	state     *sharedState[T]
	retrieved bool
}

// New creates a Promise with a fresh shared state. If the promise is
// garbage collected without ever publishing a value, and a future is still
// waiting on it, the wait unblocks with futerr.PromiseBroken - mirroring
// the broken-promise behaviour of a destroyed std::promise, on a backstop
// basis since Go has no deterministic destructors.
func New[T any]() *Promise[T] {
	p := &Promise[T]{state: newSharedState[T]()}
	runtime.SetFinalizer(p, (*Promise[T]).finalize)
	return p
}

func (p *Promise[T]) finalize() {
	p.mu.Lock()
	state := p.state
	p.mu.Unlock()
	if state == nil {
		return
	}
	if !state.isReady() {
		_ = state.commit(*new(T), futerr.PromiseBroken, true)
	}
}

// GetFuture returns the single Future associated with this promise. A
// second call returns futerr.FutureAlreadyRetrieved.
func (p *Promise[T]) GetFuture() (Future[T], error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == nil {
		return Future[T]{}, futerr.NoState
	}
	if p.retrieved {
		return Future[T]{}, futerr.FutureAlreadyRetrieved
	}
	p.retrieved = true
	return newFuture(p.state), nil
}

// SetValue publishes v as the promise's result. Returns
// futerr.PromiseAlreadySatisfied if a result was already published.
func (p *Promise[T]) SetValue(v T) error {
	p.mu.Lock()
	state := p.state
	p.mu.Unlock()
	if state == nil {
		return futerr.NoState
	}
	return state.commit(v, 0, false)
}

// SetError publishes e as the promise's result. Returns
// futerr.PromiseAlreadySatisfied if a result was already published.
func (p *Promise[T]) SetError(e futerr.Error) error {
	p.mu.Lock()
	state := p.state
	p.mu.Unlock()
	if state == nil {
		return futerr.NoState
	}
	var zero T
	return state.commit(zero, e, true)
}

// OnAbort registers cb to run if every Future derived from this promise is
// dropped before a result is ever published. Only the most recently
// registered callback is kept. If every future has already been dropped,
// cb runs synchronously, immediately.
func (p *Promise[T]) OnAbort(cb func()) error {
	p.mu.Lock()
	state := p.state
	p.mu.Unlock()
	if state == nil {
		return futerr.NoState
	}
	state.setOnAbort(cb)
	return nil
}

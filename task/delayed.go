package task

import (
	"time"

	"github.com/qorix-group/baselibs-sub000/future"
	"github.com/qorix-group/baselibs-sub000/stoptoken"
)

// delayedTask runs its callable exactly once, at (or after) a fixed point
// in time, then reports no further execution point.
type delayedTask[T any] struct {
	fn      func(token stoptoken.Token, at time.Time) T
	at      time.Time
	promise *future.Promise[T]
	src     stoptoken.Source
}

// NewDelayed builds a TimedTask whose single execution is scheduled at at.
// The callable receives the execution time actually assigned, which lets
// callers detect scheduling slip.
func NewDelayed[T any](at time.Time, fn func(token stoptoken.Token, at time.Time) T) (TimedTask, Result[T]) {
	p := future.New[T]()
	f, _ := p.GetFuture()
	t := &delayedTask[T]{
		fn:      fn,
		at:      at,
		promise: p,
		src:     stoptoken.NewSource(),
	}
	return t, newResult(f, t.src)
}

func (t *delayedTask[T]) Run(token stoptoken.Token) {
	if at, ok := t.NextExecutionPoint(); ok {
		_ = t.promise.SetValue(t.fn(token, at))
	}
	t.src.RequestStop()
}

func (t *delayedTask[T]) NextExecutionPoint() (time.Time, bool) {
	if t.src.StopRequested() {
		return time.Time{}, false
	}
	return t.at, true
}

func (t *delayedTask[T]) StopSource() stoptoken.Source {
	return t.src
}

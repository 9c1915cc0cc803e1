package task

import (
	"github.com/qorix-group/baselibs-sub000/future"
	"github.com/qorix-group/baselibs-sub000/stoptoken"
)

// simpleTask wraps any func(stoptoken.Token) T as a Task that publishes the
// callable's return value into its Result on completion.
type simpleTask[T any] struct {
	fn      func(stoptoken.Token) T
	promise *future.Promise[T]
	src     stoptoken.Source
}

// NewSimple builds a one-shot Task from fn, run exactly once whenever an
// Executor picks it up.
func NewSimple[T any](fn func(stoptoken.Token) T) (Task, Result[T]) {
	p := future.New[T]()
	f, _ := p.GetFuture()
	t := &simpleTask[T]{
		fn:      fn,
		promise: p,
		src:     stoptoken.NewSource(),
	}
	return t, newResult(f, t.src)
}

func (t *simpleTask[T]) Run(token stoptoken.Token) {
	_ = t.promise.SetValue(t.fn(token))
}

func (t *simpleTask[T]) StopSource() stoptoken.Source {
	return t.src
}

// Package stoptoken provides a cooperative cancellation primitive: a
// [Source] that can request a stop exactly once, and a [Token] read-side
// handle that can be polled or subscribed to via a callback.
//
// It plays the same role in this module that score::cpp::stop_source and
// score::cpp::stop_token play in the original C++ design: every [Token] is
// distinct from a caller's own wait handle, and cancelling a task's source
// never implicitly cancels anything a caller happens to be waiting on.
package stoptoken

import "sync"

// state is the shared stop state behind a Source/Token pair.
type state struct {
	mu        sync.Mutex
	requested bool
	callbacks []func()
}

// Source is the write side of a stop signal. It is safe for concurrent use
// and may be shared by copying the Source value itself (it wraps a pointer).
type Source struct {
	s *state
}

// NewSource creates a fresh, not-yet-requested stop source.
func NewSource() Source {
	return Source{s: &state{}}
}

// Token returns the read-side handle backed by this source.
func (src Source) Token() Token {
	return Token{s: src.s}
}

// RequestStop fires the stop signal. Returns true if this call was the one
// that transitioned the source from not-requested to requested; false if the
// source had already been requested to stop (callbacks fire at most once,
// on the first successful call only). A zero-value Source is a no-op and
// always returns false.
func (src Source) RequestStop() bool {
	if src.s == nil {
		return false
	}
	src.s.mu.Lock()
	if src.s.requested {
		src.s.mu.Unlock()
		return false
	}
	src.s.requested = true
	callbacks := src.s.callbacks
	src.s.callbacks = nil
	src.s.mu.Unlock()

	for _, cb := range callbacks {
		if cb != nil {
			cb()
		}
	}
	return true
}

// StopRequested reports whether RequestStop has been called.
func (src Source) StopRequested() bool {
	if src.s == nil {
		return false
	}
	src.s.mu.Lock()
	defer src.s.mu.Unlock()
	return src.s.requested
}

// Token is the read side of a stop signal: pollable, and supports
// registering callbacks that fire exactly once, on the first stop request.
type Token struct {
	s *state
}

// None is a Token that can never be cancelled; StopRequested always
// returns false and OnStop never invokes its callback. Useful as a default
// argument in APIs that accept a Token.
var None = Token{}

// StopRequested reports whether the backing source has requested a stop.
func (t Token) StopRequested() bool {
	if t.s == nil {
		return false
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.s.requested
}

// Stoppable reports whether this token is backed by a real Source, i.e. is
// not the zero-value Token (equivalent to score::cpp::stop_token::stop_possible()).
func (t Token) Stoppable() bool {
	return t.s != nil
}

// OnStop registers cb to run exactly once, the first time the backing
// source's stop is requested. If stop has already been requested, cb runs
// synchronously before OnStop returns. A nil cb, or a Token with no backing
// Source, is a no-op. The returned cancel function removes cb from the
// pending callback list if it has not fired yet; calling it after cb has
// already fired is harmless.
func (t Token) OnStop(cb func()) (cancel func()) {
	if cb == nil || t.s == nil {
		return func() {}
	}

	t.s.mu.Lock()
	if t.s.requested {
		t.s.mu.Unlock()
		cb()
		return func() {}
	}

	t.s.callbacks = append(t.s.callbacks, cb)
	idx := len(t.s.callbacks) - 1
	t.s.mu.Unlock()

	return func() {
		t.s.mu.Lock()
		defer t.s.mu.Unlock()
		if idx < len(t.s.callbacks) {
			t.s.callbacks[idx] = nil
		}
	}
}

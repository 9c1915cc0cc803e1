// Package intsync provides synchronization primitives that integrate a
// [stoptoken.Token] so that a wait can be unblocked either by notification,
// by timeout, or by cancellation, without losing wake-ups or deadlocking on
// Close.
package intsync

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/qorix-group/baselibs-sub000/clock"
	"github.com/qorix-group/baselibs-sub000/stoptoken"
)

// Cond is an interruption-aware condition variable. It wraps an internal
// sync.Cond rather than the caller's own lock, because the caller's lock may
// be of any sync.Locker shape; cancellation state can change asynchronously,
// so it has to be guarded by a mutex the same way a plain predicate would be,
// and the only mutex this type can safely take that way is its own.
//
// A zero-value Cond is not usable; construct one with NewCond.
type Cond struct {
	internalMu sync.Mutex
	internalCv *sync.Cond
	entries    atomic.Int64
}

// NewCond creates a ready-to-use interruptible condition variable.
func NewCond() *Cond {
	c := &Cond{}
	c.internalCv = sync.NewCond(&c.internalMu)
	return c
}

// NotifyOne unblocks one waiter, if any are blocked on this Cond.
func (c *Cond) NotifyOne() {
	c.internalMu.Lock()
	c.internalCv.Signal()
	c.internalMu.Unlock()
}

// NotifyAll unblocks all current waiters.
func (c *Cond) NotifyAll() {
	c.internalMu.Lock()
	c.internalCv.Broadcast()
	c.internalMu.Unlock()
}

// Wait blocks, releasing lock for the duration, until pred returns true or
// token is stop-requested. lock must be held by the caller on entry and is
// held again on return. Returns pred's value at the point Wait decided to
// return: true means pred was satisfied, false means cancellation won.
func (c *Cond) Wait(lock sync.Locker, token stoptoken.Token, pred func() bool) bool {
	c.entries.Add(1)
	defer c.entries.Add(-1)

	if token.StopRequested() {
		return pred()
	}

	cancel := token.OnStop(c.NotifyAll)
	defer cancel()

	for !pred() {
		c.internalMu.Lock()
		if token.StopRequested() {
			c.internalMu.Unlock()
			return false
		}
		lock.Unlock()
		c.internalCv.Wait()
		c.internalMu.Unlock()
		lock.Lock()
	}
	return true
}

// WaitUntil blocks until pred returns true, the clock reaches deadline, or
// token is cancelled. Returns true if pred was observed true, false if the
// deadline was reached or cancellation won first (mirroring Wait). If the
// deadline has already passed on entry, it returns pred() without waiting.
//
// A deadline of clock.MaxTime degenerates into an untimed Wait.
func (c *Cond) WaitUntil(lock sync.Locker, token stoptoken.Token, clk clock.Clock, deadline time.Time, pred func() bool) (ok bool) {
	if deadline.Equal(clock.MaxTime) || deadline.After(clock.MaxTime) {
		return c.Wait(lock, token, pred)
	}

	if !clk.Now().Before(deadline) {
		// Past deadline already, and not ready: a timed wait whose
		// deadline is already in the past returns without touching the
		// underlying condition variable.
		return pred()
	}

	c.entries.Add(1)
	defer c.entries.Add(-1)

	if token.StopRequested() {
		return pred()
	}

	cancel := token.OnStop(c.NotifyAll)
	defer cancel()

	for !pred() {
		if !clk.Now().Before(deadline) {
			return false
		}

		timer := clk.After(deadline.Sub(clk.Now()))
		woke := make(chan struct{})

		c.internalMu.Lock()
		if token.StopRequested() {
			c.internalMu.Unlock()
			close(woke)
			return false
		}
		lock.Unlock()

		// sync.Cond has no native deadline, so a helper goroutine turns
		// the timer into a spurious wake-up by calling Broadcast; the
		// loop condition (deadline recheck against the injected clock)
		// is what actually enforces the timeout, exactly as the
		// original's wait_until rechecks Clock::now() after every wake
		// rather than trusting the underlying wait's return status. Using
		// clk.After rather than time.NewTimer keeps this responsive to a
		// Fake clock's Advance instead of real wall-clock time.
		go func() {
			select {
			case <-timer:
				c.internalMu.Lock()
				c.internalCv.Broadcast()
				c.internalMu.Unlock()
			case <-woke:
			}
		}()

		c.internalCv.Wait()
		c.internalMu.Unlock()
		close(woke)
		lock.Lock()
	}
	return true
}

// WaitFor is a convenience wrapper around WaitUntil using clk.Now().Add(d)
// as the deadline.
func (c *Cond) WaitFor(lock sync.Locker, token stoptoken.Token, clk clock.Clock, d time.Duration, pred func() bool) bool {
	return c.WaitUntil(lock, token, clk, clk.Now().Add(d), pred)
}

// SleepUntil blocks until the first of: a notification (NotifyOne or
// NotifyAll), token being cancelled, or the clock reaching deadline -
// whichever comes first - then returns. Unlike WaitUntil, it takes no
// predicate and never loops back to sleep again on its own: a single
// underlying wake is enough to return, mirroring score::cpp's
// condition_variable_any::wait_until with no predicate argument. Callers
// that need to re-arm a sleep after being woken (e.g. because the reason
// to keep waiting changed) call SleepUntil again themselves.
//
// lock must be held by the caller on entry and is held again on return.
// A deadline of clock.MaxTime degenerates into an indefinite sleep.
func (c *Cond) SleepUntil(lock sync.Locker, token stoptoken.Token, clk clock.Clock, deadline time.Time) {
	c.entries.Add(1)
	defer c.entries.Add(-1)

	if token.StopRequested() {
		return
	}

	untimed := deadline.Equal(clock.MaxTime) || deadline.After(clock.MaxTime)
	if !untimed && !clk.Now().Before(deadline) {
		return
	}

	cancel := token.OnStop(c.NotifyAll)
	defer cancel()

	var woke chan struct{}
	c.internalMu.Lock()
	if token.StopRequested() {
		c.internalMu.Unlock()
		return
	}
	lock.Unlock()

	if !untimed {
		timer := clk.After(deadline.Sub(clk.Now()))
		woke = make(chan struct{})
		go func() {
			select {
			case <-timer:
				c.internalMu.Lock()
				c.internalCv.Broadcast()
				c.internalMu.Unlock()
			case <-woke:
			}
		}()
	}

	c.internalCv.Wait()
	c.internalMu.Unlock()
	if woke != nil {
		close(woke)
	}
	lock.Lock()
}

// Close blocks until every in-flight Wait/WaitUntil call has returned. This
// substitutes for a shared-pointer lifetime trick: the entry counter is
// incremented on every wait entry and decremented on every exit, so Close
// never races a waiter still touching c.
func (c *Cond) Close() {
	for c.entries.Load() != 0 {
		runtime.Gosched()
	}
}

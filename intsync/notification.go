package intsync

import (
	"sync"
	"time"

	"github.com/qorix-group/baselibs-sub000/clock"
	"github.com/qorix-group/baselibs-sub000/stoptoken"
)

// Notification is a latched boolean condition, built directly on top of
// [Cond] with a fixed predicate ("is the latch set?"). It is a reusable
// pattern rather than a distinct algorithm: Notify/Reset/Wait are exactly
// Cond's notify/wait with the latch as the predicate.
type Notification struct {
	mu    sync.Mutex
	cond  *Cond
	latch bool
}

// NewNotification creates an unset Notification.
func NewNotification() *Notification {
	return &Notification{cond: NewCond()}
}

// Notify sets the latch and wakes every current waiter. Idempotent: calling
// it again while already set is a no-op beyond re-broadcasting.
func (n *Notification) Notify() {
	n.mu.Lock()
	n.latch = true
	n.mu.Unlock()
	n.cond.NotifyAll()
}

// Reset clears the latch so a subsequent Wait blocks again.
func (n *Notification) Reset() {
	n.mu.Lock()
	n.latch = false
	n.mu.Unlock()
}

// Set reports whether the latch is currently set.
func (n *Notification) Set() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.latch
}

// Wait blocks until Notify has been called, or token is stop-requested.
// Returns true iff the latch was observed set.
func (n *Notification) Wait(token stoptoken.Token) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cond.Wait(&n.mu, token, func() bool { return n.latch })
}

// WaitFor blocks until Notify has been called, d has elapsed, or token is
// stop-requested. Returns true iff the latch was observed set.
func (n *Notification) WaitFor(clk clock.Clock, d time.Duration, token stoptoken.Token) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cond.WaitFor(&n.mu, token, clk, d, func() bool { return n.latch })
}

// Close waits for all in-flight Wait/WaitFor calls to return before
// returning itself, using the same entry-counter idiom as Cond.
func (n *Notification) Close() {
	n.cond.Close()
}

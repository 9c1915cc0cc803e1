// Package runstate provides a cache-line-padded, lock-free state flag for
// the executors' hot shutdown check (ShutdownRequested is read on every
// Post call). It is adapted from a multi-state lock-free machine that used
// the same cache-line-padding idiom to avoid false sharing between the
// field and whatever is adjacent to it in a containing struct.
package runstate

import "sync/atomic"

// Flag is a lock-free, one-way (false -> true) boolean flag.
type Flag struct { //nolint:unused
	_ [64]byte
	v atomic.Bool
	_ [63]byte
}

// Set transitions the flag to true. Returns true if this call performed the
// transition, false if the flag was already set.
func (f *Flag) Set() bool {
	return f.v.CompareAndSwap(false, true)
}

// IsSet reports whether Set has been called.
func (f *Flag) IsSet() bool {
	return f.v.Load()
}

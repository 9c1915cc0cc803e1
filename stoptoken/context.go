package stoptoken

import "context"

// FromContext returns a Token that becomes stop-requested when ctx is
// cancelled or its deadline expires. This is an ambient convenience for code
// that already lives in a context.Context-shaped world; the library's own
// primitives never require one.
//
// The returned cancel function should be called once the caller no longer
// needs to observe ctx (it stops the background goroutine watching ctx.Done()
// if ctx has not already fired).
func FromContext(ctx context.Context) (token Token, cancel func()) {
	src := NewSource()
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			src.RequestStop()
		case <-done:
		}
	}()
	return src.Token(), func() { close(done) }
}

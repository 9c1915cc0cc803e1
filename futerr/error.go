// Package futerr defines the small, closed error taxonomy shared by the
// future/promise and executor packages. It mirrors score::concurrency::Error
// and its FutureErrorDomain message table from the original design, rather
// than exposing ad-hoc errors.New strings at each call site.
package futerr

// Error is a member of the concurrency library's closed error enumeration.
// It implements the standard error interface so it can be returned,
// wrapped, and compared with errors.Is like any other error.
type Error int

const (
	// Unknown is the reserved zero/default value.
	Unknown Error = iota
	// PromiseBroken indicates the promise was destroyed without publishing a value.
	PromiseBroken
	// FutureAlreadyRetrieved indicates a second GetFuture call on the same promise.
	FutureAlreadyRetrieved
	// PromiseAlreadySatisfied indicates a second publish attempt on the same state.
	PromiseAlreadySatisfied
	// NoState indicates an operation invoked on a stateless (already-consumed or
	// never-initialized) future or promise.
	NoState
	// StopRequested indicates a wait unblocked because the caller's cancellation
	// token fired.
	StopRequested
	// Timeout indicates a timed wait reached its deadline without the state
	// becoming ready.
	Timeout
	// Unset is the placeholder value in a fresh shared state before any publish.
	Unset
)

// Error implements the error interface.
func (e Error) Error() string {
	switch e {
	case PromiseBroken:
		return "concurrency: promise broken"
	case FutureAlreadyRetrieved:
		return "concurrency: future already retrieved"
	case PromiseAlreadySatisfied:
		return "concurrency: promise already satisfied"
	case NoState:
		return "concurrency: no shared state associated"
	case StopRequested:
		return "concurrency: stop requested"
	case Timeout:
		return "concurrency: timeout"
	case Unset:
		return "concurrency: value was not set"
	case Unknown:
		fallthrough
	default:
		return "concurrency: unknown error"
	}
}

package executor

import (
	"math"
	"sync"

	"github.com/qorix-group/baselibs-sub000/internal/telemetry"
	"github.com/qorix-group/baselibs-sub000/stoptoken"
	"github.com/qorix-group/baselibs-sub000/task"
)

// LongRunning is an Executor that spawns a dedicated goroutine per posted
// Task instead of pulling from a shared queue. It suits tasks that mostly
// block on their own condition and only occasionally do real work - the
// kind of task that would starve a fixed worker pool.
type LongRunning struct {
	mu     sync.Mutex
	active []stoptoken.Source
	src    stoptoken.Source
	wg     sync.WaitGroup
}

// NewLongRunning creates an empty LongRunning executor.
func NewLongRunning() *LongRunning {
	return &LongRunning{src: stoptoken.NewSource()}
}

// Post either spawns a new goroutine to run t, or, if Shutdown has already
// been requested, runs t inline with the executor's own, already
// stop-requested token; t's own stop source is left untouched.
func (l *LongRunning) Post(t task.Task) {
	l.mu.Lock()
	if l.src.StopRequested() {
		l.mu.Unlock()
		telemetry.L().Warning().Str(`component`, `longrunning`).Log(`task posted after shutdown, running inline with the executor's token`)
		t.Run(l.src.Token())
		return
	}
	l.active = append(l.active, t.StopSource())
	l.wg.Add(1)
	l.mu.Unlock()

	go func() {
		defer l.wg.Done()
		t.Run(t.StopSource().Token())
	}()
}

// MaxConcurrencyLevel reports no fixed limit: every posted task gets its
// own goroutine.
func (l *LongRunning) MaxConcurrencyLevel() int {
	return math.MaxInt
}

// ShutdownRequested reports whether Shutdown has been called.
func (l *LongRunning) ShutdownRequested() bool {
	return l.src.StopRequested()
}

// Shutdown requests every posted task's stop source to stop, and every
// future Post to run inline. It does not wait for already-running tasks to
// return - they are expected to observe their own token - but it is safe to
// call Wait afterwards if that is needed.
func (l *LongRunning) Shutdown() {
	l.mu.Lock()
	for _, src := range l.active {
		src.RequestStop()
	}
	l.mu.Unlock()
	l.src.RequestStop()
}

// Wait blocks until every goroutine spawned by Post has returned. Intended
// to be called after Shutdown, to join cleanly.
func (l *LongRunning) Wait() {
	l.wg.Wait()
}

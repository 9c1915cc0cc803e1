// Package timedexec implements an earliest-deadline-first scheduler on top
// of an injected executor.Executor: a fixed pool of worker goroutines pull
// the task with the nearest execution point off a shared, time-ordered
// queue, sleep until it is due (or a sooner task arrives), then run it.
//
// Running tasks are never preempted. If the underlying executor's
// concurrency level is too low for the posted workload, tasks simply run
// later than scheduled - this is a best-effort scheduler, not a real-time
// one.
package timedexec

import (
	"sync"
	"time"

	"golang.org/x/exp/slices"

	"github.com/qorix-group/baselibs-sub000/clock"
	"github.com/qorix-group/baselibs-sub000/executor"
	"github.com/qorix-group/baselibs-sub000/intsync"
	"github.com/qorix-group/baselibs-sub000/stoptoken"
	"github.com/qorix-group/baselibs-sub000/task"
)

type entry struct {
	at   time.Time
	task task.TimedTask
}

type waiter struct {
	deadline time.Time
	cond     *intsync.Cond
}

// Executor schedules TimedTasks in earliest-deadline-first order, running
// them on worker goroutines posted to an underlying executor.Executor.
// The underlying executor's MaxConcurrencyLevel is used as the fixed
// number of EDF workers to spawn, so it should report a real, bounded
// capacity (e.g. *executor.ThreadPool) rather than an unbounded one.
type Executor struct {
	clk        clock.Clock
	underlying executor.Executor

	mu      sync.Mutex
	queue   []entry // sorted ascending by at
	free    []*intsync.Cond
	waiting []waiter // sorted ascending by deadline
}

// New spawns underlying.MaxConcurrencyLevel() worker goroutines (via
// executor.PostFunc) that run until the underlying executor's own
// cancellation fires.
func New(clk clock.Clock, underlying executor.Executor) *Executor {
	ex := &Executor{clk: clk, underlying: underlying}
	for i := 0; i < underlying.MaxConcurrencyLevel(); i++ {
		cond := intsync.NewCond()
		executor.PostFunc(underlying, func(token stoptoken.Token) {
			for !token.StopRequested() {
				ex.work(token, cond)
			}
		})
	}
	return ex
}

// MaxConcurrencyLevel reports the underlying executor's concurrency level.
func (ex *Executor) MaxConcurrencyLevel() int {
	return ex.underlying.MaxConcurrencyLevel()
}

// ShutdownRequested reports whether Shutdown has been called.
func (ex *Executor) ShutdownRequested() bool {
	return ex.underlying.ShutdownRequested()
}

// Shutdown requests every worker, and every in-flight task, to stop.
func (ex *Executor) Shutdown() {
	ex.underlying.Shutdown()
}

// Post enqueues t, which must already report a next execution point.
func (ex *Executor) Post(t task.TimedTask) {
	at, ok := t.NextExecutionPoint()
	if !ok {
		panic("timedexec: task has no next execution point")
	}
	ex.mu.Lock()
	ex.scheduleAtInternal(at, t)
	ex.mu.Unlock()
}

// Schedule posts a one-shot task running fn at (or after) at.
func Schedule[T any](ex *Executor, at time.Time, fn func(token stoptoken.Token, at time.Time) T) task.Result[T] {
	t, result := task.NewDelayed(at, fn)
	ex.Post(t)
	return result
}

// ScheduleEvery posts a task running fn at first and then every interval,
// for as long as fn returns true.
func ScheduleEvery(ex *Executor, first time.Time, interval time.Duration, fn func(token stoptoken.Token, at time.Time) bool) task.Result[struct{}] {
	t, result := task.NewPeriodic(first, interval, fn)
	ex.Post(t)
	return result
}

// scheduleAtInternal inserts t into the queue in sorted position and wakes
// the single most appropriate worker. Caller must hold ex.mu.
func (ex *Executor) scheduleAtInternal(at time.Time, t task.TimedTask) {
	idx, _ := slices.BinarySearchFunc(ex.queue, at, func(e entry, at time.Time) int { return e.at.Compare(at) })
	ex.queue = slices.Insert(ex.queue, idx, entry{at: at, task: t})
	ex.wakeUp(at)
}

// wakeUp notifies exactly one worker able to pick up a task due at at: a
// free (idle) worker if one exists, else the waiting worker with the
// closest deadline at or after at - never every worker at once. Caller
// must hold ex.mu.
func (ex *Executor) wakeUp(at time.Time) {
	if len(ex.free) > 0 {
		ex.free[0].NotifyOne()
		return
	}
	idx, _ := slices.BinarySearchFunc(ex.waiting, at, func(w waiter, at time.Time) int { return w.deadline.Compare(at) })
	if idx < len(ex.waiting) {
		ex.waiting[idx].cond.NotifyOne()
	}
}

func removeCond(s []*intsync.Cond, c *intsync.Cond) []*intsync.Cond {
	if i := slices.Index(s, c); i >= 0 {
		return slices.Delete(s, i, i+1)
	}
	return s
}

func removeWaiter(s []waiter, deadline time.Time, c *intsync.Cond) []waiter {
	i := slices.IndexFunc(s, func(w waiter) bool { return w.cond == c && w.deadline.Equal(deadline) })
	if i >= 0 {
		return slices.Delete(s, i, i+1)
	}
	return s
}

// work runs exactly one scheduling cycle for the calling worker: wait for
// a task, sleep until it is due (rescheduling itself if woken early), then
// run it and reschedule it if it reports another execution point.
func (ex *Executor) work(token stoptoken.Token, cond *intsync.Cond) {
	ex.mu.Lock()
	ex.free = append(ex.free, cond)
	if !cond.Wait(&ex.mu, token, func() bool { return len(ex.queue) != 0 }) {
		ex.free = removeCond(ex.free, cond)
		ex.mu.Unlock()
		return // stop requested, queue still empty
	}
	ex.free = removeCond(ex.free, cond)

	e := ex.queue[0]
	ex.queue = ex.queue[1:]

	if ex.clk.Now().Before(e.at) {
		idx, _ := slices.BinarySearchFunc(ex.waiting, e.at, func(w waiter, at time.Time) int { return w.deadline.Compare(at) })
		ex.waiting = slices.Insert(ex.waiting, idx, waiter{deadline: e.at, cond: cond})

		// A single wake - whether the deadline was reached, a closer task
		// arrived and wakeUp targeted this worker, or the wake is plain
		// spurious - is enough to stop sleeping: SleepUntil returns after
		// the first one rather than looping on a predicate, so a
		// newly-posted earlier-deadline task isn't silently re-absorbed as
		// a spurious wake and left waiting for e.at to elapse.
		cond.SleepUntil(&ex.mu, token, ex.clk, e.at)
		ex.waiting = removeWaiter(ex.waiting, e.at, cond)

		// Always reschedule: handles spurious wakeups, and ensures a task
		// with a nearer deadline added while we slept runs first.
		ex.scheduleAtInternal(e.at, e.task)
		ex.mu.Unlock()
		return
	}
	ex.mu.Unlock()

	ex.runAndReschedule(token, e.task)
}

func (ex *Executor) runAndReschedule(token stoptoken.Token, t task.TimedTask) {
	cancel := token.OnStop(func() { t.StopSource().RequestStop() })
	t.Run(t.StopSource().Token())
	cancel()

	if at, ok := t.NextExecutionPoint(); ok {
		ex.mu.Lock()
		ex.scheduleAtInternal(at, t)
		ex.mu.Unlock()
	}
}

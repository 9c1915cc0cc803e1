package task

import (
	"time"

	"github.com/qorix-group/baselibs-sub000/clock"
	"github.com/qorix-group/baselibs-sub000/future"
	"github.com/qorix-group/baselibs-sub000/internal/telemetry"
	"github.com/qorix-group/baselibs-sub000/stoptoken"
)

// periodicTask re-runs its callable every interval, starting at a fixed
// first execution point, until the callable reports it is done or its stop
// source is requested externally.
type periodicTask struct {
	fn       func(token stoptoken.Token, at time.Time) bool
	at       time.Time
	interval time.Duration
	promise  *future.Promise[struct{}]
	src      stoptoken.Source
}

// NewPeriodic builds a TimedTask that runs fn at first, then every interval
// thereafter, as long as fn returns true. Once fn returns false the task's
// Result resolves and no further execution point is reported.
func NewPeriodic(first time.Time, interval time.Duration, fn func(token stoptoken.Token, at time.Time) bool) (TimedTask, Result[struct{}]) {
	p := future.New[struct{}]()
	f, _ := p.GetFuture()
	t := &periodicTask{
		fn:       fn,
		at:       first,
		interval: interval,
		promise:  p,
		src:      stoptoken.NewSource(),
	}
	return t, newResult(f, t.src)
}

// NewPeriodicForever is NewPeriodic for a callable with no stopping
// condition of its own: it runs until the task's StopSource is requested,
// e.g. via the returned Result's Abort.
func NewPeriodicForever(first time.Time, interval time.Duration, fn func(token stoptoken.Token, at time.Time)) (TimedTask, Result[struct{}]) {
	return NewPeriodic(first, interval, func(token stoptoken.Token, at time.Time) bool {
		fn(token, at)
		return true
	})
}

func (t *periodicTask) Run(token stoptoken.Token) {
	if !t.fn(token, t.at) {
		t.src.RequestStop()
		_ = t.promise.SetValue(struct{}{})
		return
	}
	if clock.WouldOverflowAdd(t.at, t.interval) {
		telemetry.L().Crit().Time(`at`, t.at).Dur(`interval`, t.interval).Log(`periodic task execution time overflowed`)
		panic("task: periodic execution time overflowed")
	}
	t.at = t.at.Add(t.interval)
}

func (t *periodicTask) NextExecutionPoint() (time.Time, bool) {
	if t.src.StopRequested() {
		return time.Time{}, false
	}
	return t.at, true
}

func (t *periodicTask) StopSource() stoptoken.Source {
	return t.src
}

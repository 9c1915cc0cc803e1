package timedexec

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qorix-group/baselibs-sub000/clock"
	"github.com/qorix-group/baselibs-sub000/executor"
	"github.com/qorix-group/baselibs-sub000/stoptoken"
)

func TestExecutor_RunsOnceDeadlineIsReached(t *testing.T) {
	start := time.Unix(0, 0)
	fake := clock.NewFake(start)
	pool := executor.NewThreadPool(1)
	defer pool.Shutdown()
	ex := New(fake, pool)

	result := Schedule(ex, start.Add(time.Second), func(stoptoken.Token, time.Time) int { return 42 })

	fake.Advance(2 * time.Second)

	done := make(chan struct{})
	go func() {
		v, err := result.Get()
		assert.NoError(t, err)
		assert.Equal(t, 42, v)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduled task never ran")
	}
}

func TestExecutor_RunsEarliestDeadlineFirst(t *testing.T) {
	start := time.Unix(0, 0)
	fake := clock.NewFake(start)
	pool := executor.NewThreadPool(1)
	defer pool.Shutdown()
	ex := New(fake, pool)

	var mu sync.Mutex
	var order []string
	doneA := make(chan struct{})
	doneB := make(chan struct{})

	Schedule(ex, start.Add(2*time.Second), func(stoptoken.Token, time.Time) struct{} {
		mu.Lock()
		order = append(order, "B")
		mu.Unlock()
		close(doneB)
		return struct{}{}
	})

	// Give the pool's sole worker a chance to park waiting on B's deadline
	// before A, with the nearer deadline, is posted.
	time.Sleep(20 * time.Millisecond)

	Schedule(ex, start.Add(time.Second), func(stoptoken.Token, time.Time) struct{} {
		mu.Lock()
		order = append(order, "A")
		mu.Unlock()
		close(doneA)
		return struct{}{}
	})

	fake.Advance(time.Second)
	select {
	case <-doneA:
	case <-time.After(time.Second):
		t.Fatal("earlier-deadline task never ran")
	}

	fake.Advance(time.Second)
	select {
	case <-doneB:
	case <-time.After(time.Second):
		t.Fatal("later-deadline task never ran")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"A", "B"}, order)
}

func TestExecutor_PeriodicRunsThreeTimesThenStops(t *testing.T) {
	start := time.Unix(0, 0)
	fake := clock.NewFake(start)
	pool := executor.NewThreadPool(1)
	defer pool.Shutdown()
	ex := New(fake, pool)

	var count atomic.Int32
	ticks := make(chan time.Time, 3)
	result := ScheduleEvery(ex, start.Add(time.Second), time.Second, func(token stoptoken.Token, at time.Time) bool {
		n := count.Add(1)
		ticks <- at
		return n < 3
	})

	for i := 0; i < 3; i++ {
		fake.Advance(time.Second)
		select {
		case at := <-ticks:
			want := start.Add(time.Duration(i+1) * time.Second)
			if !at.Equal(want) {
				t.Fatalf("tick %d at %v, want %v", i, at, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("tick %d never ran", i)
		}
	}

	require.NoError(t, result.Wait())
}

func TestExecutor_AbortPreventsExecution(t *testing.T) {
	start := time.Unix(0, 0)
	fake := clock.NewFake(start)
	pool := executor.NewThreadPool(1)
	defer pool.Shutdown()
	ex := New(fake, pool)

	var ran atomic.Bool
	result := Schedule(ex, start.Add(time.Second), func(stoptoken.Token, time.Time) int {
		ran.Store(true)
		return 0
	})
	result.Abort()

	fake.Advance(2 * time.Second)
	time.Sleep(50 * time.Millisecond)

	assert.False(t, ran.Load(), "aborted task must not run its body")
	assert.True(t, result.Aborted(), "Aborted() should report true after Abort()")
}

func TestExecutor_MultipleWorkersRunConcurrentlyDueTasks(t *testing.T) {
	start := time.Unix(0, 0)
	fake := clock.NewFake(start)
	pool := executor.NewThreadPool(2)
	defer pool.Shutdown()
	ex := New(fake, pool)
	require.Equal(t, 2, ex.MaxConcurrencyLevel())

	var wg sync.WaitGroup
	wg.Add(2)
	Schedule(ex, start.Add(time.Second), func(stoptoken.Token, time.Time) struct{} { wg.Done(); return struct{}{} })
	Schedule(ex, start.Add(time.Second), func(stoptoken.Token, time.Time) struct{} { wg.Done(); return struct{}{} })

	fake.Advance(time.Second)

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("not all due tasks ran")
	}
}

func TestExecutor_ShutdownStopsWorkers(t *testing.T) {
	start := time.Unix(0, 0)
	fake := clock.NewFake(start)
	pool := executor.NewThreadPool(1)
	ex := New(fake, pool)

	assert.False(t, ex.ShutdownRequested(), "ShutdownRequested should be false before Shutdown")
	ex.Shutdown()
	assert.True(t, ex.ShutdownRequested(), "ShutdownRequested should be true after Shutdown")
}

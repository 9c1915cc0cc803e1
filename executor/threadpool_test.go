package executor

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qorix-group/baselibs-sub000/stoptoken"
)

func TestThreadPool_SubmitRunsAndReturnsResult(t *testing.T) {
	p := NewThreadPool(2)
	defer p.Shutdown()

	result := Submit(p, func(stoptoken.Token) int { return 10 + 32 })
	v, err := result.Get()
	require.NoError(t, err)
	require.Equal(t, 42, v)
}

func TestThreadPool_RunsManyTasksConcurrently(t *testing.T) {
	const n = 8
	p := NewThreadPool(4)
	defer p.Shutdown()

	var count atomic.Int32
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		PostFunc(p, func(stoptoken.Token) {
			count.Add(1)
			wg.Done()
		})
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("not all tasks ran")
	}
	assert.EqualValues(t, n, count.Load())
}

func TestThreadPool_MaxConcurrencyLevelMatchesWorkerCount(t *testing.T) {
	p := NewThreadPool(3)
	defer p.Shutdown()
	require.Equal(t, 3, p.MaxConcurrencyLevel())
}

func TestThreadPool_ShutdownDrainsQueuedTasksWithStopAlreadyRequested(t *testing.T) {
	p := NewThreadPool(1)

	block := make(chan struct{})
	started := make(chan struct{})
	PostFunc(p, func(stoptoken.Token) {
		close(started)
		<-block
	})
	<-started

	var observedStop bool
	done := make(chan struct{})
	PostFunc(p, func(token stoptoken.Token) {
		observedStop = token.StopRequested()
		close(done)
	})

	shutdownDone := make(chan struct{})
	go func() {
		p.Shutdown()
		close(shutdownDone)
	}()

	time.Sleep(20 * time.Millisecond)
	close(block)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("queued task never ran")
	}
	<-shutdownDone

	assert.True(t, observedStop, "a task drained after shutdown must see its token already stop-requested")
}

func TestThreadPool_PostAfterShutdownRunsInline(t *testing.T) {
	p := NewThreadPool(1)
	p.Shutdown()

	ran := make(chan bool, 1)
	PostFunc(p, func(token stoptoken.Token) { ran <- token.StopRequested() })

	select {
	case stopped := <-ran:
		assert.True(t, stopped, "a task posted after shutdown should run with its stop already requested")
	default:
		t.Fatal("a task posted after shutdown must run synchronously, inline")
	}
}

func TestThreadPool_ShutdownIsIdempotent(t *testing.T) {
	p := NewThreadPool(2)
	p.Shutdown()
	p.Shutdown()
	assert.True(t, p.ShutdownRequested(), "ShutdownRequested should report true")
}

// TestThreadPool_ZeroWorkersShutdownReturnsImmediately covers end-to-end
// scenario 6: a thread pool with no workers at all still constructs and
// shuts down cleanly, with nothing left to drain.
func TestThreadPool_ZeroWorkersShutdownReturnsImmediately(t *testing.T) {
	p := NewThreadPool(0)
	require.Equal(t, 0, p.MaxConcurrencyLevel())

	done := make(chan struct{})
	go func() {
		p.Shutdown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Shutdown on a zero-worker pool never returned")
	}
	assert.True(t, p.ShutdownRequested())
}

// TestThreadPool_ReentrantSubmitDuringShutdownRunsBothInline covers
// end-to-end scenario 6: a zero-worker pool that has already been shut
// down, posted a task whose body itself submits a second task. Both must
// run inline, synchronously, on the submitting goroutine.
func TestThreadPool_ReentrantSubmitDuringShutdownRunsBothInline(t *testing.T) {
	p := NewThreadPool(0)
	p.Shutdown()

	var counter atomic.Int32
	PostFunc(p, func(stoptoken.Token) {
		PostFunc(p, func(stoptoken.Token) { counter.Add(1) })
		counter.Add(1)
	})

	assert.EqualValues(t, 2, counter.Load())
}

// TestThreadPool_ZeroWorkersPostRunsInlineAfterShutdown covers posting to a
// zero-worker pool once it has been shut down: there are no workers to ever
// drain the queue, so Post must fall back to running inline just as it does
// for a populated pool.
func TestThreadPool_ZeroWorkersPostRunsInlineAfterShutdown(t *testing.T) {
	p := NewThreadPool(0)
	p.Shutdown()

	ran := make(chan bool, 1)
	PostFunc(p, func(token stoptoken.Token) { ran <- token.StopRequested() })

	select {
	case stopped := <-ran:
		assert.True(t, stopped)
	default:
		t.Fatal("a task posted to a zero-worker, shut-down pool must run synchronously, inline")
	}
}

package executor

import (
	"sync"

	"github.com/qorix-group/baselibs-sub000/internal/runstate"
	"github.com/qorix-group/baselibs-sub000/internal/telemetry"
	"github.com/qorix-group/baselibs-sub000/intsync"
	"github.com/qorix-group/baselibs-sub000/stoptoken"
	"github.com/qorix-group/baselibs-sub000/task"
)

// ThreadPool is a fixed-size pool of worker goroutines pulling Tasks off a
// single FIFO queue. Each worker tracks the stop source of whatever task it
// is currently running in active, so Shutdown can cooperatively cancel
// in-flight work as well as queued work.
type ThreadPool struct {
	mu    sync.Mutex
	cond  *intsync.Cond
	queue []task.Task

	active []stoptoken.Source // indexed by worker number; zero Source while idle

	workers   stoptoken.Source // requested to stop every worker's polling loop
	shutdown  runstate.Flag
	wg        sync.WaitGroup
	workerCnt int
}

// NewThreadPool starts n worker goroutines pulling from a shared queue. n
// may be 0, producing a pool with no workers at all: every Post then runs
// inline as soon as Shutdown is called, since nothing is left to drain the
// queue otherwise.
func NewThreadPool(n int) *ThreadPool {
	if n < 0 {
		panic("executor: thread pool worker count must not be negative")
	}
	p := &ThreadPool{
		cond:      intsync.NewCond(),
		active:    make([]stoptoken.Source, n),
		workers:   stoptoken.NewSource(),
		workerCnt: n,
	}
	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.work(i)
	}
	return p
}

func (p *ThreadPool) work(workerNumber int) {
	defer p.wg.Done()
	workerToken := p.workers.Token()

	p.mu.Lock()
	defer p.mu.Unlock()
	for !workerToken.StopRequested() || len(p.queue) != 0 {
		p.cond.Wait(&p.mu, workerToken, func() bool { return len(p.queue) != 0 })

		var t task.Task
		if len(p.queue) != 0 {
			t = p.queue[0]
			p.queue = p.queue[1:]
		}

		if t != nil {
			p.active[workerNumber] = t.StopSource()
			p.mu.Unlock()
			p.execute(t)
			p.mu.Lock()
			p.active[workerNumber] = stoptoken.Source{}
		}
	}
}

func (p *ThreadPool) execute(t task.Task) {
	if p.ShutdownRequested() {
		t.StopSource().RequestStop()
	}
	t.Run(t.StopSource().Token())
}

// Post enqueues t, or if Shutdown has already been requested, runs it
// inline on the calling goroutine (with its stop already requested).
func (p *ThreadPool) Post(t task.Task) {
	p.mu.Lock()
	if p.ShutdownRequested() {
		p.mu.Unlock()
		telemetry.L().Warning().Str(`component`, `threadpool`).Log(`task posted after shutdown, running inline`)
		p.execute(t)
		return
	}
	p.queue = append(p.queue, t)
	p.mu.Unlock()
	p.cond.NotifyOne()
}

// MaxConcurrencyLevel reports the number of worker goroutines.
func (p *ThreadPool) MaxConcurrencyLevel() int {
	return p.workerCnt
}

// ShutdownRequested reports whether Shutdown has been called.
func (p *ThreadPool) ShutdownRequested() bool {
	return p.shutdown.IsSet()
}

// Shutdown requests every in-flight task to stop, wakes every worker so it
// observes the pool is stopping, and blocks until all workers return.
// Queued-but-not-yet-started tasks still run (the original worker loop
// keeps draining the queue even after its own stop token fires); new Posts
// after Shutdown run inline instead of queuing.
func (p *ThreadPool) Shutdown() {
	p.shutdown.Set()

	p.mu.Lock()
	for _, src := range p.active {
		src.RequestStop()
	}
	p.mu.Unlock()

	p.workers.RequestStop()
	p.cond.NotifyAll()
	p.wg.Wait()

	// A pool with no workers has nothing draining the queue: run whatever
	// was posted before Shutdown inline.
	p.mu.Lock()
	left := p.queue
	p.queue = nil
	p.mu.Unlock()
	for _, t := range left {
		p.execute(t)
	}
}

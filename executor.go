package oski

import (
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

// Task is one sub-SpMV dispatched by an Executor: a per-partition kernel
// call, a sub-matrix tune, or a reduction slice (spec.md §4.8's job kinds).
type Task func() error

// Executor dispatches a batch of independent tasks across workers and waits
// for all of them to finish before returning, per spec.md §4.8: "within a
// single SpMV call, all T sub-kernels finish before reduction begins".
type Executor interface {
	Run(tasks []Task) error
}

// serialExecutor runs every task on the calling goroutine. It backs
// ThreadType SingleThreaded and is also what tests use to keep output
// deterministic without depending on scheduling.
type serialExecutor struct{}

func (serialExecutor) Run(tasks []Task) error {
	for _, t := range tasks {
		if err := t(); err != nil {
			return err
		}
	}
	return nil
}

// PerCallExecutor spawns one goroutine per task and joins all of them at
// the end of the call, per spec.md §4.8's "per-call threads" strategy. A
// goroutine is this engine's analog of the OS thread the strategy names:
// same spawn-per-call, join-at-end shape, at a fraction of the cost.
type PerCallExecutor struct{}

func (PerCallExecutor) Run(tasks []Task) error {
	var wg sync.WaitGroup
	errs := make([]error, len(tasks))
	wg.Add(len(tasks))
	for i, task := range tasks {
		i, task := i, task
		go func() {
			defer wg.Done()
			errs[i] = task()
		}()
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// ForkJoinExecutor dispatches tasks through golang.org/x/sync/errgroup, per
// spec.md §4.8's "task-parallel fork-join" strategy: errgroup.Group.Go is
// the parallel-for primitive, and Wait is its implicit end-of-round barrier.
// Limit caps in-flight goroutines to T; 0 means unlimited.
type ForkJoinExecutor struct {
	Limit int
}

func (e *ForkJoinExecutor) Run(tasks []Task) error {
	var g errgroup.Group
	if e.Limit > 0 {
		g.SetLimit(e.Limit)
	}
	for _, task := range tasks {
		task := task
		g.Go(func() error { return task() })
	}
	return g.Wait()
}

// cyclicBarrier is a reusable, N-party rendezvous point built on sync.Cond:
// the Nth party to call wait releases all N and starts the next round. It
// is this engine's idiomatic stand-in for the POSIX start/end barrier pair
// spec.md §4.8 describes for the persistent-thread-pool strategy.
type cyclicBarrier struct {
	n    int
	mu   sync.Mutex
	cond *sync.Cond
	seen int
	gen  int
}

func newCyclicBarrier(n int) *cyclicBarrier {
	b := &cyclicBarrier{n: n}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *cyclicBarrier) wait() {
	b.mu.Lock()
	gen := b.gen
	b.seen++
	if b.seen == b.n {
		b.seen = 0
		b.gen++
		b.cond.Broadcast()
	} else {
		for b.gen == gen {
			b.cond.Wait()
		}
	}
	b.mu.Unlock()
}

// ThreadPoolExecutor is a persistent pool of T workers, each optionally
// pinned to a CPU, synchronized by start/end barriers exactly as spec.md
// §4.8 describes: a worker waits on the start barrier, claims job indices
// from a shared counter until the batch is exhausted, then waits on the end
// barrier before looping back for the next Run call. Shutdown releases the
// start barrier one last time with the done flag set, so every worker exits
// instead of waiting forever.
type ThreadPoolExecutor struct {
	n     int
	start *cyclicBarrier
	end   *cyclicBarrier

	mu   sync.Mutex
	jobs []Task
	errs []error
	idx  int32

	done int32 // atomic bool
}

// NewThreadPoolExecutor spawns n persistent workers. If pin is true, each
// worker is pinned to CPU (id mod runtime.NumCPU()) via
// golang.org/x/sys/unix.SchedSetaffinity.
func NewThreadPoolExecutor(n int, pin bool) *ThreadPoolExecutor {
	if n < 1 {
		n = 1
	}
	e := &ThreadPoolExecutor{
		n:     n,
		start: newCyclicBarrier(n + 1), // +1: the caller of Run also rendezvouses here
		end:   newCyclicBarrier(n + 1),
	}
	for i := 0; i < n; i++ {
		go e.workerLoop(i, pin)
	}
	return e
}

func (e *ThreadPoolExecutor) workerLoop(id int, pin bool) {
	if pin {
		pinToCPU(id)
	}
	for {
		e.start.wait()
		if atomic.LoadInt32(&e.done) != 0 {
			return
		}

		e.mu.Lock()
		jobs := e.jobs
		e.mu.Unlock()

		for {
			i := int(atomic.AddInt32(&e.idx, 1)) - 1
			if i >= len(jobs) {
				break
			}
			if err := jobs[i](); err != nil {
				e.mu.Lock()
				e.errs[i] = err
				e.mu.Unlock()
			}
		}
		e.end.wait()
	}
}

// Run assigns tasks to the pool, releases the start barrier, and blocks
// until every worker has drained the job queue and reached the end barrier.
func (e *ThreadPoolExecutor) Run(tasks []Task) error {
	e.mu.Lock()
	e.jobs = tasks
	e.errs = make([]error, len(tasks))
	e.mu.Unlock()
	atomic.StoreInt32(&e.idx, 0)

	e.start.wait()
	e.end.wait()

	for _, err := range e.errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Shutdown sets the done flag and releases the start barrier so every
// worker observes it and exits, per spec.md §4.8 and §5's resource policy.
func (e *ThreadPoolExecutor) Shutdown() {
	atomic.StoreInt32(&e.done, 1)
	e.start.wait()
}

func pinToCPU(id int) {
	n := runtime.NumCPU()
	if n == 0 {
		return
	}
	var set unix.CPUSet
	set.Zero()
	set.Set(id % n)
	_ = unix.SchedSetaffinity(0, &set)
}

// NewExecutor builds the Executor cfg's ThreadType selects.
func NewExecutor(cfg *Config) Executor {
	switch cfg.ThreadType {
	case PerCallThreads:
		return PerCallExecutor{}
	case ThreadPool:
		return NewThreadPoolExecutor(cfg.NumThreads, true)
	case ForkJoin:
		return &ForkJoinExecutor{Limit: cfg.NumThreads}
	default:
		return serialExecutor{}
	}
}

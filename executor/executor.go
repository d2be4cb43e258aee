// Package executor provides a fixed-size worker pool (Executor) and a
// serialization primitive built on top of it (Strand), playing the role of
// an asio-style io_context plus make_strand in a goroutine-and-channel
// world.
//
// Work is posted as plain func() tasks. Two tasks posted to the same Strand
// never run concurrently and observe a happens-before edge between them
// (the channel handoff that drains one task and starts the next is itself
// a synchronization point under the Go memory model); two tasks posted to
// different strands, or directly to the Executor, may run concurrently on
// distinct workers.
package executor

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Executor owns a fixed pool of worker goroutines draining a shared task
// queue. The zero value is not usable; construct with New.
type Executor struct {
	log *zap.Logger

	tasks chan func()

	mu      sync.Mutex
	started bool
	stopped bool
	ctx     context.Context
	cancel  context.CancelFunc
	group   *errgroup.Group

	workCount sync.WaitGroup // outstanding Work tokens
}

// New returns an Executor with the given task queue depth. log may be nil,
// in which case a no-op logger is used. workers is clamped to at least 1
// but not otherwise used: the number of worker goroutines is the one
// passed to Start.
func New(workers, queueDepth int, log *zap.Logger) *Executor {
	if workers < 1 {
		workers = 1
	}
	if queueDepth < 0 {
		queueDepth = 0
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{
		log:   log.With(zap.String("component", "executor")),
		tasks: make(chan func(), queueDepth),
	}
}

// Start spins up the worker goroutines. Idempotent: calling Start on an
// already-started (and not yet stopped) Executor is a no-op.
func (e *Executor) Start(workers int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true
	e.ctx, e.cancel = context.WithCancel(context.Background())
	e.group, _ = errgroup.WithContext(e.ctx)

	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		id := i
		e.group.Go(func() error {
			e.runWorker(id)
			return nil
		})
	}
}

func (e *Executor) runWorker(id int) {
	log := e.log.With(zap.Int("worker", id))
	for {
		select {
		case <-e.ctx.Done():
			return
		case task, ok := <-e.tasks:
			if !ok {
				return
			}
			e.runTask(log, task)
		}
	}
}

func (e *Executor) runTask(log *zap.Logger, task func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("unhandled panic in posted task; worker continues", zap.Any("panic", r))
		}
	}()
	task()
}

// Post enqueues a task for execution by some worker. Blocks if the queue
// is full. Posting after Stop is a no-op; the task is dropped.
func (e *Executor) Post(task func()) {
	e.mu.Lock()
	stopped := e.stopped
	tasks := e.tasks
	e.mu.Unlock()
	if stopped {
		return
	}
	select {
	case tasks <- task:
	case <-e.ctx.Done():
	}
}

// Stop signals all workers to exit, then blocks until they have. Tasks
// still in the queue are not guaranteed to run. Idempotent.
func (e *Executor) Stop() {
	e.mu.Lock()
	if e.stopped || !e.started {
		e.stopped = true
		e.mu.Unlock()
		return
	}
	e.stopped = true
	cancel := e.cancel
	group := e.group
	e.mu.Unlock()

	cancel()
	_ = group.Wait()
}

// Wait blocks until every outstanding Work token has been released.
// Tasks queued with Post are not counted: Wait neither waits for the
// queue to drain nor stops or joins the workers.
func (e *Executor) Wait() {
	e.workCount.Wait()
}

// Work is a lifetime token: holding one keeps Wait from returning even if
// the task queue has drained, mirroring an asio executor_work_guard. The
// zero value is not usable; obtain one via Executor.StartWork.
type Work struct {
	wg   *sync.WaitGroup
	done bool
	mu   sync.Mutex
}

// StartWork registers a new outstanding unit of work and returns a token
// that must eventually be released via Release.
func (e *Executor) StartWork() *Work {
	e.workCount.Add(1)
	return &Work{wg: &e.workCount}
}

// Release marks the work done. Idempotent: releasing an already-released
// token is a no-op, matching the original's relaxed double-release
// tolerance for defensive call sites.
func (w *Work) Release() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		return
	}
	w.done = true
	w.wg.Done()
}

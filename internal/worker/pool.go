package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"igunfollow/pkg/logger"
)

var (
	// ErrQueueFull is returned by Submit when every worker is busy and the
	// queue has no free slot
	ErrQueueFull = errors.New("worker queue is full")
	// ErrPoolStopped is returned for work submitted to, or still queued in,
	// a stopped pool
	ErrPoolStopped = errors.New("worker pool is stopped")
)

// job is a unit of work; run must resolve its future
type job struct {
	name string
	run  func(ctx context.Context)
	drop func(err error)
}

// Pool runs blocking tasks on a fixed number of goroutines behind a bounded
// queue. Callers get a Future and only block when they wait on it.
type Pool struct {
	numWorkers int
	jobQueue   chan job
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	logger     logger.Logger

	mu      sync.RWMutex
	started bool
	stopped bool
	active  atomic.Int32
}

// NewPool creates a pool with numWorkers goroutines and room for queueSize
// waiting tasks
func NewPool(numWorkers, queueSize int, log logger.Logger) *Pool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	if log == nil {
		log = logger.GetLogger()
	}

	return &Pool{
		numWorkers: numWorkers,
		jobQueue:   make(chan job, queueSize),
		logger:     log,
	}
}

// Start launches the workers. Tasks receive a context derived from ctx that
// is cancelled by Stop.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return
	}
	p.started = true
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.logger.InfoWithFields("Starting worker pool", map[string]interface{}{
		"num_workers": p.numWorkers,
		"queue_size":  cap(p.jobQueue),
	})

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop cancels running tasks, fails queued ones with ErrPoolStopped and
// waits for the workers to exit
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped || !p.started {
		p.stopped = true
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.cancel()
	close(p.jobQueue)
	p.mu.Unlock()

	p.logger.Info("Stopping worker pool...")
	p.wg.Wait()
	p.logger.Info("Worker pool stopped")
}

// enqueue hands a job to the workers without blocking
func (p *Pool) enqueue(j job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.started || p.stopped {
		return ErrPoolStopped
	}
	if err := p.ctx.Err(); err != nil {
		return fmt.Errorf("worker pool context done: %w", err)
	}

	// an idle worker may take the job even with a zero-sized queue, but only
	// if one is already parked on the channel
	select {
	case p.jobQueue <- j:
		p.logger.DebugWithFields("Task submitted to queue", map[string]interface{}{
			"task": j.name,
		})
		return nil
	default:
		return ErrQueueFull
	}
}

// worker is the main worker routine
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	p.logger.DebugWithFields("Worker started", map[string]interface{}{
		"worker_id": id,
	})

	for j := range p.jobQueue {
		// after Stop the queue is only drained; a cancelled parent context
		// still runs the task so it can observe ctx.Err()
		if p.isStopped() {
			j.drop(ErrPoolStopped)
			continue
		}

		p.active.Add(1)
		start := time.Now()
		p.logger.DebugWithFields("Worker processing task", map[string]interface{}{
			"worker_id": id,
			"task":      j.name,
		})

		j.run(p.ctx)

		p.active.Add(-1)
		p.logger.DebugWithFields("Worker finished task", map[string]interface{}{
			"worker_id": id,
			"task":      j.name,
			"duration":  time.Since(start),
		})
	}

	p.logger.DebugWithFields("Worker stopping - job queue closed", map[string]interface{}{
		"worker_id": id,
	})
}

func (p *Pool) isStopped() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stopped
}

// QueueSize returns the number of tasks waiting for a worker
func (p *Pool) QueueSize() int {
	return len(p.jobQueue)
}

// ActiveWorkers returns the number of workers running a task
func (p *Pool) ActiveWorkers() int {
	return int(p.active.Load())
}

// Future is the eventual result of a submitted task
type Future[T any] struct {
	done  chan struct{}
	once  sync.Once
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) resolve(value T, err error) {
	f.once.Do(func() {
		f.value = value
		f.err = err
		close(f.done)
	})
}

// Done is closed once the result is available
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the task finished or ctx is done. Giving up on the wait
// does not cancel the task.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Submit queues fn on the pool. It never blocks: when no slot is free it
// returns ErrQueueFull. A panic in fn is reported through the future.
func Submit[T any](p *Pool, name string, fn func(ctx context.Context) (T, error)) (*Future[T], error) {
	future := newFuture[T]()

	err := p.enqueue(job{
		name: name,
		run: func(ctx context.Context) {
			var (
				value T
				err   error
			)
			defer func() {
				if r := recover(); r != nil {
					p.logger.ErrorWithFields("Task panicked", map[string]interface{}{
						"task":  name,
						"panic": fmt.Sprint(r),
					})
					var zero T
					future.resolve(zero, fmt.Errorf("task %s panicked: %v", name, r))
					return
				}
				future.resolve(value, err)
			}()
			value, err = fn(ctx)
		},
		drop: func(err error) {
			var zero T
			future.resolve(zero, err)
		},
	})
	if err != nil {
		return nil, err
	}
	return future, nil
}

// Package background contains work that runs off the request goroutines.
// The WorkerPool here is where CPU-heavy jobs (bcrypt hashing and comparison)
// are executed: a fixed set of worker goroutines pull jobs from a shared queue,
// so a burst of logins can't starve the rest of the server of CPU.
package background

import (
	"context"
	"errors"
	"fmt"
	// `sync` package provides synchronization primitives like `WaitGroup`.
	"sync"

	"go.uber.org/zap"
)

// ErrPoolStopped is returned by Submit once Stop has been called.
var ErrPoolStopped = errors.New("worker pool stopped")

// job is one unit of work on the queue. `done` is closed once the worker is
// finished with it; `err` is only read after `done` is closed.
type job struct {
	ctx  context.Context
	fn   func()
	done chan struct{}
	err  error
}

// WorkerPool runs submitted functions on a fixed number of goroutines.
type WorkerPool struct {
	jobs     chan *job
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	logger   *zap.Logger
}

// NewWorkerPool starts `workers` goroutines reading from a queue of size `queueSize`.
// Callers must call Stop to release the goroutines.
func NewWorkerPool(workers, queueSize int, logger *zap.Logger) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	p := &WorkerPool{
		jobs:     make(chan *job, queueSize),
		stopChan: make(chan struct{}),
		logger:   logger,
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	logger.Debug("worker pool started", zap.Int("workers", workers), zap.Int("queue", queueSize))
	return p
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()
	for {
		// The `select` waits on both the queue and the stop signal; whichever is ready first wins.
		select {
		case j := <-p.jobs:
			p.run(id, j)
		case <-p.stopChan:
			return
		}
	}
}

func (p *WorkerPool) run(id int, j *job) {
	defer close(j.done)
	// The submitter already gave up; don't burn CPU on a result nobody reads.
	if err := j.ctx.Err(); err != nil {
		j.err = err
		return
	}
	defer func() {
		if rvr := recover(); rvr != nil {
			p.logger.Error("worker pool job panicked", zap.Int("worker", id), zap.Any("panic", rvr))
			j.err = fmt.Errorf("worker pool job panicked: %v", rvr)
		}
	}()
	j.fn()
}

// Submit queues fn and blocks until it has run or ctx is done.
// When ctx ends first, ctx.Err() is returned and fn may or may not run later.
func (p *WorkerPool) Submit(ctx context.Context, fn func()) error {
	j := &job{ctx: ctx, fn: fn, done: make(chan struct{})}

	select {
	case <-p.stopChan:
		return ErrPoolStopped
	default:
	}

	select {
	case p.jobs <- j:
	case <-ctx.Done():
		return ctx.Err()
	case <-p.stopChan:
		return ErrPoolStopped
	}

	select {
	case <-j.done:
	case <-ctx.Done():
		return ctx.Err()
	case <-p.stopChan:
		select {
		case <-j.done:
		default:
			return ErrPoolStopped
		}
	}
	return j.err
}

// Stop signals all workers to exit and waits for them. Jobs still queued are abandoned.
// It is safe to call Stop more than once.
func (p *WorkerPool) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopChan)
		p.wg.Wait()
		// Release submitters whose jobs never got picked up.
		for {
			select {
			case j := <-p.jobs:
				j.err = ErrPoolStopped
				close(j.done)
			default:
				p.logger.Debug("worker pool stopped")
				return
			}
		}
	})
}

// Package worker runs independent cost fetches concurrently with a bounded
// number of goroutines.
package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// PoolMetrics provides metrics about the worker pool's performance
type PoolMetrics struct {
	TotalTasks         int64
	CompletedTasks     int64
	FailedTasks        int64
	CurrentWorkers     int64
	PeakWorkers        int64
	AverageExecutionMs int64
	TotalExecutionMs   int64
}

// Task represents a unit of work to be executed
type Task func(ctx context.Context) error

type job struct {
	task Task
	done func(error)
}

// Pool manages a pool of workers for executing tasks concurrently
type Pool struct {
	maxWorkers    int
	taskTimeout   time.Duration
	jobs          chan job
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
	mu            sync.Mutex
	metrics       PoolMetrics
	activeWorkers int64
	submitMu      sync.RWMutex
	stopped       bool
	startOnce     sync.Once
}

// NewPool creates a pool of maxWorkers workers bound to ctx. Each task gets
// its own taskTimeout; zero disables the per-task deadline.
func NewPool(ctx context.Context, maxWorkers int, taskTimeout time.Duration) (*Pool, error) {
	if maxWorkers <= 0 {
		return nil, fmt.Errorf("maxWorkers must be greater than 0, got %d", maxWorkers)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Pool{
		maxWorkers:  maxWorkers,
		taskTimeout: taskTimeout,
		jobs:        make(chan job, maxWorkers*2),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Start starts the worker goroutines. ExecuteTasks starts the pool on first use.
func (p *Pool) Start() {
	p.startOnce.Do(func() {
		for i := 0; i < p.maxWorkers; i++ {
			p.wg.Add(1)
			go p.worker()
		}
	})
}

// Stop cancels the pool context and waits for the workers to exit.
// Tasks still queued are reported as cancelled without running.
func (p *Pool) Stop() {
	p.submitMu.Lock()
	if p.stopped {
		p.submitMu.Unlock()
		return
	}
	p.stopped = true
	p.cancel()
	close(p.jobs)
	p.submitMu.Unlock()

	p.Start()
	p.wg.Wait()
}

// GetMetrics returns the current metrics for the pool
func (p *Pool) GetMetrics() PoolMetrics {
	p.mu.Lock()
	defer p.mu.Unlock()

	m := p.metrics
	m.CurrentWorkers = atomic.LoadInt64(&p.activeWorkers)
	if finished := m.CompletedTasks + m.FailedTasks; finished > 0 {
		m.AverageExecutionMs = m.TotalExecutionMs / finished
	}
	return m
}

func (p *Pool) worker() {
	defer p.wg.Done()

	current := atomic.AddInt64(&p.activeWorkers, 1)
	defer atomic.AddInt64(&p.activeWorkers, -1)

	p.mu.Lock()
	if current > p.metrics.PeakWorkers {
		p.metrics.PeakWorkers = current
	}
	p.mu.Unlock()

	for j := range p.jobs {
		p.run(j)
	}
}

func (p *Pool) run(j job) {
	if err := p.ctx.Err(); err != nil {
		p.mu.Lock()
		p.metrics.FailedTasks++
		p.mu.Unlock()
		j.done(err)
		return
	}

	start := time.Now()

	taskCtx, cancel := p.ctx, context.CancelFunc(func() {})
	if p.taskTimeout > 0 {
		taskCtx, cancel = context.WithTimeout(p.ctx, p.taskTimeout)
	}
	err := j.task(taskCtx)
	cancel()

	p.mu.Lock()
	p.metrics.TotalExecutionMs += time.Since(start).Milliseconds()
	if err != nil {
		p.metrics.FailedTasks++
	} else {
		p.metrics.CompletedTasks++
	}
	p.mu.Unlock()

	j.done(err)
}

// submit queues j unless the pool has been stopped
func (p *Pool) submit(j job) bool {
	p.submitMu.RLock()
	defer p.submitMu.RUnlock()
	if p.stopped {
		return false
	}
	p.jobs <- j
	return true
}

// ExecuteTasks runs tasks on the pool and blocks until each has finished.
// The returned slice holds the error of every task at its input index.
func (p *Pool) ExecuteTasks(tasks []Task) []error {
	errs := make([]error, len(tasks))
	if len(tasks) == 0 {
		return errs
	}
	p.Start()

	var wg sync.WaitGroup
	wg.Add(len(tasks))

	p.mu.Lock()
	p.metrics.TotalTasks += int64(len(tasks))
	p.mu.Unlock()

	for i, task := range tasks {
		i := i
		j := job{task: task, done: func(err error) {
			errs[i] = err
			wg.Done()
		}}

		if !p.submit(j) {
			j.done(context.Canceled)
		}
	}

	wg.Wait()
	return errs
}

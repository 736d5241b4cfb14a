// Package workers provides a fixed-size worker pool for background task
// execution with Prometheus instrumentation. The scheduler dispatches fired
// jobs through it so a slow delivery never blocks the poll loop.
package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"remindbot/internal/logger"
)

// Task is a unit of work submitted to the pool.
type Task struct {
	ID   string
	Kind string
	Run  func(ctx context.Context) error
}

// Pool manages a set of goroutine workers fed from a bounded queue.
type Pool struct {
	taskQueue chan Task
	workers   int
	wg        sync.WaitGroup
	ctx       context.Context
	logger    *logger.Logger
	metrics   *Metrics

	mu         sync.Mutex
	submitters sync.WaitGroup
	started    bool
	stopped    bool
}

// NewPool creates a pool with the given worker count and queue capacity.
// A nil metrics disables instrumentation.
func NewPool(workers, queueSize int, log *logger.Logger, metrics *Metrics) *Pool {
	return &Pool{
		taskQueue: make(chan Task, queueSize),
		workers:   workers,
		logger:    log,
		metrics:   metrics,
	}
}

// Start launches the worker goroutines. Tasks run with the given context.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("worker pool already started")
	}

	p.ctx = ctx
	p.started = true

	p.logger.Info("starting worker pool",
		logger.Field{Key: "workers", Value: p.workers},
		logger.Field{Key: "queue_size", Value: cap(p.taskQueue)})

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	return nil
}

// Submit queues a task for execution. It blocks when the queue is full and
// reports an error once the pool has been stopped. Registering as a submitter
// under the same lock that Stop takes means Stop cannot close the queue while
// a send is in flight.
func (p *Pool) Submit(task Task) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return fmt.Errorf("worker pool is stopped")
	}
	p.submitters.Add(1)
	p.mu.Unlock()
	defer p.submitters.Done()

	p.taskQueue <- task
	if p.metrics != nil {
		p.metrics.taskSubmitted(len(p.taskQueue))
	}

	p.logger.Debug("task submitted",
		logger.Field{Key: "task_id", Value: task.ID},
		logger.Field{Key: "task_kind", Value: task.Kind})
	return nil
}

// Dispatch adapts Submit to the scheduler's dispatcher contract.
func (p *Pool) Dispatch(id string, run func(ctx context.Context) error) {
	if err := p.Submit(Task{ID: id, Kind: "job", Run: run}); err != nil {
		p.logger.Error("failed to dispatch task", err,
			logger.Field{Key: "task_id", Value: id})
	}
}

// Stop waits out in-flight submissions, closes the queue and waits for queued
// and running tasks to finish. No task is cancelled mid-flight.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	// Workers keep draining while we wait, so blocked sends complete.
	p.submitters.Wait()
	close(p.taskQueue)
	p.wg.Wait()

	p.logger.Info("worker pool stopped")
}

// QueueDepth returns the number of tasks waiting in the queue.
func (p *Pool) QueueDepth() int {
	return len(p.taskQueue)
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for task := range p.taskQueue {
		start := time.Now()
		err := p.runTask(task)
		duration := time.Since(start)

		status := "completed"
		if err != nil {
			status = "failed"
			p.logger.Error("task failed", err,
				logger.Field{Key: "task_id", Value: task.ID},
				logger.Field{Key: "worker", Value: id})
		}

		if p.metrics != nil {
			p.metrics.taskDone(status, duration, len(p.taskQueue))
		}
	}
}

func (p *Pool) runTask(task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", task.ID, r)
		}
	}()
	return task.Run(p.ctx)
}

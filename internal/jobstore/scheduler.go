package jobstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"remindbot/internal/logger"
)

// HandlerFunc processes a fired job. The handler owns the job's fate: it
// removes the job on success or marks it failed, the scheduler only logs.
type HandlerFunc func(ctx context.Context, job Job) error

// Dispatcher submits fired jobs for asynchronous execution so that a slow
// delivery never blocks the poll loop.
type Dispatcher interface {
	Dispatch(id string, run func(context.Context) error)
}

// SchedulerOptions configures the scheduler.
type SchedulerOptions struct {
	PollInterval    time.Duration // how often due jobs are checked
	FailedRetention time.Duration // how long failed jobs are kept for inspection
	FiringLease     time.Duration // how long a fired job is left alone before refiring
}

// Scheduler polls the store for due jobs and dispatches them to registered
// handlers by job kind. A cron schedule inside the scheduler purges old
// failed jobs daily.
type Scheduler struct {
	store      *Store
	logger     *logger.Logger
	dispatcher Dispatcher
	opts       SchedulerOptions

	maintenance *cron.Cron
	ticker      *time.Ticker
	ctx         context.Context
	cancel      context.CancelFunc
	pollDone    chan struct{}

	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	started  bool
}

// NewScheduler creates a scheduler over the given store.
func NewScheduler(store *Store, log *logger.Logger, dispatcher Dispatcher, opts SchedulerOptions) *Scheduler {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 30 * time.Second
	}
	if opts.FiringLease <= 0 {
		opts.FiringLease = 5 * time.Minute
	}
	return &Scheduler{
		store:       store,
		logger:      log,
		dispatcher:  dispatcher,
		opts:        opts,
		maintenance: cron.New(),
		handlers:    make(map[string]HandlerFunc),
	}
}

// Define registers the handler for a job kind. Jobs of an unknown kind are
// left untouched in the store.
func (s *Scheduler) Define(kind string, h HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[kind] = h
}

// Start begins polling for due jobs and starts the maintenance schedule.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("scheduler already started")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.started = true

	if s.opts.FailedRetention > 0 {
		if _, err := s.maintenance.AddFunc("@daily", s.purgeFailed); err != nil {
			return fmt.Errorf("failed to register maintenance job: %w", err)
		}
	}
	s.maintenance.Start()

	s.ticker = time.NewTicker(s.opts.PollInterval)
	s.pollDone = make(chan struct{})
	go func() {
		defer close(s.pollDone)
		// Fire anything already overdue before the first tick.
		s.pollOnce(time.Now())
		for {
			select {
			case <-s.ctx.Done():
				return
			case now := <-s.ticker.C:
				s.pollOnce(now)
			}
		}
	}()

	s.logger.Info("job scheduler started",
		logger.Field{Key: "poll_interval", Value: s.opts.PollInterval.String()})
	return nil
}

// Stop stops polling and waits for the poll goroutine to exit, so no
// dispatch can happen after Stop returns. In-flight handlers finish through
// the dispatcher; the maintenance cron settles before Stop returns.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return fmt.Errorf("scheduler not started")
	}
	s.started = false
	s.cancel()
	if s.ticker != nil {
		s.ticker.Stop()
	}
	s.mu.Unlock()

	// The poll goroutine may be inside pollOnce; the lock is released while
	// waiting so handler lookup does not deadlock against it.
	<-s.pollDone
	<-s.maintenance.Stop().Done()

	s.logger.Info("job scheduler stopped")
	return nil
}

// pollOnce claims every due job and dispatches it to its handler.
func (s *Scheduler) pollOnce(now time.Time) {
	due, err := s.store.ClaimDue(s.ctx, now, s.opts.FiringLease)
	if err != nil {
		s.logger.Error("failed to claim due jobs", err)
		return
	}

	for _, job := range due {
		s.mu.RLock()
		handler, ok := s.handlers[job.Kind]
		s.mu.RUnlock()

		if !ok {
			s.logger.Warn("no handler for job kind",
				logger.Field{Key: "job_id", Value: job.ID.String()},
				logger.Field{Key: "kind", Value: job.Kind})
			continue
		}

		job := job
		s.dispatcher.Dispatch(job.ID.String(), func(ctx context.Context) error {
			return handler(ctx, job)
		})

		s.logger.Debug("job dispatched",
			logger.Field{Key: "job_id", Value: job.ID.String()},
			logger.Field{Key: "kind", Value: job.Kind},
			logger.Field{Key: "fired_at", Value: job.LastRunAt})
	}
}

func (s *Scheduler) purgeFailed() {
	cutoff := time.Now().Add(-s.opts.FailedRetention)
	n, err := s.store.PurgeFailed(s.ctx, cutoff)
	if err != nil {
		s.logger.Error("failed to purge failed jobs", err)
		return
	}
	if n > 0 {
		s.logger.Info("purged failed jobs",
			logger.Field{Key: "count", Value: n},
			logger.Field{Key: "cutoff", Value: cutoff})
	}
}

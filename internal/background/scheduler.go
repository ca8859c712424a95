// Package background runs short jobs off the request path on a small worker
// pool with retries.
package background

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"firmsite/pkg/logger"
)

type SchedulerConfig struct {
	WorkerCount int
	QueueSize   int
}

type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

type Job struct {
	Name        string
	Run         func(ctx context.Context) error
	Timeout     time.Duration
	RetryPolicy RetryPolicy
}

var (
	ErrSchedulerNotStarted = errors.New("scheduler not started")
	ErrJobAlreadyScheduled = errors.New("job already scheduled")
	ErrQueueFull           = errors.New("job queue is full")
)

type Scheduler struct {
	config SchedulerConfig

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	active  map[string]struct{}

	queue chan task
	wg    sync.WaitGroup
}

type task struct {
	job     Job
	attempt int
	unique  bool
}

var (
	metricsOnce  sync.Once
	jobRunsTotal *prometheus.CounterVec
	jobDuration  *prometheus.HistogramVec
)

func initMetrics() {
	metricsOnce.Do(func() {
		jobRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "firmsite",
			Subsystem: "background",
			Name:      "job_runs_total",
			Help:      "Background job attempts by outcome",
		}, []string{"job", "status"})

		jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "firmsite",
			Subsystem: "background",
			Name:      "job_duration_seconds",
			Help:      "Duration of background job attempts",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"})
	})
}

func NewScheduler(cfg SchedulerConfig) *Scheduler {
	initMetrics()

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 32
	}

	return &Scheduler{
		config: cfg,
		queue:  make(chan task, cfg.QueueSize),
		active: make(map[string]struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.started = true

	for i := 0; i < s.config.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker()
	}
}

func (s *Scheduler) worker() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case t := <-s.queue:
			s.execute(t)
		}
	}
}

func (s *Scheduler) execute(t task) {
	for {
		err := s.run(t)
		if err == nil || !s.shouldRetry(t, err) {
			s.finish(t, err)
			return
		}

		t.attempt++
		if backoff := t.job.RetryPolicy.Backoff; backoff > 0 {
			timer := time.NewTimer(backoff)
			select {
			case <-timer.C:
			case <-s.ctx.Done():
				timer.Stop()
				s.finish(t, context.Canceled)
				return
			}
		}
	}
}

func (s *Scheduler) run(t task) (runErr error) {
	start := time.Now()
	status := "success"

	ctx := s.ctx
	if t.job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.job.Timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			runErr = fmt.Errorf("panic: %v", r)
		}
		if runErr != nil {
			status = "failure"
			if errors.Is(runErr, context.Canceled) {
				status = "canceled"
			}
		}
		jobDuration.WithLabelValues(t.job.Name).Observe(time.Since(start).Seconds())
		jobRunsTotal.WithLabelValues(t.job.Name, status).Inc()
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	return t.job.Run(ctx)
}

func (s *Scheduler) shouldRetry(t task, err error) bool {
	if errors.Is(err, context.Canceled) || s.ctx.Err() != nil {
		return false
	}
	return t.attempt <= t.job.RetryPolicy.MaxRetries
}

func (s *Scheduler) finish(t task, runErr error) {
	if t.unique {
		s.mu.Lock()
		delete(s.active, t.job.Name)
		s.mu.Unlock()
	}

	fields := map[string]interface{}{"job": t.job.Name, "attempt": t.attempt}
	switch {
	case runErr == nil:
		logger.Debug("Background job completed", fields)
	case errors.Is(runErr, context.Canceled):
		logger.Warn("Background job canceled", fields)
	default:
		logger.Error(runErr, "Background job failed", fields)
	}
}

// Schedule queues job without blocking. It fails with ErrQueueFull when the
// workers are saturated.
func (s *Scheduler) Schedule(job Job) error {
	return s.schedule(job, false)
}

// ScheduleUnique queues job unless a job with the same name is pending or running.
func (s *Scheduler) ScheduleUnique(job Job) error {
	return s.schedule(job, true)
}

func (s *Scheduler) schedule(job Job, unique bool) error {
	if job.Name == "" {
		return errors.New("job name is required")
	}
	if job.Run == nil {
		return errors.New("job runner is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || s.ctx.Err() != nil {
		return ErrSchedulerNotStarted
	}
	if unique {
		if _, exists := s.active[job.Name]; exists {
			return ErrJobAlreadyScheduled
		}
	}

	select {
	case s.queue <- task{job: job, attempt: 1, unique: unique}:
	default:
		return ErrQueueFull
	}

	if unique {
		s.active[job.Name] = struct{}{}
	}
	return nil
}

func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	s.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) ActiveJobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

package background

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"course-marketplace-backend/pkg/logger"
)

type SchedulerConfig struct {
	WorkerCount int
	QueueSize   int
}

// RetryPolicy doubles Backoff after every failed attempt, up to MaxBackoff when set.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
	MaxBackoff time.Duration
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	if p.Backoff <= 0 {
		return 0
	}
	wait := p.Backoff
	for i := 1; i < attempt; i++ {
		wait *= 2
		if p.MaxBackoff > 0 && wait >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if p.MaxBackoff > 0 && wait > p.MaxBackoff {
		return p.MaxBackoff
	}
	return wait
}

type Job struct {
	Name        string
	Run         func(ctx context.Context) error
	Timeout     time.Duration
	RetryPolicy RetryPolicy
}

var (
	ErrSchedulerNotStarted   = errors.New("scheduler not started")
	ErrJobAlreadyScheduled   = errors.New("job already scheduled")
	ErrQueueFull             = errors.New("job queue is full")
	errSchedulerShuttingDown = errors.New("scheduler is shutting down")
)

// Scheduler feeds a bounded queue to a fixed set of workers. Enqueueing never blocks,
// so cron callbacks and request handlers can submit work freely. A failed job waits for
// its retry on a timer and does not hold a worker meanwhile.
type Scheduler struct {
	cfg SchedulerConfig

	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	inFlight map[string]struct{} // unique names that are queued, waiting to retry or running
	timers   map[*time.Timer]struct{}

	queue   chan queuedJob
	workers sync.WaitGroup
}

type queuedJob struct {
	job     Job
	attempt int
	unique  bool
}

var (
	metricsOnce    sync.Once
	jobRuns        *prometheus.CounterVec
	jobDuration    *prometheus.HistogramVec
	jobLastSuccess *prometheus.GaugeVec
	queueDepth     prometheus.Gauge
)

func initMetrics() {
	metricsOnce.Do(func() {
		jobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "course_marketplace",
			Subsystem: "background",
			Name:      "job_runs_total",
			Help:      "Background job executions by outcome.",
		}, []string{"job", "status"})

		jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "course_marketplace",
			Subsystem: "background",
			Name:      "job_duration_seconds",
			Help:      "Duration of background job executions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"})

		jobLastSuccess = promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "course_marketplace",
			Subsystem: "background",
			Name:      "job_last_success_timestamp",
			Help:      "Unix time of the last successful run of each job.",
		}, []string{"job"})

		queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "course_marketplace",
			Subsystem: "background",
			Name:      "queue_depth",
			Help:      "Jobs waiting for a worker.",
		})
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
		cfg:      cfg,
		queue:    make(chan queuedJob, cfg.QueueSize),
		inFlight: make(map[string]struct{}),
		timers:   make(map[*time.Timer]struct{}),
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
	for i := 0; i < s.cfg.WorkerCount; i++ {
		s.workers.Add(1)
		go s.work()
	}
}

func (s *Scheduler) Schedule(job Job) error {
	return s.submit(job, false)
}

// ScheduleUnique refuses a job while another with the same name is still pending.
func (s *Scheduler) ScheduleUnique(job Job) error {
	return s.submit(job, true)
}

func (s *Scheduler) submit(job Job, unique bool) error {
	if job.Name == "" {
		return errors.New("job name is required")
	}
	if job.Run == nil {
		return errors.New("job runner is required")
	}

	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return ErrSchedulerNotStarted
	}
	if unique {
		if _, pending := s.inFlight[job.Name]; pending {
			s.mu.Unlock()
			return ErrJobAlreadyScheduled
		}
		s.inFlight[job.Name] = struct{}{}
	}
	s.mu.Unlock()

	queued := queuedJob{job: job, attempt: 1, unique: unique}
	if err := s.offer(queued); err != nil {
		s.forget(queued)
		return err
	}
	return nil
}

func (s *Scheduler) offer(queued queuedJob) error {
	if s.ctx.Err() != nil {
		return errSchedulerShuttingDown
	}
	select {
	case s.queue <- queued:
		queueDepth.Set(float64(len(s.queue)))
		return nil
	default:
		return ErrQueueFull
	}
}

func (s *Scheduler) work() {
	defer s.workers.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case queued := <-s.queue:
			queueDepth.Set(float64(len(s.queue)))
			s.process(queued)
		}
	}
}

func (s *Scheduler) process(queued queuedJob) {
	err := s.run(queued)
	if err == nil {
		s.done(queued, nil)
		return
	}
	if !errors.Is(err, context.Canceled) && queued.attempt <= queued.job.RetryPolicy.MaxRetries {
		if s.retryLater(queued) {
			return
		}
	}
	s.done(queued, err)
}

func (s *Scheduler) run(queued queuedJob) (err error) {
	name := queued.job.Name
	fields := map[string]interface{}{"job": name, "attempt": queued.attempt}
	started := time.Now()
	status := "success"

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", name, r)
			logger.Error(err, "Background job panicked", fields)
		}
		switch {
		case err == nil:
			jobLastSuccess.WithLabelValues(name).SetToCurrentTime()
		case errors.Is(err, context.Canceled):
			status = "canceled"
		default:
			status = "failure"
		}
		jobRuns.WithLabelValues(name, status).Inc()
		jobDuration.WithLabelValues(name).Observe(time.Since(started).Seconds())
	}()

	ctx := s.ctx
	if queued.job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, queued.job.Timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := queued.job.Run(ctx); err != nil {
		logger.Warn("Background job attempt failed", map[string]interface{}{
			"job":     name,
			"attempt": queued.attempt,
			"error":   err.Error(),
		})
		return err
	}
	return nil
}

// retryLater requeues the next attempt after the policy's backoff.
func (s *Scheduler) retryLater(queued queuedJob) bool {
	wait := queued.job.RetryPolicy.delay(queued.attempt)
	next := queued
	next.attempt++

	if wait <= 0 {
		return s.offer(next) == nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return false
	}
	var timer *time.Timer
	timer = time.AfterFunc(wait, func() {
		s.mu.Lock()
		delete(s.timers, timer)
		s.mu.Unlock()
		if err := s.offer(next); err != nil {
			s.done(next, err)
		}
	})
	s.timers[timer] = struct{}{}
	return true
}

func (s *Scheduler) done(queued queuedJob, err error) {
	s.forget(queued)

	fields := map[string]interface{}{"job": queued.job.Name, "attempt": queued.attempt}
	switch {
	case err == nil:
		logger.Debug("Background job completed", fields)
	case errors.Is(err, context.Canceled), errors.Is(err, errSchedulerShuttingDown):
		logger.Warn("Background job canceled", fields)
	default:
		logger.Error(err, "Background job gave up", fields)
	}
}

func (s *Scheduler) forget(queued queuedJob) {
	if !queued.unique {
		return
	}
	s.mu.Lock()
	delete(s.inFlight, queued.job.Name)
	s.mu.Unlock()
}

// Shutdown cancels running jobs, drops pending retries and waits for the workers.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.cancel()
	for timer := range s.timers {
		timer.Stop()
	}
	clear(s.timers)
	clear(s.inFlight)
	s.mu.Unlock()

	stopped := make(chan struct{})
	go func() {
		s.workers.Wait()
		close(stopped)
	}()

	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ActiveJobCount is the number of unique jobs not yet finished.
func (s *Scheduler) ActiveJobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inFlight)
}

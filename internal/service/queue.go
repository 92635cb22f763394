package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	zotel "github.com/zasterix/zasterix/internal/adapter/otel"
	"github.com/zasterix/zasterix/internal/config"
	"github.com/zasterix/zasterix/internal/resilience"
)

// ErrQueueStopped is returned by Submit after Stop.
var ErrQueueStopped = errors.New("background queue stopped")

// Job is one unit of best-effort background work.
type Job struct {
	Kind string
	Run  func(ctx context.Context) error
	// OnDone, if set, is called once with the final outcome.
	OnDone func(err error)
}

// BackgroundQueue runs jobs on a bounded worker pool. Jobs are retried with a
// fixed backoff and executed through a circuit breaker; a job that exhausts
// its attempts is logged and dropped.
type BackgroundQueue struct {
	jobs        chan Job
	workers     int
	maxAttempts int
	backoff     time.Duration
	jobTimeout  time.Duration
	breaker     *resilience.Breaker
	metrics     *zotel.Metrics

	mu      sync.RWMutex
	stopped bool
	quit    chan struct{}
	wg      sync.WaitGroup

	dropped atomic.Int64
	failed  atomic.Int64
}

// NewBackgroundQueue creates a queue from cfg. Start must be called before
// jobs are processed.
func NewBackgroundQueue(cfg config.Queue, breaker *resilience.Breaker, metrics *zotel.Metrics) *BackgroundQueue {
	return &BackgroundQueue{
		jobs:        make(chan Job, cfg.Size),
		workers:     cfg.Workers,
		maxAttempts: max(cfg.MaxAttempts, 1),
		backoff:     cfg.Backoff,
		jobTimeout:  cfg.JobTimeout,
		breaker:     breaker,
		metrics:     metrics,
		quit:        make(chan struct{}),
	}
}

// Start launches the workers.
func (q *BackgroundQueue) Start() {
	for range q.workers {
		q.wg.Add(1)
		go q.work()
	}
}

// Submit enqueues job without blocking. A full queue drops the job, counts it
// and reports false; the OnDone of a dropped job runs before Submit returns.
func (q *BackgroundQueue) Submit(job Job) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.stopped {
		q.drop(job, ErrQueueStopped)
		return false
	}
	select {
	case q.jobs <- job:
		return true
	default:
		q.drop(job, errors.New("background queue full"))
		return false
	}
}

// Stop stops accepting jobs, lets the workers finish the queued ones and
// waits for them. Pending backoff waits are cut short.
func (q *BackgroundQueue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	close(q.quit)
	close(q.jobs)
	q.mu.Unlock()

	q.wg.Wait()
}

// Dropped returns the number of jobs that were never completed.
func (q *BackgroundQueue) Dropped() int64 { return q.dropped.Load() }

// Failed returns the number of failed attempts.
func (q *BackgroundQueue) Failed() int64 { return q.failed.Load() }

// Pending returns the number of queued jobs.
func (q *BackgroundQueue) Pending() int { return len(q.jobs) }

func (q *BackgroundQueue) work() {
	defer q.wg.Done()
	for job := range q.jobs {
		q.run(job)
	}
}

func (q *BackgroundQueue) run(job Job) {
	var err error
	for attempt := 1; attempt <= q.maxAttempts; attempt++ {
		if err = q.attempt(job, attempt); err == nil {
			break
		}
		q.failed.Add(1)
		q.metrics.Inc(context.Background(), zotel.JobsFailed)
		slog.Warn("background job failed", "kind", job.Kind, "attempt", attempt, "error", err)

		if attempt == q.maxAttempts || !q.wait() {
			break
		}
	}

	if err != nil {
		q.drop(job, err)
		return
	}
	if job.OnDone != nil {
		job.OnDone(nil)
	}
}

func (q *BackgroundQueue) attempt(job Job, n int) error {
	ctx := context.Background()
	if q.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.jobTimeout)
		defer cancel()
	}
	ctx, span := zotel.StartJobSpan(ctx, job.Kind, n)
	var err error
	if q.breaker != nil {
		err = q.breaker.ExecuteContext(ctx, job.Run)
	} else {
		err = job.Run(ctx)
	}
	zotel.EndSpan(span, err)
	return err
}

// wait sleeps for the backoff and reports false if the queue was stopped meanwhile.
func (q *BackgroundQueue) wait() bool {
	if q.backoff <= 0 {
		return true
	}
	t := time.NewTimer(q.backoff)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-q.quit:
		return false
	}
}

func (q *BackgroundQueue) drop(job Job, err error) {
	q.dropped.Add(1)
	q.metrics.Inc(context.Background(), zotel.JobsDropped)
	slog.Error("background job dropped", "kind", job.Kind, "error", err)
	if job.OnDone != nil {
		job.OnDone(err)
	}
}

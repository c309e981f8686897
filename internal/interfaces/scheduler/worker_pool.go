package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"finsync/internal/domain/reconcile"
)

var (
	jobTracer          = otel.Tracer("finsync/scheduler")
	jobMeter           = otel.Meter("finsync/scheduler")
	jobDuration, _     = jobMeter.Float64Histogram("scheduler.job.duration", metric.WithDescription("Job execution duration in seconds"), metric.WithUnit("s"))
	jobTotal, _        = jobMeter.Int64Counter("scheduler.job.total", metric.WithDescription("Total jobs executed by status"))
	jobQueueDropped, _ = jobMeter.Int64Counter("scheduler.job.queue_dropped", metric.WithDescription("Jobs dropped due to full queue"))
)

// ErrQueueFull is returned by Submit when the job queue has no free slot.
var ErrQueueFull = errors.New("job queue full")

// DefaultJobTimeout bounds a single job execution.
const DefaultJobTimeout = 120 * time.Second

// WorkerPool runs jobs on a fixed number of goroutines. It also serves as the
// reconcile.Dispatcher for reference backfills.
type WorkerPool struct {
	workerCount int
	jobDelay    time.Duration
	jobTimeout  time.Duration
	jobs        chan Job
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	log         zerolog.Logger

	// mu guards closed and sends on jobs against Shutdown closing it.
	mu     sync.RWMutex
	closed bool
}

var _ reconcile.Dispatcher = (*WorkerPool)(nil)

// NewWorkerPool creates a pool of workerCount workers sharing a queue of
// queueSize jobs. jobDelay spaces consecutive jobs of one worker.
func NewWorkerPool(workerCount int, jobDelay time.Duration, queueSize int, log zerolog.Logger) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())
	if workerCount <= 0 {
		workerCount = 1
	}

	return &WorkerPool{
		workerCount: workerCount,
		jobDelay:    jobDelay,
		jobTimeout:  DefaultJobTimeout,
		jobs:        make(chan Job, queueSize),
		ctx:         ctx,
		cancel:      cancel,
		log:         log.With().Str("component", "worker_pool").Logger(),
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start() {
	wp.log.Info().Int("workers", wp.workerCount).Msg("starting worker pool")

	for i := 1; i <= wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()
	log := wp.log.With().Int("worker_id", id).Logger()

	for {
		select {
		case <-wp.ctx.Done():
			log.Debug().Msg("worker shutting down")
			return

		case job, ok := <-wp.jobs:
			if !ok {
				log.Debug().Msg("job channel closed")
				return
			}

			wp.processJob(id, job, log)

			if wp.jobDelay > 0 {
				select {
				case <-time.After(wp.jobDelay):
				case <-wp.ctx.Done():
					return
				}
			}
		}
	}
}

// processJob executes a single job with logging and telemetry. A panicking
// job is recorded as failed and never takes the worker down.
func (wp *WorkerPool) processJob(workerID int, job Job, log zerolog.Logger) {
	log = log.With().Str("job_id", job.ID()).Str("job", job.Description()).Logger()

	ctx, cancel := context.WithTimeout(wp.ctx, wp.jobTimeout)
	defer cancel()

	ctx, span := jobTracer.Start(ctx, "job.execute",
		trace.WithAttributes(
			attribute.Int("worker.id", workerID),
			attribute.String("job.id", job.ID()),
			attribute.String("job.description", job.Description()),
		),
	)
	defer span.End()

	start := time.Now()
	err := runJob(ctx, job)
	jobDuration.Record(ctx, time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		jobTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "error")))
		log.Error().Err(err).Dur("duration", time.Since(start)).Msg("job failed")
		return
	}

	jobTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "success")))
	log.Debug().Dur("duration", time.Since(start)).Msg("job completed")
}

func runJob(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return job.Execute(ctx)
}

// Submit queues job without blocking. It returns ErrQueueFull when the queue
// is full and reconcile.ErrDispatcherClosed after Shutdown.
func (wp *WorkerPool) Submit(job Job) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.closed {
		return reconcile.ErrDispatcherClosed
	}

	select {
	case wp.jobs <- job:
		return nil
	default:
		jobQueueDropped.Add(context.Background(), 1)
		wp.log.Warn().Str("job", job.Description()).Msg("job queue full, dropping job")
		return fmt.Errorf("%w: dropping %s", ErrQueueFull, job.Description())
	}
}

// SubmitBatch queues jobs and returns how many were accepted.
func (wp *WorkerPool) SubmitBatch(jobs []Job) int {
	submitted := 0
	for _, job := range jobs {
		if err := wp.Submit(job); err != nil {
			wp.log.Warn().Err(err).Str("job", job.Description()).Msg("failed to submit job")
			continue
		}
		submitted++
	}
	wp.log.Info().Int("submitted", submitted).Int("total", len(jobs)).Msg("submitted jobs to worker pool")
	return submitted
}

// Dispatch queues fn as a job. fn sees the values of ctx but is only
// cancelled by the pool.
func (wp *WorkerPool) Dispatch(ctx context.Context, name string, fn func(ctx context.Context)) error {
	return wp.Submit(newFuncJob(ctx, name, fn))
}

func (wp *WorkerPool) close() {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if !wp.closed {
		wp.closed = true
		close(wp.jobs)
	}
}

// Shutdown stops accepting jobs and waits for the queued ones to finish.
func (wp *WorkerPool) Shutdown() {
	wp.log.Info().Msg("initiating graceful shutdown")
	wp.close()
	wp.wg.Wait()
	wp.cancel()
	wp.log.Info().Msg("worker pool shutdown complete")
}

// ShutdownWithTimeout is Shutdown that cancels running jobs once timeout
// elapses.
func (wp *WorkerPool) ShutdownWithTimeout(timeout time.Duration) {
	wp.log.Info().Dur("timeout", timeout).Msg("initiating graceful shutdown")
	wp.close()

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		wp.log.Info().Msg("all workers finished gracefully")
	case <-time.After(timeout):
		wp.log.Warn().Msg("timeout reached, forcing shutdown")
	}
	wp.cancel()
}

package async

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ProcessorQueue runs jobs on a fixed pool of workers, each job under its own timeout.
type ProcessorQueue struct {
	handler Handler
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	// mu is held shared by senders and exclusively by Shutdown around close(ch).
	mu      sync.RWMutex
	done    chan struct{}
	closing sync.Once

	succeeded atomic.Uint32
	failed    atomic.Uint32
}

// Stats counts finished jobs.
type Stats struct {
	Succeeded uint32
	Failed    uint32
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewProcessorQueue(handler Handler, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		handler: handler,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 256),
		done:    make(chan struct{}),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("async.worker.started", "worker_id", workerID)

				for job := range q.ch {
					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					start := time.Now()
					err := q.handler.Handle(ctx, job)
					cancel()

					if err != nil {
						q.failed.Add(1)
						q.logger.Error("async.job.failed", "worker_id", workerID, "path", job.Path, "trace_id", job.TraceID, "error", err)
					} else {
						q.succeeded.Add(1)
						q.logger.Info("async.job.ok", "worker_id", workerID, "path", job.Path, "trace_id", job.TraceID,
							"elapsed_ms", time.Since(start).Milliseconds())
					}
				}

				q.logger.Debug("async.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

// Enqueue blocks while the queue is full, until ctx is done or the queue
// shuts down.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	if job.TraceID == "" {
		job.TraceID = uuid.NewString()
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	select {
	case <-q.done:
		q.logger.Warn("async.enqueue.rejected", "path", job.Path, "reason", "shutting down")
		return ErrQueueClosed
	default:
	}
	select {
	case q.ch <- job:
		q.logger.Debug("async.enqueue.ok", "path", job.Path, "trace_id", job.TraceID)
		return nil
	default:
	}
	q.logger.Warn("async.enqueue.backpressure", "path", job.Path)
	select {
	case q.ch <- job:
		return nil
	case <-q.done:
		q.logger.Warn("async.enqueue.rejected", "path", job.Path, "reason", "shutting down")
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for queued ones to drain, or for ctx.
// Senders blocked in Enqueue are released with ErrQueueClosed.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	first := false
	q.closing.Do(func() {
		first = true
		close(q.done)
		q.mu.Lock()
		close(q.ch)
		q.mu.Unlock()
	})
	if !first {
		return
	}

	drained := make(chan struct{})
	go func() { defer close(drained); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("async.shutdown.interrupted")
	case <-drained:
		q.logger.Info("async.shutdown.drained", "succeeded", q.succeeded.Load(), "failed", q.failed.Load())
	}
}

func (q *ProcessorQueue) Stats() Stats {
	return Stats{Succeeded: q.succeeded.Load(), Failed: q.failed.Load()}
}

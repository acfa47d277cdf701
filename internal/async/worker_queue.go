package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/benefits-extractor/internal/common"
	"github.com/joseph-ayodele/benefits-extractor/internal/metrics"
)

var (
	ErrQueueFull   = common.NewAppError("QUEUE_FULL", "extraction queue is full", common.ErrUnavailable)
	ErrQueueClosed = common.NewAppError("QUEUE_CLOSED", "extraction queue is shutting down", common.ErrUnavailable)
)

// WorkerQueue runs jobs on a fixed pool of workers fed by a bounded channel.
type WorkerQueue struct {
	proc    Processor
	logger  *slog.Logger
	metrics *metrics.Metrics
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	// base is cancelled when a shutdown deadline passes so in-flight jobs stop.
	base   context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

type Option func(*WorkerQueue)

func WithWorkers(n int) Option {
	return func(q *WorkerQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *WorkerQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *WorkerQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(q *WorkerQueue) { q.metrics = m }
}

func NewWorkerQueue(proc Processor, logger *slog.Logger, opts ...Option) *WorkerQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &WorkerQueue{
		proc:    proc,
		logger:  logger,
		workers: 2,
		timeout: 10 * time.Minute,
		ch:      make(chan Job, 64),
	}
	for _, o := range opts {
		o(q)
	}
	q.base, q.cancel = context.WithCancel(context.Background())
	q.start()
	return q
}

func (q *WorkerQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go q.work(i + 1)
		}
	})
}

func (q *WorkerQueue) work(workerID int) {
	defer q.wg.Done()
	q.logger.Debug("queue.worker.started", "worker_id", workerID)

	for job := range q.ch {
		q.metrics.SetQueueDepth(len(q.ch))
		q.run(workerID, job)
	}

	q.logger.Debug("queue.worker.stopped", "worker_id", workerID)
}

func (q *WorkerQueue) run(workerID int, job Job) {
	ctx, cancel := context.WithTimeout(q.base, q.timeout)
	defer cancel()
	if job.RequestID != "" {
		ctx = common.WithRequestID(ctx, job.RequestID)
	}

	start := time.Now()
	err := q.proc.Process(ctx, job)
	attrs := []any{
		"worker_id", workerID,
		"document_id", job.Document.ID,
		"profile_id", job.ProfileID,
		"waited_ms", start.Sub(job.SubmittedAt).Milliseconds(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	}
	if err != nil {
		q.metrics.ObserveJob("failed")
		q.logger.Error("queue.job.failed", append(attrs, "error", err)...)
		return
	}
	q.metrics.ObserveJob("completed")
	q.logger.Info("queue.job.completed", attrs...)
}

// Enqueue hands the job to a worker without blocking. A full queue answers
// ErrQueueFull so callers can push back.
func (q *WorkerQueue) Enqueue(_ context.Context, job Job) error {
	if job.Document == nil {
		return common.InvalidArgumentError("job has no document")
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("queue.enqueue.closed", "document_id", job.Document.ID)
		return ErrQueueClosed
	}
	select {
	case q.ch <- job:
		q.metrics.ObserveJob("queued")
		q.metrics.SetQueueDepth(len(q.ch))
		q.logger.Info("queue.enqueue.ok", "document_id", job.Document.ID, "profile_id", job.ProfileID, "depth", len(q.ch))
		return nil
	default:
		q.metrics.ObserveJob("rejected")
		q.logger.Warn("queue.enqueue.full", "document_id", job.Document.ID, "capacity", cap(q.ch))
		return ErrQueueFull
	}
}

// Shutdown stops intake and waits for queued jobs to drain. When ctx ends
// first, running jobs are cancelled.
func (q *WorkerQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.cancel()
		q.logger.Warn("queue.shutdown.interrupted", "error", ctx.Err())
		<-done
	case <-done:
		q.cancel()
		q.logger.Info("queue.shutdown.drained")
	}
}

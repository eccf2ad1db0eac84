package queue

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
)

// Idle polling backoff; the ceiling is the configured poll interval
const minBackoff = 100 * time.Millisecond

// WorkerPool runs N workers that claim QUEUED jobs oldest-first and process them.
// Workers race on the claim, so a job picked by two workers still runs once.
type WorkerPool struct {
	queue        *JobQueue
	concurrency  int
	pollInterval time.Duration
	wake         chan struct{}
	logger       arbor.ILogger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWorkerPool creates a worker pool over queue
func NewWorkerPool(queue *JobQueue, config common.QueueConfig, logger arbor.ILogger) *WorkerPool {
	concurrency := config.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &WorkerPool{
		queue:        queue,
		concurrency:  concurrency,
		pollInterval: common.ParseDuration(config.PollInterval, 2*time.Second),
		wake:         make(chan struct{}, concurrency),
		logger:       logger,
	}
}

// Start launches the workers. They stop when ctx is cancelled or Stop is called.
func (wp *WorkerPool) Start(ctx context.Context) {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.running {
		wp.logger.Warn().Msg("Worker pool already running")
		return
	}

	ctx, wp.cancel = context.WithCancel(ctx)
	wp.running = true

	wp.logger.Info().
		Int("concurrency", wp.concurrency).
		Dur("poll_interval", wp.pollInterval).
		Msg("Starting worker pool")

	for i := 0; i < wp.concurrency; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

// Stop cancels the workers and waits for in-flight jobs to return
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if !wp.running {
		wp.mu.Unlock()
		return
	}
	wp.running = false
	cancel := wp.cancel
	wp.mu.Unlock()

	wp.logger.Info().Msg("Stopping worker pool...")
	cancel()
	wp.wg.Wait()
	wp.logger.Info().Msg("Worker pool stopped")
}

// Wake nudges idle workers to poll immediately, e.g. after an enqueue
func (wp *WorkerPool) Wake() {
	select {
	case wp.wake <- struct{}{}:
	default:
	}
}

func (wp *WorkerPool) worker(ctx context.Context, workerID int) {
	defer wp.wg.Done()
	defer common.RecoverPanic(wp.logger, "queue-worker")

	// Stagger starts across the poll interval to spread claim contention
	stagger := (wp.pollInterval / time.Duration(wp.concurrency)) * time.Duration(workerID)
	if stagger > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(stagger):
		}
	}

	wp.logger.Debug().Int("worker_id", workerID).Dur("stagger_delay", stagger).Msg("Worker started")

	backoff := minBackoff
	for {
		select {
		case <-ctx.Done():
			wp.logger.Debug().Int("worker_id", workerID).Msg("Worker stopped")
			return
		default:
		}

		if wp.processNext(ctx, workerID) {
			backoff = minBackoff
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-wp.wake:
			backoff = minBackoff
		case <-time.After(backoff):
			backoff *= 2
			if backoff > wp.pollInterval {
				backoff = wp.pollInterval
			}
		}
	}
}

// processNext tries the oldest QUEUED jobs until one is claimed. It reports
// whether a job was processed.
func (wp *WorkerPool) processNext(ctx context.Context, workerID int) bool {
	ids, err := wp.queue.nextQueued(ctx, wp.concurrency)
	if err != nil {
		wp.logger.Warn().Err(err).Int("worker_id", workerID).Msg("Failed to poll queued jobs")
		return false
	}

	for _, id := range ids {
		claimed, err := wp.queue.process(ctx, id)
		if !claimed {
			if err != nil {
				wp.logger.Warn().Err(err).Str("job_id", id).Int("worker_id", workerID).Msg("Failed to claim job")
			}
			continue
		}
		if err != nil {
			wp.logger.Debug().Err(err).Str("job_id", id).Int("worker_id", workerID).Msg("Job finished with error")
		}
		return true
	}
	return false
}

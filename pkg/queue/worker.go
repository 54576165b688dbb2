package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/publora/publora/pkg/backoff"
)

// WorkerRepository defines the interface for worker operations.
type WorkerRepository interface {
	// ClaimJob atomically claims the next available job under a visibility lock.
	ClaimJob(ctx context.Context, workerID uuid.UUID, lockDuration time.Duration) (*Job, error)

	// CompleteJob removes a successfully processed job from the queue.
	CompleteJob(ctx context.Context, jobID string) error

	// RetryJob records the failure, increments the attempt counter and makes
	// the job visible again after the given delay.
	RetryJob(ctx context.Context, jobID string, errMsg string, delay time.Duration) error

	// MoveToDLQ moves the job to the dead letter store and removes it from
	// the queue.
	MoveToDLQ(ctx context.Context, jobID string, errMsg string) error
}

// Observer receives job lifecycle notifications. Implementations must be
// safe for concurrent use; they are called synchronously from worker
// goroutines.
type Observer interface {
	JobStarted(job *Job)
	JobSucceeded(job *Job, duration time.Duration)
	JobRetried(job *Job, attempt int, delay time.Duration, err error)
	JobDeadLettered(job *Job, err error)
}

type noopObserver struct{}

func (noopObserver) JobStarted(*Job)                            {}
func (noopObserver) JobSucceeded(*Job, time.Duration)           {}
func (noopObserver) JobRetried(*Job, int, time.Duration, error) {}
func (noopObserver) JobDeadLettered(*Job, error)                {}

// Worker processes jobs from the queue.
type Worker struct {
	repo     WorkerRepository
	handlers map[string]Handler
	workerID uuid.UUID
	sem      chan struct{}
	wg       sync.WaitGroup
	mu       sync.RWMutex
	stopMu   sync.Mutex // protects stopping state and WaitGroup operations

	// Configuration
	pullInterval time.Duration
	lockTimeout  time.Duration
	backoff      backoff.Strategy
	observer     Observer
	logger       *slog.Logger

	// State management
	ctx      context.Context
	cancel   context.CancelFunc
	stopping atomic.Bool
}

// NewWorker creates a new job worker.
func NewWorker(repo WorkerRepository, opts ...WorkerOption) (*Worker, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}

	options := &workerOptions{
		pullInterval:      5 * time.Second,
		lockTimeout:       5 * time.Minute,
		maxConcurrentJobs: 1,
		backoff:           backoff.Default(),
		observer:          noopObserver{},
		logger:            slog.Default(),
	}

	for _, opt := range opts {
		opt(options)
	}

	return &Worker{
		repo:         repo,
		handlers:     make(map[string]Handler),
		workerID:     uuid.New(),
		sem:          make(chan struct{}, options.maxConcurrentJobs),
		pullInterval: options.pullInterval,
		lockTimeout:  options.lockTimeout,
		backoff:      options.backoff,
		observer:     options.observer,
		logger:       options.logger,
	}, nil
}

// RegisterHandler registers a single job handler.
func (w *Worker) RegisterHandler(handler Handler) error {
	if handler == nil {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.handlers[handler.Name()] = handler
	return nil
}

// RegisterHandlers registers multiple job handlers.
func (w *Worker) RegisterHandlers(handlers ...Handler) error {
	for _, h := range handlers {
		if err := w.RegisterHandler(h); err != nil {
			return err
		}
	}
	return nil
}

// Start begins processing jobs in the background.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.cancel != nil {
		w.mu.Unlock()
		return fmt.Errorf("worker already started")
	}

	if len(w.handlers) == 0 {
		w.mu.Unlock()
		return ErrNoHandlers
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	w.stopping.Store(false)

	go w.run()

	w.logger.Info("worker started",
		slog.String("worker_id", w.workerID.String()),
		slog.Int("max_concurrent", cap(w.sem)))

	return nil
}

// Stop gracefully shuts down the worker, waiting for active jobs to complete.
func (w *Worker) Stop() error {
	w.mu.Lock()
	if w.cancel == nil {
		w.mu.Unlock()
		return fmt.Errorf("worker not started")
	}

	w.stopMu.Lock()
	w.stopping.Store(true)
	w.stopMu.Unlock()

	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	cancel()

	w.logger.Info("worker stopping, waiting for active jobs to complete",
		slog.String("worker_id", w.workerID.String()))

	w.wg.Wait()

	w.logger.Info("worker stopped",
		slog.String("worker_id", w.workerID.String()))

	return nil
}

// Run starts the worker and returns a function suitable for errgroup.
func (w *Worker) Run(ctx context.Context) func() error {
	return func() error {
		if err := w.Start(ctx); err != nil {
			return err
		}

		<-ctx.Done()

		return w.Stop()
	}
}

// run is the main processing loop.
func (w *Worker) run() {
	ticker := time.NewTicker(w.pullInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			select {
			case w.sem <- struct{}{}:
				// Don't add to the WaitGroup after Stop() has started.
				w.stopMu.Lock()
				if w.stopping.Load() {
					w.stopMu.Unlock()
					<-w.sem
					return
				}
				w.wg.Add(1)
				w.stopMu.Unlock()

				go func() {
					defer w.wg.Done()
					defer func() { <-w.sem }()

					if err := w.pullAndProcess(); err != nil {
						if !errors.Is(err, ErrHandlerNotFound) {
							w.logger.Error("failed to process job",
								slog.String("worker_id", w.workerID.String()),
								slog.String("error", err.Error()))
						}
					}
				}()
			default:
				w.logger.Debug("all worker slots busy, skipping tick",
					slog.String("worker_id", w.workerID.String()))
			}
		}
	}
}

// pullAndProcess claims a job and processes it.
func (w *Worker) pullAndProcess() error {
	job, err := w.repo.ClaimJob(w.ctx, w.workerID, w.lockTimeout)
	if err != nil {
		// An empty queue is normal, not an error.
		if errors.Is(err, ErrNoJobToClaim) {
			return nil
		}
		return fmt.Errorf("failed to claim job: %w", err)
	}

	if job == nil {
		return nil
	}

	w.logger.Debug("claimed job",
		slog.String("worker_id", w.workerID.String()),
		slog.String("job_id", job.ID),
		slog.String("job_name", job.Name),
		slog.Int("attempts", int(job.Attempts)))

	return w.processJob(job)
}

// processJob executes a job with its handler and drives the retry state
// machine on failure.
func (w *Worker) processJob(job *Job) (retErr error) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("panic in handler: %v", r)
			w.logger.Error("handler panicked",
				slog.String("worker_id", w.workerID.String()),
				slog.String("job_id", job.ID),
				slog.String("job_name", job.Name),
				slog.Any("panic", r))
			_ = w.handleJobFailure(job, retErr, time.Since(start))
		}
	}()

	w.mu.RLock()
	handler, ok := w.handlers[job.Name]
	w.mu.RUnlock()

	if !ok {
		return w.handleMissingHandler(job)
	}

	w.observer.JobStarted(job)

	// The handler context is not tied to the worker lifecycle so graceful
	// shutdown lets in-flight jobs finish.
	ctx, cancel := context.WithTimeout(context.Background(), w.lockTimeout)
	defer cancel()

	err := handler.Handle(ctx, job.Payload)
	duration := time.Since(start)

	if err != nil {
		return w.handleJobFailure(job, err, duration)
	}

	return w.handleJobSuccess(job, duration)
}

// handleMissingHandler dead-letters jobs that have no registered handler.
// Retries cannot help without a handler; operators can requeue from the DLQ
// once the handler is deployed.
func (w *Worker) handleMissingHandler(job *Job) error {
	w.logger.Error("no handler registered for job name",
		slog.String("worker_id", w.workerID.String()),
		slog.String("job_id", job.ID),
		slog.String("job_name", job.Name))

	errMsg := "no handler registered for job name: " + job.Name
	if err := w.repo.MoveToDLQ(w.ctx, job.ID, errMsg); err != nil {
		return fmt.Errorf("failed to move job %s to DLQ: %w", job.ID, err)
	}

	return ErrHandlerNotFound
}

// handleJobFailure drives the retry state machine for a failed attempt:
//
//  1. Permanent errors dead-letter immediately; retrying a validation failure
//     only burns the attempt budget.
//  2. If the attempt cap is reached, the job dead-letters.
//  3. Otherwise the job is rescheduled. A provider retry-after hint wins over
//     the backoff strategy.
func (w *Worker) handleJobFailure(job *Job, execErr error, duration time.Duration) error {
	attempt := int(job.Attempts) + 1

	w.logger.Error("job attempt failed",
		slog.String("worker_id", w.workerID.String()),
		slog.String("job_id", job.ID),
		slog.String("job_name", job.Name),
		slog.Int("attempt", attempt),
		slog.Int("max_attempts", int(job.MaxAttempts)),
		slog.Duration("duration", duration),
		slog.String("error", execErr.Error()))

	if IsPermanent(execErr) {
		return w.deadLetter(job, execErr)
	}

	if attempt >= int(job.MaxAttempts) {
		return w.deadLetter(job, execErr)
	}

	delay, ok := RetryDelay(execErr)
	if !ok {
		delay = w.backoff.Delay(attempt)
	}

	if err := w.repo.RetryJob(w.ctx, job.ID, execErr.Error(), delay); err != nil {
		return fmt.Errorf("failed to schedule retry for job %s: %w", job.ID, err)
	}

	w.observer.JobRetried(job, attempt, delay, execErr)

	return nil
}

func (w *Worker) deadLetter(job *Job, execErr error) error {
	if err := w.repo.MoveToDLQ(w.ctx, job.ID, execErr.Error()); err != nil {
		return fmt.Errorf("failed to move job %s to DLQ: %w", job.ID, err)
	}

	w.logger.Warn("job moved to dead letter queue",
		slog.String("worker_id", w.workerID.String()),
		slog.String("job_id", job.ID),
		slog.String("job_name", job.Name),
		slog.Int("attempts", int(job.Attempts)+1))

	w.observer.JobDeadLettered(job, execErr)

	return nil
}

// handleJobSuccess removes the completed job from the queue.
func (w *Worker) handleJobSuccess(job *Job, duration time.Duration) error {
	if err := w.repo.CompleteJob(w.ctx, job.ID); err != nil {
		return fmt.Errorf("failed to mark job %s as completed: %w", job.ID, err)
	}

	w.logger.Info("job completed",
		slog.String("worker_id", w.workerID.String()),
		slog.String("job_id", job.ID),
		slog.String("job_name", job.Name),
		slog.Duration("duration", duration))

	w.observer.JobSucceeded(job, duration)

	return nil
}

package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage implements all queue repository interfaces for testing and
// local development.
type MemoryStorage struct {
	mu   sync.RWMutex
	jobs map[string]*Job
	dlq  []*DeadLetter

	// Lock management
	lockTicker *time.Ticker
	done       chan struct{}
	closeOnce  sync.Once
}

// NewMemoryStorage creates a new in-memory storage implementation.
func NewMemoryStorage() *MemoryStorage {
	ms := &MemoryStorage{
		jobs: make(map[string]*Job),
		done: make(chan struct{}),
	}

	// Recover jobs whose worker died holding the lock.
	ms.lockTicker = time.NewTicker(time.Second)
	go ms.lockExpirationManager()

	return ms
}

// Close stops the background goroutines.
func (ms *MemoryStorage) Close() error {
	ms.closeOnce.Do(func() {
		close(ms.done)
		ms.lockTicker.Stop()
	})
	return nil
}

// CreateJob implements EnqueuerRepository. Submitting an id that already
// exists returns ErrDuplicateJob, which the enqueuer treats as a no-op.
func (ms *MemoryStorage) CreateJob(ctx context.Context, job *Job) error {
	if job == nil {
		return ErrPayloadNil
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.jobs[job.ID]; exists {
		return ErrDuplicateJob
	}

	// Clone to prevent external modifications.
	jobCopy := *job
	ms.jobs[job.ID] = &jobCopy

	return nil
}

// ClaimJob implements WorkerRepository. The earliest visible pending job is
// claimed under a visibility lock.
func (ms *MemoryStorage) ClaimJob(ctx context.Context, workerID uuid.UUID, lockDuration time.Duration) (*Job, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	var best *Job

	for _, job := range ms.jobs {
		switch job.Status {
		case StatusPending:
			// Skip jobs scheduled for future execution (retry delays).
			if job.ScheduledAt.After(now) {
				continue
			}
			if job.LockedUntil != nil && job.LockedUntil.After(now) {
				continue
			}
		case StatusProcessing:
			// An expired lock means the claiming worker died; redeliver.
			if job.LockedUntil == nil || job.LockedUntil.After(now) {
				continue
			}
		default:
			continue
		}
		if best == nil || job.ScheduledAt.Before(best.ScheduledAt) {
			best = job
		}
	}

	if best == nil {
		return nil, ErrNoJobToClaim
	}

	lockUntil := now.Add(lockDuration)
	best.Status = StatusProcessing
	best.LockedUntil = &lockUntil
	best.LockedBy = &workerID

	jobCopy := *best
	return &jobCopy, nil
}

// CompleteJob implements WorkerRepository. Completed jobs are removed so the
// deterministic id becomes free for the schedule's next due occurrence.
func (ms *MemoryStorage) CompleteJob(ctx context.Context, jobID string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.jobs[jobID]; !exists {
		return ErrJobNotFound
	}

	delete(ms.jobs, jobID)
	return nil
}

// RetryJob implements WorkerRepository.
func (ms *MemoryStorage) RetryJob(ctx context.Context, jobID string, errMsg string, delay time.Duration) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	job, exists := ms.jobs[jobID]
	if !exists {
		return ErrJobNotFound
	}

	job.Attempts++
	job.LastError = &errMsg
	job.Status = StatusPending
	job.ScheduledAt = time.Now().Add(delay)
	job.LockedUntil = nil
	job.LockedBy = nil

	return nil
}

// MoveToDLQ implements WorkerRepository. The dead letter list is append-only.
func (ms *MemoryStorage) MoveToDLQ(ctx context.Context, jobID string, errMsg string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	job, exists := ms.jobs[jobID]
	if !exists {
		return ErrJobNotFound
	}

	ms.dlq = append(ms.dlq, &DeadLetter{
		ID:        uuid.New(),
		JobID:     job.ID,
		Name:      job.Name,
		Payload:   job.Payload,
		Attempts:  job.Attempts + 1,
		Error:     errMsg,
		FailedAt:  time.Now(),
		CreatedAt: time.Now(),
	})

	delete(ms.jobs, jobID)

	return nil
}

// ListDeadLetters implements DLQRepository.
func (ms *MemoryStorage) ListDeadLetters(ctx context.Context, limit int) ([]*DeadLetter, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	if limit <= 0 || limit > len(ms.dlq) {
		limit = len(ms.dlq)
	}

	out := make([]*DeadLetter, 0, limit)
	for _, dl := range ms.dlq[:limit] {
		dlCopy := *dl
		out = append(out, &dlCopy)
	}
	return out, nil
}

// Job returns a copy of the job with the given id, for tests and inspection.
func (ms *MemoryStorage) Job(jobID string) (*Job, bool) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	job, ok := ms.jobs[jobID]
	if !ok {
		return nil, false
	}
	jobCopy := *job
	return &jobCopy, true
}

// Len returns the number of jobs currently in the queue.
func (ms *MemoryStorage) Len() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.jobs)
}

// lockExpirationManager recovers jobs claimed by dead workers. Without it,
// a job locked by a crashed worker would be stuck forever.
func (ms *MemoryStorage) lockExpirationManager() {
	for {
		select {
		case <-ms.lockTicker.C:
			ms.expireLocks()
		case <-ms.done:
			return
		}
	}
}

// expireLocks resets processing jobs whose visibility lock has passed back to
// pending. The attempt count is preserved; redelivery is the at-least-once
// contract, not a fresh job.
func (ms *MemoryStorage) expireLocks() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	for _, job := range ms.jobs {
		if job.Status != StatusProcessing {
			continue
		}
		if job.LockedUntil != nil && job.LockedUntil.Before(now) {
			job.Status = StatusPending
			job.LockedUntil = nil
			job.LockedBy = nil
		}
	}
}

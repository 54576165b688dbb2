package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// EnqueuerRepository defines the interface for job creation.
type EnqueuerRepository interface {
	// CreateJob stores a new job. It returns ErrDuplicateJob when a job with
	// the same id already exists.
	CreateJob(ctx context.Context, job *Job) error
}

// Enqueuer handles job enqueueing with idempotent identity.
type Enqueuer struct {
	repo               EnqueuerRepository
	defaultMaxAttempts int8
}

// NewEnqueuer creates a new Enqueuer.
func NewEnqueuer(repo EnqueuerRepository, opts ...EnqueuerOption) (*Enqueuer, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}

	options := &enqueuerOptions{
		defaultMaxAttempts: 5,
	}

	for _, opt := range opts {
		opt(options)
	}

	return &Enqueuer{
		repo:               repo,
		defaultMaxAttempts: options.defaultMaxAttempts,
	}, nil
}

// Enqueue adds a new job to the queue under the given deterministic id.
// Submitting an id that is already present is a no-op: the queue keeps the
// existing job and Enqueue reports success. This is what makes overlapping
// producer cycles safe.
func (e *Enqueuer) Enqueue(ctx context.Context, jobID string, payload any, opts ...EnqueueOption) error {
	if jobID == "" {
		return ErrJobIDRequired
	}
	if payload == nil {
		return ErrPayloadNil
	}

	options := &enqueueOptions{
		maxAttempts: e.defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(options)
	}

	job, err := e.buildJob(jobID, payload, options)
	if err != nil {
		return err
	}

	if err := e.repo.CreateJob(ctx, job); err != nil {
		if errors.Is(err, ErrDuplicateJob) {
			return nil
		}
		return fmt.Errorf("failed to create job %q: %w", job.ID, err)
	}

	return nil
}

func (e *Enqueuer) buildJob(jobID string, payload any, options *enqueueOptions) (*Job, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload of type %T: %w", payload, err)
	}

	name := options.name
	if name == "" {
		name = qualifiedStructName(payload)
	}

	scheduledAt := time.Now()
	if options.scheduledAt != nil {
		scheduledAt = *options.scheduledAt
	} else if options.delay > 0 {
		scheduledAt = scheduledAt.Add(options.delay)
	}

	return &Job{
		ID:          jobID,
		Name:        name,
		Payload:     payloadBytes,
		Status:      StatusPending,
		Attempts:    0,
		MaxAttempts: options.maxAttempts,
		ScheduledAt: scheduledAt,
		CreatedAt:   time.Now(),
	}, nil
}

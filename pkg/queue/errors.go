package queue

import "errors"

// Common errors
var (
	// ErrRepositoryNil is returned when a nil repository is provided.
	ErrRepositoryNil = errors.New("repository cannot be nil")

	// ErrJobIDRequired is returned when enqueueing without a job id.
	ErrJobIDRequired = errors.New("job id cannot be empty")

	// ErrPayloadNil is returned when attempting to enqueue a nil payload.
	ErrPayloadNil = errors.New("payload cannot be nil")

	// ErrPayloadMarshal is returned when payload marshaling fails.
	ErrPayloadMarshal = errors.New("failed to marshal payload to JSON")

	// ErrDuplicateJob is returned by storage when a job with the same id
	// already exists. The enqueuer treats it as a successful no-op.
	ErrDuplicateJob = errors.New("job with this id already exists")

	// ErrNoJobToClaim is returned when no job is available for a worker.
	ErrNoJobToClaim = errors.New("no job available to claim")

	// ErrJobNotFound is returned when a job id is unknown to the storage.
	ErrJobNotFound = errors.New("job not found")

	// ErrHandlerNotFound is returned when no handler is registered for a job.
	ErrHandlerNotFound = errors.New("no handler registered for job name")

	// ErrNoHandlers is returned when a worker has no handlers registered.
	ErrNoHandlers = errors.New("no job handlers registered")
)

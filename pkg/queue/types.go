package queue

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the delivery state of a job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
)

// Job is a queue entry. Completed jobs are deleted from the queue;
// exhausted jobs move to the dead letter store.
type Job struct {
	ID          string     `json:"id"` // deterministic, producer-supplied
	Name        string     `json:"name"`
	Payload     []byte     `json:"payload,omitempty"`
	Status      Status     `json:"status"`
	Attempts    int8       `json:"attempts"` // completed attempts
	MaxAttempts int8       `json:"max_attempts"`
	ScheduledAt time.Time  `json:"scheduled_at"` // when the job becomes visible
	LockedUntil *time.Time `json:"locked_until,omitempty"`
	LockedBy    *uuid.UUID `json:"locked_by,omitempty"`
	LastError   *string    `json:"last_error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// DeadLetter records a job that exhausted its retry budget. Entries are
// append-only and never retried automatically.
type DeadLetter struct {
	ID        uuid.UUID `json:"id"`
	JobID     string    `json:"job_id"`
	Name      string    `json:"name"`
	Payload   []byte    `json:"payload,omitempty"`
	Attempts  int8      `json:"attempts"`
	Error     string    `json:"error"`
	FailedAt  time.Time `json:"failed_at"`
	CreatedAt time.Time `json:"created_at"`
}

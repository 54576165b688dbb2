// Package queue implements a durable job queue with idempotent job identity
// and at-least-once delivery.
//
// A job is uniquely identified by a deterministic, producer-supplied string
// id. Enqueueing a job whose id already exists is a no-op, so overlapping
// producers (or a producer that crashed before recording its progress) cannot
// duplicate work. Jobs are claimed by workers under a visibility lock: a job
// may be redelivered after a worker crash, so handlers must tolerate
// re-execution.
//
// The worker drives a per-job retry state machine. A failed attempt is
// rescheduled with a delay chosen by, in order of precedence: a provider
// retry-after hint attached to the error via RetryAfter, or the worker's
// backoff strategy. Errors wrapped with Permanent skip the retry budget and
// dead-letter immediately. Once the attempt cap is reached the job moves to
// the dead letter store and is removed from the queue.
//
// Storage backends: MemoryStorage for tests and local development,
// PostgresStorage for production.
package queue

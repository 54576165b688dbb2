package queue

import "time"

// EnqueuerOption is a functional option for configuring an Enqueuer.
type EnqueuerOption func(*enqueuerOptions)

type enqueuerOptions struct {
	defaultMaxAttempts int8
}

// WithDefaultMaxAttempts sets the default attempt cap for enqueued jobs (1-10).
func WithDefaultMaxAttempts(n int8) EnqueuerOption {
	return func(o *enqueuerOptions) {
		if n >= 1 && n <= 10 {
			o.defaultMaxAttempts = n
		}
	}
}

// EnqueueOption is a functional option for the Enqueue method.
type EnqueueOption func(*enqueueOptions)

type enqueueOptions struct {
	maxAttempts int8
	delay       time.Duration
	scheduledAt *time.Time
	name        string
}

// WithMaxAttempts sets the attempt cap for this job (1-10).
// Capped at 10 to prevent unbounded retry loops on persistent failures.
func WithMaxAttempts(n int8) EnqueueOption {
	return func(o *enqueueOptions) {
		if n >= 1 && n <= 10 {
			o.maxAttempts = n
		}
	}
}

// WithDelay sets a delay before the job becomes visible to workers.
func WithDelay(delay time.Duration) EnqueueOption {
	return func(o *enqueueOptions) {
		if delay > 0 {
			o.delay = delay
		}
	}
}

// WithScheduledAt sets a specific time for the job to become visible.
func WithScheduledAt(scheduledAt time.Time) EnqueueOption {
	return func(o *enqueueOptions) {
		o.scheduledAt = &scheduledAt
	}
}

// WithName sets a custom job name for handler routing.
func WithName(name string) EnqueueOption {
	return func(o *enqueueOptions) {
		if name != "" {
			o.name = name
		}
	}
}

package queue

import (
	"log/slog"
	"time"

	"github.com/publora/publora/pkg/backoff"
)

// WorkerOption is a functional option for configuring a worker.
type WorkerOption func(*workerOptions)

type workerOptions struct {
	pullInterval      time.Duration
	lockTimeout       time.Duration
	maxConcurrentJobs int
	backoff           backoff.Strategy
	observer          Observer
	logger            *slog.Logger
}

// WithPullInterval sets how often the worker checks for new jobs.
func WithPullInterval(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.pullInterval = d
		}
	}
}

// WithLockTimeout sets the visibility lock duration for claimed jobs.
func WithLockTimeout(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.lockTimeout = d
		}
	}
}

// WithMaxConcurrentJobs sets the maximum number of concurrently processed jobs.
func WithMaxConcurrentJobs(n int) WorkerOption {
	return func(o *workerOptions) {
		if n > 0 {
			o.maxConcurrentJobs = n
		}
	}
}

// WithBackoff sets the retry delay strategy used when an error carries no
// provider retry-after hint.
func WithBackoff(s backoff.Strategy) WorkerOption {
	return func(o *workerOptions) {
		if s != nil {
			o.backoff = s
		}
	}
}

// WithObserver sets the lifecycle observer (metrics, outcome recording).
func WithObserver(obs Observer) WorkerOption {
	return func(o *workerOptions) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithWorkerLogger sets the logger for the worker.
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(o *workerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

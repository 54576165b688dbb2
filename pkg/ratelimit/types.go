package ratelimit

import (
	"context"
	"time"
)

// Result contains the outcome of an attempt check.
type Result struct {
	// Allowed indicates whether the attempt may proceed.
	Allowed bool

	// Limit is the maximum number of attempts allowed per window.
	Limit int

	// Remaining is the number of attempts left in the current window.
	Remaining int

	// ResetAt is when the key becomes usable again. For an allowed attempt
	// this is the end of the current counting window; for a locked-out key
	// it is the end of the lockout.
	ResetAt time.Time

	// Locked indicates the key is in an active lockout rather than merely
	// at the edge of its window.
	Locked bool
}

// RetryAfter returns how long to wait before the next attempt is accepted.
// Returns 0 if the current attempt was allowed.
func (r *Result) RetryAfter() time.Duration {
	if r.Allowed {
		return 0
	}
	return time.Until(r.ResetAt)
}

// Store defines the storage backend for attempt counters and lockouts.
type Store interface {
	// IncrementAttempts atomically increments the attempt counter for the
	// key, starting a new fixed window if none is active. Returns the new
	// count and the time remaining in the window.
	IncrementAttempts(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)

	// Lockout places the key in a lockout for the given duration.
	Lockout(ctx context.Context, key string, d time.Duration) error

	// LockoutRemaining returns how long the key's lockout has left to run,
	// or 0 if the key is not locked out.
	LockoutRemaining(ctx context.Context, key string) (time.Duration, error)

	// Reset clears the attempt counter and any lockout for the key.
	Reset(ctx context.Context, key string) error
}

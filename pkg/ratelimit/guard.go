package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Config defines the fixed-window budget and lockout for a Guard.
type Config struct {
	// MaxAttempts is the number of attempts allowed per window.
	MaxAttempts int

	// Window is the length of the fixed counting window.
	Window time.Duration

	// Lockout is how long a key is rejected after exhausting its budget.
	Lockout time.Duration
}

// DefaultConfig returns the login guard defaults: five attempts per
// fifteen minutes, thirty minute lockout.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 5,
		Window:      15 * time.Minute,
		Lockout:     30 * time.Minute,
	}
}

func (c Config) validate() error {
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("%w: max attempts must be positive, got %d", ErrInvalidConfig, c.MaxAttempts)
	}
	if c.Window <= 0 {
		return fmt.Errorf("%w: window must be positive, got %v", ErrInvalidConfig, c.Window)
	}
	if c.Lockout <= 0 {
		return fmt.Errorf("%w: lockout must be positive, got %v", ErrInvalidConfig, c.Lockout)
	}
	return nil
}

// Guard enforces a fixed-window attempt budget with lockout on breach.
type Guard struct {
	store  Store
	config Config
}

// NewGuard creates a Guard backed by the given store.
func NewGuard(store Store, config Config) (*Guard, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if err := config.validate(); err != nil {
		return nil, err
	}

	return &Guard{store: store, config: config}, nil
}

// Allow records one attempt for the key and reports whether it may
// proceed. The attempt that exhausts the budget triggers the lockout.
func (g *Guard) Allow(ctx context.Context, key string) (*Result, error) {
	if key == "" {
		return nil, ErrKeyRequired
	}

	remaining, err := g.store.LockoutRemaining(ctx, key)
	if err != nil {
		return nil, err
	}
	if remaining > 0 {
		return &Result{
			Allowed: false,
			Limit:   g.config.MaxAttempts,
			ResetAt: time.Now().Add(remaining),
			Locked:  true,
		}, nil
	}

	count, ttl, err := g.store.IncrementAttempts(ctx, key, g.config.Window)
	if err != nil {
		return nil, err
	}

	if count > int64(g.config.MaxAttempts) {
		if err := g.store.Lockout(ctx, key, g.config.Lockout); err != nil {
			return nil, err
		}
		return &Result{
			Allowed: false,
			Limit:   g.config.MaxAttempts,
			ResetAt: time.Now().Add(g.config.Lockout),
			Locked:  true,
		}, nil
	}

	return &Result{
		Allowed:   true,
		Limit:     g.config.MaxAttempts,
		Remaining: g.config.MaxAttempts - int(count),
		ResetAt:   time.Now().Add(ttl),
	}, nil
}

// Reset clears the key's counters and lockout. Call it after a
// successful login so earlier failures stop counting against the user.
func (g *Guard) Reset(ctx context.Context, key string) error {
	if key == "" {
		return ErrKeyRequired
	}
	return g.store.Reset(ctx, key)
}

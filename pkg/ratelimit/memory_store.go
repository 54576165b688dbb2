package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements an in-memory Store for single-process setups
// and tests.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]*counter
	lockouts map[string]time.Time

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	cleanupOnce     sync.Once
}

type counter struct {
	count     int64
	expiresAt time.Time
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval sets the cleanup interval for expired entries.
func WithCleanupInterval(interval time.Duration) MemoryStoreOption {
	return func(s *MemoryStore) {
		if interval > 0 {
			s.cleanupInterval = interval
		}
	}
}

// NewMemoryStore creates a new in-memory store with automatic cleanup.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		counters:        make(map[string]*counter),
		lockouts:        make(map[string]time.Time),
		cleanupInterval: time.Minute,
		stopCleanup:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	go s.cleanupLoop()

	return s
}

// Close stops the background cleanup goroutine.
func (s *MemoryStore) Close() error {
	s.cleanupOnce.Do(func() { close(s.stopCleanup) })
	return nil
}

func (s *MemoryStore) IncrementAttempts(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	c, exists := s.counters[key]
	if !exists || now.After(c.expiresAt) {
		c = &counter{count: 1, expiresAt: now.Add(window)}
		s.counters[key] = c
		return c.count, window, nil
	}

	c.count++
	return c.count, time.Until(c.expiresAt), nil
}

func (s *MemoryStore) Lockout(ctx context.Context, key string, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lockouts[key] = time.Now().Add(d)
	return nil
}

func (s *MemoryStore) LockoutRemaining(ctx context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	until, exists := s.lockouts[key]
	if !exists {
		return 0, nil
	}

	remaining := time.Until(until)
	if remaining <= 0 {
		delete(s.lockouts, key)
		return 0, nil
	}
	return remaining, nil
}

func (s *MemoryStore) Reset(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.counters, key)
	delete(s.lockouts, key)
	return nil
}

func (s *MemoryStore) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCleanup:
			return
		}
	}
}

func (s *MemoryStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, c := range s.counters {
		if now.After(c.expiresAt) {
			delete(s.counters, key)
		}
	}
	for key, until := range s.lockouts {
		if now.After(until) {
			delete(s.lockouts, key)
		}
	}
}

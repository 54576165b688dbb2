package idempotency

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store in process memory for tests and local
// development. A single mutex provides the set-if-absent atomicity that
// Redis SETNX provides in production.
type MemoryStore struct {
	mu           sync.Mutex
	reservations map[string]time.Time
	responses    map[string]memoryResponse

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	cleanupOnce     sync.Once
}

type memoryResponse struct {
	resp      Response
	expiresAt time.Time
}

// NewMemoryStore creates an in-memory store with background cleanup of
// expired entries.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		reservations:    make(map[string]time.Time),
		responses:       make(map[string]memoryResponse),
		cleanupInterval: time.Minute,
		stopCleanup:     make(chan struct{}),
	}

	go s.cleanupLoop()

	return s
}

// Close stops the cleanup goroutine.
func (s *MemoryStore) Close() error {
	s.cleanupOnce.Do(func() { close(s.stopCleanup) })
	return nil
}

func (s *MemoryStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if expiresAt, ok := s.reservations[key]; ok && expiresAt.After(now) {
		return false, nil
	}

	s.reservations[key] = now.Add(ttl)
	return true, nil
}

func (s *MemoryStore) GetResponse(ctx context.Context, key string) (*Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.responses[key]
	if !ok || entry.expiresAt.Before(time.Now()) {
		return nil, ErrKeyNotFound
	}

	resp := entry.resp
	return &resp, nil
}

func (s *MemoryStore) SaveResponse(ctx context.Context, key string, resp *Response, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.responses[key] = memoryResponse{
		resp:      *resp,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

func (s *MemoryStore) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.reservations, key)
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
	for key, expiresAt := range s.reservations {
		if expiresAt.Before(now) {
			delete(s.reservations, key)
		}
	}
	for key, entry := range s.responses {
		if entry.expiresAt.Before(now) {
			delete(s.responses, key)
		}
	}
}

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	attemptKeyPrefix = "loginguard:attempts:"
	lockoutKeyPrefix = "loginguard:lockout:"
)

// RedisStore implements Store on Redis so the attempt budget is shared
// across replicas.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client redis.UniversalClient) (*RedisStore, error) {
	if client == nil {
		return nil, ErrStoreRequired
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) IncrementAttempts(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	attemptKey := attemptKeyPrefix + key

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, attemptKey)
	// NX keeps the window fixed: only the first attempt sets the expiry.
	pipe.ExpireNX(ctx, attemptKey, window)
	ttl := pipe.PTTL(ctx, attemptKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("failed to increment attempt counter: %w", err)
	}

	remaining := ttl.Val()
	if remaining < 0 {
		remaining = window
	}
	return incr.Val(), remaining, nil
}

func (s *RedisStore) Lockout(ctx context.Context, key string, d time.Duration) error {
	if err := s.client.Set(ctx, lockoutKeyPrefix+key, "1", d).Err(); err != nil {
		return fmt.Errorf("failed to set lockout: %w", err)
	}
	return nil
}

func (s *RedisStore) LockoutRemaining(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := s.client.PTTL(ctx, lockoutKeyPrefix+key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read lockout ttl: %w", err)
	}
	// PTTL reports negative durations for missing keys and keys without
	// an expiry; neither counts as an active lockout.
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, attemptKeyPrefix+key, lockoutKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to reset attempt state: %w", err)
	}
	return nil
}

package idempotency

import (
	"context"
	"time"
)

// Response is the cached outcome of a completed request.
type Response struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Store defines the storage backend for the idempotency guard. Reserve must
// be atomic (conditional set-if-absent): correctness under concurrent
// duplicates rests entirely on that primitive.
type Store interface {
	// Reserve atomically claims the scope key with the given TTL. It returns
	// false when the key is already reserved.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// GetResponse returns the cached response for the key, or ErrKeyNotFound.
	GetResponse(ctx context.Context, key string) (*Response, error)

	// SaveResponse caches the response under its own TTL.
	SaveResponse(ctx context.Context, key string, resp *Response, ttl time.Duration) error

	// Release drops the reservation so a failed original request can be
	// retried by the client.
	Release(ctx context.Context, key string) error
}

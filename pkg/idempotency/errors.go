package idempotency

import "errors"

var (
	// ErrStoreNil is returned when a nil store is provided.
	ErrStoreNil = errors.New("idempotency store cannot be nil")

	// ErrKeyNotFound is returned by stores when no record exists for a key.
	ErrKeyNotFound = errors.New("idempotency key not found")
)

package ratelimit

import "errors"

var (
	ErrTooManyAttempts = errors.New("too many attempts")
	ErrInvalidConfig   = errors.New("invalid guard config")
	ErrKeyRequired     = errors.New("key is required")
	ErrStoreRequired   = errors.New("store is required")
)

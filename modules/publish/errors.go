package publish

import "errors"

var (
	ErrScheduleNotFound    = errors.New("schedule not found")
	ErrContentNotFound     = errors.New("content item not found")
	ErrScheduleNotPending  = errors.New("schedule is not pending")
	ErrUnknownPlatform     = errors.New("unknown platform")
	ErrPublisherNil        = errors.New("publisher cannot be nil")
	ErrStoreNil            = errors.New("schedule store cannot be nil")
	ErrEnqueuerNil         = errors.New("enqueuer cannot be nil")
	ErrRegistryNil         = errors.New("publisher registry cannot be nil")
	ErrEmptyProviderTarget = errors.New("publish target is not configured")
)

package queue

import "context"

// DLQRepository defines read access to the dead letter store for manual
// triage and replay tooling.
type DLQRepository interface {
	ListDeadLetters(ctx context.Context, limit int) ([]*DeadLetter, error)
}

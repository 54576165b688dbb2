package publish

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ScheduleStore is the pipeline's view of schedule persistence. The
// sweeper reads due schedules and advances them to queued; the job
// handler writes terminal outcomes.
type ScheduleStore interface {
	// CreateSchedule persists a new schedule in pending status.
	CreateSchedule(ctx context.Context, schedule *Schedule) error

	// GetSchedule returns the schedule or ErrScheduleNotFound.
	GetSchedule(ctx context.Context, id uuid.UUID) (*Schedule, error)

	// ListDue returns pending schedules whose due time is at or before
	// now, oldest first, capped at limit.
	ListDue(ctx context.Context, now time.Time, limit int) ([]*Schedule, error)

	// MarkQueued transitions a pending schedule to queued. Transitioning
	// a schedule that is no longer pending is a no-op, not an error: the
	// sweeper may race a concurrent cycle that already advanced it.
	MarkQueued(ctx context.Context, id uuid.UUID) error

	// CancelSchedule transitions a pending or queued schedule to
	// cancelled. Cancelling an already cancelled schedule is a no-op;
	// cancelling a published or failed one returns ErrScheduleNotPending.
	CancelSchedule(ctx context.Context, id uuid.UUID) error

	// RecordOutcome writes the terminal result of a delivery. It is
	// last-write-wins safe: recording the same outcome twice, as happens
	// when a job is redelivered after a worker crash, leaves the schedule
	// in the same terminal state.
	RecordOutcome(ctx context.Context, id uuid.UUID, outcome Outcome) error
}

// ContentItem is the publishable content a schedule points at.
type ContentItem struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Subject        string    `json:"subject"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}

// ContentStore resolves content items for delivery.
type ContentStore interface {
	// GetContentItem returns the content item or ErrContentNotFound.
	GetContentItem(ctx context.Context, id uuid.UUID) (*ContentItem, error)
}

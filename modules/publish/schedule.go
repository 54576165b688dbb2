package publish

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Platform identifies an external publish destination.
type Platform string

const (
	PlatformTelegram   Platform = "telegram"
	PlatformNewsletter Platform = "newsletter"
)

// Valid reports whether the platform is one the pipeline can deliver to.
func (p Platform) Valid() bool {
	switch p {
	case PlatformTelegram, PlatformNewsletter:
		return true
	}
	return false
}

// ScheduleStatus tracks a schedule through the pipeline.
type ScheduleStatus string

const (
	// StatusPending means the schedule is waiting for its due time.
	StatusPending ScheduleStatus = "pending"
	// StatusQueued means a publish job has been enqueued for it.
	StatusQueued ScheduleStatus = "queued"
	// StatusPublished means the platform accepted the content.
	StatusPublished ScheduleStatus = "published"
	// StatusFailed means delivery exhausted its retries.
	StatusFailed ScheduleStatus = "failed"
	// StatusCancelled means the owner withdrew the schedule before delivery.
	StatusCancelled ScheduleStatus = "cancelled"
)

// Schedule binds a content item to one platform and a target publish time.
type Schedule struct {
	ID             uuid.UUID      `json:"id"`
	ContentItemID  uuid.UUID      `json:"content_item_id"`
	Platform       Platform       `json:"platform"`
	ScheduledAt    time.Time      `json:"scheduled_at"`
	OrganizationID uuid.UUID      `json:"organization_id"`
	Status         ScheduleStatus `json:"status"`
	ProviderID     *string        `json:"provider_id,omitempty"`
	LastError      *string        `json:"last_error,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// JobPayload is the queue payload derived 1:1 from a due schedule.
type JobPayload struct {
	ScheduleID     uuid.UUID `json:"schedule_id"`
	ContentItemID  uuid.UUID `json:"content_item_id"`
	Platform       Platform  `json:"platform"`
	ScheduledAt    time.Time `json:"scheduled_at"`
	OrganizationID uuid.UUID `json:"organization_id"`
}

// JobName is the queue job name all publish jobs are registered under.
const JobName = "publish"

// JobID returns the deterministic queue identity for a schedule's publish
// job. Two sweep cycles that discover the same due schedule compute the
// same id, so the second enqueue is a no-op.
func JobID(scheduleID uuid.UUID, platform Platform) string {
	return fmt.Sprintf("publish:%s:%s", scheduleID, platform)
}

// Outcome is the terminal result of a delivery recorded on the schedule.
type Outcome struct {
	Success    bool
	ProviderID string
	Error      string
	Duration   time.Duration
}

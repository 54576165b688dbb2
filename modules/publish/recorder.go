package publish

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// OutcomeRecorder persists terminal delivery results against their
// schedules. Writes are best-effort: a persistence failure is logged and
// swallowed so it can never feed back into the queue's retry machinery
// and trigger a duplicate publish.
type OutcomeRecorder struct {
	store ScheduleStore
	log   *slog.Logger
}

// NewOutcomeRecorder creates a recorder over the schedule store.
func NewOutcomeRecorder(store ScheduleStore, logger *slog.Logger) (*OutcomeRecorder, error) {
	if store == nil {
		return nil, ErrStoreNil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OutcomeRecorder{store: store, log: logger}, nil
}

// Record writes the outcome for the schedule. Re-recording the same
// outcome, as happens when a job is redelivered after a crash, is safe:
// the store's status write is last-write-wins.
func (r *OutcomeRecorder) Record(ctx context.Context, scheduleID uuid.UUID, outcome Outcome) {
	if err := r.store.RecordOutcome(ctx, scheduleID, outcome); err != nil {
		r.log.ErrorContext(ctx, "failed to record publish outcome",
			slog.String("schedule_id", scheduleID.String()),
			slog.Bool("success", outcome.Success),
			slog.String("error", err.Error()))
	}
}

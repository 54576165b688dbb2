package publish

import (
	"context"
	"log/slog"
	"time"

	"github.com/publora/publora/pkg/queue"
)

// Enqueuer is the queue surface the sweeper submits jobs through.
// Submitting a job id that already exists is a no-op.
type Enqueuer interface {
	Enqueue(ctx context.Context, jobID string, payload any, opts ...queue.EnqueueOption) error
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithSweepInterval sets how often the sweeper polls for due schedules.
func WithSweepInterval(interval time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithBatchSize caps how many due schedules one cycle picks up.
func WithBatchSize(size int) SweeperOption {
	return func(s *Sweeper) {
		if size > 0 {
			s.batchSize = size
		}
	}
}

// WithSweeperLogger sets the sweeper's logger.
func WithSweeperLogger(logger *slog.Logger) SweeperOption {
	return func(s *Sweeper) {
		if logger != nil {
			s.log = logger
		}
	}
}

// Sweeper periodically discovers due schedules and enqueues one publish
// job per schedule. Job identity is deterministic, so overlapping cycles
// and restarts cannot double-enqueue.
type Sweeper struct {
	store    ScheduleStore
	enqueuer Enqueuer

	interval  time.Duration
	batchSize int
	log       *slog.Logger
}

// NewSweeper creates a sweeper over the given store and queue.
func NewSweeper(store ScheduleStore, enqueuer Enqueuer, opts ...SweeperOption) (*Sweeper, error) {
	if store == nil {
		return nil, ErrStoreNil
	}
	if enqueuer == nil {
		return nil, ErrEnqueuerNil
	}

	s := &Sweeper{
		store:     store,
		enqueuer:  enqueuer,
		interval:  time.Minute,
		batchSize: 100,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run sweeps on the configured interval until the context is cancelled.
// A failed cycle is logged and the loop continues; only cancellation
// stops the sweeper.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.InfoContext(ctx, "sweeper started", slog.Duration("interval", s.interval))

	for {
		if err := s.Sweep(ctx); err != nil {
			s.log.ErrorContext(ctx, "sweep cycle failed", slog.String("error", err.Error()))
		}

		select {
		case <-ctx.Done():
			s.log.InfoContext(ctx, "sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Sweep runs a single cycle: list due schedules, enqueue a job for each,
// mark each queued. Per-schedule failures are logged and do not stop the
// rest of the batch.
func (s *Sweeper) Sweep(ctx context.Context) error {
	due, err := s.store.ListDue(ctx, time.Now(), s.batchSize)
	if err != nil {
		return err
	}

	for _, schedule := range due {
		if err := s.sweepSchedule(ctx, schedule); err != nil {
			s.log.ErrorContext(ctx, "failed to queue due schedule",
				slog.String("schedule_id", schedule.ID.String()),
				slog.String("platform", string(schedule.Platform)),
				slog.String("error", err.Error()))
		}
	}

	return nil
}

func (s *Sweeper) sweepSchedule(ctx context.Context, schedule *Schedule) error {
	payload := JobPayload{
		ScheduleID:     schedule.ID,
		ContentItemID:  schedule.ContentItemID,
		Platform:       schedule.Platform,
		ScheduledAt:    schedule.ScheduledAt,
		OrganizationID: schedule.OrganizationID,
	}

	if err := s.enqueuer.Enqueue(ctx, JobID(schedule.ID, schedule.Platform), payload, queue.WithName(JobName)); err != nil {
		return err
	}

	// If this fails the schedule stays pending and is re-discovered next
	// cycle; the deterministic job id makes the repeat enqueue harmless.
	if err := s.store.MarkQueued(ctx, schedule.ID); err != nil {
		s.log.WarnContext(ctx, "failed to mark schedule queued, will re-discover",
			slog.String("schedule_id", schedule.ID.String()),
			slog.String("error", err.Error()))
	}

	return nil
}

package publish_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/publora/publora/modules/publish"
	"github.com/publora/publora/pkg/queue"
)

func newSchedule(platform publish.Platform, scheduledAt time.Time) *publish.Schedule {
	return &publish.Schedule{
		ID:             uuid.New(),
		ContentItemID:  uuid.New(),
		Platform:       platform,
		ScheduledAt:    scheduledAt,
		OrganizationID: uuid.New(),
		Status:         publish.StatusPending,
	}
}

func newSweeperFixture(t *testing.T, store publish.ScheduleStore) (*publish.Sweeper, *queue.MemoryStorage) {
	t.Helper()

	storage := queue.NewMemoryStorage()
	t.Cleanup(func() { _ = storage.Close() })

	enqueuer, err := queue.NewEnqueuer(storage)
	require.NoError(t, err)

	sweeper, err := publish.NewSweeper(store, enqueuer)
	require.NoError(t, err)
	return sweeper, storage
}

func TestSweeper_EnqueuesDueSchedules(t *testing.T) {
	t.Parallel()

	store := publish.NewMemoryStore()
	due := newSchedule(publish.PlatformTelegram, time.Now().Add(-time.Minute))
	future := newSchedule(publish.PlatformTelegram, time.Now().Add(time.Hour))
	require.NoError(t, store.CreateSchedule(context.Background(), due))
	require.NoError(t, store.CreateSchedule(context.Background(), future))

	sweeper, storage := newSweeperFixture(t, store)
	require.NoError(t, sweeper.Sweep(context.Background()))

	assert.Equal(t, 1, storage.Len())

	job, ok := storage.Job(publish.JobID(due.ID, publish.PlatformTelegram))
	require.True(t, ok)
	assert.Equal(t, publish.JobName, job.Name)

	queued, err := store.GetSchedule(context.Background(), due.ID)
	require.NoError(t, err)
	assert.Equal(t, publish.StatusQueued, queued.Status)

	untouched, err := store.GetSchedule(context.Background(), future.ID)
	require.NoError(t, err)
	assert.Equal(t, publish.StatusPending, untouched.Status)
}

// markQueuedFailingStore simulates the mark-queued call failing so the
// schedule stays pending across cycles.
type markQueuedFailingStore struct {
	publish.ScheduleStore
}

func (s *markQueuedFailingStore) MarkQueued(ctx context.Context, id uuid.UUID) error {
	return errors.New("store unavailable")
}

func TestSweeper_DoubleSweepEnqueuesOnce(t *testing.T) {
	t.Parallel()

	inner := publish.NewMemoryStore()
	due := newSchedule(publish.PlatformNewsletter, time.Now().Add(-time.Minute))
	require.NoError(t, inner.CreateSchedule(context.Background(), due))

	// MarkQueued never succeeds, so both sweeps see the schedule as due.
	sweeper, storage := newSweeperFixture(t, &markQueuedFailingStore{inner})

	require.NoError(t, sweeper.Sweep(context.Background()))
	require.NoError(t, sweeper.Sweep(context.Background()))

	assert.Equal(t, 1, storage.Len(), "deterministic job id must deduplicate enqueues")
}

type enqueueFailer struct {
	failFor uuid.UUID
	inner   publish.Enqueuer
	calls   int
}

func (e *enqueueFailer) Enqueue(ctx context.Context, jobID string, payload any, opts ...queue.EnqueueOption) error {
	e.calls++
	if jobID == publish.JobID(e.failFor, publish.PlatformTelegram) {
		return errors.New("queue unavailable")
	}
	return e.inner.Enqueue(ctx, jobID, payload, opts...)
}

func TestSweeper_PerScheduleFailureDoesNotAbortBatch(t *testing.T) {
	t.Parallel()

	store := publish.NewMemoryStore()
	failing := newSchedule(publish.PlatformTelegram, time.Now().Add(-2*time.Minute))
	healthy := newSchedule(publish.PlatformNewsletter, time.Now().Add(-time.Minute))
	require.NoError(t, store.CreateSchedule(context.Background(), failing))
	require.NoError(t, store.CreateSchedule(context.Background(), healthy))

	storage := queue.NewMemoryStorage()
	t.Cleanup(func() { _ = storage.Close() })
	enqueuer, err := queue.NewEnqueuer(storage)
	require.NoError(t, err)

	failer := &enqueueFailer{failFor: failing.ID, inner: enqueuer}
	sweeper, err := publish.NewSweeper(store, failer)
	require.NoError(t, err)

	require.NoError(t, sweeper.Sweep(context.Background()))

	assert.Equal(t, 2, failer.calls, "both schedules must be attempted")
	assert.Equal(t, 1, storage.Len())

	// The failed schedule stays pending for the next cycle.
	got, err := store.GetSchedule(context.Background(), failing.ID)
	require.NoError(t, err)
	assert.Equal(t, publish.StatusPending, got.Status)
}

type listDueFailingStore struct {
	publish.ScheduleStore
	calls atomic.Int32
}

func (s *listDueFailingStore) ListDue(ctx context.Context, now time.Time, limit int) ([]*publish.Schedule, error) {
	s.calls.Add(1)
	return nil, errors.New("query failed")
}

func TestSweeper_RunSurvivesCycleErrors(t *testing.T) {
	t.Parallel()

	store := &listDueFailingStore{ScheduleStore: publish.NewMemoryStore()}

	storage := queue.NewMemoryStorage()
	t.Cleanup(func() { _ = storage.Close() })
	enqueuer, err := queue.NewEnqueuer(storage)
	require.NoError(t, err)

	sweeper, err := publish.NewSweeper(store, enqueuer, publish.WithSweepInterval(10*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sweeper.Run(ctx) }()

	require.Eventually(t, func() bool { return store.calls.Load() >= 3 }, time.Second, 5*time.Millisecond,
		"the loop must keep sweeping after failed cycles")

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on cancellation")
	}
}

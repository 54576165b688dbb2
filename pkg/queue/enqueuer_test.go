package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/publora/publora/pkg/queue"
)

// MockEnqueuerRepository is a mock implementation of EnqueuerRepository.
type MockEnqueuerRepository struct {
	mock.Mock
}

func (m *MockEnqueuerRepository) CreateJob(ctx context.Context, job *queue.Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func TestNewEnqueuer(t *testing.T) {
	t.Parallel()

	t.Run("nil repository", func(t *testing.T) {
		t.Parallel()

		enq, err := queue.NewEnqueuer(nil)
		assert.ErrorIs(t, err, queue.ErrRepositoryNil)
		assert.Nil(t, enq)
	})
}

func TestEnqueuer_Enqueue(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("creates job with deterministic id", func(t *testing.T) {
		t.Parallel()

		repo := new(MockEnqueuerRepository)
		defer repo.AssertExpectations(t)

		repo.On("CreateJob", mock.Anything, mock.MatchedBy(func(job *queue.Job) bool {
			return job.ID == "publish:s1:telegram" &&
				job.Status == queue.StatusPending &&
				job.Attempts == 0 &&
				job.MaxAttempts == 5
		})).Return(nil).Once()

		enq, err := queue.NewEnqueuer(repo)
		require.NoError(t, err)

		err = enq.Enqueue(ctx, "publish:s1:telegram", testPayload{Message: "hi"})
		require.NoError(t, err)
	})

	t.Run("duplicate id is a no-op", func(t *testing.T) {
		t.Parallel()

		repo := new(MockEnqueuerRepository)
		defer repo.AssertExpectations(t)

		repo.On("CreateJob", mock.Anything, mock.Anything).Return(queue.ErrDuplicateJob).Once()

		enq, err := queue.NewEnqueuer(repo)
		require.NoError(t, err)

		// The caller sees success; the existing job wins.
		assert.NoError(t, enq.Enqueue(ctx, "publish:s1:telegram", testPayload{}))
	})

	t.Run("empty id", func(t *testing.T) {
		t.Parallel()

		enq, err := queue.NewEnqueuer(new(MockEnqueuerRepository))
		require.NoError(t, err)

		assert.ErrorIs(t, enq.Enqueue(ctx, "", testPayload{}), queue.ErrJobIDRequired)
	})

	t.Run("nil payload", func(t *testing.T) {
		t.Parallel()

		enq, err := queue.NewEnqueuer(new(MockEnqueuerRepository))
		require.NoError(t, err)

		assert.ErrorIs(t, enq.Enqueue(ctx, "publish:s1:telegram", nil), queue.ErrPayloadNil)
	})

	t.Run("scheduled time from option", func(t *testing.T) {
		t.Parallel()

		repo := new(MockEnqueuerRepository)
		defer repo.AssertExpectations(t)

		at := time.Now().Add(time.Hour)
		repo.On("CreateJob", mock.Anything, mock.MatchedBy(func(job *queue.Job) bool {
			return job.ScheduledAt.Equal(at)
		})).Return(nil).Once()

		enq, err := queue.NewEnqueuer(repo)
		require.NoError(t, err)

		require.NoError(t, enq.Enqueue(ctx, "publish:s2:telegram", testPayload{}, queue.WithScheduledAt(at)))
	})

	t.Run("custom name and max attempts", func(t *testing.T) {
		t.Parallel()

		repo := new(MockEnqueuerRepository)
		defer repo.AssertExpectations(t)

		repo.On("CreateJob", mock.Anything, mock.MatchedBy(func(job *queue.Job) bool {
			return job.Name == "publish" && job.MaxAttempts == 3
		})).Return(nil).Once()

		enq, err := queue.NewEnqueuer(repo)
		require.NoError(t, err)

		require.NoError(t, enq.Enqueue(ctx, "publish:s3:telegram", testPayload{},
			queue.WithName("publish"), queue.WithMaxAttempts(3)))
	})
}

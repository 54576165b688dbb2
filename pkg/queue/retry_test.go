package queue_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/publora/publora/pkg/queue"
)

func TestRetryAfter(t *testing.T) {
	t.Parallel()

	t.Run("carries the hint", func(t *testing.T) {
		t.Parallel()

		err := queue.RetryAfter(errors.New("rate limited"), 42*time.Second)
		delay, ok := queue.RetryDelay(err)
		assert.True(t, ok)
		assert.Equal(t, 42*time.Second, delay)
	})

	t.Run("survives wrapping", func(t *testing.T) {
		t.Parallel()

		err := fmt.Errorf("publish failed: %w", queue.RetryAfter(errors.New("429"), time.Minute))
		delay, ok := queue.RetryDelay(err)
		assert.True(t, ok)
		assert.Equal(t, time.Minute, delay)
	})

	t.Run("nil error", func(t *testing.T) {
		t.Parallel()

		assert.NoError(t, queue.RetryAfter(nil, time.Second))
	})

	t.Run("no hint on plain errors", func(t *testing.T) {
		t.Parallel()

		_, ok := queue.RetryDelay(errors.New("boom"))
		assert.False(t, ok)
	})
}

func TestPermanent(t *testing.T) {
	t.Parallel()

	t.Run("marks error non-retryable", func(t *testing.T) {
		t.Parallel()

		err := queue.Permanent(errors.New("malformed payload"))
		assert.True(t, queue.IsPermanent(err))
	})

	t.Run("survives wrapping", func(t *testing.T) {
		t.Parallel()

		err := fmt.Errorf("handler: %w", queue.Permanent(errors.New("bad")))
		assert.True(t, queue.IsPermanent(err))
	})

	t.Run("plain errors are retryable", func(t *testing.T) {
		t.Parallel()

		assert.False(t, queue.IsPermanent(errors.New("transient")))
	})

	t.Run("nil error", func(t *testing.T) {
		t.Parallel()

		assert.NoError(t, queue.Permanent(nil))
	})
}

package publish_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/publora/publora/modules/publish"
	"github.com/publora/publora/pkg/queue"
)

type fakeTelegram struct {
	msg  *tele.Message
	err  error
	sent []string
}

func (f *fakeTelegram) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	if text, ok := what.(string); ok {
		f.sent = append(f.sent, text)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.msg, nil
}

func telegramPayload() publish.JobPayload {
	return publish.JobPayload{Platform: publish.PlatformTelegram}
}

func TestTelegramPublisher_Publish(t *testing.T) {
	t.Parallel()

	t.Run("returns provider message id", func(t *testing.T) {
		t.Parallel()

		bot := &fakeTelegram{msg: &tele.Message{ID: 4242}}
		publisher, err := publish.NewTelegramPublisherWithSender(bot, -100123)
		require.NoError(t, err)

		result, err := publisher.Publish(context.Background(), telegramPayload(), &publish.ContentItem{Body: "<b>hello</b>"})
		require.NoError(t, err)
		assert.Equal(t, "4242", result.ProviderID)
		assert.Equal(t, []string{"<b>hello</b>"}, bot.sent)
	})

	t.Run("empty body is permanent", func(t *testing.T) {
		t.Parallel()

		publisher, err := publish.NewTelegramPublisherWithSender(&fakeTelegram{}, -100123)
		require.NoError(t, err)

		_, err = publisher.Publish(context.Background(), telegramPayload(), &publish.ContentItem{})
		assert.True(t, queue.IsPermanent(err))
	})

	t.Run("flood error carries retry-after hint", func(t *testing.T) {
		t.Parallel()

		// Only RetryAfter is exported on FloodError; telebot fills the
		// rest internally when it parses a real 429.
		bot := &fakeTelegram{err: tele.FloodError{RetryAfter: 37}}
		publisher, err := publish.NewTelegramPublisherWithSender(bot, -100123)
		require.NoError(t, err)

		_, err = publisher.Publish(context.Background(), telegramPayload(), &publish.ContentItem{Body: "hi"})
		require.Error(t, err)

		delay, ok := queue.RetryDelay(err)
		require.True(t, ok)
		assert.Equal(t, 37*time.Second, delay)
	})

	t.Run("4xx api error is permanent", func(t *testing.T) {
		t.Parallel()

		bot := &fakeTelegram{err: &tele.Error{Code: 400, Description: "Bad Request: message is too long"}}
		publisher, err := publish.NewTelegramPublisherWithSender(bot, -100123)
		require.NoError(t, err)

		_, err = publisher.Publish(context.Background(), telegramPayload(), &publish.ContentItem{Body: "hi"})
		assert.True(t, queue.IsPermanent(err))
	})

	t.Run("network error is transient", func(t *testing.T) {
		t.Parallel()

		bot := &fakeTelegram{err: errors.New("connection reset")}
		publisher, err := publish.NewTelegramPublisherWithSender(bot, -100123)
		require.NoError(t, err)

		_, err = publisher.Publish(context.Background(), telegramPayload(), &publish.ContentItem{Body: "hi"})
		require.Error(t, err)
		assert.False(t, queue.IsPermanent(err))
		_, hasHint := queue.RetryDelay(err)
		assert.False(t, hasHint)
	})
}

func TestNewTelegramPublisher_Validation(t *testing.T) {
	t.Parallel()

	_, err := publish.NewTelegramPublisher(publish.TelegramConfig{ChatID: 1})
	assert.ErrorIs(t, err, publish.ErrEmptyProviderTarget)

	_, err = publish.NewTelegramPublisherWithSender(&fakeTelegram{}, 0)
	assert.ErrorIs(t, err, publish.ErrEmptyProviderTarget)
}

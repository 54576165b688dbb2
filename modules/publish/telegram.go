package publish

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/publora/publora/pkg/queue"
)

// TelegramConfig configures the telegram publisher.
type TelegramConfig struct {
	Token  string `env:"TELEGRAM_BOT_TOKEN"`
	ChatID int64  `env:"TELEGRAM_CHAT_ID"`
}

// telegramSender is the slice of *tele.Bot the publisher needs. Kept
// narrow so tests can fake the provider.
type telegramSender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// TelegramPublisher delivers content to a telegram chat.
type TelegramPublisher struct {
	bot    telegramSender
	chatID int64
}

// NewTelegramPublisher creates the publisher from config, constructing
// the underlying bot client.
func NewTelegramPublisher(cfg TelegramConfig) (*TelegramPublisher, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("%w: telegram bot token", ErrEmptyProviderTarget)
	}
	if cfg.ChatID == 0 {
		return nil, fmt.Errorf("%w: telegram chat id", ErrEmptyProviderTarget)
	}

	bot, err := tele.NewBot(tele.Settings{Token: cfg.Token})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &TelegramPublisher{bot: bot, chatID: cfg.ChatID}, nil
}

// NewTelegramPublisherWithSender wires a custom sender. Used by tests.
func NewTelegramPublisherWithSender(sender telegramSender, chatID int64) (*TelegramPublisher, error) {
	if sender == nil {
		return nil, ErrPublisherNil
	}
	if chatID == 0 {
		return nil, fmt.Errorf("%w: telegram chat id", ErrEmptyProviderTarget)
	}
	return &TelegramPublisher{bot: sender, chatID: chatID}, nil
}

func (p *TelegramPublisher) Platform() Platform { return PlatformTelegram }

func (p *TelegramPublisher) Publish(ctx context.Context, payload JobPayload, content *ContentItem) (*PublishResult, error) {
	if content.Body == "" {
		return nil, queue.Permanent(errors.New("telegram message body is empty"))
	}

	msg, err := p.bot.Send(&tele.Chat{ID: p.chatID}, content.Body, tele.ModeHTML)
	if err != nil {
		return nil, classifyTelegramError(err)
	}

	return &PublishResult{ProviderID: strconv.Itoa(msg.ID)}, nil
}

func classifyTelegramError(err error) error {
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return queue.RetryAfter(err, time.Duration(flood.RetryAfter)*time.Second)
	}

	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		// 4xx responses describe the request, not the provider's state:
		// the same payload will be rejected on every attempt.
		if apiErr.Code >= 400 && apiErr.Code < 500 {
			return queue.Permanent(err)
		}
	}

	return fmt.Errorf("telegram send failed: %w", err)
}

package publish

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mrz1836/postmark"

	"github.com/publora/publora/pkg/queue"
)

// NewsletterConfig configures the postmark-backed newsletter publisher.
type NewsletterConfig struct {
	ServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	AccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail  string `env:"NEWSLETTER_SENDER_EMAIL"`
	ListEmail    string `env:"NEWSLETTER_LIST_EMAIL"`
	Tag          string `env:"NEWSLETTER_TAG" envDefault:"newsletter"`

	// RateLimitRetryAfter is the backoff hint applied when postmark
	// reports a rate limit; postmark does not return an explicit
	// retry-after value.
	RateLimitRetryAfter time.Duration `env:"NEWSLETTER_RATELIMIT_RETRY_AFTER" envDefault:"30s"`
}

// Postmark API error codes that describe the message rather than the
// provider's state. See https://postmarkapp.com/developer/api/overview#error-codes
const (
	postmarkErrInvalidEmailRequest = 300
	postmarkErrSenderNotConfirmed  = 400
	postmarkErrInactiveRecipient   = 406
	postmarkErrRateLimitExceeded   = 429
)

// newsletterSender is the slice of *postmark.Client the publisher uses.
type newsletterSender interface {
	SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error)
}

// NewsletterPublisher delivers content to a newsletter list via postmark.
type NewsletterPublisher struct {
	client newsletterSender
	config NewsletterConfig
}

// NewNewsletterPublisher creates the publisher from config.
func NewNewsletterPublisher(cfg NewsletterConfig) (*NewsletterPublisher, error) {
	if cfg.ServerToken == "" {
		return nil, fmt.Errorf("%w: postmark server token", ErrEmptyProviderTarget)
	}
	if cfg.SenderEmail == "" {
		return nil, fmt.Errorf("%w: newsletter sender email", ErrEmptyProviderTarget)
	}
	if cfg.ListEmail == "" {
		return nil, fmt.Errorf("%w: newsletter list email", ErrEmptyProviderTarget)
	}

	return &NewsletterPublisher{
		client: postmark.NewClient(cfg.ServerToken, cfg.AccountToken),
		config: cfg,
	}, nil
}

// NewNewsletterPublisherWithSender wires a custom sender. Used by tests.
func NewNewsletterPublisherWithSender(sender newsletterSender, cfg NewsletterConfig) (*NewsletterPublisher, error) {
	if sender == nil {
		return nil, ErrPublisherNil
	}
	return &NewsletterPublisher{client: sender, config: cfg}, nil
}

func (p *NewsletterPublisher) Platform() Platform { return PlatformNewsletter }

func (p *NewsletterPublisher) Publish(ctx context.Context, payload JobPayload, content *ContentItem) (*PublishResult, error) {
	if content.Subject == "" {
		return nil, queue.Permanent(errors.New("newsletter subject is empty"))
	}
	if content.Body == "" {
		return nil, queue.Permanent(errors.New("newsletter body is empty"))
	}

	resp, err := p.client.SendEmail(ctx, postmark.Email{
		From:     p.config.SenderEmail,
		To:       p.config.ListEmail,
		Subject:  content.Subject,
		HTMLBody: content.Body,
		Tag:      p.config.Tag,
	})
	if err != nil {
		return nil, fmt.Errorf("postmark send failed: %w", err)
	}
	if resp.ErrorCode > 0 {
		return nil, p.classifyResponse(resp)
	}

	return &PublishResult{ProviderID: resp.MessageID}, nil
}

func (p *NewsletterPublisher) classifyResponse(resp postmark.EmailResponse) error {
	err := fmt.Errorf("postmark error %d: %s", resp.ErrorCode, resp.Message)

	switch resp.ErrorCode {
	case postmarkErrRateLimitExceeded:
		return queue.RetryAfter(err, p.config.RateLimitRetryAfter)
	case postmarkErrInvalidEmailRequest, postmarkErrSenderNotConfirmed, postmarkErrInactiveRecipient:
		return queue.Permanent(err)
	default:
		return err
	}
}

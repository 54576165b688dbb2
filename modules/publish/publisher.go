package publish

import (
	"context"
	"fmt"
)

// PublishResult is what a platform returns for an accepted delivery.
type PublishResult struct {
	// ProviderID is the platform-assigned identifier of the published
	// content, e.g. a message id.
	ProviderID string
}

// Publisher is the platform-publish capability. Implementations must
// classify their provider's failures: rate limits wrap the provider's
// retry-after hint via queue.RetryAfter, unrecoverable rejections wrap
// via queue.Permanent, everything else is treated as transient.
type Publisher interface {
	Platform() Platform
	Publish(ctx context.Context, payload JobPayload, content *ContentItem) (*PublishResult, error)
}

// Registry maps platforms to their publishers. It is assembled once at
// startup and read-only afterwards.
type Registry struct {
	publishers map[Platform]Publisher
}

// NewRegistry creates a registry from the given publishers.
func NewRegistry(publishers ...Publisher) (*Registry, error) {
	r := &Registry{publishers: make(map[Platform]Publisher, len(publishers))}
	for _, p := range publishers {
		if p == nil {
			return nil, ErrPublisherNil
		}
		platform := p.Platform()
		if _, exists := r.publishers[platform]; exists {
			return nil, fmt.Errorf("duplicate publisher for platform %q", platform)
		}
		r.publishers[platform] = p
	}
	return r, nil
}

// Publisher returns the publisher for the platform or ErrUnknownPlatform.
func (r *Registry) Publisher(platform Platform) (Publisher, error) {
	p, exists := r.publishers[platform]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlatform, platform)
	}
	return p, nil
}

package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/publora/publora/pkg/queue"
	"github.com/publora/publora/pkg/telemetry"
)

// Handler executes publish jobs: resolve the publisher and content,
// deliver, and record the terminal outcome. Failures are returned to the
// queue worker, which drives the retry state machine.
type Handler struct {
	registry *Registry
	content  ContentStore
	recorder *OutcomeRecorder
	metrics  *telemetry.Metrics
	log      *slog.Logger
}

// NewHandler creates the publish job handler.
func NewHandler(registry *Registry, content ContentStore, recorder *OutcomeRecorder, metrics *telemetry.Metrics, logger *slog.Logger) (*Handler, error) {
	if registry == nil {
		return nil, ErrRegistryNil
	}
	if content == nil {
		return nil, ErrStoreNil
	}
	if recorder == nil {
		return nil, ErrStoreNil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		registry: registry,
		content:  content,
		recorder: recorder,
		metrics:  metrics,
		log:      logger,
	}, nil
}

// QueueHandler adapts the handler for worker registration.
func (h *Handler) QueueHandler() queue.Handler {
	return queue.NewNamedJobHandler(JobName, h.handle)
}

func (h *Handler) handle(ctx context.Context, payload JobPayload) error {
	publisher, err := h.registry.Publisher(payload.Platform)
	if err != nil {
		// No deployment of this binary will grow the missing publisher
		// mid-retry; burn no budget on it.
		return queue.Permanent(err)
	}

	content, err := h.content.GetContentItem(ctx, payload.ContentItemID)
	if err != nil {
		if errors.Is(err, ErrContentNotFound) {
			return queue.Permanent(err)
		}
		return fmt.Errorf("resolve content for schedule %s: %w", payload.ScheduleID, err)
	}

	start := time.Now()
	result, err := publisher.Publish(ctx, payload, content)
	elapsed := time.Since(start)

	if h.metrics != nil {
		h.metrics.RecordAttemptLatency(ctx, string(payload.Platform), elapsed)
	}

	if err != nil {
		return err
	}

	h.log.InfoContext(ctx, "published",
		slog.String("schedule_id", payload.ScheduleID.String()),
		slog.String("platform", string(payload.Platform)),
		slog.String("provider_id", result.ProviderID),
		slog.Duration("duration", elapsed))

	h.recorder.Record(ctx, payload.ScheduleID, Outcome{
		Success:    true,
		ProviderID: result.ProviderID,
		Duration:   elapsed,
	})

	return nil
}

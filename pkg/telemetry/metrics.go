package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/publora/publora"

// Metrics holds the pipeline's delivery instruments. Counters and the
// latency histogram carry a platform attribute so per-provider health is
// visible without separate instruments.
type Metrics struct {
	publishSuccess metric.Int64Counter
	publishFailure metric.Int64Counter
	publishLatency metric.Float64Histogram
	queueLag       metric.Float64Gauge
}

// NewMetrics creates Metrics on the given meter. Pass nil to use the
// globally registered meter provider.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(meterName)
	}

	publishSuccess, err := meter.Int64Counter("publish_success_total",
		metric.WithDescription("Completed publish deliveries."))
	if err != nil {
		return nil, fmt.Errorf("failed to create publish_success_total: %w", err)
	}

	publishFailure, err := meter.Int64Counter("publish_failure_total",
		metric.WithDescription("Publish attempts that ended in the dead letter store."))
	if err != nil {
		return nil, fmt.Errorf("failed to create publish_failure_total: %w", err)
	}

	publishLatency, err := meter.Float64Histogram("publish_latency_seconds",
		metric.WithDescription("Wall time of a single publish attempt."),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("failed to create publish_latency_seconds: %w", err)
	}

	queueLag, err := meter.Float64Gauge("queue_lag_seconds",
		metric.WithDescription("Delay between a job's scheduled time and its first pickup."),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("failed to create queue_lag_seconds: %w", err)
	}

	return &Metrics{
		publishSuccess: publishSuccess,
		publishFailure: publishFailure,
		publishLatency: publishLatency,
		queueLag:       queueLag,
	}, nil
}

func platformAttr(platform string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("platform", platform))
}

// RecordSuccess counts a completed delivery.
func (m *Metrics) RecordSuccess(ctx context.Context, platform string) {
	m.publishSuccess.Add(ctx, 1, platformAttr(platform))
}

// RecordFailure counts a delivery that was dead-lettered.
func (m *Metrics) RecordFailure(ctx context.Context, platform string) {
	m.publishFailure.Add(ctx, 1, platformAttr(platform))
}

// RecordAttemptLatency records the wall time of a delivery attempt,
// successful or not.
func (m *Metrics) RecordAttemptLatency(ctx context.Context, platform string, elapsed time.Duration) {
	m.publishLatency.Record(ctx, elapsed.Seconds(), platformAttr(platform))
}

// RecordQueueLag records how far behind schedule a job started.
func (m *Metrics) RecordQueueLag(ctx context.Context, platform string, lag time.Duration) {
	if lag < 0 {
		lag = 0
	}
	m.queueLag.Record(ctx, lag.Seconds(), platformAttr(platform))
}

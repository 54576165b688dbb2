package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/publora/publora/pkg/telemetry"
)

func TestNewMetrics_DefaultsToGlobalProvider(t *testing.T) {
	t.Parallel()

	metrics, err := telemetry.NewMetrics(nil)
	require.NoError(t, err)
	require.NotNil(t, metrics)

	// The default global provider is a no-op; recording must be safe.
	ctx := context.Background()
	metrics.RecordSuccess(ctx, "telegram")
	metrics.RecordFailure(ctx, "newsletter")
	metrics.RecordAttemptLatency(ctx, "telegram", 80*time.Millisecond)
	metrics.RecordQueueLag(ctx, "telegram", 3*time.Second)
	metrics.RecordQueueLag(ctx, "telegram", -time.Second)
}

func TestRecordAttemptLatency_EveryAttemptCounts(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	metrics, err := telemetry.NewMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()

	// One attempt that succeeded, one that went on to retry. The histogram
	// sees both; only the counters distinguish outcomes.
	metrics.RecordAttemptLatency(ctx, "telegram", 80*time.Millisecond)
	metrics.RecordSuccess(ctx, "telegram")
	metrics.RecordAttemptLatency(ctx, "telegram", 120*time.Millisecond)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	var latency *metricdata.Histogram[float64]
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name == "publish_latency_seconds" {
				h, ok := m.Data.(metricdata.Histogram[float64])
				require.True(t, ok)
				latency = &h
			}
		}
	}
	require.NotNil(t, latency, "publish_latency_seconds was not recorded")
	require.Len(t, latency.DataPoints, 1)
	assert.Equal(t, uint64(2), latency.DataPoints[0].Count)
	assert.InDelta(t, 0.2, latency.DataPoints[0].Sum, 0.001)
}

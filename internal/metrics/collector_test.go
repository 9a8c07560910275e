package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestCollector_RecordRequest(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	c, err := NewCollector(provider)
	require.NoError(t, err)

	ctx := context.Background()
	c.RequestStarted()
	c.RequestStarted()
	c.RecordRequest(ctx, "GET", "/health", OutcomeSuccess, 20*time.Millisecond)

	assert.Equal(t, int64(1), c.Inflight())

	data := collect(t, reader)

	sum, ok := data["delineate_api_requests_total"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(1), sum.DataPoints[0].Value)
	outcome, _ := sum.DataPoints[0].Attributes.Value("outcome")
	assert.Equal(t, OutcomeSuccess, outcome.AsString())

	hist, ok := data["delineate_api_latency_seconds"].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)

	inflight, ok := data["delineate_api_requests_inflight"].(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, inflight.DataPoints, 1)
	assert.Equal(t, int64(1), inflight.DataPoints[0].Value)
}

func TestCollector_AverageLatencyGauge(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	c, err := NewCollector(provider)
	require.NoError(t, err)

	// nothing observed before an aggregator is attached
	if g, ok := collect(t, reader)["delineate_api_latency_avg"].(metricdata.Gauge[float64]); ok {
		assert.Empty(t, g.DataPoints)
	}

	agg := NewAggregator()
	agg.Report(true, 10*time.Millisecond)
	agg.Report(false, 30*time.Millisecond)
	c.SetAggregator(agg)

	gauge, ok := collect(t, reader)["delineate_api_latency_avg"].(metricdata.Gauge[float64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.InDelta(t, 20.0, gauge.DataPoints[0].Value, 0.0001)
}

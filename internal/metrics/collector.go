package metrics

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome labels used on request instruments.
const (
	OutcomeSuccess        = "success"
	OutcomeAPIError       = "api_error"
	OutcomeTransportError = "transport_error"
	OutcomeDecodeError    = "decode_error"
)

// Collector exports API call metrics as OpenTelemetry instruments.
type Collector struct {
	meter metric.Meter

	requestsTotal metric.Int64Counter
	latency       metric.Float64Histogram

	inflight   atomic.Int64
	aggregator atomic.Pointer[Aggregator]
}

// NewCollector creates a collector using the given meter provider
func NewCollector(meterProvider metric.MeterProvider) (*Collector, error) {
	meter := meterProvider.Meter("delineate-monitor")

	c := &Collector{meter: meter}

	var err error

	c.requestsTotal, err = meter.Int64Counter(
		"delineate_api_requests_total",
		metric.WithDescription("Total number of backend API calls"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	c.latency, err = meter.Float64Histogram(
		"delineate_api_latency_seconds",
		metric.WithDescription("Backend API call latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	_, err = meter.Int64ObservableGauge(
		"delineate_api_requests_inflight",
		metric.WithDescription("Number of backend API calls in flight"),
		metric.WithUnit("{request}"),
		metric.WithInt64Callback(func(ctx context.Context, observer metric.Int64Observer) error {
			observer.Observe(c.inflight.Load())
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}

	// Rolling average, observed only once an aggregator is attached
	_, err = meter.Float64ObservableGauge(
		"delineate_api_latency_avg",
		metric.WithDescription("Rolling average latency over the recent call window"),
		metric.WithUnit("ms"),
		metric.WithFloat64Callback(func(ctx context.Context, observer metric.Float64Observer) error {
			if agg := c.aggregator.Load(); agg != nil {
				observer.Observe(agg.Snapshot().AverageLatencyMs)
			}
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}

	return c, nil
}

// SetAggregator attaches the aggregator backing the rolling average gauge.
func (c *Collector) SetAggregator(a *Aggregator) {
	c.aggregator.Store(a)
}

// RequestStarted marks a call as in flight.
func (c *Collector) RequestStarted() {
	c.inflight.Add(1)
}

// RecordRequest records a finished call and clears its in-flight mark.
func (c *Collector) RecordRequest(ctx context.Context, method, endpoint, outcome string, latency time.Duration) {
	c.inflight.Add(-1)

	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("endpoint", endpoint),
		attribute.String("outcome", outcome),
	)
	c.requestsTotal.Add(ctx, 1, attrs)
	c.latency.Record(ctx, latency.Seconds(), attrs)
}

// Inflight returns the number of calls currently in flight.
func (c *Collector) Inflight() int64 {
	return c.inflight.Load()
}

package observability

import (
	"context"
	"fmt"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// MetricsCollector records request-level metrics through an OpenTelemetry
// meter exported in Prometheus format.
type MetricsCollector struct {
	provider *sdkmetric.MeterProvider

	httpRequests metric.Int64Counter
	httpLatency  metric.Float64Histogram
	batchItems   metric.Int64Histogram
}

// MetricsConfig configures the metrics collector
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// NewMetricsCollector creates a new metrics collector. reg receives the
// exporter's collectors; nil means the Prometheus default registerer.
func NewMetricsCollector(config MetricsConfig, reg promclient.Registerer) (*MetricsCollector, error) {
	if !config.Enabled {
		return &MetricsCollector{}, nil
	}
	if reg == nil {
		reg = promclient.DefaultRegisterer
	}

	exporter, err := prometheus.New(prometheus.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	meter := provider.Meter("askview")

	httpRequests, err := meter.Int64Counter(
		"askview.http.requests.total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests counter: %w", err)
	}

	httpLatency, err := meter.Float64Histogram(
		"askview.http.latency",
		metric.WithDescription("HTTP request latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_latency histogram: %w", err)
	}

	batchItems, err := meter.Int64Histogram(
		"askview.batch.items",
		metric.WithDescription("Number of items per batch decode request"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch_items histogram: %w", err)
	}

	return &MetricsCollector{
		provider:     provider,
		httpRequests: httpRequests,
		httpLatency:  httpLatency,
		batchItems:   batchItems,
	}, nil
}

// Shutdown flushes and stops the meter provider.
func (m *MetricsCollector) Shutdown(ctx context.Context) error {
	if m == nil || m.provider == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}

// RecordHTTPRequest records one served request.
func (m *MetricsCollector) RecordHTTPRequest(ctx context.Context, route string, status int, latency time.Duration) {
	if m == nil || m.httpRequests == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("route", route),
		attribute.Int("status", status),
	}

	m.httpRequests.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpLatency.Record(ctx, latency.Seconds(), metric.WithAttributes(attribute.String("route", route)))
}

// RecordBatchSize records the size of one batch request.
func (m *MetricsCollector) RecordBatchSize(ctx context.Context, items int) {
	if m == nil || m.batchItems == nil {
		return
	}
	m.batchItems.Record(ctx, int64(items))
}

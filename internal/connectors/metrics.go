package connectors

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const connectorsInstrumentationName = "github.com/fyrsmithlabs/pharmadd/internal/connectors"

// Metrics holds upstream request metrics.
type Metrics struct {
	meter    metric.Meter
	logger   *zap.Logger
	duration metric.Float64Histogram
	errors   metric.Int64Counter
}

// NewMetrics creates a new Metrics instance for connectors.
func NewMetrics(logger *zap.Logger) *Metrics {
	m := &Metrics{
		meter:  otel.Meter(connectorsInstrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *Metrics) init() {
	var err error

	m.duration, err = m.meter.Float64Histogram(
		"pharmadd.connector.request_duration_seconds",
		metric.WithDescription("Duration of upstream registry requests in seconds, labeled by endpoint and HTTP status"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		m.logger.Warn("failed to create duration histogram", zap.Error(err))
	}

	m.errors, err = m.meter.Int64Counter(
		"pharmadd.connector.errors_total",
		metric.WithDescription("Total failed upstream registry requests by endpoint"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		m.logger.Warn("failed to create errors counter", zap.Error(err))
	}
}

// RecordRequest records one upstream request. status is 0 when no response
// was received.
func (m *Metrics) RecordRequest(ctx context.Context, endpoint string, status int, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("endpoint", endpoint),
		attribute.String("status", strconv.Itoa(status)),
	}
	if m.duration != nil {
		m.duration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	}
	if err != nil && m.errors != nil {
		m.errors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

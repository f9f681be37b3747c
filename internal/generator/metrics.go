package generator

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const generatorInstrumentationName = "github.com/fyrsmithlabs/pharmadd/internal/generator"

// Metrics holds text generation metrics.
type Metrics struct {
	meter       metric.Meter
	logger      *zap.Logger
	duration    metric.Float64Histogram
	errors      metric.Int64Counter
	fallbacks   metric.Int64Counter
	unsupported metric.Int64Counter
}

// NewMetrics creates a new Metrics instance for the generator.
func NewMetrics(logger *zap.Logger) *Metrics {
	m := &Metrics{
		meter:  otel.Meter(generatorInstrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *Metrics) init() {
	var err error

	m.duration, err = m.meter.Float64Histogram(
		"pharmadd.generation.duration_seconds",
		metric.WithDescription("Duration of language model calls in seconds, labeled by model and operation (report, chat)"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.5, 1, 2.5, 5, 10, 20, 30, 60, 120),
	)
	if err != nil {
		m.logger.Warn("failed to create duration histogram", zap.Error(err))
	}

	m.errors, err = m.meter.Int64Counter(
		"pharmadd.generation.errors_total",
		metric.WithDescription("Language model calls that failed or returned no usable content"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		m.logger.Warn("failed to create errors counter", zap.Error(err))
	}

	m.fallbacks, err = m.meter.Int64Counter(
		"pharmadd.generation.fallbacks_total",
		metric.WithDescription("Responses replaced by the fallback text"),
		metric.WithUnit("{response}"),
	)
	if err != nil {
		m.logger.Warn("failed to create fallbacks counter", zap.Error(err))
	}

	m.unsupported, err = m.meter.Int64Counter(
		"pharmadd.generation.unsupported_citations_total",
		metric.WithDescription("URLs cited by the model that no input passage contains"),
		metric.WithUnit("{url}"),
	)
	if err != nil {
		m.logger.Warn("failed to create citations counter", zap.Error(err))
	}
}

// RecordCompletion records one model call.
func (m *Metrics) RecordCompletion(ctx context.Context, model, operation string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("operation", operation),
	)
	if m.duration != nil {
		m.duration.Record(ctx, duration.Seconds(), attrs)
	}
	if err != nil && m.errors != nil {
		m.errors.Add(ctx, 1, attrs)
	}
}

// RecordFallback counts a fallback response.
func (m *Metrics) RecordFallback(ctx context.Context, operation string) {
	if m.fallbacks != nil {
		m.fallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
	}
}

// RecordUnsupportedCitations counts cited URLs missing from the passages.
func (m *Metrics) RecordUnsupportedCitations(ctx context.Context, operation string, n int) {
	if m.unsupported != nil {
		m.unsupported.Add(ctx, int64(n), metric.WithAttributes(attribute.String("operation", operation)))
	}
}

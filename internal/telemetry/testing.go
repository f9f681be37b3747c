package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// TestTelemetry records spans and metrics in memory.
type TestTelemetry struct {
	*Telemetry

	SpanRecorder *tracetest.SpanRecorder
	MetricReader *sdkmetric.ManualReader
}

// NewTestTelemetry creates telemetry backed by in-memory recorders.
func NewTestTelemetry() *TestTelemetry {
	cfg := NewDefaultConfig()
	cfg.Enabled = true

	recorder := tracetest.NewSpanRecorder()
	reader := sdkmetric.NewManualReader()

	return &TestTelemetry{
		Telemetry: &Telemetry{
			config:         cfg,
			tracerProvider: sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)),
			meterProvider:  sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
		},
		SpanRecorder: recorder,
		MetricReader: reader,
	}
}

// Install makes the recorders the otel globals, so package-level tracers
// created with otel.Tracer report into them. The global tracer delegate
// binds to the first provider installed, so share one TestTelemetry per
// test binary.
func (t *TestTelemetry) Install() {
	otel.SetTracerProvider(t.tracerProvider)
	otel.SetMeterProvider(t.meterProvider)
}

// Spans returns all ended spans.
func (t *TestTelemetry) Spans() []sdktrace.ReadOnlySpan {
	return t.SpanRecorder.Ended()
}

// SpanByName returns the first ended span called name, or nil.
func (t *TestTelemetry) SpanByName(name string) sdktrace.ReadOnlySpan {
	return t.FindSpan(name, nil)
}

// FindSpan returns the first ended span called name that carries every
// attribute in attrs, or nil.
func (t *TestTelemetry) FindSpan(name string, attrs map[string]any) sdktrace.ReadOnlySpan {
	for _, span := range t.Spans() {
		if span.Name() != name {
			continue
		}
		if hasAttributes(span, attrs) {
			return span
		}
	}
	return nil
}

// AssertSpanExists fails tb when no span called name has ended.
func (t *TestTelemetry) AssertSpanExists(tb testing.TB, name string) {
	tb.Helper()
	if t.SpanByName(name) == nil {
		tb.Errorf("expected span %q not found, got: %v", name, t.spanNames())
	}
}

// AssertSpanAttribute fails tb unless the first span called name has
// attribute key set to want.
func (t *TestTelemetry) AssertSpanAttribute(tb testing.TB, name, key string, want any) {
	tb.Helper()
	span := t.SpanByName(name)
	if span == nil {
		tb.Fatalf("span %q not found", name)
	}
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			if got := attrValue(kv.Value); got != want {
				tb.Errorf("span %q attribute %q: got %v, want %v", name, key, got, want)
			}
			return
		}
	}
	tb.Errorf("span %q missing attribute %q", name, key)
}

// Collect reads the current metric state.
func (t *TestTelemetry) Collect(ctx context.Context) (metricdata.ResourceMetrics, error) {
	var rm metricdata.ResourceMetrics
	err := t.MetricReader.Collect(ctx, &rm)
	return rm, err
}

// Int64Sum returns the total of the int64 counter called name across all
// attribute sets, and whether it was found.
func (t *TestTelemetry) Int64Sum(ctx context.Context, name string) (int64, bool) {
	rm, err := t.Collect(ctx)
	if err != nil {
		return 0, false
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				return 0, false
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total, true
		}
	}
	return 0, false
}

func (t *TestTelemetry) spanNames() []string {
	spans := t.Spans()
	names := make([]string, len(spans))
	for i, span := range spans {
		names[i] = span.Name()
	}
	return names
}

func hasAttributes(span sdktrace.ReadOnlySpan, want map[string]any) bool {
	if len(want) == 0 {
		return true
	}
	found := 0
	for _, kv := range span.Attributes() {
		v, ok := want[string(kv.Key)]
		if !ok {
			continue
		}
		if attrValue(kv.Value) != v {
			return false
		}
		found++
	}
	return found == len(want)
}

// attrValue unwraps scalar attribute values. Slices come back in their
// emitted string form, e.g. ["Phase 2","Phase 3"].
func attrValue(v attribute.Value) any {
	switch v.Type() {
	case attribute.STRING:
		return v.AsString()
	case attribute.INT64:
		return v.AsInt64()
	case attribute.FLOAT64:
		return v.AsFloat64()
	case attribute.BOOL:
		return v.AsBool()
	default:
		return v.Emit()
	}
}

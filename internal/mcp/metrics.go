package mcp

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fyrsmithlabs/pharmadd/internal/report"
)

const instrumentationName = "github.com/fyrsmithlabs/pharmadd/internal/mcp"

// toolMetrics records MCP tool calls by tool and outcome.
type toolMetrics struct {
	calls    metric.Int64Counter
	duration metric.Float64Histogram
	inFlight metric.Int64UpDownCounter
}

func newToolMetrics(meter metric.Meter) (*toolMetrics, error) {
	var m toolMetrics
	var err, errs error

	m.calls, err = meter.Int64Counter("pharmadd.mcp.tool.calls",
		metric.WithDescription("MCP tool calls by tool and outcome"),
		metric.WithUnit("{call}"))
	errs = errors.Join(errs, err)

	m.duration, err = meter.Float64Histogram("pharmadd.mcp.tool.duration",
		metric.WithDescription("MCP tool call duration by tool and outcome"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 1, 5, 15, 30, 60, 120, 300, 600))
	errs = errors.Join(errs, err)

	m.inFlight, err = meter.Int64UpDownCounter("pharmadd.mcp.tool.in_flight",
		metric.WithDescription("MCP tool calls currently running, by tool"),
		metric.WithUnit("{call}"))
	errs = errors.Join(errs, err)

	return &m, errs
}

// begin marks a call to tool as started. The returned function ends it
// and records the outcome of err.
func (m *toolMetrics) begin(ctx context.Context, tool string) func(error) {
	start := time.Now()
	toolAttr := attribute.String("tool", tool)
	if m.inFlight != nil {
		m.inFlight.Add(ctx, 1, metric.WithAttributes(toolAttr))
	}
	return func(err error) {
		if m.inFlight != nil {
			m.inFlight.Add(ctx, -1, metric.WithAttributes(toolAttr))
		}
		attrs := metric.WithAttributes(toolAttr, attribute.String("outcome", outcome(err)))
		if m.calls != nil {
			m.calls.Add(ctx, 1, attrs)
		}
		if m.duration != nil {
			m.duration.Record(ctx, time.Since(start).Seconds(), attrs)
		}
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, report.ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, report.ErrIndexing):
		return "indexing_failed"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "failed"
	}
}

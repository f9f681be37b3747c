package embeddings

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/fyrsmithlabs/pharmadd/internal/embeddings"

// Operations reported in the "operation" attribute.
const (
	opDocuments = "documents"
	opQuery     = "query"
)

// embedMetrics tracks embedding calls. Report indexing embeds in batches
// and chat embeds one query, so both are labeled by operation.
type embedMetrics struct {
	calls    metric.Int64Counter
	texts    metric.Int64Counter
	duration metric.Float64Histogram
}

func newEmbedMetrics(meter metric.Meter) (*embedMetrics, error) {
	var m embedMetrics
	var err, errs error

	m.calls, err = meter.Int64Counter("pharmadd.embeddings.calls",
		metric.WithDescription("Embedding calls by model, operation and outcome"),
		metric.WithUnit("{call}"))
	errs = errors.Join(errs, err)

	m.texts, err = meter.Int64Counter("pharmadd.embeddings.texts",
		metric.WithDescription("Texts sent for embedding by model and operation"),
		metric.WithUnit("{text}"))
	errs = errors.Join(errs, err)

	m.duration, err = meter.Float64Histogram("pharmadd.embeddings.duration",
		metric.WithDescription("Embedding call duration by model and operation"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30))
	errs = errors.Join(errs, err)

	return &m, errs
}

func (m *embedMetrics) record(ctx context.Context, model, op string, texts int, elapsed time.Duration, err error) {
	base := []attribute.KeyValue{
		attribute.String("model", model),
		attribute.String("operation", op),
	}
	if m.texts != nil {
		m.texts.Add(ctx, int64(texts), metric.WithAttributes(base...))
	}
	if m.duration != nil {
		m.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(base...))
	}
	if m.calls != nil {
		m.calls.Add(ctx, 1, metric.WithAttributes(append(base, attribute.String("outcome", callOutcome(err)))...))
	}
}

func callOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnexpectedResponse):
		return "bad_response"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "failed"
	}
}

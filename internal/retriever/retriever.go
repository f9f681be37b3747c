// Package retriever provides the two read paths over an indexed namespace:
// exhaustive retrieval for report synthesis and similarity retrieval for
// follow-up questions.
package retriever

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/pharmadd/internal/passage"
	"github.com/fyrsmithlabs/pharmadd/internal/vectorstore"
)

// DefaultTopK is the number of passages returned for a chat question.
const DefaultTopK = 10

var tracer = otel.Tracer("pharmadd.retriever")

// Index is the subset of the index gateway the retriever reads from.
type Index interface {
	NamespaceExists(ctx context.Context, name string) (bool, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	GetAll(ctx context.Context, namespace string) ([]passage.Passage, error)
	Query(ctx context.Context, namespace string, vector []float32, k int) ([]passage.Passage, error)
}

// Retriever reads passages back from the index.
type Retriever struct {
	index  Index
	logger *zap.Logger
}

// New creates a Retriever.
func New(index Index, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{index: index, logger: logger}
}

// ForReport returns every passage stored in namespace, without ranking or
// cap. A missing or empty namespace yields an empty slice.
func (r *Retriever) ForReport(ctx context.Context, namespace string) ([]passage.Passage, error) {
	ctx, span := tracer.Start(ctx, "retriever.ForReport")
	defer span.End()
	span.SetAttributes(attribute.String("namespace", namespace))

	ps, err := r.index.GetAll(ctx, namespace)
	if errors.Is(err, vectorstore.ErrCollectionNotFound) {
		return []passage.Passage{}, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("retrieving report passages: %w", err)
	}
	if ps == nil {
		ps = []passage.Passage{}
	}

	span.SetAttributes(attribute.Int("passage_count", len(ps)))
	r.logger.Debug("report passages retrieved",
		zap.String("namespace", namespace),
		zap.Int("count", len(ps)))
	return ps, nil
}

// ForChat returns the k passages nearest to query, ascending by cosine
// distance, each with Distance set. k <= 0 means DefaultTopK. A missing or
// empty namespace yields an empty slice without an embedding call.
func (r *Retriever) ForChat(ctx context.Context, namespace, query string, k int) ([]passage.Passage, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	ctx, span := tracer.Start(ctx, "retriever.ForChat")
	defer span.End()
	span.SetAttributes(
		attribute.String("namespace", namespace),
		attribute.Int("k", k),
	)

	exists, err := r.index.NamespaceExists(ctx, namespace)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("checking namespace %s: %w", namespace, err)
	}
	if !exists {
		return []passage.Passage{}, nil
	}

	vector, err := r.index.EmbedQuery(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	ps, err := r.index.Query(ctx, namespace, vector, k)
	if errors.Is(err, vectorstore.ErrCollectionNotFound) {
		return []passage.Passage{}, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("retrieving chat passages: %w", err)
	}
	if ps == nil {
		ps = []passage.Passage{}
	}

	span.SetAttributes(attribute.Int("passage_count", len(ps)))
	return ps, nil
}

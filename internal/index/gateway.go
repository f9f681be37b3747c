// Package index turns passages into stored vectors and back.
//
// A Gateway owns the mapping between passages and vector store records:
// record IDs are the MD5 of the passage text, so re-indexing the same text
// replaces rather than duplicates it.
package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/pharmadd/internal/embeddings"
	"github.com/fyrsmithlabs/pharmadd/internal/passage"
	"github.com/fyrsmithlabs/pharmadd/internal/vectorstore"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// DefaultBatchSize is the number of passages embedded per request.
const DefaultBatchSize = 100

var tracer = otel.Tracer("pharmadd.index")

// ErrEmbeddingFailed wraps any failure of the embedding provider.
var ErrEmbeddingFailed = errors.New("embedding failed")

// Config holds Gateway settings.
type Config struct {
	// BatchSize is the number of passages per embedding call. Default: 100
	BatchSize int

	// Dimension is the vector size used when creating namespaces.
	Dimension int
}

// Gateway embeds passages and reads them back from the vector store.
type Gateway struct {
	embedder  embeddings.Embedder
	store     vectorstore.Store
	batchSize int
	dimension int
	logger    *zap.Logger
}

// New creates a Gateway.
func New(embedder embeddings.Embedder, store vectorstore.Store, cfg Config, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Gateway{
		embedder:  embedder,
		store:     store,
		batchSize: cfg.BatchSize,
		dimension: cfg.Dimension,
		logger:    logger,
	}
}

// EmbedQuery embeds a single query text. It is not retried.
func (g *Gateway) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	v, err := g.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %w", ErrEmbeddingFailed, err)
	}
	return v, nil
}

// GetOrCreateNamespace ensures the namespace exists. Idempotent.
func (g *Gateway) GetOrCreateNamespace(ctx context.Context, name string) error {
	if err := g.store.EnsureCollection(ctx, name, g.dimension); err != nil {
		return fmt.Errorf("ensuring namespace %s: %w", name, err)
	}
	return nil
}

// NamespaceExists reports whether the namespace has been created.
func (g *Gateway) NamespaceExists(ctx context.Context, name string) (bool, error) {
	return g.store.CollectionExists(ctx, name)
}

// EmbedAndStore embeds passages in batches and upserts them into namespace.
//
// Passages with identical text collapse into one record, the last one
// winning. Nothing is written unless every batch embedded successfully.
// An empty input is a no-op.
func (g *Gateway) EmbedAndStore(ctx context.Context, passages []passage.Passage, namespace string) error {
	if len(passages) == 0 {
		return nil
	}

	ctx, span := tracer.Start(ctx, "index.EmbedAndStore")
	defer span.End()

	unique := dedupe(passages)
	span.SetAttributes(
		attribute.String("namespace", namespace),
		attribute.Int("passage_count", len(passages)),
		attribute.Int("unique_count", len(unique)),
	)

	if err := g.GetOrCreateNamespace(ctx, namespace); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	records := make([]vectorstore.Record, 0, len(unique))
	for batch, start := 0, 0; start < len(unique); batch, start = batch+1, start+g.batchSize {
		end := min(start+g.batchSize, len(unique))
		chunk := unique[start:end]

		vectors, err := g.embedder.EmbedDocuments(ctx, passage.Texts(chunk))
		if err == nil && len(vectors) != len(chunk) {
			err = fmt.Errorf("got %d vectors for %d passages", len(vectors), len(chunk))
		}
		if err != nil {
			err = fmt.Errorf("embedding batch %d: %w: %w", batch, ErrEmbeddingFailed, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}

		for i, p := range chunk {
			records = append(records, vectorstore.Record{
				ID:        p.ID(),
				Content:   p.Text,
				Metadata:  p.Metadata,
				Embedding: vectors[i],
			})
		}
	}

	if err := g.store.Upsert(ctx, namespace, records); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("storing passages in %s: %w", namespace, err)
	}

	g.logger.Info("passages indexed",
		zap.String("namespace", namespace),
		zap.Int("passages", len(passages)),
		zap.Int("stored", len(records)))
	return nil
}

// GetAll returns every passage of the namespace, ordered by ID.
// A missing namespace yields an error wrapping vectorstore.ErrCollectionNotFound.
func (g *Gateway) GetAll(ctx context.Context, namespace string) ([]passage.Passage, error) {
	records, err := g.store.GetAll(ctx, namespace)
	if err != nil {
		return nil, fmt.Errorf("reading namespace %s: %w", namespace, err)
	}
	out := make([]passage.Passage, len(records))
	for i, r := range records {
		out[i] = passage.Passage{Text: r.Content, Metadata: r.Metadata}
	}
	return out, nil
}

// Query returns the k passages nearest to vector with their cosine distance,
// ascending.
func (g *Gateway) Query(ctx context.Context, namespace string, vector []float32, k int) ([]passage.Passage, error) {
	matches, err := g.store.Query(ctx, namespace, vector, k)
	if err != nil {
		return nil, fmt.Errorf("querying namespace %s: %w", namespace, err)
	}
	out := make([]passage.Passage, len(matches))
	for i, m := range matches {
		d := m.Distance
		out[i] = passage.Passage{Text: m.Content, Metadata: m.Metadata, Distance: &d}
	}
	return out, nil
}

// dedupe collapses passages sharing an ID. The survivor keeps the position
// of the first occurrence and the content of the last.
func dedupe(passages []passage.Passage) []passage.Passage {
	pos := make(map[string]int, len(passages))
	out := make([]passage.Passage, 0, len(passages))
	for _, p := range passages {
		id := p.ID()
		if i, ok := pos[id]; ok {
			out[i] = p
			continue
		}
		pos[id] = len(out)
		out = append(out, p)
	}
	return out
}

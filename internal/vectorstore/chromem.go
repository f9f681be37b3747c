package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const providerChromem = "chromem"

// chromemTracer for OpenTelemetry instrumentation.
var chromemTracer = otel.Tracer("pharmadd.vectorstore.chromem")

// errEmbeddingRequired is returned by the collection embedding function:
// records always arrive with their vectors.
var errEmbeddingRequired = errors.New("records must carry precomputed embeddings")

// ChromemConfig holds configuration for chromem-go embedded vector database.
type ChromemConfig struct {
	// Path is the directory for persistent storage. Empty keeps the
	// database in memory only.
	Path string

	// Compress enables gzip compression for stored data.
	Compress bool

	// VectorSize is the expected embedding dimension.
	// Must match the embedder's output dimension.
	// Default: 1536 (text-embedding-3-small)
	VectorSize int
}

// ApplyDefaults sets default values for unset fields.
func (c *ChromemConfig) ApplyDefaults() {
	if c.VectorSize == 0 {
		c.VectorSize = 1536
	}
}

// Validate validates the configuration.
func (c *ChromemConfig) Validate() error {
	if c.VectorSize <= 0 {
		return fmt.Errorf("%w: vector size must be positive", ErrInvalidConfig)
	}
	return nil
}

// ChromemStore implements Store using chromem-go.
//
// chromem-go is an embeddable, pure Go vector database with optional
// persistence to gob files. It only supports cosine similarity, which is
// the metric every collection here uses.
type ChromemStore struct {
	db     *chromem.DB
	config ChromemConfig
	logger *zap.Logger

	// dims tracks the dimension of collections written by this process.
	dims sync.Map
}

// NewChromemStore creates a new ChromemStore with the given configuration.
func NewChromemStore(config ChromemConfig, logger *zap.Logger) (*ChromemStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	var db *chromem.DB
	path := ""
	if config.Path == "" {
		db = chromem.NewDB()
	} else {
		expanded, err := expandChromemPath(config.Path)
		if err != nil {
			return nil, fmt.Errorf("expanding path: %w", err)
		}
		if err := os.MkdirAll(expanded, 0o755); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", expanded, err)
		}
		db, err = chromem.NewPersistentDB(expanded, config.Compress)
		if err != nil {
			return nil, fmt.Errorf("creating chromem DB: %w", err)
		}
		path = expanded
	}

	logger.Info("ChromemStore initialized",
		zap.String("path", path),
		zap.Bool("persistent", path != ""),
		zap.Bool("compress", config.Compress),
		zap.Int("vector_size", config.VectorSize),
	)

	return &ChromemStore{db: db, config: config, logger: logger}, nil
}

// expandChromemPath expands ~ to home directory.
func expandChromemPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}

func rejectEmbedding(context.Context, string) ([]float32, error) {
	return nil, errEmbeddingRequired
}

func (s *ChromemStore) collection(name string) (*chromem.Collection, error) {
	if err := ValidateCollectionName(name); err != nil {
		return nil, err
	}
	c := s.db.GetCollection(name, rejectEmbedding)
	if c == nil {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	return c, nil
}

func (s *ChromemStore) dimension(name string) int {
	if d, ok := s.dims.Load(name); ok {
		return d.(int)
	}
	return s.config.VectorSize
}

// EnsureCollection creates the collection if missing.
func (s *ChromemStore) EnsureCollection(ctx context.Context, name string, dimension int) (err error) {
	_, span := chromemTracer.Start(ctx, "ChromemStore.EnsureCollection")
	defer span.End()
	defer track(providerChromem, "ensure_collection")(&err)
	span.SetAttributes(attribute.String("collection", name))

	if err = ValidateCollectionName(name); err != nil {
		return err
	}
	if dimension <= 0 {
		dimension = s.config.VectorSize
	}
	meta := map[string]string{
		"dimension": strconv.Itoa(dimension),
		"distance":  "cosine",
	}
	if _, err = s.db.GetOrCreateCollection(name, meta, rejectEmbedding); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("creating collection %s: %w", name, err)
	}
	s.dims.Store(name, dimension)
	return nil
}

// CollectionExists reports whether the collection exists.
func (s *ChromemStore) CollectionExists(_ context.Context, name string) (bool, error) {
	if err := ValidateCollectionName(name); err != nil {
		return false, err
	}
	return s.db.GetCollection(name, rejectEmbedding) != nil, nil
}

// Upsert writes records by ID. chromem replaces documents with an existing ID.
func (s *ChromemStore) Upsert(ctx context.Context, collection string, records []Record) (err error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Upsert")
	defer span.End()
	defer track(providerChromem, "upsert")(&err)
	span.SetAttributes(
		attribute.String("collection", collection),
		attribute.Int("record_count", len(records)),
	)

	c, err := s.collection(collection)
	if err != nil {
		return err
	}
	if err = validateRecords(records, s.dimension(collection)); err != nil {
		return err
	}

	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		docs[i] = chromem.Document{
			ID:        r.ID,
			Content:   r.Content,
			Metadata:  r.Metadata,
			Embedding: r.Embedding,
		}
	}
	if err = c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("adding documents to %s: %w", collection, err)
	}

	RecordsUpserted.WithLabelValues(providerChromem).Add(float64(len(records)))
	s.logger.Debug("records upserted",
		zap.String("collection", collection),
		zap.Int("count", len(records)))
	return nil
}

// GetAll returns every record of the collection.
//
// chromem has no listing API, so this runs an exhaustive similarity query
// with a uniform probe vector and n equal to the collection size.
func (s *ChromemStore) GetAll(ctx context.Context, collection string) (out []Record, err error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.GetAll")
	defer span.End()
	defer track(providerChromem, "get_all")(&err)
	span.SetAttributes(attribute.String("collection", collection))

	c, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	n := c.Count()
	if n == 0 {
		return []Record{}, nil
	}

	probe := make([]float32, s.dimension(collection))
	for i := range probe {
		probe[i] = 1
	}
	results, err := c.QueryEmbedding(ctx, probe, n, nil, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("reading collection %s: %w", collection, err)
	}

	out = make([]Record, 0, len(results))
	for _, r := range results {
		out = append(out, Record{ID: r.ID, Content: r.Content, Metadata: r.Metadata})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	span.SetAttributes(attribute.Int("result_count", len(out)))
	return out, nil
}

// Query returns the k nearest records. k is capped at the collection size.
func (s *ChromemStore) Query(ctx context.Context, collection string, vector []float32, k int) (out []Match, err error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Query")
	defer span.End()
	defer track(providerChromem, "query")(&err)
	span.SetAttributes(
		attribute.String("collection", collection),
		attribute.Int("k", k),
	)

	c, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", ErrDimensionMismatch)
	}
	n := min(k, c.Count())
	if n <= 0 {
		return []Match{}, nil
	}

	results, err := c.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying collection %s: %w", collection, err)
	}

	out = make([]Match, 0, len(results))
	for _, r := range results {
		out = append(out, Match{
			Record:   Record{ID: r.ID, Content: r.Content, Metadata: r.Metadata},
			Distance: 1 - float64(r.Similarity),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	return out, nil
}

// Count returns the number of records in the collection.
func (s *ChromemStore) Count(_ context.Context, collection string) (int, error) {
	c, err := s.collection(collection)
	if err != nil {
		return 0, err
	}
	return c.Count(), nil
}

// DeleteCollection removes the collection. Deleting a missing collection is
// not an error.
func (s *ChromemStore) DeleteCollection(ctx context.Context, name string) (err error) {
	_, span := chromemTracer.Start(ctx, "ChromemStore.DeleteCollection")
	defer span.End()
	defer track(providerChromem, "delete_collection")(&err)

	if err = ValidateCollectionName(name); err != nil {
		return err
	}
	if err = s.db.DeleteCollection(name); err != nil {
		return fmt.Errorf("deleting collection %s: %w", name, err)
	}
	s.dims.Delete(name)
	return nil
}

// ListCollections returns collection names, sorted.
func (s *ChromemStore) ListCollections(_ context.Context) ([]string, error) {
	cols := s.db.ListCollections()
	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Close is a no-op; chromem persists on every write.
func (s *ChromemStore) Close() error {
	return nil
}

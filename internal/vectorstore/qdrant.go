package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	providerQdrant = "qdrant"

	payloadID       = "id"
	payloadContent  = "content"
	payloadMetadata = "metadata"

	scrollPageSize = 256
)

// qdrantTracer for OpenTelemetry instrumentation.
var qdrantTracer = otel.Tracer("pharmadd.vectorstore.qdrant")

// QdrantConfig holds configuration for Qdrant gRPC client.
type QdrantConfig struct {
	// Host is the Qdrant server hostname or IP address.
	// Default: "localhost"
	Host string

	// Port is the Qdrant gRPC port (NOT HTTP REST port).
	// Default: 6334 (gRPC), not 6333 (HTTP)
	Port int

	// VectorSize is the dimensionality of embeddings used when a collection
	// is created without an explicit dimension.
	VectorSize uint64

	// UseTLS enables TLS encryption for gRPC connection.
	UseTLS bool

	// MaxRetries is the maximum number of retry attempts for transient failures.
	// Default: 3
	MaxRetries int

	// RetryBackoff is the initial backoff duration for retries.
	// Doubles on each retry (exponential backoff).
	// Default: 1 second
	RetryBackoff time.Duration

	// MaxMessageSize is the maximum gRPC message size in bytes.
	// Default: 50MB
	MaxMessageSize int

	// CircuitBreakerThreshold is the number of failures before opening circuit.
	// Default: 5
	CircuitBreakerThreshold int
}

// Validate validates the configuration.
func (c QdrantConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host required", ErrInvalidConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: invalid port: %d", ErrInvalidConfig, c.Port)
	}
	if c.VectorSize == 0 {
		return fmt.Errorf("%w: vector size required", ErrInvalidConfig)
	}
	return nil
}

// ApplyDefaults sets default values for unset fields.
func (c *QdrantConfig) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.VectorSize == 0 {
		c.VectorSize = 1536
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = time.Second
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = 50 * 1024 * 1024 // 50MB
	}
	if c.CircuitBreakerThreshold == 0 {
		c.CircuitBreakerThreshold = 5
	}
}

// IsTransientError checks if an error is transient (should retry).
// Returns true for network timeouts, temporary unavailability.
// Returns false for invalid arguments, not found, permission denied.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}

	st, ok := status.FromError(err)
	if !ok {
		return false
	}

	switch st.Code() {
	case grpccodes.Unavailable, grpccodes.DeadlineExceeded, grpccodes.Aborted, grpccodes.ResourceExhausted:
		return true
	default:
		return false
	}
}

// QdrantStore is a Store implementation using Qdrant's native gRPC client.
//
// Qdrant point IDs must be UUIDs or integers, so each record ID is mapped
// to a name-based UUID and the original ID travels in the payload.
type QdrantStore struct {
	client *qdrant.Client
	config QdrantConfig
	logger *zap.Logger

	// collections caches known-existing collections.
	collections sync.Map

	circuitBreaker struct {
		failures int
		lastFail time.Time
		mu       sync.Mutex
	}
}

// NewQdrantStore creates a QdrantStore and verifies the connection with a
// health check.
func NewQdrantStore(config QdrantConfig, logger *zap.Logger) (*QdrantStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	if !config.UseTLS {
		logger.Warn("qdrant gRPC using plaintext (TLS disabled), insecure for production",
			zap.String("host", config.Host))
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   config.Host,
		Port:   config.Port,
		UseTLS: config.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(config.MaxMessageSize),
				grpc.MaxCallSendMsgSize(config.MaxMessageSize),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	store := &QdrantStore{client: client, config: config, logger: logger}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.healthCheck(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	logger.Info("QdrantStore initialized",
		zap.String("host", config.Host),
		zap.Int("port", config.Port),
		zap.Uint64("vector_size", config.VectorSize),
	)
	return store, nil
}

// Close closes the Qdrant gRPC connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *QdrantStore) healthCheck(ctx context.Context) error {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.HealthCheck")
	defer span.End()

	if _, err := s.client.HealthCheck(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("health check failed: %w", err)
	}
	span.SetStatus(codes.Ok, "healthy")
	return nil
}

// retryOperation retries an operation with exponential backoff.
func (s *QdrantStore) retryOperation(ctx context.Context, operationName string, operation func() error) error {
	backoff := s.config.RetryBackoff

	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		err := operation()
		if err == nil {
			s.resetCircuitBreaker()
			return nil
		}

		if s.isCircuitOpen() {
			return fmt.Errorf("%s: circuit breaker open", operationName)
		}

		if !IsTransientError(err) {
			return fmt.Errorf("%s failed (permanent): %w", operationName, err)
		}

		s.recordFailure()

		if attempt == s.config.MaxRetries {
			return fmt.Errorf("%s failed after %d retries: %w", operationName, s.config.MaxRetries, err)
		}

		s.logger.Debug("retrying qdrant operation",
			zap.String("operation", operationName),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s canceled: %w", operationName, ctx.Err())
		case <-time.After(backoff):
			backoff *= 2
		}
	}
	return nil
}

func (s *QdrantStore) recordFailure() {
	s.circuitBreaker.mu.Lock()
	defer s.circuitBreaker.mu.Unlock()
	s.circuitBreaker.failures++
	s.circuitBreaker.lastFail = time.Now()
}

func (s *QdrantStore) resetCircuitBreaker() {
	s.circuitBreaker.mu.Lock()
	defer s.circuitBreaker.mu.Unlock()
	s.circuitBreaker.failures = 0
}

func (s *QdrantStore) isCircuitOpen() bool {
	s.circuitBreaker.mu.Lock()
	defer s.circuitBreaker.mu.Unlock()

	if s.circuitBreaker.failures >= s.config.CircuitBreakerThreshold {
		// Allow retry after 30 seconds
		if time.Since(s.circuitBreaker.lastFail) > 30*time.Second {
			s.circuitBreaker.failures = 0
			return false
		}
		return true
	}
	return false
}

// pointID maps a record ID to a deterministic UUID.
func pointID(id string) string {
	return uuid.NewMD5(uuid.NameSpaceOID, []byte(id)).String()
}

// requireCollection returns ErrCollectionNotFound for missing collections.
func (s *QdrantStore) requireCollection(ctx context.Context, name string) error {
	exists, err := s.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	return nil
}

// EnsureCollection creates the collection with cosine distance if missing.
func (s *QdrantStore) EnsureCollection(ctx context.Context, name string, dimension int) (err error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.EnsureCollection")
	defer span.End()
	defer track(providerQdrant, "ensure_collection")(&err)
	span.SetAttributes(attribute.String("collection", name))

	exists, err := s.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	size := s.config.VectorSize
	if dimension > 0 {
		size = uint64(dimension)
	}
	err = s.retryOperation(ctx, "CreateCollection", func() error {
		return s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: name,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     size,
				Distance: qdrant.Distance_Cosine,
			}),
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("creating collection %s: %w", name, err)
	}
	s.collections.Store(name, true)
	s.logger.Info("collection created",
		zap.String("collection", name),
		zap.Uint64("vector_size", size))
	return nil
}

// CollectionExists reports whether the collection exists.
func (s *QdrantStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	if err := ValidateCollectionName(name); err != nil {
		return false, err
	}
	if _, ok := s.collections.Load(name); ok {
		return true, nil
	}

	var exists bool
	err := s.retryOperation(ctx, "CollectionExists", func() error {
		var err error
		exists, err = s.client.CollectionExists(ctx, name)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("checking collection %s: %w", name, err)
	}
	if exists {
		s.collections.Store(name, true)
	}
	return exists, nil
}

// Upsert writes records as points. Re-writing an ID replaces the point.
func (s *QdrantStore) Upsert(ctx context.Context, collection string, records []Record) (err error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.Upsert")
	defer span.End()
	defer track(providerQdrant, "upsert")(&err)
	span.SetAttributes(
		attribute.String("collection", collection),
		attribute.Int("record_count", len(records)),
	)

	if err = s.requireCollection(ctx, collection); err != nil {
		return err
	}
	if err = validateRecords(records, 0); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, len(records))
	for i, r := range records {
		meta := make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			meta[k] = v
		}
		payload, perr := qdrant.TryValueMap(map[string]any{
			payloadID:       r.ID,
			payloadContent:  r.Content,
			payloadMetadata: meta,
		})
		if perr != nil {
			return fmt.Errorf("record %s: building payload: %w", r.ID, perr)
		}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(pointID(r.ID)),
			Vectors: qdrant.NewVectors(r.Embedding...),
			Payload: payload,
		}
	}

	err = s.retryOperation(ctx, "Upsert", func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upserting into %s: %w", collection, err)
	}

	RecordsUpserted.WithLabelValues(providerQdrant).Add(float64(len(records)))
	return nil
}

// recordFromPayload rebuilds a Record from a point payload.
func recordFromPayload(payload map[string]*qdrant.Value) Record {
	r := Record{
		ID:       payload[payloadID].GetStringValue(),
		Content:  payload[payloadContent].GetStringValue(),
		Metadata: map[string]string{},
	}
	for k, v := range payload[payloadMetadata].GetStructValue().GetFields() {
		r.Metadata[k] = v.GetStringValue()
	}
	return r
}

// GetAll scrolls through the whole collection.
func (s *QdrantStore) GetAll(ctx context.Context, collection string) (out []Record, err error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.GetAll")
	defer span.End()
	defer track(providerQdrant, "get_all")(&err)
	span.SetAttributes(attribute.String("collection", collection))

	if err = s.requireCollection(ctx, collection); err != nil {
		return nil, err
	}

	out = []Record{}
	var offset *qdrant.PointId
	for {
		var (
			points []*qdrant.RetrievedPoint
			next   *qdrant.PointId
		)
		err = s.retryOperation(ctx, "Scroll", func() error {
			var err error
			points, next, err = s.client.ScrollAndOffset(ctx, &qdrant.ScrollPoints{
				CollectionName: collection,
				Offset:         offset,
				Limit:          qdrant.PtrOf(uint32(scrollPageSize)),
				WithPayload:    qdrant.NewWithPayload(true),
			})
			return err
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("scrolling %s: %w", collection, err)
		}
		for _, p := range points {
			out = append(out, recordFromPayload(p.GetPayload()))
		}
		if next == nil || len(points) == 0 {
			break
		}
		offset = next
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	span.SetAttributes(attribute.Int("result_count", len(out)))
	return out, nil
}

// Query returns the k nearest points by cosine distance.
func (s *QdrantStore) Query(ctx context.Context, collection string, vector []float32, k int) (out []Match, err error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.Query")
	defer span.End()
	defer track(providerQdrant, "query")(&err)
	span.SetAttributes(
		attribute.String("collection", collection),
		attribute.Int("k", k),
	)

	if err = s.requireCollection(ctx, collection); err != nil {
		return nil, err
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", ErrDimensionMismatch)
	}
	if k <= 0 {
		return []Match{}, nil
	}

	var scored []*qdrant.ScoredPoint
	err = s.retryOperation(ctx, "Query", func() error {
		var err error
		scored, err = s.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: collection,
			Query:          qdrant.NewQuery(vector...),
			Limit:          qdrant.PtrOf(uint64(k)),
			WithPayload:    qdrant.NewWithPayload(true),
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying %s: %w", collection, err)
	}

	out = make([]Match, 0, len(scored))
	for _, p := range scored {
		out = append(out, Match{
			Record:   recordFromPayload(p.GetPayload()),
			Distance: 1 - float64(p.GetScore()),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	return out, nil
}

// Count returns the exact number of points in the collection.
func (s *QdrantStore) Count(ctx context.Context, collection string) (int, error) {
	if err := s.requireCollection(ctx, collection); err != nil {
		return 0, err
	}
	var n uint64
	err := s.retryOperation(ctx, "Count", func() error {
		var err error
		n, err = s.client.Count(ctx, &qdrant.CountPoints{
			CollectionName: collection,
			Exact:          qdrant.PtrOf(true),
		})
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", collection, err)
	}
	return int(n), nil
}

// DeleteCollection removes the collection. Missing collections are ignored.
func (s *QdrantStore) DeleteCollection(ctx context.Context, name string) (err error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.DeleteCollection")
	defer span.End()
	defer track(providerQdrant, "delete_collection")(&err)

	if err = s.requireCollection(ctx, name); err != nil {
		if errors.Is(err, ErrCollectionNotFound) {
			return nil
		}
		return err
	}
	err = s.retryOperation(ctx, "DeleteCollection", func() error {
		return s.client.DeleteCollection(ctx, name)
	})
	if err != nil {
		return fmt.Errorf("deleting collection %s: %w", name, err)
	}
	s.collections.Delete(name)
	return nil
}

// ListCollections returns collection names, sorted.
func (s *QdrantStore) ListCollections(ctx context.Context) ([]string, error) {
	var names []string
	err := s.retryOperation(ctx, "ListCollections", func() error {
		var err error
		names, err = s.client.ListCollections(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

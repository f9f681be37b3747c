package embeddings

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("pharmadd.embeddings")

// Config holds configuration for the embedding service.
type Config struct {
	// BaseURL overrides the OpenAI API URL, e.g. for a compatible gateway.
	BaseURL string

	// Model is the embedding model. Default: text-embedding-3-small
	Model string

	// APIKey is required unless BaseURL points at a server without auth.
	APIKey string

	// BatchSize caps texts per upstream request. Default: 100
	BatchSize int

	// Dimension is the expected vector size. Derived from Model when zero.
	Dimension int

	// HTTPClient is used for upstream requests when set.
	HTTPClient *http.Client
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Model == "" {
		c.Model = "text-embedding-3-small"
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.Dimension == 0 {
		c.Dimension = knownDimensions[c.Model]
	}
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.APIKey == "" && c.BaseURL == "" {
		return fmt.Errorf("%w: API key required (set OPENAI_API_KEY or embeddings.api_key)", ErrInvalidConfig)
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("%w: unknown dimension for model %q", ErrInvalidConfig, c.Model)
	}
	return nil
}

// Service generates embeddings through langchaingo.
type Service struct {
	embedder embeddings.Embedder
	config   Config
	logger   *zap.Logger
	metrics  *embedMetrics
}

// NewService creates an embedding service backed by the OpenAI embeddings API.
func NewService(config Config, logger *zap.Logger) (*Service, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	apiKey := config.APIKey
	if apiKey == "" {
		// langchaingo requires a token; keyless compatible servers ignore it
		apiKey = "placeholder"
	}
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithEmbeddingModel(config.Model),
	}
	if config.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(config.BaseURL))
	}
	if config.HTTPClient != nil {
		opts = append(opts, openai.WithHTTPClient(config.HTTPClient))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}
	return NewServiceWithClient(llm, config, logger)
}

// NewServiceWithClient wraps any langchaingo embedder client.
func NewServiceWithClient(client embeddings.EmbedderClient, config Config, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	config.ApplyDefaults()
	if config.Dimension <= 0 {
		return nil, fmt.Errorf("%w: unknown dimension for model %q", ErrInvalidConfig, config.Model)
	}

	embedder, err := embeddings.NewEmbedder(client,
		embeddings.WithBatchSize(config.BatchSize),
		embeddings.WithStripNewLines(true),
	)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	logger.Info("embedding service initialized",
		zap.String("model", config.Model),
		zap.Int("dimension", config.Dimension),
		zap.Int("batch_size", config.BatchSize))

	metrics, err := newEmbedMetrics(otel.Meter(instrumentationName))
	if err != nil {
		logger.Warn("some embedding metrics are unavailable", zap.Error(err))
	}

	return &Service{
		embedder: embedder,
		config:   config,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// EmbedDocuments generates one embedding per text.
//
// Returns ErrEmptyInput if texts is empty and ErrUnexpectedResponse when
// the provider returns a different number of vectors or a wrong dimension.
func (s *Service) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, span := tracer.Start(ctx, "embeddings.EmbedDocuments")
	defer span.End()
	span.SetAttributes(
		attribute.String("model", s.config.Model),
		attribute.Int("text_count", len(texts)),
	)

	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}

	start := time.Now()
	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err == nil {
		err = s.check(vectors, len(texts))
	}
	s.metrics.record(ctx, s.config.Model, opDocuments, len(texts), time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("embedding documents: %w", err)
	}

	s.logger.Debug("documents embedded",
		zap.Int("count", len(texts)),
		zap.Duration("duration", time.Since(start)))
	return vectors, nil
}

// EmbedQuery generates an embedding for a single query.
func (s *Service) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	ctx, span := tracer.Start(ctx, "embeddings.EmbedQuery")
	defer span.End()
	span.SetAttributes(attribute.String("model", s.config.Model))

	if text == "" {
		return nil, fmt.Errorf("%w: query cannot be empty", ErrEmptyInput)
	}

	start := time.Now()
	vector, err := s.embedder.EmbedQuery(ctx, text)
	if err == nil {
		err = s.check([][]float32{vector}, 1)
	}
	s.metrics.record(ctx, s.config.Model, opQuery, 1, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return vector, nil
}

func (s *Service) check(vectors [][]float32, want int) error {
	if len(vectors) != want {
		return fmt.Errorf("%w: got %d vectors for %d texts", ErrUnexpectedResponse, len(vectors), want)
	}
	for i, v := range vectors {
		if len(v) != s.config.Dimension {
			return fmt.Errorf("%w: vector %d has dimension %d, want %d", ErrUnexpectedResponse, i, len(v), s.config.Dimension)
		}
	}
	return nil
}

// Dimension returns the embedding dimension.
func (s *Service) Dimension() int {
	return s.config.Dimension
}

// Model returns the embedding model name.
func (s *Service) Model() string {
	return s.config.Model
}

// Close is a no-op; the HTTP client holds no dedicated resources.
func (s *Service) Close() error {
	return nil
}

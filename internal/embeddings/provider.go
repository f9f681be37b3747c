// Package embeddings provides embedding generation via langchaingo.
//
// The default provider calls OpenAI's embedding API (text-embedding-3-small,
// 1536 dimensions). Any OpenAI-compatible server can stand in by setting
// BaseURL.
package embeddings

import (
	"context"
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/pharmadd/internal/config"
	"go.uber.org/zap"
)

var (
	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnexpectedResponse indicates a response that does not match the request.
	ErrUnexpectedResponse = errors.New("unexpected embedding response")
)

// Embedder generates vector embeddings from text.
type Embedder interface {
	// EmbedDocuments returns one vector per text, in input order.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedQuery embeds a single text.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Provider is an Embedder with a known output dimension.
type Provider interface {
	Embedder
	// Dimension returns the embedding dimension for the current model.
	Dimension() int
	// Close releases resources held by the provider.
	Close() error
}

// knownDimensions maps OpenAI embedding models to their output size.
var knownDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// NewProviderFromConfig creates the OpenAI provider from application config.
func NewProviderFromConfig(cfg config.EmbeddingsConfig, logger *zap.Logger) (Provider, error) {
	svc, err := NewService(Config{
		BaseURL:   cfg.BaseURL,
		Model:     cfg.Model,
		APIKey:    cfg.APIKey.Value(),
		BatchSize: cfg.BatchSize,
		Dimension: cfg.Dimension,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating embedding provider: %w", err)
	}
	return svc, nil
}

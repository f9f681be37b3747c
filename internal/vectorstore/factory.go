package vectorstore

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/pharmadd/internal/config"
	"go.uber.org/zap"
)

// NewStore creates a Store based on the configuration.
//
// Providers:
//   - "chromem" (default): embedded ChromemStore, no external services
//   - "qdrant": QdrantStore over gRPC
//   - "pgvector": PostgreSQL with the pgvector extension
//
// Example usage:
//
//	cfg, _ := config.Load()
//	store, err := vectorstore.NewStore(ctx, cfg, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
func NewStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Store, error) {
	vs := cfg.VectorStore

	switch vs.Provider {
	case providerChromem, "":
		return NewChromemStore(ChromemConfig{
			Path:       vs.ChromemPath,
			Compress:   vs.ChromemCompress,
			VectorSize: vs.VectorSize,
		}, logger)

	case providerQdrant:
		return NewQdrantStore(QdrantConfig{
			Host:       vs.QdrantHost,
			Port:       vs.QdrantPort,
			UseTLS:     vs.QdrantUseTLS,
			VectorSize: uint64(vs.VectorSize),
		}, logger)

	case providerPgvector:
		return NewPgvectorStore(ctx, PgvectorConfig{
			DSN:        vs.PgvectorDSN.Value(),
			VectorSize: vs.VectorSize,
		}, logger)

	default:
		return nil, fmt.Errorf("%w: unsupported vectorstore provider: %s (supported: chromem, qdrant, pgvector)",
			ErrInvalidConfig, vs.Provider)
	}
}

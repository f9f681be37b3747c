package vectorstore_test

import (
	"context"
	"testing"

	"github.com/fyrsmithlabs/pharmadd/internal/config"
	"github.com/fyrsmithlabs/pharmadd/internal/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewStore_Chromem(t *testing.T) {
	cfg := &config.Config{VectorStore: config.VectorStoreConfig{
		Provider:    "chromem",
		ChromemPath: t.TempDir(),
		VectorSize:  testDim,
	}}

	store, err := vectorstore.NewStore(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()
	assert.IsType(t, &vectorstore.ChromemStore{}, store)
}

func TestNewStore_UnsupportedProvider(t *testing.T) {
	cfg := &config.Config{VectorStore: config.VectorStoreConfig{Provider: "faiss"}}

	_, err := vectorstore.NewStore(context.Background(), cfg, zap.NewNop())
	assert.ErrorIs(t, err, vectorstore.ErrInvalidConfig)
}

func TestNewStore_PgvectorRequiresDSN(t *testing.T) {
	cfg := &config.Config{VectorStore: config.VectorStoreConfig{Provider: "pgvector"}}

	_, err := vectorstore.NewStore(context.Background(), cfg, zap.NewNop())
	assert.ErrorIs(t, err, vectorstore.ErrInvalidConfig)
}

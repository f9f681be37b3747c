package vectorstore_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/fyrsmithlabs/pharmadd/internal/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testDim = 4

func newMemoryStore(t *testing.T) *vectorstore.ChromemStore {
	t.Helper()
	store, err := vectorstore.NewChromemStore(vectorstore.ChromemConfig{VectorSize: testDim}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// axis returns a unit vector along dimension i.
func axis(i int) []float32 {
	v := make([]float32, testDim)
	v[i] = 1
	return v
}

func rec(id, content string, emb []float32) vectorstore.Record {
	return vectorstore.Record{
		ID:        id,
		Content:   content,
		Metadata:  map[string]string{"source": "clinicaltrials", "source_url": "https://clinicaltrials.gov/study/" + id},
		Embedding: emb,
	}
}

func TestChromemConfig_ApplyDefaults(t *testing.T) {
	cfg := vectorstore.ChromemConfig{}
	cfg.ApplyDefaults()

	assert.Empty(t, cfg.Path)
	assert.Equal(t, 1536, cfg.VectorSize)
	assert.NoError(t, cfg.Validate())
}

func TestChromemConfig_Validate(t *testing.T) {
	cfg := vectorstore.ChromemConfig{VectorSize: -1}
	assert.ErrorIs(t, cfg.Validate(), vectorstore.ErrInvalidConfig)
}

func TestChromemStore_EnsureCollection(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(t)

	exists, err := store.CollectionExists(ctx, "moderna")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.EnsureCollection(ctx, "moderna", testDim))
	require.NoError(t, store.EnsureCollection(ctx, "moderna", testDim), "idempotent")

	exists, err = store.CollectionExists(ctx, "moderna")
	require.NoError(t, err)
	assert.True(t, exists)

	names, err := store.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"moderna"}, names)

	err = store.EnsureCollection(ctx, "Bad Name!", testDim)
	assert.ErrorIs(t, err, vectorstore.ErrInvalidCollectionName)
}

func TestChromemStore_UpsertAndGetAll(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(t)
	require.NoError(t, store.EnsureCollection(ctx, "pfizer", testDim))

	require.NoError(t, store.Upsert(ctx, "pfizer", []vectorstore.Record{
		rec("c", "third", axis(2)),
		rec("a", "first", axis(0)),
		rec("b", "second", axis(1)),
	}))

	all, err := store.GetAll(ctx, "pfizer")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "b", all[1].ID)
	assert.Equal(t, "c", all[2].ID)
	assert.Equal(t, "first", all[0].Content)
	assert.Equal(t, "clinicaltrials", all[0].Metadata["source"])
	assert.Nil(t, all[0].Embedding)

	t.Run("re-upsert replaces by id", func(t *testing.T) {
		require.NoError(t, store.Upsert(ctx, "pfizer", []vectorstore.Record{rec("a", "first v2", axis(0))}))

		n, err := store.Count(ctx, "pfizer")
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		all, err := store.GetAll(ctx, "pfizer")
		require.NoError(t, err)
		assert.Equal(t, "first v2", all[0].Content)
	})
}

func TestChromemStore_GetAllEmptyAndMissing(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(t)

	_, err := store.GetAll(ctx, "nobody")
	assert.ErrorIs(t, err, vectorstore.ErrCollectionNotFound)

	require.NoError(t, store.EnsureCollection(ctx, "empty", testDim))
	all, err := store.GetAll(ctx, "empty")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestChromemStore_Query(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(t)
	require.NoError(t, store.EnsureCollection(ctx, "lilly", testDim))
	require.NoError(t, store.Upsert(ctx, "lilly", []vectorstore.Record{
		rec("x", "along x", axis(0)),
		rec("y", "along y", axis(1)),
		rec("xy", "between", []float32{0.7071, 0.7071, 0, 0}),
	}))

	matches, err := store.Query(ctx, "lilly", axis(0), 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "x", matches[0].ID)
	assert.InDelta(t, 0, matches[0].Distance, 1e-4)
	assert.Equal(t, "xy", matches[1].ID)
	assert.InDelta(t, 1-0.7071, matches[1].Distance, 1e-3)
	assert.LessOrEqual(t, matches[0].Distance, matches[1].Distance)

	t.Run("k larger than collection", func(t *testing.T) {
		matches, err := store.Query(ctx, "lilly", axis(1), 50)
		require.NoError(t, err)
		assert.Len(t, matches, 3)
		assert.Equal(t, "y", matches[0].ID)
	})

	t.Run("missing collection", func(t *testing.T) {
		_, err := store.Query(ctx, "absent", axis(0), 5)
		assert.ErrorIs(t, err, vectorstore.ErrCollectionNotFound)
	})

	t.Run("empty collection", func(t *testing.T) {
		require.NoError(t, store.EnsureCollection(ctx, "fresh", testDim))
		matches, err := store.Query(ctx, "fresh", axis(0), 5)
		require.NoError(t, err)
		assert.Empty(t, matches)
	})
}

func TestChromemStore_UpsertValidation(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(t)
	require.NoError(t, store.EnsureCollection(ctx, "abbott", testDim))

	assert.ErrorIs(t, store.Upsert(ctx, "abbott", nil), vectorstore.ErrEmptyRecords)
	assert.ErrorIs(t, store.Upsert(ctx, "abbott", []vectorstore.Record{rec("a", "short", []float32{1, 0})}),
		vectorstore.ErrDimensionMismatch)
	assert.Error(t, store.Upsert(ctx, "abbott", []vectorstore.Record{{ID: "a", Content: "no vector"}}))
	assert.ErrorIs(t, store.Upsert(ctx, "missing", []vectorstore.Record{rec("a", "x", axis(0))}),
		vectorstore.ErrCollectionNotFound)
}

func TestChromemStore_DeleteCollection(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(t)
	require.NoError(t, store.EnsureCollection(ctx, "gone", testDim))
	require.NoError(t, store.Upsert(ctx, "gone", []vectorstore.Record{rec("a", "x", axis(0))}))

	require.NoError(t, store.DeleteCollection(ctx, "gone"))
	exists, err := store.CollectionExists(ctx, "gone")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.NoError(t, store.DeleteCollection(ctx, "gone"), "deleting twice is not an error")
}

func TestChromemStore_Persistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := vectorstore.ChromemConfig{Path: dir, VectorSize: testDim}

	store, err := vectorstore.NewChromemStore(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.EnsureCollection(ctx, "medtronic", testDim))

	records := make([]vectorstore.Record, 0, testDim)
	for i := 0; i < testDim; i++ {
		records = append(records, rec(fmt.Sprintf("r%d", i), fmt.Sprintf("passage %d", i), axis(i)))
	}
	require.NoError(t, store.Upsert(ctx, "medtronic", records))
	require.NoError(t, store.Close())

	reopened, err := vectorstore.NewChromemStore(cfg, zap.NewNop())
	require.NoError(t, err)

	all, err := reopened.GetAll(ctx, "medtronic")
	require.NoError(t, err)
	require.Len(t, all, testDim)
	assert.Equal(t, "r0", all[0].ID)
	assert.Equal(t, "passage 3", all[3].Content)
}

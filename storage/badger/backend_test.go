package badger

import (
	"context"
	"testing"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/triplex/core"
	"github.com/poiesic/triplex/storage"
)

func TestOpenBackend_InMemory(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestOpenBackend_FileSystem(t *testing.T) {
	tmpDir := t.TempDir()
	backend, err := OpenBackend(tmpDir, false)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestBackendClose(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)

	assert.False(t, backend.IsClosed())

	err = backend.Close()
	require.NoError(t, err)

	assert.True(t, backend.IsClosed())
}

func TestWithTx_ClosedBackend(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NoError(t, backend.Close())

	err = backend.WithTx(func(tx *badgerdb.Txn) error { return nil }, false)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestPing(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, backend.Ping(ctx))

	require.NoError(t, backend.Close())
	assert.ErrorIs(t, backend.Ping(ctx), storage.ErrStorageClosed)
}

func TestFindSimilar_NoRecords(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	defer stores.Backend.Close()

	ctx := context.Background()
	vector := []float32{0.1, 0.2, 0.3}

	results, err := stores.Vectors.FindSimilar(ctx, vector, 0.5, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFindSimilar_WithRecords(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	defer stores.Backend.Close()

	ctx := context.Background()

	records := []*core.VectorRecord{
		{ID: "v1", ItemID: "item-1", Vector: []float32{1.0, 0.0, 0.0}},
		{ID: "v2", ItemID: "item-1", Vector: []float32{0.9, 0.1, 0.0}},
		{ID: "v3", ItemID: "item-2", Vector: []float32{0.0, 0.0, 1.0}},
	}
	require.NoError(t, stores.Vectors.Upsert(ctx, records))

	queryVector := []float32{1.0, 0.0, 0.0}
	results, err := stores.Vectors.FindSimilar(ctx, queryVector, 0.8, 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	// Results should be sorted by score descending
	for i := 0; i < len(results)-1; i++ {
		assert.GreaterOrEqual(t, results[i].Score, results[i+1].Score)
	}

	assert.Equal(t, "v1", results[0].Record.ID)
	assert.Greater(t, results[0].Score, float32(0.8))
}

func TestFindSimilar_ThresholdAndLimit(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	defer stores.Backend.Close()

	ctx := context.Background()

	records := []*core.VectorRecord{
		{ID: "high", ItemID: "item-1", Vector: []float32{1.0, 0.0, 0.0}},
		{ID: "medium", ItemID: "item-1", Vector: []float32{0.7, 0.3, 0.0}},
		{ID: "low", ItemID: "item-1", Vector: []float32{0.3, 0.7, 0.0}},
	}
	require.NoError(t, stores.Vectors.Upsert(ctx, records))

	queryVector := []float32{1.0, 0.0, 0.0}

	t.Run("high threshold", func(t *testing.T) {
		results, err := stores.Vectors.FindSimilar(ctx, queryVector, 0.95, 10)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(results), 1)
	})

	t.Run("low threshold", func(t *testing.T) {
		results, err := stores.Vectors.FindSimilar(ctx, queryVector, 0.2, 10)
		require.NoError(t, err)
		assert.Equal(t, 3, len(results))
	})

	t.Run("limit", func(t *testing.T) {
		results, err := stores.Vectors.FindSimilar(ctx, queryVector, 0.2, 2)
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})
}

func TestDotProduct(t *testing.T) {
	tests := []struct {
		name     string
		a        []float32
		b        []float32
		expected float32
	}{
		{
			name:     "identical vectors",
			a:        []float32{1.0, 0.0, 0.0},
			b:        []float32{1.0, 0.0, 0.0},
			expected: 1.0,
		},
		{
			name:     "orthogonal vectors",
			a:        []float32{1.0, 0.0, 0.0},
			b:        []float32{0.0, 1.0, 0.0},
			expected: 0.0,
		},
		{
			name:     "opposite vectors",
			a:        []float32{1.0, 0.0, 0.0},
			b:        []float32{-1.0, 0.0, 0.0},
			expected: -1.0,
		},
		{
			name:     "different lengths - use min",
			a:        []float32{1.0, 2.0, 3.0},
			b:        []float32{1.0, 2.0},
			expected: 5.0,
		},
		{
			name:     "empty vectors",
			a:        []float32{},
			b:        []float32{},
			expected: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := dotProduct(tt.a, tt.b)
			assert.InDelta(t, tt.expected, result, 0.0001)
		})
	}
}

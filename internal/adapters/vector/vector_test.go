package vector

import (
	"context"
	"testing"

	"github.com/mikey/email-onebox/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func runStoreTests(t *testing.T, store core.VectorStore) {
	ctx := context.Background()

	matches, err := store.Query(ctx, "reply-data", []float32{1, 0}, 1)
	require.NoError(t, err)
	assert.Empty(t, matches)

	require.NoError(t, store.Add(ctx, "reply-data", []core.VectorRecord{
		{ID: "example-0", Vector: []float32{1, 0}, Document: "interview"},
		{ID: "example-1", Vector: []float32{0, 1}, Document: "pricing"},
		{ID: "example-2", Vector: []float32{0.9, 0.2}, Document: "schedule"},
	}))
	require.NoError(t, store.Add(ctx, "other", []core.VectorRecord{
		{ID: "x", Vector: []float32{1, 0}, Document: "elsewhere"},
	}))

	n, err := store.Count(ctx, "reply-data")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	matches, err = store.Query(ctx, "reply-data", []float32{0.1, 0.95}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "example-1", matches[0].ID)
	assert.Equal(t, "pricing", matches[0].Document)

	matches, err = store.Query(ctx, "reply-data", []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, []string{"example-0", "example-2"}, []string{matches[0].ID, matches[1].ID})
	assert.LessOrEqual(t, matches[0].Distance, matches[1].Distance)

	// Re-adding an ID replaces the record.
	require.NoError(t, store.Add(ctx, "reply-data", []core.VectorRecord{
		{ID: "example-1", Vector: []float32{0, 1}, Document: "pricing v2"},
	}))
	n, err = store.Count(ctx, "reply-data")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, store.Reset(ctx, "reply-data"))
	n, err = store.Count(ctx, "reply-data")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = store.Count(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemoryStore(t *testing.T) {
	runStoreTests(t, NewMemoryStore(L2))
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(":memory:", L2, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()
	runStoreTests(t, store)
}

func TestDistances(t *testing.T) {
	assert.InDelta(t, 2.0, L2([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{2, 0}, []float32{1, 0}), 1e-9)
	assert.InDelta(t, 1.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, 1.0, Cosine([]float32{0, 0}, []float32{0, 1}), 1e-9)
}

func TestDistanceByName(t *testing.T) {
	_, err := DistanceByName("l2")
	assert.NoError(t, err)
	_, err = DistanceByName("cosine")
	assert.NoError(t, err)
	_, err = DistanceByName("dot")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestRankSkipsMismatchedDimensions(t *testing.T) {
	got := rank([]core.VectorRecord{
		{ID: "a", Vector: []float32{1, 0, 0}},
		{ID: "b", Vector: []float32{1, 0}},
	}, []float32{1, 0}, 5, L2)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
}

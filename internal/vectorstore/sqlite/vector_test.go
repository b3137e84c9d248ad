package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noteflux/noteflux/internal/vectorstore"
)

func TestSearchVector_RejectsEmptyQuery(t *testing.T) {
	store := newTestStore(t)
	_, err := store.SearchVector(context.Background(), nil, vectorstore.SearchOptions{})
	assert.Error(t, err)
}

func TestSearchVector_BruteForce_OrdersByDistanceAscending(t *testing.T) {
	// Given: three chunks at increasing distance from the query vector
	store := newTestStore(t)
	require.NoError(t, store.UpsertBatch(context.Background(), []vectorstore.Document{
		{ID: "far", Content: "far", Vector: []float32{10, 10}},
		{ID: "near", Content: "near", Vector: []float32{0, 0.1}},
		{ID: "mid", Content: "mid", Vector: []float32{1, 1}},
	}))

	// When: searching near the origin
	results, err := store.SearchVector(context.Background(), []float32{0, 0}, vectorstore.SearchOptions{Limit: 3})

	// Then: nearest comes first
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "near", results[0].Document.ID)
	assert.Equal(t, "far", results[2].Document.ID)
	assert.Less(t, results[0].Score, results[2].Score)
}

func TestSearchVector_RespectsLimit(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.UpsertBatch(context.Background(), []vectorstore.Document{
		{ID: "a", Content: "a", Vector: []float32{0, 0}},
		{ID: "b", Content: "b", Vector: []float32{1, 1}},
		{ID: "c", Content: "c", Vector: []float32{2, 2}},
	}))

	results, err := store.SearchVector(context.Background(), []float32{0, 0}, vectorstore.SearchOptions{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearchVector_SkipsChunksWithMismatchedDimensions(t *testing.T) {
	// Given: one chunk with a differently-sized vector than the query
	store := newTestStore(t)
	require.NoError(t, store.Upsert(context.Background(), vectorstore.Document{
		ID: "short", Content: "short", Vector: []float32{1},
	}))
	require.NoError(t, store.Upsert(context.Background(), vectorstore.Document{
		ID: "match", Content: "match", Vector: []float32{1, 2},
	}))

	// When: searching with a 2-dimensional query vector
	results, err := store.SearchVector(context.Background(), []float32{0, 0}, vectorstore.SearchOptions{Limit: 10})

	// Then: only the matching-dimension chunk is returned
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "match", results[0].Document.ID)
}

func TestSearchVector_AppliesMetadataFilters(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.UpsertBatch(context.Background(), []vectorstore.Document{
		{ID: "work-note", Content: "w", Vector: []float32{0, 0}, Metadata: map[string]interface{}{"vault": "work"}},
		{ID: "personal-note", Content: "p", Vector: []float32{0, 0}, Metadata: map[string]interface{}{"vault": "personal"}},
	}))

	results, err := store.SearchVector(context.Background(), []float32{0, 0}, vectorstore.SearchOptions{
		Limit:   10,
		Filters: map[string]interface{}{"vault": "personal"},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "personal-note", results[0].Document.ID)
}

func TestSquaredL2_MatchesKnownDistance(t *testing.T) {
	assert.Equal(t, float32(25), squaredL2([]float32{0, 0}, []float32{3, 4}))
}

func TestSquaredL2_HandlesUnequalLengthsByTruncating(t *testing.T) {
	assert.Equal(t, float32(0), squaredL2([]float32{1, 2, 3}, []float32{1, 2}))
}

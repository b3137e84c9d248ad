package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noteflux/noteflux/internal/config"
)

// countingEmbedder wraps MockEmbedder and counts calls, so tests can assert
// a cache hit avoids the underlying embed.
type countingEmbedder struct {
	*MockEmbedder
	embedCalls      int
	embedBatchCalls int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) (*Embedding, error) {
	c.embedCalls++
	return c.MockEmbedder.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]*Embedding, error) {
	c.embedBatchCalls++
	return c.MockEmbedder.EmbedBatch(ctx, texts)
}

func TestCachedEmbedderHitsCacheOnSecondCall(t *testing.T) {
	inner := &countingEmbedder{MockEmbedder: NewMock(16)}
	backend, err := NewLRUCache(10)
	require.NoError(t, err)
	cached := NewCachedEmbedder(inner, backend)

	ctx := context.Background()
	first, err := cached.Embed(ctx, "hello world")
	require.NoError(t, err)
	second, err := cached.Embed(ctx, "hello world")
	require.NoError(t, err)

	assert.Equal(t, 1, inner.embedCalls)
	assert.Equal(t, first.Vector, second.Vector)
}

func TestCachedEmbedderMissesOnDifferentText(t *testing.T) {
	inner := &countingEmbedder{MockEmbedder: NewMock(16)}
	backend, err := NewLRUCache(10)
	require.NoError(t, err)
	cached := NewCachedEmbedder(inner, backend)

	ctx := context.Background()
	_, err = cached.Embed(ctx, "alpha")
	require.NoError(t, err)
	_, err = cached.Embed(ctx, "beta")
	require.NoError(t, err)

	assert.Equal(t, 2, inner.embedCalls)
}

func TestCachedEmbedderBatchOnlyEmbedsMisses(t *testing.T) {
	inner := &countingEmbedder{MockEmbedder: NewMock(16)}
	backend, err := NewLRUCache(10)
	require.NoError(t, err)
	cached := NewCachedEmbedder(inner, backend)

	ctx := context.Background()
	_, err = cached.Embed(ctx, "warm")
	require.NoError(t, err)

	results, err := cached.EmbedBatch(ctx, []string{"warm", "cold"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "warm", results[0].Text)
	assert.Equal(t, "cold", results[1].Text)
	// one Embed call for "warm" plus one EmbedBatch call for the remaining miss
	assert.Equal(t, 1, inner.embedCalls)
	assert.Equal(t, 1, inner.embedBatchCalls)
}

func TestCachedEmbedderDelegatesMetadata(t *testing.T) {
	inner := NewMock(32)
	backend, err := NewLRUCache(10)
	require.NoError(t, err)
	cached := NewCachedEmbedder(inner, backend)

	assert.Equal(t, inner.Dimensions(), cached.Dimensions())
	assert.Equal(t, inner.Model(), cached.Model())
}

func TestNewCachedEmbedderFromConfigDefaultsToLRU(t *testing.T) {
	cached, err := NewCachedEmbedderFromConfig(NewMock(8), config.CacheConfig{MaxEntries: 100})
	require.NoError(t, err)
	require.NotNil(t, cached)

	_, ok := cached.cache.(*LRUCache)
	assert.True(t, ok)
}

func TestNewCachedEmbedderFromConfigRedisRequiresAddr(t *testing.T) {
	_, err := NewCachedEmbedderFromConfig(NewMock(8), config.CacheConfig{Backend: "redis"})
	assert.Error(t, err)
}

func TestNewCachedEmbedderFromConfigRedisBackend(t *testing.T) {
	cached, err := NewCachedEmbedderFromConfig(NewMock(8), config.CacheConfig{
		Backend:   "redis",
		RedisAddr: "127.0.0.1:6379",
	})
	require.NoError(t, err)
	require.NotNil(t, cached)

	_, ok := cached.cache.(*RedisCache)
	assert.True(t, ok)
}

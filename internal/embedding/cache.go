package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"

	"github.com/noteflux/noteflux/internal/config"
)

// CacheBackend stores and retrieves embeddings by content hash. Both
// backends are keyed on a SHA-256 hash of (model, text) so the same text
// embedded by different models never collides.
type CacheBackend interface {
	Get(ctx context.Context, key string) (Vector, bool, error)
	Set(ctx context.Context, key string, vec Vector) error
}

// contentKey hashes the model and text into a stable cache key.
func contentKey(model, text string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// LRUCache is the default in-process cache backend: content-hash keyed,
// bounded at a fixed entry count with LRU eviction.
type LRUCache struct {
	entries *lru.Cache[string, Vector]
}

// NewLRUCache creates an in-process cache bounded at maxEntries (spec
// default: 10,000). A non-positive value falls back to the default.
func NewLRUCache(maxEntries int) (*LRUCache, error) {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	c, err := lru.New[string, Vector](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("create embedding LRU cache: %w", err)
	}
	return &LRUCache{entries: c}, nil
}

func (c *LRUCache) Get(ctx context.Context, key string) (Vector, bool, error) {
	v, ok := c.entries.Get(key)
	return v, ok, nil
}

func (c *LRUCache) Set(ctx context.Context, key string, vec Vector) error {
	c.entries.Add(key, vec)
	return nil
}

// RedisCache is the alternate, config-selectable backend for deployments
// that must share an embedding cache across multiple instances.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisCache creates a cache backend against a Redis instance at addr.
// ttl of zero means entries never expire.
func NewRedisCache(addr, password string, db int, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		ttl:    ttl,
		prefix: "noteflux:embedding:",
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) (Vector, bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis embedding cache get: %w", err)
	}
	var vec Vector
	if err := json.Unmarshal(raw, &vec); err != nil {
		return nil, false, fmt.Errorf("decode cached embedding: %w", err)
	}
	return vec, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, vec Vector) error {
	raw, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("encode embedding for cache: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis embedding cache set: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// CachedEmbedder wraps an Embedder with a CacheBackend, avoiding a
// round-trip to the embedding backend for text it has already embedded. A
// cache miss or backend error degrades to calling the wrapped Embedder
// directly rather than failing the request.
type CachedEmbedder struct {
	next  Embedder
	cache CacheBackend
}

// NewCachedEmbedder wraps next with cache.
func NewCachedEmbedder(next Embedder, cache CacheBackend) *CachedEmbedder {
	return &CachedEmbedder{next: next, cache: cache}
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) (*Embedding, error) {
	key := contentKey(c.next.Model(), text)
	if vec, ok, err := c.cache.Get(ctx, key); err == nil && ok {
		return &Embedding{Text: text, Vector: vec, Model: c.next.Model()}, nil
	}

	emb, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	_ = c.cache.Set(ctx, key, emb.Vector)
	return emb, nil
}

func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]*Embedding, error) {
	results := make([]*Embedding, len(texts))
	var misses []string
	var missIdx []int

	for i, text := range texts {
		key := contentKey(c.next.Model(), text)
		if vec, ok, err := c.cache.Get(ctx, key); err == nil && ok {
			results[i] = &Embedding{Text: text, Vector: vec, Model: c.next.Model()}
			continue
		}
		misses = append(misses, text)
		missIdx = append(missIdx, i)
	}

	if len(misses) == 0 {
		return results, nil
	}

	embedded, err := c.next.EmbedBatch(ctx, misses)
	if err != nil {
		return nil, err
	}
	for j, emb := range embedded {
		results[missIdx[j]] = emb
		_ = c.cache.Set(ctx, contentKey(c.next.Model(), misses[j]), emb.Vector)
	}
	return results, nil
}

func (c *CachedEmbedder) Dimensions() int { return c.next.Dimensions() }
func (c *CachedEmbedder) Model() string   { return c.next.Model() }

// NewCachedEmbedderFromConfig wraps next with the backend selected by cfg.
// An unrecognized or empty Backend falls back to the in-process LRU cache.
func NewCachedEmbedderFromConfig(next Embedder, cfg config.CacheConfig) (*CachedEmbedder, error) {
	switch cfg.Backend {
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("embedding cache: redis backend requires redis_addr")
		}
		return NewCachedEmbedder(next, NewRedisCache(cfg.RedisAddr, "", 0, 24*time.Hour)), nil
	default:
		backend, err := NewLRUCache(cfg.MaxEntries)
		if err != nil {
			return nil, err
		}
		return NewCachedEmbedder(next, backend), nil
	}
}

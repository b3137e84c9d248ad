package embedding

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/noteflux/noteflux/internal/observability"
)

// defaultCacheSize is the reference bound from the embedding cache invariant:
// content-hash keyed, LRU-evicted once it grows past this many entries.
const defaultCacheSize = 10_000

// OllamaEmbedder calls an Ollama-style embedding backend (POST /api/embed) and
// caches results by content hash so repeated chunks never re-hit the network.
type OllamaEmbedder struct {
	baseURL    string
	model      string
	dimensions int
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *lru.Cache[string, Vector]
	tracer     *observability.TracerProvider
}

// OllamaEmbedderOption configures an OllamaEmbedder at construction time.
type OllamaEmbedderOption func(*OllamaEmbedder)

// WithCacheSize overrides the default 10,000-entry LRU cache bound.
func WithCacheSize(n int) OllamaEmbedderOption {
	return func(e *OllamaEmbedder) {
		if n > 0 {
			cache, err := lru.New[string, Vector](n)
			if err == nil {
				e.cache = cache
			}
		}
	}
}

// WithRateLimit bounds the outbound call rate to the embedding backend.
func WithRateLimit(r rate.Limit, burst int) OllamaEmbedderOption {
	return func(e *OllamaEmbedder) {
		e.limiter = rate.NewLimiter(r, burst)
	}
}

// WithTracer attaches a tracer provider so each backend call opens its own
// span. Left unset, calls run untraced (the zero value is never dereferenced
// since callBackend checks for nil).
func WithTracer(tracer *observability.TracerProvider) OllamaEmbedderOption {
	return func(e *OllamaEmbedder) {
		e.tracer = tracer
	}
}

// SetTracer attaches a tracer after construction, for callers that build an
// embedder generically through the provider registry rather than calling
// NewOllama directly.
func (e *OllamaEmbedder) SetTracer(tracer *observability.TracerProvider) {
	e.tracer = tracer
}

// NewOllama creates an embedder backed by an Ollama-compatible HTTP service.
func NewOllama(baseURL, model string, dimensions int, timeout time.Duration, opts ...OllamaEmbedderOption) *OllamaEmbedder {
	if model == "" {
		model = "nomic-embed-text"
	}
	if dimensions <= 0 {
		dimensions = 768
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	cache, _ := lru.New[string, Vector](defaultCacheSize)

	e := &OllamaEmbedder{
		baseURL:    baseURL,
		model:      model,
		dimensions: dimensions,
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Embed generates an embedding for a single text input, consulting the cache first.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) (*Embedding, error) {
	if text == "" {
		return nil, fmt.Errorf("cannot embed empty text")
	}

	embeddings, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts, only calling the backend
// for inputs that miss the content-hash cache.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]*Embedding, error) {
	result := make([]*Embedding, len(texts))
	misses := make([]string, 0, len(texts))
	missIdx := make([]int, 0, len(texts))

	for i, text := range texts {
		key := cacheKey(text)
		if v, ok := e.cache.Get(key); ok {
			result[i] = &Embedding{Text: text, Vector: v, Model: e.Model()}
			continue
		}
		misses = append(misses, text)
		missIdx = append(missIdx, i)
	}

	if len(misses) > 0 {
		vectors, err := e.callBackend(ctx, misses)
		if err != nil {
			return nil, fmt.Errorf("ollama embed: %w", err)
		}
		if len(vectors) != len(misses) {
			return nil, fmt.Errorf("ollama embed: expected %d vectors, got %d", len(misses), len(vectors))
		}
		for j, idx := range missIdx {
			vec := vectors[j]
			e.cache.Add(cacheKey(misses[j]), vec)
			result[idx] = &Embedding{Text: misses[j], Vector: vec, Model: e.Model()}
		}
	}

	return result, nil
}

func (e *OllamaEmbedder) callBackend(ctx context.Context, texts []string) ([]Vector, error) {
	if e.tracer != nil {
		textLength := 0
		for _, t := range texts {
			textLength += len(t)
		}
		spanCtx, span := observability.InstrumentEmbedding(ctx, e.tracer.Tracer(), "ollama", textLength)
		defer span.End()
		ctx = spanCtx
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	body, err := json.Marshal(embedRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request embedding backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("embedding backend returned %d: %s", resp.StatusCode, string(data))
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	vectors := make([]Vector, len(parsed.Embeddings))
	for i, raw := range parsed.Embeddings {
		vectors[i] = Vector(raw)
	}
	return vectors, nil
}

// Dimensions returns the configured vector dimensionality.
func (e *OllamaEmbedder) Dimensions() int {
	return e.dimensions
}

// Model returns the model identifier, namespaced under the provider.
func (e *OllamaEmbedder) Model() string {
	return fmt.Sprintf("ollama/%s", e.model)
}

// CacheStats reports current embedding cache occupancy, for /metrics and logging.
func (e *OllamaEmbedder) CacheStats() (len, cap int) {
	return e.cache.Len(), defaultCacheSize
}

// OllamaProvider implements Provider for the Ollama embedder.
type OllamaProvider struct{}

// Name returns the provider identifier.
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// Create instantiates an Ollama embedder with the given configuration.
func (p *OllamaProvider) Create(config map[string]interface{}) (Embedder, error) {
	baseURL, _ := config["base_url"].(string)
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	model, _ := config["model"].(string)

	dimensions := 768
	if dim, ok := config["dimensions"].(int); ok {
		dimensions = dim
	} else if dim, ok := config["dimensions"].(float64); ok {
		dimensions = int(dim)
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive, got %d", dimensions)
	}

	timeout := 30 * time.Second
	if secs, ok := config["timeout_seconds"].(float64); ok && secs > 0 {
		timeout = time.Duration(secs) * time.Second
	}

	return NewOllama(baseURL, model, dimensions, timeout), nil
}

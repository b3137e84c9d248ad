// Package reranker scores search results for relevance using a small, fast
// LLM served over an Ollama-compatible HTTP API, and generates alternative
// query phrasings to widen recall before fusion.
package reranker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/noteflux/noteflux/internal/observability"
)

const (
	defaultModel   = "qwen2.5:0.5b"
	defaultTimeout = 10 * time.Second
	defaultTopK    = 30
	defaultConcurrency int64 = 5
)

const rerankPromptTemplate = `You are a relevance judge. Given a query and a document, determine if the document is relevant.

Query: %s

Document:
%s

Is this document relevant to the query? Answer with only YES or NO.`

const queryExpansionPromptTemplate = `Generate 2 alternative search queries for: "%s"

Rules:
- Keep the same meaning/intent
- Use different words or phrasings
- One should be more specific, one more general
- Keep each under 10 words

Output exactly 2 lines, one query per line:`

// maxDocumentChars bounds how much of a document's content is sent to the
// judge model, to stay within its context window.
const maxDocumentChars = 2000

// Client scores documents and expands queries against an Ollama-compatible
// generate API.
type Client struct {
	baseURL    string
	model      string
	timeout    time.Duration
	httpClient *http.Client
	sem        *semaphore.Weighted
	tracer     *observability.TracerProvider
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithConcurrency overrides the default 5 concurrent rerank calls.
func WithConcurrency(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.sem = semaphore.NewWeighted(n)
		}
	}
}

// WithHTTPClient overrides the default HTTP client (for tests).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithTracer attaches a tracer provider so each rerank pass opens its own
// span. Left unset, passes run untraced.
func WithTracer(tracer *observability.TracerProvider) Option {
	return func(c *Client) { c.tracer = tracer }
}

// New creates a reranker Client. model defaults to a small, fast Ollama
// model; baseURL defaults to the local Ollama daemon.
func New(baseURL, model string, timeout time.Duration, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = defaultModel
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		baseURL:    baseURL,
		model:      model,
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
		sem:        semaphore.NewWeighted(defaultConcurrency),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type generateRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options"`
}

type generateResponse struct {
	Response string `json:"response"`
}

func (c *Client) generate(ctx context.Context, prompt string, temperature float64, numPredict int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		Options: map[string]interface{}{
			"temperature": temperature,
			"num_predict": numPredict,
		},
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request reranker backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("reranker backend returned %d: %s", resp.StatusCode, string(data))
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return strings.TrimSpace(parsed.Response), nil
}

// ScoreDocument asks the model whether document is relevant to query,
// returning 1.0 for yes, 0.0 for no, and 0.5 for an ambiguous answer.
func (c *Client) ScoreDocument(ctx context.Context, query, document string) (float64, error) {
	docText := document
	if len(docText) > maxDocumentChars {
		docText = docText[:maxDocumentChars]
	}

	prompt := fmt.Sprintf(rerankPromptTemplate, query, docText)
	response, err := c.generate(ctx, prompt, 0.0, 10)
	if err != nil {
		return 0, err
	}

	upper := strings.ToUpper(strings.TrimSpace(response))
	switch {
	case strings.HasPrefix(upper, "YES"):
		return 1.0, nil
	case strings.HasPrefix(upper, "NO"):
		return 0.0, nil
	default:
		return 0.5, nil
	}
}

// RerankDocument is the minimal shape Rerank needs from a search result: an
// ID to key the output map by, and the text to judge.
type RerankDocument struct {
	ID      string
	Content string
}

// Rerank scores up to topK documents concurrently (bounded by the client's
// configured concurrency) and returns a map of ID to relevance score.
// Documents that error are simply omitted, matching the upstream
// best-effort reranking contract — one bad judge call never fails the pass.
func (c *Client) Rerank(ctx context.Context, query string, documents []RerankDocument, topK int) map[string]float64 {
	if topK <= 0 {
		topK = defaultTopK
	}
	if len(documents) > topK {
		documents = documents[:topK]
	}

	if c.tracer != nil {
		spanCtx, span := observability.InstrumentRerank(ctx, c.tracer.Tracer(), len(documents))
		defer span.End()
		ctx = spanCtx
	}

	type result struct {
		id    string
		score float64
		ok    bool
	}

	results := make(chan result, len(documents))
	for _, doc := range documents {
		doc := doc
		if err := c.sem.Acquire(ctx, 1); err != nil {
			results <- result{}
			continue
		}
		go func() {
			defer c.sem.Release(1)
			if doc.Content == "" {
				results <- result{id: doc.ID, score: 0, ok: false}
				return
			}
			score, err := c.ScoreDocument(ctx, query, doc.Content)
			if err != nil {
				results <- result{id: doc.ID, score: 0, ok: false}
				return
			}
			results <- result{id: doc.ID, score: score, ok: true}
		}()
	}

	scores := make(map[string]float64, len(documents))
	for range documents {
		r := <-results
		if r.ok {
			scores[r.id] = r.score
		}
	}
	return scores
}

// ExpandQuery generates up to two alternative phrasings of query, returning
// [query, alt1, alt2] — fewer if the model's output doesn't parse cleanly,
// and just [query] on any backend error.
func (c *Client) ExpandQuery(ctx context.Context, query string) []string {
	prompt := fmt.Sprintf(queryExpansionPromptTemplate, query)
	response, err := c.generate(ctx, prompt, 0.7, 50)
	if err != nil {
		return []string{query}
	}

	alternatives := make([]string, 0, 2)
	prefixes := []string{"1.", "2.", "1:", "2:", "1)", "2)", "-", "•"}

	lines := strings.Split(response, "\n")
	count := 0
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if count >= 2 {
			break
		}
		count++

		for _, prefix := range prefixes {
			if strings.HasPrefix(line, prefix) {
				line = strings.TrimSpace(line[len(prefix):])
			}
		}
		if line != "" && line != query {
			alternatives = append(alternatives, line)
		}
	}

	return append([]string{query}, alternatives...)
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// CheckModel reports whether the configured reranker model is available on
// the backend, matching on name ignoring any ":tag" suffix.
func (c *Client) CheckModel(ctx context.Context) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("request reranker backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return false, fmt.Errorf("reranker backend returned %d: %s", resp.StatusCode, string(data))
	}

	var parsed tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}

	target := strings.SplitN(c.model, ":", 2)[0]
	for _, m := range parsed.Models {
		if strings.SplitN(m.Name, ":", 2)[0] == target {
			return true, nil
		}
	}
	return false, nil
}

package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noteflux/noteflux/internal/embedding"
	"github.com/noteflux/noteflux/internal/indexer"
	"github.com/noteflux/noteflux/internal/observability"
	"github.com/noteflux/noteflux/internal/search"
	"github.com/noteflux/noteflux/internal/vectorstore"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	vs := vectorstore.NewMemoryStore()
	fts := vectorstore.NewMemoryFTSStore()
	embedder := embedding.NewMock(32)

	ctx := context.Background()
	emb, err := embedder.Embed(ctx, "roadmap planning notes")
	require.NoError(t, err)
	require.NoError(t, vs.Upsert(ctx, vectorstore.Document{
		ID:      "note_0",
		Content: "roadmap planning notes",
		Vector:  emb.Vector,
		Metadata: map[string]interface{}{
			"file_path": "note.md", "vault": "work", "category": "planning",
			"title": "Roadmap", "date": "2026-01-01",
		},
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}))
	require.NoError(t, fts.UpsertDocument(ctx, "note.md", "work", "planning", "Roadmap", "2026-01-01", "roadmap planning notes"))

	searcher := search.New(vs, fts, embedder, nil, nil, 10, nil)
	idx := indexer.NewIndexer(indexer.NewFileWalker(), indexer.NewDocumentParser(), indexer.NewMarkdownChunker(500, 50))
	logger := observability.NewLogger(observability.LoggerConfig{Level: "error", Format: "text"})
	errorHandler := observability.NewErrorHandler(logger, nil, false)

	return NewHandler(searcher, idx, logger, errorHandler)
}

func TestHandleSearch_ReturnsResults(t *testing.T) {
	h := newTestHandler(t)
	mux := http.NewServeMux()
	h.Routes(mux)

	req := httptest.NewRequest(http.MethodGet, "/search?q=roadmap", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Roadmap")
}

func TestHandleSearch_RequiresQuery(t *testing.T) {
	h := newTestHandler(t)
	mux := http.NewServeMux()
	h.Routes(mux)

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleAsk_RejectsNonPost(t *testing.T) {
	h := newTestHandler(t)
	mux := http.NewServeMux()
	h.Routes(mux)

	req := httptest.NewRequest(http.MethodGet, "/ask", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleIndexStatus_ReturnsCurrentStatus(t *testing.T) {
	h := newTestHandler(t)
	mux := http.NewServeMux()
	h.Routes(mux)

	req := httptest.NewRequest(http.MethodGet, "/index/status", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Running":false`)
}

func TestHandlePersonContext_RequiresPerson(t *testing.T) {
	h := newTestHandler(t)
	mux := http.NewServeMux()
	h.Routes(mux)

	req := httptest.NewRequest(http.MethodGet, "/person/context", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlePersonContext_ReturnsSummary(t *testing.T) {
	h := newTestHandler(t)
	mux := http.NewServeMux()
	h.Routes(mux)

	req := httptest.NewRequest(http.MethodGet, "/person/context?person=Alex", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Person":"Alex"`)
}

func TestHandleActionItems_ReturnsEmptyListWhenNoneFound(t *testing.T) {
	h := newTestHandler(t)
	mux := http.NewServeMux()
	h.Routes(mux)

	req := httptest.NewRequest(http.MethodGet, "/person/action-items?person=Alex", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

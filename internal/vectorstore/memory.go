// Package vectorstore provides storage abstractions for embedded chunks and
// whole-document full-text search, with hybrid search composed on top.
package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/noteflux/noteflux/internal/embedding"
)

// MemoryStore is an in-memory VectorStore, used in tests and as a reference
// implementation of the store contract.
type MemoryStore struct {
	mu        sync.RWMutex
	documents map[string]Document
	index     []string
}

// NewMemoryStore creates a new in-memory vector store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		documents: make(map[string]Document),
		index:     make([]string, 0),
	}
}

// Upsert inserts or updates a document with its vector.
func (m *MemoryStore) Upsert(ctx context.Context, doc Document) error {
	if doc.ID == "" {
		return fmt.Errorf("document ID cannot be empty")
	}
	if len(doc.Vector) == 0 {
		return fmt.Errorf("document vector cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, exists := m.documents[doc.ID]; exists {
		doc.CreatedAt = existing.CreatedAt
		doc.UpdatedAt = time.Now()
	} else {
		now := time.Now()
		if doc.CreatedAt.IsZero() {
			doc.CreatedAt = now
		}
		if doc.UpdatedAt.IsZero() {
			doc.UpdatedAt = now
		}
		m.index = append(m.index, doc.ID)
	}

	m.documents[doc.ID] = doc
	return nil
}

// UpsertBatch efficiently inserts or updates multiple documents.
func (m *MemoryStore) UpsertBatch(ctx context.Context, docs []Document) error {
	for _, doc := range docs {
		if err := m.Upsert(ctx, doc); err != nil {
			return fmt.Errorf("upsert document %s: %w", doc.ID, err)
		}
	}
	return nil
}

// Delete removes a document by ID.
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.documents[id]; !exists {
		return nil
	}

	delete(m.documents, id)
	for i, docID := range m.index {
		if docID == id {
			m.index = append(m.index[:i], m.index[i+1:]...)
			break
		}
	}
	return nil
}

// DeleteByFileHash removes every chunk stored under a given file hash.
func (m *MemoryStore) DeleteByFileHash(ctx context.Context, fileHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var remaining []string
	for _, id := range m.index {
		doc := m.documents[id]
		if h, _ := doc.Metadata["file_hash"].(string); h == fileHash {
			delete(m.documents, id)
			continue
		}
		remaining = append(remaining, id)
	}
	m.index = remaining
	return nil
}

// DeleteByFilePath removes every chunk stored under a given file path,
// regardless of the hash they were indexed under.
func (m *MemoryStore) DeleteByFilePath(ctx context.Context, filePath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var remaining []string
	for _, id := range m.index {
		doc := m.documents[id]
		if p, _ := doc.Metadata["file_path"].(string); p == filePath {
			delete(m.documents, id)
			continue
		}
		remaining = append(remaining, id)
	}
	m.index = remaining
	return nil
}

// Get retrieves a document by ID.
func (m *MemoryStore) Get(ctx context.Context, id string) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, exists := m.documents[id]
	if !exists {
		return nil, fmt.Errorf("document %s not found", id)
	}
	return &doc, nil
}

// SearchVector performs dense similarity search, returning squared Euclidean
// distance as Score (lower is more similar) — converted to a [0,1] score by
// the caller via 1/(1+d), matching the production SQLite adapter.
func (m *MemoryStore) SearchVector(ctx context.Context, vector embedding.Vector, opts SearchOptions) ([]SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []SearchResult
	for _, docID := range m.index {
		doc := m.documents[docID]
		if !matchesFilters(doc, opts.Filters) {
			continue
		}

		dist := squaredL2(vector, doc.Vector)
		results = append(results, SearchResult{
			Document: doc,
			Score:    dist,
			Method:   "vector",
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score < results[j].Score
	})

	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}

// ListIndexedFiles returns file_path -> file_hash for every distinct file.
func (m *MemoryStore) ListIndexedFiles(ctx context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := map[string]string{}
	for _, doc := range m.documents {
		path, _ := doc.Metadata["file_path"].(string)
		hash, _ := doc.Metadata["file_hash"].(string)
		if path != "" {
			out[path] = hash
		}
	}
	return out, nil
}

// Count returns the total number of documents.
func (m *MemoryStore) Count(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.documents)), nil
}

// Close releases resources (no-op for memory store).
func (m *MemoryStore) Close() error {
	return nil
}

// Stats returns index statistics.
func (m *MemoryStore) Stats(ctx context.Context) (*IndexStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &IndexStats{
		TotalDocuments: int64(len(m.documents)),
		TotalChunks:    int64(len(m.documents)),
		Vaults:         make(map[string]int64),
	}

	var lastIndexed time.Time
	for _, doc := range m.documents {
		if vault, ok := doc.Metadata["vault"].(string); ok {
			stats.Vaults[vault]++
		}
		if doc.UpdatedAt.After(lastIndexed) {
			lastIndexed = doc.UpdatedAt
		}
	}
	stats.LastIndexedAt = lastIndexed
	return stats, nil
}

// squaredL2 computes squared Euclidean distance between two vectors.
func squaredL2(a, b embedding.Vector) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// matchesFilters checks if a document matches all metadata filters.
func matchesFilters(doc Document, filters map[string]interface{}) bool {
	if len(filters) == 0 {
		return true
	}
	for key, expectedValue := range filters {
		actualValue, exists := doc.Metadata[key]
		if !exists || actualValue != expectedValue {
			return false
		}
	}
	return true
}

type memoryNote struct {
	vault, category, title, date, content string
}

// MemoryFTSStore is an in-memory FullTextStore used in tests in place of the
// SQLite FTS5 adapter. It matches the same OR-disjunction-of-terms semantics,
// scored by raw term-occurrence count rather than true BM25.
type MemoryFTSStore struct {
	mu    sync.RWMutex
	notes map[string]memoryNote // file_path -> note
}

// NewMemoryFTSStore creates an in-memory full-text store.
func NewMemoryFTSStore() *MemoryFTSStore {
	return &MemoryFTSStore{notes: make(map[string]memoryNote)}
}

// UpsertDocument indexes (or reindexes) the full text of a file.
func (m *MemoryFTSStore) UpsertDocument(ctx context.Context, filePath, vault, category, title, date, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes[filePath] = memoryNote{vault: vault, category: category, title: title, date: date, content: content}
	return nil
}

// DeleteDocument removes a file's full-text entry.
func (m *MemoryFTSStore) DeleteDocument(ctx context.Context, filePath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.notes, filePath)
	return nil
}

// SearchBM25 matches any query term, stopwords included, as a substring of
// note content, scoring by a normalized occurrence count.
func (m *MemoryFTSStore) SearchBM25(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil, nil
	}

	var results []SearchResult
	for path, note := range m.notes {
		lowerContent := strings.ToLower(note.content)
		var hits int
		for _, term := range terms {
			hits += strings.Count(lowerContent, term)
		}
		if hits == 0 {
			continue
		}

		doc := Document{
			ID:      path,
			Content: note.content,
			Metadata: map[string]interface{}{
				"file_path": path,
				"vault":     note.vault,
				"category":  note.category,
				"title":     note.title,
				"date":      note.date,
			},
		}
		if !matchesFilters(doc, opts.Filters) {
			continue
		}

		score := float32(hits) / float32(hits+1) // bounded (0,1), monotonic in hits
		results = append(results, SearchResult{Document: doc, Score: score, Method: "bm25"})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}

// Close releases resources (no-op for the in-memory store).
func (m *MemoryFTSStore) Close() error {
	return nil
}

// Package vectorstore provides storage abstractions for embedded chunks and
// whole-document full-text search, with hybrid search composed on top.
package vectorstore

import (
	"context"
	"time"

	"github.com/noteflux/noteflux/internal/embedding"
)

// Document represents a stored chunk with its vector embedding and the note
// metadata it was chunked from.
type Document struct {
	ID        string                 // file_hash + "_" + chunk_index
	Content   string                 // chunk text
	Vector    embedding.Vector       // dense embedding vector
	Metadata  map[string]interface{} // file_path, vault, category, title, date, people, projects, file_hash, chunk_index
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SearchResult represents a single search result with relevance score.
type SearchResult struct {
	Document Document
	Score    float32 // squared L2 distance for vector search (lower is closer), normalized BM25 rank for FTS
	Method   string  // "bm25", "vector", "hybrid"
}

// SearchOptions configures search behavior.
type SearchOptions struct {
	Limit     int
	Threshold float32
	Filters   map[string]interface{} // e.g. vault="work", category="meetings", people contains X
}

// VectorStore stores chunk-level embeddings and serves similarity search.
type VectorStore interface {
	// Upsert inserts or updates a document with its vector.
	Upsert(ctx context.Context, doc Document) error

	// UpsertBatch efficiently inserts or updates multiple documents.
	UpsertBatch(ctx context.Context, docs []Document) error

	// Delete removes a document by ID.
	Delete(ctx context.Context, id string) error

	// DeleteByFileHash removes every chunk stored under a given file hash,
	// used to clear superseded chunks before writing a re-indexed file's.
	DeleteByFileHash(ctx context.Context, fileHash string) error

	// DeleteByFilePath removes every chunk stored under a given file path,
	// regardless of the hash they were indexed under. A re-index must call
	// this before writing a file's new chunks: the file's content (and so
	// its hash) may have changed since it was last indexed, so deleting by
	// the newly computed hash would never match the stale rows.
	DeleteByFilePath(ctx context.Context, filePath string) error

	// Get retrieves a document by ID.
	Get(ctx context.Context, id string) (*Document, error)

	// SearchVector performs dense similarity search. Distance is converted
	// to a [0,1] score via 1/(1+d) by the caller (see internal/search).
	SearchVector(ctx context.Context, vector embedding.Vector, opts SearchOptions) ([]SearchResult, error)

	// ListIndexedFiles returns file_path -> file_hash for every distinct file
	// currently stored, used by incremental indexing to detect changes.
	ListIndexedFiles(ctx context.Context) (map[string]string, error)

	// Count returns the total number of chunks stored.
	Count(ctx context.Context) (int64, error)

	// Close releases resources.
	Close() error
}

// FullTextStore indexes whole documents (one row per file_path) for BM25
// keyword search, independent of chunk-level vector storage.
type FullTextStore interface {
	// UpsertDocument indexes (or reindexes) the full text of a file.
	UpsertDocument(ctx context.Context, filePath, vault, category, title, date, content string) error

	// DeleteDocument removes a file's full-text entry.
	DeleteDocument(ctx context.Context, filePath string) error

	// SearchBM25 runs a disjunctive (OR) match across non-stopword query
	// terms and returns whole-document hits ranked by BM25.
	SearchBM25(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error)

	// Close releases resources.
	Close() error
}

// IndexStats provides statistics about the vector store.
type IndexStats struct {
	TotalDocuments int64
	TotalChunks    int64
	Vaults         map[string]int64
	LastIndexedAt  time.Time
	IndexSize      int64
}

// StatsProvider provides statistics about stored data.
type StatsProvider interface {
	Stats(ctx context.Context) (*IndexStats, error)
}

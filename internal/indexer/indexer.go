// Package indexer walks a vault of markdown notes, extracts metadata, chunks
// each document, embeds the chunks and writes them to the vector and full-text
// stores. It supports full and incremental passes with cooperative cancellation.
package indexer

import (
	"context"
	"time"

	"github.com/noteflux/noteflux/internal/embedding"
	"github.com/noteflux/noteflux/internal/enrichment"
	"github.com/noteflux/noteflux/internal/vectorstore"
)

// Document is a single markdown note after parsing, before chunking.
type Document struct {
	FilePath string            // absolute path on disk
	Vault    string            // "work" or "personal"
	Category string            // first path segment relative to the vault root
	Title    string            // frontmatter title, or the file stem
	Date     string            // frontmatter date or a YYYY-MM-DD parsed from the filename
	People   []string          // frontmatter people list/comma-string
	Projects []string          // frontmatter projects list/comma-string
	Content  string            // body with frontmatter stripped
	Hash     string            // sha256 of raw file bytes
	Meta     map[string]string // raw frontmatter scalars not otherwise modeled
}

// Chunk is a unit of indexed content with metadata, produced by the Chunker
// from a Document and written to both stores.
type Chunk struct {
	ID         string // file_hash + "_" + chunk_index
	FilePath   string
	Vault      string
	Category   string
	Title      string
	Date       string
	People     []string
	Projects   []string
	Content    string
	ChunkIndex int
	FileHash   string
	IndexedAt  time.Time
}

// IndexOptions configures a single indexing pass.
type IndexOptions struct {
	VaultPaths      map[string]string // vault name -> root path ("work", "personal")
	ExcludedFolders []string
	ChunkSize       int // chars-per-token-equivalent multiplier applied as chunkSize*4
	ChunkOverlap    int
	Embedder        embedding.Embedder
	VectorStore     vectorstore.VectorStore
	FTSStore        vectorstore.FullTextStore
	Enricher        *enrichment.Pipeline // optional; nil skips metadata enrichment
}

// IndexStatus reports progress of a running or completed indexing pass.
type IndexStatus struct {
	Running        bool
	Cancelling     bool
	Vault          string
	FilesProcessed int
	TotalFiles     int
	ChunksIndexed  int
	StartTime      time.Time
	LastError      string
	Cancelled      bool
}

// Indexer walks a vault and produces indexed chunks, embedding and storing them.
type Indexer interface {
	// IndexFile parses, chunks, embeds and stores a single file. It replaces
	// any chunks previously stored for the same file hash or path.
	IndexFile(ctx context.Context, opts IndexOptions, vault, path string) (int, error)

	// FullReindex clears and rebuilds the index for a single vault.
	FullReindex(ctx context.Context, opts IndexOptions, vault string) (IndexStatus, error)

	// IncrementalIndex indexes only files whose content hash changed since the
	// last pass, and is silent (a no-op) about files that are unchanged.
	IncrementalIndex(ctx context.Context, opts IndexOptions, vault string) (IndexStatus, error)

	// RequestCancel asks a running pass to stop at its next yield point.
	// The pass returns whatever it completed; it does not roll back.
	RequestCancel()

	// Status returns the most recently observed status.
	Status() IndexStatus
}

// Chunker splits a parsed Document's body into Chunks.
type Chunker interface {
	Chunk(doc Document) []Chunk
}

// Walker enumerates markdown files under a vault root.
type Walker interface {
	Walk(ctx context.Context, root string, excludedFolders []string, fn func(path string) error) error
}

// Parser turns raw file bytes into a Document.
type Parser interface {
	Parse(raw []byte, filePath, vault, vaultRoot string) Document
}

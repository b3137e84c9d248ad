package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/noteflux/noteflux/internal/apperr"
	"github.com/noteflux/noteflux/internal/embedding"
	"github.com/noteflux/noteflux/internal/security"
	"github.com/noteflux/noteflux/internal/vectorstore"
)

// yieldEvery is how many files a pass processes between cooperative
// cancellation checks, so a requested cancel doesn't wait out a whole vault.
const yieldEvery = 10

// DefaultIndexer implements Indexer using a Walker, Parser and Chunker.
type DefaultIndexer struct {
	walker  Walker
	parser  Parser
	chunker Chunker

	mu         sync.Mutex
	status     IndexStatus
	cancelFlag atomic.Bool
}

// NewIndexer creates an indexer from its three collaborators.
func NewIndexer(walker Walker, parser Parser, chunker Chunker) *DefaultIndexer {
	return &DefaultIndexer{walker: walker, parser: parser, chunker: chunker}
}

// RequestCancel asks the running pass to stop at its next yield point. Each
// pass clears the request when it starts, so a request made while no pass is
// running does not stop the next one.
func (idx *DefaultIndexer) RequestCancel() {
	idx.cancelFlag.Store(true)
	idx.mu.Lock()
	idx.status.Cancelling = true
	idx.mu.Unlock()
}

// Status returns the most recently observed status.
func (idx *DefaultIndexer) Status() IndexStatus {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.status
}

func (idx *DefaultIndexer) setStatus(mutate func(*IndexStatus)) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	mutate(&idx.status)
}

// IndexFile parses, chunks, embeds and stores a single file. It replaces any
// chunks previously stored for the same file hash or path.
func (idx *DefaultIndexer) IndexFile(ctx context.Context, opts IndexOptions, vault, path string) (int, error) {
	root, ok := opts.VaultPaths[vault]
	if !ok {
		return 0, fmt.Errorf("unknown vault %q", vault)
	}

	raw, err := readValidated(path, root)
	if err != nil {
		return 0, err
	}

	doc := idx.parser.Parse(raw, path, vault, root)
	chunks := idx.chunker.Chunk(doc)

	if len(chunks) == 0 {
		return 0, nil
	}

	// Replace semantics: clear whatever this file previously contributed
	// before writing its current chunks/full text. Delete by file path, not
	// by the just-computed hash — a modified file's new hash never matches
	// the hash its stale rows were stored under, so deleting by the new
	// hash would leave them orphaned alongside the freshly written chunks.
	if err := opts.VectorStore.DeleteByFilePath(ctx, doc.FilePath); err != nil {
		return 0, fmt.Errorf("clear stale chunks for %s: %w", path, apperr.NewStoreError("delete", err))
	}
	if err := opts.FTSStore.UpsertDocument(ctx, doc.FilePath, doc.Vault, doc.Category, doc.Title, doc.Date, doc.Content); err != nil {
		return 0, fmt.Errorf("upsert full-text document %s: %w", path, apperr.NewStoreError("upsert", err))
	}

	// Enrichment runs once per document, not per chunk: a GitHub issue/PR
	// reference or story ticket ID applies to the whole note, and a failure
	// here (TransientBackend) does not abort the file: the chunks carry
	// whatever metadata the pipeline returned alongside the error.
	var enrichMeta map[string]interface{}
	if opts.Enricher != nil {
		var err error
		enrichMeta, err = opts.Enricher.Enrich(ctx, doc.Content)
		if err != nil && !apperr.IsTransientBackend(err) {
			return 0, fmt.Errorf("enrich %s: %w", path, err)
		}
	}

	docs := make([]vectorstore.Document, 0, len(chunks))
	for _, chunk := range chunks {
		if idx.cancelFlag.Load() {
			return 0, context.Canceled
		}
		emb, err := opts.Embedder.Embed(ctx, chunk.Content)
		if err != nil {
			return 0, fmt.Errorf("embed chunk %s: %w", chunk.ID, apperr.NewTransientBackend("embedding", err))
		}
		docs = append(docs, chunkToDocument(chunk, emb.Vector, enrichMeta))
	}

	// All-or-nothing: a file's chunks land together or not at all.
	if err := opts.VectorStore.UpsertBatch(ctx, docs); err != nil {
		return 0, fmt.Errorf("upsert chunks for %s: %w", path, apperr.NewStoreError("upsert", err))
	}
	return len(docs), nil
}

// FullReindex walks the entire vault and reindexes every markdown file.
func (idx *DefaultIndexer) FullReindex(ctx context.Context, opts IndexOptions, vault string) (IndexStatus, error) {
	root, ok := opts.VaultPaths[vault]
	if !ok {
		return IndexStatus{}, fmt.Errorf("unknown vault %q", vault)
	}

	idx.cancelFlag.Store(false)
	idx.setStatus(func(s *IndexStatus) {
		*s = IndexStatus{Running: true, Vault: vault, StartTime: time.Now()}
	})

	var filesProcessed, chunksIndexed int
	walkErr := idx.walker.Walk(ctx, root, opts.ExcludedFolders, func(path string) error {
		if filesProcessed%yieldEvery == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if idx.cancelFlag.Load() {
				return context.Canceled
			}
		}

		n, err := idx.IndexFile(ctx, opts, vault, path)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			idx.setStatus(func(s *IndexStatus) { s.LastError = err.Error() })
			return nil // one bad file doesn't abort the whole pass
		}

		filesProcessed++
		chunksIndexed += n
		idx.setStatus(func(s *IndexStatus) {
			s.FilesProcessed = filesProcessed
			s.ChunksIndexed = chunksIndexed
		})
		return nil
	})

	cancelled := errors.Is(walkErr, context.Canceled)
	if walkErr != nil && !cancelled {
		idx.setStatus(func(s *IndexStatus) { s.Running = false; s.LastError = walkErr.Error() })
		return idx.Status(), fmt.Errorf("walk vault %s: %w", vault, walkErr)
	}

	idx.setStatus(func(s *IndexStatus) {
		s.Running = false
		s.Cancelling = false
		s.Cancelled = cancelled
	})
	return idx.Status(), nil
}

// IncrementalIndex indexes only files whose content hash changed since the
// last pass (or that are new), and removes entries for files that vanished.
func (idx *DefaultIndexer) IncrementalIndex(ctx context.Context, opts IndexOptions, vault string) (IndexStatus, error) {
	root, ok := opts.VaultPaths[vault]
	if !ok {
		return IndexStatus{}, fmt.Errorf("unknown vault %q", vault)
	}

	idx.cancelFlag.Store(false)
	idx.setStatus(func(s *IndexStatus) {
		*s = IndexStatus{Running: true, Vault: vault, StartTime: time.Now()}
	})

	indexed, err := opts.VectorStore.ListIndexedFiles(ctx)
	if err != nil {
		idx.setStatus(func(s *IndexStatus) { s.Running = false; s.LastError = err.Error() })
		return idx.Status(), fmt.Errorf("list indexed files: %w", err)
	}

	seen := make(map[string]bool, len(indexed))
	var filesProcessed, chunksIndexed int

	walkErr := idx.walker.Walk(ctx, root, opts.ExcludedFolders, func(path string) error {
		seen[path] = true

		if filesProcessed%yieldEvery == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if idx.cancelFlag.Load() {
				return context.Canceled
			}
		}

		raw, err := readValidated(path, root)
		if err != nil {
			idx.setStatus(func(s *IndexStatus) { s.LastError = err.Error() })
			return nil
		}
		currentHash := idx.parser.Parse(raw, path, vault, root).Hash

		if indexed[path] == currentHash {
			return nil // unchanged: silently skip
		}

		n, err := idx.IndexFile(ctx, opts, vault, path)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			idx.setStatus(func(s *IndexStatus) { s.LastError = err.Error() })
			return nil
		}

		filesProcessed++
		chunksIndexed += n
		idx.setStatus(func(s *IndexStatus) {
			s.FilesProcessed = filesProcessed
			s.ChunksIndexed = chunksIndexed
		})
		return nil
	})

	cancelled := errors.Is(walkErr, context.Canceled)
	if walkErr != nil && !cancelled {
		idx.setStatus(func(s *IndexStatus) { s.Running = false; s.LastError = walkErr.Error() })
		return idx.Status(), fmt.Errorf("walk vault %s: %w", vault, walkErr)
	}

	if !cancelled {
		for path, hash := range indexed {
			if !seen[path] {
				if err := opts.VectorStore.DeleteByFileHash(ctx, hash); err != nil {
					idx.setStatus(func(s *IndexStatus) { s.LastError = err.Error() })
				}
				if err := opts.FTSStore.DeleteDocument(ctx, path); err != nil {
					idx.setStatus(func(s *IndexStatus) { s.LastError = err.Error() })
				}
			}
		}
	}

	idx.setStatus(func(s *IndexStatus) {
		s.Running = false
		s.Cancelling = false
		s.Cancelled = cancelled
	})
	return idx.Status(), nil
}

// readValidated opens path after confirming it stays within root, guarding
// against traversal via symlinks or crafted vault content.
func readValidated(path, root string) ([]byte, error) {
	if _, err := security.ValidatePathWithinBase(path, root); err != nil {
		if errors.Is(err, security.ErrPathTraversal) {
			return nil, fmt.Errorf("security: path traversal detected for %s: %w", path, err)
		}
		return nil, fmt.Errorf("security: invalid path %s: %w", path, err)
	}
	// #nosec G304 - path validated above with ValidatePathWithinBase
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.NewMalformedInput(path, err)
	}
	return raw, nil
}

// chunkToDocument converts an indexed Chunk and its embedding into the
// vectorstore's storage representation. This lives here, not in
// internal/vectorstore, so the dependency between the two packages stays
// one-directional. enrichMeta (from the document-level enrichment pass) is
// merged in under its own keys, identical across every chunk of the file.
func chunkToDocument(chunk Chunk, vector embedding.Vector, enrichMeta map[string]interface{}) vectorstore.Document {
	metadata := map[string]interface{}{
		"file_path":   chunk.FilePath,
		"vault":       chunk.Vault,
		"category":    chunk.Category,
		"title":       chunk.Title,
		"date":        chunk.Date,
		"people":      chunk.People,
		"projects":    chunk.Projects,
		"file_hash":   chunk.FileHash,
		"chunk_index": chunk.ChunkIndex,
	}
	for k, v := range enrichMeta {
		metadata[k] = v
	}

	return vectorstore.Document{
		ID:        chunk.ID,
		Content:   chunk.Content,
		Vector:    vector,
		Metadata:  metadata,
		CreatedAt: chunk.IndexedAt,
		UpdatedAt: chunk.IndexedAt,
	}
}

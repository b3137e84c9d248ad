// Package sqlite provides a SQLite-backed implementation of the VectorStore
// and FullTextStore interfaces, using the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver

	"github.com/noteflux/noteflux/internal/embedding"
	"github.com/noteflux/noteflux/internal/vectorstore"
)

// Store is a SQLite-backed chunk-level vector store, with an optional
// in-memory ANN accelerator kept in sync on writes.
type Store struct {
	db  *sql.DB
	ann *annIndex
}

// NewStore creates a new SQLite vector store. path may be ":memory:" or a
// file path for persistence.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// For :memory: databases, limit to 1 connection so every goroutine shares
	// the same database; otherwise the pool opens a separate in-memory DB per
	// connection and queries see "no such table".
	db.SetMaxOpenConns(1)

	store := &Store{db: db, ann: newANNIndex()}
	if err := store.initSchema(); err != nil {
		db.Close() //nolint:errcheck // best-effort cleanup, init error already captured
		return nil, fmt.Errorf("init schema: %w", err)
	}
	if err := store.rebuildANN(context.Background()); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("rebuild ann index: %w", err)
	}
	return store, nil
}

// rebuildANN repopulates the in-memory ANN index from durable chunks. Called
// once at startup; incremental writes keep it current afterward.
func (s *Store) rebuildANN(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, "SELECT id, vector FROM chunks")
	if err != nil {
		return fmt.Errorf("query chunks for ann rebuild: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var vectorJSON []byte
		if err := rows.Scan(&id, &vectorJSON); err != nil {
			return fmt.Errorf("scan chunk for ann rebuild: %w", err)
		}
		var vec embedding.Vector
		if err := json.Unmarshal(vectorJSON, &vec); err != nil {
			continue
		}
		s.ann.insert(id, vec)
	}
	return rows.Err()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		vector TEXT NOT NULL,
		metadata TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_updated_at ON chunks(updated_at);
	CREATE INDEX IF NOT EXISTS idx_chunks_file_hash ON chunks(json_extract(metadata, '$.file_hash'));
	CREATE INDEX IF NOT EXISTS idx_chunks_file_path ON chunks(json_extract(metadata, '$.file_path'));

	CREATE TABLE IF NOT EXISTS notes (
		file_path TEXT PRIMARY KEY,
		vault TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE VIRTUAL TABLE IF NOT EXISTS notes_fts USING fts5(
		file_path UNINDEXED,
		content,
		tokenize = 'porter unicode61'
	);

	CREATE TRIGGER IF NOT EXISTS notes_ai AFTER INSERT ON notes BEGIN
		INSERT INTO notes_fts(file_path, content) VALUES (new.file_path, new.content);
	END;

	CREATE TRIGGER IF NOT EXISTS notes_ad AFTER DELETE ON notes BEGIN
		DELETE FROM notes_fts WHERE file_path = old.file_path;
	END;

	CREATE TRIGGER IF NOT EXISTS notes_au AFTER UPDATE ON notes BEGIN
		DELETE FROM notes_fts WHERE file_path = old.file_path;
		INSERT INTO notes_fts(file_path, content) VALUES (new.file_path, new.content);
	END;
	`
	_, err := s.db.Exec(schema)
	return err
}

// Upsert inserts or updates a chunk with its vector.
func (s *Store) Upsert(ctx context.Context, doc vectorstore.Document) error {
	if err := s.upsert(ctx, s.db, doc); err != nil {
		return err
	}
	s.ann.insert(doc.ID, doc.Vector)
	return nil
}

// UpsertBatch efficiently inserts or updates multiple chunks in a transaction.
// All-or-nothing: if any chunk fails to marshal/write, nothing is committed.
func (s *Store) UpsertBatch(ctx context.Context, docs []vectorstore.Document) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, doc := range docs {
		if err := s.upsert(ctx, tx, doc); err != nil {
			return fmt.Errorf("upsert chunk %s: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	for _, doc := range docs {
		s.ann.insert(doc.ID, doc.Vector)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (s *Store) upsert(ctx context.Context, ex execer, doc vectorstore.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("chunk ID cannot be empty")
	}
	if len(doc.Vector) == 0 {
		return fmt.Errorf("chunk vector cannot be empty")
	}

	vectorJSON, err := json.Marshal(doc.Vector)
	if err != nil {
		return fmt.Errorf("marshal vector: %w", err)
	}

	var metadataJSON []byte
	if doc.Metadata != nil {
		metadataJSON, err = json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
	}

	now := time.Now().Unix()
	createdAt, updatedAt := now, now
	if !doc.CreatedAt.IsZero() {
		createdAt = doc.CreatedAt.Unix()
	}
	if !doc.UpdatedAt.IsZero() {
		updatedAt = doc.UpdatedAt.Unix()
	}

	_, err = ex.ExecContext(ctx,
		`INSERT INTO chunks (id, content, vector, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		 content = excluded.content,
		 vector = excluded.vector,
		 metadata = excluded.metadata,
		 updated_at = excluded.updated_at`,
		doc.ID, doc.Content, vectorJSON, metadataJSON, createdAt, updatedAt,
	)
	return err
}

// Delete removes a chunk by ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete chunk: %w", err)
	}
	s.ann.remove(id)
	return nil
}

// DeleteByFileHash removes every chunk stored under a given file hash. This
// precedes a re-index's batch insert so stale chunks from a prior chunk count
// never linger (replace semantics, per the indexer's file_hash identity).
func (s *Store) DeleteByFileHash(ctx context.Context, fileHash string) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM chunks WHERE json_extract(metadata, '$.file_hash') = ?`, fileHash)
	if err != nil {
		return fmt.Errorf("query chunks by file hash: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan chunk id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM chunks WHERE json_extract(metadata, '$.file_hash') = ?`, fileHash); err != nil {
		return fmt.Errorf("delete by file hash: %w", err)
	}
	for _, id := range ids {
		s.ann.remove(id)
	}
	return nil
}

// DeleteByFilePath removes every chunk stored under a given file path,
// regardless of the file hash they were written under — this is what the
// indexer must call before writing a re-indexed file's chunks, since a
// modified file's new hash never matches the hash its stale rows were
// stored under.
func (s *Store) DeleteByFilePath(ctx context.Context, filePath string) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM chunks WHERE json_extract(metadata, '$.file_path') = ?`, filePath)
	if err != nil {
		return fmt.Errorf("query chunks by file path: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan chunk id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM chunks WHERE json_extract(metadata, '$.file_path') = ?`, filePath); err != nil {
		return fmt.Errorf("delete by file path: %w", err)
	}
	for _, id := range ids {
		s.ann.remove(id)
	}
	return nil
}

// Get retrieves a chunk by ID.
func (s *Store) Get(ctx context.Context, id string) (*vectorstore.Document, error) {
	var doc vectorstore.Document
	var vectorJSON, metadataJSON []byte
	var createdAt, updatedAt int64

	err := s.db.QueryRowContext(ctx,
		`SELECT id, content, vector, metadata, created_at, updated_at FROM chunks WHERE id = ?`,
		id,
	).Scan(&doc.ID, &doc.Content, &vectorJSON, &metadataJSON, &createdAt, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("chunk %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("query chunk: %w", err)
	}

	if err := deserializeDocument(&doc, vectorJSON, metadataJSON, createdAt, updatedAt); err != nil {
		return nil, fmt.Errorf("deserialize chunk %s: %w", doc.ID, err)
	}
	return &doc, nil
}

// Count returns the total number of chunks.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return count, nil
}

// ListIndexedFiles returns file_path -> file_hash for every distinct file
// currently chunked, used by incremental indexing to detect changed files.
func (s *Store) ListIndexedFiles(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT
			json_extract(metadata, '$.file_path'),
			json_extract(metadata, '$.file_hash')
		FROM chunks
		WHERE metadata IS NOT NULL AND json_extract(metadata, '$.file_path') IS NOT NULL
	`)
	if err != nil {
		return nil, fmt.Errorf("query indexed files: %w", err)
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var path, hash string
		if err := rows.Scan(&path, &hash); err != nil {
			return nil, fmt.Errorf("scan indexed file: %w", err)
		}
		out[path] = hash
	}
	return out, rows.Err()
}

// GetFileChunks returns all chunks for a specific file path, in chunk-index order.
func (s *Store) GetFileChunks(ctx context.Context, filePath string) ([]vectorstore.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, vector, metadata, created_at, updated_at
		FROM chunks
		WHERE json_extract(metadata, '$.file_path') = ?
		ORDER BY json_extract(metadata, '$.chunk_index')
	`, filePath)
	if err != nil {
		return nil, fmt.Errorf("query file chunks: %w", err)
	}
	defer rows.Close()

	var docs []vectorstore.Document
	for rows.Next() {
		var doc vectorstore.Document
		var vectorJSON, metadataJSON []byte
		var createdAt, updatedAt int64

		if err := rows.Scan(&doc.ID, &doc.Content, &vectorJSON, &metadataJSON, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if err := deserializeDocument(&doc, vectorJSON, metadataJSON, createdAt, updatedAt); err != nil {
			return nil, fmt.Errorf("deserialize chunk %s: %w", doc.ID, err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Close releases database resources.
func (s *Store) Close() error {
	return s.db.Close()
}

// Stats returns index statistics.
func (s *Store) Stats(ctx context.Context) (*vectorstore.IndexStats, error) {
	stats := &vectorstore.IndexStats{Vaults: make(map[string]int64)}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&stats.TotalDocuments); err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}
	stats.TotalChunks = stats.TotalDocuments

	var lastUpdated sql.NullInt64
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(updated_at) FROM chunks").Scan(&lastUpdated); err != nil {
		return nil, fmt.Errorf("get last updated: %w", err)
	}
	if lastUpdated.Valid {
		stats.LastIndexedAt = time.Unix(lastUpdated.Int64, 0)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT metadata FROM chunks WHERE metadata IS NOT NULL")
	if err != nil {
		return nil, fmt.Errorf("query metadata: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var metadataJSON []byte
		if err := rows.Scan(&metadataJSON); err != nil {
			continue
		}
		var metadata map[string]interface{}
		if err := json.Unmarshal(metadataJSON, &metadata); err != nil {
			continue
		}
		if vault, ok := metadata["vault"].(string); ok {
			stats.Vaults[vault]++
		}
	}

	if err := s.db.QueryRowContext(ctx,
		"SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()",
	).Scan(&stats.IndexSize); err != nil {
		stats.IndexSize = 0
	}

	return stats, nil
}

// deserializeDocument unmarshals vector and metadata JSON into a document.
func deserializeDocument(doc *vectorstore.Document, vectorJSON, metadataJSON []byte, createdAt, updatedAt int64) error {
	if err := json.Unmarshal(vectorJSON, &doc.Vector); err != nil {
		return fmt.Errorf("unmarshal vector: %w", err)
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
			return fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	doc.CreatedAt = time.Unix(createdAt, 0)
	doc.UpdatedAt = time.Unix(updatedAt, 0)
	return nil
}

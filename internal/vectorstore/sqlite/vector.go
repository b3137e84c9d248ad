package sqlite

import (
	"context"
	"fmt"
	"sort"

	"github.com/noteflux/noteflux/internal/embedding"
	"github.com/noteflux/noteflux/internal/vectorstore"
)

// annSearchThreshold is the minimum chunk count before the ANN accelerator
// is consulted; below it a full scan is cheap and exact.
const annSearchThreshold = 2000

// SearchVector performs dense similarity search, returning squared Euclidean
// distance as Score (lower is more similar, ascending order). The caller
// (internal/search) converts distance to a [0,1] score via 1/(1+d).
func (s *Store) SearchVector(ctx context.Context, queryVector embedding.Vector, opts vectorstore.SearchOptions) ([]vectorstore.SearchResult, error) {
	if len(queryVector) == 0 {
		return nil, fmt.Errorf("query vector cannot be empty")
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	if s.ann.len() >= annSearchThreshold {
		return s.searchVectorANN(ctx, queryVector, limit, opts.Filters)
	}
	return s.searchVectorBruteForce(ctx, queryVector, limit, opts.Filters)
}

// searchVectorANN fetches approximate candidates from the in-memory graph,
// then rescoring them exactly against the durable vectors so the returned
// Score is always the true squared L2 distance, never a stale graph distance.
func (s *Store) searchVectorANN(ctx context.Context, queryVector embedding.Vector, limit int, filters map[string]interface{}) ([]vectorstore.SearchResult, error) {
	candidateIDs := s.ann.search(queryVector, max(limit*4, 64))
	if len(candidateIDs) == 0 {
		return s.searchVectorBruteForce(ctx, queryVector, limit, filters)
	}

	docs, err := s.fetchDocumentsByIDs(ctx, candidateIDs, filters)
	if err != nil {
		return nil, fmt.Errorf("fetch ann candidates: %w", err)
	}

	for i := range docs {
		docs[i].Score = squaredL2(queryVector, docs[i].Document.Vector)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Score < docs[j].Score })

	if len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

// searchVectorBruteForce scans every stored chunk, scoring by squared L2
// distance. Exact, and fine for the vault sizes this tool targets.
func (s *Store) searchVectorBruteForce(ctx context.Context, queryVector embedding.Vector, limit int, filters map[string]interface{}) ([]vectorstore.SearchResult, error) {
	sqlQuery := "SELECT id, content, vector, metadata, created_at, updated_at FROM chunks"
	args := []interface{}{}

	if len(filters) > 0 {
		sqlQuery += " WHERE"
		first := true
		for key, value := range filters {
			if !first {
				sqlQuery += " AND"
			}
			sqlQuery += fmt.Sprintf(" json_extract(metadata, '$.%s') = ?", key)
			args = append(args, value)
			first = false
		}
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var results []vectorstore.SearchResult
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		var doc vectorstore.Document
		var vectorJSON, metadataJSON []byte
		var createdAt, updatedAt int64

		if err := rows.Scan(&doc.ID, &doc.Content, &vectorJSON, &metadataJSON, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if err := deserializeDocument(&doc, vectorJSON, metadataJSON, createdAt, updatedAt); err != nil {
			return nil, fmt.Errorf("deserialize chunk: %w", err)
		}
		if len(doc.Vector) == 0 || len(doc.Vector) != len(queryVector) {
			continue
		}

		results = append(results, vectorstore.SearchResult{
			Document: doc,
			Score:    squaredL2(queryVector, doc.Vector),
			Method:   "vector",
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score < results[j].Score })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// fetchDocumentsByIDs loads specific chunks by ID, applying metadata filters.
func (s *Store) fetchDocumentsByIDs(ctx context.Context, ids []string, filters map[string]interface{}) ([]vectorstore.SearchResult, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	sqlQuery := "SELECT id, content, vector, metadata, created_at, updated_at FROM chunks WHERE id IN (" + inPlaceholders(len(ids)) + ")"
	for key, value := range filters {
		sqlQuery += fmt.Sprintf(" AND json_extract(metadata, '$.%s') = ?", key)
		args = append(args, value)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("query chunks by ids: %w", err)
	}
	defer rows.Close()

	var results []vectorstore.SearchResult
	for rows.Next() {
		var doc vectorstore.Document
		var vectorJSON, metadataJSON []byte
		var createdAt, updatedAt int64

		if err := rows.Scan(&doc.ID, &doc.Content, &vectorJSON, &metadataJSON, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if err := deserializeDocument(&doc, vectorJSON, metadataJSON, createdAt, updatedAt); err != nil {
			return nil, fmt.Errorf("deserialize chunk: %w", err)
		}
		results = append(results, vectorstore.SearchResult{Document: doc, Method: "vector"})
	}
	return results, rows.Err()
}

func inPlaceholders(n int) string {
	out := make([]byte, 0, n*2)
	for i := 0; i < n; i++ {
		if i > 0 {
			out = append(out, ',')
		}
		out = append(out, '?')
	}
	return string(out)
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

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

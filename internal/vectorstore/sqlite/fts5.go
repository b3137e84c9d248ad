// Package sqlite provides FTS5-backed whole-document search.
package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/noteflux/noteflux/internal/vectorstore"
)

// stopwords are excluded from a BM25 query's term disjunction; they carry no
// discriminative value and, left in, would OR-match nearly every note.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "has": true, "he": true,
	"in": true, "is": true, "it": true, "its": true, "of": true, "on": true,
	"that": true, "the": true, "to": true, "was": true, "were": true,
	"will": true, "with": true, "this": true, "these": true, "those": true,
}

// UpsertDocument indexes (or reindexes) the full text of a note. Vault,
// category, title and date ride along as metadata for filtered search.
func (s *Store) UpsertDocument(ctx context.Context, filePath, vault, category, title, date, content string) error {
	if filePath == "" {
		return fmt.Errorf("file path cannot be empty")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notes (file_path, vault, category, title, date, content, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, strftime('%s', 'now'))
		ON CONFLICT(file_path) DO UPDATE SET
			vault = excluded.vault,
			category = excluded.category,
			title = excluded.title,
			date = excluded.date,
			content = excluded.content,
			updated_at = excluded.updated_at
	`, filePath, vault, category, title, date, content)
	if err != nil {
		return fmt.Errorf("upsert note: %w", err)
	}
	return nil
}

// DeleteDocument removes a note's full-text entry.
func (s *Store) DeleteDocument(ctx context.Context, filePath string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM notes WHERE file_path = ?", filePath)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}

// SearchBM25 matches any non-stopword query term (disjunctive OR, not AND)
// against whole-document content and ranks hits by FTS5 BM25.
func (s *Store) SearchBM25(ctx context.Context, query string, opts vectorstore.SearchOptions) ([]vectorstore.SearchResult, error) {
	if query == "" {
		return nil, fmt.Errorf("search query cannot be empty")
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	ftsQuery := orDisjunctionQuery(query)
	if ftsQuery == "" {
		return nil, nil
	}

	sqlQuery := `
		SELECT n.file_path, n.vault, n.category, n.title, n.date, n.content, fts.rank AS score
		FROM notes_fts fts
		JOIN notes n ON fts.file_path = n.file_path
		WHERE notes_fts MATCH ?
	`
	args := []interface{}{ftsQuery}

	for key, value := range opts.Filters {
		sqlQuery += fmt.Sprintf(" AND n.%s = ?", key)
		args = append(args, value)
	}
	sqlQuery += " ORDER BY fts.rank ASC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("execute bm25 search: %w", err)
	}
	defer rows.Close()

	var results []vectorstore.SearchResult
	for rows.Next() {
		var filePath, vault, category, title, date, content string
		var rank float32

		if err := rows.Scan(&filePath, &vault, &category, &title, &date, &content, &rank); err != nil {
			return nil, fmt.Errorf("scan bm25 result: %w", err)
		}

		score := normalizeRank(rank)
		if opts.Threshold > 0 && score < opts.Threshold {
			continue
		}

		results = append(results, vectorstore.SearchResult{
			Document: vectorstore.Document{
				ID:      filePath,
				Content: content,
				Metadata: map[string]interface{}{
					"file_path": filePath,
					"vault":     vault,
					"category":  category,
					"title":     title,
					"date":      date,
				},
			},
			Score:  score,
			Method: "bm25",
		})
	}
	return results, rows.Err()
}

// orDisjunctionQuery builds an FTS5 MATCH expression that matches any
// non-stopword term in query, quoting each term so FTS5 operators in the
// raw query text are treated as literal content rather than syntax.
func orDisjunctionQuery(query string) string {
	terms := strings.Fields(query)
	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		lower := strings.ToLower(term)
		if stopwords[lower] {
			continue
		}
		escaped := strings.ReplaceAll(term, `"`, `""`)
		quoted = append(quoted, fmt.Sprintf(`"%s"`, escaped))
	}
	return strings.Join(quoted, " OR ")
}

// normalizeRank converts FTS5's negative bm25 rank (lower/more negative is a
// better match) to a positive score in [0, 1].
func normalizeRank(rank float32) float32 {
	score := -rank
	if score < 0 {
		score = 0
	}
	if score > 10 {
		score = 10
	}
	return score / 10.0
}

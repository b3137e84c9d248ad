// Package search implements the Searcher: query expansion, parallel
// lexical/semantic retrieval, RRF fusion, optional LLM reranking, and the
// higher-level RAG/person-context/action-item operations built on top.
package search

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/noteflux/noteflux/internal/answerllm"
	"github.com/noteflux/noteflux/internal/embedding"
	"github.com/noteflux/noteflux/internal/fusion"
	"github.com/noteflux/noteflux/internal/observability"
	"github.com/noteflux/noteflux/internal/reranker"
	"github.com/noteflux/noteflux/internal/vectorstore"
)

const excerptLength = 300

// Result mirrors one search hit across every search mode, document-level
// (one per file_path) regardless of whether it came from the chunk-level
// vector store or the whole-document FTS store.
type Result struct {
	Score    float32
	FilePath string
	Title    string
	Content  string
	Excerpt  string
	Date     string
	People   []string
	Category string
	Vault    string
	Source   string // "vector", "bm25", "hybrid", "query"
}

func (r Result) id() string { return r.FilePath }

// Source summarizes one piece of context an answer cited.
type Source struct {
	FilePath string
	Title    string
	Excerpt  string
}

// PersonContext summarizes a person's recent history across work notes, for
// 1:1 prep.
type PersonContext struct {
	Person         string
	MeetingCount   int
	LastMeeting    string
	RecentTopics   []string
	OpenActions    []string
	RecentMeetings []RecentMeeting
}

// RecentMeeting is one entry in PersonContext.RecentMeetings.
type RecentMeeting struct {
	Date    string
	Title   string
	Summary string
}

// ActionItem is one extracted action line.
type ActionItem struct {
	Item   string
	Date   string
	Source string
}

// Searcher composes the retrieval core's stores and backends into the
// public search operations.
type Searcher struct {
	VectorStore      vectorstore.VectorStore
	FTSStore         vectorstore.FullTextStore
	Embedder         embedding.Embedder
	Reranker         *reranker.Client   // optional; nil disables reranking
	AnswerClient     answerllm.AnswerClient // optional; nil disables query_with_llm
	MaxContextChunks int
	ExcludedFolders  []string
	Metrics          *observability.HybridSearchMetrics // optional; nil disables metrics
	Logger           *observability.Logger              // optional; nil disables degrade-path warnings
}

// New creates a Searcher from its collaborators.
func New(vs vectorstore.VectorStore, fts vectorstore.FullTextStore, embedder embedding.Embedder, rr *reranker.Client, answer answerllm.AnswerClient, maxContextChunks int, excludedFolders []string) *Searcher {
	if maxContextChunks <= 0 {
		maxContextChunks = 10
	}
	return &Searcher{
		VectorStore:      vs,
		FTSStore:         fts,
		Embedder:         embedder,
		Reranker:         rr,
		AnswerClient:     answer,
		MaxContextChunks: maxContextChunks,
		ExcludedFolders:  excludedFolders,
	}
}

// WithMetrics attaches a HybridSearchMetrics collector, returning the same
// Searcher for chaining at construction time.
func (s *Searcher) WithMetrics(m *observability.HybridSearchMetrics) *Searcher {
	s.Metrics = m
	return s
}

// WithLogger attaches a Logger used to record backend degradations, returning
// the same Searcher for chaining at construction time.
func (s *Searcher) WithLogger(l *observability.Logger) *Searcher {
	s.Logger = l
	return s
}

func vaultFilters(vault, category string) map[string]interface{} {
	filters := map[string]interface{}{}
	if vault != "" && vault != "all" {
		filters["vault"] = vault
	}
	if category != "" {
		filters["category"] = category
	}
	return filters
}

func metadataString(m map[string]interface{}, key string) string {
	v, _ := m[key].(string)
	return v
}

func metadataStrings(m map[string]interface{}, key string) []string {
	raw, ok := m[key]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func buildExcerpt(content string) string {
	if len(content) <= excerptLength {
		return content
	}
	return content[:excerptLength] + "..."
}

func containsPerson(people []string, person string) bool {
	for _, p := range people {
		if strings.EqualFold(p, person) {
			return true
		}
	}
	return false
}

// VectorSearch embeds query and runs dense similarity search, converting
// distance to a [0,1] score via 1/(1+d). Chunk-level hits are deduplicated
// to one result per file_path, keeping the closest chunk's content as the
// file's excerpt — matching the whole-document granularity the Fusion
// Kernel expects (its identity key is file_path, per fusion.py's id_key
// default), since BM25 results are already document-level.
func (s *Searcher) VectorSearch(ctx context.Context, query, vault, category, person string, limit int) ([]Result, error) {
	emb, err := s.Embedder.Embed(ctx, query)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("vector search degraded: embed query failed", "error", err)
		}
		return nil, nil
	}

	raw, err := s.VectorStore.SearchVector(ctx, emb.Vector, vectorstore.SearchOptions{
		Limit:   limit * 4, // over-fetch chunks since several may collapse to one file
		Filters: vaultFilters(vault, category),
	})
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("vector search degraded: store search failed", "error", err)
		}
		return nil, nil
	}

	byFile := make(map[string]Result)
	for _, hit := range raw {
		meta := hit.Document.Metadata
		people := metadataStrings(meta, "people")
		if person != "" && !containsPerson(people, person) {
			continue
		}

		filePath := metadataString(meta, "file_path")
		if filePath == "" {
			continue
		}
		score := 1.0 / (1.0 + hit.Score)

		if existing, ok := byFile[filePath]; ok && existing.Score >= score {
			continue
		}
		byFile[filePath] = Result{
			Score:    score,
			FilePath: filePath,
			Title:    metadataString(meta, "title"),
			Content:  hit.Document.Content,
			Excerpt:  buildExcerpt(hit.Document.Content),
			Date:     metadataString(meta, "date"),
			People:   people,
			Category: metadataString(meta, "category"),
			Vault:    metadataString(meta, "vault"),
			Source:   "vector",
		}
	}

	results := make([]Result, 0, len(byFile))
	for _, r := range byFile {
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// BM25Search delegates to the full-text store; person filtering is not
// supported at this layer (the whole-document FTS schema carries no people
// column), matching spec §4.10's "person ∈ people" guarantee being a
// vector-search-only push-down. Returns empty, never an error, when the FTS
// store is nil or its search fails.
func (s *Searcher) BM25Search(ctx context.Context, query, vault string, limit int) ([]Result, error) {
	if s.FTSStore == nil {
		return nil, nil
	}

	raw, err := s.FTSStore.SearchBM25(ctx, query, vectorstore.SearchOptions{
		Limit:   limit,
		Filters: vaultFilters(vault, ""),
	})
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("bm25 search degraded: store search failed", "error", err)
		}
		return nil, nil
	}

	results := make([]Result, 0, len(raw))
	for _, hit := range raw {
		meta := hit.Document.Metadata
		results = append(results, Result{
			Score:    hit.Score,
			FilePath: metadataString(meta, "file_path"),
			Title:    metadataString(meta, "title"),
			Content:  hit.Document.Content,
			Excerpt:  buildExcerpt(hit.Document.Content),
			Date:     metadataString(meta, "date"),
			Category: metadataString(meta, "category"),
			Vault:    metadataString(meta, "vault"),
			Source:   "bm25",
		})
	}
	return results, nil
}

func toRankedItems(results []Result) []fusion.RankedItem[Result] {
	items := make([]fusion.RankedItem[Result], len(results))
	for i, r := range results {
		items[i] = fusion.RankedItem[Result]{ID: r.id(), Value: r}
	}
	return items
}

func fromScored(scored []fusion.Scored[Result], source string) []Result {
	out := make([]Result, len(scored))
	for i, s := range scored {
		r := s.Value
		r.Score = float32(s.Score)
		r.Source = source
		out[i] = r
	}
	return out
}

// HybridSearch runs BM25 and vector search concurrently (internal candidate
// limit 30 each), fuses with RRF (k=60), normalizes to [0,1] and returns the
// top limit.
func (s *Searcher) HybridSearch(ctx context.Context, query, vault, category, person string, limit int) ([]Result, error) {
	start := time.Now()
	status := "success"
	resultCount := 0
	defer func() {
		if s.Metrics != nil {
			s.Metrics.RecordHybridSearch(status, time.Since(start), resultCount)
		}
	}()

	var bm25Results, vectorResults []Result

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		bm25Start := time.Now()
		var err error
		bm25Results, err = s.BM25Search(gctx, query, vault, 30)
		if s.Metrics != nil {
			bm25Status := "success"
			if err != nil {
				bm25Status = "error"
			}
			s.Metrics.RecordVaultSearch(vaultLabel(vault, "bm25"), bm25Status, time.Since(bm25Start), len(bm25Results))
		}
		return err
	})
	g.Go(func() error {
		vecStart := time.Now()
		var err error
		vectorResults, err = s.VectorSearch(gctx, query, vault, category, person, 30)
		if s.Metrics != nil {
			vecStatus := "success"
			if err != nil {
				vecStatus = "error"
			}
			s.Metrics.RecordVaultSearch(vaultLabel(vault, "vector"), vecStatus, time.Since(vecStart), len(vectorResults))
		}
		return err
	})
	if err := g.Wait(); err != nil {
		status = "error"
		return nil, err
	}

	totalBeforeMerge := len(bm25Results) + len(vectorResults)
	mergeStart := time.Now()
	fused := fusion.ReciprocalRankFusion([][]fusion.RankedItem[Result]{
		toRankedItems(bm25Results),
		toRankedItems(vectorResults),
	}, 60, true)
	if s.Metrics != nil {
		s.Metrics.RecordMergeDuration(time.Since(mergeStart))
		s.Metrics.RecordMergedResults("before_merge", totalBeforeMerge)
		s.Metrics.RecordMergedResults("after_merge", len(fused))
		if totalBeforeMerge > 0 {
			s.Metrics.RecordDeduplicationRatio(float64(totalBeforeMerge-len(fused)) / float64(totalBeforeMerge))
		}
	}

	normStart := time.Now()
	fused = fusion.NormalizeScores(fused)
	if s.Metrics != nil {
		s.Metrics.RecordScoreNormalizationDuration(time.Since(normStart))
	}

	results := fromScored(fused, "hybrid")
	if len(results) > limit {
		results = results[:limit]
	}
	resultCount = len(results)
	return results, nil
}

// vaultLabel builds the per-vault-search metrics label, folding the
// retrieval method in since a "work"/"personal"/"all" vault is searched by
// both BM25 and vector methods concurrently within one HybridSearch call.
func vaultLabel(vault, method string) string {
	if vault == "" {
		vault = "all"
	}
	return vault + ":" + method
}

// QuerySearch runs the full pipeline: query expansion, hybrid search per
// expanded query, fusion across all of them (weighting the original query
// 2x when expansion produced more than one query), and optional reranking.
func (s *Searcher) QuerySearch(ctx context.Context, query, vault, category, person string, limit int, useReranking, useQueryExpansion bool) ([]Result, error) {
	queries := []string{query}
	if useQueryExpansion && s.Reranker != nil {
		queries = s.Reranker.ExpandQuery(ctx, query)
	}

	allResults := make([][]fusion.RankedItem[Result], 0, len(queries)+1)
	for _, q := range queries {
		hybrid, err := s.HybridSearch(ctx, q, vault, category, person, 30)
		if err != nil {
			return nil, err
		}
		allResults = append(allResults, toRankedItems(hybrid))
	}

	// Weight the original query higher by duplicating its own result list,
	// but only once expansion actually produced more than one query.
	if len(allResults) > 1 {
		first := allResults[0]
		allResults = append([][]fusion.RankedItem[Result]{first}, allResults...)
	}

	fused := fusion.ReciprocalRankFusion(allResults, 60, true)

	if useReranking && s.Reranker != nil && len(fused) > 0 {
		topN := fused
		if len(topN) > 30 {
			topN = topN[:30]
		}
		docs := make([]reranker.RerankDocument, len(topN))
		for i, f := range topN {
			docs[i] = reranker.RerankDocument{ID: f.ID, Content: f.Value.Content}
		}
		rerankScores := s.Reranker.Rerank(ctx, query, docs, 30)
		fused = fusion.PositionAwareBlend(fused, rerankScores)
	}

	results := fromScored(fused, "query")
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// SearchMode selects which of the four retrieval strategies Search runs.
type SearchMode string

const (
	ModeVector SearchMode = "vector"
	ModeBM25   SearchMode = "bm25"
	ModeHybrid SearchMode = "hybrid"
	ModeQuery  SearchMode = "query"
)

// Search is the unified dispatcher across all four search modes, defaulting
// to hybrid.
func (s *Searcher) Search(ctx context.Context, query, vault, category, person string, limit int, mode SearchMode) ([]Result, error) {
	switch mode {
	case ModeVector:
		return s.VectorSearch(ctx, query, vault, category, person, limit)
	case ModeBM25:
		return s.BM25Search(ctx, query, vault, limit)
	case ModeQuery:
		return s.QuerySearch(ctx, query, vault, category, person, limit, true, true)
	default:
		return s.HybridSearch(ctx, query, vault, category, person, limit)
	}
}

func (s *Searcher) isExcluded(filePath string) bool {
	for _, folder := range s.ExcludedFolders {
		if folder != "" && strings.Contains(filePath, folder) {
			return true
		}
	}
	return false
}

// QueryWithLLM retrieves context via Search (default hybrid) and asks the
// configured AnswerClient to synthesize an answer. On LLM failure, returns a
// fallback string carrying the raw context and the error rather than
// failing the whole call.
func (s *Searcher) QueryWithLLM(ctx context.Context, question, vault string, mode SearchMode) (string, []Source, error) {
	if mode == "" {
		mode = ModeHybrid
	}

	results, err := s.Search(ctx, question, vault, "", "", s.MaxContextChunks, mode)
	if err != nil {
		return "", nil, err
	}
	if len(results) == 0 {
		return "I couldn't find any relevant information in your notes.", nil, nil
	}

	var contextParts []string
	var sources []Source
	for i, r := range results {
		if s.isExcluded(r.FilePath) {
			continue
		}
		date := r.Date
		if date == "" {
			date = "undated"
		}
		contextParts = append(contextParts, fmt.Sprintf("[Source %d: %s (%s)]", i+1, r.Title, date))
		contextParts = append(contextParts, r.Excerpt)
		contextParts = append(contextParts, "")

		sources = append(sources, Source{
			FilePath: r.FilePath,
			Title:    r.Title,
			Excerpt:  truncate(r.Excerpt, 100) + "...",
		})
	}
	contextBlock := strings.Join(contextParts, "\n")

	if s.AnswerClient == nil {
		return fmt.Sprintf("Based on search results, here are relevant excerpts:\n\n%s", contextBlock), sources, nil
	}

	answer, err := s.AnswerClient.Answer(ctx, question, contextBlock)
	if err != nil {
		return fmt.Sprintf("Error generating answer: %s\n\nBased on search results, here are relevant excerpts:\n\n%s", err.Error(), contextBlock), sources, nil
	}
	return answer, sources, nil
}

// GetPersonContext composes two hybrid searches ("person"-filtered and
// "meeting with {person}"), deduplicates by file_path preserving order, and
// derives a 1:1-prep summary.
func (s *Searcher) GetPersonContext(ctx context.Context, person string) (PersonContext, error) {
	direct, err := s.HybridSearch(ctx, person, "work", "", person, 20)
	if err != nil {
		return PersonContext{}, err
	}
	mentions, err := s.HybridSearch(ctx, fmt.Sprintf("meeting with %s", person), "work", "", "", 10)
	if err != nil {
		return PersonContext{}, err
	}

	seen := make(map[string]bool)
	var unique []Result
	for _, r := range append(direct, mentions...) {
		if seen[r.FilePath] {
			continue
		}
		seen[r.FilePath] = true
		unique = append(unique, r)
	}

	actionPattern := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(person) + `[:\s]+(.+?)(?:\n|$)`)

	var topics, actions, dates []string
	limit := len(unique)
	if limit > 10 {
		limit = 10
	}
	for _, r := range unique[:limit] {
		if r.Date != "" {
			dates = append(dates, r.Date)
		}
		if strings.Contains(strings.ToLower(r.Excerpt), strings.ToLower(person)) {
			matches := actionPattern.FindAllStringSubmatch(r.Excerpt, -1)
			for i, m := range matches {
				if i >= 2 {
					break
				}
				actions = append(actions, m[1])
			}
		}
		if r.Title != "" && !contains(topics, r.Title) {
			topics = append(topics, r.Title)
		}
	}

	var recentMeetings []RecentMeeting
	limit5 := len(unique)
	if limit5 > 5 {
		limit5 = 5
	}
	for _, r := range unique[:limit5] {
		recentMeetings = append(recentMeetings, RecentMeeting{
			Date:    r.Date,
			Title:   r.Title,
			Summary: truncate(r.Excerpt, 150) + "...",
		})
	}

	var lastMeeting string
	for _, d := range dates {
		if d > lastMeeting {
			lastMeeting = d
		}
	}

	return PersonContext{
		Person:         person,
		MeetingCount:   len(unique),
		LastMeeting:    lastMeeting,
		RecentTopics:   capStrings(topics, 5),
		OpenActions:    capStrings(actions, 5),
		RecentMeetings: recentMeetings,
	}, nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func capStrings(list []string, n int) []string {
	if len(list) > n {
		return list[:n]
	}
	return list
}

var actionLinePrefixes = []string{"-", "•", "*"}
var actionKeywords = []string{"will", "to do", "action", "next", "follow"}

// GetActionItems hybrid-searches for action-item phrasing and scans each
// hit's excerpt for bullet lines, filtering by mention of person when given
// or by a fixed keyword set otherwise.
func (s *Searcher) GetActionItems(ctx context.Context, person string, limit int) ([]ActionItem, error) {
	query := "action items next steps"
	if person != "" {
		query = fmt.Sprintf("action items %s", person)
	}

	results, err := s.HybridSearch(ctx, query, "work", "", "", 50)
	if err != nil {
		return nil, err
	}

	var actions []ActionItem
	for _, r := range results {
		for _, line := range strings.Split(r.Excerpt, "\n") {
			line = strings.TrimSpace(line)
			if !hasActionPrefix(line) || len(line) <= 10 {
				continue
			}

			item := strings.TrimLeft(line, "-•* ")
			lower := strings.ToLower(line)
			if person != "" {
				if !strings.Contains(lower, strings.ToLower(person)) {
					continue
				}
			} else if !containsAny(lower, actionKeywords) {
				continue
			}

			actions = append(actions, ActionItem{Item: item, Date: r.Date, Source: r.Title})
		}
	}

	seen := make(map[string]bool)
	var unique []ActionItem
	for _, a := range actions {
		if seen[a.Item] {
			continue
		}
		seen[a.Item] = true
		unique = append(unique, a)
	}

	if len(unique) > limit {
		unique = unique[:limit]
	}
	return unique, nil
}

func hasActionPrefix(line string) bool {
	for _, p := range actionLinePrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

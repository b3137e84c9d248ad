package cmd

import (
	"context"
	"fmt"

	"github.com/google/go-github/v45/github"
	"golang.org/x/oauth2"

	"github.com/noteflux/noteflux/internal/answerllm"
	"github.com/noteflux/noteflux/internal/config"
	"github.com/noteflux/noteflux/internal/embedding"
	"github.com/noteflux/noteflux/internal/enrichment"
	"github.com/noteflux/noteflux/internal/indexer"
	"github.com/noteflux/noteflux/internal/oauth"
	"github.com/noteflux/noteflux/internal/observability"
	"github.com/noteflux/noteflux/internal/reranker"
	"github.com/noteflux/noteflux/internal/search"
	"github.com/noteflux/noteflux/internal/vectorstore/sqlite"
)

// app bundles every collaborator a subcommand might need, wired once from
// the loaded config. Subcommands take only the slice of app they use.
type app struct {
	cfg          *config.Config
	logger       *observability.Logger
	metrics      *observability.MetricsCollector
	tracer       *observability.TracerProvider
	errorHandler *observability.ErrorHandler

	store    *sqlite.Store
	embedder embedding.Embedder
	reranker *reranker.Client
	indexer  *indexer.DefaultIndexer
	searcher *search.Searcher
}

// buildApp loads configuration and wires every collaborator. Callers are
// responsible for calling a.store.Close() when done.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(observability.LoggerConfig{
		Level:         cfg.Logging.Level,
		Format:        cfg.Logging.Format,
		SentryEnabled: cfg.Logging.SentryEnabled,
	})

	metrics := observability.NewMetricsCollector("noteflux")
	errorHandler := observability.NewErrorHandler(logger, metrics, cfg.Logging.SentryEnabled)

	tracer, err := observability.NewTracerProvider(observability.TracerConfig{
		ServiceName:  "noteflux",
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SamplingRate: cfg.Tracing.SamplingRate,
		Enabled:      cfg.Tracing.Enabled,
	})
	if err != nil {
		return nil, fmt.Errorf("build tracer provider: %w", err)
	}

	store, err := sqlite.NewStore(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	embeddingProvider, err := embedding.Get(cfg.Embedding.Provider)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("resolve embedding provider: %w", err)
	}
	rawEmbedder, err := embeddingProvider.Create(map[string]interface{}{
		"base_url":        cfg.Embedding.OllamaURL,
		"model":           cfg.Embedding.Model,
		"dimensions":      cfg.Embedding.Dimensions,
		"timeout_seconds": 30.0,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("build embedder: %w", err)
	}
	if traced, ok := rawEmbedder.(interface {
		SetTracer(*observability.TracerProvider)
	}); ok {
		traced.SetTracer(tracer)
	}
	embedder, err := embedding.NewCachedEmbedderFromConfig(rawEmbedder, cfg.Cache)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("build embedding cache: %w", err)
	}

	rr := reranker.New(cfg.Reranker.OllamaURL, cfg.Reranker.Model, cfg.Reranker.Timeout, reranker.WithTracer(tracer))

	answerToken := cfg.AnswerLLM.Token
	if cfg.AnswerLLM.OAuthClientID != "" && cfg.AnswerLLM.OAuthClientSecret != "" && cfg.AnswerLLM.OAuthTokenURL != "" {
		token, err := oauth.BearerToken(ctx, oauth.Config{
			ClientID:     cfg.AnswerLLM.OAuthClientID,
			ClientSecret: cfg.AnswerLLM.OAuthClientSecret,
			TokenURL:     cfg.AnswerLLM.OAuthTokenURL,
			Scopes:       cfg.AnswerLLM.OAuthScopes,
		})
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("fetch answer-llm oauth token: %w", err)
		}
		answerToken = token
	}

	var answerClient answerllm.AnswerClient
	switch cfg.AnswerLLM.Backend {
	case "anthropic":
		answerClient = answerllm.NewAnthropic(cfg.AnswerLLM.BaseURL, answerToken, cfg.AnswerLLM.Model, cfg.AnswerLLM.Timeout)
	default:
		answerClient = answerllm.NewOpenAI(cfg.AnswerLLM.BaseURL, answerToken, cfg.AnswerLLM.Model, cfg.AnswerLLM.Timeout)
	}

	maxContextChunks := 10
	searcher := search.New(store, store, embedder, rr, answerClient, maxContextChunks, cfg.Vaults.ExcludedFolders).
		WithMetrics(observability.NewHybridSearchMetrics("noteflux")).
		WithLogger(logger)

	idx := indexer.NewIndexer(indexer.NewFileWalker(), indexer.NewDocumentParser(),
		indexer.NewMarkdownChunker(cfg.Indexer.ChunkSize, cfg.Indexer.ChunkOverlap))

	return &app{
		cfg:          cfg,
		logger:       logger,
		metrics:      metrics,
		tracer:       tracer,
		errorHandler: errorHandler,
		store:        store,
		embedder:     embedder,
		reranker:     rr,
		indexer:      idx,
		searcher:     searcher,
	}, nil
}

// issuesServiceAdapter adapts go-github's IssuesService.Get to the
// enrichment.IssueClient interface, which names the method GetIssue to
// stay unambiguous next to PR lookups the pipeline may grow later.
type issuesServiceAdapter struct {
	svc *github.IssuesService
}

func (a issuesServiceAdapter) GetIssue(ctx context.Context, owner, repo string, number int) (*github.Issue, *github.Response, error) {
	return a.svc.Get(ctx, owner, repo, number)
}

// enricherPipeline builds the best-effort metadata enrichment pipeline.
// GitHub enrichment is only wired in when a token is configured; a vault
// with no tracked issues/PRs pays nothing for it.
func (a *app) enricherPipeline() *enrichment.Pipeline {
	var gh *enrichment.GitHubEnricher
	if a.cfg.Enrichment.GitHubToken != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: a.cfg.Enrichment.GitHubToken})
		client := github.NewClient(oauth2.NewClient(context.Background(), ts))
		gh = enrichment.NewGitHubEnricher(issuesServiceAdapter{svc: client.Issues})
	}
	return enrichment.NewPipeline(gh)
}

// vaultPaths builds the vault-name -> root-path map the indexer expects
// from the two configured vaults, skipping any left empty.
func (a *app) vaultPaths() map[string]string {
	paths := map[string]string{}
	if a.cfg.Vaults.Work != "" {
		paths["work"] = a.cfg.Vaults.Work
	}
	if a.cfg.Vaults.Personal != "" {
		paths["personal"] = a.cfg.Vaults.Personal
	}
	return paths
}

func (a *app) indexOptions() indexer.IndexOptions {
	return indexer.IndexOptions{
		VaultPaths:      a.vaultPaths(),
		ExcludedFolders: a.cfg.Vaults.ExcludedFolders,
		ChunkSize:       a.cfg.Indexer.ChunkSize,
		ChunkOverlap:    a.cfg.Indexer.ChunkOverlap,
		Embedder:        a.embedder,
		VectorStore:     a.store,
		FTSStore:        a.store,
		Enricher:        a.enricherPipeline(),
	}
}

// Package config provides configuration management for noteflux.
// It supports loading configuration from environment variables, a YAML file,
// and defaults, with a clear precedence order: env > file > defaults.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adhocore/gronx"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/noteflux/noteflux/internal/validation"
)

// Config represents the complete noteflux configuration.
type Config struct {
	Vaults    VaultsConfig    `json:"vaults" yaml:"vaults" envPrefix:"VAULTS_"`
	Indexer   IndexerConfig   `json:"indexer" yaml:"indexer" envPrefix:"INDEXER_"`
	Embedding EmbeddingConfig `json:"embedding" yaml:"embedding" envPrefix:"EMBEDDING_"`
	Reranker  RerankerConfig  `json:"reranker" yaml:"reranker" envPrefix:"RERANKER_"`
	AnswerLLM AnswerLLMConfig `json:"answer_llm" yaml:"answer_llm" envPrefix:"ANSWER_LLM_"`
	Store     StoreConfig     `json:"store" yaml:"store" envPrefix:"STORE_"`
	Cache     CacheConfig     `json:"cache" yaml:"cache" envPrefix:"CACHE_"`
	Server    ServerConfig    `json:"server" yaml:"server" envPrefix:"SERVER_"`
	Logging    LoggingConfig    `json:"logging" yaml:"logging" envPrefix:"LOGGING_"`
	Schedule   ScheduleConfig   `json:"schedule" yaml:"schedule" envPrefix:"SCHEDULE_"`
	Enrichment EnrichmentConfig `json:"enrichment" yaml:"enrichment" envPrefix:"ENRICHMENT_"`
	Auth       AuthConfig       `json:"auth" yaml:"auth" envPrefix:"AUTH_"`
	Tracing    TracingConfig    `json:"tracing" yaml:"tracing" envPrefix:"TRACING_"`
}

// VaultsConfig holds the note vaults to index and search, and any folders
// excluded from indexing/search results within them.
type VaultsConfig struct {
	Work            string   `json:"work" yaml:"work" env:"WORK"`
	Personal        string   `json:"personal" yaml:"personal" env:"PERSONAL"`
	ExcludedFolders []string `json:"excluded_folders" yaml:"excluded_folders" env:"EXCLUDED_FOLDERS" envSeparator:","`
}

// IndexerConfig holds markdown chunking configuration.
type IndexerConfig struct {
	ChunkSize    int `json:"chunk_size" yaml:"chunk_size" env:"CHUNK_SIZE"`
	ChunkOverlap int `json:"chunk_overlap" yaml:"chunk_overlap" env:"CHUNK_OVERLAP"`
}

// EmbeddingConfig holds embedding model configuration. Provider selects which
// registered embedding.Provider backs the Embedder ("ollama" by default;
// "mock" produces deterministic fake vectors for offline runs with no Ollama
// daemon available).
type EmbeddingConfig struct {
	Provider   string `json:"provider" yaml:"provider" env:"PROVIDER"`
	OllamaURL  string `json:"ollama_url" yaml:"ollama_url" env:"OLLAMA_URL"`
	Model      string `json:"model" yaml:"model" env:"MODEL"`
	Dimensions int    `json:"dimensions" yaml:"dimensions" env:"DIMENSIONS"`
}

// RerankerConfig holds the LLM relevance-judge configuration.
type RerankerConfig struct {
	OllamaURL   string        `json:"ollama_url" yaml:"ollama_url" env:"OLLAMA_URL"`
	Model       string        `json:"model" yaml:"model" env:"MODEL"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout" env:"TIMEOUT"`
	Concurrency int64         `json:"concurrency" yaml:"concurrency" env:"CONCURRENCY"`
}

// AnswerLLMConfig holds the final RAG-answer-generation backend configuration.
// Backend selects between the interchangeable AnswerClient implementations.
// OAuthClientID/OAuthClientSecret/OAuthTokenURL are optional: when all three
// are set, the bearer token is fetched once via OAuth2 client-credentials
// instead of using the static Token field; it is not refreshed.
type AnswerLLMConfig struct {
	Backend           string        `json:"backend" yaml:"backend" env:"BACKEND"`
	BaseURL           string        `json:"base_url" yaml:"base_url" env:"BASE_URL"`
	Token             string        `json:"token" yaml:"token" env:"TOKEN"`
	Model             string        `json:"model" yaml:"model" env:"MODEL"`
	Timeout           time.Duration `json:"timeout" yaml:"timeout" env:"TIMEOUT"`
	OAuthClientID     string        `json:"oauth_client_id" yaml:"oauth_client_id" env:"OAUTH_CLIENT_ID"`
	OAuthClientSecret string        `json:"oauth_client_secret" yaml:"oauth_client_secret" env:"OAUTH_CLIENT_SECRET"`
	OAuthTokenURL     string        `json:"oauth_token_url" yaml:"oauth_token_url" env:"OAUTH_TOKEN_URL"`
	OAuthScopes       []string      `json:"oauth_scopes" yaml:"oauth_scopes" env:"OAUTH_SCOPES" envSeparator:","`
}

// StoreConfig holds the on-disk vector/FTS store location.
type StoreConfig struct {
	Path string `json:"path" yaml:"path" env:"PATH"`
}

// CacheConfig holds the embedding-cache configuration.
type CacheConfig struct {
	Backend    string `json:"backend" yaml:"backend" env:"BACKEND"`
	RedisAddr  string `json:"redis_addr" yaml:"redis_addr" env:"REDIS_ADDR"`
	MaxEntries int    `json:"max_entries" yaml:"max_entries" env:"MAX_ENTRIES"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `json:"host" yaml:"host" env:"HOST"`
	Port int    `json:"port" yaml:"port" env:"PORT"`
}

// LoggingConfig holds logging configuration. SentryEnabled defaults to false;
// enabling it without a DSN configured in the environment Sentry's SDK reads
// from is harmless (the SDK no-ops), but this tool never sets one implicitly.
type LoggingConfig struct {
	Level         string `json:"level" yaml:"level" env:"LEVEL"`
	Format        string `json:"format" yaml:"format" env:"FORMAT"`
	SentryEnabled bool   `json:"sentry_enabled" yaml:"sentry_enabled" env:"SENTRY_ENABLED"`
}

// ScheduleConfig holds the incremental-reindex cron schedule.
type ScheduleConfig struct {
	IncrementalCron string `json:"incremental_cron" yaml:"incremental_cron" env:"INCREMENTAL_CRON"`
}

// EnrichmentConfig holds best-effort metadata-enrichment settings. GitHubToken
// is optional; leaving it empty disables GitHub issue/PR enrichment rather
// than failing indexing.
type EnrichmentConfig struct {
	GitHubToken string `json:"github_token" yaml:"github_token" env:"GITHUB_TOKEN"`
}

// AuthConfig holds JWT session-token settings for the optional HTTP server.
// Enabled defaults to false: a single-user local server has no reason to
// require bearer tokens unless it's reachable beyond localhost.
type AuthConfig struct {
	Enabled      bool   `json:"enabled" yaml:"enabled" env:"ENABLED"`
	PrivateKey   string `json:"private_key" yaml:"private_key" env:"PRIVATE_KEY"`
	PublicKey    string `json:"public_key" yaml:"public_key" env:"PUBLIC_KEY"`
	Issuer       string `json:"issuer" yaml:"issuer" env:"ISSUER"`
	Audience     string `json:"audience" yaml:"audience" env:"AUDIENCE"`
	TokenExpiry  int    `json:"token_expiry_minutes" yaml:"token_expiry_minutes" env:"TOKEN_EXPIRY_MINUTES"`
	APITokenHash string `json:"api_token_hash" yaml:"api_token_hash" env:"API_TOKEN_HASH"`
}

// TracingConfig holds OpenTelemetry tracing settings. Enabled defaults to
// false: a local single-user tool has no collector to send spans to unless
// one is explicitly configured.
type TracingConfig struct {
	Enabled      bool    `json:"enabled" yaml:"enabled" env:"ENABLED"`
	OTLPEndpoint string  `json:"otlp_endpoint" yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	SamplingRate float64 `json:"sampling_rate" yaml:"sampling_rate" env:"SAMPLING_RATE"`
}

// Default values
const (
	DefaultChunkSize           = 512
	DefaultChunkOverlap        = 50
	DefaultEmbeddingProvider   = "ollama"
	DefaultEmbeddingOllamaURL  = "http://localhost:11434"
	DefaultEmbeddingModel      = "nomic-embed-text"
	DefaultEmbeddingDimensions = 768
	DefaultRerankerOllamaURL   = "http://localhost:11434"
	DefaultRerankerModel       = "qwen2.5:0.5b"
	DefaultRerankerTimeout     = 10 * time.Second
	DefaultRerankerConcurrency = 5
	DefaultAnswerLLMBackend    = "openai"
	DefaultAnswerLLMTimeout    = 60 * time.Second
	DefaultStorePath           = "./data/noteflux.db"
	DefaultCacheBackend        = "memory"
	DefaultCacheMaxEntries     = 10000
	DefaultHost                = "0.0.0.0"
	DefaultPort                = 0 // 0 disables the HTTP server; CLI-only mode
	DefaultLogLevel            = "info"
	DefaultLogFormat           = "json"
	DefaultIncrementalCron     = "*/15 * * * *"
	DefaultTokenExpiryMinutes  = 60
	DefaultTracingOTLPEndpoint = "localhost:4317"
	DefaultTracingSamplingRate = 1.0
)

// Valid values for validation
var (
	ValidLogLevels      = []string{"debug", "info", "warn", "error"}
	ValidLogFormats     = []string{"json", "text"}
	ValidAnswerBackends = []string{"openai", "anthropic"}
	ValidCacheBackends  = []string{"memory", "redis"}
)

// Load loads configuration from environment variables and optional config file.
// Precedence: env vars > config file > defaults.
func Load(ctx context.Context) (*Config, error) {
	cfg := defaults()

	if configFile := os.Getenv("NOTEFLUX_CONFIG_FILE"); configFile != "" {
		validatedPath, err := validation.ValidateConfigPath(configFile)
		if err != nil {
			return nil, fmt.Errorf("config file path validation failed: %w", err)
		}

		fileCfg, err := loadFile(validatedPath)
		if err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
		cfg = merge(cfg, fileCfg)
	}

	cfg, err := loadEnv(cfg)
	if err != nil {
		return nil, fmt.Errorf("load env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config with all default values.
func defaults() *Config {
	return &Config{
		Vaults: VaultsConfig{
			Work:     "",
			Personal: "",
		},
		Indexer: IndexerConfig{
			ChunkSize:    DefaultChunkSize,
			ChunkOverlap: DefaultChunkOverlap,
		},
		Embedding: EmbeddingConfig{
			Provider:   DefaultEmbeddingProvider,
			OllamaURL:  DefaultEmbeddingOllamaURL,
			Model:      DefaultEmbeddingModel,
			Dimensions: DefaultEmbeddingDimensions,
		},
		Reranker: RerankerConfig{
			OllamaURL:   DefaultRerankerOllamaURL,
			Model:       DefaultRerankerModel,
			Timeout:     DefaultRerankerTimeout,
			Concurrency: DefaultRerankerConcurrency,
		},
		AnswerLLM: AnswerLLMConfig{
			Backend: DefaultAnswerLLMBackend,
			Timeout: DefaultAnswerLLMTimeout,
		},
		Store: StoreConfig{
			Path: DefaultStorePath,
		},
		Cache: CacheConfig{
			Backend:    DefaultCacheBackend,
			MaxEntries: DefaultCacheMaxEntries,
		},
		Server: ServerConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Schedule: ScheduleConfig{
			IncrementalCron: DefaultIncrementalCron,
		},
		Auth: AuthConfig{
			TokenExpiry: DefaultTokenExpiryMinutes,
		},
		Tracing: TracingConfig{
			OTLPEndpoint: DefaultTracingOTLPEndpoint,
			SamplingRate: DefaultTracingSamplingRate,
		},
	}
}

// loadFile loads configuration from a YAML file.
func loadFile(path string) (*Config, error) {
	safePath := filepath.Clean(path)

	data, err := os.ReadFile(safePath)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	return cfg, nil
}

// loadEnv overrides cfg with NOTEFLUX_-prefixed environment variables, using
// struct tags rather than a hand-rolled per-field switch. Only variables that
// are actually set in the environment touch the config; anything absent
// leaves the value already set by defaults()/loadFile() untouched.
func loadEnv(cfg *Config) (*Config, error) {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "NOTEFLUX_"}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// merge merges two configs, preferring non-zero values from 'override'.
func merge(base, override *Config) *Config {
	result := *base

	if override.Vaults.Work != "" {
		result.Vaults.Work = override.Vaults.Work
	}
	if override.Vaults.Personal != "" {
		result.Vaults.Personal = override.Vaults.Personal
	}
	if len(override.Vaults.ExcludedFolders) > 0 {
		result.Vaults.ExcludedFolders = override.Vaults.ExcludedFolders
	}

	if override.Indexer.ChunkSize != 0 {
		result.Indexer.ChunkSize = override.Indexer.ChunkSize
	}
	if override.Indexer.ChunkOverlap != 0 {
		result.Indexer.ChunkOverlap = override.Indexer.ChunkOverlap
	}

	if override.Embedding.Provider != "" {
		result.Embedding.Provider = override.Embedding.Provider
	}
	if override.Embedding.OllamaURL != "" {
		result.Embedding.OllamaURL = override.Embedding.OllamaURL
	}
	if override.Embedding.Model != "" {
		result.Embedding.Model = override.Embedding.Model
	}
	if override.Embedding.Dimensions != 0 {
		result.Embedding.Dimensions = override.Embedding.Dimensions
	}

	if override.Reranker.OllamaURL != "" {
		result.Reranker.OllamaURL = override.Reranker.OllamaURL
	}
	if override.Reranker.Model != "" {
		result.Reranker.Model = override.Reranker.Model
	}
	if override.Reranker.Timeout != 0 {
		result.Reranker.Timeout = override.Reranker.Timeout
	}
	if override.Reranker.Concurrency != 0 {
		result.Reranker.Concurrency = override.Reranker.Concurrency
	}

	if override.AnswerLLM.Backend != "" {
		result.AnswerLLM.Backend = override.AnswerLLM.Backend
	}
	if override.AnswerLLM.BaseURL != "" {
		result.AnswerLLM.BaseURL = override.AnswerLLM.BaseURL
	}
	if override.AnswerLLM.Token != "" {
		result.AnswerLLM.Token = override.AnswerLLM.Token
	}
	if override.AnswerLLM.Model != "" {
		result.AnswerLLM.Model = override.AnswerLLM.Model
	}
	if override.AnswerLLM.Timeout != 0 {
		result.AnswerLLM.Timeout = override.AnswerLLM.Timeout
	}
	if override.AnswerLLM.OAuthClientID != "" {
		result.AnswerLLM.OAuthClientID = override.AnswerLLM.OAuthClientID
	}
	if override.AnswerLLM.OAuthClientSecret != "" {
		result.AnswerLLM.OAuthClientSecret = override.AnswerLLM.OAuthClientSecret
	}
	if override.AnswerLLM.OAuthTokenURL != "" {
		result.AnswerLLM.OAuthTokenURL = override.AnswerLLM.OAuthTokenURL
	}
	if len(override.AnswerLLM.OAuthScopes) > 0 {
		result.AnswerLLM.OAuthScopes = override.AnswerLLM.OAuthScopes
	}

	if override.Store.Path != "" {
		result.Store.Path = override.Store.Path
	}

	if override.Cache.Backend != "" {
		result.Cache.Backend = override.Cache.Backend
	}
	if override.Cache.RedisAddr != "" {
		result.Cache.RedisAddr = override.Cache.RedisAddr
	}
	if override.Cache.MaxEntries != 0 {
		result.Cache.MaxEntries = override.Cache.MaxEntries
	}

	if override.Server.Host != "" {
		result.Server.Host = override.Server.Host
	}
	if override.Server.Port != 0 {
		result.Server.Port = override.Server.Port
	}

	if override.Logging.Level != "" {
		result.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		result.Logging.Format = override.Logging.Format
	}
	if override.Logging.SentryEnabled {
		result.Logging.SentryEnabled = override.Logging.SentryEnabled
	}

	if override.Schedule.IncrementalCron != "" {
		result.Schedule.IncrementalCron = override.Schedule.IncrementalCron
	}

	if override.Enrichment.GitHubToken != "" {
		result.Enrichment.GitHubToken = override.Enrichment.GitHubToken
	}

	if override.Auth.Enabled {
		result.Auth.Enabled = override.Auth.Enabled
	}
	if override.Auth.PrivateKey != "" {
		result.Auth.PrivateKey = override.Auth.PrivateKey
	}
	if override.Auth.PublicKey != "" {
		result.Auth.PublicKey = override.Auth.PublicKey
	}
	if override.Auth.Issuer != "" {
		result.Auth.Issuer = override.Auth.Issuer
	}
	if override.Auth.Audience != "" {
		result.Auth.Audience = override.Auth.Audience
	}
	if override.Auth.TokenExpiry != 0 {
		result.Auth.TokenExpiry = override.Auth.TokenExpiry
	}
	if override.Auth.APITokenHash != "" {
		result.Auth.APITokenHash = override.Auth.APITokenHash
	}

	if override.Tracing.Enabled {
		result.Tracing.Enabled = override.Tracing.Enabled
	}
	if override.Tracing.OTLPEndpoint != "" {
		result.Tracing.OTLPEndpoint = override.Tracing.OTLPEndpoint
	}
	if override.Tracing.SamplingRate != 0 {
		result.Tracing.SamplingRate = override.Tracing.SamplingRate
	}

	return &result
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Vaults.Work == "" && c.Vaults.Personal == "" {
		return fmt.Errorf("at least one of vaults.work or vaults.personal must be set")
	}

	if c.Indexer.ChunkSize < 1 {
		return fmt.Errorf("chunk size must be positive: %d", c.Indexer.ChunkSize)
	}
	if c.Indexer.ChunkOverlap < 0 {
		return fmt.Errorf("chunk overlap cannot be negative: %d", c.Indexer.ChunkOverlap)
	}
	if c.Indexer.ChunkOverlap >= c.Indexer.ChunkSize {
		return fmt.Errorf("chunk overlap (%d) must be less than chunk size (%d)",
			c.Indexer.ChunkOverlap, c.Indexer.ChunkSize)
	}

	if c.Embedding.OllamaURL == "" {
		return fmt.Errorf("embedding ollama url cannot be empty")
	}
	if c.Embedding.Dimensions < 1 {
		return fmt.Errorf("embedding dimensions must be positive: %d", c.Embedding.Dimensions)
	}

	if c.Reranker.Concurrency < 1 {
		return fmt.Errorf("reranker concurrency must be positive: %d", c.Reranker.Concurrency)
	}
	if c.Reranker.Timeout <= 0 {
		return fmt.Errorf("reranker timeout must be positive: %s", c.Reranker.Timeout)
	}

	if !contains(ValidAnswerBackends, c.AnswerLLM.Backend) {
		return fmt.Errorf("invalid answer_llm backend: %s (valid: %v)", c.AnswerLLM.Backend, ValidAnswerBackends)
	}
	if c.AnswerLLM.Timeout <= 0 {
		return fmt.Errorf("answer_llm timeout must be positive: %s", c.AnswerLLM.Timeout)
	}

	if c.Store.Path == "" {
		return fmt.Errorf("store path cannot be empty")
	}

	if !contains(ValidCacheBackends, c.Cache.Backend) {
		return fmt.Errorf("invalid cache backend: %s (valid: %v)", c.Cache.Backend, ValidCacheBackends)
	}
	if c.Cache.Backend == "redis" && c.Cache.RedisAddr == "" {
		return fmt.Errorf("cache redis_addr cannot be empty when cache backend is redis")
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 0-65535, 0 to disable the server)", c.Server.Port)
	}

	if !contains(ValidLogLevels, c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.Logging.Level, ValidLogLevels)
	}
	if !contains(ValidLogFormats, c.Logging.Format) {
		return fmt.Errorf("invalid log format: %s (valid: %v)", c.Logging.Format, ValidLogFormats)
	}

	if c.Schedule.IncrementalCron != "" && !gronx.IsValid(c.Schedule.IncrementalCron) {
		return fmt.Errorf("invalid schedule.incremental_cron expression: %s", c.Schedule.IncrementalCron)
	}

	if c.Auth.Enabled {
		if c.Auth.PrivateKey == "" || c.Auth.PublicKey == "" {
			return fmt.Errorf("auth.private_key and auth.public_key are required when auth is enabled")
		}
		if c.Auth.TokenExpiry < 1 {
			return fmt.Errorf("auth.token_expiry_minutes must be positive: %d", c.Auth.TokenExpiry)
		}
		if c.Auth.APITokenHash == "" {
			return fmt.Errorf("auth.api_token_hash is required when auth is enabled")
		}
	}

	return nil
}

// contains checks if a slice contains a string.
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// Default returns a default configuration for testing and documentation.
func Default() *Config {
	return defaults()
}

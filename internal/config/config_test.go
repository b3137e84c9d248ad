package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := defaults()

	assert.Equal(t, DefaultHost, cfg.Server.Host)
	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, DefaultStorePath, cfg.Store.Path)
	assert.Equal(t, DefaultChunkSize, cfg.Indexer.ChunkSize)
	assert.Equal(t, DefaultChunkOverlap, cfg.Indexer.ChunkOverlap)
	assert.Equal(t, DefaultEmbeddingModel, cfg.Embedding.Model)
	assert.Equal(t, DefaultEmbeddingDimensions, cfg.Embedding.Dimensions)
	assert.Equal(t, DefaultRerankerModel, cfg.Reranker.Model)
	assert.Equal(t, DefaultAnswerLLMBackend, cfg.AnswerLLM.Backend)
	assert.Equal(t, DefaultCacheBackend, cfg.Cache.Backend)
	assert.Equal(t, DefaultLogLevel, cfg.Logging.Level)
	assert.Equal(t, DefaultLogFormat, cfg.Logging.Format)
	assert.Equal(t, DefaultIncrementalCron, cfg.Schedule.IncrementalCron)
}

func clearNotefluxEnv(t *testing.T) {
	t.Helper()
	for _, e := range os.Environ() {
		if len(e) > len("NOTEFLUX_") && e[:len("NOTEFLUX_")] == "NOTEFLUX_" {
			key := e[:indexByte(e, '=')]
			require.NoError(t, os.Unsetenv(key))
		}
	}
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

func TestLoadEnv_OverridesOnlySetVariables(t *testing.T) {
	clearNotefluxEnv(t)
	t.Setenv("NOTEFLUX_SERVER_HOST", "127.0.0.1")
	t.Setenv("NOTEFLUX_SERVER_PORT", "9090")
	t.Setenv("NOTEFLUX_INDEXER_CHUNK_SIZE", "1024")
	t.Setenv("NOTEFLUX_LOGGING_LEVEL", "debug")
	t.Setenv("NOTEFLUX_VAULTS_EXCLUDED_FOLDERS", "archive/,templates/")

	cfg, err := loadEnv(defaults())
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 1024, cfg.Indexer.ChunkSize)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, []string{"archive/", "templates/"}, cfg.Vaults.ExcludedFolders)

	// Untouched fields keep their defaults.
	assert.Equal(t, DefaultChunkOverlap, cfg.Indexer.ChunkOverlap)
	assert.Equal(t, DefaultLogFormat, cfg.Logging.Format)
}

func TestLoadFile_ParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "noteflux.yaml")
	yamlContent := `
vaults:
  work: /home/user/vaults/work
  personal: /home/user/vaults/personal
indexer:
  chunk_size: 800
  chunk_overlap: 80
logging:
  level: warn
  format: text
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o600))

	cfg, err := loadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/home/user/vaults/work", cfg.Vaults.Work)
	assert.Equal(t, "/home/user/vaults/personal", cfg.Vaults.Personal)
	assert.Equal(t, 800, cfg.Indexer.ChunkSize)
	assert.Equal(t, 80, cfg.Indexer.ChunkOverlap)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoadFile_RejectsUnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "noteflux.toml")
	require.NoError(t, os.WriteFile(path, []byte("vaults = {}"), 0o600))

	_, err := loadFile(path)
	assert.Error(t, err)
}

func TestMerge_PrefersNonZeroOverrideValues(t *testing.T) {
	base := defaults()
	base.Vaults.Work = "/base/work"

	override := &Config{}
	override.Vaults.Personal = "/override/personal"
	override.Logging.Level = "error"

	merged := merge(base, override)

	assert.Equal(t, "/base/work", merged.Vaults.Work)
	assert.Equal(t, "/override/personal", merged.Vaults.Personal)
	assert.Equal(t, "error", merged.Logging.Level)
	assert.Equal(t, DefaultLogFormat, merged.Logging.Format)
}

func TestValidate_RequiresAtLeastOneVault(t *testing.T) {
	cfg := defaults()
	cfg.Store.Path = DefaultStorePath
	err := cfg.Validate()
	assert.ErrorContains(t, err, "vaults")
}

func TestValidate_RejectsChunkOverlapGreaterThanChunkSize(t *testing.T) {
	cfg := defaults()
	cfg.Vaults.Work = "/vault"
	cfg.Indexer.ChunkSize = 100
	cfg.Indexer.ChunkOverlap = 200

	err := cfg.Validate()
	assert.ErrorContains(t, err, "chunk overlap")
}

func TestValidate_RejectsUnknownAnswerLLMBackend(t *testing.T) {
	cfg := defaults()
	cfg.Vaults.Work = "/vault"
	cfg.AnswerLLM.Backend = "unknown"

	err := cfg.Validate()
	assert.ErrorContains(t, err, "answer_llm backend")
}

func TestValidate_RequiresRedisAddrWhenCacheBackendIsRedis(t *testing.T) {
	cfg := defaults()
	cfg.Vaults.Work = "/vault"
	cfg.Cache.Backend = "redis"

	err := cfg.Validate()
	assert.ErrorContains(t, err, "redis_addr")
}

func TestValidate_RejectsInvalidCronExpression(t *testing.T) {
	cfg := defaults()
	cfg.Vaults.Work = "/vault"
	cfg.Schedule.IncrementalCron = "not a cron expression"

	err := cfg.Validate()
	assert.ErrorContains(t, err, "incremental_cron")
}

func TestValidate_AcceptsWellFormedConfig(t *testing.T) {
	cfg := defaults()
	cfg.Vaults.Work = "/vault/work"
	cfg.Vaults.Personal = "/vault/personal"

	assert.NoError(t, cfg.Validate())
}

func TestDefault_MatchesDefaults(t *testing.T) {
	assert.Equal(t, defaults(), Default())
}

func TestValidate_RequiresKeysAndTokenHashWhenAuthEnabled(t *testing.T) {
	cfg := defaults()
	cfg.Vaults.Work = "/vault"
	cfg.Auth.Enabled = true

	err := cfg.Validate()
	assert.ErrorContains(t, err, "private_key")

	cfg.Auth.PrivateKey = "priv"
	cfg.Auth.PublicKey = "pub"
	err = cfg.Validate()
	assert.ErrorContains(t, err, "api_token_hash")

	cfg.Auth.APITokenHash = "$2a$10$fakehash"
	assert.NoError(t, cfg.Validate())
}

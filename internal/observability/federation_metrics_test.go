package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestRegistry() prometheus.Registerer {
	return prometheus.NewRegistry()
}

// TestNewHybridSearchMetrics tests hybrid search metrics creation.
// NewHybridSearchMetrics registers on the default registry; reg is not passed to it.
func TestNewHybridSearchMetrics(t *testing.T) {
	reg := createTestRegistry()

	fm := NewHybridSearchMetrics("test")
	require.NotNil(t, fm)

	assert.NotNil(t, fm.HybridSearchesTotal)
	assert.NotNil(t, fm.HybridSearchDuration)
	assert.NotNil(t, fm.HybridSearchResults)
	assert.NotNil(t, fm.VaultSearchesTotal)
	assert.NotNil(t, fm.VaultSearchDuration)
	assert.NotNil(t, fm.VaultErrorsTotal)
	assert.NotNil(t, fm.ResultMergeDuration)

	_ = reg // suppress unused warning
}

func TestRecordHybridSearch(t *testing.T) {
	fm := NewHybridSearchMetrics("test_hybrid_search")

	fm.RecordHybridSearch("success", 500*time.Millisecond, 42)
	fm.RecordHybridSearch("success", 1*time.Second, 35)
	fm.RecordHybridSearch("error", 100*time.Millisecond, 0)
}

func TestRecordVaultSearch(t *testing.T) {
	fm := NewHybridSearchMetrics("test_vault_search")

	fm.RecordVaultSearch("work", "success", 100*time.Millisecond, 10)
	fm.RecordVaultSearch("personal", "success", 500*time.Millisecond, 25)
	fm.RecordVaultSearch("work", "error", 50*time.Millisecond, 0)
}

func TestRecordVaultError(t *testing.T) {
	fm := NewHybridSearchMetrics("test_vault_error")

	fm.RecordVaultError("work", "timeout")
	fm.RecordVaultError("personal", "store_error")
	fm.RecordVaultError("work", "parse_error")
}

func TestRecordVaultTimeout(t *testing.T) {
	fm := NewHybridSearchMetrics("test_vault_timeout")

	fm.RecordVaultTimeout("work")
	fm.RecordVaultTimeout("personal")
}

func TestUpdateVaultSuccessRate(t *testing.T) {
	fm := NewHybridSearchMetrics("test_success_rate")

	tests := []struct {
		name string
		rate float64
	}{
		{"valid rate 0", 0.0},
		{"valid rate 0.5", 0.5},
		{"valid rate 1", 1.0},
		{"clamp negative", -0.5},
		{"clamp above 1", 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fm.UpdateVaultSuccessRate("work", tt.rate)
		})
	}
}

func TestRecordMergeDuration(t *testing.T) {
	fm := NewHybridSearchMetrics("test_merge_duration")

	fm.RecordMergeDuration(10 * time.Millisecond)
	fm.RecordMergeDuration(50 * time.Millisecond)
	fm.RecordMergeDuration(100 * time.Millisecond)
}

func TestRecordDeduplicationDuration(t *testing.T) {
	fm := NewHybridSearchMetrics("test_dedup_duration")

	fm.RecordDeduplicationDuration(5 * time.Millisecond)
	fm.RecordDeduplicationDuration(15 * time.Millisecond)
}

func TestRecordScoreNormalizationDuration(t *testing.T) {
	fm := NewHybridSearchMetrics("test_score_norm_duration")

	fm.RecordScoreNormalizationDuration(2 * time.Millisecond)
	fm.RecordScoreNormalizationDuration(5 * time.Millisecond)
}

func TestRecordMergedResults(t *testing.T) {
	fm := NewHybridSearchMetrics("test_merged_results")

	fm.RecordMergedResults("before_merge", 150)
	fm.RecordMergedResults("after_merge", 120)
	fm.RecordMergedResults("after_rerank", 20)
}

func TestRecordDeduplicationRatio(t *testing.T) {
	fm := NewHybridSearchMetrics("test_dedup_ratio")

	tests := []struct {
		name  string
		ratio float64
	}{
		{"zero ratio", 0.0},
		{"20% dedup", 0.2},
		{"50% dedup", 0.5},
		{"100% dedup", 1.0},
		{"negative clamped", -0.5},
		{"above 1 clamped", 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fm.RecordDeduplicationRatio(tt.ratio)
		})
	}
}

func TestUpdateActiveVaults(t *testing.T) {
	fm := NewHybridSearchMetrics("test_active_vaults")

	fm.UpdateActiveVaults(0)
	fm.UpdateActiveVaults(1)
	fm.UpdateActiveVaults(2)
}

func TestUpdateParallelExecutionEfficiency(t *testing.T) {
	fm := NewHybridSearchMetrics("test_parallel_efficiency")

	tests := []struct {
		name       string
		efficiency float64
	}{
		{"zero efficiency", 0.0},
		{"50% efficiency", 0.5},
		{"100% efficiency", 1.0},
		{"clamped negative", -0.5},
		{"clamped above 1", 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fm.UpdateParallelExecutionEfficiency(tt.efficiency)
		})
	}
}

func TestHybridSearchMetricsIntegration(t *testing.T) {
	// Simulates a complete hybrid search workflow across both vaults.
	fm := NewHybridSearchMetrics("test_hybrid_integration")

	fm.UpdateActiveVaults(2)

	fm.RecordVaultSearch("work", "success", 100*time.Millisecond, 50)
	fm.RecordVaultSearch("personal", "success", 150*time.Millisecond, 40)

	fm.RecordMergedResults("before_merge", 90)
	fm.RecordMergeDuration(15 * time.Millisecond)

	fm.RecordMergedResults("after_merge", 80)
	fm.RecordDeduplicationDuration(8 * time.Millisecond)
	fm.RecordDeduplicationRatio(0.111) // 10/90

	fm.RecordScoreNormalizationDuration(5 * time.Millisecond)

	fm.RecordHybridSearch("success", 250*time.Millisecond, 20)

	fm.UpdateVaultSuccessRate("work", 0.95)
	fm.UpdateVaultSuccessRate("personal", 0.90)

	// Sequential would be 100+150=250ms, parallel was 150ms (max of two),
	// so efficiency = 250/(2*150) ~= 0.83.
	fm.UpdateParallelExecutionEfficiency(0.83)

	// All operations should complete without panic.
}

func TestHybridSearchMetricsWithErrorCases(t *testing.T) {
	fm := NewHybridSearchMetrics("test_hybrid_errors")

	fm.RecordVaultError("work", "timeout")
	fm.RecordVaultError("personal", "store_error")

	fm.RecordVaultTimeout("work")

	fm.UpdateVaultSuccessRate("work", 0.5)
	fm.UpdateVaultSuccessRate("personal", 0.8)

	fm.RecordHybridSearch("partial_error", 2*time.Second, 15)

	// All operations should complete without panic.
}

// TestHybridSearchMetricsFieldTypes validates that all metrics have the correct types.
func TestHybridSearchMetricsFieldTypes(t *testing.T) {
	fm := NewHybridSearchMetrics("test_types")

	// Counter vectors
	assert.NotNil(t, fm.HybridSearchesTotal)
	assert.NotNil(t, fm.VaultSearchesTotal)
	assert.NotNil(t, fm.VaultErrorsTotal)
	assert.NotNil(t, fm.VaultTimeouts)

	// Histograms
	assert.NotNil(t, fm.HybridSearchDuration)
	assert.NotNil(t, fm.HybridSearchResults)
	assert.NotNil(t, fm.VaultSearchDuration)
	assert.NotNil(t, fm.VaultSearchResults)
	assert.NotNil(t, fm.ResultMergeDuration)
	assert.NotNil(t, fm.ResultDeduplicationDuration)
	assert.NotNil(t, fm.ScoreNormalizationDuration)
	assert.NotNil(t, fm.VaultExecutionTime)

	// Gauge vectors
	assert.NotNil(t, fm.VaultSuccessRate)

	// Gauges
	assert.NotNil(t, fm.ActiveVaults)
	assert.NotNil(t, fm.ParallelExecutionEfficiency)
}

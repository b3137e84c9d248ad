// Package observability provides Prometheus metrics, OpenTelemetry tracing,
// and structured logging for Noteflux.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HybridSearchMetrics holds Prometheus metrics for the hybrid search pipeline:
// vector and BM25 results gathered per vault, then merged, deduplicated, and
// score-normalized into a single ranked list.
type HybridSearchMetrics struct {
	// Hybrid search metrics (the merged result across both methods and vaults)
	HybridSearchesTotal          *prometheus.CounterVec
	HybridSearchDuration         *prometheus.HistogramVec
	HybridSearchResults          prometheus.Histogram
	HybridMergedResultsCount     *prometheus.HistogramVec
	HybridDeduplicationRatio     prometheus.Histogram

	// Per-vault metrics
	VaultSearchesTotal  *prometheus.CounterVec
	VaultSearchDuration *prometheus.HistogramVec
	VaultSearchResults  *prometheus.HistogramVec
	VaultErrorsTotal    *prometheus.CounterVec
	VaultTimeouts       *prometheus.CounterVec
	VaultSuccessRate    *prometheus.GaugeVec

	// Result processing metrics
	ResultMergeDuration         prometheus.Histogram
	ResultDeduplicationDuration prometheus.Histogram
	ScoreNormalizationDuration  prometheus.Histogram

	// Vault pool metrics
	ActiveVaults                prometheus.Gauge
	VaultExecutionTime          *prometheus.HistogramVec
	ParallelExecutionEfficiency prometheus.Gauge
}

// NewHybridSearchMetrics creates and registers all hybrid-search-related metrics.
func NewHybridSearchMetrics(namespace string) *HybridSearchMetrics {
	if namespace == "" {
		namespace = "noteflux"
	}

	return &HybridSearchMetrics{
		HybridSearchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "hybrid_searches_total",
				Help:      "Total number of hybrid searches by status",
			},
			[]string{"status"},
		),
		HybridSearchDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "hybrid_search_duration_seconds",
				Help:      "Hybrid search duration in seconds by phase",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"phase"},
		),
		HybridSearchResults: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "hybrid_search_results_count",
				Help:      "Number of results returned by hybrid search",
				Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
			},
		),
		HybridMergedResultsCount: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "hybrid_merged_results_count",
				Help:      "Number of results before and after merging vector and BM25 rankings",
				Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
			},
			[]string{"stage"},
		),
		HybridDeduplicationRatio: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "hybrid_deduplication_ratio",
				Help:      "Ratio of duplicate chunks removed while merging vector and BM25 results (0-1)",
				Buckets:   []float64{0, 0.05, 0.1, 0.15, 0.2, 0.3, 0.5, 0.75, 1.0},
			},
		),

		VaultSearchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "vault_searches_total",
				Help:      "Total number of searches by vault and status",
			},
			[]string{"vault", "status"},
		),
		VaultSearchDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "vault_search_duration_seconds",
				Help:      "Per-vault search duration in seconds",
				Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"vault"},
		),
		VaultSearchResults: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "vault_search_results_count",
				Help:      "Number of results returned per vault",
				Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
			},
			[]string{"vault"},
		),
		VaultErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "vault_search_errors_total",
				Help:      "Total number of per-vault search errors by error type",
			},
			[]string{"vault", "error_type"},
		),
		VaultTimeouts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "vault_search_timeouts_total",
				Help:      "Total number of per-vault search timeouts",
			},
			[]string{"vault"},
		),
		VaultSuccessRate: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "vault_search_success_rate",
				Help:      "Success rate of per-vault searches (0-1)",
			},
			[]string{"vault"},
		),

		ResultMergeDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "result_merge_duration_seconds",
				Help:      "Duration of merging vector and BM25 result sets in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5},
			},
		),
		ResultDeduplicationDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "result_deduplication_duration_seconds",
				Help:      "Duration of result deduplication in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5},
			},
		),
		ScoreNormalizationDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "score_normalization_duration_seconds",
				Help:      "Duration of score normalization in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1},
			},
		),

		ActiveVaults: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_vaults",
				Help:      "Number of configured searchable vaults",
			},
		),
		VaultExecutionTime: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "vault_execution_time_seconds",
				Help:      "Execution time for individual per-vault searches",
				Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"vault"},
		),
		ParallelExecutionEfficiency: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "parallel_execution_efficiency",
				Help:      "Efficiency of parallel per-vault execution (0-1, where 1 is perfectly parallel)",
			},
		),
	}
}

// RecordHybridSearch records a completed hybrid search.
func (f *HybridSearchMetrics) RecordHybridSearch(status string, duration time.Duration, resultCount int) {
	f.HybridSearchesTotal.WithLabelValues(status).Inc()
	f.HybridSearchDuration.WithLabelValues("total").Observe(duration.Seconds())
	f.HybridSearchResults.Observe(float64(resultCount))
}

// RecordVaultSearch records a search against a single vault.
func (f *HybridSearchMetrics) RecordVaultSearch(vault, status string, duration time.Duration, resultCount int) {
	f.VaultSearchesTotal.WithLabelValues(vault, status).Inc()
	f.VaultSearchDuration.WithLabelValues(vault).Observe(duration.Seconds())
	f.VaultSearchResults.WithLabelValues(vault).Observe(float64(resultCount))
	f.VaultExecutionTime.WithLabelValues(vault).Observe(duration.Seconds())
}

// RecordVaultError records a per-vault search error.
func (f *HybridSearchMetrics) RecordVaultError(vault, errorType string) {
	f.VaultErrorsTotal.WithLabelValues(vault, errorType).Inc()
}

// RecordVaultTimeout records a per-vault search timeout.
func (f *HybridSearchMetrics) RecordVaultTimeout(vault string) {
	f.VaultTimeouts.WithLabelValues(vault).Inc()
}

// UpdateVaultSuccessRate updates the success rate for a vault.
func (f *HybridSearchMetrics) UpdateVaultSuccessRate(vault string, successRate float64) {
	f.VaultSuccessRate.WithLabelValues(vault).Set(clampRatio(successRate))
}

// RecordMergeDuration records the time taken to merge vector and BM25 results.
func (f *HybridSearchMetrics) RecordMergeDuration(duration time.Duration) {
	f.ResultMergeDuration.Observe(duration.Seconds())
}

// RecordDeduplicationDuration records the time taken to deduplicate results.
func (f *HybridSearchMetrics) RecordDeduplicationDuration(duration time.Duration) {
	f.ResultDeduplicationDuration.Observe(duration.Seconds())
}

// RecordScoreNormalizationDuration records the time taken to normalize scores.
func (f *HybridSearchMetrics) RecordScoreNormalizationDuration(duration time.Duration) {
	f.ScoreNormalizationDuration.Observe(duration.Seconds())
}

// RecordMergedResults records the number of results before and after merging.
func (f *HybridSearchMetrics) RecordMergedResults(stage string, count int) {
	f.HybridMergedResultsCount.WithLabelValues(stage).Observe(float64(count))
}

// RecordDeduplicationRatio records the ratio of duplicate chunks removed during merge.
func (f *HybridSearchMetrics) RecordDeduplicationRatio(ratio float64) {
	f.HybridDeduplicationRatio.Observe(clampRatio(ratio))
}

// UpdateActiveVaults updates the count of configured searchable vaults.
func (f *HybridSearchMetrics) UpdateActiveVaults(count int) {
	f.ActiveVaults.Set(float64(count))
}

// UpdateParallelExecutionEfficiency updates the parallel execution efficiency metric.
func (f *HybridSearchMetrics) UpdateParallelExecutionEfficiency(efficiency float64) {
	f.ParallelExecutionEfficiency.Set(clampRatio(efficiency))
}

func clampRatio(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

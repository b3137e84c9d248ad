// Package observability provides Prometheus metrics, OpenTelemetry tracing,
// and structured logging for Noteflux.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector holds all Prometheus metrics for Noteflux.
type MetricsCollector struct {
	// Server request metrics (the thin HTTP layer: search/ask/health)
	ServerRequestsTotal    *prometheus.CounterVec
	ServerRequestDuration  *prometheus.HistogramVec
	ServerRequestsInFlight *prometheus.GaugeVec
	ServerErrors           *prometheus.CounterVec

	// Indexer metrics
	IndexerOperations  *prometheus.CounterVec
	IndexerDuration    *prometheus.HistogramVec
	IndexedFilesTotal  prometheus.Counter
	IndexedChunksTotal prometheus.Counter
	IndexerErrorsTotal *prometheus.CounterVec

	// Embedding metrics
	EmbeddingRequests    *prometheus.CounterVec
	EmbeddingDuration    *prometheus.HistogramVec
	EmbeddingCacheHits   prometheus.Counter
	EmbeddingCacheMisses prometheus.Counter
	EmbeddingErrorsTotal *prometheus.CounterVec

	// Search metrics
	SearchRequests    *prometheus.CounterVec
	SearchDuration    *prometheus.HistogramVec
	SearchResults     *prometheus.HistogramVec
	SearchCacheHits   prometheus.Counter
	SearchCacheMisses prometheus.Counter

	// Reranker metrics
	RerankRequestsTotal prometheus.Counter
	RerankDuration      prometheus.Histogram
	RerankDocCount      prometheus.Histogram

	// Answer LLM metrics
	AnswerLLMRequests *prometheus.CounterVec
	AnswerLLMDuration *prometheus.HistogramVec

	// Store metrics
	VectorStoreSize prometheus.Gauge

	// System metrics
	SystemStartTime prometheus.Gauge
	SystemHealth    *prometheus.GaugeVec
}

// NewMetricsCollector creates and registers all Prometheus metrics.
func NewMetricsCollector(namespace string) *MetricsCollector {
	return NewMetricsCollectorWithRegistry(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates metrics with a specific registry (for testing).
func NewMetricsCollectorWithRegistry(namespace string, reg prometheus.Registerer) *MetricsCollector {
	if namespace == "" {
		namespace = "noteflux"
	}

	autoCounterVec := func(opts prometheus.CounterOpts, labelNames []string) *prometheus.CounterVec {
		return promauto.With(reg).NewCounterVec(opts, labelNames)
	}

	autoHistogramVec := func(opts prometheus.HistogramOpts, labelNames []string) *prometheus.HistogramVec {
		return promauto.With(reg).NewHistogramVec(opts, labelNames)
	}

	autoGaugeVec := func(opts prometheus.GaugeOpts, labelNames []string) *prometheus.GaugeVec {
		return promauto.With(reg).NewGaugeVec(opts, labelNames)
	}

	autoCounter := func(opts prometheus.CounterOpts) prometheus.Counter {
		return promauto.With(reg).NewCounter(opts)
	}

	autoHistogram := func(opts prometheus.HistogramOpts) prometheus.Histogram {
		return promauto.With(reg).NewHistogram(opts)
	}

	autoGauge := func(opts prometheus.GaugeOpts) prometheus.Gauge {
		return promauto.With(reg).NewGauge(opts)
	}

	return &MetricsCollector{
		ServerRequestsTotal: autoCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "server_requests_total",
				Help:      "Total number of HTTP server requests by route and status",
			},
			[]string{"route", "status"},
		),
		ServerRequestDuration: autoHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "server_request_duration_seconds",
				Help:      "HTTP server request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"route"},
		),
		ServerRequestsInFlight: autoGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "server_requests_in_flight",
				Help:      "Number of HTTP server requests currently being handled",
			},
			[]string{"route"},
		),
		ServerErrors: autoCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "server_errors_total",
				Help:      "Total number of HTTP server errors by route and error type",
			},
			[]string{"route", "error_type"},
		),

		IndexerOperations: autoCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "indexer_operations_total",
				Help:      "Total number of indexer operations by type and status",
			},
			[]string{"operation", "status"},
		),
		IndexerDuration: autoHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "indexer_operation_duration_seconds",
				Help:      "Indexer operation duration in seconds",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"operation"},
		),
		IndexedFilesTotal: autoCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "index_files_total",
				Help:      "Total number of files indexed",
			},
		),
		IndexedChunksTotal: autoCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "indexed_chunks_total",
				Help:      "Total number of chunks indexed",
			},
		),
		IndexerErrorsTotal: autoCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "indexer_errors_total",
				Help:      "Total number of indexer errors by type",
			},
			[]string{"error_type"},
		),

		EmbeddingRequests: autoCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "embedding_requests_total",
				Help:      "Total number of embedding requests by provider and status",
			},
			[]string{"provider", "status"},
		),
		EmbeddingDuration: autoHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "embedding_duration_seconds",
				Help:      "Embedding generation duration in seconds",
				Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"provider"},
		),
		EmbeddingCacheHits: autoCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "embedding_cache_hits_total",
				Help:      "Total number of embedding cache hits",
			},
		),
		EmbeddingCacheMisses: autoCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "embedding_cache_misses_total",
				Help:      "Total number of embedding cache misses",
			},
		),
		EmbeddingErrorsTotal: autoCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "embedding_errors_total",
				Help:      "Total number of embedding errors by provider and type",
			},
			[]string{"provider", "error_type"},
		),

		SearchRequests: autoCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "search_requests_total",
				Help:      "Total number of search requests by mode and status",
			},
			[]string{"mode", "status"},
		),
		SearchDuration: autoHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_duration_seconds",
				Help:      "Search duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"mode"},
		),
		SearchResults: autoHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_results_count",
				Help:      "Number of results returned by search",
				Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
			},
			[]string{"mode"},
		),
		SearchCacheHits: autoCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "search_cache_hits_total",
				Help:      "Total number of search cache hits",
			},
		),
		SearchCacheMisses: autoCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "search_cache_misses_total",
				Help:      "Total number of search cache misses",
			},
		),

		RerankRequestsTotal: autoCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rerank_requests_total",
				Help:      "Total number of reranking passes",
			},
		),
		RerankDuration: autoHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rerank_duration_seconds",
				Help:      "Reranking pass duration in seconds",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
			},
		),
		RerankDocCount: autoHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rerank_doc_count",
				Help:      "Number of documents reranked per pass",
				Buckets:   []float64{1, 5, 10, 25, 50, 100},
			},
		),

		AnswerLLMRequests: autoCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "answer_llm_requests_total",
				Help:      "Total number of answer LLM requests by backend and status",
			},
			[]string{"backend", "status"},
		),
		AnswerLLMDuration: autoHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "answer_llm_duration_seconds",
				Help:      "Answer LLM request duration in seconds",
				Buckets:   []float64{.25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"backend"},
		),

		VectorStoreSize: autoGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "vector_store_size_bytes",
				Help:      "Total size of the vector store in bytes",
			},
		),

		SystemStartTime: autoGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "system_start_time_seconds",
				Help:      "Unix timestamp when the system started",
			},
		),
		SystemHealth: autoGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "system_health_status",
				Help:      "System health status (1 = healthy, 0 = unhealthy)",
			},
			[]string{"component"},
		),
	}
}

// RecordServerRequest records metrics for a server request.
func (m *MetricsCollector) RecordServerRequest(route, status string, duration time.Duration) {
	m.ServerRequestsTotal.WithLabelValues(route, status).Inc()
	m.ServerRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordServerError records a server error.
func (m *MetricsCollector) RecordServerError(route, errorType string) {
	m.ServerErrors.WithLabelValues(route, errorType).Inc()
}

// TrackServerInFlight tracks in-flight server requests.
func (m *MetricsCollector) TrackServerInFlight(route string, delta float64) {
	m.ServerRequestsInFlight.WithLabelValues(route).Add(delta)
}

// RecordIndexerOperation records metrics for an indexer operation.
func (m *MetricsCollector) RecordIndexerOperation(operation, status string, duration time.Duration) {
	m.IndexerOperations.WithLabelValues(operation, status).Inc()
	m.IndexerDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordIndexedFiles increments the indexed files counter.
func (m *MetricsCollector) RecordIndexedFiles(count int) {
	m.IndexedFilesTotal.Add(float64(count))
}

// RecordIndexedChunks increments the indexed chunks counter.
func (m *MetricsCollector) RecordIndexedChunks(count int) {
	m.IndexedChunksTotal.Add(float64(count))
}

// RecordIndexerError records an indexer error.
func (m *MetricsCollector) RecordIndexerError(errorType string) {
	m.IndexerErrorsTotal.WithLabelValues(errorType).Inc()
}

// RecordEmbedding records metrics for an embedding request.
func (m *MetricsCollector) RecordEmbedding(provider, status string, duration time.Duration) {
	m.EmbeddingRequests.WithLabelValues(provider, status).Inc()
	m.EmbeddingDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordEmbeddingCacheHit records a cache hit.
func (m *MetricsCollector) RecordEmbeddingCacheHit() {
	m.EmbeddingCacheHits.Inc()
}

// RecordEmbeddingCacheMiss records a cache miss.
func (m *MetricsCollector) RecordEmbeddingCacheMiss() {
	m.EmbeddingCacheMisses.Inc()
}

// RecordEmbeddingError records an embedding error.
func (m *MetricsCollector) RecordEmbeddingError(provider, errorType string) {
	m.EmbeddingErrorsTotal.WithLabelValues(provider, errorType).Inc()
}

// RecordSearch records metrics for a search request.
func (m *MetricsCollector) RecordSearch(mode, status string, duration time.Duration, resultCount int) {
	m.SearchRequests.WithLabelValues(mode, status).Inc()
	m.SearchDuration.WithLabelValues(mode).Observe(duration.Seconds())
	m.SearchResults.WithLabelValues(mode).Observe(float64(resultCount))
}

// RecordSearchCacheHit records a search cache hit.
func (m *MetricsCollector) RecordSearchCacheHit() {
	m.SearchCacheHits.Inc()
}

// RecordSearchCacheMiss records a search cache miss.
func (m *MetricsCollector) RecordSearchCacheMiss() {
	m.SearchCacheMisses.Inc()
}

// RecordRerank records metrics for a reranking pass.
func (m *MetricsCollector) RecordRerank(docCount int, duration time.Duration) {
	m.RerankRequestsTotal.Inc()
	m.RerankDuration.Observe(duration.Seconds())
	m.RerankDocCount.Observe(float64(docCount))
}

// RecordAnswerLLM records metrics for an answer LLM request.
func (m *MetricsCollector) RecordAnswerLLM(backend, status string, duration time.Duration) {
	m.AnswerLLMRequests.WithLabelValues(backend, status).Inc()
	m.AnswerLLMDuration.WithLabelValues(backend).Observe(duration.Seconds())
}

// UpdateVectorStoreSize updates the vector store size metric.
func (m *MetricsCollector) UpdateVectorStoreSize(sizeBytes int64) {
	m.VectorStoreSize.Set(float64(sizeBytes))
}

// SetSystemStartTime sets the system start time.
func (m *MetricsCollector) SetSystemStartTime(startTime time.Time) {
	m.SystemStartTime.Set(float64(startTime.Unix()))
}

// SetComponentHealth sets the health status of a component.
func (m *MetricsCollector) SetComponentHealth(component string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	m.SystemHealth.WithLabelValues(component).Set(value)
}

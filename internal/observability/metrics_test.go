package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

// newTestMetricsCollector creates a MetricsCollector with a custom registry for testing.
func newTestMetricsCollector(t *testing.T) (*MetricsCollector, *prometheus.Registry) {
	t.Helper()

	registry := prometheus.NewRegistry()
	collector := NewMetricsCollectorWithRegistry("test", registry)
	return collector, registry
}

func TestRecordServerRequest(t *testing.T) {
	collector, _ := newTestMetricsCollector(t)

	tests := []struct {
		name      string
		route     string
		status    string
		duration  time.Duration
		wantCount float64
	}{
		{
			name:      "successful request",
			route:     "search",
			status:    "success",
			duration:  100 * time.Millisecond,
			wantCount: 1,
		},
		{
			name:      "error request",
			route:     "ask",
			status:    "error",
			duration:  50 * time.Millisecond,
			wantCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collector.RecordServerRequest(tt.route, tt.status, tt.duration)

			count := testutil.ToFloat64(collector.ServerRequestsTotal.WithLabelValues(tt.route, tt.status))
			assert.Equal(t, tt.wantCount, count)
		})
	}
}

func TestRecordServerError(t *testing.T) {
	collector, _ := newTestMetricsCollector(t)

	collector.RecordServerError("search", "timeout")

	count := testutil.ToFloat64(collector.ServerErrors.WithLabelValues("search", "timeout"))
	assert.Equal(t, float64(1), count)
}

func TestTrackServerInFlight(t *testing.T) {
	collector, _ := newTestMetricsCollector(t)

	route := "search"

	collector.TrackServerInFlight(route, 1.0)
	count := testutil.ToFloat64(collector.ServerRequestsInFlight.WithLabelValues(route))
	assert.Equal(t, float64(1), count)

	collector.TrackServerInFlight(route, -1.0)
	count = testutil.ToFloat64(collector.ServerRequestsInFlight.WithLabelValues(route))
	assert.Equal(t, float64(0), count)
}

func TestRecordIndexerOperation(t *testing.T) {
	collector, _ := newTestMetricsCollector(t)

	tests := []struct {
		name      string
		operation string
		status    string
		duration  time.Duration
		wantCount float64
	}{
		{
			name:      "successful index",
			operation: "full_reindex",
			status:    "success",
			duration:  500 * time.Millisecond,
			wantCount: 1,
		},
		{
			name:      "failed scan",
			operation: "incremental_index",
			status:    "error",
			duration:  100 * time.Millisecond,
			wantCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collector.RecordIndexerOperation(tt.operation, tt.status, tt.duration)

			count := testutil.ToFloat64(collector.IndexerOperations.WithLabelValues(tt.operation, tt.status))
			assert.Equal(t, tt.wantCount, count)
		})
	}
}

func TestRecordIndexedFiles(t *testing.T) {
	collector, _ := newTestMetricsCollector(t)

	collector.RecordIndexedFiles(5)
	count := testutil.ToFloat64(collector.IndexedFilesTotal)
	assert.Equal(t, float64(5), count)

	collector.RecordIndexedFiles(3)
	count = testutil.ToFloat64(collector.IndexedFilesTotal)
	assert.Equal(t, float64(8), count)
}

func TestRecordIndexedChunks(t *testing.T) {
	collector, _ := newTestMetricsCollector(t)

	collector.RecordIndexedChunks(100)
	count := testutil.ToFloat64(collector.IndexedChunksTotal)
	assert.Equal(t, float64(100), count)

	collector.RecordIndexedChunks(50)
	count = testutil.ToFloat64(collector.IndexedChunksTotal)
	assert.Equal(t, float64(150), count)
}

func TestRecordIndexerError(t *testing.T) {
	collector, _ := newTestMetricsCollector(t)

	errorType := "malformed_input"
	collector.RecordIndexerError(errorType)

	count := testutil.ToFloat64(collector.IndexerErrorsTotal.WithLabelValues(errorType))
	assert.Equal(t, float64(1), count)
}

func TestRecordEmbedding(t *testing.T) {
	collector, _ := newTestMetricsCollector(t)

	tests := []struct {
		name      string
		provider  string
		status    string
		duration  time.Duration
		wantCount float64
	}{
		{
			name:      "successful embedding",
			provider:  "ollama",
			status:    "success",
			duration:  50 * time.Millisecond,
			wantCount: 1,
		},
		{
			name:      "failed embedding",
			provider:  "ollama",
			status:    "error",
			duration:  20 * time.Millisecond,
			wantCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collector.RecordEmbedding(tt.provider, tt.status, tt.duration)

			count := testutil.ToFloat64(collector.EmbeddingRequests.WithLabelValues(tt.provider, tt.status))
			assert.Equal(t, tt.wantCount, count)
		})
	}
}

func TestRecordEmbeddingCache(t *testing.T) {
	collector, _ := newTestMetricsCollector(t)

	collector.RecordEmbeddingCacheHit()
	hits := testutil.ToFloat64(collector.EmbeddingCacheHits)
	assert.Equal(t, float64(1), hits)

	collector.RecordEmbeddingCacheMiss()
	misses := testutil.ToFloat64(collector.EmbeddingCacheMisses)
	assert.Equal(t, float64(1), misses)
}

func TestRecordSearchCache(t *testing.T) {
	collector, _ := newTestMetricsCollector(t)

	collector.RecordSearchCacheHit()
	hits := testutil.ToFloat64(collector.SearchCacheHits)
	assert.Equal(t, float64(1), hits)

	collector.RecordSearchCacheMiss()
	misses := testutil.ToFloat64(collector.SearchCacheMisses)
	assert.Equal(t, float64(1), misses)
}

func TestRecordEmbeddingError(t *testing.T) {
	collector, _ := newTestMetricsCollector(t)

	provider := "ollama"
	errorType := "timeout"

	collector.RecordEmbeddingError(provider, errorType)

	count := testutil.ToFloat64(collector.EmbeddingErrorsTotal.WithLabelValues(provider, errorType))
	assert.Equal(t, float64(1), count)
}

func TestRecordSearch(t *testing.T) {
	collector, _ := newTestMetricsCollector(t)

	tests := []struct {
		name        string
		mode        string
		status      string
		duration    time.Duration
		resultCount int
		wantCount   float64
	}{
		{
			name:        "successful semantic search",
			mode:        "semantic",
			status:      "success",
			duration:    25 * time.Millisecond,
			resultCount: 10,
			wantCount:   1,
		},
		{
			name:        "successful hybrid search",
			mode:        "hybrid",
			status:      "success",
			duration:    50 * time.Millisecond,
			resultCount: 25,
			wantCount:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collector.RecordSearch(tt.mode, tt.status, tt.duration, tt.resultCount)

			count := testutil.ToFloat64(collector.SearchRequests.WithLabelValues(tt.mode, tt.status))
			assert.Equal(t, tt.wantCount, count)
		})
	}
}

func TestRecordRerank(t *testing.T) {
	collector, _ := newTestMetricsCollector(t)

	collector.RecordRerank(20, 40*time.Millisecond)

	count := testutil.ToFloat64(collector.RerankRequestsTotal)
	assert.Equal(t, float64(1), count)
}

func TestRecordAnswerLLM(t *testing.T) {
	collector, _ := newTestMetricsCollector(t)

	collector.RecordAnswerLLM("openai", "success", 2*time.Second)

	count := testutil.ToFloat64(collector.AnswerLLMRequests.WithLabelValues("openai", "success"))
	assert.Equal(t, float64(1), count)
}

func TestUpdateVectorStoreSize(t *testing.T) {
	collector, _ := newTestMetricsCollector(t)

	sizeBytes := int64(1024 * 1024 * 100)
	collector.UpdateVectorStoreSize(sizeBytes)

	size := testutil.ToFloat64(collector.VectorStoreSize)
	assert.Equal(t, float64(sizeBytes), size)
}

func TestSetSystemStartTime(t *testing.T) {
	collector, _ := newTestMetricsCollector(t)

	startTime := time.Now()
	collector.SetSystemStartTime(startTime)

	value := testutil.ToFloat64(collector.SystemStartTime)
	assert.Equal(t, float64(startTime.Unix()), value)
}

func TestSetComponentHealth(t *testing.T) {
	collector, _ := newTestMetricsCollector(t)

	tests := []struct {
		name      string
		component string
		healthy   bool
		wantValue float64
	}{
		{
			name:      "healthy component",
			component: "indexer",
			healthy:   true,
			wantValue: 1.0,
		},
		{
			name:      "unhealthy component",
			component: "embedding",
			healthy:   false,
			wantValue: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collector.SetComponentHealth(tt.component, tt.healthy)

			value := testutil.ToFloat64(collector.SystemHealth.WithLabelValues(tt.component))
			assert.Equal(t, tt.wantValue, value)
		})
	}
}

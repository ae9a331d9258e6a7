package jobloader

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	// Cache metrics
	cacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jobgraph_loader_cache_hits_total",
		Help: "Total number of job graph cache hits",
	})

	cacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jobgraph_loader_cache_misses_total",
		Help: "Total number of job graph cache misses",
	})

	cacheEntriesGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "jobgraph_loader_cache_entries",
		Help: "Current number of entries in the job graph cache",
	})

	// Fetch metrics
	fetchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jobgraph_loader_fetch_duration_seconds",
		Help:    "Duration of job definition fetch operations",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~2s
	}, []string{"type", "status"})

	fetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jobgraph_loader_fetch_total",
		Help: "Total number of job definition fetch operations",
	}, []string{"type", "status"})

	// Decode metrics
	decodeErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jobgraph_loader_decode_errors_total",
		Help: "Total number of job definition documents that failed to decode",
	}, []string{"format"})
)

func init() {
	// Register all metrics with controller-runtime's registry
	metrics.Registry.MustRegister(
		cacheHitsTotal,
		cacheMissesTotal,
		cacheEntriesGauge,
		fetchDuration,
		fetchTotal,
		decodeErrorsTotal,
	)
}

// RecordCacheHit records a cache hit
func RecordCacheHit() {
	cacheHitsTotal.Inc()
}

// RecordCacheMiss records a cache miss
func RecordCacheMiss() {
	cacheMissesTotal.Inc()
}

// UpdateCacheStats updates the cache gauge
func UpdateCacheStats(entries int) {
	cacheEntriesGauge.Set(float64(entries))
}

// RecordFetch records a fetch operation
func RecordFetch(fetcherType string, status string, durationSeconds float64) {
	fetchDuration.WithLabelValues(fetcherType, status).Observe(durationSeconds)
	fetchTotal.WithLabelValues(fetcherType, status).Inc()
}

// RecordDecodeError records a document that could not be decoded
func RecordDecodeError(format Format) {
	decodeErrorsTotal.WithLabelValues(string(format)).Inc()
}

package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Histogram bucket layouts shared across subsystems.
var (
	// requestBuckets covers sub-second API calls through slow upstream
	// responses.
	requestBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

	// operationBuckets covers end-to-end operations with upstream fan-out.
	operationBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60}
)

// Metrics holds the service's Prometheus collectors, grouped by subsystem:
// searches, papers, source API traffic, caches, summaries, and discovery
// requests. Everything registers on the default registry via promauto.
type Metrics struct {
	SearchesStarted   *prometheus.CounterVec
	SearchesCompleted *prometheus.CounterVec
	SearchesFailed    *prometheus.CounterVec
	SearchDuration    *prometheus.HistogramVec
	PapersPerSearch   *prometheus.HistogramVec

	PapersDiscovered     prometheus.Counter
	PapersDuplicate      prometheus.Counter
	PapersBelowThreshold prometheus.Counter
	PapersBySource       *prometheus.CounterVec

	SourceRequestsTotal   *prometheus.CounterVec
	SourceRequestsFailed  *prometheus.CounterVec
	SourceRequestDuration *prometheus.HistogramVec
	SourceRateLimited     *prometheus.CounterVec

	// Cache collectors are labeled by cache kind ("summary", "sample").
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	SummariesGenerated      prometheus.Counter
	SummariesFallback       prometheus.Counter
	SummaryDuration         prometheus.Histogram
	GeneratorRequestsTotal  *prometheus.CounterVec
	GeneratorRequestsFailed *prometheus.CounterVec

	DiscoveryRequests prometheus.Counter
	DiscoveryDuration prometheus.Histogram
	PapersPerSample   prometheus.Histogram
}

type metricBuilder struct {
	namespace string
}

func (b metricBuilder) counter(name, help string) prometheus.Counter {
	return promauto.NewCounter(prometheus.CounterOpts{
		Namespace: b.namespace, Name: name, Help: help,
	})
}

func (b metricBuilder) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: b.namespace, Name: name, Help: help,
	}, labels)
}

func (b metricBuilder) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: b.namespace, Name: name, Help: help, Buckets: buckets,
	})
}

func (b metricBuilder) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: b.namespace, Name: name, Help: help, Buckets: buckets,
	}, labels)
}

// NewMetrics registers all collectors under the given namespace prefix.
func NewMetrics(namespace string) *Metrics {
	b := metricBuilder{namespace: namespace}

	return &Metrics{
		SearchesStarted:   b.counterVec("searches_started_total", "Total number of paper searches started by source", "source"),
		SearchesCompleted: b.counterVec("searches_completed_total", "Total number of paper searches completed by source", "source"),
		SearchesFailed:    b.counterVec("searches_failed_total", "Total number of paper searches that failed by source", "source"),
		SearchDuration: b.histogramVec("search_duration_seconds",
			"Duration of paper searches in seconds by source", operationBuckets, "source"),
		PapersPerSearch: b.histogramVec("papers_per_search",
			"Number of papers returned per search by source",
			[]float64{0, 1, 5, 10, 25, 50, 100, 200, 500}, "source"),

		PapersDiscovered:     b.counter("papers_discovered_total", "Total number of papers discovered"),
		PapersDuplicate:      b.counter("papers_duplicate_total", "Total number of duplicate papers dropped"),
		PapersBelowThreshold: b.counter("papers_below_threshold_total", "Total number of papers dropped below the citation threshold"),
		PapersBySource:       b.counterVec("papers_by_source_total", "Total number of papers discovered by source", "source"),

		SourceRequestsTotal:  b.counterVec("source_requests_total", "Total number of requests to paper sources", "source", "endpoint"),
		SourceRequestsFailed: b.counterVec("source_requests_failed_total", "Total number of failed requests to paper sources", "source", "endpoint", "error_type"),
		SourceRequestDuration: b.histogramVec("source_request_duration_seconds",
			"Duration of requests to paper sources in seconds", requestBuckets, "source", "endpoint"),
		SourceRateLimited: b.counterVec("source_rate_limited_total", "Total number of rate limit responses from paper sources", "source"),

		CacheHits:   b.counterVec("cache_hits_total", "Total number of cache hits by cache kind", "kind"),
		CacheMisses: b.counterVec("cache_misses_total", "Total number of cache misses by cache kind", "kind"),

		SummariesGenerated: b.counter("summaries_generated_total", "Total number of summaries produced by the generation backend"),
		SummariesFallback:  b.counter("summaries_fallback_total", "Total number of summaries served from the deterministic fallback"),
		SummaryDuration: b.histogram("summary_duration_seconds",
			"Duration of summary generation in seconds", operationBuckets),
		GeneratorRequestsTotal:  b.counterVec("generator_requests_total", "Total number of generation backend requests by prompt section", "section"),
		GeneratorRequestsFailed: b.counterVec("generator_requests_failed_total", "Total number of failed generation backend requests by prompt section", "section"),

		DiscoveryRequests: b.counter("discovery_requests_total", "Total number of discovery sample requests"),
		DiscoveryDuration: b.histogram("discovery_duration_seconds",
			"Duration of discovery sample requests in seconds", operationBuckets),
		PapersPerSample: b.histogram("papers_per_sample",
			"Number of papers returned per discovery sample",
			[]float64{0, 1, 2, 5, 10, 20, 50}),
	}
}

func (m *Metrics) RecordSearchStarted(source string) {
	m.SearchesStarted.WithLabelValues(source).Inc()
}

func (m *Metrics) RecordSearchCompleted(source string, paperCount int, durationSeconds float64) {
	m.SearchesCompleted.WithLabelValues(source).Inc()
	m.SearchDuration.WithLabelValues(source).Observe(durationSeconds)
	m.PapersPerSearch.WithLabelValues(source).Observe(float64(paperCount))
}

func (m *Metrics) RecordSearchFailed(source string, durationSeconds float64) {
	m.SearchesFailed.WithLabelValues(source).Inc()
	m.SearchDuration.WithLabelValues(source).Observe(durationSeconds)
}

func (m *Metrics) RecordPapersDiscovered(source string, count int) {
	m.PapersDiscovered.Add(float64(count))
	m.PapersBySource.WithLabelValues(source).Add(float64(count))
}

func (m *Metrics) RecordPaperDuplicate() {
	m.PapersDuplicate.Inc()
}

func (m *Metrics) RecordPaperBelowThreshold() {
	m.PapersBelowThreshold.Inc()
}

func (m *Metrics) RecordSourceRequest(source, endpoint string, durationSeconds float64) {
	m.SourceRequestsTotal.WithLabelValues(source, endpoint).Inc()
	m.SourceRequestDuration.WithLabelValues(source, endpoint).Observe(durationSeconds)
}

func (m *Metrics) RecordSourceRequestFailed(source, endpoint, errorType string) {
	m.SourceRequestsFailed.WithLabelValues(source, endpoint, errorType).Inc()
}

func (m *Metrics) RecordSourceRateLimited(source string) {
	m.SourceRateLimited.WithLabelValues(source).Inc()
}

func (m *Metrics) RecordCacheHit(kind string) {
	m.CacheHits.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordCacheMiss(kind string) {
	m.CacheMisses.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordSummaryGenerated(durationSeconds float64) {
	m.SummariesGenerated.Inc()
	m.SummaryDuration.Observe(durationSeconds)
}

func (m *Metrics) RecordSummaryFallback() {
	m.SummariesFallback.Inc()
}

func (m *Metrics) RecordGeneratorRequest(section string) {
	m.GeneratorRequestsTotal.WithLabelValues(section).Inc()
}

func (m *Metrics) RecordGeneratorRequestFailed(section string) {
	m.GeneratorRequestsFailed.WithLabelValues(section).Inc()
}

// RecordDiscoveryRequest records one sample request with its outcome size.
func (m *Metrics) RecordDiscoveryRequest(paperCount int, durationSeconds float64) {
	m.DiscoveryRequests.Inc()
	m.DiscoveryDuration.Observe(durationSeconds)
	m.PapersPerSample.Observe(float64(paperCount))
}

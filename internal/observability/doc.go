// Package observability bundles the logging and metrics plumbing shared by
// the discovery service: zerolog structured logging, Prometheus counters
// and histograms for searches, sources, caching and summaries, and context
// helpers for request ID propagation.
//
// A logger is built once from configuration and enriched per request:
//
//	logger := observability.NewLogger(observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	})
//	logger = observability.WithRequestContext(logger, requestID)
//
// Metrics follow the promauto pattern; NewMetrics registers everything
// under the given namespace on the default registry:
//
//	metrics := observability.NewMetrics("paper_discovery")
//	metrics.RecordSearchStarted("semantic_scholar")
//	metrics.RecordCacheHit("summary")
//
// Request IDs travel through context.Context via WithRequestID and
// RequestIDFromContext.
//
// The log field names request_id, query, source and paper_id are shared
// vocabulary across the service; the With*Context helpers attach them
// consistently. Everything in this package is safe for concurrent use.
package observability

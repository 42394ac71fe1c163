// Package cache provides the caching layer for paper summaries and
// discovery samples, backed by Redis with graceful degradation when the
// backend is unavailable.
package cache

import (
	"context"
	"time"
)

const (
	// KeyPrefix namespaces all cache keys belonging to this service.
	KeyPrefix = "paperdisc"

	// SummaryPrefix is the key prefix for generated paper summaries.
	SummaryPrefix = "summary"

	// SamplePrefix is the key prefix for cached discovery samples.
	SamplePrefix = "random_papers"

	// SummaryTTL is the default lifetime for cached summaries. Summaries
	// are deterministic per paper, so a long TTL is safe.
	SummaryTTL = 2 * time.Hour

	// SampleTTL is the default lifetime for cached discovery samples.
	// Samples are deliberately short-lived so repeat requests rotate
	// papers.
	SampleTTL = 5 * time.Minute
)

// Store is a minimal key-value store with TTL support.
//
// Get reports a miss with ok=false and a nil error; errors are reserved
// for backend failures.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	Close() error
}

// Key builds a namespaced cache key of the form "paperdisc:<prefix>:<id>".
func Key(prefix, id string) string {
	return KeyPrefix + ":" + prefix + ":" + id
}

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-discovery-service/internal/domain"
)

// PaperCacheConfig holds the expiry settings for the typed cache layer.
type PaperCacheConfig struct {
	SummaryTTL time.Duration
	SampleTTL  time.Duration
}

func (c *PaperCacheConfig) applyDefaults() {
	if c.SummaryTTL <= 0 {
		c.SummaryTTL = SummaryTTL
	}
	if c.SampleTTL <= 0 {
		c.SampleTTL = SampleTTL
	}
}

// PaperCache is the typed caching layer for summaries and discovery
// samples. Backend failures degrade to cache misses: a broken cache must
// never take the service down with it.
type PaperCache struct {
	store      Store
	summaryTTL time.Duration
	sampleTTL  time.Duration
	logger     zerolog.Logger
}

// NewPaperCache creates a PaperCache on top of the given store.
func NewPaperCache(store Store, cfg PaperCacheConfig, logger zerolog.Logger) *PaperCache {
	cfg.applyDefaults()
	return &PaperCache{
		store:      store,
		summaryTTL: cfg.SummaryTTL,
		sampleTTL:  cfg.SampleTTL,
		logger:     logger.With().Str("component", "paper_cache").Logger(),
	}
}

// SampleKey builds the cache identifier for a discovery sample request.
func SampleKey(count int, field string) string {
	return fmt.Sprintf("%d:%s", count, field)
}

// GetSummary looks up a cached summary by the paper's summary key.
func (c *PaperCache) GetSummary(ctx context.Context, key string) (*domain.Summary, bool) {
	if key == "" {
		return nil, false
	}

	data, ok, err := c.store.Get(ctx, Key(SummaryPrefix, key))
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("summary cache read failed, treating as miss")
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var summary domain.Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("corrupt summary cache entry, treating as miss")
		return nil, false
	}
	return &summary, true
}

// SetSummary caches a summary under the paper's summary key.
func (c *PaperCache) SetSummary(ctx context.Context, key string, summary *domain.Summary) {
	if key == "" || summary == nil {
		return
	}

	data, err := json.Marshal(summary)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("failed to encode summary for cache")
		return
	}

	if err := c.store.Set(ctx, Key(SummaryPrefix, key), data, c.summaryTTL); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("summary cache write failed")
	}
}

// GetSample looks up a cached discovery sample.
func (c *PaperCache) GetSample(ctx context.Context, key string) ([]*domain.Paper, bool) {
	data, ok, err := c.store.Get(ctx, Key(SamplePrefix, key))
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("sample cache read failed, treating as miss")
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var papers []*domain.Paper
	if err := json.Unmarshal(data, &papers); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("corrupt sample cache entry, treating as miss")
		return nil, false
	}
	return papers, true
}

// SetSample caches a discovery sample.
func (c *PaperCache) SetSample(ctx context.Context, key string, papers []*domain.Paper) {
	if len(papers) == 0 {
		return
	}

	data, err := json.Marshal(papers)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("failed to encode sample for cache")
		return
	}

	if err := c.store.Set(ctx, Key(SamplePrefix, key), data, c.sampleTTL); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("sample cache write failed")
	}
}

// DeleteSummaries removes all cached summaries and returns how many were
// deleted.
func (c *PaperCache) DeleteSummaries(ctx context.Context) (int, error) {
	return c.store.DeletePrefix(ctx, KeyPrefix+":"+SummaryPrefix+":")
}

// DeleteSamples removes all cached discovery samples and returns how many
// were deleted.
func (c *PaperCache) DeleteSamples(ctx context.Context) (int, error) {
	return c.store.DeletePrefix(ctx, KeyPrefix+":"+SamplePrefix+":")
}

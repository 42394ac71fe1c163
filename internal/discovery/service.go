// Package discovery aggregates scholarly papers from multiple external
// catalogs into deduplicated, citation-filtered result sets. It fans out
// searches across registered paper sources, merges heterogeneous records,
// samples random highly-cited papers, and attaches AI-generated summaries.
// Provider failures are recovered into empty candidate sets so aggregation
// never fails on upstream flakiness.
package discovery

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-discovery-service/internal/cache"
	"github.com/helixir/paper-discovery-service/internal/domain"
	"github.com/helixir/paper-discovery-service/internal/observability"
	"github.com/helixir/paper-discovery-service/internal/papersources"
	"github.com/helixir/paper-discovery-service/internal/summarize"
)

const (
	// minSampleCount and maxSampleCount bound the RandomSample count argument.
	minSampleCount = 1
	maxSampleCount = 50

	// sampleOverfetch is the acceptance multiple collected before sampling.
	sampleOverfetch = 2

	// maxPageSize is the largest page requested from the primary provider.
	maxPageSize = 200
)

// Config contains configuration for the discovery service.
type Config struct {
	// MinCitations is the citation threshold for sampled papers.
	MinCitations int

	// YearFrom restricts candidates to papers published strictly after
	// this year.
	YearFrom int

	// PrimarySource is the provider queried for random samples.
	PrimarySource domain.SourceType
}

func (c *Config) applyDefaults() {
	if c.MinCitations == 0 {
		c.MinCitations = 50
	}
	if c.YearFrom == 0 {
		c.YearFrom = 2015
	}
	if c.PrimarySource == "" {
		c.PrimarySource = domain.SourceTypeOpenAlex
	}
}

// SearchOutput is the merged result of a multi-source search.
type SearchOutput struct {
	// Papers contains the deduplicated union of all source results.
	Papers []*domain.Paper

	// TotalBySource counts accepted papers per source.
	TotalBySource map[domain.SourceType]int

	// FailedSources lists sources whose searches failed. Failures are
	// recovered; the merged result simply omits their papers.
	FailedSources []domain.SourceType
}

// Service aggregates papers across registered sources.
type Service struct {
	registry   *papersources.Registry
	summarizer *summarize.Summarizer
	cache      *cache.PaperCache
	metrics    *observability.Metrics
	config     Config
	logger     zerolog.Logger
}

// NewService creates a new discovery Service. The summarizer and cache may
// be nil, disabling summary attachment and sample caching respectively.
func NewService(registry *papersources.Registry, summarizer *summarize.Summarizer, paperCache *cache.PaperCache, metrics *observability.Metrics, cfg Config, logger zerolog.Logger) *Service {
	cfg.applyDefaults()

	return &Service{
		registry:   registry,
		summarizer: summarizer,
		cache:      paperCache,
		metrics:    metrics,
		config:     cfg,
		logger:     logger.With().Str("component", "discovery").Logger(),
	}
}

// RandomSample returns count random highly-cited papers, optionally
// restricted to a field of study. Fewer than count papers is a valid
// result when not enough candidates pass the filters.
func (s *Service) RandomSample(ctx context.Context, count int, field string) ([]*domain.Paper, error) {
	if count < minSampleCount || count > maxSampleCount {
		return nil, domain.NewValidationError("count",
			fmt.Sprintf("must be between %d and %d", minSampleCount, maxSampleCount))
	}

	start := time.Now()
	key := cache.SampleKey(count, field)

	if s.cache != nil {
		if papers, ok := s.cache.GetSample(ctx, key); ok {
			s.recordCacheHit("sample")
			return papers, nil
		}
		s.recordCacheMiss("sample")
	}

	candidates := s.collectCandidates(ctx, count, field)
	sample := samplePapers(candidates, count)

	if s.summarizer != nil {
		s.summarizer.Attach(ctx, sample)
	}

	if s.cache != nil {
		s.cache.SetSample(ctx, key, sample)
	}

	if s.metrics != nil {
		s.metrics.RecordDiscoveryRequest(len(sample), time.Since(start).Seconds())
	}

	s.logger.Info().
		Int("requested", count).
		Str("field", field).
		Int("candidates", len(candidates)).
		Int("sampled", len(sample)).
		Msg("random sample assembled")

	return sample, nil
}

// collectCandidates pages through the primary provider until enough
// deduplicated, threshold-passing papers are accepted. Provider errors are
// logged and produce a short result, never an error.
func (s *Service) collectCandidates(ctx context.Context, count int, field string) []*domain.Paper {
	source := s.registry.Get(s.config.PrimarySource)
	if source == nil || !source.IsEnabled() {
		s.logger.Warn().
			Str("source", string(s.config.PrimarySource)).
			Msg("primary source unavailable")
		return nil
	}

	conceptID, query := resolveField(field)
	log := observability.WithSearchContext(s.logger, query, source.Name())

	wanted := count * sampleOverfetch
	target := count * 10
	if target < maxPageSize {
		target = maxPageSize
	}

	params := papersources.SearchParams{
		Query:           query,
		Field:           conceptID,
		YearFrom:        s.config.YearFrom,
		MinCitations:    s.config.MinCitations,
		MaxResults:      maxPageSize,
		SortByCitations: true,
	}

	set := newCandidateSet(s.config.MinCitations)
	fetched := 0

	s.recordSearchStarted(source.Name())
	searchStart := time.Now()

	for set.size() < wanted && fetched < target {
		result, err := source.Search(ctx, params)
		if err != nil {
			log.Warn().Err(err).Msg("candidate search failed")
			s.recordSearchFailed(source.Name(), time.Since(searchStart).Seconds())
			return set.accepted
		}

		if len(result.Papers) == 0 {
			break
		}
		fetched += len(result.Papers)

		for _, paper := range result.Papers {
			s.recordRejection(set.add(paper))
			if set.size() >= wanted {
				break
			}
		}

		if !result.HasMore {
			break
		}
		params.Offset = result.NextOffset
	}

	s.recordSearchCompleted(source.Name(), set.size(), time.Since(searchStart).Seconds())
	s.recordPapersDiscovered(source.Name(), set.size())

	return set.accepted
}

// Search fans the query out to the named sources, deduplicates across
// sources, and merges the results. A nil or empty sources list queries every
// enabled source. Individual source failures are recovered and reported in
// the output.
func (s *Service) Search(ctx context.Context, params papersources.SearchParams, sources []domain.SourceType) (*SearchOutput, error) {
	for _, st := range sources {
		if !st.IsValid() {
			return nil, domain.NewValidationError("sources", "unknown paper source: "+string(st))
		}
	}

	if len(sources) == 0 {
		for _, source := range s.registry.EnabledSources() {
			s.recordSearchStarted(source.Name())
		}
	} else {
		for _, st := range sources {
			s.recordSearchStarted(string(st))
		}
	}

	results := s.registry.SearchSources(ctx, params, sources)

	// Stable merge order regardless of goroutine completion order.
	sort.Slice(results, func(i, j int) bool {
		return results[i].Source < results[j].Source
	})

	output := &SearchOutput{
		TotalBySource: make(map[domain.SourceType]int),
	}
	set := newCandidateSet(params.MinCitations)

	for _, result := range results {
		if result.Error != nil {
			s.logger.Warn().
				Err(result.Error).
				Str("source", string(result.Source)).
				Msg("source search failed")
			s.recordSearchFailed(string(result.Source), 0)
			output.FailedSources = append(output.FailedSources, result.Source)
			continue
		}

		accepted := 0
		for _, paper := range result.Result.Papers {
			if s.recordRejection(set.add(paper)) {
				accepted++
			}
		}

		output.TotalBySource[result.Source] = accepted
		s.recordSearchCompleted(string(result.Source), accepted, result.Result.SearchDuration.Seconds())
		s.recordPapersDiscovered(string(result.Source), accepted)
	}

	output.Papers = set.accepted
	return output, nil
}

// GetPaper retrieves a single paper from the named source and attaches a
// summary.
func (s *Service) GetPaper(ctx context.Context, sourceType domain.SourceType, id string) (*domain.Paper, error) {
	if !sourceType.IsValid() {
		return nil, domain.NewValidationError("source", "unknown paper source")
	}

	source := s.registry.Get(sourceType)
	if source == nil {
		return nil, domain.NewNotFoundError("source", string(sourceType))
	}

	paper, err := source.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.summarizer != nil {
		paper.Summary = s.summarizer.Summarize(ctx, paper)
	}

	paperLogger := observability.WithPaperContext(s.logger, paper.CanonicalID(), id)
	paperLogger.Debug().
		Str("source", string(sourceType)).
		Msg("paper retrieved")

	return paper, nil
}

// samplePapers returns a uniform random sample of count papers. The input
// is returned whole (reshuffled) when it holds count or fewer papers.
func samplePapers(papers []*domain.Paper, count int) []*domain.Paper {
	shuffled := make([]*domain.Paper, len(papers))
	copy(shuffled, papers)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	if len(shuffled) > count {
		return shuffled[:count]
	}
	return shuffled
}

// recordRejection updates metrics for a dedup outcome and reports whether
// the paper was accepted.
func (s *Service) recordRejection(reason rejectReason) bool {
	switch reason {
	case rejectNone:
		return true
	case rejectDuplicate:
		if s.metrics != nil {
			s.metrics.RecordPaperDuplicate()
		}
	case rejectBelowThreshold:
		if s.metrics != nil {
			s.metrics.RecordPaperBelowThreshold()
		}
	}
	return false
}

func (s *Service) recordSearchStarted(source string) {
	if s.metrics != nil {
		s.metrics.RecordSearchStarted(source)
	}
}

func (s *Service) recordSearchCompleted(source string, papers int, seconds float64) {
	if s.metrics != nil {
		s.metrics.RecordSearchCompleted(source, papers, seconds)
	}
}

func (s *Service) recordSearchFailed(source string, seconds float64) {
	if s.metrics != nil {
		s.metrics.RecordSearchFailed(source, seconds)
	}
}

func (s *Service) recordPapersDiscovered(source string, count int) {
	if s.metrics != nil {
		s.metrics.RecordPapersDiscovered(source, count)
	}
}

func (s *Service) recordCacheHit(kind string) {
	if s.metrics != nil {
		s.metrics.RecordCacheHit(kind)
	}
}

func (s *Service) recordCacheMiss(kind string) {
	if s.metrics != nil {
		s.metrics.RecordCacheMiss(kind)
	}
}

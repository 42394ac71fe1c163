package papersources

import (
	"context"
	"sync"

	"github.com/helixir/paper-discovery-service/internal/domain"
)

// SourceResult is the outcome of one source's search. Exactly one of
// Result and Error is set.
type SourceResult struct {
	Source domain.SourceType
	Result *SearchResult
	Error  error
}

// Registry holds the configured paper sources and fans searches out
// across them. All methods are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	sources map[domain.SourceType]PaperSource
}

func NewRegistry() *Registry {
	return &Registry{sources: make(map[domain.SourceType]PaperSource)}
}

// Register adds a source, replacing any previous source of the same type.
func (r *Registry) Register(source PaperSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[source.SourceType()] = source
}

// Get returns the source registered for sourceType, or nil.
func (r *Registry) Get(sourceType domain.SourceType) PaperSource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sources[sourceType]
}

// AllSources returns a snapshot of every registered source.
func (r *Registry) AllSources() []PaperSource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]PaperSource, 0, len(r.sources))
	for _, source := range r.sources {
		all = append(all, source)
	}
	return all
}

// EnabledSources returns a snapshot of the sources reporting IsEnabled.
func (r *Registry) EnabledSources() []PaperSource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	enabled := make([]PaperSource, 0, len(r.sources))
	for _, source := range r.sources {
		if source.IsEnabled() {
			enabled = append(enabled, source)
		}
	}
	return enabled
}

// SearchAll queries every enabled source concurrently. Failures are
// reported per source rather than aborting the whole fan-out.
func (r *Registry) SearchAll(ctx context.Context, params SearchParams) []SourceResult {
	return r.SearchSources(ctx, params, nil)
}

// SearchSources queries the named sources concurrently. A nil or empty
// sourceTypes means every enabled source; requested types with no
// registered source are skipped. Each source contributes one
// SourceResult, error or not, so callers see partial failures.
func (r *Registry) SearchSources(ctx context.Context, params SearchParams, sourceTypes []domain.SourceType) []SourceResult {
	targets := r.selectSources(sourceTypes)
	if len(targets) == 0 {
		return nil
	}

	results := make(chan SourceResult, len(targets))
	var wg sync.WaitGroup
	for _, source := range targets {
		wg.Add(1)
		go func(s PaperSource) {
			defer wg.Done()
			res, err := s.Search(ctx, params)
			results <- SourceResult{Source: s.SourceType(), Result: res, Error: err}
		}(source)
	}
	wg.Wait()
	close(results)

	collected := make([]SourceResult, 0, len(targets))
	for res := range results {
		collected = append(collected, res)
	}
	return collected
}

func (r *Registry) selectSources(sourceTypes []domain.SourceType) []PaperSource {
	if len(sourceTypes) == 0 {
		return r.EnabledSources()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	targets := make([]PaperSource, 0, len(sourceTypes))
	for _, st := range sourceTypes {
		if source, ok := r.sources[st]; ok {
			targets = append(targets, source)
		}
	}
	return targets
}

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-discovery-service/internal/cache"
	"github.com/helixir/paper-discovery-service/internal/discovery"
	"github.com/helixir/paper-discovery-service/internal/domain"
	"github.com/helixir/paper-discovery-service/internal/papersources"
)

// fakeSource is a scripted paper source for handler tests.
type fakeSource struct {
	sourceType domain.SourceType
	enabled    bool
	papers     []*domain.Paper
	byID       map[string]*domain.Paper
	searchErr  error
	getErr     error
}

func (f *fakeSource) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return &papersources.SearchResult{
		Papers:       f.papers,
		TotalResults: len(f.papers),
		Source:       f.sourceType,
	}, nil
}

func (f *fakeSource) GetByID(ctx context.Context, id string) (*domain.Paper, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if paper, ok := f.byID[id]; ok {
		return paper, nil
	}
	return nil, domain.NewNotFoundError("paper", id)
}

func (f *fakeSource) SourceType() domain.SourceType { return f.sourceType }
func (f *fakeSource) Name() string                  { return string(f.sourceType) }
func (f *fakeSource) IsEnabled() bool               { return f.enabled }

// memStore is an in-memory cache.Store for handler tests.
type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[key]
	return data, ok, nil
}

func (m *memStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := 0
	for key := range m.data {
		if strings.HasPrefix(key, prefix) {
			delete(m.data, key)
			deleted++
		}
	}
	return deleted, nil
}

func (m *memStore) Close() error { return nil }

func makePaper(title, doi string, citations int) *domain.Paper {
	return &domain.Paper{
		Title:         title,
		DOI:           doi,
		CitationCount: citations,
		Source:        domain.SourceTypeOpenAlex,
	}
}

func makeCorpus(n, citations int) []*domain.Paper {
	papers := make([]*domain.Paper, n)
	for i := range papers {
		papers[i] = makePaper(fmt.Sprintf("Paper %d", i), fmt.Sprintf("10.1234/paper.%d", i), citations)
	}
	return papers
}

// newTestServer wires the handler stack over the given sources and store.
func newTestServer(t *testing.T, store cache.Store, sources ...papersources.PaperSource) (*Server, *httptest.Server) {
	t.Helper()

	registry := papersources.NewRegistry()
	for _, source := range sources {
		registry.Register(source)
	}

	paperCache := cache.NewPaperCache(store, cache.PaperCacheConfig{}, zerolog.Nop())
	svc := discovery.NewService(registry, nil, nil, nil, discovery.Config{}, zerolog.Nop())

	s := NewServer(Config{Address: "127.0.0.1:0"}, svc, paperCache, registry, zerolog.Nop())
	ts := httptest.NewServer(s.router)
	t.Cleanup(ts.Close)
	return s, ts
}

func getJSON(t *testing.T, url string, out interface{}) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestGetRandomPapers(t *testing.T) {
	t.Run("returns requested number of papers", func(t *testing.T) {
		source := &fakeSource{
			sourceType: domain.SourceTypeOpenAlex,
			enabled:    true,
			papers:     makeCorpus(40, 100),
		}
		_, ts := newTestServer(t, newMemStore(), source)

		var body randomPapersResponse
		resp := getJSON(t, ts.URL+"/api/v1/papers/random?count=5", &body)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, 5, body.Count)
		require.Len(t, body.Papers, 5)
		for _, p := range body.Papers {
			assert.NotEmpty(t, p.Title)
			assert.GreaterOrEqual(t, p.CitationCount, 50)
		}
	})

	t.Run("defaults to ten papers", func(t *testing.T) {
		source := &fakeSource{
			sourceType: domain.SourceTypeOpenAlex,
			enabled:    true,
			papers:     makeCorpus(40, 100),
		}
		_, ts := newTestServer(t, newMemStore(), source)

		var body randomPapersResponse
		resp := getJSON(t, ts.URL+"/api/v1/papers/random", &body)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, 10, body.Count)
	})

	t.Run("rejects out-of-range count", func(t *testing.T) {
		_, ts := newTestServer(t, newMemStore(), &fakeSource{sourceType: domain.SourceTypeOpenAlex, enabled: true})

		for _, count := range []string{"0", "51", "-3"} {
			resp := getJSON(t, ts.URL+"/api/v1/papers/random?count="+count, nil)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "count=%s", count)
		}
	})

	t.Run("rejects non-numeric count", func(t *testing.T) {
		_, ts := newTestServer(t, newMemStore(), &fakeSource{sourceType: domain.SourceTypeOpenAlex, enabled: true})

		resp := getJSON(t, ts.URL+"/api/v1/papers/random?count=many", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("upstream failure yields empty result, not an error", func(t *testing.T) {
		source := &fakeSource{
			sourceType: domain.SourceTypeOpenAlex,
			enabled:    true,
			searchErr:  errors.New("upstream down"),
		}
		_, ts := newTestServer(t, newMemStore(), source)

		var body randomPapersResponse
		resp := getJSON(t, ts.URL+"/api/v1/papers/random?count=5", &body)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, 0, body.Count)
	})
}

func TestSearchPapers(t *testing.T) {
	t.Run("merges results across sources", func(t *testing.T) {
		openalex := &fakeSource{
			sourceType: domain.SourceTypeOpenAlex,
			enabled:    true,
			papers:     []*domain.Paper{makePaper("Shared Paper", "10.1/shared", 10)},
		}
		crossref := &fakeSource{
			sourceType: domain.SourceTypeCrossref,
			enabled:    true,
			papers: []*domain.Paper{
				makePaper("Shared Paper", "10.1/SHARED", 10),
				makePaper("Crossref Only", "10.1/cr", 5),
			},
		}
		_, ts := newTestServer(t, newMemStore(), openalex, crossref)

		var body searchPapersResponse
		resp := getJSON(t, ts.URL+"/api/v1/papers/search?q=paper", &body)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, 2, body.TotalCount)
		assert.Empty(t, body.FailedSources)
	})

	t.Run("requires a query", func(t *testing.T) {
		_, ts := newTestServer(t, newMemStore(), &fakeSource{sourceType: domain.SourceTypeOpenAlex, enabled: true})

		resp := getJSON(t, ts.URL+"/api/v1/papers/search", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("restricts to requested sources", func(t *testing.T) {
		openalex := &fakeSource{
			sourceType: domain.SourceTypeOpenAlex,
			enabled:    true,
			papers:     []*domain.Paper{makePaper("OpenAlex Paper", "10.1/oa", 5)},
		}
		crossref := &fakeSource{
			sourceType: domain.SourceTypeCrossref,
			enabled:    true,
			papers:     []*domain.Paper{makePaper("Crossref Paper", "10.1/cr", 5)},
		}
		_, ts := newTestServer(t, newMemStore(), openalex, crossref)

		var body searchPapersResponse
		resp := getJSON(t, ts.URL+"/api/v1/papers/search?q=paper&sources=crossref", &body)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		require.Len(t, body.Papers, 1)
		assert.Equal(t, "Crossref Paper", body.Papers[0].Title)
	})

	t.Run("rejects unknown source", func(t *testing.T) {
		_, ts := newTestServer(t, newMemStore(), &fakeSource{sourceType: domain.SourceTypeOpenAlex, enabled: true})

		resp := getJSON(t, ts.URL+"/api/v1/papers/search?q=paper&sources=google_scholar", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("rejects malformed filters", func(t *testing.T) {
		_, ts := newTestServer(t, newMemStore(), &fakeSource{sourceType: domain.SourceTypeOpenAlex, enabled: true})

		for _, query := range []string{
			"q=paper&limit=zero",
			"q=paper&offset=-1",
			"q=paper&year_from=recent",
			"q=paper&min_citations=-5",
		} {
			resp := getJSON(t, ts.URL+"/api/v1/papers/search?"+query, nil)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "query %q", query)
		}
	})

	t.Run("reports failed sources", func(t *testing.T) {
		healthy := &fakeSource{
			sourceType: domain.SourceTypeOpenAlex,
			enabled:    true,
			papers:     []*domain.Paper{makePaper("Fine Paper", "10.1/fine", 5)},
		}
		broken := &fakeSource{
			sourceType: domain.SourceTypeCrossref,
			enabled:    true,
			searchErr:  errors.New("timeout"),
		}
		_, ts := newTestServer(t, newMemStore(), healthy, broken)

		var body searchPapersResponse
		resp := getJSON(t, ts.URL+"/api/v1/papers/search?q=paper", &body)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, []string{"crossref"}, body.FailedSources)
		assert.Equal(t, 1, body.TotalCount)
	})
}

func TestGetPaper(t *testing.T) {
	source := &fakeSource{
		sourceType: domain.SourceTypeOpenAlex,
		enabled:    true,
		byID: map[string]*domain.Paper{
			"W123": makePaper("Known Paper", "10.1/known", 12),
		},
	}

	t.Run("returns the paper", func(t *testing.T) {
		_, ts := newTestServer(t, newMemStore(), source)

		var body paperResponse
		resp := getJSON(t, ts.URL+"/api/v1/papers/openalex/W123", &body)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Known Paper", body.Title)
		assert.Equal(t, "doi:10.1/known", body.CanonicalID)
	})

	t.Run("unknown source name yields 400", func(t *testing.T) {
		_, ts := newTestServer(t, newMemStore(), source)

		resp := getJSON(t, ts.URL+"/api/v1/papers/bogus/W123", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unregistered source yields 404", func(t *testing.T) {
		_, ts := newTestServer(t, newMemStore(), source)

		resp := getJSON(t, ts.URL+"/api/v1/papers/crossref/W123", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("missing paper yields 404", func(t *testing.T) {
		_, ts := newTestServer(t, newMemStore(), source)

		resp := getJSON(t, ts.URL+"/api/v1/papers/openalex/W999", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("throttled source yields 429", func(t *testing.T) {
		throttled := &fakeSource{
			sourceType: domain.SourceTypeOpenAlex,
			enabled:    true,
			getErr:     fmt.Errorf("executing request: %w", domain.NewRateLimitError("api.openalex.org", time.Second)),
		}
		_, ts := newTestServer(t, newMemStore(), throttled)

		resp := getJSON(t, ts.URL+"/api/v1/papers/openalex/W123", nil)
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	})
}

func TestClearCacheEndpoints(t *testing.T) {
	seedStore := func(t *testing.T) *memStore {
		t.Helper()
		store := newMemStore()
		ctx := context.Background()
		require.NoError(t, store.Set(ctx, cache.Key(cache.SummaryPrefix, "1706.03762"), []byte("{}"), 0))
		require.NoError(t, store.Set(ctx, cache.Key(cache.SummaryPrefix, "1801.00001"), []byte("{}"), 0))
		require.NoError(t, store.Set(ctx, cache.Key(cache.SamplePrefix, "5:"), []byte("[]"), 0))
		return store
	}

	doDelete := func(t *testing.T, url string) (*http.Response, clearCacheResponse) {
		t.Helper()
		req, err := http.NewRequest(http.MethodDelete, url, nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		var body clearCacheResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return resp, body
	}

	t.Run("clears summaries", func(t *testing.T) {
		store := seedStore(t)
		_, ts := newTestServer(t, store, &fakeSource{sourceType: domain.SourceTypeOpenAlex, enabled: true})

		resp, body := doDelete(t, ts.URL+"/api/v1/cache/summaries")

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, 2, body.Deleted)
		assert.Len(t, store.data, 1)
	})

	t.Run("clears samples", func(t *testing.T) {
		store := seedStore(t)
		_, ts := newTestServer(t, store, &fakeSource{sourceType: domain.SourceTypeOpenAlex, enabled: true})

		resp, body := doDelete(t, ts.URL+"/api/v1/cache/samples")

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, 1, body.Deleted)
		assert.Len(t, store.data, 2)
	})
}

func TestHealthEndpoints(t *testing.T) {
	t.Run("healthz is always ok", func(t *testing.T) {
		_, ts := newTestServer(t, newMemStore())

		resp := getJSON(t, ts.URL+"/healthz", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("readyz reports enabled sources", func(t *testing.T) {
		_, ts := newTestServer(t, newMemStore(),
			&fakeSource{sourceType: domain.SourceTypeOpenAlex, enabled: true},
			&fakeSource{sourceType: domain.SourceTypeArXiv, enabled: false},
		)

		var body map[string]interface{}
		resp := getJSON(t, ts.URL+"/readyz", &body)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "ready", body["status"])
		assert.Equal(t, []interface{}{"openalex"}, body["sources"])
	})

	t.Run("readyz without enabled sources is not ready", func(t *testing.T) {
		_, ts := newTestServer(t, newMemStore(),
			&fakeSource{sourceType: domain.SourceTypeArXiv, enabled: false},
		)

		resp := getJSON(t, ts.URL+"/readyz", nil)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})
}

func TestCorrelationIDMiddleware(t *testing.T) {
	t.Run("generates a correlation ID", func(t *testing.T) {
		_, ts := newTestServer(t, newMemStore())

		resp := getJSON(t, ts.URL+"/healthz", nil)
		assert.NotEmpty(t, resp.Header.Get("X-Correlation-ID"))
	})

	t.Run("echoes a provided correlation ID", func(t *testing.T) {
		_, ts := newTestServer(t, newMemStore())

		req, err := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
		require.NoError(t, err)
		req.Header.Set("X-Correlation-ID", "abc-123")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, "abc-123", resp.Header.Get("X-Correlation-ID"))
	})
}

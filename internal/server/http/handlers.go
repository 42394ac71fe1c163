package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/helixir/paper-discovery-service/internal/domain"
	"github.com/helixir/paper-discovery-service/internal/papersources"
)

// Query parameter bounds.
const (
	defaultSampleCount = 10
	defaultSearchLimit = 20
	maxSearchLimit     = 100
	maxQueryLength     = 1000
)

// getRandomPapers handles GET /api/v1/papers/random.
// It returns a random sample of highly cited papers, optionally restricted
// to a subject field. Each paper carries a generated summary.
func (s *Server) getRandomPapers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	count := defaultSampleCount
	if countStr := r.URL.Query().Get("count"); countStr != "" {
		parsed, err := strconv.Atoi(countStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "count must be an integer")
			return
		}
		count = parsed
	}

	field := strings.TrimSpace(r.URL.Query().Get("field"))
	if len(field) > maxQueryLength {
		writeError(w, http.StatusBadRequest, "field is too long")
		return
	}

	papers, err := s.discovery.RandomSample(ctx, count, field)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, randomPapersResponse{
		Papers: domainPapersToResponses(papers),
		Count:  len(papers),
		Field:  field,
	})
}

// searchPapers handles GET /api/v1/papers/search.
// It fans the query out to the requested sources (all enabled sources by
// default), deduplicates across sources, and returns the merged results.
func (s *Server) searchPapers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	if len(query) > maxQueryLength {
		writeError(w, http.StatusBadRequest, "q is too long")
		return
	}

	params := papersources.SearchParams{
		Query:      query,
		MaxResults: defaultSearchLimit,
	}

	if limitStr := q.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if limit > maxSearchLimit {
			limit = maxSearchLimit
		}
		params.MaxResults = limit
	}
	if offsetStr := q.Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		params.Offset = offset
	}
	if yearStr := q.Get("year_from"); yearStr != "" {
		year, err := strconv.Atoi(yearStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "year_from must be an integer")
			return
		}
		params.YearFrom = year
	}
	if yearStr := q.Get("year_to"); yearStr != "" {
		year, err := strconv.Atoi(yearStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "year_to must be an integer")
			return
		}
		params.YearTo = year
	}
	if minStr := q.Get("min_citations"); minStr != "" {
		minCitations, err := strconv.Atoi(minStr)
		if err != nil || minCitations < 0 {
			writeError(w, http.StatusBadRequest, "min_citations must be a non-negative integer")
			return
		}
		params.MinCitations = minCitations
	}
	if q.Get("open_access") == "true" {
		params.OpenAccessOnly = true
	}
	if q.Get("sort") == "citations" {
		params.SortByCitations = true
	}

	var sources []domain.SourceType
	if sourcesParam := q.Get("sources"); sourcesParam != "" {
		for _, name := range strings.Split(sourcesParam, ",") {
			sources = append(sources, domain.SourceType(strings.TrimSpace(name)))
		}
	}

	output, err := s.discovery.Search(ctx, params, sources)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	totalBySource := make(map[string]int, len(output.TotalBySource))
	for source, count := range output.TotalBySource {
		totalBySource[string(source)] = count
	}
	failedSources := make([]string, len(output.FailedSources))
	for i, source := range output.FailedSources {
		failedSources[i] = string(source)
	}

	writeJSON(w, http.StatusOK, searchPapersResponse{
		Papers:        domainPapersToResponses(output.Papers),
		TotalCount:    len(output.Papers),
		TotalBySource: totalBySource,
		FailedSources: failedSources,
	})
}

// getPaper handles GET /api/v1/papers/{source}/{paperID}.
// It retrieves a single paper from the named source with a generated summary.
func (s *Server) getPaper(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sourceType := domain.SourceType(chi.URLParam(r, "source"))
	paperID := chi.URLParam(r, "paperID")
	if paperID == "" {
		writeError(w, http.StatusBadRequest, "paper ID is required")
		return
	}

	paper, err := s.discovery.GetPaper(ctx, sourceType, paperID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, domainPaperToResponse(paper))
}

// clearSummaryCache handles DELETE /api/v1/cache/summaries.
func (s *Server) clearSummaryCache(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.paperCache.DeleteSummaries(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, clearCacheResponse{Deleted: deleted})
}

// clearSampleCache handles DELETE /api/v1/cache/samples.
func (s *Server) clearSampleCache(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.paperCache.DeleteSamples(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, clearCacheResponse{Deleted: deleted})
}

// writeDomainError maps domain errors to appropriate HTTP status codes and
// writes a JSON error response. Internal error details are not leaked to
// clients.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	var apiErr *domain.ExternalAPIError

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
		} else {
			writeError(w, http.StatusBadRequest, "invalid input")
		}
	case errors.Is(err, domain.ErrNotFound):
		var nfe *domain.NotFoundError
		if errors.As(err, &nfe) {
			writeError(w, http.StatusNotFound, nfe.Error())
		} else {
			writeError(w, http.StatusNotFound, "resource not found")
		}
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate limited by upstream source")
	case errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	case errors.As(err, &apiErr):
		writeError(w, http.StatusBadGateway, "upstream source error")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

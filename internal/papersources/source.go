// Package papersources defines the PaperSource abstraction over external
// scholarly catalogs and the shared plumbing its clients are built on: a
// rate-limited, retrying HTTP client and a registry that fans searches out
// concurrently.
//
// Each catalog (arXiv, Crossref, OpenAlex, Semantic Scholar) lives in its
// own subpackage and implements PaperSource:
//
//	source := openalex.New(cfg)
//	result, err := source.Search(ctx, papersources.SearchParams{
//		Query:      "CRISPR gene editing",
//		MaxResults: 100,
//	})
package papersources

import (
	"context"
	"time"

	"github.com/helixir/paper-discovery-service/internal/domain"
)

// SearchParams is the catalog-independent search request. Zero values mean
// "no constraint" throughout.
type SearchParams struct {
	// Query is the free-text query. "*" (or empty) means match-all where
	// the catalog supports wildcard searches.
	Query string

	// Field restricts results to a subject area. Clients translate it into
	// their native category or concept vocabulary; clients with no such
	// vocabulary fold it into the free-text query.
	Field string

	// YearFrom keeps papers published strictly after this year.
	YearFrom int

	// YearTo keeps papers published in or before this year.
	YearTo int

	// MaxResults caps the page size. Catalogs apply their own hard caps on
	// top; 0 uses the client's default.
	MaxResults int

	// Offset is the pagination start position.
	Offset int

	// OpenAccessOnly keeps only openly accessible papers.
	OpenAccessOnly bool

	// MinCitations keeps papers with at least this many citations.
	MinCitations int

	// SortByCitations asks for citation-count-descending order from
	// catalogs that sort server-side.
	SortByCitations bool
}

// SearchResult is one page of results from a single catalog.
type SearchResult struct {
	Papers []*domain.Paper

	// TotalResults is the catalog's reported match count across all pages.
	// Large counts may be estimates.
	TotalResults int

	// HasMore reports whether another page exists; NextOffset is the
	// Offset to request it with, meaningful only when HasMore is true.
	HasMore    bool
	NextOffset int

	Source domain.SourceType

	// SearchDuration covers the network round trip and response parsing.
	SearchDuration time.Duration
}

// PaperSource is implemented by every catalog client. Implementations
// honor context cancellation, rate-limit their own traffic, and convert
// catalog records into domain.Paper values.
type PaperSource interface {
	// Search returns one page of papers matching params.
	Search(ctx context.Context, params SearchParams) (*SearchResult, error)

	// GetByID resolves a catalog-specific identifier (DOI, arXiv ID,
	// OpenAlex work ID) to a single paper. Missing papers yield an error
	// satisfying errors.Is(err, domain.ErrNotFound).
	GetByID(ctx context.Context, id string) (*domain.Paper, error)

	// SourceType identifies the catalog for attribution and routing.
	SourceType() domain.SourceType

	// Name is the human-readable catalog name used in logs and metrics.
	Name() string

	// IsEnabled reports whether the client may be queried. Sources are
	// disabled by configuration or missing credentials.
	IsEnabled() bool
}

package crossref

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/paper-discovery-service/internal/domain"
	"github.com/helixir/paper-discovery-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default Crossref API base URL.
	DefaultBaseURL = "https://api.crossref.org"

	// DefaultRateLimit is the default rate limit for requests per second.
	// Crossref's polite pool (with mailto) tolerates higher rates.
	DefaultRateLimit = 5.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 5

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum results per request.
	DefaultMaxResults = 25

	// sourceName is the human-readable name for this source.
	sourceName = "Crossref"
)

// jatsTagRegex strips JATS XML markup from Crossref abstracts.
var jatsTagRegex = regexp.MustCompile(`<[^>]+>`)

// Config holds configuration for the Crossref client.
type Config struct {
	// BaseURL is the Crossref API base URL.
	BaseURL string

	// Email is the contact email for the polite pool.
	// Providing an email routes requests to less loaded servers.
	Email string

	// Timeout is the request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxResults is the maximum results to return per search request.
	// Crossref caps rows at 1000 per request.
	MaxResults int

	// Enabled indicates whether this source is enabled for searches.
	Enabled bool
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
	if c.MaxResults == 0 {
		c.MaxResults = DefaultMaxResults
	}
}

// Client implements the papersources.PaperSource interface for Crossref.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

// Ensure Client implements PaperSource interface.
var _ papersources.PaperSource = (*Client)(nil)

// New creates a new Crossref client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	userAgent := "Helixir-PaperDiscovery/1.0"
	if cfg.Email != "" {
		userAgent += " (mailto:" + cfg.Email + ")"
	}

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		UserAgent: userAgent,
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewWithHTTPClient creates a new Crossref client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Search queries Crossref for works matching the given parameters.
//
// Crossref cannot filter by citation count server side, so MinCitations is
// applied to the returned page before results are handed back.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	startTime := time.Now()

	searchURL, err := c.buildSearchURL(params)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, domain.NewExternalAPIError(
			sourceName,
			resp.StatusCode,
			string(body),
			nil,
		)
	}

	// Parse the response (limit body to 10MB to prevent resource exhaustion).
	var searchResp SearchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	papers := make([]*domain.Paper, 0, len(searchResp.Message.Items))
	for i := range searchResp.Message.Items {
		paper := itemToPaper(&searchResp.Message.Items[i])
		if paper == nil {
			continue
		}
		if params.MinCitations > 0 && paper.CitationCount < params.MinCitations {
			continue
		}
		papers = append(papers, paper)
	}

	nextOffset := params.Offset + len(searchResp.Message.Items)
	hasMore := nextOffset < searchResp.Message.TotalResults

	return &papersources.SearchResult{
		Papers:         papers,
		TotalResults:   searchResp.Message.TotalResults,
		HasMore:        hasMore,
		NextOffset:     nextOffset,
		Source:         domain.SourceTypeCrossref,
		SearchDuration: time.Since(startTime),
	}, nil
}

// GetByID retrieves a specific work by its DOI.
func (c *Client) GetByID(ctx context.Context, id string) (*domain.Paper, error) {
	doi := domain.NormalizeDOI(id)
	if doi == "" {
		return nil, domain.NewValidationError("id", "a DOI is required")
	}

	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}

	baseURL.Path = "/works/" + doi
	if c.config.Email != "" {
		query := url.Values{}
		query.Set("mailto", c.config.Email)
		baseURL.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.NewNotFoundError("paper", id)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, domain.NewExternalAPIError(
			sourceName,
			resp.StatusCode,
			string(body),
			nil,
		)
	}

	var workResp WorkResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&workResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	paper := itemToPaper(&workResp.Message)
	if paper == nil {
		return nil, domain.NewNotFoundError("paper", id)
	}

	return paper, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeCrossref
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// buildSearchURL constructs the works search URL with query parameters.
func (c *Client) buildSearchURL(params papersources.SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	baseURL.Path = "/works"

	query := url.Values{}

	// Query term. Crossref has no subject filter on /works, so a field
	// constraint folds into the bibliographic query.
	q := params.Query
	if q == "*" {
		q = ""
	}
	if params.Field != "" {
		if q == "" {
			q = params.Field
		} else {
			q = q + " " + params.Field
		}
	}
	if q != "" {
		query.Set("query", q)
	}

	filters := c.buildFilters(params)
	if len(filters) > 0 {
		query.Set("filter", strings.Join(filters, ","))
	}

	maxResults := params.MaxResults
	if maxResults == 0 {
		maxResults = c.config.MaxResults
	}
	if maxResults > 1000 {
		maxResults = 1000 // Crossref API limit
	}
	query.Set("rows", strconv.Itoa(maxResults))

	if params.Offset > 0 {
		query.Set("offset", strconv.Itoa(params.Offset))
	}

	if params.SortByCitations {
		query.Set("sort", "is-referenced-by-count")
		query.Set("order", "desc")
	}

	// Add mailto for polite pool
	if c.config.Email != "" {
		query.Set("mailto", c.config.Email)
	}

	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}

// buildFilters constructs the filter query string components.
func (c *Client) buildFilters(params papersources.SearchParams) []string {
	var filters []string

	// Year range filters. YearFrom is an exclusive lower bound.
	if params.YearFrom > 0 {
		filters = append(filters, fmt.Sprintf("from-pub-date:%d-01-01", params.YearFrom+1))
	}
	if params.YearTo > 0 {
		filters = append(filters, fmt.Sprintf("until-pub-date:%d-12-31", params.YearTo))
	}

	if params.OpenAccessOnly {
		filters = append(filters, "has-license:true")
	}

	return filters
}

// itemToPaper converts a Crossref work item to a domain Paper.
// Returns nil when the item has no usable title.
func itemToPaper(item *Item) *domain.Paper {
	if item == nil {
		return nil
	}

	var title string
	if len(item.Title) > 0 {
		title = strings.TrimSpace(item.Title[0])
	}
	if title == "" {
		return nil
	}

	doi := domain.NormalizeDOI(item.DOI)

	// Extract publication date from the first available date field
	pubDate, pubYear := extractDate(item)

	// Extract authors
	authors := make([]domain.Author, 0, len(item.Authors))
	for _, a := range item.Authors {
		name := authorName(a)
		if name == "" {
			continue
		}
		author := domain.Author{
			Name:  name,
			ORCID: normalizeORCID(a.ORCID),
		}
		if len(a.Affiliation) > 0 {
			author.Affiliation = a.Affiliation[0].Name
		}
		authors = append(authors, author)
	}

	var venue string
	if len(item.ContainerTitle) > 0 {
		venue = item.ContainerTitle[0]
	}

	// Prefer a PDF link when one is advertised
	var pdfURL string
	for _, link := range item.Links {
		if link.ContentType == "application/pdf" {
			pdfURL = link.URL
			break
		}
	}

	return &domain.Paper{
		Title:           title,
		DOI:             doi,
		Abstract:        stripJATS(item.Abstract),
		Authors:         authors,
		PublicationDate: pubDate,
		PublicationYear: pubYear,
		Venue:           venue,
		Publisher:       item.Publisher,
		FieldsOfStudy:   item.Subject,
		CitationCount:   item.CitedByCount,
		ReferenceCount:  item.ReferencesCount,
		IsOpenAccess:    len(item.License) > 0,
		PDFURL:          pdfURL,
		HTMLURL:         item.URL,
		Source:          domain.SourceTypeCrossref,
	}
}

// extractDate picks the most specific publication date available on an item.
func extractDate(item *Item) (*time.Time, int) {
	for _, dp := range []*DateParts{item.Published, item.PublishedPrint, item.PublishedOnline, item.Issued} {
		if t, year, ok := parseDateParts(dp); ok {
			return t, year
		}
	}
	return nil, 0
}

// parseDateParts converts Crossref's date-parts format to a time.Time.
// Partial dates (year only, year and month) default missing parts to 1.
func parseDateParts(dp *DateParts) (*time.Time, int, bool) {
	if dp == nil || len(dp.DateParts) == 0 || len(dp.DateParts[0]) == 0 {
		return nil, 0, false
	}

	parts := dp.DateParts[0]
	year := parts[0]
	if year <= 0 {
		return nil, 0, false
	}

	month := 1
	if len(parts) > 1 && parts[1] >= 1 && parts[1] <= 12 {
		month = parts[1]
	}
	day := 1
	if len(parts) > 2 && parts[2] >= 1 && parts[2] <= 31 {
		day = parts[2]
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return &t, year, true
}

// authorName builds a display name from the given and family name fields.
func authorName(a Author) string {
	given := strings.TrimSpace(a.Given)
	family := strings.TrimSpace(a.Family)

	switch {
	case given != "" && family != "":
		return given + " " + family
	case family != "":
		return family
	case given != "":
		return given
	default:
		// Organizational authors carry a single name field
		return strings.TrimSpace(a.Name)
	}
}

// normalizeORCID strips any URL prefixes from ORCID identifiers.
func normalizeORCID(orcid string) string {
	if orcid == "" {
		return ""
	}
	orcid = strings.TrimPrefix(orcid, "https://orcid.org/")
	orcid = strings.TrimPrefix(orcid, "http://orcid.org/")
	return strings.TrimSpace(orcid)
}

// stripJATS removes JATS XML markup from Crossref abstracts and
// collapses the remaining whitespace.
func stripJATS(abstract string) string {
	if abstract == "" {
		return ""
	}
	stripped := jatsTagRegex.ReplaceAllString(abstract, " ")
	return strings.Join(strings.Fields(stripped), " ")
}

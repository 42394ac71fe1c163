package arxiv

import (
	"context"
	"encoding/xml"
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
	DefaultBaseURL    = "https://export.arxiv.org/api"
	DefaultTimeout    = 30 * time.Second
	DefaultMaxResults = 100

	// arXiv asks automated clients to stay at or under 1 request per 3
	// seconds sustained; short bursts at 3/s are tolerated.
	DefaultRateLimit = 3.0
	DefaultBurstSize = 3

	sourceName = "arXiv"

	errorBodyLimit = 1 << 20
	maxBodyBytes   = 10 << 20
)

// arxivIDRegex pulls the ID out of entry URLs such as
// "http://arxiv.org/abs/2301.12345v1" or "http://arxiv.org/abs/hep-th/9901001v1",
// dropping the version suffix.
var arxivIDRegex = regexp.MustCompile(`arxiv\.org/abs/(.+?)(?:v\d+)?$`)

// categoryRegex matches category identifiers like "cs.AI" or "hep-th".
var categoryRegex = regexp.MustCompile(`^[a-z-]+(\.[A-Za-z-]+)?$`)

// Config holds the arXiv client settings. Zero fields (except Enabled)
// fall back to the Default* constants.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	RateLimit  float64
	BurstSize  int
	MaxResults int
	Enabled    bool
}

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

// Client queries the arXiv export API.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

var _ papersources.PaperSource = (*Client)(nil)

// New builds an arXiv client with its own rate-limited HTTP client.
func New(cfg Config) *Client {
	cfg.applyDefaults()
	return &Client{
		config: cfg,
		httpClient: papersources.NewHTTPClient(papersources.HTTPClientConfig{
			Timeout:   cfg.Timeout,
			RateLimit: cfg.RateLimit,
			BurstSize: cfg.BurstSize,
			UserAgent: "Helixir-PaperDiscovery/1.0",
		}),
	}
}

// NewWithHTTPClient builds a client around an externally managed HTTP
// client, mainly for tests.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{config: cfg, httpClient: httpClient}
}

func (c *Client) SourceType() domain.SourceType { return domain.SourceTypeArXiv }
func (c *Client) Name() string                  { return sourceName }
func (c *Client) IsEnabled() bool               { return c.config.Enabled }

// Search runs one page of a query. arXiv carries no citation metadata, so
// MinCitations and SortByCitations are ignored; callers filter by citations
// after normalization.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	start := time.Now()

	searchURL, err := c.buildSearchURL(params)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	feed, err := c.fetchFeed(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	papers := make([]*domain.Paper, 0, len(feed.Entries))
	for i := range feed.Entries {
		if paper := entryToPaper(&feed.Entries[i]); paper != nil {
			papers = append(papers, paper)
		}
	}

	// Advance by the raw entry count so entries dropped in conversion do
	// not shift the next start window back over this page.
	nextOffset := params.Offset + len(feed.Entries)
	return &papersources.SearchResult{
		Papers:         papers,
		TotalResults:   feed.TotalResults,
		HasMore:        nextOffset < feed.TotalResults,
		NextOffset:     nextOffset,
		Source:         domain.SourceTypeArXiv,
		SearchDuration: time.Since(start),
	}, nil
}

// GetByID fetches a single paper via the id_list parameter. The export API
// returns 200 with an empty feed for unknown IDs, which maps to not-found.
func (c *Client) GetByID(ctx context.Context, id string) (*domain.Paper, error) {
	fetchURL, err := c.queryURL(url.Values{"id_list": {id}})
	if err != nil {
		return nil, err
	}

	feed, err := c.fetchFeed(ctx, fetchURL)
	if err != nil {
		return nil, err
	}

	if len(feed.Entries) == 0 {
		return nil, domain.NewNotFoundError("paper", id)
	}
	paper := entryToPaper(&feed.Entries[0])
	if paper == nil {
		return nil, domain.NewNotFoundError("paper", id)
	}
	return paper, nil
}

// fetchFeed executes a GET and decodes the Atom feed.
func (c *Client) fetchFeed(ctx context.Context, u string) (*atomFeed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	var feed atomFeed
	if err := xml.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &feed, nil
}

// queryURL renders the /query endpoint URL with the given parameters.
func (c *Client) queryURL(query url.Values) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}
	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/query"
	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}

func (c *Client) buildSearchURL(params papersources.SearchParams) (string, error) {
	maxResults := params.MaxResults
	if maxResults == 0 {
		maxResults = c.config.MaxResults
	}

	query := url.Values{}
	query.Set("search_query", buildSearchQuery(params))
	query.Set("max_results", strconv.Itoa(maxResults))
	if params.Offset > 0 {
		query.Set("start", strconv.Itoa(params.Offset))
	}
	query.Set("sortBy", "submittedDate")
	query.Set("sortOrder", "descending")

	return c.queryURL(query)
}

// buildSearchQuery renders the search_query expression. The discovery layer
// passes an arXiv category (e.g. "cs.AI") as the field; free-text subjects
// fold into the all: term instead.
func buildSearchQuery(params papersources.SearchParams) string {
	var terms []string

	matchAll := params.Query == "" || params.Query == "*"
	if !matchAll {
		terms = append(terms, "all:"+params.Query)
	}

	if params.Field != "" {
		switch {
		case IsCategory(params.Field):
			terms = append(terms, "cat:"+params.Field)
		case matchAll:
			terms = append(terms, "all:"+params.Field)
		}
	}

	if dateFilter := buildDateFilter(params.YearFrom, params.YearTo); dateFilter != "" {
		terms = append(terms, dateFilter)
	}

	if len(terms) == 0 {
		return "all:*"
	}
	return strings.Join(terms, " AND ")
}

// buildDateFilter renders the submittedDate range. yearFrom is an
// exclusive lower bound on the publication year.
func buildDateFilter(yearFrom, yearTo int) string {
	if yearFrom <= 0 && yearTo <= 0 {
		return ""
	}

	from, to := "*", "*"
	if yearFrom > 0 {
		from = fmt.Sprintf("%d01010000", yearFrom+1)
	}
	if yearTo > 0 {
		to = fmt.Sprintf("%d12312359", yearTo)
	}
	return fmt.Sprintf("submittedDate:[%s TO %s]", from, to)
}

// IsCategory reports whether s looks like an arXiv category identifier
// such as "cs.AI", "stat.ML" or "hep-th".
func IsCategory(s string) bool {
	return categoryRegex.MatchString(s)
}

// entryToPaper converts an Atom entry into a domain paper. Returns nil when
// the entry lacks a title or a recognizable arXiv ID.
func entryToPaper(entry *atomEntry) *domain.Paper {
	if entry == nil {
		return nil
	}

	arxivID := extractArXivID(entry.ID)
	if arxivID == "" {
		return nil
	}
	// arXiv pads titles and abstracts with newlines and indentation.
	title := normalizeWhitespace(entry.Title)
	if title == "" {
		return nil
	}

	var pubDate *time.Time
	var pubYear int
	if t, err := time.Parse(time.RFC3339, entry.Published); err == nil {
		pubDate = &t
		pubYear = t.Year()
	}

	authors := make([]domain.Author, 0, len(entry.Authors))
	for _, a := range entry.Authors {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			continue
		}
		authors = append(authors, domain.Author{
			Name:        name,
			Affiliation: strings.TrimSpace(a.Affiliation),
		})
	}

	fields := make([]string, 0, len(entry.Categories))
	for _, cat := range entry.Categories {
		if cat.Term != "" {
			fields = append(fields, cat.Term)
		}
	}

	pdfURL, htmlURL := entryURLs(entry, arxivID)

	return &domain.Paper{
		Title:           title,
		DOI:             domain.NormalizeDOI(entry.DOI),
		ArXivID:         arxivID,
		Abstract:        normalizeWhitespace(entry.Summary),
		Authors:         authors,
		PublicationDate: pubDate,
		PublicationYear: pubYear,
		Venue:           strings.TrimSpace(entry.JournalRef),
		FieldsOfStudy:   fields,
		IsOpenAccess:    true,
		PDFURL:          pdfURL,
		HTMLURL:         htmlURL,
		Source:          domain.SourceTypeArXiv,
	}
}

// entryURLs picks the PDF and abstract-page links, falling back to the
// canonical arxiv.org URL patterns when the feed omits them.
func entryURLs(entry *atomEntry, arxivID string) (pdfURL, htmlURL string) {
	for _, link := range entry.Links {
		switch {
		case link.Title == "pdf" || link.Type == "application/pdf":
			pdfURL = link.Href
		case link.Rel == "alternate" && link.Type == "text/html":
			htmlURL = link.Href
		}
	}
	if pdfURL == "" {
		pdfURL = "http://arxiv.org/pdf/" + arxivID
	}
	if htmlURL == "" {
		htmlURL = "http://arxiv.org/abs/" + arxivID
	}
	return pdfURL, htmlURL
}

// extractArXivID turns "http://arxiv.org/abs/2301.12345v1" into "2301.12345".
func extractArXivID(entryURL string) string {
	matches := arxivIDRegex.FindStringSubmatch(entryURL)
	if len(matches) < 2 {
		return ""
	}
	return matches[1]
}

// normalizeWhitespace trims s and collapses runs of whitespace, newlines
// included, into single spaces.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

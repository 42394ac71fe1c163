package semanticscholar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/paper-discovery-service/internal/domain"
	"github.com/helixir/paper-discovery-service/internal/papersources"
)

const (
	DefaultBaseURL    = "https://api.semanticscholar.org/graph/v1"
	DefaultTimeout    = 30 * time.Second
	DefaultBurstSize  = 10
	DefaultMaxResults = 100

	// DefaultRateLimit suits unauthenticated access (100 requests per
	// 5 minutes shared pool); raise it when an API key is configured.
	DefaultRateLimit = 10.0

	apiKeyHeader = "x-api-key"
	sourceName   = "Semantic Scholar"

	// paperFields selects the record fields the converter consumes. The
	// API returns only paperId and title unless asked for more.
	paperFields = "paperId,externalIds,title,abstract,year,publicationDate,venue,journal,authors,citationCount,referenceCount,isOpenAccess,openAccessPdf,fieldsOfStudy"

	errorBodyLimit = 1 << 20
	maxBodyBytes   = 10 << 20
)

// Config holds the Semantic Scholar client settings. Zero fields (except
// APIKey and Enabled) fall back to the Default* constants.
type Config struct {
	BaseURL string

	// APIKey authenticates requests for higher rate limits. Optional.
	APIKey string

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

// Client queries the Semantic Scholar Graph API.
type Client struct {
	httpClient *papersources.HTTPClient
	config     Config
}

var _ papersources.PaperSource = (*Client)(nil)

// NewClient builds a Semantic Scholar client. A nil httpClient gets
// replaced with a rate-limited client derived from cfg.
func NewClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()

	if httpClient == nil {
		httpClient = papersources.NewHTTPClient(papersources.HTTPClientConfig{
			Timeout:      cfg.Timeout,
			RateLimit:    cfg.RateLimit,
			BurstSize:    cfg.BurstSize,
			APIKey:       cfg.APIKey,
			APIKeyHeader: apiKeyHeader,
			UserAgent:    "Helixir-PaperDiscovery/1.0",
		})
	}

	return &Client{httpClient: httpClient, config: cfg}
}

func (c *Client) SourceType() domain.SourceType { return domain.SourceTypeSemanticScholar }
func (c *Client) Name() string                  { return sourceName }
func (c *Client) IsEnabled() bool               { return c.config.Enabled }

// Search runs one page of a relevance search. The endpoint has no
// server-side sort, so SortByCitations is ignored.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	start := time.Now()

	searchURL, err := c.buildSearchURL(params)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	var page SearchResponse
	if err := c.getJSON(ctx, searchURL, &page); err != nil {
		return nil, err
	}

	papers := make([]*domain.Paper, 0, len(page.Data))
	for _, result := range page.Data {
		if paper := c.convertToPaper(result); paper != nil {
			papers = append(papers, paper)
		}
	}

	return &papersources.SearchResult{
		Papers:         papers,
		TotalResults:   page.Total,
		HasMore:        page.Next > 0,
		NextOffset:     page.Next,
		Source:         domain.SourceTypeSemanticScholar,
		SearchDuration: time.Since(start),
	}, nil
}

// GetByID fetches a single paper. Besides native S2 IDs the endpoint
// accepts prefixed identifiers such as "DOI:10.1038/nature12373" and
// "ARXIV:2301.12345".
func (c *Client) GetByID(ctx context.Context, id string) (*domain.Paper, error) {
	paperURL := fmt.Sprintf("%s/paper/%s?fields=%s", c.config.BaseURL, url.PathEscape(id), paperFields)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, paperURL, nil)
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
	if err := c.checkStatus(resp); err != nil {
		return nil, err
	}

	var result PaperResult
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	paper := c.convertToPaper(result)
	if paper == nil {
		return nil, domain.NewNotFoundError("paper", id)
	}
	return paper, nil
}

// getJSON fetches u and decodes the successful response into out.
func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// checkStatus turns non-2xx responses into ExternalAPIErrors, preferring
// the structured message the API ships in its error body.
func (c *Client) checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	if err != nil {
		return domain.NewExternalAPIError(sourceName, resp.StatusCode, "failed to read error response", err)
	}

	message := string(body)
	var errResp ErrorResponse
	if json.Unmarshal(body, &errResp) == nil {
		switch {
		case errResp.Error != "":
			message = errResp.Error
		case errResp.Message != "":
			message = errResp.Message
		}
	}
	return domain.NewExternalAPIError(sourceName, resp.StatusCode, message, nil)
}

func (c *Client) buildSearchURL(params papersources.SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}
	searchURL := baseURL.JoinPath("paper", "search")

	// The endpoint rejects empty queries, so a match-all request uses the
	// subject area as the query term instead.
	query := params.Query
	if query == "" || query == "*" {
		query = params.Field
	}

	limit := params.MaxResults
	if limit <= 0 || limit > c.config.MaxResults {
		limit = c.config.MaxResults
	}

	q := searchURL.Query()
	q.Set("query", query)
	q.Set("fields", paperFields)
	q.Set("limit", strconv.Itoa(limit))
	if params.Offset > 0 {
		q.Set("offset", strconv.Itoa(params.Offset))
	}
	if params.OpenAccessOnly {
		q.Set("openAccessPdf", "")
	}
	if yearRange := buildYearRange(params.YearFrom, params.YearTo); yearRange != "" {
		q.Set("year", yearRange)
	}
	if params.MinCitations > 0 {
		q.Set("minCitationCount", strconv.Itoa(params.MinCitations))
	}
	// Subject area filter, unless the field was already consumed as the
	// query term above.
	if params.Field != "" && params.Field != query {
		q.Set("fieldsOfStudy", params.Field)
	}

	searchURL.RawQuery = q.Encode()
	return searchURL.String(), nil
}

// buildYearRange renders the year filter ("2016-", "-2020", "2016-2020").
// yearFrom is an exclusive lower bound.
func buildYearRange(yearFrom, yearTo int) string {
	switch {
	case yearFrom > 0 && yearTo > 0:
		return fmt.Sprintf("%d-%d", yearFrom+1, yearTo)
	case yearFrom > 0:
		return fmt.Sprintf("%d-", yearFrom+1)
	case yearTo > 0:
		return fmt.Sprintf("-%d", yearTo)
	default:
		return ""
	}
}

// convertToPaper maps an API record to a domain paper. Returns nil when
// the record has no usable title.
func (c *Client) convertToPaper(result PaperResult) *domain.Paper {
	title := strings.TrimSpace(result.Title)
	if title == "" {
		return nil
	}

	venue := result.Venue
	if venue == "" && result.Journal != nil {
		venue = result.Journal.Name
	}

	paper := &domain.Paper{
		Title:           title,
		S2PaperID:       result.PaperID,
		Abstract:        result.Abstract,
		PublicationYear: result.Year,
		Venue:           venue,
		FieldsOfStudy:   result.FieldsOfStudy,
		CitationCount:   result.CitationCount,
		ReferenceCount:  result.ReferenceCount,
		IsOpenAccess:    result.IsOpenAccess,
		Source:          domain.SourceTypeSemanticScholar,
	}

	if result.PublicationDate != "" {
		if pubDate, err := time.Parse("2006-01-02", result.PublicationDate); err == nil {
			paper.PublicationDate = &pubDate
		}
	}
	if result.OpenAccessPDF != nil {
		paper.PDFURL = result.OpenAccessPDF.URL
	}
	if ids := result.ExternalIDs; ids != nil {
		paper.DOI = domain.NormalizeDOI(ids.DOI)
		paper.ArXivID = ids.ArXiv
		paper.PubMedID = ids.PubMed
	}

	paper.Authors = make([]domain.Author, 0, len(result.Authors))
	for _, a := range result.Authors {
		paper.Authors = append(paper.Authors, domain.Author{Name: a.Name})
	}

	return paper
}

package openalex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/paper-discovery-service/internal/domain"
	"github.com/helixir/paper-discovery-service/internal/papersources"
)

const (
	DefaultBaseURL    = "https://api.openalex.org"
	DefaultTimeout    = 30 * time.Second
	DefaultBurstSize  = 10
	DefaultMaxResults = 25

	// DefaultRateLimit assumes polite-pool access; requests carry a mailto
	// parameter when Config.Email is set.
	DefaultRateLimit = 10.0

	doiPrefix        = "https://doi.org/"
	openAlexIDPrefix = "https://openalex.org/"

	// hardMaxPerPage is the per_page ceiling enforced by the API.
	hardMaxPerPage = 200

	errorBodyLimit = 1 << 20
	maxBodyBytes   = 10 << 20
)

// Config holds the OpenAlex client settings. Zero fields (except Email and
// Enabled) fall back to the Default* constants.
type Config struct {
	BaseURL string

	// Email enrolls requests in the polite pool, which gets faster and more
	// consistent rate limits.
	Email string

	Timeout   time.Duration
	RateLimit float64
	BurstSize int

	// MaxResults is the default page size; the API caps pages at 200.
	MaxResults int

	Enabled bool
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

// Client queries the OpenAlex works API.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

var _ papersources.PaperSource = (*Client)(nil)

// New builds a client with its own rate-limited HTTP client.
func New(cfg Config) *Client {
	cfg.applyDefaults()
	return &Client{
		config: cfg,
		httpClient: papersources.NewHTTPClient(papersources.HTTPClientConfig{
			Timeout:   cfg.Timeout,
			RateLimit: cfg.RateLimit,
			BurstSize: cfg.BurstSize,
			UserAgent: "Helixir-PaperDiscovery/1.0 (mailto:" + cfg.Email + ")",
		}),
	}
}

// NewWithHTTPClient builds a client around an externally managed HTTP
// client, mainly for tests.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{config: cfg, httpClient: httpClient}
}

func (c *Client) SourceType() domain.SourceType { return domain.SourceTypeOpenAlex }
func (c *Client) Name() string                  { return "OpenAlex" }
func (c *Client) IsEnabled() bool               { return c.config.Enabled }

// Search runs one page of a works search.
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

	papers := make([]*domain.Paper, 0, len(page.Results))
	for i := range page.Results {
		if paper := workToPaper(&page.Results[i]); paper != nil {
			papers = append(papers, paper)
		}
	}

	// Advance by the raw page length, not the converted count, so records
	// dropped in conversion do not make the next request re-read this page.
	nextOffset := params.Offset + len(page.Results)
	return &papersources.SearchResult{
		Papers:         papers,
		TotalResults:   page.Meta.Count,
		HasMore:        nextOffset < page.Meta.Count,
		NextOffset:     nextOffset,
		Source:         domain.SourceTypeOpenAlex,
		SearchDuration: time.Since(start),
	}, nil
}

// GetByID resolves an OpenAlex work ID or DOI to a single paper.
func (c *Client) GetByID(ctx context.Context, id string) (*domain.Paper, error) {
	fetchURL, err := c.buildGetByIDURL(id)
	if err != nil {
		return nil, fmt.Errorf("building fetch URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
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
		return nil, c.statusError(resp)
	}

	var work Work
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&work); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	paper := workToPaper(&work)
	if paper == nil {
		return nil, domain.NewNotFoundError("paper", id)
	}
	return paper, nil
}

// getJSON fetches u and decodes the 200 response into out.
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

	if resp.StatusCode != http.StatusOK {
		return c.statusError(resp)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *Client) statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	return domain.NewExternalAPIError("OpenAlex", resp.StatusCode, string(body), nil)
}

func (c *Client) buildSearchURL(params papersources.SearchParams) (string, error) {
	base, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}
	base.Path = "/works"

	query := url.Values{}

	// "*" and "" both mean match-all; the filter string carries the actual
	// constraints in that case.
	if params.Query != "" && params.Query != "*" {
		query.Set("search", params.Query)
	}

	if filters := c.buildFilters(params); len(filters) > 0 {
		query.Set("filter", strings.Join(filters, ","))
	}

	perPage := params.MaxResults
	if perPage == 0 {
		perPage = c.config.MaxResults
	}
	if perPage > hardMaxPerPage {
		perPage = hardMaxPerPage
	}
	query.Set("per_page", strconv.Itoa(perPage))

	// Pagination is page-based and 1-indexed.
	if params.Offset > 0 {
		query.Set("page", strconv.Itoa(params.Offset/perPage+1))
	}

	if params.SortByCitations {
		query.Set("sort", "cited_by_count:desc")
	}
	if c.config.Email != "" {
		query.Set("mailto", c.config.Email)
	}

	base.RawQuery = query.Encode()
	return base.String(), nil
}

// buildFilters renders params into OpenAlex filter expressions. YearFrom is
// an exclusive lower bound; MinCitations and YearTo are inclusive, hence the
// +-1 adjustments around the API's strict comparisons.
func (c *Client) buildFilters(params papersources.SearchParams) []string {
	var filters []string

	if params.YearFrom > 0 {
		filters = append(filters, fmt.Sprintf("publication_year:>%d", params.YearFrom))
	}
	if params.YearTo > 0 {
		filters = append(filters, fmt.Sprintf("publication_year:<%d", params.YearTo+1))
	}
	if params.OpenAccessOnly {
		filters = append(filters, "is_oa:true")
	}
	if params.MinCitations > 0 {
		filters = append(filters, fmt.Sprintf("cited_by_count:>%d", params.MinCitations-1))
	}

	// Only concept IDs ("C" + digits) become filters; free-text subjects
	// belong in the search query instead.
	if isConceptID(params.Field) {
		filters = append(filters, "concepts.id:"+params.Field)
	}

	return filters
}

func isConceptID(s string) bool {
	if len(s) < 2 || s[0] != 'C' {
		return false
	}
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// buildGetByIDURL accepts OpenAlex IDs (short or full URL) and DOIs (bare,
// doi:-prefixed, or full URL). The identifier goes into the path verbatim;
// the API handles decoding.
func (c *Client) buildGetByIDURL(id string) (string, error) {
	base, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	var workID string
	switch {
	case strings.HasPrefix(id, openAlexIDPrefix):
		workID = strings.TrimPrefix(id, openAlexIDPrefix)
	case strings.HasPrefix(id, "10."):
		workID = doiPrefix + id
	case strings.HasPrefix(id, "doi:"):
		workID = doiPrefix + strings.TrimPrefix(id, "doi:")
	default:
		// Short OpenAlex IDs, full DOI URLs, and anything else the API
		// accepts natively.
		workID = id
	}
	base.Path = "/works/" + workID

	if c.config.Email != "" {
		base.RawQuery = url.Values{"mailto": {c.config.Email}}.Encode()
	}
	return base.String(), nil
}

// workToPaper converts an API work record into a domain paper. Returns nil
// for nil or title-less works.
func workToPaper(work *Work) *domain.Paper {
	if work == nil {
		return nil
	}

	// display_name is usually the cleaner of the two title fields.
	title := strings.TrimSpace(work.DisplayName)
	if title == "" {
		title = strings.TrimSpace(work.Title)
	}
	if title == "" {
		return nil
	}

	doi := normalizeDOI(work.DOI)
	if doi == "" {
		doi = normalizeDOI(work.IDs.DOI)
	}
	openAlexID := normalizeOpenAlexID(work.ID)
	if openAlexID == "" {
		openAlexID = normalizeOpenAlexID(work.IDs.OpenAlex)
	}

	var pubDate *time.Time
	if t, err := time.Parse("2006-01-02", work.PublicationDate); err == nil {
		pubDate = &t
	}

	var venue, publisher string
	if loc := work.PrimaryLocation; loc != nil && loc.Source != nil {
		venue = loc.Source.DisplayName
		publisher = loc.Source.HostOrganization
	}

	fields := make([]string, 0, len(work.Concepts))
	for _, concept := range work.Concepts {
		if concept.DisplayName != "" {
			fields = append(fields, concept.DisplayName)
		}
	}

	isOpenAccess := work.IsOpenAccess
	if work.OpenAccess != nil {
		isOpenAccess = work.OpenAccess.IsOA
	}

	return &domain.Paper{
		Title:           title,
		DOI:             doi,
		OpenAlexID:      openAlexID,
		PubMedID:        normalizePMID(work.IDs.PMID),
		Abstract:        reconstructAbstract(work.AbstractInvertedIndex),
		Authors:         convertAuthorships(work.Authorships),
		PublicationDate: pubDate,
		PublicationYear: work.PublicationYear,
		Venue:           venue,
		Publisher:       publisher,
		FieldsOfStudy:   fields,
		CitationCount:   work.CitedByCount,
		ReferenceCount:  len(work.ReferencedWorks),
		IsOpenAccess:    isOpenAccess,
		PDFURL:          pickPDFURL(work),
		HTMLURL:         pickHTMLURL(work),
		Source:          domain.SourceTypeOpenAlex,
	}
}

func convertAuthorships(authorships []Authorship) []domain.Author {
	authors := make([]domain.Author, 0, len(authorships))
	for _, a := range authorships {
		author := domain.Author{
			Name:  a.Author.DisplayName,
			ORCID: strings.TrimSpace(strings.TrimPrefix(a.Author.Orcid, "https://orcid.org/")),
		}
		if len(a.Institutions) > 0 {
			author.Affiliation = a.Institutions[0].DisplayName
		}
		authors = append(authors, author)
	}
	return authors
}

// pickPDFURL prefers the open access location over the primary one.
func pickPDFURL(work *Work) string {
	if work.OpenAccess != nil && work.OpenAccess.OAURL != "" {
		return work.OpenAccess.OAURL
	}
	if work.PrimaryLocation != nil {
		return work.PrimaryLocation.PDFURL
	}
	return ""
}

func pickHTMLURL(work *Work) string {
	if work.PrimaryLocation != nil {
		return work.PrimaryLocation.LandingPageURL
	}
	return ""
}

// normalizeDOI strips URL and doi: prefixes and lowercases the identifier.
func normalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	doi = strings.TrimPrefix(doi, doiPrefix)
	doi = strings.TrimPrefix(doi, "http://doi.org/")
	doi = strings.TrimPrefix(doi, "doi:")
	return strings.ToLower(strings.TrimSpace(doi))
}

func normalizeOpenAlexID(id string) string {
	return strings.TrimSpace(strings.TrimPrefix(id, openAlexIDPrefix))
}

func normalizePMID(pmid string) string {
	return strings.TrimSpace(strings.TrimPrefix(pmid, "https://pubmed.ncbi.nlm.nih.gov/"))
}

// maxAbstractPosition bounds the word positions accepted from the inverted
// index. Out-of-range positions are dropped rather than failing the whole
// abstract.
const maxAbstractPosition = 100_000

// reconstructAbstract rebuilds abstract text from the inverted index the
// API publishes (word -> positions). Words are joined in position order
// with single spaces; gaps in the sequence are elided.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	total := 0
	for _, positions := range invertedIndex {
		total += len(positions)
	}

	pairs := make([]posWord, 0, total)
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			if pos >= 0 && pos < maxAbstractPosition {
				pairs = append(pairs, posWord{pos: pos, word: word})
			}
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].pos < pairs[j].pos })

	var b strings.Builder
	b.Grow(total * 7)
	for i, pair := range pairs {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(pair.word)
	}
	return b.String()
}

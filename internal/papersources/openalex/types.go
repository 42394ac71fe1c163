// Package openalex implements the PaperSource interface against the
// OpenAlex works API (https://docs.openalex.org/), a free catalog of
// scholarly works, authors, venues, and concepts.
package openalex

// Wire types for the works endpoints. Only the fields the converter reads
// are modeled; abstracts arrive as an inverted index and are rebuilt by
// reconstructAbstract.

// SearchResponse is one page of /works search results.
type SearchResponse struct {
	Meta    Meta   `json:"meta"`
	Results []Work `json:"results"`
}

// Meta carries result counts and pagination state.
type Meta struct {
	Count      int    `json:"count"`
	DBTime     int    `json:"db_response_time_ms"`
	Page       int    `json:"page"`
	PerPage    int    `json:"per_page"`
	NextCursor string `json:"next_cursor"`
}

// Work is a single scholarly work record.
type Work struct {
	ID              string       `json:"id"`
	DOI             string       `json:"doi"`
	Title           string       `json:"title"`
	DisplayName     string       `json:"display_name"`
	PublicationYear int          `json:"publication_year"`
	PublicationDate string       `json:"publication_date"`
	Type            string       `json:"type"`
	CitedByCount    int          `json:"cited_by_count"`
	IsOpenAccess    bool         `json:"is_oa"`
	OpenAccess      *OpenAccess  `json:"open_access"`
	Authorships     []Authorship `json:"authorships"`
	PrimaryLocation *Location    `json:"primary_location"`
	Concepts        []Concept    `json:"concepts"`
	IDs             IDs          `json:"ids"`
	ReferencedWorks []string     `json:"referenced_works"`

	AbstractInvertedIndex map[string][]int `json:"abstract_inverted_index"`
}

// OpenAccess describes a work's open access status and best OA location.
type OpenAccess struct {
	IsOA     bool   `json:"is_oa"`
	OAURL    string `json:"oa_url"`
	OAStatus string `json:"oa_status"`
}

// Authorship links an author and their institutions to a work.
type Authorship struct {
	AuthorPosition string        `json:"author_position"`
	Author         AuthorInfo    `json:"author"`
	Institutions   []Institution `json:"institutions"`
}

type AuthorInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Orcid       string `json:"orcid"`
}

type Institution struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Concept is a subject-area tag with a relevance score.
type Concept struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Level       int     `json:"level"`
	Score       float64 `json:"score"`
}

// Location is one place a work is hosted.
type Location struct {
	Source         *Source `json:"source"`
	PDFURL         string  `json:"pdf_url"`
	LandingPageURL string  `json:"landing_page_url"`
	Version        string  `json:"version"`
}

// Source is a publication venue such as a journal or repository.
type Source struct {
	ID               string `json:"id"`
	DisplayName      string `json:"display_name"`
	HostOrganization string `json:"host_organization_name"`
	Type             string `json:"type"`
}

// IDs collects the external identifiers attached to a work.
type IDs struct {
	OpenAlex string `json:"openalex"`
	DOI      string `json:"doi"`
	MAG      string `json:"mag"`
	PMID     string `json:"pmid"`
}

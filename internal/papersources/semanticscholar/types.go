// Package semanticscholar implements the papersources.PaperSource interface
// on top of the Semantic Scholar Graph API
// (https://api.semanticscholar.org/api-docs/).
package semanticscholar

// SearchResponse is the paper search endpoint's envelope. Next is the offset
// of the following page, 0 when the result set is exhausted.
type SearchResponse struct {
	Total  int           `json:"total"`
	Offset int           `json:"offset"`
	Next   int           `json:"next"`
	Data   []PaperResult `json:"data"`
}

// PaperResult is one paper record as returned by the Graph API.
type PaperResult struct {
	PaperID         string         `json:"paperId"`
	Title           string         `json:"title"`
	Abstract        string         `json:"abstract"`
	Year            int            `json:"year"`
	PublicationDate string         `json:"publicationDate"` // YYYY-MM-DD
	Venue           string         `json:"venue"`
	Journal         *Journal       `json:"journal,omitempty"`
	Authors         []Author       `json:"authors"`
	CitationCount   int            `json:"citationCount"`
	ReferenceCount  int            `json:"referenceCount"`
	IsOpenAccess    bool           `json:"isOpenAccess"`
	OpenAccessPDF   *OpenAccessPDF `json:"openAccessPdf,omitempty"`
	FieldsOfStudy   []string       `json:"fieldsOfStudy,omitempty"`
	ExternalIDs     *ExternalIDs   `json:"externalIds,omitempty"`
}

// ExternalIDs maps a paper to identifiers in other catalogs.
type ExternalIDs struct {
	DOI           string `json:"DOI,omitempty"`
	ArXiv         string `json:"ArXiv,omitempty"`
	PubMed        string `json:"PubMed,omitempty"`
	PubMedCentral string `json:"PubMedCentral,omitempty"`
}

type Journal struct {
	Name   string `json:"name,omitempty"`
	Volume string `json:"volume,omitempty"`
	Pages  string `json:"pages,omitempty"`
}

type Author struct {
	AuthorID string `json:"authorId,omitempty"`
	Name     string `json:"name"`
}

// OpenAccessPDF carries the direct PDF link and its access status
// ("GOLD", "GREEN", "HYBRID").
type OpenAccessPDF struct {
	URL    string `json:"url,omitempty"`
	Status string `json:"status,omitempty"`
}

// ErrorResponse is the API's error body. Some endpoints use "error", others
// "message".
type ErrorResponse struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

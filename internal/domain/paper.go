package domain

import (
	"strings"
	"time"
)

// PaperIdentifiers holds all possible identifiers for an academic paper.
type PaperIdentifiers struct {
	DOI               string
	ArXivID           string
	PubMedID          string
	SemanticScholarID string
	OpenAlexID        string
}

// GenerateCanonicalID picks the strongest available identifier and prefixes
// it with its scheme. Priority: DOI > ArXiv > PubMed > SemanticScholar >
// OpenAlex. Returns "" when every identifier is blank.
func GenerateCanonicalID(ids PaperIdentifiers) string {
	candidates := []struct {
		scheme string
		value  string
	}{
		{"doi", strings.ToLower(ids.DOI)},
		{"arxiv", ids.ArXivID},
		{"pubmed", ids.PubMedID},
		{"s2", ids.SemanticScholarID},
		{"openalex", ids.OpenAlexID},
	}
	for _, c := range candidates {
		if v := strings.TrimSpace(c.value); v != "" {
			return c.scheme + ":" + v
		}
	}
	return ""
}

// Author represents a paper author with optional affiliation and ORCID.
type Author struct {
	Name        string `json:"name"`
	Affiliation string `json:"affiliation,omitempty"`
	ORCID       string `json:"orcid,omitempty"`
}

// String renders "Name (Affiliation) [ORCID]", omitting blank parts.
func (a Author) String() string {
	s := a.Name
	if a.Affiliation != "" {
		s += " (" + a.Affiliation + ")"
	}
	if a.ORCID != "" {
		s += " [" + a.ORCID + "]"
	}
	return s
}

// Paper is the canonical, provider-agnostic representation of one scholarly work.
// Title is required; every other field is best-effort per provider.
type Paper struct {
	Title           string     `json:"title"`
	DOI             string     `json:"doi,omitempty"`
	ArXivID         string     `json:"arxiv_id,omitempty"`
	S2PaperID       string     `json:"s2_paper_id,omitempty"`
	OpenAlexID      string     `json:"openalex_id,omitempty"`
	PubMedID        string     `json:"pubmed_id,omitempty"`
	Abstract        string     `json:"abstract,omitempty"`
	Authors         []Author   `json:"authors,omitempty"`
	PublicationDate *time.Time `json:"publication_date,omitempty"`
	PublicationYear int        `json:"publication_year,omitempty"`
	Venue           string     `json:"venue,omitempty"`
	Publisher       string     `json:"publisher,omitempty"`
	FieldsOfStudy   []string   `json:"fields_of_study,omitempty"`
	CitationCount   int        `json:"citation_count"`
	ReferenceCount  int        `json:"reference_count"`
	IsOpenAccess    bool       `json:"is_open_access"`
	PDFURL          string     `json:"pdf_url,omitempty"`
	HTMLURL         string     `json:"html_url,omitempty"`
	Source          SourceType `json:"source"`
	Summary         *Summary   `json:"summary,omitempty"`
}

// CanonicalID returns the canonical identifier for this paper, or empty
// string when the paper carries no identifier at all.
func (p *Paper) CanonicalID() string {
	return GenerateCanonicalID(PaperIdentifiers{
		DOI:               p.DOI,
		ArXivID:           p.ArXivID,
		PubMedID:          p.PubMedID,
		SemanticScholarID: p.S2PaperID,
		OpenAlexID:        p.OpenAlexID,
	})
}

// SummaryKey returns the identity used to cache generated summaries.
// Priority order: ArXiv > SemanticScholar > DOI. Empty string means the
// paper is uncacheable.
func (p *Paper) SummaryKey() string {
	if arxiv := strings.TrimSpace(p.ArXivID); arxiv != "" {
		return arxiv
	}
	if s2 := strings.TrimSpace(p.S2PaperID); s2 != "" {
		return s2
	}
	if doi := strings.TrimSpace(p.DOI); doi != "" {
		return strings.ToLower(doi)
	}
	return ""
}

// HasIdentifier returns true if the paper has at least one identifier.
func (p *Paper) HasIdentifier() bool {
	return p.CanonicalID() != ""
}

// NormalizedDOI returns the DOI lowercased and stripped of URL prefixes,
// suitable for use as a deduplication key.
func (p *Paper) NormalizedDOI() string {
	return NormalizeDOI(p.DOI)
}

// NormalizeDOI lowercases a DOI and strips common URL prefixes.
func NormalizeDOI(doi string) string {
	doi = strings.TrimSpace(strings.ToLower(doi))
	doi = strings.TrimPrefix(doi, "https://doi.org/")
	doi = strings.TrimPrefix(doi, "http://doi.org/")
	doi = strings.TrimPrefix(doi, "doi:")
	return doi
}

package httpserver

import (
	"time"

	"github.com/helixir/paper-discovery-service/internal/domain"
)

// Paper response types for JSON serialization.

type paperResponse struct {
	CanonicalID     string           `json:"canonical_id,omitempty"`
	Title           string           `json:"title"`
	Abstract        string           `json:"abstract,omitempty"`
	Authors         []authorResponse `json:"authors,omitempty"`
	PublicationDate *time.Time       `json:"publication_date,omitempty"`
	PublicationYear int              `json:"publication_year,omitempty"`
	Venue           string           `json:"venue,omitempty"`
	Publisher       string           `json:"publisher,omitempty"`
	FieldsOfStudy   []string         `json:"fields_of_study,omitempty"`
	CitationCount   int              `json:"citation_count"`
	DOI             string           `json:"doi,omitempty"`
	ArXivID         string           `json:"arxiv_id,omitempty"`
	PdfURL          string           `json:"pdf_url,omitempty"`
	HTMLURL         string           `json:"html_url,omitempty"`
	OpenAccess      bool             `json:"open_access"`
	Source          string           `json:"source,omitempty"`
	Summary         *summaryResponse `json:"summary,omitempty"`
}

type summaryResponse struct {
	KeyFindings []string  `json:"key_findings"`
	Methodology string    `json:"methodology"`
	Impact      string    `json:"impact"`
	Conclusion  string    `json:"conclusion"`
	GeneratedAt time.Time `json:"generated_at"`
	Fallback    bool      `json:"fallback,omitempty"`
}

type authorResponse struct {
	Name        string `json:"name"`
	Affiliation string `json:"affiliation,omitempty"`
	ORCID       string `json:"orcid,omitempty"`
}

type randomPapersResponse struct {
	Papers []paperResponse `json:"papers"`
	Count  int             `json:"count"`
	Field  string          `json:"field,omitempty"`
}

type searchPapersResponse struct {
	Papers        []paperResponse `json:"papers"`
	TotalCount    int             `json:"total_count"`
	TotalBySource map[string]int  `json:"total_by_source,omitempty"`
	FailedSources []string        `json:"failed_sources,omitempty"`
}

type clearCacheResponse struct {
	Deleted int `json:"deleted"`
}

// Converter functions

func domainPaperToResponse(p *domain.Paper) paperResponse {
	authors := make([]authorResponse, len(p.Authors))
	for i, a := range p.Authors {
		authors[i] = authorResponse{
			Name:        a.Name,
			Affiliation: a.Affiliation,
			ORCID:       a.ORCID,
		}
	}
	return paperResponse{
		CanonicalID:     p.CanonicalID(),
		Title:           p.Title,
		Abstract:        p.Abstract,
		Authors:         authors,
		PublicationDate: p.PublicationDate,
		PublicationYear: p.PublicationYear,
		Venue:           p.Venue,
		Publisher:       p.Publisher,
		FieldsOfStudy:   p.FieldsOfStudy,
		CitationCount:   p.CitationCount,
		DOI:             p.DOI,
		ArXivID:         p.ArXivID,
		PdfURL:          p.PDFURL,
		HTMLURL:         p.HTMLURL,
		OpenAccess:      p.IsOpenAccess,
		Source:          string(p.Source),
		Summary:         domainSummaryToResponse(p.Summary),
	}
}

func domainSummaryToResponse(s *domain.Summary) *summaryResponse {
	if s == nil {
		return nil
	}
	return &summaryResponse{
		KeyFindings: s.KeyFindings,
		Methodology: s.Methodology,
		Impact:      s.Impact,
		Conclusion:  s.Conclusion,
		GeneratedAt: s.GeneratedAt,
		Fallback:    s.Fallback,
	}
}

func domainPapersToResponses(papers []*domain.Paper) []paperResponse {
	responses := make([]paperResponse, len(papers))
	for i, p := range papers {
		responses[i] = domainPaperToResponse(p)
	}
	return responses
}

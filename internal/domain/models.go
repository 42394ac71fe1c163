// Package domain provides domain models and business logic for the Paper Discovery Service.
package domain

// SourceType represents the external catalog that provided paper data.
type SourceType string

const (
	SourceTypeArXiv           SourceType = "arxiv"
	SourceTypeCrossref        SourceType = "crossref"
	SourceTypeOpenAlex        SourceType = "openalex"
	SourceTypeSemanticScholar SourceType = "semantic_scholar"
)

// AllSourceTypes lists every supported provider tag.
func AllSourceTypes() []SourceType {
	return []SourceType{
		SourceTypeArXiv,
		SourceTypeCrossref,
		SourceTypeOpenAlex,
		SourceTypeSemanticScholar,
	}
}

// IsValid reports whether s is one of the supported provider tags.
func (s SourceType) IsValid() bool {
	switch s {
	case SourceTypeArXiv, SourceTypeCrossref, SourceTypeOpenAlex, SourceTypeSemanticScholar:
		return true
	default:
		return false
	}
}

package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaper_GenerateCanonicalID(t *testing.T) {
	all := PaperIdentifiers{
		DOI:               "10.1038/nature12373",
		ArXivID:           "2103.14030",
		PubMedID:          "33845678",
		SemanticScholarID: "abc123",
		OpenAlexID:        "W567890",
	}

	t.Run("priority order", func(t *testing.T) {
		// Strip the strongest identifier one step at a time.
		ids := all
		assert.Equal(t, "doi:10.1038/nature12373", GenerateCanonicalID(ids))

		ids.DOI = ""
		assert.Equal(t, "arxiv:2103.14030", GenerateCanonicalID(ids))

		ids.ArXivID = ""
		assert.Equal(t, "pubmed:33845678", GenerateCanonicalID(ids))

		ids.PubMedID = ""
		assert.Equal(t, "s2:abc123", GenerateCanonicalID(ids))

		ids.SemanticScholarID = ""
		assert.Equal(t, "openalex:W567890", GenerateCanonicalID(ids))
	})

	t.Run("empty when no identifiers", func(t *testing.T) {
		assert.Empty(t, GenerateCanonicalID(PaperIdentifiers{}))
	})

	t.Run("DOI normalized to lowercase", func(t *testing.T) {
		id := GenerateCanonicalID(PaperIdentifiers{DOI: "10.1038/NATURE12373"})
		assert.Equal(t, "doi:10.1038/nature12373", id)
	})

	t.Run("whitespace-only DOI skipped", func(t *testing.T) {
		id := GenerateCanonicalID(PaperIdentifiers{DOI: "   ", ArXivID: "2103.14030"})
		assert.Equal(t, "arxiv:2103.14030", id)
	})
}

func TestSourceType_IsValid(t *testing.T) {
	cases := map[SourceType]bool{
		SourceTypeArXiv:           true,
		SourceTypeCrossref:        true,
		SourceTypeOpenAlex:        true,
		SourceTypeSemanticScholar: true,
		SourceType("pubmed"):      false,
		SourceType(""):            false,
	}
	for st, want := range cases {
		assert.Equal(t, want, st.IsValid(), "source %q", st)
	}
}

func TestAllSourceTypes(t *testing.T) {
	types := AllSourceTypes()
	require.Len(t, types, 4)
	for _, st := range types {
		assert.True(t, st.IsValid())
	}
}

func TestNormalizeDOI(t *testing.T) {
	cases := map[string]string{
		"10.1038/NATURE12373":          "10.1038/nature12373",
		"https://doi.org/10.1234/test": "10.1234/test",
		"http://doi.org/10.1234/test":  "10.1234/test",
		"doi:10.1234/test":             "10.1234/test",
		"  10.1234/test  ":             "10.1234/test",
		"":                             "",
	}
	for input, want := range cases {
		assert.Equal(t, want, NormalizeDOI(input), "input %q", input)
	}
}

func TestPaper_SummaryKey(t *testing.T) {
	tests := []struct {
		name     string
		paper    Paper
		expected string
	}{
		{
			name: "arxiv ID takes priority",
			paper: Paper{
				ArXivID:   "2103.14030",
				S2PaperID: "abc123",
				DOI:       "10.1234/test",
			},
			expected: "2103.14030",
		},
		{
			name: "s2 ID when no arxiv",
			paper: Paper{
				S2PaperID: "abc123",
				DOI:       "10.1234/test",
			},
			expected: "abc123",
		},
		{
			name: "DOI lowercased as last resort",
			paper: Paper{
				DOI: "10.1234/TEST",
			},
			expected: "10.1234/test",
		},
		{
			name:     "empty when no identity",
			paper:    Paper{Title: "untracked preprint"},
			expected: "",
		},
		{
			name: "whitespace-only arxiv ID skipped",
			paper: Paper{
				ArXivID:   "   ",
				S2PaperID: "def456",
			},
			expected: "def456",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.paper.SummaryKey())
		})
	}
}

func TestPaper_HasIdentifier(t *testing.T) {
	tests := []struct {
		name  string
		paper Paper
		want  bool
	}{
		{
			name:  "paper with DOI",
			paper: Paper{DOI: "10.1234/test"},
			want:  true,
		},
		{
			name:  "paper with ArXiv ID",
			paper: Paper{ArXivID: "2103.14030"},
			want:  true,
		},
		{
			name:  "paper with no identifiers",
			paper: Paper{Title: "no identity"},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.paper.HasIdentifier())
		})
	}
}

func TestAuthor_String(t *testing.T) {
	cases := []struct {
		name   string
		author Author
		want   string
	}{
		{"name only", Author{Name: "Jane Doe"}, "Jane Doe"},
		{"with affiliation", Author{Name: "John Smith", Affiliation: "MIT"}, "John Smith (MIT)"},
		{"with ORCID", Author{Name: "Alice Johnson", ORCID: "0000-0001-2345-6789"},
			"Alice Johnson [0000-0001-2345-6789]"},
		{"all fields", Author{Name: "Bob Wilson", Affiliation: "Stanford University", ORCID: "0000-0002-3456-7890"},
			"Bob Wilson (Stanford University) [0000-0002-3456-7890]"},
		{"blank affiliation ignored", Author{Name: "Carol Davis", ORCID: "0000-0003-4567-8901"},
			"Carol Davis [0000-0003-4567-8901]"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.author.String())
		})
	}
}

func TestSummary_IsUsable(t *testing.T) {
	tests := []struct {
		name    string
		summary *Summary
		want    bool
	}{
		{
			name: "complete record",
			summary: &Summary{
				KeyFindings: []string{"finding one.", "finding two.", "finding three."},
				Methodology: "The study uses a randomized controlled trial.",
				Impact:      "The results influence clinical practice.",
				Conclusion:  "The intervention is effective.",
			},
			want: true,
		},
		{
			name: "too few findings",
			summary: &Summary{
				KeyFindings: []string{"only one."},
				Methodology: "method",
				Impact:      "impact",
				Conclusion:  "conclusion",
			},
			want: false,
		},
		{
			name: "missing methodology",
			summary: &Summary{
				KeyFindings: []string{"one.", "two."},
				Impact:      "impact",
				Conclusion:  "conclusion",
			},
			want: false,
		},
		{
			name:    "nil record",
			summary: nil,
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.summary.IsUsable())
		})
	}
}

func TestValidationError(t *testing.T) {
	t.Run("single field error", func(t *testing.T) {
		err := &ValidationError{
			Field:   "count",
			Message: "must be between 1 and 50",
		}
		assert.Equal(t, "validation error: count: must be between 1 and 50", err.Error())
	})

	t.Run("Unwrap returns ErrInvalidInput", func(t *testing.T) {
		err := NewValidationError("count", "must be positive")
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.False(t, errors.Is(err, ErrNotFound))
	})
}

func TestNotFoundError(t *testing.T) {
	t.Run("error message", func(t *testing.T) {
		err := &NotFoundError{
			Entity: "paper",
			ID:     "doi:10.1234/test",
		}
		assert.Equal(t, "paper not found: doi:10.1234/test", err.Error())
	})

	t.Run("unwrap returns ErrNotFound", func(t *testing.T) {
		err := NewNotFoundError("paper", "2103.14030")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestRateLimitError(t *testing.T) {
	t.Run("error message with retry after", func(t *testing.T) {
		err := &RateLimitError{
			Source:     "semantic_scholar",
			RetryAfter: 30 * time.Second,
		}
		assert.Equal(t, "rate limited by semantic_scholar: retry after 30s", err.Error())
	})

	t.Run("unwrap returns ErrRateLimited", func(t *testing.T) {
		err := NewRateLimitError("openalex", time.Minute)
		assert.ErrorIs(t, err, ErrRateLimited)
	})
}

func TestExternalAPIError(t *testing.T) {
	t.Run("error message", func(t *testing.T) {
		err := &ExternalAPIError{
			Source:     "crossref",
			StatusCode: 500,
			Message:    "internal server error",
			Cause:      assert.AnError,
		}
		assert.Contains(t, err.Error(), "crossref API error")
		assert.Contains(t, err.Error(), "500")
		assert.Contains(t, err.Error(), "internal server error")
	})

	t.Run("unwrap returns cause", func(t *testing.T) {
		cause := fmt.Errorf("connection refused")
		err := NewExternalAPIError("arxiv", 503, "service unavailable", cause)
		assert.Equal(t, cause, err.Unwrap())
		assert.ErrorIs(t, err, cause)
	})

	t.Run("wrapped sentinel cause matches through chain", func(t *testing.T) {
		cause := fmt.Errorf("wrapped: %w", ErrServiceUnavailable)
		err := NewExternalAPIError("openalex", 503, "service unavailable", cause)
		assert.ErrorIs(t, err, ErrServiceUnavailable)
	})
}

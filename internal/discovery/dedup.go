package discovery

import (
	"strings"

	"github.com/helixir/paper-discovery-service/internal/domain"
)

// rejectReason classifies why a candidate paper was not accepted.
type rejectReason int

const (
	rejectNone rejectReason = iota
	rejectNoTitle
	rejectDuplicate
	rejectBelowThreshold
)

// candidateSet accumulates accepted papers for one aggregation request,
// tracking seen DOIs and titles so duplicates across pages and sources are
// dropped. DOIs are compared case-normalized, titles exact. The set is not
// safe for concurrent use and is never persisted.
type candidateSet struct {
	minCitations int
	seenDOIs     map[string]struct{}
	seenTitles   map[string]struct{}
	accepted     []*domain.Paper
}

func newCandidateSet(minCitations int) *candidateSet {
	return &candidateSet{
		minCitations: minCitations,
		seenDOIs:     make(map[string]struct{}),
		seenTitles:   make(map[string]struct{}),
	}
}

// add accepts the paper unless it is title-less, a duplicate, or below the
// citation threshold.
func (s *candidateSet) add(paper *domain.Paper) rejectReason {
	if paper == nil || strings.TrimSpace(paper.Title) == "" {
		return rejectNoTitle
	}

	doi := paper.NormalizedDOI()
	if doi != "" {
		if _, seen := s.seenDOIs[doi]; seen {
			return rejectDuplicate
		}
	}
	if _, seen := s.seenTitles[paper.Title]; seen {
		return rejectDuplicate
	}

	if paper.CitationCount < s.minCitations {
		return rejectBelowThreshold
	}

	if doi != "" {
		s.seenDOIs[doi] = struct{}{}
	}
	s.seenTitles[paper.Title] = struct{}{}
	s.accepted = append(s.accepted, paper)

	return rejectNone
}

func (s *candidateSet) size() int {
	return len(s.accepted)
}

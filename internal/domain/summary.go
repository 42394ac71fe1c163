package domain

import "time"

// Summary is the structured output of the AI summarization step for one
// paper. Each generation produces a fresh immutable record; cached copies
// are replaced wholesale on regeneration.
type Summary struct {
	KeyFindings []string  `json:"key_findings"`
	Methodology string    `json:"methodology"`
	Impact      string    `json:"impact"`
	Conclusion  string    `json:"conclusion"`
	GeneratedAt time.Time `json:"generated_at"`
	Fallback    bool      `json:"fallback"`
}

// IsUsable reports whether the record satisfies the minimum shape contract:
// at least two findings and non-empty paragraph sections.
func (s *Summary) IsUsable() bool {
	if s == nil {
		return false
	}
	return len(s.KeyFindings) >= 2 && s.Methodology != "" && s.Impact != "" && s.Conclusion != ""
}

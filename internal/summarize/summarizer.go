// Package summarize generates structured AI summaries for scholarly papers.
//
// A Summarizer issues four focused generation prompts (key findings,
// methodology, impact, conclusion) against a bounded-length text generation
// backend and post-processes the output into a domain.Summary. When the
// backend is unavailable or the paper lacks enough text to summarize, a
// deterministic fallback record is returned instead. Generated summaries are
// cached under the paper's summary key.
package summarize

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-discovery-service/internal/cache"
	"github.com/helixir/paper-discovery-service/internal/domain"
	"github.com/helixir/paper-discovery-service/internal/observability"
)

const (
	// minAbstractLength is the minimum abstract length worth summarizing.
	minAbstractLength = 50

	// minFindingLength is the minimum sentence length kept as a finding.
	minFindingLength = 20

	// minBackfillLength is the minimum abstract sentence length used to
	// backfill findings.
	minBackfillLength = 30

	// minSectionLength is the minimum usable length for the methodology,
	// impact, and conclusion sections.
	minSectionLength = 30

	minFindings = 3
	maxFindings = 5
)

// Prompt prefixes for the four generation sections.
const (
	findingsPromptPrefix    = "Research findings: "
	findingsPromptInfix     = ". Key discoveries and contributions from this study: "
	methodologyPromptPrefix = "Research methodology and approach: "
	impactPromptPrefix      = "Impact and significance of this research: "
	conclusionPromptPrefix  = "Conclusions and future directions: "
)

// methodologyKeywords indicate a methodology-describing abstract sentence.
var methodologyKeywords = []string{
	"method", "approach", "technique", "algorithm", "model", "framework", "analysis",
}

// Fixed texts for the degraded paths.
var (
	fallbackFindings = []string{
		"Novel research findings presented in this paper",
		"Builds upon existing work in the field",
		"Provides theoretical and practical contributions",
	}

	genericFindings = []string{
		"This study presents novel research findings in the field.",
		"The work contributes significant insights to current scientific understanding.",
		"Experimental validation supports the theoretical framework proposed.",
	}
)

const (
	fallbackMethodology = "The research employs rigorous scientific methodology combining theoretical analysis with empirical validation."
	fallbackImpact      = "This work advances the state of the art and has potential applications in multiple domains."
	fallbackConclusion  = "This research presents important contributions and opens avenues for future investigation in the field."

	genericImpact     = "This research advances the field by providing new insights and opening avenues for future investigation and practical applications."
	genericConclusion = "The study presents significant findings that contribute to the advancement of the field and suggest promising directions for future research."
)

// Summarizer generates and caches structured summaries for papers.
type Summarizer struct {
	generator Generator
	cache     *cache.PaperCache
	metrics   *observability.Metrics
	logger    zerolog.Logger
}

// NewSummarizer creates a new Summarizer. The generator may be nil, in which
// case every request takes the fallback path. The cache may be nil to
// disable caching.
func NewSummarizer(generator Generator, paperCache *cache.PaperCache, metrics *observability.Metrics, logger zerolog.Logger) *Summarizer {
	return &Summarizer{
		generator: generator,
		cache:     paperCache,
		metrics:   metrics,
		logger:    logger.With().Str("component", "summarizer").Logger(),
	}
}

// Summarize returns a summary for the paper. Generation failures never
// surface as errors; they degrade to the deterministic fallback record.
func (s *Summarizer) Summarize(ctx context.Context, paper *domain.Paper) *domain.Summary {
	key := paper.SummaryKey()

	if key != "" && s.cache != nil {
		if summary, ok := s.cache.GetSummary(ctx, key); ok {
			s.recordCacheHit()
			return summary
		}
		s.recordCacheMiss()
	}

	abstract := strings.TrimSpace(paper.Abstract)
	title := strings.TrimSpace(paper.Title)

	if s.generator == nil || title == "" || abstract == "" || len(abstract) < minAbstractLength {
		s.logger.Debug().
			Str("summary_key", key).
			Bool("backend_available", s.generator != nil).
			Int("abstract_length", len(abstract)).
			Msg("using fallback summary")
		return s.fallback()
	}

	start := time.Now()

	summary, err := s.generate(ctx, title, abstract)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("summary_key", key).
			Msg("summary generation failed, using fallback")
		return s.fallback()
	}

	if s.metrics != nil {
		s.metrics.RecordSummaryGenerated(time.Since(start).Seconds())
	}

	if key != "" && s.cache != nil {
		s.cache.SetSummary(ctx, key, summary)
	}

	return summary
}

// Attach generates and attaches a summary to each paper in place.
func (s *Summarizer) Attach(ctx context.Context, papers []*domain.Paper) {
	for _, paper := range papers {
		paper.Summary = s.Summarize(ctx, paper)
	}
}

// generate runs the four section prompts and assembles the summary.
func (s *Summarizer) generate(ctx context.Context, title, abstract string) (*domain.Summary, error) {
	findingsText, err := s.generateSection(ctx, "findings",
		findingsPromptPrefix+title+findingsPromptInfix+truncate(abstract, 800),
		GenerateOptions{MaxLength: 200, MinLength: 60, NumBeams: 4})
	if err != nil {
		return nil, err
	}

	methodology, err := s.generateSection(ctx, "methodology",
		methodologyPromptPrefix+truncate(abstract, 800),
		GenerateOptions{MaxLength: 150, MinLength: 40, NumBeams: 4})
	if err != nil {
		return nil, err
	}

	impact, err := s.generateSection(ctx, "impact",
		impactPromptPrefix+title+". "+truncate(abstract, 600),
		GenerateOptions{MaxLength: 150, MinLength: 40, NumBeams: 4})
	if err != nil {
		return nil, err
	}

	conclusion, err := s.generateSection(ctx, "conclusion",
		conclusionPromptPrefix+truncate(abstract, 800),
		GenerateOptions{MaxLength: 150, MinLength: 40, NumBeams: 4})
	if err != nil {
		return nil, err
	}

	findings := parseFindings(stripPromptEcho(findingsText, findingsPromptPrefix), abstract)

	methodology = cleanSection(methodology, methodologyPromptPrefix)
	if len(methodology) < minSectionLength {
		methodology = extractMethodology(abstract)
	}

	impact = cleanSection(impact, impactPromptPrefix)
	if len(impact) < minSectionLength {
		impact = genericImpact
	}

	conclusion = cleanSection(conclusion, conclusionPromptPrefix)
	if len(conclusion) < minSectionLength {
		conclusion = genericConclusion
	}

	return &domain.Summary{
		KeyFindings: findings,
		Methodology: methodology,
		Impact:      impact,
		Conclusion:  conclusion,
		GeneratedAt: time.Now().UTC(),
		Fallback:    false,
	}, nil
}

func (s *Summarizer) generateSection(ctx context.Context, section, prompt string, opts GenerateOptions) (string, error) {
	if s.metrics != nil {
		s.metrics.RecordGeneratorRequest(section)
	}

	text, err := s.generator.Generate(ctx, prompt, opts)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordGeneratorRequestFailed(section)
		}
		return "", err
	}

	return text, nil
}

// fallback returns the deterministic degraded summary.
func (s *Summarizer) fallback() *domain.Summary {
	if s.metrics != nil {
		s.metrics.RecordSummaryFallback()
	}

	findings := make([]string, len(fallbackFindings))
	copy(findings, fallbackFindings)

	return &domain.Summary{
		KeyFindings: findings,
		Methodology: fallbackMethodology,
		Impact:      fallbackImpact,
		Conclusion:  fallbackConclusion,
		GeneratedAt: time.Now().UTC(),
		Fallback:    true,
	}
}

func (s *Summarizer) recordCacheHit() {
	if s.metrics != nil {
		s.metrics.RecordCacheHit("summary")
	}
}

func (s *Summarizer) recordCacheMiss() {
	if s.metrics != nil {
		s.metrics.RecordCacheMiss("summary")
	}
}

// parseFindings splits generated findings text into bullet points, drops
// short fragments, normalizes trailing punctuation, and backfills from the
// abstract when too few findings remain.
func parseFindings(text, abstract string) []string {
	sentences := strings.Split(strings.ReplaceAll(text, "; ", ". "), ". ")

	findings := make([]string, 0, maxFindings)
	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if len(sentence) < minFindingLength {
			continue
		}
		sentence = strings.TrimSpace(strings.TrimRight(sentence, ".,;:"))
		if !strings.HasSuffix(sentence, ".") {
			sentence += "."
		}
		findings = append(findings, sentence)
	}

	if len(findings) < minFindings {
		findings = backfillFindings(findings, abstract)
	}

	if len(findings) < 2 {
		findings = append(findings[:0], genericFindings...)
	}

	if len(findings) > maxFindings {
		findings = findings[:maxFindings]
	}

	return findings
}

// backfillFindings appends abstract sentences until at least minFindings
// are present.
func backfillFindings(findings []string, abstract string) []string {
	for _, sentence := range strings.Split(abstract, ". ") {
		if len(findings) >= minFindings {
			break
		}
		sentence = strings.TrimSpace(sentence)
		if len(sentence) <= minBackfillLength {
			continue
		}
		if !strings.HasSuffix(sentence, ".") {
			sentence += "."
		}
		if slices.Contains(findings, sentence) {
			continue
		}
		findings = append(findings, sentence)
	}
	return findings
}

// extractMethodology finds the first abstract sentence containing a
// methodology keyword, or falls back to the generic methodology text.
func extractMethodology(abstract string) string {
	for _, sentence := range strings.Split(abstract, ". ") {
		lower := strings.ToLower(sentence)
		for _, keyword := range methodologyKeywords {
			if strings.Contains(lower, keyword) {
				return strings.TrimSpace(sentence)
			}
		}
	}
	return fallbackMethodology
}

// cleanSection strips the prompt echo and surrounding whitespace from a
// generated section.
func cleanSection(text, promptPrefix string) string {
	return strings.TrimSpace(stripPromptEcho(strings.TrimSpace(text), promptPrefix))
}

// stripPromptEcho removes a leading repeat of the prompt instruction that
// generation backends sometimes produce.
func stripPromptEcho(text, promptPrefix string) string {
	prefix := strings.TrimSpace(promptPrefix)
	if rest, ok := strings.CutPrefix(strings.TrimSpace(text), prefix); ok {
		return strings.TrimSpace(rest)
	}
	return text
}

// truncate returns at most n runes of s without splitting a multi-byte
// character.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

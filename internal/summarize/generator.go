package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-discovery-service/internal/domain"
)

// GenerateOptions bound the output of a single generation call.
type GenerateOptions struct {
	// MaxLength is the maximum output length in tokens.
	MaxLength int

	// MinLength is the minimum output length in tokens.
	MinLength int

	// NumBeams is the beam search width.
	NumBeams int
}

// Generator produces bounded-length abstractive text from an input prompt.
// Implementations must respect context cancellation and return an error
// rather than a partial result when generation fails.
type Generator interface {
	Generate(ctx context.Context, text string, opts GenerateOptions) (string, error)
}

// HTTPGeneratorConfig contains configuration for the HTTP generation backend.
type HTTPGeneratorConfig struct {
	// BaseURL is the inference endpoint base URL.
	BaseURL string

	// Timeout is the per-request timeout.
	Timeout time.Duration
}

func (c *HTTPGeneratorConfig) applyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
}

// HTTPGenerator calls a self-hosted summarization inference service over
// HTTP. The service accepts a JSON body with the input text and generation
// bounds and returns the generated text.
type HTTPGenerator struct {
	config     HTTPGeneratorConfig
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewHTTPGenerator creates a new HTTPGenerator.
func NewHTTPGenerator(cfg HTTPGeneratorConfig, logger zerolog.Logger) *HTTPGenerator {
	cfg.applyDefaults()

	return &HTTPGenerator{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger.With().Str("component", "http_generator").Logger(),
	}
}

// generateRequest is the wire format sent to the inference service.
type generateRequest struct {
	Text      string `json:"text"`
	MaxLength int    `json:"max_length"`
	MinLength int    `json:"min_length"`
	NumBeams  int    `json:"num_beams"`
}

// generateResponse is the wire format returned by the inference service.
type generateResponse struct {
	GeneratedText string `json:"generated_text"`
}

// Generate sends the text to the inference service and returns the
// generated output.
func (g *HTTPGenerator) Generate(ctx context.Context, text string, opts GenerateOptions) (string, error) {
	body, err := json.Marshal(generateRequest{
		Text:      text,
		MaxLength: opts.MaxLength,
		MinLength: opts.MinLength,
		NumBeams:  opts.NumBeams,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.config.BaseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing generate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return "", domain.NewExternalAPIError("summarizer", resp.StatusCode,
			fmt.Sprintf("generation backend returned status %d: %s", resp.StatusCode, string(respBody)), nil)
	}

	var result generateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding generate response: %w", err)
	}

	return result.GeneratedText, nil
}

// Ping checks whether the generation backend is reachable. A failed ping is
// reported but must not prevent service startup.
func (g *HTTPGenerator) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.config.BaseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("creating health request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing health request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.NewExternalAPIError("summarizer", resp.StatusCode, "generation backend unhealthy", nil)
	}

	return nil
}

package papersources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/helixir/paper-discovery-service/internal/domain"
)

// Default HTTP client settings shared by all provider clients.
const (
	defaultHTTPTimeout    = 30 * time.Second
	defaultHTTPRateLimit  = 10
	defaultHTTPBurstSize  = 10
	defaultHTTPMaxRetries = 3
	defaultHTTPRetryDelay = time.Second
	defaultUserAgent      = "Helixir-PaperDiscovery/1.0"
)

// HTTPClientConfig configures the HTTP client.
type HTTPClientConfig struct {
	// Timeout is the request timeout for HTTP operations.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxRetries is the maximum number of retry attempts.
	MaxRetries int

	// RetryDelay is the base delay between retries. Each subsequent
	// attempt doubles it.
	RetryDelay time.Duration

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string

	// APIKey is an optional API key for authentication.
	APIKey string

	// APIKeyHeader is the header name for the API key (e.g., "X-API-Key", "Authorization").
	APIKeyHeader string
}

func (c *HTTPClientConfig) applyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = defaultHTTPTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = defaultHTTPRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = defaultHTTPBurstSize
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaultHTTPMaxRetries
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = defaultHTTPRetryDelay
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
}

// HTTPClient wraps http.Client with provider rate limiting and retry on
// transient upstream failures. It is safe for concurrent use.
type HTTPClient struct {
	client      *http.Client
	rateLimiter *RateLimiter
	config      HTTPClientConfig
}

// NewHTTPClient creates a new HTTP client with rate limiting. Requests wait
// for a rate limiter slot before leaving and are retried with exponential
// backoff on 429 (honoring Retry-After), 5xx responses, and network errors.
func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	cfg.applyDefaults()

	return &HTTPClient{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: NewRateLimiter(cfg.RateLimit, cfg.BurstSize),
		config:      cfg,
	}
}

// Do executes an HTTP request with rate limiting and retries.
//
// The request body is not preserved across retries; callers must provide
// requests with GetBody set if the body needs to be resent on retry.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	if c.config.APIKey != "" && c.config.APIKeyHeader != "" {
		req.Header.Set(c.config.APIKeyHeader, c.config.APIKey)
	}

	backoff := c.config.RetryDelay
	var lastErr error

	for attempt := 0; ; attempt++ {
		if err := c.rateLimiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		resp, err := c.client.Do(req)
		switch {
		case err != nil:
			// Context errors are terminal; the caller gave up.
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			lastErr = fmt.Errorf("request failed: %w", err)
			if attempt >= c.config.MaxRetries {
				return nil, lastErr
			}
			if err := c.retryAfter(req, backoff); err != nil {
				return nil, err
			}

		case retryableStatus(resp.StatusCode):
			delay := retryDelayFor(resp, backoff)
			drainBody(resp)

			if attempt >= c.config.MaxRetries {
				if resp.StatusCode == http.StatusTooManyRequests {
					return nil, domain.NewRateLimitError(req.URL.Host, delay)
				}
				return nil, fmt.Errorf("max retries exhausted after %d attempts, last status: %d",
					c.config.MaxRetries+1, resp.StatusCode)
			}
			lastErr = fmt.Errorf("server returned status %d", resp.StatusCode)
			if err := c.retryAfter(req, delay); err != nil {
				return nil, err
			}

		default:
			// Success or a non-retryable client error.
			return resp, nil
		}

		backoff *= 2
	}
}

// retryAfter sleeps for the given delay respecting context cancellation,
// then rewinds the request body so the next attempt can resend it.
func (c *HTTPClient) retryAfter(req *http.Request, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-req.Context().Done():
		return req.Context().Err()
	case <-timer.C:
	}

	if req.Body == nil || req.GetBody == nil {
		return nil
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("cannot retry request: %w", err)
	}
	req.Body = body
	return nil
}

// retryableStatus reports whether the response status warrants a retry:
// 429 Too Many Requests or any 5xx.
func retryableStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests ||
		(statusCode >= 500 && statusCode < 600)
}

// retryDelayFor picks the wait before the next attempt. A Retry-After
// header (seconds or HTTP date) takes precedence over the backoff delay.
func retryDelayFor(resp *http.Response, backoff time.Duration) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return backoff
	}

	if seconds, err := strconv.ParseInt(header, 10, 64); err == nil {
		if seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
		return backoff
	}

	if t, err := http.ParseTime(header); err == nil {
		if delay := time.Until(t); delay > 0 {
			return delay
		}
	}

	return backoff
}

// drainBody discards and closes a response body so the connection can be
// reused before a retry.
func drainBody(resp *http.Response) {
	if resp.Body != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
}

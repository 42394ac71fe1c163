package papersources

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-discovery-service/internal/domain"
)

func TestNewHTTPClient(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		client := NewHTTPClient(HTTPClientConfig{})

		assert.Equal(t, defaultHTTPTimeout, client.config.Timeout)
		assert.Equal(t, float64(defaultHTTPRateLimit), client.config.RateLimit)
		assert.Equal(t, defaultHTTPBurstSize, client.config.BurstSize)
		assert.Equal(t, defaultHTTPMaxRetries, client.config.MaxRetries)
		assert.Equal(t, defaultHTTPRetryDelay, client.config.RetryDelay)
		assert.Equal(t, "Helixir-PaperDiscovery/1.0", client.config.UserAgent)
	})

	t.Run("keeps explicit settings", func(t *testing.T) {
		client := NewHTTPClient(HTTPClientConfig{
			Timeout:    5 * time.Second,
			RateLimit:  2,
			MaxRetries: 1,
			UserAgent:  "custom-agent/2.0",
		})

		assert.Equal(t, 5*time.Second, client.config.Timeout)
		assert.Equal(t, float64(2), client.config.RateLimit)
		assert.Equal(t, 1, client.config.MaxRetries)
		assert.Equal(t, "custom-agent/2.0", client.config.UserAgent)
	})
}

func TestHTTPClient_Do(t *testing.T) {
	t.Run("sets user agent and api key headers", func(t *testing.T) {
		var gotUserAgent, gotAPIKey string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUserAgent = r.Header.Get("User-Agent")
			gotAPIKey = r.Header.Get("X-API-Key")
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		client := NewHTTPClient(HTTPClientConfig{
			RateLimit:    1000,
			APIKey:       "secret",
			APIKeyHeader: "X-API-Key",
		})

		req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
		require.NoError(t, err)
		resp, err := client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, "Helixir-PaperDiscovery/1.0", gotUserAgent)
		assert.Equal(t, "secret", gotAPIKey)
	})

	t.Run("preserves caller user agent", func(t *testing.T) {
		var gotUserAgent string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUserAgent = r.Header.Get("User-Agent")
		}))
		defer srv.Close()

		client := NewHTTPClient(HTTPClientConfig{RateLimit: 1000})
		req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "caller-agent/1.0")

		resp, err := client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, "caller-agent/1.0", gotUserAgent)
	})

	t.Run("returns non-retryable errors unchanged", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		client := NewHTTPClient(HTTPClientConfig{RateLimit: 1000})
		req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
		require.NoError(t, err)

		resp, err := client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("retries 429 honoring Retry-After", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		client := NewHTTPClient(HTTPClientConfig{RateLimit: 1000, MaxRetries: 2})
		req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
		require.NoError(t, err)

		start := time.Now()
		resp, err := client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, int32(2), calls.Load())
		assert.GreaterOrEqual(t, time.Since(start), time.Second)
	})

	t.Run("retries 5xx until success", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) <= 2 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		client := NewHTTPClient(HTTPClientConfig{
			RateLimit:  1000,
			MaxRetries: 3,
			RetryDelay: time.Millisecond,
		})
		req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
		require.NoError(t, err)

		resp, err := client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		client := NewHTTPClient(HTTPClientConfig{
			RateLimit:  1000,
			MaxRetries: 2,
			RetryDelay: time.Millisecond,
		})
		req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
		require.NoError(t, err)

		_, err = client.Do(req)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "max retries exhausted")
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("persistent 429 surfaces as rate limit error", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		client := NewHTTPClient(HTTPClientConfig{
			RateLimit:  1000,
			MaxRetries: 2,
			RetryDelay: time.Millisecond,
		})
		req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
		require.NoError(t, err)

		_, err = client.Do(req)

		require.Error(t, err)
		require.ErrorIs(t, err, domain.ErrRateLimited)
		var rateLimitErr *domain.RateLimitError
		require.ErrorAs(t, err, &rateLimitErr)
		assert.Equal(t, req.URL.Host, rateLimitErr.Source)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("resends body on retry", func(t *testing.T) {
		var calls atomic.Int32
		var lastBody string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data, _ := io.ReadAll(r.Body)
			lastBody = string(data)
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		client := NewHTTPClient(HTTPClientConfig{
			RateLimit:  1000,
			MaxRetries: 1,
			RetryDelay: time.Millisecond,
		})
		// http.NewRequest sets GetBody for string readers.
		req, err := http.NewRequest(http.MethodPost, srv.URL, strings.NewReader(`{"q":"test"}`))
		require.NoError(t, err)

		resp, err := client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, int32(2), calls.Load())
		assert.Equal(t, `{"q":"test"}`, lastBody)
	})

	t.Run("respects context cancellation during retry wait", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		client := NewHTTPClient(HTTPClientConfig{
			RateLimit:  1000,
			MaxRetries: 5,
			RetryDelay: 10 * time.Second,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
		require.NoError(t, err)

		_, err = client.Do(req)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestHTTPClient_RateLimiting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	// 10 req/sec with a burst of 1: the third request cannot leave before
	// roughly 200ms have passed.
	client := NewHTTPClient(HTTPClientConfig{RateLimit: 10, BurstSize: 1})

	start := time.Now()
	for i := 0; i < 3; i++ {
		req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
		require.NoError(t, err)
		resp, err := client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
	}

	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestRetryableStatus(t *testing.T) {
	retryable := []int{http.StatusTooManyRequests, 500, 502, 503, 504, 599}
	for _, code := range retryable {
		assert.True(t, retryableStatus(code), "status %d", code)
	}

	terminal := []int{200, 201, 204, 301, 400, 401, 403, 404, 422, 499}
	for _, code := range terminal {
		assert.False(t, retryableStatus(code), "status %d", code)
	}
}

func TestRetryDelayFor(t *testing.T) {
	backoff := 2 * time.Second

	tests := []struct {
		name       string
		retryAfter string
		expected   time.Duration
	}{
		{name: "no header uses backoff", retryAfter: "", expected: backoff},
		{name: "seconds value", retryAfter: "5", expected: 5 * time.Second},
		{name: "zero seconds falls back", retryAfter: "0", expected: backoff},
		{name: "garbage falls back", retryAfter: "soon", expected: backoff},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{Header: http.Header{}}
			if tt.retryAfter != "" {
				resp.Header.Set("Retry-After", tt.retryAfter)
			}
			assert.Equal(t, tt.expected, retryDelayFor(resp, backoff))
		})
	}

	t.Run("http date in the future", func(t *testing.T) {
		resp := &http.Response{Header: http.Header{}}
		resp.Header.Set("Retry-After", time.Now().Add(3*time.Second).UTC().Format(http.TimeFormat))

		delay := retryDelayFor(resp, backoff)
		assert.Greater(t, delay, time.Second)
		assert.LessOrEqual(t, delay, 3*time.Second)
	})

	t.Run("http date in the past falls back", func(t *testing.T) {
		resp := &http.Response{Header: http.Header{}}
		resp.Header.Set("Retry-After", time.Now().Add(-time.Minute).UTC().Format(http.TimeFormat))

		assert.Equal(t, backoff, retryDelayFor(resp, backoff))
	})
}

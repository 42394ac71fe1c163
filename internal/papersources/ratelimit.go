// Package papersources provides clients for searching academic paper catalogs.
package papersources

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket gate ensuring no more than the configured
// number of requests per second leave for a given provider. Safe for
// concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a rate limiter with the given sustained rate and
// burst size. A non-positive rate or burst falls back to 1, so a zero-value
// provider config still leaves at least one request per second possible.
func NewRateLimiter(ratePerSecond float64, burst int) *RateLimiter {
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
}

// Wait blocks until a request is allowed or the context is canceled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Allow reports whether a request may proceed right now, consuming a token
// when it may.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// SetRate updates the sustained rate, preserving the burst size. Used to
// adjust a provider's pace at runtime, e.g. after authenticating into a
// higher rate tier.
func (r *RateLimiter) SetRate(ratePerSecond float64) {
	r.limiter.SetLimit(rate.Limit(ratePerSecond))
}

// SetBurst updates the burst size.
func (r *RateLimiter) SetBurst(burst int) {
	r.limiter.SetBurst(burst)
}

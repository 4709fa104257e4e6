// Package ratelimit paces outbound requests with a token bucket.
// Requests remain strictly sequential; the limiter only spaces them out so
// the remote service is not hammered during large paginated fetches.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter wraps a single token bucket for one remote host.
type Limiter struct {
	bucket *rate.Limiter
}

// New creates a limiter allowing rps requests per second with the given burst.
func New(rps float64, burst int) *Limiter {
	return &Limiter{bucket: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Wait blocks until the next request is allowed or the context is canceled.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.bucket.Wait(ctx)
}

// Allow reports whether a request may proceed right now without blocking.
func (l *Limiter) Allow() bool {
	return l.bucket.Allow()
}

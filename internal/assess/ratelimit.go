package assess

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultRequestsPerMinute paces backend requests when nothing else is configured
const DefaultRequestsPerMinute = 60

// RateLimiter paces requests sent to the assessment backend.
type RateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
}

// NewRateLimiter allows perMinute requests per minute with a burst of one.
// A non-positive value selects DefaultRequestsPerMinute.
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = DefaultRequestsPerMinute
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

// SetLimit replaces the pacing, e.g. rate.Inf in tests.
func (r *RateLimiter) SetLimit(limit rate.Limit, burst int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limiter = rate.NewLimiter(limit, burst)
}

// Wait blocks until the next request may be sent or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	l := r.limiter
	r.mu.Unlock()
	return l.Wait(ctx)
}

// Limit returns the current rate in events per second.
func (r *RateLimiter) Limit() rate.Limit {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.limiter.Limit()
}

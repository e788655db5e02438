package worker

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter paces model calls per provider endpoint host
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a new rate limiter. A non-positive rate disables pacing.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}

	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}

	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  limit,
		defaultBurst: burst,
	}
}

// Wait waits for rate limit clearance for the given endpoint
func (l *Limiter) Wait(ctx context.Context, endpoint string) error {
	return l.getLimiter(hostKey(endpoint)).Wait(ctx)
}

// Allow checks if a request is allowed without waiting
func (l *Limiter) Allow(endpoint string) bool {
	return l.getLimiter(hostKey(endpoint)).Allow()
}

// getLimiter returns the rate limiter for a host
func (l *Limiter) getLimiter(host string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[host]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := l.limiters[host]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[host] = limiter

	return limiter
}

// SetHostRate sets a custom rate limit for a specific host
func (l *Limiter) SetHostRate(host string, requestsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.defaultBurst
	}

	l.limiters[strings.ToLower(host)] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

// hostKey reduces an endpoint URL to its host. Values that do not parse as
// an absolute URL are used as the key verbatim.
func hostKey(endpoint string) string {
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Host == "" {
		return strings.ToLower(endpoint)
	}
	return strings.ToLower(parsed.Host)
}

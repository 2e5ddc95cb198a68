package ratelimit

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"
)

// Limit is a token bucket: sustained requests per second plus burst. A
// non-positive rate disables limiting.
type Limit struct {
	RequestsPerSecond float64
	Burst             int
}

// DefaultLimit is the bucket applied to providers without an override.
func DefaultLimit() Limit {
	return Limit{
		RequestsPerSecond: 5,
		Burst:             10,
	}
}

// ProviderLimiter keeps one token bucket per upstream provider so a burst
// of return-pairing calls cannot exceed what the provider tolerates.
type ProviderLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	defaults Limit
}

func NewProviderLimiter(defaults Limit, overrides map[string]Limit) *ProviderLimiter {
	p := &ProviderLimiter{
		limiters: make(map[string]*rate.Limiter),
		defaults: defaults,
	}
	for name, l := range overrides {
		p.SetProviderLimit(name, l)
	}
	return p
}

func newLimiter(l Limit) *rate.Limiter {
	if l.RequestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := l.Burst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(l.RequestsPerSecond), burst)
}

func (p *ProviderLimiter) limiter(provider string) *rate.Limiter {
	p.mu.RLock()
	limiter, exists := p.limiters[provider]
	p.mu.RUnlock()

	if exists {
		return limiter
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if limiter, exists = p.limiters[provider]; exists {
		return limiter
	}

	limiter = newLimiter(p.defaults)
	p.limiters[provider] = limiter
	return limiter
}

// SetProviderLimit replaces the bucket of one provider.
func (p *ProviderLimiter) SetProviderLimit(provider string, l Limit) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.limiters[provider] = newLimiter(l)
}

// Wait blocks until provider may be called. It fails when ctx ends first or
// its deadline leaves no room for the wait.
func (p *ProviderLimiter) Wait(ctx context.Context, provider string) error {
	if err := p.limiter(provider).Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Wrapf(ctxErr, "rate limit wait for %s", provider)
		}
		return errors.Wrapf(context.DeadlineExceeded, "rate limit wait for %s: %v", provider, err)
	}
	return nil
}

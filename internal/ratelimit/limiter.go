package ratelimit

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/dharmasatrya/farebroker/internal/models"
)

// Limit is a token-bucket budget. A non-positive RPS disables pacing.
type Limit struct {
	RPS   float64
	Burst int
}

func DefaultLimit() Limit {
	return Limit{RPS: 5, Burst: 10}
}

// ProviderLimiter paces outbound calls to the primary and fallback
// providers. It is independent of Cooldown, which reacts to upstream 429s.
// Buckets are fixed at construction.
type ProviderLimiter struct {
	primary  *rate.Limiter
	fallback *rate.Limiter
}

func NewProviderLimiter(primary, fallback Limit) *ProviderLimiter {
	return &ProviderLimiter{
		primary:  primary.bucket(),
		fallback: fallback.bucket(),
	}
}

func (l Limit) bucket() *rate.Limiter {
	if l.RPS <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := l.Burst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(l.RPS), burst)
}

func (p *ProviderLimiter) limiter(provider models.ProviderTag) *rate.Limiter {
	switch provider {
	case models.ProviderPrimary:
		return p.primary
	case models.ProviderFallback:
		return p.fallback
	}
	return nil
}

// Wait blocks until the provider's bucket has a token. It fails early when
// ctx would expire first. Unknown providers are not paced.
func (p *ProviderLimiter) Wait(ctx context.Context, provider models.ProviderTag) error {
	lim := p.limiter(provider)
	if lim == nil {
		return nil
	}
	if err := lim.Wait(ctx); err != nil {
		return fmt.Errorf("%s pacing: %w", provider, err)
	}
	return nil
}

// Allow takes a token without waiting and reports whether one was available.
func (p *ProviderLimiter) Allow(provider models.ProviderTag) bool {
	lim := p.limiter(provider)
	return lim == nil || lim.Allow()
}

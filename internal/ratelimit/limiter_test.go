package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/dharmasatrya/farebroker/internal/models"
)

func TestProviderLimiterSeparateBuckets(t *testing.T) {
	p := NewProviderLimiter(Limit{RPS: 0.001, Burst: 1}, Limit{RPS: 0.001, Burst: 2})

	if !p.Allow(models.ProviderPrimary) {
		t.Fatal("primary burst token should be available")
	}
	if p.Allow(models.ProviderPrimary) {
		t.Fatal("primary bucket should be empty after its burst")
	}
	for i := 0; i < 2; i++ {
		if !p.Allow(models.ProviderFallback) {
			t.Fatalf("fallback token %d should not be affected by primary use", i)
		}
	}
	if p.Allow(models.ProviderFallback) {
		t.Fatal("fallback bucket should be empty after its burst")
	}
}

func TestProviderLimiterWaitHonoursContext(t *testing.T) {
	p := NewProviderLimiter(Limit{RPS: 0.001, Burst: 1}, DefaultLimit())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := p.Wait(ctx, models.ProviderPrimary); err != nil {
		t.Fatalf("first call should use the burst token: %v", err)
	}
	if err := p.Wait(ctx, models.ProviderPrimary); err == nil {
		t.Fatal("second call should fail once the context deadline cannot be met")
	}
}

func TestProviderLimiterDisabledWhenRateNonPositive(t *testing.T) {
	p := NewProviderLimiter(DefaultLimit(), Limit{})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	for i := 0; i < 100; i++ {
		if err := p.Wait(ctx, models.ProviderFallback); err != nil {
			t.Fatalf("unpaced limiter blocked on call %d: %v", i, err)
		}
	}
}

func TestProviderLimiterUnknownProviderNotPaced(t *testing.T) {
	p := NewProviderLimiter(Limit{RPS: 0.001, Burst: 1}, Limit{RPS: 0.001, Burst: 1})
	for i := 0; i < 5; i++ {
		if err := p.Wait(context.Background(), "other"); err != nil {
			t.Fatalf("unknown provider paced on call %d: %v", i, err)
		}
	}
}

package ratelimit

import (
	"net/http"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func newTestCooldown() (*Cooldown, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	return NewCooldown(30*time.Second, WithClock(clock.Now)), clock
}

func TestCooldownInactiveByDefault(t *testing.T) {
	c, _ := newTestCooldown()
	if c.IsCoolingDown() {
		t.Fatal("fresh cooldown should be inactive")
	}
	if r := c.Remaining(); r != 0 {
		t.Fatalf("remaining = %v, want 0", r)
	}
}

func TestCooldownRetryAfterHeader(t *testing.T) {
	c, clock := newTestCooldown()
	h := http.Header{}
	h.Set("Retry-After", "45")

	c.RecordThrottled(h)

	want := clock.Now().Add(45 * time.Second)
	if got := c.ActiveUntil(); !got.Equal(want) {
		t.Fatalf("activeUntil = %v, want %v", got, want)
	}
	if !c.IsCoolingDown() {
		t.Fatal("expected cooling down right after throttle")
	}

	clock.Advance(10 * time.Second)
	if !c.IsCoolingDown() {
		t.Fatal("expected still cooling down after 10s")
	}
	if r := c.Remaining(); r != 35*time.Second {
		t.Fatalf("remaining = %v, want 35s", r)
	}

	clock.Advance(35 * time.Second)
	if c.IsCoolingDown() {
		t.Fatal("cooldown should expire once activeUntil is reached")
	}
}

func TestCooldownHeaderVariants(t *testing.T) {
	base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		headers map[string]string
		want    time.Duration
	}{
		{"no header", nil, 30 * time.Second},
		{"ratelimit-reset delta", map[string]string{"ratelimit-reset": "12"}, 12 * time.Second},
		{"x-ratelimit-reset epoch", map[string]string{"x-ratelimit-reset": "1780315260"}, 60 * time.Second},
		{"fractional seconds", map[string]string{"Retry-After": "7.9"}, 7 * time.Second},
		{"ratelimit-reset wins over retry-after", map[string]string{"ratelimit-reset": "5", "Retry-After": "90"}, 5 * time.Second},
		{"malformed", map[string]string{"Retry-After": "Wed, 21 Oct 2015 07:28:00 GMT"}, 30 * time.Second},
		{"zero", map[string]string{"Retry-After": "0"}, 30 * time.Second},
		{"negative", map[string]string{"Retry-After": "-4"}, 30 * time.Second},
		{"not a number", map[string]string{"Retry-After": "NaN"}, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := &fakeClock{t: base}
			c := NewCooldown(30*time.Second, WithClock(clock.Now))
			h := http.Header{}
			for k, v := range tt.headers {
				h.Set(k, v)
			}
			c.RecordThrottled(h)
			if got := c.ActiveUntil().Sub(base); got != tt.want {
				t.Fatalf("cooldown = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCooldownConcurrentAccess(t *testing.T) {
	c, _ := newTestCooldown()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.RecordThrottled(http.Header{})
		}()
		go func() {
			defer wg.Done()
			_ = c.IsCoolingDown()
			_ = c.Remaining()
		}()
	}
	wg.Wait()
	if !c.IsCoolingDown() {
		t.Fatal("expected cooling down after concurrent throttles")
	}
}

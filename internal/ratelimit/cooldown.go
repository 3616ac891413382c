package ratelimit

import (
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const DefaultCooldown = 30 * time.Second

// resetHeaders are consulted in order; the first non-empty one wins.
var resetHeaders = []string{"Ratelimit-Reset", "X-Ratelimit-Reset", "Retry-After"}

// Cooldown tracks the single throttle window of the primary provider.
// It expires purely by clock comparison; there is no reset.
type Cooldown struct {
	mu          sync.Mutex
	activeUntil time.Time
	fallback    time.Duration
	now         func() time.Time
}

type CooldownOption func(*Cooldown)

func WithClock(now func() time.Time) CooldownOption {
	return func(c *Cooldown) { c.now = now }
}

func NewCooldown(defaultDuration time.Duration, opts ...CooldownOption) *Cooldown {
	if defaultDuration <= 0 {
		defaultDuration = DefaultCooldown
	}
	c := &Cooldown{fallback: defaultDuration, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cooldown) IsCoolingDown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now().Before(c.activeUntil)
}

// Remaining returns the time left in whole seconds (at least 1s while active).
func (c *Cooldown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	left := c.activeUntil.Sub(c.now())
	if left <= 0 {
		return 0
	}
	secs := math.Ceil(left.Seconds())
	return time.Duration(math.Max(1, secs)) * time.Second
}

// ActiveUntil returns the end of the current window, zero when none was ever recorded.
func (c *Cooldown) ActiveUntil() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeUntil
}

// RecordThrottled opens a cooldown window from the provider's rate-limit headers.
func (c *Cooldown) RecordThrottled(h http.Header) {
	c.mu.Lock()
	now := c.now()
	wait := c.retryAfter(h, now)
	c.activeUntil = now.Add(wait)
	until := c.activeUntil
	c.mu.Unlock()

	log.Printf("[cooldown] primary provider rate-limited, cooling down %s until %s",
		wait, until.UTC().Format(time.RFC3339))
}

// retryAfter accepts either a delta in seconds or an absolute unix epoch.
func (c *Cooldown) retryAfter(h http.Header, now time.Time) time.Duration {
	var raw string
	for _, name := range resetHeaders {
		if v := strings.TrimSpace(h.Get(name)); v != "" {
			raw = v
			break
		}
	}
	if raw == "" {
		return c.fallback
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return c.fallback
	}
	seconds := int64(value)
	nowUnix := now.Unix()
	if seconds > nowUnix+1 {
		seconds -= nowUnix
	}
	if seconds <= 0 {
		return c.fallback
	}
	return time.Duration(seconds) * time.Second
}

package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/dharmasatrya/farebroker/internal/cache"
)

const DefaultPriceTTL = 24 * time.Hour

// DayPrices maps "2006-01-02" to the cheapest whole-unit price that day.
type DayPrices map[string]int

func (p DayPrices) clone() DayPrices {
	out := make(DayPrices, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

type localEntry struct {
	prices   DayPrices
	storedAt time.Time
}

// PriceCache stores month calendars in the shared tier and an in-process
// map. The shared tier is authoritative; the local map covers its outages.
type PriceCache struct {
	shared cache.SharedCache
	ttl    time.Duration
	now    func() time.Time

	mu    sync.Mutex
	local map[string]localEntry
}

type PriceCacheOption func(*PriceCache)

func WithPriceCacheClock(now func() time.Time) PriceCacheOption {
	return func(c *PriceCache) { c.now = now }
}

func NewPriceCache(shared cache.SharedCache, ttl time.Duration, opts ...PriceCacheOption) *PriceCache {
	if shared == nil {
		shared = cache.NewNoOpCache()
	}
	if ttl <= 0 {
		ttl = DefaultPriceTTL
	}
	c := &PriceCache{
		shared: shared,
		ttl:    ttl,
		now:    time.Now,
		local:  make(map[string]localEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *PriceCache) Get(ctx context.Context, key Key) (DayPrices, bool) {
	k := key.String()

	data, err := c.shared.Get(ctx, k)
	switch {
	case err == nil:
		var prices DayPrices
		uerr := json.Unmarshal(data, &prices)
		if uerr == nil {
			if prices == nil {
				prices = DayPrices{}
			}
			return prices, true
		}
		log.Printf("[calendar] decode shared entry %s: %v", k, uerr)
	case !errors.Is(err, cache.ErrMiss):
		log.Printf("[calendar] shared cache get %s: %v", k, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.local[k]
	if !ok || c.now().Sub(e.storedAt) >= c.ttl {
		return nil, false
	}
	return e.prices.clone(), true
}

func (c *PriceCache) Set(ctx context.Context, key Key, prices DayPrices) {
	k := key.String()
	if prices == nil {
		prices = DayPrices{}
	}

	if data, err := json.Marshal(prices); err != nil {
		log.Printf("[calendar] encode %s: %v", k, err)
	} else if err := c.shared.Set(ctx, k, data, c.ttl); err != nil {
		log.Printf("[calendar] shared cache set %s: %v", k, err)
	}

	c.mu.Lock()
	c.local[k] = localEntry{prices: prices.clone(), storedAt: c.now()}
	c.mu.Unlock()
}

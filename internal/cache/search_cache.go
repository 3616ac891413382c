package cache

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dharmasatrya/farebroker/internal/models"
)

const (
	DefaultTTL     = 5 * time.Minute
	DefaultMaxSize = 100
)

// Key builds the search cache key from the normalized request. Filters
// are not part of the key since they are applied after caching.
func Key(req models.SearchRequest) string {
	return fmt.Sprintf("%s_%s_%s_%d_%d_%d_%s",
		req.Origin, req.Destination, req.DepartureDate,
		req.Passengers.Adults, req.Passengers.Children, req.Passengers.Infants,
		req.CabinClass)
}

type entry struct {
	offers     []models.Offer
	insertedAt time.Time
}

type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Size    int     `json:"size"`
	MaxSize int     `json:"max_size"`
	HitRate float64 `json:"hit_rate"`
}

// SearchCache is an in-process TTL cache of aggregated search results.
type SearchCache struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	maxSize int
	hits    int64
	misses  int64
	now     func() time.Time
}

type Option func(*SearchCache)

func WithClock(now func() time.Time) Option {
	return func(c *SearchCache) { c.now = now }
}

func NewSearchCache(ttl time.Duration, maxSize int, opts ...Option) *SearchCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	c := &SearchCache{
		entries: make(map[string]entry),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached offers when the entry is younger than the TTL.
// Expired entries stay in place until the next cleanup.
func (c *SearchCache) Get(key string) ([]models.Offer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.insertedAt) >= c.ttl {
		c.misses++
		return nil, false
	}
	c.hits++
	return cloneOffers(e.offers), true
}

func (c *SearchCache) Put(key string, offers []models.Offer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if len(c.entries) >= c.maxSize {
		c.cleanup(now)
	}
	c.entries[key] = entry{offers: cloneOffers(offers), insertedAt: now}
}

// cleanup drops expired entries, then the oldest half (at least one) if
// still full.
func (c *SearchCache) cleanup(now time.Time) {
	for k, e := range c.entries {
		if now.Sub(e.insertedAt) >= c.ttl {
			delete(c.entries, k)
		}
	}
	if len(c.entries) < c.maxSize {
		return
	}

	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := c.entries[keys[i]].insertedAt, c.entries[keys[j]].insertedAt
		if a.Equal(b) {
			return keys[i] < keys[j]
		}
		return a.Before(b)
	})
	for _, k := range keys[:max(1, len(keys)/2)] {
		delete(c.entries, k)
	}
}

func (c *SearchCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Hits:    c.hits,
		Misses:  c.misses,
		Size:    len(c.entries),
		MaxSize: c.maxSize,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

func cloneOffers(offers []models.Offer) []models.Offer {
	if offers == nil {
		return nil
	}
	out := make([]models.Offer, len(offers))
	copy(out, offers)
	return out
}

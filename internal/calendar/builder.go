package calendar

import (
	"context"
	"log"
	"time"

	"github.com/dharmasatrya/farebroker/internal/models"
	"github.com/dharmasatrya/farebroker/internal/ratelimit"
	"github.com/dharmasatrya/farebroker/internal/search"
	"github.com/dharmasatrya/farebroker/internal/timeutil"
)

// Searcher is the single-day search primitive. SearchDay must not record
// the query in the search log.
type Searcher interface {
	SearchDay(ctx context.Context, req models.SearchRequest) (*search.Result, error)
}

type Builder struct {
	searcher Searcher
	cooldown *ratelimit.Cooldown
	cache    *PriceCache
	tracker  *Tracker
	now      func() time.Time
}

type BuilderOption func(*Builder)

func WithBuilderClock(now func() time.Time) BuilderOption {
	return func(b *Builder) { b.now = now }
}

func NewBuilder(searcher Searcher, cooldown *ratelimit.Cooldown, prices *PriceCache, tracker *Tracker, opts ...BuilderOption) *Builder {
	b := &Builder{
		searcher: searcher,
		cooldown: cooldown,
		cache:    prices,
		tracker:  tracker,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build searches every remaining day of the month and keeps the cheapest
// price per day. It stops early while the primary is cooling down, and
// complete reports whether every remaining day was searched.
func (b *Builder) Build(ctx context.Context, key Key) (prices DayPrices, complete bool) {
	prices = DayPrices{}
	today := timeutil.DayStart(b.now())

	for _, day := range timeutil.MonthDays(key.Year, time.Month(key.Month)) {
		if day.Before(today) {
			continue
		}
		if ctx.Err() != nil {
			return prices, false
		}
		if b.cooldown != nil && b.cooldown.IsCoolingDown() {
			log.Printf("[calendar] %s: cooldown active, stopping at %s", key, day.Format(time.DateOnly))
			return prices, false
		}

		date := day.Format(time.DateOnly)
		res, err := b.searcher.SearchDay(ctx, models.SearchRequest{
			Origin:        key.Origin,
			Destination:   key.Destination,
			DepartureDate: date,
			Passengers:    key.Passengers,
			CabinClass:    key.CabinClass,
		})
		if err != nil {
			log.Printf("[calendar] %s %s: %v", key, date, err)
			continue
		}
		if cheapest, ok := search.CheapestPrice(res.Offers); ok {
			prices[date] = cheapest
		}
	}
	return prices, true
}

// Refresh rebuilds a month and writes it through the cache. Partial builds
// are not stored.
func (b *Builder) Refresh(ctx context.Context, key Key) (DayPrices, bool) {
	prices, complete := b.Build(ctx, key)
	if complete {
		b.cache.Set(ctx, key, prices)
	}
	return prices, complete
}

// Prices answers a calendar request from the cache, building it on a miss.
func (b *Builder) Prices(ctx context.Context, req models.CalendarRequest) (DayPrices, bool, error) {
	if err := req.Validate(); err != nil {
		return nil, false, err
	}
	key := KeyFor(req)
	if b.tracker != nil {
		b.tracker.Observe(key.Route)
	}

	if cached, ok := b.cache.Get(ctx, key); ok {
		return cached, true, nil
	}
	prices, _ := b.Refresh(ctx, key)
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	return prices, false, nil
}

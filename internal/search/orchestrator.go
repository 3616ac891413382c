package search

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dharmasatrya/farebroker/internal/aggregator"
	"github.com/dharmasatrya/farebroker/internal/cache"
	"github.com/dharmasatrya/farebroker/internal/metrics"
	"github.com/dharmasatrya/farebroker/internal/models"
	"github.com/dharmasatrya/farebroker/internal/normalize"
	"github.com/dharmasatrya/farebroker/internal/providers"
	"github.com/dharmasatrya/farebroker/internal/ratelimit"
	"github.com/dharmasatrya/farebroker/internal/searchlog"
)

const (
	DefaultTimeout      = 20 * time.Second
	DefaultLogQueueSize = 256
	searchLogTimeout    = 5 * time.Second
)

var DefaultPlaceholderAirlines = []string{"duffel airways", "duffel airline", "duffel airlines"}

type Status string

const (
	StatusSkipped     Status = "skipped"
	StatusOK          Status = "ok"
	StatusEmpty       Status = "empty"
	StatusThrottled   Status = "throttled"
	StatusFailed      Status = "failed"
	StatusCoolingDown Status = "cooling_down"
)

type ProviderOutcome struct {
	Status Status
	Count  int
	Err    error
}

func (p ProviderOutcome) completed() bool {
	return p.Status == StatusOK || p.Status == StatusEmpty || p.Status == StatusSkipped
}

type Result struct {
	Offers   []models.Offer
	CacheHit bool
	Primary  ProviderOutcome
	Fallback ProviderOutcome
}

type Dependency struct {
	Primary    providers.Primary
	Fallback   providers.Fallback
	Normalizer *normalize.Normalizer
	Cache      *cache.SearchCache
	Cooldown   *ratelimit.Cooldown
	Limiter    *ratelimit.ProviderLimiter
	SearchLog  searchlog.Store
	Metrics    *metrics.Registry

	FallbackEnabled      bool
	Timeout              time.Duration
	MaxRetries           int
	RetryDelays          []time.Duration
	ResultLimit          int
	PriorityDeltaPercent decimal.Decimal
	PlaceholderAirlines  []string
	// LogQueueSize bounds search log entries waiting for the writer;
	// entries beyond it are dropped.
	LogQueueSize int
}

type Orchestrator struct {
	dep         Dependency
	placeholder map[string]struct{}
	logs        chan searchlog.Entry
	pending     sync.WaitGroup
}

func New(dep Dependency) *Orchestrator {
	if dep.Normalizer == nil {
		dep.Normalizer = normalize.New(normalize.Config{})
	}
	if dep.Cache == nil {
		dep.Cache = cache.NewSearchCache(cache.DefaultTTL, cache.DefaultMaxSize)
	}
	if dep.Cooldown == nil {
		dep.Cooldown = ratelimit.NewCooldown(ratelimit.DefaultCooldown)
	}
	if dep.SearchLog == nil {
		dep.SearchLog = searchlog.NoopStore{}
	}
	if dep.Timeout <= 0 {
		dep.Timeout = DefaultTimeout
	}
	if len(dep.RetryDelays) == 0 {
		dep.RetryDelays = []time.Duration{200 * time.Millisecond}
	}
	if dep.PlaceholderAirlines == nil {
		dep.PlaceholderAirlines = DefaultPlaceholderAirlines
	}

	placeholder := make(map[string]struct{}, len(dep.PlaceholderAirlines))
	for _, name := range dep.PlaceholderAirlines {
		placeholder[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
	}
	if dep.LogQueueSize <= 0 {
		dep.LogQueueSize = DefaultLogQueueSize
	}

	o := &Orchestrator{
		dep:         dep,
		placeholder: placeholder,
		logs:        make(chan searchlog.Entry, dep.LogQueueSize),
	}
	go o.writeLogs()
	return o
}

func (o *Orchestrator) Cooldown() *ratelimit.Cooldown { return o.dep.Cooldown }

func (o *Orchestrator) CacheStats() cache.Stats { return o.dep.Cache.Stats() }

// Search answers one customer query and appends it to the search log.
// Provider failures are reported in the outcomes; the error is reserved
// for invalid requests and caller cancellation.
func (o *Orchestrator) Search(ctx context.Context, req models.SearchRequest) (*Result, error) {
	return o.search(ctx, req, true)
}

// SearchDay is Search without the search log entry. Calendar sweeps use it
// so their per-day searches do not count towards route popularity.
func (o *Orchestrator) SearchDay(ctx context.Context, req models.SearchRequest) (*Result, error) {
	return o.search(ctx, req, false)
}

func (o *Orchestrator) search(ctx context.Context, req models.SearchRequest, logged bool) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	key := cache.Key(req)
	if offers, ok := o.dep.Cache.Get(key); ok {
		res := &Result{
			Offers:   offers,
			CacheHit: true,
			Primary:  ProviderOutcome{Status: StatusSkipped},
			Fallback: ProviderOutcome{Status: StatusSkipped},
		}
		o.dep.Metrics.ObserveSearch(true)
		if logged {
			o.record(req, res)
		}
		return res, nil
	}

	searchCtx, cancel := context.WithTimeout(ctx, o.dep.Timeout)
	defer cancel()

	type batch struct {
		provider models.ProviderTag
		offers   []models.Offer
		outcome  ProviderOutcome
	}

	res := &Result{
		Primary:  ProviderOutcome{Status: StatusSkipped},
		Fallback: ProviderOutcome{Status: StatusSkipped},
	}
	resultCh := make(chan batch, 2)
	var wg sync.WaitGroup

	if o.dep.Cooldown.IsCoolingDown() {
		log.Printf("[search] primary cooling down for %s, skipping", o.dep.Cooldown.Remaining())
		res.Primary = ProviderOutcome{Status: StatusCoolingDown}
	} else if o.dep.Primary != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			offers, outcome := o.searchPrimary(searchCtx, req)
			resultCh <- batch{provider: models.ProviderPrimary, offers: offers, outcome: outcome}
		}()
	}

	if o.fallbackActive() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			offers, outcome := o.searchFallback(searchCtx, req)
			resultCh <- batch{provider: models.ProviderFallback, offers: offers, outcome: outcome}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	var primary, fallback []models.Offer
	for b := range resultCh {
		if b.provider == models.ProviderPrimary {
			primary, res.Primary = b.offers, b.outcome
		} else {
			fallback, res.Fallback = b.offers, b.outcome
		}
	}
	o.dep.Metrics.SetCooldown(o.dep.Cooldown.IsCoolingDown())

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res.Offers = aggregator.Merge(primary, fallback, aggregator.Options{
		Limit:                o.dep.ResultLimit,
		PriorityDeltaPercent: o.dep.PriorityDeltaPercent,
	})

	if searchCtx.Err() == nil && res.Primary.completed() && res.Fallback.completed() {
		o.dep.Cache.Put(key, res.Offers)
	}
	o.dep.Metrics.ObserveSearch(false)
	if logged {
		o.record(req, res)
	}
	return res, nil
}

func (o *Orchestrator) fallbackActive() bool {
	return o.dep.FallbackEnabled && o.dep.Fallback != nil && o.dep.Fallback.Enabled()
}

func (o *Orchestrator) searchPrimary(ctx context.Context, req models.SearchRequest) ([]models.Offer, ProviderOutcome) {
	name := o.dep.Primary.Name()
	start := time.Now()

	var raws []providers.PrimaryOffer
	err := o.call(ctx, name, func(ctx context.Context) error {
		var err error
		raws, err = o.dep.Primary.SearchOffers(ctx, req)
		return err
	})
	if err != nil {
		outcome := o.failure(name, err)
		if te, ok := providers.IsThrottled(err); ok {
			o.dep.Cooldown.RecordThrottled(te.Header)
		}
		o.dep.Metrics.ObserveProvider(name, string(outcome.Status), time.Since(start), 0)
		return nil, outcome
	}

	offers, skipped := o.dep.Normalizer.PrimaryBatch(raws)
	offers = o.dropPlaceholders(offers)
	outcome := success(len(offers))
	o.dep.Metrics.ObserveProvider(name, string(outcome.Status), time.Since(start), skipped)
	return offers, outcome
}

func (o *Orchestrator) searchFallback(ctx context.Context, req models.SearchRequest) ([]models.Offer, ProviderOutcome) {
	name := o.dep.Fallback.Name()
	start := time.Now()

	var raws []providers.FallbackOffer
	err := o.call(ctx, name, func(ctx context.Context) error {
		var err error
		raws, err = o.dep.Fallback.SearchOffers(ctx, req)
		return err
	})
	if err != nil {
		outcome := o.failure(name, err)
		o.dep.Metrics.ObserveProvider(name, string(outcome.Status), time.Since(start), 0)
		return nil, outcome
	}

	offers, skipped := o.dep.Normalizer.FallbackBatch(raws)
	outcome := success(len(offers))
	o.dep.Metrics.ObserveProvider(name, string(outcome.Status), time.Since(start), skipped)
	return offers, outcome
}

func success(n int) ProviderOutcome {
	if n == 0 {
		return ProviderOutcome{Status: StatusEmpty}
	}
	return ProviderOutcome{Status: StatusOK, Count: n}
}

func (o *Orchestrator) failure(provider string, err error) ProviderOutcome {
	if _, ok := providers.IsThrottled(err); ok {
		log.Printf("[search] %s throttled", provider)
		return ProviderOutcome{Status: StatusThrottled, Err: err}
	}
	log.Printf("[search] %s failed: %v", provider, err)
	return ProviderOutcome{Status: StatusFailed, Err: err}
}

// call paces the request through the limiter and retries transient
// failures. Throttling, missing configuration and context errors are final.
func (o *Orchestrator) call(ctx context.Context, provider string, fn func(context.Context) error) error {
	if o.dep.Limiter != nil {
		if err := o.dep.Limiter.Wait(ctx, models.ProviderTag(provider)); err != nil {
			return err
		}
	}

	var lastErr error
	for attempt := 0; attempt <= o.dep.MaxRetries; attempt++ {
		if attempt > 0 {
			delayIdx := attempt - 1
			if delayIdx >= len(o.dep.RetryDelays) {
				delayIdx = len(o.dep.RetryDelays) - 1
			}
			select {
			case <-time.After(o.dep.RetryDelays[delayIdx]):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable(ctx, err) {
			return err
		}
		log.Printf("[search] %s attempt %d failed: %v", provider, attempt+1, err)
	}
	return lastErr
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, providers.ErrNotConfigured) {
		return false
	}
	if _, ok := providers.IsThrottled(err); ok {
		return false
	}
	var pe *providers.ProviderError
	if errors.As(err, &pe) && pe.Status >= 400 && pe.Status < 500 {
		return false
	}
	return true
}

func (o *Orchestrator) dropPlaceholders(offers []models.Offer) []models.Offer {
	kept := offers[:0]
	for _, off := range offers {
		if o.isPlaceholder(off.Airline) {
			continue
		}
		kept = append(kept, off)
	}
	return kept
}

func (o *Orchestrator) isPlaceholder(airline string) bool {
	name := strings.ToLower(strings.TrimSpace(airline))
	if strings.Contains(name, "duffel") {
		return true
	}
	_, ok := o.placeholder[name]
	return ok
}

func (o *Orchestrator) record(req models.SearchRequest, res *Result) {
	entry := searchlog.Entry{
		Origin:        req.Origin,
		Destination:   req.Destination,
		DepartureDate: req.DepartureDate,
		Passengers:    req.Passengers,
		CabinClass:    req.CabinClass,
		ResultCount:   len(res.Offers),
		CacheHit:      res.CacheHit,
		SearchedAt:    time.Now().UTC(),
	}

	o.pending.Add(1)
	select {
	case o.logs <- entry:
	default:
		o.pending.Done()
		log.Printf("[search] search log queue full, dropping %s->%s %s", entry.Origin, entry.Destination, entry.DepartureDate)
	}
}

// writeLogs drains the queue with a single writer for the process lifetime.
func (o *Orchestrator) writeLogs() {
	for entry := range o.logs {
		ctx, cancel := context.WithTimeout(context.Background(), searchLogTimeout)
		if err := o.dep.SearchLog.Record(ctx, entry); err != nil {
			log.Printf("[search] record search log: %v", err)
		}
		cancel()
		o.pending.Done()
	}
}

// Flush waits for queued search log writes.
func (o *Orchestrator) Flush() {
	o.pending.Wait()
}

// CheapestPrice is the floor of the lowest positive total price.
func CheapestPrice(offers []models.Offer) (int, bool) {
	var min decimal.Decimal
	found := false
	for _, off := range offers {
		if !off.TotalPrice.IsPositive() {
			continue
		}
		if !found || off.TotalPrice.LessThan(min) {
			min = off.TotalPrice
			found = true
		}
	}
	if !found {
		return 0, false
	}
	return int(min.Floor().IntPart()), true
}

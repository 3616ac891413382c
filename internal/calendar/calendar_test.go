package calendar

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dharmasatrya/farebroker/internal/cache"
	"github.com/dharmasatrya/farebroker/internal/models"
	"github.com/dharmasatrya/farebroker/internal/providers"
	"github.com/dharmasatrya/farebroker/internal/ratelimit"
	"github.com/dharmasatrya/farebroker/internal/search"
	"github.com/dharmasatrya/farebroker/internal/searchlog"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

type memShared struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
	err  error
}

func newMemShared() *memShared {
	return &memShared{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memShared) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	v, ok := m.data[key]
	if !ok {
		return nil, cache.ErrMiss
	}
	return v, nil
}

func (m *memShared) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memShared) Close() error { return nil }

type fakeSearcher struct {
	mu     sync.Mutex
	prices map[string][]string
	errs   map[string]error
	dates  []string
	onCall func(date string)
}

func (f *fakeSearcher) SearchDay(_ context.Context, req models.SearchRequest) (*search.Result, error) {
	f.mu.Lock()
	f.dates = append(f.dates, req.DepartureDate)
	onCall := f.onCall
	f.mu.Unlock()
	if onCall != nil {
		onCall(req.DepartureDate)
	}
	if err := f.errs[req.DepartureDate]; err != nil {
		return nil, err
	}
	res := &search.Result{}
	for _, p := range f.prices[req.DepartureDate] {
		res.Offers = append(res.Offers, models.Offer{TotalPrice: decimal.RequireFromString(p)})
	}
	return res, nil
}

func julyKey() Key {
	return Key{Route: DefaultRoute("MAD", "BCN"), Year: 2026, Month: 7}
}

func TestKeyString(t *testing.T) {
	k := Key{
		Route: Route{Origin: "MAD", Destination: "BCN", Passengers: models.Passengers{Adults: 2, Infants: 1}, CabinClass: models.CabinBusiness},
		Year:  2026, Month: 7,
	}
	if got, want := k.String(), "MAD:BCN:2026:7:2:0:1:business"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestBuildSkipsPastDays(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 7, 28, 15, 0, 0, 0, time.UTC)}
	searcher := &fakeSearcher{prices: map[string][]string{
		"2026-07-28": {"120.40", "95.99", "101"},
		"2026-07-30": {"80"},
	}}
	b := NewBuilder(searcher, nil, NewPriceCache(nil, time.Hour), nil, WithBuilderClock(clock.Now))

	prices, complete := b.Build(context.Background(), julyKey())
	if !complete {
		t.Fatal("build reported incomplete")
	}
	if len(searcher.dates) != 4 || searcher.dates[0] != "2026-07-28" {
		t.Errorf("searched dates = %v", searcher.dates)
	}
	if prices["2026-07-28"] != 95 || prices["2026-07-30"] != 80 {
		t.Errorf("prices = %v", prices)
	}
	if _, ok := prices["2026-07-29"]; ok {
		t.Error("day without results has an entry")
	}
}

func TestBuildStopsOnCooldown(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)}
	cooldown := ratelimit.NewCooldown(30*time.Second, ratelimit.WithClock(clock.Now))
	searcher := &fakeSearcher{
		prices: map[string][]string{"2026-07-01": {"50"}, "2026-07-02": {"60"}},
	}
	searcher.onCall = func(date string) {
		if date == "2026-07-02" {
			cooldown.RecordThrottled(http.Header{"Retry-After": []string{"120"}})
		}
	}
	b := NewBuilder(searcher, cooldown, NewPriceCache(nil, time.Hour), nil, WithBuilderClock(clock.Now))

	prices, complete := b.Build(context.Background(), julyKey())
	if complete {
		t.Error("build reported complete despite cooldown")
	}
	if len(searcher.dates) != 2 {
		t.Errorf("searched %d days, want 2", len(searcher.dates))
	}
	if len(prices) != 2 {
		t.Errorf("prices = %v", prices)
	}
}

func TestBuildContinuesAfterDayError(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)}
	searcher := &fakeSearcher{
		errs:   map[string]error{"2026-07-30": errors.New("boom")},
		prices: map[string][]string{"2026-07-31": {"70.5"}},
	}
	b := NewBuilder(searcher, nil, NewPriceCache(nil, time.Hour), nil, WithBuilderClock(clock.Now))

	prices, complete := b.Build(context.Background(), julyKey())
	if !complete || len(prices) != 1 || prices["2026-07-31"] != 70 {
		t.Errorf("prices = %v complete = %v", prices, complete)
	}
}

func TestPricesCachesAndTracks(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)}
	shared := newMemShared()
	searcher := &fakeSearcher{prices: map[string][]string{"2026-07-31": {"99"}}}
	tracker := NewTracker(TrackerConfig{Now: clock.Now})
	b := NewBuilder(searcher, nil, NewPriceCache(shared, 24*time.Hour, WithPriceCacheClock(clock.Now)), tracker, WithBuilderClock(clock.Now))

	req := models.CalendarRequest{Origin: "mad", Destination: "bcn", Year: 2026, Month: 7}
	prices, cached, err := b.Prices(context.Background(), req)
	if err != nil || cached || prices["2026-07-31"] != 99 {
		t.Fatalf("Prices() = %v, %v, %v", prices, cached, err)
	}
	if shared.ttls["MAD:BCN:2026:7:1:0:0:economy"] != 24*time.Hour {
		t.Errorf("shared ttls = %v", shared.ttls)
	}

	_, cached, _ = b.Prices(context.Background(), req)
	if !cached || len(searcher.dates) != 2 {
		t.Errorf("cached = %v, searches = %d", cached, len(searcher.dates))
	}

	routes := tracker.AllTracked(context.Background())
	if len(routes) != 1 || routes[0] != DefaultRoute("MAD", "BCN") {
		t.Errorf("tracked = %v", routes)
	}
}

func TestPricesInvalidRequest(t *testing.T) {
	b := NewBuilder(&fakeSearcher{}, nil, NewPriceCache(nil, time.Hour), nil)
	_, _, err := b.Prices(context.Background(), models.CalendarRequest{Origin: "MAD", Destination: "BCN", Year: 2026, Month: 13})
	if !errors.Is(err, models.ErrInvalidCalendarMonth) {
		t.Errorf("error = %v", err)
	}
}

func TestPriceCacheFallsBackToLocal(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)}
	shared := newMemShared()
	shared.err = errors.New("connection refused")
	c := NewPriceCache(shared, time.Hour, WithPriceCacheClock(clock.Now))
	key := julyKey()

	c.Set(context.Background(), key, DayPrices{"2026-07-10": 95})
	got, ok := c.Get(context.Background(), key)
	if !ok || got["2026-07-10"] != 95 {
		t.Fatalf("Get() = %v, %v", got, ok)
	}

	got["2026-07-10"] = 1
	again, _ := c.Get(context.Background(), key)
	if again["2026-07-10"] != 95 {
		t.Error("local entry shares storage with the returned map")
	}

	clock.Advance(time.Hour)
	if _, ok := c.Get(context.Background(), key); ok {
		t.Error("local entry served after ttl")
	}
}

func TestPriceCachePrefersShared(t *testing.T) {
	shared := newMemShared()
	shared.data[julyKey().String()] = []byte(`{"2026-07-10":88}`)
	c := NewPriceCache(shared, time.Hour)

	got, ok := c.Get(context.Background(), julyKey())
	if !ok || got["2026-07-10"] != 88 {
		t.Errorf("Get() = %v, %v", got, ok)
	}
}

func TestPriceCacheBadSharedEntry(t *testing.T) {
	shared := newMemShared()
	shared.data[julyKey().String()] = []byte(`not json`)
	c := NewPriceCache(shared, time.Hour)

	if _, ok := c.Get(context.Background(), julyKey()); ok {
		t.Error("undecodable shared entry reported as hit")
	}
}

type fakeHistory struct {
	routes   []searchlog.RouteCount
	err      error
	since    time.Time
	limit    int
	recorded atomic.Int32
}

func (f *fakeHistory) Record(context.Context, searchlog.Entry) error {
	f.recorded.Add(1)
	return nil
}

func (f *fakeHistory) TopRoutes(_ context.Context, since time.Time, limit int) ([]searchlog.RouteCount, error) {
	f.since, f.limit = since, limit
	return f.routes, f.err
}

func TestTrackerAllTracked(t *testing.T) {
	now := time.Date(2026, 7, 1, 3, 15, 0, 0, time.UTC)
	history := &fakeHistory{routes: []searchlog.RouteCount{
		{Origin: "MAD", Destination: "BCN", Searches: 30},
		{Origin: "BCN", Destination: "PMI", Searches: 10},
		{Origin: "X", Destination: "PMI", Searches: 3},
	}}
	tracker := NewTracker(TrackerConfig{
		Seeds:   ParseSeedRoutes("MAD-BCN, AGP-LPA"),
		History: history,
		Now:     func() time.Time { return now },
	})
	business := Route{Origin: "MAD", Destination: "BCN", Passengers: models.Passengers{Adults: 2}, CabinClass: models.CabinBusiness}
	tracker.Observe(business)
	tracker.Observe(business)

	routes := tracker.AllTracked(context.Background())
	want := []Route{
		DefaultRoute("AGP", "LPA"),
		DefaultRoute("BCN", "PMI"),
		business,
		DefaultRoute("MAD", "BCN"),
	}
	if len(routes) != len(want) {
		t.Fatalf("routes = %v, want %v", routes, want)
	}
	for i := range want {
		if routes[i] != want[i] {
			t.Errorf("routes[%d] = %v, want %v", i, routes[i], want[i])
		}
	}
	if history.limit != DefaultTopRoutesLimit || !history.since.Equal(now.Add(-30*24*time.Hour)) {
		t.Errorf("history queried with since=%v limit=%d", history.since, history.limit)
	}
}

func TestTrackerHistoryError(t *testing.T) {
	tracker := NewTracker(TrackerConfig{
		Seeds:   ParseSeedRoutes("MAD-BCN"),
		History: &fakeHistory{err: errors.New("db down")},
	})
	if routes := tracker.AllTracked(context.Background()); len(routes) != 1 {
		t.Errorf("routes = %v", routes)
	}
}

func TestParseSeedRoutes(t *testing.T) {
	routes := ParseSeedRoutes("mad-bcn,,BCN-PMI,MADBCN,MA-BCN")
	if len(routes) != 2 || routes[0] != DefaultRoute("MAD", "BCN") || routes[1] != DefaultRoute("BCN", "PMI") {
		t.Errorf("ParseSeedRoutes() = %v", routes)
	}
}

func TestLoadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.yaml")
	content := `routes:
  - origin: mad
    destination: bcn
  - origin: BCN
    destination: PMI
    adults: 2
    children: 1
    cabin: business
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	routes, err := LoadSeedFile(path)
	if err != nil {
		t.Fatalf("LoadSeedFile() error = %v", err)
	}
	if len(routes) != 2 || routes[0] != DefaultRoute("MAD", "BCN") {
		t.Fatalf("routes = %v", routes)
	}
	want := Route{Origin: "BCN", Destination: "PMI", Passengers: models.Passengers{Adults: 2, Children: 1}, CabinClass: models.CabinBusiness}
	if routes[1] != want {
		t.Errorf("routes[1] = %v, want %v", routes[1], want)
	}

	if _, err := parseSeedYAML([]byte("routes:\n  - origin: MADRID\n    destination: BCN\n")); err == nil {
		t.Error("invalid seed route accepted")
	}
}

type stubPrimary struct {
	calls atomic.Int32
}

func (p *stubPrimary) Name() string { return "primary" }

func (p *stubPrimary) SearchOffers(_ context.Context, req models.SearchRequest) ([]providers.PrimaryOffer, error) {
	p.calls.Add(1)
	return []providers.PrimaryOffer{{
		ID:            "off_" + req.DepartureDate,
		TotalAmount:   "99.00",
		TotalCurrency: "EUR",
		Owner:         providers.PrimaryCarrier{Name: "Iberia", IATACode: "IB"},
		Slices: []providers.PrimarySlice{{
			Origin:      providers.PrimaryPlace{IATACode: "MAD"},
			Destination: providers.PrimaryPlace{IATACode: "BCN"},
			Segments: []providers.PrimarySegment{{
				Origin:                       providers.PrimaryPlace{IATACode: "MAD"},
				Destination:                  providers.PrimaryPlace{IATACode: "BCN"},
				DepartingAt:                  req.DepartureDate + "T08:00:00",
				ArrivingAt:                   req.DepartureDate + "T09:15:00",
				OperatingCarrierFlightNumber: "3001",
			}},
		}},
	}}, nil
}

func TestBuildDoesNotWriteSearchLog(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)}
	history := &fakeHistory{}
	primary := &stubPrimary{}
	o := search.New(search.Dependency{
		Primary:   primary,
		SearchLog: history,
	})
	b := NewBuilder(o, nil, NewPriceCache(nil, time.Hour), nil, WithBuilderClock(clock.Now))

	prices, complete := b.Build(context.Background(), julyKey())
	o.Flush()

	if !complete || len(prices) != 31 {
		t.Fatalf("complete = %v, days priced = %d, want 31", complete, len(prices))
	}
	if got := primary.calls.Load(); got != 31 {
		t.Fatalf("primary calls = %d, want 31", got)
	}
	if got := history.recorded.Load(); got != 0 {
		t.Fatalf("calendar sweep wrote %d search log entries, want 0", got)
	}

	if _, err := o.Search(context.Background(), models.SearchRequest{Origin: "MAD", Destination: "BCN", DepartureDate: "2026-07-02"}); err != nil {
		t.Fatal(err)
	}
	o.Flush()
	if got := history.recorded.Load(); got != 1 {
		t.Fatalf("customer search entries = %d, want 1", got)
	}
}

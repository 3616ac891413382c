package calendar

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"gopkg.in/yaml.v3"

	"github.com/dharmasatrya/farebroker/internal/models"
	"github.com/dharmasatrya/farebroker/internal/searchlog"
)

const (
	DefaultTopRoutesLimit = 40
	DefaultLookback       = 30 * 24 * time.Hour
)

type TrackerConfig struct {
	Seeds          []Route
	History        searchlog.Store
	TopRoutesLimit int
	Lookback       time.Duration
	Now            func() time.Time
}

// Tracker is the set of routes the daily refresh keeps warm: seeds,
// routes observed this session and the most searched recent routes.
type Tracker struct {
	observed *xsync.Map[Route, struct{}]
	seeds    []Route
	history  searchlog.Store
	limit    int
	lookback time.Duration
	now      func() time.Time
}

func NewTracker(cfg TrackerConfig) *Tracker {
	if cfg.History == nil {
		cfg.History = searchlog.NoopStore{}
	}
	if cfg.TopRoutesLimit <= 0 {
		cfg.TopRoutesLimit = DefaultTopRoutesLimit
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = DefaultLookback
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Tracker{
		observed: xsync.NewMap[Route, struct{}](),
		seeds:    cfg.Seeds,
		history:  cfg.History,
		limit:    cfg.TopRoutesLimit,
		lookback: cfg.Lookback,
		now:      cfg.Now,
	}
}

func (t *Tracker) Observe(r Route) {
	t.observed.Store(r, struct{}{})
}

// AllTracked returns seeds, observed routes and historical top routes,
// deduplicated and sorted. History errors are logged and ignored.
func (t *Tracker) AllTracked(ctx context.Context) []Route {
	set := make(map[Route]struct{})
	for _, r := range t.seeds {
		set[r] = struct{}{}
	}
	t.observed.Range(func(r Route, _ struct{}) bool {
		set[r] = struct{}{}
		return true
	})

	top, err := t.history.TopRoutes(ctx, t.now().Add(-t.lookback), t.limit)
	if err != nil {
		log.Printf("[calendar] load top routes: %v", err)
	}
	for _, rc := range top {
		if len(rc.Origin) != 3 || len(rc.Destination) != 3 {
			continue
		}
		set[DefaultRoute(rc.Origin, rc.Destination)] = struct{}{}
	}

	routes := make([]Route, 0, len(set))
	for r := range set {
		routes = append(routes, r)
	}
	sort.Slice(routes, func(i, j int) bool { return lessRoute(routes[i], routes[j]) })
	return routes
}

func lessRoute(a, b Route) bool {
	if a.Origin != b.Origin {
		return a.Origin < b.Origin
	}
	if a.Destination != b.Destination {
		return a.Destination < b.Destination
	}
	if a.CabinClass != b.CabinClass {
		return a.CabinClass < b.CabinClass
	}
	if a.Passengers.Adults != b.Passengers.Adults {
		return a.Passengers.Adults < b.Passengers.Adults
	}
	if a.Passengers.Children != b.Passengers.Children {
		return a.Passengers.Children < b.Passengers.Children
	}
	return a.Passengers.Infants < b.Passengers.Infants
}

// ParseSeedRoutes reads "MAD-BCN,BCN-PMI". Malformed entries are skipped.
func ParseSeedRoutes(s string) []Route {
	var routes []Route
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.Split(item, "-")
		if len(parts) != 2 || len(strings.TrimSpace(parts[0])) != 3 || len(strings.TrimSpace(parts[1])) != 3 {
			log.Printf("[calendar] ignoring seed route %q", item)
			continue
		}
		routes = append(routes, DefaultRoute(strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])))
	}
	return routes
}

type seedFile struct {
	Routes []Route `yaml:"routes"`
}

// LoadSeedFile reads seed routes from a YAML file with a top-level
// "routes" list.
func LoadSeedFile(path string) ([]Route, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed routes: %w", err)
	}
	return parseSeedYAML(raw)
}

func parseSeedYAML(raw []byte) ([]Route, error) {
	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse seed routes: %w", err)
	}

	routes := make([]Route, 0, len(f.Routes))
	for i, r := range f.Routes {
		req := models.CalendarRequest{
			Origin:      r.Origin,
			Destination: r.Destination,
			Year:        2000,
			Month:       1,
			Passengers:  r.Passengers,
			CabinClass:  r.CabinClass,
		}
		if err := req.Validate(); err != nil {
			return nil, fmt.Errorf("seed route %d: %w", i, err)
		}
		routes = append(routes, KeyFor(req).Route)
	}
	return routes, nil
}

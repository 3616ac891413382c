package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/dharmasatrya/farebroker/internal/calendar"
	"github.com/dharmasatrya/farebroker/internal/metrics"
	"github.com/dharmasatrya/farebroker/internal/timeutil"
)

type RouteSource interface {
	AllTracked(ctx context.Context) []calendar.Route
}

type CalendarRefresher interface {
	Refresh(ctx context.Context, key calendar.Key) (calendar.DayPrices, bool)
}

type CheckinScanner interface {
	Scan(ctx context.Context, now time.Time) (int, error)
}

type Config struct {
	DailyRefreshEnabled bool
	RefreshHourUTC      int
	RefreshMinuteUTC    int
	CheckinEnabled      bool
	CheckinInterval     time.Duration
}

func DefaultConfig() Config {
	return Config{
		DailyRefreshEnabled: true,
		RefreshHourUTC:      3,
		RefreshMinuteUTC:    15,
		CheckinEnabled:      true,
		CheckinInterval:     15 * time.Minute,
	}
}

// CronSpec is the standard five-field spec for a daily run at hour:minute.
func CronSpec(hour, minute int) string {
	return fmt.Sprintf("%d %d * * *", minute, hour)
}

type Deps struct {
	Routes    RouteSource
	Refresher CalendarRefresher
	Checkin   CheckinScanner
	Metrics   *metrics.Registry
	Now       func() time.Time
}

// Scheduler runs the daily calendar refresh and the check-in scan. Jobs
// run under a lifetime context that Stop cancels.
type Scheduler struct {
	cfg  Config
	deps Deps
	cron *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	refreshMu sync.Mutex
}

func New(cfg Config, deps Deps) (*Scheduler, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if cfg.CheckinEnabled && cfg.CheckinInterval <= 0 {
		return nil, fmt.Errorf("checkin interval must be positive, got %s", cfg.CheckinInterval)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cfg:    cfg,
		deps:   deps,
		cron:   cron.New(cron.WithLocation(time.UTC)),
		ctx:    ctx,
		cancel: cancel,
	}

	if cfg.DailyRefreshEnabled && deps.Routes != nil && deps.Refresher != nil {
		spec := CronSpec(cfg.RefreshHourUTC, cfg.RefreshMinuteUTC)
		if _, err := cron.ParseStandard(spec); err != nil {
			cancel()
			return nil, fmt.Errorf("invalid refresh time %02d:%02d: %w", cfg.RefreshHourUTC, cfg.RefreshMinuteUTC, err)
		}
		if _, err := s.cron.AddFunc(spec, func() { s.RefreshCalendars(s.ctx) }); err != nil {
			cancel()
			return nil, err
		}
	}
	return s, nil
}

func (s *Scheduler) Start() {
	if s.cfg.DailyRefreshEnabled {
		log.Printf("[scheduler] daily calendar refresh at %02d:%02d UTC", s.cfg.RefreshHourUTC, s.cfg.RefreshMinuteUTC)
	}
	s.cron.Start()

	if s.cfg.CheckinEnabled && s.deps.Checkin != nil {
		log.Printf("[scheduler] check-in scan every %s", s.cfg.CheckinInterval)
		s.wg.Add(1)
		go s.checkinLoop()
	}
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.wg.Wait()
}

func (s *Scheduler) checkinLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.CheckinInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.ScanCheckins(s.ctx)
		}
	}
}

func (s *Scheduler) ScanCheckins(ctx context.Context) int {
	n, err := s.deps.Checkin.Scan(ctx, s.deps.Now())
	if err != nil {
		log.Printf("[scheduler] check-in scan: %v", err)
		return 0
	}
	s.deps.Metrics.ObserveCheckinOpened(n)
	return n
}

// RefreshCalendars rebuilds the current and next month of every tracked
// route. It returns false without doing anything if a run is in progress.
func (s *Scheduler) RefreshCalendars(ctx context.Context) (refreshed int, ran bool) {
	if !s.refreshMu.TryLock() {
		log.Printf("[scheduler] calendar refresh already running, skipping")
		return 0, false
	}
	defer s.refreshMu.Unlock()

	runID := uuid.NewString()
	start := s.deps.Now().UTC()
	routes := s.deps.Routes.AllTracked(ctx)
	log.Printf("[scheduler] run %s: refreshing %d routes", runID, len(routes))

	year, month := start.Year(), start.Month()
	nextYear, nextMonth := timeutil.NextMonth(year, month)
	months := [][2]int{{year, int(month)}, {nextYear, int(nextMonth)}}

	for _, route := range routes {
		for _, ym := range months {
			if ctx.Err() != nil {
				log.Printf("[scheduler] run %s: cancelled after %d months", runID, refreshed)
				return refreshed, true
			}
			key := calendar.Key{Route: route, Year: ym[0], Month: ym[1]}
			if _, complete := s.deps.Refresher.Refresh(ctx, key); !complete {
				s.deps.Metrics.ObserveCalendarRefresh("partial")
				log.Printf("[scheduler] run %s: %s incomplete, stopping run", runID, key)
				return refreshed, true
			}
			s.deps.Metrics.ObserveCalendarRefresh("ok")
			refreshed++
		}
	}

	log.Printf("[scheduler] run %s: refreshed %d months in %s", runID, refreshed, s.deps.Now().UTC().Sub(start).Round(time.Millisecond))
	return refreshed, true
}

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the broker's collectors. A nil *Registry is valid and
// records nothing.
type Registry struct {
	reg              *prometheus.Registry
	Searches         *prometheus.CounterVec
	ProviderRequests *prometheus.CounterVec
	ProviderLatency  *prometheus.HistogramVec
	OffersSkipped    *prometheus.CounterVec
	CooldownActive   prometheus.Gauge
	CalendarRefresh  *prometheus.CounterVec
	CheckinOpened    prometheus.Counter
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	searches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "farebroker_searches_total",
		Help: "Searches served, by cache outcome.",
	}, []string{"cache"})
	providerRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "farebroker_provider_requests_total",
		Help: "Provider calls by outcome.",
	}, []string{"provider", "status"})
	providerLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "farebroker_provider_response_seconds",
		Help:    "Provider response time.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "farebroker_offers_skipped_total",
		Help: "Malformed provider offers dropped during normalization.",
	}, []string{"provider"})
	cooldown := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "farebroker_primary_cooldown_active",
		Help: "1 while the primary provider is cooling down.",
	})
	refresh := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "farebroker_calendar_refresh_routes_total",
		Help: "Calendar route refreshes by result.",
	}, []string{"result"})
	checkin := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "farebroker_checkin_opened_total",
		Help: "Bookings moved to check-in open.",
	})

	r.MustRegister(searches, providerRequests, providerLatency, skipped, cooldown, refresh, checkin)
	return &Registry{
		reg:              r,
		Searches:         searches,
		ProviderRequests: providerRequests,
		ProviderLatency:  providerLatency,
		OffersSkipped:    skipped,
		CooldownActive:   cooldown,
		CalendarRefresh:  refresh,
		CheckinOpened:    checkin,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

func (r *Registry) ObserveSearch(cacheHit bool) {
	if r == nil {
		return
	}
	label := "miss"
	if cacheHit {
		label = "hit"
	}
	r.Searches.WithLabelValues(label).Inc()
}

func (r *Registry) ObserveProvider(provider, status string, elapsed time.Duration, skipped int) {
	if r == nil {
		return
	}
	r.ProviderRequests.WithLabelValues(provider, status).Inc()
	if elapsed > 0 {
		r.ProviderLatency.WithLabelValues(provider).Observe(elapsed.Seconds())
	}
	if skipped > 0 {
		r.OffersSkipped.WithLabelValues(provider).Add(float64(skipped))
	}
}

func (r *Registry) SetCooldown(active bool) {
	if r == nil {
		return
	}
	if active {
		r.CooldownActive.Set(1)
		return
	}
	r.CooldownActive.Set(0)
}

func (r *Registry) ObserveCalendarRefresh(result string) {
	if r == nil {
		return
	}
	r.CalendarRefresh.WithLabelValues(result).Inc()
}

func (r *Registry) ObserveCheckinOpened(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.CheckinOpened.Add(float64(n))
}

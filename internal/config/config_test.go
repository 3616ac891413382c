package config

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.CacheTTL != 5*time.Minute || cfg.CacheMaxSize != 100 || cfg.ResultLimit != 10 {
		t.Errorf("cache defaults = %v %d %d", cfg.CacheTTL, cfg.CacheMaxSize, cfg.ResultLimit)
	}
	if !cfg.PriorityDeltaPercent.Equal(decimal.NewFromInt(5)) || !cfg.MarkupPercent.IsZero() {
		t.Errorf("delta = %s markup = %s", cfg.PriorityDeltaPercent, cfg.MarkupPercent)
	}
	if cfg.CooldownDefault != 30*time.Second || cfg.SearchTimeout != 20*time.Second {
		t.Errorf("cooldown = %v timeout = %v", cfg.CooldownDefault, cfg.SearchTimeout)
	}
	if cfg.Fallback.Enabled {
		t.Error("fallback enabled by default")
	}
	if cfg.Calendar.PriceTTL != 24*time.Hour || cfg.Calendar.RefreshHourUTC != 3 || cfg.Calendar.RefreshMinuteUTC != 15 {
		t.Errorf("calendar = %+v", cfg.Calendar)
	}
	if cfg.Calendar.TopRoutesLimit != 40 || cfg.Lookback() != 30*24*time.Hour {
		t.Errorf("top routes = %d lookback = %v", cfg.Calendar.TopRoutesLimit, cfg.Lookback())
	}
	if !cfg.Checkin.Enabled || cfg.Checkin.ScanInterval != 15*time.Minute {
		t.Errorf("checkin = %+v", cfg.Checkin)
	}
	if len(cfg.PlaceholderAirlines) != 3 {
		t.Errorf("placeholders = %v", cfg.PlaceholderAirlines)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AGENCY_MARKUP_PERCENT", "12.5")
	t.Setenv("FALLBACK_ENABLED", "yes")
	t.Setenv("FALLBACK_CURRENCY", "usd")
	t.Setenv("SEARCH_TIMEOUT", "5s")
	t.Setenv("PLACEHOLDER_AIRLINES", " Test Air , ,Duffel Airways")
	t.Setenv("AUTO_CHECKIN_SCAN_MINUTES", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.MarkupPercent.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("markup = %s", cfg.MarkupPercent)
	}
	if !cfg.Fallback.Enabled || cfg.Fallback.Currency != "USD" {
		t.Errorf("fallback = %+v", cfg.Fallback)
	}
	if cfg.SearchTimeout != 5*time.Second || cfg.Checkin.ScanInterval != 5*time.Minute {
		t.Errorf("timeout = %v scan = %v", cfg.SearchTimeout, cfg.Checkin.ScanInterval)
	}
	if len(cfg.PlaceholderAirlines) != 2 || cfg.PlaceholderAirlines[0] != "Test Air" {
		t.Errorf("placeholders = %q", cfg.PlaceholderAirlines)
	}
}

func TestLoadCollectsErrors(t *testing.T) {
	t.Setenv("CACHE_MAX_SIZE", "lots")
	t.Setenv("SEARCH_RESULTS_LIMIT", "0")
	t.Setenv("AGENCY_MARKUP_PERCENT", "ten")
	t.Setenv("CALENDAR_REFRESH_HOUR_UTC", "24")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() succeeded with invalid values")
	}
	for _, want := range []string{"CACHE_MAX_SIZE", "SEARCH_RESULTS_LIMIT", "AGENCY_MARKUP_PERCENT", "CALENDAR_REFRESH_HOUR_UTC"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error lacks %s: %v", want, err)
		}
	}
}

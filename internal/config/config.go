package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
)

type Config struct {
	Port string

	CacheTTL             time.Duration
	CacheMaxSize         int
	ResultLimit          int
	PriorityDeltaPercent decimal.Decimal
	MarkupPercent        decimal.Decimal
	CooldownDefault      time.Duration
	SearchTimeout        time.Duration
	ProviderMaxRetries   int
	PlaceholderAirlines  []string

	Primary  PrimaryConfig
	Fallback FallbackConfig
	Redis    RedisConfig
	Calendar CalendarConfig
	Checkin  CheckinConfig

	MySQLDSN string
}

type PrimaryConfig struct {
	URL     string
	Token   string
	Version string
	RPS     float64
	Burst   int
}

type FallbackConfig struct {
	Enabled   bool
	URL       string
	APIKey    string
	APISecret string
	Currency  string
	RPS       float64
	Burst     int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

type CalendarConfig struct {
	PriceTTL            time.Duration
	DailyRefreshEnabled bool
	RefreshHourUTC      int
	RefreshMinuteUTC    int
	SeedRoutes          string
	SeedRoutesFile      string
	TopRoutesLimit      int
	LookbackDays        int
}

type CheckinConfig struct {
	Enabled      bool
	ScanInterval time.Duration
}

// Load reads the environment and reports every invalid value at once.
func Load() (*Config, error) {
	var errs []string

	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		CacheTTL:             time.Duration(getEnvInt("CACHE_DURATION_MINUTES", 5, &errs)) * time.Minute,
		CacheMaxSize:         getEnvInt("CACHE_MAX_SIZE", 100, &errs),
		ResultLimit:          getEnvInt("SEARCH_RESULTS_LIMIT", 10, &errs),
		PriorityDeltaPercent: getEnvDecimal("PRIORITY_DELTA_PERCENT", decimal.NewFromInt(5), &errs),
		MarkupPercent:        getEnvDecimal("AGENCY_MARKUP_PERCENT", decimal.Zero, &errs),
		CooldownDefault:      time.Duration(getEnvInt("COOLDOWN_DEFAULT_SECONDS", 30, &errs)) * time.Second,
		SearchTimeout:        getEnvDuration("SEARCH_TIMEOUT", 20*time.Second, &errs),
		ProviderMaxRetries:   getEnvInt("PROVIDER_MAX_RETRIES", 0, &errs),
		PlaceholderAirlines:  getEnvList("PLACEHOLDER_AIRLINES", []string{"duffel airways", "duffel airline", "duffel airlines"}),
		Primary: PrimaryConfig{
			URL:     getEnv("PRIMARY_API_URL", "https://api.duffel.com"),
			Token:   getEnv("PRIMARY_API_TOKEN", ""),
			Version: getEnv("PRIMARY_API_VERSION", "v2"),
			RPS:     getEnvFloat("PRIMARY_RPS", 5, &errs),
			Burst:   getEnvInt("PRIMARY_BURST", 10, &errs),
		},
		Fallback: FallbackConfig{
			Enabled:   getEnvBool("FALLBACK_ENABLED", false),
			URL:       getEnv("FALLBACK_API_URL", "https://test.api.amadeus.com"),
			APIKey:    getEnv("FALLBACK_API_KEY", ""),
			APISecret: getEnv("FALLBACK_API_SECRET", ""),
			Currency:  strings.ToUpper(getEnv("FALLBACK_CURRENCY", "EUR")),
			RPS:       getEnvFloat("FALLBACK_RPS", 5, &errs),
			Burst:     getEnvInt("FALLBACK_BURST", 10, &errs),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0, &errs),
		},
		Calendar: CalendarConfig{
			PriceTTL:            time.Duration(getEnvInt("CALENDAR_PRICE_CACHE_TTL_SECONDS", 86400, &errs)) * time.Second,
			DailyRefreshEnabled: getEnvBool("CALENDAR_DAILY_REFRESH_ENABLED", true),
			RefreshHourUTC:      getEnvInt("CALENDAR_REFRESH_HOUR_UTC", 3, &errs),
			RefreshMinuteUTC:    getEnvInt("CALENDAR_REFRESH_MINUTE_UTC", 15, &errs),
			SeedRoutes:          getEnv("CALENDAR_SEED_ROUTES", ""),
			SeedRoutesFile:      getEnv("CALENDAR_SEED_ROUTES_FILE", ""),
			TopRoutesLimit:      getEnvInt("CALENDAR_TOP_ROUTES_LIMIT", 40, &errs),
			LookbackDays:        getEnvInt("CALENDAR_LOOKBACK_DAYS", 30, &errs),
		},
		Checkin: CheckinConfig{
			Enabled:      getEnvBool("AUTO_CHECKIN_ENABLED", true),
			ScanInterval: time.Duration(getEnvInt("AUTO_CHECKIN_SCAN_MINUTES", 15, &errs)) * time.Minute,
		},
		MySQLDSN: getEnv("MYSQL_DSN", ""),
	}

	validatePositive("CACHE_DURATION_MINUTES", int(cfg.CacheTTL/time.Minute), &errs)
	validatePositive("CACHE_MAX_SIZE", cfg.CacheMaxSize, &errs)
	validatePositive("SEARCH_RESULTS_LIMIT", cfg.ResultLimit, &errs)
	validatePositive("COOLDOWN_DEFAULT_SECONDS", int(cfg.CooldownDefault/time.Second), &errs)
	validatePositive("CALENDAR_PRICE_CACHE_TTL_SECONDS", int(cfg.Calendar.PriceTTL/time.Second), &errs)
	validatePositive("CALENDAR_TOP_ROUTES_LIMIT", cfg.Calendar.TopRoutesLimit, &errs)
	validatePositive("CALENDAR_LOOKBACK_DAYS", cfg.Calendar.LookbackDays, &errs)
	validatePositive("AUTO_CHECKIN_SCAN_MINUTES", int(cfg.Checkin.ScanInterval/time.Minute), &errs)
	if cfg.SearchTimeout <= 0 {
		errs = append(errs, "SEARCH_TIMEOUT must be positive")
	}
	if cfg.ProviderMaxRetries < 0 {
		errs = append(errs, fmt.Sprintf("PROVIDER_MAX_RETRIES: must not be negative, got %d", cfg.ProviderMaxRetries))
	}
	if cfg.PriorityDeltaPercent.IsNegative() {
		errs = append(errs, "PRIORITY_DELTA_PERCENT must not be negative")
	}
	if cfg.MarkupPercent.IsNegative() {
		errs = append(errs, "AGENCY_MARKUP_PERCENT must not be negative")
	}
	spec := fmt.Sprintf("%d %d * * *", cfg.Calendar.RefreshMinuteUTC, cfg.Calendar.RefreshHourUTC)
	if _, err := cron.ParseStandard(spec); err != nil {
		errs = append(errs, fmt.Sprintf("CALENDAR_REFRESH_HOUR_UTC/CALENDAR_REFRESH_MINUTE_UTC: invalid time %02d:%02d: %v",
			cfg.Calendar.RefreshHourUTC, cfg.Calendar.RefreshMinuteUTC, err))
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return cfg, nil
}

func (c *Config) Lookback() time.Duration {
	return time.Duration(c.Calendar.LookbackDays) * 24 * time.Hour
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

func getEnvDuration(key string, defaultValue time.Duration, errs *[]string) time.Duration {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: invalid duration %q", key, value))
		return defaultValue
	}
	return duration
}

func getEnvInt(key string, defaultValue int, errs *[]string) int {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: invalid integer %q", key, value))
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64, errs *[]string) float64 {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: invalid number %q", key, value))
		return defaultValue
	}
	return f
}

func getEnvDecimal(key string, defaultValue decimal.Decimal, errs *[]string) decimal.Decimal {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: invalid decimal %q", key, value))
		return defaultValue
	}
	return d
}

func getEnvList(key string, defaultValue []string) []string {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func validatePositive(name string, value int, errs *[]string) {
	if value <= 0 {
		*errs = append(*errs, fmt.Sprintf("%s: must be positive, got %d", name, value))
	}
}

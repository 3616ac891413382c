package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/dharmasatrya/farebroker/internal/cache"
	"github.com/dharmasatrya/farebroker/internal/calendar"
	"github.com/dharmasatrya/farebroker/internal/checkin"
	"github.com/dharmasatrya/farebroker/internal/config"
	"github.com/dharmasatrya/farebroker/internal/database"
	"github.com/dharmasatrya/farebroker/internal/handler"
	"github.com/dharmasatrya/farebroker/internal/metrics"
	"github.com/dharmasatrya/farebroker/internal/normalize"
	"github.com/dharmasatrya/farebroker/internal/providers"
	"github.com/dharmasatrya/farebroker/internal/ratelimit"
	"github.com/dharmasatrya/farebroker/internal/scheduler"
	"github.com/dharmasatrya/farebroker/internal/search"
	"github.com/dharmasatrya/farebroker/internal/searchlog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	reg := metrics.NewRegistry()

	shared := initializeSharedCache(cfg)
	defer shared.Close()

	db := initializeDatabase(cfg)
	if db != nil {
		defer db.Close()
	}

	var history searchlog.Store = searchlog.NoopStore{}
	var bookings checkin.BookingStore
	if db != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		logs := searchlog.NewMySQLStore(db)
		if err := logs.Migrate(ctx); err != nil {
			log.Fatalf("Failed to migrate search_logs: %v", err)
		}
		store := checkin.NewMySQLStore(db)
		if err := store.Migrate(ctx); err != nil {
			log.Fatalf("Failed to migrate flight_bookings: %v", err)
		}
		cancel()
		history = logs
		bookings = store
	}

	if cfg.Primary.Token == "" {
		log.Printf("[CRITICAL] PRIMARY_API_TOKEN is not set; primary searches will fail")
	}
	primary := providers.NewPrimaryClient(providers.PrimaryConfig{
		BaseURL: cfg.Primary.URL,
		Token:   cfg.Primary.Token,
		Version: cfg.Primary.Version,
		Timeout: cfg.SearchTimeout,
	})
	fallback := providers.NewFallbackClient(providers.FallbackConfig{
		BaseURL:   cfg.Fallback.URL,
		APIKey:    cfg.Fallback.APIKey,
		APISecret: cfg.Fallback.APISecret,
		Currency:  cfg.Fallback.Currency,
		Timeout:   cfg.SearchTimeout,
	})
	if cfg.Fallback.Enabled && !fallback.Enabled() {
		log.Printf("FALLBACK_ENABLED is set but fallback credentials are missing; fallback will be skipped")
	}

	rateLimiter := ratelimit.NewProviderLimiter(
		ratelimit.Limit{RPS: cfg.Primary.RPS, Burst: cfg.Primary.Burst},
		ratelimit.Limit{RPS: cfg.Fallback.RPS, Burst: cfg.Fallback.Burst},
	)

	cooldown := ratelimit.NewCooldown(cfg.CooldownDefault)
	normalizer := normalize.New(normalize.Config{
		MarkupPercent:   cfg.MarkupPercent,
		DefaultCurrency: cfg.Fallback.Currency,
	})

	orchestrator := search.New(search.Dependency{
		Primary:              primary,
		Fallback:             fallback,
		Normalizer:           normalizer,
		Cache:                cache.NewSearchCache(cfg.CacheTTL, cfg.CacheMaxSize),
		Cooldown:             cooldown,
		Limiter:              rateLimiter,
		SearchLog:            history,
		Metrics:              reg,
		FallbackEnabled:      cfg.Fallback.Enabled,
		Timeout:              cfg.SearchTimeout,
		MaxRetries:           cfg.ProviderMaxRetries,
		RetryDelays:          []time.Duration{200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond},
		ResultLimit:          cfg.ResultLimit,
		PriorityDeltaPercent: cfg.PriorityDeltaPercent,
		PlaceholderAirlines:  cfg.PlaceholderAirlines,
	})

	tracker := calendar.NewTracker(calendar.TrackerConfig{
		Seeds:          loadSeedRoutes(cfg),
		History:        history,
		TopRoutesLimit: cfg.Calendar.TopRoutesLimit,
		Lookback:       cfg.Lookback(),
	})
	prices := calendar.NewPriceCache(shared, cfg.Calendar.PriceTTL)
	builder := calendar.NewBuilder(orchestrator, cooldown, prices, tracker)

	deps := scheduler.Deps{
		Routes:    tracker,
		Refresher: builder,
		Metrics:   reg,
	}
	checkinEnabled := cfg.Checkin.Enabled && bookings != nil
	if checkinEnabled {
		deps.Checkin = checkin.NewMonitor(bookings, checkin.LogNotifier{})
	} else if cfg.Checkin.Enabled {
		log.Printf("Auto check-in disabled: MYSQL_DSN is not set")
	}
	sched, err := scheduler.New(scheduler.Config{
		DailyRefreshEnabled: cfg.Calendar.DailyRefreshEnabled,
		RefreshHourUTC:      cfg.Calendar.RefreshHourUTC,
		RefreshMinuteUTC:    cfg.Calendar.RefreshMinuteUTC,
		CheckinEnabled:      checkinEnabled,
		CheckinInterval:     cfg.Checkin.ScanInterval,
	}, deps)
	if err != nil {
		log.Fatalf("Failed to initialize scheduler: %v", err)
	}
	sched.Start()

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())

	searchHandler := handler.NewSearchHandler(orchestrator, cooldown)
	calendarHandler := handler.NewCalendarHandler(builder)
	orderHandler := handler.NewOrderHandler(primary, normalizer, cooldown)

	api := e.Group("/api/v1")
	api.POST("/flights/search", searchHandler.Search)
	api.GET("/flights/calendar", calendarHandler.Prices)
	api.GET("/offers/:id", orderHandler.OfferDetails)
	api.POST("/offers/:id/orders", orderHandler.CreateOrder)
	api.POST("/orders/:id/cancel", orderHandler.CancelOrder)
	api.GET("/cache/stats", handler.StatsHandler(orchestrator, func() (bool, int) {
		return cooldown.IsCoolingDown(), int(cooldown.Remaining() / time.Second)
	}))
	e.GET("/health", handler.HealthHandler)
	e.GET("/metrics", echo.WrapHandler(reg.Handler()))

	go func() {
		log.Printf("Starting fare broker on port %s", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	sched.Stop()
	orchestrator.Flush()
	log.Println("Stopped")
}

func initializeSharedCache(cfg *config.Config) cache.SharedCache {
	if !cfg.Redis.Enabled {
		log.Println("Redis disabled; calendar prices are cached in process only")
		return cache.NewNoOpCache()
	}
	rc := cache.DefaultRedisConfig()
	rc.Host = cfg.Redis.Host
	rc.Port = cfg.Redis.Port
	rc.Password = cfg.Redis.Password
	rc.DB = cfg.Redis.DB

	redisCache, err := cache.NewRedisCache(rc)
	if err != nil {
		log.Printf("Redis unavailable (%v); calendar prices are cached in process only", err)
		return cache.NewNoOpCache()
	}
	log.Printf("Redis calendar cache enabled (host: %s:%s)", rc.Host, rc.Port)
	return redisCache
}

func initializeDatabase(cfg *config.Config) *sql.DB {
	if cfg.MySQLDSN == "" {
		log.Println("MYSQL_DSN not set; search history and check-in monitoring disabled")
		return nil
	}
	db, err := database.OpenMySQL(cfg.MySQLDSN, database.DefaultPoolConfig())
	if err != nil {
		log.Fatalf("Failed to connect to MySQL: %v", err)
	}
	return db
}

func loadSeedRoutes(cfg *config.Config) []calendar.Route {
	seeds := calendar.ParseSeedRoutes(cfg.Calendar.SeedRoutes)
	if cfg.Calendar.SeedRoutesFile == "" {
		return seeds
	}
	fromFile, err := calendar.LoadSeedFile(cfg.Calendar.SeedRoutesFile)
	if err != nil {
		log.Printf("Ignoring seed route file %s: %v", cfg.Calendar.SeedRoutesFile, err)
		return seeds
	}
	return append(seeds, fromFile...)
}

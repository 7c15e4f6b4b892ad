package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"benefit-recommendation-api/internal/cache"
	"benefit-recommendation-api/internal/catalog"
	"benefit-recommendation-api/internal/config"
	"benefit-recommendation-api/internal/database"
	"benefit-recommendation-api/internal/events"
	"benefit-recommendation-api/internal/features"
	"benefit-recommendation-api/internal/handler"
	"benefit-recommendation-api/internal/logging"
	"benefit-recommendation-api/internal/middleware"
	"benefit-recommendation-api/internal/narrate"
	"benefit-recommendation-api/internal/service"
	"benefit-recommendation-api/internal/tracing"
)

// Set with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file (overrides CONFIG_PATH)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	if err := tracing.InitTracing(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.JaegerEndpoint,
		ServiceName: cfg.Tracing.ServiceName,
		Version:     version,
		Environment: cfg.Tracing.Environment,
		SampleRatio: cfg.Tracing.SampleRatio,
	}); err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize tracing")
	}

	flags := features.NewDefaultManager(cfg.Features.Flags())
	for _, f := range flags.List() {
		logging.Info().Str("flag", f.Name).Bool("enabled", f.Enabled).Msg("feature flag")
	}

	em := events.NewManager(func() bool { return flags.IsEnabled(features.FeatureEventHooks) })
	subscribeEventLog(em)

	// Initialize catalog
	source, closeSource, err := newCatalogSource(cfg.Catalog)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open catalog source")
	}
	defer closeSource()

	store := catalog.NewStore(source, em)
	if snap, err := store.Reload(context.Background()); err != nil {
		// The API keeps answering 503 until POST /catalog/reload succeeds.
		logging.Error().Err(err).Str("source", source.Name()).Msg("initial catalog load failed")
	} else {
		logging.Info().
			Str("source", snap.Source).
			Int("offers", len(snap.Offers)).
			Int("events", len(snap.Events)).
			Int("skipped", snap.Skipped).
			Msg("catalog loaded")
	}

	narrationCache, closeCache := newCache(cfg.Cache)
	defer closeCache()

	var remote narrate.Narrator
	if cfg.Narration.Endpoint != "" {
		remote = narrate.NewRemoteNarrator(narrate.RemoteConfig{
			Endpoint:         cfg.Narration.Endpoint,
			Timeout:          cfg.Narration.Timeout,
			RetryMax:         cfg.Narration.RetryMax,
			FailureThreshold: cfg.Narration.FailureThreshold,
			OpenTimeout:      cfg.Narration.OpenTimeout,
		})
	}

	// Initialize service
	svc := service.NewService(store, service.Options{
		Features: flags,
		Events:   em,
		Cache:    narrationCache,
		CacheTTL: cfg.Cache.TTL,
		Remote:   remote,
		Version:  version,
	})

	// Initialize handlers
	h := handler.NewHandlerWithOptions(svc, handler.NewHandlerOptions{
		MaxBodySize: cfg.Security.MaxRequestBodySize,
	})

	// Setup router
	r := chi.NewRouter()

	// Middleware (order matters)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.TracingMiddleware(cfg.Tracing.ServiceName))

	if cfg.RateLimit.Enabled {
		r.Use(middleware.RateLimit(cfg.RateLimit.Rate, cfg.RateLimit.Window))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Security.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Routes
	h.Routes(r)
	r.Handle("/metrics", promhttp.Handler())

	// Start server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Graceful shutdown
	idle := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		logging.Info().Msg("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logging.Error().Err(err).Msg("error shutting down server")
		}
		em.Shutdown()
		if err := tracing.Shutdown(ctx); err != nil {
			logging.Error().Err(err).Msg("error shutting down tracing")
		}
		close(idle)
	}()

	logging.Info().
		Str("addr", addr).
		Str("version", version).
		Str("catalog_source", cfg.Catalog.Source).
		Str("cache_backend", cfg.Cache.Backend).
		Bool("rate_limit", cfg.RateLimit.Enabled).
		Msg("starting HTTP server")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Fatal().Err(err).Msg("server failed")
	}
	<-idle
}

// newCatalogSource builds the configured catalog source and a func that
// releases it.
func newCatalogSource(cfg config.CatalogConfig) (catalog.Source, func(), error) {
	switch cfg.Source {
	case "sqlite":
		db, err := database.NewDB(cfg.DatabasePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		return catalog.SQLiteSource{DB: db}, func() { _ = db.Close() }, nil
	default:
		return catalog.FileSource{OffersPath: cfg.OffersPath, EventsPath: cfg.EventsPath}, func() {}, nil
	}
}

// newCache builds the narration cache. A Redis connection failure falls back
// to the in-memory cache.
func newCache(cfg config.CacheConfig) (cache.Cache, func()) {
	switch cfg.Backend {
	case "redis":
		rc, err := cache.NewRedisCache(context.Background(), cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, "benefit-recommendation")
		if err != nil {
			logging.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, using in-memory cache")
			return cache.NewInMemoryCache(), func() {}
		}
		return rc, func() { _ = rc.Close() }
	case "memory":
		return cache.NewInMemoryCache(), func() {}
	default:
		return nil, func() {}
	}
}

func subscribeEventLog(em *events.Manager) {
	logEvent := func(ctx context.Context, e events.Event) error {
		logging.Ctx(ctx).Debug().
			Str("event", string(e.Type)).
			Interface("data", e.Data).
			Msg("event published")
		return nil
	}
	em.Subscribe(events.EventRecommendationsRanked, logEvent)
	em.Subscribe(events.EventAlternativesRanked, logEvent)
	em.Subscribe(events.EventCatalogReloaded, logEvent)
}

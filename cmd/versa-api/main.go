package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Knouxai/Knoux-versa-sub002/internal/adapter/repo"
	"github.com/Knouxai/Knoux-versa-sub002/internal/cache"
	"github.com/Knouxai/Knoux-versa-sub002/internal/domain"
	"github.com/Knouxai/Knoux-versa-sub002/internal/execution"
	"github.com/Knouxai/Knoux-versa-sub002/internal/filters"
	"github.com/Knouxai/Knoux-versa-sub002/internal/http/handlers"
	"github.com/Knouxai/Knoux-versa-sub002/internal/http/httpapi"
	"github.com/Knouxai/Knoux-versa-sub002/internal/infra"
	"github.com/Knouxai/Knoux-versa-sub002/internal/infra/geoip"
	"github.com/Knouxai/Knoux-versa-sub002/internal/storage"
	"github.com/Knouxai/Knoux-versa-sub002/internal/transform"
	"github.com/Knouxai/Knoux-versa-sub002/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalog := transform.DefaultCatalog()
	if cfg.CatalogPath != "" {
		if catalog, err = transform.LoadCatalogFile(cfg.CatalogPath); err != nil {
			logger.Fatal().Err(err).Msg("failed to load tool catalog")
		}
	}
	builder := transform.NewBuilder(catalog,
		transform.WithLimits(transform.ImageLimits{MaxBytes: cfg.MaxImageBytes, MaxPixels: cfg.MaxImagePixels}),
		transform.WithLogger(logger),
	)

	store, err := storage.NewFileStore(cfg.StorageDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open storage")
	}

	hub := worker.NewHub()
	runner := worker.NewRunner(worker.Options{
		Workers:        cfg.Workers,
		DefaultTimeout: cfg.TaskTimeout,
		Logger:         &logger,
		Hub:            hub,
	})
	transport := execution.NewLocalTransport(execution.LocalOptions{
		Engine:  filters.NewEngine(&logger),
		Runner:  runner,
		Hub:     hub,
		Builder: builder,
		Loader:  handlers.StorageLoader(store, cfg.StorageBaseURL),
		Logger:  &logger,
	})

	var results cache.Store = cache.NewMemory(256)
	if cfg.RedisURL != "" {
		rc, err := cache.DialRedis(ctx, cfg.RedisURL, "")
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect redis")
		}
		defer rc.Close()
		results = rc
	}

	var jobs domain.JobRepository
	dbpool, err := infra.NewDBPool(ctx, cfg)
	switch {
	case errors.Is(err, infra.ErrNoDatabase):
		logger.Info().Msg("DATABASE_URL not set, job history disabled")
	case err != nil:
		logger.Fatal().Err(err).Msg("failed to connect database")
	default:
		defer dbpool.Close()
		jobRepo := repo.NewJobRepository(infra.NewSQLRunner(dbpool, logger))
		if err := jobRepo.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to prepare job history")
		}
		jobs = jobRepo
	}

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	defer resolver.Close()

	app, err := handlers.NewApp(handlers.Options{
		Config:    cfg,
		Catalog:   catalog,
		Transport: transport,
		Cache:     results,
		Storage:   store,
		Jobs:      jobs,
		Logger:    &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build app")
	}
	if len(cfg.VIPKeys) == 0 {
		logger.Warn().Msg("VIP_KEYS not set, VIP tools are unavailable")
	}

	router := httpapi.NewRouter(app, httpapi.RouterOptions{
		Logger:          logger,
		CORSOrigins:     cfg.CORSOrigins,
		DefaultLocale:   cfg.DefaultLocale,
		CountryLookup:   resolver.Lookup(),
		RateLimitPerMin: cfg.RateLimitPerMin,
		StaticDir:       store.BasePath(),
	})

	server := infra.NewHTTPServer(cfg, router, logger)
	if err := server.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("http server failed")
	}
}

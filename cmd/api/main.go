package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/velmora/retail-admin-backend/api/routes"
	"github.com/velmora/retail-admin-backend/internal/catalog"
	"github.com/velmora/retail-admin-backend/internal/conflict"
	"github.com/velmora/retail-admin-backend/internal/pricing"
	"github.com/velmora/retail-admin-backend/internal/promotions"
	"github.com/velmora/retail-admin-backend/internal/snapshot"
	"github.com/velmora/retail-admin-backend/pkg/config"
	"github.com/velmora/retail-admin-backend/pkg/db"
	"github.com/velmora/retail-admin-backend/pkg/logger"
	"github.com/velmora/retail-admin-backend/pkg/metrics"
	"github.com/velmora/retail-admin-backend/pkg/migrate"
	"github.com/velmora/retail-admin-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	engineMetrics := metrics.NewEngineMetrics(registry)

	catalogRepo := catalog.NewRepository(dbClient.DB())
	pricingRepo := pricing.NewRepository(dbClient.DB())
	promotionRepo := promotions.NewRepository(dbClient.DB())

	snapshotProvider, err := snapshot.NewProvider(cfg.Snapshot, catalogRepo, pricingRepo, promotionRepo, redisClient, engineMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create snapshot provider", err)
		os.Exit(1)
	}

	locks := conflict.NewKeyedMutex()

	pricingService, err := pricing.NewService(pricingRepo, dbClient, catalogRepo, locks, snapshotProvider, engineMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing service", err)
		os.Exit(1)
	}

	promotionService, err := promotions.NewService(promotionRepo, dbClient, catalogRepo, catalogRepo, locks, snapshotProvider, engineMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create promotion service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			pricingService,
			promotionService,
			snapshotProvider,
			engineMetrics,
			registry,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mandisetu/mandisetu-backend/api/handlers"
	"github.com/mandisetu/mandisetu-backend/api/routes"
	"github.com/mandisetu/mandisetu-backend/internal/groupbuys"
	"github.com/mandisetu/mandisetu-backend/internal/hubs"
	"github.com/mandisetu/mandisetu-backend/internal/notifications"
	"github.com/mandisetu/mandisetu-backend/internal/orders"
	"github.com/mandisetu/mandisetu-backend/internal/views"
	"github.com/mandisetu/mandisetu-backend/pkg/config"
	"github.com/mandisetu/mandisetu-backend/pkg/db"
	"github.com/mandisetu/mandisetu-backend/pkg/logger"
	"github.com/mandisetu/mandisetu-backend/pkg/metrics"
	"github.com/mandisetu/mandisetu-backend/pkg/migrate"
	"github.com/mandisetu/mandisetu-backend/pkg/outbox"
	"github.com/mandisetu/mandisetu-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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
	groupBuyMetrics := metrics.NewGroupBuyMetrics(registry)

	txRunner := db.NewRetryingTxRunner(dbClient, cfg.Join.TxMaxRetries, cfg.Join.TxRetryBackoff)
	txRunner.OnRetry(groupBuyMetrics.IncTxRetry)

	groupBuysRepo := groupbuys.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(ordersRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	viewInvalidator := views.NewInvalidator(redisClient, logg)

	groupBuysService, err := groupbuys.NewService(
		txRunner,
		groupBuysRepo,
		ordersRepo,
		notificationsService,
		outboxService,
		viewInvalidator,
		groupBuyMetrics,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create group buys service", err)
		os.Exit(1)
	}

	readiness := map[string]handlers.Pinger{
		"database": dbClient,
		"redis":    redisClient,
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
			readiness,
			registry,
			groupBuysService,
			ordersService,
			notificationsService,
			hubs.NewRepository(dbClient.DB()),
		),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutting down api server")
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(drainCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
			os.Exit(1)
		}
	}

	logg.Info(ctx, "api server stopped")
}

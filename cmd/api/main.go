package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/storetrack-backend/api/routes"
	"github.com/angelmondragon/storetrack-backend/internal/catalog"
	"github.com/angelmondragon/storetrack-backend/internal/checkout"
	"github.com/angelmondragon/storetrack-backend/internal/identity"
	"github.com/angelmondragon/storetrack-backend/internal/sales"
	"github.com/angelmondragon/storetrack-backend/internal/transactions"
	"github.com/angelmondragon/storetrack-backend/pkg/config"
	"github.com/angelmondragon/storetrack-backend/pkg/db"
	"github.com/angelmondragon/storetrack-backend/pkg/instance"
	"github.com/angelmondragon/storetrack-backend/pkg/logger"
	"github.com/angelmondragon/storetrack-backend/pkg/metrics"
	"github.com/angelmondragon/storetrack-backend/pkg/migrate"
	"github.com/angelmondragon/storetrack-backend/pkg/outbox"
	"github.com/angelmondragon/storetrack-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "storetrack-api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "storetrack-api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
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

	identities := identity.NewRepository(dbClient.DB())
	resolver, err := identity.NewResolver(identities)
	if err != nil {
		logg.Error(context.Background(), "failed to create principal resolver", err)
		os.Exit(1)
	}

	catalogRepo := catalog.NewRepository(dbClient.DB())
	ledger := sales.NewRepository(dbClient.DB())

	engine, err := checkout.NewEngine(checkout.Params{
		Tx:       dbClient,
		Catalog:  catalogRepo,
		Ledger:   ledger,
		Events:   outbox.NewEmitter(outbox.NewRepository(dbClient.DB()), logg),
		Metrics:  metrics.NewCheckoutMetrics(registry),
		Logger:   logg,
		MaxLines: cfg.Sales.MaxCheckoutLines,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout engine", err)
		os.Exit(1)
	}

	reader, err := transactions.NewReader(transactions.Params{
		Ledger:       ledger,
		Names:        identities,
		Products:     catalogRepo,
		DefaultLimit: cfg.Sales.DefaultPageSize,
		MaxLimit:     cfg.Sales.MaxPageSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create transaction reader", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Dependencies{
			DB:          dbClient,
			Redis:       redisClient,
			Resolver:    resolver,
			Recorder:    engine,
			Reader:      reader,
			Registry:    registry,
			HTTPMetrics: metrics.NewHTTPMetrics(registry),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "api server shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}
}

package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storetrack-backend/api/controllers"
	"github.com/angelmondragon/storetrack-backend/api/middleware"
	"github.com/angelmondragon/storetrack-backend/pkg/config"
	"github.com/angelmondragon/storetrack-backend/pkg/logger"
	"github.com/angelmondragon/storetrack-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/storetrack-backend/pkg/redis"
)

// RedisStore is the redis surface the API needs: idempotency records,
// per-principal rate limiting and a readiness ping.
type RedisStore interface {
	pkgredis.IdempotencyStore
	pkgredis.RateLimiter
	Ping(context.Context) error
}

// Dependencies groups the collaborators the HTTP surface is wired to.
type Dependencies struct {
	DB          controllers.Pinger
	Redis       RedisStore
	Resolver    middleware.PrincipalResolver
	Recorder    controllers.SaleRecorder
	Reader      controllers.TransactionReader
	Registry    *prometheus.Registry
	HTTPMetrics *metrics.HTTPMetrics
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.HTTPMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	readiness := map[string]controllers.Pinger{}
	if deps.DB != nil {
		readiness["db"] = deps.DB
	}
	if deps.Redis != nil {
		readiness["redis"] = deps.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	if cfg.Metrics.Enabled && deps.Registry != nil {
		r.Method(http.MethodGet, metricsPath(cfg), promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	var idempotencyStore pkgredis.IdempotencyStore
	var limiter pkgredis.RateLimiter
	if deps.Redis != nil {
		idempotencyStore = deps.Redis
		limiter = deps.Redis
	}
	salePolicy := middleware.NewRateLimitPolicy("sales", cfg.RateLimit.SalesWindow, cfg.RateLimit.SalesLimit)
	writeGuards := chi.Chain(
		middleware.PrincipalRateLimit(salePolicy, limiter, logg),
		middleware.Idempotency(idempotencyStore, cfg.Idempotency.SalesTTL, logg),
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.IPRateLimit(cfg.RateLimit.IPLimit, window(cfg.RateLimit.IPWindow)))
		r.Use(middleware.Auth(cfg.JWT, deps.Resolver, logg))

		r.With(writeGuards...).Post("/sales", controllers.RecordSale(deps.Recorder, logg))
		r.With(writeGuards...).Post("/sales/checkout", controllers.Checkout(deps.Recorder, logg))
		r.Get("/sales", controllers.ListSales(deps.Reader, logg))
		r.Get("/sales/transactions", controllers.ListTransactions(deps.Reader, logg))
		r.Get("/sales/transactions/{transactionId}", controllers.GetTransaction(deps.Reader, logg))
		r.Get("/sales/transactions/{transactionId}/receipt", controllers.GetReceipt(deps.Reader, logg))
	})

	return r
}

func metricsPath(cfg *config.Config) string {
	if cfg.Metrics.Path == "" {
		return "/metrics"
	}
	return cfg.Metrics.Path
}

func window(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Minute
	}
	return d
}

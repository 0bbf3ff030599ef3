package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/tradeledger/internal/adapter/http/handler"
	"github.com/iho/tradeledger/internal/adapter/http/middleware"
	"github.com/iho/tradeledger/internal/infrastructure/metrics"
	"github.com/iho/tradeledger/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	HealthHandler         *handler.HealthHandler
	BalanceHandler        *handler.BalanceHandler
	DocumentHandler       *handler.DocumentHandler
	ActivityHandler       *handler.ActivityHandler
	ReconciliationHandler *handler.ReconciliationHandler
	IdempotencyStore      usecase.IdempotencyStore
	RateLimiter           *middleware.RateLimiter
	Metrics               *metrics.Metrics
	// MetricsHandler serves /metrics; defaults to the global Prometheus registry.
	MetricsHandler http.Handler
	Logger         zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Metrics(cfg.Metrics))
	r.Use(middleware.Recovery(cfg.Logger))

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)

	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Actor)
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Limit)
		}

		r.Get("/balances/{kind}/{id}", cfg.BalanceHandler.Get)
		r.Get("/balances/{kind}/{id}/movements", cfg.BalanceHandler.ListMovements)

		r.Get("/documents/{kind}/{id}/converted-amount", cfg.DocumentHandler.ConvertedAmount)

		r.Route("/activities", func(r chi.Router) {
			r.Get("/", cfg.ActivityHandler.List)
			r.Get("/{id}", cfg.ActivityHandler.Get)

			r.Group(func(r chi.Router) {
				// Restores replay ledger postings; a retried request must not post twice.
				if cfg.IdempotencyStore != nil {
					r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.Logger).Wrap)
				}
				r.Post("/{id}/restore", cfg.ActivityHandler.Restore)
			})
		})

		r.Get("/ledger/reconciliation", cfg.ReconciliationHandler.Report)
	})

	return r
}

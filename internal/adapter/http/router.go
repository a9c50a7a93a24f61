package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/bankledger/internal/adapter/http/handler"
	"github.com/iho/bankledger/internal/adapter/http/middleware"
	"github.com/iho/bankledger/internal/infrastructure/metrics"
)

// OpsRouterConfig holds dependencies for the operations router.
type OpsRouterConfig struct {
	HealthHandler         *handler.HealthHandler
	ReconciliationHandler *handler.ReconciliationHandler
	Metrics               *metrics.Metrics
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
	Logger   zerolog.Logger
}

// NewOpsRouter creates the router for health checks, Prometheus scraping
// and reconciliation reports.
func NewOpsRouter(cfg OpsRouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery)
	r.Use(middleware.Metrics(cfg.Metrics))

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)

	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	if cfg.ReconciliationHandler != nil {
		r.Route("/reconciliation", func(r chi.Router) {
			r.Get("/", cfg.ReconciliationHandler.Report)
			r.Get("/accounts/{id}", cfg.ReconciliationHandler.Account)
		})
	}

	return r
}

// Package router assembles the HTTP surface: shared middleware, the three
// module routers and the operational endpoints.
package router

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	nomhandler "ovation/internal/nomination/handler"
	payhandler "ovation/internal/payment/handler"
	"ovation/internal/platform/metrics"
	"ovation/internal/platform/middleware"
	reghandler "ovation/internal/registration/handler"
	"ovation/pkg/platform/httputil"
)

// HealthCheck probes one backing dependency.
type HealthCheck func(ctx context.Context) error

// Deps is everything the router mounts.
type Deps struct {
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Sessions middleware.SessionValidator

	Nominations   *nomhandler.Handler
	Registrations *reghandler.Handler
	Payments      *payhandler.Handler

	// Health holds named checks for /healthz; empty means always healthy.
	Health map[string]HealthCheck
}

const requestTimeout = 30 * time.Second

// New builds the server router.
func New(deps Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Latency(deps.Metrics))
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.Session(deps.Sessions, deps.Logger))

	deps.Nominations.Register(r)
	deps.Registrations.Register(r)
	deps.Payments.Register(r)

	r.Get("/healthz", healthHandler(deps.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))

	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}
		httputil.WriteJSON(w, status, map[string]any{
			"status": http.StatusText(status),
			"checks": results,
		})
	}
}

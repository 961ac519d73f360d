// Package http assembles the public HTTP surface.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	applicationhandler "tuitionhub/internal/application/handler"
	identityhandler "tuitionhub/internal/identity/handler"
	paymenthandler "tuitionhub/internal/payment/handler"
	"tuitionhub/internal/platform/metrics"
	"tuitionhub/internal/platform/middleware"
	tuitionhandler "tuitionhub/internal/tuition/handler"
)

const requestTimeout = 30 * time.Second

// Deps carries everything the router mounts.
type Deps struct {
	Identity     *identityhandler.Handler
	Tuitions     *tuitionhandler.Handler
	Applications *applicationhandler.Handler
	Payments     *paymenthandler.Handler

	Verifier middleware.TokenVerifier
	Roles    middleware.RoleResolver
	Metrics  *metrics.Metrics
	Logger   *slog.Logger

	// Health reports readiness of the process's dependencies. Nil means
	// always healthy.
	Health func(r *http.Request) error
}

// New builds the chi router. Authentication always runs before authorization:
// admin routes stack RequireRole on top of RequireAuth, so a missing
// credential is 401 before any role check can 403.
func New(deps Deps) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Metadata)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Latency(deps.Metrics))

	r.Get("/healthz", healthHandler(deps.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)

		// Public surface, including the provider settlement callback.
		r.Group(deps.Identity.RegisterPublic)
		r.Group(deps.Tuitions.RegisterPublic)
		r.Group(deps.Payments.RegisterCallback)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(deps.Verifier, deps.Logger))

			deps.Identity.RegisterAuthed(r)
			deps.Tuitions.RegisterAuthed(r)
			deps.Applications.Register(r)
			deps.Payments.RegisterAuthed(r)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAuth(deps.Verifier, deps.Logger))
			r.Use(middleware.RequireRole(deps.Roles, "admin", deps.Logger))

			deps.Identity.RegisterAdmin(r)
			deps.Payments.RegisterAdmin(r)
		})
	})

	return r
}

func healthHandler(health func(r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if health != nil {
			if err := health(r); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded"}`))
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}

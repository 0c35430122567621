package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-wms/internal/activity"
	"github.com/odyssey-erp/odyssey-wms/internal/auth"
	"github.com/odyssey-erp/odyssey-wms/internal/entities"
	"github.com/odyssey-erp/odyssey-wms/internal/imports"
	"github.com/odyssey-erp/odyssey-wms/internal/observability"
	ordershttp "github.com/odyssey-erp/odyssey-wms/internal/orders/http"
	"github.com/odyssey-erp/odyssey-wms/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-wms/jobs"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping calls f.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	AuthHandler     *auth.Handler
	DocumentHandler *ordershttp.Handler
	ImportHandler   *imports.Handler
	EntityHandler   *entities.Handler
	ActivityHandler *activity.Handler
	JobHandler      *jobs.Handler
	Metrics         *observability.Metrics
	// Readiness checks keyed by dependency name, e.g. "postgres", "cms".
	Readiness map[string]Pinger
}

// NewRouter constructs the chi.Router with service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.OK(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readiness(params.Logger, params.Readiness))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Group(func(api chi.Router) {
		if params.AuthHandler != nil {
			api.Use(params.AuthHandler.Middleware)
			api.Route("/auth", params.AuthHandler.MountRoutes)
		}
		if params.DocumentHandler != nil {
			api.Route("/documents", params.DocumentHandler.MountRoutes)
		}
		if params.ImportHandler != nil {
			api.Route("/imports", params.ImportHandler.MountRoutes)
		}
		if params.EntityHandler != nil {
			api.Route("/entities", params.EntityHandler.MountRoutes)
		}
		if params.ActivityHandler != nil {
			api.Route("/activity", func(r chi.Router) {
				r.Use(auth.RequireAny(auth.PermActivityView))
				params.ActivityHandler.MountRoutes(r)
			})
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Fail(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Fail(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	})
	return r
}

func readiness(logger *slog.Logger, checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := make(map[string]string, len(checks))
		ready := true
		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check.Ping(ctx); err != nil {
				ready = false
				status[name] = "down"
				if logger != nil {
					logger.Warn("readiness check failed", slog.String("dependency", name), slog.Any("error", err))
				}
				continue
			}
			status[name] = "up"
		}
		if !ready {
			httpx.JSON(w, http.StatusServiceUnavailable, httpx.Envelope{Success: false, Data: status, Error: &httpx.ErrorBody{Message: "dependencies unavailable"}})
			return
		}
		httpx.OK(w, http.StatusOK, status)
	}
}

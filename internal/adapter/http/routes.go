package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	raotel "github.com/Strob0t/RegAdvisor/internal/adapter/otel"
)

// urlParam is a short alias for chi.URLParam.
func urlParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

// NewRouter builds the observability router with the standard middleware stack.
func NewRouter(h *Handlers, serviceName string) http.Handler {
	r := chi.NewRouter()

	r.Use(raotel.HTTPMiddleware(serviceName))
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))

	r.Get("/health", h.Health)
	MountRoutes(r, h)
	return r
}

// MountRoutes registers the API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"version": Version})
		})
		r.Get("/metrics/performance", h.Performance)
		r.Get("/strategies", h.ListStrategies)
		r.Get("/strategies/{name}", h.GetStrategy)
	})
}

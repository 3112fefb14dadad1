package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Mounts are optional handlers served next to the API.
type Mounts struct {
	// Metrics serves GET /metrics.
	Metrics http.Handler
	// MCP serves the streamable HTTP MCP transport at /mcp behind the admin
	// middleware, since its tools can write the configuration.
	MCP http.Handler
}

func NewRouter(h *Handler, mounts Mounts) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(RequestID)

	r.Get("/v1/health", h.Health)
	if mounts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", mounts.Metrics)
	}

	r.Get("/v1/plan", h.Plan)
	r.Get("/v1/plan/{role}/explain", h.Explain)
	r.Get("/v1/route/{role}", h.Route)
	r.Post("/v1/preferences", h.Preferences)

	r.Group(func(r chi.Router) {
		r.Use(h.admin)
		r.Post("/v1/providers/{provider}/report", h.ReportProvider)
		if mounts.MCP != nil {
			r.Handle("/mcp", mounts.MCP)
		}
	})
	return r
}

// Package httptransport is the thin HTTP layer: document downloads against
// issued grants, plus health and metrics endpoints. It delegates to domain
// services and keeps transport concerns out of them.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler serves the public endpoints.
type Handler struct {
	grants GrantResolver
	bus    BusReadiness
	store  StoreReadiness
	log    *slog.Logger
}

func NewHandler(grants GrantResolver, bus BusReadiness, store StoreReadiness, log *slog.Logger) *Handler {
	return &Handler{grants: grants, bus: bus, store: store, log: log}
}

// NewRouter wires all routes behind the shared middleware stack.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", h.handleHealthz)
	r.Get("/readyz", h.handleReadyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/documents/download", h.handleDownload)
	return r
}

package httpserver

import (
	"net/http"

	"sealgate/internal/platform/config"
)

// New builds the HTTP server around the router. Timeouts come from config;
// the write timeout stays generous because downloads stream whole sealed
// PDFs in one response.
func New(cfg config.Server, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"

	"sealgate/internal/access"
	"sealgate/pkg/platform/sentinel"
)

// GrantResolver exchanges a token and session for sealed document bytes.
type GrantResolver interface {
	Resolve(ctx context.Context, token, session string) ([]byte, access.Grant, error)
}

// BusReadiness reports whether the event broker is currently reachable.
type BusReadiness interface {
	Healthy(ctx context.Context) bool
}

// StoreReadiness reports whether the shared grant store is reachable. A nil
// checker means the in-memory store, which cannot fail.
type StoreReadiness interface {
	Health(ctx context.Context) error
}

func (h *Handler) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz reports bus and grant store reachability. A degraded bus
// still answers 200: downloads keep working off the grant store while the
// broker is away. An unreachable grant store answers 503, since no grant
// can be redeemed without it.
func (h *Handler) handleReadyz(w http.ResponseWriter, r *http.Request) {
	bus := "up"
	if !h.bus.Healthy(r.Context()) {
		bus = "degraded"
	}
	if h.store != nil {
		if err := h.store.Health(r.Context()); err != nil {
			h.log.ErrorContext(r.Context(), "grant store unreachable", "error", err)
			writeJSON(w, http.StatusServiceUnavailable,
				map[string]string{"status": "degraded", "bus": bus, "grants": "down"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "bus": bus, "grants": "ok"})
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token := r.URL.Query().Get("token")
	session := r.URL.Query().Get("session")
	if token == "" || session == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "token and session are required"})
		return
	}

	data, grant, err := h.grants.Resolve(ctx, token, session)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrUnauthorized):
			// No detail leaks about whether the token ever existed.
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		case errors.Is(err, sentinel.ErrNotFound):
			h.log.ErrorContext(ctx, "grant matched but sealed bytes are gone", "error", err)
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "document not found"})
		default:
			h.log.ErrorContext(ctx, "download failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		}
		return
	}

	h.log.InfoContext(ctx, "sealed document served",
		"document_id", grant.DocumentID,
		"signer_id", grant.SignerID,
	)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", path.Base(grant.Document.Path)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// internal/opsserver/server.go
//
// Operational HTTP surface.
//
// Context
// -------
// `confctl serve` mounts three read-only endpoints:
//
//   - /healthz  – liveness, and whether a configuration is loaded.
//   - /metrics  – Prometheus collectors (cache, stages, provenance).
//   - /configz  – the resolved configuration with provenance, secrets
//     redacted by the Redacted type itself.
//
// This is observability plumbing only; it never mutates resolver state.
package opsserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chatforge/confcore"
)

// Handler builds the ops router.
func Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", healthz)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/configz", configz)
	return r
}

// New wraps the handler in an *http.Server with conservative timeouts so
// a stuck client cannot pin the process.
func New(addr string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"loaded": confcore.Get() != nil,
	})
}

func configz(w http.ResponseWriter, _ *http.Request) {
	ann := confcore.Annotations()
	if ann == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"error": "configuration not loaded",
		})
		return
	}
	writeJSON(w, http.StatusOK, ann)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

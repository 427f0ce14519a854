package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shaveen-balasooriya/hive/internal/metrics"
)

// WithObservability mounts /healthz and /metrics alongside an existing
// control-surface router, shared by both the Honeypot API and the
// Log-Infra API processes.
func WithObservability(api http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())
	r.Mount("/", api)
	return r
}

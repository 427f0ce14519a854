// Package httpapi implements the two REST control surfaces of spec.md
// §4.7/§6: the Honeypot API and the Log-Infra API, sharing one
// middleware stack, error mapping, and worker-pool dispatch.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shaveen-balasooriya/hive/internal/log"
	"github.com/shaveen-balasooriya/hive/internal/metrics"
)

type contextKey string

const requestIDKey contextKey = "hive-request-id"

// requestID injects a per-request correlation ID (spec.md §3.7.1's
// request-scoped logging, generalized from the teacher's node/service
// scoped helpers to an HTTP request scope).
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFromContext returns the per-request correlation ID, or "" if absent.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// statusWriter captures the status code written so access logging and
// metrics can report it after the handler returns.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// accessLog logs one structured line per request at info level,
// mirroring the teacher's pkg/log request-scoped logging.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(sw, r)

		logger := log.WithComponent("httpapi").With().
			Str("request_id", RequestIDFromContext(r.Context())).
			Logger()
		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Dur("elapsed", time.Since(start)).
			Msg("request handled")
	})
}

// recoverer turns a handler panic into a 500 rather than killing the process.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.WithComponent("httpapi").Error().
					Interface("panic", rec).Msg("handler panicked")
				writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// metricsMiddleware records hive_http_requests_total and
// hive_http_request_duration_seconds per chi route pattern.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		timer := metrics.NewTimer()

		next.ServeHTTP(sw, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		metrics.HTTPRequestsTotal.WithLabelValues(route, http.StatusText(sw.status)).Inc()
		timer.ObserveDurationVec(metrics.HTTPRequestDuration, route)
	})
}

// commonMiddleware is shared by both HTTP control surfaces.
func commonMiddleware(r chi.Router) {
	r.Use(requestID, accessLog, recoverer, metricsMiddleware)
}

package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// withChiParam attaches a chi route context carrying key=value so
// handlers that call chi.URLParam can be exercised directly, without
// routing a real request through a mounted router.
func withChiParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

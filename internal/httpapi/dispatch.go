package httpapi

import (
	"context"
	"net/http"

	"github.com/shaveen-balasooriya/hive/internal/worker"
)

// dispatch runs job on the shared worker pool, bound to the request's
// context so client cancellation kills the in-flight subprocess
// (spec.md §5). On ctx cancellation it writes 504.
func dispatch(pool *worker.Pool, w http.ResponseWriter, r *http.Request, job worker.Job) (any, bool) {
	result, err := pool.Dispatch(r.Context(), job)
	if err != nil {
		if r.Context().Err() == context.DeadlineExceeded || r.Context().Err() == context.Canceled {
			writeError(w, http.StatusGatewayTimeout, "request canceled or timed out")
			return nil, false
		}
		handleError(w, r, err)
		return nil, false
	}
	return result, true
}

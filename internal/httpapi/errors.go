package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shaveen-balasooriya/hive/internal/hiveerr"
	"github.com/shaveen-balasooriya/hive/internal/log"
)

// statusFor maps a hiveerr.Kind to an HTTP status per spec.md §7's table.
func statusFor(kind hiveerr.Kind) int {
	switch kind {
	case hiveerr.KindHoneypotAlreadyExists, hiveerr.KindPortInUse:
		return http.StatusConflict
	case hiveerr.KindUnknownType, hiveerr.KindNotFound:
		return http.StatusNotFound
	case hiveerr.KindPrivilegedPort, hiveerr.KindBadRequest:
		return http.StatusBadRequest
	case hiveerr.KindActiveConnections:
		return http.StatusLocked
	case hiveerr.KindImageFailure, hiveerr.KindContainerFailure,
		hiveerr.KindRuntimeFailure, hiveerr.KindHostResourceFailure, hiveerr.KindContainerBusy:
		return http.StatusInternalServerError
	case hiveerr.KindBootstrapTimeout:
		return http.StatusGatewayTimeout
	case hiveerr.KindPermissionDenied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes {"detail": message} at the given status.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": message})
}

// handleError maps err to an HTTP response, logging the raw error at
// debug level while the client only ever sees the simplified message
// (spec.md §7's propagation policy).
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	var he *hiveerr.HiveError
	if errors.As(err, &he) {
		logger := log.WithComponent("httpapi")
		logger.Debug().Err(he.Cause).Str("kind", string(he.Kind)).
			Str("request_id", RequestIDFromContext(r.Context())).
			Msg("request failed")
		writeError(w, statusFor(he.Kind), he.Message)
		return
	}
	writeError(w, http.StatusInternalServerError, "internal error")
}

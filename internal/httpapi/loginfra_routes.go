package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/shaveen-balasooriya/hive/internal/loginfra"
	"github.com/shaveen-balasooriya/hive/internal/worker"
)

// LogInfraAPI implements spec.md §6.2 over a loginfra.Orchestrator.
type LogInfraAPI struct {
	orchestrator *loginfra.Orchestrator
	pool         *worker.Pool
	collectorEnv loginfra.LogCollectorEnv
}

// NewLogInfraAPI constructs the Log-Infra API router.
func NewLogInfraAPI(orch *loginfra.Orchestrator, collectorEnv loginfra.LogCollectorEnv, pool *worker.Pool) http.Handler {
	api := &LogInfraAPI{orchestrator: orch, pool: pool, collectorEnv: collectorEnv}

	r := chi.NewRouter()
	commonMiddleware(r)

	r.Post("/create", api.create)
	r.Post("/start", api.start)
	r.Post("/stop", api.stop)
	r.Delete("/delete", api.delete)
	r.Get("/status", api.status)
	r.Get("/services", api.services)

	return r
}

type createInfraRequest struct {
	AdminPassword string `json:"admin_password"`
}

func (a *LogInfraAPI) create(w http.ResponseWriter, r *http.Request) {
	var req createInfraRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if len(req.AdminPassword) < 8 {
		writeError(w, http.StatusBadRequest, "admin_password must be at least 8 characters")
		return
	}

	existing, err := a.orchestrator.ExistingNames(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	if len(existing) > 0 {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("infrastructure containers already exist: %s", strings.Join(existing, ", ")))
		return
	}

	_, ok := dispatch(a.pool, w, r, func(ctx context.Context) (any, error) {
		return nil, a.orchestrator.CreateAll(ctx, req.AdminPassword, a.collectorEnv)
	})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "log infrastructure created"})
}

func (a *LogInfraAPI) start(w http.ResponseWriter, r *http.Request) {
	missing, err := a.orchestrator.Missing(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	if missing {
		writeError(w, http.StatusBadRequest, "one or more infrastructure containers are missing; run create first")
		return
	}

	_, ok := dispatch(a.pool, w, r, func(ctx context.Context) (any, error) {
		return nil, a.orchestrator.StartAll(ctx)
	})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "log infrastructure started"})
}

func (a *LogInfraAPI) stop(w http.ResponseWriter, r *http.Request) {
	missing, err := a.orchestrator.Missing(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	if missing {
		writeError(w, http.StatusBadRequest, "one or more infrastructure containers are missing")
		return
	}

	_, ok := dispatch(a.pool, w, r, func(ctx context.Context) (any, error) {
		return nil, a.orchestrator.StopAll(ctx)
	})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "log infrastructure stopped"})
}

func (a *LogInfraAPI) delete(w http.ResponseWriter, r *http.Request) {
	missing, err := a.orchestrator.Missing(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	running, err := a.orchestrator.AnyRunning(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	if missing {
		writeError(w, http.StatusBadRequest, "one or more infrastructure containers are missing")
		return
	}
	if running {
		writeError(w, http.StatusBadRequest, "cannot delete while any infrastructure container is running")
		return
	}

	_, ok := dispatch(a.pool, w, r, func(ctx context.Context) (any, error) {
		return nil, a.orchestrator.DeleteAll(ctx)
	})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "log infrastructure deleted"})
}

func (a *LogInfraAPI) status(w http.ResponseWriter, r *http.Request) {
	result, ok := dispatch(a.pool, w, r, func(ctx context.Context) (any, error) {
		return a.orchestrator.StatusReport(ctx)
	})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *LogInfraAPI) services(w http.ResponseWriter, r *http.Request) {
	result, ok := dispatch(a.pool, w, r, func(ctx context.Context) (any, error) {
		return a.orchestrator.RunningServices(ctx)
	})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, result)
}

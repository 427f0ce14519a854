package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/shaveen-balasooriya/hive/internal/hiveerr"
	"github.com/shaveen-balasooriya/hive/internal/honeypot"
	"github.com/shaveen-balasooriya/hive/internal/types"
	"github.com/shaveen-balasooriya/hive/internal/worker"
)

// HoneypotAPI implements spec.md §6.1 over a honeypot.Manager.
type HoneypotAPI struct {
	manager *honeypot.Manager
	pool    *worker.Pool
}

// NewHoneypotAPI constructs the Honeypot API router.
func NewHoneypotAPI(manager *honeypot.Manager, pool *worker.Pool) http.Handler {
	api := &HoneypotAPI{manager: manager, pool: pool}

	r := chi.NewRouter()
	commonMiddleware(r)

	r.Get("/types", api.listTypes)
	r.Get("/types/{t}/config", api.typeConfig)
	r.Get("/types/{t}/auth-details", api.authDetails)

	r.Get("/", api.listAll)
	r.Get("/type/{t}", api.listByType)
	r.Get("/status/{s}", api.listByStatus)
	r.Get("/name/{name}", api.getByName)

	r.Post("/", api.create)
	r.Post("/{name}/start", api.verb("start"))
	r.Post("/{name}/stop", api.verb("stop"))
	r.Post("/{name}/restart", api.verb("restart"))
	r.Delete("/{name}", api.delete)

	r.Get("/port-check/{port}", api.portCheck)

	return r
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (a *HoneypotAPI) listTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.manager.Catalog().Keys())
}

func (a *HoneypotAPI) typeConfig(w http.ResponseWriter, r *http.Request) {
	t := chi.URLParam(r, "t")
	tc, ok := a.manager.Catalog().Get(t)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown honeypot type")
		return
	}
	writeJSON(w, http.StatusOK, tc)
}

func (a *HoneypotAPI) authDetails(w http.ResponseWriter, r *http.Request) {
	t := chi.URLParam(r, "t")
	tc, ok := a.manager.Catalog().Get(t)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown honeypot type")
		return
	}
	if len(tc.Authentication) == 0 && tc.Banner == "" {
		writeError(w, http.StatusNotFound, "no authentication or banner override set")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"authentication": tc.Authentication,
		"banner":         tc.Banner,
	})
}

func (a *HoneypotAPI) listAll(w http.ResponseWriter, r *http.Request) {
	result, ok := dispatch(a.pool, w, r, func(ctx context.Context) (any, error) {
		return a.manager.ListAll(ctx)
	})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *HoneypotAPI) listByType(w http.ResponseWriter, r *http.Request) {
	t := chi.URLParam(r, "t")
	result, ok := dispatch(a.pool, w, r, func(ctx context.Context) (any, error) {
		return a.manager.ListByType(ctx, t)
	})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *HoneypotAPI) listByStatus(w http.ResponseWriter, r *http.Request) {
	s := chi.URLParam(r, "s")
	result, ok := dispatch(a.pool, w, r, func(ctx context.Context) (any, error) {
		return a.manager.ListByStatus(ctx, s)
	})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *HoneypotAPI) getByName(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	result, ok := dispatch(a.pool, w, r, func(ctx context.Context) (any, error) {
		return a.manager.Inspect(ctx, name)
	})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// createRequest is the body of `POST /` (spec.md §6.1).
type createRequest struct {
	HoneypotType          string              `json:"honeypot_type"`
	HoneypotPort          int                 `json:"honeypot_port"`
	HoneypotCPULimit      int64               `json:"honeypot_cpu_limit,omitempty"`
	HoneypotCPUQuota      int64               `json:"honeypot_cpu_quota,omitempty"`
	HoneypotMemoryLimit   string              `json:"honeypot_memory_limit,omitempty"`
	HoneypotMemorySwap    string              `json:"honeypot_memory_swap_limit,omitempty"`
	Authentication        []credentialRequest `json:"authentication,omitempty"`
	Banner                string              `json:"banner,omitempty"`
}

type credentialRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (a *HoneypotAPI) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.HoneypotType == "" {
		writeError(w, http.StatusBadRequest, "honeypot_type is required")
		return
	}

	creds := make([]types.Credential, 0, len(req.Authentication))
	for _, c := range req.Authentication {
		creds = append(creds, types.Credential{Username: c.Username, Password: c.Password})
	}

	result, ok := dispatch(a.pool, w, r, func(ctx context.Context) (any, error) {
		return a.manager.Create(ctx, honeypot.CreateParams{
			Type:            req.HoneypotType,
			HostPort:        req.HoneypotPort,
			CPUPeriod:       req.HoneypotCPULimit,
			CPUQuota:        req.HoneypotCPUQuota,
			MemoryLimit:     req.HoneypotMemoryLimit,
			MemorySwapLimit: req.HoneypotMemorySwap,
			Authentication:  creds,
			Banner:          req.Banner,
		})
	})
	if !ok {
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (a *HoneypotAPI) verb(which string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		_, ok := dispatch(a.pool, w, r, func(ctx context.Context) (any, error) {
			switch which {
			case "start":
				return nil, a.manager.Start(ctx, name)
			case "stop":
				return nil, a.manager.Stop(ctx, name)
			case "restart":
				return nil, a.manager.Restart(ctx, name)
			}
			return nil, hiveerr.New(hiveerr.KindBadRequest, "unknown verb", nil)
		})
		if !ok {
			return
		}
		hp, ok := dispatch(a.pool, w, r, func(ctx context.Context) (any, error) {
			return a.manager.Inspect(ctx, name)
		})
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message":  which + " succeeded",
			"honeypot": hp,
		})
	}
}

func (a *HoneypotAPI) delete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	hp, err := a.manager.Inspect(r.Context(), name)
	if err != nil {
		handleError(w, r, err)
		return
	}
	_, ok := dispatch(a.pool, w, r, func(ctx context.Context) (any, error) {
		return nil, a.manager.Delete(ctx, name)
	})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "honeypot deleted",
		"honeypot": hp,
	})
}

func (a *HoneypotAPI) portCheck(w http.ResponseWriter, r *http.Request) {
	portStr := chi.URLParam(r, "port")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "port must be an integer")
		return
	}
	result, ok := dispatch(a.pool, w, r, func(ctx context.Context) (any, error) {
		return a.manager.CheckPort(ctx, port)
	})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, result)
}

package handlers

import (
	"context"
	"net/http"

	"github.com/nikhilbhutani/voiceassistant/internal/nlp/intent"
)

// Pinger is satisfied by the Postgres pool and the Redis cache.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db       Pinger
	redis    Pinger
	registry *intent.Registry
}

// NewHealthHandler accepts nil dependencies; unconfigured backends are
// left out of the readiness report.
func NewHealthHandler(db, rdb Pinger, registry *intent.Registry) *HealthHandler {
	return &HealthHandler{db: db, redis: rdb, registry: registry}
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}

	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			checks["database"] = "unhealthy: " + err.Error()
		} else {
			checks["database"] = "ok"
		}
	}

	if h.redis != nil {
		if err := h.redis.Ping(r.Context()); err != nil {
			checks["redis"] = "unhealthy: " + err.Error()
		} else {
			checks["redis"] = "ok"
		}
	}

	status := http.StatusOK
	for _, v := range checks {
		if v != "ok" {
			status = http.StatusServiceUnavailable
			break
		}
	}

	body := map[string]interface{}{"status": statusStr(status), "checks": checks}
	if h.registry != nil {
		_, err := h.registry.Current()
		body["intent_model_loaded"] = err == nil
	}
	writeJSON(w, status, body)
}

func statusStr(code int) string {
	if code == http.StatusOK {
		return "ok"
	}
	return "unhealthy"
}

package handler

import (
	"context"
	"net/http"
	"time"

	"arbor/internal/httputil"
)

// HealthCheck checks one dependency.
type HealthCheck func(ctx context.Context) error

// HealthHandler reports liveness plus the state of named dependencies
type HealthHandler struct {
	checks map[string]HealthCheck
}

// NewHealthHandler creates a health handler over the given checks
func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// HealthCheck reports 200 when every check passes, 503 otherwise
// GET /health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	body := map[string]any{
		"status": "ok",
		"time":   time.Now(),
		"checks": results,
	}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	httputil.RespondJSON(w, status, body)
}

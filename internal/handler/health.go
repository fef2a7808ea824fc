package handler

import (
	"context"
	"net/http"
	"time"
)

// HealthChecker defines an interface for checking service health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthHandler manages health check endpoints.
type HealthHandler struct {
	db      HealthChecker
	cache   HealthChecker
	objects HealthChecker
}

// NewHealthHandler creates a new HealthHandler.
// Pass nil for cache or objects when Redis or S3 are not configured.
func NewHealthHandler(db, cache, objects HealthChecker) *HealthHandler {
	return &HealthHandler{
		db:      db,
		cache:   cache,
		objects: objects,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Healthz is a liveness probe endpoint.
// It returns 200 if the server is running, without dependency checks.
//
// GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Readyz is a readiness probe endpoint.
// It returns 200 only if every configured dependency answers.
//
// GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string, 3)
	healthy := true

	for name, checker := range map[string]HealthChecker{
		"postgres": h.db,
		"redis":    h.cache,
		"s3":       h.objects,
	} {
		if checker == nil {
			checks[name] = "not configured"
			continue
		}
		// Error details stay in server logs; probes only need the verdict.
		if err := checker.Ping(ctx); err != nil {
			checks[name] = "error"
			healthy = false
			continue
		}
		checks[name] = "ok"
	}

	status := "ok"
	statusCode := http.StatusOK
	if !healthy {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, HealthResponse{Status: status, Checks: checks})
}

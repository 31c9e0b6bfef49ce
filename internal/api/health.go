package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Rahul-s27/Pace/internal/config"
	"github.com/Rahul-s27/Pace/internal/store"
	"github.com/go-chi/chi/v5"
)

// Pinger is a dependency whose reachability is reported by the health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	repo     store.Repository
	upstream Pinger
	cfg      *config.Config
}

// NewHealthHandler creates a health handler. upstream may be nil.
func NewHealthHandler(repo store.Repository, upstream Pinger, cfg *config.Config) *HealthHandler {
	return &HealthHandler{repo: repo, upstream: upstream, cfg: cfg}
}

// Health returns the health status of the API and its dependencies. An
// unreachable upstream degrades the status but only the database fails it.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	timeout := 5 * time.Second
	if h.cfg != nil {
		timeout = h.cfg.Timeout.HealthCheck
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	checks := map[string]string{"api": "ok"}
	status := "healthy"
	statusCode := http.StatusOK

	if err := h.repo.Ping(ctx); err != nil {
		slog.Error("Health check failed", "dependency", "database", "error", err)
		checks["database"] = "unreachable"
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	if h.upstream != nil {
		if err := h.upstream.Ping(ctx); err != nil {
			slog.Warn("Health check failed", "dependency", "upstream", "error", err)
			checks["upstream"] = "unreachable"
			status = "degraded"
		} else {
			checks["upstream"] = "ok"
		}
	}

	JSON(w, statusCode, map[string]any{
		"status": status,
		"checks": checks,
	})
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.Health)
}

package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/meseeks-ai/meseeks/internal/api/middleware"
	"github.com/meseeks-ai/meseeks/internal/api/response"
)

const healthPingTimeout = 2 * time.Second

// DBPinger checks database connectivity.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles the GET /health endpoint.
type HealthHandler struct {
	db      DBPinger
	version string
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db DBPinger, version string) *HealthHandler {
	return &HealthHandler{
		db:      db,
		version: version,
	}
}

type databaseStatus struct {
	Connected bool `json:"connected"`
}

type healthData struct {
	Status   string         `json:"status"`
	Version  string         `json:"version"`
	Database databaseStatus `json:"database"`
}

// ServeHTTP handles the health check request. A failed ping reports
// "degraded" with 503 so load balancers stop routing to the instance.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
	defer cancel()

	status, code, connected := "healthy", http.StatusOK, true
	if err := h.db.Ping(ctx); err != nil {
		slog.Warn("health check: database unreachable", "error", err)
		status, code, connected = "degraded", http.StatusServiceUnavailable, false
	}

	response.Success(w, code, healthData{
		Status:   status,
		Version:  h.version,
		Database: databaseStatus{Connected: connected},
	}, requestID)
}

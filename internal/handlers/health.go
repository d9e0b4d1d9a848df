package handlers

import (
	"net/http"
	"time"

	"github.com/bobmcallan/doc-mcp-server/internal/common"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	logger  *common.Logger
	service string
	version string
	now     func() time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(logger *common.Logger, service, version string) *HealthHandler {
	return &HealthHandler{logger: logger, service: service, version: version, now: time.Now}
}

// ServeHTTP handles GET /health.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status":    "UP",
		"service":   h.service,
		"version":   h.version,
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

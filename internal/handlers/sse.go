package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/bobmcallan/doc-mcp-server/internal/common"
	"github.com/bobmcallan/doc-mcp-server/internal/tools"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

// DefaultHeartbeatInterval is the gap between heartbeat events.
const DefaultHeartbeatInterval = 30 * time.Second

type connectionEvent struct {
	Type         string     `json:"type"`
	Status       string     `json:"status"`
	Server       string     `json:"server"`
	Version      string     `json:"version"`
	SessionID    string     `json:"sessionId"`
	Capabilities []string   `json:"capabilities"`
	Tools        []mcp.Tool `json:"tools"`
}

type heartbeatEvent struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

// SSEHandler serves GET /sse: one connection event announcing the tools,
// then a heartbeat every interval until the client goes away.
type SSEHandler struct {
	registry *tools.Registry
	server   string
	version  string
	interval time.Duration
	logger   *common.Logger

	active atomic.Int64
}

// NewSSEHandler creates a new SSE handler. A non-positive interval uses
// DefaultHeartbeatInterval.
func NewSSEHandler(registry *tools.Registry, server, version string, interval time.Duration, logger *common.Logger) *SSEHandler {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	return &SSEHandler{
		registry: registry,
		server:   server,
		version:  version,
		interval: interval,
		logger:   logger,
	}
}

// Active returns the number of open streams.
func (h *SSEHandler) Active() int64 {
	return h.active.Load()
}

// ServeHTTP handles GET /sse.
func (h *SSEHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// HEAD would open a stream that never sends a body.
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	sessionID := uuid.New().String()
	h.active.Add(1)
	defer h.active.Add(-1)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	err := writeEvent(w, connectionEvent{
		Type:         "connection",
		Status:       "connected",
		Server:       h.server,
		Version:      h.version,
		SessionID:    sessionID,
		Capabilities: []string{"tools"},
		Tools:        h.registry.MCPTools(),
	})
	if err != nil {
		return
	}
	flusher.Flush()

	h.logger.Info().Str("session_id", sessionID).Msg("SSE client connected")

	heartbeat := time.NewTicker(h.interval)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Str("session_id", sessionID).Msg("SSE client disconnected")
			return
		case t := <-heartbeat.C:
			if err := writeEvent(w, heartbeatEvent{Type: "heartbeat", Timestamp: t.UnixMilli()}); err != nil {
				h.logger.Debug().Str("session_id", sessionID).Str("error", err.Error()).Msg("SSE write failed")
				return
			}
			flusher.Flush()
		}
	}
}

// writeEvent writes a single data-only SSE message.
func writeEvent(w http.ResponseWriter, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

package server

import (
	"net/http"

	"github.com/bobmcallan/doc-mcp-server/internal/handlers"
)

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleRoot)

	mux.Handle("/health", s.app.HealthHandler)
	mux.Handle("/version", s.app.VersionHandler)

	// Per-tool endpoints
	mux.Handle("/tools/{name}", s.app.ToolsHandler)

	// Event stream
	mux.Handle("/sse", s.app.SSEHandler)

	// MCP endpoint (Streamable HTTP)
	if s.app.MCPHandler != nil {
		mux.Handle("/mcp", s.app.MCPHandler)
	}

	return mux
}

// handleRoot serves the index at "/" and a JSON 404 for everything unmatched.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.handleNotFound(w, r)
		return
	}
	RouteByMethod(w, r, MethodRouter{
		http.MethodGet: s.handleIndex,
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	handlers.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"service": s.app.Config.MCP.Name,
		"version": s.app.Config.MCP.Version,
		"tools":   s.app.Registry.Names(),
		"endpoints": map[string]string{
			"health": "/health",
			"sse":    "/sse",
			"tools":  "/tools/{name}",
			"mcp":    "/mcp",
		},
	})
}

// handleNotFound returns a JSON 404 for unmatched routes.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	handlers.WriteError(w, http.StatusNotFound, "not found")
}

// Package mcp exposes the tool registry through mark3labs/mcp-go so that
// Streamable HTTP clients can reach it at /mcp.
package mcp

import (
	"net/http"

	"github.com/bobmcallan/doc-mcp-server/internal/common"
	"github.com/bobmcallan/doc-mcp-server/internal/config"
	"github.com/bobmcallan/doc-mcp-server/internal/tools"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Handler is the HTTP handler for the MCP endpoint.
// It wraps mcp-go's StreamableHTTPServer and delegates to it.
type Handler struct {
	server     *mcpserver.MCPServer
	streamable *mcpserver.StreamableHTTPServer
	logger     *common.Logger
}

// Info identifies the server during the MCP handshake.
type Info struct {
	Name         string
	Version      string
	Instructions string
}

// NewServer builds an mcp-go server exposing every registry tool. Extra
// options are applied after the defaults.
func NewServer(info Info, dispatcher *tools.Dispatcher, style FailureStyle, opts ...mcpserver.ServerOption) *mcpserver.MCPServer {
	base := []mcpserver.ServerOption{
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithInstructions(info.Instructions),
		mcpserver.WithRecovery(),
	}
	s := mcpserver.NewMCPServer(info.Name, info.Version, append(base, opts...)...)
	RegisterTools(s, dispatcher, style)
	return s
}

// NewHandler builds the Streamable HTTP endpoint over dispatcher.
func NewHandler(cfg *config.Config, dispatcher *tools.Dispatcher, logger *common.Logger) *Handler {
	mcpSrv := NewServer(Info{
		Name:         cfg.MCP.Name,
		Version:      cfg.MCP.Version,
		Instructions: cfg.MCP.Instructions,
	}, dispatcher, FailuresAsResults)
	toolCount := len(dispatcher.Registry().Names())

	streamable := mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithStateLess(true),
	)

	logger.Info().
		Int("tools", toolCount).
		Str("server", cfg.MCP.Name).
		Msg("MCP handler initialized")

	return &Handler{
		server:     mcpSrv,
		streamable: streamable,
		logger:     logger,
	}
}

// Server returns the underlying MCP server.
func (h *Handler) Server() *mcpserver.MCPServer {
	return h.server
}

// ServeHTTP delegates to the mcp-go StreamableHTTPServer.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.streamable.ServeHTTP(w, r)
}

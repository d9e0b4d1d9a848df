package mcp

import (
	"context"
	"fmt"

	"github.com/bobmcallan/doc-mcp-server/internal/tools"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// FailureStyle selects how a dispatch Failure reaches the client.
type FailureStyle int

const (
	// FailuresAsResults returns an isError tool result carrying the kind in
	// structuredContent. Used by the Streamable HTTP endpoint.
	FailuresAsResults FailureStyle = iota
	// FailuresAsErrors returns a handler error, which mcp-go answers with a
	// -32603 JSON-RPC error. Used by the stdio transport.
	FailuresAsErrors
)

// RegisterTools adds every registry tool to s, in registration order.
func RegisterTools(s *server.MCPServer, d *tools.Dispatcher, style FailureStyle) int {
	defs := d.Registry().List()
	for _, def := range defs {
		s.AddTool(def.MCPTool(), DispatchHandler(d, def.Name, style))
	}
	return len(defs)
}

// DispatchHandler adapts one tool to an mcp-go handler.
func DispatchHandler(d *tools.Dispatcher, name string, style FailureStyle) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res := d.Dispatch(ctx, tools.Call{
			Name:      name,
			Arguments: tools.Arguments(request.GetArguments()),
		})
		if res.OK() {
			return mcp.NewToolResultText(res.Payload), nil
		}
		if style == FailuresAsErrors {
			return nil, fmt.Errorf("tool execution failed: %s", res.Failure.Message)
		}
		return errorResult(res.Failure), nil
	}
}

// errorResult creates an MCP error result carrying the failure kind.
func errorResult(f *tools.Failure) *mcp.CallToolResult {
	result := mcp.NewToolResultError(f.Message)
	result.StructuredContent = map[string]string{"kind": string(f.Kind)}
	return result
}

package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/bobmcallan/doc-mcp-server/internal/common"
	"github.com/bobmcallan/doc-mcp-server/internal/tools"
)

// ToolsHandler exposes every registered tool as POST /tools/{name}.
type ToolsHandler struct {
	dispatcher *tools.Dispatcher
	logger     *common.Logger
}

// NewToolsHandler creates a new tools handler.
func NewToolsHandler(dispatcher *tools.Dispatcher, logger *common.Logger) *ToolsHandler {
	return &ToolsHandler{dispatcher: dispatcher, logger: logger}
}

// ServeHTTP handles POST /tools/{name}. The JSON body is the argument object.
func (h *ToolsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	name := r.PathValue("name")
	args, err := decodeArguments(r.Body)
	if err != nil {
		h.logger.Warn().Str("tool", name).Str("error", err.Error()).Msg("rejected tool request body")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	res := h.dispatcher.Dispatch(r.Context(), tools.Call{Name: name, Arguments: args})
	if !res.OK() {
		WriteError(w, http.StatusInternalServerError, res.Failure.Message)
		return
	}
	WriteSuccess(w, res.Payload)
}

// decodeArguments reads a JSON object body. An empty body is an empty object.
func decodeArguments(body io.Reader) (tools.Arguments, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return tools.Arguments{}, nil
	}
	var args tools.Arguments
	if err := json.Unmarshal(data, &args); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	return args, nil
}

// Package stdio serves the tool registry as newline-delimited JSON-RPC 2.0
// over an injected reader/writer pair.
//
// Protocol handling is mcp-go's StdioServer. This package screens each
// inbound line first so that malformed envelopes and tools/call parameters
// get the error codes clients expect, then forwards the rest.
package stdio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bobmcallan/doc-mcp-server/internal/common"
	internalmcp "github.com/bobmcallan/doc-mcp-server/internal/mcp"
	"github.com/bobmcallan/doc-mcp-server/internal/tools"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// State is the lifecycle phase of a Server.
type State int32

const (
	StateUninitialized State = iota
	StateReady
	StateProcessing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateProcessing:
		return "processing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Options configures a Server. In and Out are required; nothing else is
// ever written to Out.
type Options struct {
	Name         string
	Version      string
	Instructions string
	In           io.Reader
	Out          io.Writer
	Logger       *common.Logger
}

// Server is the stdio JSON-RPC transport.
type Server struct {
	dispatcher *tools.Dispatcher
	opts       Options
	logger     *common.Logger
	out        *lockedWriter
	stdio      *mcpserver.StdioServer

	state    atomic.Int32
	inFlight atomic.Int32
}

// envelope is the subset of a JSON-RPC message screened before forwarding.
// A pointer id distinguishes notifications from requests.
type envelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *mcp.RequestId  `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   json.RawMessage `json:"error,omitempty"`
}

// New creates a stdio server over the dispatcher's registry.
func New(dispatcher *tools.Dispatcher, opts Options) (*Server, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher cannot be nil")
	}
	if opts.In == nil || opts.Out == nil {
		return nil, fmt.Errorf("stdio server requires both input and output streams")
	}
	logger := opts.Logger
	if logger == nil {
		logger = common.NewSilentLogger()
	}

	s := &Server{
		dispatcher: dispatcher,
		opts:       opts,
		logger:     logger,
		out:        &lockedWriter{w: opts.Out},
	}

	mcpSrv := internalmcp.NewServer(internalmcp.Info{
		Name:         opts.Name,
		Version:      opts.Version,
		Instructions: opts.Instructions,
	}, dispatcher, internalmcp.FailuresAsErrors, mcpserver.WithToolHandlerMiddleware(s.trackProcessing))

	s.stdio = mcpserver.NewStdioServer(mcpSrv)
	// One worker keeps tool calls sequential.
	mcpserver.WithWorkerPoolSize(1)(s.stdio)
	s.stdio.SetErrorLogger(log.New(errorLog{logger}, "", 0))
	return s, nil
}

// State reports the current lifecycle phase.
func (s *Server) State() State {
	return State(s.state.Load())
}

func (s *Server) setState(st State) {
	s.state.Store(int32(st))
}

// Serve handles messages until input is exhausted or ctx is cancelled.
// Tool calls run one at a time; responses carry the request id and may
// arrive out of request order.
func (s *Server) Serve(ctx context.Context) error {
	s.setState(StateReady)
	defer s.setState(StateClosed)

	s.logger.Info().Str("server", s.opts.Name).Str("version", s.opts.Version).Msg("stdio transport ready")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pr, pw := io.Pipe()
	go s.feed(ctx, pw)

	err := s.stdio.Listen(ctx, pr, s.out)
	pr.Close()

	if ctx.Err() != nil {
		s.logger.Info().Msg("stdio transport shutting down")
		return nil
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("error reading input")
		return fmt.Errorf("read input: %w", err)
	}
	s.logger.Info().Msg("input closed, exiting")
	return nil
}

// feed reads lines from In without a length limit and writes the ones
// mcp-go should handle to pw. The pipe is closed with the read error, or
// cleanly on EOF.
func (s *Server) feed(ctx context.Context, pw *io.PipeWriter) {
	reader := bufio.NewReader(s.opts.In)
	for {
		line, err := reader.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 && ctx.Err() == nil {
			if fwd := s.screen(ctx, line); fwd != nil {
				if _, werr := pw.Write(fwd); werr != nil {
					return
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				pw.Close()
			} else {
				pw.CloseWithError(err)
			}
			return
		}
	}
}

// screen answers lines that must not reach mcp-go and returns the
// newline-terminated line to forward, or nil.
func (s *Server) screen(ctx context.Context, line []byte) []byte {
	line = bytes.TrimSpace(line)

	if !json.Valid(line) {
		s.logger.Warn().Int("bytes", len(line)).Msg("failed to parse message")
		s.sendError(recoverID(line), mcp.PARSE_ERROR, "Parse error")
		return nil
	}

	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		s.logger.Warn().Err(err).Msg("invalid request envelope")
		s.sendError(recoverID(line), mcp.INVALID_REQUEST, "Invalid Request")
		return nil
	}

	if env.Method == "" {
		if len(env.Result) > 0 || len(env.Error) > 0 {
			s.logger.Debug().Msg("ignoring client response")
			return nil
		}
		s.sendError(idOf(env), mcp.INVALID_REQUEST, "Invalid Request")
		return nil
	}

	if env.ID != nil && env.Method == string(mcp.MethodToolsCall) {
		name, err := toolName(env.Params)
		if err != nil {
			s.sendError(*env.ID, mcp.INVALID_PARAMS, "Invalid tool call parameters: "+err.Error())
			return nil
		}
		if _, ok := s.dispatcher.Registry().Resolve(name); !ok {
			s.rejectUnknownTool(ctx, *env.ID, name)
			return nil
		}
	}

	return append(line, '\n')
}

// rejectUnknownTool reports an unregistered tool as a failed execution
// instead of mcp-go's invalid-params answer.
func (s *Server) rejectUnknownTool(ctx context.Context, id mcp.RequestId, name string) {
	s.beginWork()
	res := s.dispatcher.Dispatch(ctx, tools.Call{Name: name})
	s.endWork()
	s.sendError(id, mcp.INTERNAL_ERROR, fmt.Sprintf("tool execution failed: %s", res.Failure.Message))
}

// toolName checks tools/call params and returns the requested tool name.
func toolName(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", fmt.Errorf("params cannot be nil")
	}
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments,omitempty"`
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return "", fmt.Errorf("params must be an object")
	}
	if params.Name == "" {
		return "", fmt.Errorf("tool name is required")
	}
	if len(params.Arguments) > 0 && string(params.Arguments) != "null" {
		var args map[string]any
		if err := json.Unmarshal(params.Arguments, &args); err != nil {
			return "", fmt.Errorf("arguments must be an object")
		}
	}
	return params.Name, nil
}

func idOf(env envelope) mcp.RequestId {
	if env.ID == nil {
		return mcp.NewRequestId(nil)
	}
	return *env.ID
}

// recoverID extracts a string or integer id from a line that is JSON but
// not a usable envelope.
func recoverID(line []byte) mcp.RequestId {
	var partial struct {
		ID any `json:"id"`
	}
	if json.Unmarshal(line, &partial) != nil {
		return mcp.NewRequestId(nil)
	}
	switch v := partial.ID.(type) {
	case string:
		return mcp.NewRequestId(v)
	case float64:
		if v == float64(int64(v)) {
			return mcp.NewRequestId(int64(v))
		}
	}
	return mcp.NewRequestId(nil)
}

// trackProcessing marks the server as processing while a tool handler runs.
func (s *Server) trackProcessing(next mcpserver.ToolHandlerFunc) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		s.beginWork()
		defer s.endWork()
		return next(ctx, request)
	}
}

func (s *Server) beginWork() {
	if s.inFlight.Add(1) == 1 {
		s.state.CompareAndSwap(int32(StateReady), int32(StateProcessing))
	}
}

func (s *Server) endWork() {
	if s.inFlight.Add(-1) == 0 {
		s.state.CompareAndSwap(int32(StateProcessing), int32(StateReady))
	}
}

func (s *Server) sendError(id mcp.RequestId, code int, message string) {
	data, err := json.Marshal(mcp.NewJSONRPCError(id, code, message, nil))
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to marshal response")
		return
	}
	if _, err := s.out.Write(append(data, '\n')); err != nil {
		s.logger.Error().Err(err).Msg("failed to write response")
	}
}

// lockedWriter serializes whole-message writes from the screen and from
// mcp-go onto one stream.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// errorLog routes mcp-go's error logger into the diagnostics logger.
type errorLog struct {
	logger *common.Logger
}

func (e errorLog) Write(p []byte) (int, error) {
	e.logger.Warn().Str("source", "mcp-go").Msg(strings.TrimSpace(string(p)))
	return len(p), nil
}

package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/doc-mcp-server/internal/common"
)

// Dispatcher routes calls through the registry. It never returns an error:
// every outcome, including handler panics, becomes a Result.
type Dispatcher struct {
	registry *Registry
	logger   *common.Logger
}

// NewDispatcher creates a dispatcher over a registry.
func NewDispatcher(registry *Registry, logger *common.Logger) *Dispatcher {
	return &Dispatcher{registry: registry, logger: logger}
}

// Registry returns the registry the dispatcher routes through.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch resolves, validates and runs one call.
func (d *Dispatcher) Dispatch(ctx context.Context, call Call) Result {
	tool, ok := d.registry.Resolve(call.Name)
	if !ok {
		d.logger.Warn().Str("tool", call.Name).Msg("unknown tool requested")
		return Fail(KindToolNotFound, fmt.Sprintf("unknown tool: %s", call.Name))
	}

	args := call.Arguments
	if args == nil {
		args = Arguments{}
	}

	if f := Validate(tool.Definition, args); f != nil {
		d.logger.Warn().Str("tool", call.Name).Str("error", f.Message).Msg("tool arguments rejected")
		return Result{Failure: f}
	}

	start := time.Now()
	payload, err := d.invoke(ctx, tool, args)
	duration := time.Since(start)

	if err != nil {
		f := Normalize(err)
		d.logger.Error().
			Str("tool", call.Name).
			Str("kind", string(f.Kind)).
			Int64("duration_ms", duration.Milliseconds()).
			Str("error", f.Message).
			Msg("tool call failed")
		return Result{Failure: &f}
	}

	d.logger.Debug().
		Str("tool", call.Name).
		Int64("duration_ms", duration.Milliseconds()).
		Int("payload_bytes", len(payload)).
		Msg("tool call complete")
	return Success(payload)
}

// invoke runs the handler, converting a panic into an internal error.
func (d *Dispatcher) invoke(ctx context.Context, tool Tool, args Arguments) (payload string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = NewInternalError(nil, "tool %s panicked: %v", tool.Name, rec)
		}
	}()
	return tool.Handler(ctx, args)
}

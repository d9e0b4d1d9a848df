package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ToolError is a classified failure raised by a handler or collaborator.
type ToolError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *ToolError) Error() string {
	if e == nil {
		return ""
	}
	msg := strings.TrimSpace(e.Message)
	if msg == "" && e.Cause != nil {
		return e.Cause.Error()
	}
	return msg
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *ToolError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewUpstreamError reports a failed outbound call.
func NewUpstreamError(cause error, format string, args ...any) *ToolError {
	return &ToolError{Kind: KindUpstream, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// NewInternalError reports a handler failure unrelated to upstream APIs.
func NewInternalError(cause error, format string, args ...any) *ToolError {
	return &ToolError{Kind: KindInternal, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Normalize maps any error raised below the Dispatcher onto a Failure.
//
// A *ToolError anywhere in the chain keeps its kind. A deadline is an
// upstream timeout. Everything else is an internal error carrying the
// error's text.
func Normalize(err error) Failure {
	if err == nil {
		return Failure{Kind: KindInternal, Message: "unknown error"}
	}

	var te *ToolError
	if errors.As(err, &te) {
		kind := te.Kind
		if kind == "" {
			kind = KindInternal
		}
		return Failure{Kind: kind, Message: err.Error()}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Failure{Kind: KindUpstream, Message: err.Error()}
	}

	return Failure{Kind: KindInternal, Message: err.Error()}
}

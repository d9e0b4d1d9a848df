package tools

// ErrorKind classifies a failed call.
type ErrorKind string

const (
	// KindInvalidParams means a required argument was missing, blank or mistyped.
	KindInvalidParams ErrorKind = "invalid_params"
	// KindToolNotFound means the call named no registered tool.
	KindToolNotFound ErrorKind = "tool_not_found"
	// KindInternal covers handler failures that are not upstream failures.
	KindInternal ErrorKind = "internal_error"
	// KindUpstream means an outbound API answered non-2xx or timed out.
	KindUpstream ErrorKind = "upstream_error"
)

// Failure is the error arm of a Result.
type Failure struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// Result is the outcome of a dispatched call: exactly one of Payload (on
// success) or Failure is meaningful.
type Result struct {
	Payload string
	Failure *Failure
}

// Success builds a successful Result.
func Success(payload string) Result {
	return Result{Payload: payload}
}

// Fail builds a failed Result.
func Fail(kind ErrorKind, message string) Result {
	return Result{Failure: &Failure{Kind: kind, Message: message}}
}

// OK reports whether the call succeeded.
func (r Result) OK() bool {
	return r.Failure == nil
}

// Kind returns the failure kind, or "" on success.
func (r Result) Kind() ErrorKind {
	if r.Failure == nil {
		return ""
	}
	return r.Failure.Kind
}

package agent

import (
	"errors"
	"fmt"

	"github.com/spindleworks/spindle/tools"
)

// ErrorKind classifies a failed run.
type ErrorKind int

const (
	// KindConfiguration covers construction-time faults: missing
	// credential, unknown model price. Never retried.
	KindConfiguration ErrorKind = iota
	// KindTransport wraps a network or provider fault after the
	// transport retry budget is exhausted.
	KindTransport
	// KindToolNotFound reports a tool call naming an unregistered tool.
	KindToolNotFound
	// KindArgumentParse reports tool-call arguments that are not JSON.
	KindArgumentParse
	// KindValidation reports tool arguments or a final result that
	// fail their schema, after any retry budgets are spent.
	KindValidation
	// KindResponseParse reports final content that could not be parsed
	// when a JSON shape was required.
	KindResponseParse
	// KindToolExecution reports a tool handler failure after its
	// per-run retry budget is spent.
	KindToolExecution
)

// String returns a human-readable kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindTransport:
		return "transport"
	case KindToolNotFound:
		return "tool_not_found"
	case KindArgumentParse:
		return "argument_parse"
	case KindValidation:
		return "validation"
	case KindResponseParse:
		return "response_parse"
	case KindToolExecution:
		return "tool_execution"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is the single wrapping error surfaced to callers. The cause
// chain under Err explains the root fault.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the classification from a run error.
func KindOf(err error) (ErrorKind, bool) {
	var agentErr *Error
	if errors.As(err, &agentErr) {
		return agentErr.Kind, true
	}
	return 0, false
}

// ModelRetry re-exports the tool package's retry signal so result
// validators can raise it without importing tools directly.
type ModelRetry = tools.ModelRetry

// Retry builds a ModelRetry from a result validator.
var Retry = tools.Retry

func newError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

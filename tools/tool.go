// Package tools provides the tool registry and executor for function
// calling: named callables with declared parameter schemas that the
// model may invoke during a run.
//
// Information Hiding:
// - Argument parsing and validation order
// - Per-run retry budget accounting
package tools

import (
	"context"
	"fmt"
	"sync"

	"github.com/spindleworks/spindle/schema"
)

// DefaultToolRetries is the per-run retry budget assigned to tools
// that do not specify one.
const DefaultToolRetries = 1

// Handler executes a tool call with validated arguments.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Tool is a named callable the model may invoke. MaxRetries is the
// per-run budget of model-assisted retries granted when the handler
// fails; it is consumed across a run and reset at the start of the
// next top-level call. RetryInvalidArgs opts argument-validation
// failures into the same retry path instead of failing the run.
type Tool struct {
	Name             string
	Description      string
	Params           *schema.Schema
	Handler          Handler
	MaxRetries       int
	RetryInvalidArgs bool

	mu          sync.Mutex
	retriesLeft int
}

// ResetBudget restores the retry budget to its configured maximum.
func (t *Tool) ResetBudget() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.retriesLeft = t.MaxRetries
}

// consumeRetry takes one retry from the budget, reporting whether one
// was available.
func (t *Tool) consumeRetry() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.retriesLeft <= 0 {
		return false
	}
	t.retriesLeft--
	return true
}

// ModelRetry signals that the model should be re-prompted with the
// same user input rather than the run failing. It is a control signal,
// not a user-facing error: the orchestrator absorbs it into a bounded
// retry, or converts it into a fatal error once the budget runs out.
type ModelRetry struct {
	Message string
	Err     error
}

func (e *ModelRetry) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model retry: %s: %v", e.Message, e.Err)
	}
	return "model retry: " + e.Message
}

func (e *ModelRetry) Unwrap() error {
	return e.Err
}

// Retry builds a ModelRetry with a message for the model. Handlers
// return it to ask for another attempt with different arguments.
func Retry(format string, args ...any) *ModelRetry {
	return &ModelRetry{Message: fmt.Sprintf(format, args...)}
}

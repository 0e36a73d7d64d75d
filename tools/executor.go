package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/spindleworks/spindle/llm"
	"github.com/spindleworks/spindle/schema"
)

// ToolNotFoundError reports a tool call naming an unregistered tool.
// Always fatal: an unknown name is an integration bug, not a transient
// fault, so it never consumes retry budget.
type ToolNotFoundError struct {
	Name string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("tool not found: %q", e.Name)
}

// ArgumentParseError reports a tool-call argument payload that is not
// valid JSON. Fatal.
type ArgumentParseError struct {
	Tool string
	Err  error
}

func (e *ArgumentParseError) Error() string {
	return fmt.Sprintf("tool %q: failed to parse arguments: %v", e.Tool, e.Err)
}

func (e *ArgumentParseError) Unwrap() error {
	return e.Err
}

// Executor runs tool calls against a registry.
type Executor struct {
	registry *Registry
}

// NewExecutor creates an executor over the given registry.
func NewExecutor(registry *Registry) *Executor {
	return &Executor{registry: registry}
}

// Execute runs one tool call and returns the serialized result content
// for the tool-role message.
//
// Failure ladder: unknown tool and unparseable arguments are fatal;
// argument validation is fatal unless the tool opted into retry; a
// handler error becomes a *ModelRetry while the tool's per-run budget
// lasts, then propagates as-is.
func (e *Executor) Execute(ctx context.Context, call llm.ToolCall) (string, error) {
	tool, ok := e.registry.Get(call.Name)
	if !ok {
		return "", &ToolNotFoundError{Name: call.Name}
	}

	args := make(map[string]any)
	if len(call.Arguments) > 0 {
		if err := json.Unmarshal(call.Arguments, &args); err != nil {
			return "", &ArgumentParseError{Tool: call.Name, Err: err}
		}
	}

	if tool.Params != nil {
		validated, err := schema.Validate(tool.Params, args)
		if err != nil {
			if tool.RetryInvalidArgs && tool.consumeRetry() {
				return "", &ModelRetry{
					Message: fmt.Sprintf("arguments for tool %q were invalid, adjust and retry", call.Name),
					Err:     err,
				}
			}
			return "", fmt.Errorf("tool %q: invalid arguments: %w", call.Name, err)
		}
		if m, ok := validated.(map[string]any); ok {
			args = m
		}
	}

	result, err := tool.Handler(ctx, args)
	if err != nil {
		if retry, ok := err.(*ModelRetry); ok {
			if tool.consumeRetry() {
				return "", retry
			}
			return "", fmt.Errorf("tool %q: retries exhausted: %w", call.Name, retry)
		}
		if tool.consumeRetry() {
			return "", &ModelRetry{
				Message: fmt.Sprintf("tool %q failed, try a different approach", call.Name),
				Err:     err,
			}
		}
		return "", fmt.Errorf("tool %q failed: %w", call.Name, err)
	}

	return serializeResult(result)
}

// ExecuteAll runs a batch of tool calls concurrently and reassembles
// the results in the original call order, so the transcript stays
// deterministic regardless of completion order.
func (e *Executor) ExecuteAll(ctx context.Context, calls []llm.ToolCall) ([]llm.ChatMessage, error) {
	results := make([]string, len(calls))

	g, ctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			content, err := e.Execute(ctx, call)
			if err != nil {
				return err
			}
			results[i] = content
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	messages := make([]llm.ChatMessage, len(calls))
	for i, call := range calls {
		messages[i] = llm.ToolResultMessage(call.ID, results[i])
		messages[i].Name = call.Name
	}
	return messages, nil
}

// serializeResult turns a handler's return value into message content.
// Strings pass through; everything else is JSON-encoded.
func serializeResult(result any) (string, error) {
	switch v := result.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("failed to serialize tool result: %w", err)
		}
		return string(encoded), nil
	}
}

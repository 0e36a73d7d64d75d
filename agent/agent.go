// Package agent implements the request-orchestration loop: one call
// that sends a prompt plus history to a model, dispatches any tool
// calls the model requests, validates structured output against a
// declared schema, and accounts usage cost.
//
// Information Hiding:
// - Transcript assembly and the dispatch/tool/validate state machine
// - Transport retry with backoff
// - ModelRetry absorption and conversion
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/spindleworks/spindle/cost"
	"github.com/spindleworks/spindle/llm"
	"github.com/spindleworks/spindle/memory"
	"github.com/spindleworks/spindle/schema"
	"github.com/spindleworks/spindle/storage"
	"github.com/spindleworks/spindle/tools"
)

// SystemPromptFunc produces a dynamic system turn per run. An empty
// result is skipped.
type SystemPromptFunc func(ctx context.Context) string

// ResultValidator inspects the validated result and returns a possibly
// transformed value. Returning a *ModelRetry asks for another run
// attempt; any other error is fatal.
type ResultValidator func(ctx context.Context, value any) (any, error)

// RunOptions adjusts a single run.
type RunOptions struct {
	// MessageHistory is inserted between the system turns and the new
	// user turn.
	MessageHistory []llm.ChatMessage

	// Model overrides the configured model for this run only.
	Model string
}

// RunResult is a completed run: the transcript exchanged, the
// validated result value, and the cumulative cost at completion.
type RunResult struct {
	Messages []llm.ChatMessage
	Data     any
	Cost     cost.Totals
}

// Agent drives the orchestration loop. Construct with New; the zero
// value is not usable.
//
// A single Agent may serve many sequential runs; shared state (memory,
// cost totals, tool budgets) is internally synchronized, but callers
// wanting deterministic memory ordering should issue runs from one
// goroutine at a time.
type Agent struct {
	provider      llm.Provider
	model         string
	temperature   float32
	maxTokens     int
	retries       int
	resultRetries int
	backoff       time.Duration
	resultSchema  *schema.Schema

	registry   *tools.Registry
	executor   *tools.Executor
	memory     *memory.Memory
	accountant *cost.Accountant
	ledger     storage.Ledger
	logger     zerolog.Logger

	mu            sync.Mutex
	staticPrompts []string
	promptFuncs   []SystemPromptFunc
	validators    []ResultValidator
	lastRun       []llm.ChatMessage
}

// New constructs an Agent. The credential is resolved synchronously:
// explicit Config.APIKey, then the process-wide default holder, then
// the provider's environment variable. All three missing is a fatal
// configuration error and no network call is attempted.
func New(cfg Config) (*Agent, error) {
	provider := cfg.Transport
	if provider == nil {
		apiKey, err := llm.ResolveAPIKey(cfg.Provider, cfg.APIKey)
		if err != nil {
			return nil, newError(KindConfiguration, "missing API credential", err)
		}
		provider, err = llm.NewProvider(cfg.Provider, apiKey)
		if err != nil {
			return nil, newError(KindConfiguration, "failed to create provider", err)
		}
	}

	model := cfg.Model
	if model == "" {
		model = cfg.Provider.DefaultModel()
	}
	if model == "" {
		return nil, newError(KindConfiguration, "no model configured", nil)
	}

	registry := tools.NewRegistry()
	for _, tool := range cfg.Tools {
		registry.Register(tool)
	}

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	a := &Agent{
		provider:      provider,
		model:         model,
		temperature:   cfg.temperature(),
		maxTokens:     cfg.MaxTokens,
		retries:       cfg.retries(),
		resultRetries: cfg.resultRetries(),
		backoff:       cfg.retryBackoff(),
		resultSchema:  cfg.ResultSchema,
		registry:      registry,
		executor:      tools.NewExecutor(registry),
		memory:        memory.New(cfg.memoryMessages(), !cfg.DropSystemFromMemory),
		accountant:    cost.NewAccountant(),
		ledger:        cfg.Ledger,
		logger:        logger,
		staticPrompts: append([]string(nil), cfg.SystemPrompts...),
	}

	return a, nil
}

// Run executes one prompt to completion: dispatch, tool iteration,
// validation, memory and cost updates. It returns the validated result
// or a single classified error whose cause chain explains the fault.
func (a *Agent) Run(ctx context.Context, prompt string, opts *RunOptions) (*RunResult, error) {
	if opts == nil {
		opts = &RunOptions{}
	}
	model := a.model
	if opts.Model != "" {
		model = opts.Model
	}

	// Budgets reset once per top-level call, not per internal retry
	a.registry.ResetBudgets()

	var lastRetry *tools.ModelRetry
	for attempt := 1; attempt <= a.resultRetries; attempt++ {
		result, retry, err := a.attempt(ctx, prompt, opts, model)
		if err != nil {
			return nil, err
		}
		if retry == nil {
			return result, nil
		}

		lastRetry = retry
		a.logger.Debug().
			Int("attempt", attempt).
			Str("reason", retry.Message).
			Msg("model retry requested")
	}

	return nil, newError(KindValidation,
		fmt.Sprintf("retries exhausted after %d attempts", a.resultRetries), lastRetry)
}

// attempt performs one full pass of the run loop. A non-nil retry
// return asks the caller to re-run from scratch with the same prompt.
func (a *Agent) attempt(ctx context.Context, prompt string, opts *RunOptions, model string) (result *RunResult, retry *tools.ModelRetry, err error) {
	transcript := a.buildTranscript(ctx, prompt, opts)
	defer func() { a.setLastRun(transcript) }()

	for {
		resp, err := a.complete(ctx, model, transcript)
		if err != nil {
			return nil, nil, err
		}

		if resp.Kind() == llm.ResponseToolCalls {
			transcript = append(transcript, resp.Message)

			a.logger.Debug().
				Int("calls", len(resp.Message.ToolCalls)).
				Msg("executing tool batch")
			results, err := a.executor.ExecuteAll(ctx, resp.Message.ToolCalls)
			if err != nil {
				if mr, ok := err.(*tools.ModelRetry); ok {
					return nil, mr, nil
				}
				return nil, nil, classifyToolError(err)
			}

			transcript = append(transcript, results...)
			continue
		}

		// Plain content: account cost, then validate
		content := resp.Message.Content
		if resp.Usage != nil {
			breakdown, err := a.accountant.Add(model, *resp.Usage)
			if err != nil {
				return nil, nil, newError(KindConfiguration, "cost lookup failed", err)
			}
			a.recordRun(ctx, breakdown, *resp.Usage)
		}

		value := any(content)
		if a.resultSchema != nil {
			validated, err := schema.ValidateResponse(a.resultSchema, content)
			if err != nil {
				if a.hasValidators() {
					return nil, &tools.ModelRetry{Message: "response failed schema validation", Err: err}, nil
				}
				var parseErr *schema.ParseError
				if errors.As(err, &parseErr) {
					return nil, nil, newError(KindResponseParse, "response is not parseable", err)
				}
				return nil, nil, newError(KindValidation, "response failed schema validation", err)
			}
			value = validated
		}

		for _, validator := range a.resultValidators() {
			transformed, err := validator(ctx, value)
			if err != nil {
				if mr, ok := err.(*tools.ModelRetry); ok {
					return nil, mr, nil
				}
				return nil, nil, newError(KindValidation, "result validator failed", err)
			}
			value = transformed
		}

		transcript = append(transcript, resp.Message)

		if err := a.memory.Add(llm.UserMessage(prompt), llm.AssistantMessage(content)); err != nil {
			a.logger.Warn().Err(err).Msg("failed to update memory")
		}

		messages := make([]llm.ChatMessage, len(transcript))
		copy(messages, transcript)

		return &RunResult{
			Messages: messages,
			Data:     value,
			Cost:     a.accountant.Totals(),
		}, nil, nil
	}
}

// complete is the transport retry loop. Attempt n waits backoff times
// (n-1) first. An empty completion counts as a transport failure.
func (a *Agent) complete(ctx context.Context, model string, messages []llm.ChatMessage) (llm.CompletionResponse, error) {
	req := llm.CompletionRequest{
		Model:       model,
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
		Messages:    messages,
		ToolChoice:  llm.ToolChoiceNone,
	}
	if a.registry.Len() > 0 {
		req.Tools = a.registry.Definitions()
		req.ToolChoice = llm.ToolChoiceAuto
	}

	var lastErr error
	for attempt := 1; attempt <= a.retries; attempt++ {
		if attempt > 1 {
			wait := a.backoff * time.Duration(attempt-1)
			a.logger.Debug().
				Int("attempt", attempt).
				Dur("wait", wait).
				Msg("retrying transport")
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return llm.CompletionResponse{}, newError(KindTransport, "run cancelled", ctx.Err())
			}
		}

		a.logger.Debug().
			Str("model", model).
			Int("messages", len(messages)).
			Msg("dispatching completion")
		resp, err := a.provider.CreateCompletion(ctx, req)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.Kind() == llm.ResponseEmpty {
			lastErr = errors.New("provider returned an empty completion")
			continue
		}
		return resp, nil
	}

	return llm.CompletionResponse{}, newError(KindTransport,
		fmt.Sprintf("completion failed after %d attempts", a.retries), lastErr)
}

// RunStream streams raw text fragments into chunks as they arrive.
// It is a single-pass, forward-only pass-through for interactive
// display: no tool dispatch, no validation, no cost accounting, no
// retry. Tool-call deltas are not emitted. The channel is not closed
// by this method; the caller owns it.
func (a *Agent) RunStream(ctx context.Context, prompt string, opts *RunOptions, chunks chan<- string) (*llm.TokenUsage, error) {
	if opts == nil {
		opts = &RunOptions{}
	}
	model := a.model
	if opts.Model != "" {
		model = opts.Model
	}

	req := llm.CompletionRequest{
		Model:       model,
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
		Messages:    a.buildTranscript(ctx, prompt, opts),
		ToolChoice:  llm.ToolChoiceNone,
	}

	usage, err := a.provider.StreamCompletion(ctx, req, chunks)
	if err != nil {
		return usage, newError(KindTransport, "streaming completion failed", err)
	}
	return usage, nil
}

// buildTranscript assembles the outbound message list: static system
// prompts, then dynamic ones in registration order, then the memory
// window, then caller-supplied history, then the new user turn.
func (a *Agent) buildTranscript(ctx context.Context, prompt string, opts *RunOptions) []llm.ChatMessage {
	a.mu.Lock()
	statics := append([]string(nil), a.staticPrompts...)
	funcs := append([]SystemPromptFunc(nil), a.promptFuncs...)
	a.mu.Unlock()

	var transcript []llm.ChatMessage
	for _, text := range statics {
		transcript = append(transcript, llm.SystemMessage(text))
	}
	for _, fn := range funcs {
		if text := fn(ctx); text != "" {
			transcript = append(transcript, llm.SystemMessage(text))
		}
	}

	transcript = append(transcript, a.memory.NonSystemMessages()...)
	transcript = append(transcript, opts.MessageHistory...)
	transcript = append(transcript, llm.UserMessage(prompt))
	return transcript
}

// recordRun writes one usage record to the ledger, when configured.
// Ledger faults are logged, never fatal to the run.
func (a *Agent) recordRun(ctx context.Context, breakdown cost.Breakdown, usage llm.TokenUsage) {
	if a.ledger == nil {
		return
	}

	record := storage.RunRecord{
		Provider:         a.provider.Name(),
		Model:            breakdown.Model,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.TotalTokens,
		CachedTokens:     usage.CachedTokens,
		InputCost:        breakdown.InputCost,
		OutputCost:       breakdown.OutputCost,
		TotalCost:        breakdown.TotalCost,
	}
	if err := a.ledger.Record(ctx, record); err != nil {
		a.logger.Warn().Err(err).Msg("failed to record usage")
	}
}

// AddSystemPrompt appends a static system prompt.
func (a *Agent) AddSystemPrompt(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.staticPrompts = append(a.staticPrompts, text)
}

// AddSystemPromptFunc appends a dynamic system prompt, invoked once
// per run after the static prompts.
func (a *Agent) AddSystemPromptFunc(fn SystemPromptFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.promptFuncs = append(a.promptFuncs, fn)
}

// AddResultValidator appends a result validator, run in registration
// order after schema validation.
func (a *Agent) AddResultValidator(fn ResultValidator) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.validators = append(a.validators, fn)
}

// RegisterTool adds a tool the model may invoke. Re-registering a
// name overwrites the previous tool.
func (a *Agent) RegisterTool(tool *tools.Tool) {
	a.registry.Register(tool)
}

// LastRunMessages returns the most recent attempt's transcript, even
// after a failed run. Best-effort diagnostics, not part of the result
// contract.
func (a *Agent) LastRunMessages() []llm.ChatMessage {
	a.mu.Lock()
	defer a.mu.Unlock()
	result := make([]llm.ChatMessage, len(a.lastRun))
	copy(result, a.lastRun)
	return result
}

// Cost returns the cumulative usage totals for this Agent's lifetime.
func (a *Agent) Cost() cost.Totals {
	return a.accountant.Totals()
}

// ClearMemory resets cross-run memory, optionally keeping pinned
// system turns.
func (a *Agent) ClearMemory(keepSystemPrompt bool) {
	a.memory.Clear(keepSystemPrompt)
}

func (a *Agent) setLastRun(transcript []llm.ChatMessage) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastRun = append([]llm.ChatMessage(nil), transcript...)
}

func (a *Agent) hasValidators() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.validators) > 0
}

func (a *Agent) resultValidators() []ResultValidator {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]ResultValidator(nil), a.validators...)
}

// classifyToolError maps executor failures onto the run error taxonomy.
func classifyToolError(err error) *Error {
	var notFound *tools.ToolNotFoundError
	if errors.As(err, &notFound) {
		return newError(KindToolNotFound, notFound.Name, err)
	}

	var parseErr *tools.ArgumentParseError
	if errors.As(err, &parseErr) {
		return newError(KindArgumentParse, parseErr.Tool, err)
	}

	var validationErr *schema.ValidationError
	if errors.As(err, &validationErr) {
		return newError(KindValidation, "tool arguments failed validation", err)
	}

	return newError(KindToolExecution, "tool execution failed", err)
}

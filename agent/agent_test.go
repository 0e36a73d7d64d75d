package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/spindleworks/spindle/llm"
	"github.com/spindleworks/spindle/schema"
	"github.com/spindleworks/spindle/storage"
	"github.com/spindleworks/spindle/tools"
)

// mockProvider scripts a sequence of completion replies. Once the
// script runs out, the last reply repeats.
type mockProvider struct {
	mu       sync.Mutex
	replies  []mockReply
	requests []llm.CompletionRequest

	streamChunks []string
	streamUsage  *llm.TokenUsage
}

type mockReply struct {
	resp llm.CompletionResponse
	err  error
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) CreateCompletion(_ context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	idx := len(m.requests) - 1
	if idx >= len(m.replies) {
		idx = len(m.replies) - 1
	}
	reply := m.replies[idx]
	return reply.resp, reply.err
}

func (m *mockProvider) StreamCompletion(ctx context.Context, _ llm.CompletionRequest, chunks chan<- string) (*llm.TokenUsage, error) {
	for _, chunk := range m.streamChunks {
		select {
		case chunks <- chunk:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.streamUsage, nil
}

func (m *mockProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

var _ llm.Provider = (*mockProvider)(nil)

func textReply(content string) mockReply {
	return mockReply{resp: llm.CompletionResponse{
		Message: llm.AssistantMessage(content),
		Usage:   &llm.TokenUsage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150},
	}}
}

func toolCallReply(id, name, args string) mockReply {
	return mockReply{resp: llm.CompletionResponse{
		Message: llm.ChatMessage{
			Role: llm.RoleAssistant,
			ToolCalls: []llm.ToolCall{
				{ID: id, Name: name, Arguments: json.RawMessage(args)},
			},
		},
		Usage: &llm.TokenUsage{PromptTokens: 80, CompletionTokens: 20, TotalTokens: 100},
	}}
}

func newTestAgent(t *testing.T, provider *mockProvider, cfg Config) *Agent {
	t.Helper()
	cfg.Transport = provider
	cfg.Model = llm.ModelOpenAIGPT4o
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = time.Millisecond
	}
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create agent: %v", err)
	}
	return a
}

func echoTool() *tools.Tool {
	return &tools.Tool{
		Name:        "echo",
		Description: "Echoes the input text",
		Params: schema.Object(
			schema.F("text", schema.String()),
		),
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			text, _ := args["text"].(string)
			return "Echo: " + text, nil
		},
	}
}

func TestRunPlainContent(t *testing.T) {
	provider := &mockProvider{replies: []mockReply{textReply("hello back")}}
	a := newTestAgent(t, provider, Config{SystemPrompts: []string{"be brief"}})

	result, err := a.Run(context.Background(), "hello", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Data != "hello back" {
		t.Errorf("expected data %q, got %v", "hello back", result.Data)
	}

	wantRoles := []string{llm.RoleSystem, llm.RoleUser, llm.RoleAssistant}
	if len(result.Messages) != len(wantRoles) {
		t.Fatalf("expected %d messages, got %d", len(wantRoles), len(result.Messages))
	}
	for i, role := range wantRoles {
		if result.Messages[i].Role != role {
			t.Errorf("message %d: expected role %q, got %q", i, role, result.Messages[i].Role)
		}
	}
}

func TestRunToolRoundTrip(t *testing.T) {
	provider := &mockProvider{replies: []mockReply{
		toolCallReply("call-1", "echo", `{"text":"hi"}`),
		textReply("Echo: hi"),
	}}
	a := newTestAgent(t, provider, Config{
		SystemPrompts: []string{"use the echo tool"},
		Tools:         []*tools.Tool{echoTool()},
	})

	result, err := a.Run(context.Background(), "use echo with hi", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Data != "Echo: hi" {
		t.Errorf("expected data %q, got %v", "Echo: hi", result.Data)
	}

	wantRoles := []string{
		llm.RoleSystem,
		llm.RoleUser,
		llm.RoleAssistant, // tool-call turn
		llm.RoleTool,
		llm.RoleAssistant, // final answer
	}
	if len(result.Messages) != len(wantRoles) {
		t.Fatalf("expected %d messages, got %d: %v", len(wantRoles), len(result.Messages), result.Messages)
	}
	for i, role := range wantRoles {
		if result.Messages[i].Role != role {
			t.Errorf("message %d: expected role %q, got %q", i, role, result.Messages[i].Role)
		}
	}

	toolTurn := result.Messages[3]
	if toolTurn.Content != "Echo: hi" || toolTurn.ToolCallID != "call-1" {
		t.Errorf("unexpected tool turn: %+v", toolTurn)
	}

	// Second dispatch must carry the tool descriptors with auto choice
	if provider.requests[0].ToolChoice != llm.ToolChoiceAuto {
		t.Errorf("expected auto tool choice, got %q", provider.requests[0].ToolChoice)
	}
	if len(provider.requests[0].Tools) != 1 || provider.requests[0].Tools[0].Name != "echo" {
		t.Errorf("expected echo tool advertised, got %v", provider.requests[0].Tools)
	}
}

func TestRunTransportRetryExhaustion(t *testing.T) {
	provider := &mockProvider{replies: []mockReply{
		{err: fmt.Errorf("connection refused")},
	}}
	a := newTestAgent(t, provider, Config{Retries: 3})

	_, err := a.Run(context.Background(), "hello", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if kind, ok := KindOf(err); !ok || kind != KindTransport {
		t.Errorf("expected transport error, got %v", err)
	}
	if provider.callCount() != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", provider.callCount())
	}
}

func TestRunEmptyCompletionIsTransportFailure(t *testing.T) {
	provider := &mockProvider{replies: []mockReply{
		{resp: llm.CompletionResponse{Message: llm.ChatMessage{Role: llm.RoleAssistant}}},
	}}
	a := newTestAgent(t, provider, Config{Retries: 2})

	_, err := a.Run(context.Background(), "hello", nil)
	if kind, ok := KindOf(err); !ok || kind != KindTransport {
		t.Errorf("expected transport error for empty completion, got %v", err)
	}
	if provider.callCount() != 2 {
		t.Errorf("expected 2 attempts, got %d", provider.callCount())
	}
}

func TestRunToolNotFoundFatal(t *testing.T) {
	provider := &mockProvider{replies: []mockReply{
		toolCallReply("call-1", "missing", `{}`),
		textReply("never reached"),
	}}
	a := newTestAgent(t, provider, Config{
		Tools:         []*tools.Tool{echoTool()},
		ResultRetries: 5,
	})

	_, err := a.Run(context.Background(), "hello", nil)
	if kind, ok := KindOf(err); !ok || kind != KindToolNotFound {
		t.Fatalf("expected tool-not-found error, got %v", err)
	}

	// Fatal on the first dispatch: no retry consumed
	if provider.callCount() != 1 {
		t.Errorf("expected 1 dispatch, got %d", provider.callCount())
	}
}

func TestRunResultRetriesBoundedByModelRetry(t *testing.T) {
	provider := &mockProvider{replies: []mockReply{textReply("draft")}}
	a := newTestAgent(t, provider, Config{ResultRetries: 3})

	attempts := 0
	a.AddResultValidator(func(ctx context.Context, value any) (any, error) {
		attempts++
		return nil, Retry("never good enough")
	})

	_, err := a.Run(context.Background(), "hello", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if kind, ok := KindOf(err); !ok || kind != KindValidation {
		t.Errorf("expected validation error, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", attempts)
	}
}

func TestRunResultValidatorTransformsValue(t *testing.T) {
	provider := &mockProvider{replies: []mockReply{textReply("  padded  ")}}
	a := newTestAgent(t, provider, Config{})

	a.AddResultValidator(func(ctx context.Context, value any) (any, error) {
		return "trimmed", nil
	})

	result, err := a.Run(context.Background(), "hello", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Data != "trimmed" {
		t.Errorf("expected transformed value, got %v", result.Data)
	}
}

func TestRunStructuredOutput(t *testing.T) {
	provider := &mockProvider{replies: []mockReply{
		textReply(`{"city":"London","country":"UK"}`),
	}}
	a := newTestAgent(t, provider, Config{
		ResultSchema: schema.Object(
			schema.F("city", schema.String()),
			schema.F("country", schema.String()),
		),
	})

	result, err := a.Run(context.Background(), "where is big ben", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	obj, ok := result.Data.(map[string]any)
	if !ok {
		t.Fatalf("expected object result, got %T", result.Data)
	}
	if obj["city"] != "London" {
		t.Errorf("expected city London, got %v", obj["city"])
	}
}

func TestRunSchemaMismatchFatalWithoutValidators(t *testing.T) {
	provider := &mockProvider{replies: []mockReply{
		textReply(`{"city": 42}`),
	}}
	a := newTestAgent(t, provider, Config{
		ResultSchema: schema.Object(schema.F("city", schema.String())),
	})

	_, err := a.Run(context.Background(), "hello", nil)
	if kind, ok := KindOf(err); !ok || kind != KindValidation {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestRunCostAccumulatesMonotonically(t *testing.T) {
	provider := &mockProvider{replies: []mockReply{textReply("answer")}}
	ledger := storage.NewInMemoryLedger()
	a := newTestAgent(t, provider, Config{Ledger: ledger})

	var prev float64
	for i := 0; i < 3; i++ {
		result, err := a.Run(context.Background(), "hello", nil)
		if err != nil {
			t.Fatalf("run %d: unexpected error: %v", i, err)
		}
		if result.Cost.TotalCost <= prev {
			t.Errorf("run %d: expected cost to grow, got %f after %f", i, result.Cost.TotalCost, prev)
		}
		prev = result.Cost.TotalCost
	}

	totals := a.Cost()
	if totals.PromptTokens != 300 || totals.CompletionTokens != 150 {
		t.Errorf("unexpected totals: %+v", totals)
	}

	ledgerTotals, err := ledger.Totals(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ledgerTotals.Runs != 3 {
		t.Errorf("expected 3 ledger records, got %d", ledgerTotals.Runs)
	}
}

func TestRunMemoryCarriesAcrossRuns(t *testing.T) {
	provider := &mockProvider{replies: []mockReply{textReply("first answer")}}
	a := newTestAgent(t, provider, Config{})

	if _, err := a.Run(context.Background(), "first question", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := a.Run(context.Background(), "second question", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	secondRequest := provider.requests[1]
	var contents []string
	for _, msg := range secondRequest.Messages {
		contents = append(contents, msg.Content)
	}

	want := []string{"first question", "first answer", "second question"}
	if len(contents) != len(want) {
		t.Fatalf("expected %d messages in second dispatch, got %v", len(want), contents)
	}
	for i, content := range want {
		if contents[i] != content {
			t.Errorf("position %d: expected %q, got %q", i, content, contents[i])
		}
	}
}

func TestRunDynamicSystemPrompt(t *testing.T) {
	provider := &mockProvider{replies: []mockReply{textReply("ok")}}
	a := newTestAgent(t, provider, Config{SystemPrompts: []string{"static"}})

	a.AddSystemPromptFunc(func(ctx context.Context) string { return "dynamic" })
	a.AddSystemPromptFunc(func(ctx context.Context) string { return "" }) // skipped

	if _, err := a.Run(context.Background(), "hello", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	messages := provider.requests[0].Messages
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %v", messages)
	}
	if messages[0].Content != "static" || messages[1].Content != "dynamic" {
		t.Errorf("expected static then dynamic system turns, got %v", messages)
	}
}

func TestRunMessageHistoryInserted(t *testing.T) {
	provider := &mockProvider{replies: []mockReply{textReply("ok")}}
	a := newTestAgent(t, provider, Config{})

	history := []llm.ChatMessage{
		llm.UserMessage("earlier question"),
		llm.AssistantMessage("earlier answer"),
	}
	if _, err := a.Run(context.Background(), "now", &RunOptions{MessageHistory: history}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	messages := provider.requests[0].Messages
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %v", messages)
	}
	if messages[0].Content != "earlier question" || messages[2].Content != "now" {
		t.Errorf("expected history before the user turn, got %v", messages)
	}
}

func TestRunModelOverride(t *testing.T) {
	provider := &mockProvider{replies: []mockReply{textReply("ok")}}
	a := newTestAgent(t, provider, Config{})

	_, err := a.Run(context.Background(), "hello", &RunOptions{Model: llm.ModelOpenAIGPT4oMini})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.requests[0].Model != llm.ModelOpenAIGPT4oMini {
		t.Errorf("expected per-run model override, got %q", provider.requests[0].Model)
	}
}

func TestLastRunMessagesAfterFailure(t *testing.T) {
	provider := &mockProvider{replies: []mockReply{
		toolCallReply("call-1", "missing", `{}`),
	}}
	a := newTestAgent(t, provider, Config{Tools: []*tools.Tool{echoTool()}})

	if _, err := a.Run(context.Background(), "hello", nil); err == nil {
		t.Fatal("expected error")
	}

	messages := a.LastRunMessages()
	if len(messages) == 0 {
		t.Fatal("expected last run transcript after failure")
	}
	if messages[len(messages)-1].Role != llm.RoleAssistant {
		t.Errorf("expected trailing assistant tool-call turn, got %v", messages)
	}
}

func TestRunStream(t *testing.T) {
	provider := &mockProvider{
		streamChunks: []string{"hel", "lo ", "world"},
		streamUsage:  &llm.TokenUsage{PromptTokens: 10, CompletionTokens: 3, TotalTokens: 13},
	}
	a := newTestAgent(t, provider, Config{})

	chunks := make(chan string, 8)
	usage, err := a.RunStream(context.Background(), "hello", nil, chunks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	close(chunks)

	var full string
	for chunk := range chunks {
		full += chunk
	}
	if full != "hello world" {
		t.Errorf("expected %q, got %q", "hello world", full)
	}
	if usage == nil || usage.TotalTokens != 13 {
		t.Errorf("unexpected usage: %+v", usage)
	}

	// Streaming bypasses cost accounting
	if a.Cost().TotalCost != 0 {
		t.Errorf("expected no cost from streaming, got %+v", a.Cost())
	}
}

func TestNewMissingCredential(t *testing.T) {
	llm.ClearDefaultAPIKeys()
	t.Setenv("DEEPSEEK_API_KEY", "")

	_, err := New(Config{Provider: llm.ProviderDeepSeek})
	if err == nil {
		t.Fatal("expected configuration error")
	}
	if kind, ok := KindOf(err); !ok || kind != KindConfiguration {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestNewCredentialFromDefaultHolder(t *testing.T) {
	llm.ClearDefaultAPIKeys()
	t.Setenv("DEEPSEEK_API_KEY", "")
	llm.SetDefaultAPIKey(llm.ProviderDeepSeek, "sk-default")
	defer llm.ClearDefaultAPIKeys()

	a, err := New(Config{Provider: llm.ProviderDeepSeek})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a == nil {
		t.Fatal("expected agent")
	}
}

func TestBuilder(t *testing.T) {
	provider := &mockProvider{replies: []mockReply{textReply("built")}}

	a, err := agentFromBuilder(provider)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := a.Run(context.Background(), "hello", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Data != "built" {
		t.Errorf("expected built, got %v", result.Data)
	}
	if provider.requests[0].Temperature != 0.1 {
		t.Errorf("expected builder temperature, got %f", provider.requests[0].Temperature)
	}
}

func agentFromBuilder(provider *mockProvider) (*Agent, error) {
	return NewBuilder(llm.ProviderOpenAI).
		Model(llm.ModelOpenAIGPT4o).
		Temperature(0.1).
		SystemPrompt("be terse").
		Retries(2).
		RetryBackoff(time.Millisecond).
		Transport(provider).
		Build()
}

func TestRunToolModelRetryReRuns(t *testing.T) {
	// First attempt: tool fails and asks for a retry. Second attempt:
	// model answers directly.
	provider := &mockProvider{replies: []mockReply{
		toolCallReply("call-1", "flaky", `{}`),
		textReply("recovered"),
	}}

	flaky := &tools.Tool{
		Name:       "flaky",
		MaxRetries: 1,
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return nil, fmt.Errorf("boom")
		},
	}
	a := newTestAgent(t, provider, Config{
		Tools:         []*tools.Tool{flaky},
		ResultRetries: 2,
	})

	result, err := a.Run(context.Background(), "hello", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Data != "recovered" {
		t.Errorf("expected recovered answer, got %v", result.Data)
	}
	if provider.callCount() != 2 {
		t.Errorf("expected 2 dispatches, got %d", provider.callCount())
	}
}

// Package llm provides shared data models for LLM providers.
package llm

import "encoding/json"

// Message roles understood by the chat-completion protocol.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ChatMessage represents a chat message with role and content.
// Content is empty only when the message carries tool calls.
type ChatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`   // For assistant messages with tool calls
	ToolCallID string     `json:"tool_call_id,omitempty"` // For tool result messages
}

// ToolCall represents a tool call requested by the LLM.
// The argument payload is an opaque serialized string, conventionally JSON.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolDefinition defines a tool that the LLM can call.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// ToolChoice controls whether the model may invoke tools.
type ToolChoice string

const (
	ToolChoiceAuto ToolChoice = "auto"
	ToolChoiceNone ToolChoice = "none"
)

// SystemMessage creates a system message.
func SystemMessage(content string) ChatMessage {
	return ChatMessage{
		Role:    RoleSystem,
		Content: content,
	}
}

// UserMessage creates a user message.
func UserMessage(content string) ChatMessage {
	return ChatMessage{
		Role:    RoleUser,
		Content: content,
	}
}

// AssistantMessage creates an assistant message.
func AssistantMessage(content string) ChatMessage {
	return ChatMessage{
		Role:    RoleAssistant,
		Content: content,
	}
}

// ToolResultMessage creates a tool-result message linked to the
// tool call that produced it.
func ToolResultMessage(toolCallID, content string) ChatMessage {
	return ChatMessage{
		Role:       RoleTool,
		Content:    content,
		ToolCallID: toolCallID,
	}
}

// CompletionRequest is one chat-completion exchange with a provider.
// The request, not the provider, carries the model and sampling settings
// so a single client can serve per-call overrides.
type CompletionRequest struct {
	Model       string
	Temperature float32
	MaxTokens   int
	Messages    []ChatMessage
	Tools       []ToolDefinition
	ToolChoice  ToolChoice
}

// CompletionResponse holds the single completion choice and its usage record.
type CompletionResponse struct {
	Message ChatMessage
	Usage   *TokenUsage
}

// ResponseKind tags the shape of a completion response.
type ResponseKind int

const (
	ResponseEmpty ResponseKind = iota
	ResponseText
	ResponseToolCalls
)

// Kind classifies the response: tool invocation, plain text, or empty.
func (r CompletionResponse) Kind() ResponseKind {
	switch {
	case len(r.Message.ToolCalls) > 0:
		return ResponseToolCalls
	case r.Message.Content != "":
		return ResponseText
	default:
		return ResponseEmpty
	}
}

// TokenUsage contains token usage statistics for one exchange.
// CachedTokens is the cached sub-count within PromptTokens, when the
// provider reports one; it is billed at a discounted rate.
type TokenUsage struct {
	PromptTokens     uint32
	CompletionTokens uint32
	TotalTokens      uint32
	CachedTokens     uint32
}

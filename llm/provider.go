// Package llm provides LLM provider abstractions.
//
// LLM Provider interface - the abstract interface for LLM providers.
// Each provider implementation hides:
// - API client initialization and authentication
// - Request/response format conversion
// - Provider-specific error handling

package llm

import (
	"context"
)

// Provider is the transport boundary to a hosted chat-completion endpoint.
// Implementations hide provider-specific details while exposing a single
// consistent protocol; all backends speak the same request/response shape.
type Provider interface {
	// Name returns the provider name (for logging/debugging).
	Name() string

	// CreateCompletion sends one chat-completion request and returns the
	// single completion choice with its token-usage record.
	CreateCompletion(ctx context.Context, req CompletionRequest) (CompletionResponse, error)

	// StreamCompletion streams a chat completion, sending content-delta
	// fragments to the provided channel. Tool-call deltas are not emitted.
	// Returns token usage when the provider reports it on the final chunk.
	StreamCompletion(ctx context.Context, req CompletionRequest, chunks chan<- string) (*TokenUsage, error)
}

// DeepSeek Provider implementation using go-openai library.
//
// Information Hiding:
// - Uses OpenAI-compatible API with different base URL
// - Supports deepseek-chat and deepseek-reasoner models
// - Streaming via go-openai library

package llm

import (
	"context"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

const deepseekBaseURL = "https://api.deepseek.com/v1"

// DeepSeekProvider implements the Provider interface for DeepSeek.
type DeepSeekProvider struct {
	client *openai.Client
}

// NewDeepSeekProvider creates a new DeepSeek provider.
func NewDeepSeekProvider(apiKey string) *DeepSeekProvider {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = deepseekBaseURL

	return &DeepSeekProvider{
		client: openai.NewClientWithConfig(config),
	}
}

// Name returns the provider name.
func (p *DeepSeekProvider) Name() string {
	return "deepseek"
}

// CreateCompletion sends a chat completion request.
func (p *DeepSeekProvider) CreateCompletion(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	dsReq := toOpenAIRequest(req)
	dsReq.MaxTokens = 0
	dsReq.MaxCompletionTokens = req.MaxTokens

	resp, err := p.client.CreateChatCompletion(ctx, dsReq)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("chat completion failed: %w", err)
	}

	message := ChatMessage{Role: RoleAssistant}
	if len(resp.Choices) > 0 {
		choice := resp.Choices[0].Message
		message.Content = choice.Content
		for _, tc := range choice.ToolCalls {
			message.ToolCalls = append(message.ToolCalls, ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: []byte(tc.Function.Arguments),
			})
		}
	}

	// DeepSeek returns token usage in the standard OpenAI format
	usage := &TokenUsage{
		PromptTokens:     uint32(resp.Usage.PromptTokens),
		CompletionTokens: uint32(resp.Usage.CompletionTokens),
		TotalTokens:      uint32(resp.Usage.TotalTokens),
	}
	if resp.Usage.PromptTokensDetails != nil {
		usage.CachedTokens = uint32(resp.Usage.PromptTokensDetails.CachedTokens)
	}

	return CompletionResponse{Message: message, Usage: usage}, nil
}

// StreamCompletion streams a chat completion.
func (p *DeepSeekProvider) StreamCompletion(ctx context.Context, req CompletionRequest, chunks chan<- string) (*TokenUsage, error) {
	dsReq := toOpenAIRequest(req)
	dsReq.MaxTokens = 0
	dsReq.MaxCompletionTokens = req.MaxTokens
	dsReq.Stream = true
	dsReq.StreamOptions = &openai.StreamOptions{
		IncludeUsage: true,
	}

	stream, err := p.client.CreateChatCompletionStream(ctx, dsReq)
	if err != nil {
		return nil, fmt.Errorf("stream creation failed: %w", err)
	}
	defer stream.Close()

	var usage *TokenUsage
	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return usage, nil
		}
		if err != nil {
			return usage, fmt.Errorf("stream recv failed: %w", err)
		}

		if response.Usage != nil {
			usage = &TokenUsage{
				PromptTokens:     uint32(response.Usage.PromptTokens),
				CompletionTokens: uint32(response.Usage.CompletionTokens),
				TotalTokens:      uint32(response.Usage.TotalTokens),
			}
		}

		if len(response.Choices) > 0 {
			content := response.Choices[0].Delta.Content
			if content != "" {
				select {
				case chunks <- content:
				case <-ctx.Done():
					return usage, ctx.Err()
				}
			}
		}
	}
}

// Verify DeepSeekProvider implements Provider
var _ Provider = (*DeepSeekProvider)(nil)

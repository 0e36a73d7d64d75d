// LLM provider factory.
//
// Quick start:
//
//	// Read API key from environment
//	provider, err := llm.NewProviderFromEnv(llm.ProviderOpenAI)
//
//	// Explicit API key
//	provider := llm.NewProvider(llm.ProviderAnthropic, "sk-ant-...")

package llm

import (
	"fmt"
	"os"
	"strings"
)

// ProviderType represents supported LLM providers.
type ProviderType int

const (
	// ProviderOpenAI is the OpenAI provider (GPT models).
	ProviderOpenAI ProviderType = iota
	// ProviderAnthropic is the Anthropic provider (Claude models).
	ProviderAnthropic
	// ProviderDeepSeek is the DeepSeek provider.
	ProviderDeepSeek
	// ProviderGemini is the Google Gemini provider.
	ProviderGemini
)

// String returns the string representation of the provider type.
func (p ProviderType) String() string {
	switch p {
	case ProviderOpenAI:
		return "openai"
	case ProviderAnthropic:
		return "anthropic"
	case ProviderDeepSeek:
		return "deepseek"
	case ProviderGemini:
		return "gemini"
	default:
		return "unknown"
	}
}

// EnvVar returns the environment variable name for this provider's API key.
func (p ProviderType) EnvVar() string {
	switch p {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderDeepSeek:
		return "DEEPSEEK_API_KEY"
	case ProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}

// DefaultModel returns the default model for this provider.
func (p ProviderType) DefaultModel() string {
	switch p {
	case ProviderOpenAI:
		return ModelOpenAIGPT4o
	case ProviderAnthropic:
		return ModelAnthropicClaudeSonnet4
	case ProviderDeepSeek:
		return ModelDeepSeekChat
	case ProviderGemini:
		return ModelGeminiFlash25
	default:
		return ""
	}
}

// ParseProviderType parses a provider from string (case-insensitive).
func ParseProviderType(s string) (ProviderType, error) {
	switch strings.ToLower(s) {
	case "openai", "gpt":
		return ProviderOpenAI, nil
	case "anthropic", "claude":
		return ProviderAnthropic, nil
	case "deepseek":
		return ProviderDeepSeek, nil
	case "gemini", "google":
		return ProviderGemini, nil
	default:
		return 0, fmt.Errorf("unknown provider: %s", s)
	}
}

// NewProvider creates a provider backend with an explicit API key.
func NewProvider(providerType ProviderType, apiKey string) (Provider, error) {
	switch providerType {
	case ProviderOpenAI:
		return NewOpenAIProvider(apiKey), nil
	case ProviderAnthropic:
		return NewAnthropicProvider(apiKey), nil
	case ProviderDeepSeek:
		return NewDeepSeekProvider(apiKey), nil
	case ProviderGemini:
		return NewGeminiProvider(apiKey), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %v", providerType)
	}
}

// NewProviderFromEnv creates a provider, reading the API key from the
// provider's environment variable.
func NewProviderFromEnv(providerType ProviderType) (Provider, error) {
	envVar := providerType.EnvVar()
	apiKey := os.Getenv(envVar)
	if apiKey == "" {
		return nil, fmt.Errorf("%s: %s environment variable not set", providerType, envVar)
	}
	return NewProvider(providerType, apiKey)
}

// Model identifier constants for all supported providers.

// OpenAI model identifiers
const (
	// ModelOpenAIGPT4o is GPT-4o: flagship multimodal model.
	ModelOpenAIGPT4o = "gpt-4o"
	// ModelOpenAIGPT4oMini is GPT-4o-mini: fast and inexpensive.
	ModelOpenAIGPT4oMini = "gpt-4o-mini"
	// ModelOpenAIGPT4Turbo is GPT-4-turbo: previous flagship.
	ModelOpenAIGPT4Turbo = "gpt-4-turbo"
	// ModelOpenAIO3Mini is O3-mini: efficient reasoning model.
	ModelOpenAIO3Mini = "o3-mini"
	// ModelOpenAIO1 is O1: reasoning model.
	ModelOpenAIO1 = "o1"
)

// Anthropic model identifiers
const (
	// ModelAnthropicClaudeSonnet4 is Claude Sonnet 4: balanced performance.
	ModelAnthropicClaudeSonnet4 = "claude-sonnet-4-20250514"
	// ModelAnthropicClaudeOpus4 is Claude Opus 4: most capable.
	ModelAnthropicClaudeOpus4 = "claude-opus-4-20250514"
	// ModelAnthropicClaude35Haiku is Claude 3.5 Haiku: fast and efficient.
	ModelAnthropicClaude35Haiku = "claude-3-5-haiku-20241022"
)

// DeepSeek model identifiers
const (
	// ModelDeepSeekChat is the general chat model.
	ModelDeepSeekChat = "deepseek-chat"
	// ModelDeepSeekReasoner is the chain-of-thought reasoning model.
	ModelDeepSeekReasoner = "deepseek-reasoner"
)

// Gemini model identifiers
const (
	// ModelGeminiFlash25 is Gemini 2.5 Flash: speed optimized.
	ModelGeminiFlash25 = "gemini-2.5-flash"
	// ModelGeminiPro25 is Gemini 2.5 Pro: advanced reasoning.
	ModelGeminiPro25 = "gemini-2.5-pro"
	// ModelGeminiFlash20 is Gemini 2.0 Flash.
	ModelGeminiFlash20 = "gemini-2.0-flash"
)

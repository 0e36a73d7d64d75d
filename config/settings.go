// Package config provides application settings loaded from environment variables.
//
// Settings are created via New() which handles:
// - Environment variable parsing with validation
// - Default value application
// - Provider-specific model lookup

package config

import (
	"fmt"
	"os"
	"strconv"
)

// Settings holds all application configuration.
type Settings struct {
	LLM   LLMConfig
	Agent AgentConfig
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	Provider    string
	Model       string
	MaxTokens   int
	Temperature float64
}

// AgentConfig holds run-loop configuration.
type AgentConfig struct {
	Retries        int
	ResultRetries  int
	MemoryMessages int
	LedgerPath     string
	SystemPrompt   string
}

// Per-provider model environment variable and fallback.
var providerModels = map[string]struct {
	modelEnv     string
	defaultModel string
}{
	"openai":    {"OPENAI_MODEL", "gpt-4o"},
	"anthropic": {"ANTHROPIC_MODEL", "claude-sonnet-4-20250514"},
	"deepseek":  {"DEEPSEEK_MODEL", "deepseek-chat"},
	"gemini":    {"GEMINI_MODEL", "gemini-2.5-flash"},
}

// Provider aliases map to canonical names.
var providerAliases = map[string]string{
	"claude": "anthropic",
	"google": "gemini",
	"gpt":    "openai",
}

// New creates settings for the specified provider, loading values from
// environment variables. Returns an error if the provider is unknown or
// an environment variable contains an invalid value.
func New(provider string) (Settings, error) {
	provider = normalizeProvider(provider)

	info, ok := providerModels[provider]
	if !ok {
		return Settings{}, fmt.Errorf("unknown provider: %q", provider)
	}

	maxTokens, err := getEnvInt("LLM_MAX_TOKENS", 0)
	if err != nil {
		return Settings{}, err
	}

	temperature, err := getEnvFloat64("LLM_TEMPERATURE", 0.7)
	if err != nil {
		return Settings{}, err
	}

	retries, err := getEnvInt("AGENT_RETRIES", 1)
	if err != nil {
		return Settings{}, err
	}

	resultRetries, err := getEnvInt("AGENT_RESULT_RETRIES", 1)
	if err != nil {
		return Settings{}, err
	}

	memoryMessages, err := getEnvInt("AGENT_MEMORY_MESSAGES", 20)
	if err != nil {
		return Settings{}, err
	}

	model := os.Getenv(info.modelEnv)
	if model == "" {
		model = info.defaultModel
	}

	return Settings{
		LLM: LLMConfig{
			Provider:    provider,
			Model:       model,
			MaxTokens:   maxTokens,
			Temperature: temperature,
		},
		Agent: AgentConfig{
			Retries:        retries,
			ResultRetries:  resultRetries,
			MemoryMessages: memoryMessages,
			LedgerPath:     os.Getenv("AGENT_LEDGER_PATH"),
			SystemPrompt:   os.Getenv("AGENT_SYSTEM_PROMPT"),
		},
	}, nil
}

// MustNew creates settings for the specified provider.
// Panics if the provider is unknown or environment variables are invalid.
// Use this only when configuration errors should be fatal.
func MustNew(provider string) Settings {
	settings, err := New(provider)
	if err != nil {
		panic(err)
	}
	return settings
}

func normalizeProvider(provider string) string {
	if provider == "" {
		provider = os.Getenv("LLM_PROVIDER")
	}
	if provider == "" {
		provider = "openai"
	}
	if canonical, ok := providerAliases[provider]; ok {
		return canonical
	}
	return provider
}

func getEnvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return parsed, nil
}

func getEnvFloat64(key string, fallback float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return parsed, nil
}

// Agent builder for fluent configuration.
//
// Information Hiding:
// - Builder state management hidden
// - Default value application hidden

package agent

import (
	"time"

	"github.com/spindleworks/spindle/llm"
	"github.com/spindleworks/spindle/schema"
	"github.com/spindleworks/spindle/storage"
	"github.com/spindleworks/spindle/tools"
)

// Builder provides fluent configuration for creating agents.
// Usage: agent.NewBuilder(llm.ProviderOpenAI) - no stutter.
type Builder struct {
	cfg Config
}

// NewBuilder creates a new agent builder for the given provider.
func NewBuilder(provider llm.ProviderType) *Builder {
	return &Builder{cfg: Config{Provider: provider}}
}

// Model sets the model identifier.
func (b *Builder) Model(model string) *Builder {
	b.cfg.Model = model
	return b
}

// Temperature sets the sampling temperature.
func (b *Builder) Temperature(temperature float32) *Builder {
	b.cfg.Temperature = temperature
	return b
}

// MaxTokens caps the completion length.
func (b *Builder) MaxTokens(maxTokens int) *Builder {
	b.cfg.MaxTokens = maxTokens
	return b
}

// APIKey sets an explicit credential.
func (b *Builder) APIKey(apiKey string) *Builder {
	b.cfg.APIKey = apiKey
	return b
}

// SystemPrompt appends a static system prompt.
func (b *Builder) SystemPrompt(prompt string) *Builder {
	b.cfg.SystemPrompts = append(b.cfg.SystemPrompts, prompt)
	return b
}

// ResultSchema declares the expected shape of the final answer.
func (b *Builder) ResultSchema(s *schema.Schema) *Builder {
	b.cfg.ResultSchema = s
	return b
}

// Retries sets the transport attempt count per dispatch.
func (b *Builder) Retries(retries int) *Builder {
	b.cfg.Retries = retries
	return b
}

// ResultRetries bounds model-assisted result retries.
func (b *Builder) ResultRetries(retries int) *Builder {
	b.cfg.ResultRetries = retries
	return b
}

// RetryBackoff sets the base wait between transport attempts.
func (b *Builder) RetryBackoff(backoff time.Duration) *Builder {
	b.cfg.RetryBackoff = backoff
	return b
}

// Tool adds a tool the model may invoke.
func (b *Builder) Tool(tool *tools.Tool) *Builder {
	b.cfg.Tools = append(b.cfg.Tools, tool)
	return b
}

// MemoryMessages bounds the cross-run non-system message window.
func (b *Builder) MemoryMessages(n int) *Builder {
	b.cfg.MemoryMessages = n
	return b
}

// Ledger attaches a usage ledger.
func (b *Builder) Ledger(ledger storage.Ledger) *Builder {
	b.cfg.Ledger = ledger
	return b
}

// Transport substitutes a prebuilt provider.
func (b *Builder) Transport(provider llm.Provider) *Builder {
	b.cfg.Transport = provider
	return b
}

// Build constructs the agent.
func (b *Builder) Build() (*Agent, error) {
	return New(b.cfg)
}

package agent

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/spindleworks/spindle/llm"
	"github.com/spindleworks/spindle/memory"
	"github.com/spindleworks/spindle/schema"
	"github.com/spindleworks/spindle/storage"
	"github.com/spindleworks/spindle/tools"
)

// Defaults applied by New when the corresponding Config field is zero.
const (
	// DefaultRetries is the number of transport attempts per dispatch.
	DefaultRetries = 1
	// DefaultResultRetries bounds model-assisted result retries.
	DefaultResultRetries = 1
	// DefaultRetryBackoff is the base wait between transport attempts;
	// attempt n waits base times (n-1).
	DefaultRetryBackoff = time.Second
	// DefaultTemperature is the sampling temperature.
	DefaultTemperature float32 = 0.7
)

// Config configures an Agent.
type Config struct {
	// Provider selects the backend. Ignored when Transport is set.
	Provider llm.ProviderType

	// Model overrides the provider's default model.
	Model string

	// Temperature is the sampling temperature, defaulting to
	// DefaultTemperature. MaxTokens of zero leaves the provider limit.
	Temperature float32
	MaxTokens   int

	// APIKey is the explicit credential. When empty, resolution falls
	// back to the process-wide default holder, then the provider's
	// environment variable. All three missing is a configuration error.
	APIKey string

	// SystemPrompts are static system turns sent ahead of every run,
	// in order.
	SystemPrompts []string

	// ResultSchema, when set, is validated against the final content.
	ResultSchema *schema.Schema

	// Retries is the transport attempt count per dispatch.
	Retries int

	// ResultRetries bounds the total run attempts consumed by
	// ModelRetry signals from tools and result validators.
	ResultRetries int

	// RetryBackoff is the base wait between transport attempts.
	RetryBackoff time.Duration

	// Tools are registered at construction. More can be added later
	// with RegisterTool.
	Tools []*tools.Tool

	// MemoryMessages bounds the cross-run non-system message window.
	MemoryMessages int

	// DropSystemFromMemory disables pinning of system turns in memory.
	DropSystemFromMemory bool

	// Transport substitutes a prebuilt provider, bypassing credential
	// resolution. Used by tests and custom backends.
	Transport llm.Provider

	// Ledger, when set, receives one usage record per completed run.
	Ledger storage.Ledger

	// Logger, when set, receives debug events from the run loop.
	// Defaults to a no-op logger.
	Logger *zerolog.Logger
}

func (c Config) retries() int {
	if c.Retries <= 0 {
		return DefaultRetries
	}
	return c.Retries
}

func (c Config) resultRetries() int {
	if c.ResultRetries <= 0 {
		return DefaultResultRetries
	}
	return c.ResultRetries
}

func (c Config) retryBackoff() time.Duration {
	if c.RetryBackoff <= 0 {
		return DefaultRetryBackoff
	}
	return c.RetryBackoff
}

func (c Config) temperature() float32 {
	if c.Temperature == 0 {
		return DefaultTemperature
	}
	return c.Temperature
}

func (c Config) memoryMessages() int {
	if c.MemoryMessages <= 0 {
		return memory.DefaultMaxMessages
	}
	return c.MemoryMessages
}

// Package memory provides a bounded, ordered store of conversation turns.
//
// Information Hiding:
// - The trimming rule applied after each mutation
// - Internal storage layout and locking
package memory

import (
	"fmt"
	"sync"

	"github.com/spindleworks/spindle/llm"
)

// DefaultMaxMessages bounds the non-system window when no capacity is given.
const DefaultMaxMessages = 20

// InvalidMessageError reports a message that failed validation before
// any mutation took place.
type InvalidMessageError struct {
	Reason string
}

func (e *InvalidMessageError) Error() string {
	return fmt.Sprintf("invalid message: %s", e.Reason)
}

// Memory holds conversation turns with a capacity bound on non-system
// messages. When keepSystemPrompt is set, system turns are pinned and
// never age out; only non-system turns are evicted, oldest first, once
// the bound is exceeded.
//
// Safe for concurrent use.
type Memory struct {
	mu               sync.RWMutex
	messages         []llm.ChatMessage
	maxMessages      int
	keepSystemPrompt bool
}

// New creates a Memory bounded to maxMessages non-system turns.
// A non-positive capacity falls back to DefaultMaxMessages.
func New(maxMessages int, keepSystemPrompt bool) *Memory {
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	return &Memory{
		maxMessages:      maxMessages,
		keepSystemPrompt: keepSystemPrompt,
	}
}

// Add validates then appends messages, applying the trimming rule.
// Validation runs over the whole batch before any mutation, so a bad
// message never leaves Memory partially updated.
func (m *Memory) Add(messages ...llm.ChatMessage) error {
	for _, msg := range messages {
		if !validRole(msg.Role) {
			return &InvalidMessageError{Reason: fmt.Sprintf("unrecognized role %q", msg.Role)}
		}
		// Empty content is only legal on a tool-call turn
		if msg.Content == "" && len(msg.ToolCalls) == 0 {
			return &InvalidMessageError{Reason: fmt.Sprintf("empty content on %s message without tool calls", msg.Role)}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages = append(m.messages, messages...)
	m.trim()
	return nil
}

// trim enforces the capacity bound. Callers must hold the write lock.
func (m *Memory) trim() {
	var system, rest []llm.ChatMessage
	for _, msg := range m.messages {
		if msg.Role == llm.RoleSystem {
			system = append(system, msg)
		} else {
			rest = append(rest, msg)
		}
	}

	if len(rest) > m.maxMessages {
		rest = rest[len(rest)-m.maxMessages:]
	}

	if m.keepSystemPrompt {
		m.messages = append(system, rest...)
	} else {
		m.messages = rest
	}
}

// Clear resets the store. With keepSystemPrompt true, pinned system
// turns survive; otherwise everything is dropped.
func (m *Memory) Clear(keepSystemPrompt bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !keepSystemPrompt {
		m.messages = nil
		return
	}

	var system []llm.ChatMessage
	for _, msg := range m.messages {
		if msg.Role == llm.RoleSystem {
			system = append(system, msg)
		}
	}
	m.messages = system
}

// All returns a defensive copy of every stored message.
func (m *Memory) All() []llm.ChatMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]llm.ChatMessage, len(m.messages))
	copy(result, m.messages)
	return result
}

// SystemMessages returns the stored system turns.
func (m *Memory) SystemMessages() []llm.ChatMessage {
	return m.filter(func(msg llm.ChatMessage) bool { return msg.Role == llm.RoleSystem })
}

// NonSystemMessages returns the stored non-system turns in order.
func (m *Memory) NonSystemMessages() []llm.ChatMessage {
	return m.filter(func(msg llm.ChatMessage) bool { return msg.Role != llm.RoleSystem })
}

func (m *Memory) filter(keep func(llm.ChatMessage) bool) []llm.ChatMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []llm.ChatMessage
	for _, msg := range m.messages {
		if keep(msg) {
			result = append(result, msg)
		}
	}
	return result
}

// Len returns the number of stored messages.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.messages)
}

func validRole(role string) bool {
	switch role {
	case llm.RoleSystem, llm.RoleUser, llm.RoleAssistant, llm.RoleTool:
		return true
	default:
		return false
	}
}

package tools

import (
	"sort"
	"sync"

	"github.com/spindleworks/spindle/llm"
	"github.com/spindleworks/spindle/schema"
)

// Registry holds tools by name.
//
// Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]*Tool),
	}
}

// Register stores a tool by name, assigning the default retry budget
// when the tool does not specify one. Re-registering a name overwrites
// the previous entry, last writer wins.
func (r *Registry) Register(tool *Tool) {
	if tool.MaxRetries == 0 {
		tool.MaxRetries = DefaultToolRetries
	}
	tool.ResetBudget()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name] = tool
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Definitions returns wire descriptors for every registered tool,
// sorted by name for deterministic request payloads.
func (r *Registry) Definitions() []llm.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]llm.ToolDefinition, 0, len(r.tools))
	for _, tool := range r.tools {
		defs = append(defs, llm.ToolDefinition{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  schema.ToWire(tool.Params),
		})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// ResetBudgets restores every tool's retry budget. Called once at the
// start of each top-level run.
func (r *Registry) ResetBudgets() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, tool := range r.tools {
		tool.ResetBudget()
	}
}

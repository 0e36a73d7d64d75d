package cost

import (
	"sync"

	"github.com/spindleworks/spindle/llm"
)

// Totals is a running, monotonically non-decreasing sum of token and
// money usage.
type Totals struct {
	PromptTokens     uint64
	CompletionTokens uint64
	TotalTokens      uint64
	InputCost        float64
	OutputCost       float64
	TotalCost        float64
}

// Accountant accumulates usage across exchanges.
//
// Safe for concurrent use.
type Accountant struct {
	mu     sync.Mutex
	totals Totals
}

// NewAccountant creates an accountant with zeroed totals.
func NewAccountant() *Accountant {
	return &Accountant{}
}

// Add computes the cost of one exchange and folds it into the running
// totals. On an unknown model the totals are left untouched.
func (a *Accountant) Add(model string, usage llm.TokenUsage) (Breakdown, error) {
	breakdown, err := Compute(model, usage)
	if err != nil {
		return Breakdown{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.totals.PromptTokens += uint64(usage.PromptTokens)
	a.totals.CompletionTokens += uint64(usage.CompletionTokens)
	a.totals.TotalTokens += uint64(usage.TotalTokens)
	a.totals.InputCost += breakdown.InputCost
	a.totals.OutputCost += breakdown.OutputCost
	a.totals.TotalCost += breakdown.TotalCost

	return breakdown, nil
}

// Totals returns a snapshot of the running totals.
func (a *Accountant) Totals() Totals {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.totals
}

// Package cost converts token usage into money and accumulates
// running totals across a client's lifetime.
//
// Information Hiding:
// - The per-model price table and its prefix-matching lookup
// - Cached-token discounting
package cost

import (
	"fmt"

	"github.com/spindleworks/spindle/internal/dsa"
	"github.com/spindleworks/spindle/llm"
)

// Price holds USD rates per million tokens. CachedInput applies to the
// cached sub-count of prompt tokens when the provider reports one; a
// zero CachedInput means no discount is offered and cached tokens bill
// at the full input rate.
type Price struct {
	Input       float64
	Output      float64
	CachedInput float64
}

// priceTable maps base model identifiers to their rates. Dated or
// suffixed IDs resolve through longest-prefix matching, so
// "gpt-4o-2024-08-06" finds the "gpt-4o" entry.
var priceTable = map[string]Price{
	llm.ModelOpenAIGPT4o:     {Input: 2.50, Output: 10.00, CachedInput: 1.25},
	llm.ModelOpenAIGPT4oMini: {Input: 0.15, Output: 0.60, CachedInput: 0.075},
	llm.ModelOpenAIGPT4Turbo: {Input: 10.00, Output: 30.00},
	llm.ModelOpenAIO3Mini:    {Input: 1.10, Output: 4.40, CachedInput: 0.55},
	llm.ModelOpenAIO1:        {Input: 15.00, Output: 60.00, CachedInput: 7.50},

	llm.ModelAnthropicClaudeSonnet4: {Input: 3.00, Output: 15.00, CachedInput: 0.30},
	llm.ModelAnthropicClaudeOpus4:   {Input: 15.00, Output: 75.00, CachedInput: 1.50},
	llm.ModelAnthropicClaude35Haiku: {Input: 0.80, Output: 4.00, CachedInput: 0.08},

	llm.ModelDeepSeekChat:     {Input: 0.27, Output: 1.10, CachedInput: 0.07},
	llm.ModelDeepSeekReasoner: {Input: 0.55, Output: 2.19, CachedInput: 0.14},

	llm.ModelGeminiFlash25: {Input: 0.30, Output: 2.50, CachedInput: 0.075},
	llm.ModelGeminiPro25:   {Input: 1.25, Output: 10.00, CachedInput: 0.31},
	llm.ModelGeminiFlash20: {Input: 0.10, Output: 0.40, CachedInput: 0.025},
}

var priceTrie = buildPriceTrie()

func buildPriceTrie() *dsa.Trie[Price] {
	trie := dsa.NewTrie[Price]()
	for model, price := range priceTable {
		trie.Insert(model, price)
	}
	return trie
}

// PriceFor looks up the rates for a model identifier, exact match
// first, then longest prefix. An unknown model is a configuration
// error at cost-computation time.
func PriceFor(model string) (Price, error) {
	if price, ok := priceTrie.Search(model); ok {
		return price, nil
	}
	if _, price, ok := priceTrie.LongestPrefix(model); ok {
		return price, nil
	}
	return Price{}, fmt.Errorf("no price entry for model %q", model)
}

// Compute derives the monetary cost of one exchange. Cached prompt
// tokens bill at the discounted rate when one is configured.
func Compute(model string, usage llm.TokenUsage) (Breakdown, error) {
	price, err := PriceFor(model)
	if err != nil {
		return Breakdown{}, err
	}

	cached := usage.CachedTokens
	if cached > usage.PromptTokens {
		cached = usage.PromptTokens
	}
	fresh := usage.PromptTokens - cached

	cachedRate := price.CachedInput
	if cachedRate == 0 {
		cachedRate = price.Input
	}

	inputCost := float64(fresh)*price.Input/1e6 + float64(cached)*cachedRate/1e6
	outputCost := float64(usage.CompletionTokens) * price.Output / 1e6

	return Breakdown{
		Model:            model,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		CachedTokens:     cached,
		InputCost:        inputCost,
		OutputCost:       outputCost,
		TotalCost:        inputCost + outputCost,
	}, nil
}

// Breakdown is the cost of a single exchange.
type Breakdown struct {
	Model            string
	PromptTokens     uint32
	CompletionTokens uint32
	CachedTokens     uint32
	InputCost        float64
	OutputCost       float64
	TotalCost        float64
}

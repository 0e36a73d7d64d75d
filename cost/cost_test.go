package cost

import (
	"math"
	"testing"

	"github.com/spindleworks/spindle/llm"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComputeBasic(t *testing.T) {
	usage := llm.TokenUsage{
		PromptTokens:     1_000_000,
		CompletionTokens: 500_000,
		TotalTokens:      1_500_000,
	}

	breakdown, err := Compute(llm.ModelOpenAIGPT4o, usage)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !almostEqual(breakdown.InputCost, 2.50) {
		t.Errorf("expected input cost 2.50, got %f", breakdown.InputCost)
	}
	if !almostEqual(breakdown.OutputCost, 5.00) {
		t.Errorf("expected output cost 5.00, got %f", breakdown.OutputCost)
	}
	if !almostEqual(breakdown.TotalCost, 7.50) {
		t.Errorf("expected total cost 7.50, got %f", breakdown.TotalCost)
	}
}

func TestComputeCachedDiscount(t *testing.T) {
	usage := llm.TokenUsage{
		PromptTokens:     1_000_000,
		CachedTokens:     400_000,
		CompletionTokens: 0,
	}

	breakdown, err := Compute(llm.ModelOpenAIGPT4o, usage)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 600k fresh at 2.50/M plus 400k cached at 1.25/M
	want := 0.6*2.50 + 0.4*1.25
	if !almostEqual(breakdown.InputCost, want) {
		t.Errorf("expected input cost %f, got %f", want, breakdown.InputCost)
	}
	if breakdown.CachedTokens != 400_000 {
		t.Errorf("expected 400000 cached tokens, got %d", breakdown.CachedTokens)
	}
}

func TestComputeCachedWithoutDiscountRate(t *testing.T) {
	// gpt-4-turbo has no cached rate, cached tokens bill at full input
	usage := llm.TokenUsage{
		PromptTokens: 1_000_000,
		CachedTokens: 500_000,
	}

	breakdown, err := Compute(llm.ModelOpenAIGPT4Turbo, usage)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(breakdown.InputCost, 10.00) {
		t.Errorf("expected input cost 10.00, got %f", breakdown.InputCost)
	}
}

func TestPriceForLongestPrefix(t *testing.T) {
	price, err := PriceFor("gpt-4o-2024-08-06")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price.Input != 2.50 {
		t.Errorf("expected dated id to resolve to gpt-4o rates, got %+v", price)
	}

	// The mini variant must not fall back to the gpt-4o entry
	price, err = PriceFor("gpt-4o-mini-2024-07-18")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price.Input != 0.15 {
		t.Errorf("expected mini rates, got %+v", price)
	}
}

func TestPriceForUnknownModel(t *testing.T) {
	if _, err := PriceFor("mystery-model-9000"); err == nil {
		t.Fatal("expected error for unknown model")
	}
}

func TestAccountantMonotonicTotals(t *testing.T) {
	a := NewAccountant()

	exchanges := []llm.TokenUsage{
		{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150},
		{PromptTokens: 200, CompletionTokens: 80, TotalTokens: 280},
		{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}

	var prevTotal float64
	for _, usage := range exchanges {
		if _, err := a.Add(llm.ModelDeepSeekChat, usage); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		totals := a.Totals()
		if totals.TotalCost < prevTotal {
			t.Errorf("total cost decreased: %f < %f", totals.TotalCost, prevTotal)
		}
		prevTotal = totals.TotalCost
	}

	totals := a.Totals()
	if totals.PromptTokens != 310 {
		t.Errorf("expected 310 prompt tokens, got %d", totals.PromptTokens)
	}
	if totals.CompletionTokens != 135 {
		t.Errorf("expected 135 completion tokens, got %d", totals.CompletionTokens)
	}
	if totals.TotalTokens != 445 {
		t.Errorf("expected 445 total tokens, got %d", totals.TotalTokens)
	}

	wantCost := float64(310)*0.27/1e6 + float64(135)*1.10/1e6
	if !almostEqual(totals.TotalCost, wantCost) {
		t.Errorf("expected total cost %f, got %f", wantCost, totals.TotalCost)
	}
}

func TestAccountantUnknownModelLeavesTotals(t *testing.T) {
	a := NewAccountant()

	_, err := a.Add("mystery-model-9000", llm.TokenUsage{PromptTokens: 100})
	if err == nil {
		t.Fatal("expected error")
	}
	if a.Totals() != (Totals{}) {
		t.Errorf("expected untouched totals, got %+v", a.Totals())
	}
}

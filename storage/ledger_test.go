package storage

import (
	"context"
	"testing"
	"time"
)

func testLedger(t *testing.T, ledger Ledger) {
	t.Helper()
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	records := []RunRecord{
		{Provider: "openai", Model: "gpt-4o", PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150, TotalCost: 0.001, CreatedAt: base},
		{Provider: "openai", Model: "gpt-4o", PromptTokens: 200, CompletionTokens: 80, TotalTokens: 280, TotalCost: 0.002, CreatedAt: base.Add(time.Minute)},
		{Provider: "deepseek", Model: "deepseek-chat", PromptTokens: 300, CompletionTokens: 120, TotalTokens: 420, TotalCost: 0.0005, CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, r := range records {
		if err := ledger.Record(ctx, r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	got, err := ledger.Records(ctx, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].Model != "deepseek-chat" {
		t.Errorf("expected newest record first, got %q", got[0].Model)
	}
	if got[0].ID == "" {
		t.Error("expected an assigned record ID")
	}

	all, err := ledger.Records(ctx, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}

	totals, err := ledger.Totals(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if totals.Runs != 3 {
		t.Errorf("expected 3 runs, got %d", totals.Runs)
	}
	if totals.PromptTokens != 600 {
		t.Errorf("expected 600 prompt tokens, got %d", totals.PromptTokens)
	}
	if totals.TotalTokens != 850 {
		t.Errorf("expected 850 total tokens, got %d", totals.TotalTokens)
	}
}

func TestInMemoryLedger(t *testing.T) {
	ledger := NewInMemoryLedger()
	defer ledger.Close()
	testLedger(t, ledger)
}

func TestSqliteLedger(t *testing.T) {
	ledger, err := NewSqliteInMemory()
	if err != nil {
		t.Fatalf("failed to create ledger: %v", err)
	}
	defer ledger.Close()
	testLedger(t, ledger)
}

func TestSqliteLedgerPersistsToFile(t *testing.T) {
	path := t.TempDir() + "/ledger/usage.db"

	ledger, err := OpenSqlite(path)
	if err != nil {
		t.Fatalf("failed to open ledger: %v", err)
	}

	ctx := context.Background()
	if err := ledger.Record(ctx, RunRecord{Provider: "openai", Model: "gpt-4o", TotalTokens: 10, TotalCost: 0.0001}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ledger.Close(); err != nil {
		t.Fatalf("failed to close: %v", err)
	}

	reopened, err := OpenSqlite(path)
	if err != nil {
		t.Fatalf("failed to reopen ledger: %v", err)
	}
	defer reopened.Close()

	totals, err := reopened.Totals(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if totals.Runs != 1 {
		t.Errorf("expected 1 run after reopen, got %d", totals.Runs)
	}
}

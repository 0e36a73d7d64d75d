package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryLedger keeps run records in process memory. Useful for tests
// and short-lived sessions that do not need persistence.
//
// Safe for concurrent use.
type InMemoryLedger struct {
	mu      sync.RWMutex
	records []RunRecord
}

// NewInMemoryLedger creates an empty in-memory ledger.
func NewInMemoryLedger() *InMemoryLedger {
	return &InMemoryLedger{}
}

// Record stores one run record.
func (l *InMemoryLedger) Record(_ context.Context, record RunRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, record)
	return nil
}

// Records returns the most recent records, newest first.
func (l *InMemoryLedger) Records(_ context.Context, limit int) ([]RunRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := len(l.records)
	if limit <= 0 || limit > n {
		limit = n
	}

	result := make([]RunRecord, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		result = append(result, l.records[i])
	}
	return result, nil
}

// Totals aggregates every stored record.
func (l *InMemoryLedger) Totals(_ context.Context) (Totals, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var totals Totals
	for _, r := range l.records {
		totals.Runs++
		totals.PromptTokens += uint64(r.PromptTokens)
		totals.CompletionTokens += uint64(r.CompletionTokens)
		totals.TotalTokens += uint64(r.TotalTokens)
		totals.TotalCost += r.TotalCost
	}
	return totals, nil
}

// Close is a no-op for the in-memory ledger.
func (l *InMemoryLedger) Close() error {
	return nil
}

// Verify InMemoryLedger implements Ledger
var _ Ledger = (*InMemoryLedger)(nil)

// Package storage provides persistence for per-run usage records.
//
// Information Hiding:
// - SQLite connection management hidden behind the Ledger interface
// - Schema details encapsulated
// - Thread-safe via sql.DB's built-in connection pooling
package storage

import (
	"context"
	"time"
)

// RunRecord is one completed run's usage and cost.
type RunRecord struct {
	ID               string
	Provider         string
	Model            string
	PromptTokens     uint32
	CompletionTokens uint32
	TotalTokens      uint32
	CachedTokens     uint32
	InputCost        float64
	OutputCost       float64
	TotalCost        float64
	CreatedAt        time.Time
}

// Totals aggregates recorded usage.
type Totals struct {
	Runs             uint64
	PromptTokens     uint64
	CompletionTokens uint64
	TotalTokens      uint64
	TotalCost        float64
}

// Ledger records per-run usage for later inspection.
type Ledger interface {
	// Record stores one run record. A missing ID is assigned.
	Record(ctx context.Context, record RunRecord) error

	// Records returns the most recent records, newest first.
	// A non-positive limit returns everything.
	Records(ctx context.Context, limit int) ([]RunRecord, error)

	// Totals aggregates every stored record.
	Totals(ctx context.Context) (Totals, error)

	// Close releases underlying resources.
	Close() error
}

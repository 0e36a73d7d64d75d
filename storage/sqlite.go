package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SqliteLedger implements Ledger using SQLite.
// Thread-safe: sql.DB handles connection pooling and concurrent access.
type SqliteLedger struct {
	db *sql.DB
}

// OpenSqlite opens or creates a SQLite ledger at the given path.
// Creates parent directories if they don't exist.
func OpenSqlite(path string) (*SqliteLedger, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	ledger := &SqliteLedger{db: db}
	if err := ledger.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return ledger, nil
}

// NewSqliteInMemory creates an in-memory ledger (useful for testing).
func NewSqliteInMemory() (*SqliteLedger, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}

	ledger := &SqliteLedger{db: db}
	if err := ledger.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return ledger, nil
}

// Close closes the database connection.
func (l *SqliteLedger) Close() error {
	return l.db.Close()
}

func (l *SqliteLedger) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			provider TEXT NOT NULL,
			model TEXT NOT NULL,
			prompt_tokens INTEGER NOT NULL,
			completion_tokens INTEGER NOT NULL,
			total_tokens INTEGER NOT NULL,
			cached_tokens INTEGER NOT NULL DEFAULT 0,
			input_cost REAL NOT NULL,
			output_cost REAL NOT NULL,
			total_cost REAL NOT NULL,
			created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_runs_created
		ON runs(created_at DESC);
	`

	_, err := l.db.Exec(schema)
	return err
}

// Record stores one run record.
func (l *SqliteLedger) Record(ctx context.Context, record RunRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO runs (
			id, provider, model,
			prompt_tokens, completion_tokens, total_tokens, cached_tokens,
			input_cost, output_cost, total_cost, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.Provider, record.Model,
		record.PromptTokens, record.CompletionTokens, record.TotalTokens, record.CachedTokens,
		record.InputCost, record.OutputCost, record.TotalCost,
		record.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run record: %w", err)
	}
	return nil
}

// Records returns the most recent records, newest first.
func (l *SqliteLedger) Records(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `
		SELECT id, provider, model,
			prompt_tokens, completion_tokens, total_tokens, cached_tokens,
			input_cost, output_cost, total_cost, created_at
		FROM runs
		ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query run records: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var r RunRecord
		var createdAt int64
		if err := rows.Scan(
			&r.ID, &r.Provider, &r.Model,
			&r.PromptTokens, &r.CompletionTokens, &r.TotalTokens, &r.CachedTokens,
			&r.InputCost, &r.OutputCost, &r.TotalCost, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run record: %w", err)
		}
		r.CreatedAt = time.UnixMilli(createdAt).UTC()
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read run records: %w", err)
	}

	return records, nil
}

// Totals aggregates every stored record.
func (l *SqliteLedger) Totals(ctx context.Context) (Totals, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(prompt_tokens), 0),
			COALESCE(SUM(completion_tokens), 0),
			COALESCE(SUM(total_tokens), 0),
			COALESCE(SUM(total_cost), 0)
		FROM runs`)

	var totals Totals
	if err := row.Scan(
		&totals.Runs,
		&totals.PromptTokens,
		&totals.CompletionTokens,
		&totals.TotalTokens,
		&totals.TotalCost,
	); err != nil {
		return Totals{}, fmt.Errorf("failed to aggregate run records: %w", err)
	}
	return totals, nil
}

// Verify SqliteLedger implements Ledger
var _ Ledger = (*SqliteLedger)(nil)

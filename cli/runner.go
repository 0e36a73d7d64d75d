// Package cli wires settings, agents, and the usage ledger into the
// commands exposed by cmd/spindle.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/spindleworks/spindle/agent"
	"github.com/spindleworks/spindle/config"
	"github.com/spindleworks/spindle/llm"
	"github.com/spindleworks/spindle/storage"
)

// Options holds the command-line flags shared across commands.
type Options struct {
	Provider   string
	Model      string
	LedgerPath string
	Stream     bool
	Verbose    bool
}

// Ask runs a single prompt to completion and prints the answer.
func Ask(ctx context.Context, prompt string, opts Options) error {
	ag, ledger, err := buildAgent(opts)
	if err != nil {
		return err
	}
	if ledger != nil {
		defer ledger.Close()
	}

	if opts.Stream {
		return streamAnswer(ctx, ag, prompt)
	}

	result, err := ag.Run(ctx, prompt, nil)
	if err != nil {
		return err
	}

	fmt.Println(result.Data)
	if opts.Verbose {
		fmt.Fprintf(os.Stderr, "\ntokens: %d prompt, %d completion; cost: $%.6f\n",
			result.Cost.PromptTokens, result.Cost.CompletionTokens, result.Cost.TotalCost)
	}
	return nil
}

// Chat runs an interactive loop. Conversation context carries across
// turns through the agent's memory.
func Chat(ctx context.Context, opts Options) error {
	ag, ledger, err := buildAgent(opts)
	if err != nil {
		return err
	}
	if ledger != nil {
		defer ledger.Close()
	}

	fmt.Println("spindle chat (type 'exit' to quit, 'clear' to reset memory)")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return scanner.Err()
		case "clear":
			ag.ClearMemory(true)
			fmt.Println("memory cleared")
			continue
		}

		if opts.Stream {
			if err := streamAnswer(ctx, ag, line); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
			continue
		}

		result, err := ag.Run(ctx, line, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Println(result.Data)
	}

	return scanner.Err()
}

// Usage prints recorded runs and aggregate totals from the ledger.
func Usage(ctx context.Context, limit int, opts Options) error {
	if opts.LedgerPath == "" {
		return fmt.Errorf("no ledger path configured, set --ledger or AGENT_LEDGER_PATH")
	}

	ledger, err := storage.OpenSqlite(opts.LedgerPath)
	if err != nil {
		return err
	}
	defer ledger.Close()

	records, err := ledger.Records(ctx, limit)
	if err != nil {
		return err
	}

	for _, r := range records {
		fmt.Printf("%s  %-10s %-28s %6d tok  $%.6f\n",
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			r.Provider, r.Model, r.TotalTokens, r.TotalCost)
	}

	totals, err := ledger.Totals(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("\n%d runs, %d tokens, $%.6f total\n",
		totals.Runs, totals.TotalTokens, totals.TotalCost)
	return nil
}

// streamAnswer prints fragments as they arrive. The caller owns the
// channel, so it is closed here once the stream returns.
func streamAnswer(ctx context.Context, ag *agent.Agent, prompt string) error {
	chunks := make(chan string)
	done := make(chan error, 1)

	go func() {
		_, err := ag.RunStream(ctx, prompt, nil, chunks)
		close(chunks)
		done <- err
	}()

	for chunk := range chunks {
		fmt.Print(chunk)
	}
	fmt.Println()
	return <-done
}

func buildAgent(opts Options) (*agent.Agent, storage.Ledger, error) {
	settings, err := config.New(opts.Provider)
	if err != nil {
		return nil, nil, err
	}

	providerType, err := llm.ParseProviderType(settings.LLM.Provider)
	if err != nil {
		return nil, nil, err
	}

	model := opts.Model
	if model == "" {
		model = settings.LLM.Model
	}

	ledgerPath := opts.LedgerPath
	if ledgerPath == "" {
		ledgerPath = settings.Agent.LedgerPath
	}

	var ledger storage.Ledger
	if ledgerPath != "" {
		ledger, err = storage.OpenSqlite(ledgerPath)
		if err != nil {
			return nil, nil, err
		}
	}

	cfg := agent.Config{
		Provider:       providerType,
		Model:          model,
		Temperature:    float32(settings.LLM.Temperature),
		MaxTokens:      settings.LLM.MaxTokens,
		Retries:        settings.Agent.Retries,
		ResultRetries:  settings.Agent.ResultRetries,
		MemoryMessages: settings.Agent.MemoryMessages,
		Ledger:         ledger,
	}
	if settings.Agent.SystemPrompt != "" {
		cfg.SystemPrompts = []string{settings.Agent.SystemPrompt}
	}
	if opts.Verbose {
		logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(zerolog.DebugLevel).
			With().Timestamp().Logger()
		cfg.Logger = &logger
	}

	ag, err := agent.New(cfg)
	if err != nil {
		if ledger != nil {
			ledger.Close()
		}
		return nil, nil, err
	}
	return ag, ledger, nil
}

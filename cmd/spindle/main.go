// Package main provides the spindle CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/spindleworks/spindle/cli"
)

var (
	// Global flags
	provider   string
	model      string
	ledgerPath string
	stream     bool
	verbose    bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "spindle",
		Short: "Chat with LLMs, with tools, structured output, and cost tracking",
		Long: `A thin client for hosted LLM chat APIs.

Supports tool/function calling, structured output validated against a
declared schema, bounded conversation memory, and per-run usage cost
recorded to a SQLite ledger.`,
	}

	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "", "LLM provider (openai, anthropic, deepseek, gemini)")
	rootCmd.PersistentFlags().StringVarP(&model, "model", "m", "", "Model identifier (defaults per provider)")
	rootCmd.PersistentFlags().StringVar(&ledgerPath, "ledger", "", "Path to the SQLite usage ledger")
	rootCmd.PersistentFlags().BoolVar(&stream, "stream", false, "Stream the response as it arrives")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show debug output and cost details")

	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(usageCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func options() cli.Options {
	return cli.Options{
		Provider:   provider,
		Model:      model,
		LedgerPath: ledgerPath,
		Stream:     stream,
		Verbose:    verbose,
	}
}

func askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask [prompt]",
		Short: "Run a single prompt to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Ask(context.Background(), args[0], options())
		},
	}
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat with cross-turn memory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Chat(context.Background(), options())
		},
	}
}

func usageCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show recorded runs and cost totals from the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Usage(context.Background(), limit, options())
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of recent runs to show")
	return cmd
}

package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/prism/internal/memory"
)

var (
	memorySearchLimit int
	memoryRecentLimit int
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect and seed research memory",
	Long: `Inspect and seed the research memory.

Research branches check memory before searching the web, and every
web-sourced finding is remembered for later runs.

Examples:
  prism memory search "tidal forces"
  prism memory add "The Moon's gravity is the main driver of ocean tides."
  prism memory recent --limit 5
  prism memory stats`,
}

var memorySearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search remembered findings",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, store *memory.SQLiteStore) error {
			query := strings.Join(args, " ")
			texts, err := store.Lookup(ctx, query, memorySearchLimit)
			if err != nil {
				return err
			}
			if len(texts) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No memories match %q.\n", query)
				return nil
			}
			for i, text := range texts {
				fmt.Fprintf(cmd.OutOrStdout(), "[%d] %s\n\n", i+1, text)
			}
			return nil
		})
	},
}

var memoryAddCmd = &cobra.Command{
	Use:   "add <text>",
	Short: "Remember a piece of text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, store *memory.SQLiteStore) error {
			if err := store.Store(ctx, strings.Join(args, " ")); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Memory added.")
			return nil
		})
	},
}

var memoryRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List the newest memories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, store *memory.SQLiteStore) error {
			memories, err := store.Recent(ctx, memoryRecentLimit)
			if err != nil {
				return err
			}
			if len(memories) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No memories yet.")
				return nil
			}
			for _, m := range memories {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n    %s\n\n", m.ID, m.CreatedAt.Local().Format(time.DateTime), truncate(m.Text, 200))
			}
			return nil
		})
	},
}

var memoryStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show memory statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, store *memory.SQLiteStore) error {
			stats, err := store.Stats(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Path:     %s\n", store.Path())
			fmt.Fprintf(out, "Memories: %d\n", stats.Count)
			if stats.Count > 0 {
				fmt.Fprintf(out, "Oldest:   %s\n", stats.Oldest.Local().Format(time.DateTime))
				fmt.Fprintf(out, "Newest:   %s\n", stats.Newest.Local().Format(time.DateTime))
			}
			return nil
		})
	},
}

func init() {
	memorySearchCmd.Flags().IntVarP(&memorySearchLimit, "limit", "n", 5, "Maximum results")
	memoryRecentCmd.Flags().IntVarP(&memoryRecentLimit, "limit", "n", 10, "Maximum results")

	memoryCmd.AddCommand(memorySearchCmd)
	memoryCmd.AddCommand(memoryAddCmd)
	memoryCmd.AddCommand(memoryRecentCmd)
	memoryCmd.AddCommand(memoryStatsCmd)
}

// withStore opens the configured memory store for the duration of fn.
func withStore(fn func(ctx context.Context, store *memory.SQLiteStore) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(context.Background(), store)
}

// truncate shortens s to at most n runes, marking the cut.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/reconcile/pkg/reconcile/config"
	"github.com/jamesainslie/reconcile/pkg/reconcile/manifest"
	"github.com/jamesainslie/reconcile/pkg/reconcile/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View run history",
	Long: `View the history of reconciliation runs.

Every run records what it compared and what it planned, including the
paths of any scripts it wrote.`,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show details of a specific run",
	Long:  `Display detailed information about a recorded run by its ID.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean up old history entries",
	Long:  `Remove history entries older than the retention period.`,
	RunE:  runHistoryClean,
}

var (
	historyLimit int
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries to show")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

// getManifest returns a manifest instance with the configured directory.
func getManifest() (*manifest.Manifest, error) {
	cfg, err := config.Load()
	if err != nil {
		// Use the default history path if config fails to load
		return manifest.New(config.HistoryDir())
	}

	return manifest.New(cfg.History.Path)
}

// runHistory lists recent runs.
func runHistory(cmd *cobra.Command, args []string) error {
	m, err := getManifest()
	if err != nil {
		return fmt.Errorf("failed to initialize history: %w", err)
	}

	entries, err := m.List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	if len(entries) == 0 {
		printInfo("No history entries found.")
		printInfo("Run 'reconcile DIR_A DIR_B' to compare two trees.")
		return nil
	}

	// Print header
	fmt.Printf("\n%-44s  %-14s  %-6s  %-10s  %-10s\n", "ID", "OPERATION", "OPS", "COPIED", "FREED")
	fmt.Println(strings.Repeat("-", 92))

	for _, entry := range entries {
		fmt.Printf("%-44s  %-14s  %-6d  %-10s  %-10s\n",
			truncateString(entry.ID, 44),
			truncateString(string(entry.Operation), 14),
			entry.Summary.Operations,
			types.FormatSize(entry.Summary.BytesCopied),
			types.FormatSize(entry.Summary.BytesFreed),
		)
	}

	fmt.Println(strings.Repeat("-", 92))
	fmt.Printf("\nShowing %d entries. Use --limit to see more.\n", len(entries))
	fmt.Println("Use 'reconcile history show <id>' for details on a specific entry.")

	return nil
}

// runHistoryShow displays details of a specific run.
func runHistoryShow(cmd *cobra.Command, args []string) error {
	id := args[0]

	m, err := getManifest()
	if err != nil {
		return fmt.Errorf("failed to initialize history: %w", err)
	}

	entry, err := m.Get(id)
	if err != nil {
		return fmt.Errorf("failed to get entry: %w", err)
	}

	fmt.Println("\nRun Details")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("ID:         %s\n", entry.ID)
	fmt.Printf("Timestamp:  %s\n", entry.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("Operation:  %s\n", entry.Operation)
	fmt.Printf("Tree A:     %s\n", entry.Roots.A)
	fmt.Printf("Tree B:     %s\n", entry.Roots.B)

	fmt.Println("\nComparison:")
	fmt.Printf("  Identical:        %d\n", entry.Counts.Identical)
	fmt.Printf("  Modified:         %d\n", entry.Counts.Modified)
	fmt.Printf("  Moved:            %d\n", entry.Counts.Moved)
	fmt.Printf("  Only in A:        %d\n", entry.Counts.OnlyInA)
	fmt.Printf("  Only in B:        %d\n", entry.Counts.OnlyInB)
	fmt.Printf("  Duplicate groups: %d\n", entry.Counts.DuplicateGroups)

	fmt.Println("\nPlanned:")
	fmt.Printf("  Operations:  %d\n", entry.Summary.Operations)
	fmt.Printf("  Bytes copied: %s\n", types.FormatSize(entry.Summary.BytesCopied))
	fmt.Printf("  Bytes freed:  %s\n", types.FormatSize(entry.Summary.BytesFreed))

	if len(entry.Scripts) > 0 {
		fmt.Println("\nScripts:")
		for _, s := range entry.Scripts {
			fmt.Printf("  %s\n", s)
		}
	}

	return nil
}

// runHistoryClean removes old history entries.
func runHistoryClean(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	m, err := manifest.New(cfg.History.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize history: %w", err)
	}

	retentionDays := cfg.History.RetentionDays
	if retentionDays <= 0 {
		retentionDays = config.DefaultRetentionDays
	}

	printInfo("Cleaning history entries older than %d days...", retentionDays)

	if err := m.Cleanup(retentionDays); err != nil {
		return fmt.Errorf("failed to clean history: %w", err)
	}

	printInfo("History cleanup complete.")
	return nil
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

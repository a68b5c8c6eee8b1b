package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/virtuscloud/virtus/pkg/virtus/config"
	"github.com/virtuscloud/virtus/pkg/virtus/manifest"
	"github.com/virtuscloud/virtus/pkg/virtus/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View operation history",
	Long: `View the history of inspect and deploy operations.

Each inspection and deploy attempt is stored as a JSON file in the history
directory (default: $XDG_DATA_HOME/virtus/history), including the archive
digest, the mode, the entrypoint and the outcome.`,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show details of a specific operation",
	Long:  `Display detailed information about a specific operation by its ID.`,
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
	historyOp    string
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries to show")
	historyCmd.Flags().StringVar(&historyOp, "op", "", "only show this operation (inspect or deploy)")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

// getManifest returns a manifest instance with the configured directory.
func getManifest() (*manifest.Manifest, error) {
	cfg, err := loadConfig()
	if err != nil {
		// Use default manifest path if config fails to load
		return manifest.New(manifest.DefaultDir())
	}
	return manifest.New(cfg.History.Path)
}

// parseOperation validates the --op flag.
func parseOperation(s string) (manifest.OperationType, error) {
	switch op := manifest.OperationType(strings.ToLower(s)); op {
	case "", manifest.OpInspect, manifest.OpDeploy:
		return op, nil
	default:
		return "", fmt.Errorf("unknown operation %q (want inspect or deploy)", s)
	}
}

// runHistory lists recent operations.
func runHistory(cmd *cobra.Command, args []string) error {
	op, err := parseOperation(historyOp)
	if err != nil {
		return err
	}

	m, err := getManifest()
	if err != nil {
		return fmt.Errorf("failed to initialize manifest: %w", err)
	}

	entries, err := m.List(op, historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	if len(entries) == 0 {
		printInfo("No history entries found.")
		printInfo("Run 'virtus inspect <archive>' or 'virtus deploy <archive>' to get started.")
		return nil
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "\n%-34s  %-7s  %-6s  %-24s  %-14s  %s\n", "ID", "TYPE", "STATUS", "ARCHIVE", "WHEN", "ENTRYPOINT")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for _, entry := range entries {
		entrypoint := entry.Entrypoint
		if entrypoint == "" {
			entrypoint = "-"
		}
		fmt.Fprintf(w, "%-34s  %-7s  %-6s  %-24s  %-14s  %s\n",
			truncateString(entry.ID, 34),
			entry.Operation,
			entry.Status,
			truncateString(entry.Archive.Name, 24),
			humanize.Time(entry.Timestamp),
			entrypoint,
		)
	}

	fmt.Fprintln(w, strings.Repeat("-", 110))
	fmt.Fprintf(w, "\nShowing %d entries. Use --limit to see more.\n", len(entries))
	fmt.Fprintln(w, "Use 'virtus history show <id>' for details on a specific entry.")

	return nil
}

// runHistoryShow displays details of a specific operation.
func runHistoryShow(cmd *cobra.Command, args []string) error {
	m, err := getManifest()
	if err != nil {
		return fmt.Errorf("failed to initialize manifest: %w", err)
	}

	entry, err := m.Get(args[0])
	if err != nil {
		return fmt.Errorf("failed to get entry: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "\nOperation Details")
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "ID:          %s\n", entry.ID)
	fmt.Fprintf(w, "Timestamp:   %s\n", entry.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "Operation:   %s\n", entry.Operation)
	fmt.Fprintf(w, "Status:      %s\n", entry.Status)
	fmt.Fprintf(w, "Archive:     %s (%s)\n", entry.Archive.Name, types.FormatSize(entry.Archive.Size))
	if entry.Archive.SHA256 != "" {
		fmt.Fprintf(w, "SHA-256:     %s\n", entry.Archive.SHA256)
	}
	fmt.Fprintf(w, "Mode:        %s\n", entry.Mode)
	if entry.Entrypoint != "" {
		fmt.Fprintf(w, "Entrypoint:  %s\n", entry.Entrypoint)
	}
	if entry.Plan != "" {
		fmt.Fprintf(w, "Plan:        %s\n", entry.Plan)
	}
	if entry.AppID != "" {
		fmt.Fprintf(w, "App ID:      %s\n", entry.AppID)
	}
	if entry.Error != "" {
		fmt.Fprintf(w, "Error:       %s\n", entry.Error)
	}

	if len(entry.Candidates) > 0 {
		fmt.Fprintln(w, "\nCandidates:")
		fmt.Fprintln(w, strings.Repeat("-", 60))

		// Limit display to 50 candidates
		limit := min(len(entry.Candidates), 50)
		for _, c := range entry.Candidates[:limit] {
			marker := "  "
			if c == entry.Entrypoint {
				marker = "> "
			}
			fmt.Fprintf(w, "%s%s\n", marker, c)
		}
		if len(entry.Candidates) > limit {
			fmt.Fprintf(w, "\n... and %d more\n", len(entry.Candidates)-limit)
		}
	}

	return nil
}

// runHistoryClean removes old history entries.
func runHistoryClean(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	m, err := manifest.New(cfg.History.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize manifest: %w", err)
	}

	retentionDays := cfg.History.RetentionDays
	if retentionDays <= 0 {
		retentionDays = config.DefaultRetentionDays
	}

	printInfo("Cleaning history entries older than %d days...", retentionDays)

	removed, err := m.Cleanup(retentionDays)
	if err != nil {
		return fmt.Errorf("failed to clean history: %w", err)
	}

	printInfo("Removed %d entries.", removed)
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

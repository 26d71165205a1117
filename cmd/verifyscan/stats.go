package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/verifyhq/verifyscan/internal/config"
	vlog "github.com/verifyhq/verifyscan/internal/log"
	"github.com/verifyhq/verifyscan/internal/stats"
	"github.com/verifyhq/verifyscan/internal/storage"
)

// NewStatsCmd creates the stats command.
func NewStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show accumulated detection statistics",
		Long: `Stats summarizes all scans recorded in the local database:
total scans, fake content found, detection rate, and the most common
kind of fake content. Recent scan history is shown with --history.

Examples:
  # Show the summary
  verifyscan stats

  # Show the summary plus the 20 most recent scans
  verifyscan stats --history 20

  # Count scans in the last 7 days only
  verifyscan stats --days 7

  # Export everything as JSON
  verifyscan stats --export stats.json

  # Clear all statistics
  verifyscan stats --reset`,
		Args: cobra.NoArgs,
		RunE: runStatsCmd,
	}

	cmd.Flags().Int("history", 0, "Show the N most recent scans")
	cmd.Flags().Int("days", 0, "Restrict counts to the trailing N days")
	cmd.Flags().String("export", "", "Write full statistics as JSON to the given file")
	cmd.Flags().Bool("reset", false, "Clear all statistics and history")

	return cmd
}

// runStatsCmd executes the stats command.
func runStatsCmd(cmd *cobra.Command, _ []string) error {
	verbose := getVerboseFlag(cmd)
	logger := vlog.NewSecureLogger(os.Stderr, verbose)
	slog.SetDefault(logger)

	ctx := context.Background()

	store, err := storage.Open(config.XDGDataDir(), storage.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	tracker, err := stats.NewTracker(ctx, store, stats.WithLogger(logger))
	if err != nil {
		return err
	}

	if reset, _ := cmd.Flags().GetBool("reset"); reset {
		if err := tracker.Reset(ctx); err != nil {
			return err
		}
		fmt.Println("Statistics cleared.")
		return nil
	}

	if exportPath, _ := cmd.Flags().GetString("export"); exportPath != "" {
		data, err := tracker.Export()
		if err != nil {
			return err
		}
		if err := os.WriteFile(exportPath, data, 0600); err != nil {
			return fmt.Errorf("failed to write export file: %w", err)
		}
		fmt.Printf("Statistics exported to %s\n", exportPath)
		return nil
	}

	printSummary(tracker)

	if days, _ := cmd.Flags().GetInt("days"); days > 0 {
		period := tracker.StatsForPeriod(days)
		fmt.Printf("\nLast %d day(s): %d scans, %d fake items detected\n",
			period.Days, period.Scans, period.FakeDetected)
	}

	if historyN, _ := cmd.Flags().GetInt("history"); historyN > 0 {
		printHistory(tracker, historyN)
	}

	return nil
}

// printSummary prints the aggregate statistics.
func printSummary(tracker *stats.Tracker) {
	summary := tracker.Summarize()
	snapshot := tracker.Stats()

	fmt.Println("Detection Statistics")
	fmt.Println("--------------------")
	fmt.Printf("Total scans:        %d\n", summary.TotalScans)
	fmt.Printf("Fake items found:   %d\n", summary.TotalFakeDetected)
	fmt.Printf("Detection rate:     %.1f%%\n", summary.DetectionRate)
	if summary.MostCommonFakeType != "" {
		fmt.Printf("Most common kind:   %s\n", summary.MostCommonFakeType)
	}
	if summary.TotalScans > 0 {
		fmt.Printf("Scans per day:      %.1f\n", summary.ScansPerDay)
	}
	if !snapshot.LastScan.IsZero() {
		fmt.Printf("Last scan:          %s\n", snapshot.LastScan.Format("2006-01-02 15:04:05"))
	}

	if len(snapshot.ByType) > 0 && summary.TotalFakeDetected > 0 {
		fmt.Println("\nFake items by kind:")
		for kind, count := range snapshot.ByType {
			if count > 0 {
				fmt.Printf("  %-6s %d\n", kind, count)
			}
		}
	}
}

// printHistory prints the most recent scans, newest first.
func printHistory(tracker *stats.Tracker, n int) {
	snapshot := tracker.Stats()
	if len(snapshot.ScanHistory) == 0 {
		fmt.Println("\nNo scans recorded yet.")
		return
	}
	if n > len(snapshot.ScanHistory) {
		n = len(snapshot.ScanHistory)
	}

	fmt.Printf("\nRecent scans (%d of %d):\n", n, len(snapshot.ScanHistory))
	for _, record := range snapshot.ScanHistory[:n] {
		marker := " "
		if record.FakeCount() > 0 {
			marker = "!"
		}
		fmt.Printf("%s %s  %-50s  %d/%d checked, %d fake (%s)\n",
			marker,
			record.Timestamp.Format("01-02 15:04"),
			truncateURL(record.URL, 50),
			record.Completed, record.Attempted, record.FakeCount(),
			record.Duration.Round(time.Millisecond))
	}
}

// truncateURL shortens long URLs for table display.
func truncateURL(url string, n int) string {
	if len(url) <= n {
		return url
	}
	return url[:n-3] + "..."
}

// Package main provides the entry point for the verifyscan CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for verifyscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verifyscan",
		Short: "Detect AI-generated and manipulated content on web pages",
		Long: `Verifyscan checks web pages for misinformation and AI-generated content.

It extracts article text, images, videos, and audio from a page, checks
the hosting domain against known misinformation and trusted-source lists,
and runs each extracted item against a deepfake detection API.

The scan command checks pages once; the watch command keeps polling them
and rescans when their content changes.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewWatchCmd())
	cmd.AddCommand(NewStatsCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

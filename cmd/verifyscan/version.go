package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// version and commit are set at build time via ldflags. When unset,
// buildVersion falls back to module build info embedded by the
// toolchain.
var (
	version = ""
	commit  = ""
)

// buildVersion resolves the version string and commit hash, preferring
// ldflags over embedded build info.
func buildVersion() (string, string) {
	v, c := version, commit

	info, ok := debug.ReadBuildInfo()
	if !ok {
		if v == "" {
			v = "(devel)"
		}
		return v, c
	}

	if v == "" {
		v = info.Main.Version
		if v == "" {
			v = "(devel)"
		}
	}
	if c == "" {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				c = s.Value
				if len(c) > 7 {
					c = c[:7]
				}
				break
			}
		}
	}

	return v, c
}

// getVersion returns the version string for the root command.
func getVersion() string {
	v, _ := buildVersion()
	return v
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print the version and commit hash of verifyscan.`,
		Run: func(cmd *cobra.Command, _ []string) {
			v, c := buildVersion()
			if c == "" {
				c = "unknown"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "verifyscan version %s (commit %s)\n", v, c)
		},
	}
}

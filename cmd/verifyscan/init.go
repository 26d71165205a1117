package main

import (
	"context"
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/verifyhq/verifyscan/internal/config"
	"github.com/verifyhq/verifyscan/internal/storage"
)

//go:embed templates/verifyscan.yaml
var configTemplate embed.FS

// configFileName is the default configuration file name.
const configFileName = ".verifyscan"

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new verifyscan configuration file",
		Long: `Initialize creates a new .verifyscan configuration file in the current
directory and prepares the local database with default settings.

The generated file includes:
- Default settings for cooldown and item caps
- Commented examples for site-specific configurations
- A pages list for the watch command

The database is created under the XDG data directory and seeded with
the default scan settings (auto-scan, notifications, API URL,
confidence threshold, item cap). Existing settings are never
overwritten.

Examples:
  # Create .verifyscan in current directory
  verifyscan init

  # Create config file at a specific path
  verifyscan init -o myconfig.yaml

  # Force overwrite existing file
  verifyscan init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", configFileName,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")
	cmd.Flags().String("db-dir", "",
		"Database directory (default: XDG data directory)")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/verifyscan.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}
	if err := initDatabase(cmd.Context(), dbDir); err != nil {
		return err
	}

	fmt.Printf("Created configuration file: %s\n", outputPath)
	fmt.Println("\nEdit this file to configure site-specific settings such as:")
	fmt.Println("  - Authentication cookies and headers")
	fmt.Println("  - Per-site cooldown and item caps")
	fmt.Println("  - Pages for the watch command")

	return nil
}

// initDatabase creates the database and seeds the default settings.
// Seeding never overwrites settings the user already changed.
func initDatabase(ctx context.Context, dbDir string) error {
	store, err := storage.Open(dbDir, storage.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer store.Close()

	if err := store.SeedDefaultSettings(ctx, defaultSettings()); err != nil {
		return fmt.Errorf("failed to seed default settings: %w", err)
	}

	fmt.Printf("Initialized database: %s\n", dbDir)
	return nil
}

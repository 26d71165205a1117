package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/verifyhq/verifyscan/internal/config"
	"github.com/verifyhq/verifyscan/internal/detect"
	"github.com/verifyhq/verifyscan/internal/fetch"
	vlog "github.com/verifyhq/verifyscan/internal/log"
	"github.com/verifyhq/verifyscan/internal/pipeline"
	"github.com/verifyhq/verifyscan/internal/presenter"
	"github.com/verifyhq/verifyscan/internal/reputation"
	"github.com/verifyhq/verifyscan/internal/scanner"
	"github.com/verifyhq/verifyscan/internal/stats"
	"github.com/verifyhq/verifyscan/internal/storage"
	"github.com/verifyhq/verifyscan/internal/trigger"
)

// Persisted settings keys. Defaults are seeded by the init command and
// on the watch daemon's first run.
const (
	settingAutoScan      = "auto_scan"
	settingNotifications = "notifications"
	settingAPIURL        = "api_url"
	settingThreshold     = "confidence_threshold"
	settingMaxItems      = "max_items"
)

// defaultSettings returns the settings seeded into a fresh database.
func defaultSettings() map[string]string {
	return map[string]string{
		settingAutoScan:      "true",
		settingNotifications: "true",
		settingAPIURL:        config.DefaultAPIURL,
		settingThreshold:     strconv.Itoa(config.DefaultConfidenceThreshold),
		settingMaxItems:      strconv.Itoa(config.DefaultMaxItems),
	}
}

// NewWatchCmd creates the watch command.
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [url...]",
		Short: "Watch pages and rescan them when their content changes",
		Long: `Watch runs verifyscan as a daemon over a set of pages.

Each watched page is scanned once up front, then polled for content
changes. When the extracted content of a page drifts, a rescan is
triggered, subject to a per-page cooldown so busy pages cannot flood
the detection API. Outcomes are shown as badge and notification lines
and, optionally, as per-page markdown panels.

Pages can be given as arguments or listed under "pages:" in the
.verifyscan configuration file.

Examples:
  # Watch two pages with default settings
  verifyscan watch https://a.example/live https://b.example/feed

  # Poll faster and surface lower-confidence verdicts
  verifyscan watch --interval 5s --threshold 50 https://a.example/live

  # Render per-page markdown panels into ./panels
  verifyscan watch --sidebar ./panels https://a.example/live`,
		Args: cobra.ArbitraryArgs,
		RunE: runWatchCmd,
	}

	cmd.Flags().StringP("api", "a", config.DefaultAPIURL,
		"Base URL of the detection API")
	cmd.Flags().StringP("language", "l", config.DefaultLanguage,
		"Language hint for text classification (BCP 47 tag)")
	cmd.Flags().DurationP("interval", "i", config.DefaultWatchInterval,
		"Page polling interval")
	cmd.Flags().Duration("cooldown", config.DefaultCooldown,
		"Minimum interval between scans of the same page")
	cmd.Flags().Int("threshold", config.DefaultConfidenceThreshold,
		"Minimum confidence (percent) for a verdict to be surfaced")
	cmd.Flags().Bool("no-auto", false,
		"Disable automatic rescans (only the initial scan runs)")
	cmd.Flags().Bool("no-notify", false,
		"Suppress notification lines (badges still update)")
	cmd.Flags().String("sidebar", "",
		"Directory for per-page markdown detail panels")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .verifyscan in current or home directory)")
	cmd.Flags().Bool("no-save", false,
		"Do not persist scan records and statistics")

	return cmd
}

// runWatchCmd executes the watch command.
func runWatchCmd(cmd *cobra.Command, args []string) error {
	cfg, sidebarDir, err := buildWatchConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	cfg.Verbose = getVerboseFlag(cmd)
	logger := vlog.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, stopping watch...")
		cancel()
	}()

	return runWatch(ctx, cmd, cfg, sidebarDir, logger)
}

// buildWatchConfig creates a Config from watch command flags.
func buildWatchConfig(cmd *cobra.Command, args []string) (*config.Config, string, error) {
	cfg := config.NewConfig()

	var err error
	if cfg.APIURL, err = cmd.Flags().GetString("api"); err != nil {
		return nil, "", err
	}
	if cfg.Language, err = cmd.Flags().GetString("language"); err != nil {
		return nil, "", err
	}
	if cfg.WatchInterval, err = cmd.Flags().GetDuration("interval"); err != nil {
		return nil, "", err
	}
	if cfg.Cooldown, err = cmd.Flags().GetDuration("cooldown"); err != nil {
		return nil, "", err
	}
	if cfg.ConfidenceThreshold, err = cmd.Flags().GetInt("threshold"); err != nil {
		return nil, "", err
	}

	noAuto, err := cmd.Flags().GetBool("no-auto")
	if err != nil {
		return nil, "", err
	}
	cfg.AutoScan = !noAuto

	noNotify, err := cmd.Flags().GetBool("no-notify")
	if err != nil {
		return nil, "", err
	}
	cfg.Notifications = !noNotify

	sidebarDir, err := cmd.Flags().GetString("sidebar")
	if err != nil {
		return nil, "", err
	}

	if cfg.ConfigFilePath, err = cmd.Flags().GetString("config"); err != nil {
		return nil, "", err
	}
	if configPath := config.FindConfigFile(cfg.ConfigFilePath); configPath != "" {
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if cfg.ConfigFilePath != "" {
		return nil, "", fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	noSave, err := cmd.Flags().GetBool("no-save")
	if err != nil {
		return nil, "", err
	}
	cfg.SaveToDB = !noSave
	cfg.DBDir = config.XDGDataDir()

	cfg.Targets = args
	if len(cfg.Targets) == 0 && cfg.SiteConfigs != nil {
		cfg.Targets = cfg.SiteConfigs.Pages
	}
	if len(cfg.Targets) == 0 {
		return nil, "", errors.New("no pages to watch (pass URLs or list them under pages: in .verifyscan)")
	}

	return cfg, sidebarDir, nil
}

// runWatch runs the watch daemon until the context is cancelled.
func runWatch(ctx context.Context, cmd *cobra.Command, cfg *config.Config, sidebarDir string, logger *slog.Logger) error {
	var store *storage.Store
	var tracker *stats.Tracker
	if cfg.SaveToDB {
		var err error
		store, err = storage.Open(cfg.DBDir, storage.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer store.Close()

		if err := applyPersistedSettings(ctx, cmd, store, cfg); err != nil {
			return err
		}

		tracker, err = stats.NewTracker(ctx, store, stats.WithLogger(logger))
		if err != nil {
			return err
		}
	}

	// No transport timeout on the detection client; the orchestrator
	// bounds every call with a per-kind context deadline.
	client := detect.NewClient(cfg.APIURL,
		detect.WithHTTPClient(&http.Client{}),
		detect.WithLanguage(cfg.Language),
	)
	fetcher := fetch.New(&http.Client{Timeout: cfg.FetchTimeout},
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
	)

	presentOpts := []presenter.Option{
		presenter.WithNotifications(cfg.Notifications),
		presenter.WithThreshold(cfg.ConfidenceThreshold),
		presenter.WithLogger(logger),
	}
	if sidebarDir != "" {
		presentOpts = append(presentOpts, presenter.WithSidebarDir(sidebarDir))
	}
	console := presenter.New(os.Stdout, presentOpts...)

	orchOpts := []scanner.Option{
		scanner.WithLogger(logger),
		scanner.WithPresenter(console),
	}
	if store != nil {
		orchOpts = append(orchOpts, scanner.WithStore(store))
	}
	if tracker != nil {
		orchOpts = append(orchOpts, scanner.WithTracker(tracker))
	}
	orch := scanner.New(cfg, client, fetcher, orchOpts...)

	funnel := trigger.NewFunnel(func(event trigger.Event) {
		go func() {
			if _, err := orch.HandleTrigger(ctx, event); err != nil {
				logger.Warn("triggered scan failed",
					"url", event.URL,
					"error", err.Error())
			}
		}()
	}, trigger.WithFunnelLogger(logger))
	funnel.Watch(ctx)

	watcher := trigger.NewWatcher(fetcher, funnel,
		trigger.WithInterval(cfg.WatchInterval),
		trigger.WithWatcherLogger(logger),
	)

	fmt.Printf("Watching %d page(s), polling every %s (cooldown %s)\n\n",
		len(cfg.Targets), cfg.WatchInterval, cfg.Cooldown)

	// Initial scan of every page, then hand them to the watcher.
	// Per-site cooldown overrides must land on the gate before the
	// first scan of each page.
	for _, target := range cfg.Targets {
		tabID := pipeline.TabIDForURL(target)
		if cfg.SiteConfigs != nil {
			site := cfg.SiteConfigs.GetSiteConfig(reputation.ExtractDomain(target))
			if d, ok := site.CooldownDuration(); ok {
				orch.Gate().SetCooldown(tabID, d)
			}
		}
		if _, err := orch.HandleTrigger(ctx, trigger.Event{
			Kind:  trigger.Manual,
			TabID: tabID,
			URL:   target,
			At:    time.Now(),
		}); err != nil {
			fmt.Fprintf(os.Stderr, "Initial scan failed for %s: %v\n", target, err)
		}
		watcher.Add(tabID, target)
	}

	// Hourly storage maintenance alongside the polling loop.
	if tracker != nil {
		go func() {
			ticker := time.NewTicker(config.MaintenanceInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := tracker.Maintenance(ctx); err != nil {
						logger.Warn("maintenance failed", "error", err.Error())
					}
				}
			}
		}()
	}

	err := watcher.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// applyPersistedSettings seeds default settings on first run and lets
// persisted values stand in for flags the user did not set explicitly.
func applyPersistedSettings(ctx context.Context, cmd *cobra.Command, store *storage.Store, cfg *config.Config) error {
	if err := store.SeedDefaultSettings(ctx, defaultSettings()); err != nil {
		return err
	}

	if !cmd.Flags().Changed("no-auto") {
		if v, err := store.GetSetting(ctx, settingAutoScan); err == nil && v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				cfg.AutoScan = b
			}
		}
	}
	if !cmd.Flags().Changed("no-notify") {
		if v, err := store.GetSetting(ctx, settingNotifications); err == nil && v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				cfg.Notifications = b
			}
		}
	}
	if !cmd.Flags().Changed("api") {
		if v, err := store.GetSetting(ctx, settingAPIURL); err == nil && v != "" {
			cfg.APIURL = v
		}
	}
	if !cmd.Flags().Changed("threshold") {
		if v, err := store.GetSetting(ctx, settingThreshold); err == nil && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 && n <= 100 {
				cfg.ConfidenceThreshold = n
			}
		}
	}
	if v, err := store.GetSetting(ctx, settingMaxItems); err == nil && v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= config.MinMaxItems && n <= config.MaxMaxItems {
			cfg.MaxItems = n
		}
	}
	return nil
}

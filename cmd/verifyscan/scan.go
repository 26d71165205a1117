package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/verifyhq/verifyscan/internal/config"
	"github.com/verifyhq/verifyscan/internal/detect"
	"github.com/verifyhq/verifyscan/internal/fetch"
	vlog "github.com/verifyhq/verifyscan/internal/log"
	"github.com/verifyhq/verifyscan/internal/model"
	"github.com/verifyhq/verifyscan/internal/pipeline"
	"github.com/verifyhq/verifyscan/internal/report"
	"github.com/verifyhq/verifyscan/internal/reputation"
	"github.com/verifyhq/verifyscan/internal/scanner"
	"github.com/verifyhq/verifyscan/internal/stats"
	"github.com/verifyhq/verifyscan/internal/storage"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [url...]",
		Short: "Scan web pages for AI-generated and manipulated content",
		Long: `Scan checks one or more web pages for misinformation.

For each page it:
- Checks the hosting domain against misinformation and trusted-source lists
- Extracts article text, images, videos, and audio
- Runs a sample of the extracted items against the detection API
- Reports anything flagged as AI-generated or manipulated

Examples:
  # Scan a single page
  verifyscan scan https://example.com/article

  # Scan multiple pages concurrently
  verifyscan scan https://a.example/1 https://b.example/2

  # Output JSON report
  verifyscan scan --json https://example.com/article

  # Use a custom configuration file
  verifyscan scan -c myconfig.yaml https://example.com/article

Configuration file (.verifyscan) example:
  sites:
    members.example.com:
      headers:
        Cookie: "session_id=abc123"
    noisy.example.com:
      cooldown: 2m
      maxItems: 5`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	// Detection API flags
	cmd.Flags().StringP("api", "a", config.DefaultAPIURL,
		"Base URL of the detection API")
	cmd.Flags().StringP("language", "l", config.DefaultLanguage,
		"Language hint for text classification (BCP 47 tag)")

	// Scan behavior flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultFetchTimeout,
		"Timeout for downloading each page")
	cmd.Flags().IntP("max-items", "n", config.DefaultMaxItems,
		"Maximum number of items to check per page")
	cmd.Flags().Int("threshold", config.DefaultConfidenceThreshold,
		"Minimum confidence (percent) for a verdict to be reported")

	// Batch scanning flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of concurrent page scans")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .verifyscan in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	cmd.Flags().Bool("url-check", false,
		"Also ask the detection API for a whole-page verdict")

	// Persistence flags
	cmd.Flags().Bool("no-save", false,
		"Do not persist scan records and statistics")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
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
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runScan(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.APIURL, err = cmd.Flags().GetString("api")
	if err != nil {
		return nil, err
	}

	cfg.Language, err = cmd.Flags().GetString("language")
	if err != nil {
		return nil, err
	}

	cfg.FetchTimeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.MaxItems, err = cmd.Flags().GetInt("max-items")
	if err != nil {
		return nil, err
	}

	cfg.ConfidenceThreshold, err = cmd.Flags().GetInt("threshold")
	if err != nil {
		return nil, err
	}

	cfg.BatchSize, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load site-specific configurations from config file.
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.URLCheck, err = cmd.Flags().GetBool("url-check")
	if err != nil {
		return nil, err
	}

	noSave, err := cmd.Flags().GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave
	cfg.DBDir = config.XDGDataDir()

	// Positional arguments are page URLs
	cfg.Targets = args

	return cfg, nil
}

// runScan executes the scan for all configured targets.
func runScan(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting scan",
		"targets", cfg.Targets,
		"api", cfg.APIURL,
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	var store *storage.Store
	var tracker *stats.Tracker
	if cfg.SaveToDB {
		var err error
		store, err = storage.Open(cfg.DBDir, storage.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer store.Close()
		logger.Info("database opened", "dir", cfg.DBDir)

		tracker, err = stats.NewTracker(ctx, store, stats.WithLogger(logger))
		if err != nil {
			return err
		}
	}

	// No transport timeout: every detection call is bounded by its
	// per-kind context deadline, and a video upload plus polling may
	// legitimately use the whole window.
	client := detect.NewClient(cfg.APIURL,
		detect.WithHTTPClient(&http.Client{}),
		detect.WithLanguage(cfg.Language),
	)

	if len(cfg.Targets) > 1 && cfg.BatchSize > 1 {
		return runBatchScan(ctx, cfg, client, store, tracker, logger)
	}
	return runSequentialScan(ctx, cfg, client, store, tracker, logger)
}

// runSequentialScan scans targets one at a time, applying per-site
// configuration (headers, item caps) to each.
func runSequentialScan(ctx context.Context, cfg *config.Config, client *detect.Client, store *storage.Store, tracker *stats.Tracker, logger *slog.Logger) error {
	for _, target := range cfg.Targets {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		siteConfig := getSiteConfig(cfg, target)
		if siteConfig.Disabled {
			logger.Info("site disabled by configuration, skipping", "url", target)
			continue
		}

		p := createPipelineForTarget(cfg, client, store, tracker, logger, siteConfig)
		pageReport := model.NewPageReport(pipeline.TabIDForURL(target), target)

		fmt.Printf("Scanning %s...\n", target)
		startTime := time.Now()

		if err := p.Execute(ctx, pageReport); err != nil {
			logger.Error("scan failed", "target", target, "error", err)
			fmt.Fprintf(os.Stderr, "Scan error for %s: %v\n", target, err)
			continue
		}

		elapsed := time.Since(startTime)
		fmt.Printf("Scan completed in %s\n\n", elapsed.Round(time.Millisecond))

		if err := outputReport(cfg, pageReport); err != nil {
			logger.Error("report failed", "target", target, "error", err)
		}

		if cfg.URLCheck {
			printPageVerdict(ctx, client, target)
		}
	}

	return nil
}

// printPageVerdict asks the detection API for a whole-page verdict and
// prints it. Failures are reported but never affect the exit status;
// the per-item scan already ran.
func printPageVerdict(ctx context.Context, client *detect.Client, target string) {
	result, err := client.CheckURL(ctx, target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Page verdict unavailable for %s: %v\n", target, err)
		return
	}
	if result == nil {
		fmt.Println("Page verdict: unavailable")
		return
	}

	verdict := "authentic"
	if result.IsFake() {
		verdict = "SUSPICIOUS"
	}
	if result.Source != "" {
		fmt.Printf("Page verdict: %s (%.0f%% confidence, via %s)\n",
			verdict, result.Confidence*100, result.Source)
		return
	}
	fmt.Printf("Page verdict: %s (%.0f%% confidence)\n", verdict, result.Confidence*100)
}

// runBatchScan scans multiple targets concurrently using BatchProcessor.
func runBatchScan(ctx context.Context, cfg *config.Config, client *detect.Client, store *storage.Store, tracker *stats.Tracker, logger *slog.Logger) error {
	fmt.Printf("Starting batch scan of %d pages (concurrency: %d)...\n\n",
		len(cfg.Targets), cfg.BatchSize)

	startTime := time.Now()

	// Batch mode applies default site config only; per-site headers
	// would require per-target pipeline creation.
	if cfg.SiteConfigs != nil && len(cfg.SiteConfigs.Sites) > 0 {
		logger.Warn("batch processing uses default site config only; site-specific settings are ignored",
			"siteCount", len(cfg.SiteConfigs.Sites))
		fmt.Fprintf(os.Stderr, "Warning: Site-specific configurations are ignored in batch mode. Use sequential mode (--batch 1) to apply per-site settings.\n\n")
	}

	bp := pipeline.NewBatchProcessor(
		func() *pipeline.Pipeline {
			var siteConfig config.SiteConfig
			if cfg.SiteConfigs != nil {
				siteConfig = cfg.SiteConfigs.Defaults
			}
			return createPipelineForTarget(cfg, client, store, tracker, logger, siteConfig)
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	var mu sync.Mutex
	err := bp.ProcessBatchWithCallback(ctx, cfg.Targets, func(pageReport *model.PageReport, index int) {
		mu.Lock()
		defer mu.Unlock()

		fmt.Printf("[%d/%d] Scan completed: %s\n", index+1, len(cfg.Targets), pageReport.URL)

		if err := outputReport(cfg, pageReport); err != nil {
			logger.Error("report failed", "target", pageReport.URL, "error", err)
		}

		if cfg.URLCheck {
			printPageVerdict(ctx, client, pageReport.URL)
		}
	})

	elapsed := time.Since(startTime)
	fmt.Printf("\nBatch scan completed in %s\n", elapsed.Round(time.Millisecond))

	return err
}

// getSiteConfig returns the site-specific configuration for a target
// URL, merged over the defaults.
func getSiteConfig(cfg *config.Config, target string) config.SiteConfig {
	if cfg.SiteConfigs == nil {
		return config.SiteConfig{}
	}
	return cfg.SiteConfigs.GetSiteConfig(reputation.ExtractDomain(target))
}

// createPipelineForTarget creates a scan pipeline with the given
// configuration.
func createPipelineForTarget(cfg *config.Config, client *detect.Client, store *storage.Store, tracker *stats.Tracker, logger *slog.Logger, siteConfig config.SiteConfig) *pipeline.Pipeline {
	fetchOpts := []fetch.Option{
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
	}
	if len(siteConfig.Headers) > 0 {
		fetchOpts = append(fetchOpts, fetch.WithHeaders(siteConfig.Headers))
	}
	fetcher := fetch.New(&http.Client{Timeout: cfg.FetchTimeout}, fetchOpts...)

	scanCfg := *cfg
	if siteConfig.MaxItems > 0 {
		scanCfg.MaxItems = siteConfig.MaxItems
	}
	if d, ok := siteConfig.CooldownDuration(); ok {
		scanCfg.Cooldown = d
	}

	orchOpts := []scanner.Option{scanner.WithLogger(logger)}
	if store != nil {
		orchOpts = append(orchOpts, scanner.WithStore(store))
	}
	if tracker != nil {
		orchOpts = append(orchOpts, scanner.WithTracker(tracker))
	}
	orch := scanner.New(&scanCfg, client, fetcher, orchOpts...)

	p := pipeline.New(
		pipeline.WithLogger(logger),
		pipeline.WithContinueOnError(true),
	)
	p.AddSteps(
		pipeline.NewReputationStep(),
		pipeline.NewExtractStep(orch),
		pipeline.NewClassifyStep(orch),
		pipeline.NewPersistStep(orch),
	)
	return p
}

// outputReport outputs the scan report in the requested format.
func outputReport(cfg *config.Config, pageReport *model.PageReport) error {
	var output *os.File
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports may quote page content; owner-only permissions.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewJSONWriter(output)
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output)
	}

	_, err := writer.Write(pageReport)
	return err
}

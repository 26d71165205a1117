package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These values mirror the limits enforced by the scan orchestrator and
// are chosen to cap both request volume and worst-case scan latency.
const (
	// DefaultAPIURL is the base URL of the detection API gateway.
	DefaultAPIURL = "http://localhost:8000/api/v1"

	// DefaultCooldown is the minimum interval between the starts of two
	// scans for the same page context. It keeps trigger-happy pages
	// (infinite scrollers, live tickers) from hammering the API.
	DefaultCooldown = 30 * time.Second

	// DefaultFetchTimeout is the timeout for fetching the page itself.
	// This covers only the page download, not item classification.
	DefaultFetchTimeout = 30 * time.Second

	// Per-kind classification deadlines. Each sampled item races its
	// classification call against one of these; the loser is dropped.
	// Video is the most generous because classification is asynchronous
	// on the backend and the deadline covers upload plus result polling.
	DefaultTextTimeout  = 15 * time.Second
	DefaultImageTimeout = 20 * time.Second
	DefaultVideoTimeout = 30 * time.Second
	DefaultVoiceTimeout = 20 * time.Second

	// Sampling caps per scan cycle. The extractor may find more; the
	// orchestrator forwards at most this many of each kind.
	DefaultMaxTexts  = 5
	DefaultMaxImages = 3
	DefaultMaxVideos = 2
	DefaultMaxVoices = 1

	// Text passages shorter than MinTextLength carry too little signal
	// for the model; longer ones are almost always concatenated
	// boilerplate, so the sampler skips both.
	MinTextLength = 100
	MaxTextLength = 3000

	// DefaultConfidenceThreshold is the minimum confidence (percent)
	// for a fake verdict to be surfaced to the user.
	DefaultConfidenceThreshold = 70

	// DefaultMaxItems caps the total number of items per scan.
	// User-configurable within [MinMaxItems, MaxMaxItems].
	DefaultMaxItems = 10
	MinMaxItems     = 5
	MaxMaxItems     = 50

	// DefaultBatchSize is the number of pages scanned concurrently by
	// the scan command when multiple URLs are given.
	DefaultBatchSize = 4

	// DefaultMaxBodySize limits the page (and media) download size.
	// 5MB is sufficient for HTML while preventing memory exhaustion.
	DefaultMaxBodySize = 5 * 1024 * 1024

	// DefaultUserAgent identifies verifyscan in HTTP requests.
	DefaultUserAgent = "verifyscan/1.0 (+https://github.com/verifyhq/verifyscan)"

	// DefaultPollInterval is the delay between video job status polls.
	DefaultPollInterval = 2 * time.Second

	// DefaultWatchInterval is how often the watch daemon refetches a
	// page to detect content changes.
	DefaultWatchInterval = 15 * time.Second

	// DefaultLanguage is the language hint sent with text checks.
	DefaultLanguage = "en"

	// MaintenanceInterval is how often the watch daemon runs storage
	// maintenance (history trim, stale per-tab record cleanup).
	MaintenanceInterval = time.Hour

	// AppName is the application name used for XDG directory paths.
	AppName = "verifyscan"
)

// Config holds all configuration options for verifyscan.
// This struct is populated from CLI flags and passed through the
// application via dependency injection rather than global state.
type Config struct {
	// APIURL is the base URL of the detection API.
	APIURL string

	// FetchTimeout is the timeout for downloading a page.
	FetchTimeout time.Duration

	// Cooldown is the minimum interval between scan starts for the
	// same page context.
	Cooldown time.Duration

	// AutoScan enables trigger-driven scanning in the watch daemon.
	// When false, triggers are ignored and only manual scans run.
	AutoScan bool

	// Notifications enables toast-style status output.
	Notifications bool

	// ConfidenceThreshold is the minimum confidence (percent, 0-100)
	// for a fake verdict to be surfaced.
	ConfidenceThreshold int

	// MaxItems caps total items per scan, within [5,50].
	MaxItems int

	// BatchSize is the number of concurrent page scans.
	BatchSize int

	// Language is the language hint for text classification.
	Language string

	// WatchInterval is the page refetch interval in watch mode.
	WatchInterval time.Duration

	// Verbose enables detailed log output using slog.LevelDebug.
	Verbose bool

	// ConfigFilePath is the path to the configuration file. If empty,
	// the tool searches for .verifyscan in the current directory and
	// then in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds per-site overrides loaded from the config file.
	SiteConfigs *File

	// JSONReport enables JSON report output. Mutually exclusive with
	// MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output.
	MarkdownReport bool

	// ReportFile is the output file path for the report. When set, the
	// report is written there instead of stdout.
	ReportFile string

	// URLCheck asks the detection API for a whole-page verdict
	// (check-url) in addition to the per-item checks.
	URLCheck bool

	// Targets is the list of page URLs to scan or watch.
	Targets []string

	// DBDir is the directory for the SQLite database. When empty and
	// SaveToDB is true, the XDG data directory is used.
	DBDir string

	// SaveToDB indicates whether to persist scan records and statistics.
	SaveToDB bool

	// UserAgent is the User-Agent header for all outbound requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults; callers override
// specific values from flags after creation.
func NewConfig() *Config {
	return &Config{
		APIURL:              DefaultAPIURL,
		FetchTimeout:        DefaultFetchTimeout,
		Cooldown:            DefaultCooldown,
		AutoScan:            true,
		Notifications:       true,
		ConfidenceThreshold: DefaultConfidenceThreshold,
		MaxItems:            DefaultMaxItems,
		BatchSize:           DefaultBatchSize,
		Language:            DefaultLanguage,
		WatchInterval:       DefaultWatchInterval,
		UserAgent:           DefaultUserAgent,
		MaxBodySize:         DefaultMaxBodySize,
	}
}

// XDGDataDir returns the XDG data directory for verifyscan.
// On Linux: ~/.local/share/verifyscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for verifyscan.
// On Linux: ~/.config/verifyscan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for verifyscan.
// On Linux: ~/.cache/verifyscan
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks if the configuration is valid.
// It is called once after CLI parsing, before any scanning begins, and
// returns the first error found.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}

	if c.FetchTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Cooldown < 0 {
		return ErrInvalidCooldown
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 100 {
		return ErrInvalidThreshold
	}

	if c.MaxItems < MinMaxItems || c.MaxItems > MaxMaxItems {
		return ErrInvalidMaxItems
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	return nil
}

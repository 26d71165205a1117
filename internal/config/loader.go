package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".verifyscan"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// SiteConfig holds per-site overrides for a single hostname.
type SiteConfig struct {
	// Cooldown overrides the global scan cooldown for this site.
	// Zero means use the global value.
	Cooldown string `yaml:"cooldown,omitempty"`

	// MaxItems overrides the global per-scan item cap for this site.
	MaxItems int `yaml:"maxItems,omitempty"`

	// Headers are custom HTTP headers to include when fetching pages
	// from this site (e.g. auth cookies for paywalled sources).
	Headers map[string]string `yaml:"headers,omitempty"`

	// Disabled excludes this site from auto-scanning entirely.
	Disabled bool `yaml:"disabled,omitempty"`
}

// CooldownDuration parses the per-site cooldown override. The second
// return value is false when no override is set or the value does not
// parse as a non-negative duration.
func (sc SiteConfig) CooldownDuration() (time.Duration, bool) {
	if sc.Cooldown == "" {
		return 0, false
	}
	d, err := time.ParseDuration(sc.Cooldown)
	if err != nil || d < 0 {
		return 0, false
	}
	return d, true
}

// File represents the structure of the .verifyscan configuration file.
type File struct {
	// Sites maps hostnames to their site-specific configurations.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains default site configuration applied to all
	// sites unless overridden.
	Defaults SiteConfig `yaml:"defaults,omitempty"`

	// Pages is an optional list of page URLs for the watch daemon,
	// used when no URLs are given on the command line.
	Pages []string `yaml:"pages,omitempty"`
}

// GetSiteConfig returns the configuration for a hostname, merging the
// site-specific configuration with defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults

	if sc, ok := cf.Sites[host]; ok {
		if sc.Cooldown != "" {
			result.Cooldown = sc.Cooldown
		}
		if sc.MaxItems != 0 {
			result.MaxItems = sc.MaxItems
		}
		if len(sc.Headers) > 0 {
			// Copy before merging so the shared defaults map stays intact.
			merged := make(map[string]string, len(result.Headers)+len(sc.Headers))
			for k, v := range result.Headers {
				merged[k] = v
			}
			for k, v := range sc.Headers {
				merged[k] = v
			}
			result.Headers = merged
		}
		if sc.Disabled {
			result.Disabled = true
		}
	}

	return result
}

// LoadConfigFile loads site configurations from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound. Callers
// decide whether a missing file is an error based on whether the path
// was explicitly specified by the user.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}

	if cf.Sites == nil {
		cf.Sites = make(map[string]SiteConfig)
	}

	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
//  1. If configPath is specified, use it directly
//  2. Look for .verifyscan in the current directory
//  3. Look for .verifyscan in the user's home directory
//
// Returns the path if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}

// Package config provides configuration structures and utilities for
// verifyscan. It defines the scan limits, API endpoint settings, and
// report generation preferences, plus the per-site YAML override file.
package config

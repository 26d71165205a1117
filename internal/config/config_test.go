package config

import (
	"errors"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := NewConfig()
	cfg.Targets = []string{"https://news.example.com/story"}
	return cfg
}

func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	if cfg.APIURL != DefaultAPIURL {
		t.Errorf("APIURL = %q, want %q", cfg.APIURL, DefaultAPIURL)
	}
	if cfg.Cooldown != DefaultCooldown {
		t.Errorf("Cooldown = %v, want %v", cfg.Cooldown, DefaultCooldown)
	}
	if !cfg.AutoScan || !cfg.Notifications {
		t.Error("auto-scan and notifications should default on")
	}
	if cfg.MaxItems != DefaultMaxItems {
		t.Errorf("MaxItems = %d, want %d", cfg.MaxItems, DefaultMaxItems)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:   "valid configuration",
			mutate: func(c *Config) {},
		},
		{
			name:    "no targets",
			mutate:  func(c *Config) { c.Targets = nil },
			wantErr: ErrNoTarget,
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.FetchTimeout = 0 },
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "negative cooldown",
			mutate:  func(c *Config) { c.Cooldown = -time.Second },
			wantErr: ErrInvalidCooldown,
		},
		{
			name:   "zero cooldown allowed",
			mutate: func(c *Config) { c.Cooldown = 0 },
		},
		{
			name:    "zero batch size",
			mutate:  func(c *Config) { c.BatchSize = 0 },
			wantErr: ErrInvalidBatchSize,
		},
		{
			name:    "threshold above range",
			mutate:  func(c *Config) { c.ConfidenceThreshold = 101 },
			wantErr: ErrInvalidThreshold,
		},
		{
			name:    "threshold below range",
			mutate:  func(c *Config) { c.ConfidenceThreshold = -1 },
			wantErr: ErrInvalidThreshold,
		},
		{
			name:    "max items below range",
			mutate:  func(c *Config) { c.MaxItems = MinMaxItems - 1 },
			wantErr: ErrInvalidMaxItems,
		},
		{
			name:    "max items above range",
			mutate:  func(c *Config) { c.MaxItems = MaxMaxItems + 1 },
			wantErr: ErrInvalidMaxItems,
		},
		{
			name: "conflicting report formats",
			mutate: func(c *Config) {
				c.JSONReport = true
				c.MarkdownReport = true
			},
			wantErr: ErrConflictingReportFormats,
		},
		{
			name:    "negative max body size",
			mutate:  func(c *Config) { c.MaxBodySize = -1 },
			wantErr: ErrInvalidMaxBodySize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

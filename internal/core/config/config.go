// Package config handles configuration loading and validation for taskdeck.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/colonyops/taskdeck/internal/core/parse"
)

// Config holds the daemon configuration.
type Config struct {
	Dialect      string        `yaml:"dialect"`
	TaskFile     string        `yaml:"task_file"`
	ProgressFile string        `yaml:"progress_file"`
	HTTP         HTTPConfig    `yaml:"http"`
	Archive      ArchiveConfig `yaml:"archive"`
	Watch        WatchConfig   `yaml:"watch"`
	DataDir      string        `yaml:"-"` // set by caller, not from config file
}

// HTTPConfig holds the web server settings.
type HTTPConfig struct {
	Port      int    `yaml:"port"`
	PublicDir string `yaml:"public_dir"`
}

// ArchiveConfig controls the recent-archived query window.
type ArchiveConfig struct {
	WindowDays int `yaml:"window_days"`
	MaxResults int `yaml:"max_results"`
}

// WatchConfig controls the filesystem watcher.
type WatchConfig struct {
	DebounceMS int `yaml:"debounce_ms"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Dialect:      "classic",
		TaskFile:     "task.md",
		ProgressFile: "PROGRESS.md",
		HTTP: HTTPConfig{
			Port: 3000,
		},
		Archive: ArchiveConfig{
			WindowDays: 3,
			MaxResults: 10,
		},
		Watch: WatchConfig{
			DebounceMS: 200,
		},
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the
// provided dataDir. A config without a resolvable data directory fails
// validation; the daemon must not start with an undefined data root.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
		case !os.IsNotExist(err):
			// A missing file means defaults; anything else must surface.
			return nil, fmt.Errorf("cannot access config file: %w", err)
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Dialect == "" {
		c.Dialect = defaults.Dialect
	}
	if c.TaskFile == "" {
		c.TaskFile = defaults.TaskFile
	}
	if c.ProgressFile == "" {
		c.ProgressFile = defaults.ProgressFile
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = defaults.HTTP.Port
	}
	if c.Archive.WindowDays == 0 {
		c.Archive.WindowDays = defaults.Archive.WindowDays
	}
	if c.Archive.MaxResults == 0 {
		c.Archive.MaxResults = defaults.Archive.MaxResults
	}
	if c.Watch.DebounceMS == 0 {
		c.Watch.DebounceMS = defaults.Watch.DebounceMS
	}
}

// ResolveDialect returns the active document dialect.
func (c *Config) ResolveDialect() (parse.Dialect, error) {
	return parse.DialectByName(c.Dialect)
}

// ActivePath returns the watched active area root.
func (c *Config) ActivePath() string {
	d, _ := c.ResolveDialect()
	return filepath.Join(c.DataDir, d.ActiveDir)
}

// ArchivePath returns the archival area root.
func (c *Config) ArchivePath() string {
	d, _ := c.ResolveDialect()
	return filepath.Join(c.DataDir, d.ArchiveDir)
}

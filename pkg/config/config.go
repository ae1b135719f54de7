// Package config handles loading and saving decarb configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/decarb/config.yaml
//   - Data:    ~/.local/share/decarb/ (dataset cache)
//   - State:   ~/.local/state/decarb/ (run state)
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// AnalysisConfig holds analysis window settings.
type AnalysisConfig struct {
	StartYear int `yaml:"start_year,omitempty"` // First year of the window (default 1990)
	EndYear   int `yaml:"end_year,omitempty"`   // Last year; 0 = latest available
}

// ReportConfig holds report output preferences.
type ReportConfig struct {
	Title       string `yaml:"title,omitempty"`        // Report title
	ChartFormat string `yaml:"chart_format,omitempty"` // svg or png
}

// Config is the top-level configuration for decarb.
type Config struct {
	DataURL  string         `yaml:"data_url,omitempty"` // Panel CSV location
	DataDir  string         `yaml:"data_dir,omitempty"` // Cache directory override
	Analysis AnalysisConfig `yaml:"analysis,omitempty"`
	Report   ReportConfig   `yaml:"report,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Analysis: AnalysisConfig{
			StartYear: 1990,
		},
		Report: ReportConfig{
			Title:       "GDP/CO2 Decoupling Report",
			ChartFormat: "svg",
		},
	}
}

// ConfigDir returns the XDG config directory for decarb.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "decarb")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "decarb")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path. A missing file yields
// DefaultConfig without error; a malformed file is an error.
func LoadFrom(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return DefaultConfig(), fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parse config: %w", err)
	}
	if cfg.Analysis.StartYear == 0 {
		cfg.Analysis.StartYear = 1990
	}
	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config path")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes config to a specific path, creating parent directories.
func SaveTo(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Analysis.StartYear != 1990 {
		t.Errorf("Expected start year 1990, got %d", cfg.Analysis.StartYear)
	}
	if cfg.Report.ChartFormat != "svg" {
		t.Errorf("Expected svg chart format, got %s", cfg.Report.ChartFormat)
	}
}

func TestLoadFrom_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Expected no error for missing file, got %v", err)
	}
	if cfg.Analysis.StartYear != 1990 {
		t.Errorf("Expected defaults, got %+v", cfg)
	}
}

func TestLoadFrom_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("analysis: [not a map"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Errorf("Expected error for malformed yaml")
	}
}

func TestSaveTo_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.DataURL = "https://example.com/panel.csv"
	cfg.Analysis.StartYear = 2000
	cfg.Report.Title = "Custom"

	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if loaded.DataURL != cfg.DataURL {
		t.Errorf("DataURL mismatch: %s", loaded.DataURL)
	}
	if loaded.Analysis.StartYear != 2000 {
		t.Errorf("StartYear mismatch: %d", loaded.Analysis.StartYear)
	}
	if loaded.Report.Title != "Custom" {
		t.Errorf("Title mismatch: %s", loaded.Report.Title)
	}
}

// Package datasource provides data retrieval and multi-source selection for
// decarb. It downloads the OWID CO2 panel CSV, caches parsed observations in
// SQLite, and on later runs discovers, validates, and selects the freshest
// valid source of the two.
package datasource

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Sentinel errors for the fatal failure modes.
var (
	// ErrDataUnavailable means the source dataset could not be retrieved.
	// Fatal; there is no automatic retry.
	ErrDataUnavailable = errors.New("dataset unavailable")
	// ErrMissingField means a required column is absent from the input table.
	ErrMissingField = errors.New("required column missing")
)

// DataDirEnvVar overrides the data cache directory when set.
const DataDirEnvVar = "DECARB_DATA"

// DefaultURL is the canonical OWID CO2-and-GHG panel CSV.
const DefaultURL = "https://raw.githubusercontent.com/owid/co2-data/master/owid-co2-data.csv"

// CSVName is the cached download's file name inside the data directory.
const CSVName = "owid-co2-data.csv"

// DBName is the SQLite observation cache's file name.
const DBName = "panel.db"

// SourceType identifies the type of data source.
type SourceType string

const (
	// SourceTypeSQLite is the parsed-observation cache (panel.db).
	SourceTypeSQLite SourceType = "sqlite"
	// SourceTypeCSV is a raw panel CSV, downloaded or user-supplied.
	SourceTypeCSV SourceType = "csv"
)

// Priority values for source types (higher = preferred at equal freshness).
// SQLite wins ties because it already holds parsed, validated rows.
const (
	PrioritySQLite = 100
	PriorityCSV    = 50
)

// DataSource represents a potential source of panel data.
type DataSource struct {
	// Type identifies the source type
	Type SourceType `json:"type"`
	// Path is the absolute path to the source file
	Path string `json:"path"`
	// Priority determines preference when timestamps are equal
	Priority int `json:"priority"`
	// ModTime is the last modification time of the source
	ModTime time.Time `json:"mod_time"`
	// Valid indicates whether the source passed validation
	Valid bool `json:"valid"`
	// ValidationError describes why validation failed (if Valid is false)
	ValidationError string `json:"validation_error,omitempty"`
	// RowCount is the number of data rows in the source (set during validation)
	RowCount int `json:"row_count"`
	// Size is the file size in bytes
	Size int64 `json:"size"`
}

// String returns a human-readable description of the source.
func (s DataSource) String() string {
	status := "valid"
	if !s.Valid {
		status = fmt.Sprintf("invalid: %s", s.ValidationError)
	}
	return fmt.Sprintf("%s (%s, priority=%d, mod=%s, rows=%d, %s)",
		s.Path, s.Type, s.Priority, s.ModTime.Format(time.RFC3339), s.RowCount, status)
}

// DiscoveryOptions configures source discovery behavior.
type DiscoveryOptions struct {
	// DataDir is the data cache directory (optional, auto-detected if empty)
	DataDir string
	// ValidateAfterDiscovery runs validation on each discovered source
	ValidateAfterDiscovery bool
	// IncludeInvalid includes sources that failed validation in results
	IncludeInvalid bool
	// Logger receives discovery log messages when non-nil
	Logger func(msg string)
}

// ResolveDataDir returns the data directory, respecting DECARB_DATA.
func ResolveDataDir(dataDir string) (string, error) {
	if dataDir != "" {
		return dataDir, nil
	}
	if envDir := os.Getenv(DataDirEnvVar); envDir != "" {
		return envDir, nil
	}
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "decarb"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "decarb"), nil
}

// DiscoverSources finds all potential data sources in the data directory.
func DiscoverSources(opts DiscoveryOptions) ([]DataSource, error) {
	if opts.Logger == nil {
		opts.Logger = func(string) {}
	}

	dataDir, err := ResolveDataDir(opts.DataDir)
	if err != nil {
		return nil, err
	}
	opts.Logger(fmt.Sprintf("discovering sources in: %s", dataDir))

	var sources []DataSource

	// SQLite observation cache
	dbPath := filepath.Join(dataDir, DBName)
	if info, err := os.Stat(dbPath); err == nil {
		sources = append(sources, DataSource{
			Type:     SourceTypeSQLite,
			Path:     dbPath,
			Priority: PrioritySQLite,
			ModTime:  info.ModTime(),
			Size:     info.Size(),
		})
	}

	// CSV files (cached download plus anything the user dropped in)
	entries, err := os.ReadDir(dataDir)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		// Skip partial downloads
		if strings.Contains(e.Name(), ".partial") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		sources = append(sources, DataSource{
			Type:     SourceTypeCSV,
			Path:     filepath.Join(dataDir, e.Name()),
			Priority: PriorityCSV,
			ModTime:  info.ModTime(),
			Size:     info.Size(),
		})
	}

	if opts.ValidateAfterDiscovery {
		for i := range sources {
			if err := ValidateSource(&sources[i]); err != nil {
				opts.Logger(fmt.Sprintf("validation failed for %s: %v", sources[i].Path, err))
			}
		}
		if !opts.IncludeInvalid {
			valid := sources[:0]
			for _, s := range sources {
				if s.Valid {
					valid = append(valid, s)
				}
			}
			sources = valid
		}
	}

	// Freshest first; priority breaks ties
	sort.Slice(sources, func(i, j int) bool {
		if sources[i].ModTime.Equal(sources[j].ModTime) {
			return sources[i].Priority > sources[j].Priority
		}
		return sources[i].ModTime.After(sources[j].ModTime)
	})

	opts.Logger(fmt.Sprintf("discovered %d sources", len(sources)))
	return sources, nil
}

// SelectBestSource returns the freshest valid source. Callers should have
// run discovery with validation enabled.
func SelectBestSource(sources []DataSource) (DataSource, error) {
	for _, s := range sources {
		if s.Valid {
			return s, nil
		}
	}
	return DataSource{}, fmt.Errorf("no valid data source available")
}

// ValidateSource checks that a source can be opened and contains rows,
// recording the outcome on the source itself.
func ValidateSource(s *DataSource) error {
	var (
		count int
		err   error
	)
	switch s.Type {
	case SourceTypeSQLite:
		count, err = countCachedObservations(s.Path)
	case SourceTypeCSV:
		count, err = countCSVRows(s.Path)
	default:
		err = fmt.Errorf("unknown source type: %s", s.Type)
	}

	if err != nil {
		s.Valid = false
		s.ValidationError = err.Error()
		return err
	}
	if count == 0 {
		s.Valid = false
		s.ValidationError = "source contains no rows"
		return errors.New(s.ValidationError)
	}
	s.Valid = true
	s.RowCount = count
	return nil
}

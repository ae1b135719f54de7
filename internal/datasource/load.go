package datasource

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/vanderheijden86/decarb/pkg/debug"
	"github.com/vanderheijden86/decarb/pkg/metrics"
	"github.com/vanderheijden86/decarb/pkg/model"
)

// LoadOptions controls LoadPanel.
type LoadOptions struct {
	// DataDir is the cache directory; empty means DECARB_DATA or XDG data dir.
	DataDir string
	// URL is the panel CSV location; empty means DefaultURL.
	URL string
	// CSVPath forces loading from a specific local CSV, skipping discovery.
	CSVPath string
	// Refresh forces a fresh download even if a valid source exists.
	Refresh bool
}

// LoadPanel returns the raw observation set, fetching the dataset if no
// valid local source exists. It performs smart source selection: discover
// the cached CSV and the SQLite observation cache, validate both, and load
// from the freshest valid one. After parsing a CSV it refreshes the SQLite
// cache so the next run skips parsing.
func LoadPanel(ctx context.Context, opts LoadOptions) ([]model.Observation, error) {
	defer metrics.Timer(metrics.DatasourceLoad)()

	if opts.CSVPath != "" {
		return ParseCSVFile(opts.CSVPath)
	}

	dataDir, err := ResolveDataDir(opts.DataDir)
	if err != nil {
		return nil, err
	}

	if opts.Refresh {
		if err := Fetch(ctx, opts.URL, filepath.Join(dataDir, CSVName)); err != nil {
			return nil, err
		}
	}

	rows, err := loadSmart(dataDir)
	if err == nil {
		return rows, nil
	}
	if opts.Refresh {
		// Already fetched above; a second attempt would not change anything.
		return nil, err
	}

	debug.Log("datasource: no valid local source (%v), fetching", err)
	if err := Fetch(ctx, opts.URL, filepath.Join(dataDir, CSVName)); err != nil {
		return nil, err
	}
	return loadSmart(dataDir)
}

// loadSmart discovers sources, validates, selects the best, and loads it.
func loadSmart(dataDir string) ([]model.Observation, error) {
	sources, err := DiscoverSources(DiscoveryOptions{
		DataDir:                dataDir,
		ValidateAfterDiscovery: true,
		IncludeInvalid:         false,
		Logger:                 func(msg string) { debug.Log("datasource: %s", msg) },
	})
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: no valid sources in %s", ErrDataUnavailable, dataDir)
	}

	best, err := SelectBestSource(sources)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	return LoadFromSource(best, dataDir)
}

// LoadFromSource loads observations from a specific DataSource, dispatching
// on source type. A CSV load repopulates the SQLite cache as a side effect;
// cache write failures are logged, not fatal, since the rows are already in
// hand.
func LoadFromSource(source DataSource, dataDir string) ([]model.Observation, error) {
	debug.Log("datasource: loading from %s", source)

	switch source.Type {
	case SourceTypeSQLite:
		cache, err := OpenCacheReadOnly(source.Path)
		if err != nil {
			return nil, fmt.Errorf("open SQLite source %s: %w", source.Path, err)
		}
		defer cache.Close()
		return cache.LoadObservations()

	case SourceTypeCSV:
		rows, err := ParseCSVFile(source.Path)
		if err != nil {
			return nil, err
		}
		if err := refreshCache(dataDir, rows); err != nil {
			debug.Log("datasource: cache refresh failed: %v", err)
		}
		return rows, nil

	default:
		return nil, fmt.Errorf("unknown source type: %s", source.Type)
	}
}

func refreshCache(dataDir string, rows []model.Observation) error {
	cache, err := OpenCache(filepath.Join(dataDir, DBName))
	if err != nil {
		return err
	}
	defer cache.Close()
	return cache.WriteObservations(rows)
}

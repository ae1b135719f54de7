package datasource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/vanderheijden86/decarb/pkg/debug"
	"github.com/vanderheijden86/decarb/pkg/metrics"
)

// Fetch downloads the panel CSV to destPath in a single synchronous attempt.
// There is deliberately no retry: a failed fetch is surfaced immediately as
// ErrDataUnavailable and the caller halts. The download goes to a .partial
// file first and is renamed only on success, so discovery never sees a
// truncated CSV.
func Fetch(ctx context.Context, url, destPath string) error {
	defer metrics.Timer(metrics.DatasourceFetch)()

	if url == "" {
		url = DefaultURL
	}
	debug.Log("datasource: fetching %s", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned %s", ErrDataUnavailable, url, resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	partial := destPath + ".partial"
	f, err := os.Create(partial)
	if err != nil {
		return fmt.Errorf("create download file: %w", err)
	}

	n, err := io.Copy(f, resp.Body)
	closeErr := f.Close()
	if err != nil {
		os.Remove(partial)
		return fmt.Errorf("%w: download interrupted: %v", ErrDataUnavailable, err)
	}
	if closeErr != nil {
		os.Remove(partial)
		return fmt.Errorf("close download file: %w", closeErr)
	}

	if err := os.Rename(partial, destPath); err != nil {
		os.Remove(partial)
		return fmt.Errorf("finalize download: %w", err)
	}

	debug.Log("datasource: fetched %d bytes to %s", n, destPath)
	return nil
}

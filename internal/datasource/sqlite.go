package datasource

import (
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/decarb/pkg/model"
)

// SQLiteCache persists parsed observations so later runs can skip CSV
// parsing entirely. One row per (country, year).
type SQLiteCache struct {
	db   *sql.DB
	path string
}

const cacheSchema = `
CREATE TABLE IF NOT EXISTS observations (
	country    TEXT NOT NULL,
	year       INTEGER NOT NULL,
	gdp        REAL,
	co2        REAL,
	population REAL,
	PRIMARY KEY (country, year)
);
`

// OpenCache opens (creating if needed) the observation cache for writing.
func OpenCache(path string) (*SQLiteCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path))
	if err != nil {
		return nil, fmt.Errorf("cannot open cache database: %w", err)
	}
	if _, err := db.Exec(cacheSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}
	return &SQLiteCache{db: db, path: path}, nil
}

// OpenCacheReadOnly opens the observation cache for reading, with the read
// pragmas tuned the same way as the rest of the corpus.
func OpenCacheReadOnly(path string) (*SQLiteCache, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open cache database: %w", err)
	}

	pragmas := []string{
		"PRAGMA cache_size = -64000", // 64MB cache
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		// Non-fatal; fall back to defaults
		db.Exec(pragma)
	}

	return &SQLiteCache{db: db, path: path}, nil
}

// Close closes the database connection.
func (c *SQLiteCache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// WriteObservations replaces the cache contents with the given rows in a
// single transaction. NaN metrics are stored as NULL.
func (c *SQLiteCache) WriteObservations(rows []model.Observation) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("begin cache write: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM observations"); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}

	stmt, err := tx.Prepare("INSERT OR REPLACE INTO observations (country, year, gdp, co2, population) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare cache insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.Exec(r.Country, r.Year, nullable(r.GDP), nullable(r.CO2), nullable(r.Population)); err != nil {
			return fmt.Errorf("insert %s/%d: %w", r.Country, r.Year, err)
		}
	}
	return tx.Commit()
}

// LoadObservations reads all cached observations, NULLs mapping back to NaN.
func (c *SQLiteCache) LoadObservations() ([]model.Observation, error) {
	rows, err := c.db.Query("SELECT country, year, gdp, co2, population FROM observations ORDER BY country, year")
	if err != nil {
		return nil, fmt.Errorf("query cache: %w", err)
	}
	defer rows.Close()

	var out []model.Observation
	for rows.Next() {
		var (
			o                    model.Observation
			gdp, co2, population sql.NullFloat64
		)
		if err := rows.Scan(&o.Country, &o.Year, &gdp, &co2, &population); err != nil {
			return nil, fmt.Errorf("scan cache row: %w", err)
		}
		o.GDP = fromNull(gdp)
		o.CO2 = fromNull(co2)
		o.Population = fromNull(population)
		out = append(out, o)
	}
	return out, rows.Err()
}

// countCachedObservations is used by source validation.
func countCachedObservations(path string) (int, error) {
	c, err := OpenCacheReadOnly(path)
	if err != nil {
		return 0, err
	}
	defer c.Close()

	var count int
	if err := c.db.QueryRow("SELECT COUNT(*) FROM observations").Scan(&count); err != nil {
		return 0, fmt.Errorf("count cache rows: %w", err)
	}
	return count, nil
}

func nullable(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func fromNull(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

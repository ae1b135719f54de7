package datasource

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/vanderheijden86/decarb/pkg/debug"
	"github.com/vanderheijden86/decarb/pkg/model"
)

// requiredColumns are the panel columns the core contract demands. Any
// replacement source must supply these per (country, year).
var requiredColumns = []string{"country", "year", "gdp", "co2", "population"}

// ParseCSV reads a panel CSV into raw observations. The header must contain
// every required column or ErrMissingField is returned; extra columns are
// ignored. Missing or unparsable numeric cells become NaN so the panel
// filter can drop them, and rows with an unparsable year are skipped
// outright since they cannot be placed in the window.
func ParseCSV(r io.Reader) ([]model.Observation, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read header: %v", ErrDataUnavailable, err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingField, name)
		}
	}

	var (
		rows    []model.Observation
		skipped int
	)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}

		year, err := strconv.Atoi(field(record, cols["year"]))
		if err != nil {
			skipped++
			continue
		}

		rows = append(rows, model.Observation{
			Country:    field(record, cols["country"]),
			Year:       year,
			GDP:        parseFloat(field(record, cols["gdp"])),
			CO2:        parseFloat(field(record, cols["co2"])),
			Population: parseFloat(field(record, cols["population"])),
		})
	}

	if skipped > 0 {
		debug.Log("datasource: skipped %d rows with unparsable year", skipped)
	}
	return rows, nil
}

// ParseCSVFile opens and parses a panel CSV from disk.
func ParseCSVFile(path string) ([]model.Observation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	defer f.Close()
	return ParseCSV(f)
}

// countCSVRows validates the header and counts data rows without keeping
// them in memory. Used by source validation.
func countCSVRows(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return 0, fmt.Errorf("cannot read header: %w", err)
	}
	cols := make(map[string]bool, len(header))
	for _, name := range header {
		cols[name] = true
	}
	for _, name := range requiredColumns {
		if !cols[name] {
			return 0, fmt.Errorf("%w: %q", ErrMissingField, name)
		}
	}

	count := 0
	for {
		if _, err := cr.Read(); err == io.EOF {
			break
		} else if err != nil {
			return 0, err
		}
		count++
	}
	return count, nil
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}

// parseFloat maps empty or malformed cells to NaN, the loader's missing
// marker.
func parseFloat(s string) float64 {
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

package datasource

import (
	"errors"
	"math"
	"strings"
	"testing"
)

const sampleCSV = `country,year,iso_code,population,gdp,co2
France,1990,FRA,58000000,1.5e12,390.5
France,1991,FRA,58200000,1.52e12,400.1
Estonia,1990,EST,1570000,,21.6
Estonia,2023,EST,1360000,4.1e10,7.0
`

// ============================================================================
// ParseCSV tests
// ============================================================================

func TestParseCSV_ReadsRows(t *testing.T) {
	rows, err := ParseCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("ParseCSV failed: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("Expected 4 rows, got %d", len(rows))
	}

	r := rows[0]
	if r.Country != "France" || r.Year != 1990 {
		t.Errorf("Unexpected first row: %+v", r)
	}
	if r.GDP != 1.5e12 || r.CO2 != 390.5 || r.Population != 58000000 {
		t.Errorf("Unexpected metrics: %+v", r)
	}
}

func TestParseCSV_MissingCellsBecomeNaN(t *testing.T) {
	rows, err := ParseCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("ParseCSV failed: %v", err)
	}

	estonia1990 := rows[2]
	if !math.IsNaN(estonia1990.GDP) {
		t.Errorf("Expected missing gdp to be NaN, got %v", estonia1990.GDP)
	}
	if estonia1990.CO2 != 21.6 {
		t.Errorf("Expected co2 21.6, got %v", estonia1990.CO2)
	}
}

func TestParseCSV_MissingColumnIsFatal(t *testing.T) {
	csv := "country,year,population,co2\nFrance,1990,58000000,390.5\n"

	_, err := ParseCSV(strings.NewReader(csv))

	if !errors.Is(err, ErrMissingField) {
		t.Fatalf("Expected ErrMissingField, got %v", err)
	}
	if !strings.Contains(err.Error(), "gdp") {
		t.Errorf("Expected error to name the missing column, got %q", err)
	}
}

func TestParseCSV_SkipsUnparsableYear(t *testing.T) {
	csv := "country,year,gdp,co2,population\nFrance,notayear,1e12,390,58000000\nFrance,1990,1e12,390,58000000\n"

	rows, err := ParseCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ParseCSV failed: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("Expected 1 row, got %d", len(rows))
	}
}

func TestParseCSV_EmptyBody(t *testing.T) {
	rows, err := ParseCSV(strings.NewReader("country,year,gdp,co2,population\n"))
	if err != nil {
		t.Fatalf("ParseCSV failed: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("Expected no rows, got %d", len(rows))
	}
}

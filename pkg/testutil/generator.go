// Package testutil provides deterministic synthetic panel data for tests.
package testutil

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/vanderheijden86/decarb/pkg/model"
)

// PanelConfig controls synthetic panel generation.
type PanelConfig struct {
	// Seed makes generation deterministic.
	Seed int64
	// Countries is how many synthetic countries to generate.
	Countries int
	// StartYear and EndYear bound the generated window (inclusive).
	StartYear int
	EndYear   int
	// GDPGrowth and CO2Growth are the mean annual growth rates (e.g. 0.03).
	// Each country gets a per-country jitter on top.
	GDPGrowth float64
	CO2Growth float64
	// MissingRate is the fraction of cells replaced by NaN (0..1).
	MissingRate float64
}

// DefaultPanelConfig returns a small, fully-populated panel.
func DefaultPanelConfig() PanelConfig {
	return PanelConfig{
		Seed:      42,
		Countries: 10,
		StartYear: 1990,
		EndYear:   2023,
		GDPGrowth: 0.03,
		CO2Growth: 0.01,
	}
}

// GeneratePanel produces synthetic observations: one row per (country,
// year), with GDP, CO2, and population following noisy exponential paths.
// Output is deterministic for a given config.
func GeneratePanel(cfg PanelConfig) []model.Observation {
	rng := rand.New(rand.NewSource(cfg.Seed))

	var rows []model.Observation
	for c := 0; c < cfg.Countries; c++ {
		country := fmt.Sprintf("Country %02d", c)

		gdp := 1e10 * (1 + 9*rng.Float64())     // 10B..100B
		co2 := 10 * (1 + 9*rng.Float64())       // 10..100 Mt
		pop := 1e6 * (1 + 99*rng.Float64())     // 1M..100M
		gdpGrowth := cfg.GDPGrowth + 0.01*rng.NormFloat64()
		co2Growth := cfg.CO2Growth + 0.01*rng.NormFloat64()

		for year := cfg.StartYear; year <= cfg.EndYear; year++ {
			row := model.Observation{
				Country:    country,
				Year:       year,
				GDP:        gdp,
				CO2:        co2,
				Population: math.Round(pop),
			}
			if cfg.MissingRate > 0 {
				if rng.Float64() < cfg.MissingRate {
					row.GDP = math.NaN()
				}
				if rng.Float64() < cfg.MissingRate {
					row.CO2 = math.NaN()
				}
			}
			rows = append(rows, row)

			gdp *= 1 + gdpGrowth + 0.005*rng.NormFloat64()
			co2 *= 1 + co2Growth + 0.005*rng.NormFloat64()
			pop *= 1.01
		}
	}
	return rows
}

// Obs is a shorthand constructor for a single valid observation.
func Obs(country string, year int, gdp, co2, pop float64) model.Observation {
	return model.Observation{Country: country, Year: year, GDP: gdp, CO2: co2, Population: pop}
}

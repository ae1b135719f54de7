// Package model defines the domain types shared across the decarb pipeline:
// raw panel observations, income brackets, decoupling statuses, and the
// per-country comparison records the classifier produces.
package model

import "math"

// Analysis window and unit constants.
const (
	// StartYear is the default first year of the analysis window.
	StartYear = 1990

	// MegatonnesToTonnes converts the dataset's CO2 column (million tonnes)
	// to tonnes, used for per-capita figures.
	MegatonnesToTonnes = 1e6

	// IntensityScale converts (CO2 in million tonnes) / (GDP in dollars)
	// to kilograms of CO2 per $1,000 of GDP.
	IntensityScale = 1e12
)

// Income bracket thresholds on GDP per capita (constant dollars).
const (
	HighIncomeThreshold        = 40000.0
	UpperMiddleIncomeThreshold = 12000.0
	LowerMiddleIncomeThreshold = 4000.0
)

// Plausibility bounds on percent changes over the comparison window.
// Changes at or beyond these magnitudes are treated as data artifacts
// (near-zero base values) and excluded before classification.
const (
	MaxCO2PctChange = 300.0
	MaxGDPPctChange = 500.0
)

// Observation is one (country, year) record from the cleaned panel.
// GDP is in constant dollars, CO2 in million tonnes, Population in persons.
// Per-capita fields and Bracket are derived during cleaning.
type Observation struct {
	Country      string        `json:"country"`
	Year         int           `json:"year"`
	GDP          float64       `json:"gdp"`
	CO2          float64       `json:"co2"`
	Population   float64       `json:"population"`
	GDPPerCapita float64       `json:"gdp_per_capita"`
	CO2PerCapita float64       `json:"co2_per_capita"`
	Bracket      IncomeBracket `json:"bracket,omitempty"`
}

// Valid reports whether the observation has all three base metrics present
// and positive. Missing values are represented as NaN by the loader.
func (o Observation) Valid() bool {
	for _, v := range []float64{o.GDP, o.CO2, o.Population} {
		if math.IsNaN(v) || v <= 0 {
			return false
		}
	}
	return true
}

// IncomeBracket classifies a country by GDP per capita at the latest year of
// data. A country has exactly one bracket for the whole analysis period.
type IncomeBracket string

const (
	BracketHigh        IncomeBracket = "high"
	BracketUpperMiddle IncomeBracket = "upper_middle"
	BracketLowerMiddle IncomeBracket = "lower_middle"
	BracketLow         IncomeBracket = "low"
)

// Brackets lists all income brackets from richest to poorest, the order
// used in report tables.
var Brackets = []IncomeBracket{BracketHigh, BracketUpperMiddle, BracketLowerMiddle, BracketLow}

// BracketFor returns the income bracket for a GDP-per-capita value.
func BracketFor(gdpPerCapita float64) IncomeBracket {
	switch {
	case gdpPerCapita >= HighIncomeThreshold:
		return BracketHigh
	case gdpPerCapita >= UpperMiddleIncomeThreshold:
		return BracketUpperMiddle
	case gdpPerCapita >= LowerMiddleIncomeThreshold:
		return BracketLowerMiddle
	default:
		return BracketLow
	}
}

// Label returns the human-readable bracket name.
func (b IncomeBracket) Label() string {
	switch b {
	case BracketHigh:
		return "High income"
	case BracketUpperMiddle:
		return "Upper-middle income"
	case BracketLowerMiddle:
		return "Lower-middle income"
	case BracketLow:
		return "Low income"
	default:
		return string(b)
	}
}

// DecouplingStatus is the classification of a country's GDP/CO2 relationship
// over the comparison window. Statuses are mutually exclusive and assigned
// once per country.
type DecouplingStatus string

const (
	// StatusAbsolute: the economy grew while emissions fell in absolute terms.
	StatusAbsolute DecouplingStatus = "absolute_decoupling"
	// StatusRelative: both grew, but emissions grew slower than the economy.
	StatusRelative DecouplingStatus = "relative_decoupling"
	// StatusNone: emissions grew at or above the rate of GDP growth.
	StatusNone DecouplingStatus = "no_decoupling"
	// StatusOther: GDP did not grow; excluded from reported percentages.
	StatusOther DecouplingStatus = "other"
)

// Statuses lists all decoupling statuses in report order.
var Statuses = []DecouplingStatus{StatusAbsolute, StatusRelative, StatusNone, StatusOther}

// Label returns the human-readable status name.
func (s DecouplingStatus) Label() string {
	switch s {
	case StatusAbsolute:
		return "Absolute Decoupling"
	case StatusRelative:
		return "Relative Decoupling"
	case StatusNone:
		return "No Decoupling"
	case StatusOther:
		return "Other"
	default:
		return string(s)
	}
}

// CountryComparison is the endpoint comparison for one country: absolute
// values at the country's first and last qualifying years, the derived
// percent changes, and the assigned status.
type CountryComparison struct {
	Country      string           `json:"country"`
	Bracket      IncomeBracket    `json:"bracket,omitempty"`
	StartYear    int              `json:"start_year"`
	EndYear      int              `json:"end_year"`
	GDPStart     float64          `json:"gdp_start"`
	GDPEnd       float64          `json:"gdp_end"`
	CO2Start     float64          `json:"co2_start"`
	CO2End       float64          `json:"co2_end"`
	GDPPctChange float64          `json:"gdp_pct_change"`
	CO2PctChange float64          `json:"co2_pct_change"`
	Status       DecouplingStatus `json:"status"`
}

// PctChange returns the percent change from start to end, using absolute
// values (not indexed ones).
func PctChange(start, end float64) float64 {
	return 100 * (end - start) / start
}

// Intensity returns carbon intensity in kg CO2 per $1,000 of GDP for a
// CO2 value in million tonnes and GDP in dollars.
func Intensity(co2, gdp float64) float64 {
	return co2 * IntensityScale / gdp
}

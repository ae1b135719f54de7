// Package decouple implements the decoupling classifier: it compares each
// country's GDP and CO2 endpoint values over the analysis window and
// assigns exactly one decoupling status per country.
package decouple

import (
	"fmt"
	"math"
	"sort"

	"github.com/vanderheijden86/decarb/pkg/debug"
	"github.com/vanderheijden86/decarb/pkg/metrics"
	"github.com/vanderheijden86/decarb/pkg/model"
)

// Classify maps a pair of percent changes to a decoupling status. The rule
// is ordered; the first matching condition wins:
//
//  1. GDP grew and emissions fell in absolute terms: absolute decoupling.
//  2. GDP grew and emissions changed slower than GDP: relative decoupling.
//  3. GDP grew and emissions kept pace or worse: no decoupling.
//  4. GDP did not grow: other, excluded from reported percentages.
//
// Classify is pure and total over all finite inputs; the plausibility guard
// belongs to Compare, not here.
func Classify(gdpPct, co2Pct float64) model.DecouplingStatus {
	switch {
	case gdpPct > 0 && co2Pct < 0:
		return model.StatusAbsolute
	case gdpPct > 0 && co2Pct < gdpPct:
		return model.StatusRelative
	case gdpPct > 0:
		return model.StatusNone
	default:
		return model.StatusOther
	}
}

// Plausible reports whether a pair of percent changes is within the
// data-quality bounds. Changes beyond them almost always trace back to a
// near-zero base value, not real economic history.
func Plausible(gdpPct, co2Pct float64) bool {
	return math.Abs(co2Pct) < model.MaxCO2PctChange && math.Abs(gdpPct) < model.MaxGDPPctChange
}

// Exclusion reasons.
const (
	ReasonInsufficientHistory = "insufficient_history"
	ReasonImplausibleChange   = "implausible_change"
)

// Exclusion records a country left out of the comparison table and why.
type Exclusion struct {
	Country      string  `json:"country"`
	Reason       string  `json:"reason"`
	GDPPctChange float64 `json:"gdp_pct_change,omitempty"`
	CO2PctChange float64 `json:"co2_pct_change,omitempty"`
}

// Compare builds one CountryComparison per country with at least two
// qualifying years, using the country's own earliest and latest years as
// endpoints. Countries failing the plausibility guard are excluded before
// classification and returned separately; countries with fewer than two
// years are excluded as insufficient history. Neither exclusion is an
// error. Output is sorted by country name.
func Compare(rows []model.Observation) ([]model.CountryComparison, []Exclusion) {
	defer metrics.Timer(metrics.Classify)()

	type endpoints struct {
		first, last model.Observation
		years       int
	}
	byCountry := make(map[string]*endpoints)

	for _, r := range rows {
		e, ok := byCountry[r.Country]
		if !ok {
			byCountry[r.Country] = &endpoints{first: r, last: r, years: 1}
			continue
		}
		if r.Year < e.first.Year {
			e.first = r
		}
		if r.Year > e.last.Year {
			e.last = r
		}
		e.years++
	}

	countries := make([]string, 0, len(byCountry))
	for c := range byCountry {
		countries = append(countries, c)
	}
	sort.Strings(countries)

	var comparisons []model.CountryComparison
	var excluded []Exclusion

	for _, c := range countries {
		e := byCountry[c]
		if e.years < 2 {
			excluded = append(excluded, Exclusion{Country: c, Reason: ReasonInsufficientHistory})
			continue
		}

		gdpPct := model.PctChange(e.first.GDP, e.last.GDP)
		co2Pct := model.PctChange(e.first.CO2, e.last.CO2)

		if !Plausible(gdpPct, co2Pct) {
			debug.Log("decouple: %s excluded, gdp %+.1f%% co2 %+.1f%% outside plausibility bounds", c, gdpPct, co2Pct)
			excluded = append(excluded, Exclusion{
				Country:      c,
				Reason:       ReasonImplausibleChange,
				GDPPctChange: gdpPct,
				CO2PctChange: co2Pct,
			})
			continue
		}

		comparisons = append(comparisons, model.CountryComparison{
			Country:      c,
			Bracket:      e.last.Bracket,
			StartYear:    e.first.Year,
			EndYear:      e.last.Year,
			GDPStart:     e.first.GDP,
			GDPEnd:       e.last.GDP,
			CO2Start:     e.first.CO2,
			CO2End:       e.last.CO2,
			GDPPctChange: gdpPct,
			CO2PctChange: co2Pct,
			Status:       Classify(gdpPct, co2Pct),
		})
	}

	debug.Log("decouple: %d countries classified, %d excluded", len(comparisons), len(excluded))
	return comparisons, excluded
}

// Summary holds per-status counts and percentages. Percentages are over the
// classified base only: countries whose GDP did not grow (StatusOther) are
// reported as a count but excluded from the percentage denominator.
type Summary struct {
	Counts     map[model.DecouplingStatus]int     `json:"counts"`
	Percent    map[model.DecouplingStatus]float64 `json:"percent"`
	Total      int                                `json:"total"`
	Classified int                                `json:"classified"`
}

// Summarize tallies comparison records per status.
func Summarize(comparisons []model.CountryComparison) Summary {
	s := Summary{
		Counts:  make(map[model.DecouplingStatus]int),
		Percent: make(map[model.DecouplingStatus]float64),
		Total:   len(comparisons),
	}
	for _, c := range comparisons {
		s.Counts[c.Status]++
	}
	s.Classified = s.Total - s.Counts[model.StatusOther]
	if s.Classified == 0 {
		return s
	}
	for _, status := range model.Statuses {
		if status == model.StatusOther {
			continue
		}
		s.Percent[status] = 100 * float64(s.Counts[status]) / float64(s.Classified)
	}
	return s
}

// ExclusionNotes renders exclusions as data-quality notes for the report.
func ExclusionNotes(excluded []Exclusion) []string {
	var insufficient, implausible []string
	for _, e := range excluded {
		switch e.Reason {
		case ReasonInsufficientHistory:
			insufficient = append(insufficient, e.Country)
		case ReasonImplausibleChange:
			implausible = append(implausible,
				fmt.Sprintf("%s (gdp %+.1f%%, co2 %+.1f%%)", e.Country, e.GDPPctChange, e.CO2PctChange))
		}
	}

	var notes []string
	if len(insufficient) > 0 {
		notes = append(notes, fmt.Sprintf("%d countries excluded with fewer than two qualifying years", len(insufficient)))
	}
	for _, detail := range implausible {
		notes = append(notes, "implausible change excluded: "+detail)
	}
	return notes
}

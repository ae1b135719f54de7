// Package index implements the aggregation stage of the decarb pipeline:
// base-100 growth indices per group, endpoint percent changes, and
// GDP-weighted carbon-intensity series.
package index

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/vanderheijden86/decarb/pkg/debug"
	"github.com/vanderheijden86/decarb/pkg/metrics"
	"github.com/vanderheijden86/decarb/pkg/model"
)

// Grouping selects how observations are grouped before indexing.
type Grouping int

const (
	// GroupGlobal sums all countries into a single world series.
	GroupGlobal Grouping = iota
	// GroupBracket sums countries within each income bracket.
	GroupBracket
	// GroupCountry keeps one series per country.
	GroupCountry
)

// Point is one year of a group's series: absolute totals plus the base-100
// indices relative to the group's own earliest year.
type Point struct {
	Year     int     `json:"year"`
	GDP      float64 `json:"gdp"`
	CO2      float64 `json:"co2"`
	GDPIndex float64 `json:"gdp_index"`
	CO2Index float64 `json:"co2_index"`
}

// Series is a year-ordered indexed series for one group. The base year is
// the group's own earliest year present, which may differ between groups.
// Percent changes are computed from the absolute endpoint values, not from
// the indices.
type Series struct {
	Group        string  `json:"group"`
	BaseYear     int     `json:"base_year"`
	Points       []Point `json:"points"`
	GDPPctChange float64 `json:"gdp_pct_change"`
	CO2PctChange float64 `json:"co2_pct_change"`
}

// IntensityPoint is one year of a group's GDP-weighted carbon intensity,
// in kg CO2 per $1,000 of GDP.
type IntensityPoint struct {
	Year      int     `json:"year"`
	Intensity float64 `json:"intensity"`
}

// IntensitySeries is a year-ordered intensity series for one group.
type IntensitySeries struct {
	Group  string           `json:"group"`
	Points []IntensityPoint `json:"points"`
}

// BuildSeries groups the cleaned observations by the given key, orders each
// group by year, and computes base-100 indices and endpoint percent changes.
// Groups with fewer than two years are silently excluded: a single year has
// no growth to index. Output is sorted by group name for determinism.
func BuildSeries(rows []model.Observation, g Grouping) []Series {
	defer metrics.Timer(metrics.IndexBuild)()

	type yearTotal struct{ gdp, co2 float64 }
	groups := make(map[string]map[int]yearTotal)

	for _, r := range rows {
		key := groupKey(r, g)
		years, ok := groups[key]
		if !ok {
			years = make(map[int]yearTotal)
			groups[key] = years
		}
		t := years[r.Year]
		t.gdp += r.GDP
		t.co2 += r.CO2
		years[r.Year] = t
	}

	series := make([]Series, 0, len(groups))
	for key, years := range groups {
		if len(years) < 2 {
			debug.Log("index: group %q has %d year(s), excluded", key, len(years))
			continue
		}

		yearList := make([]int, 0, len(years))
		for y := range years {
			yearList = append(yearList, y)
		}
		sort.Ints(yearList)

		base := years[yearList[0]]
		last := years[yearList[len(yearList)-1]]

		s := Series{
			Group:        key,
			BaseYear:     yearList[0],
			Points:       make([]Point, 0, len(yearList)),
			GDPPctChange: model.PctChange(base.gdp, last.gdp),
			CO2PctChange: model.PctChange(base.co2, last.co2),
		}
		for _, y := range yearList {
			t := years[y]
			s.Points = append(s.Points, Point{
				Year:     y,
				GDP:      t.gdp,
				CO2:      t.co2,
				GDPIndex: 100 * t.gdp / base.gdp,
				CO2Index: 100 * t.co2 / base.co2,
			})
		}
		series = append(series, s)
	}

	sort.Slice(series, func(i, j int) bool { return series[i].Group < series[j].Group })
	return series
}

// WeightedIntensity computes, per group per year, the GDP-weighted mean of
// country carbon intensities. GDP weighting keeps small economies from
// dominating group averages the way a simple mean would. Groups need at
// least one country-year; single-year groups are kept here since intensity
// is a level, not a growth rate.
func WeightedIntensity(rows []model.Observation, g Grouping) []IntensitySeries {
	defer metrics.Timer(metrics.IndexBuild)()

	type cell struct{ intensities, weights []float64 }
	groups := make(map[string]map[int]*cell)

	for _, r := range rows {
		key := groupKey(r, g)
		years, ok := groups[key]
		if !ok {
			years = make(map[int]*cell)
			groups[key] = years
		}
		c, ok := years[r.Year]
		if !ok {
			c = &cell{}
			years[r.Year] = c
		}
		c.intensities = append(c.intensities, model.Intensity(r.CO2, r.GDP))
		c.weights = append(c.weights, r.GDP)
	}

	series := make([]IntensitySeries, 0, len(groups))
	for key, years := range groups {
		yearList := make([]int, 0, len(years))
		for y := range years {
			yearList = append(yearList, y)
		}
		sort.Ints(yearList)

		s := IntensitySeries{Group: key, Points: make([]IntensityPoint, 0, len(yearList))}
		for _, y := range yearList {
			c := years[y]
			s.Points = append(s.Points, IntensityPoint{
				Year:      y,
				Intensity: stat.Mean(c.intensities, c.weights),
			})
		}
		series = append(series, s)
	}

	sort.Slice(series, func(i, j int) bool { return series[i].Group < series[j].Group })
	return series
}

// groupKey maps an observation to its group name under the grouping.
func groupKey(r model.Observation, g Grouping) string {
	switch g {
	case GroupBracket:
		return string(r.Bracket)
	case GroupCountry:
		return r.Country
	default:
		return "world"
	}
}

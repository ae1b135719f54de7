// Package panel implements the cleaning stage of the decarb pipeline.
//
// Clean restricts a raw observation set to the analysis window, drops
// invalid rows (missing, non-positive, duplicate, or aggregate
// pseudo-country rows), derives per-capita metrics, and assigns each
// country a single income bracket from its latest year of data.
package panel

import (
	"fmt"
	"sort"

	"github.com/vanderheijden86/decarb/pkg/debug"
	"github.com/vanderheijden86/decarb/pkg/metrics"
	"github.com/vanderheijden86/decarb/pkg/model"
)

// Options controls the cleaning pass.
type Options struct {
	// StartYear is the first year retained (default model.StartYear).
	StartYear int
	// EndYear is the last year retained; 0 means the latest year present.
	EndYear int
	// Exclude overrides the aggregate-region exclusion list when non-nil.
	Exclude []string
}

// DropCounts records how many rows each cleaning rule removed.
type DropCounts struct {
	OutOfWindow int `json:"out_of_window"`
	Missing     int `json:"missing"`
	NonPositive int `json:"non_positive"`
	Aggregate   int `json:"aggregate"`
	Duplicate   int `json:"duplicate"`
}

// Total returns the total number of dropped rows.
func (d DropCounts) Total() int {
	return d.OutOfWindow + d.Missing + d.NonPositive + d.Aggregate + d.Duplicate
}

// Result is the output of a cleaning pass.
type Result struct {
	// Rows are the retained observations, ordered by country then year.
	Rows []model.Observation
	// Brackets maps each retained country to its income bracket.
	Brackets map[string]model.IncomeBracket
	// Dropped counts rows removed per rule.
	Dropped DropCounts
	// Notes are data-quality observations for the report.
	Notes []string
}

// DefaultExclusions lists the aggregate pseudo-country labels in the OWID
// panel. These are regions, income blocs, and accounting residuals, not
// countries, and must never enter country-level analysis.
var DefaultExclusions = []string{
	"World",
	"Africa",
	"Asia",
	"Europe",
	"North America",
	"South America",
	"Oceania",
	"European Union (27)",
	"European Union (28)",
	"High-income countries",
	"Upper-middle-income countries",
	"Lower-middle-income countries",
	"Low-income countries",
	"International aviation",
	"International shipping",
	"International transport",
	"Kuwaiti Oil Fires",
}

// Clean applies the filtering rules in order: year window, missing values,
// non-positive values, aggregate labels, then (country, year) deduplication
// keeping the first occurrence. Per-capita metrics are derived for every
// retained row, and each country's income bracket is computed once from its
// maximum retained year and attached to all of its rows.
//
// An empty input produces an empty Result, never an error; downstream
// stages are expected to tolerate zero rows.
func Clean(rows []model.Observation, opts Options) Result {
	defer metrics.Timer(metrics.PanelClean)()

	if opts.StartYear == 0 {
		opts.StartYear = model.StartYear
	}
	endYear := opts.EndYear
	if endYear == 0 {
		for _, r := range rows {
			if r.Year > endYear {
				endYear = r.Year
			}
		}
	}

	excluded := make(map[string]bool, len(DefaultExclusions))
	list := opts.Exclude
	if list == nil {
		list = DefaultExclusions
	}
	for _, name := range list {
		excluded[name] = true
	}

	res := Result{Brackets: make(map[string]model.IncomeBracket)}
	seen := make(map[string]bool, len(rows))

	for _, r := range rows {
		switch {
		case r.Year < opts.StartYear || r.Year > endYear:
			res.Dropped.OutOfWindow++
			continue
		case !r.Valid() && hasMissing(r):
			res.Dropped.Missing++
			continue
		case !r.Valid():
			res.Dropped.NonPositive++
			continue
		case excluded[r.Country] || isAggregateLabel(r.Country):
			res.Dropped.Aggregate++
			continue
		}

		key := fmt.Sprintf("%s\x00%d", r.Country, r.Year)
		if seen[key] {
			res.Dropped.Duplicate++
			continue
		}
		seen[key] = true

		r.GDPPerCapita = r.GDP / r.Population
		r.CO2PerCapita = r.CO2 * model.MegatonnesToTonnes / r.Population
		res.Rows = append(res.Rows, r)
	}

	sort.Slice(res.Rows, func(i, j int) bool {
		if res.Rows[i].Country != res.Rows[j].Country {
			return res.Rows[i].Country < res.Rows[j].Country
		}
		return res.Rows[i].Year < res.Rows[j].Year
	})

	assignBrackets(&res)

	debug.Log("panel: kept %d rows, dropped %d (window=%d missing=%d nonpositive=%d aggregate=%d duplicate=%d)",
		len(res.Rows), res.Dropped.Total(), res.Dropped.OutOfWindow, res.Dropped.Missing,
		res.Dropped.NonPositive, res.Dropped.Aggregate, res.Dropped.Duplicate)

	if res.Dropped.Duplicate > 0 {
		res.Notes = append(res.Notes,
			fmt.Sprintf("%d duplicate (country, year) rows dropped, keeping the first occurrence", res.Dropped.Duplicate))
	}
	if res.Dropped.Missing+res.Dropped.NonPositive > 0 {
		res.Notes = append(res.Notes,
			fmt.Sprintf("%d rows dropped for missing or non-positive gdp/co2/population", res.Dropped.Missing+res.Dropped.NonPositive))
	}

	return res
}

// assignBrackets computes each country's bracket from its latest retained
// year and left-joins it onto every row of that country. Rows are already
// sorted by (country, year), so the last row of a country's run is its
// latest year.
func assignBrackets(res *Result) {
	for i := len(res.Rows) - 1; i >= 0; i-- {
		r := res.Rows[i]
		if _, ok := res.Brackets[r.Country]; !ok {
			res.Brackets[r.Country] = model.BracketFor(r.GDPPerCapita)
		}
	}
	for i := range res.Rows {
		res.Rows[i].Bracket = res.Brackets[res.Rows[i].Country]
	}
}

// hasMissing reports whether any base metric is absent (NaN).
func hasMissing(r model.Observation) bool {
	return r.GDP != r.GDP || r.CO2 != r.CO2 || r.Population != r.Population
}

// isAggregateLabel catches aggregate entities by naming convention that are
// not on the fixed list, such as the "(GCP)" accounting variants.
func isAggregateLabel(name string) bool {
	const gcpSuffix = " (GCP)"
	if len(name) > len(gcpSuffix) && name[len(name)-len(gcpSuffix):] == gcpSuffix {
		return true
	}
	return false
}

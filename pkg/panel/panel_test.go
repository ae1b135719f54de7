package panel

import (
	"math"
	"testing"

	"github.com/vanderheijden86/decarb/pkg/model"
	"github.com/vanderheijden86/decarb/pkg/testutil"
)

// ============================================================================
// Clean filtering rules
// ============================================================================

func TestClean_YearWindow(t *testing.T) {
	rows := []model.Observation{
		testutil.Obs("Aland", 1989, 100, 50, 10),
		testutil.Obs("Aland", 1990, 100, 50, 10),
		testutil.Obs("Aland", 2023, 150, 40, 10),
	}

	res := Clean(rows, Options{})

	if len(res.Rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(res.Rows))
	}
	if res.Dropped.OutOfWindow != 1 {
		t.Errorf("Expected 1 out-of-window drop, got %d", res.Dropped.OutOfWindow)
	}
}

func TestClean_DropsMissingAndNonPositive(t *testing.T) {
	rows := []model.Observation{
		testutil.Obs("A", 2000, math.NaN(), 50, 10),
		testutil.Obs("B", 2000, 100, math.NaN(), 10),
		testutil.Obs("C", 2000, 100, 50, math.NaN()),
		testutil.Obs("D", 2000, -5, 50, 10),
		testutil.Obs("E", 2000, 100, 0, 10),
		testutil.Obs("F", 2000, 100, 50, 10),
	}

	res := Clean(rows, Options{})

	if len(res.Rows) != 1 || res.Rows[0].Country != "F" {
		t.Fatalf("Expected only F retained, got %v", res.Rows)
	}
	if res.Dropped.Missing != 3 {
		t.Errorf("Expected 3 missing drops, got %d", res.Dropped.Missing)
	}
	if res.Dropped.NonPositive != 2 {
		t.Errorf("Expected 2 non-positive drops, got %d", res.Dropped.NonPositive)
	}
}

func TestClean_ExcludesAggregates(t *testing.T) {
	rows := []model.Observation{
		testutil.Obs("World", 2000, 1000, 500, 100),
		testutil.Obs("Europe", 2000, 500, 200, 50),
		testutil.Obs("High-income countries", 2000, 800, 300, 60),
		testutil.Obs("Non-OECD (GCP)", 2000, 400, 150, 40),
		testutil.Obs("France", 2000, 100, 50, 10),
	}

	res := Clean(rows, Options{})

	if len(res.Rows) != 1 || res.Rows[0].Country != "France" {
		t.Fatalf("Expected only France retained, got %v", res.Rows)
	}
	if res.Dropped.Aggregate != 4 {
		t.Errorf("Expected 4 aggregate drops, got %d", res.Dropped.Aggregate)
	}
}

func TestClean_DeduplicatesCountryYear(t *testing.T) {
	rows := []model.Observation{
		testutil.Obs("A", 2000, 100, 50, 10),
		testutil.Obs("A", 2000, 999, 999, 99),
		testutil.Obs("A", 2001, 110, 51, 10),
	}

	res := Clean(rows, Options{})

	if len(res.Rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(res.Rows))
	}
	// First occurrence wins
	if res.Rows[0].GDP != 100 {
		t.Errorf("Expected first occurrence kept, got gdp=%v", res.Rows[0].GDP)
	}
	if res.Dropped.Duplicate != 1 {
		t.Errorf("Expected 1 duplicate drop, got %d", res.Dropped.Duplicate)
	}

	// Uniqueness invariant over the full result
	seen := make(map[[2]any]bool)
	for _, r := range res.Rows {
		key := [2]any{r.Country, r.Year}
		if seen[key] {
			t.Errorf("Duplicate (country, year) pair survived: %v", key)
		}
		seen[key] = true
	}
}

func TestClean_PositivityInvariant(t *testing.T) {
	rows := testutil.GeneratePanel(testutil.PanelConfig{
		Seed: 7, Countries: 20, StartYear: 1990, EndYear: 2023,
		GDPGrowth: 0.03, CO2Growth: 0.01, MissingRate: 0.05,
	})

	res := Clean(rows, Options{})

	for _, r := range res.Rows {
		if !(r.GDP > 0 && r.CO2 > 0 && r.Population > 0) {
			t.Fatalf("Non-positive value survived cleaning: %+v", r)
		}
	}
}

func TestClean_Empty(t *testing.T) {
	res := Clean(nil, Options{})
	if len(res.Rows) != 0 {
		t.Errorf("Expected empty result, got %d rows", len(res.Rows))
	}
	if res.Brackets == nil {
		t.Errorf("Expected non-nil brackets map")
	}
}

// ============================================================================
// Per-capita derivation and brackets
// ============================================================================

func TestClean_DerivesPerCapita(t *testing.T) {
	rows := []model.Observation{
		testutil.Obs("A", 2000, 5e10, 20, 1e6),
	}

	res := Clean(rows, Options{})

	r := res.Rows[0]
	if math.Abs(r.GDPPerCapita-50000) > 1e-6 {
		t.Errorf("Expected gdp per capita 50000, got %v", r.GDPPerCapita)
	}
	// 20 Mt over 1M people = 20 t/person
	if math.Abs(r.CO2PerCapita-20) > 1e-6 {
		t.Errorf("Expected co2 per capita 20, got %v", r.CO2PerCapita)
	}
}

func TestClean_BracketFromLatestYearOnly(t *testing.T) {
	// Poor in 1990, rich by 2023: the bracket must come from 2023 and be
	// attached to every year.
	rows := []model.Observation{
		testutil.Obs("Riser", 1990, 3e9, 10, 1e6),  // 3,000 per capita -> low
		testutil.Obs("Riser", 2023, 5e10, 10, 1e6), // 50,000 per capita -> high
	}

	res := Clean(rows, Options{})

	if got := res.Brackets["Riser"]; got != model.BracketHigh {
		t.Fatalf("Expected high bracket from latest year, got %v", got)
	}
	for _, r := range res.Rows {
		if r.Bracket != model.BracketHigh {
			t.Errorf("Year %d carries bracket %v, want %v", r.Year, r.Bracket, model.BracketHigh)
		}
	}
}

func TestBracketFor_Thresholds(t *testing.T) {
	tests := []struct {
		gdpPerCapita float64
		want         model.IncomeBracket
	}{
		{50000, model.BracketHigh},
		{40000, model.BracketHigh},
		{39999, model.BracketUpperMiddle},
		{12000, model.BracketUpperMiddle},
		{11999, model.BracketLowerMiddle},
		{4000, model.BracketLowerMiddle},
		{3999, model.BracketLow},
		{100, model.BracketLow},
	}
	for _, tt := range tests {
		if got := model.BracketFor(tt.gdpPerCapita); got != tt.want {
			t.Errorf("BracketFor(%v) = %v, want %v", tt.gdpPerCapita, got, tt.want)
		}
	}
}

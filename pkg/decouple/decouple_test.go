package decouple

import (
	"math"
	"testing"

	"github.com/vanderheijden86/decarb/pkg/model"
	"github.com/vanderheijden86/decarb/pkg/testutil"
)

// ============================================================================
// Classify tests
// ============================================================================

func TestClassify_KnownCases(t *testing.T) {
	tests := []struct {
		name   string
		gdpPct float64
		co2Pct float64
		want   model.DecouplingStatus
	}{
		// Estonia's reported case
		{"absolute decoupling", 47.8, -67.6, model.StatusAbsolute},
		// Romania: high GDP growth does not disqualify absolute decoupling
		{"absolute decoupling with high growth", 294.5, -58.5, model.StatusAbsolute},
		{"relative decoupling", 100, 40, model.StatusRelative},
		{"no decoupling", 50, 80, model.StatusNone},
		{"gdp declined", -10, -5, model.StatusOther},
		{"gdp flat", 0, -50, model.StatusOther},
		{"co2 flat counts as relative", 50, 0, model.StatusRelative},
		{"co2 matches gdp exactly", 50, 50, model.StatusNone},
		{"both fell", -20, -40, model.StatusOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.gdpPct, tt.co2Pct)
			if got != tt.want {
				t.Errorf("Classify(%v, %v) = %v, want %v", tt.gdpPct, tt.co2Pct, got, tt.want)
			}
		})
	}
}

func TestClassify_Pure(t *testing.T) {
	for i := 0; i < 5; i++ {
		if got := Classify(47.8, -67.6); got != model.StatusAbsolute {
			t.Fatalf("Classify changed answer on call %d: %v", i, got)
		}
	}
}

// ============================================================================
// Plausible tests
// ============================================================================

func TestPlausible_Bounds(t *testing.T) {
	tests := []struct {
		gdpPct, co2Pct float64
		want           bool
	}{
		{100, 100, true},
		{499.9, 299.9, true},
		{500, 0, false},
		{-500, 0, false},
		{0, 300, false},
		{0, -300, false},
		{294.5, -58.5, true},
	}
	for _, tt := range tests {
		if got := Plausible(tt.gdpPct, tt.co2Pct); got != tt.want {
			t.Errorf("Plausible(%v, %v) = %v, want %v", tt.gdpPct, tt.co2Pct, got, tt.want)
		}
	}
}

// ============================================================================
// Compare tests
// ============================================================================

func TestCompare_BuildsEndpointRecords(t *testing.T) {
	rows := []model.Observation{
		testutil.Obs("Aland", 1990, 100, 50, 10),
		testutil.Obs("Aland", 2000, 120, 55, 10),
		testutil.Obs("Aland", 2023, 150, 40, 10),
	}

	comparisons, excluded := Compare(rows)

	if len(excluded) != 0 {
		t.Fatalf("Expected no exclusions, got %v", excluded)
	}
	if len(comparisons) != 1 {
		t.Fatalf("Expected 1 comparison, got %d", len(comparisons))
	}

	c := comparisons[0]
	if c.StartYear != 1990 || c.EndYear != 2023 {
		t.Errorf("Expected window 1990-2023, got %d-%d", c.StartYear, c.EndYear)
	}
	if math.Abs(c.GDPPctChange-50) > 1e-9 {
		t.Errorf("Expected gdp change 50%%, got %v", c.GDPPctChange)
	}
	if math.Abs(c.CO2PctChange-(-20)) > 1e-9 {
		t.Errorf("Expected co2 change -20%%, got %v", c.CO2PctChange)
	}
	if c.Status != model.StatusAbsolute {
		t.Errorf("Expected absolute decoupling, got %v", c.Status)
	}
}

func TestCompare_SingleYearExcluded(t *testing.T) {
	rows := []model.Observation{
		testutil.Obs("Lonely", 2005, 100, 50, 10),
	}

	comparisons, excluded := Compare(rows)

	if len(comparisons) != 0 {
		t.Errorf("Expected no comparisons, got %d", len(comparisons))
	}
	if len(excluded) != 1 || excluded[0].Reason != ReasonInsufficientHistory {
		t.Errorf("Expected one insufficient_history exclusion, got %v", excluded)
	}
}

func TestCompare_ImplausibleExcludedBeforeClassification(t *testing.T) {
	// Near-zero base GDP produces an explosive ratio
	rows := []model.Observation{
		testutil.Obs("Spiky", 1990, 1, 50, 10),
		testutil.Obs("Spiky", 2023, 100, 40, 10),
	}

	comparisons, excluded := Compare(rows)

	if len(comparisons) != 0 {
		t.Errorf("Expected no comparisons, got %v", comparisons)
	}
	if len(excluded) != 1 {
		t.Fatalf("Expected 1 exclusion, got %d", len(excluded))
	}
	if excluded[0].Reason != ReasonImplausibleChange {
		t.Errorf("Expected implausible_change, got %s", excluded[0].Reason)
	}
	if excluded[0].GDPPctChange < model.MaxGDPPctChange {
		t.Errorf("Expected recorded gdp change >= bound, got %v", excluded[0].GDPPctChange)
	}
}

func TestCompare_OwnEndpointYears(t *testing.T) {
	// A country missing 1990 compares from its own earliest year
	rows := []model.Observation{
		testutil.Obs("Late", 1995, 200, 80, 20),
		testutil.Obs("Late", 2023, 300, 60, 20),
		testutil.Obs("Early", 1990, 100, 10, 5),
		testutil.Obs("Early", 2023, 160, 14, 5),
	}

	comparisons, _ := Compare(rows)

	if len(comparisons) != 2 {
		t.Fatalf("Expected 2 comparisons, got %d", len(comparisons))
	}
	// Sorted by country name
	if comparisons[0].Country != "Early" || comparisons[1].Country != "Late" {
		t.Fatalf("Expected sorted output, got %v", comparisons)
	}
	if comparisons[1].StartYear != 1995 {
		t.Errorf("Expected Late to index from 1995, got %d", comparisons[1].StartYear)
	}
}

func TestCompare_Empty(t *testing.T) {
	comparisons, excluded := Compare(nil)
	if len(comparisons) != 0 || len(excluded) != 0 {
		t.Errorf("Expected empty results, got %v / %v", comparisons, excluded)
	}
}

// ============================================================================
// Summarize tests
// ============================================================================

func TestSummarize_PercentagesExcludeOther(t *testing.T) {
	comparisons := []model.CountryComparison{
		{Country: "A", Status: model.StatusAbsolute},
		{Country: "B", Status: model.StatusAbsolute},
		{Country: "C", Status: model.StatusRelative},
		{Country: "D", Status: model.StatusNone},
		{Country: "E", Status: model.StatusOther},
	}

	s := Summarize(comparisons)

	if s.Total != 5 {
		t.Errorf("Expected total 5, got %d", s.Total)
	}
	if s.Classified != 4 {
		t.Errorf("Expected classified 4, got %d", s.Classified)
	}
	if got := s.Percent[model.StatusAbsolute]; math.Abs(got-50) > 1e-9 {
		t.Errorf("Expected absolute at 50%%, got %v", got)
	}
	if _, ok := s.Percent[model.StatusOther]; ok {
		t.Errorf("Other must not appear in percentages")
	}
}

func TestSummarize_AllOther(t *testing.T) {
	s := Summarize([]model.CountryComparison{
		{Country: "A", Status: model.StatusOther},
	})
	if s.Classified != 0 {
		t.Errorf("Expected classified 0, got %d", s.Classified)
	}
	if len(s.Percent) != 0 {
		t.Errorf("Expected no percentages, got %v", s.Percent)
	}
}

// Package report renders the analysis results as markdown and JSON
// artifacts: the global index table, income-bracket tables, the per-country
// comparison table, status summaries, and data-quality notes.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/decarb/pkg/decouple"
	"github.com/vanderheijden86/decarb/pkg/index"
	"github.com/vanderheijden86/decarb/pkg/metrics"
	"github.com/vanderheijden86/decarb/pkg/model"
)

// Data bundles everything a report needs. All slices are expected to be in
// the deterministic order their producers emit.
type Data struct {
	Title       string
	Generated   time.Time
	StartYear   int
	EndYear     int
	Global      []index.Series
	Brackets    []index.Series
	Intensity   []index.IntensitySeries
	Comparisons []model.CountryComparison
	Excluded    []decouple.Exclusion
	Summary     decouple.Summary
	Notes       []string
}

// GenerateMarkdown renders the full report as a markdown document.
func GenerateMarkdown(d Data) string {
	defer metrics.Timer(metrics.ReportRender)()

	var sb strings.Builder

	title := d.Title
	if title == "" {
		title = "GDP/CO2 Decoupling Report"
	}
	sb.WriteString(fmt.Sprintf("# %s\n\n", title))
	generated := d.Generated
	if generated.IsZero() {
		generated = time.Now()
	}
	sb.WriteString(fmt.Sprintf("*Generated: %s*\n\n", generated.Format(time.RFC1123)))

	writeOverview(&sb, d)
	writeGlobalTable(&sb, d.Global)
	writeBracketTable(&sb, d.Brackets)
	writeIntensityTable(&sb, d.Intensity)
	writeComparisonTable(&sb, d.Comparisons)
	writeSummary(&sb, d.Summary)
	writeNotes(&sb, d)

	return sb.String()
}

func writeOverview(sb *strings.Builder, d Data) {
	sb.WriteString("## Overview\n\n")
	window := "full available window"
	if d.StartYear != 0 {
		end := "latest"
		if d.EndYear != 0 {
			end = fmt.Sprintf("%d", d.EndYear)
		}
		window = fmt.Sprintf("%d–%s", d.StartYear, end)
	}
	sb.WriteString(fmt.Sprintf("- Analysis window: %s\n", window))
	sb.WriteString(fmt.Sprintf("- Countries compared: %d\n", d.Summary.Total))
	sb.WriteString(fmt.Sprintf("- Countries excluded: %d\n", len(d.Excluded)))
	sb.WriteString("\n")
}

func writeGlobalTable(sb *strings.Builder, global []index.Series) {
	if len(global) == 0 {
		return
	}
	sb.WriteString("## Global index (base year = 100)\n\n")
	s := global[0]
	rows := make([][]string, 0, len(s.Points))
	for _, p := range s.Points {
		rows = append(rows, []string{
			fmt.Sprintf("%d", p.Year),
			fmt.Sprintf("%.1f", p.GDPIndex),
			fmt.Sprintf("%.1f", p.CO2Index),
		})
	}
	writeTable(sb, []string{"Year", "GDP index", "CO2 index"}, rows)
	sb.WriteString(fmt.Sprintf("Over the window, global GDP changed %+.1f%% and CO2 changed %+.1f%%.\n\n",
		s.GDPPctChange, s.CO2PctChange))
}

func writeBracketTable(sb *strings.Builder, brackets []index.Series) {
	if len(brackets) == 0 {
		return
	}
	sb.WriteString("## Income brackets\n\n")

	bySeries := make(map[string]index.Series, len(brackets))
	for _, s := range brackets {
		bySeries[s.Group] = s
	}

	var rows [][]string
	for _, b := range model.Brackets {
		s, ok := bySeries[string(b)]
		if !ok {
			continue
		}
		rows = append(rows, []string{
			b.Label(),
			fmt.Sprintf("%d", s.BaseYear),
			fmt.Sprintf("%d", s.Points[len(s.Points)-1].Year),
			fmt.Sprintf("%+.1f%%", s.GDPPctChange),
			fmt.Sprintf("%+.1f%%", s.CO2PctChange),
		})
	}
	writeTable(sb, []string{"Bracket", "Base year", "End year", "GDP change", "CO2 change"}, rows)
}

func writeIntensityTable(sb *strings.Builder, intensity []index.IntensitySeries) {
	if len(intensity) == 0 {
		return
	}
	sb.WriteString("## Carbon intensity (kg CO2 per $1,000 GDP, GDP-weighted)\n\n")

	byGroup := make(map[string]index.IntensitySeries, len(intensity))
	for _, s := range intensity {
		byGroup[s.Group] = s
	}

	var rows [][]string
	appendRow := func(label string, s index.IntensitySeries) {
		if len(s.Points) == 0 {
			return
		}
		first := s.Points[0]
		last := s.Points[len(s.Points)-1]
		rows = append(rows, []string{
			label,
			fmt.Sprintf("%.0f (%d)", first.Intensity, first.Year),
			fmt.Sprintf("%.0f (%d)", last.Intensity, last.Year),
		})
	}
	if s, ok := byGroup["world"]; ok {
		appendRow("World", s)
	}
	for _, b := range model.Brackets {
		if s, ok := byGroup[string(b)]; ok {
			appendRow(b.Label(), s)
		}
	}
	writeTable(sb, []string{"Group", "Start", "End"}, rows)
}

func writeComparisonTable(sb *strings.Builder, comparisons []model.CountryComparison) {
	if len(comparisons) == 0 {
		return
	}
	sb.WriteString("## Country comparison\n\n")

	// Most decoupled first; sort a copy to keep the input order intact
	sorted := make([]model.CountryComparison, len(comparisons))
	copy(sorted, comparisons)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CO2PctChange < sorted[j].CO2PctChange
	})

	rows := make([][]string, 0, len(sorted))
	for _, c := range sorted {
		rows = append(rows, []string{
			c.Country,
			fmt.Sprintf("%d–%d", c.StartYear, c.EndYear),
			fmt.Sprintf("%+.1f%%", c.GDPPctChange),
			fmt.Sprintf("%+.1f%%", c.CO2PctChange),
			c.Status.Label(),
		})
	}
	writeTable(sb, []string{"Country", "Window", "GDP change", "CO2 change", "Status"}, rows)
}

func writeSummary(sb *strings.Builder, s decouple.Summary) {
	if s.Total == 0 {
		return
	}
	sb.WriteString("## Decoupling summary\n\n")

	var rows [][]string
	for _, status := range model.Statuses {
		count := s.Counts[status]
		pct := "—"
		if status != model.StatusOther && s.Classified > 0 {
			pct = fmt.Sprintf("%.1f%%", s.Percent[status])
		}
		rows = append(rows, []string{status.Label(), fmt.Sprintf("%d", count), pct})
	}
	writeTable(sb, []string{"Status", "Countries", "Share of classified"}, rows)
	sb.WriteString(fmt.Sprintf("Percentages are over the %d countries whose GDP grew; the %d \"Other\" countries are excluded from the base.\n\n",
		s.Classified, s.Counts[model.StatusOther]))
}

func writeNotes(sb *strings.Builder, d Data) {
	notes := append([]string{}, d.Notes...)
	notes = append(notes, decouple.ExclusionNotes(d.Excluded)...)
	if len(notes) == 0 {
		return
	}
	sb.WriteString("## Data-quality notes\n\n")
	for _, n := range notes {
		sb.WriteString("- " + n + "\n")
	}
	sb.WriteString("\n")
}

// writeTable renders a markdown table with columns padded to a uniform
// display width, so the raw markdown stays readable in a terminal.
func writeTable(sb *strings.Builder, header []string, rows [][]string) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && runewidth.StringWidth(cell) > widths[i] {
				widths[i] = runewidth.StringWidth(cell)
			}
		}
	}

	writeRow := func(cells []string) {
		sb.WriteString("|")
		for i, cell := range cells {
			sb.WriteString(" " + pad(cell, widths[i]) + " |")
		}
		sb.WriteString("\n")
	}

	writeRow(header)
	sb.WriteString("|")
	for _, w := range widths {
		sb.WriteString(strings.Repeat("-", w+2) + "|")
	}
	sb.WriteString("\n")
	for _, row := range rows {
		writeRow(row)
	}
	sb.WriteString("\n")
}

func pad(s string, width int) string {
	gap := width - runewidth.StringWidth(s)
	if gap <= 0 {
		return s
	}
	return s + strings.Repeat(" ", gap)
}

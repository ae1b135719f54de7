package chart

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/decarb/pkg/index"
)

func testSeries() index.Series {
	return index.Series{
		Group:    "world",
		BaseYear: 1990,
		Points: []index.Point{
			{Year: 1990, GDP: 100, CO2: 50, GDPIndex: 100, CO2Index: 100},
			{Year: 2000, GDP: 150, CO2: 55, GDPIndex: 150, CO2Index: 110},
			{Year: 2023, GDP: 200, CO2: 40, GDPIndex: 200, CO2Index: 80},
		},
	}
}

func TestSaveIndexChart_SVG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.svg")

	err := SaveIndexChart(Options{Path: path, Title: "World", Series: testSeries()})
	if err != nil {
		t.Fatalf("SaveIndexChart failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read chart: %v", err)
	}
	svg := string(data)
	for _, want := range []string{"<svg", "polyline", "World", "GDP index", "CO2 index"} {
		if !strings.Contains(svg, want) {
			t.Errorf("SVG missing %q", want)
		}
	}
}

func TestSaveIndexChart_PNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.png")

	err := SaveIndexChart(Options{Path: path, Series: testSeries()})
	if err != nil {
		t.Fatalf("SaveIndexChart failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read chart: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Errorf("Expected PNG magic bytes, got %q", data[:4])
	}
}

func TestSaveIndexChart_FormatInference(t *testing.T) {
	// Extension-less path defaults to SVG and gains the extension
	dir := t.TempDir()
	path := filepath.Join(dir, "chart")

	if err := SaveIndexChart(Options{Path: path, Series: testSeries()}); err != nil {
		t.Fatalf("SaveIndexChart failed: %v", err)
	}
	if _, err := os.Stat(path + ".svg"); err != nil {
		t.Errorf("Expected chart.svg to exist: %v", err)
	}
}

func TestSaveIndexChart_Errors(t *testing.T) {
	if err := SaveIndexChart(Options{Path: "x.svg"}); err == nil {
		t.Errorf("Expected error for empty series")
	}
	if err := SaveIndexChart(Options{Path: "x.bmp", Format: "bmp", Series: testSeries()}); err == nil {
		t.Errorf("Expected error for unsupported format")
	}
	if err := SaveIndexChart(Options{Format: "svg", Series: testSeries()}); err == nil {
		t.Errorf("Expected error for missing path")
	}
}

func TestBuildLayout_BaselineInFrame(t *testing.T) {
	layout := buildLayout(testSeries())

	if layout.MinIdx > 80*0.95 || layout.MaxIdx < 200 {
		t.Errorf("Layout range [%v, %v] does not cover the data", layout.MinIdx, layout.MaxIdx)
	}
	if layout.Baseline <= marginTop || layout.Baseline >= float64(chartHeight)-marginBottom {
		t.Errorf("Baseline %v outside the plot area", layout.Baseline)
	}
}

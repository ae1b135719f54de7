package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/decarb/pkg/decouple"
	"github.com/vanderheijden86/decarb/pkg/index"
	"github.com/vanderheijden86/decarb/pkg/model"
)

// Artifact is the JSON shape handed to downstream plotting and reporting
// collaborators. It exposes the same plain tabular structures as the
// markdown report; no bespoke serialization beyond standard JSON.
type Artifact struct {
	Title       string                    `json:"title"`
	Generated   time.Time                 `json:"generated"`
	StartYear   int                       `json:"start_year,omitempty"`
	EndYear     int                       `json:"end_year,omitempty"`
	Global      []index.Series            `json:"global,omitempty"`
	Brackets    []index.Series            `json:"brackets,omitempty"`
	Intensity   []index.IntensitySeries   `json:"intensity,omitempty"`
	Comparisons []model.CountryComparison `json:"comparisons,omitempty"`
	Excluded    []decouple.Exclusion      `json:"excluded,omitempty"`
	Summary     decouple.Summary          `json:"summary"`
	Notes       []string                  `json:"notes,omitempty"`
}

// BuildArtifact converts report data to its JSON artifact form.
func BuildArtifact(d Data) Artifact {
	generated := d.Generated
	if generated.IsZero() {
		generated = time.Now()
	}
	return Artifact{
		Title:       d.Title,
		Generated:   generated,
		StartYear:   d.StartYear,
		EndYear:     d.EndYear,
		Global:      d.Global,
		Brackets:    d.Brackets,
		Intensity:   d.Intensity,
		Comparisons: d.Comparisons,
		Excluded:    d.Excluded,
		Summary:     d.Summary,
		Notes:       d.Notes,
	}
}

// WriteJSON writes the JSON artifact to path, creating parent directories.
func WriteJSON(d Data, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	data, err := json.MarshalIndent(BuildArtifact(d), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

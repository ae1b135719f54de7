// Command decarb loads the OWID CO2/GDP country panel, cleans it, computes
// base-100 growth indices per cohort, classifies each country's decoupling
// status, and writes markdown/JSON/SVG report artifacts.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/vanderheijden86/decarb/internal/datasource"
	"github.com/vanderheijden86/decarb/pkg/chart"
	"github.com/vanderheijden86/decarb/pkg/config"
	"github.com/vanderheijden86/decarb/pkg/debug"
	"github.com/vanderheijden86/decarb/pkg/decouple"
	"github.com/vanderheijden86/decarb/pkg/index"
	"github.com/vanderheijden86/decarb/pkg/metrics"
	"github.com/vanderheijden86/decarb/pkg/panel"
	"github.com/vanderheijden86/decarb/pkg/report"
	"github.com/vanderheijden86/decarb/pkg/watcher"
)

// Version is set via -ldflags at release time.
var Version = "dev"

var (
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func main() {
	dataPath := flag.String("data", "", "Load panel from a local CSV instead of the cache/download")
	dataURL := flag.String("url", "", "Panel CSV URL (default: OWID CO2 dataset)")
	refresh := flag.Bool("refresh", false, "Force a fresh download of the dataset")
	startYear := flag.Int("start-year", 0, "First year of the analysis window (default 1990)")
	endYear := flag.Int("end-year", 0, "Last year of the analysis window (default: latest available)")
	outPath := flag.String("out", "", "Write the markdown report to this path")
	jsonPath := flag.String("json", "", "Write the JSON artifact to this path")
	chartsDir := flag.String("charts", "", "Render index charts (global + brackets) into this directory")
	watch := flag.Bool("watch", false, "Re-run when the dataset file changes (requires --data)")
	plain := flag.Bool("plain", false, "Print raw markdown instead of rendering for the terminal")
	showMetrics := flag.Bool("metrics", false, "Print stage timing metrics to stderr after the run")
	versionFlag := flag.Bool("version", false, "Show version")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("decarb %s\n", Version)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render(fmt.Sprintf("Config error: %v", err)))
		os.Exit(1)
	}
	if *dataURL == "" {
		*dataURL = cfg.DataURL
	}
	if *startYear == 0 {
		*startYear = cfg.Analysis.StartYear
	}
	if *endYear == 0 {
		*endYear = cfg.Analysis.EndYear
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := runOptions{
		cfg:       cfg,
		dataPath:  *dataPath,
		dataURL:   *dataURL,
		refresh:   *refresh,
		startYear: *startYear,
		endYear:   *endYear,
		outPath:   *outPath,
		jsonPath:  *jsonPath,
		chartsDir: *chartsDir,
		plain:     *plain,
	}

	if err := run(ctx, opts); err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render(fmt.Sprintf("Error: %v", err)))
		os.Exit(1)
	}

	if *watch {
		if *dataPath == "" {
			fmt.Fprintln(os.Stderr, errStyle.Render("--watch requires --data"))
			os.Exit(1)
		}
		if err := watchLoop(ctx, opts); err != nil && ctx.Err() == nil {
			fmt.Fprintln(os.Stderr, errStyle.Render(fmt.Sprintf("Watch error: %v", err)))
			os.Exit(1)
		}
	}

	if *showMetrics {
		fmt.Fprint(os.Stderr, metrics.Report())
	}
}

type runOptions struct {
	cfg       config.Config
	dataPath  string
	dataURL   string
	refresh   bool
	startYear int
	endYear   int
	outPath   string
	jsonPath  string
	chartsDir string
	plain     bool
}

// run executes the full pipeline once: load → clean → index → classify →
// render.
func run(ctx context.Context, opts runOptions) error {
	start := time.Now()

	raw, err := datasource.LoadPanel(ctx, datasource.LoadOptions{
		DataDir: opts.cfg.DataDir,
		URL:     opts.dataURL,
		CSVPath: opts.dataPath,
		Refresh: opts.refresh,
	})
	if err != nil {
		return err
	}
	debug.Log("loaded %d raw rows", len(raw))

	cleaned := panel.Clean(raw, panel.Options{StartYear: opts.startYear, EndYear: opts.endYear})

	global := index.BuildSeries(cleaned.Rows, index.GroupGlobal)
	brackets := index.BuildSeries(cleaned.Rows, index.GroupBracket)
	intensity := index.WeightedIntensity(cleaned.Rows, index.GroupGlobal)
	intensity = append(intensity, index.WeightedIntensity(cleaned.Rows, index.GroupBracket)...)

	comparisons, excluded := decouple.Compare(cleaned.Rows)

	data := report.Data{
		Title:       opts.cfg.Report.Title,
		Generated:   time.Now(),
		StartYear:   opts.startYear,
		EndYear:     opts.endYear,
		Global:      global,
		Brackets:    brackets,
		Intensity:   intensity,
		Comparisons: comparisons,
		Excluded:    excluded,
		Summary:     decouple.Summarize(comparisons),
		Notes:       cleaned.Notes,
	}

	md := report.GenerateMarkdown(data)

	if opts.outPath != "" {
		if err := os.MkdirAll(filepath.Dir(opts.outPath), 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		if err := os.WriteFile(opts.outPath, []byte(md), 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	if opts.jsonPath != "" {
		if err := report.WriteJSON(data, opts.jsonPath); err != nil {
			return err
		}
	}
	if opts.chartsDir != "" {
		if err := renderCharts(ctx, opts, global, brackets); err != nil {
			return err
		}
	}

	// When no artifact path is given, the report goes to the terminal.
	if opts.outPath == "" && opts.jsonPath == "" {
		printReport(md, opts.plain)
	}

	fmt.Fprintln(os.Stderr, statusStyle.Render(fmt.Sprintf(
		"%d countries classified, %d excluded, %d rows dropped (%.1fs)",
		data.Summary.Total, len(excluded), cleaned.Dropped.Total(), time.Since(start).Seconds())))
	return nil
}

// renderCharts writes one index chart per cohort, concurrently. Chart
// rendering is independent per group, so failures are collected via the
// errgroup and the first one wins.
func renderCharts(ctx context.Context, opts runOptions, global, brackets []index.Series) error {
	format := opts.cfg.Report.ChartFormat
	if format == "" {
		format = "svg"
	}

	g, _ := errgroup.WithContext(ctx)
	for _, s := range append(append([]index.Series{}, global...), brackets...) {
		g.Go(func() error {
			name := strings.ReplaceAll(s.Group, " ", "_") + "." + format
			return chart.SaveIndexChart(chart.Options{
				Path:   filepath.Join(opts.chartsDir, name),
				Title:  fmt.Sprintf("%s: GDP vs CO2", s.Group),
				Series: s,
			})
		})
	}
	return g.Wait()
}

// printReport renders markdown for the terminal via glamour, falling back
// to raw markdown when not attached to a terminal or when asked.
func printReport(md string, plain bool) {
	if plain || !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Print(md)
		return
	}

	width := 100
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 && w < width {
		width = w
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		fmt.Print(md)
		return
	}
	out, err := renderer.Render(md)
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}

// watchLoop re-runs the pipeline whenever the dataset file changes.
func watchLoop(ctx context.Context, opts runOptions) error {
	w, err := watcher.New(opts.dataPath)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	fmt.Fprintln(os.Stderr, statusStyle.Render("watching "+opts.dataPath))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.Changes():
			if err := run(ctx, opts); err != nil {
				fmt.Fprintln(os.Stderr, errStyle.Render(fmt.Sprintf("Error: %v", err)))
			}
		case err := <-w.Errors():
			if err == watcher.ErrFileRemoved {
				return err
			}
			debug.Log("watch: %v", err)
		}
	}
}

// Package chart renders index series as static line charts (SVG or PNG):
// one chart per group, GDP and CO2 indices over time with a base-100
// reference line.
package chart

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"git.sr.ht/~sbinet/gg"
	svg "github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/decarb/pkg/index"
	"github.com/vanderheijden86/decarb/pkg/metrics"
)

// Options controls index chart export behaviour.
type Options struct {
	Path   string       // Output path; format inferred from extension when Format empty
	Format string       // "svg" or "png" (case-insensitive). If empty, inferred from Path.
	Title  string       // Optional title; defaults to the series group name
	Series index.Series // Series to render
}

// Canvas geometry.
const (
	chartWidth   = 960
	chartHeight  = 540
	marginLeft   = 70.0
	marginRight  = 40.0
	marginTop    = 60.0
	marginBottom = 50.0
)

var (
	colorBackdrop = color.RGBA{R: 0xfa, G: 0xfa, B: 0xf8, A: 0xff}
	colorAxis     = color.RGBA{R: 0x44, G: 0x44, B: 0x44, A: 0xff}
	colorGrid     = color.RGBA{R: 0xdd, G: 0xdd, B: 0xd8, A: 0xff}
	colorGDP      = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	colorCO2      = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
	colorBaseline = color.RGBA{R: 0x99, G: 0x99, B: 0x99, A: 0xff}
	colorText     = color.RGBA{R: 0x22, G: 0x22, B: 0x22, A: 0xff}
)

// SaveIndexChart renders a single group's indexed series to Path. Format is
// inferred from the extension when not set explicitly; SVG is the safe
// default for extension-less paths.
func SaveIndexChart(opts Options) error {
	defer metrics.Timer(metrics.ChartRender)()

	if len(opts.Series.Points) == 0 {
		return fmt.Errorf("no points to render")
	}

	format := strings.ToLower(strings.TrimPrefix(opts.Format, "."))
	if format == "" {
		switch strings.ToLower(filepath.Ext(opts.Path)) {
		case ".svg":
			format = "svg"
		case ".png":
			format = "png"
		default:
			format = "svg" // safe default
			if opts.Path != "" && filepath.Ext(opts.Path) == "" {
				opts.Path = opts.Path + ".svg"
			}
		}
	}
	if format != "svg" && format != "png" {
		return fmt.Errorf("unsupported format %q (want svg or png)", format)
	}
	if opts.Path == "" {
		return fmt.Errorf("output path is required")
	}
	if opts.Title == "" {
		opts.Title = opts.Series.Group
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	layout := buildLayout(opts.Series)

	switch format {
	case "svg":
		return renderSVG(opts, layout)
	case "png":
		return renderPNG(opts, layout)
	default:
		return fmt.Errorf("unhandled format %q", format)
	}
}

// --- layout computation ----------------------------------------------------

type layoutResult struct {
	MinYear, MaxYear int
	MinIdx, MaxIdx   float64
	GDP, CO2         [][2]float64 // canvas coordinates
	YTicks           []float64    // index values for horizontal gridlines
	Baseline         float64      // canvas y for index == 100
}

func buildLayout(s index.Series) layoutResult {
	l := layoutResult{
		MinYear: s.Points[0].Year,
		MaxYear: s.Points[len(s.Points)-1].Year,
		MinIdx:  math.Inf(1),
		MaxIdx:  math.Inf(-1),
	}
	for _, p := range s.Points {
		l.MinIdx = math.Min(l.MinIdx, math.Min(p.GDPIndex, p.CO2Index))
		l.MaxIdx = math.Max(l.MaxIdx, math.Max(p.GDPIndex, p.CO2Index))
	}
	// Always keep the base-100 line in frame with a little headroom
	l.MinIdx = math.Min(l.MinIdx, 100) * 0.95
	l.MaxIdx = math.Max(l.MaxIdx, 100) * 1.05

	for _, p := range s.Points {
		x := l.xFor(p.Year)
		l.GDP = append(l.GDP, [2]float64{x, l.yFor(p.GDPIndex)})
		l.CO2 = append(l.CO2, [2]float64{x, l.yFor(p.CO2Index)})
	}
	l.Baseline = l.yFor(100)

	step := niceStep(l.MaxIdx - l.MinIdx)
	for v := math.Ceil(l.MinIdx/step) * step; v <= l.MaxIdx; v += step {
		l.YTicks = append(l.YTicks, v)
	}
	return l
}

func (l layoutResult) xFor(year int) float64 {
	span := float64(l.MaxYear - l.MinYear)
	if span == 0 {
		span = 1
	}
	plotW := float64(chartWidth) - marginLeft - marginRight
	return marginLeft + plotW*float64(year-l.MinYear)/span
}

func (l layoutResult) yFor(idx float64) float64 {
	span := l.MaxIdx - l.MinIdx
	if span == 0 {
		span = 1
	}
	plotH := float64(chartHeight) - marginTop - marginBottom
	return marginTop + plotH*(1-(idx-l.MinIdx)/span)
}

// niceStep picks a round gridline spacing covering the value range in
// roughly five steps.
func niceStep(span float64) float64 {
	if span <= 0 {
		return 25
	}
	raw := span / 5
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	switch {
	case raw/mag < 1.5:
		return mag
	case raw/mag < 3.5:
		return 2 * mag
	case raw/mag < 7.5:
		return 5 * mag
	default:
		return 10 * mag
	}
}

// --- SVG rendering ---------------------------------------------------------

func renderSVG(opts Options, layout layoutResult) error {
	file, err := os.Create(opts.Path)
	if err != nil {
		return err
	}
	defer file.Close()

	return renderSVGToWriter(file, opts, layout)
}

func renderSVGToWriter(w io.Writer, opts Options, layout layoutResult) error {
	canvas := svg.New(w)
	canvas.Start(chartWidth, chartHeight)
	canvas.Rect(0, 0, chartWidth, chartHeight, fmt.Sprintf("fill:%s", css(colorBackdrop)))

	canvas.Text(int(marginLeft), 32, opts.Title,
		fmt.Sprintf("fill:%s;font-size:18px;font-family:monospace;font-weight:bold", css(colorText)))
	canvas.Text(int(marginLeft), 50, fmt.Sprintf("base year %d = 100", opts.Series.BaseYear),
		fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorAxis)))

	// gridlines and y labels
	for _, v := range layout.YTicks {
		y := int(layout.yFor(v))
		canvas.Line(int(marginLeft), y, chartWidth-int(marginRight), y,
			fmt.Sprintf("stroke:%s;stroke-width:1", css(colorGrid)))
		canvas.Text(int(marginLeft)-8, y+4, fmt.Sprintf("%.0f", v),
			fmt.Sprintf("fill:%s;font-size:11px;font-family:monospace;text-anchor:end", css(colorAxis)))
	}

	// baseline at 100
	canvas.Line(int(marginLeft), int(layout.Baseline), chartWidth-int(marginRight), int(layout.Baseline),
		fmt.Sprintf("stroke:%s;stroke-width:1;stroke-dasharray:6,4", css(colorBaseline)))

	// x axis labels at first/middle/last year
	for _, year := range []int{layout.MinYear, (layout.MinYear + layout.MaxYear) / 2, layout.MaxYear} {
		canvas.Text(int(layout.xFor(year)), chartHeight-int(marginBottom)+20, fmt.Sprintf("%d", year),
			fmt.Sprintf("fill:%s;font-size:11px;font-family:monospace;text-anchor:middle", css(colorAxis)))
	}

	canvas.Polyline(xs(layout.GDP), ys(layout.GDP),
		fmt.Sprintf("fill:none;stroke:%s;stroke-width:2.5", css(colorGDP)))
	canvas.Polyline(xs(layout.CO2), ys(layout.CO2),
		fmt.Sprintf("fill:none;stroke:%s;stroke-width:2.5", css(colorCO2)))

	// legend
	legendY := chartHeight - 16
	canvas.Line(int(marginLeft), legendY-4, int(marginLeft)+24, legendY-4,
		fmt.Sprintf("stroke:%s;stroke-width:3", css(colorGDP)))
	canvas.Text(int(marginLeft)+30, legendY, "GDP index",
		fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorText)))
	canvas.Line(int(marginLeft)+140, legendY-4, int(marginLeft)+164, legendY-4,
		fmt.Sprintf("stroke:%s;stroke-width:3", css(colorCO2)))
	canvas.Text(int(marginLeft)+170, legendY, "CO2 index",
		fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorText)))

	canvas.End()
	return nil
}

// --- PNG rendering ---------------------------------------------------------

func renderPNG(opts Options, layout layoutResult) error {
	dc := gg.NewContext(chartWidth, chartHeight)
	dc.SetColor(colorBackdrop)
	dc.Clear()

	dc.SetFontFace(basicfont.Face7x13)

	dc.SetColor(colorText)
	dc.DrawString(opts.Title, marginLeft, 32)
	dc.SetColor(colorAxis)
	dc.DrawString(fmt.Sprintf("base year %d = 100", opts.Series.BaseYear), marginLeft, 50)

	for _, v := range layout.YTicks {
		y := layout.yFor(v)
		dc.SetColor(colorGrid)
		dc.SetLineWidth(1)
		dc.DrawLine(marginLeft, y, float64(chartWidth)-marginRight, y)
		dc.Stroke()
		dc.SetColor(colorAxis)
		dc.DrawStringAnchored(fmt.Sprintf("%.0f", v), marginLeft-8, y, 1, 0.35)
	}

	dc.SetColor(colorBaseline)
	dc.SetLineWidth(1)
	dc.SetDash(6, 4)
	dc.DrawLine(marginLeft, layout.Baseline, float64(chartWidth)-marginRight, layout.Baseline)
	dc.Stroke()
	dc.SetDash()

	dc.SetColor(colorAxis)
	for _, year := range []int{layout.MinYear, (layout.MinYear + layout.MaxYear) / 2, layout.MaxYear} {
		dc.DrawStringAnchored(fmt.Sprintf("%d", year), layout.xFor(year), float64(chartHeight)-marginBottom+20, 0.5, 0)
	}

	drawPolylinePNG(dc, layout.GDP, colorGDP)
	drawPolylinePNG(dc, layout.CO2, colorCO2)

	legendY := float64(chartHeight - 16)
	dc.SetColor(colorGDP)
	dc.SetLineWidth(3)
	dc.DrawLine(marginLeft, legendY-4, marginLeft+24, legendY-4)
	dc.Stroke()
	dc.SetColor(colorText)
	dc.DrawString("GDP index", marginLeft+30, legendY)
	dc.SetColor(colorCO2)
	dc.SetLineWidth(3)
	dc.DrawLine(marginLeft+140, legendY-4, marginLeft+164, legendY-4)
	dc.Stroke()
	dc.SetColor(colorText)
	dc.DrawString("CO2 index", marginLeft+170, legendY)

	return dc.SavePNG(opts.Path)
}

func drawPolylinePNG(dc *gg.Context, pts [][2]float64, c color.Color) {
	if len(pts) == 0 {
		return
	}
	dc.SetColor(c)
	dc.SetLineWidth(2.5)
	dc.MoveTo(pts[0][0], pts[0][1])
	for _, p := range pts[1:] {
		dc.LineTo(p[0], p[1])
	}
	dc.Stroke()
}

// --- helpers ---------------------------------------------------------------

func xs(pts [][2]float64) []int {
	out := make([]int, len(pts))
	for i, p := range pts {
		out[i] = int(p[0])
	}
	return out
}

func ys(pts [][2]float64) []int {
	out := make([]int, len(pts))
	for i, p := range pts {
		out[i] = int(p[1])
	}
	return out
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Package chart builds the line, bar and histogram plots shown by the signal
// and table tools, and renders them to images or PNG files.
package chart

import (
	"fmt"
	"image"
	"math"
	"strings"
	"unicode"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"biodash/pkg/colorutil"
)

// Kind tells how a chart was built.
type Kind int

const (
	KindLine Kind = iota
	KindBars
	KindHistogram
)

func (k Kind) String() string {
	switch k {
	case KindLine:
		return "line"
	case KindBars:
		return "bars"
	case KindHistogram:
		return "histogram"
	}
	return "unknown"
}

// Default export size.
const (
	DefaultWidth  = 6 * vg.Inch
	DefaultHeight = 4 * vg.Inch
)

// Chart is a titled plot ready for rendering.
type Chart struct {
	Title string
	Kind  Kind
	plot  *plot.Plot
}

func newPlot(title, xlabel, ylabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel
	grid := plotter.NewGrid()
	grid.Vertical.Color = colorutil.Grid
	grid.Horizontal.Color = colorutil.Grid
	grid.Vertical.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
	grid.Horizontal.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
	p.Add(grid)
	return p
}

// Series plots ys against their index. NaN samples are left out.
func Series(title, xlabel, ylabel string, ys []float64) (*Chart, error) {
	xs := make([]float64, len(ys))
	for i := range xs {
		xs[i] = float64(i)
	}
	return XY(title, xlabel, ylabel, xs, ys)
}

// XY plots ys against xs. Points with a NaN or infinite coordinate are left
// out.
func XY(title, xlabel, ylabel string, xs, ys []float64) (*Chart, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("x has %d values, y has %d", len(xs), len(ys))
	}
	pts := make(plotter.XYs, 0, len(xs))
	for i := range xs {
		if !finite(xs[i]) || !finite(ys[i]) {
			continue
		}
		pts = append(pts, plotter.XY{X: xs[i], Y: ys[i]})
	}
	if len(pts) == 0 {
		return nil, fmt.Errorf("%s: no finite points to plot", title)
	}

	p := newPlot(title, xlabel, ylabel)
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("failed to build line: %w", err)
	}
	line.Color = colorutil.SeriesBlue
	line.Width = vg.Points(1.5)
	p.Add(line)
	return &Chart{Title: title, Kind: KindLine, plot: p}, nil
}

// Bars draws one bar per label.
func Bars(title, ylabel string, labels []string, values []float64) (*Chart, error) {
	if len(labels) != len(values) {
		return nil, fmt.Errorf("%d labels for %d values", len(labels), len(values))
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s: no values to plot", title)
	}

	p := newPlot(title, "", ylabel)
	bars, err := plotter.NewBarChart(plotter.Values(values), vg.Points(18))
	if err != nil {
		return nil, fmt.Errorf("failed to build bars: %w", err)
	}
	bars.Color = colorutil.WithAlpha(colorutil.SeriesGreen, 0.7)
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalX(labels...)
	return &Chart{Title: title, Kind: KindBars, plot: p}, nil
}

// Histogram draws precomputed bins. edges has one more entry than counts.
func Histogram(title, xlabel string, edges, counts []float64) (*Chart, error) {
	if len(edges) != len(counts)+1 || len(counts) == 0 {
		return nil, fmt.Errorf("%d edges for %d counts", len(edges), len(counts))
	}

	p := newPlot(title, xlabel, "Frequency")
	h := &plotter.Histogram{
		Width:     edges[1] - edges[0],
		FillColor: colorutil.WithAlpha(colorutil.SeriesGreen, 0.7),
		LineStyle: plotter.DefaultLineStyle,
	}
	for i, c := range counts {
		h.Bins = append(h.Bins, plotter.HistogramBin{Min: edges[i], Max: edges[i+1], Weight: c})
	}
	p.Add(h)
	return &Chart{Title: title, Kind: KindHistogram, plot: p}, nil
}

// Render draws the chart into an RGBA image of the given size.
func (c *Chart) Render(w, h vg.Length) image.Image {
	canvas := vgimg.New(w, h)
	c.plot.Draw(draw.New(canvas))
	return canvas.Image()
}

// Save writes the chart to path; the format follows the extension.
func (c *Chart) Save(path string, w, h vg.Length) error {
	if err := c.plot.Save(w, h, path); err != nil {
		return fmt.Errorf("failed to save chart %q: %w", c.Title, err)
	}
	return nil
}

// SanitizeTitle replaces every character that is not a letter or digit with
// an underscore.
func SanitizeTitle(title string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, title)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

package charts

import (
	"fmt"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/banshee-data/accident.report/internal/accidents"
)

// writePNG draws p onto a w x h image and encodes it to out.
func writePNG(out io.Writer, p *plot.Plot, w, h vg.Length) error {
	c := vgimg.PngCanvas{Canvas: vgimg.New(w, h)}
	p.Draw(draw.New(c))
	if _, err := c.WriteTo(out); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Y.Min = 0
	return p
}

func countLabels(c *accidents.Counts) ([]string, plotter.Values) {
	labels := make([]string, len(c.Entries))
	values := make(plotter.Values, len(c.Entries))
	for i, e := range c.Entries {
		labels[i] = e.Label
		values[i] = float64(e.N)
	}
	return labels, values
}

// BarChart draws category counts as single-colour bars.
func BarChart(out io.Writer, c *accidents.Counts, title, xLabel, yLabel string) error {
	if len(c.Entries) == 0 {
		return fmt.Errorf("bar chart %q: no entries", title)
	}
	labels, values := countLabels(c)

	p := newPlot(title, xLabel, yLabel)
	bars, err := plotter.NewBarChart(values, vg.Points(40))
	if err != nil {
		return fmt.Errorf("bar chart %q: %w", title, err)
	}
	bars.Color = skyBlue
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars, plotter.NewGrid())
	p.NominalX(labels...)

	return writePNG(out, p, 10*vg.Inch, 11*vg.Inch)
}

// CountPlot draws category counts with one colour per category.
// tickLabels, when non-nil, maps entry labels to axis text.
func CountPlot(out io.Writer, c *accidents.Counts, title, xLabel, yLabel string, tickLabels map[string]string) error {
	if len(c.Entries) == 0 {
		return fmt.Errorf("count plot %q: no entries", title)
	}
	labels, values := countLabels(c)
	colors := generateColors(len(values))

	p := newPlot(title, xLabel, yLabel)
	p.Add(plotter.NewGrid())
	for i, v := range values {
		bars, err := plotter.NewBarChart(plotter.Values{v}, vg.Points(36))
		if err != nil {
			return fmt.Errorf("count plot %q: %w", title, err)
		}
		bars.XMin = float64(i)
		bars.Color = colors[i]
		bars.LineStyle.Width = vg.Length(0)
		p.Add(bars)
	}
	for i, l := range labels {
		if t, ok := tickLabels[l]; ok {
			labels[i] = t
		}
	}
	p.NominalX(labels...)

	return writePNG(out, p, 10*vg.Inch, 6*vg.Inch)
}

// HistogramChart draws precomputed bins.
func HistogramChart(out io.Writer, h *accidents.Histogram, title, xLabel, yLabel string) error {
	if len(h.Bins) == 0 {
		return fmt.Errorf("histogram %q: no bins", title)
	}
	bins := make([]plotter.HistogramBin, len(h.Bins))
	for i, b := range h.Bins {
		bins[i] = plotter.HistogramBin{Min: b.Lo, Max: b.Hi, Weight: float64(b.N)}
	}

	p := newPlot(title, xLabel, yLabel)
	hist := &plotter.Histogram{
		Bins:      bins,
		Width:     h.Bins[0].Hi - h.Bins[0].Lo,
		FillColor: orange,
		LineStyle: plotter.DefaultLineStyle,
	}
	p.Add(hist)

	return writePNG(out, p, 8*vg.Inch, 6*vg.Inch)
}

// LineChart draws grouped counts as a line with point markers.
func LineChart(out io.Writer, g *accidents.Grouped, title, xLabel, yLabel string) error {
	if len(g.Groups) == 0 {
		return fmt.Errorf("line chart %q: no groups", title)
	}
	pts := make(plotter.XYs, len(g.Groups))
	for i, grp := range g.Groups {
		pts[i] = plotter.XY{X: grp.Key, Y: float64(grp.N)}
	}

	p := newPlot(title, xLabel, yLabel)
	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return fmt.Errorf("line chart %q: %w", title, err)
	}
	line.Color = green
	line.Width = vg.Points(1.5)
	points.Color = green
	points.Shape = draw.CircleGlyph{}
	p.Add(plotter.NewGrid(), line, points)

	return writePNG(out, p, 10*vg.Inch, 6*vg.Inch)
}

// correlationGrid adapts a correlation matrix to plotter.GridXYZ. Row 0 is
// drawn at the top.
type correlationGrid struct {
	c *accidents.Correlation
}

func (g correlationGrid) Dims() (c, r int) {
	n := len(g.c.Fields)
	return n, n
}

func (g correlationGrid) Z(c, r int) float64 {
	n := len(g.c.Fields)
	v := g.c.At(n-1-r, c)
	if math.IsNaN(v) {
		return v
	}
	return math.Max(-1, math.Min(1, v))
}

func (g correlationGrid) X(c int) float64 { return float64(c) }
func (g correlationGrid) Y(r int) float64 { return float64(r) }
func (g correlationGrid) Min() float64    { return -1 }
func (g correlationGrid) Max() float64    { return 1 }

// Heatmap draws a correlation matrix with a diverging palette and a
// two-decimal annotation in every cell.
func Heatmap(out io.Writer, c *accidents.Correlation, title string) error {
	n := len(c.Fields)
	if n == 0 {
		return fmt.Errorf("heatmap %q: no fields", title)
	}

	cmap := moreland.SmoothBlueRed()
	cmap.SetMin(-1)
	cmap.SetMax(1)

	grid := correlationGrid{c: c}
	hm := plotter.NewHeatMap(grid, cmap.Palette(255))
	hm.Min, hm.Max = -1, 1

	var annotations plotter.XYLabels
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			v := grid.Z(col, row)
			text := "n/a"
			if !math.IsNaN(v) {
				text = fmt.Sprintf("%.2f", v)
			}
			annotations.XYs = append(annotations.XYs, plotter.XY{X: float64(col), Y: float64(row)})
			annotations.Labels = append(annotations.Labels, text)
		}
	}
	labels, err := plotter.NewLabels(annotations)
	if err != nil {
		return fmt.Errorf("heatmap %q: %w", title, err)
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].XAlign = draw.XCenter
		labels.TextStyle[i].YAlign = draw.YCenter
	}

	names := make([]string, n)
	reversed := make([]string, n)
	for i, f := range c.Fields {
		names[i] = string(f)
		reversed[n-1-i] = string(f)
	}

	p := plot.New()
	p.Title.Text = title
	p.Add(hm, labels)
	p.NominalX(names...)
	p.NominalY(reversed...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter

	return writePNG(out, p, 10*vg.Inch, 8*vg.Inch)
}

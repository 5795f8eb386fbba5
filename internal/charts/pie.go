package charts

import (
	"fmt"
	"image/color"
	"io"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/banshee-data/accident.report/internal/accidents"
)

// PieChart draws category shares with percentage labels.
func PieChart(out io.Writer, c *accidents.Counts, title string) error {
	total := c.Total()
	if total == 0 {
		return fmt.Errorf("pie chart %q: no entries", title)
	}

	colors := generateColors(len(c.Entries))
	values := make([]chart.Value, len(c.Entries))
	for i, e := range c.Entries {
		values[i] = chart.Value{
			Value: float64(e.N),
			Label: fmt.Sprintf("%s (%.1f%%)", e.Label, 100*float64(e.N)/float64(total)),
			Style: chart.Style{FillColor: toDrawing(colors[i]), StrokeColor: drawing.ColorWhite},
		}
	}

	pie := chart.PieChart{
		Title:  title,
		Width:  768,
		Height: 768,
		Values: values,
	}
	if err := pie.Render(chart.PNG, out); err != nil {
		return fmt.Errorf("pie chart %q: %w", title, err)
	}
	return nil
}

func toDrawing(c color.Color) drawing.Color {
	r, g, b, a := c.RGBA()
	return drawing.Color{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}
}

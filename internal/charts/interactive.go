package charts

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/accident.report/internal/accidents"
)

// heatColors is a blue-white-red ramp for correlation coefficients.
var heatColors = []string{"#3b4cc0", "#7b9ff9", "#c0d4f5", "#f2f2f2", "#f5c4ac", "#ee8468", "#b40426"}

func initOpts(title string) charts.GlobalOpts {
	return charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "900px", Height: "520px"})
}

// RenderInteractive writes an HTML page with one go-echarts chart per
// non-empty summary of report. A report without data yields a page with no
// charts.
func RenderInteractive(w io.Writer, report *accidents.Report) error {
	page := components.NewPage()

	if report != nil && !report.NoData {
		for _, name := range accidents.SummaryNames {
			s := report.Summary(name)
			if accidents.IsEmpty(s) {
				continue
			}
			if c := interactiveChart(name, s); c != nil {
				page.AddCharts(c)
			}
		}
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render interactive page: %w", err)
	}
	return nil
}

func interactiveChart(name accidents.SummaryName, s accidents.Summary) components.Charter {
	title := Title(name)
	switch v := s.(type) {
	case *accidents.Counts:
		if name == accidents.SummaryWeather {
			return pieChart(title, v)
		}
		return barChart(title, string(name), v)
	case *accidents.Histogram:
		return histogramChart(title, v)
	case *accidents.Grouped:
		return lineChart(title, v)
	case *accidents.Correlation:
		return heatmapChart(title, v)
	}
	return nil
}

func pieChart(title string, c *accidents.Counts) *charts.Pie {
	data := make([]opts.PieData, len(c.Entries))
	for i, e := range c.Entries {
		data[i] = opts.PieData{Name: e.Label, Value: e.N}
	}
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		initOpts(title),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	pie.AddSeries("weather", data,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Formatter: "{b}: {d}%"}),
	)
	return pie
}

func barChart(title, series string, c *accidents.Counts) *charts.Bar {
	labels := make([]string, len(c.Entries))
	data := make([]opts.BarData, len(c.Entries))
	colors := generateColors(len(c.Entries))
	for i, e := range c.Entries {
		labels[i] = e.Label
		data[i] = opts.BarData{Value: e.N, ItemStyle: &opts.ItemStyle{Color: hexColor(colors[i])}}
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		initOpts(title),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels).AddSeries(series, data,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
	)
	return bar
}

func histogramChart(title string, h *accidents.Histogram) *charts.Bar {
	labels := make([]string, len(h.Bins))
	data := make([]opts.BarData, len(h.Bins))
	for i, b := range h.Bins {
		labels[i] = fmt.Sprintf("%.1f-%.1f", b.Lo, b.Hi)
		data[i] = opts.BarData{Value: b.N, ItemStyle: &opts.ItemStyle{Color: hexColor(orange)}}
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		initOpts(title),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: string(h.Field)}),
	)
	bar.SetXAxis(labels).AddSeries("frequency", data)
	return bar
}

func lineChart(title string, g *accidents.Grouped) *charts.Line {
	keys := make([]string, len(g.Groups))
	data := make([]opts.LineData, len(g.Groups))
	for i, grp := range g.Groups {
		keys[i] = strconv.FormatFloat(grp.Key, 'f', -1, 64)
		data[i] = opts.LineData{Value: grp.N}
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		initOpts(title),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: string(g.Field)}),
	)
	line.SetXAxis(keys).AddSeries("accidents", data,
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true)}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: hexColor(green)}),
	)
	return line
}

func heatmapChart(title string, c *accidents.Correlation) *charts.HeatMap {
	n := len(c.Fields)
	names := make([]string, n)
	for i, f := range c.Fields {
		names[i] = string(f)
	}
	data := make([]opts.HeatMapData, 0, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			var v interface{} = "-"
			if r := c.At(i, j); !math.IsNaN(r) {
				v = math.Round(r*100) / 100
			}
			data = append(data, opts.HeatMapData{Value: [3]interface{}{j, i, v}})
		}
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "900px", Height: "720px"}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: names}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        -1,
			Max:        1,
			InRange:    &opts.VisualMapInRange{Color: heatColors},
		}),
	)
	hm.SetXAxis(names).AddSeries("correlation", data,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true)}),
	)
	return hm
}

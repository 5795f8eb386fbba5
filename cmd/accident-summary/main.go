// Command accident-summary runs the aggregation pipeline once over a CSV
// dataset and prints every summary as a table. With -charts it also renders
// the dashboard PNGs into a directory.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"net/url"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/banshee-data/accident.report/internal/accidents"
	"github.com/banshee-data/accident.report/internal/charts"
	"github.com/banshee-data/accident.report/internal/config"
	"github.com/banshee-data/accident.report/internal/monitoring"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("accident-summary", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		cfgPath   = fs.String("config", "", "Path to JSON configuration file")
		dataPath  = fs.String("data", config.DefaultDataPath, "CSV dataset path")
		bins      = fs.Int("bins", config.DefaultHistogramBins, "Number of Driver_Age histogram bins")
		chartsDir = fs.String("charts", "", "Render PNG charts into this directory")
		asJSON    = fs.Bool("json", false, "Print the report as JSON instead of tables")
		logLevel  = fs.String("log-level", "", "Log level (overrides config)")
	)
	filters := make(map[accidents.Field]*string, len(accidents.FilterFields))
	for _, f := range accidents.FilterFields {
		filters[f] = fs.String(flagName(f), "", fmt.Sprintf("Only records whose %s equals this value", f))
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	settings, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(stderr, "configuration: %v\n", err)
		return 2
	}
	// Explicit flags win over the config file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "data":
			settings.DataPath = *dataPath
		case "bins":
			settings.HistogramBins = *bins
		case "log-level":
			settings.LogLevel = *logLevel
		}
	})
	if err := settings.Validate(); err != nil {
		fmt.Fprintf(stderr, "invalid flags: %v\n", err)
		return 2
	}
	monitoring.UseLogger(monitoring.NewLogger(stderr, settings.LogLevel))

	q := make(url.Values)
	for f, v := range filters {
		if *v != "" {
			q.Set(f.Param(), *v)
		}
	}

	loader := accidents.NewLoader(nil, false)
	report, err := accidents.NewPipeline(loader, settings.DataPath, settings.HistogramBins).Run(accidents.ParseFilterSpec(q))
	switch {
	case errors.Is(err, accidents.ErrNoMatchingRecords):
		fmt.Fprintln(stdout, "No data available for the selected filters.")
		return 0
	case err != nil:
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fmt.Fprintf(stderr, "encode report: %v\n", err)
			return 1
		}
	} else {
		printReport(stdout, report)
	}

	if *chartsDir != "" {
		r := charts.NewRenderer(nil, *chartsDir, *chartsDir, 0)
		out, err := r.Render(report)
		if err != nil {
			fmt.Fprintf(stderr, "render charts: %v\n", err)
			return 1
		}
		for _, c := range out.Charts {
			fmt.Fprintf(stderr, "wrote %s\n", c.URL)
		}
		if len(out.Failed) > 0 {
			return 1
		}
	}
	return 0
}

// flagName turns Road_Type into road-type.
func flagName(f accidents.Field) string {
	b := []byte(f.Param())
	for i, c := range b {
		if c == '_' {
			b[i] = '-'
		}
	}
	return string(b)
}

func printReport(w io.Writer, report *accidents.Report) {
	p := message.NewPrinter(language.English)
	p.Fprintf(w, "%s: %d of %d records\n", report.Source, report.MatchedRecords, report.TotalRecords)
	for _, f := range accidents.FilterFields {
		if v, ok := report.Filters[f]; ok {
			fmt.Fprintf(w, "  %s = %s\n", f, v)
		}
	}

	for _, name := range accidents.SummaryNames {
		s := report.Summary(name)
		if accidents.IsEmpty(s) {
			continue
		}
		fmt.Fprintf(w, "\n%s\n", charts.Title(name))
		table := tablewriter.NewWriter(w)
		switch v := s.(type) {
		case *accidents.Counts:
			total := v.Total()
			table.SetHeader([]string{string(v.Field), "Accidents", "Share"})
			for _, e := range v.Entries {
				table.Append([]string{e.Label, p.Sprintf("%d", e.N), fmt.Sprintf("%.1f%%", 100*float64(e.N)/float64(total))})
			}
		case *accidents.Histogram:
			table.SetHeader([]string{string(v.Field), "Accidents"})
			for _, b := range v.Bins {
				table.Append([]string{fmt.Sprintf("%.1f to %.1f", b.Lo, b.Hi), p.Sprintf("%d", b.N)})
			}
		case *accidents.Grouped:
			table.SetHeader([]string{string(v.Field), "Accidents"})
			for _, g := range v.Groups {
				table.Append([]string{strconv.FormatFloat(g.Key, 'f', -1, 64), p.Sprintf("%d", g.N)})
			}
		case *accidents.Correlation:
			header := []string{""}
			for _, f := range v.Fields {
				header = append(header, string(f))
			}
			table.SetHeader(header)
			for i, f := range v.Fields {
				row := []string{string(f)}
				for j := range v.Fields {
					if r := v.At(i, j); math.IsNaN(r) {
						row = append(row, "n/a")
					} else {
						row = append(row, fmt.Sprintf("%.2f", r))
					}
				}
				table.Append(row)
			}
		}
		table.Render()
	}
}

// Package charts renders accident summaries as PNG files and as an
// interactive HTML page.
package charts

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/accident.report/internal/accidents"
	"github.com/banshee-data/accident.report/internal/fsutil"
	"github.com/banshee-data/accident.report/internal/monitoring"
)

type chartSpec struct {
	file  string
	title string
	draw  func(w io.Writer, s accidents.Summary, title string) error
}

var chartSpecs = map[accidents.SummaryName]chartSpec{
	accidents.SummaryWeather: {
		file:  "weather_conditions_pie_chart.png",
		title: "Weather Conditions Distribution",
		draw: func(w io.Writer, s accidents.Summary, title string) error {
			return PieChart(w, s.(*accidents.Counts), title)
		},
	},
	accidents.SummaryRoadType: {
		file:  "accidents_by_road_type_bar_chart.png",
		title: "Accidents by Road Type",
		draw: func(w io.Writer, s accidents.Summary, title string) error {
			return BarChart(w, s.(*accidents.Counts), title, "Road Type", "Count of Accidents")
		},
	},
	accidents.SummaryDriverAge: {
		file:  "driver_age_histogram.png",
		title: "Driver Age Distribution",
		draw: func(w io.Writer, s accidents.Summary, title string) error {
			return HistogramChart(w, s.(*accidents.Histogram), title, "Driver Age", "Frequency")
		},
	},
	accidents.SummarySpeedLimit: {
		file:  "speed_limit_line_chart.png",
		title: "Accidents vs. Speed Limit",
		draw: func(w io.Writer, s accidents.Summary, title string) error {
			return LineChart(w, s.(*accidents.Grouped), title, "Speed Limit", "Number of Accidents")
		},
	},
	accidents.SummaryTimeOfDay: {
		file:  "accidents_by_time_count_plot.png",
		title: "Accidents by Time of Day",
		draw: func(w io.Writer, s accidents.Summary, title string) error {
			return CountPlot(w, s.(*accidents.Counts), title, "Time of Day", "Count", nil)
		},
	},
	accidents.SummaryCorrelation: {
		file:  "correlation_heatmap.png",
		title: "Correlation Between Variables",
		draw: func(w io.Writer, s accidents.Summary, title string) error {
			return Heatmap(w, s.(*accidents.Correlation), title)
		},
	},
	accidents.SummaryDriverAlcohol: {
		file:  "alcohol_consumption_count_plot.png",
		title: "Accidents Based on Alcohol Consumption",
		draw: func(w io.Writer, s accidents.Summary, title string) error {
			return CountPlot(w, s.(*accidents.Counts), title, "Driver Consumed Alcohol (1 = Yes, 0 = No)",
				"Number of Accidents", alcoholTicks)
		},
	},
}

var alcoholTicks = map[string]string{"0": "No", "1": "Yes"}

// Title returns the display title of a summary's chart.
func Title(name accidents.SummaryName) string {
	if spec, ok := chartSpecs[name]; ok {
		return spec.title
	}
	return string(name)
}

// Chart is one rendered image.
type Chart struct {
	Name  accidents.SummaryName `json:"name"`
	Title string                `json:"title"`
	File  string                `json:"file"`
	URL   string                `json:"url"`
}

// Run is the set of images produced by one Render call.
type Run struct {
	ID     string                  `json:"id"`
	Charts []Chart                 `json:"charts"`
	Failed []accidents.SummaryName `json:"failed,omitempty"`
}

// Chart returns the rendered chart for name.
func (r *Run) Chart(name accidents.SummaryName) (Chart, bool) {
	if r == nil {
		return Chart{}, false
	}
	for _, c := range r.Charts {
		if c.Name == name {
			return c, true
		}
	}
	return Chart{}, false
}

// Renderer writes chart images into per-run directories below dir.
type Renderer struct {
	fs        fsutil.FileSystem
	dir       string
	urlPrefix string
	retention int
	newID     func() string

	mu sync.Mutex
}

// NewRenderer creates a renderer writing below dir. Images are addressed as
// urlPrefix/<run>/<file>. With retention > 0 only that many run directories
// are kept.
func NewRenderer(fsys fsutil.FileSystem, dir, urlPrefix string, retention int) *Renderer {
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	return &Renderer{
		fs:        fsys,
		dir:       dir,
		urlPrefix: urlPrefix,
		retention: retention,
		newID:     func() string { return uuid.New().String() },
	}
}

// Dir returns the output root.
func (r *Renderer) Dir() string { return r.dir }

// Render draws every non-empty summary of report. A chart that fails to
// render is logged and listed in Run.Failed. The error is non-nil only when
// the run directory cannot be created.
func (r *Renderer) Render(report *accidents.Report) (*Run, error) {
	run := &Run{ID: r.newID()}
	if report == nil || report.NoData {
		return run, nil
	}

	runDir := filepath.Join(r.dir, run.ID)
	if err := r.fs.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("create chart directory: %w", err)
	}

	for _, name := range accidents.SummaryNames {
		s := report.Summary(name)
		if accidents.IsEmpty(s) {
			continue
		}
		spec, ok := chartSpecs[name]
		if !ok {
			continue
		}
		if err := r.renderOne(filepath.Join(runDir, spec.file), spec, s); err != nil {
			monitoring.Logf("chart %s: %v", name, err)
			monitoring.ChartsRendered.WithLabelValues(string(name), monitoring.OutcomeError).Inc()
			run.Failed = append(run.Failed, name)
			continue
		}
		monitoring.ChartsRendered.WithLabelValues(string(name), monitoring.OutcomeOK).Inc()
		run.Charts = append(run.Charts, Chart{
			Name:  name,
			Title: spec.title,
			File:  spec.file,
			URL:   path.Join(r.urlPrefix, run.ID, spec.file),
		})
	}

	if err := r.prune(run.ID); err != nil {
		monitoring.Logf("prune chart runs: %v", err)
	}
	return run, nil
}

func (r *Renderer) renderOne(name string, spec chartSpec, s accidents.Summary) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("render panic: %v", p)
		}
	}()

	var buf bytes.Buffer
	if err := spec.draw(&buf, s, spec.title); err != nil {
		return err
	}
	f, err := r.fs.Create(name)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	return f.Close()
}

// prune removes the oldest run directories beyond the retention count. The
// run just written is never removed.
func (r *Renderer) prune(current string) error {
	if r.retention <= 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.fs.ReadDir(r.dir)
	if err != nil {
		return err
	}
	type runDir struct {
		name    string
		modTime time.Time
	}
	var runs []runDir
	for _, e := range entries {
		if !e.IsDir() || e.Name() == current {
			continue
		}
		if _, err := uuid.Parse(e.Name()); err != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		runs = append(runs, runDir{name: e.Name(), modTime: info.ModTime()})
	}
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].modTime.Equal(runs[j].modTime) {
			return runs[i].modTime.After(runs[j].modTime)
		}
		return runs[i].name > runs[j].name
	})

	keep := r.retention - 1
	for i := keep; i < len(runs); i++ {
		if err := r.fs.RemoveAll(filepath.Join(r.dir, runs[i].name)); err != nil {
			return err
		}
		monitoring.Debugf("pruned chart run %s", runs[i].name)
	}
	return nil
}

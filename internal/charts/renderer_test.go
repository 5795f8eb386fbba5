package charts

import (
	"bytes"
	"image/png"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/accident.report/internal/accidents"
	"github.com/banshee-data/accident.report/internal/fsutil"
	"github.com/banshee-data/accident.report/internal/testutil"
)

func sampleReport(t *testing.T, filters accidents.FilterSpec) *accidents.Report {
	t.Helper()
	loader := accidents.NewLoader(testutil.MemoryCSV("accidents.csv", testutil.SampleCSV), true)
	report, err := accidents.NewPipeline(loader, "accidents.csv", accidents.DefaultHistogramBins).Run(filters)
	if err != nil && report == nil {
		t.Fatalf("pipeline: %v", err)
	}
	return report
}

func tickClock() func() time.Time {
	now := time.Unix(1700000000, 0)
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func TestRenderer_RendersEveryChart(t *testing.T) {
	mem := fsutil.NewMemoryFileSystem()
	r := NewRenderer(mem, "/charts", "/charts", 0)

	run, err := r.Render(sampleReport(t, nil))
	require.NoError(t, err)
	require.Empty(t, run.Failed)
	require.Len(t, run.Charts, len(accidents.SummaryNames))

	for _, c := range run.Charts {
		assert.Equal(t, "/charts/"+run.ID+"/"+c.File, c.URL)
		data, err := mem.ReadFile(filepath.Join("/charts", run.ID, c.File))
		require.NoError(t, err, c.Name)
		_, err = png.Decode(bytes.NewReader(data))
		assert.NoError(t, err, "chart %s is not a PNG", c.Name)
	}

	pie, ok := run.Chart(accidents.SummaryWeather)
	require.True(t, ok)
	assert.Equal(t, "weather_conditions_pie_chart.png", pie.File)
	assert.Equal(t, "Weather Conditions Distribution", pie.Title)
	assert.Equal(t, "/charts", r.Dir())
}

func TestRenderer_NoData(t *testing.T) {
	mem := fsutil.NewMemoryFileSystem()
	r := NewRenderer(mem, "/charts", "/charts", 3)

	run, err := r.Render(sampleReport(t, accidents.FilterSpec{accidents.VehicleType: "Spaceship"}))
	require.NoError(t, err)
	assert.Empty(t, run.Charts)
	assert.False(t, mem.Exists(filepath.Join("/charts", run.ID)))

	_, ok := run.Chart(accidents.SummaryWeather)
	assert.False(t, ok)
}

func TestRenderer_FailedChartIsSkipped(t *testing.T) {
	mem := fsutil.NewMemoryFileSystem()
	r := NewRenderer(mem, "/charts", "/charts", 0)

	report := sampleReport(t, nil)
	report.Summaries[accidents.SummaryWeather] = &accidents.Counts{Field: accidents.Weather}

	run, err := r.Render(report)
	require.NoError(t, err)
	assert.Equal(t, []accidents.SummaryName{accidents.SummaryWeather}, run.Failed)
	assert.Len(t, run.Charts, len(accidents.SummaryNames)-1)
	assert.False(t, mem.Exists(filepath.Join("/charts", run.ID, "weather_conditions_pie_chart.png")))
}

func TestRenderer_PrunesOldRuns(t *testing.T) {
	mem := fsutil.NewMemoryFileSystem()
	mem.SetNow(tickClock())
	require.NoError(t, mem.MkdirAll("/charts/keep-me", 0o755))

	r := NewRenderer(mem, "/charts", "/charts", 2)
	report := sampleReport(t, accidents.FilterSpec{accidents.Weather: "Rainy"})

	var ids []string
	for i := 0; i < 3; i++ {
		run, err := r.Render(report)
		require.NoError(t, err)
		ids = append(ids, run.ID)
	}

	assert.False(t, mem.Exists("/charts/"+ids[0]), "oldest run is pruned")
	assert.True(t, mem.Exists("/charts/"+ids[1]))
	assert.True(t, mem.Exists("/charts/"+ids[2]))
	assert.True(t, mem.Exists("/charts/keep-me"), "non-run directories are left alone")
}

func TestRenderer_FixedIDs(t *testing.T) {
	mem := fsutil.NewMemoryFileSystem()
	r := NewRenderer(mem, "out", "/static/charts", 0)
	r.newID = func() string { return "run-1" }

	run, err := r.Render(sampleReport(t, nil))
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.ID)
	c, ok := run.Chart(accidents.SummaryCorrelation)
	require.True(t, ok)
	assert.Equal(t, "/static/charts/run-1/correlation_heatmap.png", c.URL)
	assert.True(t, mem.Exists("out/run-1/correlation_heatmap.png"))
}

func TestTitle(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Accidents by Road Type", Title(accidents.SummaryRoadType))
	assert.Equal(t, "other", Title(accidents.SummaryName("other")))
}

func TestHexColor(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "#87ceeb", hexColor(skyBlue))
	colors := generateColors(4)
	require.Len(t, colors, 4)
	for _, c := range colors {
		assert.True(t, strings.HasPrefix(hexColor(c), "#"))
	}
	assert.Nil(t, generateColors(0))
}

package api

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/accident.report/internal/accidents"
	"github.com/banshee-data/accident.report/internal/charts"
	"github.com/banshee-data/accident.report/internal/config"
	"github.com/banshee-data/accident.report/internal/db"
	"github.com/banshee-data/accident.report/internal/httputil"
	"github.com/banshee-data/accident.report/internal/monitoring"
	fixtures "github.com/banshee-data/accident.report/internal/testutil"
)

type testServer struct {
	server    *Server
	mux       *http.ServeMux
	chartsDir string
	dataPath  string
	store     *db.DB
}

func setupTestServer(t *testing.T, csv string, admin bool) *testServer {
	t.Helper()
	dataPath := fixtures.WriteCSV(t, "accidents.csv", csv)
	chartsDir := t.TempDir()

	store, err := db.Open()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	loader := accidents.NewLoader(nil, true)
	loader.OnLoad = store.OnLoad

	settings := config.EmptyConfig().Resolve()
	settings.DataPath = dataPath
	settings.ChartsDir = chartsDir
	settings.AdminRoutes = admin

	s := NewServer(
		accidents.NewPipeline(loader, dataPath, settings.HistogramBins),
		charts.NewRenderer(nil, chartsDir, ChartsURLPrefix, 5),
		store,
		settings,
	)
	return &testServer{server: s, mux: s.ServeMux(), chartsDir: chartsDir, dataPath: dataPath, store: store}
}

func (ts *testServer) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = "127.0.0.1:40000"
	w := httptest.NewRecorder()
	ts.mux.ServeHTTP(w, req)
	return w
}

func TestDashboard_Unfiltered(t *testing.T) {
	ts := setupTestServer(t, fixtures.SampleCSV, false)
	before := testutil.ToFloat64(monitoring.DashboardRequests.WithLabelValues("dashboard", monitoring.OutcomeOK))

	w := ts.get(t, "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))

	body := w.Body.String()
	assert.Contains(t, body, "Showing 10 of 10 records.")
	for _, vt := range []string{"Car", "Truck", "Motorcycle", "Bus"} {
		assert.Contains(t, body, `<option value="`+vt+`">`)
	}
	for _, name := range accidents.SummaryNames {
		assert.Contains(t, body, charts.Title(name))
	}
	assert.NotContains(t, body, NoDataMessage)
	assert.Equal(t, before+1, testutil.ToFloat64(monitoring.DashboardRequests.WithLabelValues("dashboard", monitoring.OutcomeOK)))
}

func TestDashboard_FilteredServesCharts(t *testing.T) {
	ts := setupTestServer(t, fixtures.SampleCSV, false)

	w := ts.get(t, "/?weather=Rainy&vehicle_type=")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Showing 4 of 10 records.")
	assert.Contains(t, body, `<option value="Rainy" selected>`)
	assert.Contains(t, body, "/charts/interactive?weather=Rainy")

	entries, err := os.ReadDir(ts.chartsDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	runID := entries[0].Name()

	img := ts.get(t, "/charts/"+runID+"/weather_conditions_pie_chart.png")
	require.Equal(t, http.StatusOK, img.Code)
	_, err = png.Decode(bytes.NewReader(img.Body.Bytes()))
	assert.NoError(t, err)
	assert.Contains(t, body, "/charts/"+runID+"/weather_conditions_pie_chart.png")
}

func TestDashboard_NoMatchingRecords(t *testing.T) {
	ts := setupTestServer(t, fixtures.SampleCSV, false)

	w := ts.get(t, "/?weather=Hail")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, NoDataMessage)
	assert.Contains(t, body, "<strong>Weather</strong> = Hail")
	assert.Contains(t, body, `<option value="Bus">`, "vehicle types are still offered")
	assert.NotContains(t, body, "<img")

	entries, err := os.ReadDir(ts.chartsDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDashboard_HeaderOnlyDataset(t *testing.T) {
	ts := setupTestServer(t, fixtures.Header+"\n", false)

	w := ts.get(t, "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), NoDataMessage)

	w = ts.get(t, "/api/summary")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDashboard_EscapesFilterValues(t *testing.T) {
	ts := setupTestServer(t, fixtures.SampleCSV, false)

	w := ts.get(t, "/?weather=%3Cscript%3E")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "<script>")
	assert.Contains(t, w.Body.String(), "&lt;script&gt;")
}

func TestDashboard_DataUnavailable(t *testing.T) {
	ts := setupTestServer(t, fixtures.SampleCSV, false)
	require.NoError(t, os.Remove(ts.dataPath))

	w := ts.get(t, "/")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "Data unavailable")
}

func TestDashboard_MissingRequiredColumn(t *testing.T) {
	csv := fixtures.CSV("Weather,Road_Type,Time_of_Day", fixtures.Row("Rainy", "Highway", "Night"))
	ts := setupTestServer(t, csv, false)

	w := ts.get(t, "/")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestDashboard_MethodAndPath(t *testing.T) {
	ts := setupTestServer(t, fixtures.SampleCSV, false)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	w := httptest.NewRecorder()
	ts.mux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	assert.Equal(t, http.StatusNotFound, ts.get(t, "/nope").Code)
}

func TestShowSummary(t *testing.T) {
	ts := setupTestServer(t, fixtures.SampleCSV, false)

	w := ts.get(t, "/api/summary?weather=Rainy")
	require.Equal(t, http.StatusOK, w.Code)

	var got struct {
		Filters        map[string]string          `json:"filters"`
		MatchedRecords int                        `json:"matched_records"`
		NoData         bool                       `json:"no_data"`
		Summaries      map[string]json.RawMessage `json:"summaries"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, map[string]string{"Weather": "Rainy"}, got.Filters)
	assert.Equal(t, 4, got.MatchedRecords)
	assert.False(t, got.NoData)
	assert.Len(t, got.Summaries, len(accidents.SummaryNames))

	w = ts.get(t, "/api/summary?road_type=Moon")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.True(t, got.NoData)
	assert.Equal(t, "null", string(got.Summaries[string(accidents.SummaryWeather)]))
}

func TestShowSummary_DataUnavailable(t *testing.T) {
	ts := setupTestServer(t, fixtures.SampleCSV, false)
	require.NoError(t, os.Remove(ts.dataPath))

	w := ts.get(t, "/api/summary")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "data_unavailable", resp.Code)
}

func TestShowConfig(t *testing.T) {
	ts := setupTestServer(t, fixtures.SampleCSV, false)

	w := ts.get(t, "/api/config")
	require.Equal(t, http.StatusOK, w.Code)
	var got config.Settings
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, ts.dataPath, got.DataPath)
	assert.Equal(t, config.DefaultHistogramBins, got.HistogramBins)
}

func TestShowSnapshot(t *testing.T) {
	ts := setupTestServer(t, fixtures.SampleCSV, false)

	assert.Equal(t, http.StatusNotFound, ts.get(t, "/api/snapshot").Code, "nothing loaded yet")

	require.Equal(t, http.StatusOK, ts.get(t, "/api/summary").Code)
	w := ts.get(t, "/api/snapshot")
	require.Equal(t, http.StatusOK, w.Code)

	var got struct {
		Snapshot db.Snapshot                  `json:"snapshot"`
		Counts   map[string][]accidents.Count `json:"counts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 10, got.Snapshot.Records)
	assert.Equal(t, accidents.Count{Label: "Rainy", N: 4}, got.Counts["Weather"][0])
}

func TestShowSnapshot_Disabled(t *testing.T) {
	s := NewServer(nil, nil, nil, config.EmptyConfig().Resolve())
	w := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/snapshot", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInteractiveCharts(t *testing.T) {
	ts := setupTestServer(t, fixtures.SampleCSV, false)

	w := ts.get(t, "/charts/interactive?time_of_day=Night")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "echarts")
	assert.Contains(t, w.Body.String(), charts.Title(accidents.SummaryCorrelation))

	w = ts.get(t, "/charts/interactive?time_of_day=Dawn")
	assert.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, os.Remove(ts.dataPath))
	assert.Equal(t, http.StatusServiceUnavailable, ts.get(t, "/charts/interactive").Code)
}

func TestChartFile_Rejects(t *testing.T) {
	ts := setupTestServer(t, fixtures.SampleCSV, false)
	require.NoError(t, os.MkdirAll(filepath.Join(ts.chartsDir, "run"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(ts.chartsDir, "run", "notes.txt"), []byte("x"), 0o644))

	for _, target := range []string{
		"/charts/run/notes.txt",
		"/charts/run/missing.png",
		"/charts/other/weather_conditions_pie_chart.png",
	} {
		w := ts.get(t, target)
		assert.Equal(t, http.StatusNotFound, w.Code, target)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := setupTestServer(t, fixtures.SampleCSV, false)
	ts.get(t, "/api/summary")

	w := ts.get(t, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "accidents_requests_total"))
}

func TestAdminRoutes(t *testing.T) {
	disabled := setupTestServer(t, fixtures.SampleCSV, false)
	assert.Equal(t, http.StatusNotFound, disabled.get(t, "/debug/").Code)

	enabled := setupTestServer(t, fixtures.SampleCSV, true)
	enabled.get(t, "/api/summary")
	w := enabled.get(t, "/debug/snapshot")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLoggingMiddleware(t *testing.T) {
	original := monitoring.Logf
	defer func() { monitoring.Logf = original }()
	var lines []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, format)
	})

	h := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusTeapot, w.Code)
	require.Len(t, lines, 1)
	assert.GreaterOrEqual(t, testutil.CollectAndCount(monitoring.HTTPRequestDuration), 1)
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(http.StatusOK))
	assert.Equal(t, "4xx", statusClass(http.StatusTeapot))
	assert.Equal(t, "5xx", statusClass(http.StatusServiceUnavailable))
	assert.Equal(t, "other", statusClass(0))
}

func TestStatusCodeColor(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, colorBoldGreen + "200" + colorReset},
		{302, colorYellow + "302" + colorReset},
		{404, colorBoldRed + "404" + colorReset},
		{503, colorBoldRed + "503" + colorReset},
		{101, "101"},
	}
	for _, tt := range tests {
		if got := statusCodeColor(tt.code); got != tt.want {
			t.Errorf("statusCodeColor(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

// Package api serves the accident dashboard, its JSON API and the rendered
// chart files.
package api

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/a-h/templ"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/banshee-data/accident.report/internal/accidents"
	"github.com/banshee-data/accident.report/internal/charts"
	"github.com/banshee-data/accident.report/internal/config"
	"github.com/banshee-data/accident.report/internal/db"
	"github.com/banshee-data/accident.report/internal/httputil"
	"github.com/banshee-data/accident.report/internal/monitoring"
	"github.com/banshee-data/accident.report/internal/security"
)

// ChartsURLPrefix is where rendered chart runs are served.
const ChartsURLPrefix = "/charts"

type Server struct {
	pipeline *accidents.Pipeline
	renderer *charts.Renderer
	// store is nil when the SQL snapshot is disabled.
	store    *db.DB
	settings config.Settings
	printer  *message.Printer
}

// NewServer wires the pipeline, chart renderer and optional snapshot store.
// The renderer should address images below ChartsURLPrefix.
func NewServer(p *accidents.Pipeline, r *charts.Renderer, store *db.DB, settings config.Settings) *Server {
	return &Server{
		pipeline: p,
		renderer: r,
		store:    store,
		settings: settings,
		printer:  defaultPrinter(),
	}
}

func defaultPrinter() *message.Printer {
	return message.NewPrinter(language.English)
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.dashboard)
	mux.HandleFunc("/api/summary", s.showSummary)
	mux.HandleFunc("/api/config", s.showConfig)
	mux.HandleFunc("/api/snapshot", s.showSnapshot)
	mux.HandleFunc("/charts/interactive", s.interactiveCharts)
	mux.HandleFunc("GET "+ChartsURLPrefix+"/{run}/{file}", s.chartFile)
	mux.Handle("/metrics", promhttp.Handler())

	if s.settings.AdminRoutes && s.store != nil {
		if err := s.store.AttachAdminRoutes(mux); err != nil {
			monitoring.Logf("admin routes disabled: %v", err)
		}
	}
	return mux
}

func record(handler, outcome string) {
	monitoring.DashboardRequests.WithLabelValues(handler, outcome).Inc()
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	var buf bytes.Buffer
	if err := c.Render(r.Context(), &buf); err != nil {
		monitoring.Logf("render page: %v", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	filters := accidents.ParseFilterSpec(r.URL.Query())
	report, err := s.pipeline.Run(filters)
	switch {
	case errors.Is(err, accidents.ErrNoMatchingRecords):
		record("dashboard", monitoring.OutcomeNoData)
		s.renderPage(w, r, http.StatusOK, DashboardView(s.page(report, filters, NoDataMessage)))
		return
	case err != nil:
		record("dashboard", monitoring.OutcomeError)
		s.renderFailure(w, r, err)
		return
	}

	page := s.page(report, filters, "")
	run, err := s.renderer.Render(report)
	if err != nil {
		// The page is still useful without images.
		monitoring.Logf("render charts: %v", err)
	} else {
		page.Charts = run.Charts
		page.Failed = run.Failed
	}
	record("dashboard", monitoring.OutcomeOK)
	s.renderPage(w, r, http.StatusOK, DashboardView(page))
}

func (s *Server) page(report *accidents.Report, filters accidents.FilterSpec, msg string) DashboardPage {
	p := DashboardPage{Filters: filters, Message: msg, Printer: s.printer}
	if report != nil {
		p.Options = report.Options
		p.VehicleTypes = report.VehicleTypes
		p.Total = report.TotalRecords
		p.Matched = report.MatchedRecords
		p.Missing = report.Missing
	}
	return p
}

func (s *Server) renderFailure(w http.ResponseWriter, r *http.Request, err error) {
	monitoring.Logf("dashboard: %v", err)
	if errors.Is(err, accidents.ErrDataUnavailable) {
		s.renderPage(w, r, http.StatusServiceUnavailable,
			ErrorView("Data unavailable", "The accident dataset could not be loaded. Try again later."))
		return
	}
	s.renderPage(w, r, http.StatusInternalServerError,
		ErrorView("Something went wrong", "The dashboard could not be built."))
}

func (s *Server) showSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	report, err := s.pipeline.Run(accidents.ParseFilterSpec(r.URL.Query()))
	switch {
	case errors.Is(err, accidents.ErrNoMatchingRecords):
		record("summary", monitoring.OutcomeNoData)
	case errors.Is(err, accidents.ErrDataUnavailable):
		record("summary", monitoring.OutcomeError)
		monitoring.Logf("summary: %v", err)
		httputil.ServiceUnavailable(w, "data_unavailable", "accident data unavailable")
		return
	case err != nil:
		record("summary", monitoring.OutcomeError)
		monitoring.Logf("summary: %v", err)
		httputil.InternalServerError(w, "failed to summarise data")
		return
	default:
		record("summary", monitoring.OutcomeOK)
	}
	httputil.WriteJSONOK(w, report)
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.settings)
}

// snapshotResponse pairs snapshot metadata with SQL-side counts of each
// filter field.
type snapshotResponse struct {
	Snapshot *db.Snapshot                          `json:"snapshot"`
	Counts   map[accidents.Field][]accidents.Count `json:"counts"`
}

func (s *Server) showSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.store == nil {
		httputil.NotFound(w, "snapshot store disabled")
		return
	}
	snap, err := s.store.LatestSnapshot(r.Context())
	if errors.Is(err, db.ErrNoSnapshot) {
		httputil.NotFound(w, err.Error())
		return
	}
	if err != nil {
		monitoring.Logf("snapshot: %v", err)
		httputil.InternalServerError(w, "failed to read snapshot")
		return
	}

	resp := snapshotResponse{Snapshot: snap, Counts: make(map[accidents.Field][]accidents.Count)}
	for _, f := range accidents.FilterFields {
		counts, err := s.store.CountBy(r.Context(), f)
		if err != nil {
			monitoring.Logf("snapshot counts for %s: %v", f, err)
			httputil.InternalServerError(w, "failed to read snapshot")
			return
		}
		resp.Counts[f] = counts
	}
	httputil.WriteJSONOK(w, resp)
}

func (s *Server) interactiveCharts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	report, err := s.pipeline.Run(accidents.ParseFilterSpec(r.URL.Query()))
	if err != nil && !errors.Is(err, accidents.ErrNoMatchingRecords) {
		record("interactive", monitoring.OutcomeError)
		s.renderFailure(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := charts.RenderInteractive(&buf, report); err != nil {
		record("interactive", monitoring.OutcomeError)
		monitoring.Logf("interactive charts: %v", err)
		http.Error(w, "failed to render charts", http.StatusInternalServerError)
		return
	}
	if report.NoData {
		record("interactive", monitoring.OutcomeNoData)
	} else {
		record("interactive", monitoring.OutcomeOK)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func (s *Server) chartFile(w http.ResponseWriter, r *http.Request) {
	p, err := security.ChartFilePath(s.renderer.Dir(), r.PathValue("run"), r.PathValue("file"))
	if err != nil {
		monitoring.Debugf("chart file rejected: %v", err)
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", "private, max-age=3600")
	http.ServeFile(w, r, p)
}

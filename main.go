package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/accident.report/internal/accidents"
	"github.com/banshee-data/accident.report/internal/api"
	"github.com/banshee-data/accident.report/internal/charts"
	"github.com/banshee-data/accident.report/internal/config"
	"github.com/banshee-data/accident.report/internal/db"
	"github.com/banshee-data/accident.report/internal/monitoring"
	"github.com/banshee-data/accident.report/internal/version"
)

var (
	configFile  = flag.String("config", "", "Path to JSON configuration file")
	envFile     = flag.String("env-file", ".env", "Optional .env file with ACCIDENTS_* variables")
	dataPath    = flag.String("data", "", "CSV dataset path (overrides config)")
	listen      = flag.String("listen", "", "Listen address (overrides config)")
	chartsDir   = flag.String("charts-dir", "", "Directory for rendered charts (overrides config)")
	logLevel    = flag.String("log-level", "", "Log level: debug, info, warn or error (overrides config)")
	adminRoutes = flag.Bool("admin", false, "Mount /debug admin routes")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// applyFlags overrides s with the flags that were given on the command line.
func applyFlags(s config.Settings) config.Settings {
	if *dataPath != "" {
		s.DataPath = *dataPath
	}
	if *listen != "" {
		s.Listen = *listen
	}
	if *chartsDir != "" {
		s.ChartsDir = *chartsDir
	}
	if *logLevel != "" {
		s.LogLevel = *logLevel
	}
	if *adminRoutes {
		s.AdminRoutes = true
	}
	return s
}

// loadSettings resolves settings from the config file, .env file,
// environment and flags, in increasing order of precedence.
func loadSettings() (config.Settings, error) {
	if err := config.LoadEnvFiles(*envFile); err != nil {
		return config.Settings{}, err
	}
	s, err := config.Load(*configFile)
	if err != nil {
		return config.Settings{}, err
	}
	s = applyFlags(s)
	if err := s.Validate(); err != nil {
		return config.Settings{}, fmt.Errorf("invalid flags: %w", err)
	}
	return s, nil
}

// newHandler wires the dashboard for s. The returned cleanup closes the
// snapshot store.
func newHandler(s config.Settings) (http.Handler, func(), error) {
	if err := os.MkdirAll(s.ChartsDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create charts dir: %w", err)
	}

	loader := accidents.NewLoader(nil, s.CacheDataset)
	cleanup := func() {}

	store, err := db.Open()
	if err != nil {
		// The dashboard works without the snapshot; only /api/snapshot and
		// the SQL console are lost.
		monitoring.Logf("snapshot store unavailable: %v", err)
	} else {
		loader.OnLoad = store.OnLoad
		cleanup = func() { store.Close() }
	}

	pipeline := accidents.NewPipeline(loader, s.DataPath, s.HistogramBins)
	renderer := charts.NewRenderer(nil, s.ChartsDir, api.ChartsURLPrefix, s.ChartRetention)
	server := api.NewServer(pipeline, renderer, store, s)

	// Warm the cache so the first request does not pay for the load.
	if _, err := loader.Load(s.DataPath); err != nil {
		monitoring.Logf("dataset not loaded yet: %v", err)
	}
	return api.LoggingMiddleware(server.ServeMux()), cleanup, nil
}

// Main
func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	settings, err := loadSettings()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	monitoring.UseLogger(monitoring.NewLogger(os.Stderr, settings.LogLevel))
	monitoring.Logf("%s", version.String())

	handler, cleanup, err := newHandler(settings)
	if err != nil {
		log.Fatalf("failed to set up dashboard: %v", err)
	}
	defer cleanup()

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:              settings.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		go func() {
			monitoring.Logf("serving %s on %s", settings.DataPath, settings.Listen)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		monitoring.Logf("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			monitoring.Logf("HTTP server shutdown error: %v", err)
		}
		monitoring.Logf("HTTP server routine stopped")
	}()

	wg.Wait()
	monitoring.Logf("Graceful shutdown complete")
}

// Package config loads dashboard settings from a JSON file, a .env file and
// ACCIDENTS_* environment variables, in that order of precedence.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "ACCIDENTS_"

// Defaults for settings absent from every source.
const (
	DefaultDataPath       = "data/dataset_traffic_accident_prediction1.csv"
	DefaultListen         = ":8080"
	DefaultChartsDir      = "static/charts"
	DefaultChartRetention = 20
	DefaultHistogramBins  = 15
	DefaultLogLevel       = "info"
)

// Config is the on-disk JSON schema. Omitted fields fall back to defaults
// through the Get* accessors, so partial files are safe.
type Config struct {
	DataPath       *string `json:"data_path,omitempty"`
	Listen         *string `json:"listen,omitempty"`
	ChartsDir      *string `json:"charts_dir,omitempty"`
	ChartRetention *int    `json:"chart_retention,omitempty"`
	HistogramBins  *int    `json:"histogram_bins,omitempty"`
	CacheDataset   *bool   `json:"cache_dataset,omitempty"`
	AdminRoutes    *bool   `json:"admin_routes,omitempty"`
	LogLevel       *string `json:"log_level,omitempty"`
}

func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }
func ptrBool(v bool) *bool       { return &v }

// EmptyConfig returns a Config with every field unset.
func EmptyConfig() *Config {
	return &Config{}
}

// LoadConfig reads a Config from a JSON file. The file must have a .json
// extension and be at most 1MB.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the values that are set.
func (c *Config) Validate() error {
	if c.ChartRetention != nil && *c.ChartRetention < 0 {
		return fmt.Errorf("chart_retention must be >= 0, got %d", *c.ChartRetention)
	}
	if c.HistogramBins != nil && (*c.HistogramBins < 1 || *c.HistogramBins > 500) {
		return fmt.Errorf("histogram_bins must be between 1 and 500, got %d", *c.HistogramBins)
	}
	if c.DataPath != nil && strings.TrimSpace(*c.DataPath) == "" {
		return errors.New("data_path must not be empty")
	}
	if c.LogLevel != nil && !validLogLevel(*c.LogLevel) {
		return fmt.Errorf("log_level must be one of debug, info, warn, error; got %q", *c.LogLevel)
	}
	return nil
}

func validLogLevel(l string) bool {
	switch strings.ToLower(l) {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}

// GetDataPath returns the CSV path or DefaultDataPath.
func (c *Config) GetDataPath() string {
	if c.DataPath == nil {
		return DefaultDataPath
	}
	return *c.DataPath
}

// GetListen returns the HTTP listen address or DefaultListen.
func (c *Config) GetListen() string {
	if c.Listen == nil {
		return DefaultListen
	}
	return *c.Listen
}

func (c *Config) GetChartsDir() string {
	if c.ChartsDir == nil {
		return DefaultChartsDir
	}
	return *c.ChartsDir
}

func (c *Config) GetChartRetention() int {
	if c.ChartRetention == nil {
		return DefaultChartRetention
	}
	return *c.ChartRetention
}

func (c *Config) GetHistogramBins() int {
	if c.HistogramBins == nil {
		return DefaultHistogramBins
	}
	return *c.HistogramBins
}

// GetCacheDataset defaults to true.
func (c *Config) GetCacheDataset() bool {
	if c.CacheDataset == nil {
		return true
	}
	return *c.CacheDataset
}

// GetAdminRoutes defaults to false.
func (c *Config) GetAdminRoutes() bool {
	if c.AdminRoutes == nil {
		return false
	}
	return *c.AdminRoutes
}

func (c *Config) GetLogLevel() string {
	if c.LogLevel == nil {
		return DefaultLogLevel
	}
	return *c.LogLevel
}

// Settings are the effective values after every source has been applied.
type Settings struct {
	DataPath       string `json:"data_path" env:"DATA_PATH"`
	Listen         string `json:"listen" env:"LISTEN"`
	ChartsDir      string `json:"charts_dir" env:"CHARTS_DIR"`
	ChartRetention int    `json:"chart_retention" env:"CHART_RETENTION"`
	HistogramBins  int    `json:"histogram_bins" env:"HISTOGRAM_BINS"`
	CacheDataset   bool   `json:"cache_dataset" env:"CACHE_DATASET"`
	AdminRoutes    bool   `json:"admin_routes" env:"ADMIN_ROUTES"`
	LogLevel       string `json:"log_level" env:"LOG_LEVEL"`
}

// Resolve fills every setting from c or its default.
func (c *Config) Resolve() Settings {
	return Settings{
		DataPath:       c.GetDataPath(),
		Listen:         c.GetListen(),
		ChartsDir:      c.GetChartsDir(),
		ChartRetention: c.GetChartRetention(),
		HistogramBins:  c.GetHistogramBins(),
		CacheDataset:   c.GetCacheDataset(),
		AdminRoutes:    c.GetAdminRoutes(),
		LogLevel:       c.GetLogLevel(),
	}
}

// Config converts s back into a fully populated Config for validation.
func (s Settings) Config() *Config {
	return &Config{
		DataPath:       ptrString(s.DataPath),
		Listen:         ptrString(s.Listen),
		ChartsDir:      ptrString(s.ChartsDir),
		ChartRetention: ptrInt(s.ChartRetention),
		HistogramBins:  ptrInt(s.HistogramBins),
		CacheDataset:   ptrBool(s.CacheDataset),
		AdminRoutes:    ptrBool(s.AdminRoutes),
		LogLevel:       ptrString(s.LogLevel),
	}
}

// Validate checks the effective settings.
func (s Settings) Validate() error {
	return s.Config().Validate()
}

// LoadEnvFiles loads .env style files into the process environment. Missing
// files are skipped; variables already set are not overwritten.
func LoadEnvFiles(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides s with any ACCIDENTS_* variables present in environ.
// Variables that are not set leave the current value untouched.
func ApplyEnv(s *Settings, environ map[string]string) error {
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(s, opts); err != nil {
		return fmt.Errorf("environment overrides: %w", err)
	}
	return nil
}

// Load reads the optional JSON file at path, then applies environment
// overrides. An empty path uses defaults only.
func Load(path string) (Settings, error) {
	cfg := EmptyConfig()
	if path != "" {
		var err error
		if cfg, err = LoadConfig(path); err != nil {
			return Settings{}, err
		}
	}
	s := cfg.Resolve()
	if err := ApplyEnv(&s, nil); err != nil {
		return Settings{}, err
	}
	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return s, nil
}

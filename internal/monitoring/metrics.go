package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request outcomes recorded by DashboardRequests.
const (
	OutcomeOK     = "ok"
	OutcomeNoData = "no_data"
	OutcomeError  = "error"
)

var (
	// DashboardRequests counts dashboard and summary requests by handler and outcome.
	DashboardRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accidents_requests_total",
		Help: "Dashboard requests by handler and outcome",
	}, []string{"handler", "outcome"})

	// PipelineDuration observes the time spent loading, filtering and summarising.
	PipelineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "accidents_pipeline_duration_seconds",
		Help:    "Aggregation pipeline duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
	})

	// DatasetCache counts dataset cache lookups.
	DatasetCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accidents_dataset_cache_total",
		Help: "Dataset cache lookups by result",
	}, []string{"result"}) // "hit" or "miss"

	// ChartsRendered counts chart files written, by chart and result.
	ChartsRendered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accidents_charts_rendered_total",
		Help: "Chart renders by chart name and result",
	}, []string{"chart", "result"})
)

// HTTPRequestDuration observes handler latency by method and status class.
var HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "accidents_http_request_duration_seconds",
	Help:    "HTTP request duration in seconds",
	Buckets: prometheus.DefBuckets,
}, []string{"method", "status"})

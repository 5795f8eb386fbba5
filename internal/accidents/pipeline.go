package accidents

import (
	"fmt"
	"time"

	"github.com/banshee-data/accident.report/internal/monitoring"
)

// SummaryName identifies one of the dashboard summaries.
type SummaryName string

const (
	SummaryWeather       SummaryName = "weather"
	SummaryRoadType      SummaryName = "road_type"
	SummaryDriverAge     SummaryName = "driver_age"
	SummarySpeedLimit    SummaryName = "speed_limit"
	SummaryTimeOfDay     SummaryName = "time_of_day"
	SummaryCorrelation   SummaryName = "correlation"
	SummaryDriverAlcohol SummaryName = "driver_alcohol"
)

// SummaryNames lists every summary in display order.
var SummaryNames = []SummaryName{
	SummaryWeather, SummaryRoadType, SummaryDriverAge, SummarySpeedLimit,
	SummaryTimeOfDay, SummaryCorrelation, SummaryDriverAlcohol,
}

// DefaultHistogramBins is the driver age histogram resolution.
const DefaultHistogramBins = 15

// Report is the result of one pipeline run.
type Report struct {
	Source string `json:"source"`
	// Filters echoes the applied filters.
	Filters FilterSpec `json:"filters"`
	// VehicleTypes are the distinct Vehicle_Type values of the full dataset,
	// for building selection controls.
	VehicleTypes []string `json:"vehicle_types"`
	// Options holds the distinct values of every filterable field.
	Options map[Field][]string `json:"options"`

	TotalRecords   int  `json:"total_records"`
	MatchedRecords int  `json:"matched_records"`
	NoData         bool `json:"no_data"`

	Summaries map[SummaryName]Summary `json:"summaries"`
	// Missing lists optional columns whose summaries are Empty because the
	// source does not provide them.
	Missing []Field `json:"missing,omitempty"`
}

// Summary returns the named summary, or Empty.
func (r *Report) Summary(name SummaryName) Summary {
	if s, ok := r.Summaries[name]; ok && s != nil {
		return s
	}
	return Empty
}

// Pipeline runs load, filter, normalize and summarise over one source.
type Pipeline struct {
	loader *Loader
	path   string
	bins   int
}

// NewPipeline creates a pipeline reading path through loader.
func NewPipeline(loader *Loader, path string, histogramBins int) *Pipeline {
	if histogramBins < 1 {
		histogramBins = DefaultHistogramBins
	}
	return &Pipeline{loader: loader, path: path, bins: histogramBins}
}

// Path returns the configured source path.
func (p *Pipeline) Path() string { return p.path }

// Run executes the pipeline for filters. On ErrDataUnavailable the report is
// nil. On ErrNoMatchingRecords the report is returned with NoData set and
// every summary Empty.
func (p *Pipeline) Run(filters FilterSpec) (*Report, error) {
	start := time.Now()
	defer func() { monitoring.PipelineDuration.Observe(time.Since(start).Seconds()) }()

	ds, err := p.loader.Load(p.path)
	if err != nil {
		return nil, err
	}
	return Summarize(ds, filters, p.bins)
}

// Summarize runs the filter and aggregation steps over an already loaded
// dataset.
func Summarize(ds *Dataset, filters FilterSpec, histogramBins int) (*Report, error) {
	if filters == nil {
		filters = FilterSpec{}
	}
	report := &Report{
		Source:       ds.Source,
		Filters:      filters,
		VehicleTypes: ds.Distinct(VehicleType),
		Options:      make(map[Field][]string, len(FilterFields)),
		TotalRecords: ds.Len(),
		Summaries:    make(map[SummaryName]Summary, len(SummaryNames)),
	}
	for _, f := range FilterFields {
		report.Options[f] = ds.Distinct(f)
	}
	for _, name := range SummaryNames {
		report.Summaries[name] = Empty
	}

	filtered := ApplyFilters(ds, filters)
	report.MatchedRecords = filtered.Len()
	if filtered.Len() == 0 {
		report.NoData = true
		return report, fmt.Errorf("%w: %v", ErrNoMatchingRecords, filters.Params())
	}

	clean := Normalize(filtered)
	report.Summaries[SummaryWeather] = CategoricalCounts(clean, Weather)
	report.Summaries[SummaryRoadType] = CategoricalCounts(clean, RoadType)
	report.Summaries[SummaryDriverAge] = HistogramBins(WithValid(clean, DriverAge), DriverAge, histogramBins)
	report.Summaries[SummarySpeedLimit] = GroupedCount(clean, SpeedLimit)
	report.Summaries[SummaryTimeOfDay] = CategoricalCounts(clean, TimeOfDay)
	report.Summaries[SummaryCorrelation] = CorrelationMatrix(clean, NumericFields(clean))

	if !clean.Has(DriverAlcohol) {
		report.Missing = append(report.Missing, DriverAlcohol)
		monitoring.Debugf("%v: %s", ErrMissingOptionalField, DriverAlcohol)
	}
	report.Summaries[SummaryDriverAlcohol] = ConditionalCounts(clean, DriverAlcohol)

	return report, nil
}

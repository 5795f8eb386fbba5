package accidents

import (
	"math"
	"strconv"
	"strings"
)

// Numeric is a numeric cell. Raw keeps the source text so that unparseable
// values ("unknown", "n/a") can still be shown or counted as categories.
type Numeric struct {
	Raw   string
	Value float64
	Valid bool
}

// ParseNumeric coerces s to a number. Unparseable input yields an invalid
// Numeric rather than an error.
func ParseNumeric(s string) Numeric {
	n := Numeric{Raw: s}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return n
	}
	n.Value = v
	n.Valid = true
	return n
}

// Label formats the value for use as a category key: the canonical number
// when valid, the raw text otherwise.
func (n Numeric) Label() string {
	if n.Valid {
		return strconv.FormatFloat(n.Value, 'f', -1, 64)
	}
	return strings.TrimSpace(n.Raw)
}

// Record is one accident observation.
type Record struct {
	Weather            string
	RoadType           string
	TimeOfDay          string
	VehicleType        string
	RoadCondition      string
	RoadLightCondition string
	AccidentSeverity   string

	DriverAge        Numeric
	SpeedLimit       Numeric
	Accident         Numeric
	DriverAlcohol    Numeric
	TrafficDensity   Numeric
	NumberOfVehicles Numeric
	DriverExperience Numeric
}

// Text returns the value of f as text. Numeric fields return their Label.
func (r *Record) Text(f Field) string {
	spec, ok := fieldSpecs[f]
	switch {
	case !ok:
		return ""
	case spec.text != nil:
		return *spec.text(r)
	default:
		return spec.num(r).Label()
	}
}

// Number returns the numeric value of f and whether it is valid.
func (r *Record) Number(f Field) (float64, bool) {
	spec, ok := fieldSpecs[f]
	if !ok || spec.num == nil {
		return 0, false
	}
	n := spec.num(r)
	return n.Value, n.Valid
}

// set assigns a raw cell value to f.
func (r *Record) set(f Field, raw string) {
	spec := fieldSpecs[f]
	if spec.text != nil {
		*spec.text(r) = raw
		return
	}
	*spec.num(r) = ParseNumeric(raw)
}

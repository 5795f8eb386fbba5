package accidents

import "strings"

// trimmedFields absorb inconsistent source formatting before counting.
var trimmedFields = []Field{Weather, RoadType, TimeOfDay}

// coercedFields are always treated as numeric after normalization; values
// that do not parse become missing.
var coercedFields = []Field{DriverAge, SpeedLimit}

// Normalize trims the categorical fields and coerces Driver_Age and
// Speed_Limit to numbers. No record is dropped: summaries that need a valid
// age use WithValid.
func Normalize(ds *Dataset) *Dataset {
	out := make([]Record, len(ds.Records))
	for i, rec := range ds.Records {
		for _, f := range trimmedFields {
			p := fieldSpecs[f].text(&rec)
			*p = strings.TrimSpace(*p)
		}
		for _, f := range coercedFields {
			p := fieldSpecs[f].num(&rec)
			*p = ParseNumeric(p.Raw)
		}
		out[i] = rec
	}
	n := ds.derive(out)
	for _, f := range coercedFields {
		n.numeric[f] = true
	}
	return n
}

// WithValid returns the records whose numeric field f parsed.
func WithValid(ds *Dataset, f Field) *Dataset {
	out := make([]Record, 0, len(ds.Records))
	for i := range ds.Records {
		if _, ok := ds.Records[i].Number(f); ok {
			out = append(out, ds.Records[i])
		}
	}
	return ds.derive(out)
}

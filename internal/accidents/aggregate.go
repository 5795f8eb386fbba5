package accidents

import (
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// CategoricalCounts counts records per distinct value of field, most
// frequent first. Ties keep first-seen order so equal input gives equal
// output.
func CategoricalCounts(ds *Dataset, field Field) Summary {
	if ds.Len() == 0 || !ds.Has(field) {
		return Empty
	}
	entries := tally(ds, field)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].N > entries[j].N })
	return &Counts{Field: field, Entries: entries}
}

// ConditionalCounts counts records per value of an optional field, ordered
// by value. It returns Empty when the field is absent from the schema.
func ConditionalCounts(ds *Dataset, field Field) Summary {
	if ds.Len() == 0 || !ds.Has(field) {
		return Empty
	}
	entries := tally(ds, field)
	sort.SliceStable(entries, func(i, j int) bool {
		a, aerr := strconv.ParseFloat(entries[i].Label, 64)
		b, berr := strconv.ParseFloat(entries[j].Label, 64)
		if aerr == nil && berr == nil {
			return a < b
		}
		if (aerr == nil) != (berr == nil) {
			return aerr == nil
		}
		return entries[i].Label < entries[j].Label
	})
	return &Counts{Field: field, Entries: entries}
}

// tally counts labels in first-seen order.
func tally(ds *Dataset, field Field) []Count {
	index := make(map[string]int)
	var entries []Count
	for i := range ds.Records {
		label := ds.Records[i].Text(field)
		if pos, ok := index[label]; ok {
			entries[pos].N++
			continue
		}
		index[label] = len(entries)
		entries = append(entries, Count{Label: label, N: 1})
	}
	return entries
}

// numbers returns the valid values of field.
func numbers(ds *Dataset, field Field) []float64 {
	out := make([]float64, 0, len(ds.Records))
	for i := range ds.Records {
		if v, ok := ds.Records[i].Number(field); ok {
			out = append(out, v)
		}
	}
	return out
}

// HistogramBins partitions the valid values of field into binCount
// equal-width bins spanning the observed range. The last bin includes the
// maximum. A single distinct value is widened to ±0.5.
func HistogramBins(ds *Dataset, field Field, binCount int) Summary {
	if ds.Len() == 0 {
		return Empty
	}
	vals := numbers(ds, field)
	if len(vals) == 0 {
		return Empty
	}
	if binCount < 1 {
		binCount = 1
	}

	lo, hi := floats.Min(vals), floats.Max(vals)
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	edges := make([]float64, binCount+1)
	if math.IsInf(hi-lo, 0) {
		// The range overflows float64; interpolate so no edge leaves it.
		for i := range edges {
			t := float64(i) / float64(binCount)
			edges[i] = lo*(1-t) + hi*t
		}
		edges[0], edges[binCount] = lo, hi
	} else {
		floats.Span(edges, lo, hi)
	}

	// stat.Histogram bins are half-open, so nudge the last divider past the
	// maximum to keep it in the final bin.
	dividers := append([]float64(nil), edges...)
	dividers[binCount] = math.Nextafter(hi, math.Inf(1))
	sort.Float64s(vals)
	counts := stat.Histogram(make([]float64, binCount), dividers, vals, nil)

	bins := make([]Bin, binCount)
	for i := range bins {
		bins[i] = Bin{Lo: edges[i], Hi: edges[i+1], N: int(counts[i])}
	}
	return &Histogram{Field: field, Bins: bins}
}

// GroupedCount counts records per distinct valid value of groupField,
// ordered by key ascending.
func GroupedCount(ds *Dataset, groupField Field) Summary {
	if ds.Len() == 0 {
		return Empty
	}
	counts := make(map[float64]int)
	for _, v := range numbers(ds, groupField) {
		counts[v]++
	}
	if len(counts) == 0 {
		return Empty
	}
	keys := make([]float64, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Float64s(keys)

	groups := make([]Group, len(keys))
	for i, k := range keys {
		groups[i] = Group{Key: k, N: counts[k]}
	}
	return &Grouped{Field: groupField, Groups: groups}
}

// NumericFields returns the numeric columns of ds in header order.
func NumericFields(ds *Dataset) []Field {
	var out []Field
	for _, f := range ds.Columns {
		if ds.IsNumeric(f) {
			out = append(out, f)
		}
	}
	return out
}

// CorrelationMatrix computes the Pearson correlation between every pair of
// the given fields that are numeric in ds, using the rows where both values
// are valid. It returns Empty for a dataset without rows or when fewer than
// two numeric fields remain.
func CorrelationMatrix(ds *Dataset, numericFields []Field) Summary {
	if ds.Len() == 0 {
		return Empty
	}
	var fields []Field
	for _, f := range numericFields {
		if ds.IsNumeric(f) && ds.Has(f) {
			fields = append(fields, f)
		}
	}
	if len(fields) < 2 {
		return Empty
	}

	m := mat.NewSymDense(len(fields), nil)
	for i := range fields {
		for j := i; j < len(fields); j++ {
			m.SetSym(i, j, pairwise(ds, fields[i], fields[j]))
		}
	}
	return &Correlation{Fields: fields, Matrix: m}
}

// pairwise returns the correlation of a and b over rows where both are valid,
// or NaN when fewer than two such rows exist.
func pairwise(ds *Dataset, a, b Field) float64 {
	xs := make([]float64, 0, len(ds.Records))
	ys := make([]float64, 0, len(ds.Records))
	for i := range ds.Records {
		x, okx := ds.Records[i].Number(a)
		y, oky := ds.Records[i].Number(b)
		if okx && oky {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	if len(xs) < 2 {
		return math.NaN()
	}
	r := stat.Correlation(xs, ys, nil)
	if math.IsInf(r, 0) {
		return math.NaN()
	}
	return r
}

package accidents

import (
	"encoding/json"
	"math"

	"gonum.org/v1/gonum/mat"
)

// SummaryKind names the shape of a Summary.
type SummaryKind string

const (
	KindEmpty       SummaryKind = "empty"
	KindCounts      SummaryKind = "counts"
	KindHistogram   SummaryKind = "histogram"
	KindGrouped     SummaryKind = "grouped"
	KindCorrelation SummaryKind = "correlation"
)

// Summary is a derived aggregate ready for charting.
type Summary interface {
	Kind() SummaryKind
}

type emptySummary struct{}

func (emptySummary) Kind() SummaryKind { return KindEmpty }

func (emptySummary) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// Empty is the "no applicable data" result. It is not an error.
var Empty Summary = emptySummary{}

// IsEmpty reports whether s carries no data.
func IsEmpty(s Summary) bool {
	return s == nil || s.Kind() == KindEmpty
}

// Count is one category and the number of records carrying it.
type Count struct {
	Label string `json:"label"`
	N     int    `json:"n"`
}

// Counts is a frequency table over one field.
type Counts struct {
	Field   Field   `json:"field"`
	Entries []Count `json:"entries"`
}

func (*Counts) Kind() SummaryKind { return KindCounts }

// Total returns the sum of all entries.
func (c *Counts) Total() int {
	total := 0
	for _, e := range c.Entries {
		total += e.N
	}
	return total
}

// Bin is a half-open interval [Lo, Hi) with its count; the last bin of a
// histogram is closed.
type Bin struct {
	Lo float64 `json:"lo"`
	Hi float64 `json:"hi"`
	N  int     `json:"n"`
}

// Histogram is an equal-width binning of a numeric field.
type Histogram struct {
	Field Field `json:"field"`
	Bins  []Bin `json:"bins"`
}

func (*Histogram) Kind() SummaryKind { return KindHistogram }

// Group is the number of records sharing one numeric key.
type Group struct {
	Key float64 `json:"key"`
	N   int     `json:"n"`
}

// Grouped counts records per distinct numeric value, keys ascending.
type Grouped struct {
	Field  Field   `json:"field"`
	Groups []Group `json:"groups"`
}

func (*Grouped) Kind() SummaryKind { return KindGrouped }

// Correlation is a symmetric Pearson correlation matrix. Undefined entries
// are NaN.
type Correlation struct {
	Fields []Field
	Matrix *mat.SymDense
}

func (*Correlation) Kind() SummaryKind { return KindCorrelation }

// At returns the coefficient between fields i and j.
func (c *Correlation) At(i, j int) float64 {
	return c.Matrix.At(i, j)
}

// MarshalJSON encodes the matrix as nested arrays with null for NaN.
func (c *Correlation) MarshalJSON() ([]byte, error) {
	n := len(c.Fields)
	values := make([][]*float64, n)
	for i := 0; i < n; i++ {
		values[i] = make([]*float64, n)
		for j := 0; j < n; j++ {
			v := c.Matrix.At(i, j)
			if math.IsNaN(v) {
				continue
			}
			values[i][j] = &v
		}
	}
	return json.Marshal(struct {
		Fields []Field      `json:"fields"`
		Values [][]*float64 `json:"values"`
	}{c.Fields, values})
}

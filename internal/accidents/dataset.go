package accidents

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/banshee-data/accident.report/internal/fsutil"
)

// Dataset is an ordered, immutable set of records together with the schema
// it was loaded from. Operations return new Datasets and never modify the
// receiver's records.
type Dataset struct {
	// Source is the path the records were loaded from.
	Source string
	// Columns are the recognized columns present in the source, in header order.
	Columns []Field
	// Records are the rows that survived cleaning.
	Records []Record

	// numeric marks numerical columns whose every present value parsed as a
	// number when loaded, or that were coerced by Normalize.
	numeric map[Field]bool
}

// Len returns the number of records.
func (ds *Dataset) Len() int {
	if ds == nil {
		return 0
	}
	return len(ds.Records)
}

// Has reports whether f is present in the source schema.
func (ds *Dataset) Has(f Field) bool {
	for _, c := range ds.Columns {
		if c == f {
			return true
		}
	}
	return false
}

// IsNumeric reports whether f is a numeric column of the dataset.
func (ds *Dataset) IsNumeric(f Field) bool {
	return ds.numeric[f]
}

// derive returns a dataset sharing ds's schema with the given records.
func (ds *Dataset) derive(records []Record) *Dataset {
	numeric := make(map[Field]bool, len(ds.numeric))
	for k, v := range ds.numeric {
		numeric[k] = v
	}
	return &Dataset{
		Source:  ds.Source,
		Columns: append([]Field(nil), ds.Columns...),
		Records: records,
		numeric: numeric,
	}
}

// Distinct returns the distinct trimmed values of f in first-seen order.
func (ds *Dataset) Distinct(f Field) []string {
	seen := make(map[string]bool)
	var out []string
	for i := range ds.Records {
		v := strings.TrimSpace(ds.Records[i].Text(f))
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// naTokens are cell values treated as missing, matching the defaults of the
// tooling the dataset was prepared with.
var naTokens = map[string]bool{
	"": true, "NaN": true, "nan": true, "-NaN": true, "-nan": true, "NA": true, "N/A": true, "n/a": true,
	"<NA>": true, "#N/A": true, "#NA": true, "NULL": true, "null": true, "None": true,
}

func isMissing(cell string) bool {
	return naTokens[strings.TrimSpace(cell)]
}

// Load reads the CSV at path from the local filesystem.
func Load(path string) (*Dataset, error) {
	return LoadFS(fsutil.OSFileSystem{}, path)
}

// LoadFS reads a CSV through fsys. Every cell is read as text; rows with a
// missing value in any column are dropped. Errors wrap ErrDataUnavailable.
func LoadFS(fsys fsutil.FileSystem, path string) (*Dataset, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrDataUnavailable, path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrDataUnavailable, path, err)
	}

	df := dataframe.ReadCSV(bytes.NewReader(data),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		// gota rejects a file with a header and no rows; that is an empty
		// dataset, not an unreadable one.
		if header, ok := headerOnly(data); ok {
			return fromRows(path, header, nil)
		}
		return nil, fmt.Errorf("%w: parse %s: %v", ErrDataUnavailable, path, df.Err)
	}

	rows := df.Records()
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s has no header", ErrDataUnavailable, path)
	}
	return fromRows(path, rows[0], rows[1:])
}

// headerOnly returns the header of a well-formed CSV that has no data rows.
func headerOnly(data []byte) ([]string, bool) {
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil || len(rows) != 1 {
		return nil, false
	}
	return rows[0], true
}

// fromRows builds a dataset from a header and string rows. This is the
// cleaning step: required columns are checked, rows with any missing cell are
// dropped and numeric columns are inferred.
func fromRows(source string, header []string, rows [][]string) (*Dataset, error) {
	index := make(map[Field]int)
	var columns []Field
	for i, name := range header {
		f := Field(strings.TrimSpace(name))
		if !f.Known() {
			continue
		}
		if _, dup := index[f]; dup {
			continue
		}
		index[f] = i
		columns = append(columns, f)
	}

	var missing []string
	for _, f := range RequiredFields() {
		if _, ok := index[f]; !ok {
			missing = append(missing, string(f))
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s lacks required columns %s", ErrDataUnavailable, source, strings.Join(missing, ", "))
	}

	// Numeric inference looks at every present value, including rows that
	// are dropped below, so a column's type does not depend on cleaning.
	numeric := make(map[Field]bool)
	for _, f := range columns {
		if f.Kind() != Numerical {
			continue
		}
		numeric[f] = true
		for _, row := range rows {
			cell := row[index[f]]
			if isMissing(cell) {
				continue
			}
			if !ParseNumeric(cell).Valid {
				numeric[f] = false
				break
			}
		}
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		complete := true
		for _, cell := range row {
			if isMissing(cell) {
				complete = false
				break
			}
		}
		if !complete {
			continue
		}
		var rec Record
		for _, f := range columns {
			rec.set(f, row[index[f]])
		}
		records = append(records, rec)
	}

	return &Dataset{Source: source, Columns: columns, Records: records, numeric: numeric}, nil
}

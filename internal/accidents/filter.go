package accidents

import (
	"encoding/hex"
	"net/url"
	"strings"
)

// FilterSpec maps a field to the exact value records must carry. Only
// FilterFields participate; other keys are ignored.
type FilterSpec map[Field]string

// ParseFilterSpec builds a FilterSpec from query parameters. Values arrive
// already decoded by net/url; they are unescaped once more so that links
// built with pre-encoded values ("Snowy%20Road") still match. Empty
// parameters are omitted.
func ParseFilterSpec(q url.Values) FilterSpec {
	spec := make(FilterSpec)
	for _, f := range FilterFields {
		v := unescape(q.Get(f.Param()))
		if v == "" {
			continue
		}
		spec[f] = v
	}
	return spec
}

// unescape decodes every valid %XX sequence in s and leaves malformed ones
// as they are. '+' is not a space here.
func unescape(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			if dec, err := hex.DecodeString(s[i+1 : i+3]); err == nil {
				b.WriteByte(dec[0])
				i += 2
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return strings.ToValidUTF8(b.String(), "\uFFFD")
}

// Query renders the spec back into query parameters.
func (s FilterSpec) Query() url.Values {
	q := make(url.Values)
	for _, f := range FilterFields {
		if v, ok := s[f]; ok {
			q.Set(f.Param(), v)
		}
	}
	return q
}

// Params returns the spec keyed by query parameter name, for echoing back to
// the page.
func (s FilterSpec) Params() map[string]string {
	out := make(map[string]string, len(s))
	for _, f := range FilterFields {
		if v, ok := s[f]; ok {
			out[f.Param()] = v
		}
	}
	return out
}

// active returns the recognized entries of s in FilterFields order.
func (s FilterSpec) active() []Field {
	var out []Field
	for _, f := range FilterFields {
		if _, ok := s[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

// ApplyFilters returns the records of ds whose trimmed value equals the
// trimmed filter value for every recognized field in spec. ds is not
// modified; the result may be empty.
func ApplyFilters(ds *Dataset, spec FilterSpec) *Dataset {
	fields := spec.active()
	want := make(map[Field]string, len(fields))
	for _, f := range fields {
		want[f] = strings.TrimSpace(spec[f])
	}

	out := make([]Record, 0, len(ds.Records))
	for i := range ds.Records {
		rec := &ds.Records[i]
		match := true
		for _, f := range fields {
			if strings.TrimSpace(rec.Text(f)) != want[f] {
				match = false
				break
			}
		}
		if match {
			out = append(out, *rec)
		}
	}
	return ds.derive(out)
}

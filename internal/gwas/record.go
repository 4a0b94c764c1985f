package gwas

import (
	"fmt"
	"math"
	"strings"
)

// Field names a column of the GWAS catalog export.
type Field string

const (
	FieldTrait        Field = "DISEASE/TRAIT"
	FieldAncestry     Field = "BROAD ANCESTRAL CATEGORY"
	FieldSampleSize   Field = "NUMBER OF INDIVIDUALS"
	FieldAssociations Field = "ASSOCIATION COUNT"
	FieldDate         Field = "DATE"
)

// RequiredColumns lists the columns every dataset must carry.
var RequiredColumns = []Field{FieldTrait, FieldAncestry, FieldSampleSize, FieldAssociations, FieldDate}

// Label is the human readable name used in exports and charts.
func (f Field) Label() string {
	switch f {
	case FieldSampleSize:
		return "Sample Size"
	case FieldAssociations:
		return "Association Count"
	case FieldTrait:
		return "Trait"
	case FieldAncestry:
		return "Ancestry"
	case FieldDate:
		return "Year"
	}
	return string(f)
}

// Numeric reports whether the field holds a numeric measurement.
func (f Field) Numeric() bool {
	return f == FieldSampleSize || f == FieldAssociations
}

// ParseField accepts the CLI/HTTP spellings of the numeric fields.
func ParseField(s string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sample-size", "sample_size", "samplesize", "individuals", strings.ToLower(string(FieldSampleSize)):
		return FieldSampleSize, nil
	case "associations", "association-count", "association_count", strings.ToLower(string(FieldAssociations)):
		return FieldAssociations, nil
	}
	return "", fmt.Errorf("unknown numeric field %q (use sample-size or associations)", s)
}

// Record is one association row. Missing numeric values are NaN and missing
// text values are empty.
type Record struct {
	Trait        string  `json:"trait"`
	Ancestry     string  `json:"ancestry"`
	SampleSize   float64 `json:"sample_size"`
	Associations float64 `json:"association_count"`
	Date         string  `json:"date"`
}

// Value returns the numeric value of f, or NaN when f is not numeric.
func (r Record) Value(f Field) float64 {
	switch f {
	case FieldSampleSize:
		return r.SampleSize
	case FieldAssociations:
		return r.Associations
	}
	return math.NaN()
}

// Text returns the text value of f.
func (r Record) Text(f Field) string {
	switch f {
	case FieldTrait:
		return r.Trait
	case FieldAncestry:
		return r.Ancestry
	case FieldDate:
		return r.Date
	}
	return ""
}

// Year coerces the date cell to a number. Values that are not numeric are
// reported as missing. When datesAsYears is set, calendar dates are reduced
// to their year instead.
func (r Record) Year(datesAsYears bool) (float64, bool) {
	raw := strings.TrimSpace(r.Date)
	if raw == "" {
		return 0, false
	}
	if y, ok := parsePlainNumber(raw); ok {
		return y, true
	}
	if datesAsYears {
		if t, ok := parseTimeMaybe(raw); ok {
			return float64(t.Year()), true
		}
	}
	return 0, false
}

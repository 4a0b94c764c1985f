package gwas

import "math"

// DefaultRequired are the fields a record needs before it can be used.
var DefaultRequired = []Field{FieldSampleSize, FieldAssociations}

// Clean drops every record missing any of the given fields. Numeric fields
// are missing when NaN; text fields when empty. Order is preserved and the
// input slice is not modified.
func Clean(records []Record, required ...Field) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if complete(r, required) {
			out = append(out, r)
		}
	}
	return out
}

func complete(r Record, required []Field) bool {
	for _, f := range required {
		if f.Numeric() {
			if math.IsNaN(r.Value(f)) {
				return false
			}
			continue
		}
		if r.Text(f) == "" {
			return false
		}
	}
	return true
}

package gwas

import (
	"strings"

	"golang.org/x/text/cases"
)

// Criteria selects records by trait and ancestry substrings.
type Criteria struct {
	Trait    string `json:"trait" yaml:"trait"`
	Ancestry string `json:"ancestry" yaml:"ancestry"`
}

// Filter keeps the records whose trait and ancestry contain the criteria
// substrings, ignoring case. Empty (missing) values never match. The result
// keeps input order.
func Filter(records []Record, c Criteria) []Record {
	fold := cases.Fold()
	trait := fold.String(c.Trait)
	ancestry := fold.String(c.Ancestry)
	out := make([]Record, 0)
	for _, r := range records {
		if containsFolded(fold, r.Trait, trait) && containsFolded(fold, r.Ancestry, ancestry) {
			out = append(out, r)
		}
	}
	return out
}

func containsFolded(fold cases.Caser, value, needle string) bool {
	if value == "" {
		return false
	}
	return strings.Contains(fold.String(value), needle)
}

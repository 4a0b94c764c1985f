package gwas

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"
)

// Profile is a markdown-friendly summary of a filtered subset.
type Profile struct {
	Name      string
	Criteria  Criteria
	Rows      int
	Traits    []CategoryCount
	Ancestry  []CategoryCount
	Unique    map[Field]int
	Numeric   []NumSummary
	YearRange [2]float64
	Years     int
	Warnings  []string
}

// CategoryCount is a value with its frequency.
type CategoryCount struct {
	Value string
	Count int
}

// NumSummary captures distribution statistics for one numeric column.
type NumSummary struct {
	Field                  Field
	Count                  int
	Min, Max, Mean, Median float64
	P25, P75               float64
}

// BuildProfile summarises subset. topN limits the category lists (default 8).
func BuildProfile(name string, c Criteria, subset []Record, topN int, datesAsYears bool) *Profile {
	if topN <= 0 {
		topN = 8
	}
	p := &Profile{Name: name, Criteria: c, Rows: len(subset), Unique: map[Field]int{}}
	if len(subset) == 0 {
		p.Warnings = append(p.Warnings, EmptyWarning)
		return p
	}
	p.Traits, p.Unique[FieldTrait] = topValues(subset, FieldTrait, topN)
	p.Ancestry, p.Unique[FieldAncestry] = topValues(subset, FieldAncestry, topN)
	for _, f := range []Field{FieldSampleSize, FieldAssociations} {
		if s, ok := summarize(subset, f); ok {
			p.Numeric = append(p.Numeric, s)
		}
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	seen := map[float64]struct{}{}
	var bad int
	for _, r := range subset {
		y, ok := r.Year(datesAsYears)
		if !ok {
			bad++
			continue
		}
		seen[y] = struct{}{}
		lo = math.Min(lo, y)
		hi = math.Max(hi, y)
	}
	p.Years = len(seen)
	if p.Years > 0 {
		p.YearRange = [2]float64{lo, hi}
	}
	if bad > 0 {
		p.Warnings = append(p.Warnings, fmt.Sprintf("%d/%d rows have a missing or malformed year", bad, len(subset)))
	}
	return p
}

func topValues(subset []Record, f Field, n int) ([]CategoryCount, int) {
	counts := map[string]int{}
	for _, r := range subset {
		if v := r.Text(f); v != "" {
			counts[v]++
		}
	}
	tops := make([]CategoryCount, 0, len(counts))
	for k, v := range counts {
		tops = append(tops, CategoryCount{Value: k, Count: v})
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return tops[i].Value < tops[j].Value
		}
		return tops[i].Count > tops[j].Count
	})
	if len(tops) > n {
		tops = tops[:n]
	}
	return tops, len(counts)
}

func summarize(subset []Record, f Field) (NumSummary, bool) {
	data := make(stats.Float64Data, 0, len(subset))
	for _, r := range subset {
		if v := r.Value(f); !math.IsNaN(v) {
			data = append(data, v)
		}
	}
	if len(data) == 0 {
		return NumSummary{}, false
	}
	s := NumSummary{Field: f, Count: len(data)}
	// Errors only occur on empty input, ruled out above.
	s.Min, _ = stats.Min(data)
	s.Max, _ = stats.Max(data)
	s.Mean, _ = stats.Mean(data)
	s.Median, _ = stats.Median(data)
	s.P25, _ = stats.Percentile(data, 25)
	s.P75, _ = stats.Percentile(data, 75)
	return s, true
}

// Markdown renders a compact report suitable for prompts or standalone docs.
func (p *Profile) Markdown() string {
	var b strings.Builder
	b.WriteString("[SUBSET SUMMARY]\n")
	if p.Name != "" {
		b.WriteString(fmt.Sprintf("Dataset: %s\n", p.Name))
	}
	b.WriteString(fmt.Sprintf("Trait filter: %q\n", p.Criteria.Trait))
	b.WriteString(fmt.Sprintf("Ancestry filter: %q\n", p.Criteria.Ancestry))
	b.WriteString(fmt.Sprintf("Rows: %d\n", p.Rows))
	if p.Years > 0 {
		b.WriteString(fmt.Sprintf("Years: %d (%s–%s)\n", p.Years, formatNumber(p.YearRange[0]), formatNumber(p.YearRange[1])))
	}
	if len(p.Numeric) > 0 {
		b.WriteString("\n[NUMERIC]\n")
		for _, s := range p.Numeric {
			b.WriteString(fmt.Sprintf("- %s (n=%d): min %.4g, p25 %.4g, median %.4g, mean %.4g, p75 %.4g, max %.4g\n",
				s.Field.Label(), s.Count, s.Min, s.P25, s.Median, s.Mean, s.P75, s.Max))
		}
	}
	writeTops := func(title string, f Field, tops []CategoryCount) {
		if len(tops) == 0 {
			return
		}
		b.WriteString(fmt.Sprintf("\n[%s]\n", title))
		for _, kv := range tops {
			b.WriteString(fmt.Sprintf("- %s (%d)\n", safeVal(kv.Value), kv.Count))
		}
		if u := p.Unique[f]; u > len(tops) {
			b.WriteString(fmt.Sprintf("- … %d distinct values\n", u))
		}
	}
	writeTops("TOP TRAITS", FieldTrait, p.Traits)
	writeTops("TOP ANCESTRY", FieldAncestry, p.Ancestry)
	if len(p.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range p.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }

package gwas

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// TrendPoint is the mean of a column over one year.
type TrendPoint struct {
	Year  float64 `json:"year" yaml:"year"`
	Mean  float64 `json:"mean" yaml:"mean"`
	Count int     `json:"count" yaml:"count"`
}

// Trend is a per-year series, ascending by year.
type Trend struct {
	Field  Field        `json:"field" yaml:"field"`
	Points []TrendPoint `json:"points" yaml:"points"`
	// Excluded counts rows dropped because their year was missing or malformed.
	Excluded int `json:"excluded" yaml:"excluded"`
}

// Aggregate groups subset by year and averages field within each year. Rows
// whose year cannot be coerced to a number are excluded, not errors.
func Aggregate(subset []Record, field Field, datesAsYears bool) *Trend {
	tr := &Trend{Field: field}
	groups := map[float64][]float64{}
	for _, r := range subset {
		y, ok := r.Year(datesAsYears)
		if !ok {
			tr.Excluded++
			continue
		}
		v := r.Value(field)
		if math.IsNaN(v) {
			continue
		}
		groups[y] = append(groups[y], v)
	}
	years := make([]float64, 0, len(groups))
	for y := range groups {
		years = append(years, y)
	}
	sort.Float64s(years)
	tr.Points = make([]TrendPoint, 0, len(years))
	for _, y := range years {
		vals := groups[y]
		tr.Points = append(tr.Points, TrendPoint{Year: y, Mean: stat.Mean(vals, nil), Count: len(vals)})
	}
	return tr
}

// Header returns the two export column names, e.g. "Year", "Avg Sample Size".
func (t *Trend) Header() []string {
	return []string{"Year", "Avg " + t.Field.Label()}
}

// FileName is the suggested download name, e.g. sample_size_trend.csv.
func (t *Trend) FileName() string {
	return strings.ToLower(strings.ReplaceAll(t.Field.Label(), " ", "_")) + "_trend.csv"
}

// Title is the chart/report heading for the series.
func (t *Trend) Title() string {
	return t.Field.Label() + " Evolution Over Time"
}

// WriteCSV writes the header row then one row per year.
func (t *Trend) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header()); err != nil {
		return fmt.Errorf("write trend header: %w", err)
	}
	for _, p := range t.Points {
		if err := cw.Write([]string{formatNumber(p.Year), formatNumber(p.Mean)}); err != nil {
			return fmt.Errorf("write trend row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// CSV returns the export as UTF-8 bytes.
func (t *Trend) CSV() ([]byte, error) {
	var buf bytes.Buffer
	if err := t.WriteCSV(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

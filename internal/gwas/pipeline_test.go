package gwas

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(trait, ancestry string, n, assoc float64, date string) Record {
	return Record{Trait: trait, Ancestry: ancestry, SampleSize: n, Associations: assoc, Date: date}
}

func fiveRows() []Record {
	return []Record{
		rec("Type 2 Diabetes", "African American", 1200, 4, "2010"),
		rec("Asthma", "African American", 900, 2, "2011"),
		rec("type 1 diabetes", "European", 5000, 12, "2011"),
		rec("Diabetic retinopathy", "african american or afro-caribbean", 3000, 9, "2013"),
		rec("Height", "East Asian", 20000, 80, "2014"),
	}
}

func TestCleanDropsMissingAndIsIdempotent(t *testing.T) {
	in := []Record{
		rec("A", "X", 10, 1, "2010"),
		rec("B", "X", math.NaN(), 1, "2010"),
		rec("C", "X", 10, math.NaN(), "2010"),
		rec("D", "X", 30, 0, ""),
	}
	once := Clean(in, DefaultRequired...)
	require.Len(t, once, 2)
	assert.Equal(t, "A", once[0].Trait)
	assert.Equal(t, "D", once[1].Trait)
	assert.Equal(t, once, Clean(once, DefaultRequired...))
	assert.Len(t, in, 4, "input must not be modified")

	assert.Empty(t, Clean(nil, DefaultRequired...))
	assert.Len(t, Clean(in, FieldDate), 3)
}

func TestFilterCaseInsensitiveStableIdempotent(t *testing.T) {
	data := fiveRows()
	c := Criteria{Trait: "DIABET", Ancestry: "african american"}
	got := Filter(data, c)
	require.Len(t, got, 2)
	assert.Equal(t, "Type 2 Diabetes", got[0].Trait)
	assert.Equal(t, "Diabetic retinopathy", got[1].Trait)
	assert.Equal(t, got, Filter(got, c))
}

func TestFilterMissingValuesNeverMatch(t *testing.T) {
	data := []Record{
		rec("", "European", 1, 1, "2010"),
		rec("Asthma", "", 1, 1, "2010"),
		rec("Asthma", "European", 1, 1, "2010"),
	}
	got := Filter(data, Criteria{})
	require.Len(t, got, 1)
	assert.Equal(t, "European", got[0].Ancestry)
}

func TestTrendFixture(t *testing.T) {
	subset := []Record{
		rec("A", "X", 100, 1, "2010"),
		rec("A", "X", 200, 3, "2010"),
		rec("A", "X", 300, 5, "2011"),
	}
	tr := Aggregate(subset, FieldSampleSize, false)
	require.Len(t, tr.Points, 2)
	assert.Equal(t, TrendPoint{Year: 2010, Mean: 150, Count: 2}, tr.Points[0])
	assert.Equal(t, TrendPoint{Year: 2011, Mean: 300, Count: 1}, tr.Points[1])

	b, err := tr.CSV()
	require.NoError(t, err)
	assert.Equal(t, "Year,Avg Sample Size\n2010,150\n2011,300\n", string(b))
	assert.Equal(t, "sample_size_trend.csv", tr.FileName())

	assoc := Aggregate(subset, FieldAssociations, false)
	assert.Equal(t, []string{"Year", "Avg Association Count"}, assoc.Header())
	assert.Equal(t, "association_count_trend.csv", assoc.FileName())
	assert.Equal(t, 2.0, assoc.Points[0].Mean)
}

func TestTrendExcludesMalformedYears(t *testing.T) {
	subset := []Record{
		rec("A", "X", 100, 1, "2012"),
		rec("A", "X", 999, 1, "unknown"),
		rec("A", "X", 999, 1, ""),
		rec("A", "X", 50, 1, "2009"),
		rec("A", "X", 999, 1, "2010-05-01"),
	}
	tr := Aggregate(subset, FieldSampleSize, false)
	require.Len(t, tr.Points, 2)
	assert.Equal(t, 2009.0, tr.Points[0].Year)
	assert.Equal(t, 2012.0, tr.Points[1].Year)
	assert.Equal(t, 3, tr.Excluded)

	withDates := Aggregate(subset, FieldSampleSize, true)
	require.Len(t, withDates.Points, 3)
	assert.Equal(t, 2010.0, withDates.Points[1].Year)
	assert.Equal(t, 2, withDates.Excluded)
}

func TestFitRejectsEmptySubset(t *testing.T) {
	_, err := Fit(context.Background(), nil, DirectionAssociations, DefaultModelOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestPredictIsReproducibleWithSeed(t *testing.T) {
	subset := Filter(fiveRows(), Criteria{Trait: "diabet"})
	require.Len(t, subset, 3)
	opt := DefaultModelOptions()
	a, err := Fit(context.Background(), subset, DirectionAssociations, opt)
	require.NoError(t, err)
	b, err := Fit(context.Background(), subset, DirectionAssociations, opt)
	require.NoError(t, err)
	for _, x := range []float64{1, 1000, 2500, 4200, 1e6} {
		pa, pb := a.Predict(x), b.Predict(x)
		assert.Equal(t, pa.Rounded, pb.Rounded, "x=%v", x)
		assert.Equal(t, pa.Value, pb.Value, "x=%v", x)
	}
	p := a.Predict(1200)
	assert.Equal(t, DirectionAssociations, p.Direction)
	assert.GreaterOrEqual(t, p.Value, 4.0)
	assert.LessOrEqual(t, p.Value, 12.0)
	assert.True(t, strings.HasPrefix(p.Message(), "Predicted number of associations: "))
}

func TestFitBothDirections(t *testing.T) {
	subset := []Record{
		rec("A", "X", 100, 1, "2010"),
		rec("A", "X", 100, 1, "2010"),
		rec("A", "X", 10000, 50, "2011"),
		rec("A", "X", 10000, 50, "2011"),
	}
	d, err := FitBoth(context.Background(), subset, ModelOptions{Trees: 10, Seed: 7})
	require.NoError(t, err)
	assert.Equal(t, DirectionSampleSize, d.For(DirectionSampleSize).Direction)
	assert.Equal(t, DirectionAssociations, d.For(DirectionAssociations).Direction)
	ss := d.SampleSize.Predict(1)
	assert.True(t, strings.HasPrefix(ss.Message(), "Predicted sample size: "))
	assert.LessOrEqual(t, ss.Value, 10000.0)
	assert.GreaterOrEqual(t, ss.Value, 100.0)
}

func TestRoundingIsHalfToEven(t *testing.T) {
	// A single-row forest predicts the row's target exactly.
	p, err := Fit(context.Background(), []Record{rec("A", "X", 10, 2.5, "2010")}, DirectionAssociations, ModelOptions{Trees: 3, Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, 2.5, p.Predict(10).Value)
	assert.Equal(t, int64(2), p.Predict(10).Rounded)
}

func TestPipelineEmptyFilterDoesNotFit(t *testing.T) {
	var stages []Stage
	pl := &Pipeline{OnStage: func(s Stage, _ time.Duration) { stages = append(stages, s) }}
	res, err := pl.Run(context.Background(), fiveRows(), Params{
		Criteria:   Criteria{Trait: "Nonexistent123", Ancestry: "Nonexistent456"},
		KnownValue: 1000,
	})
	require.NoError(t, err)
	assert.True(t, res.Empty)
	assert.Equal(t, 0, res.Matched)
	assert.Nil(t, res.Prediction)
	assert.Nil(t, res.Trend)
	assert.Equal(t, []string{EmptyWarning}, res.Warnings)
	assert.Equal(t, []Stage{StageFiltered}, stages)
}

func TestPipelineEndToEndFiveRows(t *testing.T) {
	data := fiveRows()
	// Trait "diabet" matches three rows; ancestry narrows to two of them.
	require.Len(t, Filter(data, Criteria{Trait: "diabet"}), 3)

	var stages []Stage
	pl := &Pipeline{OnStage: func(s Stage, _ time.Duration) { stages = append(stages, s) }}
	res, err := pl.Run(context.Background(), data, Params{
		Criteria:   Criteria{Trait: "diabet", Ancestry: "African American"},
		KnownValue: 2000,
		Model:      DefaultModelOptions(),
	})
	require.NoError(t, err)
	assert.False(t, res.Empty)
	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 2, res.Matched)
	require.Len(t, res.Subset, 2)
	require.NotNil(t, res.Prediction)
	assert.Equal(t, 2, res.Prediction.Rows)
	assert.NotEmpty(t, res.RunID)
	require.NotNil(t, res.Trend)
	assert.Equal(t, FieldSampleSize, res.Trend.Field)
	assert.Equal(t, []TrendPoint{{Year: 2010, Mean: 1200, Count: 1}, {Year: 2013, Mean: 3000, Count: 1}}, res.Trend.Points)
	assert.Equal(t, []Stage{StageFiltered, StageFitted, StagePredicted, StageAggregate}, stages)

	again, err := Run(context.Background(), data, Params{
		Criteria:   Criteria{Trait: "diabet", Ancestry: "African American"},
		KnownValue: 2000,
	})
	require.NoError(t, err)
	assert.Equal(t, res.Prediction.Rounded, again.Prediction.Rounded)
	assert.NotEqual(t, res.RunID, again.RunID)
}

func TestPipelineDualAndDirection(t *testing.T) {
	alt := 9.0
	res, err := Run(context.Background(), fiveRows(), Params{
		Criteria:       Criteria{Trait: "diabet"},
		KnownValue:     4,
		Direction:      DirectionSampleSize,
		Dual:           true,
		AlternateValue: &alt,
		Model:          ModelOptions{Trees: 20, Seed: 42},
	})
	require.NoError(t, err)
	require.NotNil(t, res.Prediction)
	require.NotNil(t, res.Alternate)
	assert.Equal(t, DirectionSampleSize, res.Prediction.Direction)
	assert.Equal(t, DirectionAssociations, res.Alternate.Direction)
	assert.Equal(t, FieldAssociations, res.Trend.Field)
}

func TestPipelineValidatesInput(t *testing.T) {
	for name, p := range map[string]Params{
		"nan":       {KnownValue: math.NaN()},
		"negative":  {KnownValue: -1},
		"direction": {KnownValue: 1, Direction: "sideways"},
		"field":     {KnownValue: 1, TrendField: FieldTrait},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Run(context.Background(), fiveRows(), p)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestRenderChart(t *testing.T) {
	tr := Aggregate([]Record{
		rec("A", "X", 100, 1, "2010"),
		rec("A", "X", 300, 1, "2012"),
	}, FieldSampleSize, false)
	var buf bytes.Buffer
	require.NoError(t, RenderChart(&buf, tr, DefaultChartOptions()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))

	assert.ErrorIs(t, RenderChart(&buf, &Trend{Field: FieldSampleSize}, DefaultChartOptions()), ErrEmptyTrend)
}

func TestProfileMarkdown(t *testing.T) {
	subset := Filter(fiveRows(), Criteria{Trait: "diabet"})
	p := BuildProfile("gwas.csv", Criteria{Trait: "diabet"}, subset, 0, false)
	assert.Equal(t, 3, p.Rows)
	assert.Equal(t, 3, p.Years)
	require.Len(t, p.Numeric, 2)
	assert.Equal(t, 3000.0, p.Numeric[0].Median)
	md := p.Markdown()
	assert.Contains(t, md, "[SUBSET SUMMARY]")
	assert.Contains(t, md, "Rows: 3")
	assert.Contains(t, md, "[TOP TRAITS]")
	assert.Contains(t, md, "- Sample Size (n=3): min 1200")

	empty := BuildProfile("gwas.csv", Criteria{Trait: "zzz"}, nil, 0, false)
	assert.Contains(t, empty.Markdown(), EmptyWarning)
}

func TestParseDirectionAndField(t *testing.T) {
	d, err := ParseDirection("")
	require.NoError(t, err)
	assert.Equal(t, DirectionAssociations, d)
	d, err = ParseDirection("Sample-Size")
	require.NoError(t, err)
	assert.Equal(t, DirectionSampleSize, d)
	_, err = ParseDirection("up")
	assert.ErrorIs(t, err, ErrInvalidInput)

	f, err := ParseField("associations")
	require.NoError(t, err)
	assert.Equal(t, FieldAssociations, f)
	_, err = ParseField("date")
	assert.Error(t, err)
}

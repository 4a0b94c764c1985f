package gwas

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
)

// EmptyWarning is reported when no record matches the criteria.
const EmptyWarning = "No matching data for this trait and ancestry."

// Stage names a pipeline step, used for logging and metrics.
type Stage string

const (
	StageFiltered  Stage = "filter"
	StageFitted    Stage = "fit"
	StagePredicted Stage = "predict"
	StageAggregate Stage = "aggregate"
)

// Params are the per-request inputs of one pipeline run. Dual also trains
// the opposite direction; when AlternateValue is set it is fed to that model
// and the output reported as Result.Alternate. An empty TrendField follows
// the direction (see TrendFieldFor).
type Params struct {
	Criteria       Criteria     `json:"criteria" yaml:"criteria"`
	KnownValue     float64      `json:"known_value" yaml:"known_value"`
	Direction      Direction    `json:"direction" yaml:"direction"`
	Dual           bool         `json:"dual" yaml:"dual"`
	AlternateValue *float64     `json:"alternate_value,omitempty" yaml:"alternate_value,omitempty"`
	TrendField     Field        `json:"trend_field,omitempty" yaml:"trend_field,omitempty"`
	Model          ModelOptions `json:"model" yaml:"model"`
	DatesAsYears   bool         `json:"dates_as_years" yaml:"dates_as_years"`
}

// TrendFieldFor returns the trend column shown with a direction: the
// predictor column, so a sample-size input is shown next to its history.
func TrendFieldFor(d Direction) Field {
	x, _ := d.Roles()
	return x
}

// Validate checks the params before anything runs.
func (p Params) Validate() error {
	if math.IsNaN(p.KnownValue) || math.IsInf(p.KnownValue, 0) {
		return fmt.Errorf("%w: known value must be a finite number", ErrInvalidInput)
	}
	if p.KnownValue < 0 {
		return fmt.Errorf("%w: known value must be non-negative, got %v", ErrInvalidInput, p.KnownValue)
	}
	if v := p.AlternateValue; v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0) {
		return fmt.Errorf("%w: alternate value must be a finite non-negative number", ErrInvalidInput)
	}
	if p.Direction != "" && p.Direction != DirectionAssociations && p.Direction != DirectionSampleSize {
		return fmt.Errorf("%w: unknown direction %q", ErrInvalidInput, p.Direction)
	}
	if p.TrendField != "" && !p.TrendField.Numeric() {
		return fmt.Errorf("%w: trend field %q is not numeric", ErrInvalidInput, p.TrendField)
	}
	return nil
}

// Result is everything a UI needs to render one run.
type Result struct {
	RunID      string      `json:"run_id" yaml:"run_id"`
	Criteria   Criteria    `json:"criteria" yaml:"criteria"`
	Total      int         `json:"total" yaml:"total"`
	Matched    int         `json:"matched" yaml:"matched"`
	Empty      bool        `json:"empty" yaml:"empty"`
	Prediction *Prediction `json:"prediction,omitempty" yaml:"prediction,omitempty"`
	Alternate  *Prediction `json:"alternate,omitempty" yaml:"alternate,omitempty"`
	Trend      *Trend      `json:"trend,omitempty" yaml:"trend,omitempty"`
	Warnings   []string    `json:"warnings,omitempty" yaml:"warnings,omitempty"`

	// Subset is the filtered view; not serialized.
	Subset []Record `json:"-" yaml:"-"`
}

// Pipeline runs filter → fit → predict → aggregate over a cleaned dataset.
// The zero value is ready to use.
type Pipeline struct {
	Logger *slog.Logger
	// OnStage, when set, is called after each completed stage.
	OnStage func(stage Stage, d time.Duration)
}

// Run executes one pipeline cycle with the default Pipeline.
func Run(ctx context.Context, records []Record, p Params) (*Result, error) {
	return (&Pipeline{}).Run(ctx, records, p)
}

// Run filters records, and unless the subset is empty, fits the predictor,
// predicts p.KnownValue and aggregates the trend. An empty subset is not an
// error: the Result carries a warning and nothing is fitted.
func (pl *Pipeline) Run(ctx context.Context, records []Record, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.Direction == "" {
		p.Direction = DirectionAssociations
	}
	if p.Model == (ModelOptions{}) {
		p.Model = DefaultModelOptions()
	}
	log := pl.Logger
	if log == nil {
		log = slog.Default()
	}
	res := &Result{RunID: uuid.NewString(), Criteria: p.Criteria, Total: len(records)}
	log = log.With("run_id", res.RunID)

	start := time.Now()
	res.Subset = Filter(records, p.Criteria)
	res.Matched = len(res.Subset)
	pl.observe(StageFiltered, start)
	log.Debug("filtered dataset", "trait", p.Criteria.Trait, "ancestry", p.Criteria.Ancestry,
		"total", res.Total, "matched", res.Matched)

	if res.Matched == 0 {
		res.Empty = true
		res.Warnings = append(res.Warnings, EmptyWarning)
		log.Info("no matching records", "trait", p.Criteria.Trait, "ancestry", p.Criteria.Ancestry)
		return res, nil
	}

	start = time.Now()
	var primary, alternate *Predictor
	if p.Dual {
		dual, err := FitBoth(ctx, res.Subset, p.Model)
		if err != nil {
			return nil, err
		}
		primary, alternate = dual.For(p.Direction), dual.For(p.Direction.Opposite())
	} else {
		pr, err := Fit(ctx, res.Subset, p.Direction, p.Model)
		if err != nil {
			return nil, err
		}
		primary = pr
	}
	pl.observe(StageFitted, start)
	log.Debug("fitted predictor", "direction", p.Direction, "rows", primary.Rows, "trees", p.Model.Trees, "seed", p.Model.Seed)

	start = time.Now()
	pred := primary.Predict(p.KnownValue)
	res.Prediction = &pred
	if alternate != nil && p.AlternateValue != nil {
		alt := alternate.Predict(*p.AlternateValue)
		res.Alternate = &alt
	}
	pl.observe(StagePredicted, start)

	start = time.Now()
	field := p.TrendField
	if field == "" {
		field = TrendFieldFor(p.Direction)
	}
	res.Trend = Aggregate(res.Subset, field, p.DatesAsYears)
	pl.observe(StageAggregate, start)
	if res.Trend.Excluded > 0 {
		log.Debug("excluded rows with malformed year", "count", res.Trend.Excluded)
	}
	if len(res.Trend.Points) == 0 {
		res.Warnings = append(res.Warnings, "No valid years in the matching data; trend is empty.")
	}
	log.Info("pipeline complete", "matched", res.Matched, "prediction", pred.Rounded, "years", len(res.Trend.Points))
	return res, nil
}

func (pl *Pipeline) observe(s Stage, start time.Time) {
	if pl.OnStage != nil {
		pl.OnStage(s, time.Since(start))
	}
}

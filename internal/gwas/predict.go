package gwas

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/KaramelBytes/gwastrend/internal/forest"
)

// Direction selects which column is predicted from which.
type Direction string

const (
	// DirectionAssociations predicts association count from sample size.
	DirectionAssociations Direction = "associations"
	// DirectionSampleSize predicts sample size from association count.
	DirectionSampleSize Direction = "sample-size"
)

// ParseDirection accepts the CLI/HTTP spellings of a direction.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "associations", "association", "association-count", "assoc":
		return DirectionAssociations, nil
	case "sample-size", "sample_size", "samplesize", "sample", "individuals":
		return DirectionSampleSize, nil
	}
	return "", fmt.Errorf("%w: unknown direction %q (use associations or sample-size)", ErrInvalidInput, s)
}

// Roles returns the predictor (X) and target (y) fields.
func (d Direction) Roles() (x, y Field) {
	if d == DirectionSampleSize {
		return FieldAssociations, FieldSampleSize
	}
	return FieldSampleSize, FieldAssociations
}

// Opposite returns the other direction.
func (d Direction) Opposite() Direction {
	if d == DirectionSampleSize {
		return DirectionAssociations
	}
	return DirectionSampleSize
}

// ModelOptions configures the forest behind a Predictor.
type ModelOptions struct {
	Trees           int   `json:"trees" yaml:"trees"`
	MaxDepth        int   `json:"max_depth" yaml:"max_depth"`
	MinSamplesSplit int   `json:"min_samples_split" yaml:"min_samples_split"`
	Seed            int64 `json:"seed" yaml:"seed"`
}

// DefaultModelOptions mirrors a stock forest regressor with random_state=42.
func DefaultModelOptions() ModelOptions {
	return ModelOptions{Trees: 100, MinSamplesSplit: 2, Seed: 42}
}

// Prediction is a single predicted value for one input.
type Prediction struct {
	Direction Direction `json:"direction"`
	Input     float64   `json:"input"`
	Value     float64   `json:"value"`
	Rounded   int64     `json:"rounded"`
	Rows      int       `json:"rows"`
}

// Message is the one-line summary shown to users.
func (p Prediction) Message() string {
	_, y := p.Direction.Roles()
	switch y {
	case FieldAssociations:
		return fmt.Sprintf("Predicted number of associations: %d", p.Rounded)
	default:
		return fmt.Sprintf("Predicted sample size: %d", p.Rounded)
	}
}

// Predictor is a forest fitted for one direction over a filtered subset.
type Predictor struct {
	Direction Direction
	Rows      int
	model     *forest.Regressor
}

// Fit trains a predictor for dir on subset. An empty subset fails with
// ErrInsufficientData before any training happens.
func Fit(ctx context.Context, subset []Record, dir Direction, opt ModelOptions) (*Predictor, error) {
	if len(subset) == 0 {
		return nil, &InsufficientDataError{Rows: 0, Direction: dir}
	}
	xf, yf := dir.Roles()
	X := make([][]float64, 0, len(subset))
	y := make([]float64, 0, len(subset))
	for _, r := range subset {
		xv, yv := r.Value(xf), r.Value(yf)
		if math.IsNaN(xv) || math.IsNaN(yv) {
			continue
		}
		X = append(X, []float64{xv})
		y = append(y, yv)
	}
	if len(X) == 0 {
		return nil, &InsufficientDataError{Rows: 0, Direction: dir}
	}
	opts := []forest.Option{forest.WithRandomState(opt.Seed)}
	if opt.Trees > 0 {
		opts = append(opts, forest.WithNEstimators(opt.Trees))
	}
	if opt.MaxDepth > 0 {
		opts = append(opts, forest.WithMaxDepth(opt.MaxDepth))
	}
	if opt.MinSamplesSplit > 0 {
		opts = append(opts, forest.WithMinSamplesSplit(opt.MinSamplesSplit))
	}
	m := forest.New(opts...)
	if err := m.Fit(ctx, X, y); err != nil {
		return nil, fmt.Errorf("fit %s model: %w", dir, err)
	}
	return &Predictor{Direction: dir, Rows: len(X), model: m}, nil
}

// Predict returns the model output for x. The rounded value uses
// round-half-to-even.
func (p *Predictor) Predict(x float64) Prediction {
	v := p.model.PredictOne([]float64{x})
	return Prediction{
		Direction: p.Direction,
		Input:     x,
		Value:     v,
		Rounded:   int64(math.RoundToEven(v)),
		Rows:      p.Rows,
	}
}

// Dual holds independent predictors for both directions over the same subset.
type Dual struct {
	Associations *Predictor
	SampleSize   *Predictor
}

// FitBoth trains one predictor per direction.
func FitBoth(ctx context.Context, subset []Record, opt ModelOptions) (*Dual, error) {
	a, err := Fit(ctx, subset, DirectionAssociations, opt)
	if err != nil {
		return nil, err
	}
	s, err := Fit(ctx, subset, DirectionSampleSize, opt)
	if err != nil {
		return nil, err
	}
	return &Dual{Associations: a, SampleSize: s}, nil
}

// For returns the predictor for dir.
func (d *Dual) For(dir Direction) *Predictor {
	if dir == DirectionSampleSize {
		return d.SampleSize
	}
	return d.Associations
}

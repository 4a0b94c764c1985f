package forest

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stepData() ([][]float64, []float64) {
	var X [][]float64
	var y []float64
	for i := 0; i < 40; i++ {
		x := float64(i)
		X = append(X, []float64{x})
		if x < 20 {
			y = append(y, 10)
		} else {
			y = append(y, 50)
		}
	}
	return X, y
}

func TestTreeFitsStepFunction(t *testing.T) {
	X, y := stepData()
	tr := &Tree{MinSamplesSplit: 2, MinSamplesLeaf: 1}
	require.NoError(t, tr.Fit(X, y, nil))
	assert.Equal(t, 10.0, tr.Predict([]float64{3}))
	assert.Equal(t, 50.0, tr.Predict([]float64{35}))
	assert.Equal(t, 1, tr.Depth())
}

func TestTreeMaxDepthZeroSplitsIsMean(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}}
	y := []float64{1, 2, 6}
	tr := &Tree{MaxDepth: 0, MinSamplesSplit: 10}
	require.NoError(t, tr.Fit(X, y, nil))
	assert.InDelta(t, 3.0, tr.Predict([]float64{100}), 1e-12)
}

func TestTreeRejectsNaN(t *testing.T) {
	tr := &Tree{}
	err := tr.Fit([][]float64{{math.NaN()}}, []float64{1}, nil)
	require.Error(t, err)
}

func TestForestSeededIsReproducible(t *testing.T) {
	X, y := stepData()
	a := New(WithRandomState(42), WithNEstimators(25))
	b := New(WithRandomState(42), WithNEstimators(25))
	require.NoError(t, a.Fit(context.Background(), X, y))
	require.NoError(t, b.Fit(context.Background(), X, y))
	for _, x := range []float64{0, 12.5, 19.5, 20.5, 39, 100} {
		assert.Equal(t, a.PredictOne([]float64{x}), b.PredictOne([]float64{x}), "x=%v", x)
	}
}

func TestForestSingleRow(t *testing.T) {
	f := New()
	require.NoError(t, f.Fit(context.Background(), [][]float64{{1000}}, []float64{7}))
	assert.Equal(t, 7.0, f.PredictOne([]float64{5}))
}

func TestForestTracksStep(t *testing.T) {
	X, y := stepData()
	f := New(WithNEstimators(50))
	require.NoError(t, f.Fit(context.Background(), X, y))
	assert.InDelta(t, 10, f.PredictOne([]float64{2}), 1e-9)
	assert.InDelta(t, 50, f.PredictOne([]float64{38}), 1e-9)
	preds := f.Predict([][]float64{{2}, {38}})
	assert.Len(t, preds, 2)
}

func TestForestErrors(t *testing.T) {
	f := New()
	assert.Error(t, f.Fit(context.Background(), nil, nil))
	assert.Error(t, f.Fit(context.Background(), [][]float64{{1}}, []float64{1, 2}))
	assert.False(t, f.Fitted())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	X, y := stepData()
	assert.ErrorIs(t, New().Fit(ctx, X, y), context.Canceled)
}

// Package forest implements a seeded random forest regressor.
package forest

import (
	"context"
	"errors"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// Regressor averages the outputs of bootstrapped regression trees.
type Regressor struct {
	// Hyperparameters / options
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int
	Bootstrap       bool
	RandomState     int64

	trees []*Tree
}

// Option functional config for Regressor
type Option func(*Regressor)

func WithNEstimators(n int) Option      { return func(r *Regressor) { r.NEstimators = n } }
func WithMaxDepth(d int) Option         { return func(r *Regressor) { r.MaxDepth = d } }
func WithMinSamplesSplit(n int) Option  { return func(r *Regressor) { r.MinSamplesSplit = n } }
func WithMinSamplesLeaf(n int) Option   { return func(r *Regressor) { r.MinSamplesLeaf = n } }
func WithMaxFeatures(k int) Option      { return func(r *Regressor) { r.MaxFeatures = k } }
func WithBootstrap(b bool) Option       { return func(r *Regressor) { r.Bootstrap = b } }
func WithRandomState(seed int64) Option { return func(r *Regressor) { r.RandomState = seed } }

// New returns a regressor with 100 bootstrapped trees and seed 42.
func New(opts ...Option) *Regressor {
	r := &Regressor{
		NEstimators:     100,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Bootstrap:       true,
		RandomState:     42,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Fit trains the forest. Trees are grown concurrently; tree i draws its
// bootstrap sample and feature subsets from its own source seeded with
// RandomState+i, so the fitted forest depends only on the seed and the data.
func (r *Regressor) Fit(ctx context.Context, X [][]float64, y []float64) error {
	if len(X) == 0 {
		return errors.New("forest: empty X")
	}
	if len(y) != len(X) {
		return errors.New("forest: X and y length mismatch")
	}
	if r.NEstimators <= 0 {
		return errors.New("forest: NEstimators must be positive")
	}
	n := len(X)
	trees := make([]*Tree, r.NEstimators)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range trees {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			seed := r.RandomState + int64(i)
			rnd := rand.New(rand.NewSource(seed))
			sample := make([]int, n)
			for j := range sample {
				if r.Bootstrap {
					sample[j] = rnd.Intn(n)
				} else {
					sample[j] = j
				}
			}
			t := &Tree{
				MaxDepth:        r.MaxDepth,
				MinSamplesSplit: r.MinSamplesSplit,
				MinSamplesLeaf:  r.MinSamplesLeaf,
				MaxFeatures:     r.MaxFeatures,
				RandomState:     seed,
			}
			if err := t.Fit(X, y, sample); err != nil {
				return err
			}
			trees[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	r.trees = trees
	return nil
}

// Fitted reports whether Fit completed successfully.
func (r *Regressor) Fitted() bool { return len(r.trees) > 0 }

// PredictOne returns the mean tree output for one feature vector.
func (r *Regressor) PredictOne(x []float64) float64 {
	out := make([]float64, len(r.trees))
	for i, t := range r.trees {
		out[i] = t.Predict(x)
	}
	return stat.Mean(out, nil)
}

// Predict returns one prediction per row of X.
func (r *Regressor) Predict(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i := range X {
		out[i] = r.PredictOne(X[i])
	}
	return out
}

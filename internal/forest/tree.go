package forest

import (
	"errors"
	"math"
	"math/rand"
	"sort"
)

// Tree is a CART regression tree using the squared-error criterion.
type Tree struct {
	MaxDepth        int // 0 => no limit
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int // 0 => all features
	RandomState     int64

	root      *node
	nFeatures int
}

type node struct {
	leaf      bool
	feature   int
	threshold float64 // x <= threshold => left
	left      *node
	right     *node
	value     float64
	n         int
}

// Fit grows the tree on the rows of X selected by idx. A nil idx means every row.
func (t *Tree) Fit(X [][]float64, y []float64, idx []int) error {
	if len(X) == 0 {
		return errors.New("tree: empty X")
	}
	if len(y) != len(X) {
		return errors.New("tree: X and y length mismatch")
	}
	p := len(X[0])
	for i := range X {
		if len(X[i]) != p {
			return errors.New("tree: inconsistent number of features in X rows")
		}
		for _, v := range X[i] {
			if math.IsNaN(v) {
				return errors.New("tree: NaN in X")
			}
		}
		if math.IsNaN(y[i]) {
			return errors.New("tree: NaN in y")
		}
	}
	if idx == nil {
		idx = make([]int, len(X))
		for i := range idx {
			idx[i] = i
		}
	}
	if len(idx) == 0 {
		return errors.New("tree: no samples selected")
	}
	t.nFeatures = p
	rnd := rand.New(rand.NewSource(t.RandomState))
	t.root = t.build(X, y, idx, 0, rnd)
	return nil
}

// Predict returns the leaf mean reached by x.
func (t *Tree) Predict(x []float64) float64 {
	n := t.root
	if n == nil {
		return math.NaN()
	}
	for !n.leaf {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

// Depth returns the depth of the deepest leaf (a lone root is depth 0).
func (t *Tree) Depth() int { return depth(t.root) }

func depth(n *node) int {
	if n == nil || n.leaf {
		return 0
	}
	return 1 + max(depth(n.left), depth(n.right))
}

type split struct {
	feature   int
	threshold float64
	gain      float64
	nLeft     int
	sorted    []int
}

func (t *Tree) build(X [][]float64, y []float64, idx []int, d int, rnd *rand.Rand) *node {
	var sum, sumSq float64
	for _, i := range idx {
		sum += y[i]
		sumSq += y[i] * y[i]
	}
	n := len(idx)
	nd := &node{n: n, value: sum / float64(n)}
	parentSSE := sumSq - sum*sum/float64(n)

	minSplit := max(t.MinSamplesSplit, 2)
	minLeaf := max(t.MinSamplesLeaf, 1)
	if n < minSplit || n < 2*minLeaf || (t.MaxDepth > 0 && d >= t.MaxDepth) || parentSSE <= 1e-12 {
		nd.leaf = true
		return nd
	}

	features := make([]int, t.nFeatures)
	for j := range features {
		features[j] = j
	}
	if t.MaxFeatures > 0 && t.MaxFeatures < t.nFeatures {
		rnd.Shuffle(len(features), func(a, b int) { features[a], features[b] = features[b], features[a] })
		features = features[:t.MaxFeatures]
	}

	best := split{feature: -1}
	for _, f := range features {
		sorted := make([]int, n)
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, b int) bool { return X[sorted[a]][f] < X[sorted[b]][f] })

		var ls, lsq float64
		for k := 0; k < n-1; k++ {
			yi := y[sorted[k]]
			ls += yi
			lsq += yi * yi
			xv, xn := X[sorted[k]][f], X[sorted[k+1]][f]
			if xv == xn {
				continue
			}
			nl := k + 1
			nr := n - nl
			if nl < minLeaf || nr < minLeaf {
				continue
			}
			rs, rsq := sum-ls, sumSq-lsq
			sse := (lsq - ls*ls/float64(nl)) + (rsq - rs*rs/float64(nr))
			gain := parentSSE - sse
			if gain > best.gain+1e-12 {
				best = split{feature: f, threshold: xv + (xn-xv)/2, gain: gain, nLeft: nl, sorted: sorted}
			}
		}
	}
	if best.feature < 0 {
		nd.leaf = true
		return nd
	}
	nd.feature = best.feature
	nd.threshold = best.threshold
	nd.left = t.build(X, y, best.sorted[:best.nLeft], d+1, rnd)
	nd.right = t.build(X, y, best.sorted[best.nLeft:], d+1, rnd)
	return nd
}

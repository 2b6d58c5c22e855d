package model

import (
	"errors"
	"math/rand"
	"sort"
	"sync"
)

// ---------------------------
// Types & options
// ---------------------------

// DecisionTreeRegressor is a CART regression tree using the squared-error
// criterion. Leaves predict the mean target of their samples.
type DecisionTreeRegressor struct {
	// Hyperparameters / options
	MaxDepth            int     // maximum depth (root depth = 0). 0 => no limit
	MinSamplesSplit     int     // minimum samples to attempt a split
	MinSamplesLeaf      int     // minimum samples required in each leaf
	MaxFeatures         int     // 0 => use all features, >0 => number of features to sample when looking for split
	MinImpurityDecrease float64 // minimal decrease of the summed squared error to accept a split
	RandomState         int64   // seed for feature subsampling

	root *dtNode
}

// dtNode holds a node in the tree.
type dtNode struct {
	isLeaf    bool
	feature   int
	threshold float64 // x <= threshold => left
	left      *dtNode
	right     *dtNode

	n     int
	value float64 // mean target of the samples reaching this node
}

// A split is only searched on goroutines when the node is large enough to
// pay for them.
const parallelSplitMin = 4096

// Option functional config
type Option func(*DecisionTreeRegressor)

func WithMaxDepth(d int) Option { return func(t *DecisionTreeRegressor) { t.MaxDepth = d } }
func WithMinSamplesSplit(n int) Option {
	return func(t *DecisionTreeRegressor) { t.MinSamplesSplit = n }
}
func WithMinSamplesLeaf(n int) Option {
	return func(t *DecisionTreeRegressor) { t.MinSamplesLeaf = n }
}
func WithMaxFeatures(k int) Option { return func(t *DecisionTreeRegressor) { t.MaxFeatures = k } }
func WithMinImpurityDecrease(v float64) Option {
	return func(t *DecisionTreeRegressor) { t.MinImpurityDecrease = v }
}
func WithRandomState(seed int64) Option {
	return func(t *DecisionTreeRegressor) { t.RandomState = seed }
}

// NewDecisionTreeRegressor returns a fully grown tree by default.
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	d := &DecisionTreeRegressor{
		MaxDepth:        0,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxFeatures:     0,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// ---------------------------
// Public API: Fit / FitIndices / Predict
// ---------------------------

// Fit trains the tree on every row of X.
func (t *DecisionTreeRegressor) Fit(X [][]float64, y []float64) error {
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	return t.FitIndices(X, y, idx)
}

// FitIndices trains the tree on the rows listed in idx. Repeated indices act
// as sample weights, which is how bootstrap samples are passed in.
func (t *DecisionTreeRegressor) FitIndices(X [][]float64, y []float64, idx []int) error {
	if len(X) == 0 || len(idx) == 0 {
		return errors.New("dtree: empty X")
	}
	if len(y) != len(X) {
		return errors.New("dtree: X and y length mismatch")
	}
	p := len(X[0])
	for i := range X {
		if len(X[i]) != p {
			return errors.New("dtree: inconsistent number of features in X rows")
		}
	}

	rnd := rand.New(rand.NewSource(t.RandomState))
	t.root = t.buildNode(X, y, append([]int(nil), idx...), 0, p, rnd)
	return nil
}

// Predict returns the leaf mean reached by each row of X.
func (t *DecisionTreeRegressor) Predict(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i := range X {
		out[i] = t.predictSingle(X[i])
	}
	return out
}

// Depth returns the depth of the fitted tree.
func (t *DecisionTreeRegressor) Depth() int { return depth(t.root) }

func depth(n *dtNode) int {
	if n == nil || n.isLeaf {
		return 0
	}
	return 1 + max(depth(n.left), depth(n.right))
}

// ---------------------------
// Internal builders & helpers
// ---------------------------

// splitResult is the best split found on one feature.
type splitResult struct {
	gain      float64
	feature   int
	threshold float64
}

// pair is a feature value with its centred target.
type pair struct {
	v float64
	y float64
}

func (t *DecisionTreeRegressor) buildNode(X [][]float64, y []float64, idx []int, depth, p int, rnd *rand.Rand) *dtNode {
	n := len(idx)
	mean := 0.0
	for _, i := range idx {
		mean += y[i]
	}
	mean /= float64(n)
	sse := 0.0
	for _, i := range idx {
		d := y[i] - mean
		sse += d * d
	}

	node := &dtNode{isLeaf: true, n: n, value: mean}
	minLeaf := max(t.MinSamplesLeaf, 1)
	if sse <= 0 || n < t.MinSamplesSplit || n < 2*minLeaf {
		return node
	}
	if t.MaxDepth > 0 && depth >= t.MaxDepth {
		return node
	}

	// determine features to try
	featIndices := make([]int, p)
	for j := 0; j < p; j++ {
		featIndices[j] = j
	}
	if t.MaxFeatures > 0 && t.MaxFeatures < p {
		for i := 0; i < p; i++ {
			j := i + rnd.Intn(p-i)
			featIndices[i], featIndices[j] = featIndices[j], featIndices[i]
		}
		featIndices = featIndices[:t.MaxFeatures]
	}

	// Results are stored by position so ties resolve the same way every run.
	results := make([]splitResult, len(featIndices))
	if n >= parallelSplitMin {
		var wg sync.WaitGroup
		for k, f := range featIndices {
			wg.Add(1)
			go func(k, f int) {
				defer wg.Done()
				results[k] = t.findBestSplitForFeature(X, y, idx, f, mean, sse, minLeaf)
			}(k, f)
		}
		wg.Wait()
	} else {
		for k, f := range featIndices {
			results[k] = t.findBestSplitForFeature(X, y, idx, f, mean, sse, minLeaf)
		}
	}

	best := splitResult{feature: -1}
	for _, r := range results {
		if r.feature >= 0 && r.gain > best.gain {
			best = r
		}
	}
	if best.feature == -1 || best.gain <= t.MinImpurityDecrease {
		return node
	}

	leftIdx := make([]int, 0, n)
	rightIdx := make([]int, 0, n)
	for _, i := range idx {
		if X[i][best.feature] <= best.threshold {
			leftIdx = append(leftIdx, i)
		} else {
			rightIdx = append(rightIdx, i)
		}
	}
	if len(leftIdx) == 0 || len(rightIdx) == 0 {
		return node
	}

	node.isLeaf = false
	node.feature = best.feature
	node.threshold = best.threshold
	node.left = t.buildNode(X, y, leftIdx, depth+1, p, rnd)
	node.right = t.buildNode(X, y, rightIdx, depth+1, p, rnd)
	return node
}

// findBestSplitForFeature scans the sorted values of feature f and returns
// the threshold with the largest drop in summed squared error.
func (t *DecisionTreeRegressor) findBestSplitForFeature(X [][]float64, y []float64, idx []int, f int, mean, sse float64, minLeaf int) splitResult {
	result := splitResult{feature: -1}
	n := len(idx)

	vals := make([]pair, n)
	totSum, totSq := 0.0, 0.0
	for k, i := range idx {
		yc := y[i] - mean
		vals[k] = pair{X[i][f], yc}
		totSum += yc
		totSq += yc * yc
	}
	sort.Slice(vals, func(a, b int) bool { return vals[a].v < vals[b].v })
	if vals[0].v == vals[n-1].v {
		return result
	}

	leftSum, leftSq := 0.0, 0.0
	for s := 1; s < n; s++ {
		prev := vals[s-1]
		leftSum += prev.y
		leftSq += prev.y * prev.y
		if vals[s].v == prev.v {
			continue
		}
		nl, nr := float64(s), float64(n-s)
		if s < minLeaf || n-s < minLeaf {
			continue
		}
		rightSum, rightSq := totSum-leftSum, totSq-leftSq
		sseL := leftSq - leftSum*leftSum/nl
		sseR := rightSq - rightSum*rightSum/nr
		gain := sse - sseL - sseR
		if gain > result.gain {
			thr := (prev.v + vals[s].v) / 2
			if thr == vals[s].v {
				thr = prev.v
			}
			result = splitResult{gain: gain, feature: f, threshold: thr}
		}
	}
	return result
}

// ---------------------------
// Prediction helper
// ---------------------------

func (t *DecisionTreeRegressor) predictSingle(x []float64) float64 {
	node := t.root
	if node == nil {
		return 0
	}
	for !node.isLeaf {
		if x[node.feature] <= node.threshold {
			node = node.left
		} else {
			node = node.right
		}
	}
	return node.value
}

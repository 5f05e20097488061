// Package tree implements a CART decision tree regressor.
//
// Splits minimize the weighted mean squared error of the two children.
// Thresholds are midpoints between consecutive distinct feature values and
// a sample goes left when x[feature] <= threshold. The search is exhaustive
// over every feature, so a fit is deterministic for a given X and y.
package tree

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/YuminosukeSato/scorecast/core/model"
	"github.com/YuminosukeSato/scorecast/core/parallel"
	"github.com/YuminosukeSato/scorecast/metrics"
	"github.com/YuminosukeSato/scorecast/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

var _ model.Scorer = (*DecisionTreeRegressor)(nil)

const (
	modelType = "DecisionTreeRegressor"
	leaf      = -1
)

// Nodes is the fitted tree as parallel arrays indexed by node id. Node 0 is
// the root. Leaves have Feature == -1 and Left == Right == -1.
type Nodes struct {
	Feature   []int     `json:"feature"`
	Threshold []float64 `json:"threshold"`
	Left      []int     `json:"left"`
	Right     []int     `json:"right"`
	Value     []float64 `json:"value"`
	NSamples  []int     `json:"n_samples"`
}

// Len returns the number of nodes.
func (n *Nodes) Len() int { return len(n.Feature) }

func (n *Nodes) add(value float64, samples int) int {
	n.Feature = append(n.Feature, leaf)
	n.Threshold = append(n.Threshold, 0)
	n.Left = append(n.Left, leaf)
	n.Right = append(n.Right, leaf)
	n.Value = append(n.Value, value)
	n.NSamples = append(n.NSamples, samples)
	return len(n.Feature) - 1
}

func (n *Nodes) validate(nFeatures int) error {
	size := len(n.Feature)
	if size == 0 {
		return errors.New("tree has no nodes")
	}
	if len(n.Threshold) != size || len(n.Left) != size || len(n.Right) != size ||
		len(n.Value) != size || len(n.NSamples) != size {
		return errors.New("node arrays have different lengths")
	}
	for i := 0; i < size; i++ {
		if n.Feature[i] == leaf {
			if n.Left[i] != leaf || n.Right[i] != leaf {
				return errors.Newf("leaf %d has children", i)
			}
			continue
		}
		if n.Feature[i] < 0 || n.Feature[i] >= nFeatures {
			return errors.Newf("node %d splits on feature %d of %d", i, n.Feature[i], nFeatures)
		}
		// children are always appended after their parent, so this also
		// rules out cycles
		if n.Left[i] <= i || n.Left[i] >= size || n.Right[i] <= i || n.Right[i] >= size {
			return errors.Newf("node %d has invalid children %d, %d", i, n.Left[i], n.Right[i])
		}
	}
	return nil
}

// DecisionTreeRegressor is a CART regression tree.
type DecisionTreeRegressor struct {
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	workers         int

	state *model.StateManager
	nodes Nodes
	depth int
}

// NewDecisionTreeRegressor creates a tree with no depth limit,
// min_samples_split 2 and min_samples_leaf 1.
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	t := &DecisionTreeRegressor{
		maxDepth:        0,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		state:           model.NewStateManager(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *DecisionTreeRegressor) validateParams() error {
	if t.maxDepth < 0 {
		return errors.NewValidationError("max_depth", "must be >= 0", t.maxDepth)
	}
	if t.minSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be >= 2", t.minSamplesSplit)
	}
	if t.minSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be >= 1", t.minSamplesLeaf)
	}
	return nil
}

// Fit grows the tree on X (n×p) and y.
func (t *DecisionTreeRegressor) Fit(X mat.Matrix, y *mat.VecDense) error {
	if err := t.validateParams(); err != nil {
		return err
	}
	n, p := X.Dims()
	if n == 0 || p == 0 {
		return errors.NewModelError("DecisionTreeRegressor.Fit", "empty data", errors.ErrEmptyData)
	}
	if y == nil || y.Len() != n {
		got := 0
		if y != nil {
			got = y.Len()
		}
		return errors.NewDimensionError("DecisionTreeRegressor.Fit", n, got, 0)
	}
	if err := errors.CheckMatrix("DecisionTreeRegressor.Fit", X, 0); err != nil {
		return err
	}
	if err := errors.CheckMatrix("DecisionTreeRegressor.Fit", y, 0); err != nil {
		return err
	}

	b := &builder{
		tree: t,
		X:    mat.DenseCopyOf(X),
		y:    make([]float64, n),
		p:    p,
	}
	for i := range b.y {
		b.y[i] = y.AtVec(i)
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	t.nodes = Nodes{}
	t.depth = 0
	b.grow(idx, 0)
	t.state.SetFitted(p, n)
	return nil
}

// Predict walks each row of X to a leaf and returns the leaf means.
func (t *DecisionTreeRegressor) Predict(X mat.Matrix) (*mat.VecDense, error) {
	if err := t.state.RequireFitted("DecisionTreeRegressor", "Predict"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := t.state.CheckFeatures("DecisionTreeRegressor.Predict", c); err != nil {
		return nil, err
	}

	out := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		node := 0
		for t.nodes.Feature[node] != leaf {
			if X.At(i, t.nodes.Feature[node]) <= t.nodes.Threshold[node] {
				node = t.nodes.Left[node]
			} else {
				node = t.nodes.Right[node]
			}
		}
		out.SetVec(i, t.nodes.Value[node])
	}
	return out, nil
}

// Score returns the R² of the predictions on X against y.
func (t *DecisionTreeRegressor) Score(X mat.Matrix, y *mat.VecDense) (float64, error) {
	pred, err := t.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(y, pred)
}

// Depth returns the depth of the fitted tree.
func (t *DecisionTreeRegressor) Depth() int { return t.depth }

// NLeaves returns the number of leaves of the fitted tree.
func (t *DecisionTreeRegressor) NLeaves() int {
	count := 0
	for _, f := range t.nodes.Feature {
		if f == leaf {
			count++
		}
	}
	return count
}

// GetParams returns the model's hyperparameters.
func (t *DecisionTreeRegressor) GetParams() model.Params {
	return model.Params{
		"max_depth":         float64(t.maxDepth),
		"min_samples_split": float64(t.minSamplesSplit),
		"min_samples_leaf":  float64(t.minSamplesLeaf),
	}
}

// SetParams sets the model's hyperparameters.
func (t *DecisionTreeRegressor) SetParams(params model.Params) error {
	for _, k := range params.Keys() {
		v := int(math.Round(params[k]))
		switch k {
		case "max_depth":
			t.maxDepth = v
		case "min_samples_split":
			t.minSamplesSplit = v
		case "min_samples_leaf":
			t.minSamplesLeaf = v
		default:
			return errors.NewValidationError(k, "unknown parameter for DecisionTreeRegressor", params[k])
		}
	}
	return t.validateParams()
}

// ExportWeights exports the node arrays as the model state.
func (t *DecisionTreeRegressor) ExportWeights() (*model.ModelWeights, error) {
	if err := t.state.RequireFitted("DecisionTreeRegressor", "ExportWeights"); err != nil {
		return nil, err
	}
	state, err := json.Marshal(t.nodes)
	if err != nil {
		return nil, errors.Wrap(err, "encoding tree nodes")
	}
	return &model.ModelWeights{
		ModelType:       modelType,
		Version:         model.WeightsVersion,
		NFeatures:       t.state.NFeatures(),
		Hyperparameters: t.GetParams(),
		State:           state,
		IsFitted:        true,
	}, nil
}

// ImportWeights restores a tree written by ExportWeights.
func (t *DecisionTreeRegressor) ImportWeights(w *model.ModelWeights) error {
	if err := w.Expect(modelType); err != nil {
		return errors.NewModelError("DecisionTreeRegressor.ImportWeights", "invalid weights", err)
	}
	var nodes Nodes
	if err := json.Unmarshal(w.State, &nodes); err != nil {
		return errors.NewModelError("DecisionTreeRegressor.ImportWeights", "decoding tree nodes", err)
	}
	if err := nodes.validate(w.NFeatures); err != nil {
		return errors.NewModelError("DecisionTreeRegressor.ImportWeights", "corrupt tree", err)
	}
	if err := t.SetParams(w.Hyperparameters); err != nil {
		return err
	}
	t.nodes = nodes
	t.depth = nodes.depth()
	t.state.SetFitted(w.NFeatures, 0)
	return nil
}

func (n *Nodes) depth() int {
	var walk func(node, d int) int
	walk = func(node, d int) int {
		if n.Feature[node] == leaf {
			return d
		}
		return max(walk(n.Left[node], d+1), walk(n.Right[node], d+1))
	}
	return walk(0, 0)
}

// builder holds the training data while a tree grows.
type builder struct {
	tree *DecisionTreeRegressor
	X    *mat.Dense
	y    []float64
	p    int
}

func (b *builder) target(i int) float64 { return b.y[i] }

type split struct {
	feature   int
	threshold float64
	// cost is the sum of squared errors of both children
	cost  float64
	found bool
}

// grow adds the node for the samples in idx and returns its id.
func (b *builder) grow(idx []int, depth int) int {
	t := b.tree
	sum, sumSq := 0.0, 0.0
	for _, i := range idx {
		v := b.target(i)
		sum += v
		sumSq += v * v
	}
	n := float64(len(idx))
	mean := sum / n
	sse := sumSq - sum*sum/n

	id := t.nodes.add(mean, len(idx))
	if depth > t.depth {
		t.depth = depth
	}

	if (t.maxDepth > 0 && depth >= t.maxDepth) ||
		len(idx) < t.minSamplesSplit ||
		len(idx) < 2*t.minSamplesLeaf ||
		sse <= 1e-12*math.Max(1, sumSq) {
		return id
	}

	best := b.bestSplit(idx)
	if !best.found || best.cost >= sse {
		return id
	}

	var left, right []int
	for _, i := range idx {
		if b.X.At(i, best.feature) <= best.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	t.nodes.Feature[id] = best.feature
	t.nodes.Threshold[id] = best.threshold
	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	t.nodes.Left[id] = l
	t.nodes.Right[id] = r
	return id
}

// bestSplit searches every feature concurrently and keeps the cheapest
// split, preferring the lower feature index on ties.
func (b *builder) bestSplit(idx []int) split {
	perFeature := parallel.Map(b.p, b.tree.workers, func(j int) split {
		return b.bestSplitOn(idx, j)
	})

	var best split
	for _, s := range perFeature {
		if s.found && (!best.found || s.cost < best.cost) {
			best = s
		}
	}
	return best
}

func (b *builder) bestSplitOn(idx []int, feature int) split {
	type pair struct{ x, y float64 }
	pairs := make([]pair, len(idx))
	total, totalSq := 0.0, 0.0
	for k, i := range idx {
		pairs[k] = pair{x: b.X.At(i, feature), y: b.target(i)}
		total += pairs[k].y
		totalSq += pairs[k].y * pairs[k].y
	}
	sort.SliceStable(pairs, func(a, c int) bool { return pairs[a].x < pairs[c].x })

	minLeaf := b.tree.minSamplesLeaf
	n := len(pairs)
	best := split{feature: feature}
	leftSum, leftSq := 0.0, 0.0
	for k := 0; k < n-1; k++ {
		leftSum += pairs[k].y
		leftSq += pairs[k].y * pairs[k].y
		nl := k + 1
		nr := n - nl
		if nl < minLeaf {
			continue
		}
		if nr < minLeaf {
			break
		}
		if pairs[k].x == pairs[k+1].x {
			continue
		}
		rightSum := total - leftSum
		rightSq := totalSq - leftSq
		cost := (leftSq - leftSum*leftSum/float64(nl)) + (rightSq - rightSum*rightSum/float64(nr))
		if !best.found || cost < best.cost {
			best.found = true
			best.cost = cost
			best.threshold = pairs[k].x + (pairs[k+1].x-pairs[k].x)/2
			if best.threshold == pairs[k+1].x {
				// adjacent floats: the midpoint rounds up
				best.threshold = pairs[k].x
			}
		}
	}
	return best
}

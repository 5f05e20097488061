// Package neighbors implements k-nearest-neighbours regression.
package neighbors

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

var _ model.Scorer = (*KNeighborsRegressor)(nil)

const modelType = "KNeighborsRegressor"

// Weighting selects how neighbour targets are combined.
type Weighting int

const (
	// Uniform averages the k targets.
	Uniform Weighting = iota
	// Distance weights each target by the inverse of its distance. An exact
	// match (distance 0) takes the mean of the exact matches.
	Distance
)

func (w Weighting) String() string {
	if w == Distance {
		return "distance"
	}
	return "uniform"
}

// parallelThreshold is the number of query rows below which Predict stays on
// the calling goroutine.
const parallelThreshold = 64

// Option configures a KNeighborsRegressor.
type Option func(*KNeighborsRegressor)

// WithNNeighbors sets k. Default 5.
func WithNNeighbors(k int) Option {
	return func(m *KNeighborsRegressor) { m.k = k }
}

// WithWeighting sets how neighbour targets are combined.
func WithWeighting(w Weighting) Option {
	return func(m *KNeighborsRegressor) { m.weighting = w }
}

// KNeighborsRegressor predicts the mean target of the k training rows
// closest in Euclidean distance. Ties in distance keep the earlier training
// row.
type KNeighborsRegressor struct {
	k         int
	weighting Weighting

	state *model.StateManager
	X     *mat.Dense
	y     []float64
}

// NewKNeighborsRegressor creates a regressor with k = 5 and uniform weights.
func NewKNeighborsRegressor(opts ...Option) *KNeighborsRegressor {
	m := &KNeighborsRegressor{
		k:     5,
		state: model.NewStateManager(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *KNeighborsRegressor) validateParams() error {
	if m.k < 1 {
		return errors.NewValidationError("n_neighbors", "must be >= 1", m.k)
	}
	if m.weighting != Uniform && m.weighting != Distance {
		return errors.NewValidationError("weights", "must be 0 (uniform) or 1 (distance)", int(m.weighting))
	}
	return nil
}

// Fit stores a copy of the training set. k must not exceed the number of
// training rows.
func (m *KNeighborsRegressor) Fit(X mat.Matrix, y *mat.VecDense) error {
	if err := m.validateParams(); err != nil {
		return err
	}
	n, p := X.Dims()
	if n == 0 || p == 0 {
		return errors.NewModelError("KNeighborsRegressor.Fit", "empty data", errors.ErrEmptyData)
	}
	if y == nil || y.Len() != n {
		got := 0
		if y != nil {
			got = y.Len()
		}
		return errors.NewDimensionError("KNeighborsRegressor.Fit", n, got, 0)
	}
	if m.k > n {
		return errors.NewValueError("KNeighborsRegressor.Fit",
			"n_neighbors exceeds the number of training samples")
	}
	if err := errors.CheckMatrix("KNeighborsRegressor.Fit", X, 0); err != nil {
		return err
	}
	if err := errors.CheckMatrix("KNeighborsRegressor.Fit", y, 0); err != nil {
		return err
	}

	m.X = mat.DenseCopyOf(X)
	m.y = make([]float64, n)
	for i := range m.y {
		m.y[i] = y.AtVec(i)
	}
	m.state.SetFitted(p, n)
	return nil
}

// Predict answers each row of X independently. Large batches are split
// into contiguous chunks across CPU cores.
func (m *KNeighborsRegressor) Predict(X mat.Matrix) (*mat.VecDense, error) {
	if err := m.state.RequireFitted("KNeighborsRegressor", "Predict"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := m.state.CheckFeatures("KNeighborsRegressor.Predict", c); err != nil {
		return nil, err
	}

	out := make([]float64, r)
	parallel.ParallelizeWithThreshold(r, parallelThreshold, func(start, end int) {
		row := make([]float64, c)
		for i := start; i < end; i++ {
			mat.Row(row, i, X)
			out[i] = m.predictOne(row)
		}
	})
	return mat.NewVecDense(r, out), nil
}

type neighbor struct {
	dist  float64
	index int
}

// predictOne keeps a sorted slice of the k nearest rows seen so far.
func (m *KNeighborsRegressor) predictOne(x []float64) float64 {
	n, _ := m.X.Dims()
	nbrs := make([]neighbor, 0, m.k+1)
	for j := 0; j < n; j++ {
		d := sqDist(x, m.X.RawRowView(j))
		if len(nbrs) == m.k && d >= nbrs[m.k-1].dist {
			continue
		}
		pos := sort.Search(len(nbrs), func(i int) bool { return nbrs[i].dist > d })
		nbrs = append(nbrs, neighbor{})
		copy(nbrs[pos+1:], nbrs[pos:])
		nbrs[pos] = neighbor{dist: d, index: j}
		if len(nbrs) > m.k {
			nbrs = nbrs[:m.k]
		}
	}

	if m.weighting == Distance {
		return m.weighted(nbrs)
	}
	sum := 0.0
	for _, nb := range nbrs {
		sum += m.y[nb.index]
	}
	return sum / float64(len(nbrs))
}

func (m *KNeighborsRegressor) weighted(nbrs []neighbor) float64 {
	exact, exactSum := 0, 0.0
	for _, nb := range nbrs {
		if nb.dist == 0 {
			exact++
			exactSum += m.y[nb.index]
		}
	}
	if exact > 0 {
		return exactSum / float64(exact)
	}
	num, den := 0.0, 0.0
	for _, nb := range nbrs {
		w := 1 / math.Sqrt(nb.dist)
		num += w * m.y[nb.index]
		den += w
	}
	return num / den
}

func sqDist(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

// Score returns the R² of the predictions on X against y.
func (m *KNeighborsRegressor) Score(X mat.Matrix, y *mat.VecDense) (float64, error) {
	pred, err := m.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(y, pred)
}

// GetParams returns the model's hyperparameters. weights is 0 for uniform
// and 1 for distance.
func (m *KNeighborsRegressor) GetParams() model.Params {
	return model.Params{
		"n_neighbors": float64(m.k),
		"weights":     float64(m.weighting),
	}
}

// SetParams sets the model's hyperparameters.
func (m *KNeighborsRegressor) SetParams(params model.Params) error {
	for _, k := range params.Keys() {
		switch k {
		case "n_neighbors":
			m.k = params.Int(k, m.k)
		case "weights":
			m.weighting = Weighting(params.Int(k, int(m.weighting)))
		default:
			return errors.NewValidationError(k, "unknown parameter for KNeighborsRegressor", params[k])
		}
	}
	return m.validateParams()
}

// trainingSet is the persisted state: the stored rows and targets.
type trainingSet struct {
	X [][]float64 `json:"x"`
	Y []float64   `json:"y"`
}

// ExportWeights exports the training set as the model state.
func (m *KNeighborsRegressor) ExportWeights() (*model.ModelWeights, error) {
	if err := m.state.RequireFitted("KNeighborsRegressor", "ExportWeights"); err != nil {
		return nil, err
	}
	n, _ := m.X.Dims()
	ts := trainingSet{X: make([][]float64, n), Y: append([]float64(nil), m.y...)}
	for i := 0; i < n; i++ {
		ts.X[i] = append([]float64(nil), m.X.RawRowView(i)...)
	}
	state, err := json.Marshal(ts)
	if err != nil {
		return nil, errors.Wrap(err, "encoding training set")
	}
	return &model.ModelWeights{
		ModelType:       modelType,
		Version:         model.WeightsVersion,
		NFeatures:       m.state.NFeatures(),
		Hyperparameters: m.GetParams(),
		State:           state,
		IsFitted:        true,
	}, nil
}

// ImportWeights restores a model written by ExportWeights.
func (m *KNeighborsRegressor) ImportWeights(w *model.ModelWeights) error {
	if err := w.Expect(modelType); err != nil {
		return errors.NewModelError("KNeighborsRegressor.ImportWeights", "invalid weights", err)
	}
	var ts trainingSet
	if err := json.Unmarshal(w.State, &ts); err != nil {
		return errors.NewModelError("KNeighborsRegressor.ImportWeights", "decoding training set", err)
	}
	n := len(ts.X)
	if n == 0 || len(ts.Y) != n {
		return errors.NewDimensionError("KNeighborsRegressor.ImportWeights", n, len(ts.Y), 0)
	}
	X := mat.NewDense(n, w.NFeatures, nil)
	for i, row := range ts.X {
		if len(row) != w.NFeatures {
			return errors.NewDimensionError("KNeighborsRegressor.ImportWeights", w.NFeatures, len(row), 1)
		}
		X.SetRow(i, row)
	}
	if err := m.SetParams(w.Hyperparameters); err != nil {
		return err
	}
	if m.k > n {
		return errors.NewValueError("KNeighborsRegressor.ImportWeights",
			"n_neighbors exceeds the number of stored samples")
	}
	m.X = X
	m.y = ts.Y
	m.state.SetFitted(w.NFeatures, n)
	return nil
}

package preprocessing

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/scorecast/core/model"
	"github.com/YuminosukeSato/scorecast/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

var _ model.Transformer = (*StandardScaler)(nil)

// StandardScaler standardizes features to zero mean and unit variance.
type StandardScaler struct {
	state *model.StateManager

	// Mean holds the per-feature mean.
	Mean []float64

	// Scale holds the per-feature standard deviation, 1 for constant columns.
	Scale []float64

	// WithMean subtracts the mean (default true).
	WithMean bool

	// WithStd divides by the standard deviation (default true).
	WithStd bool
}

// ScalerState is the persisted form of a fitted StandardScaler.
type ScalerState struct {
	Mean     []float64 `json:"mean"`
	Scale    []float64 `json:"scale"`
	WithMean bool      `json:"with_mean"`
	WithStd  bool      `json:"with_std"`
}

// NewStandardScaler creates a StandardScaler.
//
// With withMean false the data is scaled without centering, which keeps
// sparse 0/1 columns such as one-hot indicators sparse.
//
//	scaler := preprocessing.NewStandardScaler(true, true)
//	err := scaler.Fit(X)
//	XScaled, err := scaler.Transform(X)
func NewStandardScaler(withMean, withStd bool) *StandardScaler {
	return &StandardScaler{
		state:    model.NewStateManager(),
		WithMean: withMean,
		WithStd:  withStd,
	}
}

// NewStandardScalerDefault creates a StandardScaler with default settings.
func NewStandardScalerDefault() *StandardScaler {
	return NewStandardScaler(true, true)
}

// IsFitted reports whether Fit or ImportState has run.
func (s *StandardScaler) IsFitted() bool { return s.state.IsFitted() }

// Fit computes the per-feature mean and standard deviation of X.
//
// The variance is always taken around the mean, whatever WithMean says.
func (s *StandardScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("StandardScaler.Fit", "empty data", errors.ErrEmptyData)
	}

	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)

	for j := 0; j < c; j++ {
		sum := 0.0
		for i := 0; i < r; i++ {
			sum += X.At(i, j)
		}
		s.Mean[j] = sum / float64(r)

		s.Scale[j] = 1.0
		if s.WithStd {
			sumSquares := 0.0
			for i := 0; i < r; i++ {
				diff := X.At(i, j) - s.Mean[j]
				sumSquares += diff * diff
			}
			std := math.Sqrt(sumSquares / float64(r))
			// near-constant column: scale by 1
			if std >= 1e-8 {
				s.Scale[j] = std
			}
		}
	}

	if err := errors.CheckNumericalStability("StandardScaler.Fit", s.Mean, 0); err != nil {
		return err
	}
	s.state.SetFitted(c, r)
	return nil
}

// Transform standardizes X with the fitted statistics.
func (s *StandardScaler) Transform(X mat.Matrix) (*mat.Dense, error) {
	if err := s.state.RequireFitted("StandardScaler", "Transform"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := s.state.CheckFeatures("StandardScaler.Transform", c); err != nil {
		return nil, err
	}

	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := X.At(i, j)
			if s.WithMean {
				v -= s.Mean[j]
			}
			result.Set(i, j, v/s.Scale[j])
		}
	}
	return result, nil
}

// FitTransform fits on X and transforms it.
func (s *StandardScaler) FitTransform(X mat.Matrix) (*mat.Dense, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// InverseTransform maps standardized data back to the original scale.
func (s *StandardScaler) InverseTransform(X mat.Matrix) (*mat.Dense, error) {
	if err := s.state.RequireFitted("StandardScaler", "InverseTransform"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := s.state.CheckFeatures("StandardScaler.InverseTransform", c); err != nil {
		return nil, err
	}

	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := X.At(i, j) * s.Scale[j]
			if s.WithMean {
				v += s.Mean[j]
			}
			result.Set(i, j, v)
		}
	}
	return result, nil
}

// ExportState returns the fitted statistics.
func (s *StandardScaler) ExportState() (*ScalerState, error) {
	if err := s.state.RequireFitted("StandardScaler", "ExportState"); err != nil {
		return nil, err
	}
	return &ScalerState{
		Mean:     append([]float64(nil), s.Mean...),
		Scale:    append([]float64(nil), s.Scale...),
		WithMean: s.WithMean,
		WithStd:  s.WithStd,
	}, nil
}

// ImportState restores statistics written by ExportState.
func (s *StandardScaler) ImportState(st *ScalerState) error {
	if st == nil || len(st.Mean) == 0 || len(st.Mean) != len(st.Scale) {
		return errors.NewValueError("StandardScaler.ImportState", "mean and scale must be non-empty and of equal length")
	}
	for j, sc := range st.Scale {
		if sc == 0 || math.IsNaN(sc) {
			return errors.NewValueError("StandardScaler.ImportState", fmt.Sprintf("invalid scale %v at feature %d", sc, j))
		}
	}
	if s.state == nil {
		s.state = model.NewStateManager()
	}
	s.Mean = append([]float64(nil), st.Mean...)
	s.Scale = append([]float64(nil), st.Scale...)
	s.WithMean = st.WithMean
	s.WithStd = st.WithStd
	s.state.SetFitted(len(st.Mean), 0)
	return nil
}

// String describes the scaler and its settings.
func (s *StandardScaler) String() string {
	if !s.IsFitted() {
		return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t)", s.WithMean, s.WithStd)
	}
	return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t, n_features=%d)",
		s.WithMean, s.WithStd, s.state.NFeatures())
}

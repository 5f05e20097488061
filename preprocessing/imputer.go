package preprocessing

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/scorecast/core/model"
	"github.com/YuminosukeSato/scorecast/dataset"
	"github.com/YuminosukeSato/scorecast/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var _ model.Transformer = (*SimpleImputer)(nil)

// Imputation strategies for SimpleImputer.
const (
	StrategyMean   = "mean"
	StrategyMedian = "median"
)

// SimpleImputer replaces NaN cells of a numeric matrix with a per-column
// statistic learned at fit time.
type SimpleImputer struct {
	state *model.StateManager

	// Strategy is StrategyMean or StrategyMedian.
	Strategy string

	// Statistics holds the fill value of each column.
	Statistics []float64
}

// NewSimpleImputer creates an imputer using strategy.
func NewSimpleImputer(strategy string) *SimpleImputer {
	return &SimpleImputer{state: model.NewStateManager(), Strategy: strategy}
}

// Fit computes the fill value of each column from its non-NaN cells. A
// column with no observed value yields a *ColumnError naming its index.
func (s *SimpleImputer) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("SimpleImputer.Fit", "empty data", errors.ErrEmptyData)
	}
	if s.Strategy != StrategyMean && s.Strategy != StrategyMedian {
		return errors.NewValidationError("strategy", "must be mean or median", s.Strategy)
	}

	stats := make([]float64, c)
	observed := make([]float64, 0, r)
	for j := 0; j < c; j++ {
		observed = observed[:0]
		for i := 0; i < r; i++ {
			if v := X.At(i, j); !math.IsNaN(v) {
				observed = append(observed, v)
			}
		}
		if len(observed) == 0 {
			return &ColumnError{Index: j, Err: errors.NewValueError("SimpleImputer.Fit", "all values missing")}
		}
		if s.Strategy == StrategyMean {
			stats[j] = stat.Mean(observed, nil)
		} else {
			stats[j] = dataset.Median(observed)
		}
	}

	s.Statistics = stats
	s.state.SetFitted(c, r)
	return nil
}

// Transform returns a copy of X with NaN cells filled.
func (s *SimpleImputer) Transform(X mat.Matrix) (*mat.Dense, error) {
	if err := s.state.RequireFitted("SimpleImputer", "Transform"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := s.state.CheckFeatures("SimpleImputer.Transform", c); err != nil {
		return nil, err
	}
	out := mat.DenseCopyOf(X)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if math.IsNaN(out.At(i, j)) {
				out.Set(i, j, s.Statistics[j])
			}
		}
	}
	return out, nil
}

// FitTransform fits and transforms X.
func (s *SimpleImputer) FitTransform(X mat.Matrix) (*mat.Dense, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// ImportStatistics restores fill values written from Statistics.
func (s *SimpleImputer) ImportStatistics(stats []float64) error {
	if len(stats) == 0 {
		return errors.NewValueError("SimpleImputer.ImportStatistics", "no statistics")
	}
	if err := errors.CheckNumericalStability("SimpleImputer.ImportStatistics", stats, 0); err != nil {
		return err
	}
	if s.state == nil {
		s.state = model.NewStateManager()
	}
	s.Statistics = append([]float64(nil), stats...)
	s.state.SetFitted(len(stats), 0)
	return nil
}

// MostFrequentImputer fills missing cells of categorical columns with the
// most common value seen at fit time. Ties go to the smallest value.
type MostFrequentImputer struct {
	state *model.StateManager

	// Fill holds the replacement of each column.
	Fill []string
}

// NewMostFrequentImputer creates an unfitted imputer.
func NewMostFrequentImputer() *MostFrequentImputer {
	return &MostFrequentImputer{state: model.NewStateManager()}
}

// Fit learns the mode of each column. columns[j] holds every row of column j.
func (m *MostFrequentImputer) Fit(columns [][]string) error {
	if len(columns) == 0 || len(columns[0]) == 0 {
		return errors.NewModelError("MostFrequentImputer.Fit", "empty data", errors.ErrEmptyData)
	}
	fill := make([]string, len(columns))
	for j, col := range columns {
		mode, ok := dataset.MostFrequent(col, dataset.IsMissing)
		if !ok {
			return &ColumnError{Index: j, Err: errors.NewValueError("MostFrequentImputer.Fit", "all values missing")}
		}
		fill[j] = mode
	}
	m.Fill = fill
	m.state.SetFitted(len(columns), len(columns[0]))
	return nil
}

// Transform returns copies of columns with missing cells replaced.
func (m *MostFrequentImputer) Transform(columns [][]string) ([][]string, error) {
	if err := m.state.RequireFitted("MostFrequentImputer", "Transform"); err != nil {
		return nil, err
	}
	if err := m.state.CheckFeatures("MostFrequentImputer.Transform", len(columns)); err != nil {
		return nil, err
	}
	out := make([][]string, len(columns))
	for j, col := range columns {
		filled := make([]string, len(col))
		for i, v := range col {
			if dataset.IsMissing(v) {
				v = m.Fill[j]
			}
			filled[i] = v
		}
		out[j] = filled
	}
	return out, nil
}

// ImportFill restores fill values written from Fill.
func (m *MostFrequentImputer) ImportFill(fill []string) error {
	if len(fill) == 0 {
		return errors.NewValueError("MostFrequentImputer.ImportFill", "no fill values")
	}
	for j, v := range fill {
		if dataset.IsMissing(v) {
			return errors.NewValueError("MostFrequentImputer.ImportFill", fmt.Sprintf("fill value of column %d is missing", j))
		}
	}
	if m.state == nil {
		m.state = model.NewStateManager()
	}
	m.Fill = append([]string(nil), fill...)
	m.state.SetFitted(len(fill), 0)
	return nil
}

package preprocessing

import (
	"fmt"

	"github.com/YuminosukeSato/scorecast/core/model"
	"github.com/YuminosukeSato/scorecast/dataset"
	"github.com/YuminosukeSato/scorecast/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// OneHotEncoder expands each categorical column into one indicator column
// per category seen at fit time. Categories are sorted. A value not seen at
// fit time encodes as all zeros.
type OneHotEncoder struct {
	state *model.StateManager

	// Categories[j] lists the sorted categories of input column j.
	Categories [][]string

	lookup []map[string]int
	width  int
}

// NewOneHotEncoder creates an unfitted encoder.
func NewOneHotEncoder() *OneHotEncoder {
	return &OneHotEncoder{state: model.NewStateManager()}
}

// Fit learns the categories of each column. Missing cells are ignored, so
// run an imputer first.
func (e *OneHotEncoder) Fit(columns [][]string) error {
	if len(columns) == 0 || len(columns[0]) == 0 {
		return errors.NewModelError("OneHotEncoder.Fit", "empty data", errors.ErrEmptyData)
	}
	cats := make([][]string, len(columns))
	for j, col := range columns {
		cats[j] = dataset.Unique(col, dataset.IsMissing)
		if len(cats[j]) == 0 {
			return &ColumnError{Index: j, Err: errors.NewValueError("OneHotEncoder.Fit", "no categories")}
		}
	}
	e.setCategories(cats)
	e.state.SetFitted(len(columns), len(columns[0]))
	return nil
}

func (e *OneHotEncoder) setCategories(cats [][]string) {
	e.Categories = cats
	e.lookup = make([]map[string]int, len(cats))
	e.width = 0
	for j, cs := range cats {
		m := make(map[string]int, len(cs))
		for k, c := range cs {
			m[c] = e.width + k
		}
		e.lookup[j] = m
		e.width += len(cs)
	}
}

// Width returns the number of output columns.
func (e *OneHotEncoder) Width() int { return e.width }

// Transform encodes columns into an n×Width() indicator matrix.
func (e *OneHotEncoder) Transform(columns [][]string) (*mat.Dense, error) {
	if err := e.state.RequireFitted("OneHotEncoder", "Transform"); err != nil {
		return nil, err
	}
	if err := e.state.CheckFeatures("OneHotEncoder.Transform", len(columns)); err != nil {
		return nil, err
	}
	n := len(columns[0])
	out := mat.NewDense(n, e.width, nil)
	for j, col := range columns {
		if len(col) != n {
			return nil, errors.NewDimensionError("OneHotEncoder.Transform", n, len(col), 0)
		}
		for i, v := range col {
			if k, ok := e.lookup[j][v]; ok {
				out.Set(i, k, 1)
			}
		}
	}
	return out, nil
}

// FeatureNames returns "<column>_<category>" for every output column.
func (e *OneHotEncoder) FeatureNames(inputNames []string) []string {
	names := make([]string, 0, e.width)
	for j, cs := range e.Categories {
		for _, c := range cs {
			names = append(names, fmt.Sprintf("%s_%s", inputNames[j], c))
		}
	}
	return names
}

// ImportCategories restores categories written from Categories.
func (e *OneHotEncoder) ImportCategories(cats [][]string) error {
	if len(cats) == 0 {
		return errors.NewValueError("OneHotEncoder.ImportCategories", "no categories")
	}
	copied := make([][]string, len(cats))
	for j, cs := range cats {
		if len(cs) == 0 {
			return errors.NewValueError("OneHotEncoder.ImportCategories", fmt.Sprintf("column %d has no categories", j))
		}
		copied[j] = append([]string(nil), cs...)
	}
	if e.state == nil {
		e.state = model.NewStateManager()
	}
	e.setCategories(copied)
	e.state.SetFitted(len(cats), 0)
	return nil
}

// Package preprocessing turns raw tabular rows into model-ready matrices.
//
// ColumnTransformer is the entry point: numeric columns go through median
// imputation and standard scaling, categorical columns through most-frequent
// imputation, one-hot encoding and optional scaling without centering.
package preprocessing

import (
	"fmt"

	"github.com/YuminosukeSato/scorecast/dataset"
	"github.com/YuminosukeSato/scorecast/pkg/errors"
	"github.com/YuminosukeSato/scorecast/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// ColumnError attributes a failure to one input column.
type ColumnError struct {
	// Index is the position within the branch that failed.
	Index int
	// Column is the input column name, when known.
	Column string
	Err    error
}

func (e *ColumnError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("column %q: %v", e.Column, e.Err)
	}
	return fmt.Sprintf("column %d: %v", e.Index, e.Err)
}

func (e *ColumnError) Unwrap() error { return e.Err }

// ColumnTransformerState is the persisted form of a fitted ColumnTransformer.
type ColumnTransformerState struct {
	NumericColumns     []string     `json:"numeric_columns"`
	CategoricalColumns []string     `json:"categorical_columns"`
	ScaleCategorical   bool         `json:"scale_categorical"`
	NumericFill        []float64    `json:"numeric_fill,omitempty"`
	NumericScaler      *ScalerState `json:"numeric_scaler,omitempty"`
	CategoricalFill    []string     `json:"categorical_fill,omitempty"`
	Categories         [][]string   `json:"categories,omitempty"`
	CategoricalScaler  *ScalerState `json:"categorical_scaler,omitempty"`
}

// ColumnTransformer maps a frame with the configured raw columns to a dense
// feature matrix: numeric features first, then one-hot features.
type ColumnTransformer struct {
	NumericColumns     []string
	CategoricalColumns []string
	ScaleCategorical   bool

	numImputer *SimpleImputer
	numScaler  *StandardScaler
	catImputer *MostFrequentImputer
	encoder    *OneHotEncoder
	catScaler  *StandardScaler

	fitted bool
	logger log.Logger
}

// ColumnTransformerOption configures a ColumnTransformer.
type ColumnTransformerOption func(*ColumnTransformer)

// WithScaleCategorical toggles scaling of one-hot features. Default true.
func WithScaleCategorical(scale bool) ColumnTransformerOption {
	return func(ct *ColumnTransformer) { ct.ScaleCategorical = scale }
}

// WithLogger sets the logger. Default discards.
func WithLogger(l log.Logger) ColumnTransformerOption {
	return func(ct *ColumnTransformer) { ct.logger = l }
}

// NewColumnTransformer creates an unfitted transformer. At least one column
// must be given.
func NewColumnTransformer(numeric, categorical []string, opts ...ColumnTransformerOption) *ColumnTransformer {
	ct := &ColumnTransformer{
		NumericColumns:     append([]string(nil), numeric...),
		CategoricalColumns: append([]string(nil), categorical...),
		ScaleCategorical:   true,
		logger:             log.Nop(),
	}
	for _, opt := range opts {
		opt(ct)
	}
	return ct
}

// InputColumns returns the raw columns the transformer reads, numeric first.
func (ct *ColumnTransformer) InputColumns() []string {
	out := make([]string, 0, len(ct.NumericColumns)+len(ct.CategoricalColumns))
	out = append(out, ct.NumericColumns...)
	return append(out, ct.CategoricalColumns...)
}

// IsFitted reports whether Fit or ImportState has run.
func (ct *ColumnTransformer) IsFitted() bool { return ct.fitted }

// Fit learns every branch from frame. Only the configured columns are read.
func (ct *ColumnTransformer) Fit(frame *dataset.Frame) error {
	if len(ct.NumericColumns)+len(ct.CategoricalColumns) == 0 {
		return errors.NewValidationError("columns", "at least one numeric or categorical column is required", 0)
	}
	if frame.NRows() == 0 {
		return errors.NewModelError("ColumnTransformer.Fit", "empty data", errors.ErrEmptyData)
	}

	ct.fitted = false
	ct.numImputer, ct.numScaler = nil, nil
	ct.catImputer, ct.encoder, ct.catScaler = nil, nil, nil

	if len(ct.NumericColumns) > 0 {
		X, err := numericMatrix(frame, ct.NumericColumns)
		if err != nil {
			return err
		}
		ct.numImputer = NewSimpleImputer(StrategyMedian)
		imputed, err := ct.numImputer.FitTransform(X)
		if err != nil {
			return nameColumn(err, ct.NumericColumns)
		}
		ct.numScaler = NewStandardScalerDefault()
		if err := ct.numScaler.Fit(imputed); err != nil {
			return err
		}
	}

	if len(ct.CategoricalColumns) > 0 {
		cols, err := stringColumns(frame, ct.CategoricalColumns)
		if err != nil {
			return err
		}
		ct.catImputer = NewMostFrequentImputer()
		if err := ct.catImputer.Fit(cols); err != nil {
			return nameColumn(err, ct.CategoricalColumns)
		}
		filled, err := ct.catImputer.Transform(cols)
		if err != nil {
			return err
		}
		ct.encoder = NewOneHotEncoder()
		if err := ct.encoder.Fit(filled); err != nil {
			return nameColumn(err, ct.CategoricalColumns)
		}
		if ct.ScaleCategorical {
			encoded, err := ct.encoder.Transform(filled)
			if err != nil {
				return err
			}
			ct.catScaler = NewStandardScaler(false, true)
			if err := ct.catScaler.Fit(encoded); err != nil {
				return err
			}
		}
	}

	ct.fitted = true
	ct.logger.Debug("column transformer fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, frame.NRows(),
		log.FeaturesKey, ct.NOutputFeatures(),
	)
	return nil
}

// Transform maps frame to an n×NOutputFeatures() matrix. It never refits.
func (ct *ColumnTransformer) Transform(frame *dataset.Frame) (*mat.Dense, error) {
	if !ct.fitted {
		return nil, errors.NewNotFittedError("ColumnTransformer", "Transform")
	}
	n := frame.NRows()
	if n == 0 {
		return nil, errors.NewModelError("ColumnTransformer.Transform", "empty data", errors.ErrEmptyData)
	}

	var blocks []*mat.Dense
	if len(ct.NumericColumns) > 0 {
		X, err := numericMatrix(frame, ct.NumericColumns)
		if err != nil {
			return nil, err
		}
		imputed, err := ct.numImputer.Transform(X)
		if err != nil {
			return nil, err
		}
		scaled, err := ct.numScaler.Transform(imputed)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, scaled)
	}
	if len(ct.CategoricalColumns) > 0 {
		cols, err := stringColumns(frame, ct.CategoricalColumns)
		if err != nil {
			return nil, err
		}
		filled, err := ct.catImputer.Transform(cols)
		if err != nil {
			return nil, err
		}
		encoded, err := ct.encoder.Transform(filled)
		if err != nil {
			return nil, err
		}
		if ct.catScaler != nil {
			if encoded, err = ct.catScaler.Transform(encoded); err != nil {
				return nil, err
			}
		}
		blocks = append(blocks, encoded)
	}

	out := mat.NewDense(n, ct.NOutputFeatures(), nil)
	offset := 0
	for _, b := range blocks {
		_, c := b.Dims()
		out.Slice(0, n, offset, offset+c).(*mat.Dense).Copy(b)
		offset += c
	}
	return out, nil
}

// FitTransform fits on frame and transforms it.
func (ct *ColumnTransformer) FitTransform(frame *dataset.Frame) (*mat.Dense, error) {
	if err := ct.Fit(frame); err != nil {
		return nil, err
	}
	return ct.Transform(frame)
}

// NOutputFeatures returns the width of Transform's output.
func (ct *ColumnTransformer) NOutputFeatures() int {
	w := len(ct.NumericColumns)
	if ct.encoder != nil {
		w += ct.encoder.Width()
	}
	return w
}

// OutputFeatureNames names every output column.
func (ct *ColumnTransformer) OutputFeatureNames() []string {
	names := append([]string(nil), ct.NumericColumns...)
	if ct.encoder != nil {
		names = append(names, ct.encoder.FeatureNames(ct.CategoricalColumns)...)
	}
	return names
}

// ExportState returns the fitted state for persistence.
func (ct *ColumnTransformer) ExportState() (*ColumnTransformerState, error) {
	if !ct.fitted {
		return nil, errors.NewNotFittedError("ColumnTransformer", "ExportState")
	}
	st := &ColumnTransformerState{
		NumericColumns:     append([]string(nil), ct.NumericColumns...),
		CategoricalColumns: append([]string(nil), ct.CategoricalColumns...),
		ScaleCategorical:   ct.ScaleCategorical,
	}
	if ct.numImputer != nil {
		st.NumericFill = append([]float64(nil), ct.numImputer.Statistics...)
		scaler, err := ct.numScaler.ExportState()
		if err != nil {
			return nil, err
		}
		st.NumericScaler = scaler
	}
	if ct.catImputer != nil {
		st.CategoricalFill = append([]string(nil), ct.catImputer.Fill...)
		st.Categories = make([][]string, len(ct.encoder.Categories))
		for j, cs := range ct.encoder.Categories {
			st.Categories[j] = append([]string(nil), cs...)
		}
		if ct.catScaler != nil {
			scaler, err := ct.catScaler.ExportState()
			if err != nil {
				return nil, err
			}
			st.CategoricalScaler = scaler
		}
	}
	return st, nil
}

// ImportState restores a transformer from ExportState output.
func (ct *ColumnTransformer) ImportState(st *ColumnTransformerState) error {
	if st == nil {
		return errors.NewValueError("ColumnTransformer.ImportState", "nil state")
	}
	nNum, nCat := len(st.NumericColumns), len(st.CategoricalColumns)
	if nNum+nCat == 0 {
		return errors.NewValueError("ColumnTransformer.ImportState", "no columns")
	}

	fresh := NewColumnTransformer(st.NumericColumns, st.CategoricalColumns,
		WithScaleCategorical(st.ScaleCategorical), WithLogger(ct.logger))

	if nNum > 0 {
		if len(st.NumericFill) != nNum || st.NumericScaler == nil || len(st.NumericScaler.Mean) != nNum {
			return errors.NewValueError("ColumnTransformer.ImportState", "numeric branch does not match numeric columns")
		}
		fresh.numImputer = NewSimpleImputer(StrategyMedian)
		if err := fresh.numImputer.ImportStatistics(st.NumericFill); err != nil {
			return err
		}
		fresh.numScaler = NewStandardScalerDefault()
		if err := fresh.numScaler.ImportState(st.NumericScaler); err != nil {
			return err
		}
	}

	if nCat > 0 {
		if len(st.CategoricalFill) != nCat || len(st.Categories) != nCat {
			return errors.NewValueError("ColumnTransformer.ImportState", "categorical branch does not match categorical columns")
		}
		fresh.catImputer = NewMostFrequentImputer()
		if err := fresh.catImputer.ImportFill(st.CategoricalFill); err != nil {
			return err
		}
		fresh.encoder = NewOneHotEncoder()
		if err := fresh.encoder.ImportCategories(st.Categories); err != nil {
			return err
		}
		if st.ScaleCategorical {
			if st.CategoricalScaler == nil || len(st.CategoricalScaler.Mean) != fresh.encoder.Width() {
				return errors.NewValueError("ColumnTransformer.ImportState", "categorical scaler does not match encoder width")
			}
			fresh.catScaler = NewStandardScaler(false, true)
			if err := fresh.catScaler.ImportState(st.CategoricalScaler); err != nil {
				return err
			}
		}
	}

	fresh.fitted = true
	*ct = *fresh
	return nil
}

func numericMatrix(frame *dataset.Frame, columns []string) (*mat.Dense, error) {
	X := mat.NewDense(frame.NRows(), len(columns), nil)
	for j, name := range columns {
		vals, err := frame.FloatColumn(name)
		if err != nil {
			return nil, &ColumnError{Index: j, Column: name, Err: err}
		}
		X.SetCol(j, vals)
	}
	return X, nil
}

func stringColumns(frame *dataset.Frame, columns []string) ([][]string, error) {
	out := make([][]string, len(columns))
	for j, name := range columns {
		col, err := frame.Column(name)
		if err != nil {
			return nil, &ColumnError{Index: j, Column: name, Err: err}
		}
		out[j] = col
	}
	return out, nil
}

// nameColumn fills in the column name of a ColumnError raised by a branch.
func nameColumn(err error, columns []string) error {
	var ce *ColumnError
	if errors.As(err, &ce) && ce.Column == "" && ce.Index < len(columns) {
		ce.Column = columns[ce.Index]
	}
	return err
}

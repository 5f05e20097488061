// Package linear implements least-squares regressors: ordinary least
// squares, Ridge (L2) and Lasso (L1).
//
// All three center X and y when fitting an intercept, solve for the
// coefficients on the centered data and recover the intercept as
// mean(y) - mean(X)·coef.
package linear

import (
	"fmt"

	"github.com/YuminosukeSato/scorecast/core/model"
	"github.com/YuminosukeSato/scorecast/metrics"
	"github.com/YuminosukeSato/scorecast/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

var (
	_ model.Scorer = (*LinearRegression)(nil)
	_ model.Scorer = (*Ridge)(nil)
	_ model.Scorer = (*Lasso)(nil)
)

// linearModel holds the fitted state shared by every model in the package.
type linearModel struct {
	name      string
	state     *model.StateManager
	coef      []float64
	intercept float64
}

func newLinearModel(name string) linearModel {
	return linearModel{name: name, state: model.NewStateManager()}
}

// IsFitted reports whether the model has been fitted or imported.
func (m *linearModel) IsFitted() bool { return m.state.IsFitted() }

// Coef returns a copy of the fitted coefficients.
func (m *linearModel) Coef() []float64 {
	return append([]float64(nil), m.coef...)
}

// Intercept returns the fitted intercept.
func (m *linearModel) Intercept() float64 { return m.intercept }

// Predict returns X·coef + intercept for every row of X.
func (m *linearModel) Predict(X mat.Matrix) (*mat.VecDense, error) {
	if err := m.state.RequireFitted(m.name, "Predict"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := m.state.CheckFeatures(m.name+".Predict", c); err != nil {
		return nil, err
	}

	// y = X * coef + intercept
	out := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		pred := m.intercept
		for j := 0; j < c; j++ {
			pred += X.At(i, j) * m.coef[j]
		}
		out.SetVec(i, pred)
	}
	return out, nil
}

// Score returns the R² of the predictions on X against y.
func (m *linearModel) Score(X mat.Matrix, y *mat.VecDense) (float64, error) {
	pred, err := m.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(y, pred)
}

func (m *linearModel) exportWeights(params model.Params) (*model.ModelWeights, error) {
	if err := m.state.RequireFitted(m.name, "ExportWeights"); err != nil {
		return nil, err
	}
	return &model.ModelWeights{
		ModelType:       m.name,
		Version:         model.WeightsVersion,
		NFeatures:       len(m.coef),
		Coefficients:    m.Coef(),
		Intercept:       m.intercept,
		Hyperparameters: params,
		IsFitted:        true,
	}, nil
}

func (m *linearModel) importWeights(w *model.ModelWeights) error {
	if err := w.Expect(m.name); err != nil {
		return errors.NewModelError(m.name+".ImportWeights", "invalid weights", err)
	}
	if len(w.Coefficients) != w.NFeatures {
		return errors.NewDimensionError(m.name+".ImportWeights", w.NFeatures, len(w.Coefficients), 1)
	}
	coef := append([]float64(nil), w.Coefficients...)
	if err := errors.CheckNumericalStability(m.name+".ImportWeights", append(coef, w.Intercept), 0); err != nil {
		return err
	}
	m.coef = coef
	m.intercept = w.Intercept
	m.state.SetFitted(w.NFeatures, 0)
	return nil
}

// checkXY validates shapes and returns n, p.
func checkXY(op string, X mat.Matrix, y *mat.VecDense) (int, int, error) {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return 0, 0, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if y == nil || y.Len() != r {
		got := 0
		if y != nil {
			got = y.Len()
		}
		return 0, 0, errors.NewDimensionError(op, r, got, 0)
	}
	if err := errors.CheckMatrix(op, X, 0); err != nil {
		return 0, 0, err
	}
	if err := errors.CheckMatrix(op, y, 0); err != nil {
		return 0, 0, err
	}
	return r, c, nil
}

// center returns copies of X and y with column means removed, plus the
// means. Without an intercept the data is copied unchanged and the means are
// zero.
func center(X mat.Matrix, y *mat.VecDense, fitIntercept bool) (*mat.Dense, *mat.VecDense, []float64, float64) {
	r, c := X.Dims()
	Xc := mat.DenseCopyOf(X)
	yc := mat.VecDenseCopyOf(y)
	xMean := make([]float64, c)
	if !fitIntercept {
		return Xc, yc, xMean, 0
	}

	for j := 0; j < c; j++ {
		sum := 0.0
		for i := 0; i < r; i++ {
			sum += Xc.At(i, j)
		}
		xMean[j] = sum / float64(r)
		for i := 0; i < r; i++ {
			Xc.Set(i, j, Xc.At(i, j)-xMean[j])
		}
	}

	yMean := 0.0
	for i := 0; i < r; i++ {
		yMean += yc.AtVec(i)
	}
	yMean /= float64(r)
	for i := 0; i < r; i++ {
		yc.SetVec(i, yc.AtVec(i)-yMean)
	}
	return Xc, yc, xMean, yMean
}

// finish stores coef and derives the intercept from the centering means.
func (m *linearModel) finish(coef *mat.VecDense, xMean []float64, yMean float64, nSamples int) error {
	c := coef.Len()
	m.coef = make([]float64, c)
	intercept := yMean
	for j := 0; j < c; j++ {
		m.coef[j] = coef.AtVec(j)
		intercept -= xMean[j] * m.coef[j]
	}
	m.intercept = intercept
	if err := errors.CheckNumericalStability(m.name+".Fit", append(m.Coef(), m.intercept), 0); err != nil {
		return err
	}
	m.state.SetFitted(c, nSamples)
	return nil
}

func boolParam(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func unknownParam(model, key string, v float64) error {
	return errors.NewValidationError(key, fmt.Sprintf("unknown parameter for %s", model), v)
}

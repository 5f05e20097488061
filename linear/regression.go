package linear

import (
	"github.com/YuminosukeSato/scorecast/core/model"
	"github.com/YuminosukeSato/scorecast/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// LinearRegression is ordinary least squares.
//
// Coefficients are the SVD least-squares solution, so a rank-deficient
// design matrix (one-hot columns, for example) still yields the unique
// minimum-norm solution.
type LinearRegression struct {
	linearModel
	fitIntercept bool
	rank         int
}

// NewLinearRegression creates a LinearRegression.
func NewLinearRegression(opts ...Option) *LinearRegression {
	cfg := newConfig(opts)
	return &LinearRegression{
		linearModel:  newLinearModel("LinearRegression"),
		fitIntercept: cfg.fitIntercept,
	}
}

// Fit solves the least-squares problem on X and y.
func (lr *LinearRegression) Fit(X mat.Matrix, y *mat.VecDense) error {
	n, p, err := checkXY("LinearRegression.Fit", X, y)
	if err != nil {
		return err
	}
	Xc, yc, xMean, yMean := center(X, y, lr.fitIntercept)

	var svd mat.SVD
	if ok := svd.Factorize(Xc, mat.SVDThin); !ok {
		return errors.NewModelError("LinearRegression.Fit", "SVD failed to converge", errors.ErrSingularMatrix)
	}

	// rcond = eps * max(n, p)
	rcond := 2.220446049250313e-16 * float64(max(n, p))
	lr.rank = svd.Rank(rcond)
	if lr.rank == 0 {
		// every column is constant: zero coefficients, intercept is the mean
		return lr.finish(mat.NewVecDense(p, nil), xMean, yMean, n)
	}

	var sol mat.Dense
	svd.SolveTo(&sol, yc, lr.rank)
	return lr.finish(mat.VecDenseCopyOf(sol.ColView(0)), xMean, yMean, n)
}

// Rank returns the effective rank of the centered design matrix.
func (lr *LinearRegression) Rank() int { return lr.rank }

// GetParams returns the model's hyperparameters.
func (lr *LinearRegression) GetParams() model.Params {
	return model.Params{"fit_intercept": boolParam(lr.fitIntercept)}
}

// SetParams sets the model's hyperparameters.
func (lr *LinearRegression) SetParams(params model.Params) error {
	for k, v := range params {
		switch k {
		case "fit_intercept":
			lr.fitIntercept = v != 0
		default:
			return unknownParam("LinearRegression", k, v)
		}
	}
	return nil
}

// ExportWeights returns the fitted coefficients and settings.
func (lr *LinearRegression) ExportWeights() (*model.ModelWeights, error) {
	return lr.exportWeights(lr.GetParams())
}

// ImportWeights restores a model written by ExportWeights.
func (lr *LinearRegression) ImportWeights(w *model.ModelWeights) error {
	if err := lr.importWeights(w); err != nil {
		return err
	}
	return lr.SetParams(w.Hyperparameters)
}

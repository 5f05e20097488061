package linear

import (
	"github.com/YuminosukeSato/scorecast/core/model"
	"github.com/YuminosukeSato/scorecast/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Ridge minimizes ||y - Xw||² + alpha·||w||².
type Ridge struct {
	linearModel
	alpha        float64
	fitIntercept bool
}

// NewRidge creates a Ridge model. Default alpha is 1.0.
func NewRidge(opts ...Option) *Ridge {
	cfg := newConfig(opts)
	return &Ridge{
		linearModel:  newLinearModel("Ridge"),
		alpha:        cfg.alpha,
		fitIntercept: cfg.fitIntercept,
	}
}

// Fit solves (XᵀX + alpha·I) w = Xᵀy on centered data by Cholesky
// factorization. alpha must be positive.
func (r *Ridge) Fit(X mat.Matrix, y *mat.VecDense) error {
	if r.alpha <= 0 {
		return errors.NewValidationError("alpha", "must be positive", r.alpha)
	}
	n, p, err := checkXY("Ridge.Fit", X, y)
	if err != nil {
		return err
	}
	Xc, yc, xMean, yMean := center(X, y, r.fitIntercept)

	gram := mat.NewSymDense(p, nil)
	gram.SymOuterK(1, Xc.T())
	for j := 0; j < p; j++ {
		gram.SetSym(j, j, gram.At(j, j)+r.alpha)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(gram); !ok {
		return errors.NewModelError("Ridge.Fit", "gram matrix is not positive definite", errors.ErrSingularMatrix)
	}

	var xty mat.VecDense
	xty.MulVec(Xc.T(), yc)

	var coef mat.VecDense
	if err := chol.SolveVecTo(&coef, &xty); err != nil {
		return errors.NewModelError("Ridge.Fit", "cholesky solve failed", err)
	}
	return r.finish(&coef, xMean, yMean, n)
}

// GetParams returns the model's hyperparameters.
func (r *Ridge) GetParams() model.Params {
	return model.Params{
		"alpha":         r.alpha,
		"fit_intercept": boolParam(r.fitIntercept),
	}
}

// SetParams sets the model's hyperparameters.
func (r *Ridge) SetParams(params model.Params) error {
	for k, v := range params {
		switch k {
		case "alpha":
			if v <= 0 {
				return errors.NewValidationError("alpha", "must be positive", v)
			}
			r.alpha = v
		case "fit_intercept":
			r.fitIntercept = v != 0
		default:
			return unknownParam("Ridge", k, v)
		}
	}
	return nil
}

// ExportWeights exports the fitted coefficients.
func (r *Ridge) ExportWeights() (*model.ModelWeights, error) {
	return r.exportWeights(r.GetParams())
}

// ImportWeights restores coefficients written by ExportWeights.
func (r *Ridge) ImportWeights(w *model.ModelWeights) error {
	if err := r.importWeights(w); err != nil {
		return err
	}
	return r.SetParams(w.Hyperparameters)
}

package linear

import (
	"math"

	"github.com/YuminosukeSato/scorecast/core/model"
	"github.com/YuminosukeSato/scorecast/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Lasso minimizes (1/2n)·||y - Xw||² + alpha·||w||₁ by cyclic coordinate
// descent.
type Lasso struct {
	linearModel
	alpha        float64
	fitIntercept bool
	maxIter      int
	tol          float64
	nIter        int
}

// NewLasso creates a Lasso model. Defaults: alpha 1.0, max_iter 1000,
// tol 1e-4.
func NewLasso(opts ...Option) *Lasso {
	cfg := newConfig(opts)
	return &Lasso{
		linearModel:  newLinearModel("Lasso"),
		alpha:        cfg.alpha,
		fitIntercept: cfg.fitIntercept,
		maxIter:      cfg.maxIter,
		tol:          cfg.tol,
	}
}

// Fit runs coordinate descent from zero coefficients. It stops when the
// largest coefficient update falls below tol times the largest coefficient,
// and emits a ConvergenceWarning when max_iter is reached first.
func (l *Lasso) Fit(X mat.Matrix, y *mat.VecDense) error {
	if l.alpha < 0 {
		return errors.NewValidationError("alpha", "must be non-negative", l.alpha)
	}
	if l.maxIter <= 0 {
		return errors.NewValidationError("max_iter", "must be positive", l.maxIter)
	}
	n, p, err := checkXY("Lasso.Fit", X, y)
	if err != nil {
		return err
	}
	Xc, yc, xMean, yMean := center(X, y, l.fitIntercept)

	colNorm := make([]float64, p)
	for j := 0; j < p; j++ {
		col := Xc.ColView(j)
		colNorm[j] = mat.Dot(col, col)
	}

	w := make([]float64, p)
	resid := mat.VecDenseCopyOf(yc)
	penalty := l.alpha * float64(n)

	converged := false
	l.nIter = 0
	for iter := 0; iter < l.maxIter; iter++ {
		l.nIter = iter + 1
		maxDelta, maxW := 0.0, 0.0
		for j := 0; j < p; j++ {
			if colNorm[j] == 0 {
				continue
			}
			col := Xc.ColView(j)
			old := w[j]
			rho := mat.Dot(col, resid) + colNorm[j]*old
			w[j] = softThreshold(rho, penalty) / colNorm[j]

			if d := w[j] - old; d != 0 {
				resid.AddScaledVec(resid, -d, col)
				maxDelta = math.Max(maxDelta, math.Abs(d))
			}
			maxW = math.Max(maxW, math.Abs(w[j]))
		}
		if err := errors.CheckNumericalStability("Lasso.Fit", w, iter); err != nil {
			return err
		}
		if errors.SafeDivide(maxDelta, maxW) < l.tol {
			converged = true
			break
		}
	}
	if !converged {
		errors.Warn(errors.NewConvergenceWarning("Lasso", l.maxIter,
			"objective did not converge; consider increasing max_iter or alpha"))
	}
	return l.finish(mat.NewVecDense(p, w), xMean, yMean, n)
}

func softThreshold(x, lambda float64) float64 {
	switch {
	case x > lambda:
		return x - lambda
	case x < -lambda:
		return x + lambda
	default:
		return 0
	}
}

// NIter returns the number of coordinate descent sweeps of the last Fit.
func (l *Lasso) NIter() int { return l.nIter }

// GetParams returns the model's hyperparameters.
func (l *Lasso) GetParams() model.Params {
	return model.Params{
		"alpha":         l.alpha,
		"fit_intercept": boolParam(l.fitIntercept),
		"max_iter":      float64(l.maxIter),
		"tol":           l.tol,
	}
}

// SetParams sets the model's hyperparameters.
func (l *Lasso) SetParams(params model.Params) error {
	for k, v := range params {
		switch k {
		case "alpha":
			if v < 0 {
				return errors.NewValidationError("alpha", "must be non-negative", v)
			}
			l.alpha = v
		case "fit_intercept":
			l.fitIntercept = v != 0
		case "max_iter":
			if v < 1 {
				return errors.NewValidationError("max_iter", "must be positive", v)
			}
			l.maxIter = int(math.Round(v))
		case "tol":
			if v <= 0 {
				return errors.NewValidationError("tol", "must be positive", v)
			}
			l.tol = v
		default:
			return unknownParam("Lasso", k, v)
		}
	}
	return nil
}

// ExportWeights exports the fitted coefficients.
func (l *Lasso) ExportWeights() (*model.ModelWeights, error) {
	return l.exportWeights(l.GetParams())
}

// ImportWeights restores coefficients written by ExportWeights.
func (l *Lasso) ImportWeights(w *model.ModelWeights) error {
	if err := l.importWeights(w); err != nil {
		return err
	}
	return l.SetParams(w.Hyperparameters)
}

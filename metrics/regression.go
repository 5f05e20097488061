// Package metrics provides regression scores on gonum vectors.
package metrics

import (
	"math"

	"github.com/YuminosukeSato/scorecast/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil || yTrue.IsEmpty() {
		return 0, errors.NewValueError(op, "empty vector")
	}
	n := yTrue.Len()
	if yPred.IsEmpty() || yPred.Len() != n {
		got := 0
		if !yPred.IsEmpty() {
			got = yPred.Len()
		}
		return 0, errors.NewDimensionError(op, n, got, 0)
	}
	return n, nil
}

// MSE returns the mean squared error.
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	// MSE = (1/n) * Σ(yTrue - yPred)²
	var sum float64
	for i := 0; i < n; i++ {
		diff := yTrue.AtVec(i) - yPred.AtVec(i)
		sum += diff * diff
	}
	return sum / float64(n), nil
}

// RMSE returns the root mean squared error.
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE returns the mean absolute error.
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	// MAE = (1/n) * Σ|yTrue - yPred|
	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Abs(yTrue.AtVec(i) - yPred.AtVec(i))
	}
	return sum / float64(n), nil
}

// R2Score returns the coefficient of determination.
//
// When yTrue is constant the score is 1.0 for a perfect prediction and 0.0
// otherwise, and an UndefinedMetricWarning is raised. Fewer than two samples
// is an error.
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if n < 2 {
		return 0, errors.NewValueError("R2Score", "R^2 is not well-defined with less than two samples")
	}

	var yMean float64
	for i := 0; i < n; i++ {
		yMean += yTrue.AtVec(i)
	}
	yMean /= float64(n)

	// total (TSS) and residual (RSS) sums of squares
	var tss, rss float64
	for i := 0; i < n; i++ {
		yt := yTrue.AtVec(i)
		yp := yPred.AtVec(i)
		tss += (yt - yMean) * (yt - yMean)
		rss += (yt - yp) * (yt - yp)
	}

	if tss == 0 {
		result := 0.0
		if rss == 0 {
			result = 1.0
		}
		errors.Warn(errors.NewUndefinedMetricWarning("r2_score", "constant y_true", result))
		return result, nil
	}

	// R² = 1 - RSS/TSS
	return 1 - rss/tss, nil
}

// Scores bundles the regression metrics reported for a fitted model.
type Scores struct {
	R2   float64 `json:"r2"`
	MSE  float64 `json:"mse"`
	RMSE float64 `json:"rmse"`
	MAE  float64 `json:"mae"`
}

// Evaluate computes every score in Scores.
func Evaluate(yTrue, yPred *mat.VecDense) (Scores, error) {
	r2, err := R2Score(yTrue, yPred)
	if err != nil {
		return Scores{}, err
	}
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return Scores{}, err
	}
	mae, err := MAE(yTrue, yPred)
	if err != nil {
		return Scores{}, err
	}
	return Scores{R2: r2, MSE: mse, RMSE: math.Sqrt(mse), MAE: mae}, nil
}

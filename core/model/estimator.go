package model

import "gonum.org/v1/gonum/mat"

// Fitter is an estimator that learns from data.
type Fitter interface {
	// Fit learns from X (n×p) and y (length n).
	Fit(X mat.Matrix, y *mat.VecDense) error
}

// Predictor is an estimator that predicts.
type Predictor interface {
	// Predict returns one prediction per row of X.
	Predict(X mat.Matrix) (*mat.VecDense, error)
}

// Scorer is an estimator that scores its own predictions.
type Scorer interface {
	// Score returns the R² of the predictions on X against y.
	Score(X mat.Matrix, y *mat.VecDense) (float64, error)
}

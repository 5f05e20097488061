package model

import "gonum.org/v1/gonum/mat"

// Transformer learns a data transformation and applies it.
type Transformer interface {
	// Fit learns the transformation parameters.
	Fit(X mat.Matrix) error

	// Transform applies the fitted transformation.
	Transform(X mat.Matrix) (*mat.Dense, error)

	// FitTransform fits on X and transforms it.
	FitTransform(X mat.Matrix) (*mat.Dense, error)
}

package errors

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// CheckNumericalStability returns a NumericalInstabilityError when values
// contains NaN or Inf.
func CheckNumericalStability(operation string, values []float64, iteration int) error {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return NewNumericalInstabilityError(operation, values, iteration)
		}
	}
	return nil
}

// CheckScalar checks a single value.
func CheckScalar(operation string, value float64, iteration int) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return NewNumericalInstabilityError(operation, []float64{value}, iteration)
	}
	return nil
}

// CheckMatrix checks every element of m. At most ten offending values are
// reported.
func CheckMatrix(operation string, m mat.Matrix, iteration int) error {
	rows, cols := m.Dims()
	var bad []float64
	for i := 0; i < rows && len(bad) < 10; i++ {
		for j := 0; j < cols && len(bad) < 10; j++ {
			if v := m.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				bad = append(bad, v)
			}
		}
	}
	if len(bad) > 0 {
		return NewNumericalInstabilityError(operation, bad, iteration)
	}
	return nil
}

// SafeDivide returns 0 when the denominator is (close to) zero.
func SafeDivide(numerator, denominator float64) float64 {
	if math.Abs(denominator) < 1e-10 {
		return 0
	}
	return numerator / denominator
}

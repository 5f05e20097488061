package dataset

import (
	"math"
	"sort"

	"golang.org/x/exp/constraints"
)

// Median returns the median of the non-NaN values in xs, averaging the two
// middle values for an even count. It returns NaN when nothing is left.
func Median[T constraints.Float](xs []T) T {
	vals := make([]T, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(float64(x)) {
			vals = append(vals, x)
		}
	}
	if len(vals) == 0 {
		return T(math.NaN())
	}
	sort.Slice(vals, func(i, j int) bool { return vals[i] < vals[j] })
	mid := len(vals) / 2
	if len(vals)%2 == 1 {
		return vals[mid]
	}
	return (vals[mid-1] + vals[mid]) / 2
}

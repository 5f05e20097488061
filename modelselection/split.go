// Package modelselection provides the seeded train/test split, K-fold
// cross-validation and exhaustive grid search used to pick a model.
//
// All shuffles use math/rand/v2 PCG seeded with (seed, seed), so a seed
// always produces the same partition.
package modelselection

import (
	"math"
	"math/rand/v2"

	"github.com/YuminosukeSato/scorecast/pkg/errors"
)

func permutation(n int, seed uint64) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	r := rand.New(rand.NewPCG(seed, seed))
	r.Shuffle(n, func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})
	return indices
}

// TrainTestSplit shuffles the row indices [0, n) and cuts ceil(testSize*n)
// of them into the test set. Both sets keep the shuffled order. testSize
// must be in (0, 1) and leave at least one row on each side.
func TrainTestSplit(n int, testSize float64, seed uint64) (train, test []int, err error) {
	if testSize <= 0 || testSize >= 1 || math.IsNaN(testSize) {
		return nil, nil, errors.NewValidationError("test_size", "must be in (0, 1)", testSize)
	}
	nTest := int(math.Ceil(testSize * float64(n)))
	if n < 2 || nTest >= n {
		return nil, nil, errors.NewValueError("TrainTestSplit",
			"not enough rows to leave at least one in each split")
	}

	indices := permutation(n, seed)
	return indices[nTest:], indices[:nTest], nil
}

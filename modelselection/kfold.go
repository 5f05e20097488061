package modelselection

import (
	"sort"

	"github.com/YuminosukeSato/scorecast/pkg/errors"
)

// Fold is one train/validation partition of the row indices.
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// KFold splits n rows into NSplits folds. The first n % NSplits folds get
// one extra row.
type KFold struct {
	NSplits int
	Shuffle bool
	Seed    uint64
}

// NewKFold creates a k-fold splitter.
func NewKFold(nSplits int, shuffle bool, seed uint64) *KFold {
	return &KFold{NSplits: nSplits, Shuffle: shuffle, Seed: seed}
}

// Split returns NSplits folds over n rows. Every row appears in exactly one
// test fold. Train indices are sorted.
func (kf *KFold) Split(n int) ([]Fold, error) {
	if kf.NSplits < 2 {
		return nil, errors.NewValidationError("n_splits", "must be >= 2", kf.NSplits)
	}
	if n < kf.NSplits {
		return nil, errors.NewValueError("KFold.Split",
			"cannot have more folds than samples")
	}

	var indices []int
	if kf.Shuffle {
		indices = permutation(n, kf.Seed)
	} else {
		indices = make([]int, n)
		for i := range indices {
			indices[i] = i
		}
	}

	folds := make([]Fold, kf.NSplits)
	foldSize := n / kf.NSplits
	remainder := n % kf.NSplits

	current := 0
	for i := 0; i < kf.NSplits; i++ {
		testSize := foldSize
		if i < remainder {
			testSize++
		}

		test := append([]int(nil), indices[current:current+testSize]...)
		inTest := make(map[int]bool, testSize)
		for _, idx := range test {
			inTest[idx] = true
		}
		train := make([]int, 0, n-testSize)
		for j := 0; j < n; j++ {
			if !inTest[j] {
				train = append(train, j)
			}
		}
		sort.Ints(test)

		folds[i] = Fold{TrainIndices: train, TestIndices: test}
		current += testSize
	}
	return folds, nil
}

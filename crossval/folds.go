// Package crossval provides fold generation for i.i.d. and temporal data and
// the hidden-layer size search used by every causal estimator.
package crossval

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/causalgo/pkg/errors"
)

// Fold is an ordered train/validation split of row indices.
type Fold struct {
	TrainIndices      []int
	ValidationIndices []int
}

// KFolds partitions n rows into k shuffled folds. Every index appears in
// exactly one validation block; the train block is the complement.
func KFolds(n, k int, seed uint64) ([]Fold, error) {
	if err := checkFoldCount(n, k); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(seed, seed))
	indices := rng.Perm(n)

	folds := make([]Fold, k)
	foldSize := n / k
	remainder := n % k

	current := 0
	for i := 0; i < k; i++ {
		size := foldSize
		if i < remainder {
			size++
		}
		validation := make([]int, size)
		copy(validation, indices[current:current+size])

		train := make([]int, 0, n-size)
		train = append(train, indices[:current]...)
		train = append(train, indices[current+size:]...)

		folds[i] = Fold{TrainIndices: train, ValidationIndices: validation}
		current += size
	}
	return folds, nil
}

// TemporalFolds produces a rolling-origin split preserving chronological
// order: the rows are cut into k+1 consecutive blocks, and fold i trains on
// blocks up to i and validates on block i+1. Every validation index is
// strictly greater than every index in its training block; shuffling time
// order would leak the future into training.
func TemporalFolds(n, k int) ([]Fold, error) {
	if err := checkFoldCount(n, k); err != nil {
		return nil, err
	}
	if n < k+1 {
		return nil, errors.NewValidationError("folds", "temporal folds need at least folds+1 rows", k)
	}

	blocks := k + 1
	blockSize := n / blocks
	remainder := n % blocks

	bounds := make([]int, blocks+1)
	for i := 1; i <= blocks; i++ {
		size := blockSize
		if i-1 < remainder {
			size++
		}
		bounds[i] = bounds[i-1] + size
	}

	folds := make([]Fold, k)
	for i := 0; i < k; i++ {
		trainEnd := bounds[i+1]
		valEnd := bounds[i+2]

		train := make([]int, trainEnd)
		for j := 0; j < trainEnd; j++ {
			train[j] = j
		}
		validation := make([]int, valEnd-trainEnd)
		for j := range validation {
			validation[j] = trainEnd + j
		}
		folds[i] = Fold{TrainIndices: train, ValidationIndices: validation}
	}
	return folds, nil
}

func checkFoldCount(n, k int) error {
	if k < 2 {
		return errors.NewValidationError("folds", "must be at least 2", k)
	}
	if k > n {
		return errors.NewValidationError("folds", "cannot exceed the number of rows", k)
	}
	return nil
}

// Slice extracts the given rows of X and y into fresh structures.
func Slice(X mat.Matrix, y *mat.VecDense, indices []int) (*mat.Dense, *mat.VecDense) {
	_, d := X.Dims()
	subX := mat.NewDense(len(indices), d, nil)
	subY := mat.NewVecDense(len(indices), nil)
	for i, idx := range indices {
		for j := 0; j < d; j++ {
			subX.Set(i, j, X.At(idx, j))
		}
		subY.SetVec(i, y.AtVec(idx))
	}
	return subX, subY
}

package causal

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/causalgo/crossval"
	"github.com/YuminosukeSato/causalgo/pkg/errors"
)

// DoublyRobustLearner estimates the CATE from doubly robust pseudo-outcomes.
// For each fold the nuisance models are fit on the complement, augmented
// inverse-propensity pseudo-outcomes are formed on the fold, and a
// second-stage ensemble regresses them on covariates. The estimate stays
// consistent if either the outcome models or the propensity model is correct.
type DoublyRobustLearner struct {
	metalearnerBase
}

// NewDoublyRobustLearner builds a doubly robust learner. Treatment must be
// binary and both arms must be populated.
func NewDoublyRobustLearner(X mat.Matrix, t, y []float64, cfg ModelConfig) (*DoublyRobustLearner, error) {
	base, err := newMetalearnerBase("DoublyRobustLearner", X, t, y, cfg, true)
	if err != nil {
		return nil, err
	}
	return &DoublyRobustLearner{metalearnerBase: base}, nil
}

// EstimateCausalEffect returns one effect estimate per observation, averaged
// across the fold-specific second-stage models.
func (dr *DoublyRobustLearner) EstimateCausalEffect(ctx context.Context) ([]float64, error) {
	size, err := dr.Config.selectNeurons(ctx, dr.data.X, dr.data.Y, false)
	if err != nil {
		return nil, err
	}
	effect, err := dr.estimateWith(ctx, dr.data.T, size)
	if err != nil {
		return nil, err
	}
	return dr.setEffect(effect), nil
}

func (dr *DoublyRobustLearner) estimateWith(ctx context.Context, treatment *mat.VecDense, size int) ([]float64, error) {
	n := dr.data.Y.Len()
	folds, err := crossval.KFolds(n, dr.Config.Folds, dr.Config.Seed)
	if err != nil {
		return nil, err
	}

	pooled := make([]float64, n)
	for f, fold := range folds {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "DoublyRobustLearner: estimation cancelled")
		}
		salt := uint64(f) * 10

		trainTreated, trainControl := splitArm(treatment, fold.TrainIndices)
		if err := checkArms("DoublyRobustLearner", trainTreated, trainControl); err != nil {
			return nil, err
		}
		mu1, mu0, err := fitArmModelsSalted(ctx, &dr.Config, dr.data, trainTreated, trainControl, size, salt)
		if err != nil {
			return nil, err
		}
		trainX, _ := crossval.Slice(dr.data.X, dr.data.Y, fold.TrainIndices)
		_, trainT := crossval.Slice(dr.data.X, treatment, fold.TrainIndices)
		propensity, err := dr.Config.fitEnsemble(ctx, trainX, trainT, size, salt+3)
		if err != nil {
			return nil, err
		}

		valX, valY := crossval.Slice(dr.data.X, dr.data.Y, fold.ValidationIndices)
		_, valT := crossval.Slice(dr.data.X, treatment, fold.ValidationIndices)
		mu1Pred, err := mu1.Predict(valX)
		if err != nil {
			return nil, err
		}
		mu0Pred, err := mu0.Predict(valX)
		if err != nil {
			return nil, err
		}
		ePred, err := propensity.Predict(valX)
		if err != nil {
			return nil, err
		}

		m := len(fold.ValidationIndices)
		pseudo := mat.NewVecDense(m, nil)
		for i := 0; i < m; i++ {
			e := errors.ClipValue(ePred.AtVec(i), propensityEpsilon, 1-propensityEpsilon)
			t := valT.AtVec(i)
			y := valY.AtVec(i)
			m1 := mu1Pred.AtVec(i)
			m0 := mu0Pred.AtVec(i)
			pseudo.SetVec(i, m1-m0+t*(y-m1)/e-(1-t)*(y-m0)/(1-e))
		}

		cate, err := dr.Config.fitEnsemble(ctx, valX, pseudo, size, salt+4)
		if err != nil {
			return nil, err
		}
		pred, err := cate.Predict(dr.data.X)
		if err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			pooled[i] += pred.AtVec(i)
		}
	}

	for i := range pooled {
		pooled[i] /= float64(len(folds))
	}
	return pooled, nil
}

// splitArm partitions a subset of indices by treatment status.
func splitArm(t *mat.VecDense, indices []int) (treated, control []int) {
	for _, idx := range indices {
		if t.AtVec(idx) == 1 {
			treated = append(treated, idx)
		} else {
			control = append(control, idx)
		}
	}
	return treated, control
}

package causal

import (
	"context"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/causalgo/crossval"
	"github.com/YuminosukeSato/causalgo/pkg/errors"
)

// RLearner estimates the CATE by residualizing both outcome and treatment on
// covariates with cross-fitted nuisance ensembles, then solving the implied
// weighted regression per fold. Scaling each row by the magnitude of its
// treatment residual turns the weighted problem into an ordinary fit.
// Treatment may be continuous.
type RLearner struct {
	metalearnerBase
}

// NewRLearner builds an R-learner. Any treatment type is accepted.
func NewRLearner(X mat.Matrix, t, y []float64, cfg ModelConfig) (*RLearner, error) {
	base, err := newMetalearnerBase("RLearner", X, t, y, cfg, false)
	if err != nil {
		return nil, err
	}
	return &RLearner{metalearnerBase: base}, nil
}

// EstimateCausalEffect returns one effect estimate per observation, averaged
// across the fold-specific second-stage models.
func (r *RLearner) EstimateCausalEffect(ctx context.Context) ([]float64, error) {
	size, err := r.Config.selectNeurons(ctx, r.data.X, r.data.Y, false)
	if err != nil {
		return nil, err
	}
	effect, err := r.estimateWith(ctx, r.data.T, size)
	if err != nil {
		return nil, err
	}
	return r.setEffect(effect), nil
}

func (r *RLearner) estimateWith(ctx context.Context, treatment *mat.VecDense, size int) ([]float64, error) {
	n := r.data.Y.Len()
	folds, err := crossval.KFolds(n, r.Config.Folds, r.Config.Seed)
	if err != nil {
		return nil, err
	}

	pooled := make([]float64, n)
	for f, fold := range folds {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "RLearner: estimation cancelled")
		}
		salt := uint64(f) * 10
		trainX, trainY := crossval.Slice(r.data.X, r.data.Y, fold.TrainIndices)
		_, trainT := crossval.Slice(r.data.X, treatment, fold.TrainIndices)
		yModel, err := r.Config.fitEnsemble(ctx, trainX, trainY, size, salt+1)
		if err != nil {
			return nil, err
		}
		tModel, err := r.Config.fitEnsemble(ctx, trainX, trainT, size, salt+2)
		if err != nil {
			return nil, err
		}

		valX, valY := crossval.Slice(r.data.X, r.data.Y, fold.ValidationIndices)
		_, valT := crossval.Slice(r.data.X, treatment, fold.ValidationIndices)
		yHat, err := yModel.Predict(valX)
		if err != nil {
			return nil, err
		}
		tHat, err := tModel.Predict(valX)
		if err != nil {
			return nil, err
		}

		// Rows scaled by |treatment residual| and targets by its sign give
		// the weighted least-squares solution of the R-loss on this fold.
		m := len(fold.ValidationIndices)
		_, d := valX.Dims()
		scaledX := mat.NewDense(m, d, nil)
		scaledY := mat.NewVecDense(m, nil)
		for i := 0; i < m; i++ {
			tr := valT.AtVec(i) - tHat.AtVec(i)
			yr := valY.AtVec(i) - yHat.AtVec(i)
			w := math.Abs(tr)
			for j := 0; j < d; j++ {
				scaledX.Set(i, j, w*valX.At(i, j))
			}
			if tr < 0 {
				yr = -yr
			}
			scaledY.SetVec(i, yr)
		}

		cate, err := r.Config.fitEnsemble(ctx, scaledX, scaledY, size, salt+3)
		if err != nil {
			return nil, err
		}
		pred, err := cate.Predict(r.data.X)
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

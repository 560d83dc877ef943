package causal

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/causalgo/core/model"
	"github.com/YuminosukeSato/causalgo/crossval"
	"github.com/YuminosukeSato/causalgo/elm"
	"github.com/YuminosukeSato/causalgo/pkg/errors"
)

// DoubleMachineLearning estimates the average treatment effect with
// cross-fitted residualization: nuisance models predict the outcome and the
// treatment from covariates on held-out folds, and the effect is the slope of
// the outcome residuals on the treatment residuals, averaged across folds.
// Treatment may be binary, count or continuous.
type DoubleMachineLearning struct {
	model.BaseCausalEstimator

	Config ModelConfig

	data *StandardData
	// w holds extra confounders that enter the nuisance models but are not
	// covariates of direct interest. Nil when none were supplied.
	w *mat.Dense

	effect float64
	// residuals of the last estimation, kept for permutation inference.
	tResiduals []float64
	yResiduals []float64
}

// DMLOption configures optional estimator behaviour.
type DMLOption func(*DoubleMachineLearning)

// WithConfounders appends extra confounder columns to the nuisance designs.
func WithConfounders(w mat.Matrix) DMLOption {
	return func(d *DoubleMachineLearning) {
		var c mat.Dense
		c.CloneFrom(w)
		d.w = &c
	}
}

// NewDoubleMachineLearning builds a DML estimator of the ATE of t on y.
func NewDoubleMachineLearning(X mat.Matrix, t, y []float64, cfg ModelConfig, opts ...DMLOption) (*DoubleMachineLearning, error) {
	const op = "NewDoubleMachineLearning"
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	data, err := newStandardData(op, X, t, y)
	if err != nil {
		return nil, err
	}
	d := &DoubleMachineLearning{Config: cfg, data: data}
	for _, opt := range opts {
		opt(d)
	}
	if d.w != nil {
		wn, _ := d.w.Dims()
		n, _ := data.X.Dims()
		if wn != n {
			return nil, errors.NewDimensionError(op, n, wn, 0)
		}
	}
	return d, nil
}

// nuisanceDesign returns [X | W], the covariate block both nuisance models
// are fit on.
func (d *DoubleMachineLearning) nuisanceDesign() *mat.Dense {
	if d.w == nil {
		return d.data.X
	}
	n, dx := d.data.X.Dims()
	_, dw := d.w.Dims()
	out := mat.NewDense(n, dx+dw, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < dx; j++ {
			out.Set(i, j, d.data.X.At(i, j))
		}
		for j := 0; j < dw; j++ {
			out.Set(i, dx+j, d.w.At(i, j))
		}
	}
	return out
}

// EstimateCausalEffect cross-fits the nuisance models and returns the
// residual-on-residual slope averaged over folds.
func (d *DoubleMachineLearning) EstimateCausalEffect(ctx context.Context) (float64, error) {
	design := d.nuisanceDesign()
	size, err := d.Config.selectNeurons(ctx, design, d.data.Y, false)
	if err != nil {
		return 0, err
	}

	n := d.data.Y.Len()
	folds, err := crossval.KFolds(n, d.Config.Folds, d.Config.Seed)
	if err != nil {
		return 0, err
	}

	tResid := make([]float64, n)
	yResid := make([]float64, n)
	slopes := make([]float64, 0, len(folds))

	for _, fold := range folds {
		if err := ctx.Err(); err != nil {
			return 0, errors.Wrap(err, "DoubleMachineLearning: estimation cancelled")
		}
		trainX, trainY := crossval.Slice(design, d.data.Y, fold.TrainIndices)
		_, trainT := crossval.Slice(design, d.data.T, fold.TrainIndices)

		yModel, err := elm.NewLearner(trainX, trainY, size, d.Config.Activation, d.Config.Regularized, d.Config.Seed)
		if err != nil {
			return 0, err
		}
		if err := yModel.Fit(); err != nil {
			return 0, err
		}
		tModel, err := elm.NewLearner(trainX, trainT, size, d.Config.Activation, d.Config.Regularized, d.Config.Seed+1)
		if err != nil {
			return 0, err
		}
		if err := tModel.Fit(); err != nil {
			return 0, err
		}

		valX, valY := crossval.Slice(design, d.data.Y, fold.ValidationIndices)
		_, valT := crossval.Slice(design, d.data.T, fold.ValidationIndices)
		yHat, err := yModel.Predict(valX)
		if err != nil {
			return 0, err
		}
		tHat, err := tModel.Predict(valX)
		if err != nil {
			return 0, err
		}

		foldT := make([]float64, len(fold.ValidationIndices))
		foldY := make([]float64, len(fold.ValidationIndices))
		for i, idx := range fold.ValidationIndices {
			foldT[i] = valT.AtVec(i) - tHat.AtVec(i)
			foldY[i] = valY.AtVec(i) - yHat.AtVec(i)
			tResid[idx] = foldT[i]
			yResid[idx] = foldY[i]
		}
		slope, err := residualSlope(foldT, foldY)
		if err != nil {
			return 0, err
		}
		slopes = append(slopes, slope)
	}

	d.effect = meanOf(slopes)
	d.tResiduals = tResid
	d.yResiduals = yResid
	d.SetEstimated()
	return d.effect, nil
}

// Effect returns the estimated average treatment effect.
func (d *DoubleMachineLearning) Effect() (float64, error) {
	if !d.IsEstimated() {
		return 0, errors.NewNotEstimatedError("DoubleMachineLearning", "Effect")
	}
	return d.effect, nil
}

// residualSlope computes the least-squares slope of y residuals on t
// residuals through the origin. A vanishing treatment residual norm means
// the treatment is fully explained by covariates, so no effect is
// identifiable.
func residualSlope(tResid, yResid []float64) (float64, error) {
	var num, den float64
	for i := range tResid {
		num += tResid[i] * yResid[i]
		den += tResid[i] * tResid[i]
	}
	if den < 1e-12 {
		return 0, errors.NewValueError("DoubleMachineLearning",
			"treatment residuals have vanishing variance, check positivity")
	}
	return num / den, nil
}

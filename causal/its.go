package causal

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/causalgo/core/model"
	"github.com/YuminosukeSato/causalgo/elm"
	"github.com/YuminosukeSato/causalgo/pkg/errors"
)

// InterruptedTimeSeries estimates the effect of an intervention at a known
// point in time. A learner is trained on the pre-period and extrapolated over
// the post-period; the pointwise effect is the observed post-period outcome
// minus that counterfactual, so a positive effect means the intervention
// raised the outcome above its projected path.
type InterruptedTimeSeries struct {
	model.BaseCausalEstimator

	Config ModelConfig

	x0 *mat.Dense
	y0 *mat.VecDense
	x1 *mat.Dense
	y1 *mat.VecDense

	autoregression bool
	effect         []float64
	learner        elm.Learner
}

// ITSOption configures optional interrupted time series behaviour.
type ITSOption func(*InterruptedTimeSeries)

// WithoutAutoregression disables the cumulative moving-average term that is
// appended to the covariates by default.
func WithoutAutoregression() ITSOption {
	return func(its *InterruptedTimeSeries) { its.autoregression = false }
}

// NewInterruptedTimeSeries builds an estimator from pre-period covariates and
// outcomes (x0, y0) and post-period covariates and outcomes (x1, y1). Rows
// must be in time order.
func NewInterruptedTimeSeries(x0 mat.Matrix, y0 []float64, x1 mat.Matrix, y1 []float64, cfg ModelConfig, opts ...ITSOption) (*InterruptedTimeSeries, error) {
	const op = "NewInterruptedTimeSeries"
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	n0, d0 := x0.Dims()
	n1, d1 := x1.Dims()
	if n0 == 0 || n1 == 0 {
		return nil, errors.NewModelError(op, "empty period", errors.ErrEmptyData)
	}
	if d0 != d1 {
		return nil, errors.NewDimensionError(op, d0, d1, 1)
	}
	if len(y0) != n0 {
		return nil, errors.NewDimensionError(op, n0, len(y0), 0)
	}
	if len(y1) != n1 {
		return nil, errors.NewDimensionError(op, n1, len(y1), 0)
	}

	var c0, c1 mat.Dense
	c0.CloneFrom(x0)
	c1.CloneFrom(x1)

	its := &InterruptedTimeSeries{
		Config:         cfg,
		x0:             &c0,
		y0:             mat.NewVecDense(n0, append([]float64(nil), y0...)),
		x1:             &c1,
		y1:             mat.NewVecDense(n1, append([]float64(nil), y1...)),
		autoregression: true,
	}
	for _, opt := range opts {
		opt(its)
	}
	if its.autoregression {
		its.x0 = appendColumn(its.x0, cumulativeMovingAverage(its.y0))
		its.x1 = appendColumn(its.x1, cumulativeMovingAverage(its.y1))
	}
	return its, nil
}

// EstimateCausalEffect fits the pre-period learner and returns the pointwise
// effect over the post-period.
func (its *InterruptedTimeSeries) EstimateCausalEffect(ctx context.Context) ([]float64, error) {
	size, err := its.Config.selectNeurons(ctx, its.x0, its.y0, true)
	if err != nil {
		return nil, err
	}
	effect, learner, err := its.estimateWith(its.x0, its.x1, size)
	if err != nil {
		return nil, err
	}
	its.effect = effect
	its.learner = learner
	its.SetEstimated()
	return append([]float64(nil), effect...), nil
}

// estimateWith runs one fit/extrapolate pass with the given design matrices.
// Validation diagnostics call it with perturbed covariates.
func (its *InterruptedTimeSeries) estimateWith(x0, x1 *mat.Dense, size int) ([]float64, elm.Learner, error) {
	learner, err := elm.NewLearner(x0, its.y0, size, its.Config.Activation, its.Config.Regularized, its.Config.Seed)
	if err != nil {
		return nil, nil, err
	}
	if err := learner.Fit(); err != nil {
		return nil, nil, err
	}
	counterfactual, err := learner.PredictCounterfactual(x1)
	if err != nil {
		return nil, nil, err
	}
	n1 := its.y1.Len()
	effect := make([]float64, n1)
	for i := 0; i < n1; i++ {
		effect[i] = its.y1.AtVec(i) - counterfactual.AtVec(i)
	}
	return effect, learner, nil
}

// Effect returns the pointwise post-period effect.
func (its *InterruptedTimeSeries) Effect() ([]float64, error) {
	if !its.IsEstimated() {
		return nil, errors.NewNotEstimatedError("InterruptedTimeSeries", "Effect")
	}
	return append([]float64(nil), its.effect...), nil
}

// MeanEffect averages the pointwise effect over the post-period.
func (its *InterruptedTimeSeries) MeanEffect() (float64, error) {
	if !its.IsEstimated() {
		return 0, errors.NewNotEstimatedError("InterruptedTimeSeries", "MeanEffect")
	}
	return meanOf(its.effect), nil
}

// CumulativeEffect sums the pointwise effect over the post-period.
func (its *InterruptedTimeSeries) CumulativeEffect() (float64, error) {
	if !its.IsEstimated() {
		return 0, errors.NewNotEstimatedError("InterruptedTimeSeries", "CumulativeEffect")
	}
	var sum float64
	for _, e := range its.effect {
		sum += e
	}
	return sum, nil
}

// Counterfactual returns the pre-period fit and the post-period projection
// from the trained learner.
func (its *InterruptedTimeSeries) Counterfactual() (*mat.VecDense, *mat.VecDense, error) {
	if !its.IsEstimated() {
		return nil, nil, errors.NewNotEstimatedError("InterruptedTimeSeries", "Counterfactual")
	}
	pre, err := its.learner.Predict(its.x0)
	if err != nil {
		return nil, nil, err
	}
	post, err := its.learner.PredictCounterfactual(its.x1)
	if err != nil {
		return nil, nil, err
	}
	return pre, post, nil
}

// Observed returns copies of the pre-period and post-period outcome series.
func (its *InterruptedTimeSeries) Observed() ([]float64, []float64) {
	pre := make([]float64, its.y0.Len())
	for i := range pre {
		pre[i] = its.y0.AtVec(i)
	}
	post := make([]float64, its.y1.Len())
	for i := range post {
		post[i] = its.y1.AtVec(i)
	}
	return pre, post
}

// PrePeriodLength returns the number of pre-intervention observations, which
// is also the hypothesized structural break index in the combined series.
func (its *InterruptedTimeSeries) PrePeriodLength() int {
	n0, _ := its.x0.Dims()
	return n0
}

// cumulativeMovingAverage returns the running mean of y, one entry per
// observation. It serves as a cheap autoregressive signal that keeps the
// extrapolation anchored to the level of the series.
func cumulativeMovingAverage(y *mat.VecDense) *mat.VecDense {
	n := y.Len()
	out := mat.NewVecDense(n, nil)
	var sum float64
	for i := 0; i < n; i++ {
		sum += y.AtVec(i)
		out.SetVec(i, sum/float64(i+1))
	}
	return out
}

// appendColumn returns a new matrix with col appended on the right.
func appendColumn(X *mat.Dense, col *mat.VecDense) *mat.Dense {
	n, d := X.Dims()
	out := mat.NewDense(n, d+1, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			out.Set(i, j, X.At(i, j))
		}
		out.Set(i, d, col.AtVec(i))
	}
	return out
}

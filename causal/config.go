// Package causal implements treatment-effect estimators built on extreme
// learning machines: interrupted time series, G-computation, double machine
// learning, and the S/T/X/R/doubly-robust metalearner family, together with
// randomization inference and assumption-validation diagnostics.
package causal

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/causalgo/activations"
	"github.com/YuminosukeSato/causalgo/crossval"
	"github.com/YuminosukeSato/causalgo/elm"
	"github.com/YuminosukeSato/causalgo/pkg/errors"
)

// Task names the modelling task inferred from the outcome type.
type Task string

const (
	TaskRegression     Task = "regression"
	TaskClassification Task = "classification"
)

// QuantityOfInterest names the causal estimand an estimator targets.
type QuantityOfInterest string

const (
	// ATE is the average treatment effect.
	ATE QuantityOfInterest = "ATE"
	// ATT is the average treatment effect on the treated.
	ATT QuantityOfInterest = "ATT"
	// ITT is the intent-to-treat effect.
	ITT QuantityOfInterest = "ITT"
	// CATE is the conditional average treatment effect.
	CATE QuantityOfInterest = "CATE"
)

// ModelConfig is the configuration block shared by every estimator and
// metalearner: the ELM stack, the hidden-size search bounds, and the cached
// search result.
type ModelConfig struct {
	// Activation is the hidden-layer transform.
	Activation activations.Activation
	// Regularized selects GCV-ridge learners.
	Regularized bool
	// ValidationMetric is mse, mae or accuracy.
	ValidationMetric string
	// MinNeurons and MaxNeurons bound the hidden-size search.
	MinNeurons int
	MaxNeurons int
	// Folds is the cross-validation and cross-fitting fold count.
	Folds int
	// Iterations caps the size-search budget; 0 means 2×Folds.
	Iterations int
	// ApproximatorNeurons sizes the search's loss-curve model.
	ApproximatorNeurons int
	// Seed drives every random draw made by the estimator.
	Seed uint64

	// numNeurons caches the selected hidden size so repeated estimation
	// during inference resampling skips the search.
	numNeurons int
}

// DefaultModelConfig mirrors the library defaults: regularized ReLU learners,
// MSE validation, a [2, 100] neuron search with 5 folds.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		Activation:          activations.ReLU,
		Regularized:         true,
		ValidationMetric:    crossval.MetricMSE,
		MinNeurons:          2,
		MaxNeurons:          100,
		Folds:               5,
		ApproximatorNeurons: 10,
	}
}

func (c *ModelConfig) validate() error {
	if c.Folds < 2 {
		return errors.NewValidationError("Folds", "must be at least 2", c.Folds)
	}
	if c.MinNeurons < 1 {
		return errors.NewValidationError("MinNeurons", "must be at least 1", c.MinNeurons)
	}
	if c.MaxNeurons < c.MinNeurons {
		return errors.NewValidationError("MaxNeurons", "must be at least MinNeurons", c.MaxNeurons)
	}
	switch c.ValidationMetric {
	case crossval.MetricMSE, crossval.MetricMAE, crossval.MetricAccuracy:
	default:
		return errors.NewValidationError("ValidationMetric", "must be mse, mae or accuracy", c.ValidationMetric)
	}
	return nil
}

// NumNeurons returns the hidden size selected by the last search, 0 before
// any search has run.
func (c *ModelConfig) NumNeurons() int {
	return c.numNeurons
}

// selectNeurons runs the hidden-size search once and caches the result.
// Inference resampling re-estimates effects hundreds of times; re-searching
// on every pass would dominate the cost.
func (c *ModelConfig) selectNeurons(ctx context.Context, X mat.Matrix, y *mat.VecDense, temporal bool) (int, error) {
	if c.numNeurons > 0 {
		return c.numNeurons, nil
	}
	size, err := crossval.BestSize(ctx, X, y, crossval.SearchOptions{
		Metric:              c.ValidationMetric,
		Activation:          c.Activation,
		MinNeurons:          c.MinNeurons,
		MaxNeurons:          c.MaxNeurons,
		Regularized:         c.Regularized,
		Folds:               c.Folds,
		Temporal:            temporal,
		Iterations:          c.Iterations,
		ApproximatorNeurons: c.ApproximatorNeurons,
		Seed:                c.Seed,
	})
	if err != nil {
		return 0, err
	}
	c.numNeurons = size
	return size, nil
}

// StandardData is the covariate/treatment/outcome block shared by the
// non-temporal estimators.
type StandardData struct {
	X *mat.Dense
	T *mat.VecDense
	Y *mat.VecDense

	TType elm.VariableType
	YType elm.VariableType
}

func newStandardData(op string, X mat.Matrix, t, y []float64) (*StandardData, error) {
	n, d := X.Dims()
	if n == 0 || d == 0 {
		return nil, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if len(t) != n {
		return nil, errors.NewDimensionError(op, n, len(t), 0)
	}
	if len(y) != n {
		return nil, errors.NewDimensionError(op, n, len(y), 0)
	}

	var xd mat.Dense
	xd.CloneFrom(X)
	tv := mat.NewVecDense(n, append([]float64(nil), t...))
	yv := mat.NewVecDense(n, append([]float64(nil), y...))

	return &StandardData{
		X:     &xd,
		T:     tv,
		Y:     yv,
		TType: elm.ClassifyVariable(tv),
		YType: elm.ClassifyVariable(yv),
	}, nil
}

// task infers the modelling task from the outcome type.
func (d *StandardData) task() Task {
	if d.YType == elm.Binary {
		return TaskClassification
	}
	return TaskRegression
}

// withTreatment returns a fresh design matrix [X | t] with the treatment
// column replaced by the given vector.
func withTreatment(X *mat.Dense, t *mat.VecDense) *mat.Dense {
	n, d := X.Dims()
	out := mat.NewDense(n, d+1, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			out.Set(i, j, X.At(i, j))
		}
		out.Set(i, d, t.AtVec(i))
	}
	return out
}

// constantVec returns a length-n vector filled with v.
func constantVec(n int, v float64) *mat.VecDense {
	out := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		out.SetVec(i, v)
	}
	return out
}

func meanOf(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

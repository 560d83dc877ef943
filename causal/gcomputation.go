package causal

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/causalgo/core/model"
	"github.com/YuminosukeSato/causalgo/elm"
	"github.com/YuminosukeSato/causalgo/pkg/errors"
)

// GComputation estimates average effects by fitting an outcome model on
// covariates and treatment, then contrasting predictions under forced
// treatment assignments.
type GComputation struct {
	model.BaseCausalEstimator

	Config   ModelConfig
	Quantity QuantityOfInterest

	data     *StandardData
	temporal bool
	effect   float64
	learner  elm.Learner
}

// GComputationOption configures optional estimator behaviour.
type GComputationOption func(*GComputation)

// WithTemporalData tells the estimator that rows are time ordered, so the
// hidden-size search uses rolling-origin folds.
func WithTemporalData() GComputationOption {
	return func(g *GComputation) { g.temporal = true }
}

// WithQuantity overrides the default ATE estimand.
func WithQuantity(q QuantityOfInterest) GComputationOption {
	return func(g *GComputation) { g.Quantity = q }
}

// NewGComputation builds a G-computation estimator. The treatment vector must
// be binary; the outcome may be binary, count or continuous.
func NewGComputation(X mat.Matrix, t, y []float64, cfg ModelConfig, opts ...GComputationOption) (*GComputation, error) {
	const op = "NewGComputation"
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	data, err := newStandardData(op, X, t, y)
	if err != nil {
		return nil, err
	}
	if data.TType != elm.Binary {
		return nil, errors.NewValidationError("t", "treatment must be binary", data.TType.String())
	}

	g := &GComputation{Config: cfg, Quantity: ATE, data: data}
	for _, opt := range opts {
		opt(g)
	}
	switch g.Quantity {
	case ATE, ATT, ITT:
	default:
		return nil, errors.NewValidationError("quantity", "must be ATE, ATT or ITT", string(g.Quantity))
	}
	return g, nil
}

// Task reports the modelling task inferred from the outcome.
func (g *GComputation) Task() Task { return g.data.task() }

// EstimateCausalEffect fits the outcome model and returns the requested
// average effect.
func (g *GComputation) EstimateCausalEffect(ctx context.Context) (float64, error) {
	design := withTreatment(g.data.X, g.data.T)
	size, err := g.Config.selectNeurons(ctx, design, g.data.Y, g.temporal)
	if err != nil {
		return 0, err
	}
	effect, learner, err := g.estimateWith(g.data.T, size)
	if err != nil {
		return 0, err
	}
	g.effect = effect
	g.learner = learner
	g.SetEstimated()
	return effect, nil
}

// estimateWith runs one estimation pass with the given treatment vector.
// Randomization inference calls it with permuted assignments and validation
// diagnostics with fabricated ones.
func (g *GComputation) estimateWith(t *mat.VecDense, size int) (float64, elm.Learner, error) {
	design := withTreatment(g.data.X, t)
	learner, err := elm.NewLearner(design, g.data.Y, size, g.Config.Activation, g.Config.Regularized, g.Config.Seed)
	if err != nil {
		return 0, nil, err
	}
	if err := learner.Fit(); err != nil {
		return 0, nil, err
	}

	n := g.data.Y.Len()
	control, err := learner.Predict(withTreatment(g.data.X, constantVec(n, 0)))
	if err != nil {
		return 0, nil, err
	}

	var reference *mat.VecDense
	switch g.Quantity {
	case ATT:
		// Contrast the observed assignment against no treatment, averaged
		// over the treated units only.
		reference, err = learner.Predict(withTreatment(g.data.X, t))
	default:
		reference, err = learner.Predict(withTreatment(g.data.X, constantVec(n, 1)))
	}
	if err != nil {
		return 0, nil, err
	}

	var sum float64
	var count int
	for i := 0; i < n; i++ {
		if g.Quantity == ATT && t.AtVec(i) != 1 {
			continue
		}
		sum += reference.AtVec(i) - control.AtVec(i)
		count++
	}
	if count == 0 {
		return 0, nil, errors.NewValueError("GComputation", "no treated units")
	}
	return sum / float64(count), learner, nil
}

// Effect returns the estimated average effect.
func (g *GComputation) Effect() (float64, error) {
	if !g.IsEstimated() {
		return 0, errors.NewNotEstimatedError("GComputation", "Effect")
	}
	return g.effect, nil
}

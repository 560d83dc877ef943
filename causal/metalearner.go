package causal

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/causalgo/core/model"
	"github.com/YuminosukeSato/causalgo/elm"
	"github.com/YuminosukeSato/causalgo/pkg/errors"
)

// Metalearner is the common surface of the CATE estimators. They all return
// one effect per observation rather than a single average.
type Metalearner interface {
	EstimateCausalEffect(ctx context.Context) ([]float64, error)
	Effect() ([]float64, error)
}

// metalearnerBase carries the state every metalearner shares. Ensembles of
// bagged learners are used throughout to keep the individual-level effects
// stable.
type metalearnerBase struct {
	model.BaseCausalEstimator

	Config ModelConfig

	name   string
	data   *StandardData
	effect []float64
}

func newMetalearnerBase(name string, X mat.Matrix, t, y []float64, cfg ModelConfig, binaryTreatment bool) (metalearnerBase, error) {
	if err := cfg.validate(); err != nil {
		return metalearnerBase{}, err
	}
	data, err := newStandardData("New"+name, X, t, y)
	if err != nil {
		return metalearnerBase{}, err
	}
	if binaryTreatment && data.TType != elm.Binary {
		return metalearnerBase{}, errors.NewValidationError("t",
			name+" requires a binary treatment", data.TType.String())
	}
	return metalearnerBase{Config: cfg, name: name, data: data}, nil
}

// Task reports the modelling task inferred from the outcome.
func (b *metalearnerBase) Task() Task { return b.data.task() }

// Effect returns the per-observation effect estimates.
func (b *metalearnerBase) Effect() ([]float64, error) {
	if !b.IsEstimated() {
		return nil, errors.NewNotEstimatedError(b.name, "Effect")
	}
	return append([]float64(nil), b.effect...), nil
}

func (b *metalearnerBase) setEffect(effect []float64) []float64 {
	b.effect = effect
	b.SetEstimated()
	return append([]float64(nil), effect...)
}

// fitEnsemble builds and fits a bagged ensemble on (X, y) with the configured
// stack. The salt decorrelates the random state of the nuisance models built
// within one estimator.
func (c *ModelConfig) fitEnsemble(ctx context.Context, X mat.Matrix, y *mat.VecDense, size int, salt uint64) (*elm.Ensemble, error) {
	n, d := X.Dims()
	cfg := elm.DefaultEnsembleConfig(n, d)
	cfg.HiddenSize = size
	cfg.Activation = c.Activation
	cfg.Regularized = c.Regularized
	cfg.Seed = c.Seed + salt
	ens, err := elm.NewEnsemble(X, y, cfg)
	if err != nil {
		return nil, err
	}
	if err := ens.FitContext(ctx); err != nil {
		return nil, err
	}
	return ens, nil
}

// armIndices splits observation indices by binary treatment status.
func armIndices(t *mat.VecDense) (treated, control []int) {
	for i := 0; i < t.Len(); i++ {
		if t.AtVec(i) == 1 {
			treated = append(treated, i)
		} else {
			control = append(control, i)
		}
	}
	return treated, control
}

// subsetRows copies the given rows of X and entries of y.
func subsetRows(X *mat.Dense, y *mat.VecDense, indices []int) (*mat.Dense, *mat.VecDense) {
	_, d := X.Dims()
	outX := mat.NewDense(len(indices), d, nil)
	outY := mat.NewVecDense(len(indices), nil)
	for i, idx := range indices {
		for j := 0; j < d; j++ {
			outX.Set(i, j, X.At(idx, j))
		}
		outY.SetVec(i, y.AtVec(idx))
	}
	return outX, outY
}

// fitArmModels fits outcome ensembles on the treated and control subsets.
func fitArmModels(ctx context.Context, cfg *ModelConfig, data *StandardData, treated, control []int, size int) (mu1, mu0 *elm.Ensemble, err error) {
	return fitArmModelsSalted(ctx, cfg, data, treated, control, size, 0)
}

func fitArmModelsSalted(ctx context.Context, cfg *ModelConfig, data *StandardData, treated, control []int, size int, salt uint64) (mu1, mu0 *elm.Ensemble, err error) {
	treatedX, treatedY := subsetRows(data.X, data.Y, treated)
	controlX, controlY := subsetRows(data.X, data.Y, control)
	mu1, err = cfg.fitEnsemble(ctx, treatedX, treatedY, size, salt+1)
	if err != nil {
		return nil, nil, err
	}
	mu0, err = cfg.fitEnsemble(ctx, controlX, controlY, size, salt+2)
	if err != nil {
		return nil, nil, err
	}
	return mu1, mu0, nil
}

// checkArms ensures both treatment arms are populated.
func checkArms(name string, treated, control []int) error {
	if len(treated) == 0 {
		return errors.NewValueError(name, "no treated observations")
	}
	if len(control) == 0 {
		return errors.NewValueError(name, "no control observations")
	}
	return nil
}

package elm

import (
	"context"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/causalgo/activations"
	"github.com/YuminosukeSato/causalgo/core/model"
	"github.com/YuminosukeSato/causalgo/core/parallel"
	"github.com/YuminosukeSato/causalgo/pkg/errors"
)

// EnsembleConfig controls the bagging scheme of an Ensemble.
type EnsembleConfig struct {
	// NumMachines is the number of bagged learners.
	NumMachines int
	// SampleSize is the number of rows drawn with replacement per member.
	SampleSize int
	// NumFeatures is the number of columns sampled without replacement per
	// member.
	NumFeatures int
	// HiddenSize is the hidden-layer size of every member.
	HiddenSize int
	// Activation is the hidden-layer transform of every member.
	Activation activations.Activation
	// Regularized selects ridge members with GCV-chosen penalties.
	Regularized bool
	// Seed drives all row, column and weight sampling.
	Seed uint64
}

// DefaultEnsembleConfig returns the bagging defaults for n rows and d
// features: 50 machines, full-size bootstrap samples, and three quarters of
// the columns per member.
func DefaultEnsembleConfig(n, d int) EnsembleConfig {
	numFeats := int(math.Round(0.75 * float64(d)))
	if numFeats < 1 {
		numFeats = 1
	}
	return EnsembleConfig{
		NumMachines: 50,
		SampleSize:  n,
		NumFeatures: numFeats,
		HiddenSize:  24,
		Activation:  activations.ReLU,
	}
}

// Ensemble bags extreme learners: each member trains on a bootstrap sample of
// rows and a random subset of columns, and prediction is the mean across
// members. Metalearners use it wherever a conditional-mean model with reduced
// variance is needed.
type Ensemble struct {
	model.BaseEstimator

	X *mat.Dense
	Y *mat.VecDense

	cfg      EnsembleConfig
	members  []Learner
	features [][]int // column subset per member

	counterfactual *mat.VecDense
}

// NewEnsemble constructs the members eagerly: bootstrap rows, feature subsets
// and hidden-layer weights are all drawn at construction from the configured
// seed, so Fit is deterministic for a fixed seed.
func NewEnsemble(X mat.Matrix, y *mat.VecDense, cfg EnsembleConfig) (*Ensemble, error) {
	n, d := X.Dims()
	if n == 0 || d == 0 {
		return nil, errors.NewModelError("Ensemble", "empty data", errors.ErrEmptyData)
	}
	if y.Len() != n {
		return nil, errors.NewDimensionError("Ensemble", n, y.Len(), 0)
	}
	if cfg.NumMachines < 1 {
		return nil, errors.NewValidationError("NumMachines", "must be at least 1", cfg.NumMachines)
	}
	if cfg.SampleSize < 1 || cfg.SampleSize > n {
		return nil, errors.NewValidationError("SampleSize", "must be in [1, rows]", cfg.SampleSize)
	}
	if cfg.NumFeatures < 1 || cfg.NumFeatures > d {
		return nil, errors.NewValidationError("NumFeatures", "must be in [1, features]", cfg.NumFeatures)
	}

	var xDense mat.Dense
	xDense.CloneFrom(X)

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed+1))
	members := make([]Learner, cfg.NumMachines)
	features := make([][]int, cfg.NumMachines)

	for m := 0; m < cfg.NumMachines; m++ {
		rows := make([]int, cfg.SampleSize)
		for i := range rows {
			rows[i] = rng.IntN(n)
		}
		cols := rng.Perm(d)[:cfg.NumFeatures]
		features[m] = cols

		sub := mat.NewDense(cfg.SampleSize, cfg.NumFeatures, nil)
		suby := mat.NewVecDense(cfg.SampleSize, nil)
		for i, r := range rows {
			for j, c := range cols {
				sub.Set(i, j, xDense.At(r, c))
			}
			suby.SetVec(i, y.AtVec(r))
		}

		memberSeed := rng.Uint64()
		var (
			member Learner
			err    error
		)
		if cfg.Regularized {
			member, err = NewRegularizedExtremeLearner(sub, suby, cfg.HiddenSize, cfg.Activation, memberSeed)
		} else {
			member, err = NewExtremeLearner(sub, suby, cfg.HiddenSize, cfg.Activation, memberSeed)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "Ensemble: constructing member %d", m)
		}
		members[m] = member
	}

	yCopy := mat.NewVecDense(y.Len(), nil)
	yCopy.CopyVec(y)

	return &Ensemble{
		X:        &xDense,
		Y:        yCopy,
		cfg:      cfg,
		members:  members,
		features: features,
	}, nil
}

// Fit trains every member sequentially. Use FitContext to parallelize and to
// bound the work with a deadline.
func (e *Ensemble) Fit() error {
	return e.FitContext(context.Background())
}

// FitContext trains members concurrently; the first failed member fit cancels
// the rest and is returned.
func (e *Ensemble) FitContext(ctx context.Context) error {
	err := parallel.ForEach(ctx, len(e.members), func(_ context.Context, i int) error {
		if err := e.members[i].Fit(); err != nil {
			return errors.Wrapf(err, "Ensemble: fitting member %d", i)
		}
		return nil
	})
	if err != nil {
		return err
	}
	e.SetFitted()
	return nil
}

// Predict averages member predictions, each member seeing only its sampled
// feature columns.
func (e *Ensemble) Predict(X mat.Matrix) (*mat.VecDense, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("Ensemble", "Predict")
	}
	n, d := X.Dims()
	_, xd := e.X.Dims()
	if d != xd {
		return nil, errors.NewDimensionError("Ensemble.Predict", xd, d, 1)
	}

	sum := mat.NewVecDense(n, nil)
	for m, member := range e.members {
		cols := e.features[m]
		sub := mat.NewDense(n, len(cols), nil)
		for i := 0; i < n; i++ {
			for j, c := range cols {
				sub.Set(i, j, X.At(i, c))
			}
		}
		pred, err := member.Predict(sub)
		if err != nil {
			return nil, errors.Wrapf(err, "Ensemble: predicting with member %d", m)
		}
		sum.AddVec(sum, pred)
	}
	sum.ScaleVec(1/float64(len(e.members)), sum)
	return sum, nil
}

// PredictCounterfactual predicts under an alternative input matrix and caches
// the result.
func (e *Ensemble) PredictCounterfactual(X mat.Matrix) (*mat.VecDense, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("Ensemble", "PredictCounterfactual")
	}
	pred, err := e.Predict(X)
	if err != nil {
		return nil, err
	}
	e.counterfactual = pred
	return pred, nil
}

// Package elm implements single-hidden-layer extreme learning machines: the
// hidden layer is a fixed random projection drawn once at construction, and
// only the linear output layer is trained, through one least-squares solve.
// The package provides an ordinary pseudo-inverse learner, a ridge variant
// whose penalty is chosen by generalized cross-validation, and a
// bootstrap-bagged ensemble.
package elm

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/causalgo/activations"
	"github.com/YuminosukeSato/causalgo/core/model"
	"github.com/YuminosukeSato/causalgo/core/parallel"
	"github.com/YuminosukeSato/causalgo/pkg/errors"
)

const (
	// clipEpsilon keeps binary predictions strictly inside (0, 1) so
	// downstream likelihood terms stay finite.
	clipEpsilon = 1e-7

	// conditionThreshold is the condition number above which a fit raises
	// an IllConditionedWarning.
	conditionThreshold = 1e12

	// singularTolerance is the relative cutoff below which singular values
	// are treated as zero in the pseudo-inverse.
	singularTolerance = 1e-12
)

// Learner is the contract estimators program against: fit once, then predict
// observed and counterfactual inputs.
type Learner interface {
	Fit() error
	Predict(X mat.Matrix) (*mat.VecDense, error)
	PredictCounterfactual(X mat.Matrix) (*mat.VecDense, error)
}

// ExtremeLearner is a single-hidden-layer random-feature model. The hidden
// weights and biases are sampled at construction and never updated; Fit
// computes only the output weights by least squares through an SVD
// pseudo-inverse.
type ExtremeLearner struct {
	model.BaseEstimator

	X          *mat.Dense
	Y          *mat.VecDense
	HiddenSize int

	activation activations.Activation
	yType      VariableType

	weights *mat.Dense    // nFeatures×HiddenSize, fixed
	biases  *mat.VecDense // HiddenSize, fixed
	beta    *mat.VecDense // HiddenSize, learned by Fit

	counterfactual *mat.VecDense // cached by PredictCounterfactual
}

// NewExtremeLearner constructs a learner owning X and y. The hidden-layer
// parameters are drawn from a seeded PCG source, so the same seed and data
// produce identical output weights after Fit.
func NewExtremeLearner(X mat.Matrix, y *mat.VecDense, hiddenSize int, activation activations.Activation, seed uint64) (*ExtremeLearner, error) {
	n, d := X.Dims()
	if n == 0 || d == 0 {
		return nil, errors.NewModelError("ExtremeLearner", "empty data", errors.ErrEmptyData)
	}
	if y.Len() != n {
		return nil, errors.NewDimensionError("ExtremeLearner", n, y.Len(), 0)
	}
	if hiddenSize < 1 {
		return nil, errors.NewValidationError("hiddenSize", "must be at least 1", hiddenSize)
	}

	rng := rand.New(rand.NewPCG(seed, seed))
	weights := mat.NewDense(d, hiddenSize, nil)
	for i := 0; i < d; i++ {
		for j := 0; j < hiddenSize; j++ {
			weights.Set(i, j, rng.NormFloat64())
		}
	}
	biases := mat.NewVecDense(hiddenSize, nil)
	for j := 0; j < hiddenSize; j++ {
		biases.SetVec(j, rng.NormFloat64())
	}

	var xCopy mat.Dense
	xCopy.CloneFrom(X)
	yCopy := mat.NewVecDense(y.Len(), nil)
	yCopy.CopyVec(y)

	return &ExtremeLearner{
		X:          &xCopy,
		Y:          yCopy,
		HiddenSize: hiddenSize,
		activation: activation,
		yType:      ClassifyVariable(y),
		weights:    weights,
		biases:     biases,
	}, nil
}

// hidden computes the activation matrix H = φ(XW + b) for the given input.
func (m *ExtremeLearner) hidden(X mat.Matrix) (*mat.Dense, error) {
	n, d := X.Dims()
	wd, _ := m.weights.Dims()
	if d != wd {
		return nil, errors.NewDimensionError("ExtremeLearner.hidden", wd, d, 1)
	}

	var h mat.Dense
	h.Mul(X, m.weights)

	const parallelThreshold = 1000
	parallel.ParallelizeWithThreshold(n, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			for j := 0; j < m.HiddenSize; j++ {
				h.Set(i, j, m.activation.Fn(h.At(i, j)+m.biases.AtVec(j)))
			}
		}
	})
	return &h, nil
}

// Fit computes the output weights β from H = φ(XW + b) by the SVD
// pseudo-inverse of H.
func (m *ExtremeLearner) Fit() error {
	h, err := m.hidden(m.X)
	if err != nil {
		return errors.Wrap(err, "ExtremeLearner.Fit")
	}

	svd, err := factorize("ExtremeLearner.Fit", h)
	if err != nil {
		return err
	}

	beta := solvePseudoInverse(svd, m.Y)
	if err := errors.CheckNumericalStability("ExtremeLearner.Fit", beta.RawVector().Data, 0); err != nil {
		return err
	}

	m.beta = beta
	m.SetFitted()
	return nil
}

// Predict projects new inputs through the fixed hidden transform and learned
// output weights. Binary targets are clipped into (clipEpsilon, 1-clipEpsilon).
func (m *ExtremeLearner) Predict(X mat.Matrix) (*mat.VecDense, error) {
	if !m.IsFitted() {
		return nil, errors.NewNotFittedError("ExtremeLearner", "Predict")
	}

	h, err := m.hidden(X)
	if err != nil {
		return nil, errors.Wrap(err, "ExtremeLearner.Predict")
	}

	n, _ := h.Dims()
	pred := mat.NewVecDense(n, nil)
	pred.MulVec(h, m.beta)

	if m.yType == Binary {
		clipVec(pred)
	}
	return pred, nil
}

// PredictCounterfactual predicts outcomes under an alternative input matrix
// and caches the result for later placebo testing.
func (m *ExtremeLearner) PredictCounterfactual(X mat.Matrix) (*mat.VecDense, error) {
	if !m.IsFitted() {
		return nil, errors.NewNotFittedError("ExtremeLearner", "PredictCounterfactual")
	}
	pred, err := m.Predict(X)
	if err != nil {
		return nil, err
	}
	m.counterfactual = pred
	return pred, nil
}

// PlaceboTest returns the model's predictions on its own training inputs
// alongside the cached counterfactual predictions. Diverging distributions
// suggest the counterfactual extrapolates beyond the support of the
// training data.
func (m *ExtremeLearner) PlaceboTest() (*mat.VecDense, *mat.VecDense, error) {
	if !m.IsFitted() {
		return nil, nil, errors.NewNotFittedError("ExtremeLearner", "PlaceboTest")
	}
	if m.counterfactual == nil {
		return nil, nil, errors.NewValueError("ExtremeLearner.PlaceboTest", "no counterfactual predictions cached. Call PredictCounterfactual() first")
	}
	trainPred, err := m.Predict(m.X)
	if err != nil {
		return nil, nil, err
	}
	return trainPred, m.counterfactual, nil
}

// Beta returns a copy of the learned output weights.
func (m *ExtremeLearner) Beta() (*mat.VecDense, error) {
	if !m.IsFitted() {
		return nil, errors.NewNotFittedError("ExtremeLearner", "Beta")
	}
	out := mat.NewVecDense(m.beta.Len(), nil)
	out.CopyVec(m.beta)
	return out, nil
}

// YType returns the classified type of the training targets.
func (m *ExtremeLearner) YType() VariableType {
	return m.yType
}

func clipVec(v *mat.VecDense) {
	for i := 0; i < v.Len(); i++ {
		v.SetVec(i, errors.ClipValue(v.AtVec(i), clipEpsilon, 1-clipEpsilon))
	}
}

// factorize runs a thin SVD on the activation matrix and raises an
// IllConditionedWarning when the condition number is extreme.
func factorize(op string, h *mat.Dense) (*mat.SVD, error) {
	var svd mat.SVD
	if ok := svd.Factorize(h, mat.SVDThin); !ok {
		return nil, errors.NewModelError(op, "SVD factorization failed", errors.ErrSingularMatrix)
	}

	values := svd.Values(nil)
	smallest := math.Inf(1)
	largest := 0.0
	for _, s := range values {
		if s > largest {
			largest = s
		}
		if s > 0 && s < smallest {
			smallest = s
		}
	}
	if smallest > 0 && largest/smallest > conditionThreshold {
		errors.Warn(errors.NewIllConditionedWarning(op, largest/smallest, conditionThreshold))
	}
	return &svd, nil
}

// solvePseudoInverse computes β = V Σ⁺ Uᵀ y, zeroing singular values below
// the relative tolerance.
func solvePseudoInverse(svd *mat.SVD, y *mat.VecDense) *mat.VecDense {
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	values := svd.Values(nil)

	largest := 0.0
	for _, s := range values {
		if s > largest {
			largest = s
		}
	}
	cutoff := largest * singularTolerance

	k := len(values)
	uty := mat.NewVecDense(k, nil)
	uty.MulVec(u.T(), y)
	for i := 0; i < k; i++ {
		if values[i] > cutoff {
			uty.SetVec(i, uty.AtVec(i)/values[i])
		} else {
			uty.SetVec(i, 0)
		}
	}

	vr, _ := v.Dims()
	beta := mat.NewVecDense(vr, nil)
	beta.MulVec(&v, uty)
	return beta
}

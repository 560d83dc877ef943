package elm

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/causalgo/activations"
	"github.com/YuminosukeSato/causalgo/pkg/errors"
)

// gcvCandidates spans the ridge penalties scored by generalized
// cross-validation, log-spaced from 1e-6 to 1e4.
var gcvCandidates = func() []float64 {
	out := make([]float64, 0, 11)
	for p := -6; p <= 4; p++ {
		out = append(out, math.Pow(10, float64(p)))
	}
	return out
}()

// RegularizedExtremeLearner is an ExtremeLearner whose output weights are
// computed with an L2 penalty. The penalty strength is chosen by minimizing
// the closed-form generalized cross-validation score over candidate
// penalties, reusing a single SVD of the hidden activation matrix instead of
// re-fitting per candidate.
type RegularizedExtremeLearner struct {
	*ExtremeLearner

	// Lambda is the ridge penalty selected by Fit.
	Lambda float64
}

// NewRegularizedExtremeLearner constructs a ridge-regularized learner owning
// X and y.
func NewRegularizedExtremeLearner(X mat.Matrix, y *mat.VecDense, hiddenSize int, activation activations.Activation, seed uint64) (*RegularizedExtremeLearner, error) {
	base, err := NewExtremeLearner(X, y, hiddenSize, activation, seed)
	if err != nil {
		return nil, err
	}
	return &RegularizedExtremeLearner{ExtremeLearner: base}, nil
}

// Fit computes ridge-regularized output weights. For each candidate penalty
// λ the GCV score n·RSS(λ)/(n−df(λ))² is evaluated from the SVD of H, where
// df(λ) = Σ σᵢ²/(σᵢ²+λ) is the effective degrees of freedom; the minimizing
// λ is kept and β = V·diag(σ/(σ²+λ))·Uᵀy.
func (m *RegularizedExtremeLearner) Fit() error {
	h, err := m.hidden(m.X)
	if err != nil {
		return errors.Wrap(err, "RegularizedExtremeLearner.Fit")
	}

	svd, err := factorize("RegularizedExtremeLearner.Fit", h)
	if err != nil {
		return err
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	values := svd.Values(nil)
	k := len(values)

	uty := mat.NewVecDense(k, nil)
	uty.MulVec(u.T(), m.Y)

	n := float64(m.Y.Len())
	yNormSq := mat.Dot(m.Y, m.Y)
	var colNormSq float64
	for i := 0; i < k; i++ {
		colNormSq += uty.AtVec(i) * uty.AtVec(i)
	}
	// residual component of y orthogonal to the column space of H
	orthogonal := math.Max(yNormSq-colNormSq, 0)

	bestLambda := gcvCandidates[0]
	bestScore := math.Inf(1)
	for _, lambda := range gcvCandidates {
		var rss, df float64
		rss = orthogonal
		for i := 0; i < k; i++ {
			s2 := values[i] * values[i]
			shrink := s2 / (s2 + lambda)
			resid := uty.AtVec(i) * (1 - shrink)
			rss += resid * resid
			df += shrink
		}
		denom := n - df
		if denom <= 0 {
			continue
		}
		score := n * rss / (denom * denom)
		if score < bestScore {
			bestScore = score
			bestLambda = lambda
		}
	}

	vr, _ := v.Dims()
	scaled := mat.NewVecDense(k, nil)
	for i := 0; i < k; i++ {
		s2 := values[i]*values[i] + bestLambda
		scaled.SetVec(i, uty.AtVec(i)*values[i]/s2)
	}
	beta := mat.NewVecDense(vr, nil)
	beta.MulVec(&v, scaled)

	if err := errors.CheckNumericalStability("RegularizedExtremeLearner.Fit", beta.RawVector().Data, 0); err != nil {
		return err
	}

	m.Lambda = bestLambda
	m.beta = beta
	m.SetFitted()
	return nil
}

// NewLearner constructs either learner variant behind the Learner interface.
// Estimators use it to honor their regularization flag without branching at
// every fit site.
func NewLearner(X mat.Matrix, y *mat.VecDense, hiddenSize int, activation activations.Activation, regularized bool, seed uint64) (Learner, error) {
	if regularized {
		return NewRegularizedExtremeLearner(X, y, hiddenSize, activation, seed)
	}
	return NewExtremeLearner(X, y, hiddenSize, activation, seed)
}

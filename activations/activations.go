// Package activations provides the closed-form scalar nonlinearities used as
// hidden-layer transforms by the extreme learning machines. Each activation
// is a stateless pure function paired with a stable name so estimators can
// report which transform produced an effect estimate.
package activations

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Activation pairs a scalar transform with its name.
type Activation struct {
	Name string
	Fn   func(x float64) float64
}

// Apply applies the activation elementwise to m in place.
func (a Activation) Apply(m *mat.Dense) {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			m.Set(i, j, a.Fn(m.At(i, j)))
		}
	}
}

// ApplyVec applies the activation elementwise to v in place.
func (a Activation) ApplyVec(v *mat.VecDense) {
	for i := 0; i < v.Len(); i++ {
		v.SetVec(i, a.Fn(v.AtVec(i)))
	}
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	// rearranged for negative x to avoid overflow in exp
	e := math.Exp(x)
	return e / (1 + e)
}

var (
	// BinaryStep maps negative inputs to 0 and the rest to 1.
	BinaryStep = Activation{Name: "binary_step", Fn: func(x float64) float64 {
		if x < 0 {
			return 0
		}
		return 1
	}}

	// Sigmoid is the logistic function 1/(1+exp(-x)).
	Sigmoid = Activation{Name: "sigmoid", Fn: sigmoid}

	// Tanh is the hyperbolic tangent.
	Tanh = Activation{Name: "tanh", Fn: math.Tanh}

	// ReLU is max(0, x).
	ReLU = Activation{Name: "relu", Fn: func(x float64) float64 {
		return math.Max(0, x)
	}}

	// LeakyReLU is x for positive inputs and 0.01x otherwise.
	LeakyReLU = Activation{Name: "leaky_relu", Fn: func(x float64) float64 {
		if x < 0 {
			return 0.01 * x
		}
		return x
	}}

	// Swish is x·sigmoid(x).
	Swish = Activation{Name: "swish", Fn: func(x float64) float64 {
		return x * sigmoid(x)
	}}

	// Softplus is log(1+exp(x)), computed in overflow-safe form.
	Softplus = Activation{Name: "softplus", Fn: func(x float64) float64 {
		return math.Max(x, 0) + math.Log1p(math.Exp(-math.Abs(x)))
	}}

	// GELU is the Gaussian error linear unit, tanh approximation.
	GELU = Activation{Name: "gelu", Fn: func(x float64) float64 {
		return 0.5 * x * (1 + math.Tanh(math.Sqrt(2/math.Pi)*(x+0.044715*x*x*x)))
	}}

	// Gaussian is exp(-x²).
	Gaussian = Activation{Name: "gaussian", Fn: func(x float64) float64 {
		return math.Exp(-x * x)
	}}

	// HardTanh clamps x into [-1, 1].
	HardTanh = Activation{Name: "hard_tanh", Fn: func(x float64) float64 {
		if x < -1 {
			return -1
		}
		if x > 1 {
			return 1
		}
		return x
	}}

	// ELiSH is the exponential linear squashing unit: x·sigmoid(x) for
	// non-negative x, (exp(x)-1)·sigmoid(x) otherwise.
	ELiSH = Activation{Name: "elish", Fn: func(x float64) float64 {
		if x >= 0 {
			return x * sigmoid(x)
		}
		return (math.Exp(x) - 1) * sigmoid(x)
	}}

	// Fourier is the sine basis sin(x).
	Fourier = Activation{Name: "fourier", Fn: math.Sin}
)

// Softmax normalizes a vector of scores into a probability distribution.
// The maximum is subtracted before exponentiation for numerical stability.
func Softmax(x []float64) []float64 {
	if len(x) == 0 {
		return nil
	}
	maxVal := x[0]
	for _, v := range x[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	out := make([]float64, len(x))
	var sum float64
	for i, v := range x {
		out[i] = math.Exp(v - maxVal)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

package plotting

import (
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/causalgo/activations"
	"github.com/YuminosukeSato/causalgo/causal"
	"github.com/YuminosukeSato/causalgo/crossval"
)

func fittedITS(t *testing.T) *causal.InterruptedTimeSeries {
	t.Helper()
	rng := rand.New(rand.NewPCG(1, 2))
	gen := func(n int, shift float64) (*mat.Dense, []float64) {
		X := mat.NewDense(n, 2, nil)
		y := make([]float64, n)
		for i := 0; i < n; i++ {
			x1 := rng.Float64()
			x2 := rng.Float64()
			X.Set(i, 0, x1)
			X.Set(i, 1, x2)
			y[i] = 2*x1 + x2 + shift
		}
		return X, y
	}
	x0, y0 := gen(40, 0)
	x1, y1 := gen(8, 3)

	cfg := causal.ModelConfig{
		Activation:          activations.ReLU,
		Regularized:         true,
		ValidationMetric:    crossval.MetricMSE,
		MinNeurons:          2,
		MaxNeurons:          6,
		Folds:               3,
		Iterations:          2,
		ApproximatorNeurons: 5,
		Seed:                9,
	}
	its, err := causal.NewInterruptedTimeSeries(x0, y0, x1, y1, cfg)
	require.NoError(t, err)
	_, err = its.EstimateCausalEffect(context.Background())
	require.NoError(t, err)
	return its
}

func TestObservedVsCounterfactual(t *testing.T) {
	its := fittedITS(t)
	path := filepath.Join(t.TempDir(), "its.png")
	require.NoError(t, ObservedVsCounterfactual(its, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestNullDistributionHistogram(t *testing.T) {
	null := make([]float64, 50)
	rng := rand.New(rand.NewPCG(3, 4))
	for i := range null {
		null[i] = rng.NormFloat64()
	}
	path := filepath.Join(t.TempDir(), "null.png")
	require.NoError(t, NullDistributionHistogram(null, 2.5, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestNullDistributionHistogramEmpty(t *testing.T) {
	assert.Error(t, NullDistributionHistogram(nil, 0, "unused.png"))
}

package causal

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// partiallyLinearData builds a continuous treatment correlated with the
// covariates and an outcome with a known constant treatment coefficient.
func partiallyLinearData(n int, theta float64, seed uint64) (*mat.Dense, []float64, []float64) {
	rng := rand.New(rand.NewPCG(seed, seed+5))
	X := mat.NewDense(n, 3, nil)
	tr := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x1 := rng.Float64() * 2
		x2 := rng.Float64()
		x3 := rng.Float64()
		X.Set(i, 0, x1)
		X.Set(i, 1, x2)
		X.Set(i, 2, x3)
		tr[i] = 0.5*x1 - 0.3*x2 + 0.5*rng.NormFloat64()
		y[i] = theta*tr[i] + x1 + 0.8*x2 - 0.4*x3 + 0.1*rng.NormFloat64()
	}
	return X, tr, y
}

func TestDMLRecoversLinearEffect(t *testing.T) {
	X, tr, y := partiallyLinearData(300, 2.0, 41)
	d, err := NewDoubleMachineLearning(X, tr, y, testConfig())
	require.NoError(t, err)

	effect, err := d.EstimateCausalEffect(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 2.0, effect, 1.0)

	stored, err := d.Effect()
	require.NoError(t, err)
	assert.Equal(t, effect, stored)
}

func TestDMLWithConfounders(t *testing.T) {
	X, tr, y := partiallyLinearData(150, 1.0, 43)
	n, _ := X.Dims()
	W := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		W.Set(i, 0, float64(i%5))
		W.Set(i, 1, float64(i%7))
	}
	d, err := NewDoubleMachineLearning(X, tr, y, testConfig(), WithConfounders(W))
	require.NoError(t, err)
	_, err = d.EstimateCausalEffect(context.Background())
	require.NoError(t, err)

	design := d.nuisanceDesign()
	_, cols := design.Dims()
	assert.Equal(t, 5, cols, "confounders appended to the nuisance design")
}

func TestDMLConfounderDimensionCheck(t *testing.T) {
	X, tr, y := partiallyLinearData(60, 1.0, 47)
	W := mat.NewDense(10, 1, nil)
	_, err := NewDoubleMachineLearning(X, tr, y, testConfig(), WithConfounders(W))
	assert.Error(t, err)
}

func TestDMLEffectBeforeEstimation(t *testing.T) {
	X, tr, y := partiallyLinearData(60, 1.0, 53)
	d, err := NewDoubleMachineLearning(X, tr, y, testConfig())
	require.NoError(t, err)
	_, err = d.Effect()
	assert.Error(t, err)
	_, err = d.GenerateNullDistribution(context.Background(), 5)
	assert.Error(t, err)
}

func TestResidualSlope(t *testing.T) {
	slope, err := residualSlope([]float64{1, -1, 2, -2}, []float64{2, -2, 4, -4})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, slope, 1e-12)

	_, err = residualSlope([]float64{0, 0, 0}, []float64{1, 2, 3})
	assert.Error(t, err, "vanishing treatment residual variance")
}

func TestDMLRespectsCancellation(t *testing.T) {
	X, tr, y := partiallyLinearData(100, 1.0, 59)
	d, err := NewDoubleMachineLearning(X, tr, y, testConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = d.EstimateCausalEffect(ctx)
	assert.Error(t, err)
}

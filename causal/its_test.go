package causal

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// itsData builds a pre/post series where the post-period outcome is shifted
// by a constant lift above the covariate-driven trend.
func itsData(n0, n1 int, lift float64, seed uint64) (*mat.Dense, []float64, *mat.Dense, []float64) {
	rng := rand.New(rand.NewPCG(seed, seed+3))
	gen := func(n int, shift float64) (*mat.Dense, []float64) {
		X := mat.NewDense(n, 2, nil)
		y := make([]float64, n)
		for i := 0; i < n; i++ {
			x1 := rng.Float64() * 2
			x2 := rng.Float64()
			X.Set(i, 0, x1)
			X.Set(i, 1, x2)
			y[i] = 2*x1 + x2 + shift + 0.05*rng.NormFloat64()
		}
		return X, y
	}
	x0, y0 := gen(n0, 0)
	x1, y1 := gen(n1, lift)
	return x0, y0, x1, y1
}

func TestITSEstimateCausalEffect(t *testing.T) {
	x0, y0, x1, y1 := itsData(100, 10, 5.0, 7)
	its, err := NewInterruptedTimeSeries(x0, y0, x1, y1, testConfig())
	require.NoError(t, err)

	effect, err := its.EstimateCausalEffect(context.Background())
	require.NoError(t, err)
	assert.Len(t, effect, 10)
	assert.Equal(t, 100, its.PrePeriodLength())

	mean, err := its.MeanEffect()
	require.NoError(t, err)
	assert.Greater(t, mean, 0.0, "positive lift should yield a positive effect")

	cumulative, err := its.CumulativeEffect()
	require.NoError(t, err)
	assert.InDelta(t, mean*10, cumulative, 1e-9)
}

func TestITSNotEstimatedGuards(t *testing.T) {
	x0, y0, x1, y1 := itsData(30, 5, 1.0, 11)
	its, err := NewInterruptedTimeSeries(x0, y0, x1, y1, testConfig())
	require.NoError(t, err)

	_, err = its.Effect()
	assert.Error(t, err)
	_, err = its.MeanEffect()
	assert.Error(t, err)
	_, err = its.CumulativeEffect()
	assert.Error(t, err)
	_, _, err = its.Counterfactual()
	assert.Error(t, err)
	_, err = its.GenerateNullDistribution(context.Background(), 5, true)
	assert.Error(t, err)
}

func TestITSConstructorValidation(t *testing.T) {
	x0, y0, x1, y1 := itsData(20, 5, 1.0, 13)

	_, err := NewInterruptedTimeSeries(x0, y0[:10], x1, y1, testConfig())
	assert.Error(t, err, "pre outcome length mismatch")

	narrow := mat.NewDense(5, 1, nil)
	_, err = NewInterruptedTimeSeries(x0, y0, narrow, y1, testConfig())
	assert.Error(t, err, "covariate width mismatch")

	bad := testConfig()
	bad.Folds = 0
	_, err = NewInterruptedTimeSeries(x0, y0, x1, y1, bad)
	assert.Error(t, err)
}

func TestITSAutoregressionToggle(t *testing.T) {
	x0, y0, x1, y1 := itsData(30, 5, 1.0, 17)

	withAR, err := NewInterruptedTimeSeries(x0, y0, x1, y1, testConfig())
	require.NoError(t, err)
	_, arCols := withAR.x0.Dims()

	withoutAR, err := NewInterruptedTimeSeries(x0, y0, x1, y1, testConfig(), WithoutAutoregression())
	require.NoError(t, err)
	_, plainCols := withoutAR.x0.Dims()

	assert.Equal(t, plainCols+1, arCols)
}

func TestITSCounterfactual(t *testing.T) {
	x0, y0, x1, y1 := itsData(60, 8, 3.0, 19)
	its, err := NewInterruptedTimeSeries(x0, y0, x1, y1, testConfig())
	require.NoError(t, err)
	_, err = its.EstimateCausalEffect(context.Background())
	require.NoError(t, err)

	pre, post, err := its.Counterfactual()
	require.NoError(t, err)
	assert.Equal(t, 60, pre.Len())
	assert.Equal(t, 8, post.Len())
	for i := 0; i < post.Len(); i++ {
		assert.False(t, math.IsNaN(post.AtVec(i)))
	}
}

func TestCumulativeMovingAverage(t *testing.T) {
	y := mat.NewVecDense(4, []float64{2, 4, 6, 8})
	cma := cumulativeMovingAverage(y)
	assert.Equal(t, 2.0, cma.AtVec(0))
	assert.Equal(t, 3.0, cma.AtVec(1))
	assert.Equal(t, 4.0, cma.AtVec(2))
	assert.Equal(t, 5.0, cma.AtVec(3))
}

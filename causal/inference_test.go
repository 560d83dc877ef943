package causal

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestQuantifyNull(t *testing.T) {
	res, err := quantifyNull(5.0, []float64{0.1, -0.2, 0.3, 6.0})
	require.NoError(t, err)
	assert.Equal(t, 5.0, res.Effect)
	assert.InDelta(t, 2.0/5.0, res.PValue, 1e-12, "one extreme draw plus the correction")
	assert.Greater(t, res.StdErr, 0.0)

	_, err = quantifyNull(1.0, nil)
	assert.Error(t, err)
}

func TestQuantifyNullBounds(t *testing.T) {
	// Nothing extreme: p hits the add-one floor, never zero.
	res, err := quantifyNull(10.0, []float64{0.1, 0.2, -0.1, 0.05})
	require.NoError(t, err)
	assert.Greater(t, res.PValue, 0.0)
	assert.LessOrEqual(t, res.PValue, 1.0)

	// Everything extreme: p stays at most one.
	res, err = quantifyNull(0.0, []float64{1, -2, 3})
	require.NoError(t, err)
	assert.LessOrEqual(t, res.PValue, 1.0)
}

func TestPermutedVecPreservesValues(t *testing.T) {
	v := mat.NewVecDense(6, []float64{1, 2, 3, 4, 5, 6})
	rng := inferenceRNG(5)
	p := permutedVec(v, rng)

	got := make([]float64, 6)
	for i := 0; i < 6; i++ {
		got[i] = p.AtVec(i)
	}
	sort.Float64s(got)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, got)
}

func TestGComputationInference(t *testing.T) {
	X, tr, y := effectData(100, 2.0, 101)
	g, err := NewGComputation(X, tr, y, testConfig())
	require.NoError(t, err)
	_, err = g.EstimateCausalEffect(context.Background())
	require.NoError(t, err)

	res, err := g.Inference(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, res.NullDistribution, 10)
	assert.Greater(t, res.PValue, 0.0)
	assert.LessOrEqual(t, res.PValue, 1.0)
}

func TestDMLInferenceUsesStoredResiduals(t *testing.T) {
	X, tr, y := partiallyLinearData(150, 2.0, 103)
	d, err := NewDoubleMachineLearning(X, tr, y, testConfig())
	require.NoError(t, err)
	_, err = d.EstimateCausalEffect(context.Background())
	require.NoError(t, err)

	null, err := d.GenerateNullDistribution(context.Background(), 20)
	require.NoError(t, err)
	assert.Len(t, null, 20)

	res, err := d.Inference(context.Background(), 20)
	require.NoError(t, err)
	assert.Greater(t, res.PValue, 0.0)
	assert.LessOrEqual(t, res.PValue, 1.0)
}

func TestITSInference(t *testing.T) {
	x0, y0, x1, y1 := itsData(60, 8, 4.0, 107)
	its, err := NewInterruptedTimeSeries(x0, y0, x1, y1, testConfig())
	require.NoError(t, err)
	_, err = its.EstimateCausalEffect(context.Background())
	require.NoError(t, err)

	res, err := its.Inference(context.Background(), 10, true)
	require.NoError(t, err)
	assert.Greater(t, res.PValue, 0.0)
	assert.LessOrEqual(t, res.PValue, 1.0)
	assert.Len(t, res.NullDistribution, 10)
}

func TestSLearnerInference(t *testing.T) {
	X, tr, y := effectData(80, 2.0, 109)
	s, err := NewSLearner(X, tr, y, testConfig())
	require.NoError(t, err)
	_, err = s.EstimateCausalEffect(context.Background())
	require.NoError(t, err)

	res, err := s.Inference(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, res.NullDistribution, 5)
}

func TestInferenceRequiresEstimation(t *testing.T) {
	X, tr, y := effectData(50, 1.0, 113)
	g, err := NewGComputation(X, tr, y, testConfig())
	require.NoError(t, err)
	_, err = g.GenerateNullDistribution(context.Background(), 5)
	assert.Error(t, err)
}

func TestInferenceRespectsCancellation(t *testing.T) {
	X, tr, y := effectData(80, 1.0, 127)
	g, err := NewGComputation(X, tr, y, testConfig())
	require.NoError(t, err)
	_, err = g.EstimateCausalEffect(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.GenerateNullDistribution(ctx, 50)
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	X, tr, y := effectData(80, 2.0, 131)
	g, err := NewGComputation(X, tr, y, testConfig())
	require.NoError(t, err)
	_, err = g.EstimateCausalEffect(context.Background())
	require.NoError(t, err)

	summary, err := g.Summarize(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "GComputation", summary["estimator"])
	assert.Equal(t, "ATE", summary["quantity_of_interest"])
	assert.Contains(t, summary, "effect")
	assert.NotContains(t, summary, "p_value")

	summary, err = g.Summarize(context.Background(), 5)
	require.NoError(t, err)
	assert.Contains(t, summary, "p_value")
	assert.Contains(t, summary, "standard_error")
}

func TestSummarizeBeforeEstimation(t *testing.T) {
	X, tr, y := effectData(50, 1.0, 137)
	g, err := NewGComputation(X, tr, y, testConfig())
	require.NoError(t, err)
	_, err = g.Summarize(context.Background(), 0)
	assert.Error(t, err)
}

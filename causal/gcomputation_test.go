package causal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestGComputationEstimatesATE(t *testing.T) {
	X, tr, y := effectData(200, 2.0, 23)
	g, err := NewGComputation(X, tr, y, testConfig())
	require.NoError(t, err)
	assert.Equal(t, TaskRegression, g.Task())

	effect, err := g.EstimateCausalEffect(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 2.0, effect, 1.0, "additive effect should be recovered")

	stored, err := g.Effect()
	require.NoError(t, err)
	assert.Equal(t, effect, stored)
	assert.Greater(t, g.Config.NumNeurons(), 0, "hidden size search should have run")
}

func TestGComputationATT(t *testing.T) {
	X, tr, y := effectData(150, 1.5, 29)
	g, err := NewGComputation(X, tr, y, testConfig(), WithQuantity(ATT))
	require.NoError(t, err)

	effect, err := g.EstimateCausalEffect(context.Background())
	require.NoError(t, err)
	assert.Greater(t, effect, 0.0)
}

func TestGComputationValidation(t *testing.T) {
	X, tr, y := effectData(50, 1.0, 31)

	continuous := append([]float64(nil), tr...)
	continuous[0] = 0.5
	_, err := NewGComputation(X, continuous, y, testConfig())
	assert.Error(t, err, "non-binary treatment rejected")

	_, err = NewGComputation(X, tr, y, testConfig(), WithQuantity(CATE))
	assert.Error(t, err, "CATE is not a G-computation estimand")

	g, err := NewGComputation(X, tr, y, testConfig())
	require.NoError(t, err)
	_, err = g.Effect()
	assert.Error(t, err, "effect unavailable before estimation")
}

func TestGComputationNoTreatedUnits(t *testing.T) {
	X := mat.NewDense(20, 2, nil)
	tr := make([]float64, 20)
	y := make([]float64, 20)
	for i := 0; i < 20; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, float64(i%3))
		y[i] = float64(i)
	}
	g, err := NewGComputation(X, tr, y, testConfig(), WithQuantity(ATT))
	require.NoError(t, err)
	_, err = g.EstimateCausalEffect(context.Background())
	assert.Error(t, err, "ATT undefined without treated units")
}

func TestGComputationTemporal(t *testing.T) {
	X, tr, y := effectData(90, 1.0, 37)
	g, err := NewGComputation(X, tr, y, testConfig(), WithTemporalData())
	require.NoError(t, err)
	_, err = g.EstimateCausalEffect(context.Background())
	require.NoError(t, err)
}

package elm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/causalgo/activations"
)

func TestRegularizedFitSelectsPenalty(t *testing.T) {
	x, y := linearData(150, 3, 0.5, 21)
	m, err := NewRegularizedExtremeLearner(x, y, 32, activations.Sigmoid, 9)
	require.NoError(t, err)
	require.NoError(t, m.Fit())

	assert.Greater(t, m.Lambda, 0.0)
	pred, err := m.Predict(x)
	require.NoError(t, err)
	assert.Equal(t, y.Len(), pred.Len())
}

func TestRegularizedShrinksWeights(t *testing.T) {
	// with many neurons relative to rows the ridge solution should carry a
	// smaller weight norm than the pseudo-inverse solution
	x, y := linearData(40, 2, 1.0, 31)

	plain, err := NewExtremeLearner(x, y, 36, activations.Sigmoid, 77)
	require.NoError(t, err)
	require.NoError(t, plain.Fit())
	ridge, err := NewRegularizedExtremeLearner(x, y, 36, activations.Sigmoid, 77)
	require.NoError(t, err)
	require.NoError(t, ridge.Fit())

	bPlain, err := plain.Beta()
	require.NoError(t, err)
	bRidge, err := ridge.Beta()
	require.NoError(t, err)
	assert.LessOrEqual(t, mat.Norm(bRidge, 2), mat.Norm(bPlain, 2)+1e-9)
}

func TestNewLearnerFactory(t *testing.T) {
	x, y := linearData(30, 2, 0.1, 41)

	m, err := NewLearner(x, y, 8, activations.ReLU, false, 1)
	require.NoError(t, err)
	_, ok := m.(*ExtremeLearner)
	assert.True(t, ok)

	m, err = NewLearner(x, y, 8, activations.ReLU, true, 1)
	require.NoError(t, err)
	_, ok = m.(*RegularizedExtremeLearner)
	assert.True(t, ok)
}

func TestEnsembleFitPredict(t *testing.T) {
	x, y := linearData(120, 4, 0.2, 51)
	cfg := DefaultEnsembleConfig(120, 4)
	cfg.NumMachines = 10
	cfg.HiddenSize = 12
	cfg.Seed = 5

	e, err := NewEnsemble(x, y, cfg)
	require.NoError(t, err)
	require.NoError(t, e.FitContext(context.Background()))

	pred, err := e.Predict(x)
	require.NoError(t, err)
	assert.Equal(t, 120, pred.Len())

	cf, err := e.PredictCounterfactual(x)
	require.NoError(t, err)
	assert.Equal(t, 120, cf.Len())
}

func TestEnsembleValidation(t *testing.T) {
	x, y := linearData(20, 3, 0, 61)

	cfg := DefaultEnsembleConfig(20, 3)
	cfg.NumMachines = 0
	_, err := NewEnsemble(x, y, cfg)
	assert.Error(t, err)

	cfg = DefaultEnsembleConfig(20, 3)
	cfg.SampleSize = 21
	_, err = NewEnsemble(x, y, cfg)
	assert.Error(t, err)

	cfg = DefaultEnsembleConfig(20, 3)
	cfg.NumFeatures = 4
	_, err = NewEnsemble(x, y, cfg)
	assert.Error(t, err)
}

func TestEnsemblePredictBeforeFit(t *testing.T) {
	x, y := linearData(20, 3, 0, 71)
	cfg := DefaultEnsembleConfig(20, 3)
	e, err := NewEnsemble(x, y, cfg)
	require.NoError(t, err)
	_, err = e.Predict(x)
	assert.Error(t, err)
}

func TestEnsembleDeterminism(t *testing.T) {
	x, y := linearData(80, 3, 0.3, 81)
	cfg := DefaultEnsembleConfig(80, 3)
	cfg.NumMachines = 5
	cfg.Seed = 123

	e1, err := NewEnsemble(x, y, cfg)
	require.NoError(t, err)
	require.NoError(t, e1.Fit())
	e2, err := NewEnsemble(x, y, cfg)
	require.NoError(t, err)
	require.NoError(t, e2.Fit())

	p1, err := e1.Predict(x)
	require.NoError(t, err)
	p2, err := e2.Predict(x)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(p1, p2, 1e-12))
}

package errors

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotFittedError(t *testing.T) {
	err := NewNotFittedError("ExtremeLearner", "Predict")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ExtremeLearner")
	assert.Contains(t, err.Error(), "Predict()")

	var nf *NotFittedError
	assert.True(t, As(err, &nf))
	assert.Equal(t, "ExtremeLearner", nf.ModelName)
}

func TestNotEstimatedError(t *testing.T) {
	err := NewNotEstimatedError("GComputation", "Summarize")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EstimateCausalEffect()")

	var ne *NotEstimatedError
	assert.True(t, As(err, &ne))
	assert.Equal(t, "Summarize", ne.Method)
}

func TestDimensionError(t *testing.T) {
	err := NewDimensionError("Fit", 100, 90, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rows")
	assert.Contains(t, err.Error(), "Expected 100, got 90")

	var de *DimensionError
	require.True(t, As(err, &de))
	assert.Equal(t, 0, de.Axis)
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("task", "must be regression or classification", "ranking")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task")
	assert.Contains(t, err.Error(), "ranking")
}

func TestModelErrorUnwrap(t *testing.T) {
	err := NewModelError("ExtremeLearner.Fit", "singular matrix", ErrSingularMatrix)
	assert.True(t, Is(err, ErrSingularMatrix))
}

func TestWarningHandler(t *testing.T) {
	var captured error
	SetWarningHandler(func(w error) { captured = w })
	defer SetWarningHandler(func(w error) {})

	w := NewConvergenceWarning("BestSize", 10, "")
	Warn(w)
	require.NotNil(t, captured)
	assert.Contains(t, captured.Error(), "did not converge after 10 iterations")
}

func TestIllConditionedWarning(t *testing.T) {
	w := NewIllConditionedWarning("ExtremeLearner.Fit", 1e14, 1e12)
	assert.Contains(t, w.Error(), "ill-conditioned")
}

func TestCheckNumericalStability(t *testing.T) {
	assert.NoError(t, CheckNumericalStability("solve", []float64{1, 2, 3}, 0))
	assert.Error(t, CheckNumericalStability("solve", []float64{1, math.NaN()}, 0))
	assert.Error(t, CheckScalar("effect", math.Inf(1), 3))
}

func TestClipValue(t *testing.T) {
	assert.Equal(t, 0.5, ClipValue(0.5, 0, 1))
	assert.Equal(t, 1e-7, ClipValue(-2, 1e-7, 1-1e-7))
	assert.Equal(t, 1-1e-7, ClipValue(3, 1e-7, 1-1e-7))
}

func TestSafeDivide(t *testing.T) {
	assert.Equal(t, 2.0, SafeDivide(4, 2))
	assert.Equal(t, 0.0, SafeDivide(4, 0))
}

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBaseEstimatorLifecycle(t *testing.T) {
	var e BaseEstimator
	assert.False(t, e.IsFitted())
	e.SetFitted()
	assert.True(t, e.IsFitted())
	e.Reset()
	assert.False(t, e.IsFitted())
}

func TestBaseCausalEstimatorLifecycle(t *testing.T) {
	var e BaseCausalEstimator
	assert.False(t, e.IsEstimated())
	e.SetEstimated()
	assert.True(t, e.IsEstimated())
}

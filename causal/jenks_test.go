package causal

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJenksBreaksPartition(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	groups, err := jenksBreaks(values, 4)
	require.NoError(t, err)
	require.Len(t, groups, 4)

	var flattened []float64
	for i, g := range groups {
		assert.NotEmpty(t, g)
		if i > 0 {
			prev := groups[i-1]
			assert.LessOrEqual(t, prev[len(prev)-1], g[0], "groups must be ordered")
		}
		flattened = append(flattened, g...)
	}
	sort.Float64s(flattened)
	assert.Equal(t, values, flattened, "groups must cover every value exactly once")
}

func TestJenksBreaksSeparatesClusters(t *testing.T) {
	values := []float64{1, 1.1, 0.9, 10, 10.2, 9.8}
	groups, err := jenksBreaks(values, 2)
	require.NoError(t, err)
	assert.Len(t, groups[0], 3)
	assert.Len(t, groups[1], 3)
}

func TestJenksBreaksValidation(t *testing.T) {
	_, err := jenksBreaks([]float64{1, 2, 3}, 1)
	assert.Error(t, err)
	_, err = jenksBreaks([]float64{1, 2}, 3)
	assert.Error(t, err)
}

func TestGVFImprovesWithGroups(t *testing.T) {
	values := []float64{1, 2, 3, 10, 11, 12, 20, 21, 22}
	g2, err := jenksBreaks(values, 2)
	require.NoError(t, err)
	g3, err := jenksBreaks(values, 3)
	require.NoError(t, err)

	f2 := gvf(values, g2)
	f3 := gvf(values, g3)
	assert.GreaterOrEqual(t, f3, f2, "more groups can only reduce within-group variance")
	assert.LessOrEqual(t, f3, 1.0)
	assert.GreaterOrEqual(t, f2, 0.0)
}

func TestBestSplitsFindsElbow(t *testing.T) {
	// Three well separated clusters: the curve flattens after k=3.
	values := []float64{1, 1.2, 0.8, 10, 10.3, 9.7, 20, 20.1, 19.9}
	k, err := bestSplits(values, 6)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, k, 2)
	assert.LessOrEqual(t, k, 6)
}

func TestFakeTreatments(t *testing.T) {
	values := []float64{1, 1.1, 5, 5.2, 9, 9.3}
	fake, err := fakeTreatments(values, 4)
	require.NoError(t, err)
	require.Len(t, fake, 6)
	for _, v := range fake {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
	// Values in the same cluster share an assignment.
	assert.Equal(t, fake[0], fake[1])
	assert.Equal(t, fake[2], fake[3])
	assert.Equal(t, fake[4], fake[5])
}

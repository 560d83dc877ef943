package causal

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/causalgo/pkg/errors"
)

// jenksBreaks partitions values into k contiguous groups minimizing the
// within-group sum of squared deviations, by dynamic programming over the
// sorted series with prefix sums.
func jenksBreaks(values []float64, k int) ([][]float64, error) {
	n := len(values)
	if k < 2 {
		return nil, errors.NewValidationError("k", "must be at least 2", k)
	}
	if k > n {
		return nil, errors.NewValidationError("k", "cannot exceed the number of values", k)
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	// prefix[i] holds sums over sorted[:i].
	prefix := make([]float64, n+1)
	prefixSq := make([]float64, n+1)
	for i, v := range sorted {
		prefix[i+1] = prefix[i] + v
		prefixSq[i+1] = prefixSq[i] + v*v
	}
	segmentCost := func(i, j int) float64 {
		// SSE of sorted[i:j].
		count := float64(j - i)
		sum := prefix[j] - prefix[i]
		return prefixSq[j] - prefixSq[i] - sum*sum/count
	}

	const inf = math.MaxFloat64
	cost := make([][]float64, k+1)
	cut := make([][]int, k+1)
	for m := range cost {
		cost[m] = make([]float64, n+1)
		cut[m] = make([]int, n+1)
		for j := range cost[m] {
			cost[m][j] = inf
		}
	}
	cost[0][0] = 0
	for m := 1; m <= k; m++ {
		for j := m; j <= n; j++ {
			for i := m - 1; i < j; i++ {
				if cost[m-1][i] == inf {
					continue
				}
				c := cost[m-1][i] + segmentCost(i, j)
				if c < cost[m][j] {
					cost[m][j] = c
					cut[m][j] = i
				}
			}
		}
	}

	groups := make([][]float64, k)
	j := n
	for m := k; m >= 1; m-- {
		i := cut[m][j]
		groups[m-1] = append([]float64(nil), sorted[i:j]...)
		j = i
	}
	return groups, nil
}

// gvf is the goodness of variance fit of a grouping: one minus the ratio of
// within-group squared deviations to total squared deviations. It is 1 for a
// perfect partition and approaches 0 for an uninformative one.
func gvf(values []float64, groups [][]float64) float64 {
	mean := meanOf(values)
	var total float64
	for _, v := range values {
		d := v - mean
		total += d * d
	}
	if total == 0 {
		return 1
	}
	var within float64
	for _, g := range groups {
		gm := meanOf(g)
		for _, v := range g {
			d := v - gm
			within += d * d
		}
	}
	return 1 - within/total
}

// bestSplits picks the group count for fake treatment construction by the
// elbow of the goodness-of-variance curve: the k with the largest second
// difference, which is where adding groups stops paying for itself.
func bestSplits(values []float64, maxK int) (int, error) {
	n := len(values)
	if maxK > n {
		maxK = n
	}
	if maxK < 2 {
		return 0, errors.NewValueError("bestSplits", "need at least two values")
	}
	fits := make([]float64, 0, maxK-1)
	for k := 2; k <= maxK; k++ {
		groups, err := jenksBreaks(values, k)
		if err != nil {
			return 0, err
		}
		fits = append(fits, gvf(values, groups))
	}
	if len(fits) < 3 {
		return 2, nil
	}
	bestK := 2
	bestCurvature := math.Inf(-1)
	for i := 1; i < len(fits)-1; i++ {
		curvature := fits[i-1] - 2*fits[i] + fits[i+1]
		if curvature > bestCurvature {
			bestCurvature = curvature
			bestK = i + 2
		}
	}
	return bestK, nil
}

// fakeTreatments discretizes outcomes into Jenks groups and returns a
// synthetic assignment built from scaled group indices. Counterfactual
// consistency diagnostics refit the outcome model against it.
func fakeTreatments(values []float64, maxK int) ([]float64, error) {
	k, err := bestSplits(values, maxK)
	if err != nil {
		return nil, err
	}
	groups, err := jenksBreaks(values, k)
	if err != nil {
		return nil, err
	}
	// Group boundaries in sorted order let each original value be mapped
	// back to its group index.
	uppers := make([]float64, len(groups))
	for i, g := range groups {
		uppers[i] = g[len(g)-1]
	}
	out := make([]float64, len(values))
	for i, v := range values {
		idx := sort.SearchFloat64s(uppers, v)
		if idx >= len(uppers) {
			idx = len(uppers) - 1
		}
		out[i] = float64(idx) / float64(k-1)
	}
	return out, nil
}

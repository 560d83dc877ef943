package causal

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/causalgo/elm"
	"github.com/YuminosukeSato/causalgo/metrics"
	"github.com/YuminosukeSato/causalgo/pkg/errors"
)

// supWaldTrim excludes break candidates within 15% of either end of the
// combined series, where the smaller segment makes the statistic unstable.
const supWaldTrim = 0.15

// positivityBound flags propensity estimates outside [bound, 1-bound] as
// overlap violations.
const positivityBound = 0.05

// CovariateIndependence tests whether each covariate's distribution shifts
// at the intervention point. For every column it regresses the combined
// pre/post series on a period indicator and derives a permutation p-value
// for the slope. Small p-values mean the covariate moved with the
// intervention, which undermines the extrapolation.
func (its *InterruptedTimeSeries) CovariateIndependence(ctx context.Context, permutations int) (map[string]float64, error) {
	if !its.IsEstimated() {
		return nil, errors.NewNotEstimatedError("InterruptedTimeSeries", "CovariateIndependence")
	}
	permutations = checkIterations(permutations)
	n0, d := its.x0.Dims()
	n1, _ := its.x1.Dims()
	n := n0 + n1

	indicator := make([]float64, n)
	for i := n0; i < n; i++ {
		indicator[i] = 1
	}
	rng := inferenceRNG(its.Config.Seed + 13)

	out := make(map[string]float64, d)
	for j := 0; j < d; j++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "InterruptedTimeSeries: validation cancelled")
		}
		series := make([]float64, n)
		for i := 0; i < n0; i++ {
			series[i] = its.x0.At(i, j)
		}
		for i := 0; i < n1; i++ {
			series[n0+i] = its.x1.At(i, j)
		}
		observed := math.Abs(indicatorSlope(indicator, series))

		extreme := 0
		perm := append([]float64(nil), indicator...)
		for p := 0; p < permutations; p++ {
			rng.Shuffle(n, func(a, b int) { perm[a], perm[b] = perm[b], perm[a] })
			if math.Abs(indicatorSlope(perm, series)) >= observed {
				extreme++
			}
		}
		out[fmt.Sprintf("covariate_%d_p", j+1)] = float64(extreme+1) / float64(permutations+1)
	}
	return out, nil
}

// indicatorSlope is the OLS slope of series on a binary indicator.
func indicatorSlope(indicator, series []float64) float64 {
	mi := meanOf(indicator)
	ms := meanOf(series)
	var num, den float64
	for i := range indicator {
		di := indicator[i] - mi
		num += di * (series[i] - ms)
		den += di * di
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// SupWald scans candidate structural breaks over the trimmed combined outcome
// series and reports the supremum Wald statistic, the break it selects, the
// hypothesized break at the intervention point, and a permutation p-value.
// The diagnostic passes when the selected break matches the hypothesized one.
func (its *InterruptedTimeSeries) SupWald(ctx context.Context, permutations int) (map[string]float64, error) {
	if !its.IsEstimated() {
		return nil, errors.NewNotEstimatedError("InterruptedTimeSeries", "SupWald")
	}
	permutations = checkIterations(permutations)
	n0 := its.y0.Len()
	n1 := its.y1.Len()
	n := n0 + n1
	series := make([]float64, n)
	for i := 0; i < n0; i++ {
		series[i] = its.y0.AtVec(i)
	}
	for i := 0; i < n1; i++ {
		series[n0+i] = its.y1.AtVec(i)
	}

	observed, breakIdx := supWaldStatistic(series)
	rng := inferenceRNG(its.Config.Seed + 29)
	extreme := 0
	perm := append([]float64(nil), series...)
	for p := 0; p < permutations; p++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "InterruptedTimeSeries: validation cancelled")
		}
		rng.Shuffle(n, func(a, b int) { perm[a], perm[b] = perm[b], perm[a] })
		w, _ := supWaldStatistic(perm)
		if w >= observed {
			extreme++
		}
	}

	return map[string]float64{
		"hypothesized_breakpoint": float64(n0),
		"predicted_breakpoint":    float64(breakIdx),
		"wald_statistic":          observed,
		"p_value":                 float64(extreme+1) / float64(permutations+1),
	}, nil
}

// supWaldStatistic computes the maximum mean-shift Wald statistic over the
// trimmed interior break candidates and the index attaining it.
func supWaldStatistic(series []float64) (float64, int) {
	n := len(series)
	lo := int(math.Ceil(supWaldTrim * float64(n)))
	hi := int(math.Floor((1 - supWaldTrim) * float64(n)))
	if lo < 1 {
		lo = 1
	}
	if hi > n-1 {
		hi = n - 1
	}

	best := math.Inf(-1)
	bestIdx := lo
	for tau := lo; tau <= hi; tau++ {
		n1 := float64(tau)
		n2 := float64(n - tau)
		m1 := meanOf(series[:tau])
		m2 := meanOf(series[tau:])
		var ss float64
		for _, v := range series[:tau] {
			d := v - m1
			ss += d * d
		}
		for _, v := range series[tau:] {
			d := v - m2
			ss += d * d
		}
		pooled := ss / float64(n-2)
		if pooled <= 0 {
			continue
		}
		diff := m2 - m1
		w := diff * diff / (pooled * (1/n1 + 1/n2))
		if w > best {
			best = w
			bestIdx = tau
		}
	}
	return best, bestIdx
}

// OmittedPredictor gauges sensitivity to an unobserved covariate by
// re-estimating with a pure-noise column appended and summarizing the ratio
// of perturbed to original mean effect. Ratios close to 1 mean the estimate
// is robust to a predictor of comparable scale being left out.
func (its *InterruptedTimeSeries) OmittedPredictor(ctx context.Context, iterations int) (map[string]float64, error) {
	if !its.IsEstimated() {
		return nil, errors.NewNotEstimatedError("InterruptedTimeSeries", "OmittedPredictor")
	}
	iterations = checkIterations(iterations)
	original := meanOf(its.effect)
	if original == 0 {
		return nil, errors.NewValueError("OmittedPredictor", "original effect is zero, ratios are undefined")
	}

	noise := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewPCG(its.Config.Seed, 43)}
	n0 := its.y0.Len()
	n1 := its.y1.Len()
	ratios := make([]float64, iterations)
	for it := 0; it < iterations; it++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "InterruptedTimeSeries: validation cancelled")
		}
		pre := mat.NewVecDense(n0, nil)
		for i := 0; i < n0; i++ {
			pre.SetVec(i, noise.Rand())
		}
		post := mat.NewVecDense(n1, nil)
		for i := 0; i < n1; i++ {
			post.SetVec(i, noise.Rand())
		}
		effect, _, err := its.estimateWith(appendColumn(its.x0, pre), appendColumn(its.x1, post), its.Config.numNeurons)
		if err != nil {
			return nil, err
		}
		ratios[it] = meanOf(effect) / original
	}

	minR, err := stats.Min(ratios)
	if err != nil {
		return nil, errors.Wrap(err, "OmittedPredictor: summary")
	}
	maxR, _ := stats.Max(ratios)
	meanR, _ := stats.Mean(ratios)
	medianR, _ := stats.Median(ratios)
	return map[string]float64{
		"minimum_effect_ratio": minR,
		"mean_effect_ratio":    meanR,
		"median_effect_ratio":  medianR,
		"maximum_effect_ratio": maxR,
	}, nil
}

// Validate runs the full interrupted time series diagnostic suite.
func (its *InterruptedTimeSeries) Validate(ctx context.Context, iterations int) (map[string]any, error) {
	covariates, err := its.CovariateIndependence(ctx, iterations)
	if err != nil {
		return nil, err
	}
	wald, err := its.SupWald(ctx, iterations)
	if err != nil {
		return nil, err
	}
	omitted, err := its.OmittedPredictor(ctx, iterations)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"covariate_independence": covariates,
		"sup_wald":               wald,
		"omitted_predictor":      omitted,
	}, nil
}

// CounterfactualConsistency probes outcome-model misspecification by
// replacing the real assignment with a synthetic one built from Jenks groups
// of the treated outcomes. If the model fits the fabricated assignment better
// than the real one, the negative gap flags that treatment may be standing in
// for outcome structure the covariates miss.
func (g *GComputation) CounterfactualConsistency(ctx context.Context, maxGroups int) (map[string]float64, error) {
	if !g.IsEstimated() {
		return nil, errors.NewNotEstimatedError("GComputation", "CounterfactualConsistency")
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "GComputation: validation cancelled")
	}
	if maxGroups <= 0 {
		maxGroups = 10
	}

	n := g.data.Y.Len()
	treated, _ := armIndices(g.data.T)
	if len(treated) < 2 {
		return nil, errors.NewValueError("CounterfactualConsistency", "need at least two treated observations")
	}
	treatedOutcomes := make([]float64, len(treated))
	for i, idx := range treated {
		treatedOutcomes[i] = g.data.Y.AtVec(idx)
	}
	fake, err := fakeTreatments(treatedOutcomes, maxGroups)
	if err != nil {
		return nil, err
	}
	fakeT := mat.NewVecDense(n, nil)
	for i, idx := range treated {
		fakeT.SetVec(idx, fake[i])
	}

	realMSE, err := g.modelMSE(g.data.T)
	if err != nil {
		return nil, err
	}
	fakeMSE, err := g.modelMSE(fakeT)
	if err != nil {
		return nil, err
	}
	return map[string]float64{
		"mse_real": realMSE,
		"mse_fake": fakeMSE,
		"gap":      fakeMSE - realMSE,
	}, nil
}

// modelMSE fits the outcome model with the given assignment and returns its
// training mean squared error.
func (g *GComputation) modelMSE(t *mat.VecDense) (float64, error) {
	design := withTreatment(g.data.X, t)
	learner, err := elm.NewLearner(design, g.data.Y, g.Config.numNeurons, g.Config.Activation, g.Config.Regularized, g.Config.Seed)
	if err != nil {
		return 0, err
	}
	if err := learner.Fit(); err != nil {
		return 0, err
	}
	pred, err := learner.Predict(design)
	if err != nil {
		return 0, err
	}
	return metrics.MSE(g.data.Y, pred)
}

// Exchangeability gauges sensitivity to an unobserved confounder by
// re-estimating with a noise column appended to the covariates and reporting
// the mean ratio of perturbed to original effect.
func (g *GComputation) Exchangeability(ctx context.Context, iterations int) (map[string]float64, error) {
	if !g.IsEstimated() {
		return nil, errors.NewNotEstimatedError("GComputation", "Exchangeability")
	}
	if g.effect == 0 {
		return nil, errors.NewValueError("Exchangeability", "original effect is zero, ratios are undefined")
	}
	iterations = checkIterations(iterations)
	noise := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewPCG(g.Config.Seed, 57)}
	n := g.data.Y.Len()

	baseX := g.data.X
	ratios := make([]float64, iterations)
	for it := 0; it < iterations; it++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "GComputation: validation cancelled")
		}
		col := mat.NewVecDense(n, nil)
		for i := 0; i < n; i++ {
			col.SetVec(i, noise.Rand())
		}
		perturbed := &GComputation{Config: g.Config, Quantity: g.Quantity, temporal: g.temporal,
			data: &StandardData{X: appendColumn(baseX, col), T: g.data.T, Y: g.data.Y, TType: g.data.TType, YType: g.data.YType}}
		effect, _, err := perturbed.estimateWith(g.data.T, g.Config.numNeurons)
		if err != nil {
			return nil, err
		}
		ratios[it] = effect / g.effect
	}

	minR, err := stats.Min(ratios)
	if err != nil {
		return nil, errors.Wrap(err, "Exchangeability: summary")
	}
	maxR, _ := stats.Max(ratios)
	meanR, _ := stats.Mean(ratios)
	return map[string]float64{
		"minimum_effect_ratio": minR,
		"mean_effect_ratio":    meanR,
		"maximum_effect_ratio": maxR,
	}, nil
}

// EValue is the minimum strength of association an unmeasured confounder
// would need with both treatment and outcome to explain the estimate away.
// The effect is converted to an approximate risk ratio through the
// standardized effect size before applying the bound.
func eValue(effect float64, y *mat.VecDense) (float64, error) {
	raw := make([]float64, y.Len())
	for i := range raw {
		raw[i] = y.AtVec(i)
	}
	sd, err := stats.StandardDeviationSample(raw)
	if err != nil {
		return 0, errors.Wrap(err, "eValue: outcome spread")
	}
	if sd == 0 {
		return 0, errors.NewValueError("eValue", "outcome has zero variance")
	}
	d := effect / sd
	rr := math.Exp(0.91 * d)
	if rr < 1 {
		rr = 1 / rr
	}
	return rr + math.Sqrt(rr*(rr-1)), nil
}

// EValue reports the unmeasured-confounding bound for the estimated effect.
func (g *GComputation) EValue() (float64, error) {
	if !g.IsEstimated() {
		return 0, errors.NewNotEstimatedError("GComputation", "EValue")
	}
	return eValue(g.effect, g.data.Y)
}

// EValue reports the unmeasured-confounding bound for the estimated effect.
func (d *DoubleMachineLearning) EValue() (float64, error) {
	if !d.IsEstimated() {
		return 0, errors.NewNotEstimatedError("DoubleMachineLearning", "EValue")
	}
	return eValue(d.effect, d.data.Y)
}

// positivityCheck fits a propensity ensemble and summarizes overlap.
func positivityCheck(ctx context.Context, cfg *ModelConfig, X *mat.Dense, t *mat.VecDense, size int) (map[string]float64, error) {
	propensity, err := cfg.fitEnsemble(ctx, X, t, size, 91)
	if err != nil {
		return nil, err
	}
	pred, err := propensity.Predict(X)
	if err != nil {
		return nil, err
	}
	n := pred.Len()
	minE, maxE := math.Inf(1), math.Inf(-1)
	violations := 0
	for i := 0; i < n; i++ {
		e := pred.AtVec(i)
		if e < minE {
			minE = e
		}
		if e > maxE {
			maxE = e
		}
		if e < positivityBound || e > 1-positivityBound {
			violations++
		}
	}
	return map[string]float64{
		"minimum_propensity": minE,
		"maximum_propensity": maxE,
		"violation_share":    float64(violations) / float64(n),
	}, nil
}

// Positivity summarizes propensity overlap for the estimator's data.
func (g *GComputation) Positivity(ctx context.Context) (map[string]float64, error) {
	if !g.IsEstimated() {
		return nil, errors.NewNotEstimatedError("GComputation", "Positivity")
	}
	return positivityCheck(ctx, &g.Config, g.data.X, g.data.T, g.Config.numNeurons)
}

// Positivity summarizes propensity overlap for the estimator's data. It
// requires a binary treatment.
func (d *DoubleMachineLearning) Positivity(ctx context.Context) (map[string]float64, error) {
	if !d.IsEstimated() {
		return nil, errors.NewNotEstimatedError("DoubleMachineLearning", "Positivity")
	}
	if d.data.TType != elm.Binary {
		return nil, errors.NewValueError("Positivity", "requires a binary treatment")
	}
	return positivityCheck(ctx, &d.Config, d.data.X, d.data.T, d.Config.numNeurons)
}

// Validate runs the full G-computation diagnostic suite.
func (g *GComputation) Validate(ctx context.Context, iterations int) (map[string]any, error) {
	consistency, err := g.CounterfactualConsistency(ctx, 10)
	if err != nil {
		return nil, err
	}
	exchangeability, err := g.Exchangeability(ctx, iterations)
	if err != nil {
		return nil, err
	}
	positivity, err := g.Positivity(ctx)
	if err != nil {
		return nil, err
	}
	ev, err := g.EValue()
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"counterfactual_consistency": consistency,
		"exchangeability":            exchangeability,
		"positivity":                 positivity,
		"e_value":                    ev,
	}, nil
}

// Validate runs the double machine learning diagnostic suite. Positivity is
// skipped for non-binary treatments.
func (d *DoubleMachineLearning) Validate(ctx context.Context) (map[string]any, error) {
	ev, err := d.EValue()
	if err != nil {
		return nil, err
	}
	out := map[string]any{"e_value": ev}
	if d.data.TType == elm.Binary {
		positivity, err := d.Positivity(ctx)
		if err != nil {
			return nil, err
		}
		out["positivity"] = positivity
	}
	return out, nil
}

// Validate runs the metalearner diagnostic suite on the mean effect.
func (b *metalearnerBase) Validate(ctx context.Context) (map[string]any, error) {
	if !b.IsEstimated() {
		return nil, errors.NewNotEstimatedError(b.name, "Validate")
	}
	ev, err := eValue(meanOf(b.effect), b.data.Y)
	if err != nil {
		return nil, err
	}
	out := map[string]any{"e_value": ev}
	if b.data.TType == elm.Binary {
		positivity, err := positivityCheck(ctx, &b.Config, b.data.X, b.data.T, b.Config.numNeurons)
		if err != nil {
			return nil, err
		}
		out["positivity"] = positivity
	}
	return out, nil
}

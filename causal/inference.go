package causal

import (
	"context"
	"math"
	"math/rand/v2"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/causalgo/pkg/errors"
)

// defaultInferenceIterations is the resampling budget used when the caller
// does not supply one.
const defaultInferenceIterations = 100

// InferenceResult holds the randomization inference summary for a scalar
// effect: the observed estimate, its standard error taken from the spread of
// the null distribution, and a two-sided p-value.
type InferenceResult struct {
	Effect           float64
	StdErr           float64
	PValue           float64
	NullDistribution []float64
}

// quantifyNull turns an observed effect and a simulated null distribution
// into a p-value and standard error. The two-sided p-value counts null draws
// at least as extreme as the observation, with an add-one correction so it
// never collapses to zero.
func quantifyNull(observed float64, null []float64) (*InferenceResult, error) {
	if len(null) == 0 {
		return nil, errors.NewValueError("quantifyNull", "empty null distribution")
	}
	extreme := 0
	for _, v := range null {
		if math.Abs(v) >= math.Abs(observed) {
			extreme++
		}
	}
	se, err := stats.StandardDeviationSample(null)
	if err != nil {
		return nil, errors.Wrap(err, "quantifyNull: standard error")
	}
	return &InferenceResult{
		Effect:           observed,
		StdErr:           se,
		PValue:           float64(extreme+1) / float64(len(null)+1),
		NullDistribution: null,
	}, nil
}

// permutedVec returns a copy of v with entries shuffled by rng.
func permutedVec(v *mat.VecDense, rng *rand.Rand) *mat.VecDense {
	n := v.Len()
	perm := rng.Perm(n)
	out := mat.NewVecDense(n, nil)
	for i, p := range perm {
		out.SetVec(i, v.AtVec(p))
	}
	return out
}

func inferenceRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func checkIterations(iterations int) int {
	if iterations <= 0 {
		return defaultInferenceIterations
	}
	return iterations
}

// GenerateNullDistribution simulates effects under no intervention by
// re-estimating with a pure-noise covariate appended to both periods. The
// mean flag selects mean or cumulative aggregation of the pointwise effect.
func (its *InterruptedTimeSeries) GenerateNullDistribution(ctx context.Context, iterations int, mean bool) ([]float64, error) {
	if !its.IsEstimated() {
		return nil, errors.NewNotEstimatedError("InterruptedTimeSeries", "GenerateNullDistribution")
	}
	iterations = checkIterations(iterations)
	noise := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewPCG(its.Config.Seed, 71)}

	n0 := its.y0.Len()
	n1 := its.y1.Len()
	null := make([]float64, iterations)
	for it := 0; it < iterations; it++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "InterruptedTimeSeries: inference cancelled")
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
		if mean {
			null[it] = meanOf(effect)
		} else {
			var sum float64
			for _, e := range effect {
				sum += e
			}
			null[it] = sum
		}
	}
	return null, nil
}

// Inference runs randomization inference on the aggregated post-period
// effect. The mean flag selects mean or cumulative aggregation.
func (its *InterruptedTimeSeries) Inference(ctx context.Context, iterations int, mean bool) (*InferenceResult, error) {
	if !its.IsEstimated() {
		return nil, errors.NewNotEstimatedError("InterruptedTimeSeries", "Inference")
	}
	null, err := its.GenerateNullDistribution(ctx, iterations, mean)
	if err != nil {
		return nil, err
	}
	observed := meanOf(its.effect)
	if !mean {
		observed = 0
		for _, e := range its.effect {
			observed += e
		}
	}
	return quantifyNull(observed, null)
}

// GenerateNullDistribution re-estimates the effect under random permutations
// of the treatment assignment.
func (g *GComputation) GenerateNullDistribution(ctx context.Context, iterations int) ([]float64, error) {
	if !g.IsEstimated() {
		return nil, errors.NewNotEstimatedError("GComputation", "GenerateNullDistribution")
	}
	iterations = checkIterations(iterations)
	rng := inferenceRNG(g.Config.Seed)
	null := make([]float64, iterations)
	for it := 0; it < iterations; it++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "GComputation: inference cancelled")
		}
		effect, _, err := g.estimateWith(permutedVec(g.data.T, rng), g.Config.numNeurons)
		if err != nil {
			return nil, err
		}
		null[it] = effect
	}
	return null, nil
}

// Inference runs randomization inference on the estimated average effect.
func (g *GComputation) Inference(ctx context.Context, iterations int) (*InferenceResult, error) {
	null, err := g.GenerateNullDistribution(ctx, iterations)
	if err != nil {
		return nil, err
	}
	return quantifyNull(g.effect, null)
}

// GenerateNullDistribution recomputes the residual-on-residual slope with
// permuted treatment residuals, which breaks any true association while keeping
// both marginal residual distributions intact.
func (d *DoubleMachineLearning) GenerateNullDistribution(ctx context.Context, iterations int) ([]float64, error) {
	if !d.IsEstimated() {
		return nil, errors.NewNotEstimatedError("DoubleMachineLearning", "GenerateNullDistribution")
	}
	iterations = checkIterations(iterations)
	rng := inferenceRNG(d.Config.Seed)
	null := make([]float64, iterations)
	for it := 0; it < iterations; it++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "DoubleMachineLearning: inference cancelled")
		}
		perm := rng.Perm(len(d.tResiduals))
		shuffled := make([]float64, len(d.tResiduals))
		for i, p := range perm {
			shuffled[i] = d.tResiduals[p]
		}
		slope, err := residualSlope(shuffled, d.yResiduals)
		if err != nil {
			return nil, err
		}
		null[it] = slope
	}
	return null, nil
}

// Inference runs randomization inference on the estimated average effect.
func (d *DoubleMachineLearning) Inference(ctx context.Context, iterations int) (*InferenceResult, error) {
	null, err := d.GenerateNullDistribution(ctx, iterations)
	if err != nil {
		return nil, err
	}
	return quantifyNull(d.effect, null)
}

// metalearnerNull re-estimates a metalearner's mean effect under permuted
// treatment assignments.
func metalearnerNull(ctx context.Context, b *metalearnerBase, estimate func(ctx context.Context, t *mat.VecDense, size int) ([]float64, error), iterations int) ([]float64, error) {
	if !b.IsEstimated() {
		return nil, errors.NewNotEstimatedError(b.name, "GenerateNullDistribution")
	}
	iterations = checkIterations(iterations)
	rng := inferenceRNG(b.Config.Seed)
	null := make([]float64, iterations)
	for it := 0; it < iterations; it++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, b.name+": inference cancelled")
		}
		effect, err := estimate(ctx, permutedVec(b.data.T, rng), b.Config.numNeurons)
		if err != nil {
			return nil, err
		}
		null[it] = meanOf(effect)
	}
	return null, nil
}

func metalearnerInference(ctx context.Context, b *metalearnerBase, estimate func(ctx context.Context, t *mat.VecDense, size int) ([]float64, error), iterations int) (*InferenceResult, error) {
	null, err := metalearnerNull(ctx, b, estimate, iterations)
	if err != nil {
		return nil, err
	}
	return quantifyNull(meanOf(b.effect), null)
}

// GenerateNullDistribution permutes treatment and re-estimates the mean CATE.
func (s *SLearner) GenerateNullDistribution(ctx context.Context, iterations int) ([]float64, error) {
	return metalearnerNull(ctx, &s.metalearnerBase, s.estimateWith, iterations)
}

// Inference runs randomization inference on the mean CATE.
func (s *SLearner) Inference(ctx context.Context, iterations int) (*InferenceResult, error) {
	return metalearnerInference(ctx, &s.metalearnerBase, s.estimateWith, iterations)
}

// GenerateNullDistribution permutes treatment and re-estimates the mean CATE.
func (t *TLearner) GenerateNullDistribution(ctx context.Context, iterations int) ([]float64, error) {
	return metalearnerNull(ctx, &t.metalearnerBase, t.estimateWith, iterations)
}

// Inference runs randomization inference on the mean CATE.
func (t *TLearner) Inference(ctx context.Context, iterations int) (*InferenceResult, error) {
	return metalearnerInference(ctx, &t.metalearnerBase, t.estimateWith, iterations)
}

// GenerateNullDistribution permutes treatment and re-estimates the mean CATE.
func (x *XLearner) GenerateNullDistribution(ctx context.Context, iterations int) ([]float64, error) {
	return metalearnerNull(ctx, &x.metalearnerBase, x.estimateWith, iterations)
}

// Inference runs randomization inference on the mean CATE.
func (x *XLearner) Inference(ctx context.Context, iterations int) (*InferenceResult, error) {
	return metalearnerInference(ctx, &x.metalearnerBase, x.estimateWith, iterations)
}

// GenerateNullDistribution permutes treatment and re-estimates the mean CATE.
func (r *RLearner) GenerateNullDistribution(ctx context.Context, iterations int) ([]float64, error) {
	return metalearnerNull(ctx, &r.metalearnerBase, r.estimateWith, iterations)
}

// Inference runs randomization inference on the mean CATE.
func (r *RLearner) Inference(ctx context.Context, iterations int) (*InferenceResult, error) {
	return metalearnerInference(ctx, &r.metalearnerBase, r.estimateWith, iterations)
}

// GenerateNullDistribution permutes treatment and re-estimates the mean CATE.
func (dr *DoublyRobustLearner) GenerateNullDistribution(ctx context.Context, iterations int) ([]float64, error) {
	return metalearnerNull(ctx, &dr.metalearnerBase, dr.estimateWith, iterations)
}

// Inference runs randomization inference on the mean CATE.
func (dr *DoublyRobustLearner) Inference(ctx context.Context, iterations int) (*InferenceResult, error) {
	return metalearnerInference(ctx, &dr.metalearnerBase, dr.estimateWith, iterations)
}

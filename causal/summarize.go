package causal

import (
	"context"
)

// summaryBase collects the configuration fields every summary reports.
func summaryBase(name string, cfg *ModelConfig) map[string]any {
	return map[string]any{
		"estimator":         name,
		"activation":        cfg.Activation.Name,
		"regularized":       cfg.Regularized,
		"validation_metric": cfg.ValidationMetric,
		"num_neurons":       cfg.numNeurons,
		"folds":             cfg.Folds,
	}
}

func attachInference(summary map[string]any, res *InferenceResult) {
	summary["effect"] = res.Effect
	summary["standard_error"] = res.StdErr
	summary["p_value"] = res.PValue
}

// Summarize reports the estimator configuration and the aggregated effect.
// When iterations is positive, randomization inference supplies a standard
// error and p-value; zero skips inference and reports the point estimate only.
func (its *InterruptedTimeSeries) Summarize(ctx context.Context, iterations int, mean bool) (map[string]any, error) {
	summary := summaryBase("InterruptedTimeSeries", &its.Config)
	summary["autoregression"] = its.autoregression
	aggregation := "cumulative"
	if mean {
		aggregation = "mean"
	}
	summary["aggregation"] = aggregation

	if iterations > 0 {
		res, err := its.Inference(ctx, iterations, mean)
		if err != nil {
			return nil, err
		}
		attachInference(summary, res)
		return summary, nil
	}
	var effect float64
	var err error
	if mean {
		effect, err = its.MeanEffect()
	} else {
		effect, err = its.CumulativeEffect()
	}
	if err != nil {
		return nil, err
	}
	summary["effect"] = effect
	return summary, nil
}

// Summarize reports the estimator configuration and the average effect,
// optionally with randomization inference.
func (g *GComputation) Summarize(ctx context.Context, iterations int) (map[string]any, error) {
	summary := summaryBase("GComputation", &g.Config)
	summary["quantity_of_interest"] = string(g.Quantity)
	summary["task"] = string(g.Task())
	summary["temporal"] = g.temporal

	if iterations > 0 {
		res, err := g.Inference(ctx, iterations)
		if err != nil {
			return nil, err
		}
		attachInference(summary, res)
		return summary, nil
	}
	effect, err := g.Effect()
	if err != nil {
		return nil, err
	}
	summary["effect"] = effect
	return summary, nil
}

// Summarize reports the estimator configuration and the average effect,
// optionally with randomization inference.
func (d *DoubleMachineLearning) Summarize(ctx context.Context, iterations int) (map[string]any, error) {
	summary := summaryBase("DoubleMachineLearning", &d.Config)
	summary["quantity_of_interest"] = string(ATE)
	summary["confounders"] = d.w != nil

	if iterations > 0 {
		res, err := d.Inference(ctx, iterations)
		if err != nil {
			return nil, err
		}
		attachInference(summary, res)
		return summary, nil
	}
	effect, err := d.Effect()
	if err != nil {
		return nil, err
	}
	summary["effect"] = effect
	return summary, nil
}

// summarizeMetalearner reports the shared metalearner summary around the
// mean of the individual effects.
func summarizeMetalearner(ctx context.Context, b *metalearnerBase, inference func(context.Context, int) (*InferenceResult, error), iterations int) (map[string]any, error) {
	summary := summaryBase(b.name, &b.Config)
	summary["quantity_of_interest"] = string(CATE)
	summary["task"] = string(b.Task())

	if iterations > 0 {
		res, err := inference(ctx, iterations)
		if err != nil {
			return nil, err
		}
		attachInference(summary, res)
		return summary, nil
	}
	effect, err := b.Effect()
	if err != nil {
		return nil, err
	}
	summary["effect"] = meanOf(effect)
	return summary, nil
}

// Summarize reports the learner configuration and the mean CATE.
func (s *SLearner) Summarize(ctx context.Context, iterations int) (map[string]any, error) {
	return summarizeMetalearner(ctx, &s.metalearnerBase, s.Inference, iterations)
}

// Summarize reports the learner configuration and the mean CATE.
func (t *TLearner) Summarize(ctx context.Context, iterations int) (map[string]any, error) {
	return summarizeMetalearner(ctx, &t.metalearnerBase, t.Inference, iterations)
}

// Summarize reports the learner configuration and the mean CATE.
func (x *XLearner) Summarize(ctx context.Context, iterations int) (map[string]any, error) {
	return summarizeMetalearner(ctx, &x.metalearnerBase, x.Inference, iterations)
}

// Summarize reports the learner configuration and the mean CATE.
func (r *RLearner) Summarize(ctx context.Context, iterations int) (map[string]any, error) {
	return summarizeMetalearner(ctx, &r.metalearnerBase, r.Inference, iterations)
}

// Summarize reports the learner configuration and the mean CATE.
func (dr *DoublyRobustLearner) Summarize(ctx context.Context, iterations int) (map[string]any, error) {
	return summarizeMetalearner(ctx, &dr.metalearnerBase, dr.Inference, iterations)
}

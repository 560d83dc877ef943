package crossval

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/causalgo/activations"
	"github.com/YuminosukeSato/causalgo/elm"
	"github.com/YuminosukeSato/causalgo/metrics"
	"github.com/YuminosukeSato/causalgo/pkg/errors"
)

// Validation metric names accepted by BestSize.
const (
	MetricMSE      = "mse"
	MetricMAE      = "mae"
	MetricAccuracy = "accuracy"
)

// improvementTol is the relative change in best validation loss below which
// the size search stops early.
const improvementTol = 0.01

// SearchOptions configures the hidden-layer size search.
type SearchOptions struct {
	// Metric is one of mse, mae or accuracy.
	Metric string
	// Activation is the hidden-layer transform of the candidate learners.
	Activation activations.Activation
	// MinNeurons and MaxNeurons bound the search.
	MinNeurons int
	MaxNeurons int
	// Regularized selects ridge candidate learners.
	Regularized bool
	// Folds is the cross-validation fold count, at least 2.
	Folds int
	// Temporal switches to rolling-origin folds; required for time-series
	// and panel data where shuffling is invalid.
	Temporal bool
	// Iterations caps evaluated candidate sizes; 0 means 2×Folds.
	Iterations int
	// ApproximatorNeurons sizes the auxiliary learner that models the
	// size→loss curve to propose the next candidate.
	ApproximatorNeurons int
	// Seed drives fold shuffling and learner initialization.
	Seed uint64
}

// BestSize searches [MinNeurons, MaxNeurons] for the hidden size with the
// lowest cross-validated loss. After probing the bounds and midpoint it fits
// a small approximator ELM to the sizes tried so far and evaluates the size
// with the lowest predicted loss next, stopping early once the best observed
// loss stops improving by more than a relative threshold. The returned size
// is always one that was actually evaluated.
func BestSize(ctx context.Context, X mat.Matrix, y *mat.VecDense, opts SearchOptions) (int, error) {
	if opts.MinNeurons < 1 {
		return 0, errors.NewValidationError("MinNeurons", "must be at least 1", opts.MinNeurons)
	}
	if opts.MaxNeurons < opts.MinNeurons {
		return 0, errors.NewValidationError("MaxNeurons", "must be at least MinNeurons", opts.MaxNeurons)
	}
	switch opts.Metric {
	case MetricMSE, MetricMAE, MetricAccuracy:
	default:
		return 0, errors.NewValidationError("Metric", "must be mse, mae or accuracy", opts.Metric)
	}
	if opts.ApproximatorNeurons < 1 {
		return 0, errors.NewValidationError("ApproximatorNeurons", "must be at least 1", opts.ApproximatorNeurons)
	}
	if opts.MinNeurons == opts.MaxNeurons {
		return opts.MinNeurons, nil
	}

	n, _ := X.Dims()
	var folds []Fold
	var err error
	if opts.Temporal {
		folds, err = TemporalFolds(n, opts.Folds)
	} else {
		folds, err = KFolds(n, opts.Folds, opts.Seed)
	}
	if err != nil {
		return 0, err
	}

	budget := opts.Iterations
	if budget <= 0 {
		budget = 2 * opts.Folds
	}

	seedCandidates := []int{
		opts.MinNeurons,
		opts.MaxNeurons,
		(opts.MinNeurons + opts.MaxNeurons) / 2,
	}

	evaluated := make(map[int]float64)
	var tried []int
	var losses []float64

	bestSize := opts.MinNeurons
	bestLoss := 0.0
	converged := false

	for iter := 0; iter < budget; iter++ {
		if err := ctx.Err(); err != nil {
			return 0, errors.Wrap(err, "crossval.BestSize")
		}

		var candidate int
		if iter < len(seedCandidates) {
			candidate = seedCandidates[iter]
		} else {
			candidate, err = proposeNext(tried, losses, evaluated, opts)
			if err != nil {
				return 0, err
			}
			if candidate < 0 {
				converged = true
				break
			}
		}
		if _, seen := evaluated[candidate]; seen {
			continue
		}

		loss, err := validationLoss(X, y, folds, candidate, opts, uint64(iter))
		if err != nil {
			return 0, err
		}
		evaluated[candidate] = loss
		tried = append(tried, candidate)
		losses = append(losses, loss)

		prevBest := bestLoss
		if len(tried) == 1 || loss < bestLoss {
			bestLoss = loss
			bestSize = candidate
		}
		if iter >= len(seedCandidates) && relativeChange(prevBest, bestLoss) < improvementTol {
			converged = true
			break
		}
	}

	if !converged {
		errors.Warn(errors.NewConvergenceWarning("crossval.BestSize", budget,
			"iteration budget exhausted before the validation loss stabilized"))
	}
	return bestSize, nil
}

// validationLoss cross-validates one candidate size and averages the metric
// across folds. A failed fold fit propagates; skipping it would bias the
// comparison between sizes.
func validationLoss(X mat.Matrix, y *mat.VecDense, folds []Fold, hidden int, opts SearchOptions, salt uint64) (float64, error) {
	var total float64
	for i, fold := range folds {
		trainX, trainY := Slice(X, y, fold.TrainIndices)
		valX, valY := Slice(X, y, fold.ValidationIndices)

		learner, err := elm.NewLearner(trainX, trainY, hidden, opts.Activation, opts.Regularized, opts.Seed+salt*31+uint64(i))
		if err != nil {
			return 0, errors.Wrapf(err, "crossval: fold %d", i)
		}
		if err := learner.Fit(); err != nil {
			return 0, errors.Wrapf(err, "crossval: fold %d", i)
		}
		pred, err := learner.Predict(valX)
		if err != nil {
			return 0, errors.Wrapf(err, "crossval: fold %d", i)
		}

		loss, err := metricLoss(opts.Metric, valY, pred)
		if err != nil {
			return 0, errors.Wrapf(err, "crossval: fold %d", i)
		}
		total += loss
	}
	return total / float64(len(folds)), nil
}

// metricLoss converts the configured metric into a minimization target.
func metricLoss(metric string, yTrue, yPred *mat.VecDense) (float64, error) {
	switch metric {
	case MetricMAE:
		return metrics.MAE(yTrue, yPred)
	case MetricAccuracy:
		acc, err := metrics.Accuracy(yTrue, yPred)
		if err != nil {
			return 0, err
		}
		return 1 - acc, nil
	default:
		return metrics.MSE(yTrue, yPred)
	}
}

// proposeNext fits the approximator ELM on (size, loss) pairs observed so far
// and returns the unevaluated size with the lowest predicted loss, or -1 when
// every size in range has been evaluated.
func proposeNext(tried []int, losses []float64, evaluated map[int]float64, opts SearchOptions) (int, error) {
	sizeX := mat.NewDense(len(tried), 1, nil)
	lossY := mat.NewVecDense(len(losses), nil)
	for i, s := range tried {
		sizeX.Set(i, 0, float64(s))
		lossY.SetVec(i, losses[i])
	}

	approx, err := elm.NewExtremeLearner(sizeX, lossY, opts.ApproximatorNeurons, activations.ReLU, opts.Seed)
	if err != nil {
		return 0, errors.Wrap(err, "crossval: size-loss approximator")
	}
	if err := approx.Fit(); err != nil {
		return 0, errors.Wrap(err, "crossval: size-loss approximator")
	}

	span := opts.MaxNeurons - opts.MinNeurons + 1
	grid := mat.NewDense(span, 1, nil)
	for i := 0; i < span; i++ {
		grid.Set(i, 0, float64(opts.MinNeurons+i))
	}
	predicted, err := approx.Predict(grid)
	if err != nil {
		return 0, errors.Wrap(err, "crossval: size-loss approximator")
	}

	best := -1
	bestPred := 0.0
	for i := 0; i < span; i++ {
		size := opts.MinNeurons + i
		if _, seen := evaluated[size]; seen {
			continue
		}
		if best < 0 || predicted.AtVec(i) < bestPred {
			best = size
			bestPred = predicted.AtVec(i)
		}
	}
	return best, nil
}

func relativeChange(prev, current float64) float64 {
	denom := prev
	if denom < 0 {
		denom = -denom
	}
	if denom < 1e-12 {
		denom = 1e-12
	}
	diff := prev - current
	if diff < 0 {
		diff = -diff
	}
	return diff / denom
}

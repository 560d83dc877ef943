// Package log defines standard attribute keys for causal estimation
// operations. Using these keys keeps log output filterable across the
// library: estimator lifecycle, data shape, hyperparameter search, and
// randomization inference all log under predictable names.
package log

// Estimator and operation context.
const (
	// EstimatorKey identifies the estimator type.
	// Examples: "InterruptedTimeSeries", "GComputation", "XLearner"
	EstimatorKey = "estimator.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "estimate_causal_effect",
	// "summarize", "validate"
	OperationKey = "ml.operation"

	// TaskKey indicates the modelling task, "regression" or
	// "classification".
	TaskKey = "ml.task"
)

// Data shape.
const (
	// SamplesKey is the number of rows in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey is the number of covariate columns.
	FeaturesKey = "data.features"

	// TemporalKey marks panel/time-series data, which switches fold
	// generation to a rolling-origin scheme.
	TemporalKey = "data.temporal"
)

// Hyperparameter search and inference.
const (
	// NeuronsKey is the selected or candidate hidden-layer size.
	NeuronsKey = "search.neurons"

	// FoldsKey is the number of cross-validation folds.
	FoldsKey = "cv.folds"

	// MetricKey is the validation metric name.
	MetricKey = "cv.metric"

	// IterationsKey is the iteration count of a search or inference loop.
	IterationsKey = "inference.iterations"

	// DurationMsKey records the execution time of an operation in
	// milliseconds.
	DurationMsKey = "perf.duration_ms"
)

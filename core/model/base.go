// Package model provides lifecycle state shared by every learner and causal
// estimator in the library. "Not yet fitted" and "not yet estimated" are
// representable, checked states rather than sentinel NaN effects.
package model

// LifecycleState represents the training state of a learner or estimator.
type LifecycleState int

const (
	// NotFitted means Fit (or EstimateCausalEffect) has not run.
	NotFitted LifecycleState = iota
	// Fitted means the model holds learned parameters.
	Fitted
)

// BaseEstimator is embedded by every learner to track its fitted state.
type BaseEstimator struct {
	state LifecycleState
}

// IsFitted reports whether the model has been fitted.
func (e *BaseEstimator) IsFitted() bool {
	return e.state == Fitted
}

// SetFitted marks the model as fitted.
func (e *BaseEstimator) SetFitted() {
	e.state = Fitted
}

// Reset returns the model to the unfitted state.
func (e *BaseEstimator) Reset() {
	e.state = NotFitted
}

// BaseCausalEstimator is embedded by every causal estimator and metalearner
// to track whether EstimateCausalEffect has produced an effect. Inference and
// validation routines must reject estimators still in the unestimated state.
type BaseCausalEstimator struct {
	estimated bool
}

// IsEstimated reports whether a causal effect has been computed.
func (e *BaseCausalEstimator) IsEstimated() bool {
	return e.estimated
}

// SetEstimated marks the estimator as holding a valid causal effect.
func (e *BaseCausalEstimator) SetEstimated() {
	e.estimated = true
}

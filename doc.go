// Package causalgo is a causal inference library built on extreme learning
// machines. It estimates average and heterogeneous treatment effects from
// observational data without requiring iterative training: hidden layers are
// drawn once at random and output weights are solved in closed form, which
// makes estimation deterministic for a given seed and fast enough to repeat
// hundreds of times during randomization inference.
//
// The estimators live in the causal package: InterruptedTimeSeries projects
// a pre-intervention model over the post-period, GComputation contrasts
// forced treatment assignments, DoubleMachineLearning residualizes outcome
// and treatment with cross-fitting, and the S/T/X/R/doubly-robust
// metalearners estimate conditional effects per observation. Every estimator
// carries randomization inference (Inference, GenerateNullDistribution) and
// assumption diagnostics (Validate).
//
// Supporting packages: elm implements the learners and bagged ensembles,
// activations the hidden-layer transforms, crossval the fold generation and
// hidden-size search, metrics the validation losses, preprocessing the
// covariate scaling, and plotting the diagnostic figures.
package causalgo

package causal

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/causalgo/pkg/errors"
)

// propensityEpsilon bounds estimated propensity scores away from 0 and 1
// before they are used in weights or denominators.
const propensityEpsilon = 1e-7

// XLearner estimates the CATE in two stages. Arm-specific outcome models
// impute each unit's missing potential outcome; second-stage models fit the
// imputed effects per arm; a propensity model blends the two second-stage
// predictions.
type XLearner struct {
	metalearnerBase
}

// NewXLearner builds an X-learner. Treatment must be binary and both arms
// must be populated.
func NewXLearner(X mat.Matrix, t, y []float64, cfg ModelConfig) (*XLearner, error) {
	base, err := newMetalearnerBase("XLearner", X, t, y, cfg, true)
	if err != nil {
		return nil, err
	}
	return &XLearner{metalearnerBase: base}, nil
}

// EstimateCausalEffect returns one effect estimate per observation.
func (x *XLearner) EstimateCausalEffect(ctx context.Context) ([]float64, error) {
	size, err := x.Config.selectNeurons(ctx, x.data.X, x.data.Y, false)
	if err != nil {
		return nil, err
	}
	effect, err := x.estimateWith(ctx, x.data.T, size)
	if err != nil {
		return nil, err
	}
	return x.setEffect(effect), nil
}

func (x *XLearner) estimateWith(ctx context.Context, treatment *mat.VecDense, size int) ([]float64, error) {
	treated, control := armIndices(treatment)
	if err := checkArms("XLearner", treated, control); err != nil {
		return nil, err
	}
	mu1, mu0, err := fitArmModels(ctx, &x.Config, x.data, treated, control, size)
	if err != nil {
		return nil, err
	}

	// Imputed effects: observed outcome against the opposite arm's model.
	treatedX, treatedY := subsetRows(x.data.X, x.data.Y, treated)
	controlX, controlY := subsetRows(x.data.X, x.data.Y, control)
	mu0OnTreated, err := mu0.Predict(treatedX)
	if err != nil {
		return nil, err
	}
	mu1OnControl, err := mu1.Predict(controlX)
	if err != nil {
		return nil, err
	}
	d1 := mat.NewVecDense(len(treated), nil)
	for i := range treated {
		d1.SetVec(i, treatedY.AtVec(i)-mu0OnTreated.AtVec(i))
	}
	d0 := mat.NewVecDense(len(control), nil)
	for i := range control {
		d0.SetVec(i, mu1OnControl.AtVec(i)-controlY.AtVec(i))
	}

	tau1, err := x.Config.fitEnsemble(ctx, treatedX, d1, size, 3)
	if err != nil {
		return nil, err
	}
	tau0, err := x.Config.fitEnsemble(ctx, controlX, d0, size, 4)
	if err != nil {
		return nil, err
	}
	propensity, err := x.Config.fitEnsemble(ctx, x.data.X, treatment, size, 5)
	if err != nil {
		return nil, err
	}

	tau1Pred, err := tau1.Predict(x.data.X)
	if err != nil {
		return nil, err
	}
	tau0Pred, err := tau0.Predict(x.data.X)
	if err != nil {
		return nil, err
	}
	ePred, err := propensity.Predict(x.data.X)
	if err != nil {
		return nil, err
	}

	n := x.data.Y.Len()
	effect := make([]float64, n)
	for i := 0; i < n; i++ {
		e := errors.ClipValue(ePred.AtVec(i), propensityEpsilon, 1-propensityEpsilon)
		// Weight each arm's model by the share of units it was NOT fit on,
		// so the blend leans on the model with more training support.
		effect[i] = e*tau0Pred.AtVec(i) + (1-e)*tau1Pred.AtVec(i)
	}
	return effect, nil
}

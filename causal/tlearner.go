package causal

import (
	"context"

	"gonum.org/v1/gonum/mat"
)

// TLearner fits one ensemble per treatment arm and reads the CATE off the
// difference between the two arm models evaluated on every observation.
type TLearner struct {
	metalearnerBase
}

// NewTLearner builds a T-learner. Treatment must be binary and both arms
// must be populated.
func NewTLearner(X mat.Matrix, t, y []float64, cfg ModelConfig) (*TLearner, error) {
	base, err := newMetalearnerBase("TLearner", X, t, y, cfg, true)
	if err != nil {
		return nil, err
	}
	return &TLearner{metalearnerBase: base}, nil
}

// EstimateCausalEffect returns one effect estimate per observation.
func (t *TLearner) EstimateCausalEffect(ctx context.Context) ([]float64, error) {
	size, err := t.Config.selectNeurons(ctx, t.data.X, t.data.Y, false)
	if err != nil {
		return nil, err
	}
	effect, err := t.estimateWith(ctx, t.data.T, size)
	if err != nil {
		return nil, err
	}
	return t.setEffect(effect), nil
}

func (t *TLearner) estimateWith(ctx context.Context, treatment *mat.VecDense, size int) ([]float64, error) {
	treated, control := armIndices(treatment)
	if err := checkArms("TLearner", treated, control); err != nil {
		return nil, err
	}
	mu1, mu0, err := fitArmModels(ctx, &t.Config, t.data, treated, control, size)
	if err != nil {
		return nil, err
	}
	treatedPred, err := mu1.Predict(t.data.X)
	if err != nil {
		return nil, err
	}
	controlPred, err := mu0.Predict(t.data.X)
	if err != nil {
		return nil, err
	}
	n := t.data.Y.Len()
	effect := make([]float64, n)
	for i := 0; i < n; i++ {
		effect[i] = treatedPred.AtVec(i) - controlPred.AtVec(i)
	}
	return effect, nil
}

package causal

import (
	"context"

	"gonum.org/v1/gonum/mat"
)

// SLearner fits a single ensemble on covariates plus treatment and reads the
// CATE off the difference between predictions under forced treatment and
// forced control.
type SLearner struct {
	metalearnerBase
}

// NewSLearner builds an S-learner. Treatment must be binary.
func NewSLearner(X mat.Matrix, t, y []float64, cfg ModelConfig) (*SLearner, error) {
	base, err := newMetalearnerBase("SLearner", X, t, y, cfg, true)
	if err != nil {
		return nil, err
	}
	return &SLearner{metalearnerBase: base}, nil
}

// EstimateCausalEffect returns one effect estimate per observation.
func (s *SLearner) EstimateCausalEffect(ctx context.Context) ([]float64, error) {
	design := withTreatment(s.data.X, s.data.T)
	size, err := s.Config.selectNeurons(ctx, design, s.data.Y, false)
	if err != nil {
		return nil, err
	}
	effect, err := s.estimateWith(ctx, s.data.T, size)
	if err != nil {
		return nil, err
	}
	return s.setEffect(effect), nil
}

func (s *SLearner) estimateWith(ctx context.Context, t *mat.VecDense, size int) ([]float64, error) {
	ens, err := s.Config.fitEnsemble(ctx, withTreatment(s.data.X, t), s.data.Y, size, 0)
	if err != nil {
		return nil, err
	}
	n := s.data.Y.Len()
	treatedPred, err := ens.Predict(withTreatment(s.data.X, constantVec(n, 1)))
	if err != nil {
		return nil, err
	}
	controlPred, err := ens.Predict(withTreatment(s.data.X, constantVec(n, 0)))
	if err != nil {
		return nil, err
	}
	effect := make([]float64, n)
	for i := 0; i < n; i++ {
		effect[i] = treatedPred.AtVec(i) - controlPred.AtVec(i)
	}
	return effect, nil
}

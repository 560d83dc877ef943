package elm

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// VariableType classifies a treatment or outcome vector by inspecting its
// values. The classification drives task selection (regression vs
// classification) and output clipping downstream.
type VariableType int

const (
	// Binary means every value is 0 or 1.
	Binary VariableType = iota
	// Count means every value is a non-negative integer with more than two
	// distinct values.
	Count
	// Continuous covers everything else.
	Continuous
)

func (v VariableType) String() string {
	switch v {
	case Binary:
		return "binary"
	case Count:
		return "count"
	default:
		return "continuous"
	}
}

// Nonbinary reports whether the variable takes values outside {0, 1}.
func (v VariableType) Nonbinary() bool {
	return v != Binary
}

// ClassifyVariable inspects the distinct values of y and returns its type.
func ClassifyVariable(y *mat.VecDense) VariableType {
	distinct := make(map[float64]struct{})
	allInteger := true
	allZeroOne := true

	for i := 0; i < y.Len(); i++ {
		v := y.AtVec(i)
		distinct[v] = struct{}{}
		if v != math.Trunc(v) || v < 0 {
			allInteger = false
		}
		if v != 0 && v != 1 {
			allZeroOne = false
		}
	}

	if allZeroOne && len(distinct) <= 2 {
		return Binary
	}
	if allInteger {
		return Count
	}
	return Continuous
}

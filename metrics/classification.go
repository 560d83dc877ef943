package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/causalgo/pkg/errors"
)

// ConfusionMatrix builds a k×k count matrix where entry (i, j) is the number
// of samples with actual class i and predicted class j. Labels are taken as
// non-negative integers after rounding, so probability-valued predictions can
// be scored directly.
func ConfusionMatrix(yTrue, yPred *mat.VecDense) ([][]int, error) {
	n := yTrue.Len()
	if n == 0 {
		return nil, errors.NewValueError("ConfusionMatrix", "empty vector")
	}
	if yPred.Len() != n {
		return nil, errors.NewDimensionError("ConfusionMatrix", n, yPred.Len(), 0)
	}

	maxLabel := 0
	labels := make([][2]int, n)
	for i := 0; i < n; i++ {
		actual := int(math.Round(yTrue.AtVec(i)))
		predicted := int(math.Round(yPred.AtVec(i)))
		if actual < 0 || predicted < 0 {
			return nil, errors.NewValueError("ConfusionMatrix", "labels must be non-negative")
		}
		if actual > maxLabel {
			maxLabel = actual
		}
		if predicted > maxLabel {
			maxLabel = predicted
		}
		labels[i] = [2]int{actual, predicted}
	}

	k := maxLabel + 1
	cm := make([][]int, k)
	for i := range cm {
		cm[i] = make([]int, k)
	}
	for _, lp := range labels {
		cm[lp[0]][lp[1]]++
	}
	return cm, nil
}

// Accuracy computes the fraction of predictions matching the true labels
// after rounding to the nearest integer label.
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("Accuracy", "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError("Accuracy", n, yPred.Len(), 0)
	}

	correct := 0
	for i := 0; i < n; i++ {
		if math.Round(yTrue.AtVec(i)) == math.Round(yPred.AtVec(i)) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// Precision scores the positive class over the actual-positive row of the
// confusion matrix; for more than two classes the per-class scores are
// macro-averaged. Classes absent from the denominator are skipped.
//
// Class convention: class 1 is positive, the score for class c divides the
// diagonal count by the row total (actual class c).
func Precision(yTrue, yPred *mat.VecDense) (float64, error) {
	cm, err := ConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, errors.Wrap(err, "Precision")
	}
	return classScore(cm, true), nil
}

// Recall scores the positive class over the predicted-positive column of the
// confusion matrix; for more than two classes the per-class scores are
// macro-averaged.
func Recall(yTrue, yPred *mat.VecDense) (float64, error) {
	cm, err := ConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, errors.Wrap(err, "Recall")
	}
	return classScore(cm, false), nil
}

// F1 computes the harmonic mean of Precision and Recall.
func F1(yTrue, yPred *mat.VecDense) (float64, error) {
	p, err := Precision(yTrue, yPred)
	if err != nil {
		return 0, errors.Wrap(err, "F1")
	}
	r, err := Recall(yTrue, yPred)
	if err != nil {
		return 0, errors.Wrap(err, "F1")
	}
	if p+r == 0 {
		return 0, nil
	}
	return 2 * p * r / (p + r), nil
}

// classScore computes a one-vs-rest diagonal share per class and averages
// over classes with a non-zero denominator. byRow selects the actual-class
// row as denominator, otherwise the predicted-class column.
func classScore(cm [][]int, byRow bool) float64 {
	k := len(cm)

	score := func(c int) (float64, bool) {
		var denom int
		for j := 0; j < k; j++ {
			if byRow {
				denom += cm[c][j]
			} else {
				denom += cm[j][c]
			}
		}
		if denom == 0 {
			return 0, false
		}
		return float64(cm[c][c]) / float64(denom), true
	}

	if k == 2 {
		if s, ok := score(1); ok {
			return s
		}
		return 0
	}

	var sum float64
	var counted int
	for c := 0; c < k; c++ {
		if s, ok := score(c); ok {
			sum += s
			counted++
		}
	}
	if counted == 0 {
		return 0
	}
	return sum / float64(counted)
}

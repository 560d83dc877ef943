package metrics

import (
	"math"
	"testing"
)

func TestConfusionMatrix(t *testing.T) {
	cm, err := ConfusionMatrix(vec([]float64{0, 1, 0, 0}), vec([]float64{0, 1, 1, 0}))
	if err != nil {
		t.Fatal(err)
	}
	want := [][]int{
		{2, 1},
		{0, 1},
	}
	for i := range want {
		for j := range want[i] {
			if cm[i][j] != want[i][j] {
				t.Errorf("cm[%d][%d] = %d, want %d", i, j, cm[i][j], want[i][j])
			}
		}
	}
}

func TestConfusionMatrixRoundsProbabilities(t *testing.T) {
	cm, err := ConfusionMatrix(vec([]float64{0, 1}), vec([]float64{0.2, 0.8}))
	if err != nil {
		t.Fatal(err)
	}
	if cm[0][0] != 1 || cm[1][1] != 1 {
		t.Errorf("expected diagonal counts, got %v", cm)
	}
}

func TestClassificationScores(t *testing.T) {
	yTrue := vec([]float64{0, 1, 0, 0})
	yPred := vec([]float64{0, 1, 1, 0})

	p, err := Precision(yTrue, yPred)
	if err != nil {
		t.Fatal(err)
	}
	if p != 1.0 {
		t.Errorf("Precision = %v, want 1.0", p)
	}

	r, err := Recall(yTrue, yPred)
	if err != nil {
		t.Fatal(err)
	}
	if r != 0.5 {
		t.Errorf("Recall = %v, want 0.5", r)
	}

	f1, err := F1(yTrue, yPred)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(f1-2.0/3.0) > 1e-12 {
		t.Errorf("F1 = %v, want 2/3", f1)
	}
}

func TestAccuracy(t *testing.T) {
	tests := []struct {
		name  string
		yTrue []float64
		yPred []float64
		want  float64
	}{
		{"All correct", []float64{1, 1, 1, 1}, []float64{1, 1, 1, 1}, 1},
		{"Half correct", []float64{1, 1, 1, 1}, []float64{0, 1, 1, 0}, 0.5},
		{"Probability predictions", []float64{0, 1, 1}, []float64{0.1, 0.9, 0.4}, 2.0 / 3.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Accuracy(vec(tt.yTrue), vec(tt.yPred))
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Accuracy = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMulticlassMacroAverage(t *testing.T) {
	yTrue := vec([]float64{0, 1, 2, 0, 1, 2})
	yPred := vec([]float64{0, 1, 2, 0, 1, 2})

	p, err := Precision(yTrue, yPred)
	if err != nil {
		t.Fatal(err)
	}
	r, err := Recall(yTrue, yPred)
	if err != nil {
		t.Fatal(err)
	}
	if p != 1 || r != 1 {
		t.Errorf("perfect multiclass prediction: precision %v recall %v, want 1", p, r)
	}
}

func TestClassificationErrors(t *testing.T) {
	if _, err := Accuracy(vec(nil), vec(nil)); err == nil {
		t.Error("expected error on empty input")
	}
	if _, err := ConfusionMatrix(vec([]float64{1}), vec([]float64{1, 0})); err == nil {
		t.Error("expected error on dimension mismatch")
	}
	if _, err := ConfusionMatrix(vec([]float64{-1}), vec([]float64{0})); err == nil {
		t.Error("expected error on negative label")
	}
}

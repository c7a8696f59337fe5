package nn

import (
	"math"
	"testing"

	"github.com/retrolm/retrolm/internal/tensor"
)

func mustTensor(t *testing.T, rows, cols int, data []float32) tensor.Tensor {
	t.Helper()
	m, err := tensor.FromData(rows, cols, data)
	if err != nil {
		t.Fatalf("FromData(%d, %d): %v", rows, cols, err)
	}
	return m
}

func compareValues(t *testing.T, got, want []float32, tol float32) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d want %d", len(got), len(want))
	}
	for i := range got {
		g := got[i]
		w := want[i]
		if g < w-tol || g > w+tol {
			t.Fatalf("mismatch at %d: got %v want %v±%v", i, g, w, tol)
		}
	}
}

func TestReLU(t *testing.T) {
	x := mustTensor(t, 1, 4, []float32{-5, 3, 0, -2})
	got := ReLU(x)
	compareValues(t, got.Data, []float32{0, 3, 0, 0}, 0)
	// Input untouched.
	compareValues(t, x.Data, []float32{-5, 3, 0, -2}, 0)
}

func TestSoftmaxRowsSumToOne(t *testing.T) {
	x, _ := tensor.New(5, 17)
	tensor.FillRand(&x, 21)
	x.Scale(10)
	x.Shift(-5)

	sm, err := Softmax(x)
	if err != nil {
		t.Fatalf("Softmax: %v", err)
	}
	for i := 0; i < sm.Rows; i++ {
		var sum float32
		for _, v := range sm.Row(i) {
			if v < 0 || v > 1 {
				t.Fatalf("row %d: probability %v outside [0,1]", i, v)
			}
			if math.IsNaN(float64(v)) {
				t.Fatalf("row %d: NaN for finite input", i)
			}
			sum += v
		}
		if sum < 1-1e-4 || sum > 1+1e-4 {
			t.Fatalf("row %d sums to %v, want 1", i, sum)
		}
	}
}

func TestSoftmaxShiftInvariant(t *testing.T) {
	x := mustTensor(t, 2, 4, []float32{1, 2, 3, 4, -1, 0, 1, 2})
	shifted := x.Clone()
	shifted.Shift(123.5)

	a, err := Softmax(x)
	if err != nil {
		t.Fatalf("Softmax: %v", err)
	}
	b, err := Softmax(shifted)
	if err != nil {
		t.Fatalf("Softmax shifted: %v", err)
	}
	compareValues(t, a.Data, b.Data, 1e-6)
}

func TestSoftmaxExtremeValues(t *testing.T) {
	// Large magnitudes would overflow a naive exp.
	x := mustTensor(t, 1, 3, []float32{1000, 1001, 999})
	sm, err := Softmax(x)
	if err != nil {
		t.Fatalf("Softmax: %v", err)
	}
	var sum float32
	for _, v := range sm.Data {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("non-finite probability %v", v)
		}
		sum += v
	}
	if sum < 1-1e-4 || sum > 1+1e-4 {
		t.Fatalf("probabilities sum to %v, want 1", sum)
	}
	if sm.Data[1] <= sm.Data[0] || sm.Data[1] <= sm.Data[2] {
		t.Fatal("largest logit did not receive the largest probability")
	}
}

func TestSoftmaxUniform(t *testing.T) {
	x := mustTensor(t, 1, 4, []float32{3, 3, 3, 3})
	sm, err := Softmax(x)
	if err != nil {
		t.Fatalf("Softmax: %v", err)
	}
	compareValues(t, sm.Data, []float32{0.25, 0.25, 0.25, 0.25}, 1e-6)
}

package tensor

import (
	"errors"
	"math"
	"testing"
)

func mustNew(t *testing.T, rows, cols int, data []float32) Tensor {
	t.Helper()
	m, err := FromData(rows, cols, data)
	if err != nil {
		t.Fatalf("FromData(%d, %d): %v", rows, cols, err)
	}
	return m
}

func compareTensor(t *testing.T, got Tensor, rows, cols int, want []float32, tol float32) {
	t.Helper()
	if got.Rows != rows || got.Cols != cols {
		t.Fatalf("shape mismatch: got %dx%d want %dx%d", got.Rows, got.Cols, rows, cols)
	}
	for i := range want {
		g := got.Data[i]
		w := want[i]
		if g < w-tol || g > w+tol {
			t.Fatalf("mismatch at %d: got %v want %v±%v", i, g, w, tol)
		}
	}
}

func TestNewRejectsZeroDims(t *testing.T) {
	cases := []struct{ rows, cols int }{
		{0, 4}, {4, 0}, {0, 0}, {-1, 3},
	}
	for _, tc := range cases {
		if _, err := New(tc.rows, tc.cols); !errors.Is(err, ErrInvalidShape) {
			t.Errorf("New(%d, %d): want ErrInvalidShape, got %v", tc.rows, tc.cols, err)
		}
	}
	m, err := New(3, 2)
	if err != nil {
		t.Fatalf("New(3, 2): %v", err)
	}
	for i, v := range m.Data {
		if v != 0 {
			t.Fatalf("element %d not zero-initialised: %v", i, v)
		}
	}
}

func TestAtSetPanicOutOfRange(t *testing.T) {
	m := mustNew(t, 2, 2, []float32{1, 2, 3, 4})
	if got := m.At(1, 1); got != 4 {
		t.Fatalf("At(1,1) = %v, want 4", got)
	}
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic on out-of-range access")
		}
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrIndexOutOfRange) {
			t.Fatalf("panic value %v, want ErrIndexOutOfRange", r)
		}
	}()
	m.At(2, 0)
}

func TestCloneIsIndependent(t *testing.T) {
	m := mustNew(t, 2, 2, []float32{1, 2, 3, 4})
	c := m.Clone()
	c.Data[0] = 99
	if m.Data[0] != 1 {
		t.Fatal("Clone aliases the source buffer")
	}
}

func TestScaleShift(t *testing.T) {
	m := mustNew(t, 1, 3, []float32{1, 2, 3})
	m.Scale(2)
	m.Shift(10)
	compareTensor(t, m, 1, 3, []float32{12, 14, 16}, 0)
}

func TestMaskUpperTriangle(t *testing.T) {
	m := mustNew(t, 3, 3, []float32{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	})
	neg := float32(math.Inf(-1))
	m.MaskUpperTriangle(neg)
	compareTensor(t, m, 3, 3, []float32{
		1, neg, neg,
		4, 5, neg,
		7, 8, 9,
	}, 0)
}

func TestMaskAboveDiagonalOffset(t *testing.T) {
	// Two new rows resuming after three cached positions: row i may see
	// columns up to 3+i.
	m := mustNew(t, 2, 5, []float32{
		1, 1, 1, 1, 1,
		1, 1, 1, 1, 1,
	})
	m.MaskAboveDiagonal(3, 0)
	compareTensor(t, m, 2, 5, []float32{
		1, 1, 1, 1, 0,
		1, 1, 1, 1, 1,
	}, 0)
}

func TestFillRandDeterministic(t *testing.T) {
	a, _ := New(4, 4)
	b, _ := New(4, 4)
	FillRand(&a, 7)
	FillRand(&b, 7)
	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			t.Fatal("FillRand not reproducible for equal seeds")
		}
		if a.Data[i] < 0 || a.Data[i] >= 1 {
			t.Fatalf("FillRand value %v outside [0,1)", a.Data[i])
		}
	}
}

func TestIndexRowAndArange(t *testing.T) {
	idx, err := IndexRow([]uint32{5, 1, 3})
	if err != nil {
		t.Fatalf("IndexRow: %v", err)
	}
	if idx.Rows != 1 || idx.Cols != 3 || idx.Data[0] != 5 {
		t.Fatalf("unexpected index tensor: %+v", idx)
	}

	pos, err := Arange(4, 3)
	if err != nil {
		t.Fatalf("Arange: %v", err)
	}
	for i, want := range []uint32{4, 5, 6} {
		if pos.Data[i] != want {
			t.Fatalf("Arange[%d] = %d, want %d", i, pos.Data[i], want)
		}
	}

	if _, err := NewIndex(0, 3); !errors.Is(err, ErrInvalidShape) {
		t.Errorf("NewIndex(0, 3): want ErrInvalidShape, got %v", err)
	}
}

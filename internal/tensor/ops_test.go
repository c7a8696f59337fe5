package tensor

import (
	"errors"
	"math"
	"testing"
)

func TestMatMul(t *testing.T) {
	a := mustNew(t, 2, 3, []float32{1, 2, 3, 4, 5, 6})
	b := mustNew(t, 3, 2, []float32{7, 8, 9, 10, 11, 12})
	res, err := MatMul(a, b)
	if err != nil {
		t.Fatalf("MatMul: %v", err)
	}
	compareTensor(t, res, 2, 2, []float32{58, 64, 139, 154}, 0)
}

func TestMatMulDimensionMismatch(t *testing.T) {
	a := mustNew(t, 2, 3, make([]float32, 6))
	b := mustNew(t, 2, 2, make([]float32, 4))
	if _, err := MatMul(a, b); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("want ErrDimensionMismatch, got %v", err)
	}
}

func TestAddBroadcast(t *testing.T) {
	a := mustNew(t, 2, 3, []float32{1, 2, 3, 4, 5, 6})

	tests := []struct {
		name string
		b    Tensor
		want []float32
	}{
		{"elementwise", mustNew(t, 2, 3, []float32{1, 1, 1, 2, 2, 2}), []float32{2, 3, 4, 6, 7, 8}},
		{"row", mustNew(t, 1, 3, []float32{10, 20, 30}), []float32{11, 22, 33, 14, 25, 36}},
		{"column", mustNew(t, 2, 1, []float32{100, 200}), []float32{101, 102, 103, 204, 205, 206}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Add(a, tc.b)
			if err != nil {
				t.Fatalf("Add: %v", err)
			}
			compareTensor(t, res, 2, 3, tc.want, 0)
		})
	}

	// Broadcasting never mutates the left operand.
	compareTensor(t, a, 2, 3, []float32{1, 2, 3, 4, 5, 6}, 0)
}

func TestAddBroadcastError(t *testing.T) {
	a := mustNew(t, 2, 3, make([]float32, 6))
	for _, b := range []Tensor{
		mustNew(t, 3, 3, make([]float32, 9)),
		mustNew(t, 1, 2, make([]float32, 2)),
		mustNew(t, 3, 1, make([]float32, 3)),
	} {
		if _, err := Add(a, b); !errors.Is(err, ErrBroadcast) {
			t.Errorf("Add with %dx%d: want ErrBroadcast, got %v", b.Rows, b.Cols, err)
		}
	}
}

func TestSubDiv(t *testing.T) {
	a := mustNew(t, 2, 2, []float32{10, 20, 30, 40})
	row := mustNew(t, 1, 2, []float32{1, 2})
	col := mustNew(t, 2, 1, []float32{10, 10})

	res, err := Sub(a, row)
	if err != nil {
		t.Fatalf("Sub: %v", err)
	}
	compareTensor(t, res, 2, 2, []float32{9, 18, 29, 38}, 0)

	res, err = Div(a, col)
	if err != nil {
		t.Fatalf("Div: %v", err)
	}
	compareTensor(t, res, 2, 2, []float32{1, 2, 3, 4}, 0)
}

func TestExp(t *testing.T) {
	a := mustNew(t, 1, 3, []float32{0, 1, -1})
	res := Exp(a)
	want := []float32{1, float32(math.E), float32(1 / math.E)}
	compareTensor(t, res, 1, 3, want, 1e-6)
}

func TestSumMax(t *testing.T) {
	a := mustNew(t, 2, 3, []float32{1, 5, 3, 4, 2, 6})

	colSum, err := Sum(a, 0)
	if err != nil {
		t.Fatalf("Sum(0): %v", err)
	}
	compareTensor(t, colSum, 1, 3, []float32{5, 7, 9}, 0)

	rowSum, err := Sum(a, 1)
	if err != nil {
		t.Fatalf("Sum(1): %v", err)
	}
	compareTensor(t, rowSum, 2, 1, []float32{9, 12}, 0)

	colMax, err := Max(a, 0)
	if err != nil {
		t.Fatalf("Max(0): %v", err)
	}
	compareTensor(t, colMax, 1, 3, []float32{4, 5, 6}, 0)

	rowMax, err := Max(a, 1)
	if err != nil {
		t.Fatalf("Max(1): %v", err)
	}
	compareTensor(t, rowMax, 2, 1, []float32{5, 6}, 0)

	if _, err := Sum(a, 2); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Sum(2): want ErrInvalidArgument, got %v", err)
	}
	if _, err := Max(a, -1); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Max(-1): want ErrInvalidArgument, got %v", err)
	}
}

func TestTransposeRoundTrip(t *testing.T) {
	a, _ := New(70, 130) // spans multiple transpose tiles
	FillRand(&a, 3)
	b := Transpose(a)
	if b.Rows != 130 || b.Cols != 70 {
		t.Fatalf("transpose shape %dx%d", b.Rows, b.Cols)
	}
	if got := b.At(129, 69); got != a.At(69, 129) {
		t.Fatalf("transpose element mismatch: %v vs %v", got, a.At(69, 129))
	}
	rt := Transpose(b)
	compareTensor(t, rt, a.Rows, a.Cols, a.Data, 0)
}

func TestIdentity(t *testing.T) {
	id, err := Identity(4)
	if err != nil {
		t.Fatalf("Identity: %v", err)
	}
	a, _ := New(4, 4)
	FillRand(&a, 9)
	res, err := MatMul(a, id)
	if err != nil {
		t.Fatalf("MatMul: %v", err)
	}
	compareTensor(t, res, 4, 4, a.Data, 1e-6)
}

func TestClamp(t *testing.T) {
	a := mustNew(t, 1, 4, []float32{-5, 3, 0, -2})

	lo := ClampMin(a, 0)
	compareTensor(t, lo, 1, 4, []float32{0, 3, 0, 0}, 0)

	hi := ClampMax(a, 1)
	compareTensor(t, hi, 1, 4, []float32{-5, 1, 0, -2}, 0)

	both, err := Clamp(a, -1, 1)
	if err != nil {
		t.Fatalf("Clamp: %v", err)
	}
	compareTensor(t, both, 1, 4, []float32{-1, 1, 0, -1}, 0)

	if _, err := Clamp(a, 1, 1); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Clamp(1, 1): want ErrInvalidArgument, got %v", err)
	}

	// Clamp variants copy; the source stays untouched.
	compareTensor(t, a, 1, 4, []float32{-5, 3, 0, -2}, 0)
}

func TestSelectRows(t *testing.T) {
	table := mustNew(t, 4, 2, []float32{
		0, 1,
		10, 11,
		20, 21,
		30, 31,
	})

	idx, _ := IndexRow([]uint32{0, 2, 3})
	res, err := SelectRows(table, idx)
	if err != nil {
		t.Fatalf("SelectRows: %v", err)
	}
	compareTensor(t, res, 3, 2, []float32{0, 1, 20, 21, 30, 31}, 0)

	bad, _ := IndexRow([]uint32{4})
	if _, err := SelectRows(table, bad); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("index 4 of 4: want ErrIndexOutOfRange, got %v", err)
	}

	tooMany, _ := IndexRow([]uint32{0, 1, 2, 3, 0})
	if _, err := SelectRows(table, tooMany); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("5 indices of 4 rows: want ErrInvalidArgument, got %v", err)
	}

	twoRows, _ := NewIndex(2, 1)
	if _, err := SelectRows(table, twoRows); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("2-row index tensor: want ErrInvalidArgument, got %v", err)
	}
}

func TestVStack(t *testing.T) {
	a := mustNew(t, 2, 2, []float32{1, 2, 3, 4})
	b := mustNew(t, 1, 2, []float32{5, 6})

	res, err := VStack(a, b)
	if err != nil {
		t.Fatalf("VStack: %v", err)
	}
	compareTensor(t, res, 3, 2, []float32{1, 2, 3, 4, 5, 6}, 0)

	fromEmpty, err := VStack(Empty(2), b)
	if err != nil {
		t.Fatalf("VStack(empty, b): %v", err)
	}
	compareTensor(t, fromEmpty, 1, 2, []float32{5, 6}, 0)
	fromEmpty.Data[0] = 42
	if b.Data[0] != 5 {
		t.Fatal("VStack result aliases its operand")
	}

	ontoEmpty, err := VStack(a, Empty(2))
	if err != nil {
		t.Fatalf("VStack(a, empty): %v", err)
	}
	compareTensor(t, ontoEmpty, 2, 2, a.Data, 0)

	wide := mustNew(t, 1, 3, []float32{1, 2, 3})
	if _, err := VStack(a, wide); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("mismatched columns: want ErrDimensionMismatch, got %v", err)
	}
}

func BenchmarkMatMul(b *testing.B) {
	x, _ := New(64, 64)
	y, _ := New(64, 64)
	FillRand(&x, 1)
	FillRand(&y, 2)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := MatMul(x, y); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkTranspose(b *testing.B) {
	x, _ := New(256, 256)
	FillRand(&x, 1)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Transpose(x)
	}
}

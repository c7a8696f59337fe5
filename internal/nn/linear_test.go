package nn

import (
	"errors"
	"testing"

	"github.com/retrolm/retrolm/internal/tensor"
)

func TestLinearForward(t *testing.T) {
	// 3 in, 2 out. Weights stored out x in.
	l, err := NewLinear(3, 2)
	if err != nil {
		t.Fatalf("NewLinear: %v", err)
	}
	copy(l.Weights.Data, []float32{
		1, 0, 1,
		0, 2, 0,
	})
	copy(l.Bias.Data, []float32{10, 20})

	x := mustTensor(t, 2, 3, []float32{
		1, 2, 3,
		4, 5, 6,
	})
	y, err := l.Forward(x)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	// row0: [1+3, 2*2] + bias, row1: [4+6, 2*5] + bias
	compareValues(t, y.Data, []float32{14, 24, 20, 30}, 1e-6)
}

func TestLinearForwardDimensionMismatch(t *testing.T) {
	l, _ := NewLinear(3, 2)
	x, _ := tensor.New(2, 4)
	if _, err := l.Forward(x); !errors.Is(err, tensor.ErrDimensionMismatch) {
		t.Fatalf("want ErrDimensionMismatch, got %v", err)
	}
}

func TestLinearBiasBroadcast(t *testing.T) {
	l, _ := NewLinear(2, 2)
	copy(l.Bias.Data, []float32{1, -1})
	x, _ := tensor.New(3, 2) // zeros, so output is bias alone
	y, err := l.Forward(x)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	compareValues(t, y.Data, []float32{1, -1, 1, -1, 1, -1}, 0)
}

func TestLinearCloneIndependent(t *testing.T) {
	l, _ := NewLinear(2, 2)
	l.FillRand(5)
	c := l.Clone()
	c.Weights.Data[0] += 1
	if l.Weights.Data[0] == c.Weights.Data[0] {
		t.Fatal("Clone aliases weight storage")
	}
}

func TestEmbeddingForward(t *testing.T) {
	e, err := NewEmbedding(4, 2)
	if err != nil {
		t.Fatalf("NewEmbedding: %v", err)
	}
	copy(e.Table.Data, []float32{
		0, 1,
		10, 11,
		20, 21,
		30, 31,
	})

	idx, _ := tensor.IndexRow([]uint32{3, 0, 2})
	out, err := e.Forward(idx)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	compareValues(t, out.Data, []float32{30, 31, 0, 1, 20, 21}, 0)

	bad, _ := tensor.IndexRow([]uint32{4})
	if _, err := e.Forward(bad); !errors.Is(err, tensor.ErrIndexOutOfRange) {
		t.Fatalf("want ErrIndexOutOfRange, got %v", err)
	}
}

package tensor

import (
	"fmt"
	"math/rand"
	"strings"
)

// Tensor is a dense row-major matrix of float32 values. Every Tensor
// exclusively owns its backing slice: operations that produce a new Tensor
// allocate fresh storage and never alias their inputs.
//
// A Tensor constructed through New always has Rows >= 1 and Cols >= 1.
// The zero value and tensors built with Empty have zero rows; they are only
// meaningful as attention-cache operands of VStack.
type Tensor struct {
	Rows, Cols int
	Data       []float32
}

// New allocates a zero-filled tensor. Either dimension being less than one
// fails with ErrInvalidShape.
func New(rows, cols int) (Tensor, error) {
	if rows <= 0 || cols <= 0 {
		return Tensor{}, fmt.Errorf("%w: %dx%d", ErrInvalidShape, rows, cols)
	}
	return Tensor{Rows: rows, Cols: cols, Data: make([]float32, rows*cols)}, nil
}

// FromData builds a tensor around a copy of data. The length must equal
// rows*cols.
func FromData(rows, cols int, data []float32) (Tensor, error) {
	t, err := New(rows, cols)
	if err != nil {
		return Tensor{}, err
	}
	if len(data) != rows*cols {
		return Tensor{}, fmt.Errorf("%w: %d values for %dx%d", ErrInvalidShape, len(data), rows, cols)
	}
	copy(t.Data, data)
	return t, nil
}

// Empty returns a tensor with zero rows and the given column count. It holds
// no data and is the initial state of an attention cache.
func Empty(cols int) Tensor {
	return Tensor{Rows: 0, Cols: cols}
}

// IsEmpty reports whether the tensor holds no rows.
func (t Tensor) IsEmpty() bool { return t.Rows == 0 }

// At returns the element at (i, j). It panics with ErrIndexOutOfRange if the
// linear index falls outside the buffer, mirroring slice indexing semantics.
func (t Tensor) At(i, j int) float32 {
	idx := i*t.Cols + j
	if i < 0 || j < 0 || idx >= t.Rows*t.Cols {
		panic(fmt.Errorf("%w: (%d,%d) in %dx%d", ErrIndexOutOfRange, i, j, t.Rows, t.Cols))
	}
	return t.Data[idx]
}

// Set writes the element at (i, j), panicking like At on a bad index.
func (t Tensor) Set(i, j int, v float32) {
	idx := i*t.Cols + j
	if i < 0 || j < 0 || idx >= t.Rows*t.Cols {
		panic(fmt.Errorf("%w: (%d,%d) in %dx%d", ErrIndexOutOfRange, i, j, t.Rows, t.Cols))
	}
	t.Data[idx] = v
}

// Row returns a view of the i-th row. Writes through the view mutate the
// tensor.
func (t Tensor) Row(i int) []float32 {
	if i < 0 || i >= t.Rows {
		panic(fmt.Errorf("%w: row %d of %d", ErrIndexOutOfRange, i, t.Rows))
	}
	start := i * t.Cols
	return t.Data[start : start+t.Cols]
}

// Clone returns a deep, independent copy.
func (t Tensor) Clone() Tensor {
	c := Tensor{Rows: t.Rows, Cols: t.Cols}
	if len(t.Data) > 0 {
		c.Data = make([]float32, len(t.Data))
		copy(c.Data, t.Data)
	}
	return c
}

// Scale multiplies every element by alpha in place.
func (t *Tensor) Scale(alpha float32) {
	scale(t.Data, alpha)
}

// Shift adds beta to every element in place.
func (t *Tensor) Shift(beta float32) {
	shift(t.Data, beta)
}

// MaskUpperTriangle sets every element strictly above the main diagonal to v
// in place. With v = -Inf this is the causal mask for a full-prompt pass.
func (t *Tensor) MaskUpperTriangle(v float32) {
	t.MaskAboveDiagonal(0, v)
}

// MaskAboveDiagonal sets every element (i, j) with j > i+k to v in place.
// Incremental attention uses k equal to the cached-row count so masking
// follows absolute sequence positions rather than the local block.
func (t *Tensor) MaskAboveDiagonal(k int, v float32) {
	for i := 0; i < t.Rows; i++ {
		row := t.Data[i*t.Cols : (i+1)*t.Cols]
		for j := i + k + 1; j < t.Cols; j++ {
			row[j] = v
		}
	}
}

// FillRand fills the tensor with reproducible pseudo-random values in [0, 1).
// The same seed always produces the same tensor.
func FillRand(t *Tensor, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	for i := range t.Data {
		t.Data[i] = rng.Float32()
	}
}

// String renders the tensor one row per line, matching the layout used by
// the debug print helpers in cmd.
func (t Tensor) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%dx%d\n", t.Rows, t.Cols)
	for i := 0; i < t.Rows; i++ {
		row := t.Data[i*t.Cols : (i+1)*t.Cols]
		for j, v := range row {
			if j > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%f", v)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

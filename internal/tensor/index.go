package tensor

import "fmt"

// IndexTensor is the integer counterpart of Tensor, used for token ids and
// position ids. A single row is the canonical shape for one sequence.
type IndexTensor struct {
	Rows, Cols int
	Data       []uint32
}

// NewIndex allocates a zero-filled index tensor with the same shape rules as
// New.
func NewIndex(rows, cols int) (IndexTensor, error) {
	if rows <= 0 || cols <= 0 {
		return IndexTensor{}, fmt.Errorf("%w: %dx%d", ErrInvalidShape, rows, cols)
	}
	return IndexTensor{Rows: rows, Cols: cols, Data: make([]uint32, rows*cols)}, nil
}

// IndexRow builds a 1 x len(ids) row vector from ids.
func IndexRow(ids []uint32) (IndexTensor, error) {
	t, err := NewIndex(1, len(ids))
	if err != nil {
		return IndexTensor{}, err
	}
	copy(t.Data, ids)
	return t, nil
}

// Arange returns the row vector [start, start+1, ..., start+n-1].
func Arange(start uint32, n int) (IndexTensor, error) {
	t, err := NewIndex(1, n)
	if err != nil {
		return IndexTensor{}, err
	}
	for i := range t.Data {
		t.Data[i] = start + uint32(i)
	}
	return t, nil
}

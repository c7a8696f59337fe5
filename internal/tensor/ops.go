package tensor

import "fmt"

// MatMul returns the matrix product of a (r1 x c1) and b (c1 x c2). It fails
// with ErrDimensionMismatch when the shared dimension disagrees.
func MatMul(a, b Tensor) (Tensor, error) {
	if a.Cols != b.Rows {
		return Tensor{}, fmt.Errorf("%w: multiply %dx%d by %dx%d", ErrDimensionMismatch, a.Rows, a.Cols, b.Rows, b.Cols)
	}
	res, err := New(a.Rows, b.Cols)
	if err != nil {
		return Tensor{}, err
	}
	matmul(a.Data, b.Data, res.Data, a.Rows, a.Cols, b.Cols)
	return res, nil
}

// broadcastMode classifies b against a: equal shape, single-row broadcast or
// single-column broadcast. Anything else fails with ErrBroadcast.
func broadcastMode(a, b Tensor) (int, error) {
	switch {
	case a.Rows == b.Rows && a.Cols == b.Cols:
		return 0, nil
	case b.Rows == 1 && b.Cols == a.Cols:
		return 1, nil
	case b.Cols == 1 && b.Rows == a.Rows:
		return 2, nil
	}
	return 0, fmt.Errorf("%w: %dx%d with %dx%d", ErrBroadcast, a.Rows, a.Cols, b.Rows, b.Cols)
}

// Add returns a + b elementwise. b may also be a single row (replicated down
// the rows) or a single column (replicated across the columns). a is never
// mutated.
func Add(a, b Tensor) (Tensor, error) {
	mode, err := broadcastMode(a, b)
	if err != nil {
		return Tensor{}, err
	}
	res, err := New(a.Rows, a.Cols)
	if err != nil {
		return Tensor{}, err
	}
	switch mode {
	case 0:
		addElem(a.Data, b.Data, res.Data)
	case 1:
		addRowBroadcast(a.Data, b.Data, res.Data, a.Rows, a.Cols)
	default:
		addColBroadcast(a.Data, b.Data, res.Data, a.Rows, a.Cols)
	}
	return res, nil
}

// Sub returns a - b with the same broadcasting rules as Add.
func Sub(a, b Tensor) (Tensor, error) {
	mode, err := broadcastMode(a, b)
	if err != nil {
		return Tensor{}, err
	}
	res, err := New(a.Rows, a.Cols)
	if err != nil {
		return Tensor{}, err
	}
	switch mode {
	case 0:
		subElem(a.Data, b.Data, res.Data)
	case 1:
		subRowBroadcast(a.Data, b.Data, res.Data, a.Rows, a.Cols)
	default:
		subColBroadcast(a.Data, b.Data, res.Data, a.Rows, a.Cols)
	}
	return res, nil
}

// Div returns a / b with the same broadcasting rules as Add.
func Div(a, b Tensor) (Tensor, error) {
	mode, err := broadcastMode(a, b)
	if err != nil {
		return Tensor{}, err
	}
	res, err := New(a.Rows, a.Cols)
	if err != nil {
		return Tensor{}, err
	}
	switch mode {
	case 0:
		divElem(a.Data, b.Data, res.Data)
	case 1:
		divRowBroadcast(a.Data, b.Data, res.Data, a.Rows, a.Cols)
	default:
		divColBroadcast(a.Data, b.Data, res.Data, a.Rows, a.Cols)
	}
	return res, nil
}

// Exp returns the elementwise exponential of a.
func Exp(a Tensor) Tensor {
	res := a.Clone()
	expElem(a.Data, res.Data)
	return res
}

// Sum reduces the tensor along dim: 0 collapses down the columns giving a
// 1 x cols row, 1 collapses across the rows giving a rows x 1 column. Any
// other dim fails with ErrInvalidArgument.
func Sum(a Tensor, dim int) (Tensor, error) {
	switch dim {
	case 0:
		res, err := New(1, a.Cols)
		if err != nil {
			return Tensor{}, err
		}
		sumColwise(a.Data, res.Data, a.Rows, a.Cols)
		return res, nil
	case 1:
		res, err := New(a.Rows, 1)
		if err != nil {
			return Tensor{}, err
		}
		sumRowwise(a.Data, res.Data, a.Rows, a.Cols)
		return res, nil
	}
	return Tensor{}, fmt.Errorf("%w: reduction dim %d", ErrInvalidArgument, dim)
}

// Max reduces like Sum but keeps the maximum instead of the total.
func Max(a Tensor, dim int) (Tensor, error) {
	switch dim {
	case 0:
		res, err := New(1, a.Cols)
		if err != nil {
			return Tensor{}, err
		}
		maxColwise(a.Data, res.Data, a.Rows, a.Cols)
		return res, nil
	case 1:
		res, err := New(a.Rows, 1)
		if err != nil {
			return Tensor{}, err
		}
		maxRowwise(a.Data, res.Data, a.Rows, a.Cols)
		return res, nil
	}
	return Tensor{}, fmt.Errorf("%w: reduction dim %d", ErrInvalidArgument, dim)
}

// Transpose returns a new cols x rows tensor.
func Transpose(a Tensor) Tensor {
	res := Tensor{Rows: a.Cols, Cols: a.Rows, Data: make([]float32, len(a.Data))}
	transpose(a.Data, res.Data, a.Rows, a.Cols)
	return res
}

// Identity returns the n x n identity matrix.
func Identity(n int) (Tensor, error) {
	res, err := New(n, n)
	if err != nil {
		return Tensor{}, err
	}
	for i := 0; i < n; i++ {
		res.Data[i*n+i] = 1
	}
	return res, nil
}

// Clamp returns a copy of a bounded to [lo, hi]. lo >= hi fails with
// ErrInvalidArgument.
func Clamp(a Tensor, lo, hi float32) (Tensor, error) {
	if lo >= hi {
		return Tensor{}, fmt.Errorf("%w: clamp bounds %g >= %g", ErrInvalidArgument, lo, hi)
	}
	res := a.Clone()
	clampMin(res.Data, lo)
	clampMax(res.Data, hi)
	return res, nil
}

// ClampMin returns a copy of a with every element raised to at least lo.
func ClampMin(a Tensor, lo float32) Tensor {
	res := a.Clone()
	clampMin(res.Data, lo)
	return res
}

// ClampMax returns a copy of a with every element lowered to at most hi.
func ClampMax(a Tensor, hi float32) Tensor {
	res := a.Clone()
	clampMax(res.Data, hi)
	return res
}

// SelectRows gathers rows of a in the order given by indices, which must be a
// single row. An index beyond the row count fails with ErrIndexOutOfRange;
// requesting more indices than a has rows fails with ErrInvalidArgument.
func SelectRows(a Tensor, indices IndexTensor) (Tensor, error) {
	if indices.Rows != 1 {
		return Tensor{}, fmt.Errorf("%w: index tensor must be a single row, got %d", ErrInvalidArgument, indices.Rows)
	}
	n := indices.Cols
	if n > a.Rows {
		return Tensor{}, fmt.Errorf("%w: %d indices for %d rows", ErrInvalidArgument, n, a.Rows)
	}
	for _, idx := range indices.Data {
		if int(idx) >= a.Rows {
			return Tensor{}, fmt.Errorf("%w: row %d of %d", ErrIndexOutOfRange, idx, a.Rows)
		}
	}
	res, err := New(n, a.Cols)
	if err != nil {
		return Tensor{}, err
	}
	for i, idx := range indices.Data {
		copy(res.Data[i*a.Cols:(i+1)*a.Cols], a.Data[int(idx)*a.Cols:(int(idx)+1)*a.Cols])
	}
	return res, nil
}

// VStack concatenates a on top of b. Both operands must share a column count;
// a zero-row operand contributes nothing, so stacking onto an empty cache
// returns a copy of the other operand.
func VStack(a, b Tensor) (Tensor, error) {
	if a.IsEmpty() {
		return b.Clone(), nil
	}
	if b.IsEmpty() {
		return a.Clone(), nil
	}
	if a.Cols != b.Cols {
		return Tensor{}, fmt.Errorf("%w: vstack %dx%d onto %dx%d", ErrDimensionMismatch, b.Rows, b.Cols, a.Rows, a.Cols)
	}
	res, err := New(a.Rows+b.Rows, a.Cols)
	if err != nil {
		return Tensor{}, err
	}
	copy(res.Data, a.Data)
	copy(res.Data[len(a.Data):], b.Data)
	return res, nil
}

package tensor

import "errors"

// Sentinel errors returned by tensor operations. Callers match them with
// errors.Is; operations wrap them with shape context via fmt.Errorf.
var (
	// ErrInvalidShape reports a zero or malformed tensor dimension.
	ErrInvalidShape = errors.New("tensor: invalid shape")
	// ErrDimensionMismatch reports incompatible operand shapes for
	// multiply, affine projection or vertical stacking.
	ErrDimensionMismatch = errors.New("tensor: dimension mismatch")
	// ErrBroadcast reports a shape that is neither equal to the left
	// operand nor a single row or single column of matching extent.
	ErrBroadcast = errors.New("tensor: broadcast shape mismatch")
	// ErrIndexOutOfRange reports an element or row-gather index beyond
	// the tensor bounds.
	ErrIndexOutOfRange = errors.New("tensor: index out of range")
	// ErrInvalidArgument reports an argument outside its valid domain,
	// such as a reduction dimension not in {0, 1}.
	ErrInvalidArgument = errors.New("tensor: invalid argument")
)

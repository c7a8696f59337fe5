package nn

import (
	"fmt"

	"github.com/retrolm/retrolm/internal/tensor"
)

// Linear is a learned affine projection y = x·Wᵗ + b. Weights is stored
// out x in (the transposed layout the exporter writes), Bias is 1 x out.
type Linear struct {
	Weights tensor.Tensor
	Bias    tensor.Tensor
}

// NewLinear allocates a zero-initialised projection from in to out features.
func NewLinear(in, out int) (Linear, error) {
	w, err := tensor.New(out, in)
	if err != nil {
		return Linear{}, fmt.Errorf("linear weights: %w", err)
	}
	b, err := tensor.New(1, out)
	if err != nil {
		return Linear{}, fmt.Errorf("linear bias: %w", err)
	}
	return Linear{Weights: w, Bias: b}, nil
}

// InFeatures returns the expected input width.
func (l Linear) InFeatures() int { return l.Weights.Cols }

// OutFeatures returns the output width.
func (l Linear) OutFeatures() int { return l.Weights.Rows }

// Clone returns a deep copy of the parameters.
func (l Linear) Clone() Linear {
	return Linear{Weights: l.Weights.Clone(), Bias: l.Bias.Clone()}
}

// FillRand seeds the weights and bias with reproducible pseudo-random values.
func (l *Linear) FillRand(seed int64) {
	tensor.FillRand(&l.Weights, seed)
	tensor.FillRand(&l.Bias, seed+1)
}

// Forward applies the projection to every row of x. It fails with
// ErrDimensionMismatch when x's width differs from the weight width; the
// bias row broadcasts across the rows of the product.
func (l Linear) Forward(x tensor.Tensor) (tensor.Tensor, error) {
	if x.Cols != l.Weights.Cols {
		return tensor.Tensor{}, fmt.Errorf("%w: input width %d, weight width %d",
			tensor.ErrDimensionMismatch, x.Cols, l.Weights.Cols)
	}
	wt := tensor.Transpose(l.Weights)
	product, err := tensor.MatMul(x, wt)
	if err != nil {
		return tensor.Tensor{}, err
	}
	return tensor.Add(product, l.Bias)
}

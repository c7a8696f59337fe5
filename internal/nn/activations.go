// Package nn provides the layer primitives of the transformer: activations,
// affine projection, embedding lookup and causal self-attention with an
// incremental key/value cache. Layers are pure: parameters are immutable
// during inference and every forward call returns freshly owned tensors.
package nn

import (
	"github.com/retrolm/retrolm/internal/tensor"
)

// ReLU returns max(0, x) elementwise.
func ReLU(x tensor.Tensor) tensor.Tensor {
	return tensor.ClampMin(x, 0)
}

// Softmax normalizes each row of x into a probability distribution. The
// per-row maximum is subtracted before exponentiation so finite inputs can
// never overflow to NaN.
func Softmax(x tensor.Tensor) (tensor.Tensor, error) {
	rowMax, err := tensor.Max(x, 1)
	if err != nil {
		return tensor.Tensor{}, err
	}
	shifted, err := tensor.Sub(x, rowMax)
	if err != nil {
		return tensor.Tensor{}, err
	}
	exp := tensor.Exp(shifted)
	rowSum, err := tensor.Sum(exp, 1)
	if err != nil {
		return tensor.Tensor{}, err
	}
	return tensor.Div(exp, rowSum)
}

package nn

import (
	"fmt"
	"math"

	"github.com/retrolm/retrolm/internal/tensor"
)

// Attention holds the four projections of single-head causal self-attention.
// All are embed x embed.
type Attention struct {
	Wq, Wk, Wv, Wo Linear
}

// Cache accumulates the key and value projections of every token a sequence
// has processed so far. It starts with zero rows and grows by the number of
// new tokens on each Forward call. One cache belongs to exactly one
// generation session and must not be shared across goroutines.
type Cache struct {
	Keys   tensor.Tensor
	Values tensor.Tensor
}

// NewCache returns an empty cache for sequences with the given embedding
// width.
func NewCache(embedDim int) *Cache {
	return &Cache{
		Keys:   tensor.Empty(embedDim),
		Values: tensor.Empty(embedDim),
	}
}

// Len returns the number of cached token positions.
func (c *Cache) Len() int { return c.Keys.Rows }

// Reset drops all cached rows, returning the cache to its initial state.
func (c *Cache) Reset() {
	cols := c.Keys.Cols
	c.Keys = tensor.Empty(cols)
	c.Values = tensor.Empty(cols)
}

// NewAttention allocates zero-initialised attention parameters for the given
// embedding width.
func NewAttention(embedDim int) (Attention, error) {
	var (
		a   Attention
		err error
	)
	if a.Wq, err = NewLinear(embedDim, embedDim); err != nil {
		return Attention{}, err
	}
	if a.Wk, err = NewLinear(embedDim, embedDim); err != nil {
		return Attention{}, err
	}
	if a.Wv, err = NewLinear(embedDim, embedDim); err != nil {
		return Attention{}, err
	}
	if a.Wo, err = NewLinear(embedDim, embedDim); err != nil {
		return Attention{}, err
	}
	return a, nil
}

// EmbedDim returns the embedding width the projections operate on.
func (a Attention) EmbedDim() int { return a.Wq.Weights.Rows }

// Clone returns a deep copy of all four projections.
func (a Attention) Clone() Attention {
	return Attention{
		Wq: a.Wq.Clone(),
		Wk: a.Wk.Clone(),
		Wv: a.Wv.Clone(),
		Wo: a.Wo.Clone(),
	}
}

// FillRand seeds all projections with reproducible pseudo-random values.
func (a *Attention) FillRand(seed int64) {
	a.Wq.FillRand(seed)
	a.Wk.FillRand(seed + 100)
	a.Wv.FillRand(seed + 200)
	a.Wo.FillRand(seed + 300)
}

// Forward runs causal self-attention over the n new token rows of x against
// the full history in cache. The cache grows from T to T+n rows before the
// scores are computed, and the causal mask is derived from absolute sequence
// positions: query row i (absolute position T+i) may attend to key columns
// 0..T+i only. This keeps multi-token continuation steps (n > 1 with a
// non-empty cache) correct, where a plain upper-triangle mask over the score
// block would not be.
//
// The returned tensor includes the residual connection: x + Wo(attention).
func (a Attention) Forward(x tensor.Tensor, cache *Cache) (tensor.Tensor, error) {
	q, err := a.Wq.Forward(x)
	if err != nil {
		return tensor.Tensor{}, fmt.Errorf("query projection: %w", err)
	}
	kNew, err := a.Wk.Forward(x)
	if err != nil {
		return tensor.Tensor{}, fmt.Errorf("key projection: %w", err)
	}
	vNew, err := a.Wv.Forward(x)
	if err != nil {
		return tensor.Tensor{}, fmt.Errorf("value projection: %w", err)
	}

	cached := cache.Len()
	kFull, err := tensor.VStack(cache.Keys, kNew)
	if err != nil {
		return tensor.Tensor{}, fmt.Errorf("stack keys: %w", err)
	}
	vFull, err := tensor.VStack(cache.Values, vNew)
	if err != nil {
		return tensor.Tensor{}, fmt.Errorf("stack values: %w", err)
	}
	cache.Keys = kFull
	cache.Values = vFull

	scores, err := tensor.MatMul(q, tensor.Transpose(kFull))
	if err != nil {
		return tensor.Tensor{}, fmt.Errorf("attention scores: %w", err)
	}
	scores.Scale(float32(1 / math.Sqrt(float64(a.EmbedDim()))))
	scores.MaskAboveDiagonal(cached, float32(math.Inf(-1)))

	weights, err := Softmax(scores)
	if err != nil {
		return tensor.Tensor{}, fmt.Errorf("attention softmax: %w", err)
	}
	attnOut, err := tensor.MatMul(weights, vFull)
	if err != nil {
		return tensor.Tensor{}, fmt.Errorf("attention values: %w", err)
	}
	projected, err := a.Wo.Forward(attnOut)
	if err != nil {
		return tensor.Tensor{}, fmt.Errorf("output projection: %w", err)
	}
	return tensor.Add(x, projected)
}

// Package model composes the nn layer primitives into the full transformer:
// token and positional embeddings, causal self-attention with a KV cache, a
// two-layer feed-forward block with residual connections, and the LM head.
package model

import (
	"errors"
	"fmt"

	"github.com/retrolm/retrolm/internal/nn"
	"github.com/retrolm/retrolm/internal/tensor"
)

var (
	// ErrPositionOutOfRange reports a positional index beyond the model's
	// maximum sequence length.
	ErrPositionOutOfRange = errors.New("model: position out of range")
	// ErrBatchingUnsupported reports more than one row of token indices;
	// the engine is single-sequence by design.
	ErrBatchingUnsupported = errors.New("model: batched sequences unsupported")
)

// Config describes the model architecture. It is derived from the loaded
// tensor shapes, never trusted from an external source on its own.
type Config struct {
	SeqLen    int `json:"seq_len"`
	VocabSize int `json:"vocab_size"`
	EmbedDim  int `json:"embed_dim"`
	FFDim     int `json:"ff_dim"`
}

// Validate rejects non-positive dimensions.
func (c Config) Validate() error {
	if c.SeqLen <= 0 || c.VocabSize <= 0 || c.EmbedDim <= 0 || c.FFDim <= 0 {
		return fmt.Errorf("%w: %+v", tensor.ErrInvalidShape, c)
	}
	return nil
}

// Parameters holds every learned tensor of the model. Loaded once, immutable
// during inference.
type Parameters struct {
	TokenEmbed nn.Embedding // vocab x embed
	PosEmbed   nn.Embedding // seq_len x embed
	Attn       nn.Attention
	FFN1       nn.Linear // embed -> ff
	FFN2       nn.Linear // ff -> embed
	LMHead     nn.Linear // embed -> vocab, weights tied to TokenEmbed by copy
}

// New allocates zero-initialised parameters for the given architecture.
func New(cfg Config) (*Parameters, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var (
		p   Parameters
		err error
	)
	if p.TokenEmbed, err = nn.NewEmbedding(cfg.VocabSize, cfg.EmbedDim); err != nil {
		return nil, err
	}
	if p.PosEmbed, err = nn.NewEmbedding(cfg.SeqLen, cfg.EmbedDim); err != nil {
		return nil, err
	}
	if p.Attn, err = nn.NewAttention(cfg.EmbedDim); err != nil {
		return nil, err
	}
	if p.FFN1, err = nn.NewLinear(cfg.EmbedDim, cfg.FFDim); err != nil {
		return nil, err
	}
	if p.FFN2, err = nn.NewLinear(cfg.FFDim, cfg.EmbedDim); err != nil {
		return nil, err
	}
	if p.LMHead, err = nn.NewLinear(cfg.EmbedDim, cfg.VocabSize); err != nil {
		return nil, err
	}
	return &p, nil
}

// NewRandom allocates parameters seeded with reproducible pseudo-random
// values, with the LM head weight-tied to the token embedding. Used by tests
// and benchmarks.
func NewRandom(cfg Config, seed int64) (*Parameters, error) {
	p, err := New(cfg)
	if err != nil {
		return nil, err
	}
	p.TokenEmbed.FillRand(seed)
	p.PosEmbed.FillRand(seed + 1)
	p.Attn.FillRand(seed + 2)
	p.FFN1.FillRand(seed + 3)
	p.FFN2.FillRand(seed + 4)
	p.LMHead.FillRand(seed + 5)
	p.TieLMHead()
	return p, nil
}

// Config reports the architecture implied by the parameter shapes.
func (p *Parameters) Config() Config {
	return Config{
		SeqLen:    p.PosEmbed.Entries(),
		VocabSize: p.TokenEmbed.Entries(),
		EmbedDim:  p.TokenEmbed.Dim(),
		FFDim:     p.FFN1.OutFeatures(),
	}
}

// TieLMHead replaces the LM head's weight matrix with an independent copy of
// the token-embedding table. The bias is left alone: it is trained
// separately. Copy semantics, not sharing — later writes to either tensor do
// not propagate.
func (p *Parameters) TieLMHead() {
	p.LMHead.Weights = p.TokenEmbed.Table.Clone()
}

// NewCache returns an empty attention cache sized for this model. One cache
// per generation session.
func (p *Parameters) NewCache() *nn.Cache {
	return nn.NewCache(p.TokenEmbed.Dim())
}

// Forward runs the incremental transformer pass over one row of token ids.
// startPos is the absolute position of the first new token; the cache grows
// by tokens.Cols rows. The result is a tokens.Cols x vocab logits tensor.
func Forward(tokens tensor.IndexTensor, p *Parameters, cache *nn.Cache, startPos int) (tensor.Tensor, error) {
	if tokens.Rows != 1 {
		return tensor.Tensor{}, fmt.Errorf("%w: got %d sequences", ErrBatchingUnsupported, tokens.Rows)
	}
	n := tokens.Cols
	seqLen := p.PosEmbed.Entries()
	if startPos < 0 || startPos+n > seqLen {
		return tensor.Tensor{}, fmt.Errorf("%w: positions [%d,%d) with max_seq %d",
			ErrPositionOutOfRange, startPos, startPos+n, seqLen)
	}

	tokEmb, err := p.TokenEmbed.Forward(tokens)
	if err != nil {
		return tensor.Tensor{}, fmt.Errorf("token embedding: %w", err)
	}
	positions, err := tensor.Arange(uint32(startPos), n)
	if err != nil {
		return tensor.Tensor{}, err
	}
	posEmb, err := p.PosEmbed.Forward(positions)
	if err != nil {
		return tensor.Tensor{}, fmt.Errorf("positional embedding: %w", err)
	}
	x, err := tensor.Add(tokEmb, posEmb)
	if err != nil {
		return tensor.Tensor{}, err
	}

	x, err = p.Attn.Forward(x, cache)
	if err != nil {
		return tensor.Tensor{}, fmt.Errorf("attention: %w", err)
	}

	hidden, err := p.FFN1.Forward(x)
	if err != nil {
		return tensor.Tensor{}, fmt.Errorf("feed-forward expand: %w", err)
	}
	hidden = nn.ReLU(hidden)
	ff, err := p.FFN2.Forward(hidden)
	if err != nil {
		return tensor.Tensor{}, fmt.Errorf("feed-forward project: %w", err)
	}
	x, err = tensor.Add(x, ff)
	if err != nil {
		return tensor.Tensor{}, err
	}

	logits, err := p.LMHead.Forward(x)
	if err != nil {
		return tensor.Tensor{}, fmt.Errorf("lm head: %w", err)
	}
	return logits, nil
}

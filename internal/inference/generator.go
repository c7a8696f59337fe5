// Package inference drives the token-by-token generation loop on top of the
// model's incremental forward pass.
package inference

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/retrolm/retrolm/internal/logits"
	"github.com/retrolm/retrolm/internal/model"
	"github.com/retrolm/retrolm/internal/nn"
	"github.com/retrolm/retrolm/internal/tensor"
)

// ErrEmptyPrompt reports a generation request with no prompt tokens.
var ErrEmptyPrompt = errors.New("inference: empty prompt")

// Stats summarises one generation run.
type Stats struct {
	TokensGenerated int
	Duration        time.Duration
	TPS             float64
}

// StreamFunc receives each generated token's text as it is produced.
type StreamFunc func(token string)

// Decoder is the slice of the tokenizer the generator needs for streaming.
type Decoder interface {
	Decode(ids []uint32) string
}

// Generator is a single generation session: one attention cache plus the
// token history backing it. Prompts fed across calls extend the same
// session, so a chat turn only pays for its new tokens. A nil Sampler means
// greedy decoding. Not safe for concurrent use.
type Generator struct {
	Params     *model.Parameters
	Sampler    *logits.Sampler
	Decoder    Decoder
	StopTokens []uint32

	cfg    model.Config
	cache  *nn.Cache
	tokens []uint32
}

// NewGenerator starts an empty session over p.
func NewGenerator(p *model.Parameters, sampler *logits.Sampler, dec Decoder, stop []uint32) *Generator {
	return &Generator{
		Params:     p,
		Sampler:    sampler,
		Decoder:    dec,
		StopTokens: stop,
		cfg:        p.Config(),
		cache:      p.NewCache(),
	}
}

// ContextTokens returns the session's token history. The slice is owned by
// the generator.
func (g *Generator) ContextTokens() []uint32 { return g.tokens }

// Reset discards the cache and history, starting a fresh session.
func (g *Generator) Reset() {
	g.cache.Reset()
	g.tokens = g.tokens[:0]
}

// feed runs the forward pass for ids at the session's current position and
// returns the logits row for the last fed token. When the new tokens would
// not fit in the context window the session slides: the cache is rebuilt
// from the most recent history so that exactly SeqLen positions are in use
// after the call.
func (g *Generator) feed(ids []uint32) ([]float32, error) {
	if len(ids) == 0 {
		return nil, ErrEmptyPrompt
	}
	seqLen := g.cfg.SeqLen

	if len(ids) >= seqLen {
		// The new tokens alone fill the window; only their tail fits.
		ids = ids[len(ids)-seqLen:]
		g.Reset()
	} else if len(g.tokens)+len(ids) > seqLen {
		keep := slices.Clone(g.tokens[len(g.tokens)-(seqLen-len(ids)):])
		g.Reset()
		if _, err := g.forward(keep); err != nil {
			return nil, fmt.Errorf("rebuild context: %w", err)
		}
	}

	out, err := g.forward(ids)
	if err != nil {
		return nil, err
	}
	return out.Row(out.Rows - 1), nil
}

func (g *Generator) forward(ids []uint32) (tensor.Tensor, error) {
	idx, err := tensor.IndexRow(ids)
	if err != nil {
		return tensor.Tensor{}, err
	}
	out, err := model.Forward(idx, g.Params, g.cache, len(g.tokens))
	if err != nil {
		return tensor.Tensor{}, err
	}
	g.tokens = append(g.tokens, ids...)
	return out, nil
}

// Generate feeds prompt into the session and then samples up to maxNew
// tokens, stopping early on a stop token or context cancellation. It returns
// the generated ids (prompt excluded). A cancelled run returns the tokens
// produced so far along with the context error.
func (g *Generator) Generate(ctx context.Context, prompt []uint32, maxNew int, stream StreamFunc) ([]uint32, Stats, error) {
	var stats Stats
	start := time.Now()

	logitsVec, err := g.feed(prompt)
	if err != nil {
		return nil, stats, fmt.Errorf("prefill: %w", err)
	}

	var generated []uint32
	for i := 0; i < maxNew; i++ {
		if err := ctx.Err(); err != nil {
			stats.Duration = time.Since(start)
			return generated, stats, err
		}

		var next uint32
		if g.Sampler != nil {
			next = uint32(g.Sampler.Sample(logitsVec))
		} else {
			next = uint32(logits.Argmax(logitsVec))
		}
		if slices.Contains(g.StopTokens, next) {
			break
		}
		generated = append(generated, next)
		stats.TokensGenerated++
		if stream != nil && g.Decoder != nil {
			stream(g.Decoder.Decode([]uint32{next}))
		}

		logitsVec, err = g.feed([]uint32{next})
		if err != nil {
			return generated, stats, fmt.Errorf("decode step %d: %w", i, err)
		}
	}

	stats.Duration = time.Since(start)
	if s := stats.Duration.Seconds(); s > 0 {
		stats.TPS = float64(stats.TokensGenerated) / s
	}
	return generated, stats, nil
}

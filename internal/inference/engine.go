package inference

import (
	"context"
	"fmt"

	"github.com/retrolm/retrolm/internal/logits"
	"github.com/retrolm/retrolm/internal/model"
	"github.com/retrolm/retrolm/internal/tokenizer"
)

// DefaultMaxTokens bounds a request that does not set its own limit.
const DefaultMaxTokens = 64

// Request describes one text completion.
type Request struct {
	Prompt      string
	MaxTokens   int
	Temperature float32
	Seed        int64
	// Greedy picks the argmax token at every step instead of sampling.
	Greedy bool
}

// Result is the completed request.
type Result struct {
	Text   string
	Tokens []uint32
	Stats  Stats
}

// Engine owns loaded parameters and serves independent completion requests.
// Each request runs in a fresh session with its own sampler, so results
// depend only on the request's seed. Engine methods may be called
// concurrently only if the caller serialises them.
type Engine struct {
	params *model.Parameters
	tok    tokenizer.Tokenizer
	stop   []uint32
}

// NewEngine wraps loaded parameters with a tokenizer. Generation stops at
// any of the stop token ids.
func NewEngine(p *model.Parameters, tok tokenizer.Tokenizer, stop []uint32) (*Engine, error) {
	if tok.VocabSize() > p.Config().VocabSize {
		return nil, fmt.Errorf("inference: tokenizer vocab %d exceeds model vocab %d",
			tok.VocabSize(), p.Config().VocabSize)
	}
	return &Engine{params: p, tok: tok, stop: stop}, nil
}

// Config reports the model architecture the engine serves.
func (e *Engine) Config() model.Config { return e.params.Config() }

// Tokenizer returns the engine's tokenizer.
func (e *Engine) Tokenizer() tokenizer.Tokenizer { return e.tok }

// NewSession starts a persistent generation session, used by the chat loop
// to keep the cache warm across turns.
func (e *Engine) NewSession(sampler *logits.Sampler) *Generator {
	return NewGenerator(e.params, sampler, e.tok, e.stop)
}

// Generate runs one complete request and returns the decoded text.
func (e *Engine) Generate(ctx context.Context, req *Request, stream StreamFunc) (*Result, error) {
	ids, err := e.tok.Encode(req.Prompt)
	if err != nil {
		return nil, err
	}

	var sampler *logits.Sampler
	if !req.Greedy {
		sampler = logits.NewSampler(logits.SamplerConfig{Seed: req.Seed, Temperature: req.Temperature})
	}

	maxNew := req.MaxTokens
	if maxNew <= 0 {
		maxNew = DefaultMaxTokens
	}

	g := e.NewSession(sampler)
	out, stats, err := g.Generate(ctx, ids, maxNew, stream)
	if err != nil {
		return nil, err
	}
	return &Result{Text: e.tok.Decode(out), Tokens: out, Stats: stats}, nil
}

// Package logits turns a model's output scores into token choices.
package logits

import (
	"math"
	"math/rand"
)

// SamplerConfig configures the behaviour of a Sampler. A Temperature of zero
// or below is treated as 1 (no reshaping of the distribution).
type SamplerConfig struct {
	Seed        int64
	Temperature float32
}

// Sampler draws token indices from logits vectors. It owns a seeded RNG, so
// two samplers built from the same config produce the same token stream for
// the same inputs. Not safe for concurrent use.
type Sampler struct {
	rng  *rand.Rand
	cfg  SamplerConfig
	prob []float64
}

// NewSampler returns a new sampler with the provided configuration.
func NewSampler(cfg SamplerConfig) *Sampler {
	if cfg.Temperature <= 0 {
		cfg.Temperature = 1
	}
	return &Sampler{
		rng: rand.New(rand.NewSource(cfg.Seed)),
		cfg: cfg,
	}
}

// Temperature reports the effective temperature after coercion.
func (s *Sampler) Temperature() float32 {
	return s.cfg.Temperature
}

// Sample draws one index from the logits vector:
//
//  1. Scale the logits by the inverse temperature.
//  2. Softmax with max subtraction so large magnitudes stay finite.
//  3. Walk the cumulative distribution against a uniform draw from [0,1).
//
// If rounding error keeps the cumulative sum below the draw, the last index
// is returned, so the result is always in range. An empty vector panics; the
// model never produces one.
func (s *Sampler) Sample(logits []float32) int {
	if len(logits) == 0 {
		panic("logits: sample from empty vector")
	}
	invTemp := 1 / float64(s.cfg.Temperature)

	maxv := float64(logits[0]) * invTemp
	for _, l := range logits[1:] {
		if v := float64(l) * invTemp; v > maxv {
			maxv = v
		}
	}

	if cap(s.prob) < len(logits) {
		s.prob = make([]float64, len(logits))
	}
	prob := s.prob[:len(logits)]
	var sum float64
	for i, l := range logits {
		e := math.Exp(float64(l)*invTemp - maxv)
		prob[i] = e
		sum += e
	}
	if sum == 0 {
		// All mass underflowed; fall back to the best logit.
		return Argmax(logits)
	}

	r := s.rng.Float64() * sum
	var c float64
	for i, p := range prob {
		c += p
		if r < c {
			return i
		}
	}
	return len(logits) - 1
}

// Argmax returns the index of the maximum value in the slice. If the slice is
// empty it panics.
func Argmax(x []float32) int {
	if len(x) == 0 {
		panic("logits: argmax of empty slice")
	}
	bestI := 0
	bestV := x[0]
	for i := 1; i < len(x); i++ {
		if x[i] > bestV {
			bestV = x[i]
			bestI = i
		}
	}
	return bestI
}

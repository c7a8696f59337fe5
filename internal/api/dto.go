package api

import "github.com/retrolm/retrolm/internal/inference"

// GenerateRequest is the body of POST /v1/generate.
type GenerateRequest struct {
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float32 `json:"temperature,omitempty"`
	Seed        *int64  `json:"seed,omitempty"`
	Greedy      bool    `json:"greedy,omitempty"`
}

// GenerateResponse is the completed generation.
type GenerateResponse struct {
	ID    string   `json:"id"`
	Text  string   `json:"text"`
	Usage Usage    `json:"usage"`
	Seed  int64    `json:"seed"`
	Stats RunStats `json:"stats"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type RunStats struct {
	DurationMS      int64   `json:"duration_ms"`
	TokensPerSecond float64 `json:"tokens_per_second"`
}

// ModelResponse is the body of GET /v1/model.
type ModelResponse struct {
	SeqLen    int `json:"seq_len"`
	VocabSize int `json:"vocab_size"`
	EmbedDim  int `json:"embed_dim"`
	FFDim     int `json:"ff_dim"`
}

// ErrorResponse mirrors the error envelope of the generate endpoint.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func newRunStats(s inference.Stats) RunStats {
	return RunStats{
		DurationMS:      s.Duration.Milliseconds(),
		TokensPerSecond: s.TPS,
	}
}

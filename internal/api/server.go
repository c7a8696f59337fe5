// Package api exposes the inference engine over HTTP.
package api

import (
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
	"golang.org/x/time/rate"

	"github.com/retrolm/retrolm/internal/inference"
	"github.com/retrolm/retrolm/internal/logger"
	"github.com/retrolm/retrolm/internal/model"
	"github.com/retrolm/retrolm/internal/tokenizer"
)

// maxRequestBody bounds the generate request payload.
const maxRequestBody = 1 << 20

// Server serves completions from a single loaded model. The engine holds one
// mutable session at a time, so requests are serialised through a mutex; the
// limiter sheds load before a request ever queues on it.
type Server struct {
	engine  *inference.Engine
	log     logger.Logger
	limiter *rate.Limiter

	mu sync.Mutex
}

// Config tunes the server. Zero values get sensible defaults.
type Config struct {
	// RequestsPerSecond caps the sustained rate of generate calls.
	RequestsPerSecond float64
	// Burst is the short-term allowance above the sustained rate.
	Burst int
}

// NewServer wraps engine for HTTP serving.
func NewServer(engine *inference.Engine, log logger.Logger, cfg Config) *Server {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}
	return &Server{
		engine:  engine,
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}
}

// Register installs the API routes on e.
func (s *Server) Register(e *echo.Echo) {
	e.POST("/v1/generate", s.handleGenerate)
	e.GET("/v1/model", s.handleModel)
	e.GET("/healthz", s.handleHealth)
}

func (s *Server) handleGenerate(c *echo.Context) error {
	if !s.limiter.Allow() {
		return writeError(c, http.StatusTooManyRequests, "rate_limited", "too many requests")
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxRequestBody))
	if err != nil {
		return writeError(c, http.StatusBadRequest, "invalid_request", "unreadable body")
	}
	var req GenerateRequest
	if err := gojson.Unmarshal(body, &req); err != nil {
		return writeError(c, http.StatusBadRequest, "invalid_request", "malformed JSON: "+err.Error())
	}
	if req.Prompt == "" {
		return writeError(c, http.StatusBadRequest, "invalid_request", "prompt is required")
	}

	seed := time.Now().UnixNano()
	if req.Seed != nil {
		seed = *req.Seed
	}
	infReq := &inference.Request{
		Prompt:      req.Prompt,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Seed:        seed,
		Greedy:      req.Greedy,
	}

	s.mu.Lock()
	res, err := s.engine.Generate(c.Request().Context(), infReq, nil)
	s.mu.Unlock()
	if err != nil {
		switch {
		case errors.Is(err, tokenizer.ErrEmptyInput), errors.Is(err, inference.ErrEmptyPrompt):
			return writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		case errors.Is(err, model.ErrPositionOutOfRange):
			return writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		default:
			s.log.Error("generate failed", "error", err)
			return writeError(c, http.StatusInternalServerError, "server_error", "generation failed")
		}
	}

	id := "gen_" + uuid.NewString()
	promptTokens := len(res.Tokens) // completion only; recount the prompt
	if ids, err := s.promptTokenCount(req.Prompt); err == nil {
		promptTokens = ids
	}
	s.log.Info("generate",
		"id", id,
		"prompt_tokens", promptTokens,
		"completion_tokens", res.Stats.TokensGenerated,
		"duration", res.Stats.Duration,
	)

	return writeJSON(c, http.StatusOK, GenerateResponse{
		ID:   id,
		Text: res.Text,
		Usage: Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: res.Stats.TokensGenerated,
			TotalTokens:      promptTokens + res.Stats.TokensGenerated,
		},
		Seed:  seed,
		Stats: newRunStats(res.Stats),
	})
}

func (s *Server) handleModel(c *echo.Context) error {
	cfg := s.engine.Config()
	return writeJSON(c, http.StatusOK, ModelResponse{
		SeqLen:    cfg.SeqLen,
		VocabSize: cfg.VocabSize,
		EmbedDim:  cfg.EmbedDim,
		FFDim:     cfg.FFDim,
	})
}

func (s *Server) handleHealth(c *echo.Context) error {
	return writeJSON(c, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) promptTokenCount(prompt string) (int, error) {
	ids, err := s.engine.Tokenizer().Encode(prompt)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

func writeJSON(c *echo.Context, status int, v any) error {
	b, err := gojson.Marshal(v)
	if err != nil {
		return err
	}
	return c.Blob(status, echo.MIMEApplicationJSON, b)
}

func writeError(c *echo.Context, status int, typ, msg string) error {
	return writeJSON(c, status, ErrorResponse{Error: ErrorBody{Type: typ, Message: msg}})
}

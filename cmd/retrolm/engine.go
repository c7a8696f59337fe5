package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/retrolm/retrolm/internal/inference"
	"github.com/retrolm/retrolm/internal/logger"
	"github.com/retrolm/retrolm/internal/model"
	"github.com/retrolm/retrolm/internal/tokenizer"
)

// defaultModelConfig mirrors the architecture of the reference weight export.
// Used when running with --random.
var defaultModelConfig = model.Config{SeqLen: 8, VocabSize: 128, EmbedDim: 12, FFDim: 24}

const randomInitSeed = 1337

func newLogger() logger.Logger {
	level := logger.ParseLevel(logLevel)
	if debug {
		level = slog.LevelDebug
	}
	switch logFormat {
	case "json":
		return logger.JSON(os.Stderr, level)
	case "text":
		return logger.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	default:
		return logger.Pretty(os.Stderr, level)
	}
}

func resolveWeightsDir() (string, error) {
	dir := strings.TrimSpace(weightsDir)
	if dir == "" {
		dir = strings.TrimSpace(os.Getenv(envWeightsDir))
	}
	if dir == "" {
		return "", fmt.Errorf("--weights is required unless %s is set (or pass --random)", envWeightsDir)
	}
	return dir, nil
}

// loadParameters loads the weights directory, or builds random parameters
// when --random is set.
func loadParameters(log logger.Logger) (*model.Parameters, error) {
	if randomInit {
		log.Info("using random weights", "config", defaultModelConfig)
		return model.NewRandom(defaultModelConfig, randomInitSeed)
	}

	dir, err := resolveWeightsDir()
	if err != nil {
		return nil, err
	}
	start := time.Now()
	p, err := model.LoadDirWithProgress(dir, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("load weights: %w", err)
	}
	log.Info("weights loaded", "dir", dir, "config", p.Config(), "duration", time.Since(start))
	return p, nil
}

func loadEngine(log logger.Logger) (*inference.Engine, error) {
	p, err := loadParameters(log)
	if err != nil {
		return nil, err
	}
	cfg := p.Config()

	vocab := cfg.VocabSize
	if vocab > 256 {
		vocab = 256
	}
	tok, err := tokenizer.NewByte(vocab)
	if err != nil {
		return nil, err
	}
	return inference.NewEngine(p, tok, []uint32{'\n'})
}

func effectiveSeed() int64 {
	if seed == -1 {
		return time.Now().UnixNano()
	}
	return seed
}

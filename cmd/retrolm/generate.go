package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/retrolm/retrolm/internal/inference"
)

func generateCmd() *cli.Command {
	var (
		prompt     string
		greedy     bool
		echoPrompt bool
		showStats  bool
	)

	flags := append(commonModelFlags(), samplingFlags()...)
	flags = append(flags, loggingFlags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:        "prompt",
			Aliases:     []string{"p"},
			Usage:       "prompt text",
			Destination: &prompt,
		},
		&cli.BoolFlag{
			Name:        "greedy",
			Usage:       "argmax decoding instead of sampling",
			Destination: &greedy,
		},
		&cli.BoolFlag{
			Name:        "echo-prompt",
			Usage:       "print the prompt before the completion",
			Destination: &echoPrompt,
		},
		&cli.BoolFlag{
			Name:        "stats",
			Usage:       "print tokens/sec after generation",
			Destination: &showStats,
		},
	)

	return &cli.Command{
		Name:  "generate",
		Usage: "One-shot text completion",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			applyModelConfig(c, LoadConfig())
			log := newLogger()

			if prompt == "" {
				return cli.Exit("error: --prompt is required", 1)
			}

			engine, err := loadEngine(log)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			if echoPrompt {
				fmt.Print(prompt)
			}
			res, err := engine.Generate(ctx, &inference.Request{
				Prompt:      prompt,
				MaxTokens:   int(maxTokens),
				Temperature: float32(temp),
				Seed:        effectiveSeed(),
				Greedy:      greedy,
			}, func(s string) { fmt.Print(s) })
			fmt.Println()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: generation: %v", err), 1)
			}
			if showStats {
				fmt.Fprintf(os.Stderr, "Stats: %.2f TPS (%d tokens in %s)\n",
					res.Stats.TPS, res.Stats.TokensGenerated, res.Stats.Duration)
			}
			return nil
		},
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/retrolm/retrolm/internal/logits"
)

func chatCmd() *cli.Command {
	var showStats bool

	flags := append(commonModelFlags(), samplingFlags()...)
	flags = append(flags, loggingFlags()...)
	flags = append(flags, &cli.BoolFlag{
		Name:        "stats",
		Usage:       "print tokens/sec after each reply",
		Destination: &showStats,
	})

	return &cli.Command{
		Name:  "chat",
		Usage: "Interactive chat with the model",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			applyModelConfig(c, LoadConfig())
			log := newLogger()

			printBanner()

			engine, err := loadEngine(log)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			cfg := engine.Config()

			fmt.Printf("\n============================================================\n")
			fmt.Printf("RetroLM Interactive Chat (Context: %d tokens)\n", cfg.SeqLen)
			fmt.Printf("============================================================\n")
			fmt.Printf("Type 'quit' or 'exit' to end the conversation\n")
			fmt.Printf("============================================================\n\n")

			sampler := logits.NewSampler(logits.SamplerConfig{
				Seed:        effectiveSeed(),
				Temperature: float32(temp),
			})
			// One session for the whole conversation; the sliding window
			// inside the generator plays the role of history truncation.
			session := engine.NewSession(sampler)

			for {
				input, err := readInteractiveLine("You: ")
				if err != nil {
					if errors.Is(err, io.EOF) {
						fmt.Println("\nGoodbye!")
						return nil
					}
					return cli.Exit(fmt.Sprintf("error: read input: %v", err), 1)
				}
				input = strings.TrimSpace(input)
				if input == "quit" || input == "exit" {
					fmt.Println("\nGoodbye!")
					return nil
				}
				if input == "" {
					continue
				}

				ids, err := engine.Tokenizer().Encode(input + " ")
				if err != nil {
					fmt.Fprintln(os.Stderr, "error: encode input:", err)
					continue
				}

				fmt.Print("Bot: ")
				_, stats, err := session.Generate(ctx, ids, int(maxTokens), func(s string) {
					fmt.Print(s)
				})
				fmt.Println()
				if err != nil {
					fmt.Fprintln(os.Stderr, "error: generation:", err)
					continue
				}
				if showStats {
					fmt.Fprintf(os.Stderr, "Stats: %.2f TPS (%d tokens in %s)\n",
						stats.TPS, stats.TokensGenerated, stats.Duration)
				}
			}
		},
	}
}

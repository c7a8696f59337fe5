package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	gojson "github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/retrolm/retrolm/internal/model"
)

func inspectCmd() *cli.Command {
	var (
		dir      string
		jsonOut  bool
		showData bool
	)

	return &cli.Command{
		Name:  "inspect",
		Usage: "Print tensor shapes and the derived architecture of a weights directory",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "weights",
				Aliases:     []string{"w"},
				Usage:       "path to the weights directory",
				Destination: &dir,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "emit machine-readable JSON",
				Destination: &jsonOut,
			},
			&cli.BoolFlag{
				Name:        "stats",
				Usage:       "include per-tensor min/max",
				Destination: &showData,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if dir == "" {
				dir = os.Getenv(envWeightsDir)
			}
			if dir == "" {
				return cli.Exit(fmt.Sprintf("error: --weights is required unless %s is set", envWeightsDir), 1)
			}

			ents, err := os.ReadDir(dir)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: read weights dir: %v", err), 1)
			}

			type tensorInfo struct {
				Name   string   `json:"name"`
				Rows   int      `json:"rows"`
				Cols   int      `json:"cols"`
				Params int      `json:"params"`
				Min    *float32 `json:"min,omitempty"`
				Max    *float32 `json:"max,omitempty"`
			}
			var infos []tensorInfo
			total := 0
			for _, e := range ents {
				if e.IsDir() || filepath.Ext(e.Name()) != ".bin" {
					continue
				}
				t, err := model.LoadTensor(filepath.Join(dir, e.Name()))
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				info := tensorInfo{
					Name:   e.Name(),
					Rows:   t.Rows,
					Cols:   t.Cols,
					Params: t.Rows * t.Cols,
				}
				if showData {
					lo, hi := t.Data[0], t.Data[0]
					for _, v := range t.Data[1:] {
						if v < lo {
							lo = v
						}
						if v > hi {
							hi = v
						}
					}
					info.Min, info.Max = &lo, &hi
				}
				infos = append(infos, info)
				total += info.Params
			}
			if len(infos) == 0 {
				return cli.Exit(fmt.Sprintf("error: no .bin tensors in %s", dir), 1)
			}
			sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })

			// Full load validates cross-tensor consistency and derives dims.
			params, err := model.LoadDir(dir)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			cfg := params.Config()

			if jsonOut {
				out := struct {
					Config  model.Config `json:"config"`
					Tensors []tensorInfo `json:"tensors"`
					Params  int          `json:"total_params"`
				}{cfg, infos, total}
				b, err := gojson.MarshalIndent(out, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(b))
				return nil
			}

			fmt.Printf("weights: %s\n", dir)
			fmt.Printf("seq_len=%d vocab=%d embd=%d ffn=%d\n",
				cfg.SeqLen, cfg.VocabSize, cfg.EmbedDim, cfg.FFDim)
			fmt.Printf("\n%-20s %8s %8s %10s\n", "tensor", "rows", "cols", "params")
			for _, info := range infos {
				fmt.Printf("%-20s %8d %8d %10d", info.Name, info.Rows, info.Cols, info.Params)
				if info.Min != nil {
					fmt.Printf("   min=%g max=%g", *info.Min, *info.Max)
				}
				fmt.Println()
			}
			fmt.Printf("\ntotal params: %d (lm_head weights tied to token_embed)\n", total)
			return nil
		},
	}
}

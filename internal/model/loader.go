package model

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"

	"github.com/retrolm/retrolm/internal/nn"
	"github.com/retrolm/retrolm/internal/tensor"
)

// Weight files as written by the exporter: one tensor per file,
// [u32 rows][u32 cols][rows*cols float32], all little-endian row-major.
// The LM head has no weight file; its weights are tied to token_embed.
var weightFiles = []string{
	"token_embed.bin",
	"pos_embed.bin",
	"Wq_weight.bin", "Wq_bias.bin",
	"Wk_weight.bin", "Wk_bias.bin",
	"Wv_weight.bin", "Wv_bias.bin",
	"Wo_weight.bin", "Wo_bias.bin",
	"W1_weight.bin", "W1_bias.bin",
	"W2_weight.bin", "W2_bias.bin",
	"lm_head_bias.bin",
}

// maxTensorElems guards against corrupt headers allocating absurd buffers.
const maxTensorElems = 1 << 28

// ReadTensor decodes one tensor record from r.
func ReadTensor(r io.Reader) (tensor.Tensor, error) {
	var rows, cols uint32
	if err := binary.Read(r, binary.LittleEndian, &rows); err != nil {
		return tensor.Tensor{}, fmt.Errorf("read rows: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &cols); err != nil {
		return tensor.Tensor{}, fmt.Errorf("read cols: %w", err)
	}
	if rows == 0 || cols == 0 || uint64(rows)*uint64(cols) > maxTensorElems {
		return tensor.Tensor{}, fmt.Errorf("%w: %dx%d in weight record", tensor.ErrInvalidShape, rows, cols)
	}
	t, err := tensor.New(int(rows), int(cols))
	if err != nil {
		return tensor.Tensor{}, err
	}
	if err := binary.Read(r, binary.LittleEndian, t.Data); err != nil {
		return tensor.Tensor{}, fmt.Errorf("read %dx%d values: %w", rows, cols, err)
	}
	return t, nil
}

// LoadTensor reads a single weight file.
func LoadTensor(path string) (tensor.Tensor, error) {
	f, err := os.Open(path)
	if err != nil {
		return tensor.Tensor{}, fmt.Errorf("open weight file: %w", err)
	}
	defer f.Close()
	t, err := ReadTensor(bufio.NewReader(f))
	if err != nil {
		return tensor.Tensor{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return t, nil
}

// LoadDir reads every weight file from dir, ties the LM head to the token
// embedding, and validates that the shapes agree with each other. The
// progress callback is optional; LoadDirWithProgress wires a terminal bar.
func LoadDir(dir string) (*Parameters, error) {
	return loadDir(dir, nil)
}

// LoadDirWithProgress behaves like LoadDir while rendering a progress bar to
// w (one tick per weight file).
func LoadDirWithProgress(dir string, w io.Writer) (*Parameters, error) {
	bar := progressbar.NewOptions(len(weightFiles),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("loading weights"),
		progressbar.OptionClearOnFinish(),
	)
	p, err := loadDir(dir, func() { _ = bar.Add(1) })
	if err != nil {
		_ = bar.Exit()
		return nil, err
	}
	_ = bar.Finish()
	return p, nil
}

func loadDir(dir string, tick func()) (*Parameters, error) {
	if fi, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("weights dir: %w", err)
	} else if !fi.IsDir() {
		return nil, fmt.Errorf("weights dir: %s is not a directory", dir)
	}

	tensors := make(map[string]tensor.Tensor, len(weightFiles))
	for _, name := range weightFiles {
		t, err := LoadTensor(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		tensors[name] = t
		if tick != nil {
			tick()
		}
	}

	p := &Parameters{
		TokenEmbed: nn.Embedding{Table: tensors["token_embed.bin"]},
		PosEmbed:   nn.Embedding{Table: tensors["pos_embed.bin"]},
		Attn: nn.Attention{
			Wq: nn.Linear{Weights: tensors["Wq_weight.bin"], Bias: tensors["Wq_bias.bin"]},
			Wk: nn.Linear{Weights: tensors["Wk_weight.bin"], Bias: tensors["Wk_bias.bin"]},
			Wv: nn.Linear{Weights: tensors["Wv_weight.bin"], Bias: tensors["Wv_bias.bin"]},
			Wo: nn.Linear{Weights: tensors["Wo_weight.bin"], Bias: tensors["Wo_bias.bin"]},
		},
		FFN1:   nn.Linear{Weights: tensors["W1_weight.bin"], Bias: tensors["W1_bias.bin"]},
		FFN2:   nn.Linear{Weights: tensors["W2_weight.bin"], Bias: tensors["W2_bias.bin"]},
		LMHead: nn.Linear{Bias: tensors["lm_head_bias.bin"]},
	}
	p.TieLMHead()

	if err := validateShapes(p); err != nil {
		return nil, err
	}
	return p, nil
}

func validateShapes(p *Parameters) error {
	cfg := p.Config()
	embed := cfg.EmbedDim

	if p.PosEmbed.Dim() != embed {
		return fmt.Errorf("%w: pos_embed width %d, token_embed width %d",
			tensor.ErrDimensionMismatch, p.PosEmbed.Dim(), embed)
	}
	for name, l := range map[string]nn.Linear{
		"Wq": p.Attn.Wq, "Wk": p.Attn.Wk, "Wv": p.Attn.Wv, "Wo": p.Attn.Wo,
	} {
		if l.InFeatures() != embed || l.OutFeatures() != embed {
			return fmt.Errorf("%w: %s is %dx%d, want %dx%d",
				tensor.ErrDimensionMismatch, name, l.OutFeatures(), l.InFeatures(), embed, embed)
		}
		if l.Bias.Rows != 1 || l.Bias.Cols != embed {
			return fmt.Errorf("%w: %s bias is %dx%d, want 1x%d",
				tensor.ErrDimensionMismatch, name, l.Bias.Rows, l.Bias.Cols, embed)
		}
	}
	if p.FFN1.InFeatures() != embed || p.FFN2.OutFeatures() != embed {
		return fmt.Errorf("%w: feed-forward does not map embed->ff->embed", tensor.ErrDimensionMismatch)
	}
	if p.FFN1.OutFeatures() != p.FFN2.InFeatures() {
		return fmt.Errorf("%w: W1 out %d, W2 in %d",
			tensor.ErrDimensionMismatch, p.FFN1.OutFeatures(), p.FFN2.InFeatures())
	}
	if p.LMHead.Bias.Rows != 1 || p.LMHead.Bias.Cols != cfg.VocabSize {
		return fmt.Errorf("%w: lm_head bias is %dx%d, want 1x%d",
			tensor.ErrDimensionMismatch, p.LMHead.Bias.Rows, p.LMHead.Bias.Cols, cfg.VocabSize)
	}
	return cfg.Validate()
}

// WriteTensor encodes t as one weight record. Used by the exporter-side
// tooling and the loader tests.
func WriteTensor(w io.Writer, t tensor.Tensor) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(t.Rows)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(t.Cols)); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, t.Data)
}

// SaveDir writes every parameter tensor of p into dir using the exporter's
// file layout. The LM head weight matrix is not written; it is re-tied on
// load.
func SaveDir(p *Parameters, dir string) error {
	write := func(name string, t tensor.Tensor) error {
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		defer f.Close()
		bw := bufio.NewWriter(f)
		if err := WriteTensor(bw, t); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		return bw.Flush()
	}

	files := map[string]tensor.Tensor{
		"token_embed.bin":  p.TokenEmbed.Table,
		"pos_embed.bin":    p.PosEmbed.Table,
		"Wq_weight.bin":    p.Attn.Wq.Weights,
		"Wq_bias.bin":      p.Attn.Wq.Bias,
		"Wk_weight.bin":    p.Attn.Wk.Weights,
		"Wk_bias.bin":      p.Attn.Wk.Bias,
		"Wv_weight.bin":    p.Attn.Wv.Weights,
		"Wv_bias.bin":      p.Attn.Wv.Bias,
		"Wo_weight.bin":    p.Attn.Wo.Weights,
		"Wo_bias.bin":      p.Attn.Wo.Bias,
		"W1_weight.bin":    p.FFN1.Weights,
		"W1_bias.bin":      p.FFN1.Bias,
		"W2_weight.bin":    p.FFN2.Weights,
		"W2_bias.bin":      p.FFN2.Bias,
		"lm_head_bias.bin": p.LMHead.Bias,
	}
	for _, name := range weightFiles {
		if err := write(name, files[name]); err != nil {
			return err
		}
	}
	return nil
}

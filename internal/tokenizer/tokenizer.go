// Package tokenizer maps text to token ids for byte-level models: each token
// id is the byte value itself. The model core never sees text, only ids, so
// richer vocabularies can slot in behind the same interface.
package tokenizer

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyInput reports an encode of text that yields no usable tokens.
var ErrEmptyInput = errors.New("tokenizer: no encodable tokens in input")

// Tokenizer converts between text and token ids.
type Tokenizer interface {
	Encode(text string) ([]uint32, error)
	Decode(ids []uint32) string
	// VocabSize is the number of distinct ids Encode can produce.
	VocabSize() int
}

// Byte is a byte-level tokenizer restricted to ids below the model's
// vocabulary size. Bytes outside the vocabulary are dropped on encode; ids
// that decode to non-printable bytes are dropped on decode, matching the
// chat display rules.
type Byte struct {
	vocab int
}

// NewByte returns a byte-level tokenizer for a model with the given
// vocabulary size.
func NewByte(vocabSize int) (*Byte, error) {
	if vocabSize <= 0 || vocabSize > 256 {
		return nil, fmt.Errorf("tokenizer: byte vocab size %d outside (0,256]", vocabSize)
	}
	return &Byte{vocab: vocabSize}, nil
}

func (b *Byte) VocabSize() int { return b.vocab }

// Encode maps every in-vocabulary byte of text to its id. Out-of-vocabulary
// bytes are skipped rather than erroring, so pasted text with stray Unicode
// still produces a usable prompt.
func (b *Byte) Encode(text string) ([]uint32, error) {
	ids := make([]uint32, 0, len(text))
	for i := 0; i < len(text); i++ {
		if int(text[i]) < b.vocab {
			ids = append(ids, uint32(text[i]))
		}
	}
	if len(ids) == 0 {
		return nil, ErrEmptyInput
	}
	return ids, nil
}

// Decode renders ids back to text, keeping printable ASCII plus newline and
// tab and dropping everything else.
func (b *Byte) Decode(ids []uint32) string {
	var sb strings.Builder
	sb.Grow(len(ids))
	for _, id := range ids {
		c := byte(id)
		if id < 256 && printable(c) {
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

func printable(c byte) bool {
	return (c >= 0x20 && c < 0x7f) || c == '\n' || c == '\t'
}

package nn

import (
	"fmt"

	"github.com/retrolm/retrolm/internal/tensor"
)

// Embedding is a lookup table mapping integer ids to learned rows. The same
// type serves token embeddings (vocab x embed) and positional embeddings
// (max_seq x embed).
type Embedding struct {
	Table tensor.Tensor
}

// NewEmbedding allocates a zero-initialised table with entries rows of dim
// columns.
func NewEmbedding(entries, dim int) (Embedding, error) {
	table, err := tensor.New(entries, dim)
	if err != nil {
		return Embedding{}, fmt.Errorf("embedding table: %w", err)
	}
	return Embedding{Table: table}, nil
}

// Entries returns the number of ids the table covers.
func (e Embedding) Entries() int { return e.Table.Rows }

// Dim returns the embedding width.
func (e Embedding) Dim() int { return e.Table.Cols }

// Clone returns a deep copy of the table.
func (e Embedding) Clone() Embedding {
	return Embedding{Table: e.Table.Clone()}
}

// FillRand seeds the table with reproducible pseudo-random values.
func (e *Embedding) FillRand(seed int64) {
	tensor.FillRand(&e.Table, seed)
}

// Forward gathers the table rows named by indices, which must be a single
// row of ids each below Entries().
func (e Embedding) Forward(indices tensor.IndexTensor) (tensor.Tensor, error) {
	return tensor.SelectRows(e.Table, indices)
}

// Package embedders abstracts the embedding backend used for semantic
// retrieval.
package embedders

import "context"

// Embedder converts text into a fixed-dimension dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	GetModel() string
}

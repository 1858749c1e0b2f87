package interfaces

import (
	"context"
)

// EmbeddingService turns text into fixed-length vectors.
//
// Query embeddings use the same model and dimensionality as ingestion
// embeddings; a mismatch between index and query dimensionality is a fatal
// configuration error surfaced at construction time, never at query time.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	ModelName() string
}

package embeddings

import (
	"context"
	"fmt"
	"math"

	openai "github.com/sashabaranov/go-openai"
	"github.com/ternarybob/arbor"
)

// OpenAIProvider generates embeddings through the OpenAI API.
// Vectors are L2-normalized so cosine similarity reduces to a dot
// product over unit vectors.
type OpenAIProvider struct {
	client    *openai.Client
	model     string
	dimension int
	logger    arbor.ILogger
}

// NewOpenAIProvider creates an OpenAI embedding provider
func NewOpenAIProvider(apiKey, model string, dimension int, logger arbor.ILogger) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", dimension)
	}

	logger.Info().
		Str("model", model).
		Int("dimension", dimension).
		Msg("OpenAI embedding provider initialized")

	return &OpenAIProvider{
		client:    openai.NewClient(apiKey),
		model:     model,
		dimension: dimension,
		logger:    logger,
	}, nil
}

func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model:      openai.EmbeddingModel(p.model),
		Input:      []string{text},
		Dimensions: p.dimension,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding returned from API")
	}

	embedding := resp.Data[0].Embedding
	if len(embedding) != p.dimension {
		return nil, fmt.Errorf("embedding dimension mismatch: expected %d, got %d", p.dimension, len(embedding))
	}

	l2normalize(embedding)
	return embedding, nil
}

func (p *OpenAIProvider) Dimension() int {
	return p.dimension
}

func (p *OpenAIProvider) ModelName() string {
	return p.model
}

// l2normalize scales v to unit length in place
func l2normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
}

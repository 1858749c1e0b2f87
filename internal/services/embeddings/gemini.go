package embeddings

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"
)

// GeminiProvider generates embeddings through the Gemini API
type GeminiProvider struct {
	client    *genai.Client
	model     string
	dimension int
	logger    arbor.ILogger
}

// NewGeminiProvider creates a Gemini embedding provider
func NewGeminiProvider(ctx context.Context, apiKey, model string, dimension int, logger arbor.ILogger) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", dimension)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	logger.Info().
		Str("model", model).
		Int("dimension", dimension).
		Msg("Gemini embedding provider initialized")

	return &GeminiProvider{
		client:    client,
		model:     model,
		dimension: dimension,
		logger:    logger,
	}, nil
}

func (p *GeminiProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	outputDim := int32(p.dimension)
	embeddingConfig := &genai.EmbedContentConfig{
		OutputDimensionality: &outputDim,
	}

	result, err := p.client.Models.EmbedContent(ctx, p.model, []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}, embeddingConfig)
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}

	var embedding []float32
	if result != nil && len(result.Embeddings) > 0 {
		embedding = result.Embeddings[0].Values
	}
	if embedding == nil {
		return nil, fmt.Errorf("no embedding returned from API")
	}

	if len(embedding) != p.dimension {
		return nil, fmt.Errorf("embedding dimension mismatch: expected %d, got %d", p.dimension, len(embedding))
	}

	return embedding, nil
}

func (p *GeminiProvider) Dimension() int {
	return p.dimension
}

func (p *GeminiProvider) ModelName() string {
	return p.model
}

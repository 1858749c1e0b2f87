package embeddings

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpus/internal/common"
	"github.com/ternarybob/corpus/internal/interfaces"
	"golang.org/x/time/rate"
)

const (
	defaultMaxRetries   = 3
	defaultRetryBackoff = 2 * time.Second
	defaultTimeout      = 30 * time.Second
	batchConcurrency    = 10
)

// Provider is the raw per-call embedding backend
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
	ModelName() string
}

// Service wraps a provider with rate limiting, per-call timeouts, and
// bounded retries with exponential backoff. It is the only path the
// rest of the system uses to reach an embedding backend.
type Service struct {
	provider     Provider
	limiter      *rate.Limiter
	maxRetries   int
	retryBackoff time.Duration
	timeout      time.Duration
	logger       arbor.ILogger
}

// NewService builds the embedding service from configuration. An
// unknown provider or a non-positive dimension is a fatal configuration
// error; the caller must not start serving with a broken embedder.
func NewService(ctx context.Context, cfg *common.EmbeddingConfig, logger arbor.ILogger) (interfaces.EmbeddingService, error) {
	var provider Provider
	var err error

	switch cfg.Provider {
	case "gemini":
		provider, err = NewGeminiProvider(ctx, cfg.APIKey, cfg.Model, cfg.Dimension, logger)
	case "openai":
		provider, err = NewOpenAIProvider(cfg.APIKey, cfg.Model, cfg.Dimension, logger)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	retryBackoff := defaultRetryBackoff
	if cfg.RetryBackoff != "" {
		if d, err := time.ParseDuration(cfg.RetryBackoff); err == nil && d > 0 {
			retryBackoff = d
		}
	}

	timeout := defaultTimeout
	if cfg.Timeout != "" {
		if d, err := time.ParseDuration(cfg.Timeout); err == nil && d > 0 {
			timeout = d
		}
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Service{
		provider:     provider,
		limiter:      rate.NewLimiter(limit, 1),
		maxRetries:   maxRetries,
		retryBackoff: retryBackoff,
		timeout:      timeout,
		logger:       logger,
	}, nil
}

// Embed generates one embedding, retrying transient failures
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("cannot embed empty text")
	}

	var lastErr error
	backoff := s.retryBackoff

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			s.logger.Warn().
				Err(lastErr).
				Int("attempt", attempt).
				Msg("Retrying embedding request")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		vector, err := s.provider.Embed(callCtx, text)
		cancel()
		if err == nil {
			return vector, nil
		}
		lastErr = err
	}

	return nil, fmt.Errorf("embedding failed after %d attempts: %w", s.maxRetries+1, lastErr)
}

// EmbedQuery embeds a query string. Same model and dimensionality as
// document embeddings, so index and query vectors stay comparable.
func (s *Service) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return s.Embed(ctx, query)
}

// EmbedBatch embeds texts concurrently, bounded by a semaphore. Order
// is preserved; the first failure aborts the batch.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	errChan := make(chan error, len(texts))
	sem := make(chan struct{}, batchConcurrency)

	for i := range texts {
		sem <- struct{}{}
		go func(idx int) {
			defer func() { <-sem }()

			vector, err := s.Embed(ctx, texts[idx])
			if err != nil {
				errChan <- fmt.Errorf("batch item %d: %w", idx, err)
				return
			}
			embeddings[idx] = vector
			errChan <- nil
		}(i)
	}

	var firstErr error
	for i := 0; i < len(texts); i++ {
		if err := <-errChan; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}

	return embeddings, nil
}

func (s *Service) Dimension() int {
	return s.provider.Dimension()
}

func (s *Service) ModelName() string {
	return s.provider.ModelName()
}

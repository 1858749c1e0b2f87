package retrieval

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpus/internal/common"
	"github.com/ternarybob/corpus/internal/interfaces"
	"github.com/ternarybob/corpus/internal/models"
	"github.com/ternarybob/corpus/internal/services/similarity"
)

// DefaultTopK is the result count when the request does not specify one
const DefaultTopK = 5

// Service answers similarity queries over a knowledge base. Fast mode
// returns ranked chunks; accurate mode additionally synthesizes a prose
// answer grounded in the retrieved content.
//
// Retrieval is eventually consistent with concurrent ingestion; a query
// may or may not observe a chunk inserted moments earlier.
type Service struct {
	chunks   interfaces.ChunkStorage
	embedder interfaces.EmbeddingService
	llm      interfaces.LLMService
	ledger   interfaces.CreditLedger
	credits  *common.CreditsConfig
	logger   arbor.ILogger
}

// NewService creates the retrieval service. llm may be nil; accurate
// mode then returns an error instead of a synthesized answer.
func NewService(
	chunks interfaces.ChunkStorage,
	embedder interfaces.EmbeddingService,
	llm interfaces.LLMService,
	creditLedger interfaces.CreditLedger,
	credits *common.CreditsConfig,
	logger arbor.ILogger,
) interfaces.RetrievalService {
	return &Service{
		chunks:   chunks,
		embedder: embedder,
		llm:      llm,
		ledger:   creditLedger,
		credits:  credits,
		logger:   logger,
	}
}

func (s *Service) Query(ctx context.Context, req *interfaces.QueryRequest) (*models.QueryResponse, error) {
	start := time.Now()

	if !req.Mode.Valid() {
		return nil, fmt.Errorf("invalid query mode: %s", req.Mode)
	}
	if req.Mode == models.QueryModeAccurate && s.llm == nil {
		return nil, fmt.Errorf("accurate mode is not available: no LLM configured")
	}

	if err := s.ledger.Authorize(ctx, req.AccountID, req.KnowledgeBaseID); err != nil {
		return nil, err
	}

	topK := req.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	queryVector, err := s.embedder.EmbedQuery(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := s.scan(ctx, req.KnowledgeBaseID, queryVector, topK, req.SourceFilter)
	if err != nil {
		return nil, err
	}

	// Billing happens once the store query has succeeded; an empty
	// result set is still a served query.
	cost := s.queryCost(req.Mode)
	reference := fmt.Sprintf("query:%s:%s", req.Mode, req.KnowledgeBaseID)
	if _, err := s.ledger.Deduct(ctx, req.AccountID, cost, reference); err != nil {
		return nil, err
	}

	response := &models.QueryResponse{
		Results:     results,
		CreditsUsed: cost,
	}

	if req.Mode == models.QueryModeAccurate {
		answer, err := s.synthesize(ctx, req.Query, results)
		if err != nil {
			// The account paid for an answer it did not get
			if _, refundErr := s.ledger.Refund(ctx, req.AccountID, cost, reference); refundErr != nil {
				s.logger.Error().
					Err(refundErr).
					Str("account_id", req.AccountID).
					Int64("amount", cost).
					Msg("Refund after failed synthesis did not succeed")
			}
			return nil, err
		}
		response.Answer = answer
	}

	response.ProcessingTimeMs = time.Since(start).Milliseconds()

	s.logger.Info().
		Str("knowledge_base_id", req.KnowledgeBaseID).
		Str("mode", string(req.Mode)).
		Int("results", len(response.Results)).
		Int64("credits_used", cost).
		Int64("elapsed_ms", response.ProcessingTimeMs).
		Msg("Query served")

	return response, nil
}

// scan scores every chunk in the knowledge base against the query
// vector and returns the top K, ties broken by insertion order.
func (s *Service) scan(ctx context.Context, knowledgeBaseID string, queryVector []float32, topK int, sourceFilter string) ([]models.ScoredChunk, error) {
	chunks, err := s.chunks.GetChunksByKnowledgeBase(ctx, knowledgeBaseID)
	if err != nil {
		return nil, fmt.Errorf("query scan failed for knowledge base %s: %w", knowledgeBaseID, err)
	}

	type scored struct {
		chunk *models.Chunk
		score float64
	}

	candidates := make([]scored, 0, len(chunks))
	for _, chunk := range chunks {
		if sourceFilter != "" && chunk.SourceDocumentID != sourceFilter {
			continue
		}
		candidates = append(candidates, scored{
			chunk: chunk,
			score: similarity.Cosine(queryVector, chunk.Vector),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].chunk.Seq < candidates[j].chunk.Seq
	})

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	results := make([]models.ScoredChunk, len(candidates))
	for i, c := range candidates {
		results[i] = models.ScoredChunk{
			Content:  c.chunk.Content,
			Score:    c.score,
			Metadata: c.chunk.Metadata,
		}
	}
	return results, nil
}

// synthesize produces the accurate-mode prose answer from the top chunks
func (s *Service) synthesize(ctx context.Context, query string, results []models.ScoredChunk) (string, error) {
	if len(results) == 0 {
		return "The knowledge base does not contain an answer to this question.", nil
	}

	answer, err := s.llm.Chat(ctx, []interfaces.Message{
		{Role: "system", Content: synthesisSystemPrompt},
		{Role: "user", Content: buildSynthesisPrompt(query, results)},
	})
	if err != nil {
		return "", fmt.Errorf("answer synthesis failed: %w", err)
	}
	return answer, nil
}

func (s *Service) queryCost(mode models.QueryMode) int64 {
	if mode == models.QueryModeAccurate {
		return s.credits.AccurateQueryCost
	}
	return s.credits.FastQueryCost
}

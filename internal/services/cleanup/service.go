package cleanup

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpus/internal/interfaces"
	"github.com/ternarybob/corpus/internal/models"
)

// Service removes orphaned chunks: chunks whose source document row no
// longer exists. Orphans appear when a document delete is interrupted
// between the document row and its chunks.
type Service struct {
	chunks    interfaces.ChunkStorage
	documents interfaces.DocumentStorage
	logger    arbor.ILogger
}

// NewService creates the cleanup service
func NewService(chunks interfaces.ChunkStorage, documents interfaces.DocumentStorage, logger arbor.ILogger) *Service {
	return &Service{
		chunks:    chunks,
		documents: documents,
		logger:    logger,
	}
}

// CleanupOrphans sweeps one knowledge base. Existence checks are cached
// per document so the sweep does one lookup per document, not per chunk.
func (s *Service) CleanupOrphans(ctx context.Context, knowledgeBaseID string) (*models.CleanupResult, error) {
	chunks, err := s.chunks.GetChunksByKnowledgeBase(ctx, knowledgeBaseID)
	if err != nil {
		return nil, fmt.Errorf("orphan sweep failed for knowledge base %s: %w", knowledgeBaseID, err)
	}

	result := &models.CleanupResult{
		KnowledgeBaseID: knowledgeBaseID,
		ChunksScanned:   len(chunks),
	}

	exists := make(map[string]bool)
	for _, chunk := range chunks {
		valid, ok := exists[chunk.SourceDocumentID]
		if !ok {
			valid, err = s.documents.DocumentExists(ctx, chunk.SourceDocumentID)
			if err != nil {
				// An unreadable document row is not evidence of an
				// orphan; keep the chunk.
				s.logger.Warn().
					Err(err).
					Str("document_id", chunk.SourceDocumentID).
					Msg("Existence check failed, keeping chunk")
				valid = true
			}
			exists[chunk.SourceDocumentID] = valid
		}

		if valid {
			result.ChunksValid++
			continue
		}

		if err := s.chunks.DeleteChunk(ctx, chunk.ID); err != nil {
			s.logger.Error().
				Err(err).
				Str("chunk_id", chunk.ID).
				Msg("Failed to delete orphaned chunk")
			result.ChunksValid++
			continue
		}
		result.ChunksRemoved++
	}

	s.logger.Info().
		Str("knowledge_base_id", knowledgeBaseID).
		Int("scanned", result.ChunksScanned).
		Int("valid", result.ChunksValid).
		Int("removed", result.ChunksRemoved).
		Msg("Orphan sweep completed")

	return result, nil
}

// Stats summarizes one knowledge base: document and chunk counts, total
// submitted size, and the newest document timestamp.
func (s *Service) Stats(ctx context.Context, knowledgeBaseID string) (*models.KnowledgeBaseStats, error) {
	docs, err := s.documents.ListDocuments(ctx, knowledgeBaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents for knowledge base %s: %w", knowledgeBaseID, err)
	}

	chunkCount, err := s.chunks.CountChunks(ctx, knowledgeBaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to count chunks for knowledge base %s: %w", knowledgeBaseID, err)
	}

	stats := &models.KnowledgeBaseStats{
		KnowledgeBaseID: knowledgeBaseID,
		DocumentCount:   len(docs),
		ChunkCount:      chunkCount,
	}
	for _, doc := range docs {
		stats.TotalSizeBytes += doc.SizeBytes
		if doc.CreatedAt.After(stats.LastUpdated) {
			stats.LastUpdated = doc.CreatedAt
		}
	}
	return stats, nil
}

// CleanupAll sweeps every knowledge base that has documents or chunks
func (s *Service) CleanupAll(ctx context.Context) ([]*models.CleanupResult, error) {
	ids, err := s.documents.ListKnowledgeBaseIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list knowledge bases: %w", err)
	}

	var results []*models.CleanupResult
	for _, id := range ids {
		result, err := s.CleanupOrphans(ctx, id)
		if err != nil {
			s.logger.Error().
				Err(err).
				Str("knowledge_base_id", id).
				Msg("Orphan sweep failed")
			continue
		}
		results = append(results, result)
	}
	return results, nil
}

package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpus/internal/interfaces"
	"github.com/ternarybob/corpus/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// ChunkStorage implements the ChunkStorage interface for Badger
type ChunkStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewChunkStorage creates a new ChunkStorage instance
func NewChunkStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ChunkStorage {
	return &ChunkStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ChunkStorage) SaveChunk(ctx context.Context, chunk *models.Chunk) error {
	if chunk.ID == "" {
		return fmt.Errorf("chunk ID is required")
	}
	if chunk.KnowledgeBaseID == "" {
		return fmt.Errorf("chunk knowledge base ID is required")
	}

	if chunk.CreatedAt.IsZero() {
		chunk.CreatedAt = time.Now()
	}

	if err := s.db.Store().Upsert(chunk.ID, chunk); err != nil {
		return fmt.Errorf("failed to save chunk: %w", err)
	}
	return nil
}

func (s *ChunkStorage) GetChunksByKnowledgeBase(ctx context.Context, knowledgeBaseID string) ([]*models.Chunk, error) {
	var chunks []models.Chunk
	err := s.db.Store().Find(&chunks, badgerhold.Where("KnowledgeBaseID").Eq(knowledgeBaseID).Index("KnowledgeBaseID"))
	if err != nil {
		return nil, fmt.Errorf("failed to get chunks for knowledge base %s: %w", knowledgeBaseID, err)
	}

	result := make([]*models.Chunk, len(chunks))
	for i := range chunks {
		result[i] = &chunks[i]
	}
	return result, nil
}

func (s *ChunkStorage) GetChunksByDocument(ctx context.Context, sourceDocumentID string) ([]*models.Chunk, error) {
	var chunks []models.Chunk
	err := s.db.Store().Find(&chunks, badgerhold.Where("SourceDocumentID").Eq(sourceDocumentID).Index("SourceDocumentID"))
	if err != nil {
		return nil, fmt.Errorf("failed to get chunks for document %s: %w", sourceDocumentID, err)
	}

	result := make([]*models.Chunk, len(chunks))
	for i := range chunks {
		result[i] = &chunks[i]
	}
	return result, nil
}

func (s *ChunkStorage) DeleteChunk(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.Chunk{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete chunk: %w", err)
	}
	return nil
}

func (s *ChunkStorage) DeleteChunksByDocument(ctx context.Context, sourceDocumentID string) (int, error) {
	chunks, err := s.GetChunksByDocument(ctx, sourceDocumentID)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, chunk := range chunks {
		if err := s.DeleteChunk(ctx, chunk.ID); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

func (s *ChunkStorage) CountChunks(ctx context.Context, knowledgeBaseID string) (int, error) {
	count, err := s.db.Store().Count(&models.Chunk{}, badgerhold.Where("KnowledgeBaseID").Eq(knowledgeBaseID).Index("KnowledgeBaseID"))
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return int(count), nil
}

func (s *ChunkStorage) ClearKnowledgeBase(ctx context.Context, knowledgeBaseID string) error {
	err := s.db.Store().DeleteMatching(&models.Chunk{}, badgerhold.Where("KnowledgeBaseID").Eq(knowledgeBaseID).Index("KnowledgeBaseID"))
	if err != nil {
		return fmt.Errorf("failed to clear knowledge base %s: %w", knowledgeBaseID, err)
	}
	return nil
}

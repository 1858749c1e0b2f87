package badger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpus/internal/interfaces"
	"github.com/ternarybob/corpus/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// DocumentStorage implements the DocumentStorage interface for Badger
type DocumentStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewDocumentStorage creates a new DocumentStorage instance
func NewDocumentStorage(db *BadgerDB, logger arbor.ILogger) interfaces.DocumentStorage {
	return &DocumentStorage{
		db:     db,
		logger: logger,
	}
}

func (s *DocumentStorage) SaveDocument(ctx context.Context, doc *models.SourceDocument) error {
	if doc.ID == "" {
		return fmt.Errorf("document ID is required")
	}
	if doc.KnowledgeBaseID == "" {
		return fmt.Errorf("document knowledge base ID is required")
	}
	if !doc.Type.Valid() {
		return fmt.Errorf("invalid source type: %s", doc.Type)
	}

	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	if err := s.db.Store().Upsert(doc.ID, doc); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

func (s *DocumentStorage) GetDocument(ctx context.Context, id string) (*models.SourceDocument, error) {
	var doc models.SourceDocument
	if err := s.db.Store().Get(id, &doc); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("%w: %s", models.ErrDocumentNotFound, id)
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

func (s *DocumentStorage) DocumentExists(ctx context.Context, id string) (bool, error) {
	var doc models.SourceDocument
	err := s.db.Store().Get(id, &doc)
	if err == badgerhold.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check document existence: %w", err)
	}
	return true, nil
}

func (s *DocumentStorage) DeleteDocument(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.SourceDocument{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

func (s *DocumentStorage) ListDocuments(ctx context.Context, knowledgeBaseID string) ([]*models.SourceDocument, error) {
	var docs []models.SourceDocument
	err := s.db.Store().Find(&docs, badgerhold.Where("KnowledgeBaseID").Eq(knowledgeBaseID).Index("KnowledgeBaseID"))
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	sort.Slice(docs, func(i, j int) bool {
		return docs[i].CreatedAt.Before(docs[j].CreatedAt)
	})

	result := make([]*models.SourceDocument, len(docs))
	for i := range docs {
		result[i] = &docs[i]
	}
	return result, nil
}

func (s *DocumentStorage) ListKnowledgeBaseIDs(ctx context.Context) ([]string, error) {
	var docs []models.SourceDocument
	if err := s.db.Store().Find(&docs, nil); err != nil {
		return nil, fmt.Errorf("failed to list knowledge bases: %w", err)
	}

	seen := make(map[string]bool)
	var ids []string
	for i := range docs {
		if !seen[docs[i].KnowledgeBaseID] {
			seen[docs[i].KnowledgeBaseID] = true
			ids = append(ids, docs[i].KnowledgeBaseID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *DocumentStorage) CountDocuments(ctx context.Context, knowledgeBaseID string) (int, error) {
	count, err := s.db.Store().Count(&models.SourceDocument{}, badgerhold.Where("KnowledgeBaseID").Eq(knowledgeBaseID).Index("KnowledgeBaseID"))
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return int(count), nil
}

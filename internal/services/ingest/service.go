package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpus/internal/common"
	"github.com/ternarybob/corpus/internal/interfaces"
	"github.com/ternarybob/corpus/internal/models"
	"github.com/ternarybob/corpus/internal/services/chunker"
	"github.com/ternarybob/corpus/internal/services/similarity"
)

// Service is the ingestion orchestrator: it prepares source content,
// chunks it, embeds each chunk, filters duplicates, and persists what
// survives.
//
// Ingestion is not all-or-nothing. A chunk that permanently fails to
// embed or matches an existing vector is counted and skipped; its
// siblings still land.
type Service struct {
	storage  interfaces.StorageManager
	embedder interfaces.EmbeddingService
	engine   *similarity.Engine
	chunker  *chunker.Chunker
	ledger   interfaces.CreditLedger
	logger   arbor.ILogger
}

// NewService creates the ingestion orchestrator
func NewService(
	storage interfaces.StorageManager,
	embedder interfaces.EmbeddingService,
	engine *similarity.Engine,
	cfg *common.IngestConfig,
	creditLedger interfaces.CreditLedger,
	logger arbor.ILogger,
) interfaces.IngestService {
	return &Service{
		storage:  storage,
		embedder: embedder,
		engine:   engine,
		chunker:  chunker.New(cfg.ChunkSize, cfg.ChunkOverlap),
		ledger:   creditLedger,
		logger:   logger,
	}
}

func (s *Service) Ingest(ctx context.Context, req *interfaces.IngestRequest) (*models.IngestResult, error) {
	if !req.SourceType.Valid() {
		return nil, fmt.Errorf("invalid source type: %s", req.SourceType)
	}

	if err := s.ledger.Authorize(ctx, req.AccountID, req.KnowledgeBaseID); err != nil {
		return nil, err
	}

	content, title, metadata, err := s.prepareContent(req)
	if err != nil {
		return nil, err
	}

	// Plan accounting reflects submitted size, not indexed size
	sizeBytes := int64(len(req.Content))
	if err := s.ledger.ReserveBytes(ctx, req.AccountID, sizeBytes); err != nil {
		return nil, err
	}

	// The document row is written before any chunk so no chunk ever
	// references a document that does not exist.
	doc := &models.SourceDocument{
		ID:              common.NewDocumentID(),
		KnowledgeBaseID: req.KnowledgeBaseID,
		Type:            req.SourceType,
		Title:           title,
		SizeBytes:       sizeBytes,
		Metadata:        metadata,
		CreatedAt:       time.Now(),
	}
	if err := s.storage.DocumentStorage().SaveDocument(ctx, doc); err != nil {
		if releaseErr := s.ledger.ReleaseBytes(ctx, req.AccountID, sizeBytes); releaseErr != nil {
			s.logger.Warn().Err(releaseErr).Str("account_id", req.AccountID).Msg("Failed to release reserved bytes")
		}
		return nil, fmt.Errorf("failed to save source document: %w", err)
	}

	pieces := s.chunker.Chunk(content)
	result := &models.IngestResult{SourceDocumentID: doc.ID}

	// Seq orders chunks by insertion; the chunk-index offset keeps it
	// strictly increasing even when chunks land in the same clock tick.
	seqBase := time.Now().UnixNano()

	var accepted [][]float32
	for i, piece := range pieces {
		vector, err := s.embedder.Embed(ctx, piece)
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("document_id", doc.ID).
				Int("chunk_index", i).
				Msg("Chunk embedding failed, skipping")
			result.ChunksFailed++
			continue
		}

		// Check the persisted store first, then chunks accepted earlier
		// in this same call.
		duplicate, err := s.engine.IsDuplicate(ctx, vector, req.KnowledgeBaseID)
		if err != nil {
			// Fail open: an unreadable store must not silently drop
			// content, a duplicate slipping in is recoverable.
			s.logger.Warn().
				Err(err).
				Str("document_id", doc.ID).
				Int("chunk_index", i).
				Msg("Duplicate scan failed, inserting chunk anyway")
			duplicate = false
		}
		if !duplicate && s.engine.IsDuplicateOfAny(vector, accepted) {
			duplicate = true
		}
		if duplicate {
			result.ChunksSkipped++
			continue
		}

		chunk := &models.Chunk{
			ID:               common.NewChunkID(),
			KnowledgeBaseID:  req.KnowledgeBaseID,
			SourceDocumentID: doc.ID,
			Content:          piece,
			Vector:           vector,
			Metadata: models.ChunkMetadata{
				SourceType:  req.SourceType,
				SourceTitle: title,
				ChunkIndex:  i,
				TotalChunks: len(pieces),
			},
			Seq:       seqBase + int64(i),
			CreatedAt: time.Now(),
		}
		if err := s.storage.ChunkStorage().SaveChunk(ctx, chunk); err != nil {
			s.logger.Error().
				Err(err).
				Str("document_id", doc.ID).
				Int("chunk_index", i).
				Msg("Failed to save chunk")
			result.ChunksFailed++
			continue
		}

		accepted = append(accepted, vector)
		result.ChunksCreated++
	}

	s.logger.Info().
		Str("document_id", doc.ID).
		Str("knowledge_base_id", req.KnowledgeBaseID).
		Str("source_type", string(req.SourceType)).
		Int("created", result.ChunksCreated).
		Int("skipped", result.ChunksSkipped).
		Int("failed", result.ChunksFailed).
		Msg("Document ingested")

	return result, nil
}

// prepareContent resolves the request into embeddable text, a title,
// and the stored metadata map, per source type.
func (s *Service) prepareContent(req *interfaces.IngestRequest) (string, string, map[string]interface{}, error) {
	title := req.SourceLabel
	metadata := req.Metadata

	switch req.SourceType {
	case models.SourceTypeLink:
		// Content carries the URL for link sources
		markdown, pageTitle, err := fetchLink(req.Content)
		if err != nil {
			return "", "", nil, err
		}
		if title == "" {
			title = pageTitle
		}
		if metadata == nil {
			linkMeta := models.LinkMetadata{URL: req.Content, PageTitle: pageTitle}
			if m, err := linkMeta.ToMap(); err == nil {
				metadata = m
			}
		}
		return markdownToText(markdown), title, metadata, nil

	case models.SourceTypeQA:
		question, _ := metadata["question"].(string)
		answer, _ := metadata["answer"].(string)
		if question == "" || answer == "" {
			return "", "", nil, fmt.Errorf("qa source requires question and answer metadata")
		}
		if title == "" {
			title = question
		}
		return formatQA(question, answer), title, metadata, nil

	case models.SourceTypeParsedJob:
		// Parse worker output is markdown; flatten for embedding
		return markdownToText(req.Content), title, metadata, nil

	default:
		// file and text sources are ingested as-is
		return req.Content, title, metadata, nil
	}
}

// DeleteDocument removes a source document and cascades to its chunks,
// releasing the document's plan bytes.
func (s *Service) DeleteDocument(ctx context.Context, accountID, documentID string) error {
	doc, err := s.storage.DocumentStorage().GetDocument(ctx, documentID)
	if err != nil {
		return err
	}

	if err := s.ledger.Authorize(ctx, accountID, doc.KnowledgeBaseID); err != nil {
		return err
	}

	deleted, err := s.storage.ChunkStorage().DeleteChunksByDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("failed to delete chunks for document %s: %w", documentID, err)
	}

	if err := s.storage.DocumentStorage().DeleteDocument(ctx, documentID); err != nil {
		return err
	}

	if err := s.ledger.ReleaseBytes(ctx, accountID, doc.SizeBytes); err != nil {
		s.logger.Warn().
			Err(err).
			Str("account_id", accountID).
			Str("document_id", documentID).
			Msg("Failed to release plan bytes on delete")
	}

	s.logger.Info().
		Str("document_id", documentID).
		Str("knowledge_base_id", doc.KnowledgeBaseID).
		Int("chunks_deleted", deleted).
		Msg("Document deleted")

	return nil
}

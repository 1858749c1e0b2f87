package models

import (
	"time"
)

// Chunk is the atomic unit of indexing and retrieval: a bounded text segment
// with its embedding vector, scoped to one knowledge base.
//
// Chunks are immutable once written. They are created by the ingestion
// orchestrator and removed only when their source document is deleted, the
// knowledge base is purged, or the orphan sweep finds their document gone.
type Chunk struct {
	ID               string `json:"id"`
	KnowledgeBaseID  string `json:"knowledge_base_id" badgerholdIndex:"KnowledgeBaseID"`
	SourceDocumentID string `json:"source_document_id" badgerholdIndex:"SourceDocumentID"`

	Content string    `json:"content"`
	Vector  []float32 `json:"vector"`

	Metadata ChunkMetadata `json:"metadata"`

	// Seq orders chunks by insertion within a knowledge base; retrieval uses
	// it to break score ties deterministically.
	Seq int64 `json:"seq"`

	CreatedAt time.Time `json:"created_at"`
}

// ChunkMetadata carries the structured tags stored alongside each chunk
type ChunkMetadata struct {
	SourceType  SourceType `json:"source_type"`
	SourceTitle string     `json:"source_title"`
	ChunkIndex  int        `json:"chunk_index"`  // Position within the source document
	TotalChunks int        `json:"total_chunks"` // Chunk count of the source document at ingest time
}

// ScoredChunk pairs a chunk with its similarity score for retrieval results
type ScoredChunk struct {
	Content  string        `json:"content"`
	Score    float64       `json:"score"`
	Metadata ChunkMetadata `json:"metadata"`
}

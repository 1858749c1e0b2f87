package models

// QueryMode selects the retrieval response tier
type QueryMode string

const (
	// QueryModeFast returns raw ranked chunks only
	QueryModeFast QueryMode = "fast"
	// QueryModeAccurate additionally synthesizes a prose answer from the top chunks
	QueryModeAccurate QueryMode = "accurate"
)

// Valid reports whether the query mode is known
func (m QueryMode) Valid() bool {
	return m == QueryModeFast || m == QueryModeAccurate
}

// IngestResult reports the per-chunk outcome of one ingestion call.
// Ingestion is not all-or-nothing: one chunk failing to embed or being
// rejected as a duplicate does not abort its siblings.
type IngestResult struct {
	SourceDocumentID string `json:"source_document_id"`
	ChunksCreated    int    `json:"chunks_created"`
	ChunksSkipped    int    `json:"chunks_skipped"` // Rejected as duplicates
	ChunksFailed     int    `json:"chunks_failed"`  // Embedding permanently failed
}

// QueryResponse is the retrieval service's answer to one query.
//
// Retrieval is eventually consistent with concurrent ingestion: a query may
// or may not observe a chunk inserted moments earlier.
type QueryResponse struct {
	Results          []ScoredChunk `json:"results"`
	Answer           string        `json:"answer,omitempty"` // Accurate mode only
	CreditsUsed      int64         `json:"credits_used"`
	ProcessingTimeMs int64         `json:"processing_time_ms"`
}

// CleanupResult reports an orphan-chunk sweep over one knowledge base
type CleanupResult struct {
	KnowledgeBaseID string `json:"knowledge_base_id"`
	ChunksScanned   int    `json:"chunks_scanned"`
	ChunksValid     int    `json:"chunks_valid"`
	ChunksRemoved   int    `json:"chunks_removed"`
}

package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/corpus/internal/models"
)

// IngestRequest carries one document's content into a knowledge base
type IngestRequest struct {
	AccountID       string            `json:"account_id" validate:"required"`
	KnowledgeBaseID string            `json:"knowledge_base_id" validate:"required"`
	Content         string            `json:"content" validate:"required"`
	SourceLabel     string            `json:"source_label"`
	SourceType      models.SourceType `json:"source_type" validate:"required"`

	// Metadata is the typed payload for the source variant, already
	// flattened via the models ToMap converters.
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// IngestService composes chunker, embeddings, similarity engine, and the
// vector store to add a document's content exactly once per semantic unit.
type IngestService interface {
	Ingest(ctx context.Context, req *IngestRequest) (*models.IngestResult, error)
	DeleteDocument(ctx context.Context, accountID, documentID string) error
}

// QueryRequest asks the retrieval service a question
type QueryRequest struct {
	AccountID       string           `json:"account_id" validate:"required"`
	KnowledgeBaseID string           `json:"knowledge_base_id" validate:"required"`
	Query           string           `json:"query" validate:"required"`
	Mode            models.QueryMode `json:"mode" validate:"required"`
	TopK            int              `json:"top_k"`
	SourceFilter    string           `json:"source_filter,omitempty"` // Restrict to one source document
}

// RetrievalService answers similarity queries, optionally with synthesis
type RetrievalService interface {
	Query(ctx context.Context, req *QueryRequest) (*models.QueryResponse, error)
}

// SubmitParseRequest submits a raw file for asynchronous parsing
type SubmitParseRequest struct {
	AccountID       string           `json:"account_id" validate:"required"`
	KnowledgeBaseID string           `json:"knowledge_base_id" validate:"required"`
	FileName        string           `json:"file_name" validate:"required"`
	FileBytes       []byte           `json:"file_bytes" validate:"required"`
	Mode            models.ParseMode `json:"mode" validate:"required"`
}

// ParseJobService orchestrates the credit-metered asynchronous parse path.
// Submit returns immediately with a job ID; the server never blocks a
// request thread waiting on the worker.
type ParseJobService interface {
	Submit(ctx context.Context, req *SubmitParseRequest) (*models.ParseJob, error)
	GetJob(ctx context.Context, jobID string) (*models.ParseJob, error)

	// MarkProcessing, Complete, and Fail are the worker-facing transitions.
	// All three enforce status monotonicity.
	MarkProcessing(ctx context.Context, jobID string) error
	Complete(ctx context.Context, jobID, markdown, sourceDocumentID string, pageCount int) error
	Fail(ctx context.Context, jobID, errorMessage string) error

	// WaitForCompletion polls with a bounded attempt count and fixed
	// interval; it is a caller-side convenience, not a server-side block.
	WaitForCompletion(ctx context.Context, jobID string, attempts int, interval time.Duration) (*models.ParseJob, error)
}

// CreditLedger gates costly operations behind the prepaid balance
type CreditLedger interface {
	// Deduct atomically decrements the balance if sufficient, serialized
	// per account. Returns the remaining balance, or
	// *models.InsufficientCreditsError without touching the balance.
	Deduct(ctx context.Context, accountID string, amount int64, reference string) (int64, error)

	// Refund is compensation for a downstream failure after a successful
	// deduction. Its outcome is logged whether or not it succeeds.
	Refund(ctx context.Context, accountID string, amount int64, reference string) (int64, error)

	Grant(ctx context.Context, accountID string, amount int64) (int64, error)
	Balance(ctx context.Context, accountID string) (int64, error)

	// ReserveBytes enforces the plan size cap before ingest work begins;
	// ReleaseBytes compensates on document deletion.
	ReserveBytes(ctx context.Context, accountID string, n int64) error
	ReleaseBytes(ctx context.Context, accountID string, n int64) error

	// Authorize verifies (or establishes, first-writer-wins) that the
	// account owns the knowledge base.
	Authorize(ctx context.Context, accountID, knowledgeBaseID string) error
}

// CleanupService removes chunks whose source document no longer exists
type CleanupService interface {
	CleanupOrphans(ctx context.Context, knowledgeBaseID string) (*models.CleanupResult, error)
}

// JobQueue hands parse jobs to the background worker pool by job ID
type JobQueue interface {
	Enqueue(ctx context.Context, jobID string) error
}
